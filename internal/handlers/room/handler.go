package room

import (
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"ruang/infras/otel"
	"ruang/internal/domains/room/model"
	"ruang/internal/domains/room/model/dto"
	"ruang/internal/domains/room/service"
	"ruang/shared/constant"
	gDto "ruang/shared/dto"
	"ruang/shared/failure"
	"ruang/shared/validator"
	"ruang/transport/http/response"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

const formFacilities = "facilities"

type Handler struct {
	service service.Room
	otel    otel.Otel
}

func New(service service.Room, otel otel.Otel) Handler {
	return Handler{
		service: service,
		otel:    otel,
	}
}

func (handler *Handler) Router(router chi.Router) {
	router.Route("/rooms", func(routerGroup chi.Router) {
		routerGroup.Post("/", handler.CreateRoom)
		routerGroup.Get("/", handler.GetRooms)
		routerGroup.Get("/stats", handler.GetRoomStats)
		routerGroup.Get("/{id}", handler.GetRoomByID)
		routerGroup.Patch("/{id}", handler.UpdateRoom)
		routerGroup.Delete("/{id}", handler.DeleteRoom)
	})
}

// roomForm is the multipart payload shared by create and update. Facilities may be sent as
// repeated values or as one comma-separated value.
type roomForm struct {
	name          string
	description   string
	location      string
	status        string
	facilities    []string
	hasFacilities bool
	capacity      *int
	image         *multipart.FileHeader
	file          multipart.File
}

func (f roomForm) close() {
	if f.file != nil {
		f.file.Close()
	}
}

func parseRoomForm(r *http.Request) (roomForm, error) {
	if err := r.ParseMultipartForm(constant.RequestMaxMemory); err != nil {
		return roomForm{}, failure.BadRequest(err) // nolint:wrapcheck
	}

	form := roomForm{
		name:        r.FormValue(model.FieldName),
		description: r.FormValue(model.FieldDescription),
		location:    r.FormValue(model.FieldLocation),
		status:      strings.ToUpper(strings.TrimSpace(r.FormValue(model.FieldStatus))),
	}

	if values, ok := r.MultipartForm.Value[formFacilities]; ok {
		form.hasFacilities = true

		for _, value := range values {
			form.facilities = append(form.facilities, strings.Split(value, ",")...)
		}
	}

	if raw := strings.TrimSpace(r.FormValue(model.FieldCapacity)); raw != constant.Empty {
		capacity, err := strconv.Atoi(raw)
		if err != nil {
			return roomForm{}, failure.BadRequestFromString("capacity must be a whole number") // nolint:wrapcheck
		}

		form.capacity = &capacity
	}

	file, header, err := r.FormFile(constant.FormFile)
	if err == nil {
		form.file = file
		form.image = header
	}

	return form, nil
}

// CreateRoom creates a new room.
// @Summary Create a room
// @Description Create a room. The image is optional and stored in object storage.
// @Tags Room
// @Accept multipart/form-data
// @Produce json
// @Param name formData string true "Room name"
// @Param capacity formData integer false "Room capacity"
// @Param facilities formData []string false "Facilities" collectionFormat(multi)
// @Param description formData string false "Room description"
// @Param location formData string false "Room location"
// @Param status formData string false "AVAILABLE, MAINTENANCE or UNAVAILABLE"
// @Param image formData file false "Room image"
// @Success 201 {object} response.Data[dto.RoomResponse] "Room created successfully"
// @Failure 400 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/rooms [post]
// @Security BearerAuth
func (handler *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".CreateRoom")
	defer scope.End()

	form, err := parseRoomForm(r)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to parse room form")

		response.WithError(w, err)

		return
	}
	defer form.close()

	req := dto.CreateRoomRequest{
		Name:        form.name,
		Facilities:  form.facilities,
		Description: form.description,
		Location:    form.location,
		Status:      form.status,
		Image:       form.image,
		ImageFile:   form.file,
	}

	if form.capacity != nil {
		req.Capacity = *form.capacity
	}

	if err := validator.ValidateStruct(&req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request")

		response.WithError(w, err)

		return
	}

	res, err := handler.service.Create(ctx, req)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to create room")

		response.WithError(w, err)

		return
	}

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	scope.AddEvent("Room created successfully by user " + user)

	response.WithJSON(w, http.StatusCreated, res)
}

// GetRooms retrieves all room items based on query parameters.
// @Summary Get all rooms
// @Description Retrieve all rooms with optional filtering and pagination.
// @Tags Room
// @Accept json
// @Produce json
// @Param pagination query gDto.QueryParams false "Pagination parameters"
// @Param name query string false "Filter by name"
// @Param location query string false "Filter by location"
// @Param status query string false "Filter by status"
// @Param facility query string false "Rooms offering this facility"
// @Success 200 {object} response.Data[dto.GetRoomsResponse] "List of rooms"
// @Failure 400 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/rooms [get]
// @Security BearerAuth
func (handler *Handler) GetRooms(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetRooms")
	defer scope.End()

	queryParams := gDto.QueryParams{}
	queryParams.FromRequest(r, true)
	queryParams.ApplySort(dto.SortableFields)

	query := r.URL.Query()

	filterGroup := gDto.FilterGroup{Operator: gDto.FilterGroupOperatorAnd}
	filterGroup.AddQueryFilter(model.FieldName, gDto.FilterOperatorLike, model.TableName, query.Get(model.FieldName))
	filterGroup.AddQueryFilter(model.FieldLocation, gDto.FilterOperatorLike, model.TableName, query.Get(model.FieldLocation))
	filterGroup.AddQueryFilter(model.FieldStatus, gDto.FilterOperatorEq, model.TableName, strings.ToUpper(query.Get(model.FieldStatus)))
	filterGroup.AddQueryFilter(model.FieldFacilities, gDto.FilterOperatorAny, model.TableName, query.Get("facility"))

	rooms, err := handler.service.GetAll(ctx, queryParams, filterGroup)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get rooms")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Rooms retrieved successfully")

	response.WithJSON(w, http.StatusOK, rooms)
}

// GetRoomStats counts rooms per status.
// @Summary Room statistics
// @Tags Room
// @Produce json
// @Success 200 {object} response.Data[dto.StatsResponse]
// @Failure 500 {object} response.Error
// @Router /v1/rooms/stats [get]
// @Security BearerAuth
func (handler *Handler) GetRoomStats(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetRoomStats")
	defer scope.End()

	stats, err := handler.service.Stats(ctx)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get room stats")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusOK, stats)
}

// GetRoomByID retrieves a room by its ID.
// @Summary Get a room by ID
// @Description Retrieve a room by its unique identifier.
// @Tags Room
// @Accept json
// @Produce json
// @Param id path string true "Room ID"
// @Success 200 {object} response.Data[dto.RoomResponse] "Room details"
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/rooms/{id} [get]
// @Security BearerAuth
func (handler *Handler) GetRoomByID(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetRoomByID")
	defer scope.End()

	id := chi.URLParam(r, constant.RequestParamID)

	room, err := handler.service.Get(ctx, id)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get room by ID")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Room retrieved successfully")

	response.WithJSON(w, http.StatusOK, room)
}

// UpdateRoom updates an existing room by its ID.
// @Summary Update a room by ID
// @Description Partially update a room. Uploading an image replaces the previous one.
// @Tags Room
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Room ID"
// @Param name formData string false "Room name"
// @Param capacity formData integer false "Room capacity"
// @Param facilities formData []string false "Facilities" collectionFormat(multi)
// @Param description formData string false "Room description"
// @Param location formData string false "Room location"
// @Param status formData string false "AVAILABLE, MAINTENANCE or UNAVAILABLE"
// @Param image formData file false "Room image"
// @Success 200 {object} response.Message "Room updated successfully"
// @Failure 400 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/rooms/{id} [patch]
// @Security BearerAuth
func (handler *Handler) UpdateRoom(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".UpdateRoom")
	defer scope.End()

	id := chi.URLParam(r, constant.RequestParamID)

	form, err := parseRoomForm(r)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to parse room form")

		response.WithError(w, err)

		return
	}
	defer form.close()

	req := dto.UpdateRoomRequest{
		Name:        form.name,
		Capacity:    form.capacity,
		Description: form.description,
		Location:    form.location,
		Status:      form.status,
		Image:       form.image,
		ImageFile:   form.file,
	}

	if form.hasFacilities {
		req.Facilities = form.facilities
	}

	if err := validator.ValidateStruct(&req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request")

		response.WithError(w, err)

		return
	}

	if err := handler.service.Update(ctx, req, id); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to update room")

		response.WithError(w, err)

		return
	}

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	scope.AddEvent("Room updated successfully by user " + user)

	response.WithMessage(w, http.StatusOK, "Room updated successfully")
}

// DeleteRoom deletes a room by its ID.
// @Summary Delete a room by ID
// @Description Delete a room that has no reservations.
// @Tags Room
// @Accept json
// @Produce json
// @Param id path string true "Room ID"
// @Success 200 {object} response.Message "Room deleted successfully"
// @Failure 404 {object} response.Error
// @Failure 409 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/rooms/{id} [delete]
// @Security BearerAuth
func (handler *Handler) DeleteRoom(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".DeleteRoom")
	defer scope.End()

	id := chi.URLParam(r, constant.RequestParamID)

	if err := handler.service.Delete(ctx, id); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to delete room")

		response.WithError(w, err)

		return
	}

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	scope.AddEvent("Room deleted successfully by user " + user)

	response.WithMessage(w, http.StatusOK, "Room deleted successfully")
}
