package reservation

import (
	"context"
	"net/http"
	"time"

	"ruang/infras/otel"
	"ruang/internal/domains/reservation/model"
	"ruang/internal/domains/reservation/model/dto"
	"ruang/internal/domains/reservation/service"
	"ruang/shared/constant"
	gDto "ruang/shared/dto"
	"ruang/shared/failure"
	"ruang/shared/validator"
	"ruang/transport/http/response"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

const (
	queryFrom = "from"
	queryTo   = "to"
)

type Handler struct {
	service service.Reservation
	otel    otel.Otel
}

func New(service service.Reservation, otel otel.Otel) Handler {
	return Handler{
		service: service,
		otel:    otel,
	}
}

func (handler *Handler) Router(router chi.Router) {
	router.Get("/rooms/available", handler.GetAvailableRooms)

	router.Route("/reservations", func(routerGroup chi.Router) {
		routerGroup.Post("/", handler.CreateReservation)
		routerGroup.Get("/", handler.GetReservations)
		routerGroup.Get("/stats", handler.GetStats)
		routerGroup.Get("/mine", handler.GetMyReservations)
		routerGroup.Get("/mine/stats", handler.GetMyStats)
		routerGroup.Get("/{id}", handler.GetReservationByID)
		routerGroup.Patch("/{id}/status", handler.UpdateStatus)
		routerGroup.Delete("/{id}", handler.DeleteReservation)
	})
}

func actorFrom(ctx context.Context) model.Actor {
	userID, _ := ctx.Value(constant.ContextKeyUserID).(string)
	role, _ := ctx.Value(constant.ContextKeyUserRole).(string)

	return model.Actor{UserID: userID, Role: role}
}

func parseTime(r *http.Request, key string) (time.Time, error) {
	value := r.URL.Query().Get(key)
	if value == constant.Empty {
		return time.Time{}, nil
	}

	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, failure.BadRequestFromString(key + " must be an RFC3339 timestamp")
	}

	return t, nil
}

// listFilter reads status, room_id and the from/to window shared by the listing endpoints.
func listFilter(r *http.Request) (gDto.FilterGroup, error) {
	query := r.URL.Query()
	filter := gDto.FilterGroup{Operator: gDto.FilterGroupOperatorAnd}

	if value := query.Get(model.FieldStatus); value != constant.Empty {
		status, err := model.ParseStatus(value)
		if err != nil {
			return filter, err //nolint:wrapcheck
		}

		filter.AddQueryFilter(model.FieldStatus, gDto.FilterOperatorEq, model.TableName, string(status))
	}

	filter.AddQueryFilter(model.FieldRoomID, gDto.FilterOperatorEq, model.TableName, query.Get(model.FieldRoomID))

	from, err := parseTime(r, queryFrom)
	if err != nil {
		return filter, err
	}

	to, err := parseTime(r, queryTo)
	if err != nil {
		return filter, err
	}

	if !from.IsZero() {
		filter.Filters = append(filter.Filters, gDto.Filter{Field: model.FieldEndTime, ArgName: queryFrom, Operator: gDto.FilterOperatorGreater, Table: model.TableName, Value: from})
	}

	if !to.IsZero() {
		filter.Filters = append(filter.Filters, gDto.Filter{Field: model.FieldStartTime, ArgName: queryTo, Operator: gDto.FilterOperatorLess, Table: model.TableName, Value: to})
	}

	return filter, nil
}

// CreateReservation requests a room for a time window.
// @Summary Request a reservation
// @Description Create a PENDING reservation owned by the caller. Overlapping PENDING or APPROVED reservations on the room are refused.
// @Tags Reservation
// @Accept json
// @Produce json
// @Param request body dto.CreateReservationRequest true "Reservation Request"
// @Success 201 {object} response.Data[dto.ReservationResponse]
// @Failure 400 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 409 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/reservations [post]
// @Security BearerAuth
func (handler *Handler) CreateReservation(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".CreateReservation")
	defer scope.End()

	req := dto.CreateReservationRequest{}

	if err := validator.Validate(r.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(w, err)

		return
	}

	res, err := handler.service.RequestReservation(ctx, actorFrom(ctx), req)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to request reservation")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Reservation requested for room " + res.RoomID)

	response.WithJSON(w, http.StatusCreated, res)
}

// GetReservations lists every reservation.
// @Summary Get all reservations
// @Tags Reservation
// @Produce json
// @Param pagination query gDto.QueryParams false "Pagination parameters"
// @Param status query string false "PENDING, APPROVED, REJECTED or CANCELLED"
// @Param room_id query string false "Filter by room"
// @Param user_id query string false "Filter by owner"
// @Param from query string false "Only reservations ending after this instant (RFC3339)"
// @Param to query string false "Only reservations starting before this instant (RFC3339)"
// @Success 200 {object} response.Data[dto.GetReservationsResponse]
// @Failure 400 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/reservations [get]
// @Security BearerAuth
func (handler *Handler) GetReservations(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetReservations")
	defer scope.End()

	filter, err := listFilter(r)
	if err != nil {
		response.WithError(w, err)

		return
	}

	filter.AddQueryFilter(model.FieldUserID, gDto.FilterOperatorEq, model.TableName, r.URL.Query().Get(model.FieldUserID))

	handler.list(ctx, w, r, filter)
}

// GetMyReservations lists the caller's reservations.
// @Summary Get my reservations
// @Tags Reservation
// @Produce json
// @Param pagination query gDto.QueryParams false "Pagination parameters"
// @Param status query string false "PENDING, APPROVED, REJECTED or CANCELLED"
// @Param room_id query string false "Filter by room"
// @Param from query string false "Only reservations ending after this instant (RFC3339)"
// @Param to query string false "Only reservations starting before this instant (RFC3339)"
// @Success 200 {object} response.Data[dto.GetReservationsResponse]
// @Failure 400 {object} response.Error
// @Router /v1/reservations/mine [get]
// @Security BearerAuth
func (handler *Handler) GetMyReservations(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetMyReservations")
	defer scope.End()

	filter, err := listFilter(r)
	if err != nil {
		response.WithError(w, err)

		return
	}

	filter.AddQueryFilter(model.FieldUserID, gDto.FilterOperatorEq, model.TableName, actorFrom(ctx).UserID)

	handler.list(ctx, w, r, filter)
}

func (handler *Handler) list(ctx context.Context, w http.ResponseWriter, r *http.Request, filter gDto.FilterGroup) {
	queryParams := gDto.QueryParams{}
	queryParams.FromRequest(r, true)
	queryParams.ApplySort(dto.SortableFields)

	res, err := handler.service.GetAll(ctx, queryParams, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to get reservations")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusOK, res)
}

// GetStats counts every reservation per status.
// @Summary Reservation statistics
// @Tags Reservation
// @Produce json
// @Success 200 {object} response.Data[dto.StatsResponse]
// @Router /v1/reservations/stats [get]
// @Security BearerAuth
func (handler *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	handler.stats(w, r, constant.Empty)
}

// GetMyStats counts the caller's reservations per status.
// @Summary My reservation statistics
// @Tags Reservation
// @Produce json
// @Success 200 {object} response.Data[dto.StatsResponse]
// @Router /v1/reservations/mine/stats [get]
// @Security BearerAuth
func (handler *Handler) GetMyStats(w http.ResponseWriter, r *http.Request) {
	handler.stats(w, r, actorFrom(r.Context()).UserID)
}

func (handler *Handler) stats(w http.ResponseWriter, r *http.Request, userID string) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".Stats")
	defer scope.End()

	res, err := handler.service.Stats(ctx, userID)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get reservation stats")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusOK, res)
}

// GetReservationByID returns one reservation to its owner or an admin.
// @Summary Get a reservation by ID
// @Tags Reservation
// @Produce json
// @Param id path string true "Reservation ID"
// @Success 200 {object} response.Data[dto.ReservationResponse]
// @Failure 403 {object} response.Error
// @Failure 404 {object} response.Error
// @Router /v1/reservations/{id} [get]
// @Security BearerAuth
func (handler *Handler) GetReservationByID(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetReservationByID")
	defer scope.End()

	res, err := handler.service.Get(ctx, chi.URLParam(r, constant.RequestParamID), actorFrom(ctx))
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get reservation")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusOK, res)
}

// UpdateStatus moves a reservation through its lifecycle.
// @Summary Change reservation status
// @Description Admins approve or reject PENDING reservations and may cancel PENDING or APPROVED ones. Owners may cancel their own PENDING or APPROVED reservations.
// @Tags Reservation
// @Accept json
// @Produce json
// @Param id path string true "Reservation ID"
// @Param request body dto.UpdateStatusRequest true "Target status"
// @Success 200 {object} response.Data[dto.ReservationResponse]
// @Failure 400 {object} response.Error
// @Failure 403 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 422 {object} response.Error
// @Router /v1/reservations/{id}/status [patch]
// @Security BearerAuth
func (handler *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".UpdateStatus")
	defer scope.End()

	req := dto.UpdateStatusRequest{}

	if err := validator.Validate(r.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(w, err)

		return
	}

	next, err := model.ParseStatus(req.Status)
	if err != nil {
		response.WithError(w, err)

		return
	}

	actor := actorFrom(ctx)

	res, err := handler.service.SetStatus(ctx, chi.URLParam(r, constant.RequestParamID), next, actor)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to update reservation status")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Reservation moved to " + res.Status + " by user " + actor.UserID)

	response.WithJSON(w, http.StatusOK, res)
}

// DeleteReservation removes a reservation record.
// @Summary Delete a reservation
// @Tags Reservation
// @Produce json
// @Param id path string true "Reservation ID"
// @Success 200 {object} response.Message
// @Failure 404 {object} response.Error
// @Router /v1/reservations/{id} [delete]
// @Security BearerAuth
func (handler *Handler) DeleteReservation(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".DeleteReservation")
	defer scope.End()

	if err := handler.service.Delete(ctx, chi.URLParam(r, constant.RequestParamID)); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to delete reservation")

		response.WithError(w, err)

		return
	}

	response.WithMessage(w, http.StatusOK, "Reservation deleted successfully")
}

// GetAvailableRooms lists bookable rooms free for the whole window.
// @Summary Available rooms
// @Description Rooms with status AVAILABLE and no APPROVED reservation overlapping [start_time, end_time). PENDING requests do not hide a room.
// @Tags Room
// @Produce json
// @Param start_time query string true "Window start (RFC3339)"
// @Param end_time query string true "Window end (RFC3339)"
// @Success 200 {object} response.Data[[]dto.AvailableRoom]
// @Failure 400 {object} response.Error
// @Router /v1/rooms/available [get]
// @Security BearerAuth
func (handler *Handler) GetAvailableRooms(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetAvailableRooms")
	defer scope.End()

	start, err := parseTime(r, model.FieldStartTime)
	if err != nil {
		response.WithError(w, err)

		return
	}

	end, err := parseTime(r, model.FieldEndTime)
	if err != nil {
		response.WithError(w, err)

		return
	}

	req := dto.AvailabilityRequest{StartTime: start, EndTime: end}

	if err := validator.ValidateStruct(&req); err != nil {
		response.WithError(w, err)

		return
	}

	rooms, err := handler.service.ListAvailableRooms(ctx, req)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to list available rooms")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusOK, rooms)
}
