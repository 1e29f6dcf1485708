package dto

import (
	"mime/multipart"
	"strings"

	"ruang/internal/domains/room/model"
	"ruang/shared"
	gDto "ruang/shared/dto"
	gModel "ruang/shared/model"
	"ruang/shared/timezone"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// SortableFields maps the accepted sort_by values to qualified columns.
var SortableFields = map[string]string{
	"name":       model.TableName + "." + model.FieldName,
	"capacity":   model.TableName + "." + model.FieldCapacity,
	"status":     model.TableName + "." + model.FieldStatus,
	"created_at": model.TableName + ".created_at",
}

type CreateRoomRequest struct {
	Name        string                `json:"name"        validate:"notblank,max=100"`
	Capacity    int                   `json:"capacity"    validate:"gte=0"`
	Facilities  []string              `json:"facilities"  validate:"omitempty,dive,notblank,max=50"`
	Description string                `json:"description" validate:"omitempty,max=1000"`
	Location    string                `json:"location"    validate:"omitempty,max=100"`
	Status      string                `json:"status"      validate:"omitempty,oneof=AVAILABLE MAINTENANCE UNAVAILABLE"`
	Image       *multipart.FileHeader `json:"image"       validate:"omitempty,mimetypes=image/png image/jpg image/jpeg image/webp,maxfilesize=2"`
	ImageFile   multipart.File        `json:"-"`
}

func (c *CreateRoomRequest) ToModel(user, imageURL string) model.Room {
	status := model.StatusAvailable
	if c.Status != "" {
		status = model.Status(c.Status)
	}

	return model.Room{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(c.Name),
		Capacity:    c.Capacity,
		Facilities:  pq.StringArray(NormalizeFacilities(c.Facilities)),
		Description: c.Description,
		Location:    c.Location,
		Image:       imageURL,
		Status:      status,
		Metadata:    gModel.NewMetadata(timezone.Now(), user),
	}
}

// UpdateRoomRequest is a partial update. Only non-zero fields are written.
type UpdateRoomRequest struct {
	Name        string                `db:"name"        json:"name"        validate:"omitempty,notblank,max=100"`
	Capacity    *int                  `db:"capacity"    json:"capacity"    validate:"omitempty,gte=0"`
	Facilities  pq.StringArray        `db:"facilities"  json:"facilities"  validate:"omitempty,dive,notblank,max=50"`
	Description string                `db:"description" json:"description" validate:"omitempty,max=1000"`
	Location    string                `db:"location"    json:"location"    validate:"omitempty,max=100"`
	Status      string                `db:"status"      json:"status"      validate:"omitempty,oneof=AVAILABLE MAINTENANCE UNAVAILABLE"`
	Image       *multipart.FileHeader `json:"image"       validate:"omitempty,mimetypes=image/png image/jpg image/jpeg image/webp,maxfilesize=2"`
	ImageFile   multipart.File        `json:"-"`
}

// NormalizeFacilities trims entries, drops blanks and duplicates, and keeps the first spelling.
func NormalizeFacilities(facilities []string) []string {
	seen := map[string]bool{}
	res := make([]string, 0, len(facilities))

	for _, facility := range facilities {
		facility = strings.TrimSpace(facility)
		key := strings.ToLower(facility)

		if facility == "" || seen[key] {
			continue
		}

		seen[key] = true

		res = append(res, facility)
	}

	return res
}

type RoomResponse struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Capacity    int      `json:"capacity"`
	Facilities  []string `json:"facilities"`
	Description string   `json:"description"`
	Location    string   `json:"location"`
	Image       string   `json:"image"`
	Status      string   `json:"status"`
	gDto.Metadata
}

func (r *RoomResponse) FromModel(model model.Room) {
	r.ID = model.ID
	r.Name = model.Name
	r.Capacity = model.Capacity
	r.Facilities = append([]string{}, model.Facilities...)
	r.Description = model.Description
	r.Location = model.Location
	r.Image = model.Image
	r.Status = string(model.Status)
	r.Metadata.FromModel(model.Metadata)
}

func FromModels(models []model.Room) []RoomResponse {
	res := make([]RoomResponse, len(models))
	for i, mod := range models {
		res[i].FromModel(mod)
	}

	return res
}

type GetRoomsResponse struct {
	Rooms     []RoomResponse `json:"rooms"`
	TotalPage int            `json:"total_page"`
	TotalData int            `json:"total_data"`
}

func (r *GetRoomsResponse) FromModels(models []model.Room, totalData, limit int) {
	r.TotalData = totalData
	r.TotalPage = shared.CalculateTotalPage(totalData, limit)
	r.Rooms = FromModels(models)
}

type StatsResponse struct {
	Total       int `json:"total"`
	Available   int `json:"available"`
	Maintenance int `json:"maintenance"`
	Unavailable int `json:"unavailable"`
}

func (r *StatsResponse) FromCounts(counts map[string]int) {
	r.Available = counts[string(model.StatusAvailable)]
	r.Maintenance = counts[string(model.StatusMaintenance)]
	r.Unavailable = counts[string(model.StatusUnavailable)]
	r.Total = r.Available + r.Maintenance + r.Unavailable
}
