package dto

import (
	"math"
	"strings"
	"time"

	"ruang/internal/domains/reservation/model"
	roomDto "ruang/internal/domains/room/model/dto"
	"ruang/shared"
	"ruang/shared/constant"
	gDto "ruang/shared/dto"
	gModel "ruang/shared/model"
	"ruang/shared/timezone"

	"github.com/google/uuid"
)

// SortableFields maps the accepted sort_by values to qualified columns.
var SortableFields = map[string]string{
	"start_time": model.TableName + "." + model.FieldStartTime,
	"end_time":   model.TableName + "." + model.FieldEndTime,
	"status":     model.TableName + "." + model.FieldStatus,
	"created_at": model.TableName + "." + constant.FieldCreatedAt,
}

type CreateReservationRequest struct {
	RoomID    string    `json:"room_id"    validate:"required,uuid"`
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time"   validate:"required,gtfield=StartTime"`
	Purpose   string    `json:"purpose"    validate:"notblank,max=500"`
	Notes     string    `json:"notes"      validate:"omitempty,max=1000"`
}

func (c *CreateReservationRequest) Interval() model.Interval {
	return model.Interval{Start: c.StartTime, End: c.EndTime}
}

// ToModel builds the PENDING reservation owned by userID.
func (c *CreateReservationRequest) ToModel(userID string) model.Reservation {
	return model.Reservation{
		ID:        uuid.NewString(),
		UserID:    userID,
		RoomID:    c.RoomID,
		StartTime: c.StartTime,
		EndTime:   c.EndTime,
		Status:    model.StatusPending,
		Purpose:   strings.TrimSpace(c.Purpose),
		Notes:     strings.TrimSpace(c.Notes),
		Metadata:  gModel.NewMetadata(timezone.Now(), userID),
	}
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type AvailabilityRequest struct {
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time"   validate:"required,gtfield=StartTime"`
}

// AvailableRoom is one entry of the availability listing.
type AvailableRoom = roomDto.RoomResponse

type RoomSummary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location"`
}

type UserSummary struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Email string  `json:"email"`
	NIM   *string `json:"nim"`
}

type ReservationResponse struct {
	ID        string      `json:"id"`
	UserID    string      `json:"user_id"`
	RoomID    string      `json:"room_id"`
	StartTime string      `json:"start_time"`
	EndTime   string      `json:"end_time"`
	Status    string      `json:"status"`
	Purpose   string      `json:"purpose"`
	Notes     string      `json:"notes"`
	Room      RoomSummary `json:"room"`
	User      UserSummary `json:"user"`
	gDto.Metadata
}

func (r *ReservationResponse) FromModel(model model.Reservation) {
	r.ID = model.ID
	r.UserID = model.UserID
	r.RoomID = model.RoomID
	r.StartTime = timezone.Format(model.StartTime, constant.DateFormat)
	r.EndTime = timezone.Format(model.EndTime, constant.DateFormat)
	r.Status = string(model.Status)
	r.Purpose = model.Purpose
	r.Notes = model.Notes
	r.Room = RoomSummary{ID: model.RoomID, Name: model.RoomName, Location: model.RoomLocation}
	r.User = UserSummary{ID: model.UserID, Name: model.UserName, Email: model.UserEmail, NIM: model.UserNIM}
	r.Metadata.FromModel(model.Metadata)
}

type GetReservationsResponse struct {
	Reservations []ReservationResponse `json:"reservations"`
	TotalPage    int                   `json:"total_page"`
	TotalData    int                   `json:"total_data"`
}

func (r *GetReservationsResponse) FromModels(models []model.Reservation, totalData, limit int) {
	r.TotalData = totalData
	r.TotalPage = shared.CalculateTotalPage(totalData, limit)
	r.Reservations = make([]ReservationResponse, len(models))

	for i, mod := range models {
		r.Reservations[i].FromModel(mod)
	}
}

type StatsResponse struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Approved  int `json:"approved"`
	Rejected  int `json:"rejected"`
	Cancelled int `json:"cancelled"`
	// ApprovedToday counts approved reservations starting today in the app timezone.
	ApprovedToday int `json:"approved_today"`
	// ApprovalRate is the rounded percentage of reservations that are approved, 0 when there are none.
	ApprovalRate int `json:"approval_rate"`
}

func (r *StatsResponse) FromCounts(counts map[string]int) {
	r.Pending = counts[string(model.StatusPending)]
	r.Approved = counts[string(model.StatusApproved)]
	r.Rejected = counts[string(model.StatusRejected)]
	r.Cancelled = counts[string(model.StatusCancelled)]
	r.Total = r.Pending + r.Approved + r.Rejected + r.Cancelled

	if r.Total > 0 {
		r.ApprovalRate = int(math.Round(float64(r.Approved) * 100 / float64(r.Total)))
	}
}
