package model

import (
	"ruang/shared/model"

	"github.com/lib/pq"
)

const (
	TableName  = "rooms"
	EntityName = "room"

	FieldID          = "id"
	FieldName        = "name"
	FieldCapacity    = "capacity"
	FieldFacilities  = "facilities"
	FieldDescription = "description"
	FieldLocation    = "location"
	FieldImage       = "image"
	FieldStatus      = "status"
)

type Status string

const (
	StatusAvailable   Status = "AVAILABLE"
	StatusMaintenance Status = "MAINTENANCE"
	StatusUnavailable Status = "UNAVAILABLE"
)

func Statuses() []Status {
	return []Status{StatusAvailable, StatusMaintenance, StatusUnavailable}
}

type Room struct {
	ID          string         `db:"id"`
	Name        string         `db:"name"`
	Capacity    int            `db:"capacity"`
	Facilities  pq.StringArray `db:"facilities"`
	Description string         `db:"description"`
	Location    string         `db:"location"`
	Image       string         `db:"image"`
	Status      Status         `db:"status"`
	model.Metadata
}

// Bookable reports whether the room is offered in availability listings.
func (r Room) Bookable() bool {
	return r.Status == StatusAvailable
}
