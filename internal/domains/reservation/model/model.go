package model

import (
	"time"

	"ruang/shared/model"
)

const (
	TableName  = "reservations"
	EntityName = "reservation"

	FieldID        = "id"
	FieldUserID    = "user_id"
	FieldRoomID    = "room_id"
	FieldStartTime = "start_time"
	FieldEndTime   = "end_time"
	FieldStatus    = "status"
	FieldPurpose   = "purpose"
	FieldNotes     = "notes"
)

type Reservation struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	RoomID    string    `db:"room_id"`
	StartTime time.Time `db:"start_time"`
	EndTime   time.Time `db:"end_time"`
	Status    Status    `db:"status"`
	Purpose   string    `db:"purpose"`
	Notes     string    `db:"notes"`

	RoomName     string  `column:"name"     db:"room_name"     table:"rooms"`
	RoomLocation string  `column:"location" db:"room_location" table:"rooms"`
	UserName     string  `column:"name"     db:"user_name"     table:"users"`
	UserEmail    string  `column:"email"    db:"user_email"    table:"users"`
	UserNIM      *string `column:"nim"      db:"user_nim"      table:"users"`
	model.Metadata
}

func (Reservation) GetJoinQuery() string {
	return "INNER JOIN rooms ON rooms.id = reservations.room_id INNER JOIN users ON users.id = reservations.user_id"
}

func (r Reservation) Interval() Interval {
	return Interval{Start: r.StartTime, End: r.EndTime}
}

// Interval is the half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

func (i Interval) Valid() bool {
	return i.Start.Before(i.End)
}

// Overlaps reports whether the two ranges share an instant. Touching ranges do not overlap.
func (i Interval) Overlaps(other Interval) bool {
	return i.Start.Before(other.End) && other.Start.Before(i.End)
}

// FindConflict returns the first reservation in existing whose status is in blocking and
// whose interval overlaps candidate.
func FindConflict(existing []Reservation, candidate Interval, blocking []Status) (Reservation, bool) {
	for _, reservation := range existing {
		if !reservation.Status.In(blocking) {
			continue
		}

		if reservation.Interval().Overlaps(candidate) {
			return reservation, true
		}
	}

	return Reservation{}, false
}
