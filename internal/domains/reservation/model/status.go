package model

import (
	"fmt"
	"strings"

	"ruang/shared/constant"
	"ruang/shared/failure"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusCancelled Status = "CANCELLED"
)

const (
	messageInvalidTransition = "cannot change reservation status from %s to %s"
	messageUnknownStatus     = "unknown reservation status %q"
)

// AdmissionBlocking are the statuses that keep a new request out of an overlapping slot.
func AdmissionBlocking() []Status {
	return []Status{StatusPending, StatusApproved}
}

// AvailabilityBlocking are the statuses that hide a room from availability listings.
func AvailabilityBlocking() []Status {
	return []Status{StatusApproved}
}

func Statuses() []Status {
	return []Status{StatusPending, StatusApproved, StatusRejected, StatusCancelled}
}

func ParseStatus(value string) (Status, error) {
	status := Status(strings.ToUpper(strings.TrimSpace(value)))

	switch status {
	case StatusPending, StatusApproved, StatusRejected, StatusCancelled:
		return status, nil
	default:
		return "", failure.BadRequestFromString(fmt.Sprintf(messageUnknownStatus, value))
	}
}

func (s Status) In(statuses []Status) bool {
	for _, status := range statuses {
		if s == status {
			return true
		}
	}

	return false
}

func (s Status) Terminal() bool {
	return s == StatusRejected || s == StatusCancelled
}

// Actor is the authenticated caller a status change is attributed to.
type Actor struct {
	UserID string
	Role   string
}

func (a Actor) IsAdmin() bool {
	return a.Role == constant.RoleAdmin
}

type transitionRule int

const (
	ruleNone transitionRule = iota
	ruleAdmin
	ruleOwnerOrAdmin
)

func transition(from, to Status) transitionRule {
	switch from {
	case StatusPending:
		switch to {
		case StatusApproved, StatusRejected:
			return ruleAdmin
		case StatusCancelled:
			return ruleOwnerOrAdmin
		case StatusPending:
			return ruleNone
		}
	case StatusApproved:
		switch to {
		case StatusCancelled:
			return ruleOwnerOrAdmin
		case StatusPending, StatusApproved, StatusRejected:
			return ruleNone
		}
	case StatusRejected, StatusCancelled:
		return ruleNone
	}

	return ruleNone
}

// CheckTransition decides whether actor may move reservation to next. An edge missing
// from the lifecycle is reported before the actor is considered.
func CheckTransition(reservation Reservation, next Status, actor Actor) error {
	switch transition(reservation.Status, next) {
	case ruleAdmin:
		if actor.IsAdmin() {
			return nil
		}
	case ruleOwnerOrAdmin:
		if actor.IsAdmin() || actor.UserID == reservation.UserID {
			return nil
		}
	case ruleNone:
		return failure.UnprocessableEntity(fmt.Sprintf(messageInvalidTransition, reservation.Status, next)) // nolint:wrapcheck
	}

	return failure.UnauthorizedError
}
