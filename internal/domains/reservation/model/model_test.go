package model_test

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"ruang/internal/domains/reservation/model"
	"ruang/shared/constant"
	"ruang/shared/failure"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)

func at(hour int) time.Time {
	return base.Add(time.Duration(hour) * time.Hour)
}

func TestInterval_Overlaps(t *testing.T) {
	tests := []struct {
		name     string
		a        model.Interval
		b        model.Interval
		expected bool
	}{
		{name: "contained", a: model.Interval{Start: at(9), End: at(12)}, b: model.Interval{Start: at(10), End: at(11)}, expected: true},
		{name: "partial overlap at start", a: model.Interval{Start: at(9), End: at(11)}, b: model.Interval{Start: at(10), End: at(12)}, expected: true},
		{name: "identical", a: model.Interval{Start: at(9), End: at(10)}, b: model.Interval{Start: at(9), End: at(10)}, expected: true},
		{name: "touching end to start", a: model.Interval{Start: at(9), End: at(10)}, b: model.Interval{Start: at(10), End: at(11)}, expected: false},
		{name: "touching start to end", a: model.Interval{Start: at(10), End: at(11)}, b: model.Interval{Start: at(9), End: at(10)}, expected: false},
		{name: "disjoint", a: model.Interval{Start: at(8), End: at(9)}, b: model.Interval{Start: at(13), End: at(14)}, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.a.Overlaps(tt.b))
			assert.Equal(t, tt.expected, tt.b.Overlaps(tt.a), "overlap must be symmetric")
		})
	}
}

func TestInterval_Valid(t *testing.T) {
	assert.True(t, model.Interval{Start: at(9), End: at(10)}.Valid())
	assert.False(t, model.Interval{Start: at(10), End: at(10)}.Valid())
	assert.False(t, model.Interval{Start: at(11), End: at(10)}.Valid())
}

func TestFindConflict(t *testing.T) {
	existing := []model.Reservation{
		{ID: "rejected", StartTime: at(9), EndTime: at(11), Status: model.StatusRejected},
		{ID: "pending", StartTime: at(10), EndTime: at(12), Status: model.StatusPending},
		{ID: "approved", StartTime: at(13), EndTime: at(15), Status: model.StatusApproved},
		{ID: "cancelled", StartTime: at(16), EndTime: at(18), Status: model.StatusCancelled},
	}

	tests := []struct {
		name      string
		candidate model.Interval
		blocking  []model.Status
		found     bool
		id        string
	}{
		{name: "rejected overlap ignored", candidate: model.Interval{Start: at(9), End: at(10)}, blocking: model.AdmissionBlocking(), found: false},
		{name: "pending overlap", candidate: model.Interval{Start: at(11), End: at(12)}, blocking: model.AdmissionBlocking(), found: true, id: "pending"},
		{name: "approved overlap", candidate: model.Interval{Start: at(14), End: at(16)}, blocking: model.AdmissionBlocking(), found: true, id: "approved"},
		{name: "pending ignored for availability", candidate: model.Interval{Start: at(11), End: at(12)}, blocking: model.AvailabilityBlocking(), found: false},
		{name: "cancelled never blocks", candidate: model.Interval{Start: at(16), End: at(17)}, blocking: model.AdmissionBlocking(), found: false},
		{name: "touching approved", candidate: model.Interval{Start: at(15), End: at(16)}, blocking: model.AvailabilityBlocking(), found: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conflict, found := model.FindConflict(existing, tt.candidate, tt.blocking)

			assert.Equal(t, tt.found, found)
			assert.Equal(t, tt.id, conflict.ID)
		})
	}
}

func TestParseStatus(t *testing.T) {
	status, err := model.ParseStatus(" approved ")
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, status)

	_, err = model.ParseStatus("ARCHIVED")
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, failure.GetCode(err))
}

func TestCheckTransition(t *testing.T) {
	owner := model.Actor{UserID: "owner", Role: constant.RoleStudent}
	stranger := model.Actor{UserID: "stranger", Role: constant.RoleStudent}
	admin := model.Actor{UserID: "admin", Role: constant.RoleAdmin}

	tests := []struct {
		name     string
		from     model.Status
		to       model.Status
		actor    model.Actor
		expected int
	}{
		{name: "admin approves pending", from: model.StatusPending, to: model.StatusApproved, actor: admin},
		{name: "admin rejects pending", from: model.StatusPending, to: model.StatusRejected, actor: admin},
		{name: "owner cannot approve", from: model.StatusPending, to: model.StatusApproved, actor: owner, expected: http.StatusForbidden},
		{name: "owner cannot reject", from: model.StatusPending, to: model.StatusRejected, actor: owner, expected: http.StatusForbidden},
		{name: "owner cancels pending", from: model.StatusPending, to: model.StatusCancelled, actor: owner},
		{name: "owner cancels approved", from: model.StatusApproved, to: model.StatusCancelled, actor: owner},
		{name: "admin cancels approved", from: model.StatusApproved, to: model.StatusCancelled, actor: admin},
		{name: "stranger cannot cancel", from: model.StatusPending, to: model.StatusCancelled, actor: stranger, expected: http.StatusForbidden},
		{name: "approved cannot be rejected", from: model.StatusApproved, to: model.StatusRejected, actor: admin, expected: http.StatusUnprocessableEntity},
		{name: "approved cannot go back to pending", from: model.StatusApproved, to: model.StatusPending, actor: admin, expected: http.StatusUnprocessableEntity},
		{name: "pending to pending", from: model.StatusPending, to: model.StatusPending, actor: admin, expected: http.StatusUnprocessableEntity},
		{name: "rejected is terminal", from: model.StatusRejected, to: model.StatusApproved, actor: admin, expected: http.StatusUnprocessableEntity},
		{name: "cancelled is terminal", from: model.StatusCancelled, to: model.StatusPending, actor: owner, expected: http.StatusUnprocessableEntity},
		{name: "invalid edge reported before authorization", from: model.StatusRejected, to: model.StatusCancelled, actor: stranger, expected: http.StatusUnprocessableEntity},
		{name: "unknown current status", from: model.Status("ARCHIVED"), to: model.StatusCancelled, actor: admin, expected: http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reservation := model.Reservation{ID: "r1", UserID: owner.UserID, Status: tt.from}

			err := model.CheckTransition(reservation, tt.to, tt.actor)
			if tt.expected == 0 {
				require.NoError(t, err)

				return
			}

			require.Error(t, err)
			assert.Equal(t, tt.expected, failure.GetCode(err))

			if tt.expected == http.StatusForbidden {
				assert.True(t, errors.Is(err, failure.UnauthorizedError))
				assert.Equal(t, "unauthorized", err.Error())
			}
		})
	}
}

func TestStatus_Terminal(t *testing.T) {
	assert.True(t, model.StatusRejected.Terminal())
	assert.True(t, model.StatusCancelled.Terminal())
	assert.False(t, model.StatusPending.Terminal())
	assert.False(t, model.StatusApproved.Terminal())
}
