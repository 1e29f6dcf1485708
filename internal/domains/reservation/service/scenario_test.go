package service_test

import (
	"context"
	"net/http"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ruang/config"
	otelMocks "ruang/infras/otel/mocks"
	"ruang/internal/domains/reservation/event"
	"ruang/internal/domains/reservation/model"
	"ruang/internal/domains/reservation/model/dto"
	"ruang/internal/domains/reservation/repository"
	"ruang/internal/domains/reservation/service"
	roomModel "ruang/internal/domains/room/model"
	roomRepo "ruang/internal/domains/room/repository"
	cacheMocks "ruang/shared/cache/mocks"
	"ruang/shared/constant"
	gDto "ruang/shared/dto"
	"ruang/shared/failure"
)

// store backs both fake repositories. Embedded interfaces panic on any method the scenario does not use.
type store struct {
	mu           sync.Mutex
	rooms        []roomModel.Room
	reservations map[string]model.Reservation
}

type fakeRooms struct {
	roomRepo.Room
	*store
}

func (f fakeRooms) LockTx(_ context.Context, _ *sqlx.Tx, id string) (roomModel.Room, error) {
	for _, room := range f.rooms {
		if room.ID == id {
			return room, nil
		}
	}

	return roomModel.Room{}, nil
}

func (f fakeRooms) ListByStatus(_ context.Context, status roomModel.Status) ([]roomModel.Room, error) {
	res := []roomModel.Room{}

	for _, room := range f.rooms {
		if room.Status == status {
			res = append(res, room)
		}
	}

	return res, nil
}

type fakeReservations struct {
	repository.Reservation
	*store
}

func idFrom(filter gDto.FilterGroup) string {
	id, _ := filter.Filters[0].(gDto.Filter).Value.(string)

	return id
}

func (f fakeReservations) overlapping(roomID string, window model.Interval, statuses []model.Status) []model.Reservation {
	f.mu.Lock()
	defer f.mu.Unlock()

	res := []model.Reservation{}

	for _, r := range f.reservations {
		if roomID != "" && r.RoomID != roomID {
			continue
		}

		// start_time < :window_end AND end_time > :window_start
		if slices.Contains(statuses, r.Status) && r.StartTime.Before(window.End) && r.EndTime.After(window.Start) {
			res = append(res, r)
		}
	}

	return res
}

func (f fakeReservations) ListOverlapping(_ context.Context, window model.Interval, statuses []model.Status) ([]model.Reservation, error) {
	return f.overlapping("", window, statuses), nil
}

func (f fakeReservations) ListOverlappingTx(_ context.Context, _ *sqlx.Tx, roomID string, window model.Interval, statuses []model.Status) ([]model.Reservation, error) {
	return f.overlapping(roomID, window, statuses), nil
}

func (f fakeReservations) InsertTx(_ context.Context, _ *sqlx.Tx, r model.Reservation) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.reservations[r.ID] = r

	return nil
}

func (f fakeReservations) LockTx(_ context.Context, _ *sqlx.Tx, id string) (model.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.reservations[id], nil
}

func (f fakeReservations) FindTx(ctx context.Context, tx *sqlx.Tx, id string) (model.Reservation, error) {
	return f.LockTx(ctx, tx, id)
}

func (f fakeReservations) UpdateTx(_ context.Context, _ *sqlx.Tx, fields map[string]any, filter gDto.FilterGroup) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	r := f.reservations[idFrom(filter)]
	r.Status, _ = fields[model.FieldStatus].(model.Status)
	f.reservations[r.ID] = r

	return nil
}

// serialTx gives every transaction exclusive access, like the room row lock does.
type serialTx struct {
	mu sync.Mutex
}

func (s *serialTx) WithTransaction(_ context.Context, fn func(tx *sqlx.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return fn(nil)
}

type silentPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *silentPublisher) Requested(_ context.Context, _ model.Reservation) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, event.TypeRequested)
}

func (p *silentPublisher) StatusChanged(_ context.Context, _ model.Reservation, _ model.Status, _ string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, event.TypeStatusChanged)
}

type scenario struct {
	svc       service.Reservation
	store     *store
	publisher *silentPublisher
}

const (
	labA = "0b8e7b35-2f4e-4a8b-9a55-2d2b8f0a0001"
	labB = "0b8e7b35-2f4e-4a8b-9a55-2d2b8f0a0002"
	labM = "0b8e7b35-2f4e-4a8b-9a55-2d2b8f0a0003"
)

func newScenario() scenario {
	st := &store{
		rooms: []roomModel.Room{
			{ID: labA, Name: "Lab A", Status: roomModel.StatusAvailable},
			{ID: labB, Name: "Lab B", Status: roomModel.StatusAvailable},
			{ID: labM, Name: "Lab Multimedia", Status: roomModel.StatusMaintenance},
		},
		reservations: map[string]model.Reservation{},
	}
	publisher := &silentPublisher{}

	svc := service.New(
		fakeReservations{store: st},
		fakeRooms{store: st},
		&serialTx{},
		publisher,
		&config.Config{},
		cacheMocks.NewNopCache(),
		otelMocks.NewOtel(),
	)

	return scenario{svc: svc, store: st, publisher: publisher}
}

func at(h, m int) time.Time {
	return time.Date(2024, time.January, 10, h, m, 0, 0, time.UTC)
}

func book(room string, start, end time.Time) dto.CreateReservationRequest {
	return dto.CreateReservationRequest{RoomID: room, StartTime: start, EndTime: end, Purpose: "Workshop"}
}

func TestScheduler_EndToEnd(t *testing.T) {
	ctx := context.Background()
	s := newScenario()

	u1 := model.Actor{UserID: "u1", Role: constant.RoleStudent}
	u2 := model.Actor{UserID: "u2", Role: constant.RoleStudent}
	adm := model.Actor{UserID: "admin", Role: constant.RoleAdmin}

	first, err := s.svc.RequestReservation(ctx, u1, book(labA, at(9, 0), at(11, 0)))
	require.NoError(t, err)
	assert.Equal(t, string(model.StatusPending), first.Status)

	_, err = s.svc.RequestReservation(ctx, u2, book(labA, at(10, 0), at(12, 0)))
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, failure.GetCode(err))
	assert.Equal(t, service.MessageConflict, err.Error())

	approved, err := s.svc.SetStatus(ctx, first.ID, model.StatusApproved, adm)
	require.NoError(t, err)
	assert.Equal(t, string(model.StatusApproved), approved.Status)

	second, err := s.svc.RequestReservation(ctx, u2, book(labA, at(11, 0), at(12, 0)))
	require.NoError(t, err)
	assert.Equal(t, string(model.StatusPending), second.Status)

	assert.Len(t, s.store.reservations, 2)
	assert.Equal(t, []string{event.TypeRequested, event.TypeStatusChanged, event.TypeRequested}, s.publisher.events)
}

func TestScheduler_AvailabilityAsymmetry(t *testing.T) {
	ctx := context.Background()
	s := newScenario()

	u1 := model.Actor{UserID: "u1", Role: constant.RoleStudent}
	u2 := model.Actor{UserID: "u2", Role: constant.RoleStudent}
	adm := model.Actor{UserID: "admin", Role: constant.RoleAdmin}

	onA, err := s.svc.RequestReservation(ctx, u1, book(labA, at(9, 0), at(11, 0)))
	require.NoError(t, err)

	_, err = s.svc.SetStatus(ctx, onA.ID, model.StatusApproved, adm)
	require.NoError(t, err)

	_, err = s.svc.RequestReservation(ctx, u2, book(labB, at(9, 0), at(11, 0)))
	require.NoError(t, err)

	rooms, err := s.svc.ListAvailableRooms(ctx, dto.AvailabilityRequest{StartTime: at(9, 30), EndTime: at(10, 30)})
	require.NoError(t, err)

	names := []string{}
	for _, room := range rooms {
		names = append(names, room.Name)
	}

	assert.Equal(t, []string{"Lab B"}, names, "approved overlap hides Lab A, pending overlap keeps Lab B, maintenance hides Lab Multimedia")

	// Lab B still refuses a new request for the slot it shows as available.
	_, err = s.svc.RequestReservation(ctx, u1, book(labB, at(9, 30), at(10, 30)))
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, failure.GetCode(err))
}

func TestScheduler_ReleasedSlotsDoNotBlock(t *testing.T) {
	for _, release := range []model.Status{model.StatusCancelled, model.StatusRejected} {
		t.Run(string(release), func(t *testing.T) {
			ctx := context.Background()
			s := newScenario()

			u1 := model.Actor{UserID: "u1", Role: constant.RoleStudent}
			adm := model.Actor{UserID: "admin", Role: constant.RoleAdmin}

			first, err := s.svc.RequestReservation(ctx, u1, book(labA, at(9, 0), at(11, 0)))
			require.NoError(t, err)

			_, err = s.svc.SetStatus(ctx, first.ID, release, adm)
			require.NoError(t, err)

			_, err = s.svc.RequestReservation(ctx, u1, book(labA, at(9, 0), at(11, 0)))
			require.NoError(t, err)

			for _, next := range model.Statuses() {
				_, err = s.svc.SetStatus(ctx, first.ID, next, adm)
				require.Error(t, err)
				assert.Equal(t, http.StatusUnprocessableEntity, failure.GetCode(err), "terminal %s must refuse %s", release, next)
			}
		})
	}
}

func TestScheduler_CancellationRoleGating(t *testing.T) {
	ctx := context.Background()
	s := newScenario()

	u1 := model.Actor{UserID: "u1", Role: constant.RoleStudent}
	u2 := model.Actor{UserID: "u2", Role: constant.RoleStudent}

	reservation, err := s.svc.RequestReservation(ctx, u1, book(labA, at(9, 0), at(11, 0)))
	require.NoError(t, err)

	_, err = s.svc.SetStatus(ctx, reservation.ID, model.StatusCancelled, u2)
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, failure.GetCode(err))
	assert.Equal(t, "unauthorized", err.Error())
	assert.Equal(t, model.StatusPending, s.store.reservations[reservation.ID].Status)

	cancelled, err := s.svc.SetStatus(ctx, reservation.ID, model.StatusCancelled, u1)
	require.NoError(t, err)
	assert.Equal(t, string(model.StatusCancelled), cancelled.Status)
}

func TestScheduler_ConcurrentRequestsAdmitOne(t *testing.T) {
	ctx := context.Background()
	s := newScenario()

	const callers = 16

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		admitted int
		refused  int
	)

	for i := range callers {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			actor := model.Actor{UserID: string(rune('a' + i)), Role: constant.RoleStudent}
			start := at(9, i)

			_, err := s.svc.RequestReservation(ctx, actor, book(labA, start, start.Add(time.Hour)))

			mu.Lock()
			defer mu.Unlock()

			if err == nil {
				admitted++
			} else if failure.GetCode(err) == http.StatusConflict {
				refused++
			}
		}(i)
	}

	wg.Wait()

	assert.Equal(t, 1, admitted)
	assert.Equal(t, callers-1, refused)
}
