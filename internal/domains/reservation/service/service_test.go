package service_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"ruang/config"
	otelMocks "ruang/infras/otel/mocks"
	pgMocks "ruang/infras/postgres/mocks"
	"ruang/internal/domains/reservation/mocks"
	"ruang/internal/domains/reservation/model"
	"ruang/internal/domains/reservation/model/dto"
	"ruang/internal/domains/reservation/service"
	roomMocks "ruang/internal/domains/room/mocks"
	roomModel "ruang/internal/domains/room/model"
	"ruang/shared/cache"
	cacheMocks "ruang/shared/cache/mocks"
	"ruang/shared/constant"
	gDto "ruang/shared/dto"
	"ruang/shared/failure"
)

const (
	roomID  = "6f1c1a4e-8a57-4d0e-9d7e-3f0b5a0b8a11"
	ownerID = "owner-id"
	adminID = "admin-id"
)

var (
	owner    = model.Actor{UserID: ownerID, Role: constant.RoleStudent}
	stranger = model.Actor{UserID: "stranger-id", Role: constant.RoleStudent}
	admin    = model.Actor{UserID: adminID, Role: constant.RoleAdmin}
	day      = time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC)
)

func hour(h int) time.Time {
	return day.Add(time.Duration(h) * time.Hour)
}

type fixture struct {
	repo      *mocks.MockReservation
	roomRepo  *roomMocks.MockRoom
	tx        *pgMocks.MockTransactor
	publisher *mocks.MockPublisher
	svc       service.Reservation
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	ctrl := gomock.NewController(t)

	f := fixture{
		repo:      mocks.NewMockReservation(ctrl),
		roomRepo:  roomMocks.NewMockRoom(ctrl),
		tx:        pgMocks.NewMockTransactor(ctrl),
		publisher: mocks.NewMockPublisher(ctrl),
	}

	f.svc = service.New(f.repo, f.roomRepo, f.tx, f.publisher, &config.Config{}, cacheMocks.NewNopCache(), otelMocks.NewOtel())

	return f
}

// inline runs the transaction body without a database.
func (f fixture) inline() {
	f.tx.EXPECT().
		WithTransaction(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, fn func(*sqlx.Tx) error) error {
			return fn(nil)
		})
}

// readBack returns the inserted row joined with its room and user.
func (f fixture) readBack() {
	f.repo.EXPECT().
		FindTx(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ *sqlx.Tx, id string) (model.Reservation, error) {
			return model.Reservation{
				ID:        id,
				UserID:    ownerID,
				RoomID:    roomID,
				Status:    model.StatusPending,
				RoomName:  "Lab A",
				UserName:  "Budi Santoso",
				UserEmail: "budi@kampus.ac.id",
			}, nil
		})
}

func request(start, end time.Time) dto.CreateReservationRequest {
	return dto.CreateReservationRequest{
		RoomID:    roomID,
		StartTime: start,
		EndTime:   end,
		Purpose:   "Workshop",
	}
}

func TestReservationService_RequestReservation(t *testing.T) {
	room := roomModel.Room{ID: roomID, Name: "Lab A", Location: "Gedung F", Status: roomModel.StatusAvailable}

	tests := []struct {
		name      string
		req       dto.CreateReservationRequest
		setupMock func(f fixture)
		wantCode  int
		wantMsg   string
	}{
		{
			name: "admitted as pending",
			req:  request(hour(9), hour(11)),
			setupMock: func(f fixture) {
				f.inline()
				f.roomRepo.EXPECT().LockTx(gomock.Any(), gomock.Any(), roomID).Return(room, nil)
				f.repo.EXPECT().
					ListOverlappingTx(gomock.Any(), gomock.Any(), roomID, model.Interval{Start: hour(9), End: hour(11)}, model.AdmissionBlocking()).
					Return([]model.Reservation{}, nil)
				f.repo.EXPECT().
					InsertTx(gomock.Any(), gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, _ *sqlx.Tx, r model.Reservation) error {
						assert.Equal(t, model.StatusPending, r.Status)
						assert.Equal(t, ownerID, r.UserID)
						assert.Equal(t, ownerID, r.CreatedBy)

						return nil
					})
				f.readBack()
				f.publisher.EXPECT().Requested(gomock.Any(), gomock.Any())
			},
		},
		{
			name: "pending overlap conflicts",
			req:  request(hour(10), hour(12)),
			setupMock: func(f fixture) {
				f.inline()
				f.roomRepo.EXPECT().LockTx(gomock.Any(), gomock.Any(), roomID).Return(room, nil)
				f.repo.EXPECT().
					ListOverlappingTx(gomock.Any(), gomock.Any(), roomID, gomock.Any(), gomock.Any()).
					Return([]model.Reservation{{ID: "r1", RoomID: roomID, StartTime: hour(9), EndTime: hour(11), Status: model.StatusPending}}, nil)
			},
			wantCode: http.StatusConflict,
			wantMsg:  service.MessageConflict,
		},
		{
			name: "fully contained approved overlap conflicts",
			req:  request(hour(8), hour(13)),
			setupMock: func(f fixture) {
				f.inline()
				f.roomRepo.EXPECT().LockTx(gomock.Any(), gomock.Any(), roomID).Return(room, nil)
				f.repo.EXPECT().
					ListOverlappingTx(gomock.Any(), gomock.Any(), roomID, gomock.Any(), gomock.Any()).
					Return([]model.Reservation{{ID: "r1", RoomID: roomID, StartTime: hour(9), EndTime: hour(11), Status: model.StatusApproved}}, nil)
			},
			wantCode: http.StatusConflict,
			wantMsg:  service.MessageConflict,
		},
		{
			name: "adjacent approved reservation does not conflict",
			req:  request(hour(11), hour(13)),
			setupMock: func(f fixture) {
				f.inline()
				f.roomRepo.EXPECT().LockTx(gomock.Any(), gomock.Any(), roomID).Return(room, nil)
				f.repo.EXPECT().
					ListOverlappingTx(gomock.Any(), gomock.Any(), roomID, gomock.Any(), gomock.Any()).
					Return([]model.Reservation{{ID: "r1", RoomID: roomID, StartTime: hour(9), EndTime: hour(11), Status: model.StatusApproved}}, nil)
				f.repo.EXPECT().InsertTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
				f.readBack()
				f.publisher.EXPECT().Requested(gomock.Any(), gomock.Any())
			},
		},
		{
			name: "exclusion constraint maps to conflict",
			req:  request(hour(9), hour(11)),
			setupMock: func(f fixture) {
				f.inline()
				f.roomRepo.EXPECT().LockTx(gomock.Any(), gomock.Any(), roomID).Return(room, nil)
				f.repo.EXPECT().
					ListOverlappingTx(gomock.Any(), gomock.Any(), roomID, gomock.Any(), gomock.Any()).
					Return(nil, nil)
				f.repo.EXPECT().
					InsertTx(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(errors.Join(errors.New("failed to insert data (reservation)"), &pq.Error{Code: constant.PqErrorCodeExclusion}))
			},
			wantCode: http.StatusConflict,
			wantMsg:  service.MessageConflict,
		},
		{
			name: "unknown room",
			req:  request(hour(9), hour(11)),
			setupMock: func(f fixture) {
				f.inline()
				f.roomRepo.EXPECT().LockTx(gomock.Any(), gomock.Any(), roomID).Return(roomModel.Room{}, nil)
			},
			wantCode: http.StatusNotFound,
		},
		{
			name:      "empty interval rejected",
			req:       request(hour(9), hour(9)),
			setupMock: func(fixture) {},
			wantCode:  http.StatusBadRequest,
			wantMsg:   "end_time must be after start_time",
		},
		{
			name:      "inverted interval rejected",
			req:       request(hour(11), hour(9)),
			setupMock: func(fixture) {},
			wantCode:  http.StatusBadRequest,
		},
		{
			name: "blank purpose rejected",
			req: dto.CreateReservationRequest{
				RoomID:    roomID,
				StartTime: hour(9),
				EndTime:   hour(11),
				Purpose:   "   ",
			},
			setupMock: func(fixture) {},
			wantCode:  http.StatusBadRequest,
		},
		{
			name: "persistence error propagates",
			req:  request(hour(9), hour(11)),
			setupMock: func(f fixture) {
				f.inline()
				f.roomRepo.EXPECT().LockTx(gomock.Any(), gomock.Any(), roomID).Return(room, nil)
				f.repo.EXPECT().
					ListOverlappingTx(gomock.Any(), gomock.Any(), roomID, gomock.Any(), gomock.Any()).
					Return(nil, errors.New("connection reset"))
			},
			wantCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.setupMock(f)

			res, err := f.svc.RequestReservation(context.Background(), owner, tt.req)

			if tt.wantCode == 0 {
				require.NoError(t, err)
				assert.Equal(t, string(model.StatusPending), res.Status)
				assert.Equal(t, "Lab A", res.Room.Name)
				assert.Equal(t, "Budi Santoso", res.User.Name)
				assert.Equal(t, "budi@kampus.ac.id", res.User.Email)
				assert.NotEmpty(t, res.ID)

				return
			}

			require.Error(t, err)
			assert.Equal(t, tt.wantCode, failure.GetCode(err))

			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, err.Error())
			}
		})
	}
}

func TestReservationService_SetStatus(t *testing.T) {
	pending := model.Reservation{ID: "r1", UserID: ownerID, RoomID: roomID, StartTime: hour(9), EndTime: hour(11), Status: model.StatusPending}

	tests := []struct {
		name      string
		current   model.Reservation
		next      model.Status
		actor     model.Actor
		updates   bool
		wantCode  int
		wantState model.Status
	}{
		{name: "admin approves", current: pending, next: model.StatusApproved, actor: admin, updates: true, wantState: model.StatusApproved},
		{name: "admin rejects", current: pending, next: model.StatusRejected, actor: admin, updates: true, wantState: model.StatusRejected},
		{name: "owner cancels", current: pending, next: model.StatusCancelled, actor: owner, updates: true, wantState: model.StatusCancelled},
		{name: "owner cannot approve", current: pending, next: model.StatusApproved, actor: owner, wantCode: http.StatusForbidden},
		{name: "stranger cannot cancel", current: pending, next: model.StatusCancelled, actor: stranger, wantCode: http.StatusForbidden},
		{name: "not found", current: model.Reservation{}, next: model.StatusApproved, actor: admin, wantCode: http.StatusNotFound},
		{
			name:     "cancelled is terminal",
			current:  model.Reservation{ID: "r1", UserID: ownerID, Status: model.StatusCancelled},
			next:     model.StatusApproved,
			actor:    admin,
			wantCode: http.StatusUnprocessableEntity,
		},
		{
			name:     "approved cannot be rejected",
			current:  model.Reservation{ID: "r1", UserID: ownerID, Status: model.StatusApproved},
			next:     model.StatusRejected,
			actor:    admin,
			wantCode: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.inline()
			f.repo.EXPECT().LockTx(gomock.Any(), gomock.Any(), "r1").Return(tt.current, nil)

			if tt.updates {
				f.repo.EXPECT().
					UpdateTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, _ *sqlx.Tx, fields map[string]any, _ gDto.FilterGroup) error {
						assert.Equal(t, tt.next, fields[model.FieldStatus])
						assert.Equal(t, tt.actor.UserID, fields[constant.FieldModifiedBy])
						assert.Len(t, fields, 3)

						return nil
					})
				f.publisher.EXPECT().StatusChanged(gomock.Any(), gomock.Any(), tt.current.Status, tt.actor.UserID)
			}

			res, err := f.svc.SetStatus(context.Background(), "r1", tt.next, tt.actor)

			if tt.wantCode != 0 {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, failure.GetCode(err))

				return
			}

			require.NoError(t, err)
			assert.Equal(t, string(tt.wantState), res.Status)
		})
	}
}

func TestReservationService_ListAvailableRooms(t *testing.T) {
	labA := roomModel.Room{ID: "room-a", Name: "Lab A", Status: roomModel.StatusAvailable}
	labB := roomModel.Room{ID: "room-b", Name: "Lab B", Status: roomModel.StatusAvailable}
	labC := roomModel.Room{ID: "room-c", Name: "Lab C", Status: roomModel.StatusAvailable}

	t.Run("excludes rooms with approved overlap", func(t *testing.T) {
		f := newFixture(t)
		window := model.Interval{Start: hour(9).Add(30 * time.Minute), End: hour(10).Add(30 * time.Minute)}

		f.roomRepo.EXPECT().ListByStatus(gomock.Any(), roomModel.StatusAvailable).Return([]roomModel.Room{labA, labB, labC}, nil)
		f.repo.EXPECT().
			ListOverlapping(gomock.Any(), window, model.AvailabilityBlocking()).
			Return([]model.Reservation{
				{ID: "r1", RoomID: labA.ID, StartTime: hour(9), EndTime: hour(11), Status: model.StatusApproved},
				{ID: "r2", RoomID: labC.ID, StartTime: hour(10).Add(30 * time.Minute), EndTime: hour(12), Status: model.StatusApproved},
			}, nil)

		rooms, err := f.svc.ListAvailableRooms(context.Background(), dto.AvailabilityRequest{StartTime: window.Start, EndTime: window.End})
		require.NoError(t, err)

		names := []string{}
		for _, room := range rooms {
			names = append(names, room.Name)
		}

		assert.Equal(t, []string{"Lab B", "Lab C"}, names)
	})

	t.Run("invalid window", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.ListAvailableRooms(context.Background(), dto.AvailabilityRequest{StartTime: hour(10), EndTime: hour(9)})
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, failure.GetCode(err))
	})

	t.Run("missing bounds", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.ListAvailableRooms(context.Background(), dto.AvailabilityRequest{EndTime: hour(9)})
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, failure.GetCode(err))
	})
}

func TestReservationService_Get(t *testing.T) {
	stored := model.Reservation{ID: "r1", UserID: ownerID, RoomID: roomID, Status: model.StatusPending, RoomName: "Lab A"}

	tests := []struct {
		name     string
		found    model.Reservation
		actor    model.Actor
		wantCode int
	}{
		{name: "owner reads own reservation", found: stored, actor: owner},
		{name: "admin reads any reservation", found: stored, actor: admin},
		{name: "stranger is refused", found: stored, actor: stranger, wantCode: http.StatusForbidden},
		{name: "missing reservation", found: model.Reservation{}, actor: admin, wantCode: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(tt.found, nil)

			res, err := f.svc.Get(context.Background(), "r1", tt.actor)

			if tt.wantCode != 0 {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, failure.GetCode(err))
				assert.Empty(t, res.ID)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, "Lab A", res.Room.Name)
		})
	}
}

func TestReservationService_Delete(t *testing.T) {
	t.Run("deletes existing reservation", func(t *testing.T) {
		f := newFixture(t)
		f.repo.EXPECT().Get(gomock.Any(), gomock.Any(), model.FieldID).Return(model.Reservation{ID: "r1"}, nil)
		f.repo.EXPECT().Delete(gomock.Any(), gomock.Any()).Return(nil)

		require.NoError(t, f.svc.Delete(context.Background(), "r1"))
	})

	t.Run("missing reservation", func(t *testing.T) {
		f := newFixture(t)
		f.repo.EXPECT().Get(gomock.Any(), gomock.Any(), model.FieldID).Return(model.Reservation{}, nil)

		err := f.svc.Delete(context.Background(), "r1")
		require.Error(t, err)
		assert.Equal(t, http.StatusNotFound, failure.GetCode(err))
	})
}

func TestReservationService_Stats(t *testing.T) {
	t.Run("global", func(t *testing.T) {
		f := newFixture(t)
		f.repo.EXPECT().
			CountGroupBy(gomock.Any(), model.FieldStatus, gDto.FilterGroup{}).
			Return(map[string]int{"PENDING": 2, "APPROVED": 3, "CANCELLED": 1}, nil)
		f.repo.EXPECT().
			Count(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, filter gDto.FilterGroup) (int, error) {
				where, args := filter.GetWhereClause()
				assert.Contains(t, where, "reservations.status = :status")
				assert.Contains(t, where, "reservations.start_time >= :day_start")
				assert.Contains(t, where, "reservations.start_time < :day_end")
				assert.Equal(t, "APPROVED", args["status"])

				start, _ := args["day_start"].(time.Time)
				end, _ := args["day_end"].(time.Time)
				assert.Equal(t, 24*time.Hour, end.Sub(start))
				assert.NotContains(t, where, "user_id")

				return 2, nil
			})

		res, err := f.svc.Stats(context.Background(), "")
		require.NoError(t, err)
		assert.Equal(t, dto.StatsResponse{Total: 6, Pending: 2, Approved: 3, Cancelled: 1, ApprovedToday: 2, ApprovalRate: 50}, res)
	})

	t.Run("per user", func(t *testing.T) {
		f := newFixture(t)
		f.repo.EXPECT().
			CountGroupBy(gomock.Any(), model.FieldStatus, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ string, filter gDto.FilterGroup) (map[string]int, error) {
				where, args := filter.GetWhereClause()
				assert.Contains(t, where, "reservations.user_id = :user_id")
				assert.Equal(t, ownerID, args["user_id"])

				return map[string]int{"REJECTED": 1}, nil
			})
		f.repo.EXPECT().
			Count(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, filter gDto.FilterGroup) (int, error) {
				where, args := filter.GetWhereClause()
				assert.Contains(t, where, "reservations.user_id = :user_id")
				assert.Equal(t, ownerID, args["user_id"])

				return 0, nil
			})

		res, err := f.svc.Stats(context.Background(), ownerID)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Total)
		assert.Equal(t, 1, res.Rejected)
		assert.Zero(t, res.ApprovalRate)
		assert.Zero(t, res.ApprovedToday)
	})

	t.Run("today count failure", func(t *testing.T) {
		f := newFixture(t)
		f.repo.EXPECT().CountGroupBy(gomock.Any(), model.FieldStatus, gomock.Any()).Return(map[string]int{}, nil)
		f.repo.EXPECT().Count(gomock.Any(), gomock.Any()).Return(0, errors.New("db down"))

		_, err := f.svc.Stats(context.Background(), "")
		require.Error(t, err)
	})
}

func TestStatsResponse_ApprovalRate(t *testing.T) {
	tests := []struct {
		name   string
		counts map[string]int
		want   int
	}{
		{name: "no reservations", counts: map[string]int{}, want: 0},
		{name: "all approved", counts: map[string]int{"APPROVED": 4}, want: 100},
		{name: "rounded", counts: map[string]int{"APPROVED": 2, "PENDING": 1}, want: 67},
		{name: "none approved", counts: map[string]int{"REJECTED": 2, "CANCELLED": 1}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var res dto.StatsResponse
			res.FromCounts(tt.counts)
			assert.Equal(t, tt.want, res.ApprovalRate)
		})
	}
}

func TestReservationService_ReadsFollowStatusChange(t *testing.T) {
	ctrl := gomock.NewController(t)
	f := fixture{
		repo:      mocks.NewMockReservation(ctrl),
		roomRepo:  roomMocks.NewMockRoom(ctrl),
		tx:        pgMocks.NewMockTransactor(ctrl),
		publisher: mocks.NewMockPublisher(ctrl),
	}

	cfg := &config.Config{}
	cfg.Cache.TTL = 60
	f.svc = service.New(f.repo, f.roomRepo, f.tx, f.publisher, cfg, cache.NewMemoryCache(otelMocks.NewOtel()), otelMocks.NewOtel())

	pending := model.Reservation{ID: "r1", UserID: ownerID, RoomID: roomID, StartTime: hour(9), EndTime: hour(11), Status: model.StatusPending}
	approved := pending
	approved.Status = model.StatusApproved

	gomock.InOrder(
		f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(pending, nil),
		f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(approved, nil),
	)

	first, err := f.svc.Get(context.Background(), "r1", owner)
	require.NoError(t, err)
	assert.Equal(t, "PENDING", first.Status)

	cached, err := f.svc.Get(context.Background(), "r1", owner)
	require.NoError(t, err)
	assert.Equal(t, "PENDING", cached.Status)

	f.inline()
	f.repo.EXPECT().LockTx(gomock.Any(), gomock.Any(), "r1").Return(pending, nil)
	f.repo.EXPECT().UpdateTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	f.publisher.EXPECT().StatusChanged(gomock.Any(), gomock.Any(), model.StatusPending, adminID)

	_, err = f.svc.SetStatus(context.Background(), "r1", model.StatusApproved, admin)
	require.NoError(t, err)

	after, err := f.svc.Get(context.Background(), "r1", owner)
	require.NoError(t, err)
	assert.Equal(t, "APPROVED", after.Status)
}
