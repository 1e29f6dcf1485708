package service_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"ruang/config"
	otelMocks "ruang/infras/otel/mocks"
	pgMocks "ruang/infras/postgres/mocks"
	reservationMocks "ruang/internal/domains/reservation/mocks"
	"ruang/internal/domains/user/mocks"
	"ruang/internal/domains/user/model"
	"ruang/internal/domains/user/model/dto"
	"ruang/internal/domains/user/service"
	cacheMocks "ruang/shared/cache/mocks"
	"ruang/shared/constant"
	gDto "ruang/shared/dto"
	"ruang/shared/failure"
	"ruang/shared/password"
)

type fixture struct {
	repo         *mocks.MockUser
	reservations *reservationMocks.MockReservation
	tx           *pgMocks.MockTransactor
	svc          service.User
}

func setup(t *testing.T) fixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	f := fixture{
		repo:         mocks.NewMockUser(ctrl),
		reservations: reservationMocks.NewMockReservation(ctrl),
		tx:           pgMocks.NewMockTransactor(ctrl),
	}
	f.svc = service.New(f.repo, f.reservations, f.tx, &config.Config{}, cacheMocks.NewNopCache(), otelMocks.NewOtel())

	return f
}

func (f fixture) inline() {
	f.tx.EXPECT().
		WithTransaction(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, fn func(*sqlx.Tx) error) error { return fn(nil) })
}

func TestUserService_Create(t *testing.T) {
	ctx := context.WithValue(context.Background(), constant.ContextKeyUserID, "admin-id")
	nim := "2206081234"

	tests := []struct {
		name     string
		exists   bool
		insert   error
		wantCode int
	}{
		{name: "created"},
		{name: "email taken", exists: true, wantCode: http.StatusConflict},
		{name: "unique violation on insert", insert: &pq.Error{Code: constant.PqErrorCodeUniqueViolation}, wantCode: http.StatusConflict},
		{name: "insert failure", insert: errors.New("db down"), wantCode: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)

			f.repo.EXPECT().Exist(gomock.Any(), gomock.Any()).Return(tt.exists, nil)

			if !tt.exists {
				f.repo.EXPECT().
					Insert(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, user model.User) error {
						assert.Equal(t, "budi@ui.ac.id", user.Email)
						assert.Equal(t, constant.RoleStudent, user.Role)
						assert.True(t, user.Active)
						assert.NoError(t, password.Verify("rahasia123", user.Password))

						return tt.insert
					})
			}

			res, err := f.svc.Create(ctx, dto.CreateUserRequest{
				Email:    " Budi@UI.ac.id",
				Password: "rahasia123",
				Name:     "Budi",
				NIM:      &nim,
			})

			if tt.wantCode != 0 {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, failure.GetCode(err))

				return
			}

			require.NoError(t, err)
			assert.Equal(t, "budi@ui.ac.id", res.Email)
			assert.Equal(t, &nim, res.NIM)
		})
	}
}

func TestUserService_Get(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		f := setup(t)
		f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(model.User{ID: "u1", Name: "Sari"}, nil)

		res, err := f.svc.Get(context.Background(), "u1")
		require.NoError(t, err)
		assert.Equal(t, "Sari", res.Name)
	})

	t.Run("not found", func(t *testing.T) {
		f := setup(t)
		f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(model.User{}, nil)

		_, err := f.svc.Get(context.Background(), "u1")
		assert.Equal(t, http.StatusNotFound, failure.GetCode(err))
	})
}

func TestUserService_GetAll(t *testing.T) {
	f := setup(t)
	params := gDto.QueryParams{Page: 1, Limit: 10}

	f.repo.EXPECT().Count(gomock.Any(), gomock.Any()).Return(2, nil)
	f.repo.EXPECT().GetAll(gomock.Any(), params, gomock.Any()).Return([]model.User{{ID: "a"}, {ID: "b"}}, nil)

	res, err := f.svc.GetAll(context.Background(), params, gDto.FilterGroup{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalData)
	assert.Equal(t, 1, res.TotalPage)
	assert.Len(t, res.Users, 2)
}

func TestUserService_UpdateRole(t *testing.T) {
	ctx := context.WithValue(context.Background(), constant.ContextKeyUserID, "admin-id")

	t.Run("promoted", func(t *testing.T) {
		f := setup(t)
		f.repo.EXPECT().Exist(gomock.Any(), gomock.Any()).Return(true, nil)
		f.repo.EXPECT().
			Update(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, fields map[string]any, _ gDto.FilterGroup) error {
				assert.Equal(t, constant.RoleAdmin, fields[model.FieldRole])
				assert.Equal(t, "admin-id", fields[constant.FieldModifiedBy])

				return nil
			})

		require.NoError(t, f.svc.UpdateRole(ctx, dto.UpdateRoleRequest{Role: constant.RoleAdmin}, "u1"))
	})

	t.Run("missing user", func(t *testing.T) {
		f := setup(t)
		f.repo.EXPECT().Exist(gomock.Any(), gomock.Any()).Return(false, nil)

		err := f.svc.UpdateRole(ctx, dto.UpdateRoleRequest{Role: constant.RoleAdmin}, "u1")
		assert.Equal(t, http.StatusNotFound, failure.GetCode(err))
	})
}

func TestUserService_Delete(t *testing.T) {
	ctx := context.WithValue(context.Background(), constant.ContextKeyUserID, "admin-id")

	t.Run("reservations removed with the user", func(t *testing.T) {
		f := setup(t)
		f.repo.EXPECT().Exist(gomock.Any(), gomock.Any()).Return(true, nil)
		f.inline()

		gomock.InOrder(
			f.reservations.EXPECT().
				DeleteTx(gomock.Any(), gomock.Any(), gomock.Any()).
				DoAndReturn(func(_ context.Context, _ *sqlx.Tx, filter gDto.FilterGroup) error {
					assert.Equal(t, "u1", filter.Filters[0].(gDto.Filter).Value)

					return nil
				}),
			f.repo.EXPECT().DeleteTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil),
		)

		require.NoError(t, f.svc.Delete(ctx, "u1"))
	})

	t.Run("user kept when reservation cleanup fails", func(t *testing.T) {
		f := setup(t)
		f.repo.EXPECT().Exist(gomock.Any(), gomock.Any()).Return(true, nil)
		f.inline()
		f.reservations.EXPECT().DeleteTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("db down"))

		err := f.svc.Delete(ctx, "u1")
		require.Error(t, err)
		assert.Equal(t, http.StatusInternalServerError, failure.GetCode(err))
	})

	t.Run("own account", func(t *testing.T) {
		f := setup(t)

		err := f.svc.Delete(ctx, "admin-id")
		assert.Equal(t, http.StatusBadRequest, failure.GetCode(err))
	})

	t.Run("missing user", func(t *testing.T) {
		f := setup(t)
		f.repo.EXPECT().Exist(gomock.Any(), gomock.Any()).Return(false, nil)

		err := f.svc.Delete(ctx, "u1")
		assert.Equal(t, http.StatusNotFound, failure.GetCode(err))
	})
}
