package repository

//go:generate go run go.uber.org/mock/mockgen -source=./repository.go -destination=../mocks/repository_mock.go -package=mocks

import (
	"context"
	"ruang/infras/otel"
	"ruang/infras/postgres"
	"ruang/internal/domains/reservation/model"
	gDto "ruang/shared/dto"
	gRepo "ruang/shared/repository"

	"github.com/jmoiron/sqlx"
)

type Reservation interface {
	InsertTx(ctx context.Context, sqltx *sqlx.Tx, model model.Reservation) error
	InsertBulkTx(ctx context.Context, sqltx *sqlx.Tx, models []model.Reservation) error
	Get(ctx context.Context, filter gDto.FilterGroup, columns ...string) (model.Reservation, error)
	GetAll(ctx context.Context, params gDto.QueryParams, filter gDto.FilterGroup, columns ...string) ([]model.Reservation, error)
	Count(ctx context.Context, filter gDto.FilterGroup) (int, error)
	CountGroupBy(ctx context.Context, column string, filter gDto.FilterGroup) (map[string]int, error)
	Update(ctx context.Context, req map[string]any, filter gDto.FilterGroup) error
	UpdateTx(ctx context.Context, sqltx *sqlx.Tx, req map[string]any, filter gDto.FilterGroup) error
	// LockTx loads the reservation and holds its row lock until sqltx ends. A missing row yields a zero value.
	LockTx(ctx context.Context, sqltx *sqlx.Tx, id string) (model.Reservation, error)
	// FindTx reads the reservation with its room and user inside sqltx, without locking.
	FindTx(ctx context.Context, sqltx *sqlx.Tx, id string) (model.Reservation, error)
	Delete(ctx context.Context, filter gDto.FilterGroup) error
	DeleteTx(ctx context.Context, sqltx *sqlx.Tx, filter gDto.FilterGroup) error
	// ListOverlapping returns reservations in statuses overlapping window, across all rooms.
	ListOverlapping(ctx context.Context, window model.Interval, statuses []model.Status) ([]model.Reservation, error)
	// ListOverlappingTx is ListOverlapping scoped to one room and read inside sqltx.
	ListOverlappingTx(ctx context.Context, sqltx *sqlx.Tx, roomID string, window model.Interval, statuses []model.Status) ([]model.Reservation, error)
}

type repositoryImpl struct {
	gRepo.Repository[model.Reservation]
}

func New(db *postgres.Connection, otel otel.Otel) Reservation {
	return &repositoryImpl{
		Repository: gRepo.NewRepository[model.Reservation](model.EntityName, model.TableName, model.FieldID, db, otel),
	}
}

// OverlapFilter selects rows in statuses whose [start_time, end_time) intersects window.
func OverlapFilter(window model.Interval, statuses []model.Status) gDto.FilterGroup {
	return gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
		Filters: []any{
			gDto.Filter{Field: model.FieldStatus, Value: statuses, Operator: gDto.FilterOperatorIn, Table: model.TableName},
			gDto.Filter{ArgName: "window_end", Field: model.FieldStartTime, Value: window.End, Operator: gDto.FilterOperatorLess, Table: model.TableName},
			gDto.Filter{ArgName: "window_start", Field: model.FieldEndTime, Value: window.Start, Operator: gDto.FilterOperatorGreater, Table: model.TableName},
		},
	}
}

func byID(id string) gDto.FilterGroup {
	return gDto.FilterGroup{
		Filters: []any{
			gDto.Filter{Field: model.FieldID, Value: id, Operator: gDto.FilterOperatorEq, Table: model.TableName},
		},
	}
}

func (repo *repositoryImpl) LockTx(ctx context.Context, sqltx *sqlx.Tx, id string) (model.Reservation, error) {
	return repo.GetTx(ctx, sqltx, byID(id), true) //nolint:wrapcheck
}

func (repo *repositoryImpl) FindTx(ctx context.Context, sqltx *sqlx.Tx, id string) (model.Reservation, error) {
	return repo.GetTx(ctx, sqltx, byID(id), false) //nolint:wrapcheck
}

func (repo *repositoryImpl) ListOverlapping(ctx context.Context, window model.Interval, statuses []model.Status) ([]model.Reservation, error) {
	params := gDto.QueryParams{SortBy: model.TableName + "." + model.FieldStartTime, SortDir: gDto.SortDirAsc}

	return repo.GetAll(ctx, params, OverlapFilter(window, statuses)) //nolint:wrapcheck
}

func (repo *repositoryImpl) ListOverlappingTx(ctx context.Context, sqltx *sqlx.Tx, roomID string, window model.Interval, statuses []model.Status) ([]model.Reservation, error) {
	filter := OverlapFilter(window, statuses)
	filter.Filters = append(filter.Filters, gDto.Filter{Field: model.FieldRoomID, Value: roomID, Operator: gDto.FilterOperatorEq, Table: model.TableName})

	params := gDto.QueryParams{SortBy: model.TableName + "." + model.FieldStartTime, SortDir: gDto.SortDirAsc}

	return repo.GetAllTx(ctx, sqltx, params, filter) //nolint:wrapcheck
}
