package repository_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ruang/infras/otel/mocks"
	"ruang/infras/postgres"
	"ruang/internal/domains/reservation/model"
	"ruang/internal/domains/reservation/repository"
	"ruang/shared/constant"
)

var window = model.Interval{
	Start: time.Date(2024, time.January, 10, 9, 0, 0, 0, time.UTC),
	End:   time.Date(2024, time.January, 10, 11, 0, 0, 0, time.UTC),
}

func newRepository(t *testing.T) (*postgres.Connection, repository.Reservation, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })

	conn := postgres.NewFromDB(sqlx.NewDb(db, "postgres"))

	return conn, repository.New(conn, mocks.NewOtel()), mock
}

func TestOverlapFilter(t *testing.T) {
	filter := repository.OverlapFilter(window, model.AdmissionBlocking())

	where, args := filter.GetWhereClause()

	assert.Equal(t,
		"(reservations.status IN (:status_0, :status_1)  AND reservations.start_time < :window_end AND reservations.end_time > :window_start)",
		where,
	)
	assert.Equal(t, map[string]any{
		"status_0":     model.StatusPending,
		"status_1":     model.StatusApproved,
		"window_end":   window.End,
		"window_start": window.Start,
	}, args)
}

func TestReservationRepository_ListOverlappingTx(t *testing.T) {
	conn, repo, mock := newRepository(t)

	query := `SELECT .* FROM reservations INNER JOIN rooms ON rooms\.id = reservations\.room_id INNER JOIN users ON users\.id = reservations\.user_id\s+` +
		`WHERE \(reservations\.status IN \(\$1, \$2\)\s+AND reservations\.start_time < \$3 AND reservations\.end_time > \$4 AND reservations\.room_id = \$5\)\s+` +
		`ORDER BY reservations\.start_time ASC$`

	mock.ExpectBegin()
	mock.ExpectPrepare(query).
		ExpectQuery().
		WithArgs("PENDING", "APPROVED", window.End, window.Start, "room-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "room_id", "start_time", "end_time", "status"}).
			AddRow("r1", "room-1", window.Start.Add(time.Hour), window.End.Add(time.Hour), "PENDING"))
	mock.ExpectCommit()

	err := conn.WithTransaction(context.Background(), func(tx *sqlx.Tx) error {
		found, err := repo.ListOverlappingTx(context.Background(), tx, "room-1", window, model.AdmissionBlocking())
		if err != nil {
			return err
		}

		require.Len(t, found, 1)
		assert.Equal(t, model.StatusPending, found[0].Status)

		return nil
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationRepository_ListOverlapping(t *testing.T) {
	_, repo, mock := newRepository(t)

	mock.ExpectPrepare(`WHERE \(reservations\.status IN \(\$1\)\s+AND reservations\.start_time < \$2 AND reservations\.end_time > \$3\)\s+ORDER BY`).
		ExpectQuery().
		WithArgs("APPROVED", window.End, window.Start).
		WillReturnRows(sqlmock.NewRows([]string{"id", "room_id"}))

	found, err := repo.ListOverlapping(context.Background(), window, model.AvailabilityBlocking())
	require.NoError(t, err)
	assert.Empty(t, found)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationRepository_LockTx(t *testing.T) {
	conn, repo, mock := newRepository(t)

	mock.ExpectBegin()
	mock.ExpectPrepare(regexp.QuoteMeta("WHERE (reservations.id = $1)") + `\s+FOR UPDATE$`).
		ExpectQuery().
		WithArgs("r1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "status"}).AddRow("r1", "APPROVED"))
	mock.ExpectCommit()

	err := conn.WithTransaction(context.Background(), func(tx *sqlx.Tx) error {
		got, err := repo.LockTx(context.Background(), tx, "r1")
		if err != nil {
			return err
		}

		assert.Equal(t, model.StatusApproved, got.Status)

		return nil
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationRepository_LockTxMalformedID(t *testing.T) {
	conn, repo, mock := newRepository(t)

	mock.ExpectBegin()
	mock.ExpectPrepare(`FOR UPDATE$`).
		ExpectQuery().
		WithArgs("abc").
		WillReturnError(&pq.Error{Code: constant.PqErrorCodeInvalidText})
	mock.ExpectRollback()

	err := conn.WithTransaction(context.Background(), func(tx *sqlx.Tx) error {
		got, err := repo.LockTx(context.Background(), tx, "abc")
		require.NoError(t, err)
		assert.Empty(t, got.ID)

		return errors.New("reservation not found")
	})

	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
