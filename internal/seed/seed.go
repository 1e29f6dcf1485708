package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"ruang/infras/postgres"
	reservationModel "ruang/internal/domains/reservation/model"
	reservationRepo "ruang/internal/domains/reservation/repository"
	roomModel "ruang/internal/domains/room/model"
	roomRepo "ruang/internal/domains/room/repository"
	userModel "ruang/internal/domains/user/model"
	userDto "ruang/internal/domains/user/model/dto"
	userRepo "ruang/internal/domains/user/repository"
	"ruang/shared/constant"
	gDto "ruang/shared/dto"
	"ruang/shared/logger"
	sharedModel "ruang/shared/model"
	"ruang/shared/password"
	"ruang/shared/timezone"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

const clockLayout = "15:04"

//go:embed fixtures.yaml
var defaultFixtures []byte

var (
	ErrUnknownUser    = errors.New("unknown user")
	ErrUnknownRoom    = errors.New("unknown room")
	ErrInvalidWindow  = errors.New("reservation must end after it starts")
	ErrFixtureOverlap = errors.New("fixture reservations overlap")
)

type User struct {
	Email    string  `yaml:"email"`
	Password string  `yaml:"password"`
	Name     string  `yaml:"name"`
	NIM      *string `yaml:"nim"`
	Role     string  `yaml:"role"`
}

type Room struct {
	Name        string   `yaml:"name"`
	Capacity    int      `yaml:"capacity"`
	Facilities  []string `yaml:"facilities"`
	Description string   `yaml:"description"`
	Location    string   `yaml:"location"`
	Status      string   `yaml:"status"`
}

type Reservation struct {
	User    string `yaml:"user"`
	Room    string `yaml:"room"`
	Day     int    `yaml:"day"`
	Start   string `yaml:"start"`
	End     string `yaml:"end"`
	Purpose string `yaml:"purpose"`
	Notes   string `yaml:"notes"`
	Status  string `yaml:"status"`
}

type Fixtures struct {
	Users        []User        `yaml:"users"`
	Rooms        []Room        `yaml:"rooms"`
	Reservations []Reservation `yaml:"reservations"`
}

// Dataset is the fixture set resolved into table rows.
type Dataset struct {
	Users        []userModel.User
	Rooms        []roomModel.Room
	Reservations []reservationModel.Reservation
}

func DefaultFixtures() []byte {
	return defaultFixtures
}

func Parse(data []byte) (Fixtures, error) {
	var fixtures Fixtures

	if err := yaml.Unmarshal(data, &fixtures); err != nil {
		return Fixtures{}, fmt.Errorf("failed to parse fixtures: %w", err)
	}

	return fixtures, nil
}

// Build resolves references by email and room name and anchors relative days on today.
func Build(fixtures Fixtures, today time.Time) (Dataset, error) {
	now := timezone.Now()
	meta := sharedModel.NewMetadata(now, constant.ContextSystem)
	data := Dataset{}

	userIDs := map[string]string{}

	for _, fixture := range fixtures.Users {
		hash, err := password.Hash(fixture.Password)
		if err != nil {
			return Dataset{}, fmt.Errorf("user %s: %w", fixture.Email, err)
		}

		user := userModel.User{
			ID:       uuid.NewString(),
			Email:    userDto.NormalizeEmail(fixture.Email),
			Password: hash,
			Name:     fixture.Name,
			NIM:      fixture.NIM,
			Role:     fixture.Role,
			Active:   true,
			Metadata: meta,
		}

		userIDs[user.Email] = user.ID
		data.Users = append(data.Users, user)
	}

	roomIDs := map[string]string{}

	for _, fixture := range fixtures.Rooms {
		room := roomModel.Room{
			ID:          uuid.NewString(),
			Name:        fixture.Name,
			Capacity:    fixture.Capacity,
			Facilities:  pq.StringArray(fixture.Facilities),
			Description: fixture.Description,
			Location:    fixture.Location,
			Status:      roomModel.Status(strings.ToUpper(fixture.Status)),
			Metadata:    meta,
		}

		if room.Status == constant.Empty {
			room.Status = roomModel.StatusAvailable
		}

		roomIDs[room.Name] = room.ID
		data.Rooms = append(data.Rooms, room)
	}

	day := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, timezone.GetLocation())

	for _, fixture := range fixtures.Reservations {
		reservation, err := buildReservation(fixture, day, userIDs, roomIDs)
		if err != nil {
			return Dataset{}, err
		}

		blocking := reservationModel.AdmissionBlocking()
		if reservation.Status.In(blocking) {
			sameRoom := []reservationModel.Reservation{}

			for _, other := range data.Reservations {
				if other.RoomID == reservation.RoomID {
					sameRoom = append(sameRoom, other)
				}
			}

			if conflict, found := reservationModel.FindConflict(sameRoom, reservation.Interval(), blocking); found {
				return Dataset{}, fmt.Errorf("%w: %q and %q in %s", ErrFixtureOverlap, conflict.Purpose, reservation.Purpose, fixture.Room)
			}
		}

		reservation.Metadata = meta
		data.Reservations = append(data.Reservations, reservation)
	}

	return data, nil
}

func buildReservation(fixture Reservation, day time.Time, userIDs, roomIDs map[string]string) (reservationModel.Reservation, error) {
	userID, ok := userIDs[userDto.NormalizeEmail(fixture.User)]
	if !ok {
		return reservationModel.Reservation{}, fmt.Errorf("%w: %s", ErrUnknownUser, fixture.User)
	}

	roomID, ok := roomIDs[fixture.Room]
	if !ok {
		return reservationModel.Reservation{}, fmt.Errorf("%w: %s", ErrUnknownRoom, fixture.Room)
	}

	status, err := reservationModel.ParseStatus(fixture.Status)
	if err != nil {
		return reservationModel.Reservation{}, fmt.Errorf("reservation %q: %w", fixture.Purpose, err)
	}

	date := day.AddDate(0, 0, fixture.Day)

	start, err := clock(date, fixture.Start)
	if err != nil {
		return reservationModel.Reservation{}, err
	}

	end, err := clock(date, fixture.End)
	if err != nil {
		return reservationModel.Reservation{}, err
	}

	reservation := reservationModel.Reservation{
		ID:        uuid.NewString(),
		UserID:    userID,
		RoomID:    roomID,
		StartTime: start,
		EndTime:   end,
		Status:    status,
		Purpose:   fixture.Purpose,
		Notes:     fixture.Notes,
	}

	if !reservation.Interval().Valid() {
		return reservationModel.Reservation{}, fmt.Errorf("%w: %q", ErrInvalidWindow, fixture.Purpose)
	}

	return reservation, nil
}

func clock(date time.Time, value string) (time.Time, error) {
	parsed, err := time.Parse(clockLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid clock time %q: %w", value, err)
	}

	return date.Add(time.Duration(parsed.Hour())*time.Hour + time.Duration(parsed.Minute())*time.Minute), nil
}

type Seeder struct {
	users        userRepo.User
	rooms        roomRepo.Room
	reservations reservationRepo.Reservation
	tx           postgres.Transactor
}

func New(users userRepo.User, rooms roomRepo.Room, reservations reservationRepo.Reservation, tx postgres.Transactor) *Seeder {
	return &Seeder{
		users:        users,
		rooms:        rooms,
		reservations: reservations,
		tx:           tx,
	}
}

func everyRow(table, field string) gDto.FilterGroup {
	return gDto.FilterGroup{
		Filters: []any{
			gDto.Filter{Field: field, Operator: gDto.FilterIsNotNull, Table: table},
		},
	}
}

// Run replaces every user, room and reservation with data in one transaction.
func (s *Seeder) Run(ctx context.Context, data Dataset) error {
	err := s.tx.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		if err := s.reservations.DeleteTx(ctx, tx, everyRow(reservationModel.TableName, reservationModel.FieldID)); err != nil {
			return fmt.Errorf("failed to clear reservations: %w", err)
		}

		if err := s.rooms.DeleteTx(ctx, tx, everyRow(roomModel.TableName, roomModel.FieldID)); err != nil {
			return fmt.Errorf("failed to clear rooms: %w", err)
		}

		if err := s.users.DeleteTx(ctx, tx, everyRow(userModel.TableName, userModel.FieldID)); err != nil {
			return fmt.Errorf("failed to clear users: %w", err)
		}

		if err := insertBulk(ctx, tx, data.Users, s.users.InsertBulkTx); err != nil {
			return fmt.Errorf("failed to insert users: %w", err)
		}

		if err := insertBulk(ctx, tx, data.Rooms, s.rooms.InsertBulkTx); err != nil {
			return fmt.Errorf("failed to insert rooms: %w", err)
		}

		if err := insertBulk(ctx, tx, data.Reservations, s.reservations.InsertBulkTx); err != nil {
			return fmt.Errorf("failed to insert reservations: %w", err)
		}

		return nil
	})
	if err != nil {
		logger.ErrorWithStack(err)

		return fmt.Errorf("seeding failed: %w", err)
	}

	log.Info().
		Int("users", len(data.Users)).
		Int("rooms", len(data.Rooms)).
		Int("reservations", len(data.Reservations)).
		Msg("Database seeded")

	return nil
}

func insertBulk[T any](ctx context.Context, tx *sqlx.Tx, rows []T, insert func(context.Context, *sqlx.Tx, []T) error) error {
	if len(rows) == 0 {
		return nil
	}

	return insert(ctx, tx, rows)
}
