package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ruang/config"
	"ruang/infras/otel"
	"ruang/infras/postgres"
	"ruang/internal/domains/reservation/event"
	"ruang/internal/domains/reservation/model"
	"ruang/internal/domains/reservation/model/dto"
	"ruang/internal/domains/reservation/repository"
	roomModel "ruang/internal/domains/room/model"
	roomDto "ruang/internal/domains/room/model/dto"
	roomRepo "ruang/internal/domains/room/repository"
	"ruang/shared"
	"ruang/shared/cache"
	"ruang/shared/constant"
	gDto "ruang/shared/dto"
	"ruang/shared/failure"
	"ruang/shared/timezone"
	"ruang/shared/validator"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

const (
	cacheGetReservation    = "reservation:get"
	cacheGetAllReservation = "reservation:gets"
	cacheCountReservation  = "reservation:count"
	cacheStatsReservation  = "reservation:stats"

	cacheStatsAll = "all"

	MessageConflict = "This time slot conflicts with an existing reservation"
)

// Reservation is the scheduler: it admits requests, drives the status lifecycle and answers
// availability queries.
type Reservation interface {
	RequestReservation(ctx context.Context, actor model.Actor, req dto.CreateReservationRequest) (dto.ReservationResponse, error)
	SetStatus(ctx context.Context, id string, next model.Status, actor model.Actor) (dto.ReservationResponse, error)
	ListAvailableRooms(ctx context.Context, req dto.AvailabilityRequest) ([]roomDto.RoomResponse, error)
	Get(ctx context.Context, id string, actor model.Actor) (dto.ReservationResponse, error)
	GetAll(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (dto.GetReservationsResponse, error)
	Count(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (int, error)
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context, userID string) (dto.StatsResponse, error)
}

type serviceImpl struct {
	repo      repository.Reservation
	roomRepo  roomRepo.Room
	tx        postgres.Transactor
	publisher event.Publisher
	cfg       *config.Config
	cache     cache.Cache
	otel      otel.Otel
}

func New(
	repo repository.Reservation,
	roomRepo roomRepo.Room,
	tx postgres.Transactor,
	publisher event.Publisher,
	cfg *config.Config,
	cache cache.Cache,
	otel otel.Otel,
) Reservation {
	return &serviceImpl{
		repo:      repo,
		roomRepo:  roomRepo,
		tx:        tx,
		publisher: publisher,
		cfg:       cfg,
		cache:     cache,
		otel:      otel,
	}
}

func (s *serviceImpl) RequestReservation(ctx context.Context, actor model.Actor, req dto.CreateReservationRequest) (res dto.ReservationResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".RequestReservation")
	defer scope.End()
	defer scope.TraceIfError(err)

	if err = validator.ValidateStruct(&req); err != nil {
		return res, err //nolint:wrapcheck
	}

	if !req.Interval().Valid() {
		return res, failure.BadRequestFromString("end_time must be after start_time") //nolint:wrapcheck
	}

	reservation := req.ToModel(actor.UserID)

	err = s.tx.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		room, err := s.roomRepo.LockTx(ctx, tx, req.RoomID)
		if err != nil {
			log.Error().Err(err).Str("room_id", req.RoomID).Msg("failed to lock room")

			return fmt.Errorf("failed to lock room: %w", err)
		}

		if room.ID == constant.Empty {
			return failure.NotFound("room not found") //nolint:wrapcheck
		}

		existing, err := s.repo.ListOverlappingTx(ctx, tx, room.ID, req.Interval(), model.AdmissionBlocking())
		if err != nil {
			log.Error().Err(err).Str("room_id", room.ID).Msg("failed to list overlapping reservations")

			return fmt.Errorf("failed to list overlapping reservations: %w", err)
		}

		if conflict, found := model.FindConflict(existing, req.Interval(), model.AdmissionBlocking()); found {
			log.Info().Str("room_id", room.ID).Str("conflict_id", conflict.ID).Msg("reservation request rejected by conflict")

			return failure.Conflict(MessageConflict) //nolint:wrapcheck
		}

		if err := s.repo.InsertTx(ctx, tx, reservation); err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == constant.PqErrorCodeExclusion {
				return failure.Conflict(MessageConflict) //nolint:wrapcheck
			}

			log.Error().Err(err).Msg("failed to insert reservation")

			return fmt.Errorf("failed to insert reservation: %w", err)
		}

		created, err := s.repo.FindTx(ctx, tx, reservation.ID)
		if err != nil {
			log.Error().Err(err).Str("id", reservation.ID).Msg("failed to read inserted reservation")

			return fmt.Errorf("failed to read inserted reservation: %w", err)
		}

		if created.ID != constant.Empty {
			reservation = created
		}

		return nil
	})
	if err != nil {
		return res, err //nolint:wrapcheck
	}

	s.publisher.Requested(ctx, reservation)
	s.invalidate(ctx, reservation.ID)

	res.FromModel(reservation)

	return res, nil
}

func (s *serviceImpl) SetStatus(ctx context.Context, id string, next model.Status, actor model.Actor) (res dto.ReservationResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".SetStatus")
	defer scope.End()
	defer scope.TraceIfError(err)

	var (
		reservation model.Reservation
		previous    model.Status
	)

	err = s.tx.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		locked, err := s.repo.LockTx(ctx, tx, id)
		if err != nil {
			log.Error().Err(err).Str("id", id).Msg("failed to lock reservation")

			return fmt.Errorf("failed to get reservation: %w", err)
		}

		reservation = locked

		if reservation.ID == constant.Empty {
			return failure.NotFound("reservation not found") //nolint:wrapcheck
		}

		if err := model.CheckTransition(reservation, next, actor); err != nil {
			log.Info().Err(err).Str("id", id).Str("from", string(reservation.Status)).Str("to", string(next)).Msg("status change refused")

			return err //nolint:wrapcheck
		}

		now := timezone.Now()
		fields := map[string]any{
			model.FieldStatus:        next,
			constant.FieldModifiedAt: now,
			constant.FieldModifiedBy: actor.UserID,
		}

		if err := s.repo.UpdateTx(ctx, tx, fields, shared.FilterByID(id, model.FieldID, model.TableName)); err != nil {
			log.Error().Err(err).Str("id", id).Msg("failed to update reservation status")

			return fmt.Errorf("failed to update reservation status: %w", err)
		}

		previous = reservation.Status
		reservation.Status = next
		reservation.ModifiedAt = now
		reservation.ModifiedBy = actor.UserID

		return nil
	})
	if err != nil {
		return res, err //nolint:wrapcheck
	}

	s.publisher.StatusChanged(ctx, reservation, previous, actor.UserID)
	s.invalidate(ctx, id)

	res.FromModel(reservation)

	return res, nil
}

func (s *serviceImpl) ListAvailableRooms(ctx context.Context, req dto.AvailabilityRequest) (res []roomDto.RoomResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".ListAvailableRooms")
	defer scope.End()
	defer scope.TraceIfError(err)

	if err = validator.ValidateStruct(&req); err != nil {
		return res, err //nolint:wrapcheck
	}

	window := model.Interval{Start: req.StartTime, End: req.EndTime}
	if !window.Valid() {
		return res, failure.BadRequestFromString("end_time must be after start_time") //nolint:wrapcheck
	}

	rooms, err := s.roomRepo.ListByStatus(ctx, roomModel.StatusAvailable)
	if err != nil {
		log.Error().Err(err).Msg("failed to list available rooms")

		return res, fmt.Errorf("failed to list rooms: %w", err)
	}

	overlapping, err := s.repo.ListOverlapping(ctx, window, model.AvailabilityBlocking())
	if err != nil {
		log.Error().Err(err).Msg("failed to list overlapping reservations")

		return res, fmt.Errorf("failed to list overlapping reservations: %w", err)
	}

	byRoom := make(map[string][]model.Reservation, len(overlapping))
	for _, reservation := range overlapping {
		byRoom[reservation.RoomID] = append(byRoom[reservation.RoomID], reservation)
	}

	free := make([]roomModel.Room, 0, len(rooms))

	for _, room := range rooms {
		if _, busy := model.FindConflict(byRoom[room.ID], window, model.AvailabilityBlocking()); busy {
			continue
		}

		free = append(free, room)
	}

	return roomDto.FromModels(free), nil
}

func (s *serviceImpl) Get(ctx context.Context, id string, actor model.Actor) (res dto.ReservationResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Get")
	defer scope.End()
	defer scope.TraceIfError(err)

	res, err = shared.Remember(ctx, s.cache, shared.BuildCacheKey(cacheGetReservation, id), s.cfg.Cache.TTL,
		func(ctx context.Context) (out dto.ReservationResponse, err error) {
			reservation, err := s.repo.Get(ctx, shared.FilterByID(id, model.FieldID, model.TableName))
			if err != nil {
				log.Error().Err(err).Str("id", id).Msg("failed to get reservation")

				return out, fmt.Errorf("failed to get reservation: %w", err)
			}

			if reservation.ID == constant.Empty {
				return out, failure.NotFound("reservation not found") //nolint:wrapcheck
			}

			out.FromModel(reservation)

			return out, nil
		})
	if err != nil {
		return res, err
	}

	if !actor.IsAdmin() && actor.UserID != res.UserID {
		return dto.ReservationResponse{}, failure.UnauthorizedError
	}

	return res, nil
}

func (s *serviceImpl) GetAll(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (res dto.GetReservationsResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".GetAll")
	defer scope.End()
	defer scope.TraceIfError(err)

	key := shared.BuildCacheKeyWithQuery(cacheGetAllReservation, req, filter)

	return shared.Remember(ctx, s.cache, key, s.cfg.Cache.TTL, func(ctx context.Context) (page dto.GetReservationsResponse, err error) {
		total, err := s.Count(ctx, req, filter)
		if err != nil {
			return page, err
		}

		reservations, err := s.repo.GetAll(ctx, req, filter)
		if err != nil {
			log.Error().Err(err).Msg("failed to list reservations")

			return page, fmt.Errorf("failed to list reservations: %w", err)
		}

		page.FromModels(reservations, total, req.Limit)

		return page, nil
	})
}

func (s *serviceImpl) Count(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (res int, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Count")
	defer scope.End()
	defer scope.TraceIfError(err)

	key := shared.BuildCacheKeyWithQuery(cacheCountReservation, req, filter)

	return shared.Remember(ctx, s.cache, key, s.cfg.Cache.TTL, func(ctx context.Context) (int, error) {
		total, err := s.repo.Count(ctx, filter)
		if err != nil {
			log.Error().Err(err).Msg("failed to count reservations")

			return 0, fmt.Errorf("failed to count reservations: %w", err)
		}

		return total, nil
	})
}

func (s *serviceImpl) Delete(ctx context.Context, id string) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Delete")
	defer scope.End()
	defer scope.TraceIfError(err)

	filter := shared.FilterByID(id, model.FieldID, model.TableName)

	exist, err := s.repo.Get(ctx, filter, model.FieldID)
	if err != nil {
		log.Error().Err(err).Msg("failed to check if reservation exists")

		return fmt.Errorf("failed to check if reservation exists: %w", err)
	}

	if exist.ID == constant.Empty {
		return failure.NotFound("reservation not found") //nolint:wrapcheck
	}

	if err = s.repo.Delete(ctx, filter); err != nil {
		log.Error().Err(err).Msg("failed to delete reservation")

		return fmt.Errorf("failed to delete reservation: %w", err)
	}

	s.invalidate(ctx, id)

	return nil
}

// Stats counts reservations per status, for one user when userID is set.
func (s *serviceImpl) Stats(ctx context.Context, userID string) (res dto.StatsResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Stats")
	defer scope.End()
	defer scope.TraceIfError(err)

	filter := gDto.FilterGroup{}
	cacheKey := shared.BuildCacheKey(cacheStatsReservation, cacheStatsAll)

	if userID != constant.Empty {
		filter.Filters = append(filter.Filters, gDto.Filter{Field: model.FieldUserID, Value: userID, Operator: gDto.FilterOperatorEq, Table: model.TableName})
		cacheKey = shared.BuildCacheKey(cacheStatsReservation, userID)
	}

	return shared.Remember(ctx, s.cache, cacheKey, s.cfg.Cache.TTL, func(ctx context.Context) (out dto.StatsResponse, err error) {
		counts, err := s.repo.CountGroupBy(ctx, model.FieldStatus, filter)
		if err != nil {
			log.Error().Err(err).Msg("failed to count reservations by status")

			return out, fmt.Errorf("failed to count reservations by status: %w", err)
		}

		out.FromCounts(counts)

		out.ApprovedToday, err = s.repo.Count(ctx, approvedOn(timezone.Now(), filter))
		if err != nil {
			log.Error().Err(err).Msg("failed to count today's approved reservations")

			return out, fmt.Errorf("failed to count today's approved reservations: %w", err)
		}

		return out, nil
	})
}

// approvedOn narrows filter to approved reservations starting on day's calendar date.
func approvedOn(day time.Time, filter gDto.FilterGroup) gDto.FilterGroup {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())

	group := gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
		Filters: []any{
			gDto.Filter{Field: model.FieldStatus, Value: string(model.StatusApproved), Operator: gDto.FilterOperatorEq, Table: model.TableName},
			gDto.Filter{ArgName: "day_start", Field: model.FieldStartTime, Value: start, Operator: gDto.FilterOperatorGreaterEq, Table: model.TableName},
			gDto.Filter{ArgName: "day_end", Field: model.FieldStartTime, Value: start.AddDate(0, 0, 1), Operator: gDto.FilterOperatorLess, Table: model.TableName},
		},
	}

	if len(filter.Filters) > 0 {
		group.Filters = append(group.Filters, filter)
	}

	return group
}

// invalidate runs before the write returns so the next read sees the change.
func (s *serviceImpl) invalidate(ctx context.Context, id string) {
	c := context.WithoutCancel(ctx)

	if err := s.cache.Delete(c, shared.BuildCacheKey(cacheGetReservation, id)); err != nil {
		log.Error().Err(err).Msg("failed to delete reservation cache")
	}

	shared.InvalidateCaches(c, s.cache, cacheGetAllReservation)
	shared.InvalidateCaches(c, s.cache, cacheCountReservation)
	shared.InvalidateCaches(c, s.cache, cacheStatsReservation)
}
