package service

import (
	"context"
	"errors"
	"fmt"

	"ruang/config"
	"ruang/infras/otel"
	"ruang/infras/postgres"
	reservationModel "ruang/internal/domains/reservation/model"
	reservationRepo "ruang/internal/domains/reservation/repository"
	"ruang/internal/domains/user/model"
	"ruang/internal/domains/user/model/dto"
	"ruang/internal/domains/user/repository"
	"ruang/shared"
	"ruang/shared/cache"
	"ruang/shared/constant"
	gDto "ruang/shared/dto"
	"ruang/shared/failure"
	"ruang/shared/password"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

const (
	cacheGetUser    = "user:get"
	cacheGetAllUser = "user:gets"
	cacheCountUser  = "user:count"

	cacheReservation = "reservation:"
)

type User interface {
	Create(ctx context.Context, req dto.CreateUserRequest) (dto.UserResponse, error)
	GetAll(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (dto.GetUsersResponse, error)
	Count(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (int, error)
	Get(ctx context.Context, id string) (dto.UserResponse, error)
	UpdateRole(ctx context.Context, req dto.UpdateRoleRequest, id string) error
	// Delete removes the user together with every reservation they own.
	Delete(ctx context.Context, id string) error
}

type serviceImpl struct {
	repo            repository.User
	reservationRepo reservationRepo.Reservation
	tx              postgres.Transactor
	cfg             *config.Config
	cache           cache.Cache
	otel            otel.Otel
}

func New(
	repo repository.User,
	reservationRepo reservationRepo.Reservation,
	tx postgres.Transactor,
	cfg *config.Config,
	cache cache.Cache,
	otel otel.Otel,
) User {
	return &serviceImpl{
		repo:            repo,
		reservationRepo: reservationRepo,
		tx:              tx,
		cfg:             cfg,
		cache:           cache,
		otel:            otel,
	}
}

func (s *serviceImpl) Create(ctx context.Context, req dto.CreateUserRequest) (res dto.UserResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Create")
	defer scope.End()
	defer scope.TraceIfError(err)

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)

	exists, err := s.repo.Exist(ctx, repository.EmailFilter(dto.NormalizeEmail(req.Email)))
	if err != nil {
		log.Error().Err(err).Msg("failed to check if user exists")

		return res, fmt.Errorf("failed to check if user exists: %w", err)
	}

	if exists {
		return res, failure.Conflict("email already registered") //nolint:wrapcheck
	}

	hashedPassword, err := password.Hash(req.Password)
	if err != nil {
		log.Error().Err(err).Msg("failed to hash password")

		return res, fmt.Errorf("failed to hash password: %w", err)
	}

	created := req.ToModel(user, hashedPassword)

	if err = s.repo.Insert(ctx, created); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == constant.PqErrorCodeUniqueViolation {
			return res, failure.Conflict("email already registered") //nolint:wrapcheck
		}

		log.Error().Err(err).Msg("failed to create user")

		return res, fmt.Errorf("failed to create user: %w", err)
	}

	shared.InvalidateCaches(context.WithoutCancel(ctx), s.cache, cacheGetAllUser)
	shared.InvalidateCaches(context.WithoutCancel(ctx), s.cache, cacheCountUser)

	res.FromModel(created)

	return res, nil
}

func (s *serviceImpl) GetAll(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (res dto.GetUsersResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".GetAll")
	defer scope.End()
	defer scope.TraceIfError(err)

	key := shared.BuildCacheKeyWithQuery(cacheGetAllUser, req, filter)

	return shared.Remember(ctx, s.cache, key, s.cfg.Cache.TTL, func(ctx context.Context) (page dto.GetUsersResponse, err error) {
		total, err := s.Count(ctx, req, filter)
		if err != nil {
			return page, err
		}

		users, err := s.repo.GetAll(ctx, req, filter)
		if err != nil {
			log.Error().Err(err).Msg("failed to list users")

			return page, fmt.Errorf("failed to list users: %w", err)
		}

		page.FromModels(users, total, req.Limit)

		return page, nil
	})
}

func (s *serviceImpl) Count(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (res int, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Count")
	defer scope.End()
	defer scope.TraceIfError(err)

	key := shared.BuildCacheKeyWithQuery(cacheCountUser, req, filter)

	return shared.Remember(ctx, s.cache, key, s.cfg.Cache.TTL, func(ctx context.Context) (int, error) {
		total, err := s.repo.Count(ctx, filter)
		if err != nil {
			log.Error().Err(err).Msg("failed to count users")

			return 0, fmt.Errorf("failed to count users: %w", err)
		}

		return total, nil
	})
}

func (s *serviceImpl) Get(ctx context.Context, id string) (res dto.UserResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Get")
	defer scope.End()
	defer scope.TraceIfError(err)

	load := func(ctx context.Context) (out dto.UserResponse, err error) {
		user, err := s.repo.Get(ctx, shared.FilterByID(id, model.FieldID, model.TableName))
		if err != nil {
			log.Error().Err(err).Str("id", id).Msg("failed to get user")

			return out, fmt.Errorf("failed to get user: %w", err)
		}

		if user.ID == constant.Empty {
			return out, failure.NotFound("user not found") //nolint:wrapcheck
		}

		out.FromModel(user)

		return out, nil
	}

	return shared.Remember(ctx, s.cache, shared.BuildCacheKey(cacheGetUser, id), s.cfg.Cache.TTL, load)
}

func (s *serviceImpl) UpdateRole(ctx context.Context, req dto.UpdateRoleRequest, id string) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".UpdateRole")
	defer scope.End()
	defer scope.TraceIfError(err)

	actor, _ := ctx.Value(constant.ContextKeyUserID).(string)
	filter := shared.FilterByID(id, model.FieldID, model.TableName)

	exists, err := s.repo.Exist(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to check if user exists")

		return fmt.Errorf("failed to check if user exists: %w", err)
	}

	if !exists {
		return failure.NotFound("user not found") //nolint:wrapcheck
	}

	if err = s.repo.Update(ctx, shared.TransformFields(req, actor), filter); err != nil {
		log.Error().Err(err).Msg("failed to update user role")

		return fmt.Errorf("failed to update user role: %w", err)
	}

	s.invalidate(ctx, id)

	return nil
}

func (s *serviceImpl) Delete(ctx context.Context, id string) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Delete")
	defer scope.End()
	defer scope.TraceIfError(err)

	if actor, _ := ctx.Value(constant.ContextKeyUserID).(string); actor == id {
		return failure.BadRequestFromString("cannot delete your own account") //nolint:wrapcheck
	}

	filter := shared.FilterByID(id, model.FieldID, model.TableName)

	exists, err := s.repo.Exist(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to check if user exists")

		return fmt.Errorf("failed to check if user exists: %w", err)
	}

	if !exists {
		return failure.NotFound("user not found") //nolint:wrapcheck
	}

	owned := gDto.FilterGroup{
		Filters: []any{
			gDto.Filter{Field: reservationModel.FieldUserID, Value: id, Operator: gDto.FilterOperatorEq, Table: reservationModel.TableName},
		},
	}

	err = s.tx.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		if err := s.reservationRepo.DeleteTx(ctx, tx, owned); err != nil {
			return fmt.Errorf("failed to delete user reservations: %w", err)
		}

		if err := s.repo.DeleteTx(ctx, tx, filter); err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}

		return nil
	})
	if err != nil {
		log.Error().Err(err).Str("id", id).Msg("failed to delete user")

		return err //nolint:wrapcheck
	}

	s.invalidate(ctx, id)

	shared.InvalidateCaches(context.WithoutCancel(ctx), s.cache, cacheReservation)

	return nil
}

func (s *serviceImpl) invalidate(ctx context.Context, id string) {
	c := context.WithoutCancel(ctx)

	if err := s.cache.Delete(c, shared.BuildCacheKey(cacheGetUser, id)); err != nil {
		log.Error().Err(err).Msg("failed to delete user cache")
	}

	shared.InvalidateCaches(c, s.cache, cacheGetAllUser)
	shared.InvalidateCaches(c, s.cache, cacheCountUser)
}
