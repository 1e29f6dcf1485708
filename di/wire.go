//go:build wireinject
// +build wireinject

package di

import (
	"ruang/config"
	"ruang/infras/jwt"
	"ruang/infras/kafka"
	"ruang/infras/otel"
	"ruang/infras/postgres"
	"ruang/infras/redis"
	"ruang/infras/s3"
	"ruang/permissions"
	"ruang/shared/cache"
	"ruang/transport/http"
	"ruang/transport/http/middleware"
	"ruang/transport/http/router"

	"github.com/google/wire"

	authService "ruang/internal/domains/auth/service"
	"ruang/internal/domains/reservation/event"
	reservationRepository "ruang/internal/domains/reservation/repository"
	reservationService "ruang/internal/domains/reservation/service"
	roomRepository "ruang/internal/domains/room/repository"
	roomService "ruang/internal/domains/room/service"
	userRepository "ruang/internal/domains/user/repository"
	userService "ruang/internal/domains/user/service"
	authHandler "ruang/internal/handlers/auth"
	reservationHandler "ruang/internal/handlers/reservation"
	roomHandler "ruang/internal/handlers/room"
	userHandler "ruang/internal/handlers/user"
	"ruang/internal/seed"
)

var configurations = wire.NewSet(
	config.Get,
)

var infrastructures = wire.NewSet(
	postgres.New,
	wire.Bind(new(postgres.Transactor), new(*postgres.Connection)),
	otel.New,
	redis.New,
	jwt.New,
	s3.New,
	kafka.New,
)

var middlewares = wire.NewSet(
	permissions.Get,
	middleware.NewAppMiddleware,
	middleware.NewAuthRoleMiddleware,
)

var sharedHelpers = wire.NewSet(
	cache.New,
)

var authDomain = wire.NewSet(
	userRepository.New,
	authService.New,
)

var roomDomain = wire.NewSet(
	roomRepository.New,
	roomService.New,
)

var reservationDomain = wire.NewSet(
	reservationRepository.New,
	event.NewPublisher,
	reservationService.New,
)

var userDomain = wire.NewSet(
	userService.New,
)

var domains = wire.NewSet(
	authDomain,
	roomDomain,
	reservationDomain,
	userDomain,
)

var routing = wire.NewSet(
	wire.Struct(new(router.DomainHandlers), "*"),
	authHandler.New,
	roomHandler.New,
	reservationHandler.New,
	userHandler.New,
	router.New,
)

func InitializeService() *http.HTTP {
	wire.Build(
		configurations,
		infrastructures,
		middlewares,
		sharedHelpers,
		domains,
		routing,
		http.New,
	)

	return &http.HTTP{}
}

func InitializeWorker() *event.Consumer {
	wire.Build(
		configurations,
		kafka.New,
		wire.InterfaceValue(new(event.Notifier), event.LogNotifier{}),
		event.NewConsumer,
	)

	return &event.Consumer{}
}

func InitializeSeeder() *seed.Seeder {
	wire.Build(
		configurations,
		postgres.New,
		wire.Bind(new(postgres.Transactor), new(*postgres.Connection)),
		otel.New,
		userRepository.New,
		roomRepository.New,
		reservationRepository.New,
		seed.New,
	)

	return &seed.Seeder{}
}
