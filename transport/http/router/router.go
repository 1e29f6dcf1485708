package router

import (
	"ruang/internal/handlers/auth"
	"ruang/internal/handlers/reservation"
	"ruang/internal/handlers/room"
	"ruang/internal/handlers/user"
	"ruang/transport/http/middleware"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
)

type DomainHandlers struct {
	Auth        auth.Handler
	Room        room.Handler
	Reservation reservation.Handler
	User        user.Handler
}

type Router struct {
	DomainHandlers DomainHandlers
	App            middleware.AppMiddleware
	AuthRole       middleware.AuthRole
}

// SetupRoutes mounts the middleware chain and every versioned route. Routes registered outside
// /v1 are answered before authentication only when permissions.json marks them skip.
func (r *Router) SetupRoutes(router chi.Router) {
	router.Use(
		chiMiddleware.RequestID,
		chiMiddleware.RealIP,
		chiMiddleware.Recoverer,
		r.App.Logging,
		r.App.Tracing,
		r.App.CORS(),
		r.App.RateLimit(),
		r.AuthRole.APIKey,
		r.AuthRole.Auth,
		r.AuthRole.RBAC,
	)

	router.Get("/swagger/*", httpSwagger.WrapHandler)

	router.Route("/v1", func(routerGroup chi.Router) {
		r.DomainHandlers.Auth.Router(routerGroup)
		r.DomainHandlers.Room.Router(routerGroup)
		r.DomainHandlers.Reservation.Router(routerGroup)
		r.DomainHandlers.User.Router(routerGroup)
	})
}

func New(domainHandlers DomainHandlers, app middleware.AppMiddleware, authRole middleware.AuthRole) Router {
	return Router{
		DomainHandlers: domainHandlers,
		App:            app,
		AuthRole:       authRole,
	}
}
