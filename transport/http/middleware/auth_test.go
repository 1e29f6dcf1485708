package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"ruang/config"
	"ruang/infras/jwt"
	jwtMocks "ruang/infras/jwt/mocks"
	otelMocks "ruang/infras/otel/mocks"
	"ruang/permissions"
	"ruang/shared/constant"
	"ruang/transport/http/middleware"
)

func newRouter(t *testing.T) http.Handler {
	t.Helper()

	ctrl := gomock.NewController(t)
	tokens := jwtMocks.NewMockJWT(ctrl)

	tokens.EXPECT().ValidateToken("student-token", jwt.AccessToken).
		Return(&jwt.Claims{UserID: "u1", Role: constant.RoleStudent}, nil).AnyTimes()
	tokens.EXPECT().ValidateToken("admin-token", jwt.AccessToken).
		Return(&jwt.Claims{UserID: "a1", Role: constant.RoleAdmin}, nil).AnyTimes()
	tokens.EXPECT().ValidateToken("expired-token", jwt.AccessToken).
		Return(nil, jwt.ErrExpiredToken).AnyTimes()
	tokens.EXPECT().ValidateToken("anonymous-token", jwt.AccessToken).
		Return(&jwt.Claims{}, nil).AnyTimes()

	cfg := &config.Config{}
	cfg.App.APIKey = "internal-key"

	authRole := middleware.NewAuthRoleMiddleware(tokens, otelMocks.NewOtel(), permissions.Get(), cfg)

	ok := func(writer http.ResponseWriter, request *http.Request) {
		userID, _ := request.Context().Value(constant.ContextKeyUserID).(string)
		writer.Header().Set("X-User", userID)
		writer.WriteHeader(http.StatusOK)
	}

	router := chi.NewRouter()
	router.Use(authRole.APIKey, authRole.Auth, authRole.RBAC)
	router.Route("/v1", func(r chi.Router) {
		r.Post("/auth/login", ok)
		r.Get("/rooms/available", ok)
		r.Route("/rooms", func(r chi.Router) {
			r.Get("/", ok)
			r.Post("/", ok)
			r.Get("/{id}", ok)
		})
	})

	return router
}

func TestAuthRole(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		path     string
		header   map[string]string
		wantCode int
		wantUser string
	}{
		{name: "public route without token", method: http.MethodPost, path: "/v1/auth/login", wantCode: http.StatusOK},
		{name: "missing token", method: http.MethodGet, path: "/v1/rooms", wantCode: http.StatusUnauthorized},
		{
			name:     "not a bearer header",
			method:   http.MethodGet,
			path:     "/v1/rooms",
			header:   map[string]string{constant.RequestHeaderAuthorization: "Token student-token"},
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "expired token",
			method:   http.MethodGet,
			path:     "/v1/rooms",
			header:   map[string]string{constant.RequestHeaderAuthorization: "Bearer expired-token"},
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "claims without user",
			method:   http.MethodGet,
			path:     "/v1/rooms",
			header:   map[string]string{constant.RequestHeaderAuthorization: "Bearer anonymous-token"},
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "student reads a room",
			method:   http.MethodGet,
			path:     "/v1/rooms/room-1",
			header:   map[string]string{constant.RequestHeaderAuthorization: "Bearer student-token"},
			wantCode: http.StatusOK,
			wantUser: "u1",
		},
		{
			name:     "student lists availability",
			method:   http.MethodGet,
			path:     "/v1/rooms/available",
			header:   map[string]string{constant.RequestHeaderAuthorization: "Bearer student-token"},
			wantCode: http.StatusOK,
			wantUser: "u1",
		},
		{
			name:     "student cannot create rooms",
			method:   http.MethodPost,
			path:     "/v1/rooms",
			header:   map[string]string{constant.RequestHeaderAuthorization: "Bearer student-token"},
			wantCode: http.StatusForbidden,
		},
		{
			name:     "admin creates rooms",
			method:   http.MethodPost,
			path:     "/v1/rooms",
			header:   map[string]string{constant.RequestHeaderAuthorization: "Bearer admin-token"},
			wantCode: http.StatusOK,
			wantUser: "a1",
		},
		{
			name:     "internal api key bypasses auth",
			method:   http.MethodPost,
			path:     "/v1/rooms",
			header:   map[string]string{constant.RequestHeaderAPIKey: "internal-key"},
			wantCode: http.StatusOK,
		},
		{
			name:     "wrong api key",
			method:   http.MethodPost,
			path:     "/v1/rooms",
			header:   map[string]string{constant.RequestHeaderAPIKey: "guess"},
			wantCode: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newRouter(t)

			request := httptest.NewRequest(tt.method, tt.path, nil)
			for key, value := range tt.header {
				request.Header.Set(key, value)
			}

			recorder := httptest.NewRecorder()
			router.ServeHTTP(recorder, request)

			assert.Equal(t, tt.wantCode, recorder.Code)
			assert.Equal(t, tt.wantUser, recorder.Header().Get("X-User"))
		})
	}
}
