package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"go-users-api/internal/config"
	"go-users-api/internal/handler"
	"go-users-api/internal/metrics"
	"go-users-api/internal/middleware"
	"go-users-api/internal/model"
)

type Handlers struct {
	Auth   *handler.AuthHandler
	User   *handler.UserHandler
	Audit  *handler.AuditHandler
	Health *handler.HealthHandler
}

func New(cfg *config.Config, authMiddleware *middleware.AuthMiddleware, h Handlers, m *metrics.Metrics) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuthRateLimitRPM)

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.Metrics(m))
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders)
	r.Use(rateLimitMiddleware.Handler)

	r.Get("/health", h.Health.Live)
	r.Get("/health/ready", h.Health.Ready)
	r.Method(http.MethodGet, "/metrics", m.Handler())

	requireAdmin := authMiddleware.RequireRoles(model.RoleAdmin)
	requireOwner := authMiddleware.RequireOwner("id")

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.Timeout(cfg.RequestTimeout))

		api.Route("/auth", func(auth chi.Router) {
			auth.Post("/signup", h.Auth.Signup)
			auth.Post("/login", h.Auth.Login)
			auth.Post("/refresh", h.Auth.Refresh)
			auth.Post("/logout", h.Auth.Logout)
			auth.With(authMiddleware.RequireAuth).Get("/me", h.Auth.Me)
		})

		api.Route("/users", func(users chi.Router) {
			users.Get("/", h.User.List)
			users.Get("/{id}", h.User.Get)
			users.With(authMiddleware.RequireAuth, requireOwner).Patch("/{id}", h.User.Update)
			users.With(authMiddleware.RequireAuth, requireOwner).Delete("/{id}", h.User.Delete)
			users.With(authMiddleware.RequireAuth, requireAdmin).Put("/{id}/role", h.User.SetRole)
		})

		api.With(authMiddleware.RequireAuth, requireAdmin).Get("/audit", h.Audit.List)
	})

	return r
}
