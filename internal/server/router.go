package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/campusshare/campusshare/internal/config"
	"github.com/campusshare/campusshare/internal/handler"
	"github.com/campusshare/campusshare/internal/metrics"
	"github.com/campusshare/campusshare/internal/middleware"
	"github.com/campusshare/campusshare/internal/service"
)

// Dependencies are the wired components the router serves.
type Dependencies struct {
	Resources *service.ResourceService
	Borrows   *service.BorrowService
	Users     *service.UserService
	// Activity is optional; without it the history route is not mounted.
	Activity *service.ActivityService

	Tokens      middleware.TokenVerifier
	Revocations middleware.RevocationChecker
	Limiter     middleware.RateLimiter

	DB     handler.HealthChecker
	Cache  handler.HealthChecker
	Counts handler.CountReporter

	Metrics *metrics.InMemoryRecorder
}

// NewRouter configures the chi router with all routes and middleware.
func NewRouter(cfg *config.Config, logger *slog.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()

	var recorder metrics.Recorder = metrics.NewNoop()
	var snapshotter metrics.Snapshotter
	if deps.Metrics != nil {
		recorder = deps.Metrics
		snapshotter = deps.Metrics
	}

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.GetCORSAllowedOrigins()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger, recorder))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Security(middleware.SecurityConfig{IsDevelopment: cfg.IsDevelopment()}))
	r.Use(middleware.CORS(corsCfg))
	r.Use(middleware.MaxBodySize(cfg.MaxRequestBodySize))

	h := handler.New(deps.Activity != nil)
	health := handler.NewHealthHandler(deps.DB, deps.Cache, deps.Counts)
	metricsHandler := handler.NewMetricsHandler(snapshotter)
	resources := handler.NewResourceHandler(deps.Resources, logger)
	borrows := handler.NewBorrowHandler(deps.Borrows, logger)
	users := handler.NewUserHandler(deps.Users, logger)

	requireAuth := middleware.Auth(middleware.AuthConfig{
		Logger:      logger,
		Tokens:      deps.Tokens,
		Revocations: deps.Revocations,
	})

	rateLimitCfg := middleware.RateLimitConfig{
		Logger:        logger,
		Limiter:       deps.Limiter,
		Enabled:       cfg.RateLimitEnabled && deps.Limiter != nil,
		UserPerMinute: cfg.RateLimitAPIPerMinute,
		UserBurst:     cfg.RateLimitAPIBurst,
		IPRPS:         cfg.RateLimitAuthRPS,
		IPBurst:       cfg.RateLimitAuthBurst,
	}
	authenticated := []func(http.Handler) http.Handler{requireAuth, middleware.RateLimitUser(rateLimitCfg)}

	r.Get("/", h.Info)
	r.Get("/ping", h.Ping)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)
	r.Get("/metrics", metricsHandler.Metrics)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health/detailed", health.Detailed)

		r.Route("/users", func(r chi.Router) {
			r.With(middleware.RateLimitIP(rateLimitCfg)).Post("/register", users.Register)
			r.With(middleware.RateLimitIP(rateLimitCfg)).Post("/login", users.Login)
			r.With(authenticated...).Post("/logout", users.Logout)
		})

		r.Route("/resources", func(r chi.Router) {
			r.Get("/", resources.List)
			r.Get("/{id}", resources.Get)
			r.With(authenticated...).Post("/", resources.Create)
			r.With(authenticated...).Put("/{id}/status", resources.UpdateStatus)
		})

		r.Route("/borrows", func(r chi.Router) {
			r.Use(authenticated...)
			r.Get("/", borrows.List)
			r.Get("/{id}", borrows.Get)
			r.Post("/", borrows.Create)
			r.Put("/{id}/status", borrows.UpdateStatus)
			if deps.Activity != nil {
				r.Get("/{id}/history", handler.NewActivityHandler(deps.Activity, logger).BorrowHistory)
			}
		})
	})

	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}
