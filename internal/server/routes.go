package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/Yotam17/nl2sql/internal/config"
	"github.com/Yotam17/nl2sql/internal/handler"
	"github.com/Yotam17/nl2sql/internal/middleware"
	"github.com/Yotam17/nl2sql/internal/pipeline"
	"github.com/Yotam17/nl2sql/internal/security"
	"github.com/Yotam17/nl2sql/internal/service"
)

// Handlers are the endpoint implementations mounted by NewRouter.
type Handlers struct {
	Health *handler.HealthHandler
	Ask    *handler.AskHandler
	Query  *handler.QueryHandler
}

// setupRoutes builds the services and returns the router plus the rate
// limiter so it can be closed on shutdown.
func (s *Server) setupRoutes(ctx context.Context) (http.Handler, limiterCloser, error) {
	cfg := s.cfg

	// ─── Services ───────────────────────────────────────────────────────────────
	db, err := service.NewPostgresService(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := db.WaitReady(ctx, 30*time.Second); err != nil {
		log.Warn().Err(err).Msg("database unreachable at start-up, questions will use fallbacks")
	}
	p, err := pipeline.FromConfig(ctx, cfg, db)
	if err != nil {
		return nil, nil, err
	}

	limiter := newLimiter(ctx, cfg)

	log.Info().
		Str("llm_provider", cfg.LLMProvider).
		Str("model", cfg.Model).
		Bool("redis_rate_limit", cfg.RedisURL != "").
		Bool("audit_logging", cfg.EnableAuditLogging).
		Bool("metrics", cfg.MetricsEnabled).
		Int64("max_root_rows", cfg.MaxRootRows).
		Msg("service configuration")

	// ─── Security ───────────────────────────────────────────────────────────────
	sqlVal := security.NewSQLValidator()
	auditLogger := security.NewAuditLogger(cfg.EnableAuditLogging)

	// ─── Handlers ────────────────────────────────────────────────────────────────
	h := Handlers{
		Health: handler.NewHealthHandler(db),
		Ask:    handler.NewAskHandler(p, auditLogger),
		Query:  handler.NewQueryHandler(db, sqlVal, auditLogger),
	}

	return NewRouter(cfg, h, limiter), limiter, nil
}

// NewRouter mounts the middleware chain and the endpoints.
func NewRouter(cfg *config.Config, h Handlers, limiter middleware.Limiter) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.CORSOrigins)))

	// Public routes
	r.Get("/health", h.Health.Health)
	r.Get("/", h.Health.Health)
	if cfg.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Group(func(r chi.Router) {
		if limiter != nil && cfg.RateLimitPerMinute > 0 {
			r.Use(middleware.RateLimit(limiter, cfg.RateLimitPerMinute))
		}

		r.Route(cfg.APIPrefix, func(r chi.Router) {
			r.Post("/ask", h.Ask.Ask)
			r.Post("/query", h.Query.Execute)
		})
	})

	return r
}

type limiterCloser interface {
	middleware.Limiter
	Close() error
}

// newLimiter prefers a shared Redis limiter and falls back to an in-process
// one when Redis is not configured or not reachable.
func newLimiter(ctx context.Context, cfg *config.Config) limiterCloser {
	if cfg.RedisURL != "" {
		rl, err := middleware.NewRedisLimiter(ctx, cfg.RedisURL, cfg.RateLimitPerMinute)
		if err == nil {
			return rl
		}
		log.Warn().Err(err).Msg("redis rate limiter unavailable, counting in memory")
	}
	return middleware.NewMemoryLimiter(cfg.RateLimitPerMinute)
}
