package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/upay/backend/internal/metrics"
	"github.com/upay/backend/internal/middleware"
)

// RouterOptions carries the cross-cutting settings of the HTTP surface
type RouterOptions struct {
	Verifier       middleware.TokenVerifier
	AuthRequired   bool
	RateLimiter    *middleware.RateLimiter
	AllowedOrigins []string
	ExposeMetrics  bool
}

// Router holds all handlers and creates the chi router
type Router struct {
	callableHandler *CallableHandler
	taskHandler     *TaskHandler
	healthHandler   *HealthHandler
	opts            RouterOptions
	logger          *zap.Logger
}

// NewRouter creates a new router
func NewRouter(
	callableHandler *CallableHandler,
	taskHandler *TaskHandler,
	healthHandler *HealthHandler,
	opts RouterOptions,
	logger *zap.Logger,
) *Router {
	return &Router{
		callableHandler: callableHandler,
		taskHandler:     taskHandler,
		healthHandler:   healthHandler,
		opts:            opts,
		logger:          logger,
	}
}

// Setup configures and returns the chi router
func (rt *Router) Setup() *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RecoveryMiddleware(rt.logger))
	r.Use(middleware.LoggingMiddleware(rt.logger))
	r.Use(middleware.CORSMiddleware(rt.opts.AllowedOrigins))
	r.Use(chimiddleware.Compress(5))

	// Health endpoints (no auth required)
	r.Route("/health", func(r chi.Router) {
		r.Get("/", rt.healthHandler.Health)
		r.Get("/ready", rt.healthHandler.Ready)
		r.Get("/live", rt.healthHandler.Live)
	})

	if rt.opts.ExposeMetrics {
		r.Handle("/metrics", metrics.Handler())
	}

	// Callables
	r.Route("/api/v1", func(r chi.Router) {
		if rt.opts.RateLimiter != nil {
			r.Use(rt.opts.RateLimiter.Limit)
		}
		r.Use(middleware.AuthMiddleware(rt.opts.Verifier, rt.opts.AuthRequired))

		r.Post("/markMessageAsRead", rt.callableHandler.MarkMessageAsRead)
		r.Post("/deleteMessage", rt.callableHandler.DeleteMessage)
		r.Post("/updateFcmToken", rt.callableHandler.UpdateFcmToken)
	})

	// Jobs triggered by an external scheduler
	r.Route("/tasks", func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(rt.opts.Verifier, rt.opts.AuthRequired))
		r.Post("/cleanup", rt.taskHandler.Cleanup)
	})

	return r
}
