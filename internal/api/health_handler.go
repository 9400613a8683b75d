package api

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/upay/backend/pkg/response"
)

// PingFunc checks a backing dependency
type PingFunc func(ctx context.Context) error

// HealthHandler handles health check endpoints
type HealthHandler struct {
	ping   PingFunc
	logger *zap.Logger
}

// NewHealthHandler creates a new health handler. ping may be nil.
func NewHealthHandler(ping PingFunc, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{ping: ping, logger: logger}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Health returns the health status
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: now(),
		Version:   "1.0.0",
	})
}

// Ready returns the readiness status, checking Firestore when configured
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		if err := h.ping(ctx); err != nil {
			h.logger.Warn("readiness check failed", zap.Error(err))
			response.JSON(w, http.StatusServiceUnavailable, HealthResponse{
				Status:    "unavailable",
				Timestamp: now(),
				Error:     "firestore unreachable",
			})
			return
		}
	}

	response.JSON(w, http.StatusOK, HealthResponse{
		Status:    "ready",
		Timestamp: now(),
	})
}

// Live returns the liveness status
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, HealthResponse{
		Status:    "alive",
		Timestamp: now(),
	})
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
