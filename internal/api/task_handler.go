package api

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/upay/backend/internal/domain"
	"github.com/upay/backend/pkg/response"
)

// TaskHandler exposes scheduled jobs for external schedulers
type TaskHandler struct {
	cleanup *domain.CleanupService
	logger  *zap.Logger
}

func NewTaskHandler(cleanup *domain.CleanupService, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{cleanup: cleanup, logger: logger}
}

// CleanupResponse reports how many messages a cleanup run removed
type CleanupResponse struct {
	Deleted int `json:"deleted"`
}

// Cleanup handles POST /tasks/cleanup
func (h *TaskHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.cleanup.Run(r.Context())
	if err != nil {
		h.logger.Error("on-demand cleanup failed", zap.Int("deleted", deleted), zap.Error(err))
		response.Internal(w, "cleanup failed")
		return
	}
	response.JSON(w, http.StatusOK, CleanupResponse{Deleted: deleted})
}
