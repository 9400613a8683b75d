package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/upay/backend/internal/domain"
	"github.com/upay/backend/internal/metrics"
	"github.com/upay/backend/internal/middleware"
	"github.com/upay/backend/pkg/response"
)

const maxCallableBody = 1 << 20

// Outcome labels of the callable_requests_total counter.
const (
	outcomeOK              = "ok"
	outcomeInvalidArgument = "invalid-argument"
	outcomeInternal        = "internal"
)

// callableRequest is the Firebase callable protocol request envelope.
type callableRequest[T any] struct {
	Data T `json:"data"`
}

// CallableHandler serves the app's callable functions
type CallableHandler struct {
	messages   *domain.MessageService
	identities *domain.IdentityService
	logger     *zap.Logger
}

// NewCallableHandler creates a new callable handler
func NewCallableHandler(messages *domain.MessageService, identities *domain.IdentityService, logger *zap.Logger) *CallableHandler {
	return &CallableHandler{
		messages:   messages,
		identities: identities,
		logger:     logger,
	}
}

// MarkMessageAsRead handles POST /api/v1/markMessageAsRead
func (h *CallableHandler) MarkMessageAsRead(w http.ResponseWriter, r *http.Request) {
	const function = "markMessageAsRead"

	req, ok := decodeCallable[domain.MarkReadRequest](w, r, function)
	if !ok {
		return
	}

	err := h.messages.MarkRead(r.Context(), req)
	h.finish(w, r, function, err, "Error marking message as read",
		zap.String("message_id", req.MessageID))
}

// DeleteMessage handles POST /api/v1/deleteMessage
func (h *CallableHandler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	const function = "deleteMessage"

	req, ok := decodeCallable[domain.DeleteMessageRequest](w, r, function)
	if !ok {
		return
	}

	err := h.messages.Delete(r.Context(), req)
	h.finish(w, r, function, err, "Error deleting message",
		zap.String("message_id", req.MessageID))
}

// UpdateFcmToken handles POST /api/v1/updateFcmToken
func (h *CallableHandler) UpdateFcmToken(w http.ResponseWriter, r *http.Request) {
	const function = "updateFcmToken"

	req, ok := decodeCallable[domain.UpdateTokenRequest](w, r, function)
	if !ok {
		return
	}

	err := h.identities.UpdateToken(r.Context(), req)
	h.finish(w, r, function, err, "Error updating FCM token",
		zap.String("platform", req.Platform))
}

// finish writes the callable outcome. Validation failures carry their own
// message; everything else is reported as an opaque internal error.
func (h *CallableHandler) finish(w http.ResponseWriter, r *http.Request, function string, err error, internalMsg string, fields ...zap.Field) {
	log := h.logger.With(zap.String("function", function))
	if uid, ok := middleware.GetUID(r.Context()); ok {
		log = log.With(zap.String("uid", uid))
	}

	var verr *domain.ValidationError
	switch {
	case err == nil:
		log.Info("callable succeeded", fields...)
		metrics.CallableRequests.WithLabelValues(function, outcomeOK).Inc()
		response.OK(w)
	case errors.As(err, &verr):
		log.Warn("callable rejected", append(fields, zap.Strings("fields", verr.Fields))...)
		metrics.CallableRequests.WithLabelValues(function, outcomeInvalidArgument).Inc()
		response.InvalidArgument(w, verr.Message)
	default:
		log.Error(internalMsg, append(fields, zap.Error(err))...)
		metrics.CallableRequests.WithLabelValues(function, outcomeInternal).Inc()
		response.Internal(w, internalMsg)
	}
}

func decodeCallable[T any](w http.ResponseWriter, r *http.Request, function string) (T, bool) {
	var req callableRequest[T]
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCallableBody)).Decode(&req); err != nil {
		metrics.CallableRequests.WithLabelValues(function, outcomeInvalidArgument).Inc()
		response.InvalidArgument(w, "Bad Request")
		return req.Data, false
	}
	return req.Data, true
}
