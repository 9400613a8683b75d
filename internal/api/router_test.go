package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/upay/backend/internal/domain"
	"github.com/upay/backend/internal/metrics"
	"github.com/upay/backend/pkg/response"
)

type testServer struct {
	messages   *mockMessageRepo
	identities *mockIdentityRepo
	router     *chi.Mux
}

func newTestServer(t *testing.T, opts RouterOptions, ping PingFunc) *testServer {
	t.Helper()
	logger := zap.NewNop()
	messages := &mockMessageRepo{}
	identities := &mockIdentityRepo{}

	callables := NewCallableHandler(
		domain.NewMessageService(messages),
		domain.NewIdentityService(identities),
		logger,
	)
	tasks := NewTaskHandler(domain.NewCleanupService(messages, domain.DefaultRetention, domain.MaxBatchWrites, logger), logger)
	health := NewHealthHandler(ping, logger)

	t.Cleanup(func() {
		messages.AssertExpectations(t)
		identities.AssertExpectations(t)
	})

	return &testServer{
		messages:   messages,
		identities: identities,
		router:     NewRouter(callables, tasks, health, opts, logger).Setup(),
	}
}

func (s *testServer) post(path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func readCallable(t *testing.T, rec *httptest.ResponseRecorder) response.CallableResponse {
	t.Helper()
	var resp response.CallableResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestMarkMessageAsRead_Success(t *testing.T) {
	s := newTestServer(t, RouterOptions{}, nil)
	s.messages.On("MarkMessageRead", mock.Anything, "msg-1").Return(nil)

	rec := s.post("/api/v1/markMessageAsRead", `{"data":{"messageId":"msg-1"}}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"result":{"success":true}}`, rec.Body.String())
}

func TestMarkMessageAsRead_MissingID(t *testing.T) {
	s := newTestServer(t, RouterOptions{}, nil)

	for _, body := range []string{`{"data":{}}`, `{"data":{"messageId":""}}`, `{}`} {
		rec := s.post("/api/v1/markMessageAsRead", body)

		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		resp := readCallable(t, rec)
		require.NotNil(t, resp.Error)
		assert.Equal(t, response.CodeInvalidArgument, resp.Error.Status)
		assert.Equal(t, "Message ID is required", resp.Error.Message)
	}
	s.messages.AssertNotCalled(t, "MarkMessageRead", mock.Anything, mock.Anything)
}

func TestCallableErrors_UseCanonicalStatus(t *testing.T) {
	s := newTestServer(t, RouterOptions{}, nil)
	s.messages.On("DeleteMessage", mock.Anything, "msg-1").Return(errors.New("unavailable"))
	rejected := testutil.ToFloat64(metrics.CallableRequests.WithLabelValues("deleteMessage", "invalid-argument"))

	rec := s.post("/api/v1/deleteMessage", `{"data":{}}`)
	assert.JSONEq(t, `{"error":{"status":"INVALID_ARGUMENT","message":"Message ID is required"}}`, rec.Body.String())
	assert.InDelta(t, rejected+1, testutil.ToFloat64(metrics.CallableRequests.WithLabelValues("deleteMessage", "invalid-argument")), 0.001)

	rec = s.post("/api/v1/deleteMessage", `{"data":{"messageId":"msg-1"}}`)
	assert.JSONEq(t, `{"error":{"status":"INTERNAL","message":"Error deleting message"}}`, rec.Body.String())
}

func TestMarkMessageAsRead_StoreFailure(t *testing.T) {
	s := newTestServer(t, RouterOptions{}, nil)
	s.messages.On("MarkMessageRead", mock.Anything, "gone").Return(domain.ErrNotFound)

	rec := s.post("/api/v1/markMessageAsRead", `{"data":{"messageId":"gone"}}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := readCallable(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, response.CodeInternal, resp.Error.Status)
	assert.Equal(t, "Error marking message as read", resp.Error.Message)
}

func TestMarkMessageAsRead_MalformedBody(t *testing.T) {
	s := newTestServer(t, RouterOptions{}, nil)

	rec := s.post("/api/v1/markMessageAsRead", `not json`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, response.CodeInvalidArgument, readCallable(t, rec).Error.Status)
}

func TestDeleteMessage(t *testing.T) {
	s := newTestServer(t, RouterOptions{}, nil)
	s.messages.On("DeleteMessage", mock.Anything, "msg-1").Return(nil).Once()
	s.messages.On("DeleteMessage", mock.Anything, "msg-2").Return(errors.New("unavailable")).Once()

	rec := s.post("/api/v1/deleteMessage", `{"data":{"messageId":"msg-1"}}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"result":{"success":true}}`, rec.Body.String())

	rec = s.post("/api/v1/deleteMessage", `{"data":{"messageId":"msg-2"}}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Error deleting message", readCallable(t, rec).Error.Message)

	rec = s.post("/api/v1/deleteMessage", `{"data":{}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Message ID is required", readCallable(t, rec).Error.Message)
}

func TestUpdateFcmToken_Success(t *testing.T) {
	s := newTestServer(t, RouterOptions{}, nil)
	s.identities.On("UpsertIdentity", mock.Anything, "991_234_V", domain.IdentityUpdate{
		NIC:        "991.234/V",
		CustomerID: "42",
		FCMToken:   "tok1",
		Platform:   "android",
	}).Return(nil)

	rec := s.post("/api/v1/updateFcmToken",
		`{"data":{"nic":"991.234/V","customerId":42,"fcmToken":"tok1","platform":"android"}}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"result":{"success":true}}`, rec.Body.String())
}

func TestUpdateFcmToken_MissingFields(t *testing.T) {
	s := newTestServer(t, RouterOptions{}, nil)

	for _, body := range []string{
		`{"data":{"fcmToken":"tok1"}}`,
		`{"data":{"nic":"991234567V"}}`,
	} {
		rec := s.post("/api/v1/updateFcmToken", body)

		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Equal(t, "NIC and FCM token are required", readCallable(t, rec).Error.Message)
	}
	s.identities.AssertNotCalled(t, "UpsertIdentity", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateFcmToken_StoreFailure(t *testing.T) {
	s := newTestServer(t, RouterOptions{}, nil)
	s.identities.On("UpsertIdentity", mock.Anything, "991234567V", mock.Anything).Return(errors.New("deadline exceeded"))

	rec := s.post("/api/v1/updateFcmToken", `{"data":{"nic":"991234567V","fcmToken":"tok1"}}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Error updating FCM token", readCallable(t, rec).Error.Message)
}

func TestCallables_AuthRequired(t *testing.T) {
	s := newTestServer(t, RouterOptions{AuthRequired: true}, nil)

	rec := s.post("/api/v1/deleteMessage", `{"data":{"messageId":"msg-1"}}`)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, response.CodeUnauthenticated, readCallable(t, rec).Error.Status)
}

func TestCallables_MethodNotAllowed(t *testing.T) {
	s := newTestServer(t, RouterOptions{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/deleteMessage", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCleanupTask(t *testing.T) {
	s := newTestServer(t, RouterOptions{}, nil)
	s.messages.On("ListMessageIDsCreatedBefore", mock.Anything, mock.Anything).Return([]string{"a", "b", "c"}, nil)
	s.messages.On("DeleteMessages", mock.Anything, []string{"a", "b", "c"}).Return(nil)

	rec := s.post("/tasks/cleanup", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"deleted":3}`, rec.Body.String())
}

func TestCleanupTask_Failure(t *testing.T) {
	s := newTestServer(t, RouterOptions{}, nil)
	s.messages.On("ListMessageIDsCreatedBefore", mock.Anything, mock.Anything).Return(nil, errors.New("unavailable"))

	rec := s.post("/tasks/cleanup", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, response.CodeInternal, readCallable(t, rec).Error.Status)
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t, RouterOptions{}, func(context.Context) error { return nil })

	for path, status := range map[string]string{
		"/health":       "ok",
		"/health/ready": "ready",
		"/health/live":  "alive",
	} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, path)
		var resp HealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, status, resp.Status, path)
	}
}

func TestReady_FirestoreDown(t *testing.T) {
	s := newTestServer(t, RouterOptions{}, func(context.Context) error { return errors.New("dial tcp") })

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, RouterOptions{ExposeMetrics: true}, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
