package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/upay/backend/internal/auth"
)

type fakeVerifier map[string]string

func (f fakeVerifier) VerifyIDToken(_ context.Context, token string) (string, error) {
	if token == "expired" {
		return "", auth.ErrExpiredToken
	}
	if uid, ok := f[token]; ok {
		return uid, nil
	}
	return "", errors.New("bad signature")
}

func uidEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, _ := GetUID(r.Context())
		_, _ = w.Write([]byte(uid))
	})
}

func TestAuthMiddleware_Optional(t *testing.T) {
	h := AuthMiddleware(fakeVerifier{"good": "user-1"}, false)(uidEcho())

	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"no header", "", ""},
		{"valid token", "Bearer good", "user-1"},
		{"invalid token", "Bearer nope", ""},
		{"malformed", "Token good", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.want, rec.Body.String())
		})
	}
}

func TestAuthMiddleware_Required(t *testing.T) {
	h := AuthMiddleware(fakeVerifier{"good": "user-1"}, true)(uidEcho())

	tests := []struct {
		name    string
		header  string
		status  int
		message string
	}{
		{"no header", "", http.StatusUnauthorized, "missing authorization header"},
		{"expired", "Bearer expired", http.StatusUnauthorized, "token has expired"},
		{"invalid", "Bearer nope", http.StatusUnauthorized, "invalid token"},
		{"valid", "Bearer good", http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.message != "" {
				assert.Contains(t, rec.Body.String(), `"status":"UNAUTHENTICATED"`)
				assert.Contains(t, rec.Body.String(), tt.message)
			} else {
				assert.Equal(t, "user-1", rec.Body.String())
			}
		})
	}
}

func TestAuthMiddleware_NilVerifierPassesThrough(t *testing.T) {
	h := AuthMiddleware(nil, false)(uidEcho())
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
}
