package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/upay/backend/internal/auth"
	"github.com/upay/backend/pkg/response"
)

type contextKey string

const (
	UIDKey contextKey = "uid"
)

// TokenVerifier resolves a bearer token to a Firebase uid
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (string, error)
}

// AuthMiddleware verifies Firebase ID tokens. When required is false,
// requests without a valid token pass through without a uid, matching the
// callables' behaviour before auth was enforced.
func AuthMiddleware(verifier TokenVerifier, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok || verifier == nil {
				if required {
					response.Unauthenticated(w, "missing authorization header")
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			uid, err := verifier.VerifyIDToken(r.Context(), token)
			if err != nil {
				if !required {
					next.ServeHTTP(w, r)
					return
				}
				if errors.Is(err, auth.ErrExpiredToken) {
					response.Unauthenticated(w, "token has expired")
					return
				}
				response.Unauthenticated(w, "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), UIDKey, uid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUID extracts the caller uid from context
func GetUID(ctx context.Context) (string, bool) {
	uid, ok := ctx.Value(UIDKey).(string)
	return uid, ok && uid != ""
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
