package auth

import (
	"context"
	"errors"
	"fmt"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// Verifier checks Firebase ID tokens sent by the mobile app
type Verifier struct {
	client *fbauth.Client
}

// NewVerifier creates a verifier bound to the app's project
func NewVerifier(ctx context.Context, app *firebase.App) (*Verifier, error) {
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting auth client: %w", err)
	}
	return &Verifier{client: client}, nil
}

// VerifyIDToken validates idToken and returns the caller's uid
func (v *Verifier) VerifyIDToken(ctx context.Context, idToken string) (string, error) {
	token, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		if fbauth.IsIDTokenExpired(err) {
			return "", ErrExpiredToken
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return token.UID, nil
}
