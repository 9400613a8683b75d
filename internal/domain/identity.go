package domain

import (
	"context"
	"time"
)

// Identity links a national identity number to the device that last
// registered for pushes.
type Identity struct {
	NIC         string    `firestore:"nic" json:"nic"`
	CustomerID  string    `firestore:"customerId" json:"customerId"`
	FCMToken    string    `firestore:"fcmToken" json:"fcmToken"`
	Platform    string    `firestore:"platform" json:"platform"`
	LastUpdated time.Time `firestore:"lastUpdated" json:"lastUpdated"`
	Active      bool      `firestore:"active" json:"active"`
}

// IdentityUpdate is merged into an identity record. Empty optional fields
// are left untouched in the store.
type IdentityUpdate struct {
	NIC        string
	CustomerID string
	FCMToken   string
	Platform   string
}

type IdentityRepository interface {
	// GetIdentity returns ErrNotFound when no record exists for key.
	GetIdentity(ctx context.Context, key string) (*Identity, error)
	UpsertIdentity(ctx context.Context, key string, update IdentityUpdate) error
}
