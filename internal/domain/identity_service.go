package domain

import (
	"context"
	"fmt"

	"github.com/upay/backend/pkg/validator"
)

const maxPlatformLen = 32

// UpdateTokenRequest is the argument of updateFcmToken.
type UpdateTokenRequest struct {
	NIC        string     `json:"nic" validate:"required"`
	CustomerID FlexString `json:"customerId"`
	FCMToken   string     `json:"fcmToken" validate:"required"`
	Platform   string     `json:"platform"`
}

// IdentityService registers device tokens against national identities.
type IdentityService struct {
	repo IdentityRepository
}

func NewIdentityService(repo IdentityRepository) *IdentityService {
	return &IdentityService{repo: repo}
}

// UpdateToken merges the token into the identity record keyed by the
// sanitized NIC, creating it if needed.
func (s *IdentityService) UpdateToken(ctx context.Context, req UpdateTokenRequest) error {
	if errs := validator.Struct(req); errs.HasErrors() {
		return invalidArgument("NIC and FCM token are required", errs)
	}

	key := validator.SanitizeKey(req.NIC)
	update := IdentityUpdate{
		NIC:        req.NIC,
		CustomerID: string(req.CustomerID),
		FCMToken:   req.FCMToken,
		Platform:   validator.SanitizeString(req.Platform, maxPlatformLen),
	}
	if err := s.repo.UpsertIdentity(ctx, key, update); err != nil {
		return fmt.Errorf("upsert identity %s: %w", key, err)
	}
	return nil
}
