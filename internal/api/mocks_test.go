package api

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/upay/backend/internal/domain"
)

type mockMessageRepo struct{ mock.Mock }

func (m *mockMessageRepo) MarkMessageRead(ctx context.Context, messageID string) error {
	return m.Called(ctx, messageID).Error(0)
}

func (m *mockMessageRepo) DeleteMessage(ctx context.Context, messageID string) error {
	return m.Called(ctx, messageID).Error(0)
}

func (m *mockMessageRepo) ListMessageIDsCreatedBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	args := m.Called(ctx, cutoff)
	ids, _ := args.Get(0).([]string)
	return ids, args.Error(1)
}

func (m *mockMessageRepo) DeleteMessages(ctx context.Context, messageIDs []string) error {
	return m.Called(ctx, messageIDs).Error(0)
}

type mockIdentityRepo struct{ mock.Mock }

func (m *mockIdentityRepo) GetIdentity(ctx context.Context, key string) (*domain.Identity, error) {
	args := m.Called(ctx, key)
	id, _ := args.Get(0).(*domain.Identity)
	return id, args.Error(1)
}

func (m *mockIdentityRepo) UpsertIdentity(ctx context.Context, key string, update domain.IdentityUpdate) error {
	return m.Called(ctx, key, update).Error(0)
}
