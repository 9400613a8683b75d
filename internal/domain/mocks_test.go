package domain

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

type mockIdentityRepo struct{ mock.Mock }

func (m *mockIdentityRepo) GetIdentity(ctx context.Context, key string) (*Identity, error) {
	args := m.Called(ctx, key)
	if id, _ := args.Get(0).(*Identity); id != nil {
		return id, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockIdentityRepo) UpsertIdentity(ctx context.Context, key string, update IdentityUpdate) error {
	return m.Called(ctx, key, update).Error(0)
}

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

type mockPusher struct{ mock.Mock }

func (m *mockPusher) SendToTokens(ctx context.Context, tokens []string, n *PushNotification) (*MulticastResult, error) {
	args := m.Called(ctx, tokens, n)
	if r, _ := args.Get(0).(*MulticastResult); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPusher) SendToTopic(ctx context.Context, topic string, n *PushNotification) (string, error) {
	args := m.Called(ctx, topic, n)
	return args.String(0), args.Error(1)
}

type mockLedger struct{ mock.Mock }

func (m *mockLedger) ClaimDispatch(ctx context.Context, messageID, customerID string) error {
	return m.Called(ctx, messageID, customerID).Error(0)
}
