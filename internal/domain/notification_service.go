package domain

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/upay/backend/internal/metrics"
	"github.com/upay/backend/pkg/validator"
)

// NotificationService turns newly created messages into pushes.
type NotificationService struct {
	identities IdentityRepository
	ledger     DispatchLedger
	pusher     Pusher
	logger     *zap.Logger
}

func NewNotificationService(identities IdentityRepository, ledger DispatchLedger, pusher Pusher, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		identities: identities,
		ledger:     ledger,
		pusher:     pusher,
		logger:     logger,
	}
}

// HandleMessageCreated reacts to a new message document. The write has
// already happened, so nothing is returned: failures are logged and dropped.
// Safe to call more than once for the same message.
func (s *NotificationService) HandleMessageCreated(ctx context.Context, msg *Message) {
	log := s.logger.With(zap.String("message_id", msg.ID))

	if msg.CustomerID == "" {
		log.Info("message has no customerId, skipping notification")
		metrics.DispatchEvents.WithLabelValues("skipped").Inc()
		return
	}
	log = log.With(zap.String("customer_id", msg.CustomerID))

	if s.ledger != nil {
		if err := s.ledger.ClaimDispatch(ctx, msg.ID, msg.CustomerID); err != nil {
			if errors.Is(err, ErrAlreadyDispatched) {
				log.Info("message already dispatched, ignoring duplicate event")
				metrics.DispatchEvents.WithLabelValues("duplicate").Inc()
				return
			}
			log.Error("failed to claim dispatch", zap.Error(err))
			metrics.DispatchEvents.WithLabelValues("failed").Inc()
			return
		}
	}

	metrics.DispatchEvents.WithLabelValues("dispatched").Inc()
	s.send(ctx, log, msg, s.resolveTokens(ctx, log, msg))
}

func (s *NotificationService) resolveTokens(ctx context.Context, log *zap.Logger, msg *Message) []string {
	if msg.CustomerNIC == "" {
		return nil
	}

	key := validator.SanitizeKey(msg.CustomerNIC)
	identity, err := s.identities.GetIdentity(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Error("failed to load identity", zap.String("identity_key", key), zap.Error(err))
		}
		return nil
	}
	if identity.FCMToken == "" {
		return nil
	}
	return []string{identity.FCMToken}
}

// send pushes to the resolved tokens and then, always, to the customer topic.
// Clients deduplicate the two copies by messageId.
func (s *NotificationService) send(ctx context.Context, log *zap.Logger, msg *Message, tokens []string) {
	push := BuildPushNotification(msg)
	topic := CustomerTopic(msg.CustomerID)

	if len(tokens) > 0 {
		log.Info("sending notification to tokens", zap.Int("tokens", len(tokens)))
		result, err := s.pusher.SendToTokens(ctx, tokens, push)
		switch {
		case err != nil:
			log.Error("multicast send failed", zap.Error(err))
			metrics.PushSends.WithLabelValues("multicast", "failure").Inc()
		case result.FailureCount > 0:
			for token, reason := range result.FailedTokens {
				log.Warn("token rejected", zap.String("token", token), zap.String("reason", reason))
			}
			metrics.PushSends.WithLabelValues("multicast", "partial").Inc()
		default:
			metrics.PushSends.WithLabelValues("multicast", "success").Inc()
		}
	} else {
		log.Info("no device token resolved, sending to topic only", zap.String("topic", topic))
	}

	id, err := s.pusher.SendToTopic(ctx, topic, push)
	if err != nil {
		log.Error("topic send failed", zap.String("topic", topic), zap.Error(err))
		metrics.PushSends.WithLabelValues("topic", "failure").Inc()
		return
	}
	metrics.PushSends.WithLabelValues("topic", "success").Inc()
	log.Info("notification sent", zap.String("topic", topic), zap.String("fcm_message_id", id))
}
