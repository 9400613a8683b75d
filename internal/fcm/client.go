package fcm

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"

	"github.com/upay/backend/internal/domain"
)

// Delivery hints shared by every push. The Flutter app registers the
// high importance channel and handles the click action.
const (
	Sound           = "default"
	Badge           = 1
	ClickAction     = "FLUTTER_NOTIFICATION_CLICK"
	AndroidChannel  = "high_importance_channel"
	AndroidPriority = "high"
)

type Client struct {
	msgClient *messaging.Client
	logger    *zap.Logger
}

func NewClient(ctx context.Context, app *firebase.App, logger *zap.Logger) (*Client, error) {
	msgClient, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting messaging client: %w", err)
	}

	return &Client{
		msgClient: msgClient,
		logger:    logger,
	}, nil
}

// SendToTokens sends one multicast message addressed to tokens.
func (c *Client) SendToTokens(ctx context.Context, tokens []string, n *domain.PushNotification) (*domain.MulticastResult, error) {
	if len(tokens) == 0 {
		return &domain.MulticastResult{}, nil
	}

	resp, err := c.msgClient.SendEachForMulticast(ctx, NewMulticastMessage(tokens, n))
	if err != nil {
		c.logger.Error("Failed to send FCM multicast", zap.Int("tokens", len(tokens)), zap.Error(err))
		return nil, err
	}
	return multicastResult(tokens, resp), nil
}

// SendToTopic sends n to every device subscribed to topic and returns the
// message id assigned by FCM.
func (c *Client) SendToTopic(ctx context.Context, topic string, n *domain.PushNotification) (string, error) {
	id, err := c.msgClient.Send(ctx, NewTopicMessage(topic, n))
	if err != nil {
		c.logger.Error("Failed to send FCM topic message", zap.String("topic", topic), zap.Error(err))
		return "", err
	}
	return id, nil
}

// NewMulticastMessage builds the direct-to-device variant of a push.
func NewMulticastMessage(tokens []string, n *domain.PushNotification) *messaging.MulticastMessage {
	return &messaging.MulticastMessage{
		Tokens:       tokens,
		Notification: notification(n),
		Data:         n.Data,
		Android:      androidConfig(),
		APNS:         apnsConfig(),
	}
}

// NewTopicMessage builds the topic broadcast variant of a push.
func NewTopicMessage(topic string, n *domain.PushNotification) *messaging.Message {
	return &messaging.Message{
		Topic:        topic,
		Notification: notification(n),
		Data:         n.Data,
		Android:      androidConfig(),
		APNS:         apnsConfig(),
	}
}

func notification(n *domain.PushNotification) *messaging.Notification {
	return &messaging.Notification{
		Title: n.Title,
		Body:  n.Body,
	}
}

func androidConfig() *messaging.AndroidConfig {
	return &messaging.AndroidConfig{
		Priority: AndroidPriority,
		Notification: &messaging.AndroidNotification{
			Sound:       Sound,
			ClickAction: ClickAction,
			ChannelID:   AndroidChannel,
			Priority:    messaging.PriorityHigh,
		},
	}
}

func apnsConfig() *messaging.APNSConfig {
	badge := Badge
	return &messaging.APNSConfig{
		Payload: &messaging.APNSPayload{
			Aps: &messaging.Aps{
				Sound:            Sound,
				Badge:            &badge,
				ContentAvailable: true,
				Category:         ClickAction,
			},
		},
	}
}

func multicastResult(tokens []string, resp *messaging.BatchResponse) *domain.MulticastResult {
	result := &domain.MulticastResult{
		SuccessCount: resp.SuccessCount,
		FailureCount: resp.FailureCount,
	}
	if resp.FailureCount == 0 {
		return result
	}

	result.FailedTokens = make(map[string]string, resp.FailureCount)
	for i, r := range resp.Responses {
		if r == nil || r.Success || i >= len(tokens) {
			continue
		}
		reason := "unknown"
		if r.Error != nil {
			reason = r.Error.Error()
		}
		result.FailedTokens[tokens[i]] = reason
	}
	return result
}
