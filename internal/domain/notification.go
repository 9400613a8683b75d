package domain

import (
	"context"
)

const (
	DefaultTitle     = "New Message"
	AttachmentPrefix = "📎 "
	NotificationType = "message"
	TopicPrefix      = "customer_"
)

// PushNotification is the platform independent part of a push: the visible
// notification plus the data block the app reads.
type PushNotification struct {
	Title string
	Body  string
	Data  map[string]string
}

// MulticastResult summarises a send to explicit device tokens.
type MulticastResult struct {
	SuccessCount int
	FailureCount int
	// FailedTokens maps each rejected token to the reason.
	FailedTokens map[string]string
}

// Pusher delivers pushes through the messaging service.
type Pusher interface {
	SendToTokens(ctx context.Context, tokens []string, n *PushNotification) (*MulticastResult, error)
	SendToTopic(ctx context.Context, topic string, n *PushNotification) (string, error)
}

// DispatchLedger records which messages have already been pushed.
type DispatchLedger interface {
	// ClaimDispatch returns ErrAlreadyDispatched if messageID was claimed before.
	ClaimDispatch(ctx context.Context, messageID, customerID string) error
}

// BuildPushNotification renders the push for a message.
func BuildPushNotification(m *Message) *PushNotification {
	title := m.Heading
	if title == "" {
		title = DefaultTitle
	}
	if m.HasAttachments() {
		title = AttachmentPrefix + title
	}

	return &PushNotification{
		Title: title,
		Body:  m.Body,
		Data: map[string]string{
			"messageId":  m.ID,
			"customerId": m.CustomerID,
			"title":      title,
			"body":       m.Body,
			"type":       NotificationType,
		},
	}
}

// CustomerTopic is the topic every device of a customer subscribes to.
func CustomerTopic(customerID string) string {
	return TopicPrefix + customerID
}
