package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Field names of a message document.
const (
	FieldCustomerID  = "customerId"
	FieldCustomerNIC = "customerNic"
	FieldHeading     = "heading"
	FieldMessage     = "message"
	FieldAttachments = "attachments"
	FieldCreatedAt   = "createdAt"
	FieldIsRead      = "isRead"
	FieldReadAt      = "readAt"
)

// Message is an inbox entry written by the core banking side.
type Message struct {
	ID          string
	CustomerID  string
	CustomerNIC string
	Heading     string
	Body        string
	Attachments []interface{}
	CreatedAt   time.Time
	IsRead      bool
	ReadAt      *time.Time
}

// HasAttachments reports whether the message carries at least one attachment.
func (m *Message) HasAttachments() bool {
	return len(m.Attachments) > 0
}

// MessageFromData decodes raw document fields. Writers are not consistent
// about types, so ids stored as numbers are normalised to strings.
func MessageFromData(id string, data map[string]interface{}) *Message {
	m := &Message{
		ID:          id,
		CustomerID:  stringField(data[FieldCustomerID]),
		CustomerNIC: stringField(data[FieldCustomerNIC]),
		Heading:     stringField(data[FieldHeading]),
		Body:        stringField(data[FieldMessage]),
	}
	if list, ok := data[FieldAttachments].([]interface{}); ok {
		m.Attachments = list
	}
	if ts, ok := data[FieldCreatedAt].(time.Time); ok {
		m.CreatedAt = ts
	}
	if read, ok := data[FieldIsRead].(bool); ok {
		m.IsRead = read
	}
	if ts, ok := data[FieldReadAt].(time.Time); ok {
		m.ReadAt = &ts
	}
	return m
}

func stringField(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case int:
		return strconv.Itoa(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}

// FlexString accepts a JSON string or number. Mobile clients send customer
// ids either way.
type FlexString string

func (s *FlexString) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		*s = ""
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*s = FlexString(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(b, &num); err != nil {
		return fmt.Errorf("expected string or number: %w", err)
	}
	*s = FlexString(num.String())
	return nil
}

// MessageRepository defines the message writes the service performs
type MessageRepository interface {
	MarkMessageRead(ctx context.Context, messageID string) error
	DeleteMessage(ctx context.Context, messageID string) error
	ListMessageIDsCreatedBefore(ctx context.Context, cutoff time.Time) ([]string, error)
	// DeleteMessages removes all ids in one atomic write.
	DeleteMessages(ctx context.Context, messageIDs []string) error
}
