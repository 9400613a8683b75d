package domain

import (
	"context"
	"fmt"

	"github.com/upay/backend/pkg/validator"
)

// MarkReadRequest is the argument of markMessageAsRead.
type MarkReadRequest struct {
	MessageID string `json:"messageId" validate:"required"`
}

// DeleteMessageRequest is the argument of deleteMessage.
type DeleteMessageRequest struct {
	MessageID string `json:"messageId" validate:"required"`
}

// MessageService backs the message callables.
type MessageService struct {
	repo MessageRepository
}

func NewMessageService(repo MessageRepository) *MessageService {
	return &MessageService{repo: repo}
}

// MarkRead flags a message as read and stamps readAt.
func (s *MessageService) MarkRead(ctx context.Context, req MarkReadRequest) error {
	if errs := validator.Struct(req); errs.HasErrors() {
		return invalidArgument("Message ID is required", errs)
	}
	if err := s.repo.MarkMessageRead(ctx, req.MessageID); err != nil {
		return fmt.Errorf("mark message %s read: %w", req.MessageID, err)
	}
	return nil
}

// Delete removes a message.
func (s *MessageService) Delete(ctx context.Context, req DeleteMessageRequest) error {
	if errs := validator.Struct(req); errs.HasErrors() {
		return invalidArgument("Message ID is required", errs)
	}
	if err := s.repo.DeleteMessage(ctx, req.MessageID); err != nil {
		return fmt.Errorf("delete message %s: %w", req.MessageID, err)
	}
	return nil
}

func invalidArgument(message string, errs validator.ValidationErrors) *ValidationError {
	fields := make([]string, 0, len(errs))
	for _, e := range errs {
		fields = append(fields, e.Field)
	}
	return &ValidationError{Message: message, Fields: fields}
}
