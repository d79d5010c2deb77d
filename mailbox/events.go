package mailbox

import (
	"context"
	"fmt"
	"time"

	"github.com/rbaliyan/event/v3"
)

// Event names.
const (
	EventNameMessageSent    = "conversation.message.sent"
	EventNameMessageRead    = "conversation.message.read"
	EventNameMessageDeleted = "conversation.message.deleted"
)

// MessageSentEvent is published once per send, after every recipient copy
// has been written.
type MessageSentEvent struct {
	MessageID    string    `json:"message_id"`
	ThreadID     string    `json:"thread_id"`
	SenderID     string    `json:"sender_id"`
	RecipientIDs []string  `json:"recipient_ids"`
	Subject      string    `json:"subject"`
	SentAt       time.Time `json:"sent_at"`
}

// MessageReadEvent is published the first time a copy is opened.
type MessageReadEvent struct {
	MessageID string    `json:"message_id"`
	UserID    string    `json:"user_id"`
	ReadAt    time.Time `json:"read_at"`
}

// MessageDeletedEvent is published when a copy is permanently deleted.
type MessageDeletedEvent struct {
	MessageID string    `json:"message_id"`
	UserID    string    `json:"user_id"`
	DeletedAt time.Time `json:"deleted_at"`
}

// Events holds the events of one service, bound to its own bus.
type Events struct {
	MessageSent    event.Event[MessageSentEvent]
	MessageRead    event.Event[MessageReadEvent]
	MessageDeleted event.Event[MessageDeletedEvent]
}

func newEvents(prefix string) *Events {
	return &Events{
		MessageSent:    event.New[MessageSentEvent](prefix + "." + EventNameMessageSent),
		MessageRead:    event.New[MessageReadEvent](prefix + "." + EventNameMessageRead),
		MessageDeleted: event.New[MessageDeletedEvent](prefix + "." + EventNameMessageDeleted),
	}
}

func (e *Events) register(ctx context.Context, bus *event.Bus) error {
	if err := event.Register(ctx, bus, e.MessageSent); err != nil {
		return fmt.Errorf("register MessageSent: %w", err)
	}
	if err := event.Register(ctx, bus, e.MessageRead); err != nil {
		return fmt.Errorf("register MessageRead: %w", err)
	}
	if err := event.Register(ctx, bus, e.MessageDeleted); err != nil {
		return fmt.Errorf("register MessageDeleted: %w", err)
	}
	return nil
}

// publish reports a failed publish through the logger, or as an
// *EventPublishError when event errors are fatal.
func publish[T any](ctx context.Context, s *Service, ev event.Event[T], name, messageID string, data T) error {
	if err := ev.Publish(ctx, data); err != nil {
		s.logger.Error("failed to publish event", "event", name, "message_id", messageID, "error", err)
		if s.opts.eventErrorsFatal {
			return &EventPublishError{Event: name, MessageID: messageID, Err: err}
		}
	}
	return nil
}
