package minimail

import (
	"context"
	"fmt"
	"time"

	"github.com/rbaliyan/event/v3"
)

// Event names for minimail events.
const (
	EventNameMessageSent    = "minimail.message.sent"
	EventNameMessageRead    = "minimail.message.read"
	EventNameMessageDeleted = "minimail.message.deleted"
	EventNameDraftSaved     = "minimail.draft.saved"
)

// MessageSentEvent is published when a message is sent.
// This is the primary event for notifying recipients of new mail.
type MessageSentEvent struct {
	MessageID    string    `json:"message_id"`
	SenderID     string    `json:"sender_id"`
	RecipientIDs []string  `json:"recipient_ids"`
	Subject      string    `json:"subject"`
	SentAt       time.Time `json:"sent_at"`
}

// MessageReadEvent is published when a message's read flag changes.
type MessageReadEvent struct {
	MessageID string    `json:"message_id"`
	UserID    string    `json:"user_id"`
	Read      bool      `json:"read"`
	ChangedAt time.Time `json:"changed_at"`
}

// MessageDeletedEvent is published when a message is deleted from a mailbox.
// Deletion only affects the owner's copy; other copies of the same send
// are untouched and no event is published for them.
type MessageDeletedEvent struct {
	MessageID string    `json:"message_id"`
	UserID    string    `json:"user_id"`
	DeletedAt time.Time `json:"deleted_at"`
}

// DraftSavedEvent is published when a draft is created or updated.
type DraftSavedEvent struct {
	DraftID string    `json:"draft_id"`
	UserID  string    `json:"user_id"`
	SavedAt time.Time `json:"saved_at"`
}

// ServiceEvents provides access to per-service event instances.
// Each service creates its own events bound to its own event bus,
// enabling independent event routing and parallel testing.
//
// Subscribe to events:
//
//	svc.Events().MessageSent.Subscribe(ctx, handler)
//	svc.Events().MessageRead.Subscribe(ctx, handler)
type ServiceEvents struct {
	// MessageSent is published when a message is sent.
	MessageSent event.Event[MessageSentEvent]

	// MessageRead is published when a message's read flag changes.
	MessageRead event.Event[MessageReadEvent]

	// MessageDeleted is published when a message is deleted.
	MessageDeleted event.Event[MessageDeletedEvent]

	// DraftSaved is published when a draft is created or updated.
	DraftSaved event.Event[DraftSavedEvent]
}

// newServiceEvents creates per-service event instances with a unique name prefix.
func newServiceEvents(namePrefix string) *ServiceEvents {
	return &ServiceEvents{
		MessageSent:    event.New[MessageSentEvent](namePrefix + "." + EventNameMessageSent),
		MessageRead:    event.New[MessageReadEvent](namePrefix + "." + EventNameMessageRead),
		MessageDeleted: event.New[MessageDeletedEvent](namePrefix + "." + EventNameMessageDeleted),
		DraftSaved:     event.New[DraftSavedEvent](namePrefix + "." + EventNameDraftSaved),
	}
}

// registerServiceEvents registers per-service events with the given bus.
func registerServiceEvents(ctx context.Context, bus *event.Bus, events *ServiceEvents) error {
	if err := event.Register(ctx, bus, events.MessageSent); err != nil {
		return fmt.Errorf("register MessageSent: %w", err)
	}
	if err := event.Register(ctx, bus, events.MessageRead); err != nil {
		return fmt.Errorf("register MessageRead: %w", err)
	}
	if err := event.Register(ctx, bus, events.MessageDeleted); err != nil {
		return fmt.Errorf("register MessageDeleted: %w", err)
	}
	if err := event.Register(ctx, bus, events.DraftSaved); err != nil {
		return fmt.Errorf("register DraftSaved: %w", err)
	}
	return nil
}
