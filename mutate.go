package minimail

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/minimail/minimail/store"
)

// UpdateFlags updates message flags (read status).
// Only inbox messages carry a read flag; setting a flag to its current
// value is a no-op, not an error.
func (m *userMailbox) UpdateFlags(ctx context.Context, messageID string, flags Flags) error {
	if err := m.checkAccess(); err != nil {
		return err
	}

	if flags.Read == nil {
		return nil
	}

	// OTel tracing
	ctx, endSpan := m.service.otel.startSpan(ctx, "minimail.update_flags",
		attribute.String("user_id", m.userID),
		attribute.String("message_id", messageID),
	)
	start := time.Now()
	var updateErr error
	defer func() {
		endSpan(updateErr)
		m.service.otel.recordUpdate(ctx, time.Since(start), "flags", updateErr)
	}()

	if err := m.service.store.MarkRead(ctx, m.userID, messageID, *flags.Read); err != nil {
		if store.IsNotFound(err) {
			updateErr = ErrNotFound
			return fmt.Errorf("mark read %s: %w", messageID, ErrNotFound)
		}
		if store.IsInvalidID(err) {
			updateErr = ErrInvalidID
			return fmt.Errorf("mark read: %w", ErrInvalidID)
		}
		updateErr = err
		return fmt.Errorf("mark read: %w", err)
	}

	// Publish read event
	if err := m.service.events.MessageRead.Publish(ctx, MessageReadEvent{
		MessageID: messageID,
		UserID:    m.userID,
		Read:      *flags.Read,
		ChangedAt: m.service.opts.now().UTC(),
	}); err != nil {
		if m.service.opts.eventErrorsFatal {
			updateErr = &EventPublishError{Operation: "update_flags", Err: err}
			return updateErr
		}
		m.service.opts.safeEventPublishFailure("MessageRead", err)
	}

	return nil
}

// MarkAllRead marks every unread inbox message as read and returns the
// number of messages changed.
func (m *userMailbox) MarkAllRead(ctx context.Context) (int64, error) {
	if err := m.checkAccess(); err != nil {
		return 0, err
	}

	ctx, endSpan := m.service.otel.startSpan(ctx, "minimail.mark_all_read",
		attribute.String("user_id", m.userID),
	)
	start := time.Now()
	var updateErr error
	defer func() {
		endSpan(updateErr)
		m.service.otel.recordUpdate(ctx, time.Since(start), "mark_all_read", updateErr)
	}()

	changed, err := m.service.store.MarkAllRead(ctx, m.userID)
	if err != nil {
		updateErr = err
		return 0, fmt.Errorf("mark all read: %w", err)
	}

	return changed, nil
}

// Delete removes a message from one of the user's collections.
//
// Every copy produced by a send is independent: deleting a delivered
// inbox copy leaves the sender's sent record (and every other recipient's
// copy) untouched, and vice versa. For drafts, ErrNotOwner is returned
// when the draft exists but belongs to another user.
func (m *userMailbox) Delete(ctx context.Context, col Collection, messageID string) error {
	if err := m.checkAccess(); err != nil {
		return err
	}

	ctx, endSpan := m.service.otel.startSpan(ctx, "minimail.delete",
		attribute.String("user_id", m.userID),
		attribute.String("collection", string(col)),
		attribute.String("message_id", messageID),
	)
	start := time.Now()
	var deleteErr error
	defer func() {
		endSpan(deleteErr)
		m.service.otel.recordDelete(ctx, time.Since(start), string(col), deleteErr)
	}()

	// Drafts have a global ID space, so a miss in this user's collection
	// may be someone else's draft rather than a missing one.
	if col == store.CollectionDrafts {
		if _, err := m.getOwnedDraft(ctx, messageID); err != nil {
			deleteErr = err
			return err
		}
	}

	if err := m.service.store.Delete(ctx, m.userID, col, messageID); err != nil {
		if store.IsNotFound(err) {
			deleteErr = ErrNotFound
			return fmt.Errorf("delete message %s: %w", messageID, ErrNotFound)
		}
		if store.IsInvalidID(err) {
			deleteErr = ErrInvalidID
			return fmt.Errorf("delete message: %w", ErrInvalidID)
		}
		deleteErr = err
		return fmt.Errorf("delete message: %w", err)
	}

	// Publish deleted event
	if err := m.service.events.MessageDeleted.Publish(ctx, MessageDeletedEvent{
		MessageID: messageID,
		UserID:    m.userID,
		DeletedAt: m.service.opts.now().UTC(),
	}); err != nil {
		if m.service.opts.eventErrorsFatal {
			deleteErr = &EventPublishError{Operation: "delete", Err: err}
			return deleteErr
		}
		m.service.opts.safeEventPublishFailure("MessageDeleted", err)
	}

	return nil
}
