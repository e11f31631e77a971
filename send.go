package minimail

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/minimail/minimail/store"
)

// Compose starts a new message draft.
func (m *userMailbox) Compose() (Draft, error) {
	if err := m.checkAccess(); err != nil {
		return nil, err
	}
	return newDraft(m), nil
}

// EditDraft loads an existing draft for editing.
// Returns ErrNotOwner if the draft belongs to another user.
func (m *userMailbox) EditDraft(ctx context.Context, draftID string) (Draft, error) {
	if err := m.checkAccess(); err != nil {
		return nil, err
	}

	record, err := m.getOwnedDraft(ctx, draftID)
	if err != nil {
		return nil, err
	}
	return loadedDraft(m, record), nil
}

// getOwnedDraft fetches a draft and verifies it belongs to this user.
// Distinguishes ErrNotFound (no such draft) from ErrNotOwner (someone else's).
func (m *userMailbox) getOwnedDraft(ctx context.Context, draftID string) (*store.MessageRecord, error) {
	record, err := m.service.store.GetDraft(ctx, draftID)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, fmt.Errorf("get draft %s: %w", draftID, ErrNotFound)
		}
		if store.IsInvalidID(err) {
			return nil, fmt.Errorf("get draft: %w", ErrInvalidID)
		}
		return nil, fmt.Errorf("get draft: %w", err)
	}
	if record.Owner != m.userID {
		return nil, ErrNotOwner
	}
	return record, nil
}

// saveDraft persists a draft without sending.
// Drafts accept any content within size limits; recipients are not
// validated until send.
func (m *userMailbox) saveDraft(ctx context.Context, data store.DraftData) (*store.MessageRecord, error) {
	if err := m.checkAccess(); err != nil {
		return nil, err
	}

	limits := m.service.opts.getLimits()
	if err := ValidateMessageContentWithLimits(data.Subject, data.Body, limits); err != nil {
		return nil, err
	}

	// Updating an existing draft requires ownership.
	if data.ID != "" {
		if _, err := m.getOwnedDraft(ctx, data.ID); err != nil {
			return nil, err
		}
	}

	data.Owner = m.userID
	record, err := m.service.store.SaveDraft(ctx, data)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, fmt.Errorf("save draft: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("save draft: %w", err)
	}

	m.publishDraftSaved(ctx, record)
	return record, nil
}

func (m *userMailbox) publishDraftSaved(ctx context.Context, record *store.MessageRecord) {
	err := m.service.events.DraftSaved.Publish(ctx, DraftSavedEvent{
		DraftID: record.ID,
		UserID:  m.userID,
		SavedAt: record.UpdatedAt,
	})
	if err != nil {
		m.service.opts.safeEventPublishFailure("DraftSaved", err)
	}
}

// deduplicateRecipients returns a list of unique recipient IDs,
// preserving first-occurrence order.
func deduplicateRecipients(recipientIDs []string) []string {
	seen := make(map[string]bool, len(recipientIDs))
	unique := make([]string, 0, len(recipientIDs))
	for _, id := range recipientIDs {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}
	return unique
}

// validateRecipientAccounts checks that every recipient has a registered
// account. Unknown recipients are collected so the caller gets the full
// list in one error rather than failing on the first.
func (m *userMailbox) validateRecipientAccounts(ctx context.Context, recipientIDs []string) error {
	var unknown []string
	for _, id := range recipientIDs {
		if !m.service.accounts.Exists(ctx, id) {
			unknown = append(unknown, id)
		}
	}
	if len(unknown) > 0 {
		return &UnknownRecipientError{Recipients: unknown}
	}
	return nil
}

// fanOut builds the atomic batch for a send: the sender's sent record
// followed by one unread delivered copy per recipient. Every record
// shares the same sender, recipients, subject, body, and timestamp.
func (m *userMailbox) fanOut(recipientIDs []string, subject, body string, sentAt time.Time) []store.MessageData {
	batch := make([]store.MessageData, 0, len(recipientIDs)+1)
	batch = append(batch, store.MessageData{
		Owner:      m.userID,
		Collection: store.CollectionSent,
		Status:     store.StatusSent,
		Sender:     m.userID,
		Recipients: recipientIDs,
		Subject:    subject,
		Body:       body,
		SentAt:     sentAt,
	})
	for _, recipientID := range recipientIDs {
		batch = append(batch, store.MessageData{
			Owner:      recipientID,
			Collection: store.CollectionInbox,
			Status:     store.StatusDelivered,
			Sender:     m.userID,
			Recipients: recipientIDs,
			Subject:    subject,
			Body:       body,
			SentAt:     sentAt,
			Read:       false,
		})
	}
	return batch
}

// send is the core send path shared by SendMessage and SendDraft.
// The fan-out is all-or-nothing: recipients are validated against the
// account store up front, and the whole batch is committed in a single
// atomic store operation. If draftID is non-empty the draft is removed
// after the send commits.
func (m *userMailbox) send(ctx context.Context, recipientIDs []string, subject, body, draftID string) (*store.MessageRecord, error) {
	if err := m.checkAccess(); err != nil {
		return nil, err
	}

	// Duplicate recipients collapse to a single delivery, so dedupe before
	// the recipient count check.
	recipientIDs = deduplicateRecipients(recipientIDs)

	limits := m.service.opts.getLimits()
	if err := ValidateRecipients(recipientIDs, limits); err != nil {
		return nil, err
	}
	if err := ValidateMessageContentWithLimits(subject, body, limits); err != nil {
		return nil, err
	}

	// Setup tracing
	ctx, endSpan := m.service.otel.startSpan(ctx, "minimail.send",
		attribute.String("user_id", m.userID),
		attribute.Int("recipient_count", len(recipientIDs)),
	)
	start := time.Now()
	var sendErr error
	defer func() {
		endSpan(sendErr)
		m.service.otel.recordSend(ctx, time.Since(start), len(recipientIDs), sendErr)
	}()

	// Acquire send semaphore
	if err := m.service.sendSem.Acquire(ctx, 1); err != nil {
		sendErr = err
		return nil, sendErr
	}
	defer m.service.sendSem.Release(1)

	// Every recipient must exist before anything is written.
	if err := m.validateRecipientAccounts(ctx, recipientIDs); err != nil {
		sendErr = err
		return nil, sendErr
	}

	sentAt := m.service.opts.now().UTC()
	batch := m.fanOut(recipientIDs, subject, body, sentAt)

	records, err := m.service.store.CreateMessages(ctx, batch)
	if err != nil {
		sendErr = fmt.Errorf("commit send: %w", err)
		return nil, sendErr
	}
	sentRecord := records[0]

	// The draft is consumed by a successful send. A failed removal leaves
	// a stale draft behind but the message is already delivered, so log
	// instead of failing the send.
	if draftID != "" {
		if err := m.service.store.DeleteDraft(ctx, draftID); err != nil && !store.IsNotFound(err) {
			m.service.logger.Warn("failed to remove draft after send",
				"draft_id", draftID, "error", err)
		}
	}

	m.service.logger.Info("message sent",
		"message_id", sentRecord.ID,
		"sender", m.userID,
		"recipients", len(recipientIDs),
	)

	if err := m.publishMessageSent(ctx, sentRecord); err != nil {
		sendErr = err
		return sentRecord, sendErr
	}

	return sentRecord, nil
}

func (m *userMailbox) publishMessageSent(ctx context.Context, record *store.MessageRecord) error {
	err := m.service.events.MessageSent.Publish(ctx, MessageSentEvent{
		MessageID:    record.ID,
		SenderID:     record.Sender,
		RecipientIDs: record.Recipients,
		Subject:      record.Subject,
		SentAt:       record.SentAt,
	})
	if err != nil {
		if m.service.opts.eventErrorsFatal {
			return &EventPublishError{Operation: "send", Err: err}
		}
		m.service.opts.safeEventPublishFailure("MessageSent", err)
	}
	return nil
}

// SendMessage sends a message directly, without going through a draft.
func (m *userMailbox) SendMessage(ctx context.Context, req SendRequest) (Message, error) {
	record, err := m.send(ctx, req.RecipientIDs, req.Subject, req.Body, "")
	if record != nil {
		return newMessage(record, m), err
	}
	return nil, err
}

// SendDraft sends a previously saved draft. The draft's stored content is
// used as-is; on success the draft is removed from the drafts collection.
func (m *userMailbox) SendDraft(ctx context.Context, draftID string) (Message, error) {
	if err := m.checkAccess(); err != nil {
		return nil, err
	}

	draft, err := m.getOwnedDraft(ctx, draftID)
	if err != nil {
		return nil, err
	}

	record, sendErr := m.send(ctx, draft.Recipients, draft.Subject, draft.Body, draft.ID)
	if record != nil {
		return newMessage(record, m), sendErr
	}
	return nil, sendErr
}
