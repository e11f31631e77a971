package minimail

import (
	"context"
	"time"

	"github.com/minimail/minimail/store"
)

// DraftReader provides read access to draft content.
type DraftReader interface {
	// ID returns the draft ID if saved, empty string otherwise.
	ID() string
	Subject() string
	Body() string
	Recipients() []string
	// UpdatedAt returns the last save time; zero for unsaved drafts.
	UpdatedAt() time.Time
}

// DraftComposer provides fluent setter methods for composing a draft.
// All setter methods return DraftComposer to enable chaining:
//
//	draft.SetRecipients("user1").SetSubject("Hello").SetBody("World")
type DraftComposer interface {
	SetRecipients(recipientIDs ...string) DraftComposer
	SetSubject(subject string) DraftComposer
	SetBody(body string) DraftComposer
}

// DraftPublisher provides lifecycle operations that persist or send a draft.
//
// Validation differences between Save() and Send():
//   - Send() requires at least one recipient, all with registered accounts
//   - Save() allows anything within size limits, including empty recipients
//
// This allows users to save incomplete drafts and complete them later.
type DraftPublisher interface {
	// Send validates recipients and sends the draft atomically.
	// If the draft was saved, it is removed from storage on success.
	Send(ctx context.Context) (Message, error)

	// Save saves the draft without sending.
	// The draft can be retrieved later via Drafts() or EditDraft() and completed.
	Save(ctx context.Context) (Draft, error)
}

// DraftMutator provides mutation operations on a draft.
type DraftMutator interface {
	// Delete deletes the draft.
	// If the draft was saved, it's permanently deleted from storage.
	// If the draft was not saved, this is a no-op.
	Delete(ctx context.Context) error
}

// Draft represents a message being composed.
// Use Mailbox.Compose() for a new draft or Mailbox.EditDraft() for a saved one.
//
// Composed of:
//   - DraftReader: Read draft content (ID, Subject, Body, Recipients)
//   - DraftComposer: Fluent setters (SetRecipients, SetSubject, SetBody)
//   - DraftPublisher: Lifecycle operations (Send, Save)
//   - DraftMutator: Mutation operations (Delete)
//
// Usage pattern:
//
//	draft, _ := mailbox.Compose()
//	draft.SetRecipients("user1").SetSubject("Hello").SetBody("World")
//	msg, err := draft.Send(ctx)
type Draft interface {
	DraftReader
	DraftComposer
	DraftPublisher
	DraftMutator
}

// draft is the internal implementation of Draft.
type draft struct {
	mailbox    *userMailbox
	id         string
	recipients []string
	subject    string
	body       string
	updatedAt  time.Time
	saved      bool
}

// newDraft creates a new empty draft for the given mailbox.
func newDraft(m *userMailbox) *draft {
	return &draft{mailbox: m}
}

// loadedDraft wraps an existing stored draft record.
func loadedDraft(m *userMailbox, record *store.MessageRecord) *draft {
	return &draft{
		mailbox:    m,
		id:         record.ID,
		recipients: append([]string(nil), record.Recipients...),
		subject:    record.Subject,
		body:       record.Body,
		updatedAt:  record.UpdatedAt,
		saved:      true,
	}
}

func (d *draft) ID() string           { return d.id }
func (d *draft) Subject() string      { return d.subject }
func (d *draft) Body() string         { return d.body }
func (d *draft) UpdatedAt() time.Time { return d.updatedAt }

func (d *draft) Recipients() []string {
	return append([]string(nil), d.recipients...)
}

// SetRecipients sets the recipient IDs.
func (d *draft) SetRecipients(recipientIDs ...string) DraftComposer {
	d.recipients = append([]string(nil), recipientIDs...)
	return d
}

// SetSubject sets the subject.
func (d *draft) SetSubject(subject string) DraftComposer {
	d.subject = subject
	return d
}

// SetBody sets the body.
func (d *draft) SetBody(body string) DraftComposer {
	d.body = body
	return d
}

// Send validates recipients and sends the draft.
// Creates the sender's sent record and one unread inbox copy per recipient
// in a single atomic batch; a saved draft is removed on success.
func (d *draft) Send(ctx context.Context) (Message, error) {
	msg, err := d.mailbox.send(ctx, d.recipients, d.subject, d.body, d.id)
	if msg != nil {
		d.saved = false
		d.id = ""
		return newMessage(msg, d.mailbox), err
	}
	return nil, err
}

// Save saves the draft without sending.
// The draft can be retrieved later and sent.
func (d *draft) Save(ctx context.Context) (Draft, error) {
	record, err := d.mailbox.saveDraft(ctx, store.DraftData{
		ID:         d.id,
		Recipients: d.recipients,
		Subject:    d.subject,
		Body:       d.body,
	})
	if err != nil {
		return nil, err
	}
	d.id = record.ID
	d.updatedAt = record.UpdatedAt
	d.saved = true
	return d, nil
}

// Delete deletes the draft.
// If the draft was saved, it's permanently deleted from storage.
// If the draft was not saved, this is a no-op.
func (d *draft) Delete(ctx context.Context) error {
	if !d.saved || d.id == "" {
		return nil
	}
	return d.mailbox.Delete(ctx, store.CollectionDrafts, d.id)
}
