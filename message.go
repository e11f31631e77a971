package minimail

import (
	"context"
	"fmt"
	"time"

	"github.com/minimail/minimail/store"
)

// MessageView provides read access to a message snapshot.
//
// A Message is a snapshot of state at retrieval time. After mutations,
// getters may return stale values; call Mailbox.Get() again for fresh state.
type MessageView interface {
	ID() string
	Collection() Collection
	Sender() string
	Recipients() []string
	Subject() string
	Body() string
	SentAt() time.Time
	// UpdatedAt is the last modification time. For drafts this is the
	// last save; for delivered copies it changes with read-flag updates.
	UpdatedAt() time.Time
	IsRead() bool
}

// MessageMutator provides mutation operations on a single message.
type MessageMutator interface {
	// Update updates the message flags (read status).
	// Use MarkRead() and MarkUnread() helpers.
	Update(ctx context.Context, flags Flags) error

	// Delete removes this copy of the message. Other copies of the same
	// send are unaffected.
	Delete(ctx context.Context) error
}

// Message provides access to a message with mutation capabilities.
//
// Composed of:
//   - MessageView: Read-only snapshot access (ID, Subject, Body, etc.)
//   - MessageMutator: Mutations scoped to the owning user (Update, Delete)
type Message interface {
	MessageView
	MessageMutator
}

// message is the internal implementation of Message.
type message struct {
	record  *store.MessageRecord
	mailbox *userMailbox
}

// newMessage wraps a store record with mailbox operations.
// Ownership is verified by the caller before calling this.
func newMessage(record *store.MessageRecord, m *userMailbox) *message {
	return &message{
		record:  record,
		mailbox: m,
	}
}

func (m *message) ID() string             { return m.record.ID }
func (m *message) Collection() Collection { return m.record.Collection }
func (m *message) Sender() string         { return m.record.Sender }
func (m *message) Subject() string        { return m.record.Subject }
func (m *message) Body() string           { return m.record.Body }
func (m *message) SentAt() time.Time      { return m.record.SentAt }
func (m *message) UpdatedAt() time.Time   { return m.record.UpdatedAt }
func (m *message) IsRead() bool           { return m.record.Read }

func (m *message) Recipients() []string {
	return append([]string(nil), m.record.Recipients...)
}

// Update updates the message flags.
// Delegates to userMailbox.UpdateFlags to ensure consistent event publishing.
func (m *message) Update(ctx context.Context, flags Flags) error {
	return m.mailbox.UpdateFlags(ctx, m.record.ID, flags)
}

// Delete removes this copy of the message.
// Delegates to userMailbox.Delete for consistent behavior.
func (m *message) Delete(ctx context.Context) error {
	return m.mailbox.Delete(ctx, m.record.Collection, m.record.ID)
}

// Compile-time check that message implements Message.
var _ Message = (*message)(nil)

// MessageListReader provides read-only access to a page of messages.
type MessageListReader interface {
	// All returns all messages in this page, in stored order.
	All() []Message
	// Count returns the number of messages in this page.
	Count() int
	// IDs returns the IDs of all messages in this page.
	IDs() []string
	// NextCursor returns the StartAfter cursor for fetching the next page,
	// or an empty string when this page is empty.
	NextCursor() string
}

// MessageListMutator provides bulk mutation operations on a page of messages.
type MessageListMutator interface {
	// MarkRead marks all messages in this page as read.
	MarkRead(ctx context.Context) (*BulkResult, error)
	// MarkUnread marks all messages in this page as unread.
	MarkUnread(ctx context.Context) (*BulkResult, error)
	// Delete removes all messages in this page from their collections.
	Delete(ctx context.Context) (*BulkResult, error)
}

// MessageList provides access to a page of messages with bulk operations.
//
// Composed of:
//   - MessageListReader: Read-only access (All, Count, IDs, NextCursor)
//   - MessageListMutator: Bulk mutations (MarkRead, MarkUnread, Delete)
type MessageList interface {
	MessageListReader
	MessageListMutator
}

// OperationResult contains the result of a single operation within a bulk operation.
// Results are returned in the same order as the input items.
type OperationResult struct {
	// ID is the identifier of the item that was processed.
	ID string
	// Success indicates whether the operation succeeded.
	Success bool
	// Error contains the error if the operation failed (nil if successful).
	Error error
}

// BulkResult contains the result of a bulk operation.
// Results are returned in order, matching the input order.
type BulkResult struct {
	// Results contains the outcome of each operation in input order.
	Results []OperationResult
}

// SuccessCount returns the number of successful operations.
func (r *BulkResult) SuccessCount() int {
	count := 0
	for _, res := range r.Results {
		if res.Success {
			count++
		}
	}
	return count
}

// FailureCount returns the number of failed operations.
func (r *BulkResult) FailureCount() int {
	count := 0
	for _, res := range r.Results {
		if !res.Success {
			count++
		}
	}
	return count
}

// HasFailures returns true if any operations failed.
func (r *BulkResult) HasFailures() bool {
	for _, res := range r.Results {
		if !res.Success {
			return true
		}
	}
	return false
}

// TotalCount returns the total number of items processed.
func (r *BulkResult) TotalCount() int {
	return len(r.Results)
}

// FailedIDs returns the IDs of items that failed.
func (r *BulkResult) FailedIDs() []string {
	var ids []string
	for _, res := range r.Results {
		if !res.Success {
			ids = append(ids, res.ID)
		}
	}
	return ids
}

// Err returns an error if there are failures, nil otherwise.
func (r *BulkResult) Err() error {
	if !r.HasFailures() {
		return nil
	}
	return &BulkOperationError{Result: r}
}

// BulkOperationError is returned when a bulk operation has partial failures.
// It wraps BulkResult to provide the error interface while guaranteeing a
// non-empty Error().
type BulkOperationError struct {
	Result *BulkResult
}

// Error implements the error interface.
func (e *BulkOperationError) Error() string {
	return fmt.Sprintf("minimail: bulk operation failed for %d of %d items",
		e.Result.FailureCount(), e.Result.TotalCount())
}

// messageList is the internal implementation of MessageList.
type messageList struct {
	messages []Message
	mailbox  *userMailbox
}

// wrapMessageList converts store records to a MessageList.
func wrapMessageList(records []*store.MessageRecord, m *userMailbox) MessageList {
	messages := make([]Message, len(records))
	for i, record := range records {
		messages[i] = newMessage(record, m)
	}
	return &messageList{
		messages: messages,
		mailbox:  m,
	}
}

func (l *messageList) All() []Message { return l.messages }
func (l *messageList) Count() int     { return len(l.messages) }

func (l *messageList) IDs() []string {
	ids := make([]string, len(l.messages))
	for i, msg := range l.messages {
		ids[i] = msg.ID()
	}
	return ids
}

func (l *messageList) NextCursor() string {
	if len(l.messages) == 0 {
		return ""
	}
	return l.messages[len(l.messages)-1].ID()
}

// Bulk operations

func (l *messageList) MarkRead(ctx context.Context) (*BulkResult, error) {
	return l.bulkOp(func(msg Message) error {
		return msg.Update(ctx, MarkRead())
	})
}

func (l *messageList) MarkUnread(ctx context.Context) (*BulkResult, error) {
	return l.bulkOp(func(msg Message) error {
		return msg.Update(ctx, MarkUnread())
	})
}

func (l *messageList) Delete(ctx context.Context) (*BulkResult, error) {
	return l.bulkOp(func(msg Message) error {
		return msg.Delete(ctx)
	})
}

// bulkOp applies op to every message, collecting per-ID outcomes.
func (l *messageList) bulkOp(op func(msg Message) error) (*BulkResult, error) {
	result := &BulkResult{Results: make([]OperationResult, 0, len(l.messages))}

	for _, msg := range l.messages {
		res := OperationResult{ID: msg.ID()}
		if err := op(msg); err != nil {
			res.Error = err
		} else {
			res.Success = true
		}
		result.Results = append(result.Results, res)
	}

	return result, result.Err()
}
