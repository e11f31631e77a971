// Package store defines the storage contract for minimail mailboxes.
// Implementations live in store/memory, store/jsonfile, and store/postgres.
//
// A store holds, per user, three ordered collections: inbox, drafts, and
// sent. Records in different collections are fully independent copies -
// deleting or mutating one never affects another. The engine relies on two
// guarantees from every backend:
//
//  1. CreateMessages is atomic: either every record in the batch is
//     committed or none is. A send fan-out (one sent record plus one inbox
//     record per recipient) is a single batch, so no reader can observe a
//     sent record without its deliveries or vice versa.
//
//  2. Snapshot durability: backends that persist to disk write the full
//     post-operation state after each mutation, never an intermediate one.
//     A crash between operations may lose the last operation but can never
//     surface a half-applied send.
package store

import "context"

// Store is the storage interface for mailbox collections.
//
// All list results are returned in stored order (insertion order, oldest
// first). Implementations must be safe for concurrent use.
type Store interface {
	// Lifecycle
	Connect(ctx context.Context) error
	Close(ctx context.Context) error

	// Draft operations - drafts are mutable and owned by a single user
	DraftStore

	// Message operations - sent/delivered records are immutable except
	// for the inbox read flag and existence
	MessageStore
}

// DraftStore provides operations for draft records.
type DraftStore interface {
	// SaveDraft creates a draft when data.ID is empty, otherwise updates
	// the existing draft in place. Returns ErrNotFound if the ID does not
	// exist. Ownership is not checked here; callers compare the returned
	// record's Owner.
	SaveDraft(ctx context.Context, data DraftData) (*MessageRecord, error)

	// GetDraft retrieves a draft by ID, regardless of owner.
	// Returns ErrNotFound if the draft does not exist.
	GetDraft(ctx context.Context, id string) (*MessageRecord, error)

	// DeleteDraft permanently removes a draft.
	// Returns ErrNotFound if the draft does not exist.
	DeleteDraft(ctx context.Context, id string) error
}

// MessageStore provides operations for sent and delivered records.
type MessageStore interface {
	// CreateMessages commits a batch of records atomically. Either all
	// records are created or none are; on error no partial state exists.
	CreateMessages(ctx context.Context, data []MessageData) ([]*MessageRecord, error)

	// Get retrieves a record from one owner's collection.
	// Returns ErrNotFound if absent.
	Get(ctx context.Context, owner string, col Collection, id string) (*MessageRecord, error)

	// List returns an owner's collection in stored order.
	List(ctx context.Context, owner string, col Collection, opts ListOptions) ([]*MessageRecord, error)

	// Search returns records in one owner's collection whose subject or
	// body contains the keyword (case-insensitive). An empty keyword
	// matches everything. Results are in stored order.
	Search(ctx context.Context, query SearchQuery) ([]*MessageRecord, error)

	// MarkRead sets the read flag on an inbox record. Setting the flag to
	// its current value is a no-op, not an error.
	// Returns ErrNotFound if the record is not in the owner's inbox.
	MarkRead(ctx context.Context, owner, id string, read bool) error

	// MarkAllRead marks every unread record in the owner's inbox as read
	// and returns the number of records changed.
	MarkAllRead(ctx context.Context, owner string) (int64, error)

	// Delete removes a record from one owner's collection only.
	// Returns ErrNotFound if absent. For drafts this is equivalent to
	// DeleteDraft with an ownership check.
	Delete(ctx context.Context, owner string, col Collection, id string) error
}
