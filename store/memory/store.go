// Package memory provides an in-memory Store implementation for testing.
// This store is not suitable for production use - data is not persisted.
package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/minimail/minimail/store"
)

// Store implements store.Store with in-memory storage.
// Thread-safe for concurrent use. Not suitable for production.
type Store struct {
	mu        sync.RWMutex
	connected int32

	// byID indexes every record, drafts included.
	byID map[string]*store.MessageRecord
	// boxes holds per-owner, per-collection record IDs in insertion order.
	boxes map[string]map[store.Collection][]string
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		byID:  make(map[string]*store.MessageRecord),
		boxes: make(map[string]map[store.Collection][]string),
	}
}

// Connect marks the store as connected.
func (s *Store) Connect(_ context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.connected, 0, 1) {
		return store.ErrAlreadyConnected
	}
	return nil
}

// Close marks the store as disconnected.
func (s *Store) Close(_ context.Context) error {
	atomic.StoreInt32(&s.connected, 0)
	return nil
}

// collection returns the ordered ID slice for an owner's collection,
// creating the owner's mailbox if needed. Caller must hold mu.
func (s *Store) collection(owner string, col store.Collection) []string {
	box, ok := s.boxes[owner]
	if !ok {
		return nil
	}
	return box[col]
}

// appendRecord indexes a record and appends its ID to the owner's
// collection. Caller must hold mu.
func (s *Store) appendRecord(r *store.MessageRecord) {
	s.byID[r.ID] = r
	box, ok := s.boxes[r.Owner]
	if !ok {
		box = make(map[store.Collection][]string)
		s.boxes[r.Owner] = box
	}
	box[r.Collection] = append(box[r.Collection], r.ID)
}

// removeRecord drops a record from the index and from the owner's
// collection, preserving the order of the remaining IDs. Caller must
// hold mu.
func (s *Store) removeRecord(r *store.MessageRecord) {
	delete(s.byID, r.ID)
	ids := s.collection(r.Owner, r.Collection)
	for i, id := range ids {
		if id == r.ID {
			s.boxes[r.Owner][r.Collection] = append(ids[:i], ids[i+1:]...)
			return
		}
	}
}

// =============================================================================
// Draft Operations
// =============================================================================

// SaveDraft creates a draft when data.ID is empty, or updates the
// existing draft in place otherwise.
func (s *Store) SaveDraft(ctx context.Context, data store.DraftData) (*store.MessageRecord, error) {
	if atomic.LoadInt32(&s.connected) == 0 {
		return nil, store.ErrNotConnected
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()

	if data.ID == "" {
		r := &store.MessageRecord{
			ID:         uuid.New().String(),
			Owner:      data.Owner,
			Collection: store.CollectionDrafts,
			Status:     store.StatusDraft,
			Sender:     data.Owner, // sender is always the owner for drafts
			Recipients: append([]string(nil), data.Recipients...),
			Subject:    data.Subject,
			Body:       data.Body,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		s.appendRecord(r)
		return r.Clone(), nil
	}

	r, ok := s.byID[data.ID]
	if !ok || r.Collection != store.CollectionDrafts {
		return nil, store.ErrNotFound
	}

	// Update in place: position in the drafts collection and CreatedAt
	// are preserved.
	r.Recipients = append([]string(nil), data.Recipients...)
	r.Subject = data.Subject
	r.Body = data.Body
	r.UpdatedAt = now
	return r.Clone(), nil
}

// GetDraft retrieves a draft by ID, regardless of owner. Callers enforce
// ownership from the returned record.
func (s *Store) GetDraft(ctx context.Context, id string) (*store.MessageRecord, error) {
	if atomic.LoadInt32(&s.connected) == 0 {
		return nil, store.ErrNotConnected
	}
	if id == "" {
		return nil, store.ErrInvalidID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.byID[id]
	if !ok || r.Collection != store.CollectionDrafts {
		return nil, store.ErrNotFound
	}
	return r.Clone(), nil
}

// DeleteDraft permanently removes a draft.
func (s *Store) DeleteDraft(ctx context.Context, id string) error {
	if atomic.LoadInt32(&s.connected) == 0 {
		return store.ErrNotConnected
	}
	if id == "" {
		return store.ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.byID[id]
	if !ok || r.Collection != store.CollectionDrafts {
		return store.ErrNotFound
	}
	s.removeRecord(r)
	return nil
}

// =============================================================================
// Message Operations
// =============================================================================

// CreateMessages creates the batch atomically: either every record is
// stored or none is. A single lock guards the whole batch, so readers
// never observe a partial fan-out.
func (s *Store) CreateMessages(ctx context.Context, data []store.MessageData) ([]*store.MessageRecord, error) {
	if atomic.LoadInt32(&s.connected) == 0 {
		return nil, store.ErrNotConnected
	}

	// Validate before mutating anything.
	for _, d := range data {
		if !store.IsValidCollection(d.Collection) {
			return nil, store.ErrInvalidCollection
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	records := make([]*store.MessageRecord, len(data))
	for i, d := range data {
		r := &store.MessageRecord{
			ID:         uuid.New().String(),
			Owner:      d.Owner,
			Collection: d.Collection,
			Status:     d.Status,
			Sender:     d.Sender,
			Recipients: append([]string(nil), d.Recipients...),
			Subject:    d.Subject,
			Body:       d.Body,
			SentAt:     d.SentAt,
			Read:       d.Read,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		s.appendRecord(r)
		records[i] = r.Clone()
	}
	return records, nil
}

// Get retrieves a record from the addressed owner's collection.
func (s *Store) Get(ctx context.Context, owner string, col store.Collection, id string) (*store.MessageRecord, error) {
	if atomic.LoadInt32(&s.connected) == 0 {
		return nil, store.ErrNotConnected
	}
	if id == "" {
		return nil, store.ErrInvalidID
	}
	if !store.IsValidCollection(col) {
		return nil, store.ErrInvalidCollection
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.byID[id]
	if !ok || r.Owner != owner || r.Collection != col {
		return nil, store.ErrNotFound
	}
	return r.Clone(), nil
}

// List returns the owner's collection in stored order, oldest first.
func (s *Store) List(ctx context.Context, owner string, col store.Collection, opts store.ListOptions) ([]*store.MessageRecord, error) {
	if atomic.LoadInt32(&s.connected) == 0 {
		return nil, store.ErrNotConnected
	}
	if !store.IsValidCollection(col) {
		return nil, store.ErrInvalidCollection
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ids, ok := paginate(s.collection(owner, col), opts)
	if !ok {
		return nil, nil
	}
	records := make([]*store.MessageRecord, 0, len(ids))
	for _, id := range ids {
		records = append(records, s.byID[id].Clone())
	}
	return records, nil
}

// Search returns the records in the owner's collection whose subject or
// body contains the query keyword, in stored order.
func (s *Store) Search(ctx context.Context, query store.SearchQuery) ([]*store.MessageRecord, error) {
	if atomic.LoadInt32(&s.connected) == 0 {
		return nil, store.ErrNotConnected
	}
	if !store.IsValidCollection(query.Collection) {
		return nil, store.ErrInvalidCollection
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []string
	for _, id := range s.collection(query.Owner, query.Collection) {
		if s.byID[id].Matches(query.Keyword) {
			matched = append(matched, id)
		}
	}

	ids, ok := paginate(matched, query.Options)
	if !ok {
		return nil, nil
	}
	records := make([]*store.MessageRecord, 0, len(ids))
	for _, id := range ids {
		records = append(records, s.byID[id].Clone())
	}
	return records, nil
}

// MarkRead sets the read flag on an inbox record. Idempotent: marking an
// already-read record read again is not an error.
func (s *Store) MarkRead(ctx context.Context, owner, id string, read bool) error {
	if atomic.LoadInt32(&s.connected) == 0 {
		return store.ErrNotConnected
	}
	if id == "" {
		return store.ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.byID[id]
	if !ok || r.Owner != owner || r.Collection != store.CollectionInbox {
		return store.ErrNotFound
	}
	if r.Read == read {
		return nil
	}
	r.Read = read
	r.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkAllRead marks every unread inbox record read and returns how many
// records changed.
func (s *Store) MarkAllRead(ctx context.Context, owner string) (int64, error) {
	if atomic.LoadInt32(&s.connected) == 0 {
		return 0, store.ErrNotConnected
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	var updated int64
	for _, id := range s.collection(owner, store.CollectionInbox) {
		r := s.byID[id]
		if !r.Read {
			r.Read = true
			r.UpdatedAt = now
			updated++
		}
	}
	return updated, nil
}

// Delete permanently removes a record from the owner's collection. Other
// copies of the same send are untouched.
func (s *Store) Delete(ctx context.Context, owner string, col store.Collection, id string) error {
	if atomic.LoadInt32(&s.connected) == 0 {
		return store.ErrNotConnected
	}
	if id == "" {
		return store.ErrInvalidID
	}
	if !store.IsValidCollection(col) {
		return store.ErrInvalidCollection
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.byID[id]
	if !ok || r.Owner != owner || r.Collection != col {
		return store.ErrNotFound
	}
	s.removeRecord(r)
	return nil
}

// paginate applies StartAfter/Offset/Limit to an ordered ID slice. The
// second return value is false when a StartAfter cursor no longer exists;
// callers should treat that as an empty page and re-query without a
// cursor.
func paginate(ids []string, opts store.ListOptions) ([]string, bool) {
	start := 0
	if opts.StartAfter != "" {
		found := false
		for i, id := range ids {
			if id == opts.StartAfter {
				start = i + 1
				found = true
				break
			}
		}
		if !found {
			return nil, false
		}
	} else {
		start = opts.Offset
		if start < 0 {
			start = 0
		}
		if start > len(ids) {
			start = len(ids)
		}
	}

	end := start + opts.Limit
	if opts.Limit <= 0 || end > len(ids) {
		end = len(ids)
	}
	return ids[start:end], true
}

// Compile-time check that Store implements store.Store.
var _ store.Store = (*Store)(nil)
