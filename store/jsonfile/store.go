// Package jsonfile provides a Store backed by a single JSON snapshot file.
//
// The whole mailbox state is read once at Connect and the full state is
// rewritten after every mutating operation, using a temp-file rename so a
// crash mid-write never leaves a torn snapshot on disk. A missing file is
// an empty state; a file that cannot be decoded fails Connect with
// store.ErrMalformedStore.
package jsonfile

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/minimail/minimail/store"
)

// mailboxState holds one user's three collections in stored order.
type mailboxState struct {
	inbox  []*store.MessageRecord
	drafts []*store.MessageRecord
	sent   []*store.MessageRecord
}

func (m *mailboxState) collection(col store.Collection) *[]*store.MessageRecord {
	switch col {
	case store.CollectionInbox:
		return &m.inbox
	case store.CollectionDrafts:
		return &m.drafts
	default:
		return &m.sent
	}
}

// Store implements store.Store on a JSON snapshot file.
// Thread-safe for concurrent use within a single process.
type Store struct {
	path      string
	log       *slog.Logger
	fileMode  uint32
	connected int32

	mu    sync.Mutex
	boxes map[string]*mailboxState
	byID  map[string]*store.MessageRecord
}

// New creates a store persisting to the snapshot file at path.
func New(path string, opts ...Option) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("store: snapshot path is required")
	}
	s := &Store{
		path:     path,
		log:      slog.Default(),
		fileMode: 0o600,
		boxes:    make(map[string]*mailboxState),
		byID:     make(map[string]*store.MessageRecord),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Connect loads the snapshot file into memory.
func (s *Store) Connect(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.connected, 0, 1) {
		return store.ErrAlreadyConnected
	}
	if err := s.load(); err != nil {
		atomic.StoreInt32(&s.connected, 0)
		return err
	}
	return nil
}

// Close marks the store as disconnected. The snapshot on disk already
// reflects the last completed mutation, so there is nothing to flush.
func (s *Store) Close(ctx context.Context) error {
	atomic.StoreInt32(&s.connected, 0)
	return nil
}

// box returns the owner's mailbox, creating it if needed. Caller must
// hold mu.
func (s *Store) box(owner string) *mailboxState {
	m, ok := s.boxes[owner]
	if !ok {
		m = &mailboxState{}
		s.boxes[owner] = m
	}
	return m
}

// insert indexes a record and appends it to its collection. Caller must
// hold mu.
func (s *Store) insert(r *store.MessageRecord) {
	s.byID[r.ID] = r
	col := s.box(r.Owner).collection(r.Collection)
	*col = append(*col, r)
}

// remove drops a record, preserving the order of the rest of its
// collection. Returns the position it held. Caller must hold mu.
func (s *Store) remove(r *store.MessageRecord) int {
	delete(s.byID, r.ID)
	col := s.box(r.Owner).collection(r.Collection)
	for i, rec := range *col {
		if rec.ID == r.ID {
			*col = append((*col)[:i], (*col)[i+1:]...)
			return i
		}
	}
	return -1
}

// reinsert puts a record back at the position remove reported. Used to
// undo an in-memory mutation when the snapshot write fails. Caller must
// hold mu.
func (s *Store) reinsert(r *store.MessageRecord, pos int) {
	s.byID[r.ID] = r
	col := s.box(r.Owner).collection(r.Collection)
	if pos < 0 || pos > len(*col) {
		pos = len(*col)
	}
	*col = append(*col, nil)
	copy((*col)[pos+1:], (*col)[pos:])
	(*col)[pos] = r
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
			Sender:     data.Owner,
			Recipients: append([]string(nil), data.Recipients...),
			Subject:    data.Subject,
			Body:       data.Body,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		s.insert(r)
		if err := s.persist(); err != nil {
			s.remove(r)
			return nil, err
		}
		return r.Clone(), nil
	}

	r, ok := s.byID[data.ID]
	if !ok || r.Collection != store.CollectionDrafts {
		return nil, store.ErrNotFound
	}

	prev := r.Clone()
	r.Recipients = append([]string(nil), data.Recipients...)
	r.Subject = data.Subject
	r.Body = data.Body
	r.UpdatedAt = now
	if err := s.persist(); err != nil {
		*r = *prev
		return nil, err
	}
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

	s.mu.Lock()
	defer s.mu.Unlock()

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
	pos := s.remove(r)
	if err := s.persist(); err != nil {
		s.reinsert(r, pos)
		return err
	}
	return nil
}

// =============================================================================
// Message Operations
// =============================================================================

// CreateMessages creates the batch atomically. The in-memory state is
// updated first and a single snapshot is written for the whole batch;
// if the write fails the batch is rolled back, so neither memory nor
// disk ever holds a partial fan-out.
func (s *Store) CreateMessages(ctx context.Context, data []store.MessageData) ([]*store.MessageRecord, error) {
	if atomic.LoadInt32(&s.connected) == 0 {
		return nil, store.ErrNotConnected
	}
	for _, d := range data {
		if !store.IsValidCollection(d.Collection) {
			return nil, store.ErrInvalidCollection
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	inserted := make([]*store.MessageRecord, len(data))
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
		s.insert(r)
		inserted[i] = r
	}

	if err := s.persist(); err != nil {
		for _, r := range inserted {
			s.remove(r)
		}
		return nil, err
	}

	records := make([]*store.MessageRecord, len(inserted))
	for i, r := range inserted {
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

	s.mu.Lock()
	defer s.mu.Unlock()

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

	s.mu.Lock()
	defer s.mu.Unlock()

	return clonePage(*s.box(owner).collection(col), opts), nil
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

	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []*store.MessageRecord
	for _, r := range *s.box(query.Owner).collection(query.Collection) {
		if r.Matches(query.Keyword) {
			matched = append(matched, r)
		}
	}
	return clonePage(matched, query.Options), nil
}

// MarkRead sets the read flag on an inbox record. Idempotent, and the
// snapshot is only rewritten when the flag actually changes.
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

	prev := r.Clone()
	r.Read = read
	r.UpdatedAt = time.Now().UTC()
	if err := s.persist(); err != nil {
		*r = *prev
		return err
	}
	return nil
}

// MarkAllRead marks every unread inbox record read and returns how many
// records changed. A single snapshot covers the whole sweep.
func (s *Store) MarkAllRead(ctx context.Context, owner string) (int64, error) {
	if atomic.LoadInt32(&s.connected) == 0 {
		return 0, store.ErrNotConnected
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	var changed []*store.MessageRecord
	for _, r := range s.box(owner).inbox {
		if !r.Read {
			changed = append(changed, r)
			r.Read = true
			r.UpdatedAt = now
		}
	}
	if len(changed) == 0 {
		return 0, nil
	}

	if err := s.persist(); err != nil {
		for _, r := range changed {
			r.Read = false
		}
		return 0, err
	}
	return int64(len(changed)), nil
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
	pos := s.remove(r)
	if err := s.persist(); err != nil {
		s.reinsert(r, pos)
		return err
	}
	return nil
}

// clonePage applies StartAfter/Offset/Limit and clones the selected
// records. A StartAfter cursor that no longer exists yields an empty
// page; callers should re-query without a cursor.
func clonePage(records []*store.MessageRecord, opts store.ListOptions) []*store.MessageRecord {
	start := 0
	if opts.StartAfter != "" {
		found := false
		for i, r := range records {
			if r.ID == opts.StartAfter {
				start = i + 1
				found = true
				break
			}
		}
		if !found {
			return nil
		}
	} else {
		start = opts.Offset
		if start < 0 {
			start = 0
		}
		if start > len(records) {
			start = len(records)
		}
	}

	end := start + opts.Limit
	if opts.Limit <= 0 || end > len(records) {
		end = len(records)
	}

	page := make([]*store.MessageRecord, 0, end-start)
	for _, r := range records[start:end] {
		page = append(page, r.Clone())
	}
	return page
}

// Compile-time check that Store implements store.Store.
var _ store.Store = (*Store)(nil)
