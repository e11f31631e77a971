// Package postgres provides a PostgreSQL implementation of store.Store.
//
// Unlike the snapshot-file backend, durability comes from the database
// itself: the atomic-batch guarantee maps onto a transaction.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/minimail/minimail/store"
)

// Compile-time check
var _ store.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL.
type Store struct {
	db        *sqlx.DB
	opts      *options
	connected int32
	logger    *slog.Logger
}

// row is the scan target for message rows.
type row struct {
	ID         string         `db:"id"`
	Owner      string         `db:"owner_id"`
	Collection string         `db:"collection"`
	Status     string         `db:"status"`
	Sender     string         `db:"sender_id"`
	Recipients pq.StringArray `db:"recipient_ids"`
	Subject    string         `db:"subject"`
	Body       string         `db:"body"`
	SentAt     sql.NullTime   `db:"sent_at"`
	Read       bool           `db:"is_read"`
	CreatedAt  time.Time      `db:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at"`
}

func (r row) record() *store.MessageRecord {
	rec := &store.MessageRecord{
		ID:         r.ID,
		Owner:      r.Owner,
		Collection: store.Collection(r.Collection),
		Status:     store.MessageStatus(r.Status),
		Sender:     r.Sender,
		Recipients: append([]string(nil), r.Recipients...),
		Subject:    r.Subject,
		Body:       r.Body,
		Read:       r.Read,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
	if r.SentAt.Valid {
		rec.SentAt = r.SentAt.Time
	}
	return rec
}

const rowColumns = `id, owner_id, collection, status, sender_id, recipient_ids,
       subject, body, sent_at, is_read, created_at, updated_at`

// New creates a new PostgreSQL store with the provided database connection.
// Call Connect() to initialize the schema and indexes.
func New(db *sqlx.DB, opts ...Option) *Store {
	o := newOptions(opts...)
	return &Store{
		db:     db,
		opts:   o,
		logger: o.logger,
	}
}

// NewFromDB creates a new PostgreSQL store from a standard sql.DB connection.
// This wraps the sql.DB with sqlx for enhanced functionality.
func NewFromDB(db *sql.DB, opts ...Option) *Store {
	return New(sqlx.NewDb(db, "postgres"), opts...)
}

// Connect initializes the schema and indexes.
func (s *Store) Connect(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.connected, 0, 1) {
		return store.ErrAlreadyConnected
	}

	if s.db == nil {
		atomic.StoreInt32(&s.connected, 0)
		return fmt.Errorf("postgres: db is required")
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		atomic.StoreInt32(&s.connected, 0)
		return fmt.Errorf("postgres ping: %w", err)
	}

	if err := s.ensureSchema(ctx); err != nil {
		atomic.StoreInt32(&s.connected, 0)
		return fmt.Errorf("ensure schema: %w", err)
	}

	s.logger.Info("connected to PostgreSQL", "table", s.opts.table)
	return nil
}

// Close marks the store as disconnected.
// The caller is responsible for closing the database connection.
func (s *Store) Close(ctx context.Context) error {
	atomic.StoreInt32(&s.connected, 0)
	return nil
}

// ensureSchema creates the required table and indexes.
func (s *Store) ensureSchema(ctx context.Context) error {
	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			owner_id VARCHAR(255) NOT NULL,
			collection VARCHAR(50) NOT NULL,
			status VARCHAR(50) NOT NULL DEFAULT 'draft',
			sender_id VARCHAR(255) NOT NULL,
			recipient_ids TEXT[] NOT NULL DEFAULT '{}',
			subject TEXT NOT NULL DEFAULT '',
			body TEXT NOT NULL DEFAULT '',
			sent_at TIMESTAMPTZ,
			is_read BOOLEAN DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`, s.opts.table)

	if _, err := s.db.ExecContext(ctx, createTable); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	indexes := []string{
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_owner ON %s(owner_id)`, s.opts.table, s.opts.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_sender ON %s(sender_id)`, s.opts.table, s.opts.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_is_read ON %s(is_read)`, s.opts.table, s.opts.table),
		// Compound index for the listing path: stored order is insertion order.
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_owner_collection ON %s(owner_id, collection, created_at, id)`, s.opts.table, s.opts.table),
	}

	for _, idx := range indexes {
		if _, err := s.db.ExecContext(ctx, idx); err != nil {
			s.logger.Warn("failed to create index", "error", err, "sql", idx)
		}
	}

	return nil
}

// checkConnected returns error if not connected.
func (s *Store) checkConnected() error {
	if atomic.LoadInt32(&s.connected) == 0 {
		return store.ErrNotConnected
	}
	return nil
}

// =============================================================================
// Draft Operations
// =============================================================================

func (s *Store) SaveDraft(ctx context.Context, data store.DraftData) (*store.MessageRecord, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	now := time.Now().UTC()

	if data.ID == "" {
		id := uuid.New().String()
		query := fmt.Sprintf(`
			INSERT INTO %s (id, owner_id, collection, status, sender_id,
			                recipient_ids, subject, body, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING %s
		`, s.opts.table, rowColumns)

		var r row
		err := s.db.GetContext(ctx, &r, query,
			id, data.Owner, store.CollectionDrafts, store.StatusDraft, data.Owner,
			pq.Array(data.Recipients), data.Subject, data.Body, now, now,
		)
		if err != nil {
			return nil, fmt.Errorf("insert draft: %w", err)
		}
		return r.record(), nil
	}

	if _, err := uuid.Parse(data.ID); err != nil {
		return nil, store.ErrInvalidID
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET recipient_ids = $1, subject = $2, body = $3, updated_at = $4
		WHERE id = $5 AND collection = $6
		RETURNING %s
	`, s.opts.table, rowColumns)

	var r row
	err := s.db.GetContext(ctx, &r, query,
		pq.Array(data.Recipients), data.Subject, data.Body, now,
		data.ID, store.CollectionDrafts,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("update draft: %w", err)
	}
	return r.record(), nil
}

func (s *Store) GetDraft(ctx context.Context, id string) (*store.MessageRecord, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	if _, err := uuid.Parse(id); err != nil {
		return nil, store.ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE id = $1 AND collection = $2
	`, rowColumns, s.opts.table)

	var r row
	err := s.db.GetContext(ctx, &r, query, id, store.CollectionDrafts)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get draft: %w", err)
	}
	return r.record(), nil
}

func (s *Store) DeleteDraft(ctx context.Context, id string) error {
	if err := s.checkConnected(); err != nil {
		return err
	}

	if _, err := uuid.Parse(id); err != nil {
		return store.ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND collection = $2`, s.opts.table)
	result, err := s.db.ExecContext(ctx, query, id, store.CollectionDrafts)
	if err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return store.ErrNotFound
	}

	return nil
}
