package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/minimail/minimail/store"
)

// CreateMessages inserts the batch inside a single transaction, so a
// send fan-out is committed either in full or not at all.
func (s *Store) CreateMessages(ctx context.Context, data []store.MessageData) ([]*store.MessageRecord, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	for _, d := range data {
		if !store.IsValidCollection(d.Collection) {
			return nil, store.ErrInvalidCollection
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	query := fmt.Sprintf(`
		INSERT INTO %s (id, owner_id, collection, status, sender_id,
		                recipient_ids, subject, body, sent_at, is_read,
		                created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, s.opts.table)

	records := make([]*store.MessageRecord, 0, len(data))
	for _, d := range data {
		id := uuid.New().String()

		var sentAt any
		if !d.SentAt.IsZero() {
			sentAt = d.SentAt
		}

		_, err := tx.ExecContext(ctx, query,
			id, d.Owner, d.Collection, d.Status, d.Sender,
			pq.Array(d.Recipients), d.Subject, d.Body, sentAt, d.Read,
			now, now,
		)
		if err != nil {
			return nil, fmt.Errorf("insert message: %w", err)
		}

		records = append(records, &store.MessageRecord{
			ID:         id,
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
		})
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return records, nil
}

func (s *Store) MarkRead(ctx context.Context, owner, id string, read bool) error {
	if err := s.checkConnected(); err != nil {
		return err
	}
	if _, err := uuid.Parse(id); err != nil {
		return store.ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	// updated_at only moves when the flag actually flips; matching rows
	// that already carry the target value still count as affected.
	query := fmt.Sprintf(`
		UPDATE %s
		SET is_read = $1,
		    updated_at = CASE WHEN is_read = $1 THEN updated_at ELSE $2 END
		WHERE id = $3 AND owner_id = $4 AND collection = $5
	`, s.opts.table)

	result, err := s.db.ExecContext(ctx, query, read, time.Now().UTC(), id, owner, store.CollectionInbox)
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
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

func (s *Store) MarkAllRead(ctx context.Context, owner string) (int64, error) {
	if err := s.checkConnected(); err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	query := fmt.Sprintf(`
		UPDATE %s SET is_read = true, updated_at = $1
		WHERE owner_id = $2 AND collection = $3 AND NOT is_read
	`, s.opts.table)

	result, err := s.db.ExecContext(ctx, query, time.Now().UTC(), owner, store.CollectionInbox)
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}

	return result.RowsAffected()
}

func (s *Store) Delete(ctx context.Context, owner string, col store.Collection, id string) error {
	if err := s.checkConnected(); err != nil {
		return err
	}
	if _, err := uuid.Parse(id); err != nil {
		return store.ErrInvalidID
	}
	if !store.IsValidCollection(col) {
		return store.ErrInvalidCollection
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND owner_id = $2 AND collection = $3`, s.opts.table)
	result, err := s.db.ExecContext(ctx, query, id, owner, col)
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
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
