package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minimail/minimail/store"
)

func (s *Store) Get(ctx context.Context, owner string, col store.Collection, id string) (*store.MessageRecord, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, store.ErrInvalidID
	}
	if !store.IsValidCollection(col) {
		return nil, store.ErrInvalidCollection
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE id = $1 AND owner_id = $2 AND collection = $3
	`, rowColumns, s.opts.table)

	var r row
	err := s.db.GetContext(ctx, &r, query, id, owner, col)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get message: %w", err)
	}
	return r.record(), nil
}

func (s *Store) List(ctx context.Context, owner string, col store.Collection, opts store.ListOptions) ([]*store.MessageRecord, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if !store.IsValidCollection(col) {
		return nil, store.ErrInvalidCollection
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	return s.selectPage(ctx, owner, col, "", opts)
}

func (s *Store) Search(ctx context.Context, query store.SearchQuery) ([]*store.MessageRecord, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if !store.IsValidCollection(query.Collection) {
		return nil, store.ErrInvalidCollection
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	return s.selectPage(ctx, query.Owner, query.Collection, query.Keyword, query.Options)
}

// selectPage runs the shared list/search query. Stored order is insertion
// order, approximated by (created_at, id). A StartAfter cursor that no
// longer exists yields an empty page, matching the other backends.
func (s *Store) selectPage(ctx context.Context, owner string, col store.Collection, keyword string, opts store.ListOptions) ([]*store.MessageRecord, error) {
	var (
		conds = []string{"owner_id = $1", "collection = $2"}
		args  = []any{owner, string(col)}
	)

	if keyword != "" {
		args = append(args, "%"+escapeLike(keyword)+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf(`(subject ILIKE $%d ESCAPE '\' OR body ILIKE $%d ESCAPE '\')`, n, n))
	}

	if opts.StartAfter != "" {
		if _, err := uuid.Parse(opts.StartAfter); err != nil {
			return nil, nil
		}
		cursorQuery := fmt.Sprintf(`SELECT created_at FROM %s WHERE id = $1 AND owner_id = $2 AND collection = $3`, s.opts.table)
		var cursorAt time.Time
		err := s.db.GetContext(ctx, &cursorAt, cursorQuery, opts.StartAfter, owner, col)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, nil
			}
			return nil, fmt.Errorf("resolve cursor: %w", err)
		}
		args = append(args, cursorAt, opts.StartAfter)
		conds = append(conds, fmt.Sprintf(`(created_at, id) > ($%d, $%d)`, len(args)-1, len(args)))
	}

	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE %s
		ORDER BY created_at ASC, id ASC
	`, rowColumns, s.opts.table, strings.Join(conds, " AND "))

	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if opts.StartAfter == "" && opts.Offset > 0 {
		args = append(args, opts.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	var rows []row
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}

	records := make([]*store.MessageRecord, 0, len(rows))
	for _, r := range rows {
		records = append(records, r.record())
	}
	return records, nil
}

// escapeLike escapes LIKE metacharacters so a keyword matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
