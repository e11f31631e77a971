package minimail

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/minimail/minimail/store"
)

// Get retrieves a message from one of the user's collections.
func (m *userMailbox) Get(ctx context.Context, col Collection, messageID string) (Message, error) {
	if err := m.checkAccess(); err != nil {
		return nil, err
	}

	// OTel tracing
	ctx, endSpan := m.service.otel.startSpan(ctx, "minimail.get",
		attribute.String("user_id", m.userID),
		attribute.String("collection", string(col)),
		attribute.String("message_id", messageID),
	)
	start := time.Now()
	var getErr error
	defer func() {
		endSpan(getErr)
		m.service.otel.recordGet(ctx, time.Since(start), getErr)
	}()

	record, err := m.service.store.Get(ctx, m.userID, col, messageID)
	if err != nil {
		if store.IsNotFound(err) {
			getErr = ErrNotFound
			return nil, fmt.Errorf("get message %s: %w", messageID, ErrNotFound)
		}
		if store.IsInvalidID(err) {
			getErr = ErrInvalidID
			return nil, fmt.Errorf("get message: %w", ErrInvalidID)
		}
		getErr = err
		return nil, fmt.Errorf("get message: %w", err)
	}

	return newMessage(record, m), nil
}

// Inbox returns the user's received messages in stored order, oldest first.
func (m *userMailbox) Inbox(ctx context.Context, opts ListOptions) (MessageList, error) {
	return m.list(ctx, store.CollectionInbox, opts)
}

// Drafts returns the user's drafts in stored order, oldest first.
func (m *userMailbox) Drafts(ctx context.Context, opts ListOptions) (MessageList, error) {
	return m.list(ctx, store.CollectionDrafts, opts)
}

// Sent returns the user's sent messages in stored order, oldest first.
func (m *userMailbox) Sent(ctx context.Context, opts ListOptions) (MessageList, error) {
	return m.list(ctx, store.CollectionSent, opts)
}

// list is the shared listing path with OTel instrumentation.
func (m *userMailbox) list(ctx context.Context, col Collection, opts ListOptions) (MessageList, error) {
	if err := m.checkAccess(); err != nil {
		return nil, err
	}

	// OTel tracing
	ctx, endSpan := m.service.otel.startSpan(ctx, "minimail.list",
		attribute.String("user_id", m.userID),
		attribute.String("collection", string(col)),
	)
	start := time.Now()
	var listErr error
	var resultCount int
	defer func() {
		endSpan(listErr)
		m.service.otel.recordList(ctx, time.Since(start), string(col), resultCount, listErr)
	}()

	opts.Limit = m.clampLimit(opts.Limit)
	records, err := m.service.store.List(ctx, m.userID, col, opts)
	if err != nil {
		listErr = err
		return nil, fmt.Errorf("list %s: %w", col, err)
	}
	resultCount = len(records)

	return wrapMessageList(records, m), nil
}

// Search returns messages in the given collection whose subject or body
// contains the keyword, case-insensitively. An empty keyword matches all.
// Results come back in stored order, oldest first.
func (m *userMailbox) Search(ctx context.Context, col Collection, keyword string, opts ListOptions) (MessageList, error) {
	if err := m.checkAccess(); err != nil {
		return nil, err
	}

	// OTel tracing
	ctx, endSpan := m.service.otel.startSpan(ctx, "minimail.search",
		attribute.String("user_id", m.userID),
		attribute.String("collection", string(col)),
	)
	start := time.Now()
	var searchErr error
	var resultCount int
	defer func() {
		endSpan(searchErr)
		m.service.otel.recordSearch(ctx, time.Since(start), resultCount, searchErr)
	}()

	opts.Limit = m.clampLimit(opts.Limit)
	records, err := m.service.store.Search(ctx, store.SearchQuery{
		Owner:      m.userID,
		Collection: col,
		Keyword:    keyword,
		Options:    opts,
	})
	if err != nil {
		searchErr = err
		return nil, fmt.Errorf("search messages: %w", err)
	}
	resultCount = len(records)

	return wrapMessageList(records, m), nil
}

// clampLimit enforces the service's query limits: 0 keeps the store's
// unbounded behavior for full-mailbox listings, anything above the
// maximum is capped.
func (m *userMailbox) clampLimit(limit int) int {
	if limit < 0 {
		return m.service.opts.defaultQueryLimit
	}
	if limit > m.service.opts.maxQueryLimit {
		return m.service.opts.maxQueryLimit
	}
	return limit
}
