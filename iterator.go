package minimail

import (
	"context"
	"errors"

	"github.com/minimail/minimail/store"
)

// ErrIteratorOutOfBounds is returned when Message() is called without a successful Next().
var ErrIteratorOutOfBounds = errors.New("minimail: iterator out of bounds - call Next() first")

// MessageIterator provides streaming access to messages.
// Use Next() to advance, Message() to get the current message.
//
// Use an iterator when processing large result sets where memory is a
// concern or when you want early termination; use MessageList (Inbox,
// Sent, Search) when you need bulk operations on a page.
//
// Ownership: MessageIterator holds no resources requiring cleanup.
// There is no Close method, simply stop calling Next() when done.
//
// Thread Safety: MessageIterator is NOT safe for concurrent use. Each
// iterator should be used by a single goroutine.
type MessageIterator interface {
	// Next advances to the next message.
	// Returns (true, nil) if there is a message available.
	// Returns (false, nil) if iteration is done (no more messages).
	// Returns (false, error) if an error occurred (e.g., service
	// disconnected, context cancelled).
	// Must be called before accessing Message().
	Next(ctx context.Context) (bool, error)

	// Message returns the current message with full mutation capabilities.
	// Must be called after a successful Next() call that returned (true, nil).
	// Returns ErrIteratorOutOfBounds if called before Next() or after iteration ends.
	Message() (Message, error)
}

// StreamOptions configures streaming behavior.
type StreamOptions struct {
	// BatchSize is the number of messages fetched per batch.
	// Larger batches reduce round-trips but use more memory.
	// Default: 100
	BatchSize int
}

// batchFetchFunc fetches the next batch of records.
type batchFetchFunc func(ctx context.Context) ([]*store.MessageRecord, error)

// batchIterator provides cursor-based batch fetching.
// Uses StartAfter for keyset pagination, avoiding the issues with
// offset-based pagination when data changes between fetches.
type batchIterator struct {
	mailbox   *userMailbox
	fetch     batchFetchFunc
	setCursor func(lastID string)
	batchSize int
	batch     []*store.MessageRecord
	batchIdx  int
	done      bool
	fetched   bool
}

func (it *batchIterator) Next(ctx context.Context) (bool, error) {
	if it.done {
		return false, nil
	}

	// Verify service is still connected on each iteration
	if err := it.mailbox.checkAccess(); err != nil {
		it.done = true
		return false, err
	}

	// Check if we need to fetch the next batch
	if it.batchIdx >= len(it.batch) {
		// Check if we've exhausted all results
		if it.fetched && len(it.batch) < it.batchSize {
			it.done = true
			return false, nil
		}

		records, err := it.fetch(ctx)
		if err != nil {
			it.done = true
			return false, err
		}

		it.batch = records
		it.batchIdx = 0
		it.fetched = true

		// Set cursor for the next batch using the last record ID
		if len(it.batch) > 0 {
			it.setCursor(it.batch[len(it.batch)-1].ID)
		}

		if len(it.batch) == 0 {
			it.done = true
			return false, nil
		}
	}

	it.batchIdx++
	return true, nil
}

func (it *batchIterator) Message() (Message, error) {
	if it.batchIdx <= 0 || it.batchIdx > len(it.batch) {
		return nil, ErrIteratorOutOfBounds
	}
	return newMessage(it.batch[it.batchIdx-1], it.mailbox), nil
}

// searchIterator implements MessageIterator for keyword searches.
type searchIterator struct {
	batchIterator
	query store.SearchQuery
}

// StreamSearch returns an iterator over search results in the given collection.
// An empty keyword streams the whole collection.
func (m *userMailbox) StreamSearch(ctx context.Context, col Collection, keyword string, opts StreamOptions) (MessageIterator, error) {
	if err := m.checkAccess(); err != nil {
		return nil, err
	}

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}

	it := &searchIterator{
		query: store.SearchQuery{
			Owner:      m.userID,
			Collection: col,
			Keyword:    keyword,
			Options: store.ListOptions{
				Limit: batchSize,
			},
		},
	}
	it.mailbox = m
	it.batchSize = batchSize
	it.fetch = func(ctx context.Context) ([]*store.MessageRecord, error) {
		return m.service.store.Search(ctx, it.query)
	}
	it.setCursor = func(lastID string) {
		it.query.Options.StartAfter = lastID
	}
	return it, nil
}
