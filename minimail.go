package minimail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/rbaliyan/event/v3"
	"github.com/rbaliyan/event/v3/transport/noop"
	"golang.org/x/sync/semaphore"

	"github.com/minimail/minimail/account"
	"github.com/minimail/minimail/store"
)

// Type aliases for commonly used store types.
// These allow users to work with the minimail package without importing store directly.
type (
	ListOptions = store.ListOptions
	Collection  = store.Collection
)

// Re-exported collection constants.
const (
	CollectionInbox  = store.CollectionInbox
	CollectionDrafts = store.CollectionDrafts
	CollectionSent   = store.CollectionSent
)

// ServiceHealth provides health and state information about the service.
type ServiceHealth interface {
	// IsConnected returns true if the service is connected and ready.
	IsConnected() bool
}

// Service manages the mail system (server-side).
// It handles connections to storage and creates per-user mailbox clients.
type Service interface {
	ServiceHealth

	// Connect establishes connections to storage backends.
	Connect(ctx context.Context) error
	// Close closes all connections.
	Close(ctx context.Context) error
	// Client returns a mailbox client for the given user.
	// The returned client shares the service's connections.
	Client(userID string) Mailbox
	// Accounts returns the account store backing recipient validation.
	Accounts() *account.Store
	// Events returns per-service event instances for subscribing and publishing.
	// Each service has its own events bound to its own event bus, enabling
	// independent event routing and parallel testing.
	Events() *ServiceEvents
}

// MessageReader provides single message retrieval.
type MessageReader interface {
	// Get retrieves a message from one of the user's collections.
	Get(ctx context.Context, col Collection, messageID string) (Message, error)
}

// MessageLister provides message listing by collection.
// All listings return stored order, oldest first.
type MessageLister interface {
	Inbox(ctx context.Context, opts ListOptions) (MessageList, error)
	Drafts(ctx context.Context, opts ListOptions) (MessageList, error)
	Sent(ctx context.Context, opts ListOptions) (MessageList, error)
}

// MessageSearcher provides keyword search over one collection.
type MessageSearcher interface {
	// Search returns messages in the given collection whose subject or body
	// contains the keyword, case-insensitively. An empty keyword matches all.
	Search(ctx context.Context, col Collection, keyword string, opts ListOptions) (MessageList, error)
}

// MessageStreamer provides streaming access to search results.
// Use streaming for memory-efficient processing of large result sets.
type MessageStreamer interface {
	// StreamSearch returns an iterator over search results.
	StreamSearch(ctx context.Context, col Collection, keyword string, opts StreamOptions) (MessageIterator, error)
}

// MessageComposer provides draft composition.
type MessageComposer interface {
	// Compose starts a new empty draft.
	Compose() (Draft, error)
	// EditDraft loads an existing draft for editing.
	// Returns ErrNotOwner if the draft belongs to another user.
	EditDraft(ctx context.Context, draftID string) (Draft, error)
}

// SendRequest contains the data needed to send a message directly,
// without going through the draft composition flow.
type SendRequest struct {
	RecipientIDs []string
	Subject      string
	Body         string
}

// MessageSender provides message sending.
type MessageSender interface {
	// SendMessage sends a message directly. Every recipient must have a
	// registered account; otherwise the send fails atomically with an
	// UnknownRecipientError and nothing is stored.
	SendMessage(ctx context.Context, req SendRequest) (Message, error)
	// SendDraft sends a previously saved draft and removes it from the
	// drafts collection on success.
	SendDraft(ctx context.Context, draftID string) (Message, error)
}

// MailboxMutator provides mutation operations on messages by ID.
type MailboxMutator interface {
	// UpdateFlags updates message flags (read status). Only inbox
	// messages carry a read flag.
	UpdateFlags(ctx context.Context, messageID string, flags Flags) error
	// MarkAllRead marks every unread inbox message as read and returns
	// the number of messages changed.
	MarkAllRead(ctx context.Context) (int64, error)
	// Delete removes a message from one of the user's collections.
	// Deleting one copy of a sent message never affects other copies.
	Delete(ctx context.Context, col Collection, messageID string) error
}

// Mailbox provides email-like messaging functionality for a user.
// This is the main interface for mailbox operations.
//
// Composed of focused interfaces:
//   - MessageReader: Single message retrieval (Get)
//   - MessageLister: Collection listings (Inbox, Drafts, Sent)
//   - MessageSearcher: Keyword search (Search)
//   - MessageStreamer: Iterator-based streaming (StreamSearch)
//   - MessageComposer: Draft composition (Compose, EditDraft)
//   - MessageSender: Sending (SendMessage, SendDraft)
//   - MailboxMutator: Mutations by ID (UpdateFlags, MarkAllRead, Delete)
type Mailbox interface {
	UserID() string
	MessageReader
	MessageLister
	MessageSearcher
	MessageStreamer
	MessageComposer
	MessageSender
	MailboxMutator
}

// Connection states for the service.
const (
	stateDisconnected int32 = 0
	stateConnecting   int32 = 1
	stateConnected    int32 = 2
)

// service is the default implementation of Service.
type service struct {
	store    store.Store
	accounts *account.Store
	logger   *slog.Logger
	opts     *options
	state    int32 // stateDisconnected, stateConnecting, or stateConnected
	otel     *otelInstrumentation
	sendSem  *semaphore.Weighted // Limits concurrent sends to prevent resource exhaustion
	eventBus *event.Bus          // Event bus for publishing events
	events   *ServiceEvents      // Per-service event instances
}

// NewService creates a new mail service.
// Call Connect() to establish connections to backends.
func NewService(opts ...Option) (Service, error) {
	o := newOptions(opts...)

	if o.store == nil {
		return nil, ErrStoreRequired
	}
	if o.accounts == nil {
		return nil, ErrAccountsRequired
	}

	// Initialize OTel instrumentation
	otelInstr, err := newOtelInstrumentation(o)
	if err != nil {
		return nil, fmt.Errorf("init otel: %w", err)
	}

	return &service{
		store:    o.store,
		accounts: o.accounts,
		logger:   o.logger,
		opts:     o,
		otel:     otelInstr,
		sendSem:  semaphore.NewWeighted(int64(o.maxConcurrentSends)),
	}, nil
}

// Accounts returns the account store backing recipient validation.
func (s *service) Accounts() *account.Store {
	return s.accounts
}

// Events returns per-service event instances for subscribing and publishing.
func (s *service) Events() *ServiceEvents {
	return s.events
}

// IsConnected returns true if the service is connected and ready.
func (s *service) IsConnected() bool {
	return atomic.LoadInt32(&s.state) == stateConnected
}

// Connect establishes connections to storage backends.
func (s *service) Connect(ctx context.Context) error {
	// Use three-state to prevent Client() from seeing partial initialization
	// stateDisconnected -> stateConnecting -> stateConnected
	if !atomic.CompareAndSwapInt32(&s.state, stateDisconnected, stateConnecting) {
		return ErrAlreadyConnected
	}

	// Reset to disconnected on failure, set to connected on success
	success := false
	defer func() {
		if success {
			atomic.StoreInt32(&s.state, stateConnected)
		} else {
			atomic.StoreInt32(&s.state, stateDisconnected)
		}
	}()

	if err := s.store.Connect(ctx); err != nil {
		return fmt.Errorf("connect store: %w", err)
	}

	// Initialize event bus with appropriate transport
	if err := s.initEventBus(ctx); err != nil {
		s.store.Close(ctx)
		return fmt.Errorf("init event bus: %w", err)
	}

	success = true
	s.logger.Info("minimail service connected")
	return nil
}

// busCounter generates unique suffixes for event bus names.
var busCounter int64

// initEventBus initializes the event bus for this service.
func (s *service) initEventBus(ctx context.Context) error {
	serviceName := s.opts.serviceName
	if serviceName == "" {
		serviceName = "minimail"
	}
	// Each bus needs a unique name, so append a counter suffix
	busName := fmt.Sprintf("%s-%d", serviceName, atomic.AddInt64(&busCounter, 1))

	var bus *event.Bus
	var err error

	if s.opts.eventTransport != nil {
		s.logger.Info("initializing event bus with custom transport")
		bus, err = event.NewBus(busName, event.WithTransport(s.opts.eventTransport))
	} else {
		s.logger.Debug("initializing event bus with noop transport")
		bus, err = event.NewBus(busName, event.WithTransport(noop.New()))
	}

	if err != nil {
		return fmt.Errorf("create event bus: %w", err)
	}
	s.eventBus = bus

	// Create and register per-service events (unique per service instance).
	s.events = newServiceEvents(busName)
	if err := registerServiceEvents(ctx, bus, s.events); err != nil {
		bus.Close(ctx)
		return fmt.Errorf("register service events: %w", err)
	}

	return nil
}

// Close closes connections to storage backends.
func (s *service) Close(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.state, stateConnected, stateDisconnected) {
		return nil
	}

	var errs []error

	// Wait for in-flight send operations to complete (graceful shutdown).
	// After setting state to disconnected, no new sends can start because
	// checkAccess fails. We acquire all semaphore slots to wait for existing
	// operations to finish.
	s.logger.Info("waiting for in-flight operations to complete...", "timeout", s.opts.shutdownTimeout)
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, s.opts.shutdownTimeout)
	defer shutdownCancel()
	if err := s.sendSem.Acquire(shutdownCtx, int64(s.opts.maxConcurrentSends)); err != nil {
		s.logger.Warn("timeout waiting for in-flight operations, proceeding with shutdown",
			"error", err)
		errs = append(errs, fmt.Errorf("graceful shutdown timeout: %w", err))
	} else {
		s.sendSem.Release(int64(s.opts.maxConcurrentSends))
		s.logger.Info("all in-flight operations completed")
	}

	// Close event bus only if using a real transport.
	// For noop transport, the bus doesn't hold resources.
	if s.eventBus != nil && s.opts.eventTransport != nil {
		if err := s.eventBus.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close event bus: %w", err))
		}
	}

	if err := s.store.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}

	return errors.Join(errs...)
}

// Client returns a mailbox client for the given user.
func (s *service) Client(userID string) Mailbox {
	return &userMailbox{
		userID:  userID,
		service: s,
		valid:   isValidUserID(userID),
	}
}

// userMailbox is the default implementation of Mailbox.
type userMailbox struct {
	userID  string
	service *service
	valid   bool // set by Client() after validation
}

// UserID returns the user ID of this mailbox.
func (m *userMailbox) UserID() string {
	return m.userID
}

// isConnected checks if the service is connected.
func (m *userMailbox) isConnected() bool {
	return atomic.LoadInt32(&m.service.state) == stateConnected
}

// checkAccess verifies the mailbox is ready for operations.
// Returns ErrNotConnected if the service isn't connected,
// or ErrInvalidUserID if the user ID failed validation.
func (m *userMailbox) checkAccess() error {
	if !m.isConnected() {
		return ErrNotConnected
	}
	if !m.valid {
		return ErrInvalidUserID
	}
	return nil
}
