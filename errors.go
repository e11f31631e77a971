package minimail

import (
	"errors"
	"fmt"
	"strings"

	"github.com/minimail/minimail/store"
)

// Sentinel errors for the minimail package.
// Use errors.Is() to check for these errors.
//
// These errors wrap corresponding store-level errors where applicable,
// so errors.Is(err, minimail.ErrNotFound) will match both service-level
// and store-level "not found" errors.
var (
	// ErrNotFound is returned when a message cannot be found.
	// Wraps store.ErrNotFound for consistent error checking.
	ErrNotFound = fmt.Errorf("minimail: %w", store.ErrNotFound)

	// ErrNotOwner is returned when a user tries to act on a message that
	// belongs to another user.
	ErrNotOwner = errors.New("minimail: not the owner")

	// ErrUnknownRecipient is returned when a send names a recipient that
	// has no registered account. See UnknownRecipientError for details.
	ErrUnknownRecipient = errors.New("minimail: unknown recipient")

	// ErrEmptyRecipients is returned when a send has no recipients.
	ErrEmptyRecipients = errors.New("minimail: empty recipients")

	// ErrInvalidUserID is returned when a user ID contains invalid characters.
	ErrInvalidUserID = errors.New("minimail: invalid user id")

	// ErrStoreRequired is returned when no store is configured.
	ErrStoreRequired = errors.New("minimail: store is required")

	// ErrAccountsRequired is returned when no account store is configured.
	ErrAccountsRequired = errors.New("minimail: account store is required")

	// ErrNotConnected is returned when operations are attempted before Connect().
	// Wraps store.ErrNotConnected for consistent error checking.
	ErrNotConnected = fmt.Errorf("minimail: %w", store.ErrNotConnected)

	// ErrAlreadyConnected is returned when Connect() is called twice.
	// Wraps store.ErrAlreadyConnected for consistent error checking.
	ErrAlreadyConnected = fmt.Errorf("minimail: %w", store.ErrAlreadyConnected)

	// ErrInvalidID is returned when an invalid message ID is provided.
	// Wraps store.ErrInvalidID for consistent error checking.
	ErrInvalidID = fmt.Errorf("minimail: %w", store.ErrInvalidID)

	// ErrSubjectTooLong is returned when subject exceeds maximum length.
	ErrSubjectTooLong = errors.New("minimail: subject too long")

	// ErrBodyTooLarge is returned when body exceeds maximum size.
	ErrBodyTooLarge = errors.New("minimail: body too large")

	// ErrTooManyRecipients is returned when recipient count exceeds the limit.
	ErrTooManyRecipients = errors.New("minimail: too many recipients")

	// ErrInvalidContent is returned when message content contains invalid characters.
	ErrInvalidContent = errors.New("minimail: invalid content")

	// ErrEventPublishFailed is returned (or handled, see WithEventPublishFailureHandler)
	// when an event could not be published after the underlying operation succeeded.
	ErrEventPublishFailed = errors.New("minimail: event publish failed")
)

// UnknownRecipientError reports which recipients of a rejected send have no
// registered account. The send is all-or-nothing: when this error is returned
// nothing was stored and no recipient received anything.
type UnknownRecipientError struct {
	// Recipients contains the unknown recipient IDs, in first-occurrence order.
	Recipients []string
}

func (e *UnknownRecipientError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "minimail: unknown recipient")
	if len(e.Recipients) > 1 {
		sb.WriteString("s")
	}
	if len(e.Recipients) > 0 {
		sb.WriteString(": ")
		const maxShown = 5
		for i, id := range e.Recipients {
			if i > 0 {
				sb.WriteString(", ")
			}
			if i >= maxShown {
				fmt.Fprintf(&sb, "...and %d more", len(e.Recipients)-maxShown)
				break
			}
			sb.WriteString(id)
		}
	}
	return sb.String()
}

func (e *UnknownRecipientError) Unwrap() error {
	return ErrUnknownRecipient
}

// EventPublishError wraps an event publish failure together with the
// operation whose event could not be delivered. The operation itself
// completed; only the notification was lost.
type EventPublishError struct {
	// Operation names the service operation whose event failed, e.g. "send".
	Operation string
	// Err is the underlying publish error.
	Err error
}

func (e *EventPublishError) Error() string {
	return fmt.Sprintf("minimail: event publish failed for %s: %v", e.Operation, e.Err)
}

func (e *EventPublishError) Unwrap() error {
	return ErrEventPublishFailed
}

// ValidationError provides field-level detail for content validation failures.
type ValidationError struct {
	// Field is the name of the failing field ("subject", "body", "recipients").
	Field string
	// Message describes the failure.
	Message string
	// Err is the sentinel this validation failure maps to.
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("minimail: validation failed for %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
