package store

import "errors"

// Sentinel errors for the store package.
var (
	// ErrNotFound is returned when a record cannot be found in the
	// addressed owner's collection.
	ErrNotFound = errors.New("store: not found")

	// ErrInvalidID is returned when an invalid ID is provided.
	ErrInvalidID = errors.New("store: invalid id")

	// ErrInvalidCollection is returned when an unknown collection name
	// is provided.
	ErrInvalidCollection = errors.New("store: invalid collection")

	// ErrNotConnected is returned when operations are attempted before Connect().
	ErrNotConnected = errors.New("store: not connected")

	// ErrAlreadyConnected is returned when Connect() is called twice.
	ErrAlreadyConnected = errors.New("store: already connected")

	// ErrMalformedStore is returned when a persisted snapshot cannot be
	// decoded into valid records. It is fatal at startup: backends refuse
	// to proceed with partial data.
	ErrMalformedStore = errors.New("store: malformed store file")

	// ErrTransactionFailed is returned when an atomic batch could not
	// complete. No changes were made.
	ErrTransactionFailed = errors.New("store: transaction failed")
)

// Error checking helpers.

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsInvalidID(err error) bool {
	return errors.Is(err, ErrInvalidID)
}

func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformedStore)
}
