package account

import "errors"

// Sentinel errors for the account package.
var (
	// ErrDuplicateUser is returned when registering a username that is
	// already taken.
	ErrDuplicateUser = errors.New("account: duplicate user")

	// ErrInvalidUsername is returned when a username is empty or contains
	// separator or control characters.
	ErrInvalidUsername = errors.New("account: invalid username")

	// ErrUnknownUser is returned when the addressed user does not exist.
	ErrUnknownUser = errors.New("account: unknown user")

	// ErrAuthFailed is returned when a credential does not match.
	ErrAuthFailed = errors.New("account: authentication failed")
)
