package minimail

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MessageLimits holds all message validation limits.
// Used to pass limits to validation functions.
type MessageLimits struct {
	MaxSubjectLength  int
	MaxBodySize       int
	MaxRecipientCount int
}

// Default validation limits. Use the WithMax* options to override per service.
const (
	// DefaultMaxSubjectLength is the default maximum subject length in bytes.
	DefaultMaxSubjectLength = 998

	// DefaultMaxBodySize is the default maximum body size in bytes.
	DefaultMaxBodySize = 10 * 1024 * 1024

	// DefaultMaxRecipientCount is the default maximum number of recipients per send.
	DefaultMaxRecipientCount = 100
)

// DefaultLimits returns the default message limits.
func DefaultLimits() MessageLimits {
	return MessageLimits{
		MaxSubjectLength:  DefaultMaxSubjectLength,
		MaxBodySize:       DefaultMaxBodySize,
		MaxRecipientCount: DefaultMaxRecipientCount,
	}
}

// ValidateSubject validates a message subject using default limits.
// Empty subjects are allowed.
func ValidateSubject(subject string) error {
	return ValidateSubjectWithLimits(subject, DefaultLimits())
}

// ValidateSubjectWithLimits validates a message subject against configurable
// limits. Failures carry field-level detail via ValidationError and unwrap to
// the matching sentinel.
func ValidateSubjectWithLimits(subject string, limits MessageLimits) error {
	if len(subject) > limits.MaxSubjectLength {
		return &ValidationError{
			Field:   "subject",
			Message: fmt.Sprintf("length %d exceeds max %d", len(subject), limits.MaxSubjectLength),
			Err:     ErrSubjectTooLong,
		}
	}

	if !utf8.ValidString(subject) {
		return &ValidationError{
			Field:   "subject",
			Message: "contains invalid UTF-8",
			Err:     ErrInvalidContent,
		}
	}

	for _, r := range subject {
		if unicode.IsControl(r) && r != '\t' {
			return &ValidationError{
				Field:   "subject",
				Message: fmt.Sprintf("contains control character U+%04X", r),
				Err:     ErrInvalidContent,
			}
		}
	}

	return nil
}

// ValidateBody validates a message body using default limits.
// For configurable limits, use ValidateBodyWithLimits.
func ValidateBody(body string) error {
	return ValidateBodyWithLimits(body, DefaultLimits())
}

// ValidateBodyWithLimits validates a message body against configurable limits.
func ValidateBodyWithLimits(body string, limits MessageLimits) error {
	if len(body) > limits.MaxBodySize {
		return &ValidationError{
			Field:   "body",
			Message: fmt.Sprintf("size %d exceeds max %d bytes", len(body), limits.MaxBodySize),
			Err:     ErrBodyTooLarge,
		}
	}

	if !utf8.ValidString(body) {
		return &ValidationError{
			Field:   "body",
			Message: "contains invalid UTF-8",
			Err:     ErrInvalidContent,
		}
	}

	// Null bytes could indicate injection attempts.
	if strings.ContainsRune(body, '\x00') {
		return &ValidationError{
			Field:   "body",
			Message: "contains null bytes",
			Err:     ErrInvalidContent,
		}
	}

	return nil
}

// ValidateMessageContent validates subject and body together using default limits.
func ValidateMessageContent(subject, body string) error {
	return ValidateMessageContentWithLimits(subject, body, DefaultLimits())
}

// ValidateMessageContentWithLimits validates subject and body with configurable limits.
func ValidateMessageContentWithLimits(subject, body string, limits MessageLimits) error {
	if err := ValidateSubjectWithLimits(subject, limits); err != nil {
		return err
	}
	return ValidateBodyWithLimits(body, limits)
}

// ValidateRecipients validates the recipient list for a send.
func ValidateRecipients(recipientIDs []string, limits MessageLimits) error {
	if len(recipientIDs) == 0 {
		return ErrEmptyRecipients
	}

	if len(recipientIDs) > limits.MaxRecipientCount {
		return &ValidationError{
			Field:   "recipients",
			Message: fmt.Sprintf("count %d exceeds max %d", len(recipientIDs), limits.MaxRecipientCount),
			Err:     ErrTooManyRecipients,
		}
	}

	// Duplicates are silently collapsed at send time.
	for _, id := range recipientIDs {
		if !isValidUserID(id) {
			return &ValidationError{
				Field:   "recipients",
				Message: fmt.Sprintf("invalid user id %q", id),
				Err:     ErrInvalidUserID,
			}
		}
	}

	return nil
}

// isValidUserID reports whether a user ID is acceptable: non-empty and free
// of control and whitespace characters. Matches the account package's rules.
func isValidUserID(id string) bool {
	if id == "" {
		return false
	}
	for _, r := range id {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return false
		}
	}
	return true
}
