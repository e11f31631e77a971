package minimail

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateSubject(t *testing.T) {
	t.Run("empty is allowed", func(t *testing.T) {
		if err := ValidateSubject(""); err != nil {
			t.Errorf("empty subject should be valid, got %v", err)
		}
	})

	t.Run("tabs are allowed", func(t *testing.T) {
		if err := ValidateSubject("col1\tcol2"); err != nil {
			t.Errorf("tab should be valid, got %v", err)
		}
	})

	t.Run("too long", func(t *testing.T) {
		err := ValidateSubject(strings.Repeat("a", DefaultMaxSubjectLength+1))
		if !errors.Is(err, ErrSubjectTooLong) {
			t.Fatalf("expected ErrSubjectTooLong, got %v", err)
		}
		var vErr *ValidationError
		if !errors.As(err, &vErr) || vErr.Field != "subject" {
			t.Errorf("expected ValidationError on field subject, got %#v", err)
		}
	})

	t.Run("control characters", func(t *testing.T) {
		if err := ValidateSubject("bad\x07subject"); !errors.Is(err, ErrInvalidContent) {
			t.Errorf("expected ErrInvalidContent, got %v", err)
		}
	})
}

func TestValidateBody(t *testing.T) {
	t.Run("too large", func(t *testing.T) {
		limits := MessageLimits{MaxSubjectLength: 100, MaxBodySize: 10, MaxRecipientCount: 5}
		err := ValidateBodyWithLimits("this body is longer than ten bytes", limits)
		if !errors.Is(err, ErrBodyTooLarge) {
			t.Fatalf("expected ErrBodyTooLarge, got %v", err)
		}
		var vErr *ValidationError
		if !errors.As(err, &vErr) || vErr.Field != "body" {
			t.Errorf("expected ValidationError on field body, got %#v", err)
		}
	})

	t.Run("null bytes", func(t *testing.T) {
		if err := ValidateBody("abc\x00def"); !errors.Is(err, ErrInvalidContent) {
			t.Errorf("expected ErrInvalidContent, got %v", err)
		}
	})

	t.Run("multiline is allowed", func(t *testing.T) {
		if err := ValidateBody("line one\nline two"); err != nil {
			t.Errorf("newlines should be valid, got %v", err)
		}
	})
}

func TestValidateRecipients(t *testing.T) {
	limits := MessageLimits{MaxSubjectLength: 100, MaxBodySize: 100, MaxRecipientCount: 2}

	t.Run("empty list", func(t *testing.T) {
		if err := ValidateRecipients(nil, limits); !errors.Is(err, ErrEmptyRecipients) {
			t.Errorf("expected ErrEmptyRecipients, got %v", err)
		}
	})

	t.Run("too many", func(t *testing.T) {
		err := ValidateRecipients([]string{"a", "b", "c"}, limits)
		if !errors.Is(err, ErrTooManyRecipients) {
			t.Fatalf("expected ErrTooManyRecipients, got %v", err)
		}
		var vErr *ValidationError
		if !errors.As(err, &vErr) || vErr.Field != "recipients" {
			t.Errorf("expected ValidationError on field recipients, got %#v", err)
		}
	})

	t.Run("invalid id", func(t *testing.T) {
		err := ValidateRecipients([]string{"ok", "has space"}, limits)
		if !errors.Is(err, ErrInvalidUserID) {
			t.Errorf("expected ErrInvalidUserID, got %v", err)
		}
	})

	t.Run("valid", func(t *testing.T) {
		if err := ValidateRecipients([]string{"alice", "bob"}, limits); err != nil {
			t.Errorf("expected valid, got %v", err)
		}
	})
}
