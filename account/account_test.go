package account

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/minimail/minimail/store"
)

// plainHasher avoids bcrypt cost in tests.
type plainHasher struct{}

func (plainHasher) Hash(credential string) (string, error) { return credential, nil }
func (plainHasher) Compare(stored, credential string) error {
	if stored != credential {
		return errors.New("mismatch")
	}
	return nil
}

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s, err := New(append([]Option{WithHasher(plainHasher{})}, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestRegister(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Register(ctx, "alice", "secret"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if !s.Exists(ctx, "alice") {
		t.Error("alice not found after Register")
	}

	t.Run("duplicate", func(t *testing.T) {
		err := s.Register(ctx, "alice", "other")
		if !errors.Is(err, ErrDuplicateUser) {
			t.Errorf("got %v, want ErrDuplicateUser", err)
		}
		// Original credential untouched.
		if err := s.Verify(ctx, "alice", "secret"); err != nil {
			t.Errorf("Verify after failed re-register: %v", err)
		}
	})

	t.Run("invalid usernames", func(t *testing.T) {
		for _, name := range []string{"", "has space", "tab\tname", "new\nline", "ctrl\x00"} {
			if err := s.Register(ctx, name, "x"); !errors.Is(err, ErrInvalidUsername) {
				t.Errorf("Register(%q): got %v, want ErrInvalidUsername", name, err)
			}
		}
	})
}

func TestVerify(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Register(ctx, "alice", "secret"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if err := s.Verify(ctx, "alice", "secret"); err != nil {
		t.Errorf("Verify with correct credential: %v", err)
	}
	if err := s.Verify(ctx, "alice", "wrong"); !errors.Is(err, ErrAuthFailed) {
		t.Errorf("Verify with wrong credential: got %v, want ErrAuthFailed", err)
	}
	if err := s.Verify(ctx, "nobody", "secret"); !errors.Is(err, ErrUnknownUser) {
		t.Errorf("Verify unknown user: got %v, want ErrUnknownUser", err)
	}
}

func TestChangeCredential(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Register(ctx, "alice", "old"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if err := s.ChangeCredential(ctx, "alice", "wrong", "new"); !errors.Is(err, ErrAuthFailed) {
		t.Errorf("got %v, want ErrAuthFailed", err)
	}
	if err := s.Verify(ctx, "alice", "old"); err != nil {
		t.Errorf("credential changed despite failed auth: %v", err)
	}

	if err := s.ChangeCredential(ctx, "nobody", "old", "new"); !errors.Is(err, ErrUnknownUser) {
		t.Errorf("got %v, want ErrUnknownUser", err)
	}

	if err := s.ChangeCredential(ctx, "alice", "old", "new"); err != nil {
		t.Fatalf("ChangeCredential: %v", err)
	}
	if err := s.Verify(ctx, "alice", "new"); err != nil {
		t.Errorf("Verify with new credential: %v", err)
	}
	if err := s.Verify(ctx, "alice", "old"); !errors.Is(err, ErrAuthFailed) {
		t.Errorf("old credential still accepted: %v", err)
	}
}

func TestUsernames(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"carol", "alice", "bob"} {
		if err := s.Register(ctx, name, "x"); err != nil {
			t.Fatalf("Register(%s): %v", name, err)
		}
	}

	got := s.Usernames()
	want := []string{"alice", "bob", "carol"}
	if len(got) != len(want) {
		t.Fatalf("got %d usernames, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSnapshotPersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	ctx := context.Background()

	s := newTestStore(t, WithSnapshotPath(path))
	if err := s.Register(ctx, "alice", "secret"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := s.ChangeCredential(ctx, "alice", "secret", "rotated"); err != nil {
		t.Fatalf("ChangeCredential: %v", err)
	}

	reopened := newTestStore(t, WithSnapshotPath(path))
	if !reopened.Exists(ctx, "alice") {
		t.Fatal("alice lost across reopen")
	}
	if err := reopened.Verify(ctx, "alice", "rotated"); err != nil {
		t.Errorf("Verify after reopen: %v", err)
	}
}

func TestMalformedSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	if err := os.WriteFile(path, []byte(`["alice"]`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	_, err := New(WithSnapshotPath(path))
	if !errors.Is(err, store.ErrMalformedStore) {
		t.Errorf("got %v, want ErrMalformedStore", err)
	}
}

func TestBcryptDefault(t *testing.T) {
	s, err := New(WithBcryptCost(4))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	if err := s.Register(ctx, "alice", "secret"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := s.Verify(ctx, "alice", "secret"); err != nil {
		t.Errorf("Verify: %v", err)
	}
	if err := s.Verify(ctx, "alice", "Secret"); !errors.Is(err, ErrAuthFailed) {
		t.Errorf("got %v, want ErrAuthFailed", err)
	}
}
