// Package account manages user registration and credential verification.
//
// Accounts live in memory, optionally backed by a JSON snapshot file
// (username -> credential hash) that is loaded once at New and fully
// rewritten after each mutation. Credentials are stored hashed; the hash
// scheme is pluggable through Hasher.
package account

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"unicode"
)

// Store holds registered users and their credential hashes.
// Thread-safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	users  map[string]string
	hasher Hasher

	path     string
	log      *slog.Logger
	fileMode uint32
}

// New creates an account store, loading the snapshot file when one is
// configured. A malformed snapshot fails New with store.ErrMalformedStore.
func New(opts ...Option) (*Store, error) {
	s := &Store{
		users:    make(map[string]string),
		hasher:   bcryptHasher{},
		log:      slog.Default(),
		fileMode: 0o600,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.path != "" {
		if err := s.load(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Register creates a new user. The username must be non-empty and free of
// separator and control characters. Nothing changes on failure.
func (s *Store) Register(ctx context.Context, username, credential string) error {
	if !isValidUsername(username) {
		return ErrInvalidUsername
	}

	hash, err := s.hasher.Hash(credential)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.users[username]; taken {
		return ErrDuplicateUser
	}
	s.users[username] = hash
	if err := s.persist(); err != nil {
		delete(s.users, username)
		return err
	}

	s.log.Info("user registered", "username", username)
	return nil
}

// Verify checks a credential. ErrUnknownUser when the user does not
// exist, ErrAuthFailed on mismatch. Never mutates state.
func (s *Store) Verify(ctx context.Context, username, credential string) error {
	s.mu.RLock()
	hash, ok := s.users[username]
	s.mu.RUnlock()

	if !ok {
		return ErrUnknownUser
	}
	// Compare outside the lock: hashing is deliberately slow.
	if err := s.hasher.Compare(hash, credential); err != nil {
		return ErrAuthFailed
	}
	return nil
}

// ChangeCredential replaces a user's credential after verifying the old
// one. Nothing changes on failure.
func (s *Store) ChangeCredential(ctx context.Context, username, old, new string) error {
	if err := s.Verify(ctx, username, old); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(new)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.users[username]
	if !ok {
		return ErrUnknownUser
	}
	s.users[username] = hash
	if err := s.persist(); err != nil {
		s.users[username] = prev
		return err
	}

	s.log.Info("credential changed", "username", username)
	return nil
}

// Exists reports whether a user is registered.
func (s *Store) Exists(ctx context.Context, username string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.users[username]
	return ok
}

// Usernames returns every registered username, sorted.
func (s *Store) Usernames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.users))
	for name := range s.users {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// isValidUsername rejects empty names and names containing space,
// separator or control characters.
func isValidUsername(username string) bool {
	if username == "" {
		return false
	}
	for _, r := range username {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return false
		}
	}
	return true
}
