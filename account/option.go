package account

import (
	"io/fs"
	"log/slog"
)

// Option configures an account store.
type Option func(*Store)

// WithSnapshotPath enables persistence to the given JSON file.
func WithSnapshotPath(path string) Option {
	return func(s *Store) {
		s.path = path
	}
}

// WithHasher sets a custom credential hasher.
func WithHasher(h Hasher) Option {
	return func(s *Store) {
		if h != nil {
			s.hasher = h
		}
	}
}

// WithBcryptCost sets the bcrypt cost for the default hasher.
func WithBcryptCost(cost int) Option {
	return func(s *Store) {
		if cost > 0 {
			s.hasher = bcryptHasher{cost: cost}
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithFileMode sets the permission bits for the snapshot file.
func WithFileMode(mode fs.FileMode) Option {
	return func(s *Store) {
		if mode != 0 {
			s.fileMode = uint32(mode)
		}
	}
}
