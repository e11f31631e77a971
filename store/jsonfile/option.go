package jsonfile

import (
	"io/fs"
	"log/slog"
)

// Option configures a snapshot-file store.
type Option func(*Store)

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
