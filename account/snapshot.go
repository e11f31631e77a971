package account

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/minimail/minimail/store"
)

// load reads the snapshot file. A missing file starts empty; a file that
// cannot be decoded is store.ErrMalformedStore.
func (s *Store) load() error {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.log.Info("account snapshot missing, starting empty", "path", s.path)
			return nil
		}
		return fmt.Errorf("account: read snapshot %s: %w", s.path, err)
	}

	var users map[string]string
	if err := json.Unmarshal(raw, &users); err != nil {
		return fmt.Errorf("%w: %s: %v", store.ErrMalformedStore, s.path, err)
	}
	for name := range users {
		if !isValidUsername(name) {
			return fmt.Errorf("%w: %s: invalid username %q", store.ErrMalformedStore, s.path, name)
		}
	}

	s.users = users
	if s.users == nil {
		s.users = make(map[string]string)
	}
	s.log.Info("account snapshot loaded", "path", s.path, "users", len(s.users))
	return nil
}

// persist writes the full user map via a temp file and atomic rename.
// A no-op when no snapshot path is configured. Caller must hold mu.
func (s *Store) persist() error {
	if s.path == "" {
		return nil
	}

	raw, err := json.MarshalIndent(s.users, "", "  ")
	if err != nil {
		return fmt.Errorf("account: encode snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp*")
	if err != nil {
		return fmt.Errorf("account: write snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("account: write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("account: write snapshot: %w", err)
	}
	if err := os.Chmod(tmp.Name(), os.FileMode(s.fileMode)); err != nil {
		return fmt.Errorf("account: write snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("account: write snapshot: %w", err)
	}
	return nil
}
