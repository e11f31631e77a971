package jsonfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/minimail/minimail/store"
)

// fileMessage is the on-disk representation of one record.
//
// sent_at holds the send time for inbox and sent records, and the
// last-edited time for drafts.
type fileMessage struct {
	ID         string    `json:"id"`
	Sender     string    `json:"sender"`
	Recipients []string  `json:"recipients,omitempty"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	SentAt     time.Time `json:"sent_at"`
	Read       bool      `json:"read,omitempty"`
}

// fileMailbox is one user's mailbox on disk. Arrays preserve stored
// order.
type fileMailbox struct {
	Inbox  []fileMessage `json:"inbox"`
	Drafts []fileMessage `json:"drafts"`
	Sent   []fileMessage `json:"sent"`
}

// load reads the snapshot file into memory. A missing file starts empty;
// anything that cannot be decoded into a valid state is
// store.ErrMalformedStore.
func (s *Store) load() error {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.log.Info("mailbox snapshot missing, starting empty", "path", s.path)
			return nil
		}
		return fmt.Errorf("store: read snapshot %s: %w", s.path, err)
	}

	var file map[string]fileMailbox
	if err := json.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("%w: %s: %v", store.ErrMalformedStore, s.path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for owner, box := range file {
		if owner == "" {
			return fmt.Errorf("%w: %s: empty username key", store.ErrMalformedStore, s.path)
		}
		m := s.box(owner)
		for col, msgs := range map[store.Collection][]fileMessage{
			store.CollectionInbox:  box.Inbox,
			store.CollectionDrafts: box.Drafts,
			store.CollectionSent:   box.Sent,
		} {
			for _, fm := range msgs {
				r, err := fm.record(owner, col)
				if err != nil {
					return fmt.Errorf("%w: %s: %v", store.ErrMalformedStore, s.path, err)
				}
				if _, dup := s.byID[r.ID]; dup {
					return fmt.Errorf("%w: %s: duplicate id %s", store.ErrMalformedStore, s.path, r.ID)
				}
				s.byID[r.ID] = r
				target := m.collection(col)
				*target = append(*target, r)
			}
		}
	}

	s.log.Info("mailbox snapshot loaded", "path", s.path, "users", len(file), "records", len(s.byID))
	return nil
}

// record converts a file entry back to a MessageRecord.
func (fm fileMessage) record(owner string, col store.Collection) (*store.MessageRecord, error) {
	if fm.ID == "" {
		return nil, fmt.Errorf("record without id in %s/%s", owner, col)
	}
	r := &store.MessageRecord{
		ID:         fm.ID,
		Owner:      owner,
		Collection: col,
		Status:     store.StatusFor(col),
		Sender:     fm.Sender,
		Recipients: append([]string(nil), fm.Recipients...),
		Subject:    fm.Subject,
		Body:       fm.Body,
		Read:       fm.Read,
		CreatedAt:  fm.SentAt,
		UpdatedAt:  fm.SentAt,
	}
	if col == store.CollectionDrafts {
		if fm.Sender == "" {
			r.Sender = owner
		}
	} else {
		r.SentAt = fm.SentAt
	}
	return r, nil
}

// persist writes the full current state to the snapshot file via a temp
// file in the same directory and an atomic rename. Caller must hold mu.
func (s *Store) persist() error {
	file := make(map[string]fileMailbox, len(s.boxes))
	for owner, m := range s.boxes {
		file[owner] = fileMailbox{
			Inbox:  entries(m.inbox),
			Drafts: entries(m.drafts),
			Sent:   entries(m.sent),
		}
	}

	raw, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("store: encode snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp*")
	if err != nil {
		return fmt.Errorf("store: write snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("store: write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("store: write snapshot: %w", err)
	}
	if err := os.Chmod(tmp.Name(), os.FileMode(s.fileMode)); err != nil {
		return fmt.Errorf("store: write snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("store: write snapshot: %w", err)
	}
	return nil
}

// entries converts a collection to its file form. Always returns a
// non-nil slice so empty collections serialize as [] rather than null.
func entries(records []*store.MessageRecord) []fileMessage {
	out := make([]fileMessage, 0, len(records))
	for _, r := range records {
		fm := fileMessage{
			ID:         r.ID,
			Sender:     r.Sender,
			Recipients: r.Recipients,
			Subject:    r.Subject,
			Body:       r.Body,
			SentAt:     r.SentAt,
			Read:       r.Read,
		}
		if r.Collection == store.CollectionDrafts {
			fm.SentAt = r.UpdatedAt
		}
		out = append(out, fm)
	}
	return out
}
