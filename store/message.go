package store

import (
	"strings"
	"time"
)

// MessageStatus represents the lifecycle state of a record.
type MessageStatus string

// Message status constants. A record moves draft -> sent (sender's copy)
// with delivered copies fanned out to each recipient's inbox.
const (
	StatusDraft     MessageStatus = "draft"
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
)

// Collection identifies one of the three per-user collections.
type Collection string

// Collection constants.
const (
	CollectionInbox  Collection = "inbox"
	CollectionDrafts Collection = "drafts"
	CollectionSent   Collection = "sent"
)

// validCollections is the set of known collection names.
var validCollections = map[Collection]bool{
	CollectionInbox:  true,
	CollectionDrafts: true,
	CollectionSent:   true,
}

// IsValidCollection returns true if col names a known collection.
func IsValidCollection(col Collection) bool {
	return validCollections[col]
}

// StatusFor returns the record status implied by a collection.
func StatusFor(col Collection) MessageStatus {
	switch col {
	case CollectionDrafts:
		return StatusDraft
	case CollectionSent:
		return StatusSent
	default:
		return StatusDelivered
	}
}

// MessageRecord is the stored representation of a message copy.
//
// Every copy produced by a send shares Sender, Recipients, Subject, Body,
// and SentAt, but each copy is independent afterwards: the Read flag and
// existence of one copy never affect another.
type MessageRecord struct {
	ID         string        `db:"id"`
	Owner      string        `db:"owner_id"`
	Collection Collection    `db:"collection"`
	Status     MessageStatus `db:"status"`
	Sender     string        `db:"sender_id"`
	Recipients []string      `db:"recipient_ids"`
	Subject    string        `db:"subject"`
	Body       string        `db:"body"`
	// SentAt is fixed at the moment of sending; zero for drafts.
	SentAt time.Time `db:"sent_at"`
	// Read applies only to inbox records.
	Read      bool      `db:"is_read"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Clone returns a deep copy of the record.
func (r *MessageRecord) Clone() *MessageRecord {
	c := *r
	c.Recipients = append([]string(nil), r.Recipients...)
	return &c
}

// Matches reports whether the record's subject or body contains keyword,
// case-insensitively. An empty keyword matches every record.
func (r *MessageRecord) Matches(keyword string) bool {
	if keyword == "" {
		return true
	}
	k := strings.ToLower(keyword)
	return strings.Contains(strings.ToLower(r.Subject), k) ||
		strings.Contains(strings.ToLower(r.Body), k)
}

// MessageData contains the data for creating a new record.
// Used by the engine when committing a send fan-out batch.
type MessageData struct {
	Owner      string
	Collection Collection
	Status     MessageStatus
	Sender     string
	Recipients []string
	Subject    string
	Body       string
	SentAt     time.Time
	Read       bool
}

// DraftData contains the data for creating or updating a draft.
// An empty ID means create; a non-empty ID means update in place.
// Recipients are stored as given - validation is deferred to send.
type DraftData struct {
	ID         string
	Owner      string
	Recipients []string
	Subject    string
	Body       string
}

// ListOptions configures listing and search pagination.
type ListOptions struct {
	// Limit caps the number of records returned; 0 means no limit.
	Limit int
	// Offset skips that many records from the start of the collection.
	Offset int
	// StartAfter resumes after the record with this ID (cursor-based
	// pagination, used by the search iterator). Takes precedence over
	// Offset when set.
	StartAfter string
}

// SearchQuery represents a keyword search over one owner's collection.
type SearchQuery struct {
	Owner      string
	Collection Collection
	Keyword    string
	Options    ListOptions
}
