package minimail

// Pre-allocated boolean pointers for efficient Flags creation.
// These avoid allocations when using MarkRead() and MarkUnread().
var (
	ptrTrue  = ptr(true)
	ptrFalse = ptr(false)
)

func ptr(b bool) *bool { return &b }

// Flags represents message flags that can be updated atomically.
// Use nil values to indicate no change.
type Flags struct {
	Read *bool // nil = no change, true = mark read, false = mark unread
}

// Pre-allocated flag values for common operations.
var (
	// FlagsMarkRead marks a message as read.
	FlagsMarkRead = Flags{Read: ptrTrue}
	// FlagsMarkUnread marks a message as unread.
	FlagsMarkUnread = Flags{Read: ptrFalse}
)

// NewFlags creates empty flags (no changes).
func NewFlags() Flags {
	return Flags{}
}

// WithRead returns flags with read status set.
func (f Flags) WithRead(read bool) Flags {
	if read {
		f.Read = ptrTrue
	} else {
		f.Read = ptrFalse
	}
	return f
}

// MarkRead returns flags to mark a message as read.
func MarkRead() Flags {
	return FlagsMarkRead
}

// MarkUnread returns flags to mark a message as unread.
func MarkUnread() Flags {
	return FlagsMarkUnread
}
