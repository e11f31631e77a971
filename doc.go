// Package minimail provides an email-like messaging engine for Go.
//
// Users register accounts, compose drafts, and send messages to other
// registered users. Each user owns three collections: inbox, drafts, and
// sent. Sending fans out atomically: the sender gets one sent record and
// every recipient gets one unread inbox copy, all sharing the same
// sender, subject, body, and timestamp. After delivery each copy is
// fully independent - reading or deleting one never affects another.
//
// # Basic Usage
//
//	// Create stores
//	accounts, _ := account.New(account.WithSnapshotPath("users.json"))
//	messages, _ := jsonfile.New("mailboxes.json")
//
//	// Create the service
//	svc, err := minimail.NewService(
//	    minimail.WithStore(messages),
//	    minimail.WithAccounts(accounts),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Connect loads snapshots / initializes schema
//	if err := svc.Connect(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer svc.Close(ctx)
//
//	// Get a mailbox client for a user
//	mb := svc.Client("alice")
//
//	// Send a message
//	draft, _ := mb.Compose()
//	msg, err := draft.
//	    SetSubject("Hello").
//	    SetBody("World").
//	    SetRecipients("bob").
//	    Send(ctx)
//
// # Mailbox Operations
//
//   - Compose/EditDraft: Create and edit drafts
//   - SendMessage/SendDraft: Atomic fan-out delivery
//   - Get: Retrieve a message by collection and ID
//   - Inbox/Drafts/Sent: List collections in stored order
//   - Search: Case-insensitive keyword search over subject and body
//   - StreamSearch: Iterator-based streaming
//   - UpdateFlags/MarkAllRead/Delete: Per-copy mutations
//
// # Storage Backends
//
// The store package provides implementations for:
//   - JSON snapshot files (store/jsonfile) - full rewrite per mutation
//   - PostgreSQL (store/postgres) - accepts *sql.DB
//   - In-memory (store/memory) - for testing
//
// # Events
//
// Minimail publishes typed events for message lifecycle notifications
// using the github.com/rbaliyan/event/v3 library. By default events use
// a noop transport; pass WithEventTransport to wire a real one.
//
//	svc.Events().MessageSent.Subscribe(ctx, func(ctx context.Context, e minimail.MessageSentEvent) error {
//	    log.Printf("message %s sent to %v", e.MessageID, e.RecipientIDs)
//	    return nil
//	})
package minimail
