package minimail

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/minimail/minimail/account"
	"github.com/minimail/minimail/store/memory"
)

// setupTestService creates a connected service with the given users registered.
func setupTestService(t *testing.T, users ...string) Service {
	t.Helper()

	ctx := context.Background()

	accounts, err := account.New(account.WithBcryptCost(4))
	if err != nil {
		t.Fatalf("create account store: %v", err)
	}
	for _, u := range users {
		if err := accounts.Register(ctx, u, "secret"); err != nil {
			t.Fatalf("register %s: %v", u, err)
		}
	}

	svc, err := NewService(
		WithStore(memory.New()),
		WithAccounts(accounts),
	)
	if err != nil {
		t.Fatalf("create service: %v", err)
	}
	if err := svc.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	return svc
}

// mustCompose is a test helper that panics if Compose fails.
func mustCompose(mb Mailbox) Draft {
	d, err := mb.Compose()
	if err != nil {
		panic(err)
	}
	return d
}

func TestNewService(t *testing.T) {
	accounts, _ := account.New(account.WithBcryptCost(4))

	t.Run("requires store", func(t *testing.T) {
		_, err := NewService(WithAccounts(accounts))
		if !errors.Is(err, ErrStoreRequired) {
			t.Errorf("expected ErrStoreRequired, got %v", err)
		}
	})

	t.Run("requires accounts", func(t *testing.T) {
		_, err := NewService(WithStore(memory.New()))
		if !errors.Is(err, ErrAccountsRequired) {
			t.Errorf("expected ErrAccountsRequired, got %v", err)
		}
	})

	t.Run("creates service", func(t *testing.T) {
		svc, err := NewService(WithStore(memory.New()), WithAccounts(accounts))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if svc == nil {
			t.Fatal("expected non-nil service")
		}
	})
}

func TestServiceLifecycle(t *testing.T) {
	accounts, _ := account.New(account.WithBcryptCost(4))
	svc, err := NewService(WithStore(memory.New()), WithAccounts(accounts))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx := context.Background()

	if err := svc.Connect(ctx); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	if !svc.IsConnected() {
		t.Error("expected IsConnected after Connect")
	}

	// Double connect should fail
	if err := svc.Connect(ctx); !errors.Is(err, ErrAlreadyConnected) {
		t.Errorf("expected ErrAlreadyConnected, got %v", err)
	}

	if err := svc.Close(ctx); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	// Double close should be safe
	if err := svc.Close(ctx); err != nil {
		t.Errorf("second close should not error, got %v", err)
	}
}

func TestUserMailbox(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t, "alice")
	defer svc.Close(ctx)

	t.Run("UserID returns correct ID", func(t *testing.T) {
		mb := svc.Client("alice")
		if mb.UserID() != "alice" {
			t.Errorf("expected UserID 'alice', got %q", mb.UserID())
		}
	})

	t.Run("operations fail when not connected", func(t *testing.T) {
		accounts, _ := account.New(account.WithBcryptCost(4))
		disconnected, _ := NewService(WithStore(memory.New()), WithAccounts(accounts))
		mb := disconnected.Client("alice")

		if _, err := mb.Get(ctx, CollectionInbox, "msg123"); !errors.Is(err, ErrNotConnected) {
			t.Errorf("expected ErrNotConnected, got %v", err)
		}
		if _, err := mb.Inbox(ctx, ListOptions{}); !errors.Is(err, ErrNotConnected) {
			t.Errorf("expected ErrNotConnected, got %v", err)
		}
	})

	t.Run("invalid user ID is rejected", func(t *testing.T) {
		mb := svc.Client("user with spaces")
		if _, err := mb.Get(ctx, CollectionInbox, "msg123"); !errors.Is(err, ErrInvalidUserID) {
			t.Errorf("expected ErrInvalidUserID, got %v", err)
		}
	})

	t.Run("empty message ID is invalid", func(t *testing.T) {
		mb := svc.Client("alice")
		if _, err := mb.Get(ctx, CollectionInbox, ""); !errors.Is(err, ErrInvalidID) {
			t.Errorf("expected ErrInvalidID on Get, got %v", err)
		}
		if err := mb.UpdateFlags(ctx, "", MarkRead()); !errors.Is(err, ErrInvalidID) {
			t.Errorf("expected ErrInvalidID on UpdateFlags, got %v", err)
		}
		if err := mb.Delete(ctx, CollectionInbox, ""); !errors.Is(err, ErrInvalidID) {
			t.Errorf("expected ErrInvalidID on Delete, got %v", err)
		}
	})
}

func TestSendFanOut(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t, "alice", "bob", "carol")
	defer svc.Close(ctx)

	alice := svc.Client("alice")

	draft := mustCompose(alice)
	draft.SetRecipients("bob", "carol").SetSubject("Lunch?").SetBody("Noon at the usual place")
	sent, err := draft.Send(ctx)
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}

	t.Run("sender gets one sent record", func(t *testing.T) {
		list, err := alice.Sent(ctx, ListOptions{})
		if err != nil {
			t.Fatalf("list sent: %v", err)
		}
		if list.Count() != 1 {
			t.Fatalf("expected 1 sent record, got %d", list.Count())
		}
		got := list.All()[0]
		if got.ID() != sent.ID() {
			t.Errorf("sent record ID mismatch: %s vs %s", got.ID(), sent.ID())
		}
	})

	t.Run("each recipient gets one unread copy", func(t *testing.T) {
		for _, user := range []string{"bob", "carol"} {
			inbox, err := svc.Client(user).Inbox(ctx, ListOptions{})
			if err != nil {
				t.Fatalf("list %s inbox: %v", user, err)
			}
			if inbox.Count() != 1 {
				t.Fatalf("expected 1 inbox message for %s, got %d", user, inbox.Count())
			}
			msg := inbox.All()[0]
			if msg.IsRead() {
				t.Errorf("%s's copy should be unread", user)
			}
			if msg.Sender() != "alice" {
				t.Errorf("expected sender alice, got %q", msg.Sender())
			}
			if msg.Subject() != "Lunch?" || msg.Body() != "Noon at the usual place" {
				t.Errorf("content mismatch for %s", user)
			}
			if !msg.SentAt().Equal(sent.SentAt()) {
				t.Errorf("SentAt mismatch for %s: %v vs %v", user, msg.SentAt(), sent.SentAt())
			}
			if msg.ID() == sent.ID() {
				t.Errorf("copies must have distinct IDs")
			}
		}
	})

	t.Run("draft is consumed by send", func(t *testing.T) {
		drafts, err := alice.Drafts(ctx, ListOptions{})
		if err != nil {
			t.Fatalf("list drafts: %v", err)
		}
		if drafts.Count() != 0 {
			t.Errorf("expected no drafts after send, got %d", drafts.Count())
		}
	})
}

func TestSendDuplicateRecipients(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t, "alice", "bob")
	defer svc.Close(ctx)

	_, err := svc.Client("alice").SendMessage(ctx, SendRequest{
		RecipientIDs: []string{"bob", "bob", "bob"},
		Subject:      "Once",
		Body:         "Only one copy",
	})
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}

	inbox, err := svc.Client("bob").Inbox(ctx, ListOptions{})
	if err != nil {
		t.Fatalf("list inbox: %v", err)
	}
	if inbox.Count() != 1 {
		t.Errorf("duplicate recipients should collapse to one delivery, got %d", inbox.Count())
	}
}

func TestSendToSelf(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t, "alice")
	defer svc.Close(ctx)

	alice := svc.Client("alice")
	if _, err := alice.SendMessage(ctx, SendRequest{
		RecipientIDs: []string{"alice"},
		Subject:      "Note to self",
		Body:         "Buy milk",
	}); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	inbox, _ := alice.Inbox(ctx, ListOptions{})
	sentList, _ := alice.Sent(ctx, ListOptions{})
	if inbox.Count() != 1 || sentList.Count() != 1 {
		t.Errorf("self-send should create inbox and sent copies, got %d/%d",
			inbox.Count(), sentList.Count())
	}
	if inbox.All()[0].ID() == sentList.All()[0].ID() {
		t.Error("inbox and sent copies must be independent records")
	}
}

func TestSendUnknownRecipientIsAtomic(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t, "alice", "bob")
	defer svc.Close(ctx)

	alice := svc.Client("alice")

	draft := mustCompose(alice)
	draft.SetRecipients("bob", "mallory", "trent").SetSubject("Hi").SetBody("...")
	saved, err := draft.Save(ctx)
	if err != nil {
		t.Fatalf("save draft: %v", err)
	}

	_, err = alice.SendDraft(ctx, saved.ID())
	if !errors.Is(err, ErrUnknownRecipient) {
		t.Fatalf("expected ErrUnknownRecipient, got %v", err)
	}

	var unknownErr *UnknownRecipientError
	if !errors.As(err, &unknownErr) {
		t.Fatalf("expected UnknownRecipientError, got %T", err)
	}
	if len(unknownErr.Recipients) != 2 ||
		unknownErr.Recipients[0] != "mallory" || unknownErr.Recipients[1] != "trent" {
		t.Errorf("expected unknown recipients [mallory trent], got %v", unknownErr.Recipients)
	}

	t.Run("nothing was stored", func(t *testing.T) {
		sentList, _ := alice.Sent(ctx, ListOptions{})
		if sentList.Count() != 0 {
			t.Errorf("expected no sent records, got %d", sentList.Count())
		}
		inbox, _ := svc.Client("bob").Inbox(ctx, ListOptions{})
		if inbox.Count() != 0 {
			t.Errorf("valid recipient must not receive anything, got %d", inbox.Count())
		}
	})

	t.Run("draft is untouched", func(t *testing.T) {
		drafts, _ := alice.Drafts(ctx, ListOptions{})
		if drafts.Count() != 1 {
			t.Fatalf("expected draft to survive failed send, got %d drafts", drafts.Count())
		}
	})
}

func TestDraftLifecycle(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t, "alice", "bob")
	defer svc.Close(ctx)

	alice := svc.Client("alice")

	draft := mustCompose(alice)
	draft.SetSubject("WIP")
	saved, err := draft.Save(ctx)
	if err != nil {
		t.Fatalf("save draft: %v", err)
	}
	if saved.ID() == "" {
		t.Fatal("saved draft should have an ID")
	}

	t.Run("resave updates in place", func(t *testing.T) {
		saved.SetBody("now with a body")
		again, err := saved.Save(ctx)
		if err != nil {
			t.Fatalf("resave: %v", err)
		}
		if again.ID() != saved.ID() {
			t.Errorf("resave must keep the ID, got %s vs %s", again.ID(), saved.ID())
		}
		drafts, _ := alice.Drafts(ctx, ListOptions{})
		if drafts.Count() != 1 {
			t.Errorf("expected 1 draft, got %d", drafts.Count())
		}
	})

	t.Run("edit loads saved content", func(t *testing.T) {
		loaded, err := alice.EditDraft(ctx, saved.ID())
		if err != nil {
			t.Fatalf("edit draft: %v", err)
		}
		if loaded.Subject() != "WIP" || loaded.Body() != "now with a body" {
			t.Errorf("loaded draft content mismatch: %q / %q", loaded.Subject(), loaded.Body())
		}
	})

	t.Run("drafts are private", func(t *testing.T) {
		if _, err := svc.Client("bob").EditDraft(ctx, saved.ID()); !errors.Is(err, ErrNotOwner) {
			t.Errorf("expected ErrNotOwner, got %v", err)
		}
		if err := svc.Client("bob").Delete(ctx, CollectionDrafts, saved.ID()); !errors.Is(err, ErrNotOwner) {
			t.Errorf("expected ErrNotOwner on delete, got %v", err)
		}
	})

	t.Run("unknown draft is not found", func(t *testing.T) {
		if _, err := alice.EditDraft(ctx, "no-such-draft"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("delete removes the draft", func(t *testing.T) {
		if err := saved.Delete(ctx); err != nil {
			t.Fatalf("delete draft: %v", err)
		}
		drafts, _ := alice.Drafts(ctx, ListOptions{})
		if drafts.Count() != 0 {
			t.Errorf("expected no drafts after delete, got %d", drafts.Count())
		}
	})
}

func TestDeleteIsolation(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t, "alice", "bob", "carol")
	defer svc.Close(ctx)

	alice := svc.Client("alice")
	if _, err := alice.SendMessage(ctx, SendRequest{
		RecipientIDs: []string{"bob", "carol"},
		Subject:      "Shared",
		Body:         "Same send, independent copies",
	}); err != nil {
		t.Fatalf("send: %v", err)
	}

	bobInbox, _ := svc.Client("bob").Inbox(ctx, ListOptions{})
	if err := bobInbox.All()[0].Delete(ctx); err != nil {
		t.Fatalf("delete bob's copy: %v", err)
	}

	// Bob's copy is gone
	bobInbox, _ = svc.Client("bob").Inbox(ctx, ListOptions{})
	if bobInbox.Count() != 0 {
		t.Errorf("bob's copy should be gone, got %d", bobInbox.Count())
	}

	// Everyone else is untouched
	carolInbox, _ := svc.Client("carol").Inbox(ctx, ListOptions{})
	if carolInbox.Count() != 1 {
		t.Errorf("carol's copy must survive, got %d", carolInbox.Count())
	}
	aliceSent, _ := alice.Sent(ctx, ListOptions{})
	if aliceSent.Count() != 1 {
		t.Errorf("alice's sent record must survive, got %d", aliceSent.Count())
	}
}

func TestMarkRead(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t, "alice", "bob")
	defer svc.Close(ctx)

	if _, err := svc.Client("alice").SendMessage(ctx, SendRequest{
		RecipientIDs: []string{"bob"},
		Subject:      "Read me",
		Body:         "...",
	}); err != nil {
		t.Fatalf("send: %v", err)
	}

	bob := svc.Client("bob")
	inbox, _ := bob.Inbox(ctx, ListOptions{})
	msg := inbox.All()[0]

	if err := msg.Update(ctx, MarkRead()); err != nil {
		t.Fatalf("mark read: %v", err)
	}

	fresh, err := bob.Get(ctx, CollectionInbox, msg.ID())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !fresh.IsRead() {
		t.Error("message should be read")
	}

	t.Run("idempotent", func(t *testing.T) {
		if err := fresh.Update(ctx, MarkRead()); err != nil {
			t.Errorf("marking read twice should be a no-op, got %v", err)
		}
	})

	t.Run("mark unread", func(t *testing.T) {
		if err := fresh.Update(ctx, MarkUnread()); err != nil {
			t.Fatalf("mark unread: %v", err)
		}
		fresh, _ = bob.Get(ctx, CollectionInbox, msg.ID())
		if fresh.IsRead() {
			t.Error("message should be unread again")
		}
	})

	t.Run("unknown message", func(t *testing.T) {
		err := bob.UpdateFlags(ctx, "no-such-id", MarkRead())
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("sent records carry no read flag", func(t *testing.T) {
		sentList, _ := svc.Client("alice").Sent(ctx, ListOptions{})
		err := svc.Client("alice").UpdateFlags(ctx, sentList.All()[0].ID(), MarkRead())
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound for sent record, got %v", err)
		}
	})
}

func TestMarkAllRead(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t, "alice", "bob")
	defer svc.Close(ctx)

	alice := svc.Client("alice")
	for i := 0; i < 3; i++ {
		if _, err := alice.SendMessage(ctx, SendRequest{
			RecipientIDs: []string{"bob"},
			Subject:      fmt.Sprintf("msg %d", i),
			Body:         "...",
		}); err != nil {
			t.Fatalf("send: %v", err)
		}
	}

	bob := svc.Client("bob")
	changed, err := bob.MarkAllRead(ctx)
	if err != nil {
		t.Fatalf("mark all read: %v", err)
	}
	if changed != 3 {
		t.Errorf("expected 3 changed, got %d", changed)
	}

	// Second pass changes nothing
	changed, err = bob.MarkAllRead(ctx)
	if err != nil {
		t.Fatalf("second mark all read: %v", err)
	}
	if changed != 0 {
		t.Errorf("expected 0 changed, got %d", changed)
	}
}

func TestListOrder(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t, "alice", "bob")
	defer svc.Close(ctx)

	alice := svc.Client("alice")
	for i := 0; i < 3; i++ {
		if _, err := alice.SendMessage(ctx, SendRequest{
			RecipientIDs: []string{"bob"},
			Subject:      fmt.Sprintf("msg %d", i),
			Body:         "...",
		}); err != nil {
			t.Fatalf("send: %v", err)
		}
	}

	inbox, err := svc.Client("bob").Inbox(ctx, ListOptions{})
	if err != nil {
		t.Fatalf("list inbox: %v", err)
	}
	for i, msg := range inbox.All() {
		want := fmt.Sprintf("msg %d", i)
		if msg.Subject() != want {
			t.Errorf("position %d: expected %q, got %q", i, want, msg.Subject())
		}
	}

	t.Run("negative offset lists from the start", func(t *testing.T) {
		inbox, err := svc.Client("bob").Inbox(ctx, ListOptions{Offset: -1})
		if err != nil {
			t.Fatalf("list inbox: %v", err)
		}
		if inbox.Count() != 3 {
			t.Errorf("expected 3 messages, got %d", inbox.Count())
		}
	})
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t, "alice", "bob")
	defer svc.Close(ctx)

	alice := svc.Client("alice")
	subjects := []string{"Lunch plans", "Project update", "Re: lunch plans"}
	for _, subject := range subjects {
		if _, err := alice.SendMessage(ctx, SendRequest{
			RecipientIDs: []string{"bob"},
			Subject:      subject,
			Body:         "body text",
		}); err != nil {
			t.Fatalf("send: %v", err)
		}
	}

	bob := svc.Client("bob")

	t.Run("case-insensitive keyword", func(t *testing.T) {
		results, err := bob.Search(ctx, CollectionInbox, "LUNCH", ListOptions{})
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if results.Count() != 2 {
			t.Errorf("expected 2 matches, got %d", results.Count())
		}
	})

	t.Run("body matches too", func(t *testing.T) {
		results, err := bob.Search(ctx, CollectionInbox, "body text", ListOptions{})
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if results.Count() != 3 {
			t.Errorf("expected 3 matches, got %d", results.Count())
		}
	})

	t.Run("empty keyword matches all", func(t *testing.T) {
		results, err := bob.Search(ctx, CollectionInbox, "", ListOptions{})
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if results.Count() != 3 {
			t.Errorf("expected 3 matches, got %d", results.Count())
		}
	})

	t.Run("no matches", func(t *testing.T) {
		results, err := bob.Search(ctx, CollectionInbox, "xyzzy", ListOptions{})
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if results.Count() != 0 {
			t.Errorf("expected 0 matches, got %d", results.Count())
		}
	})
}

func TestStreamSearch(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t, "alice", "bob")
	defer svc.Close(ctx)

	alice := svc.Client("alice")
	const total = 7
	for i := 0; i < total; i++ {
		if _, err := alice.SendMessage(ctx, SendRequest{
			RecipientIDs: []string{"bob"},
			Subject:      fmt.Sprintf("stream %d", i),
			Body:         "...",
		}); err != nil {
			t.Fatalf("send: %v", err)
		}
	}

	iter, err := svc.Client("bob").StreamSearch(ctx, CollectionInbox, "stream", StreamOptions{BatchSize: 3})
	if err != nil {
		t.Fatalf("stream search: %v", err)
	}

	var seen []string
	for {
		hasNext, err := iter.Next(ctx)
		if err != nil {
			t.Fatalf("iterator error: %v", err)
		}
		if !hasNext {
			break
		}
		msg, err := iter.Message()
		if err != nil {
			t.Fatalf("message: %v", err)
		}
		seen = append(seen, msg.Subject())
	}

	if len(seen) != total {
		t.Fatalf("expected %d messages, got %d", total, len(seen))
	}
	for i, subject := range seen {
		want := fmt.Sprintf("stream %d", i)
		if subject != want {
			t.Errorf("position %d: expected %q, got %q", i, want, subject)
		}
	}

	t.Run("message before next is out of bounds", func(t *testing.T) {
		fresh, _ := svc.Client("bob").StreamSearch(ctx, CollectionInbox, "", StreamOptions{})
		if _, err := fresh.Message(); !errors.Is(err, ErrIteratorOutOfBounds) {
			t.Errorf("expected ErrIteratorOutOfBounds, got %v", err)
		}
	})
}

func TestSendValidation(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t, "alice", "bob")
	defer svc.Close(ctx)

	alice := svc.Client("alice")

	t.Run("empty recipients", func(t *testing.T) {
		_, err := alice.SendMessage(ctx, SendRequest{Subject: "Hi"})
		if !errors.Is(err, ErrEmptyRecipients) {
			t.Errorf("expected ErrEmptyRecipients, got %v", err)
		}
	})

	t.Run("invalid recipient ID", func(t *testing.T) {
		_, err := alice.SendMessage(ctx, SendRequest{
			RecipientIDs: []string{"has space"},
			Subject:      "Hi",
		})
		if !errors.Is(err, ErrInvalidUserID) {
			t.Errorf("expected ErrInvalidUserID, got %v", err)
		}
	})

	t.Run("subject too long", func(t *testing.T) {
		long := make([]byte, DefaultMaxSubjectLength+1)
		for i := range long {
			long[i] = 'a'
		}
		_, err := alice.SendMessage(ctx, SendRequest{
			RecipientIDs: []string{"bob"},
			Subject:      string(long),
		})
		if !errors.Is(err, ErrSubjectTooLong) {
			t.Errorf("expected ErrSubjectTooLong, got %v", err)
		}
	})
}

func TestFixedClock(t *testing.T) {
	ctx := context.Background()

	accounts, _ := account.New(account.WithBcryptCost(4))
	accounts.Register(ctx, "alice", "secret")
	accounts.Register(ctx, "bob", "secret")

	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc, err := NewService(
		WithStore(memory.New()),
		WithAccounts(accounts),
		WithClock(func() time.Time { return at }),
	)
	if err != nil {
		t.Fatalf("create service: %v", err)
	}
	if err := svc.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer svc.Close(ctx)

	sent, err := svc.Client("alice").SendMessage(ctx, SendRequest{
		RecipientIDs: []string{"bob"},
		Subject:      "Timestamped",
		Body:         "...",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if !sent.SentAt().Equal(at) {
		t.Errorf("expected SentAt %v, got %v", at, sent.SentAt())
	}

	inbox, _ := svc.Client("bob").Inbox(ctx, ListOptions{})
	if !inbox.All()[0].SentAt().Equal(at) {
		t.Errorf("recipient copy must share the send timestamp")
	}
}

func TestBulkMarkRead(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t, "alice", "bob")
	defer svc.Close(ctx)

	alice := svc.Client("alice")
	for i := 0; i < 3; i++ {
		if _, err := alice.SendMessage(ctx, SendRequest{
			RecipientIDs: []string{"bob"},
			Subject:      fmt.Sprintf("bulk %d", i),
			Body:         "...",
		}); err != nil {
			t.Fatalf("send: %v", err)
		}
	}

	bob := svc.Client("bob")
	inbox, _ := bob.Inbox(ctx, ListOptions{})
	result, err := inbox.MarkRead(ctx)
	if err != nil {
		t.Fatalf("bulk mark read: %v", err)
	}
	if result.SuccessCount() != 3 || result.HasFailures() {
		t.Errorf("expected 3 successes, got %d successes %d failures",
			result.SuccessCount(), result.FailureCount())
	}

	changed, _ := bob.MarkAllRead(ctx)
	if changed != 0 {
		t.Errorf("everything should already be read, %d changed", changed)
	}
}
