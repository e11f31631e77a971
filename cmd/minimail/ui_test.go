package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	minimail "github.com/minimail/minimail"
	"github.com/minimail/minimail/account"
	"github.com/minimail/minimail/store/memory"
)

func newTestService(t *testing.T) minimail.Service {
	t.Helper()

	accounts, err := account.New(account.WithBcryptCost(4))
	if err != nil {
		t.Fatalf("create account store: %v", err)
	}
	svc, err := minimail.NewService(
		minimail.WithStore(memory.New()),
		minimail.WithAccounts(accounts),
	)
	if err != nil {
		t.Fatalf("create service: %v", err)
	}
	if err := svc.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	return svc
}

// runScript feeds the given input lines to the UI and returns everything
// it printed.
func runScript(t *testing.T, svc minimail.Service, lines ...string) string {
	t.Helper()

	in := strings.NewReader(strings.Join(lines, "\n") + "\n")
	var out bytes.Buffer
	u := newUI(svc, in, &out, 3)
	if err := u.Run(context.Background()); err != nil {
		t.Fatalf("ui run: %v", err)
	}
	return out.String()
}

func TestRegisterLoginAndSend(t *testing.T) {
	svc := newTestService(t)
	defer svc.Close(context.Background())

	out := runScript(t, svc,
		"2", "alice", "secret", // register alice
		"2", "bob", "hunter2", // register bob
		"1", "alice", "secret", // login
		"2", "bob", "Hello", "First message", "send", // compose and send
		"9", // exit
	)

	for _, want := range []string{
		"User 'alice' registered successfully!",
		"Login successful. Welcome, alice!",
		"Email sent to: bob",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}

	// Bob received exactly one unread copy
	inbox, err := svc.Client("bob").Inbox(context.Background(), minimail.ListOptions{})
	if err != nil {
		t.Fatalf("inbox: %v", err)
	}
	if inbox.Count() != 1 || inbox.All()[0].IsRead() {
		t.Errorf("expected one unread message for bob")
	}
}

func TestInboxViewMarksRead(t *testing.T) {
	svc := newTestService(t)
	defer svc.Close(context.Background())

	ctx := context.Background()
	accounts := svc.Accounts()
	accounts.Register(ctx, "alice", "secret")
	accounts.Register(ctx, "bob", "hunter2")
	if _, err := svc.Client("alice").SendMessage(ctx, minimail.SendRequest{
		RecipientIDs: []string{"bob"},
		Subject:      "Unread",
		Body:         "mark me",
	}); err != nil {
		t.Fatalf("send: %v", err)
	}

	out := runScript(t, svc,
		"1", "bob", "hunter2", // login
		"1", // view inbox
		"9", // exit
	)

	if !strings.Contains(out, "[NEW] From: alice") {
		t.Errorf("first view should show the NEW marker, got:\n%s", out)
	}

	inbox, _ := svc.Client("bob").Inbox(ctx, minimail.ListOptions{})
	if !inbox.All()[0].IsRead() {
		t.Error("viewing the inbox should mark messages read")
	}
}

func TestLoginAttemptsExhausted(t *testing.T) {
	svc := newTestService(t)
	defer svc.Close(context.Background())

	svc.Accounts().Register(context.Background(), "alice", "secret")

	out := runScript(t, svc,
		"1",
		"alice", "wrong",
		"alice", "stillwrong",
		"alice", "nope",
		"3", // back at the main menu, exit
	)

	if !strings.Contains(out, "Maximum login attempts reached") {
		t.Errorf("expected lockout message, got:\n%s", out)
	}
	if !strings.Contains(out, "Goodbye!") {
		t.Errorf("expected to land back on the main menu and exit")
	}
}

func TestUnknownRecipientKeepsNothing(t *testing.T) {
	svc := newTestService(t)
	defer svc.Close(context.Background())

	ctx := context.Background()
	svc.Accounts().Register(ctx, "alice", "secret")

	out := runScript(t, svc,
		"1", "alice", "secret",
		"2", "ghost", "Hi", "anyone there?", "send",
		"9",
	)

	if !strings.Contains(out, "Unknown recipient(s): ghost") {
		t.Errorf("expected unknown recipient message, got:\n%s", out)
	}
	sent, _ := svc.Client("alice").Sent(ctx, minimail.ListOptions{})
	if sent.Count() != 0 {
		t.Errorf("failed send must not store a sent record, got %d", sent.Count())
	}
}

func TestDraftSendFromMenu(t *testing.T) {
	svc := newTestService(t)
	defer svc.Close(context.Background())

	ctx := context.Background()
	svc.Accounts().Register(ctx, "alice", "secret")
	svc.Accounts().Register(ctx, "bob", "hunter2")

	out := runScript(t, svc,
		"1", "alice", "secret",
		"2", "bob", "Draft subject", "draft body", "draft", // save as draft
		"3", "send 0", // view drafts, send the first
		"9",
	)

	if !strings.Contains(out, "Email saved to drafts.") {
		t.Errorf("expected draft confirmation, got:\n%s", out)
	}
	if !strings.Contains(out, "Draft sent successfully!") {
		t.Errorf("expected draft send confirmation, got:\n%s", out)
	}

	drafts, _ := svc.Client("alice").Drafts(ctx, minimail.ListOptions{})
	if drafts.Count() != 0 {
		t.Errorf("sent draft should be removed, got %d drafts", drafts.Count())
	}
	inbox, _ := svc.Client("bob").Inbox(ctx, minimail.ListOptions{})
	if inbox.Count() != 1 {
		t.Errorf("expected delivery to bob, got %d", inbox.Count())
	}
}

func TestParseIndexCommand(t *testing.T) {
	cases := []struct {
		input   string
		length  int
		action  string
		idx     int
		wantErr bool
	}{
		{"send 0", 3, "send", 0, false},
		{"del 2", 3, "del", 2, false},
		{"SEND 1", 3, "send", 1, false},
		{"send 3", 3, "send", 0, true},
		{"send -1", 3, "send", 0, true},
		{"send", 3, "send", 0, true},
		{"cancel", 3, "cancel", 0, true},
		{"", 3, "cancel", 0, true},
	}
	for _, tc := range cases {
		action, idx, err := parseIndexCommand(tc.input, tc.length)
		if (err != nil) != tc.wantErr {
			t.Errorf("%q: err = %v, wantErr = %v", tc.input, err, tc.wantErr)
			continue
		}
		if action != tc.action {
			t.Errorf("%q: action = %q, want %q", tc.input, action, tc.action)
		}
		if !tc.wantErr && idx != tc.idx {
			t.Errorf("%q: idx = %d, want %d", tc.input, idx, tc.idx)
		}
	}
}
