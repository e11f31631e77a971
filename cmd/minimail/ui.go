package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	minimail "github.com/minimail/minimail"
	"github.com/minimail/minimail/account"
)

const (
	ruler      = "============================================================"
	thinRuler  = "------------------------------------------------------------"
	timeLayout = "2006-01-02T15:04:05"
)

// ui drives the interactive terminal client. Input and output are plain
// io streams so the whole flow can be scripted in tests.
type ui struct {
	svc           minimail.Service
	in            *bufio.Scanner
	out           io.Writer
	maxLoginTries int
}

func newUI(svc minimail.Service, in io.Reader, out io.Writer, maxLoginTries int) *ui {
	if maxLoginTries < 1 {
		maxLoginTries = 3
	}
	return &ui{
		svc:           svc,
		in:            bufio.NewScanner(in),
		out:           out,
		maxLoginTries: maxLoginTries,
	}
}

// Run executes the main menu loop until the user exits or input ends.
func (u *ui) Run(ctx context.Context) error {
	u.printf("%s\n", ruler)
	u.printf("%s\n", center("WELCOME TO MINIMAIL"))
	u.printf("%s\n", ruler)

	for {
		u.printf("\nMain Menu\n")
		u.printf("1. Login\n")
		u.printf("2. Register New User\n")
		u.printf("3. Exit\n")
		u.printf("%s\n", thinRuler)

		choice, ok := u.prompt("Enter choice (1-3): ")
		if !ok {
			return nil
		}

		switch choice {
		case "1":
			user, ok := u.login(ctx)
			if !ok {
				continue
			}
			if quit := u.session(ctx, user); quit {
				u.printf("\nGoodbye!\n")
				return nil
			}
		case "2":
			u.register(ctx)
		case "3":
			u.printf("Goodbye!\n")
			return nil
		default:
			u.printf("Invalid choice. Try again.\n")
		}
	}
}

func (u *ui) login(ctx context.Context) (string, bool) {
	u.printf("\n%s\n%s\n%s\n", ruler, center("LOGIN"), ruler)

	accounts := u.svc.Accounts()
	for tries := 0; tries < u.maxLoginTries; tries++ {
		username, ok := u.prompt("Enter your username: ")
		if !ok {
			return "", false
		}
		if !accounts.Exists(ctx, username) {
			u.printf("User does not exist. Try again.\n")
			continue
		}
		password, ok := u.prompt("Enter your password: ")
		if !ok {
			return "", false
		}
		if err := accounts.Verify(ctx, username, password); err != nil {
			u.printf("Incorrect password. Try again.\n")
			continue
		}
		u.printf("Login successful. Welcome, %s!\n", username)
		return username, true
	}
	u.printf("Maximum login attempts reached. Returning to the main menu.\n")
	return "", false
}

func (u *ui) register(ctx context.Context) {
	u.printf("\n%s\n%s\n%s\n", ruler, center("USER REGISTRATION"), ruler)

	accounts := u.svc.Accounts()
	var username string
	for {
		name, ok := u.prompt("Choose a username: ")
		if !ok {
			return
		}
		if accounts.Exists(ctx, name) {
			u.printf("Username already exists. Try a different one.\n")
			continue
		}
		username = name
		break
	}

	password, ok := u.prompt("Choose a password: ")
	if !ok {
		return
	}
	if err := accounts.Register(ctx, username, password); err != nil {
		if errors.Is(err, account.ErrInvalidUsername) {
			u.printf("Invalid username. Use visible characters without spaces.\n")
		} else {
			u.printf("Registration failed: %v\n", err)
		}
		return
	}
	u.printf("User '%s' registered successfully!\n", username)
}

// session runs the per-user menu. It returns true when the user chose to
// exit the program rather than switch users.
func (u *ui) session(ctx context.Context, username string) bool {
	mb := u.svc.Client(username)

	for {
		u.printf("\n%s\n%s\n%s\n", ruler, center("Welcome, "+username+"!"), ruler)
		u.printf("1. View Inbox\n")
		u.printf("2. Compose Email\n")
		u.printf("3. View Drafts\n")
		u.printf("4. View Sent Mails\n")
		u.printf("5. Delete Email\n")
		u.printf("6. Search Emails\n")
		u.printf("7. Change Password\n")
		u.printf("8. Switch User\n")
		u.printf("9. Exit\n")
		u.printf("%s\n", thinRuler)

		choice, ok := u.prompt("Enter choice (1-9): ")
		if !ok {
			return true
		}

		switch choice {
		case "1":
			u.viewInbox(ctx, mb)
		case "2":
			u.compose(ctx, mb)
		case "3":
			u.viewDrafts(ctx, mb)
		case "4":
			u.viewSent(ctx, mb)
		case "5":
			u.deleteEmail(ctx, mb)
		case "6":
			u.searchEmails(ctx, mb)
		case "7":
			u.changePassword(ctx, username)
		case "8":
			return false
		case "9":
			return true
		default:
			u.printf("Invalid choice. Try again.\n")
		}
	}
}

// viewInbox prints the inbox oldest first and marks everything read
// once it has been displayed.
func (u *ui) viewInbox(ctx context.Context, mb minimail.Mailbox) {
	list, err := mb.Inbox(ctx, minimail.ListOptions{})
	if err != nil {
		u.printf("Failed to load inbox: %v\n", err)
		return
	}
	if list.Count() == 0 {
		u.printf("\nYour inbox is empty.\n")
		return
	}

	u.printf("\n%s\n%s\n%s\n", ruler, center(strings.ToUpper(mb.UserID())+"'S INBOX"), ruler)
	for idx, msg := range list.All() {
		status := ""
		if !msg.IsRead() {
			status = "[NEW] "
		}
		u.printf("\n[%d] %sFrom: %s | Time: %s\n", idx, status, msg.Sender(), msg.SentAt().Format(timeLayout))
		u.printf("Subject: %s\n", msg.Subject())
		u.printf("Message:\n%s\n", msg.Body())
		u.printf("%s\n", thinRuler)
	}

	if _, err := mb.MarkAllRead(ctx); err != nil {
		u.printf("Failed to mark messages read: %v\n", err)
	}
}

func (u *ui) compose(ctx context.Context, mb minimail.Mailbox) {
	u.printf("\n%s\n%s\n%s\n", ruler, center("COMPOSE EMAIL"), ruler)

	raw, ok := u.prompt("Recipients (comma separated): ")
	if !ok {
		return
	}
	var recipients []string
	for _, r := range strings.Split(raw, ",") {
		if r = strings.TrimSpace(r); r != "" {
			recipients = append(recipients, r)
		}
	}

	subject, ok := u.prompt("Subject: ")
	if !ok {
		return
	}
	u.printf("Message:\n")
	body, ok := u.readLine()
	if !ok {
		return
	}

	action, ok := u.prompt("Send now or save as draft? (send/draft): ")
	if !ok {
		return
	}

	switch strings.ToLower(action) {
	case "send":
		_, err := mb.SendMessage(ctx, minimail.SendRequest{
			RecipientIDs: recipients,
			Subject:      subject,
			Body:         body,
		})
		if err != nil {
			u.printSendError(err)
			return
		}
		u.printf("\nEmail sent to: %s\n", strings.Join(recipients, ", "))
	case "draft":
		draft, err := mb.Compose()
		if err != nil {
			u.printf("Failed to compose: %v\n", err)
			return
		}
		draft.SetRecipients(recipients...).SetSubject(subject).SetBody(body)
		if _, err := draft.Save(ctx); err != nil {
			u.printf("Failed to save draft: %v\n", err)
			return
		}
		u.printf("Email saved to drafts.\n")
	default:
		u.printf("Invalid option. Email not sent.\n")
	}
}

func (u *ui) viewDrafts(ctx context.Context, mb minimail.Mailbox) {
	list, err := mb.Drafts(ctx, minimail.ListOptions{})
	if err != nil {
		u.printf("Failed to load drafts: %v\n", err)
		return
	}
	if list.Count() == 0 {
		u.printf("\nNo drafts saved.\n")
		return
	}

	drafts := list.All()
	u.printf("\n%s\n%s\n%s\n", ruler, center(strings.ToUpper(mb.UserID())+"'S DRAFTS"), ruler)
	for idx, msg := range drafts {
		u.printf("\n[%d] To: %s | Time: %s\n", idx, strings.Join(msg.Recipients(), ", "), msg.UpdatedAt().Format(timeLayout))
		u.printf("Subject: %s\n", msg.Subject())
		u.printf("Message:\n%s\n", msg.Body())
		u.printf("%s\n", thinRuler)
	}

	choice, ok := u.prompt("Send or delete a draft? (send <index> / del <index> / cancel): ")
	if !ok {
		return
	}

	action, idx, err := parseIndexCommand(choice, len(drafts))
	if err != nil {
		if action == "cancel" {
			u.printf("Cancelled.\n")
		} else {
			u.printf("Invalid index.\n")
		}
		return
	}

	switch action {
	case "send":
		if _, err := mb.SendDraft(ctx, drafts[idx].ID()); err != nil {
			u.printSendError(err)
			return
		}
		u.printf("Draft sent successfully!\n")
	case "del":
		if err := drafts[idx].Delete(ctx); err != nil {
			u.printf("Failed to delete draft: %v\n", err)
			return
		}
		u.printf("Draft deleted.\n")
	}
}

// viewSent prints sent mail newest first.
func (u *ui) viewSent(ctx context.Context, mb minimail.Mailbox) {
	list, err := mb.Sent(ctx, minimail.ListOptions{})
	if err != nil {
		u.printf("Failed to load sent mail: %v\n", err)
		return
	}
	if list.Count() == 0 {
		u.printf("\nNo sent messages.\n")
		return
	}

	sent := list.All()
	u.printf("\n%s\n%s\n%s\n", ruler, center(strings.ToUpper(mb.UserID())+"'S SENT MAILS"), ruler)
	for i := len(sent) - 1; i >= 0; i-- {
		msg := sent[i]
		u.printf("\n[%d] To: %s | Time: %s\n", len(sent)-1-i, strings.Join(msg.Recipients(), ", "), msg.SentAt().Format(timeLayout))
		u.printf("Subject: %s\n", msg.Subject())
		u.printf("Message:\n%s\n", msg.Body())
		u.printf("%s\n", thinRuler)
	}
}

func (u *ui) deleteEmail(ctx context.Context, mb minimail.Mailbox) {
	list, err := mb.Inbox(ctx, minimail.ListOptions{})
	if err != nil {
		u.printf("Failed to load inbox: %v\n", err)
		return
	}
	if list.Count() == 0 {
		u.printf("\nNo emails to delete.\n")
		return
	}

	u.viewInbox(ctx, mb)
	raw, ok := u.prompt("Enter the index of the message to delete: ")
	if !ok {
		return
	}
	idx, err := strconv.Atoi(raw)
	if err != nil {
		u.printf("Please enter a valid number.\n")
		return
	}
	messages := list.All()
	if idx < 0 || idx >= len(messages) {
		u.printf("Invalid index.\n")
		return
	}
	if err := messages[idx].Delete(ctx); err != nil {
		u.printf("Failed to delete: %v\n", err)
		return
	}
	u.printf("Deleted message from %s\n", messages[idx].Sender())
}

func (u *ui) searchEmails(ctx context.Context, mb minimail.Mailbox) {
	keyword, ok := u.prompt("\nKeyword to search in subject/body: ")
	if !ok {
		return
	}

	results, err := mb.Search(ctx, minimail.CollectionInbox, keyword, minimail.ListOptions{})
	if err != nil {
		u.printf("Search failed: %v\n", err)
		return
	}
	if results.Count() == 0 {
		u.printf("No matching emails found.\n")
		return
	}

	u.printf("\n%s\n%s\n%s\n", ruler, center("SEARCH RESULTS"), ruler)
	for idx, msg := range results.All() {
		u.printf("\n[%d] From: %s | Time: %s\n", idx, msg.Sender(), msg.SentAt().Format(timeLayout))
		u.printf("Subject: %s\n", msg.Subject())
		u.printf("Message:\n%s\n", msg.Body())
		u.printf("%s\n", thinRuler)
	}
}

func (u *ui) changePassword(ctx context.Context, username string) {
	u.printf("\n%s\n%s\n%s\n", ruler, center("CHANGE PASSWORD"), ruler)

	old, ok := u.prompt("Enter your current password: ")
	if !ok {
		return
	}
	newPassword, ok := u.prompt("Enter your new password: ")
	if !ok {
		return
	}
	if err := u.svc.Accounts().ChangeCredential(ctx, username, old, newPassword); err != nil {
		if errors.Is(err, account.ErrAuthFailed) {
			u.printf("Incorrect password.\n")
		} else {
			u.printf("Failed to change password: %v\n", err)
		}
		return
	}
	u.printf("Password updated successfully.\n")
}

func (u *ui) printSendError(err error) {
	var unknown *minimail.UnknownRecipientError
	switch {
	case errors.As(err, &unknown):
		u.printf("Unknown recipient(s): %s. Email not sent.\n", strings.Join(unknown.Recipients, ", "))
	case errors.Is(err, minimail.ErrEmptyRecipients):
		u.printf("No recipients given. Email not sent.\n")
	default:
		u.printf("Failed to send: %v\n", err)
	}
}

func (u *ui) prompt(label string) (string, bool) {
	u.printf("%s", label)
	return u.readLine()
}

func (u *ui) readLine() (string, bool) {
	if !u.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(u.in.Text()), true
}

func (u *ui) printf(format string, args ...any) {
	fmt.Fprintf(u.out, format, args...)
}

// parseIndexCommand parses "send <i>" or "del <i>" against a list length.
func parseIndexCommand(input string, length int) (string, int, error) {
	fields := strings.Fields(strings.ToLower(input))
	if len(fields) == 0 || (fields[0] != "send" && fields[0] != "del") {
		return "cancel", 0, fmt.Errorf("cancelled")
	}
	if len(fields) < 2 {
		return fields[0], 0, fmt.Errorf("missing index")
	}
	idx, err := strconv.Atoi(fields[1])
	if err != nil || idx < 0 || idx >= length {
		return fields[0], 0, fmt.Errorf("invalid index")
	}
	return fields[0], idx, nil
}

func center(s string) string {
	const width = 60
	if len(s) >= width {
		return s
	}
	pad := (width - len(s)) / 2
	return strings.Repeat(" ", pad) + s
}
