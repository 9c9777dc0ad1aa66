package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	authdomain "nexus-backend/internal/auth/domain"
	calendardomain "nexus-backend/internal/calendar/domain"
	inboxdomain "nexus-backend/internal/inbox/domain"
	"nexus-backend/pkg/gcalendar"
	"nexus-backend/pkg/googleauth"
	"nexus-backend/pkg/imap"
	"nexus-backend/pkg/mailbox"
	"nexus-backend/pkg/utils/crypto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const testKey = "backfill-test-key"

type fakeUsers struct {
	user    *authdomain.User
	updates int
}

func (f *fakeUsers) FindByID(id string) (*authdomain.User, error) {
	if f.user == nil || f.user.ID != id {
		return nil, nil
	}
	return f.user, nil
}

func (f *fakeUsers) Update(u *authdomain.User) error {
	f.updates++
	return nil
}

type fakeInbox struct {
	mu       sync.Mutex
	threads  []*inboxdomain.Thread
	messages []*inboxdomain.Message
	contacts []*inboxdomain.Contact
	failSubj string
}

func (f *fakeInbox) UpsertThread(t *inboxdomain.Thread) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t.Subject == f.failSubj {
		return errors.New("constraint violation")
	}
	t.ID = "id-" + t.ExternalID
	f.threads = append(f.threads, t)
	return nil
}

func (f *fakeInbox) UpsertMessage(m *inboxdomain.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, m)
	return nil
}

func (f *fakeInbox) UpsertContact(c *inboxdomain.Contact) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.contacts = append(f.contacts, c)
	return nil
}

type fakeEvents struct {
	mu     sync.Mutex
	events []*calendardomain.Event
}

func (f *fakeEvents) Upsert(e *calendardomain.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
	return nil
}

type fakeMail struct {
	threads []mailbox.Thread
	access  string
	refresh googleauth.TokenUpdateFunc
}

func (f *fakeMail) ListRecentThreads(ctx context.Context, access, refresh string, since time.Time, limit int, onRefresh googleauth.TokenUpdateFunc) ([]mailbox.Thread, error) {
	f.access = access
	f.refresh = onRefresh
	return f.threads, nil
}

type fakeCalendar struct {
	events []gcalendar.Event
	err    error
}

func (f *fakeCalendar) ListEvents(ctx context.Context, access, refresh string, from, to time.Time, limit int, onRefresh googleauth.TokenUpdateFunc) ([]gcalendar.Event, error) {
	return f.events, f.err
}

type fakeSent struct {
	messages []mailbox.Message
	account  imap.Account
}

func (f *fakeSent) ListSentMessages(ctx context.Context, account imap.Account, since time.Time, limit int) ([]mailbox.Message, error) {
	f.account = account
	return f.messages, nil
}

func encrypt(t *testing.T, s string) string {
	t.Helper()
	out, err := crypto.Encrypt(s, testKey)
	require.NoError(t, err)
	return out
}

func googleUser(t *testing.T) *authdomain.User {
	return &authdomain.User{
		ID:           "u1",
		Email:        "me@nexus.dev",
		Provider:     authdomain.ProviderGoogle,
		AccessToken:  encrypt(t, "access-1"),
		RefreshToken: encrypt(t, "refresh-1"),
	}
}

func at(day, hour int) time.Time {
	return time.Date(2026, 10, day, hour, 0, 0, 0, time.UTC)
}

func TestBackfillImportsGmailAndCalendar(t *testing.T) {
	users := &fakeUsers{user: googleUser(t)}
	inbox := &fakeInbox{}
	events := &fakeEvents{}
	mail := &fakeMail{threads: []mailbox.Thread{
		{ExternalID: "g1", Subject: "Renewal", Messages: []mailbox.Message{
			{ExternalID: "m1", From: "Dana@Acme.io", FromName: "Dana", To: []string{"me@nexus.dev"}, Body: "<p>Can we talk?</p>", IsHTML: true, Unread: true, SentAt: at(15, 9)},
			{ExternalID: "m2", From: "me@nexus.dev", To: []string{"dana@acme.io"}, Body: "Sure", SentAt: at(15, 10)},
		}},
		{ExternalID: "g2", Subject: "Broken", Messages: []mailbox.Message{{ExternalID: "m3", From: "x@y.z", SentAt: at(14, 9)}}},
		{ExternalID: "g3", Subject: "Empty"},
	}}
	inbox.failSubj = "Broken"
	cal := &fakeCalendar{events: []gcalendar.Event{{ExternalID: "e1", Title: "Standup", Start: at(19, 9), End: at(19, 10)}}}

	b := NewBackfiller(users, inbox, events, testKey, 2)
	b.SetGoogleReaders(mail, cal)

	res, err := b.Run(context.Background(), "u1")
	require.NoError(t, err)

	assert.Equal(t, "access-1", mail.access)
	assert.Equal(t, 1, res.Threads)
	assert.Equal(t, 2, res.Messages)
	assert.Equal(t, 1, res.Events)
	assert.Equal(t, 2, res.Skipped)

	require.Len(t, inbox.threads, 1)
	thread := inbox.threads[0]
	assert.True(t, thread.IsUnread)
	assert.Equal(t, at(15, 10), thread.LastMessageAt)
	assert.ElementsMatch(t, []string{"Dana@Acme.io", "me@nexus.dev", "dana@acme.io"}, []string(thread.Participants))

	require.Len(t, inbox.messages, 2)
	assert.Equal(t, "id-g1", inbox.messages[0].ThreadID)
	assert.Equal(t, "Can we talk?", inbox.messages[0].Body)
	assert.Equal(t, inboxdomain.DirectionInbound, inbox.messages[0].Direction)
	assert.Equal(t, inboxdomain.DirectionOutbound, inbox.messages[1].Direction)

	require.Len(t, inbox.contacts, 1)
	assert.Equal(t, "dana@acme.io", inbox.contacts[0].Email)

	require.Len(t, events.events, 1)
	assert.Equal(t, calendardomain.SourceGoogle, events.events[0].Source)
}

func TestBackfillContinuesWithoutCalendar(t *testing.T) {
	users := &fakeUsers{user: googleUser(t)}
	mail := &fakeMail{threads: []mailbox.Thread{{ExternalID: "g1", Subject: "Hi", Messages: []mailbox.Message{{ExternalID: "m1", From: "a@b.c"}}}}}
	b := NewBackfiller(users, &fakeInbox{}, &fakeEvents{}, testKey, 0)
	b.SetGoogleReaders(mail, &fakeCalendar{err: errors.New("insufficient scope")})

	res, err := b.Run(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Threads)
	assert.Equal(t, 0, res.Events)
}

func TestBackfillPersistsRefreshedTokensEncrypted(t *testing.T) {
	users := &fakeUsers{user: googleUser(t)}
	mail := &fakeMail{}
	b := NewBackfiller(users, &fakeInbox{}, &fakeEvents{}, testKey, 1)
	b.SetGoogleReaders(mail, nil)

	_, err := b.Run(context.Background(), "u1")
	require.NoError(t, err)
	require.NotNil(t, mail.refresh)

	require.NoError(t, mail.refresh(&oauth2.Token{AccessToken: "access-2"}))
	assert.Equal(t, 1, users.updates)
	access, err := crypto.Decrypt(users.user.AccessToken, testKey)
	require.NoError(t, err)
	assert.Equal(t, "access-2", access)
	refresh, err := crypto.Decrypt(users.user.RefreshToken, testKey)
	require.NoError(t, err)
	assert.Equal(t, "refresh-1", refresh)
}

func TestBackfillGroupsImapSentMail(t *testing.T) {
	users := &fakeUsers{user: &authdomain.User{
		ID:           "u2",
		Email:        "me@corp.io",
		Provider:     authdomain.ProviderIMAP,
		ImapServer:   "imap.corp.io",
		ImapPort:     993,
		ImapPassword: encrypt(t, "app-password"),
	}}
	sent := &fakeSent{messages: []mailbox.Message{
		{ExternalID: "<a@corp.io>", ThreadID: "<root@corp.io>", From: "me@corp.io", Subject: "Re: plan", SentAt: at(10, 9)},
		{ExternalID: "<b@corp.io>", ThreadID: "<root@corp.io>", From: "me@corp.io", Subject: "Re: plan", SentAt: at(11, 9)},
		{ExternalID: "<c@corp.io>", From: "me@corp.io", Subject: "Standalone", SentAt: at(12, 9)},
	}}
	inbox := &fakeInbox{}
	b := NewBackfiller(users, inbox, &fakeEvents{}, testKey, 3)
	b.SetSentFolderReader(sent)

	res, err := b.Run(context.Background(), "u2")
	require.NoError(t, err)

	assert.Equal(t, "app-password", sent.account.Password)
	assert.Equal(t, "me@corp.io", sent.account.Username)
	assert.Equal(t, 2, res.Threads)
	assert.Equal(t, 3, res.Messages)
	for _, m := range inbox.messages {
		assert.Equal(t, inboxdomain.DirectionOutbound, m.Direction)
	}
	assert.Empty(t, inbox.contacts)
}

func TestBackfillRequiresConnectedMailbox(t *testing.T) {
	b := NewBackfiller(&fakeUsers{user: &authdomain.User{ID: "u3", Provider: authdomain.ProviderEmail}}, &fakeInbox{}, &fakeEvents{}, testKey, 1)
	_, err := b.Run(context.Background(), "u3")
	assert.ErrorIs(t, err, ErrNoMailbox)

	_, err = b.Run(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
