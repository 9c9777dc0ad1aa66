package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	authdomain "nexus-backend/internal/auth/domain"
	calendardomain "nexus-backend/internal/calendar/domain"
	inboxdomain "nexus-backend/internal/inbox/domain"
	"nexus-backend/internal/lifecycle/domain"
	toneusecase "nexus-backend/internal/tone/usecase"
	"nexus-backend/pkg/gcalendar"
	"nexus-backend/pkg/googleauth"
	"nexus-backend/pkg/imap"
	"nexus-backend/pkg/mailbox"
	"nexus-backend/pkg/metrics"
	"nexus-backend/pkg/utils/crypto"

	"golang.org/x/oauth2"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrNoMailbox    = errors.New("no mailbox connected")
)

const (
	backfillDays       = 30
	backfillThreads    = 200
	backfillSent       = 200
	calendarPastDays   = 7
	calendarFutureDays = 30
	calendarLimit      = 250
	defaultWorkers     = 3
)

type UserStore interface {
	FindByID(id string) (*authdomain.User, error)
	Update(user *authdomain.User) error
}

type MailReader interface {
	ListRecentThreads(ctx context.Context, accessToken, refreshToken string, since time.Time, limit int, onTokenRefresh googleauth.TokenUpdateFunc) ([]mailbox.Thread, error)
}

type CalendarReader interface {
	ListEvents(ctx context.Context, accessToken, refreshToken string, from, to time.Time, limit int, onTokenRefresh googleauth.TokenUpdateFunc) ([]gcalendar.Event, error)
}

type SentFolderReader interface {
	ListSentMessages(ctx context.Context, account imap.Account, since time.Time, limit int) ([]mailbox.Message, error)
}

type InboxWriter interface {
	UpsertThread(thread *inboxdomain.Thread) error
	UpsertMessage(message *inboxdomain.Message) error
	UpsertContact(contact *inboxdomain.Contact) error
}

type EventWriter interface {
	Upsert(event *calendardomain.Event) error
}

// job imports one record; source labels it for logs and metrics
type job struct {
	source   string
	kind     string
	messages int
	run      func() error
}

// Backfiller imports a newly connected account's recent mail and calendar
// through a bounded worker pool. A failing record is logged and skipped.
type Backfiller struct {
	users         UserStore
	inbox         InboxWriter
	events        EventWriter
	mail          MailReader
	calendar      CalendarReader
	sent          SentFolderReader
	encryptionKey string
	workers       int
	metrics       *metrics.Metrics
	now           func() time.Time
}

func NewBackfiller(users UserStore, inbox InboxWriter, events EventWriter, encryptionKey string, workers int) *Backfiller {
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Backfiller{
		users:         users,
		inbox:         inbox,
		events:        events,
		encryptionKey: encryptionKey,
		workers:       workers,
		now:           time.Now,
	}
}

// SetGoogleReaders enables Gmail and Google Calendar imports
func (b *Backfiller) SetGoogleReaders(mail MailReader, calendar CalendarReader) {
	b.mail = mail
	b.calendar = calendar
}

// SetSentFolderReader enables IMAP imports
func (b *Backfiller) SetSentFolderReader(sent SentFolderReader) {
	b.sent = sent
}

func (b *Backfiller) SetMetrics(m *metrics.Metrics) {
	b.metrics = m
}

// Run imports the user's recent history from whichever provider is connected
func (b *Backfiller) Run(ctx context.Context, userID string) (*domain.BackfillResult, error) {
	user, err := b.users.FindByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	var jobs []job
	switch user.Provider {
	case authdomain.ProviderGoogle:
		jobs, err = b.googleJobs(ctx, user)
	case authdomain.ProviderIMAP:
		jobs, err = b.imapJobs(ctx, user)
	default:
		return nil, ErrNoMailbox
	}
	if err != nil {
		return nil, err
	}

	result := b.process(jobs)
	log.Printf("[Backfill] User %s: %d threads, %d messages, %d events imported, %d skipped",
		userID, result.Threads, result.Messages, result.Events, result.Skipped)
	return result, nil
}

func (b *Backfiller) googleJobs(ctx context.Context, user *authdomain.User) ([]job, error) {
	if b.mail == nil {
		return nil, ErrNoMailbox
	}
	access, err := crypto.Decrypt(user.AccessToken, b.encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("decrypt access token: %w", err)
	}
	refresh, err := crypto.Decrypt(user.RefreshToken, b.encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("decrypt refresh token: %w", err)
	}
	onRefresh := b.tokenSaver(user)

	now := b.now()
	threads, err := b.mail.ListRecentThreads(ctx, access, refresh, now.AddDate(0, 0, -backfillDays), backfillThreads, onRefresh)
	if err != nil {
		return nil, fmt.Errorf("list gmail threads: %w", err)
	}

	jobs := make([]job, 0, len(threads))
	for i := range threads {
		thread := threads[i]
		jobs = append(jobs, job{source: "gmail", kind: "thread", messages: len(thread.Messages), run: func() error {
			return b.importThread(user.ID, user.Email, thread)
		}})
	}

	if b.calendar != nil {
		events, err := b.calendar.ListEvents(ctx, access, refresh,
			now.AddDate(0, 0, -calendarPastDays), now.AddDate(0, 0, calendarFutureDays), calendarLimit, onRefresh)
		if err != nil {
			// Mail is still worth importing without calendar access
			log.Printf("[Backfill] Calendar import failed for user %s: %v", user.ID, err)
		}
		for i := range events {
			event := events[i]
			jobs = append(jobs, job{source: "gcalendar", kind: "event", run: func() error {
				return b.importEvent(user.ID, event)
			}})
		}
	}
	return jobs, nil
}

func (b *Backfiller) imapJobs(ctx context.Context, user *authdomain.User) ([]job, error) {
	if b.sent == nil {
		return nil, ErrNoMailbox
	}
	password, err := crypto.Decrypt(user.ImapPassword, b.encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("decrypt imap password: %w", err)
	}
	account := imap.Account{Server: user.ImapServer, Port: user.ImapPort, Username: user.Email, Password: password}

	messages, err := b.sent.ListSentMessages(ctx, account, b.now().AddDate(0, 0, -backfillDays), backfillSent)
	if err != nil {
		return nil, fmt.Errorf("list sent folder: %w", err)
	}

	// Group by conversation so each thread row is written once
	var order []string
	grouped := map[string]*mailbox.Thread{}
	for _, m := range messages {
		m.Sent = true
		key := m.ThreadID
		if key == "" {
			key = m.ExternalID
		}
		t, ok := grouped[key]
		if !ok {
			t = &mailbox.Thread{ExternalID: key, Subject: m.Subject}
			grouped[key] = t
			order = append(order, key)
		}
		t.Messages = append(t.Messages, m)
	}

	jobs := make([]job, 0, len(order))
	for _, key := range order {
		thread := *grouped[key]
		jobs = append(jobs, job{source: "imap", kind: "thread", messages: len(thread.Messages), run: func() error {
			return b.importThread(user.ID, user.Email, thread)
		}})
	}
	return jobs, nil
}

// tokenSaver persists refreshed Google tokens, encrypted like the originals
func (b *Backfiller) tokenSaver(user *authdomain.User) googleauth.TokenUpdateFunc {
	var mu sync.Mutex
	return func(token *oauth2.Token) error {
		mu.Lock()
		defer mu.Unlock()
		access, err := crypto.Encrypt(token.AccessToken, b.encryptionKey)
		if err != nil {
			return err
		}
		user.AccessToken = access
		if token.RefreshToken != "" {
			refresh, err := crypto.Encrypt(token.RefreshToken, b.encryptionKey)
			if err != nil {
				return err
			}
			user.RefreshToken = refresh
		}
		return b.users.Update(user)
	}
}

func (b *Backfiller) process(jobs []job) *domain.BackfillResult {
	result := &domain.BackfillResult{}
	var mu sync.Mutex
	queue := make(chan job)
	var wg sync.WaitGroup

	for i := 0; i < b.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range queue {
				err := b.runJob(j)
				mu.Lock()
				switch {
				case err != nil:
					result.Skipped++
				case j.kind == "event":
					result.Events++
				default:
					result.Threads++
					result.Messages += j.messages
				}
				mu.Unlock()
			}
		}()
	}

	for _, j := range jobs {
		queue <- j
	}
	close(queue)
	wg.Wait()
	return result
}

func (b *Backfiller) runJob(j job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		if err != nil {
			log.Printf("[Backfill] Skipping %s %s: %v", j.source, j.kind, err)
			b.metrics.IncBackfillItem(j.source, "skipped")
			return
		}
		b.metrics.IncBackfillItem(j.source, "imported")
	}()
	return j.run()
}

func (b *Backfiller) importThread(userID, ownEmail string, t mailbox.Thread) error {
	if len(t.Messages) == 0 {
		return errors.New("thread has no messages")
	}
	latest := t.Latest()

	thread := &inboxdomain.Thread{
		UserID:        userID,
		ExternalID:    t.ExternalID,
		Channel:       "email",
		Subject:       t.Subject,
		Snippet:       t.Snippet,
		Participants:  t.Participants(),
		Priority:      inboxdomain.PriorityNormal,
		Status:        inboxdomain.ThreadStatusActive,
		LastMessageAt: latest.SentAt,
	}
	for _, m := range t.Messages {
		if m.Unread {
			thread.IsUnread = true
		}
		if m.Important {
			thread.Priority = inboxdomain.PriorityHigh
		}
	}
	if thread.Snippet == "" {
		thread.Snippet = truncate(bodyText(*latest), 200)
	}
	if err := b.inbox.UpsertThread(thread); err != nil {
		return fmt.Errorf("upsert thread: %w", err)
	}

	for _, m := range t.Messages {
		direction := inboxdomain.DirectionInbound
		if m.Sent || strings.EqualFold(m.From, ownEmail) {
			direction = inboxdomain.DirectionOutbound
		}
		msg := &inboxdomain.Message{
			ThreadID:   thread.ID,
			UserID:     userID,
			ExternalID: m.ExternalID,
			FromEmail:  m.From,
			FromName:   m.FromName,
			To:         m.To,
			Subject:    m.Subject,
			Body:       bodyText(m),
			Direction:  direction,
			SentAt:     m.SentAt,
		}
		if err := b.inbox.UpsertMessage(msg); err != nil {
			return fmt.Errorf("upsert message %s: %w", m.ExternalID, err)
		}

		if direction == inboxdomain.DirectionInbound && m.From != "" {
			contact := &inboxdomain.Contact{UserID: userID, Email: strings.ToLower(m.From), Name: m.FromName, LastInteractionAt: m.SentAt}
			if err := b.inbox.UpsertContact(contact); err != nil {
				return fmt.Errorf("upsert contact: %w", err)
			}
		}
	}
	return nil
}

func (b *Backfiller) importEvent(userID string, e gcalendar.Event) error {
	return b.events.Upsert(&calendardomain.Event{
		UserID:         userID,
		ExternalID:     e.ExternalID,
		Title:          e.Title,
		Description:    e.Description,
		StartTime:      e.Start,
		EndTime:        e.End,
		Location:       e.Location,
		ConferenceLink: e.ConferenceLink,
		Attendees:      e.Attendees,
		Source:         calendardomain.SourceGoogle,
	})
}

func bodyText(m mailbox.Message) string {
	if m.IsHTML {
		return strings.TrimSpace(toneusecase.PlainText(m.Body))
	}
	return m.Body
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
