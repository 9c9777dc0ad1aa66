package imap

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"nexus-backend/pkg/mailbox"

	goimap "github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
)

// Account is an IMAP login
type Account struct {
	Server   string
	Port     int
	Username string
	Password string
}

func (a Account) addr() string {
	port := a.Port
	if port == 0 {
		port = 993
	}
	return fmt.Sprintf("%s:%d", a.Server, port)
}

var sentFolderNames = []string{"Sent", "Sent Items", "Sent Messages", "[Gmail]/Sent Mail", "INBOX.Sent"}

// Reader fetches messages over IMAP
type Reader struct {
	dial func(addr string) (*client.Client, error)
}

func NewReader() *Reader {
	return &Reader{dial: func(addr string) (*client.Client, error) {
		return client.DialTLS(addr, nil)
	}}
}

// ListSentMessages fetches messages sent after since from the account's sent folder, newest first
func (r *Reader) ListSentMessages(ctx context.Context, account Account, since time.Time, limit int) ([]mailbox.Message, error) {
	c, err := r.dial(account.addr())
	if err != nil {
		return nil, fmt.Errorf("imap dial: %w", err)
	}
	defer c.Logout()

	if err := c.Login(account.Username, account.Password); err != nil {
		return nil, fmt.Errorf("imap login: %w", err)
	}

	folder, err := findSentFolder(c)
	if err != nil {
		return nil, err
	}
	if _, err := c.Select(folder, true); err != nil {
		return nil, fmt.Errorf("imap select %q: %w", folder, err)
	}

	criteria := goimap.NewSearchCriteria()
	criteria.Since = since
	uids, err := c.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("imap search: %w", err)
	}
	if len(uids) == 0 {
		return nil, nil
	}
	sort.Slice(uids, func(i, j int) bool { return uids[i] > uids[j] })
	if limit > 0 && len(uids) > limit {
		uids = uids[:limit]
	}

	seqset := new(goimap.SeqSet)
	seqset.AddNum(uids...)
	section := &goimap.BodySectionName{Peek: true}
	items := []goimap.FetchItem{section.FetchItem(), goimap.FetchUid}

	fetched := make(chan *goimap.Message, 16)
	done := make(chan error, 1)
	go func() {
		done <- c.UidFetch(seqset, items, fetched)
	}()

	var messages []mailbox.Message
	for msg := range fetched {
		if ctx.Err() != nil {
			continue
		}
		body := msg.GetBody(section)
		if body == nil {
			continue
		}
		parsed, err := ParseMessage(body)
		if err != nil {
			log.Printf("[IMAP] Skipping uid %d: %v", msg.Uid, err)
			continue
		}
		if parsed.ExternalID == "" {
			parsed.ExternalID = fmt.Sprintf("uid-%d", msg.Uid)
		}
		parsed.Sent = true
		messages = append(messages, parsed)
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("imap fetch: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(messages, func(i, j int) bool {
		return messages[i].SentAt.After(messages[j].SentAt)
	})
	return messages, nil
}

// findSentFolder prefers the \Sent special-use mailbox, then well-known names
func findSentFolder(c *client.Client) (string, error) {
	boxes := make(chan *goimap.MailboxInfo, 32)
	done := make(chan error, 1)
	go func() {
		done <- c.List("", "*", boxes)
	}()

	var names []string
	sent := ""
	for box := range boxes {
		names = append(names, box.Name)
		for _, attr := range box.Attributes {
			if strings.EqualFold(attr, `\Sent`) && sent == "" {
				sent = box.Name
			}
		}
	}
	if err := <-done; err != nil {
		return "", fmt.Errorf("imap list: %w", err)
	}
	if sent != "" {
		return sent, nil
	}
	for _, candidate := range sentFolderNames {
		for _, name := range names {
			if strings.EqualFold(name, candidate) {
				return name, nil
			}
		}
	}
	return "", fmt.Errorf("no sent folder among %d mailboxes", len(names))
}
