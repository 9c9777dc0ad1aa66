package gmail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"sort"
	"strings"
	"time"

	"nexus-backend/pkg/googleauth"
	"nexus-backend/pkg/mailbox"

	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

const (
	maxPageSize      = 500
	fetchConcurrency = 10
)

// Service reads a user's Gmail account
type Service struct {
	auth googleauth.Config
}

func NewService(clientID, clientSecret string) *Service {
	return &Service{auth: googleauth.Config{ClientID: clientID, ClientSecret: clientSecret}}
}

// GetGmailService creates a Gmail client with the user's tokens
func (s *Service) GetGmailService(ctx context.Context, accessToken, refreshToken string, onTokenRefresh googleauth.TokenUpdateFunc) (*gmail.Service, error) {
	client := s.auth.HTTPClient(ctx, accessToken, refreshToken, onTokenRefresh)
	srv, err := gmail.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %v", err)
	}
	return srv, nil
}

// ListRecentThreads returns threads with activity after since, newest first.
// Threads that fail to load are skipped.
func (s *Service) ListRecentThreads(ctx context.Context, accessToken, refreshToken string, since time.Time, limit int, onTokenRefresh googleauth.TokenUpdateFunc) ([]mailbox.Thread, error) {
	srv, err := s.GetGmailService(ctx, accessToken, refreshToken, onTokenRefresh)
	if err != nil {
		return nil, err
	}

	resp, err := srv.Users.Threads.List("me").
		Q(fmt.Sprintf("after:%d -in:spam -in:trash", since.Unix())).
		MaxResults(pageSize(limit)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("unable to list threads: %v", err)
	}

	ids := make([]string, 0, len(resp.Threads))
	for _, t := range resp.Threads {
		ids = append(ids, t.Id)
	}

	fetched := fetchAll(ids, func(id string) (*mailbox.Thread, error) {
		full, err := srv.Users.Threads.Get("me", id).Format("full").Context(ctx).Do()
		if err != nil {
			return nil, err
		}
		return convertThread(full), nil
	})
	return newestThreadsFirst(fetched), nil
}

// newestThreadsFirst copies the fetched threads ordered by latest message time
func newestThreadsFirst(fetched []*mailbox.Thread) []mailbox.Thread {
	threads := make([]mailbox.Thread, 0, len(fetched))
	for _, t := range fetched {
		threads = append(threads, *t)
	}
	sort.Slice(threads, func(i, j int) bool {
		return latestTime(&threads[i]).After(latestTime(&threads[j]))
	})
	return threads
}

// ListSentMessages returns sent messages after since, newest first
func (s *Service) ListSentMessages(ctx context.Context, accessToken, refreshToken string, since time.Time, limit int, onTokenRefresh googleauth.TokenUpdateFunc) ([]mailbox.Message, error) {
	srv, err := s.GetGmailService(ctx, accessToken, refreshToken, onTokenRefresh)
	if err != nil {
		return nil, err
	}

	resp, err := srv.Users.Messages.List("me").
		Q(fmt.Sprintf("in:sent after:%d", since.Unix())).
		MaxResults(pageSize(limit)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("unable to list sent messages: %v", err)
	}

	ids := make([]string, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		ids = append(ids, m.Id)
	}

	fetched := fetchAll(ids, func(id string) (*mailbox.Message, error) {
		full, err := srv.Users.Messages.Get("me", id).Format("full").Context(ctx).Do()
		if err != nil {
			return nil, err
		}
		msg := convertMessage(full)
		return &msg, nil
	})

	messages := make([]mailbox.Message, 0, len(fetched))
	for _, m := range fetched {
		messages = append(messages, *m)
	}
	sort.Slice(messages, func(i, j int) bool {
		return messages[i].SentAt.After(messages[j].SentAt)
	})
	return messages, nil
}

// ValidateToken checks the tokens with a cheap profile call
func (s *Service) ValidateToken(ctx context.Context, accessToken, refreshToken string, onTokenRefresh googleauth.TokenUpdateFunc) error {
	srv, err := s.GetGmailService(ctx, accessToken, refreshToken, onTokenRefresh)
	if err != nil {
		return err
	}
	if _, err := srv.Users.GetProfile("me").Context(ctx).Do(); err != nil {
		return errors.New("invalid or expired access token")
	}
	return nil
}

// fetchAll runs get for every id with bounded concurrency and drops failures
func fetchAll[T any](ids []string, get func(id string) (*T, error)) []*T {
	type result struct {
		item *T
		err  error
		id   string
	}

	results := make(chan result, len(ids))
	semaphore := make(chan struct{}, fetchConcurrency)

	for _, id := range ids {
		go func(id string) {
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			item, err := get(id)
			results <- result{item: item, err: err, id: id}
		}(id)
	}

	out := make([]*T, 0, len(ids))
	for range ids {
		r := <-results
		if r.err != nil {
			log.Printf("[Gmail] Skipping %s: %v", r.id, r.err)
			continue
		}
		if r.item != nil {
			out = append(out, r.item)
		}
	}
	return out
}

func pageSize(limit int) int64 {
	if limit <= 0 {
		return 50
	}
	if limit > maxPageSize {
		return maxPageSize
	}
	return int64(limit)
}

func latestTime(t *mailbox.Thread) time.Time {
	if m := t.Latest(); m != nil {
		return m.SentAt
	}
	return time.Time{}
}

func convertThread(t *gmail.Thread) *mailbox.Thread {
	thread := &mailbox.Thread{ExternalID: t.Id, Snippet: t.Snippet}
	for _, m := range t.Messages {
		thread.Messages = append(thread.Messages, convertMessage(m))
	}
	sort.SliceStable(thread.Messages, func(i, j int) bool {
		return thread.Messages[i].SentAt.Before(thread.Messages[j].SentAt)
	})
	if len(thread.Messages) > 0 {
		thread.Subject = thread.Messages[0].Subject
	}
	return thread
}

func convertMessage(msg *gmail.Message) mailbox.Message {
	var headers []*gmail.MessagePartHeader
	if msg.Payload != nil {
		headers = msg.Payload.Headers
	}

	fromEmail, fromName := splitAddress(getHeader(headers, "From"))
	var to []string
	if list, err := mail.ParseAddressList(getHeader(headers, "To")); err == nil {
		for _, a := range list {
			to = append(to, strings.ToLower(a.Address))
		}
	}

	body, isHTML := "", false
	if msg.Payload != nil {
		body, isHTML = getEmailBody(msg.Payload)
	}

	return mailbox.Message{
		ExternalID: msg.Id,
		ThreadID:   msg.ThreadId,
		From:       fromEmail,
		FromName:   fromName,
		To:         to,
		Subject:    getHeader(headers, "Subject"),
		Body:       body,
		IsHTML:     isHTML,
		Unread:     hasLabel(msg.LabelIds, "UNREAD"),
		Important:  hasLabel(msg.LabelIds, "IMPORTANT"),
		Sent:       hasLabel(msg.LabelIds, "SENT"),
		SentAt:     time.UnixMilli(msg.InternalDate),
	}
}

// splitAddress parses "Name <email@example.com>"
func splitAddress(raw string) (string, string) {
	addr, err := mail.ParseAddress(raw)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(raw)), ""
	}
	return strings.ToLower(addr.Address), addr.Name
}

func getHeader(headers []*gmail.MessagePartHeader, name string) string {
	for _, header := range headers {
		if strings.EqualFold(header.Name, name) {
			return header.Value
		}
	}
	return ""
}

// getEmailBody prefers the plain-text part and falls back to HTML
func getEmailBody(payload *gmail.MessagePart) (string, bool) {
	if payload.Body != nil && payload.Body.Data != "" {
		if data, err := decodePart(payload.Body.Data); err == nil {
			return data, payload.MimeType == "text/html"
		}
	}

	var htmlBody, plainBody string
	var findBody func(parts []*gmail.MessagePart)
	findBody = func(parts []*gmail.MessagePart) {
		for _, part := range parts {
			if part.Body != nil && part.Body.Data != "" && part.Filename == "" {
				switch part.MimeType {
				case "text/html":
					if data, err := decodePart(part.Body.Data); err == nil && htmlBody == "" {
						htmlBody = data
					}
				case "text/plain":
					if data, err := decodePart(part.Body.Data); err == nil && plainBody == "" {
						plainBody = data
					}
				}
			}
			if len(part.Parts) > 0 {
				findBody(part.Parts)
			}
		}
	}
	findBody(payload.Parts)

	if plainBody != "" {
		return plainBody, false
	}
	return htmlBody, htmlBody != ""
}

func decodePart(data string) (string, error) {
	decoded, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		decoded, err = base64.RawURLEncoding.DecodeString(data)
	}
	return string(decoded), err
}

func hasLabel(labels []string, labelID string) bool {
	for _, label := range labels {
		if label == labelID {
			return true
		}
	}
	return false
}
