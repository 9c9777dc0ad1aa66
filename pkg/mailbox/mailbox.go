// Package mailbox holds the provider-neutral shapes the mail readers return.
package mailbox

import "time"

// Message is one fetched email
type Message struct {
	ExternalID string
	ThreadID   string
	From       string
	FromName   string
	To         []string
	Subject    string
	Body       string
	IsHTML     bool
	Unread     bool
	Important  bool
	Sent       bool
	SentAt     time.Time
}

// Thread is a conversation with its messages in chronological order
type Thread struct {
	ExternalID string
	Subject    string
	Snippet    string
	Messages   []Message
}

// Latest returns the newest message, or nil for an empty thread
func (t *Thread) Latest() *Message {
	if len(t.Messages) == 0 {
		return nil
	}
	return &t.Messages[len(t.Messages)-1]
}

// Participants lists every distinct address seen in the thread
func (t *Thread) Participants() []string {
	seen := map[string]bool{}
	var out []string
	add := func(addr string) {
		if addr == "" || seen[addr] {
			return
		}
		seen[addr] = true
		out = append(out, addr)
	}
	for _, m := range t.Messages {
		add(m.From)
		for _, to := range m.To {
			add(to)
		}
	}
	return out
}
