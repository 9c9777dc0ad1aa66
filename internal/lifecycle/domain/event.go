package domain

import (
	"errors"
	"fmt"
	"time"
)

type EventType string

const (
	EventMessageSent      EventType = "message_sent"
	EventDraftEdited      EventType = "draft_edited"
	EventAccountConnected EventType = "account_connected"
)

var ErrInvalidEvent = errors.New("invalid lifecycle event")

// Event is an external lifecycle signal. Draft and Final carry the assistant's
// draft and the text the user kept, when the event concerns an edited draft.
type Event struct {
	Type       EventType `json:"type"`
	UserID     string    `json:"userId"`
	Channel    string    `json:"channel,omitempty"`
	ThreadID   string    `json:"threadId,omitempty"`
	Draft      string    `json:"draft,omitempty"`
	Final      string    `json:"final,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

func (e Event) Validate() error {
	if e.UserID == "" {
		return fmt.Errorf("%w: userId is required", ErrInvalidEvent)
	}
	switch e.Type {
	case EventMessageSent, EventAccountConnected:
		return nil
	case EventDraftEdited:
		if e.Draft == "" || e.Final == "" {
			return fmt.Errorf("%w: draft_edited needs draft and final", ErrInvalidEvent)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, e.Type)
	}
}

// BackfillResult counts what one backfill imported
type BackfillResult struct {
	Threads  int `json:"threads"`
	Messages int `json:"messages"`
	Events   int `json:"events"`
	Skipped  int `json:"skipped"`
}
