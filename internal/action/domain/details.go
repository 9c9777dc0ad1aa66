package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	schedulingdomain "nexus-backend/internal/scheduling/domain"
)

// Details is the typed payload of a PendingAction, one variant per ActionType
type Details interface {
	ActionType() ActionType
}

// ProposedEvent is a calendar event waiting to be created
type ProposedEvent struct {
	Title          string    `json:"title"`
	Description    string    `json:"description,omitempty"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	Attendees      []string  `json:"attendees,omitempty"`
	Location       string    `json:"location,omitempty"`
	ConferenceLink string    `json:"conferenceLink,omitempty"`
}

// ProposedTask is a task waiting to be created
type ProposedTask struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Priority    string     `json:"priority,omitempty"`
}

type CalendarEventDetails struct {
	Event        ProposedEvent            `json:"event"`
	Alternatives []schedulingdomain.Offer `json:"alternatives,omitempty"`
}

func (CalendarEventDetails) ActionType() ActionType { return ActionCreateCalendarEvent }

// TimeboxDetails bundles a task with the focus block reserved for it
type TimeboxDetails struct {
	Task            ProposedTask  `json:"task"`
	FocusBlock      ProposedEvent `json:"focusBlock"`
	ReminderMinutes int           `json:"reminderMinutes,omitempty"`
}

func (TimeboxDetails) ActionType() ActionType { return ActionTimeboxTask }

// SchedulingEmailDetails is a reply draft offering meeting times
type SchedulingEmailDetails struct {
	ThreadID      string                   `json:"threadId"`
	To            []string                 `json:"to,omitempty"`
	Subject       string                   `json:"subject"`
	Body          string                   `json:"body"`
	ProposedTimes []schedulingdomain.Offer `json:"proposedTimes,omitempty"`
}

func (SchedulingEmailDetails) ActionType() ActionType { return ActionSendSchedulingEmail }

// TaskDetails is a standalone task without a focus block
type TaskDetails struct {
	Task       ProposedTask `json:"task"`
	ReminderAt *time.Time   `json:"reminderAt,omitempty"`
}

func (TaskDetails) ActionType() ActionType { return ActionCreateTask }

// ActionDetails persists a Details variant as {"type": ..., "payload": ...}
type ActionDetails struct {
	Details
}

type detailsEnvelope struct {
	Type    ActionType      `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func (d ActionDetails) MarshalJSON() ([]byte, error) {
	if d.Details == nil {
		return []byte("null"), nil
	}
	payload, err := json.Marshal(d.Details)
	if err != nil {
		return nil, err
	}
	return json.Marshal(detailsEnvelope{Type: d.ActionType(), Payload: payload})
}

func (d *ActionDetails) UnmarshalJSON(data []byte) error {
	if string(data) == "null" || len(data) == 0 {
		d.Details = nil
		return nil
	}
	var env detailsEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}

	var (
		target Details
		err    error
	)
	switch env.Type {
	case ActionCreateCalendarEvent:
		target, err = decodeAs[CalendarEventDetails](env.Payload)
	case ActionTimeboxTask:
		target, err = decodeAs[TimeboxDetails](env.Payload)
	case ActionSendSchedulingEmail:
		target, err = decodeAs[SchedulingEmailDetails](env.Payload)
	case ActionCreateTask:
		target, err = decodeAs[TaskDetails](env.Payload)
	default:
		return fmt.Errorf("unknown action type %q", env.Type)
	}
	if err != nil {
		return err
	}
	d.Details = target
	return nil
}

func decodeAs[T Details](raw json.RawMessage) (Details, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// Value implements driver.Valuer
func (d ActionDetails) Value() (driver.Value, error) {
	b, err := d.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (d *ActionDetails) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		d.Details = nil
		return nil
	case []byte:
		return d.UnmarshalJSON(v)
	case string:
		return d.UnmarshalJSON([]byte(v))
	default:
		return fmt.Errorf("unsupported details column type %T", value)
	}
}
