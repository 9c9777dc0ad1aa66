package domain

import (
	"time"

	"nexus-backend/pkg/utils/dbtype"
)

const (
	SourceGoogle    = "google"
	SourceAssistant = "assistant"
	SourceManual    = "manual"
)

// Event is a calendar entry, imported or created on approval of a pending action
type Event struct {
	ID             string             `json:"id" gorm:"primaryKey"`
	UserID         string             `json:"user_id" gorm:"index:idx_event_user_start;uniqueIndex:idx_event_external;not null"`
	ExternalID     string             `json:"external_id,omitempty" gorm:"uniqueIndex:idx_event_external"`
	Title          string             `json:"title"`
	Description    string             `json:"description,omitempty" gorm:"type:text"`
	StartTime      time.Time          `json:"start_time" gorm:"index:idx_event_user_start"`
	EndTime        time.Time          `json:"end_time"`
	Location       string             `json:"location,omitempty"`
	ConferenceLink string             `json:"conference_link,omitempty"`
	Attendees      dbtype.StringArray `json:"attendees" gorm:"type:text"`
	Source         string             `json:"source"`
	TaskID         string             `json:"task_id,omitempty" gorm:"index"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// Duration is the event length
func (e *Event) Duration() time.Duration {
	return e.EndTime.Sub(e.StartTime)
}
