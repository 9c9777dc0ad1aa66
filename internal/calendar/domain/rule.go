package domain

import (
	"time"

	"nexus-backend/pkg/utils/dbtype"
)

type RuleOwner string

const (
	RuleOwnerUser      RuleOwner = "user"
	RuleOwnerWorkspace RuleOwner = "workspace"
)

// SchedulingRule is a stored override of the scheduling defaults for a user or a workspace
type SchedulingRule struct {
	ID                            string          `json:"id" gorm:"primaryKey"`
	OwnerType                     RuleOwner       `json:"owner_type" gorm:"uniqueIndex:idx_rule_owner;not null"`
	OwnerID                       string          `json:"owner_id" gorm:"uniqueIndex:idx_rule_owner;not null"`
	BufferMinutes                 int             `json:"buffer_minutes"`
	WorkingHoursStart             string          `json:"working_hours_start"`
	WorkingHoursEnd               string          `json:"working_hours_end"`
	NoMeetingDays                 dbtype.IntArray `json:"no_meeting_days" gorm:"type:text"`
	DefaultMeetingDurationMinutes int             `json:"default_meeting_duration_minutes"`
	Timezone                      string          `json:"timezone"`
	ConferenceLink                string          `json:"conference_link,omitempty"`
	UpdatedAt                     time.Time       `json:"updated_at"`
}
