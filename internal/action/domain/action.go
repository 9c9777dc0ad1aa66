package domain

import (
	"errors"
	"time"
)

var (
	ErrActionNotFound   = errors.New("action not found")
	ErrAlreadyProcessed = errors.New("Action already processed")
	ErrDetailsMismatch  = errors.New("action details do not match action type")
)

type ActionType string

const (
	ActionCreateCalendarEvent ActionType = "create_calendar_event"
	ActionTimeboxTask         ActionType = "timebox_task"
	ActionSendSchedulingEmail ActionType = "send_scheduling_email"
	ActionCreateTask          ActionType = "create_task"
)

type ActionStatus string

const (
	StatusPending  ActionStatus = "pending"
	StatusApproved ActionStatus = "approved"
	StatusRejected ActionStatus = "rejected"
)

// IsTerminal reports whether no further transition is allowed
func (s ActionStatus) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// PendingAction is a staged autonomous effect awaiting a human decision.
// Rows are never deleted, only transitioned out of pending.
type PendingAction struct {
	ID             string        `json:"id" gorm:"primaryKey"`
	UserID         string        `json:"user_id" gorm:"index:idx_action_user_status;not null"`
	Type           ActionType    `json:"type" gorm:"not null"`
	Status         ActionStatus  `json:"status" gorm:"index:idx_action_user_status;default:pending"`
	Summary        string        `json:"summary"`
	Details        ActionDetails `json:"details" gorm:"type:text"`
	SourceThreadID string        `json:"source_thread_id,omitempty" gorm:"index"`
	AuditReason    string        `json:"audit_reason" gorm:"type:text"`
	CreatedAt      time.Time     `json:"created_at"`
	ExecutedAt     *time.Time    `json:"executed_at,omitempty"`
}

const (
	ActorUser      = "user"
	ActorAssistant = "assistant"
)

// ActionLog is the append-only audit trail of applied or rejected actions
type ActionLog struct {
	ID             string        `json:"id" gorm:"primaryKey"`
	UserID         string        `json:"user_id" gorm:"index;not null"`
	ActionID       string        `json:"action_id" gorm:"index"`
	Actor          string        `json:"actor"`
	ActionType     ActionType    `json:"action_type"`
	Outcome        ActionStatus  `json:"outcome"`
	Summary        string        `json:"summary"`
	Details        ActionDetails `json:"details" gorm:"type:text"`
	SourceThreadID string        `json:"source_thread_id,omitempty"`
	CreatedAt      time.Time     `json:"created_at" gorm:"index"`
}

// StageRequest describes an action to stage
type StageRequest struct {
	Type           ActionType
	Summary        string
	Details        Details
	SourceThreadID string
	AuditReason    string
}

// ExecuteResult is the structured outcome of an approval attempt
type ExecuteResult struct {
	Success  bool              `json:"success"`
	ActionID string            `json:"actionId"`
	Status   ActionStatus      `json:"status,omitempty"`
	Error    string            `json:"error,omitempty"`
	Created  map[string]string `json:"created,omitempty"`
}
