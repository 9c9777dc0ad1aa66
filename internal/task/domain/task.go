package domain

import "time"

// Priority represents task priority level
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// ParsePriority maps free text to a Priority, defaulting to medium
func ParsePriority(p string) Priority {
	switch Priority(p) {
	case PriorityHigh, "urgent":
		return PriorityHigh
	case PriorityLow:
		return PriorityLow
	default:
		return PriorityMedium
	}
}

// TaskStatus represents the current state of a task
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
)

// ParseStatus accepts the stored names plus "done" and "todo"
func ParseStatus(s string) (TaskStatus, bool) {
	switch TaskStatus(s) {
	case TaskStatusPending, "todo":
		return TaskStatusPending, true
	case TaskStatusInProgress:
		return TaskStatusInProgress, true
	case TaskStatusCompleted, "done":
		return TaskStatusCompleted, true
	}
	return "", false
}

// Task is a to-do item created manually, extracted from a thread, or time-boxed by the assistant
type Task struct {
	ID             string     `json:"id" gorm:"primaryKey"`
	UserID         string     `json:"user_id" gorm:"index;not null"`
	SourceThreadID string     `json:"source_thread_id,omitempty" gorm:"index"`
	Title          string     `json:"title" gorm:"not null"`
	Description    string     `json:"description,omitempty"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	Priority       Priority   `json:"priority" gorm:"default:medium"`
	Status         TaskStatus `json:"status" gorm:"default:pending"`
	// Focus block reserved on the calendar for this task, if time-boxed
	FocusEventID string     `json:"focus_event_id,omitempty"`
	FocusStart   *time.Time `json:"focus_start,omitempty"`
	ReminderAt   *time.Time `json:"reminder_at,omitempty"`
	ReminderSent bool       `json:"reminder_sent" gorm:"default:false"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// TaskExtraction is a task found in a message
type TaskExtraction struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Priority    Priority   `json:"priority"`
}
