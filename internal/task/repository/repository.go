package repository

import (
	"errors"
	"time"

	"nexus-backend/internal/task/domain"
)

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	Create(task *domain.Task) error

	// FindByID returns nil, nil when the task does not exist
	FindByID(id string) (*domain.Task, error)

	// FindByUserID lists a user's tasks, nearest due date first
	FindByUserID(userID string, status *domain.TaskStatus, limit, offset int) ([]*domain.Task, int64, error)

	Update(task *domain.Task) error

	Delete(id string) error

	// FindPendingReminders returns tasks where reminder_at <= now, the reminder
	// has not been sent and the task is not completed
	FindPendingReminders(now time.Time) ([]*domain.Task, error)

	MarkReminderSent(id string) error
}

// ErrReminderClaimed means another run already sent the reminder
var ErrReminderClaimed = errors.New("reminder already sent")
