package usecase

import (
	"context"

	"nexus-backend/internal/task/domain"
)

// TaskUsecase defines the interface for task business logic
type TaskUsecase interface {
	// CreateTask creates a new task manually
	CreateTask(userID, title, description string, dueDate, reminderAt *string, priority string) (*domain.Task, error)

	// GetTaskByID retrieves a task by ID (with ownership check)
	GetTaskByID(userID, taskID string) (*domain.Task, error)

	// GetUserTasks retrieves all tasks for a user with optional status filter
	GetUserTasks(userID string, status *string, limit, offset int) ([]*domain.Task, int64, error)

	UpdateTask(userID, taskID string, updates TaskUpdateRequest) (*domain.Task, error)

	DeleteTask(userID, taskID string) error

	// ExtractTasksFromThread uses AI to extract tasks from the newest inbound message of a thread
	ExtractTasksFromThread(ctx context.Context, userID, threadID string) ([]*domain.Task, error)

	SetTaskExtractor(extractor TaskExtractor)

	SetMessageFetcher(fetcher MessageFetcher)
}

// TaskUpdateRequest represents the fields that can be updated
type TaskUpdateRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	DueDate     *string `json:"due_date,omitempty"`
	Priority    *string `json:"priority,omitempty"`
	Status      *string `json:"status,omitempty"`
	ReminderAt  *string `json:"reminder_at,omitempty"`
}

// MessageFetcher loads the message tasks are extracted from
type MessageFetcher interface {
	GetLatestMessage(userID, threadID string) (subject, body, sender string, err error)
}

// TaskExtractor finds actionable tasks in a message
type TaskExtractor interface {
	ExtractTasks(ctx context.Context, subject, body, sender string) ([]domain.TaskExtraction, error)
}
