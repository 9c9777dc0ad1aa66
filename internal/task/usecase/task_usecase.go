package usecase

import (
	"context"
	"errors"
	"log"
	"time"

	"nexus-backend/internal/task/domain"
	"nexus-backend/internal/task/repository"

	"github.com/google/uuid"
)

var (
	ErrTaskNotFound  = errors.New("task not found")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrInvalidStatus = errors.New("invalid task status")
	ErrTitleRequired = errors.New("title is required")
	// ErrSourceNotFound is returned by a MessageFetcher when the thread has no inbound message
	ErrSourceNotFound = errors.New("source thread not found")
)

// taskUsecase implements TaskUsecase interface
type taskUsecase struct {
	taskRepo  repository.TaskRepository
	extractor TaskExtractor
	fetcher   MessageFetcher
}

// NewTaskUsecase creates a new instance of taskUsecase
func NewTaskUsecase(taskRepo repository.TaskRepository) TaskUsecase {
	return &taskUsecase{
		taskRepo: taskRepo,
	}
}

func (u *taskUsecase) SetTaskExtractor(extractor TaskExtractor) {
	u.extractor = extractor
}

func (u *taskUsecase) SetMessageFetcher(fetcher MessageFetcher) {
	u.fetcher = fetcher
}

func (u *taskUsecase) CreateTask(userID, title, description string, dueDate, reminderAt *string, priority string) (*domain.Task, error) {
	if title == "" {
		return nil, ErrTitleRequired
	}
	task := &domain.Task{
		ID:          uuid.New().String(),
		UserID:      userID,
		Title:       title,
		Description: description,
		Priority:    domain.ParsePriority(priority),
		Status:      domain.TaskStatusPending,
	}

	if t, ok := parseTime(dueDate); ok {
		task.DueDate = &t
	}
	if t, ok := parseTime(reminderAt); ok {
		task.ReminderAt = &t
	}

	if err := u.taskRepo.Create(task); err != nil {
		return nil, err
	}
	return task, nil
}

func (u *taskUsecase) GetTaskByID(userID, taskID string) (*domain.Task, error) {
	task, err := u.taskRepo.FindByID(taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, ErrTaskNotFound
	}
	if task.UserID != userID {
		return nil, ErrUnauthorized
	}
	return task, nil
}

func (u *taskUsecase) GetUserTasks(userID string, status *string, limit, offset int) ([]*domain.Task, int64, error) {
	var statusFilter *domain.TaskStatus
	if status != nil && *status != "" {
		s, ok := domain.ParseStatus(*status)
		if !ok {
			return nil, 0, ErrInvalidStatus
		}
		statusFilter = &s
	}
	return u.taskRepo.FindByUserID(userID, statusFilter, limit, offset)
}

func (u *taskUsecase) UpdateTask(userID, taskID string, updates TaskUpdateRequest) (*domain.Task, error) {
	task, err := u.GetTaskByID(userID, taskID)
	if err != nil {
		return nil, err
	}

	if updates.Title != nil {
		task.Title = *updates.Title
	}
	if updates.Description != nil {
		task.Description = *updates.Description
	}
	if updates.Priority != nil {
		task.Priority = domain.ParsePriority(*updates.Priority)
	}
	if updates.Status != nil {
		status, ok := domain.ParseStatus(*updates.Status)
		if !ok {
			return nil, ErrInvalidStatus
		}
		task.Status = status
	}
	if updates.DueDate != nil {
		if *updates.DueDate == "" {
			task.DueDate = nil
		} else if t, ok := parseTime(updates.DueDate); ok {
			task.DueDate = &t
		}
	}
	if updates.ReminderAt != nil {
		// A changed reminder time re-arms the reminder
		task.ReminderSent = false
		if *updates.ReminderAt == "" {
			task.ReminderAt = nil
		} else if t, ok := parseTime(updates.ReminderAt); ok {
			task.ReminderAt = &t
		}
	}

	if err := u.taskRepo.Update(task); err != nil {
		return nil, err
	}
	return task, nil
}

func (u *taskUsecase) DeleteTask(userID, taskID string) error {
	task, err := u.GetTaskByID(userID, taskID)
	if err != nil {
		return err
	}
	return u.taskRepo.Delete(task.ID)
}

func (u *taskUsecase) ExtractTasksFromThread(ctx context.Context, userID, threadID string) ([]*domain.Task, error) {
	if u.extractor == nil {
		return nil, errors.New("AI service not configured")
	}
	if u.fetcher == nil {
		return nil, errors.New("message fetcher not configured")
	}

	subject, body, sender, err := u.fetcher.GetLatestMessage(userID, threadID)
	if err != nil {
		return nil, err
	}

	log.Printf("[TaskUsecase] Extracting tasks from thread %s for user %s", threadID, userID)
	extractions, err := u.extractor.ExtractTasks(ctx, subject, body, sender)
	if err != nil {
		return nil, err
	}
	log.Printf("[TaskUsecase] AI extracted %d tasks from thread", len(extractions))

	var tasks []*domain.Task
	for _, extraction := range extractions {
		if extraction.Title == "" {
			continue
		}
		task := &domain.Task{
			ID:             uuid.New().String(),
			UserID:         userID,
			SourceThreadID: threadID,
			Title:          extraction.Title,
			Description:    extraction.Description,
			DueDate:        extraction.DueDate,
			Priority:       domain.ParsePriority(string(extraction.Priority)),
			Status:         domain.TaskStatusPending,
		}

		// Default reminder one hour before the due date
		if task.DueDate != nil {
			reminderTime := task.DueDate.Add(-1 * time.Hour)
			if reminderTime.After(time.Now()) {
				task.ReminderAt = &reminderTime
			}
		}

		if err := u.taskRepo.Create(task); err != nil {
			log.Printf("[TaskUsecase] Failed to create task: %v", err)
			continue
		}
		tasks = append(tasks, task)
	}

	return tasks, nil
}

// parseTime accepts RFC3339 or a bare YYYY-MM-DD date
func parseTime(s *string) (time.Time, bool) {
	if s == nil || *s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, *s); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02", *s); err == nil {
		return t, true
	}
	return time.Time{}, false
}
