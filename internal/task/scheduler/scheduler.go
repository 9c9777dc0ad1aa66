package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"nexus-backend/internal/task/domain"
	"nexus-backend/internal/task/repository"
	"nexus-backend/pkg/fcm"
)

// Notifier pushes a notification to all devices of a user
type Notifier interface {
	NotifyUser(ctx context.Context, userID string, notification fcm.NotificationData) (int, error)
}

// TaskReminderScheduler handles sending FCM reminders for tasks
type TaskReminderScheduler struct {
	taskRepo repository.TaskRepository
	notifier Notifier
	interval time.Duration
	stopChan chan struct{}
	now      func() time.Time
}

// NewTaskReminderScheduler creates a new scheduler
func NewTaskReminderScheduler(taskRepo repository.TaskRepository, notifier Notifier) *TaskReminderScheduler {
	return &TaskReminderScheduler{
		taskRepo: taskRepo,
		notifier: notifier,
		interval: 1 * time.Minute,
		stopChan: make(chan struct{}),
		now:      time.Now,
	}
}

// Start begins the scheduler loop
func (s *TaskReminderScheduler) Start() {
	if s.notifier == nil {
		log.Println("[TaskScheduler] Push notifier not available, scheduler disabled")
		return
	}

	log.Printf("[TaskScheduler] Starting task reminder scheduler (interval: %s)", s.interval)

	go func() {
		s.CheckAndSendReminders(context.Background())

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.CheckAndSendReminders(context.Background())
			case <-s.stopChan:
				log.Println("[TaskScheduler] Scheduler stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the scheduler
func (s *TaskReminderScheduler) Stop() {
	close(s.stopChan)
}

// CheckAndSendReminders finds tasks with due reminders and pushes them
func (s *TaskReminderScheduler) CheckAndSendReminders(ctx context.Context) {
	tasks, err := s.taskRepo.FindPendingReminders(s.now())
	if err != nil {
		log.Printf("[TaskScheduler] Error finding pending reminders: %v", err)
		return
	}
	if len(tasks) == 0 {
		return
	}

	log.Printf("[TaskScheduler] Found %d tasks with pending reminders", len(tasks))

	for _, task := range tasks {
		// Claimed before sending so a broken device or a second instance never causes repeats
		if err := s.taskRepo.MarkReminderSent(task.ID); err != nil {
			if !errors.Is(err, repository.ErrReminderClaimed) {
				log.Printf("[TaskScheduler] Error claiming reminder for task %s: %v", task.ID, err)
			}
			continue
		}

		reached, err := s.notifier.NotifyUser(ctx, task.UserID, buildReminder(task))
		if err != nil {
			log.Printf("[TaskScheduler] Error sending reminder for task %s: %v", task.ID, err)
			continue
		}
		log.Printf("[TaskScheduler] Sent reminder for task '%s' to %d devices", task.Title, reached)
	}
}

func buildReminder(task *domain.Task) fcm.NotificationData {
	title := "Reminder: " + task.Title
	body := task.Description
	if task.FocusStart != nil {
		body = fmt.Sprintf("Focus block starts at %s", task.FocusStart.Format("15:04"))
	} else if body == "" {
		body = "You have a task to finish"
	}
	if task.DueDate != nil {
		body = fmt.Sprintf("%s\nDue: %s", body, task.DueDate.Format("Jan 2 15:04"))
	}

	switch task.Priority {
	case domain.PriorityHigh:
		title = "[high] " + title
	case domain.PriorityLow:
		title = "[low] " + title
	}

	return fcm.NotificationData{
		Title: title,
		Body:  body,
		Data: map[string]string{
			"type":     "task_reminder",
			"task_id":  task.ID,
			"priority": string(task.Priority),
		},
		ClickAction: "/tasks/" + task.ID,
	}
}
