package repository

import (
	"errors"
	"fmt"
	"time"

	"nexus-backend/internal/task/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	defaultListLimit = 50
	reminderBatch    = 200
)

type gormTaskRepository struct {
	db *gorm.DB
}

func NewGormTaskRepository(db *gorm.DB) TaskRepository {
	return &gormTaskRepository{db: db}
}

func (r *gormTaskRepository) Create(task *domain.Task) error {
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	if err := r.db.Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (r *gormTaskRepository) FindByID(id string) (*domain.Task, error) {
	var task domain.Task
	err := r.db.Where("id = ?", id).First(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find task %s: %w", id, err)
	}
	return &task, nil
}

func (r *gormTaskRepository) FindByUserID(userID string, status *domain.TaskStatus, limit, offset int) ([]*domain.Task, int64, error) {
	query := r.db.Model(&domain.Task{}).Where("user_id = ?", userID)
	if status != nil {
		query = query.Where("status = ?", *status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count tasks: %w", err)
	}

	if limit <= 0 {
		limit = defaultListLimit
	}
	var tasks []*domain.Task
	err := query.Order("due_date ASC NULLS LAST, created_at DESC").
		Limit(limit).Offset(offset).Find(&tasks).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, total, nil
}

func (r *gormTaskRepository) Update(task *domain.Task) error {
	if err := r.db.Save(task).Error; err != nil {
		return fmt.Errorf("update task %s: %w", task.ID, err)
	}
	return nil
}

func (r *gormTaskRepository) Delete(id string) error {
	return r.db.Delete(&domain.Task{}, "id = ?", id).Error
}

func (r *gormTaskRepository) FindPendingReminders(now time.Time) ([]*domain.Task, error) {
	var tasks []*domain.Task
	err := r.db.Where("reminder_at <= ? AND reminder_sent = ? AND status <> ?", now, false, domain.TaskStatusCompleted).
		Order("reminder_at ASC").
		Limit(reminderBatch).
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("find due reminders: %w", err)
	}
	return tasks, nil
}

// MarkReminderSent flips the flag only once; a second caller gets ErrReminderClaimed
func (r *gormTaskRepository) MarkReminderSent(id string) error {
	res := r.db.Model(&domain.Task{}).
		Where("id = ? AND reminder_sent = ?", id, false).
		Updates(map[string]interface{}{"reminder_sent": true, "updated_at": time.Now()})
	if res.Error != nil {
		return fmt.Errorf("mark reminder sent: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrReminderClaimed
	}
	return nil
}
