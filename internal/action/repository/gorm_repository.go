package repository

import (
	"errors"
	"time"

	actiondomain "nexus-backend/internal/action/domain"
	calendardomain "nexus-backend/internal/calendar/domain"
	inboxdomain "nexus-backend/internal/inbox/domain"
	taskdomain "nexus-backend/internal/task/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type gormActionRepository struct {
	db *gorm.DB
}

// NewGormActionRepository creates a new GORM-based ActionRepository
func NewGormActionRepository(db *gorm.DB) ActionRepository {
	return &gormActionRepository{db: db}
}

func (r *gormActionRepository) Create(action *actiondomain.PendingAction) error {
	if action.ID == "" {
		action.ID = uuid.New().String()
	}
	action.Status = actiondomain.StatusPending
	action.CreatedAt = time.Now()
	return r.db.Create(action).Error
}

func (r *gormActionRepository) FindByID(id string) (*actiondomain.PendingAction, error) {
	var action actiondomain.PendingAction
	err := r.db.Where("id = ?", id).First(&action).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &action, nil
}

func (r *gormActionRepository) ListByUser(userID string, status *actiondomain.ActionStatus, limit int) ([]*actiondomain.PendingAction, error) {
	var actions []*actiondomain.PendingAction
	query := r.db.Where("user_id = ?", userID)
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	if limit <= 0 {
		limit = 50
	}
	err := query.Order("created_at DESC").Limit(limit).Find(&actions).Error
	return actions, err
}

func (r *gormActionRepository) Transition(userID, actionID string, to actiondomain.ActionStatus, apply func(EffectWriter) error, entry *actiondomain.ActionLog) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		updates := map[string]interface{}{"status": to}
		if to == actiondomain.StatusApproved {
			updates["executed_at"] = now
		}

		// The row lock taken here makes a concurrent transition wait, then match nothing
		res := tx.Model(&actiondomain.PendingAction{}).
			Where("id = ? AND user_id = ? AND status = ?", actionID, userID, actiondomain.StatusPending).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return actiondomain.ErrAlreadyProcessed
		}

		if apply != nil {
			if err := apply(&txEffectWriter{tx: tx}); err != nil {
				return err
			}
		}

		if entry != nil {
			if entry.ID == "" {
				entry.ID = uuid.New().String()
			}
			entry.CreatedAt = now
			if err := tx.Create(entry).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *gormActionRepository) ListLogs(userID string, limit int) ([]*actiondomain.ActionLog, error) {
	var logs []*actiondomain.ActionLog
	if limit <= 0 {
		limit = 50
	}
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Limit(limit).Find(&logs).Error
	return logs, err
}

// txEffectWriter writes effects through the transition's transaction
type txEffectWriter struct {
	tx *gorm.DB
}

func (w *txEffectWriter) CreateCalendarEvent(event *calendardomain.Event) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.ExternalID == "" {
		event.ExternalID = event.ID
	}
	event.CreatedAt = time.Now()
	event.UpdatedAt = event.CreatedAt
	return w.tx.Create(event).Error
}

func (w *txEffectWriter) CreateTask(task *taskdomain.Task) error {
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	task.CreatedAt = time.Now()
	task.UpdatedAt = task.CreatedAt
	return w.tx.Create(task).Error
}

func (w *txEffectWriter) CreateDraft(draft *inboxdomain.Draft) error {
	if draft.ID == "" {
		draft.ID = uuid.New().String()
	}
	draft.CreatedAt = time.Now()
	if err := w.tx.Create(draft).Error; err != nil {
		return err
	}
	if draft.ThreadID == "" {
		return nil
	}
	return w.tx.Model(&inboxdomain.Thread{}).
		Where("id = ? AND user_id = ?", draft.ThreadID, draft.UserID).
		Update("has_draft", true).Error
}
