package repository

import (
	"errors"
	"time"

	calendardomain "nexus-backend/internal/calendar/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type gormEventRepository struct {
	db *gorm.DB
}

// NewGormEventRepository creates a new GORM-based EventRepository
func NewGormEventRepository(db *gorm.DB) EventRepository {
	return &gormEventRepository{db: db}
}

func (r *gormEventRepository) ListByStart(userID string, from, to time.Time) ([]*calendardomain.Event, error) {
	var events []*calendardomain.Event
	err := r.db.Where("user_id = ? AND start_time >= ? AND start_time < ?", userID, from, to).
		Order("start_time ASC").Find(&events).Error
	return events, err
}

func (r *gormEventRepository) Create(event *calendardomain.Event) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.ExternalID == "" {
		// Unique index needs a value; local events use their own id
		event.ExternalID = event.ID
	}
	event.CreatedAt = time.Now()
	event.UpdatedAt = time.Now()
	return r.db.Create(event).Error
}

func (r *gormEventRepository) Upsert(event *calendardomain.Event) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	now := time.Now()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}
	event.UpdatedAt = now
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "external_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"title", "description", "start_time", "end_time", "location", "conference_link", "attendees", "updated_at",
		}),
	}).Create(event).Error
}

type gormRuleRepository struct {
	db *gorm.DB
}

// NewGormRuleRepository creates a new GORM-based RuleRepository
func NewGormRuleRepository(db *gorm.DB) RuleRepository {
	return &gormRuleRepository{db: db}
}

func (r *gormRuleRepository) FindRule(owner calendardomain.RuleOwner, ownerID string) (*calendardomain.SchedulingRule, error) {
	if ownerID == "" {
		return nil, nil
	}
	var rule calendardomain.SchedulingRule
	err := r.db.Where("owner_type = ? AND owner_id = ?", owner, ownerID).First(&rule).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rule, nil
}

func (r *gormRuleRepository) SaveRule(rule *calendardomain.SchedulingRule) error {
	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	rule.UpdatedAt = time.Now()
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "owner_type"}, {Name: "owner_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"buffer_minutes", "working_hours_start", "working_hours_end", "no_meeting_days",
			"default_meeting_duration_minutes", "timezone", "conference_link", "updated_at",
		}),
	}).Create(rule).Error
}
