package repository

import (
	"errors"
	"fmt"

	tonedomain "nexus-backend/internal/tone/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type gormProfileRepository struct {
	db *gorm.DB
}

func NewGormProfileRepository(db *gorm.DB) ProfileRepository {
	return &gormProfileRepository{db: db}
}

func (r *gormProfileRepository) FindByUser(userID string) (*tonedomain.ToneProfile, error) {
	var profile tonedomain.ToneProfile
	if err := r.db.Where("user_id = ?", userID).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find tone profile: %w", err)
	}
	return &profile, nil
}

func (r *gormProfileRepository) Save(profile *tonedomain.ToneProfile) error {
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"formality", "length", "warmth", "certainty", "quirks", "sample_count", "synced_at", "updated_at"}),
	}).Create(profile).Error
	if err != nil {
		return fmt.Errorf("save tone profile: %w", err)
	}
	return nil
}

type gormExemplarRepository struct {
	db *gorm.DB
}

func NewGormExemplarRepository(db *gorm.DB) ExemplarRepository {
	return &gormExemplarRepository{db: db}
}

func (r *gormExemplarRepository) Create(exemplar *tonedomain.Exemplar) error {
	if exemplar.ID == "" {
		exemplar.ID = uuid.New().String()
	}
	if err := r.db.Create(exemplar).Error; err != nil {
		return fmt.Errorf("create exemplar: %w", err)
	}
	return nil
}

func (r *gormExemplarRepository) FindByIDs(userID string, ids []string) ([]*tonedomain.Exemplar, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var exemplars []*tonedomain.Exemplar
	if err := r.db.Where("user_id = ? AND id IN ?", userID, ids).Find(&exemplars).Error; err != nil {
		return nil, fmt.Errorf("find exemplars: %w", err)
	}
	return exemplars, nil
}

func (r *gormExemplarRepository) ListByUser(userID string, limit int) ([]*tonedomain.Exemplar, error) {
	var exemplars []*tonedomain.Exemplar
	q := r.db.Where("user_id = ?", userID).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&exemplars).Error; err != nil {
		return nil, fmt.Errorf("list exemplars: %w", err)
	}
	return exemplars, nil
}
