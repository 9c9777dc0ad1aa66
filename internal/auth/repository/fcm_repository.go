package repository

import (
	"fmt"
	"time"

	authdomain "nexus-backend/internal/auth/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FCMTokenRepository stores the push targets of each user's devices
type FCMTokenRepository interface {
	SaveToken(userID, token, deviceInfo string) error
	GetTokensByUserID(userID string) ([]authdomain.FCMToken, error)
	DeleteToken(token string) error
	DeleteTokensByUserID(userID string) error
}

type fcmTokenRepository struct {
	db *gorm.DB
}

func NewFCMTokenRepository(db *gorm.DB) FCMTokenRepository {
	return &fcmTokenRepository{db: db}
}

// SaveToken upserts on the token (a device moving to another account is
// reassigned) and keeps only the user's most recently seen devices
func (r *fcmTokenRepository) SaveToken(userID, token, deviceInfo string) error {
	now := time.Now()
	return r.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "token"}},
			DoUpdates: clause.AssignmentColumns([]string{"user_id", "device_info", "updated_at"}),
		}).Create(&authdomain.FCMToken{
			ID:         uuid.New().String(),
			UserID:     userID,
			Token:      token,
			DeviceInfo: deviceInfo,
			CreatedAt:  now,
			UpdatedAt:  now,
		}).Error
		if err != nil {
			return fmt.Errorf("upsert fcm token: %w", err)
		}

		stale := tx.Model(&authdomain.FCMToken{}).Select("id").
			Where("user_id = ?", userID).
			Order("updated_at DESC").
			Offset(authdomain.MaxDevicesPerUser)
		if err := tx.Where("id IN (?)", stale).Delete(&authdomain.FCMToken{}).Error; err != nil {
			return fmt.Errorf("prune fcm tokens: %w", err)
		}
		return nil
	})
}

func (r *fcmTokenRepository) GetTokensByUserID(userID string) ([]authdomain.FCMToken, error) {
	var tokens []authdomain.FCMToken
	if err := r.db.Where("user_id = ?", userID).Order("updated_at DESC").Find(&tokens).Error; err != nil {
		return nil, fmt.Errorf("list fcm tokens: %w", err)
	}
	return tokens, nil
}

func (r *fcmTokenRepository) DeleteToken(token string) error {
	return r.db.Where("token = ?", token).Delete(&authdomain.FCMToken{}).Error
}

func (r *fcmTokenRepository) DeleteTokensByUserID(userID string) error {
	return r.db.Where("user_id = ?", userID).Delete(&authdomain.FCMToken{}).Error
}
