package repository

import (
	"errors"
	"fmt"
	"time"

	assistantdomain "nexus-backend/internal/assistant/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type gormSessionRepository struct {
	db *gorm.DB
}

func NewGormSessionRepository(db *gorm.DB) SessionRepository {
	return &gormSessionRepository{db: db}
}

func (r *gormSessionRepository) CreateSession(session *assistantdomain.Session) error {
	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	if session.Title == "" {
		session.Title = assistantdomain.DefaultTitle
	}
	if err := r.db.Create(session).Error; err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (r *gormSessionRepository) FindSession(userID, sessionID string) (*assistantdomain.Session, error) {
	var session assistantdomain.Session
	err := r.db.Where("id = ? AND user_id = ?", sessionID, userID).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find session: %w", err)
	}
	return &session, nil
}

func (r *gormSessionRepository) ListSessions(userID string, limit int) ([]*assistantdomain.Session, error) {
	if limit <= 0 {
		limit = 50
	}
	var sessions []*assistantdomain.Session
	err := r.db.Where("user_id = ?", userID).Order("updated_at DESC").Limit(limit).Find(&sessions).Error
	return sessions, err
}

func (r *gormSessionRepository) UpdateTitle(sessionID, title string) error {
	return r.db.Model(&assistantdomain.Session{}).Where("id = ?", sessionID).Update("title", title).Error
}

func (r *gormSessionRepository) TouchSession(sessionID string) error {
	return r.db.Model(&assistantdomain.Session{}).Where("id = ?", sessionID).Update("updated_at", time.Now()).Error
}

func (r *gormSessionRepository) AppendMessages(rows ...*assistantdomain.StoredMessage) error {
	if len(rows) == 0 {
		return nil
	}
	now := time.Now()
	base := now.UnixNano()
	for i, row := range rows {
		if row.ID == "" {
			row.ID = uuid.New().String()
		}
		row.Seq = base + int64(i)
		row.CreatedAt = now
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		for _, row := range rows {
			if err := tx.Create(row).Error; err != nil {
				return fmt.Errorf("append %s message: %w", row.Role, err)
			}
		}
		return nil
	})
}

func (r *gormSessionRepository) RecentMessages(sessionID string, limit int) ([]*assistantdomain.StoredMessage, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []*assistantdomain.StoredMessage
	err := r.db.Where("session_id = ?", sessionID).Order("seq DESC").Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load session messages: %w", err)
	}
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows, nil
}
