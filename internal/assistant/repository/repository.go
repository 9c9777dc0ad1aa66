package repository

import (
	assistantdomain "nexus-backend/internal/assistant/domain"
)

// SessionRepository persists sessions and their message rows
type SessionRepository interface {
	CreateSession(session *assistantdomain.Session) error
	// FindSession returns nil, nil when the session does not exist or belongs to another user
	FindSession(userID, sessionID string) (*assistantdomain.Session, error)
	ListSessions(userID string, limit int) ([]*assistantdomain.Session, error)
	UpdateTitle(sessionID, title string) error
	TouchSession(sessionID string) error

	// AppendMessages stores rows in order within one transaction
	AppendMessages(rows ...*assistantdomain.StoredMessage) error
	// RecentMessages returns the newest limit rows in chronological order
	RecentMessages(sessionID string, limit int) ([]*assistantdomain.StoredMessage, error)
}
