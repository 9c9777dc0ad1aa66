package domain

import "time"

const (
	ProviderEmail  = "email"
	ProviderGoogle = "google"
	ProviderIMAP   = "imap"
)

type User struct {
	ID          string `json:"id" gorm:"primaryKey"`
	Email       string `json:"email" gorm:"uniqueIndex;not null"`
	Password    string `json:"-"` // Never return password in JSON
	Name        string `json:"name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	Provider    string `json:"provider"` // "email", "google" or "imap"
	WorkspaceID string `json:"workspace_id,omitempty" gorm:"index"`
	Timezone    string `json:"timezone,omitempty"`

	// Mailbox/calendar credentials, encrypted at rest with pkg/utils/crypto
	AccessToken  string `json:"-" gorm:"type:text"`
	RefreshToken string `json:"-" gorm:"type:text"`
	ImapServer   string `json:"-"`
	ImapPort     int    `json:"-"`
	ImapPassword string `json:"-" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type RefreshToken struct {
	Token     string    `json:"token" gorm:"primaryKey"`
	UserID    string    `json:"user_id" gorm:"index"`
	ExpiresAt time.Time `json:"expires_at"`
}
