package dto

import authdomain "nexus-backend/internal/auth/domain"

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type RegisterRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=6"`
	Name        string `json:"name" binding:"required"`
	WorkspaceID string `json:"workspace_id"`
	Timezone    string `json:"timezone"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// MailboxCredentialsRequest stores credentials obtained elsewhere (OAuth exchange
// or an IMAP app password) so background workers can read the mailbox.
type MailboxCredentialsRequest struct {
	Provider     string `json:"provider" binding:"required,oneof=google imap"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ImapServer   string `json:"imap_server"`
	ImapPort     int    `json:"imap_port"`
	ImapPassword string `json:"imap_password"`
}

type TokenResponse struct {
	AccessToken  string           `json:"access_token"`
	RefreshToken string           `json:"refresh_token"`
	User         *authdomain.User `json:"user"`
}

type FCMTokenRequest struct {
	Token      string `json:"token" binding:"required"`
	DeviceInfo string `json:"device_info"`
}
