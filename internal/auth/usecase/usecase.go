package usecase

import (
	"context"

	authdomain "nexus-backend/internal/auth/domain"
	authdto "nexus-backend/internal/auth/dto"
)

// ConnectionListener is told when a user links a mailbox so history can be imported
type ConnectionListener interface {
	AccountConnected(ctx context.Context, userID string) error
}

// AuthUsecase defines the interface for authentication business logic
type AuthUsecase interface {
	Login(req *authdto.LoginRequest) (*authdto.TokenResponse, error)
	Register(req *authdto.RegisterRequest) (*authdto.TokenResponse, error)
	RefreshToken(refreshToken string) (*authdto.TokenResponse, error)
	Logout(refreshToken string) error
	// LogoutAll revokes every refresh token and push device of the user
	LogoutAll(userID string) error
	ValidateToken(tokenString string) (*authdomain.User, error)
	SaveMailboxCredentials(ctx context.Context, userID string, req *authdto.MailboxCredentialsRequest) error
	RegisterFCMToken(userID string, req *authdto.FCMTokenRequest) error
	UnregisterFCMToken(userID, token string) error
	SetConnectionListener(listener ConnectionListener)
}
