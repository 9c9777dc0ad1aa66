package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	authdomain "nexus-backend/internal/auth/domain"
	authdto "nexus-backend/internal/auth/dto"
	"nexus-backend/internal/auth/repository"
	"nexus-backend/pkg/config"
	"nexus-backend/pkg/utils/crypto"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidToken       = errors.New("invalid token")
	ErrUserNotFound       = errors.New("user not found")
	ErrTokenNotOwned      = errors.New("device token not registered for this user")
)

// tokenClaims are the JWT claims issued for both access and refresh tokens
type tokenClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// authUsecase implements AuthUsecase interface
type authUsecase struct {
	userRepo     repository.UserRepository
	fcmTokenRepo repository.FCMTokenRepository
	config       *config.Config
	listener     ConnectionListener
}

// NewAuthUsecase creates a new instance of authUsecase
func NewAuthUsecase(userRepo repository.UserRepository, fcmTokenRepo repository.FCMTokenRepository, cfg *config.Config) AuthUsecase {
	return &authUsecase{
		userRepo:     userRepo,
		fcmTokenRepo: fcmTokenRepo,
		config:       cfg,
	}
}

func (u *authUsecase) SetConnectionListener(listener ConnectionListener) {
	u.listener = listener
}

func (u *authUsecase) Login(req *authdto.LoginRequest) (*authdto.TokenResponse, error) {
	user, err := u.userRepo.FindByEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if user == nil || user.Password == "" {
		return nil, ErrInvalidCredentials
	}
	if !repository.CheckPasswordHash(req.Password, user.Password) {
		return nil, ErrInvalidCredentials
	}
	return u.generateTokens(user)
}

func (u *authUsecase) Register(req *authdto.RegisterRequest) (*authdto.TokenResponse, error) {
	existing, err := u.userRepo.FindByEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hashedPassword, err := repository.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	timezone := req.Timezone
	if timezone == "" {
		timezone = u.config.DefaultTimezone
	}

	user := &authdomain.User{
		Email:       req.Email,
		Password:    hashedPassword,
		Name:        req.Name,
		Provider:    authdomain.ProviderEmail,
		WorkspaceID: req.WorkspaceID,
		Timezone:    timezone,
	}
	if err := u.userRepo.Create(user); err != nil {
		return nil, err
	}

	return u.generateTokens(user)
}

func (u *authUsecase) RefreshToken(refreshToken string) (*authdto.TokenResponse, error) {
	claims, err := u.parse(refreshToken)
	if err != nil {
		return nil, errors.New("invalid refresh token")
	}

	storedToken, err := u.userRepo.FindRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}
	if storedToken == nil || storedToken.ExpiresAt.Before(time.Now()) {
		return nil, errors.New("refresh token expired")
	}

	user, err := u.userRepo.FindByID(claims.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	// Rotate: the old refresh token is single use
	if err := u.userRepo.DeleteRefreshToken(refreshToken); err != nil {
		return nil, err
	}
	return u.generateTokens(user)
}

func (u *authUsecase) Logout(refreshToken string) error {
	return u.userRepo.DeleteRefreshToken(refreshToken)
}

func (u *authUsecase) LogoutAll(userID string) error {
	if err := u.userRepo.DeleteRefreshTokensByUser(userID); err != nil {
		return err
	}
	return u.fcmTokenRepo.DeleteTokensByUserID(userID)
}

func (u *authUsecase) ValidateToken(tokenString string) (*authdomain.User, error) {
	claims, err := u.parse(tokenString)
	if err != nil {
		return nil, err
	}

	user, err := u.userRepo.FindByID(claims.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (u *authUsecase) SaveMailboxCredentials(ctx context.Context, userID string, req *authdto.MailboxCredentialsRequest) error {
	user, err := u.userRepo.FindByID(userID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}

	key := u.config.EncryptionKey
	switch req.Provider {
	case authdomain.ProviderGoogle:
		if user.AccessToken, err = crypto.Encrypt(req.AccessToken, key); err != nil {
			return err
		}
		if user.RefreshToken, err = crypto.Encrypt(req.RefreshToken, key); err != nil {
			return err
		}
	case authdomain.ProviderIMAP:
		if req.ImapServer == "" || req.ImapPassword == "" {
			return errors.New("imap server and password are required")
		}
		if user.ImapPassword, err = crypto.Encrypt(req.ImapPassword, key); err != nil {
			return err
		}
		user.ImapServer = req.ImapServer
		user.ImapPort = req.ImapPort
		if user.ImapPort == 0 {
			user.ImapPort = 993
		}
	default:
		return fmt.Errorf("unsupported provider: %s", req.Provider)
	}
	user.Provider = req.Provider
	if err := u.userRepo.Update(user); err != nil {
		return err
	}

	if u.listener != nil {
		// Credentials are stored; a failed import announcement must not undo the link
		if err := u.listener.AccountConnected(ctx, userID); err != nil {
			log.Printf("[Auth] Failed to announce connected account for user %s: %v", userID, err)
		}
	}
	return nil
}

func (u *authUsecase) RegisterFCMToken(userID string, req *authdto.FCMTokenRequest) error {
	return u.fcmTokenRepo.SaveToken(userID, req.Token, req.DeviceInfo)
}

func (u *authUsecase) UnregisterFCMToken(userID, token string) error {
	tokens, err := u.fcmTokenRepo.GetTokensByUserID(userID)
	if err != nil {
		return err
	}
	for _, t := range tokens {
		if t.Token == token {
			return u.fcmTokenRepo.DeleteToken(token)
		}
	}
	return ErrTokenNotOwned
}

func (u *authUsecase) generateTokens(user *authdomain.User) (*authdto.TokenResponse, error) {
	now := time.Now()

	accessToken, err := u.sign(tokenClaims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(u.config.JWTAccessExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	})
	if err != nil {
		return nil, err
	}

	refreshToken, err := u.sign(tokenClaims{
		UserID: user.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(u.config.JWTRefreshExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	})
	if err != nil {
		return nil, err
	}

	if err := u.userRepo.SaveRefreshToken(&authdomain.RefreshToken{
		Token:     refreshToken,
		UserID:    user.ID,
		ExpiresAt: now.Add(u.config.JWTRefreshExpiry),
	}); err != nil {
		return nil, err
	}

	return &authdto.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user,
	}, nil
}

func (u *authUsecase) sign(claims tokenClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(u.config.JWTSecret))
}

func (u *authUsecase) parse(tokenString string) (*tokenClaims, error) {
	claims := &tokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(u.config.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
