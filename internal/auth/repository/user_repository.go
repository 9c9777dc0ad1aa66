package repository

import (
	"errors"
	"fmt"
	"strings"
	"time"

	authdomain "nexus-backend/internal/auth/domain"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// normalizeEmail makes the unique index case-insensitive in practice
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *userRepository) Create(user *authdomain.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.Email = normalizeEmail(user.Email)
	if err := r.db.Create(user).Error; err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *userRepository) FindByEmail(email string) (*authdomain.User, error) {
	return r.first("email = ?", normalizeEmail(email))
}

func (r *userRepository) FindByID(id string) (*authdomain.User, error) {
	return r.first("id = ?", id)
}

func (r *userRepository) first(query string, arg string) (*authdomain.User, error) {
	var user authdomain.User
	err := r.db.Where(query, arg).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

// Update persists the whole row; background token refreshes call it too
func (r *userRepository) Update(user *authdomain.User) error {
	if err := r.db.Save(user).Error; err != nil {
		return fmt.Errorf("update user %s: %w", user.ID, err)
	}
	return nil
}

// SaveRefreshToken stores token and drops the user's expired ones
func (r *userRepository) SaveRefreshToken(token *authdomain.RefreshToken) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND expires_at < ?", token.UserID, time.Now()).
			Delete(&authdomain.RefreshToken{}).Error; err != nil {
			return fmt.Errorf("purge expired refresh tokens: %w", err)
		}
		if err := tx.Create(token).Error; err != nil {
			return fmt.Errorf("save refresh token: %w", err)
		}
		return nil
	})
}

func (r *userRepository) FindRefreshToken(token string) (*authdomain.RefreshToken, error) {
	var refreshToken authdomain.RefreshToken
	err := r.db.Where("token = ?", token).First(&refreshToken).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find refresh token: %w", err)
	}
	return &refreshToken, nil
}

func (r *userRepository) DeleteRefreshToken(token string) error {
	return r.db.Where("token = ?", token).Delete(&authdomain.RefreshToken{}).Error
}

func (r *userRepository) DeleteRefreshTokensByUser(userID string) error {
	return r.db.Where("user_id = ?", userID).Delete(&authdomain.RefreshToken{}).Error
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
