// Package auth registers users, issues bearer sessions and manages profiles.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zulandar/agentdesk/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	// MinPasswordLength is the shortest accepted password.
	MinPasswordLength = 8
	// SessionTTL is how long a sign-in stays valid.
	SessionTTL = 7 * 24 * time.Hour
)

var (
	ErrEmailTaken         = errors.New("auth: email already registered")
	ErrInvalidCredentials = errors.New("auth: invalid email or password")
	ErrInvalidSession     = errors.New("auth: invalid or expired session")
)

// SignUpInput is a registration request.
type SignUpInput struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Confirm     string `json:"confirm_password"`
	DisplayName string `json:"display_name"`
}

// Validate checks the input without touching the database.
func (in SignUpInput) Validate() error {
	email := strings.TrimSpace(in.Email)
	if email == "" {
		return fmt.Errorf("auth: %w: email is required", models.ErrValidation)
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return fmt.Errorf("auth: %w: %q is not a valid email address", models.ErrValidation, email)
	}
	if len(in.Password) < MinPasswordLength {
		return fmt.Errorf("auth: %w: password must be at least %d characters", models.ErrValidation, MinPasswordLength)
	}
	if in.Password != in.Confirm {
		return fmt.Errorf("auth: %w: passwords do not match", models.ErrValidation)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignUp validates the input, then creates the user with a bcrypt hash.
func SignUp(ctx context.Context, db *gorm.DB, in SignUpInput) (*models.User, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("auth: hash password: %w", err)
	}

	email := normalizeEmail(in.Email)
	name := strings.TrimSpace(in.DisplayName)
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}
	user := models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		DisplayName:  name,
		RiskLevel:    models.RiskModerate,
	}
	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("auth: create user: %w", err)
	}
	return &user, nil
}

// SignIn checks credentials and issues a new session.
func SignIn(ctx context.Context, db *gorm.DB, email, password string) (*models.User, *models.Session, error) {
	var user models.User
	err := db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, nil, fmt.Errorf("auth: sign in: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, nil, ErrInvalidCredentials
	}

	now := time.Now()
	session := models.Session{
		Token:     uuid.NewString(),
		UserID:    user.ID,
		ExpiresAt: now.Add(SessionTTL),
		CreatedAt: now,
	}
	if err := db.WithContext(ctx).Create(&session).Error; err != nil {
		return nil, nil, fmt.Errorf("auth: create session: %w", err)
	}
	return &user, &session, nil
}

// Authenticate resolves a bearer token to its user. Expired sessions are
// removed on sight.
func Authenticate(ctx context.Context, db *gorm.DB, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrInvalidSession
	}
	var session models.Session
	err := db.WithContext(ctx).Where("token = ?", token).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidSession
	}
	if err != nil {
		return nil, fmt.Errorf("auth: authenticate: %w", err)
	}
	if time.Now().After(session.ExpiresAt) {
		db.WithContext(ctx).Delete(&models.Session{}, "token = ?", token)
		return nil, ErrInvalidSession
	}

	var user models.User
	err = db.WithContext(ctx).Where("id = ?", session.UserID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidSession
	}
	if err != nil {
		return nil, fmt.Errorf("auth: authenticate: %w", err)
	}
	return &user, nil
}

// SignOut revokes a session. Unknown tokens are ignored.
func SignOut(ctx context.Context, db *gorm.DB, token string) error {
	if err := db.WithContext(ctx).Delete(&models.Session{}, "token = ?", token).Error; err != nil {
		return fmt.Errorf("auth: sign out: %w", err)
	}
	return nil
}
