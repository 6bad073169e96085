package services

import (
	"errors"
	"strings"
	"time"

	"github.com/badoux/checkmail"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"nextfinance/internal/database"
	apperrors "nextfinance/internal/errors"
	"nextfinance/internal/logger"
	"nextfinance/internal/models"
)

const (
	maxFailedLoginAttempts = 5
	lockoutDuration        = 15 * time.Minute
)

// userService handles user-related business logic.
type userService struct {
	db *gorm.DB
}

// NewUserService creates a new UserServicer.
func NewUserService(db *gorm.DB) UserServicer {
	return &userService{db: db}
}

// CreateUser registers a new user
func (s *userService) CreateUser(email, password, firstName, lastName string) (*models.User, error) {
	if email == "" || password == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "email and password are required")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if err := checkmail.ValidateFormat(email); err != nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid email address")
	}

	var count int64
	if err := s.db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return nil, apperrors.ErrDuplicateEmail
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	user := &models.User{
		Email:     email,
		Password:  string(hashedPassword),
		FirstName: firstName,
		LastName:  lastName,
		IsActive:  true,
	}

	if err := s.db.Create(user).Error; err != nil {
		// Lost a race with a concurrent registration.
		if database.IsUniqueViolation(err) {
			return nil, apperrors.ErrDuplicateEmail
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return user, nil
}

// GetUserByEmail retrieves a user by email
func (s *userService) GetUserByEmail(email string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("email = ? AND is_active = ?", strings.ToLower(email), true).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &user, nil
}

// GetUserByID retrieves a user by ID
func (s *userService) GetUserByID(id string) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &user, nil
}

// VerifyPassword checks if the provided password matches the stored hash
func (s *userService) VerifyPassword(user *models.User, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password))
	return err == nil
}

// AttemptLogin checks credentials, enforcing the lockout after repeated
// failures and the second factor when it is enabled. Unknown emails and wrong
// passwords are indistinguishable to the caller.
func (s *userService) AttemptLogin(email, password, totpCode string) (*models.User, error) {
	user, err := s.GetUserByEmail(email)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}

	now := time.Now()
	if user.LockedUntil != nil && user.LockedUntil.After(now) {
		return nil, apperrors.ErrAccountLocked
	}

	if !s.VerifyPassword(user, password) {
		s.recordFailedLogin(user, now)
		return nil, apperrors.ErrInvalidCredentials
	}

	if user.TwoFactorEnabled {
		if totpCode == "" {
			return nil, apperrors.ErrTwoFactorRequired
		}
		if !verifyTOTPCode(user.TOTPSecret, totpCode) {
			s.recordFailedLogin(user, now)
			return nil, apperrors.ErrInvalidTwoFactorCode
		}
	}

	if err := s.db.Model(user).Updates(map[string]interface{}{
		"failed_login_attempts": 0,
		"locked_until":          nil,
		"last_login_at":         now,
	}).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	user.FailedLoginAttempts = 0
	user.LockedUntil = nil
	user.LastLoginAt = &now

	return user, nil
}

func (s *userService) recordFailedLogin(user *models.User, now time.Time) {
	updates := map[string]interface{}{
		"failed_login_attempts": gorm.Expr("failed_login_attempts + 1"),
	}
	if user.FailedLoginAttempts+1 >= maxFailedLoginAttempts {
		updates["failed_login_attempts"] = 0
		updates["locked_until"] = now.Add(lockoutDuration)
	}
	if err := s.db.Model(user).Updates(updates).Error; err != nil {
		logger.Get().Errorw("failed to record failed login", "user_id", user.ID, "error", err)
	}
}

// StoreRefreshTokenHash saves the hash of the user's current refresh token.
func (s *userService) StoreRefreshTokenHash(userID, tokenHash string) error {
	result := s.db.Model(&models.User{}).Where("id = ?", userID).Update("refresh_token_hash", tokenHash)
	if result.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

// GetRefreshTokenHash returns the stored refresh token hash.
func (s *userService) GetRefreshTokenHash(userID string) (string, error) {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return "", err
	}
	return user.RefreshTokenHash, nil
}

// SetupTwoFactor generates and stores a new TOTP secret. The second factor
// stays disabled until EnableTwoFactor confirms a code from it.
func (s *userService) SetupTwoFactor(userID string) (*TwoFactorSetup, error) {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return nil, err
	}
	if user.TwoFactorEnabled {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "two-factor authentication is already enabled")
	}

	setup, err := generateTOTPSecret(user.Email)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := s.db.Model(user).Update("totp_secret", setup.Secret).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return setup, nil
}

// EnableTwoFactor turns on the second factor after verifying code.
func (s *userService) EnableTwoFactor(userID, code string) error {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return err
	}
	if user.TOTPSecret == "" {
		return apperrors.ErrTwoFactorNotSetUp
	}
	if !verifyTOTPCode(user.TOTPSecret, code) {
		return apperrors.ErrInvalidTwoFactorCode
	}
	if err := s.db.Model(user).Update("two_factor_enabled", true).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// DisableTwoFactor turns off the second factor and forgets the secret.
func (s *userService) DisableTwoFactor(userID, code string) error {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return err
	}
	if !user.TwoFactorEnabled {
		return apperrors.ErrTwoFactorNotSetUp
	}
	if !verifyTOTPCode(user.TOTPSecret, code) {
		return apperrors.ErrInvalidTwoFactorCode
	}
	if err := s.db.Model(user).Updates(map[string]interface{}{
		"two_factor_enabled": false,
		"totp_secret":        "",
	}).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
