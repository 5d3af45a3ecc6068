// internal/domain/user/service.go
package user

import (
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/your-org/storefront-api/internal/config"
	"github.com/your-org/storefront-api/internal/pkg/apperror"
	"github.com/your-org/storefront-api/internal/pkg/auth"
	"github.com/your-org/storefront-api/internal/pkg/email"
)

// Mailer is the subset of the email service the user service depends on.
type Mailer interface {
	SendWelcomeEmail(to, name string) error
	SendPasswordResetEmail(to, name, token string) error
}

// Service handles user business logic
type Service struct {
	db              *gorm.DB
	config          *config.Config
	passwordManager *auth.PasswordManager
	jwtManager      *auth.JWTManager
	mailer          Mailer
}

// NewService creates a new user service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:              db,
		config:          cfg,
		passwordManager: auth.NewPasswordManager(cfg),
		jwtManager:      auth.NewJWTManager(cfg),
		mailer:          email.NewEmailService(cfg),
	}
}

// SetMailer overrides the mailer, used by tests.
func (s *Service) SetMailer(m Mailer) {
	s.mailer = m
}

// RegisterRequest represents user registration data
type RegisterRequest struct {
	Name            string `json:"name" binding:"required"`
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
	Role            string `json:"role"`
}

// LoginRequest represents user login data
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse represents authentication response
type AuthResponse struct {
	User         *User  `json:"user"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Register creates a new user account
func (s *Service) Register(req *RegisterRequest) (*AuthResponse, error) {
	if req.Password != req.ConfirmPassword {
		return nil, apperror.InvalidArgument("passwords do not match")
	}

	role := req.Role
	if role == "" {
		role = RoleClient
	}
	if !ValidRole(role) {
		return nil, apperror.InvalidArgument("invalid role: %s", role)
	}
	// Admin accounts are seeded or promoted, never self-registered.
	if role == RoleAdmin {
		return nil, apperror.Forbidden("cannot self-register an admin account")
	}

	var existing User
	result := s.db.Where("email = ?", strings.ToLower(req.Email)).First(&existing)
	if result.Error == nil {
		return nil, apperror.Conflict("user with this email already exists")
	}

	hashedPassword, err := s.passwordManager.HashPassword(req.Password)
	if err != nil {
		return nil, apperror.InvalidArgument("%s", err.Error())
	}

	user := User{
		Name:     req.Name,
		Email:    req.Email,
		Password: hashedPassword,
		Role:     role,
		IsActive: true,
	}

	if err := s.db.Create(&user).Error; err != nil {
		return nil, apperror.Internal(err, "failed to create user")
	}

	// Welcome email is best effort.
	if err := s.mailer.SendWelcomeEmail(user.Email, user.Name); err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).Warn("Failed to send welcome email")
	}

	return s.issueTokens(&user)
}

// Login authenticates a user
func (s *Service) Login(req *LoginRequest) (*AuthResponse, error) {
	var user User
	result := s.db.Where("email = ? AND is_active = ?", strings.ToLower(req.Email), true).First(&user)
	if result.Error != nil {
		return nil, apperror.Unauthorized("invalid email or password")
	}

	if err := s.passwordManager.VerifyPassword(req.Password, user.Password); err != nil {
		return nil, apperror.Unauthorized("invalid email or password")
	}

	now := time.Now().UTC()
	user.LastLoginAt = &now
	s.db.Model(&user).Update("last_login_at", now)

	return s.issueTokens(&user)
}

// RefreshToken generates new tokens using a refresh token
func (s *Service) RefreshToken(refreshToken string) (*AuthResponse, error) {
	claims, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, apperror.Unauthorized("invalid refresh token")
	}

	var user User
	result := s.db.Where("id = ? AND is_active = ?", claims.UserID, true).First(&user)
	if result.Error != nil {
		return nil, apperror.Unauthorized("user not found or inactive")
	}

	return s.issueTokens(&user)
}

func (s *Service) issueTokens(user *User) (*AuthResponse, error) {
	accessToken, err := s.jwtManager.GenerateAccessToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, apperror.Internal(err, "failed to generate access token")
	}

	refreshToken, err := s.jwtManager.GenerateRefreshToken(user.ID, user.Email)
	if err != nil {
		return nil, apperror.Internal(err, "failed to generate refresh token")
	}

	user.Password = ""

	return &AuthResponse{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.config.JWT.AccessTokenExpiry.Seconds()),
	}, nil
}

// GetProfile gets user profile by ID
func (s *Service) GetProfile(userID uint) (*User, error) {
	var user User
	result := s.db.Where("id = ? AND is_active = ?", userID, true).First(&user)
	if result.Error != nil {
		return nil, apperror.NotFound("user not found")
	}

	user.Password = ""
	return &user, nil
}

// UpdateProfileRequest represents profile update data
type UpdateProfileRequest struct {
	Name  string `json:"name"`
	Email string `json:"email" binding:"omitempty,email"`
}

// UpdateProfile updates user profile
func (s *Service) UpdateProfile(userID uint, req *UpdateProfileRequest) (*User, error) {
	var user User
	result := s.db.Where("id = ? AND is_active = ?", userID, true).First(&user)
	if result.Error != nil {
		return nil, apperror.NotFound("user not found")
	}

	updates := map[string]interface{}{}
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.Email != "" {
		updates["email"] = strings.ToLower(req.Email)
	}
	if len(updates) == 0 {
		user.Password = ""
		return &user, nil
	}

	if err := s.db.Model(&user).Updates(updates).Error; err != nil {
		return nil, apperror.Internal(err, "failed to update profile")
	}

	user.Password = ""
	return &user, nil
}

// ChangePassword changes user password after verifying the current password
func (s *Service) ChangePassword(userID uint, currentPassword, newPassword string) error {
	var user User
	result := s.db.Where("id = ? AND is_active = ?", userID, true).First(&user)
	if result.Error != nil {
		return apperror.NotFound("user not found")
	}

	if err := s.passwordManager.VerifyPassword(currentPassword, user.Password); err != nil {
		return apperror.Unauthorized("current password is incorrect")
	}

	hashedPassword, err := s.passwordManager.HashPassword(newPassword)
	if err != nil {
		return apperror.InvalidArgument("%s", err.Error())
	}

	if err := s.db.Model(&user).Update("password", hashedPassword).Error; err != nil {
		return apperror.Internal(err, "failed to update password")
	}

	return nil
}

// ForgotPassword generates a reset token for the account, stores its hash
// with an expiry and emails the plain token. If the email cannot be sent
// the stored token is rolled back so the account is left unchanged.
// Unknown emails are reported so the handler can respond uniformly.
func (s *Service) ForgotPassword(emailAddr string) error {
	var user User
	result := s.db.Where("email = ? AND is_active = ?", strings.ToLower(emailAddr), true).First(&user)
	if result.Error != nil {
		return apperror.NotFound("no account for that email")
	}

	plain, hashed, err := auth.GenerateResetToken()
	if err != nil {
		return apperror.Internal(err, "failed to generate reset token")
	}

	expire := time.Now().UTC().Add(s.config.Security.PasswordResetExpiry)
	updates := map[string]interface{}{
		"reset_password_token":  hashed,
		"reset_password_expire": expire,
	}
	if err := s.db.Model(&user).Updates(updates).Error; err != nil {
		return apperror.Internal(err, "failed to store reset token")
	}

	if err := s.mailer.SendPasswordResetEmail(user.Email, user.Name, plain); err != nil {
		// Roll the token back so a token that was never delivered
		// cannot linger on the account.
		s.db.Model(&user).Updates(map[string]interface{}{
			"reset_password_token":  "",
			"reset_password_expire": nil,
		})
		return apperror.Internal(err, "failed to send reset email")
	}

	return nil
}

// ResetPassword sets a new password for the account matching the reset token.
func (s *Service) ResetPassword(plainToken, newPassword string) error {
	hashed := auth.HashResetToken(plainToken)

	var user User
	result := s.db.Where("reset_password_token = ?", hashed).First(&user)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return apperror.InvalidArgument("invalid or expired reset token")
		}
		return apperror.Internal(result.Error, "failed to look up reset token")
	}

	if !user.HasValidResetToken(hashed, time.Now().UTC()) {
		return apperror.InvalidArgument("invalid or expired reset token")
	}

	hashedPassword, err := s.passwordManager.HashPassword(newPassword)
	if err != nil {
		return apperror.InvalidArgument("%s", err.Error())
	}

	updates := map[string]interface{}{
		"password":              hashedPassword,
		"reset_password_token":  "",
		"reset_password_expire": nil,
	}
	if err := s.db.Model(&user).Updates(updates).Error; err != nil {
		return apperror.Internal(err, "failed to reset password")
	}

	logrus.WithField("user_id", user.ID).Info("Password reset completed")
	return nil
}

// GetUserByEmail retrieves user by email
func (s *Service) GetUserByEmail(emailAddr string) (*User, error) {
	var user User
	result := s.db.Where("email = ?", strings.ToLower(emailAddr)).First(&user)
	if result.Error != nil {
		return nil, apperror.NotFound("user not found")
	}

	user.Password = ""
	return &user, nil
}

// DeactivateUser deactivates a user account
func (s *Service) DeactivateUser(userID uint) error {
	err := s.db.Model(&User{}).
		Where("id = ?", userID).
		Update("is_active", false).Error
	if err != nil {
		return apperror.Internal(err, "failed to deactivate user")
	}

	logrus.WithField("user_id", userID).Info("User deactivated")
	return nil
}
