package server

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/jonathan/career-navigator/internal/config"
	"github.com/jonathan/career-navigator/internal/db"
	"github.com/jonathan/career-navigator/internal/workflow"
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9_]{3,40}$`)

// RegisterRequest is the body of POST /auth/register
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required"`
	Name     string `json:"name,omitempty"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UserService provides business logic for user authentication operations
type UserService struct {
	store          Store
	passwordConfig *config.PasswordConfig
}

// NewUserService creates a new UserService with the given dependencies
func NewUserService(store Store, passwordConfig *config.PasswordConfig) *UserService {
	return &UserService{store: store, passwordConfig: passwordConfig}
}

// Register creates a new user with password authentication
func (s *UserService) Register(ctx context.Context, req *RegisterRequest) (*db.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	username := strings.ToLower(strings.TrimSpace(req.Username))
	if !usernamePattern.MatchString(username) {
		return nil, &ErrValidation{Field: "username", Message: "must be 3-40 characters of a-z, 0-9 or _"}
	}

	existing, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email existence: %w", err)
	}
	if existing != nil {
		return nil, &ErrEmailAlreadyExists{Email: email}
	}
	taken, err := s.store.UsernameExists(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if taken {
		return nil, &ErrUsernameTaken{Username: username}
	}

	passwordHash, err := s.passwordConfig.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.store.CreateUser(ctx, &db.User{
		Email:        email,
		Username:     username,
		Name:         strings.TrimSpace(req.Name),
		UserGroup:    db.UserGroupInexperiencedNoGoal,
		PasswordHash: passwordHash,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// Login authenticates a user by email and password
func (s *UserService) Login(ctx context.Context, req *LoginRequest) (*db.User, error) {
	user, err := s.store.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	// Unknown users, passwordless accounts created by ingestion and wrong
	// passwords all look the same to the caller.
	if user == nil || user.PasswordHash == "" {
		return nil, &ErrInvalidCredentials{}
	}
	if !s.passwordConfig.VerifyPassword(req.Password, user.PasswordHash) {
		return nil, &ErrInvalidCredentials{}
	}
	return user, nil
}

// UpdatePassword replaces the password of a user after verifying the current one.
// Accounts without a password accept any current password.
func (s *UserService) UpdatePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return &workflow.NotFoundError{Entity: "user", ID: userID.String()}
	}
	if user.PasswordHash != "" && !s.passwordConfig.VerifyPassword(currentPassword, user.PasswordHash) {
		return &ErrInvalidCredentials{}
	}

	user.PasswordHash, err = s.passwordConfig.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if _, err := s.store.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}
