// Copyright 2025 James Stopford
// SPDX-License-Identifier: Apache-2.0

package dillyapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// ServiceConfig holds configuration for the application service
type ServiceConfig struct {
	MaxTodos         int           // Per-user todo cap
	MaxTrackers      int           // Per-user tracker cap
	PasswordResetTTL time.Duration // Lifetime of a reset token
	BcryptCost       int           // bcrypt work factor
	ExposeResetToken bool          // Return reset tokens in the response (development only)
}

// DefaultServiceConfig returns the production defaults
func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		MaxTodos:         MaxTodos,
		MaxTrackers:      MaxTrackers,
		PasswordResetTTL: PasswordResetDuration,
		BcryptCost:       bcrypt.DefaultCost,
	}
}

// AppService implements the business rules of the todo and tracker API on top of a Repository
type AppService struct {
	repo   Repository
	config *ServiceConfig
	logger *slog.Logger
	now    func() time.Time

	mu     sync.RWMutex
	closed bool
}

// NewAppService creates a new service instance
func NewAppService(repo Repository, config *ServiceConfig, logger *slog.Logger) (*AppService, error) {
	if repo == nil {
		return nil, fmt.Errorf("repository cannot be nil")
	}
	if config == nil {
		config = DefaultServiceConfig()
	}
	if config.MaxTodos <= 0 || config.MaxTrackers <= 0 {
		return nil, fmt.Errorf("collection caps must be positive")
	}
	if config.BcryptCost == 0 {
		config.BcryptCost = bcrypt.DefaultCost
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AppService{
		repo:   repo,
		config: config,
		logger: logger,
		now:    time.Now,
	}, nil
}

// Close marks the service closed; subsequent Health calls fail
func (s *AppService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// Health reports whether the service and its store are usable
func (s *AppService) Health(ctx context.Context) error {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return fmt.Errorf("service is closed")
	}
	return s.repo.Ping(ctx)
}

// ---- accounts ----

// Register creates an account. The caller starts the session.
func (s *AppService) Register(ctx context.Context, req CredentialsRequest) (*UserRecord, error) {
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return nil, badRequest("Email and password are required")
	}
	email, ok := normalizeEmail(req.Email)
	if !ok {
		return nil, badRequest("Invalid email format")
	}
	if !validPassword(req.Password) {
		return nil, badRequest(fmt.Sprintf("Password must be at least %d characters", MinPasswordLength))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.config.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user, err := s.repo.CreateUser(ctx, email, string(hash))
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, conflict("Email already registered")
		}
		return nil, err
	}
	s.logger.Info("Account created", "user_id", user.ID)
	return user, nil
}

// Login verifies credentials
func (s *AppService) Login(ctx context.Context, req CredentialsRequest) (*UserRecord, error) {
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return nil, badRequest("Email and password are required")
	}
	user, err := s.repo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, unauthorized("Invalid email or password")
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, unauthorized("Invalid email or password")
	}
	return user, nil
}

const forgotPasswordMessage = "If an account exists with that email, a reset link has been sent"

// ForgotPassword issues a reset token. The response is identical whether or not the account exists.
func (s *AppService) ForgotPassword(ctx context.Context, email string) (*ForgotPasswordResponse, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, badRequest("Email is required")
	}
	resp := &ForgotPasswordResponse{Message: forgotPasswordMessage}

	user, err := s.repo.GetUserByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return resp, nil
	}
	if err != nil {
		return nil, err
	}

	token := uuid.New()
	if err := s.repo.CreatePasswordReset(ctx, user.ID, token, s.now().Add(s.config.PasswordResetTTL)); err != nil {
		return nil, err
	}
	s.logger.Info("Password reset token issued", "user_id", user.ID)
	if s.config.ExposeResetToken {
		resp.Token = token.String()
	}
	return resp, nil
}

// ResetPassword consumes a reset token, stores the new password and revokes every session of the user
func (s *AppService) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	if req.Token == "" || req.Password == "" {
		return badRequest("Token and new password are required")
	}
	if !validPassword(req.Password) {
		return badRequest(fmt.Sprintf("Password must be at least %d characters", MinPasswordLength))
	}
	invalid := badRequest("Invalid or expired reset token")
	token, err := uuid.Parse(req.Token)
	if err != nil {
		return invalid
	}
	userID, err := s.repo.ConsumePasswordReset(ctx, token, s.now())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return invalid
		}
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.config.BcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.repo.UpdateUserPassword(ctx, userID, string(hash)); err != nil {
		return err
	}
	if err := s.repo.DeleteUserSessions(ctx, userID); err != nil {
		return fmt.Errorf("failed to revoke sessions: %w", err)
	}
	return nil
}

// UpdateTheme stores the user's theme preference
func (s *AppService) UpdateTheme(ctx context.Context, userID int64, theme string) error {
	if theme == "" {
		return badRequest("Theme is required")
	}
	if !IsValidTheme(theme) {
		return badRequest("Invalid theme. Must be one of: " + strings.Join(ValidThemes, ", "))
	}
	if err := s.repo.UpdateUserTheme(ctx, userID, theme); err != nil {
		if errors.Is(err, ErrNotFound) {
			return notFound("User not found")
		}
		return err
	}
	return nil
}

// Profile returns the user including the account creation time
func (s *AppService) Profile(ctx context.Context, userID int64) (*User, error) {
	rec, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, notFound("User not found")
		}
		return nil, err
	}
	user := rec.Public()
	created := rec.CreatedAt
	user.CreatedAt = &created
	return &user, nil
}

// ---- todos ----

func (s *AppService) ListTodos(ctx context.Context, userID int64) ([]Todo, error) {
	return s.repo.ListTodos(ctx, userID)
}

func (s *AppService) CreateTodo(ctx context.Context, userID int64, text string) (*Todo, error) {
	text, ok := normalizeTodoText(text)
	if !ok {
		return nil, badRequest(fmt.Sprintf("Todo text is required and must be between 1 and %d characters", MaxTodoTextLength))
	}
	todo, err := s.repo.CreateTodo(ctx, userID, text, s.config.MaxTodos)
	if err != nil {
		if errors.Is(err, ErrLimitReached) {
			return nil, badRequest(fmt.Sprintf("Maximum of %d todos allowed", s.config.MaxTodos))
		}
		return nil, err
	}
	return todo, nil
}

func (s *AppService) UpdateTodo(ctx context.Context, userID, todoID int64, patch UpdateTodoRequest) (*Todo, error) {
	if patch.Text != nil {
		text, ok := normalizeTodoText(*patch.Text)
		if !ok {
			return nil, badRequest(fmt.Sprintf("Todo text must be between 1 and %d characters", MaxTodoTextLength))
		}
		patch.Text = &text
	}
	if patch.Text == nil && patch.Completed == nil {
		return nil, badRequest("No valid fields to update")
	}
	todo, err := s.repo.UpdateTodo(ctx, userID, todoID, patch)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, notFound("Todo not found")
		}
		return nil, err
	}
	return todo, nil
}

func (s *AppService) DeleteTodo(ctx context.Context, userID, todoID int64) error {
	if err := s.repo.DeleteTodo(ctx, userID, todoID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return notFound("Todo not found")
		}
		return err
	}
	return nil
}

func (s *AppService) ReorderTodos(ctx context.Context, userID int64, todoIDs []int64) error {
	if todoIDs == nil {
		return badRequest("todoIds must be an array")
	}
	if err := s.repo.ReorderTodos(ctx, userID, todoIDs); err != nil {
		if errors.Is(err, ErrInvalidID) {
			return badRequest("Invalid todo ID in request")
		}
		return err
	}
	return nil
}

// ---- template ----

func (s *AppService) GetTemplate(ctx context.Context, userID int64) ([]TemplateItem, error) {
	return s.repo.ListTemplate(ctx, userID)
}

func (s *AppService) SaveTemplate(ctx context.Context, userID int64) ([]TemplateItem, error) {
	return s.repo.SaveTemplate(ctx, userID)
}

func (s *AppService) ResetToTemplate(ctx context.Context, userID int64) ([]Todo, error) {
	todos, err := s.repo.ResetToTemplate(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrEmptyTemplate) {
			return nil, badRequest("No template saved. Save a template first.")
		}
		return nil, err
	}
	return todos, nil
}

// ---- trackers ----

func (s *AppService) ListTrackers(ctx context.Context, userID int64) ([]Tracker, error) {
	return s.repo.ListTrackers(ctx, userID)
}

func (s *AppService) CreateTracker(ctx context.Context, userID int64, name, icon string) (*Tracker, error) {
	name, ok := normalizeTrackerName(name)
	if !ok {
		return nil, badRequest(fmt.Sprintf("Tracker name is required and must be between 1 and %d characters", MaxTrackerNameLength))
	}
	icon, ok = normalizeTrackerIcon(icon)
	if !ok {
		return nil, badRequest("Tracker icon is required")
	}
	tracker, err := s.repo.CreateTracker(ctx, userID, name, icon, s.config.MaxTrackers)
	if err != nil {
		if errors.Is(err, ErrLimitReached) {
			return nil, badRequest(fmt.Sprintf("Maximum of %d trackers allowed", s.config.MaxTrackers))
		}
		return nil, err
	}
	return tracker, nil
}

func (s *AppService) UpdateTracker(ctx context.Context, userID, trackerID int64, patch UpdateTrackerRequest) (*Tracker, error) {
	if patch.Name != nil {
		name, ok := normalizeTrackerName(*patch.Name)
		if !ok {
			return nil, badRequest(fmt.Sprintf("Tracker name must be between 1 and %d characters", MaxTrackerNameLength))
		}
		patch.Name = &name
	}
	if patch.Icon != nil {
		icon, ok := normalizeTrackerIcon(*patch.Icon)
		if !ok {
			return nil, badRequest("Invalid tracker icon")
		}
		patch.Icon = &icon
	}
	if patch.Name == nil && patch.Icon == nil {
		return nil, badRequest("No valid fields to update")
	}
	tracker, err := s.repo.UpdateTracker(ctx, userID, trackerID, patch)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, notFound("Tracker not found")
		}
		return nil, err
	}
	return tracker, nil
}

func (s *AppService) DeleteTracker(ctx context.Context, userID, trackerID int64) error {
	if err := s.repo.DeleteTracker(ctx, userID, trackerID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return notFound("Tracker not found")
		}
		return err
	}
	return nil
}

func (s *AppService) ResetTracker(ctx context.Context, userID, trackerID int64) (*Tracker, error) {
	tracker, err := s.repo.ResetTracker(ctx, userID, trackerID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, notFound("Tracker not found")
		}
		return nil, err
	}
	return tracker, nil
}
