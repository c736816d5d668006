// Copyright 2025 James Stopford
// SPDX-License-Identifier: Apache-2.0

package dillyapi

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UserRecord is a stored account including its password hash
type UserRecord struct {
	ID           int64
	Email        string
	PasswordHash string
	Theme        string
	CreatedAt    time.Time
}

// Public strips credentials from the record
func (u *UserRecord) Public() User {
	return User{ID: u.ID, Email: u.Email, Theme: u.Theme}
}

// SessionRecord is a stored login session
type SessionRecord struct {
	ID        uuid.UUID
	UserID    int64
	ExpiresAt time.Time
}

// Repository is the storage contract behind AppService.
// Collection methods are scoped to userID; rows of other users are reported as ErrNotFound.
type Repository interface {
	Ping(ctx context.Context) error

	CreateUser(ctx context.Context, email, passwordHash string) (*UserRecord, error) // ErrEmailTaken
	GetUserByEmail(ctx context.Context, email string) (*UserRecord, error)           // ErrNotFound
	GetUser(ctx context.Context, userID int64) (*UserRecord, error)                  // ErrNotFound
	UpdateUserTheme(ctx context.Context, userID int64, theme string) error
	UpdateUserPassword(ctx context.Context, userID int64, passwordHash string) error

	CreateSession(ctx context.Context, session SessionRecord) error
	// GetActiveSession returns the session and its user when the session has not expired at now
	GetActiveSession(ctx context.Context, sessionID uuid.UUID, now time.Time) (*SessionRecord, *UserRecord, error)
	DeleteSession(ctx context.Context, sessionID uuid.UUID) error
	DeleteUserSessions(ctx context.Context, userID int64) error

	// CreatePasswordReset invalidates earlier unused tokens of the user before storing the new one
	CreatePasswordReset(ctx context.Context, userID int64, token uuid.UUID, expiresAt time.Time) error
	// ConsumePasswordReset marks a valid token used and returns its user (ErrNotFound when invalid or expired)
	ConsumePasswordReset(ctx context.Context, token uuid.UUID, now time.Time) (int64, error)

	ListTodos(ctx context.Context, userID int64) ([]Todo, error)
	CreateTodo(ctx context.Context, userID int64, text string, limit int) (*Todo, error) // ErrLimitReached
	UpdateTodo(ctx context.Context, userID, todoID int64, patch UpdateTodoRequest) (*Todo, error)
	DeleteTodo(ctx context.Context, userID, todoID int64) error
	ReorderTodos(ctx context.Context, userID int64, todoIDs []int64) error // ErrInvalidID

	ListTemplate(ctx context.Context, userID int64) ([]TemplateItem, error)
	SaveTemplate(ctx context.Context, userID int64) ([]TemplateItem, error)
	ResetToTemplate(ctx context.Context, userID int64) ([]Todo, error) // ErrEmptyTemplate

	ListTrackers(ctx context.Context, userID int64) ([]Tracker, error)
	CreateTracker(ctx context.Context, userID int64, name, icon string, limit int) (*Tracker, error) // ErrLimitReached
	UpdateTracker(ctx context.Context, userID, trackerID int64, patch UpdateTrackerRequest) (*Tracker, error)
	DeleteTracker(ctx context.Context, userID, trackerID int64) error
	ResetTracker(ctx context.Context, userID, trackerID int64) (*Tracker, error)
}
