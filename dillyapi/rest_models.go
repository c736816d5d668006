// Copyright 2025 James Stopford
// SPDX-License-Identifier: Apache-2.0

package dillyapi

import "time"

// REST/JSON models for HTTP API requests and responses.
// The client SDK decodes the same types, so field tags are the wire contract.

// User is the public view of an account
type User struct {
	ID        int64      `json:"id"`
	Email     string     `json:"email"`
	Theme     string     `json:"theme"`
	CreatedAt *time.Time `json:"created_at,omitempty"` // Only populated by the profile endpoint
}

// Todo is a single item of a user's capped todo list
type Todo struct {
	ID        int64  `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
	SortOrder int    `json:"sort_order"`
}

// TemplateItem is a saved snapshot row; it never shares identity with a live Todo
type TemplateItem struct {
	ID        int64  `json:"id"`
	Text      string `json:"text"`
	SortOrder int    `json:"sort_order"`
}

// Tracker is a named, iconed "time since" counter
type Tracker struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Icon      string    `json:"icon"`
	LastReset time.Time `json:"last_reset"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ErrorResponse is the body of every non-2xx JSON response
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse is returned by endpoints with nothing but an acknowledgement
type MessageResponse struct {
	Message string `json:"message"`
}

// HealthResponse is returned by GET /api/health
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// CredentialsRequest is the body of register and login
type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by register and login
type AuthResponse struct {
	Message string `json:"message"`
	User    User   `json:"user"`
}

// UserResponse wraps a user for me and profile
type UserResponse struct {
	User User `json:"user"`
}

// ForgotPasswordRequest asks for a reset token
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPasswordResponse never reveals whether the account exists.
// Token is only filled in when the server exposes reset tokens (development).
type ForgotPasswordResponse struct {
	Message string `json:"message"`
	Token   string `json:"token,omitempty"`
}

// ResetPasswordRequest consumes a reset token
type ResetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// ThemeRequest is the body of PUT /api/user/theme
type ThemeRequest struct {
	Theme string `json:"theme"`
}

// ThemeResponse echoes the stored theme
type ThemeResponse struct {
	Message string `json:"message"`
	Theme   string `json:"theme"`
}

// TodoListResponse is returned by GET /api/todos
type TodoListResponse struct {
	Todos []Todo `json:"todos"`
}

// TodoResponse wraps a single todo
type TodoResponse struct {
	Todo Todo `json:"todo"`
}

// CreateTodoRequest is the body of POST /api/todos
type CreateTodoRequest struct {
	Text string `json:"text"`
}

// UpdateTodoRequest carries a partial update; nil fields are left untouched
type UpdateTodoRequest struct {
	Text      *string `json:"text,omitempty"`
	Completed *bool   `json:"completed,omitempty"`
}

// ReorderTodosRequest lists every todo id in its new order
type ReorderTodosRequest struct {
	TodoIDs []int64 `json:"todoIds"`
}

// TemplateResponse is returned by GET /api/template
type TemplateResponse struct {
	Items []TemplateItem `json:"items"`
}

// SaveTemplateResponse is returned by POST /api/template/save
type SaveTemplateResponse struct {
	Message string         `json:"message"`
	Items   []TemplateItem `json:"items"`
	Count   int            `json:"count"`
}

// ResetTemplateResponse is returned by POST /api/template/reset
type ResetTemplateResponse struct {
	Message string `json:"message"`
	Todos   []Todo `json:"todos"`
}

// TrackerListResponse is returned by GET /api/trackers
type TrackerListResponse struct {
	Trackers []Tracker `json:"trackers"`
}

// TrackerResponse wraps a single tracker
type TrackerResponse struct {
	Tracker Tracker `json:"tracker"`
}

// CreateTrackerRequest is the body of POST /api/trackers
type CreateTrackerRequest struct {
	Name string `json:"name"`
	Icon string `json:"icon"`
}

// UpdateTrackerRequest carries a partial update; nil fields are left untouched
type UpdateTrackerRequest struct {
	Name *string `json:"name,omitempty"`
	Icon *string `json:"icon,omitempty"`
}
