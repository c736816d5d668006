// Copyright 2025 James Stopford
// SPDX-License-Identifier: Apache-2.0

package dillyclient

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jamesstopford/big-dilly/dillyapi"
)

// AuthService is the server surface the auth store needs; *Client implements it
type AuthService interface {
	Register(ctx context.Context, email, password string) (*dillyapi.User, error)
	Login(ctx context.Context, email, password string) (*dillyapi.User, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (*dillyapi.User, error)
	ForgotPassword(ctx context.Context, email string) (*dillyapi.ForgotPasswordResponse, error)
	ResetPassword(ctx context.Context, token, password string) error
}

// AuthState is a snapshot of the auth store. User is nil when logged out.
type AuthState struct {
	User    *dillyapi.User
	Loading bool
	Error   string
}

// AuthStore tracks the signed-in user
type AuthStore struct {
	api    AuthService
	state  *Observable[AuthState]
	logger *slog.Logger
}

// NewAuthStore creates a store in the loading state; call Init to resolve it
func NewAuthStore(api AuthService, logger *slog.Logger) *AuthStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthStore{
		api:    api,
		state:  NewObservable(AuthState{Loading: true}),
		logger: logger,
	}
}

func (s *AuthStore) State() AuthState { return s.state.Get() }

func (s *AuthStore) Subscribe(fn func(AuthState)) func() { return s.state.Subscribe(fn) }

func (s *AuthStore) User() *dillyapi.User { return s.state.Get().User }

func (s *AuthStore) IsAuthenticated() bool { return s.state.Get().User != nil }

// Init resolves the current session. Any failure means logged out.
func (s *AuthStore) Init(ctx context.Context) Result {
	user, err := s.api.Me(ctx)
	if err != nil {
		s.logger.Debug("No active session", "error", err)
		s.state.Set(AuthState{})
		return failed(err, "Not logged in")
	}
	s.state.Set(AuthState{User: user})
	return succeeded()
}

func (s *AuthStore) signIn(ctx context.Context, email, password string, call func(context.Context, string, string) (*dillyapi.User, error), fallback string) Result {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return rejected("Email and password are required")
	}
	s.state.Update(func(st AuthState) AuthState {
		st.Loading = true
		st.Error = ""
		return st
	})
	user, err := call(ctx, email, password)
	if err != nil {
		msg := errorMessage(err, fallback)
		s.state.Update(func(st AuthState) AuthState {
			st.Loading = false
			st.Error = msg
			return st
		})
		return rejected(msg)
	}
	s.state.Set(AuthState{User: user})
	return succeeded()
}

// Register creates an account and signs in
func (s *AuthStore) Register(ctx context.Context, email, password string) Result {
	return s.signIn(ctx, email, password, s.api.Register, "Registration failed")
}

// Login signs in with existing credentials
func (s *AuthStore) Login(ctx context.Context, email, password string) Result {
	return s.signIn(ctx, email, password, s.api.Login, "Login failed")
}

// Logout ends the session. Server errors are logged and the local state is cleared regardless.
func (s *AuthStore) Logout(ctx context.Context) Result {
	if err := s.api.Logout(ctx); err != nil {
		s.logger.Warn("Logout failed", "error", err)
	}
	s.state.Set(AuthState{})
	return succeeded()
}

// ForgotPassword requests a reset token. The returned token is only set when the
// server is configured to expose it.
func (s *AuthStore) ForgotPassword(ctx context.Context, email string) (string, Result) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", rejected("Email is required")
	}
	resp, err := s.api.ForgotPassword(ctx, email)
	if err != nil {
		return "", failed(err, "Failed to request password reset")
	}
	return resp.Token, succeeded()
}

// ResetPassword sets a new password using a reset token
func (s *AuthStore) ResetPassword(ctx context.Context, token, password string) Result {
	if token == "" || password == "" {
		return rejected("Token and password are required")
	}
	if len(password) < dillyapi.MinPasswordLength {
		return rejected(fmt.Sprintf("Password must be at least %d characters", dillyapi.MinPasswordLength))
	}
	if err := s.api.ResetPassword(ctx, token, password); err != nil {
		return failed(err, "Failed to reset password")
	}
	return succeeded()
}

// UpdateUser applies fn to the signed-in user; it does nothing when logged out
func (s *AuthStore) UpdateUser(fn func(*dillyapi.User)) {
	s.state.Update(func(st AuthState) AuthState {
		if st.User != nil {
			u := *st.User
			fn(&u)
			st.User = &u
		}
		return st
	})
}

func (s *AuthStore) ClearError() {
	s.state.Update(func(st AuthState) AuthState {
		st.Error = ""
		return st
	})
}
