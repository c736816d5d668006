// Copyright 2025 James Stopford
// SPDX-License-Identifier: Apache-2.0

package dillyclient

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/jamesstopford/big-dilly/dillyapi"
)

const themeKey = "theme"

// ThemeService is the server surface the theme store needs
type ThemeService interface {
	UpdateTheme(ctx context.Context, theme string) error
}

// ThemeStore holds the active theme. It is saved on the device and, when signed in, on the server.
type ThemeStore struct {
	api    ThemeService
	auth   *AuthStore
	prefs  KeyValueStore
	logger *slog.Logger
	theme  *Observable[string]
}

// NewThemeStore creates a store starting from the device's saved theme, or the default
func NewThemeStore(ctx context.Context, api ThemeService, auth *AuthStore, prefs KeyValueStore, logger *slog.Logger) *ThemeStore {
	if logger == nil {
		logger = slog.Default()
	}
	initial := dillyapi.DefaultTheme
	if prefs != nil {
		saved, ok, err := prefs.Get(ctx, themeKey)
		switch {
		case err != nil:
			logger.Warn("Failed to read saved theme", "error", err)
		case ok && dillyapi.IsValidTheme(saved):
			initial = saved
		}
	}
	return &ThemeStore{api: api, auth: auth, prefs: prefs, logger: logger, theme: NewObservable(initial)}
}

func (s *ThemeStore) Theme() string { return s.theme.Get() }

func (s *ThemeStore) Subscribe(fn func(string)) func() { return s.theme.Subscribe(fn) }

func (s *ThemeStore) save(ctx context.Context, theme string) {
	if s.prefs == nil {
		return
	}
	if err := s.prefs.Set(ctx, themeKey, theme); err != nil {
		s.logger.Warn("Failed to save theme", "error", err)
	}
}

// SetTheme switches the theme locally and pushes it to the server when signed in.
// A server failure is logged; the local choice stands.
func (s *ThemeStore) SetTheme(ctx context.Context, theme string) Result {
	if !dillyapi.IsValidTheme(theme) {
		return rejected(fmt.Sprintf("Invalid theme: %s", theme))
	}
	s.theme.Set(theme)
	s.save(ctx, theme)

	if s.auth == nil || !s.auth.IsAuthenticated() {
		return succeeded()
	}
	if err := s.api.UpdateTheme(ctx, theme); err != nil {
		s.logger.Warn("Failed to save theme preference", "theme", theme, "error", err)
		return failed(err, "Failed to save theme preference")
	}
	s.auth.UpdateUser(func(u *dillyapi.User) { u.Theme = theme })
	return succeeded()
}

// InitFromUser adopts the signed-in user's theme; invalid values are ignored
func (s *ThemeStore) InitFromUser(ctx context.Context, user *dillyapi.User) {
	if user == nil || !dillyapi.IsValidTheme(user.Theme) {
		return
	}
	s.theme.Set(user.Theme)
	s.save(ctx, user.Theme)
}

// Cycle moves to the next theme in ValidThemes order
func (s *ThemeStore) Cycle(ctx context.Context) Result {
	i := slices.Index(dillyapi.ValidThemes, s.Theme())
	next := dillyapi.ValidThemes[(i+1)%len(dillyapi.ValidThemes)]
	return s.SetTheme(ctx, next)
}
