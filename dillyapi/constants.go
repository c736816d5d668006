// Copyright 2025 James Stopford
// SPDX-License-Identifier: Apache-2.0

package dillyapi

import "time"

// Per-user collection caps. Both the server and the client stores enforce them.
const (
	MaxTodos    = 10
	MaxTrackers = 10
)

// Field length limits, measured after trimming.
const (
	MaxTodoTextLength    = 500
	MaxTrackerNameLength = 100
	MaxTrackerIconLength = 50
	MinPasswordLength    = 8
)

const (
	SessionDuration       = 30 * 24 * time.Hour
	PasswordResetDuration = time.Hour
	SessionCookieName     = "session"
)

// Theme identifiers accepted by PUT /api/user/theme.
const (
	ThemeLight     = "light"
	ThemeDark      = "dark"
	ThemeCyberNeon = "cyber-neon"
	DefaultTheme   = ThemeLight
)

// ValidThemes lists themes in cycling order.
var ValidThemes = []string{ThemeLight, ThemeDark, ThemeCyberNeon}

// IsValidTheme reports whether theme is one of ValidThemes.
func IsValidTheme(theme string) bool {
	for _, t := range ValidThemes {
		if t == theme {
			return true
		}
	}
	return false
}
