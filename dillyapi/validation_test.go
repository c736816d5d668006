// Copyright 2025 James Stopford
// SPDX-License-Identifier: Apache-2.0

package dillyapi

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"user@example.com", "user@example.com", true},
		{"  User@Example.COM ", "user@example.com", true},
		{"first.last+tag@sub.example.org", "first.last+tag@sub.example.org", true},
		{"user@localhost", "", false},
		{"Dilly <user@example.com>", "", false},
		{"no-at-sign", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := normalizeEmail(tt.in)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				require.Equal(t, tt.want, got)
			}
		})
	}
}

func TestLengthLimits(t *testing.T) {
	text, ok := normalizeTodoText("  hello  ")
	require.True(t, ok)
	require.Equal(t, "hello", text)

	_, ok = normalizeTodoText(strings.Repeat("x", MaxTodoTextLength+1))
	require.False(t, ok)
	_, ok = normalizeTodoText(strings.Repeat("é", MaxTodoTextLength))
	require.True(t, ok, "limits count runes, not bytes")

	_, ok = normalizeTrackerName(strings.Repeat("n", MaxTrackerNameLength+1))
	require.False(t, ok)
	_, ok = normalizeTrackerIcon("")
	require.False(t, ok)

	require.False(t, validPassword("1234567"))
	require.True(t, validPassword("12345678"))
}

func TestIsValidTheme(t *testing.T) {
	for _, theme := range ValidThemes {
		require.True(t, IsValidTheme(theme))
	}
	require.False(t, IsValidTheme("sepia"))
	require.False(t, IsValidTheme(""))
}
