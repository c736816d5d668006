// Copyright 2025 James Stopford
// SPDX-License-Identifier: Apache-2.0

package dillyclient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFormatElapsed(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{0, "Just now"},
		{59 * time.Second, "Just now"},
		{-time.Minute, "Just now"},
		{time.Minute, "1 minute"},
		{12 * time.Minute, "12 minutes"},
		{time.Hour, "1 hour"},
		{2*time.Hour + 5*time.Minute, "2 hours, 5 min"},
		{24 * time.Hour, "1 day"},
		{3*24*time.Hour + 4*time.Hour, "3 days, 4 hours"},
		{2*24*time.Hour + time.Hour + 30*time.Minute, "2 days, 1 hour"},
		{365 * 24 * time.Hour, "1 year"},
		{(2*365 + 10) * 24 * time.Hour, "2 years, 10 days"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			require.Equal(t, tt.want, FormatElapsed(now.Add(-tt.ago), now))
		})
	}
	require.Equal(t, "Never", FormatElapsed(time.Time{}, now))
}

func TestFormatLastSync(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.Equal(t, "Never", FormatLastSync(time.Time{}, now))
	require.Equal(t, "Just now", FormatLastSync(now.Add(-4*time.Second), now))
	require.Equal(t, "42s ago", FormatLastSync(now.Add(-42*time.Second), now))
	require.Equal(t, "5m ago", FormatLastSync(now.Add(-5*time.Minute-10*time.Second), now))
	require.Equal(t, "3h ago", FormatLastSync(now.Add(-3*time.Hour), now))

	old := now.Add(-72 * time.Hour)
	require.Equal(t, old.Local().Format("2006-01-02"), FormatLastSync(old, now))
}

func TestIconByID(t *testing.T) {
	require.Equal(t, "💧", IconByID("water").Emoji)
	require.Equal(t, "Fitness", IconByID("yoga").Category)
	require.Equal(t, TrackerIcons[0], IconByID("unknown"))

	seen := make(map[string]bool)
	for _, icon := range TrackerIcons {
		require.False(t, seen[icon.ID], "duplicate icon %s", icon.ID)
		seen[icon.ID] = true
	}
}
