// Copyright 2025 James Stopford
// SPDX-License-Identifier: Apache-2.0

package dillyclient

import (
	"fmt"
	"time"
)

// TrackerIcon is one entry of the icon catalogue. Trackers store the ID.
type TrackerIcon struct {
	ID       string
	Emoji    string
	Category string
	Label    string
}

// TrackerIcons is the catalogue offered when creating a tracker
var TrackerIcons = []TrackerIcon{
	{"running", "🏃", "Fitness", "Running"},
	{"dumbbell", "🏋️", "Fitness", "Workout"},
	{"yoga", "🧘", "Fitness", "Yoga"},
	{"cycling", "🚴", "Fitness", "Cycling"},
	{"water", "💧", "Health", "Water"},
	{"medicine", "💊", "Health", "Medicine"},
	{"sleep", "😴", "Health", "Sleep"},
	{"meditation", "🧠", "Health", "Meditation"},
	{"book", "📚", "Productivity", "Reading"},
	{"code", "💻", "Productivity", "Coding"},
	{"write", "✍️", "Productivity", "Writing"},
	{"study", "📖", "Productivity", "Study"},
	{"shower", "🚿", "Self-care", "Shower"},
	{"haircut", "💇", "Self-care", "Haircut"},
	{"dentist", "🦷", "Self-care", "Dentist"},
	{"call", "📞", "Social", "Call"},
	{"meetup", "🤝", "Social", "Meetup"},
	{"date", "❤️", "Social", "Date"},
	{"laundry", "👕", "Misc", "Laundry"},
	{"clean", "🧹", "Misc", "Cleaning"},
	{"plant", "🌱", "Misc", "Plants"},
	{"pet", "🐾", "Misc", "Pet care"},
}

// IconByID looks up an icon, falling back to the first catalogue entry
func IconByID(id string) TrackerIcon {
	for _, icon := range TrackerIcons {
		if icon.ID == id {
			return icon
		}
	}
	return TrackerIcons[0]
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// FormatElapsed renders the time since lastReset, e.g. "3 days, 4 hours" or "2 hours, 5 min"
func FormatElapsed(lastReset, now time.Time) string {
	if lastReset.IsZero() {
		return "Never"
	}
	diff := now.Sub(lastReset)
	minutes := int(diff / time.Minute)
	if diff < 0 || minutes < 1 {
		return "Just now"
	}
	if minutes < 60 {
		return plural(minutes, "minute")
	}

	hours := minutes / 60
	days := hours / 24
	years := days / 365

	switch {
	case days < 1:
		if rem := minutes % 60; rem != 0 {
			return fmt.Sprintf("%s, %d min", plural(hours, "hour"), rem)
		}
		return plural(hours, "hour")
	case years >= 1:
		if rem := days % 365; rem != 0 {
			return plural(years, "year") + ", " + plural(rem, "day")
		}
		return plural(years, "year")
	default:
		if rem := hours % 24; rem != 0 {
			return plural(days, "day") + ", " + plural(rem, "hour")
		}
		return plural(days, "day")
	}
}

// FormatLastSync renders how long ago the last successful sync happened
func FormatLastSync(last, now time.Time) string {
	if last.IsZero() {
		return "Never"
	}
	seconds := int(now.Sub(last) / time.Second)
	switch {
	case seconds < 5:
		return "Just now"
	case seconds < 60:
		return fmt.Sprintf("%ds ago", seconds)
	case seconds < 3600:
		return fmt.Sprintf("%dm ago", seconds/60)
	case seconds < 86400:
		return fmt.Sprintf("%dh ago", seconds/3600)
	default:
		return last.Local().Format("2006-01-02")
	}
}
