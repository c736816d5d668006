// Copyright 2025 James Stopford
// SPDX-License-Identifier: Apache-2.0

package dillyapi

import (
	"net/mail"
	"strings"
	"unicode/utf8"
)

func lengthBetween(s string, lo, hi int) bool {
	n := utf8.RuneCountInString(s)
	return n >= lo && n <= hi
}

// normalizeTodoText trims text and reports whether it fits the todo limits
func normalizeTodoText(text string) (string, bool) {
	text = strings.TrimSpace(text)
	return text, lengthBetween(text, 1, MaxTodoTextLength)
}

func normalizeTrackerName(name string) (string, bool) {
	name = strings.TrimSpace(name)
	return name, lengthBetween(name, 1, MaxTrackerNameLength)
}

func normalizeTrackerIcon(icon string) (string, bool) {
	icon = strings.TrimSpace(icon)
	return icon, lengthBetween(icon, 1, MaxTrackerIconLength)
}

// normalizeEmail lower-cases the address and rejects anything that is not a bare addr-spec
func normalizeEmail(email string) (string, bool) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", false
	}
	domain := email[strings.LastIndex(email, "@")+1:]
	return email, strings.Contains(domain, ".")
}

func validPassword(password string) bool {
	return utf8.RuneCountInString(password) >= MinPasswordLength
}
