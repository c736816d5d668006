// Copyright 2025 James Stopford
// SPDX-License-Identifier: Apache-2.0

package dillyclient

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/jamesstopford/big-dilly/dillyapi"
)

type todoFingerprint struct {
	ID        int64  `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
	SortOrder int    `json:"sort_order"`
}

type trackerFingerprint struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Icon      string `json:"icon"`
	LastReset string `json:"last_reset"`
}

// fingerprint hashes the canonical JSON of a projection. Struct fields encode in a fixed
// order, so the result does not depend on how the server ordered its JSON keys.
func fingerprint(projection any) string {
	raw, err := json.Marshal(projection)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// FingerprintTodos hashes the identity-relevant fields of todos in list order
func FingerprintTodos(todos []dillyapi.Todo) string {
	projection := make([]todoFingerprint, len(todos))
	for i, t := range todos {
		projection[i] = todoFingerprint{ID: t.ID, Text: t.Text, Completed: t.Completed, SortOrder: t.SortOrder}
	}
	return fingerprint(projection)
}

// FingerprintTrackers hashes the identity-relevant fields of trackers in list order
func FingerprintTrackers(trackers []dillyapi.Tracker) string {
	projection := make([]trackerFingerprint, len(trackers))
	for i, t := range trackers {
		projection[i] = trackerFingerprint{
			ID:        t.ID,
			Name:      t.Name,
			Icon:      t.Icon,
			LastReset: t.LastReset.UTC().Format(time.RFC3339Nano),
		}
	}
	return fingerprint(projection)
}
