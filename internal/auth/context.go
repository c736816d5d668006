// Copyright 2025 James Stopford
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"context"
)

type contextKey string

const (
	identityKey contextKey = "identity"
)

// Identity is the authenticated caller of a request
type Identity struct {
	UserID    int64
	SessionID string
	Email     string
	Theme     string
}

// SetAuthContext stores the caller identity in the context
func SetAuthContext(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// GetIdentity retrieves the caller identity from the context
func GetIdentity(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey).(Identity)
	return identity, ok
}

// GetUserID retrieves the user ID from the context
func GetUserID(ctx context.Context) (int64, bool) {
	identity, ok := GetIdentity(ctx)
	if !ok {
		return 0, false
	}
	return identity.UserID, true
}

// GetSessionID retrieves the session ID from the context
func GetSessionID(ctx context.Context) (string, bool) {
	identity, ok := GetIdentity(ctx)
	if !ok {
		return "", false
	}
	return identity.SessionID, true
}
