// Copyright 2025 James Stopford
// SPDX-License-Identifier: Apache-2.0

package dillyapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jamesstopford/big-dilly/internal/auth"
)

// SessionAuth issues and validates session cookies.
// The cookie holds an HS256 JWT whose jti names a row in the sessions table,
// so logging out or resetting a password revokes the token server-side.
type SessionAuth struct {
	secret     []byte
	repo       Repository
	secure     bool
	now        func() time.Time
	logger     *slog.Logger
	sessionTTL time.Duration
}

// NewSessionAuth creates a session authenticator
func NewSessionAuth(secret string, repo Repository, secureCookies bool, logger *slog.Logger) *SessionAuth {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionAuth{
		secret:     []byte(secret),
		repo:       repo,
		secure:     secureCookies,
		now:        time.Now,
		logger:     logger,
		sessionTTL: SessionDuration,
	}
}

// SessionClaims are the JWT claims carried by the session cookie
type SessionClaims struct {
	jwt.RegisteredClaims
}

// GenerateToken signs a session token for userID and sessionID
func (a *SessionAuth) GenerateToken(userID int64, sessionID uuid.UUID, expiresAt time.Time) (string, error) {
	now := a.now()
	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID.String(),
			Subject:   strconv.FormatInt(userID, 10),
			Issuer:    "big-dilly",
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// ValidateToken validates a session token and returns its claims
func (a *SessionAuth) ValidateToken(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithTimeFunc(a.now))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.ID == "" {
		return nil, fmt.Errorf("missing jti (session ID) in token")
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("missing sub (user ID) in token")
	}
	return claims, nil
}

// StartSession stores a new session for the user and sets the cookie
func (a *SessionAuth) StartSession(ctx context.Context, w http.ResponseWriter, userID int64) error {
	sessionID := uuid.New()
	expiresAt := a.now().Add(a.sessionTTL)
	if err := a.repo.CreateSession(ctx, SessionRecord{ID: sessionID, UserID: userID, ExpiresAt: expiresAt}); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	token, err := a.GenerateToken(userID, sessionID, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to sign session token: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteStrictMode,
	})
	return nil
}

// EndSession deletes the session named by the request cookie, if any, and clears the cookie.
// It never fails: logging out with a stale cookie still succeeds.
func (a *SessionAuth) EndSession(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	if token, ok := sessionToken(r); ok {
		if claims, err := a.ValidateToken(token); err == nil {
			if sessionID, err := uuid.Parse(claims.ID); err == nil {
				if err := a.repo.DeleteSession(ctx, sessionID); err != nil {
					a.logger.Warn("Failed to delete session", "error", err)
				}
			}
		}
	}
	a.clearCookie(w)
}

func (a *SessionAuth) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// sessionToken reads the session token from the cookie, falling back to a bearer header
func sessionToken(r *http.Request) (string, bool) {
	if c, err := r.Cookie(SessionCookieName); err == nil && c.Value != "" {
		return c.Value, true
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer "), true
	}
	return "", false
}

// Authenticate resolves the request's session to its user
func (a *SessionAuth) Authenticate(r *http.Request) (*SessionRecord, *UserRecord, error) {
	token, ok := sessionToken(r)
	if !ok {
		return nil, nil, errMissingSession
	}
	claims, err := a.ValidateToken(token)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid token: %w", err)
	}
	sessionID, err := uuid.Parse(claims.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid session id: %w", err)
	}
	session, user, err := a.repo.GetActiveSession(r.Context(), sessionID, a.now())
	if err != nil {
		return nil, nil, err
	}
	if strconv.FormatInt(user.ID, 10) != claims.Subject {
		return nil, nil, fmt.Errorf("session subject mismatch")
	}
	return session, user, nil
}

var errMissingSession = errors.New("missing session")

// Middleware rejects requests without a live session and stores the user in the context
func (a *SessionAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, user, err := a.Authenticate(r)
		if err != nil {
			if errors.Is(err, errMissingSession) {
				writeJSONError(w, a.logger, http.StatusUnauthorized, "Authentication required")
				return
			}
			if !errors.Is(err, ErrNotFound) {
				a.logger.Debug("Session validation failed", "error", err)
			}
			a.clearCookie(w)
			writeJSONError(w, a.logger, http.StatusUnauthorized, "Session expired or invalid")
			return
		}

		ctx := auth.SetAuthContext(r.Context(), auth.Identity{
			UserID:    user.ID,
			SessionID: session.ID.String(),
			Email:     user.Email,
			Theme:     user.Theme,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
