// Copyright 2025 James Stopford
// SPDX-License-Identifier: Apache-2.0

package dillyclient

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"

	"golang.org/x/net/publicsuffix"
)

const cookiesKey = "cookies"

type storedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// PersistentJar is a cookie jar that mirrors the server origin's cookies into a KeyValueStore,
// so separate processes on the same device share one session
type PersistentJar struct {
	jar    *cookiejar.Jar
	origin *url.URL
	store  KeyValueStore
	logger *slog.Logger
}

// NewPersistentJar creates a jar for serverURL and restores any saved cookies
func NewPersistentJar(ctx context.Context, serverURL string, store KeyValueStore, logger *slog.Logger) (*PersistentJar, error) {
	origin, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse server url: %w", err)
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	j := &PersistentJar{jar: jar, origin: origin, store: store, logger: logger}
	if err := j.restore(ctx); err != nil {
		return nil, err
	}
	return j, nil
}

func (j *PersistentJar) restore(ctx context.Context) error {
	raw, ok, err := j.store.Get(ctx, cookiesKey)
	if err != nil {
		return fmt.Errorf("failed to load cookies: %w", err)
	}
	if !ok {
		return nil
	}
	var stored []storedCookie
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		j.logger.Warn("Discarding unreadable saved cookies", "error", err)
		return nil
	}
	cookies := make([]*http.Cookie, 0, len(stored))
	for _, c := range stored {
		cookies = append(cookies, &http.Cookie{Name: c.Name, Value: c.Value, Path: "/"})
	}
	j.jar.SetCookies(j.origin, cookies)
	return nil
}

// SetCookies implements http.CookieJar and persists the origin's cookies afterwards
func (j *PersistentJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.jar.SetCookies(u, cookies)
	if u.Host != j.origin.Host {
		return
	}
	j.persist()
}

// Cookies implements http.CookieJar
func (j *PersistentJar) Cookies(u *url.URL) []*http.Cookie {
	return j.jar.Cookies(u)
}

// Clear forgets every cookie for the origin, e.g. after logout
func (j *PersistentJar) Clear() {
	var expired []*http.Cookie
	for _, c := range j.jar.Cookies(j.origin) {
		expired = append(expired, &http.Cookie{Name: c.Name, Path: "/", MaxAge: -1})
	}
	j.jar.SetCookies(j.origin, expired)
	j.persist()
}

func (j *PersistentJar) persist() {
	current := j.jar.Cookies(j.origin)
	stored := make([]storedCookie, 0, len(current))
	for _, c := range current {
		stored = append(stored, storedCookie{Name: c.Name, Value: c.Value})
	}
	raw, err := json.Marshal(stored)
	if err != nil {
		j.logger.Warn("Failed to encode cookies", "error", err)
		return
	}
	if err := j.store.Set(context.Background(), cookiesKey, string(raw)); err != nil {
		j.logger.Warn("Failed to persist cookies", "error", err)
	}
}
