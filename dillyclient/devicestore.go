// Copyright 2025 James Stopford
// SPDX-License-Identifier: Apache-2.0

package dillyclient

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	_ "github.com/mattn/go-sqlite3"
)

// StorageNamespace prefixes every key the client persists on the device
const StorageNamespace = "big-dilly"

const (
	lockTimeout    = 3 * time.Second
	lockRetryDelay = 50 * time.Millisecond
)

// KeyValueStore is device-local preference storage
type KeyValueStore interface {
	// Get returns the value for key and whether it was present
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// DeviceStore is a namespaced key/value table in a local SQLite file.
// Writes hold an exclusive lock on "<path>.lock" so concurrent CLI processes serialize.
type DeviceStore struct {
	db        *sql.DB
	namespace string
	fileLock  *flock.Flock // nil for in-memory stores
}

// OpenDeviceStore opens or creates the store at path. ":memory:" gives a private in-memory store.
func OpenDeviceStore(path string) (*DeviceStore, error) {
	var fileLock *flock.Flock
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
		fileLock = flock.New(path + ".lock")
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open device store: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &DeviceStore{db: db, namespace: StorageNamespace, fileLock: fileLock}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *DeviceStore) initialize() error {
	if _, err := s.db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		return fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := s.db.Exec(`PRAGMA busy_timeout=3000`); err != nil {
		return fmt.Errorf("failed to set busy timeout: %w", err)
	}
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS _device_kv (
			namespace  TEXT NOT NULL,
			key        TEXT NOT NULL,
			value      TEXT NOT NULL,
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
			PRIMARY KEY (namespace, key)
		)`)
	if err != nil {
		return fmt.Errorf("failed to create device table: %w", err)
	}
	return nil
}

// Get returns the value stored under key
func (s *DeviceStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM _device_kv WHERE namespace = ? AND key = ?`,
		s.namespace, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key, replacing any previous value
func (s *DeviceStore) Set(ctx context.Context, key, value string) error {
	return s.withLock(ctx, func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO _device_kv (namespace, key, value) VALUES (?, ?, ?)
			ON CONFLICT (namespace, key) DO UPDATE SET
				value = excluded.value,
				updated_at = strftime('%Y-%m-%dT%H:%M:%fZ','now')`,
			s.namespace, key, value)
		if err != nil {
			return fmt.Errorf("failed to write %s: %w", key, err)
		}
		return nil
	})
}

// Delete removes key; a missing key is not an error
func (s *DeviceStore) Delete(ctx context.Context, key string) error {
	return s.withLock(ctx, func() error {
		if _, err := s.db.ExecContext(ctx,
			`DELETE FROM _device_kv WHERE namespace = ? AND key = ?`, s.namespace, key); err != nil {
			return fmt.Errorf("failed to delete %s: %w", key, err)
		}
		return nil
	})
}

// Close releases the database
func (s *DeviceStore) Close() error {
	return s.db.Close()
}

func (s *DeviceStore) withLock(ctx context.Context, fn func() error) error {
	if s.fileLock == nil {
		return fn()
	}
	lockCtx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()
	locked, err := s.fileLock.TryLockContext(lockCtx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("failed to acquire device store lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("failed to acquire device store lock within %s", lockTimeout)
	}
	defer func() { _ = s.fileLock.Unlock() }()
	return fn()
}
