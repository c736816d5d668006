// Copyright 2025 James Stopford
// SPDX-License-Identifier: Apache-2.0

package dillyapi

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// InitializeSchema creates the application tables if they don't exist
func InitializeSchema(ctx context.Context, pool *pgxpool.Pool) error {
	return pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		return initializeSchemaInTx(ctx, tx)
	})
}

func initializeSchemaInTx(ctx context.Context, tx pgx.Tx) error {
	migrations := []string{
		/*language=postgresql*/ `CREATE TABLE IF NOT EXISTS users (
			id            BIGSERIAL PRIMARY KEY,
			email         TEXT        NOT NULL UNIQUE,
			password_hash TEXT        NOT NULL,
			theme         TEXT        NOT NULL DEFAULT 'light'
			              CHECK (theme IN ('light', 'dark', 'cyber-neon')),
			created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,

		/*language=postgresql*/ `CREATE TABLE IF NOT EXISTS sessions (
			id         UUID        PRIMARY KEY,
			user_id    BIGINT      NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			expires_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		/*language=postgresql*/ `CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id)`,
		/*language=postgresql*/ `CREATE INDEX IF NOT EXISTS idx_sessions_expires ON sessions(expires_at)`,

		/*language=postgresql*/ `CREATE TABLE IF NOT EXISTS password_resets (
			id         BIGSERIAL   PRIMARY KEY,
			user_id    BIGINT      NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			token      UUID        NOT NULL UNIQUE,
			expires_at TIMESTAMPTZ NOT NULL,
			used       BOOLEAN     NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,

		/*language=postgresql*/ `CREATE TABLE IF NOT EXISTS todos (
			id         BIGSERIAL   PRIMARY KEY,
			user_id    BIGINT      NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			text       TEXT        NOT NULL CHECK (char_length(text) BETWEEN 1 AND 500),
			completed  BOOLEAN     NOT NULL DEFAULT FALSE,
			sort_order INTEGER     NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		/*language=postgresql*/ `CREATE INDEX IF NOT EXISTS idx_todos_user_order ON todos(user_id, sort_order)`,

		/*language=postgresql*/ `CREATE TABLE IF NOT EXISTS template_items (
			id         BIGSERIAL   PRIMARY KEY,
			user_id    BIGINT      NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			text       TEXT        NOT NULL,
			sort_order INTEGER     NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		/*language=postgresql*/ `CREATE INDEX IF NOT EXISTS idx_template_user_order ON template_items(user_id, sort_order)`,

		/*language=postgresql*/ `CREATE TABLE IF NOT EXISTS trackers (
			id         BIGSERIAL   PRIMARY KEY,
			user_id    BIGINT      NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			name       TEXT        NOT NULL CHECK (char_length(name) BETWEEN 1 AND 100),
			icon       TEXT        NOT NULL,
			last_reset TIMESTAMPTZ NOT NULL DEFAULT now(),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		/*language=postgresql*/ `CREATE INDEX IF NOT EXISTS idx_trackers_user ON trackers(user_id)`,
	}

	for i, migration := range migrations {
		if _, err := tx.Exec(ctx, migration); err != nil {
			return fmt.Errorf("failed to execute migration %d: %w", i, err)
		}
	}
	return nil
}
