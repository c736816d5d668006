// Copyright 2025 James Stopford
// SPDX-License-Identifier: Apache-2.0

package dillyapi

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgRepository implements Repository on PostgreSQL
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewPgRepository wraps an existing pool. Call InitializeSchema first.
func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func queryAll[T any](ctx context.Context, q querier, sql string, args ...any) ([]T, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[T])
}

func notFoundOr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

const (
	todoColumns    = `id, text, completed, sort_order`
	trackerColumns = `id, name, icon, last_reset, created_at, updated_at`
	userColumns    = `id, email, password_hash, theme, created_at`
)

func scanUser(row pgx.Row) (*UserRecord, error) {
	var u UserRecord
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Theme, &u.CreatedAt); err != nil {
		return nil, notFoundOr(err)
	}
	return &u, nil
}

func (r *PgRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// ---- users ----

func (r *PgRepository) CreateUser(ctx context.Context, email, passwordHash string) (*UserRecord, error) {
	u, err := scanUser(r.pool.QueryRow(ctx,
		`INSERT INTO users (email, password_hash) VALUES ($1, $2) RETURNING `+userColumns,
		email, passwordHash))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	return u, nil
}

func (r *PgRepository) GetUserByEmail(ctx context.Context, email string) (*UserRecord, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

func (r *PgRepository) GetUser(ctx context.Context, userID int64) (*UserRecord, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID))
}

func (r *PgRepository) UpdateUserTheme(ctx context.Context, userID int64, theme string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET theme = $2, updated_at = now() WHERE id = $1`, userID, theme)
	if err != nil {
		return fmt.Errorf("failed to update theme: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PgRepository) UpdateUserPassword(ctx context.Context, userID int64, passwordHash string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`, userID, passwordHash)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ---- sessions and reset tokens ----

func (r *PgRepository) CreateSession(ctx context.Context, session SessionRecord) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO sessions (id, user_id, expires_at) VALUES ($1, $2, $3)`,
		session.ID, session.UserID, session.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

func (r *PgRepository) GetActiveSession(ctx context.Context, sessionID uuid.UUID, now time.Time) (*SessionRecord, *UserRecord, error) {
	var s SessionRecord
	var u UserRecord
	err := r.pool.QueryRow(ctx, `
		SELECT s.id, s.user_id, s.expires_at, u.id, u.email, u.password_hash, u.theme, u.created_at
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.id = $1 AND s.expires_at > $2`, sessionID, now).
		Scan(&s.ID, &s.UserID, &s.ExpiresAt, &u.ID, &u.Email, &u.PasswordHash, &u.Theme, &u.CreatedAt)
	if err != nil {
		return nil, nil, notFoundOr(err)
	}
	return &s, &u, nil
}

func (r *PgRepository) DeleteSession(ctx context.Context, sessionID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, sessionID)
	return err
}

func (r *PgRepository) DeleteUserSessions(ctx context.Context, userID int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	return err
}

func (r *PgRepository) CreatePasswordReset(ctx context.Context, userID int64, token uuid.UUID, expiresAt time.Time) error {
	return withTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `UPDATE password_resets SET used = TRUE WHERE user_id = $1 AND NOT used`, userID); err != nil {
			return fmt.Errorf("failed to invalidate reset tokens: %w", err)
		}
		if _, err := tx.Exec(ctx, `INSERT INTO password_resets (user_id, token, expires_at) VALUES ($1, $2, $3)`,
			userID, token, expiresAt); err != nil {
			return fmt.Errorf("failed to insert reset token: %w", err)
		}
		return nil
	})
}

func (r *PgRepository) ConsumePasswordReset(ctx context.Context, token uuid.UUID, now time.Time) (int64, error) {
	var userID int64
	err := r.pool.QueryRow(ctx, `
		UPDATE password_resets SET used = TRUE
		WHERE token = $1 AND NOT used AND expires_at > $2
		RETURNING user_id`, token, now).Scan(&userID)
	if err != nil {
		return 0, notFoundOr(err)
	}
	return userID, nil
}

// ---- todos ----

func (r *PgRepository) ListTodos(ctx context.Context, userID int64) ([]Todo, error) {
	return queryAll[Todo](ctx, r.pool,
		`SELECT `+todoColumns+` FROM todos WHERE user_id = $1 ORDER BY sort_order, id`, userID)
}

func (r *PgRepository) CreateTodo(ctx context.Context, userID int64, text string, limit int) (*Todo, error) {
	var todo Todo
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		var count int
		if err := tx.QueryRow(ctx, `SELECT count(*) FROM todos WHERE user_id = $1`, userID).Scan(&count); err != nil {
			return err
		}
		if count >= limit {
			return ErrLimitReached
		}
		return tx.QueryRow(ctx, `
			INSERT INTO todos (user_id, text, sort_order)
			VALUES ($1, $2, (SELECT COALESCE(MAX(sort_order), -1) + 1 FROM todos WHERE user_id = $1))
			RETURNING `+todoColumns, userID, text).
			Scan(&todo.ID, &todo.Text, &todo.Completed, &todo.SortOrder)
	})
	if err != nil {
		return nil, err
	}
	return &todo, nil
}

func (r *PgRepository) UpdateTodo(ctx context.Context, userID, todoID int64, patch UpdateTodoRequest) (*Todo, error) {
	sets := []string{"updated_at = now()"}
	args := []any{todoID, userID}
	if patch.Text != nil {
		args = append(args, *patch.Text)
		sets = append(sets, fmt.Sprintf("text = $%d", len(args)))
	}
	if patch.Completed != nil {
		args = append(args, *patch.Completed)
		sets = append(sets, fmt.Sprintf("completed = $%d", len(args)))
	}

	var todo Todo
	err := r.pool.QueryRow(ctx,
		`UPDATE todos SET `+strings.Join(sets, ", ")+` WHERE id = $1 AND user_id = $2 RETURNING `+todoColumns,
		args...).Scan(&todo.ID, &todo.Text, &todo.Completed, &todo.SortOrder)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return &todo, nil
}

func (r *PgRepository) DeleteTodo(ctx context.Context, userID, todoID int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM todos WHERE id = $1 AND user_id = $2`, todoID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete todo: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PgRepository) ReorderTodos(ctx context.Context, userID int64, todoIDs []int64) error {
	distinct := make(map[int64]struct{}, len(todoIDs))
	for _, id := range todoIDs {
		distinct[id] = struct{}{}
	}
	if len(distinct) != len(todoIDs) {
		return ErrInvalidID
	}

	return withTx(ctx, r.pool, func(tx pgx.Tx) error {
		var owned int
		if err := tx.QueryRow(ctx, `SELECT count(*) FROM todos WHERE user_id = $1 AND id = ANY($2)`,
			userID, todoIDs).Scan(&owned); err != nil {
			return err
		}
		if owned != len(todoIDs) {
			return ErrInvalidID
		}
		_, err := tx.Exec(ctx, `
			UPDATE todos t SET sort_order = o.ord - 1, updated_at = now()
			FROM unnest($2::bigint[]) WITH ORDINALITY AS o(id, ord)
			WHERE t.id = o.id AND t.user_id = $1`, userID, todoIDs)
		return err
	})
}

// ---- template ----

func (r *PgRepository) ListTemplate(ctx context.Context, userID int64) ([]TemplateItem, error) {
	return queryAll[TemplateItem](ctx, r.pool,
		`SELECT id, text, sort_order FROM template_items WHERE user_id = $1 ORDER BY sort_order, id`, userID)
}

func (r *PgRepository) SaveTemplate(ctx context.Context, userID int64) ([]TemplateItem, error) {
	var items []TemplateItem
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM template_items WHERE user_id = $1`, userID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO template_items (user_id, text, sort_order)
			SELECT user_id, text, sort_order FROM todos WHERE user_id = $1 ORDER BY sort_order, id`, userID); err != nil {
			return err
		}
		var err error
		items, err = queryAll[TemplateItem](ctx, tx,
			`SELECT id, text, sort_order FROM template_items WHERE user_id = $1 ORDER BY sort_order, id`, userID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save template: %w", err)
	}
	return items, nil
}

func (r *PgRepository) ResetToTemplate(ctx context.Context, userID int64) ([]Todo, error) {
	var todos []Todo
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		var count int
		if err := tx.QueryRow(ctx, `SELECT count(*) FROM template_items WHERE user_id = $1`, userID).Scan(&count); err != nil {
			return err
		}
		if count == 0 {
			return ErrEmptyTemplate
		}
		if _, err := tx.Exec(ctx, `DELETE FROM todos WHERE user_id = $1`, userID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO todos (user_id, text, completed, sort_order)
			SELECT user_id, text, FALSE, sort_order FROM template_items WHERE user_id = $1 ORDER BY sort_order, id`, userID); err != nil {
			return err
		}
		var err error
		todos, err = queryAll[Todo](ctx, tx,
			`SELECT `+todoColumns+` FROM todos WHERE user_id = $1 ORDER BY sort_order, id`, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return todos, nil
}

// ---- trackers ----

func (r *PgRepository) ListTrackers(ctx context.Context, userID int64) ([]Tracker, error) {
	return queryAll[Tracker](ctx, r.pool,
		`SELECT `+trackerColumns+` FROM trackers WHERE user_id = $1 ORDER BY created_at, id`, userID)
}

func scanTracker(row pgx.Row) (*Tracker, error) {
	var t Tracker
	if err := row.Scan(&t.ID, &t.Name, &t.Icon, &t.LastReset, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, notFoundOr(err)
	}
	return &t, nil
}

func (r *PgRepository) CreateTracker(ctx context.Context, userID int64, name, icon string, limit int) (*Tracker, error) {
	var tracker *Tracker
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		var count int
		if err := tx.QueryRow(ctx, `SELECT count(*) FROM trackers WHERE user_id = $1`, userID).Scan(&count); err != nil {
			return err
		}
		if count >= limit {
			return ErrLimitReached
		}
		var err error
		tracker, err = scanTracker(tx.QueryRow(ctx,
			`INSERT INTO trackers (user_id, name, icon) VALUES ($1, $2, $3) RETURNING `+trackerColumns,
			userID, name, icon))
		return err
	})
	if err != nil {
		return nil, err
	}
	return tracker, nil
}

func (r *PgRepository) UpdateTracker(ctx context.Context, userID, trackerID int64, patch UpdateTrackerRequest) (*Tracker, error) {
	sets := []string{"updated_at = now()"}
	args := []any{trackerID, userID}
	if patch.Name != nil {
		args = append(args, *patch.Name)
		sets = append(sets, fmt.Sprintf("name = $%d", len(args)))
	}
	if patch.Icon != nil {
		args = append(args, *patch.Icon)
		sets = append(sets, fmt.Sprintf("icon = $%d", len(args)))
	}
	return scanTracker(r.pool.QueryRow(ctx,
		`UPDATE trackers SET `+strings.Join(sets, ", ")+` WHERE id = $1 AND user_id = $2 RETURNING `+trackerColumns,
		args...))
}

func (r *PgRepository) DeleteTracker(ctx context.Context, userID, trackerID int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM trackers WHERE id = $1 AND user_id = $2`, trackerID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete tracker: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PgRepository) ResetTracker(ctx context.Context, userID, trackerID int64) (*Tracker, error) {
	return scanTracker(r.pool.QueryRow(ctx,
		`UPDATE trackers SET last_reset = now(), updated_at = now() WHERE id = $1 AND user_id = $2 RETURNING `+trackerColumns,
		trackerID, userID))
}
