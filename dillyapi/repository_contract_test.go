// Copyright 2025 James Stopford
// SPDX-License-Identifier: Apache-2.0

package dillyapi

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// runRepositoryContract exercises the behaviour every Repository must share.
// Emails are unique per run so the suite can share a database with other runs.
func runRepositoryContract(t *testing.T, repo Repository) {
	ctx := context.Background()
	newUser := func(t *testing.T) *UserRecord {
		t.Helper()
		user, err := repo.CreateUser(ctx, "user-"+uuid.NewString()+"@example.com", "hash")
		require.NoError(t, err)
		return user
	}

	t.Run("Users", func(t *testing.T) {
		user := newUser(t)
		require.Equal(t, DefaultTheme, user.Theme)

		_, err := repo.CreateUser(ctx, user.Email, "other")
		require.ErrorIs(t, err, ErrEmailTaken)

		byEmail, err := repo.GetUserByEmail(ctx, user.Email)
		require.NoError(t, err)
		require.Equal(t, user.ID, byEmail.ID)

		require.NoError(t, repo.UpdateUserTheme(ctx, user.ID, ThemeDark))
		require.NoError(t, repo.UpdateUserPassword(ctx, user.ID, "new-hash"))
		got, err := repo.GetUser(ctx, user.ID)
		require.NoError(t, err)
		require.Equal(t, ThemeDark, got.Theme)
		require.Equal(t, "new-hash", got.PasswordHash)

		_, err = repo.GetUserByEmail(ctx, "missing-"+uuid.NewString()+"@example.com")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Sessions", func(t *testing.T) {
		user := newUser(t)
		now := time.Now()
		session := SessionRecord{ID: uuid.New(), UserID: user.ID, ExpiresAt: now.Add(time.Hour)}
		require.NoError(t, repo.CreateSession(ctx, session))

		got, owner, err := repo.GetActiveSession(ctx, session.ID, now)
		require.NoError(t, err)
		require.Equal(t, session.ID, got.ID)
		require.Equal(t, user.ID, owner.ID)

		_, _, err = repo.GetActiveSession(ctx, session.ID, now.Add(2*time.Hour))
		require.ErrorIs(t, err, ErrNotFound, "expired sessions are not active")

		require.NoError(t, repo.DeleteSession(ctx, session.ID))
		_, _, err = repo.GetActiveSession(ctx, session.ID, now)
		require.ErrorIs(t, err, ErrNotFound)

		for range 2 {
			require.NoError(t, repo.CreateSession(ctx, SessionRecord{ID: uuid.New(), UserID: user.ID, ExpiresAt: now.Add(time.Hour)}))
		}
		require.NoError(t, repo.DeleteUserSessions(ctx, user.ID))
	})

	t.Run("PasswordResets", func(t *testing.T) {
		user := newUser(t)
		now := time.Now()
		first, second := uuid.New(), uuid.New()
		require.NoError(t, repo.CreatePasswordReset(ctx, user.ID, first, now.Add(time.Hour)))
		require.NoError(t, repo.CreatePasswordReset(ctx, user.ID, second, now.Add(time.Hour)))

		_, err := repo.ConsumePasswordReset(ctx, first, now)
		require.ErrorIs(t, err, ErrNotFound, "a newer token invalidates older ones")

		_, err = repo.ConsumePasswordReset(ctx, second, now.Add(2*time.Hour))
		require.ErrorIs(t, err, ErrNotFound, "expired")

		userID, err := repo.ConsumePasswordReset(ctx, second, now)
		require.NoError(t, err)
		require.Equal(t, user.ID, userID)

		_, err = repo.ConsumePasswordReset(ctx, second, now)
		require.ErrorIs(t, err, ErrNotFound, "tokens are single use")
	})

	t.Run("Todos", func(t *testing.T) {
		user := newUser(t)
		stranger := newUser(t)

		todos, err := repo.ListTodos(ctx, user.ID)
		require.NoError(t, err)
		require.Empty(t, todos)

		a, err := repo.CreateTodo(ctx, user.ID, "a", 3)
		require.NoError(t, err)
		b, err := repo.CreateTodo(ctx, user.ID, "b", 3)
		require.NoError(t, err)
		c, err := repo.CreateTodo(ctx, user.ID, "c", 3)
		require.NoError(t, err)
		require.Equal(t, []int{0, 1, 2}, []int{a.SortOrder, b.SortOrder, c.SortOrder})

		_, err = repo.CreateTodo(ctx, user.ID, "d", 3)
		require.ErrorIs(t, err, ErrLimitReached)

		done := true
		updated, err := repo.UpdateTodo(ctx, user.ID, b.ID, UpdateTodoRequest{Completed: &done})
		require.NoError(t, err)
		require.True(t, updated.Completed)
		require.Equal(t, "b", updated.Text)

		_, err = repo.UpdateTodo(ctx, stranger.ID, b.ID, UpdateTodoRequest{Completed: &done})
		require.ErrorIs(t, err, ErrNotFound)
		require.ErrorIs(t, repo.DeleteTodo(ctx, stranger.ID, b.ID), ErrNotFound)

		require.ErrorIs(t, repo.ReorderTodos(ctx, user.ID, []int64{c.ID, c.ID}), ErrInvalidID)
		require.ErrorIs(t, repo.ReorderTodos(ctx, stranger.ID, []int64{c.ID}), ErrInvalidID)
		require.NoError(t, repo.ReorderTodos(ctx, user.ID, []int64{c.ID, a.ID, b.ID}))

		todos, err = repo.ListTodos(ctx, user.ID)
		require.NoError(t, err)
		require.Equal(t, []int64{c.ID, a.ID, b.ID}, todoIDs(todos))

		require.NoError(t, repo.DeleteTodo(ctx, user.ID, a.ID))
		require.ErrorIs(t, repo.DeleteTodo(ctx, user.ID, a.ID), ErrNotFound)
	})

	t.Run("Template", func(t *testing.T) {
		user := newUser(t)

		items, err := repo.ListTemplate(ctx, user.ID)
		require.NoError(t, err)
		require.Empty(t, items)
		_, err = repo.ResetToTemplate(ctx, user.ID)
		require.ErrorIs(t, err, ErrEmptyTemplate)

		first, err := repo.CreateTodo(ctx, user.ID, "first", 10)
		require.NoError(t, err)
		_, err = repo.CreateTodo(ctx, user.ID, "second", 10)
		require.NoError(t, err)
		done := true
		_, err = repo.UpdateTodo(ctx, user.ID, first.ID, UpdateTodoRequest{Completed: &done})
		require.NoError(t, err)

		items, err = repo.SaveTemplate(ctx, user.ID)
		require.NoError(t, err)
		require.Len(t, items, 2)
		require.Equal(t, "first", items[0].Text)

		_, err = repo.CreateTodo(ctx, user.ID, "extra", 10)
		require.NoError(t, err)

		todos, err := repo.ResetToTemplate(ctx, user.ID)
		require.NoError(t, err)
		require.Len(t, todos, 2)
		require.Equal(t, "first", todos[0].Text)
		require.False(t, todos[0].Completed, "template rows come back uncompleted")
		require.NotEqual(t, first.ID, todos[0].ID, "todos are recreated")
	})

	t.Run("Trackers", func(t *testing.T) {
		user := newUser(t)
		stranger := newUser(t)

		trackers, err := repo.ListTrackers(ctx, user.ID)
		require.NoError(t, err)
		require.NotNil(t, trackers)
		require.Empty(t, trackers)

		water, err := repo.CreateTracker(ctx, user.ID, "Water", "water", 2)
		require.NoError(t, err)
		require.False(t, water.LastReset.IsZero())
		_, err = repo.CreateTracker(ctx, user.ID, "Run", "running", 2)
		require.NoError(t, err)
		_, err = repo.CreateTracker(ctx, user.ID, "Yoga", "yoga", 2)
		require.ErrorIs(t, err, ErrLimitReached)

		name := "Water plants"
		updated, err := repo.UpdateTracker(ctx, user.ID, water.ID, UpdateTrackerRequest{Name: &name})
		require.NoError(t, err)
		require.Equal(t, "Water plants", updated.Name)
		require.Equal(t, "water", updated.Icon)
		_, err = repo.UpdateTracker(ctx, stranger.ID, water.ID, UpdateTrackerRequest{Name: &name})
		require.ErrorIs(t, err, ErrNotFound)

		reset, err := repo.ResetTracker(ctx, user.ID, water.ID)
		require.NoError(t, err)
		require.False(t, reset.LastReset.Before(water.LastReset))
		_, err = repo.ResetTracker(ctx, stranger.ID, water.ID)
		require.ErrorIs(t, err, ErrNotFound)

		require.ErrorIs(t, repo.DeleteTracker(ctx, stranger.ID, water.ID), ErrNotFound)
		require.NoError(t, repo.DeleteTracker(ctx, user.ID, water.ID))
		trackers, err = repo.ListTrackers(ctx, user.ID)
		require.NoError(t, err)
		require.Len(t, trackers, 1)
		require.Equal(t, "Run", trackers[0].Name)
	})
}

func todoIDs(todos []Todo) []int64 {
	ids := make([]int64, 0, len(todos))
	for _, todo := range todos {
		ids = append(ids, todo.ID)
	}
	return ids
}
