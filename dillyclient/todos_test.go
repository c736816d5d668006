// Copyright 2025 James Stopford
// SPDX-License-Identifier: Apache-2.0

package dillyclient

import (
	"context"
	"fmt"
	"testing"

	"github.com/jamesstopford/big-dilly/dillyapi"
	"github.com/stretchr/testify/require"
)

func seededTodos(n int) []dillyapi.Todo {
	todos := make([]dillyapi.Todo, n)
	for i := range todos {
		todos[i] = dillyapi.Todo{ID: int64(i + 1), Text: fmt.Sprintf("todo %d", i+1), SortOrder: i}
	}
	return todos
}

func newLoadedTodoStore(t *testing.T, todos []dillyapi.Todo) (*TodoStore, *fakeTodoAPI, *fakeClock) {
	t.Helper()
	api := &fakeTodoAPI{todos: todos}
	clock := newFakeClock()
	store := NewTodoStore(api, clock, testLogger())
	t.Cleanup(store.Destroy)
	require.True(t, store.Load(context.Background()).Success)
	return store, api, clock
}

func todoTexts(todos []dillyapi.Todo) []string {
	texts := make([]string, len(todos))
	for i, t := range todos {
		texts[i] = t.Text
	}
	return texts
}

func TestTodoStore_Load(t *testing.T) {
	store, _, _ := newLoadedTodoStore(t, seededTodos(3))
	state := store.State()
	require.Len(t, state.Items, 3)
	require.False(t, state.Loading)
	require.Empty(t, state.Error)
}

func TestTodoStore_LoadFailureSetsError(t *testing.T) {
	api := &fakeTodoAPI{listErr: errServer}
	store := NewTodoStore(api, newFakeClock(), testLogger())

	res := store.Load(context.Background())
	require.False(t, res.Success)
	require.Equal(t, "Internal server error", res.Error)
	require.Equal(t, "Internal server error", store.State().Error)
	require.False(t, store.State().Loading)

	store.ClearError()
	require.Empty(t, store.State().Error)
}

func TestTodoStore_SyncKeepsErrorAndLoading(t *testing.T) {
	api := &fakeTodoAPI{listErr: errServer}
	store := NewTodoStore(api, newFakeClock(), testLogger())
	store.Load(context.Background())

	api.listErr = nil
	api.todos = seededTodos(2)
	require.True(t, store.Sync(context.Background()).Success)
	require.Len(t, store.Items(), 2)
	require.Equal(t, "Internal server error", store.State().Error)
}

func TestTodoStore_Create(t *testing.T) {
	store, api, _ := newLoadedTodoStore(t, seededTodos(2))

	res := store.Create(context.Background(), "  buy milk  ")
	require.True(t, res.Success)
	require.Equal(t, []string{"todo 1", "todo 2", "buy milk"}, todoTexts(store.Items()))
	require.Equal(t, []string{"list", "create"}, api.Calls())
}

func TestTodoStore_CreateRejectsEmptyText(t *testing.T) {
	store, api, _ := newLoadedTodoStore(t, nil)

	res := store.Create(context.Background(), "   ")
	require.False(t, res.Success)
	require.Equal(t, "Todo text is required", res.Error)
	require.Equal(t, []string{"list"}, api.Calls())
}

func TestTodoStore_CreateAtCapacityMakesNoRequest(t *testing.T) {
	store, api, _ := newLoadedTodoStore(t, seededTodos(dillyapi.MaxTodos))
	require.True(t, store.IsMax())

	res := store.Create(context.Background(), "eleventh")
	require.False(t, res.Success)
	require.Equal(t, "Maximum of 10 todos allowed", res.Error)
	require.Len(t, store.Items(), dillyapi.MaxTodos)
	require.Equal(t, []string{"list"}, api.Calls())
}

func TestTodoStore_CreateFailureLeavesListUntouched(t *testing.T) {
	store, api, _ := newLoadedTodoStore(t, seededTodos(2))
	api.setFail(errServer)

	res := store.Create(context.Background(), "new")
	require.False(t, res.Success)
	require.Len(t, store.Items(), 2)
}

func TestTodoStore_ToggleCompleteOptimistic(t *testing.T) {
	store, api, _ := newLoadedTodoStore(t, seededTodos(2))
	api.onCall = func(string) {
		// The local flip is visible before the server answers
		require.True(t, store.Items()[0].Completed)
	}

	res := store.ToggleComplete(context.Background(), 1)
	require.True(t, res.Success)
	require.True(t, store.Items()[0].Completed)
	require.Equal(t, 1, store.CompletedCount())
	require.True(t, api.todos[0].Completed)
}

func TestTodoStore_ToggleCompleteRollsBack(t *testing.T) {
	store, api, _ := newLoadedTodoStore(t, seededTodos(2))
	api.setFail(errNetworkDown)

	res := store.ToggleComplete(context.Background(), 2)
	require.False(t, res.Success)
	require.False(t, store.Items()[1].Completed)
	require.Equal(t, seededTodos(2), store.Items())
}

func TestTodoStore_ToggleCompleteUnknownID(t *testing.T) {
	store, api, _ := newLoadedTodoStore(t, seededTodos(1))

	res := store.ToggleComplete(context.Background(), 99)
	require.False(t, res.Success)
	require.Equal(t, "Todo not found", res.Error)
	require.Equal(t, []string{"list"}, api.Calls())
}

func TestTodoStore_UpdateText(t *testing.T) {
	store, api, _ := newLoadedTodoStore(t, seededTodos(2))

	require.True(t, store.UpdateText(context.Background(), 2, " renamed ").Success)
	require.Equal(t, "renamed", store.Items()[1].Text)
	require.Equal(t, "renamed", api.todos[1].Text)

	res := store.UpdateText(context.Background(), 2, "")
	require.False(t, res.Success)
	require.Equal(t, "Todo text is required", res.Error)
}

func TestTodoStore_UpdateTextFailureReloads(t *testing.T) {
	store, api, _ := newLoadedTodoStore(t, seededTodos(2))
	api.setFail(errServer)

	res := store.UpdateText(context.Background(), 1, "local only")
	require.False(t, res.Success)
	// The reload restores the server's text
	require.Equal(t, "todo 1", store.Items()[0].Text)
	require.Equal(t, []string{"list", "update", "list"}, api.Calls())
}

func TestTodoStore_DeleteOptimistic(t *testing.T) {
	store, api, _ := newLoadedTodoStore(t, seededTodos(3))
	api.onCall = func(string) {
		require.Len(t, store.Items(), 2)
	}

	require.True(t, store.Delete(context.Background(), 2).Success)
	require.Equal(t, []string{"todo 1", "todo 3"}, todoTexts(store.Items()))
}

func TestTodoStore_DeleteRollsBackAtIndex(t *testing.T) {
	store, api, _ := newLoadedTodoStore(t, seededTodos(3))
	api.setFail(errNetworkDown)

	res := store.Delete(context.Background(), 2)
	require.False(t, res.Success)
	require.Equal(t, "network error on /todos: connection refused", res.Error)
	require.Equal(t, seededTodos(3), store.Items())
}

func TestTodoStore_DeleteUnknownIDStillAsksServer(t *testing.T) {
	store, api, _ := newLoadedTodoStore(t, seededTodos(1))

	require.True(t, store.Delete(context.Background(), 42).Success)
	require.Equal(t, []string{"list", "delete"}, api.Calls())
	require.Len(t, store.Items(), 1)
}

func TestTodoStore_Reorder(t *testing.T) {
	store, api, _ := newLoadedTodoStore(t, seededTodos(3))
	items := store.Items()

	res := store.Reorder(context.Background(), []dillyapi.Todo{items[2], items[0], items[1]})
	require.True(t, res.Success)
	got := store.Items()
	require.Equal(t, []string{"todo 3", "todo 1", "todo 2"}, todoTexts(got))
	for i, todo := range got {
		require.Equal(t, i, todo.SortOrder)
	}
	require.Equal(t, []int64{3, 1, 2}, []int64{api.todos[0].ID, api.todos[1].ID, api.todos[2].ID})
}

func TestTodoStore_ReorderRollsBackExactly(t *testing.T) {
	store, api, _ := newLoadedTodoStore(t, seededTodos(3))
	before := store.Items()
	api.setFail(errServer)

	res := store.Reorder(context.Background(), []dillyapi.Todo{before[1], before[2], before[0]})
	require.False(t, res.Success)
	require.Equal(t, before, store.Items())
}

func TestTodoStore_ReorderDoesNotMutatePreviousSnapshot(t *testing.T) {
	store, _, _ := newLoadedTodoStore(t, seededTodos(3))
	snapshot := store.Items()

	store.Reorder(context.Background(), []dillyapi.Todo{snapshot[2], snapshot[1], snapshot[0]})
	require.Equal(t, seededTodos(3), snapshot)
}

func TestTodoStore_Move(t *testing.T) {
	store, _, _ := newLoadedTodoStore(t, seededTodos(4))

	require.True(t, store.Move(context.Background(), 4, 0).Success)
	require.Equal(t, []string{"todo 4", "todo 1", "todo 2", "todo 3"}, todoTexts(store.Items()))

	require.True(t, store.Move(context.Background(), 4, 99).Success)
	require.Equal(t, []string{"todo 1", "todo 2", "todo 3", "todo 4"}, todoTexts(store.Items()))

	res := store.Move(context.Background(), 77, 0)
	require.False(t, res.Success)
	require.Equal(t, "Todo not found", res.Error)
}

func TestTodoStore_SaveTemplateFeedbackClears(t *testing.T) {
	store, _, clock := newLoadedTodoStore(t, seededTodos(2))

	require.True(t, store.SaveTemplate(context.Background()).Success)
	state := store.State()
	require.False(t, state.TemplateSaving)
	require.Equal(t, FeedbackSaved, state.TemplateFeedback)

	clock.Advance(TemplateFeedbackDuration - 1)
	require.Equal(t, FeedbackSaved, store.State().TemplateFeedback)
	clock.Advance(1)
	require.Equal(t, FeedbackNone, store.State().TemplateFeedback)
}

func TestTodoStore_TemplateFeedbackRestartsTimer(t *testing.T) {
	store, _, clock := newLoadedTodoStore(t, seededTodos(2))

	store.SaveTemplate(context.Background())
	clock.Advance(TemplateFeedbackDuration / 2)
	require.True(t, store.ResetToTemplate(context.Background()).Success)
	require.Equal(t, 1, clock.Pending())

	clock.Advance(TemplateFeedbackDuration / 2)
	require.Equal(t, FeedbackReset, store.State().TemplateFeedback)
	clock.Advance(TemplateFeedbackDuration / 2)
	require.Equal(t, FeedbackNone, store.State().TemplateFeedback)
}

func TestTodoStore_SaveTemplateFailure(t *testing.T) {
	store, api, clock := newLoadedTodoStore(t, seededTodos(2))
	api.setFail(errServer)

	res := store.SaveTemplate(context.Background())
	require.False(t, res.Success)
	require.False(t, store.State().TemplateSaving)
	require.Equal(t, FeedbackNone, store.State().TemplateFeedback)
	require.Zero(t, clock.Pending())
}

func TestTodoStore_ResetToTemplate(t *testing.T) {
	store, api, _ := newLoadedTodoStore(t, seededTodos(2))
	require.True(t, store.SaveTemplate(context.Background()).Success)
	store.ToggleComplete(context.Background(), 1)
	store.Create(context.Background(), "extra")

	require.True(t, store.ResetToTemplate(context.Background()).Success)
	state := store.State()
	require.Equal(t, []string{"todo 1", "todo 2"}, todoTexts(state.Items))
	require.Zero(t, store.CompletedCount())
	require.False(t, state.TemplateResetting)
	require.Equal(t, FeedbackReset, state.TemplateFeedback)
	require.Equal(t, api.todos, state.Items)
}

func TestTodoStore_ResetToTemplateWithoutTemplate(t *testing.T) {
	store, _, _ := newLoadedTodoStore(t, seededTodos(2))

	res := store.ResetToTemplate(context.Background())
	require.False(t, res.Success)
	require.Equal(t, "No template saved. Save a template first.", res.Error)
	require.Len(t, store.Items(), 2)
	require.False(t, store.State().TemplateResetting)
}

func TestTodoStore_ResetAndDestroyCancelTimers(t *testing.T) {
	store, _, clock := newLoadedTodoStore(t, seededTodos(2))
	store.SaveTemplate(context.Background())
	require.Equal(t, 1, clock.Pending())

	store.Reset()
	require.Zero(t, clock.Pending())
	require.Empty(t, store.Items())
	require.Equal(t, FeedbackNone, store.State().TemplateFeedback)

	store.SaveTemplate(context.Background())
	store.Destroy()
	require.Zero(t, clock.Pending())
}
