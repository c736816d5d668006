// Copyright 2025 James Stopford
// SPDX-License-Identifier: Apache-2.0

package dillyclient

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/jamesstopford/big-dilly/dillyapi"
)

// TodoService is the server surface the todo store needs; *Client implements it
type TodoService interface {
	ListTodos(ctx context.Context) ([]dillyapi.Todo, error)
	CreateTodo(ctx context.Context, text string) (*dillyapi.Todo, error)
	UpdateTodo(ctx context.Context, id int64, patch dillyapi.UpdateTodoRequest) (*dillyapi.Todo, error)
	DeleteTodo(ctx context.Context, id int64) error
	ReorderTodos(ctx context.Context, ids []int64) error
	SaveTemplate(ctx context.Context) ([]dillyapi.TemplateItem, error)
	ResetTemplate(ctx context.Context) ([]dillyapi.Todo, error)
}

// TemplateFeedback is the transient acknowledgement of a template action
type TemplateFeedback string

const (
	FeedbackNone  TemplateFeedback = ""
	FeedbackSaved TemplateFeedback = "saved"
	FeedbackReset TemplateFeedback = "reset"
)

// TemplateFeedbackDuration is how long a template acknowledgement stays visible
const TemplateFeedbackDuration = 2 * time.Second

// TodoState is a snapshot of the todo store. Items is never mutated in place;
// every change installs a new slice.
type TodoState struct {
	Items             []dillyapi.Todo
	Loading           bool
	Error             string
	TemplateSaving    bool
	TemplateResetting bool
	TemplateFeedback  TemplateFeedback
}

// TodoStore mirrors the server's todo list with optimistic updates
type TodoStore struct {
	api      TodoService
	state    *Observable[TodoState]
	clock    Clock
	logger   *slog.Logger
	maxItems int

	mu            sync.Mutex
	feedbackTimer Timer
}

// NewTodoStore creates an empty store
func NewTodoStore(api TodoService, clock Clock, logger *slog.Logger) *TodoStore {
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TodoStore{
		api:      api,
		state:    NewObservable(TodoState{Items: []dillyapi.Todo{}}),
		clock:    clock,
		logger:   logger,
		maxItems: dillyapi.MaxTodos,
	}
}

// State returns the current snapshot
func (s *TodoStore) State() TodoState { return s.state.Get() }

// Items returns the current todos
func (s *TodoStore) Items() []dillyapi.Todo { return s.state.Get().Items }

// Subscribe observes state changes
func (s *TodoStore) Subscribe(fn func(TodoState)) func() { return s.state.Subscribe(fn) }

func (s *TodoStore) Count() int { return len(s.Items()) }

func (s *TodoStore) CompletedCount() int {
	n := 0
	for _, t := range s.Items() {
		if t.Completed {
			n++
		}
	}
	return n
}

func (s *TodoStore) IsMax() bool { return s.Count() >= s.maxItems }

func (s *TodoStore) setItems(items []dillyapi.Todo) {
	if items == nil {
		items = []dillyapi.Todo{}
	}
	s.state.Update(func(st TodoState) TodoState {
		st.Items = items
		return st
	})
}

// mapItems replaces the items with fn applied to each of them
func (s *TodoStore) mapItems(fn func(dillyapi.Todo) dillyapi.Todo) {
	s.state.Update(func(st TodoState) TodoState {
		next := make([]dillyapi.Todo, len(st.Items))
		for i, t := range st.Items {
			next[i] = fn(t)
		}
		st.Items = next
		return st
	})
}

// Load replaces the local list with the server's
func (s *TodoStore) Load(ctx context.Context) Result {
	s.state.Update(func(st TodoState) TodoState {
		st.Loading = true
		st.Error = ""
		return st
	})

	todos, err := s.api.ListTodos(ctx)
	if err != nil {
		msg := errorMessage(err, "Failed to load todos")
		s.logger.Warn("Failed to load todos", "error", err)
		s.state.Update(func(st TodoState) TodoState {
			st.Loading = false
			st.Error = msg
			return st
		})
		return rejected(msg)
	}

	if todos == nil {
		todos = []dillyapi.Todo{}
	}
	s.state.Update(func(st TodoState) TodoState {
		st.Items = todos
		st.Loading = false
		return st
	})
	return succeeded()
}

// Sync replaces the local list with the server's without touching Loading or Error,
// so a background refresh never clobbers an error the user is looking at
func (s *TodoStore) Sync(ctx context.Context) Result {
	todos, err := s.api.ListTodos(ctx)
	if err != nil {
		return failed(err, "Failed to load todos")
	}
	s.setItems(todos)
	return succeeded()
}

// Fingerprint hashes the current list
func (s *TodoStore) Fingerprint() string { return FingerprintTodos(s.Items()) }

// Create adds a todo once the server has assigned its id and position
func (s *TodoStore) Create(ctx context.Context, text string) Result {
	text = strings.TrimSpace(text)
	if text == "" {
		return rejected("Todo text is required")
	}
	if s.IsMax() {
		return rejected(fmt.Sprintf("Maximum of %d todos allowed", s.maxItems))
	}

	todo, err := s.api.CreateTodo(ctx, text)
	if err != nil {
		return failed(err, "Failed to create todo")
	}
	s.state.Update(func(st TodoState) TodoState {
		st.Items = append(slices.Clip(st.Items), *todo)
		return st
	})
	return succeeded()
}

// UpdateText changes a todo's text locally, then on the server.
// A server failure reloads the whole list.
func (s *TodoStore) UpdateText(ctx context.Context, id int64, text string) Result {
	text = strings.TrimSpace(text)
	if text == "" {
		return rejected("Todo text is required")
	}

	s.mapItems(func(t dillyapi.Todo) dillyapi.Todo {
		if t.ID == id {
			t.Text = text
		}
		return t
	})

	if _, err := s.api.UpdateTodo(ctx, id, dillyapi.UpdateTodoRequest{Text: &text}); err != nil {
		s.Load(ctx)
		return failed(err, "Failed to update todo")
	}
	return succeeded()
}

// ToggleComplete flips a todo's completed flag; a server failure restores the previous value
func (s *TodoStore) ToggleComplete(ctx context.Context, id int64) Result {
	var previous, found bool
	s.mapItems(func(t dillyapi.Todo) dillyapi.Todo {
		if t.ID == id {
			previous, found = t.Completed, true
			t.Completed = !t.Completed
		}
		return t
	})
	if !found {
		return rejected("Todo not found")
	}

	completed := !previous
	if _, err := s.api.UpdateTodo(ctx, id, dillyapi.UpdateTodoRequest{Completed: &completed}); err != nil {
		s.mapItems(func(t dillyapi.Todo) dillyapi.Todo {
			if t.ID == id {
				t.Completed = previous
			}
			return t
		})
		return failed(err, "Failed to update todo")
	}
	return succeeded()
}

// Delete removes a todo locally, then on the server. A server failure puts it back at its index.
func (s *TodoStore) Delete(ctx context.Context, id int64) Result {
	index := -1
	var removed dillyapi.Todo
	s.state.Update(func(st TodoState) TodoState {
		index = slices.IndexFunc(st.Items, func(t dillyapi.Todo) bool { return t.ID == id })
		if index >= 0 {
			removed = st.Items[index]
			st.Items = slices.Delete(slices.Clone(st.Items), index, index+1)
		}
		return st
	})

	if err := s.api.DeleteTodo(ctx, id); err != nil {
		if index >= 0 {
			s.state.Update(func(st TodoState) TodoState {
				st.Items = slices.Insert(slices.Clone(st.Items), min(index, len(st.Items)), removed)
				return st
			})
		}
		return failed(err, "Failed to delete todo")
	}
	return succeeded()
}

// Reorder installs items in the given order with sort_order rewritten to the position.
// A server failure restores the previous list exactly.
func (s *TodoStore) Reorder(ctx context.Context, items []dillyapi.Todo) Result {
	reordered := make([]dillyapi.Todo, len(items))
	ids := make([]int64, len(items))
	for i, t := range items {
		t.SortOrder = i
		reordered[i] = t
		ids[i] = t.ID
	}

	var previous []dillyapi.Todo
	s.state.Update(func(st TodoState) TodoState {
		previous = st.Items
		st.Items = reordered
		return st
	})

	if err := s.api.ReorderTodos(ctx, ids); err != nil {
		s.setItems(previous)
		return failed(err, "Failed to reorder todos")
	}
	return succeeded()
}

// Move shifts the todo with id to position to and reorders
func (s *TodoStore) Move(ctx context.Context, id int64, to int) Result {
	items := slices.Clone(s.Items())
	from := slices.IndexFunc(items, func(t dillyapi.Todo) bool { return t.ID == id })
	if from < 0 {
		return rejected("Todo not found")
	}
	to = max(0, min(to, len(items)-1))
	moved := items[from]
	items = slices.Insert(slices.Delete(items, from, from+1), to, moved)
	return s.Reorder(ctx, items)
}

// SaveTemplate snapshots the current list on the server as the template
func (s *TodoStore) SaveTemplate(ctx context.Context) Result {
	s.state.Update(func(st TodoState) TodoState {
		st.TemplateSaving = true
		return st
	})
	_, err := s.api.SaveTemplate(ctx)
	s.state.Update(func(st TodoState) TodoState {
		st.TemplateSaving = false
		return st
	})
	if err != nil {
		return failed(err, "Failed to save template")
	}
	s.setFeedback(FeedbackSaved)
	return succeeded()
}

// ResetToTemplate replaces the list with the saved template, all uncompleted
func (s *TodoStore) ResetToTemplate(ctx context.Context) Result {
	s.state.Update(func(st TodoState) TodoState {
		st.TemplateResetting = true
		return st
	})
	todos, err := s.api.ResetTemplate(ctx)
	if err != nil {
		s.state.Update(func(st TodoState) TodoState {
			st.TemplateResetting = false
			return st
		})
		return failed(err, "Failed to reset to template")
	}
	if todos == nil {
		todos = []dillyapi.Todo{}
	}
	s.state.Update(func(st TodoState) TodoState {
		st.Items = todos
		st.TemplateResetting = false
		return st
	})
	s.setFeedback(FeedbackReset)
	return succeeded()
}

// setFeedback shows feedback and clears it after TemplateFeedbackDuration
func (s *TodoStore) setFeedback(feedback TemplateFeedback) {
	s.state.Update(func(st TodoState) TodoState {
		st.TemplateFeedback = feedback
		return st
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.feedbackTimer = stopTimer(s.feedbackTimer)
	var timer Timer
	timer = s.clock.AfterFunc(TemplateFeedbackDuration, func() {
		s.mu.Lock()
		current := s.feedbackTimer == timer
		if current {
			s.feedbackTimer = nil
		}
		s.mu.Unlock()
		if current {
			s.state.Update(func(st TodoState) TodoState {
				st.TemplateFeedback = FeedbackNone
				return st
			})
		}
	})
	s.feedbackTimer = timer
}

// ClearError dismisses the load error
func (s *TodoStore) ClearError() {
	s.state.Update(func(st TodoState) TodoState {
		st.Error = ""
		return st
	})
}

// Reset drops all local state, e.g. on logout
func (s *TodoStore) Reset() {
	s.mu.Lock()
	s.feedbackTimer = stopTimer(s.feedbackTimer)
	s.mu.Unlock()
	s.state.Set(TodoState{Items: []dillyapi.Todo{}})
}

// Destroy cancels pending timers
func (s *TodoStore) Destroy() {
	s.mu.Lock()
	s.feedbackTimer = stopTimer(s.feedbackTimer)
	s.mu.Unlock()
}
