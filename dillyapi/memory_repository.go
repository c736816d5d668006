// Copyright 2025 James Stopford
// SPDX-License-Identifier: Apache-2.0

package dillyapi

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryReset struct {
	userID    int64
	expiresAt time.Time
	used      bool
}

type memoryTodo struct {
	Todo
	userID int64
}

type memoryTracker struct {
	Tracker
	userID int64
}

type memoryTemplateItem struct {
	TemplateItem
	userID int64
}

// MemoryRepository implements Repository in process memory. Data is lost on exit.
type MemoryRepository struct {
	mu  sync.Mutex
	now func() time.Time

	nextID    int64
	users     map[int64]*UserRecord
	sessions  map[uuid.UUID]SessionRecord
	resets    map[uuid.UUID]*memoryReset
	todos     map[int64]*memoryTodo
	templates map[int64]*memoryTemplateItem
	trackers  map[int64]*memoryTracker
}

// NewMemoryRepository creates an empty repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		now:       time.Now,
		users:     make(map[int64]*UserRecord),
		sessions:  make(map[uuid.UUID]SessionRecord),
		resets:    make(map[uuid.UUID]*memoryReset),
		todos:     make(map[int64]*memoryTodo),
		templates: make(map[int64]*memoryTemplateItem),
		trackers:  make(map[int64]*memoryTracker),
	}
}

// SetTimeFunc replaces the clock used for tracker timestamps
func (r *MemoryRepository) SetTimeFunc(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

func (r *MemoryRepository) id() int64 {
	r.nextID++
	return r.nextID
}

func (r *MemoryRepository) Ping(context.Context) error { return nil }

// ---- users ----

func (r *MemoryRepository) CreateUser(_ context.Context, email, passwordHash string) (*UserRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return nil, ErrEmailTaken
		}
	}
	u := &UserRecord{ID: r.id(), Email: email, PasswordHash: passwordHash, Theme: DefaultTheme, CreatedAt: r.now().UTC()}
	r.users[u.ID] = u
	cp := *u
	return &cp, nil
}

func (r *MemoryRepository) GetUserByEmail(_ context.Context, email string) (*UserRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryRepository) GetUser(_ context.Context, userID int64) (*UserRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *MemoryRepository) UpdateUserTheme(_ context.Context, userID int64, theme string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.Theme = theme
	return nil
}

func (r *MemoryRepository) UpdateUserPassword(_ context.Context, userID int64, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

// ---- sessions and reset tokens ----

func (r *MemoryRepository) CreateSession(_ context.Context, session SessionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ID] = session
	return nil
}

func (r *MemoryRepository) GetActiveSession(_ context.Context, sessionID uuid.UUID, now time.Time) (*SessionRecord, *UserRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok || !s.ExpiresAt.After(now) {
		return nil, nil, ErrNotFound
	}
	u, ok := r.users[s.UserID]
	if !ok {
		return nil, nil, ErrNotFound
	}
	cp := *u
	return &s, &cp, nil
}

func (r *MemoryRepository) DeleteSession(_ context.Context, sessionID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
	return nil
}

func (r *MemoryRepository) DeleteUserSessions(_ context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.sessions {
		if s.UserID == userID {
			delete(r.sessions, id)
		}
	}
	return nil
}

func (r *MemoryRepository) CreatePasswordReset(_ context.Context, userID int64, token uuid.UUID, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, reset := range r.resets {
		if reset.userID == userID {
			reset.used = true
		}
	}
	r.resets[token] = &memoryReset{userID: userID, expiresAt: expiresAt}
	return nil
}

func (r *MemoryRepository) ConsumePasswordReset(_ context.Context, token uuid.UUID, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reset, ok := r.resets[token]
	if !ok || reset.used || !reset.expiresAt.After(now) {
		return 0, ErrNotFound
	}
	reset.used = true
	return reset.userID, nil
}

// ---- todos ----

func (r *MemoryRepository) userTodos(userID int64) []*memoryTodo {
	var out []*memoryTodo
	for _, t := range r.todos {
		if t.userID == userID {
			out = append(out, t)
		}
	}
	slices.SortFunc(out, func(a, b *memoryTodo) int {
		return cmp.Or(cmp.Compare(a.SortOrder, b.SortOrder), cmp.Compare(a.ID, b.ID))
	})
	return out
}

func (r *MemoryRepository) ListTodos(_ context.Context, userID int64) ([]Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listTodosLocked(userID), nil
}

func (r *MemoryRepository) listTodosLocked(userID int64) []Todo {
	rows := r.userTodos(userID)
	out := make([]Todo, len(rows))
	for i, t := range rows {
		out[i] = t.Todo
	}
	return out
}

func (r *MemoryRepository) CreateTodo(_ context.Context, userID int64, text string, limit int) (*Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rows := r.userTodos(userID)
	if len(rows) >= limit {
		return nil, ErrLimitReached
	}
	order := 0
	for _, t := range rows {
		order = max(order, t.SortOrder+1)
	}
	t := &memoryTodo{Todo: Todo{ID: r.id(), Text: text, SortOrder: order}, userID: userID}
	r.todos[t.ID] = t
	todo := t.Todo
	return &todo, nil
}

func (r *MemoryRepository) UpdateTodo(_ context.Context, userID, todoID int64, patch UpdateTodoRequest) (*Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.todos[todoID]
	if !ok || t.userID != userID {
		return nil, ErrNotFound
	}
	if patch.Text != nil {
		t.Text = *patch.Text
	}
	if patch.Completed != nil {
		t.Completed = *patch.Completed
	}
	todo := t.Todo
	return &todo, nil
}

func (r *MemoryRepository) DeleteTodo(_ context.Context, userID, todoID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.todos[todoID]
	if !ok || t.userID != userID {
		return ErrNotFound
	}
	delete(r.todos, todoID)
	return nil
}

func (r *MemoryRepository) ReorderTodos(_ context.Context, userID int64, todoIDs []int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[int64]bool, len(todoIDs))
	for _, id := range todoIDs {
		t, ok := r.todos[id]
		if !ok || t.userID != userID || seen[id] {
			return ErrInvalidID
		}
		seen[id] = true
	}
	for i, id := range todoIDs {
		r.todos[id].SortOrder = i
	}
	return nil
}

// ---- template ----

func (r *MemoryRepository) listTemplateLocked(userID int64) []TemplateItem {
	out := []TemplateItem{}
	for _, item := range r.templates {
		if item.userID == userID {
			out = append(out, item.TemplateItem)
		}
	}
	slices.SortFunc(out, func(a, b TemplateItem) int {
		return cmp.Or(cmp.Compare(a.SortOrder, b.SortOrder), cmp.Compare(a.ID, b.ID))
	})
	return out
}

func (r *MemoryRepository) ListTemplate(_ context.Context, userID int64) ([]TemplateItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listTemplateLocked(userID), nil
}

func (r *MemoryRepository) SaveTemplate(_ context.Context, userID int64) ([]TemplateItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, item := range r.templates {
		if item.userID == userID {
			delete(r.templates, id)
		}
	}
	for _, t := range r.userTodos(userID) {
		item := &memoryTemplateItem{TemplateItem: TemplateItem{ID: r.id(), Text: t.Text, SortOrder: t.SortOrder}, userID: userID}
		r.templates[item.ID] = item
	}
	return r.listTemplateLocked(userID), nil
}

func (r *MemoryRepository) ResetToTemplate(_ context.Context, userID int64) ([]Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := r.listTemplateLocked(userID)
	if len(items) == 0 {
		return nil, ErrEmptyTemplate
	}
	for id, t := range r.todos {
		if t.userID == userID {
			delete(r.todos, id)
		}
	}
	for _, item := range items {
		t := &memoryTodo{Todo: Todo{ID: r.id(), Text: item.Text, SortOrder: item.SortOrder}, userID: userID}
		r.todos[t.ID] = t
	}
	return r.listTodosLocked(userID), nil
}

// ---- trackers ----

func (r *MemoryRepository) ListTrackers(_ context.Context, userID int64) ([]Tracker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []Tracker{}
	for _, t := range r.trackers {
		if t.userID == userID {
			out = append(out, t.Tracker)
		}
	}
	slices.SortFunc(out, func(a, b Tracker) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

func (r *MemoryRepository) CreateTracker(_ context.Context, userID int64, name, icon string, limit int) (*Tracker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, t := range r.trackers {
		if t.userID == userID {
			count++
		}
	}
	if count >= limit {
		return nil, ErrLimitReached
	}
	now := r.now().UTC()
	t := &memoryTracker{
		Tracker: Tracker{ID: r.id(), Name: name, Icon: icon, LastReset: now, CreatedAt: now, UpdatedAt: now},
		userID:  userID,
	}
	r.trackers[t.ID] = t
	tracker := t.Tracker
	return &tracker, nil
}

func (r *MemoryRepository) UpdateTracker(_ context.Context, userID, trackerID int64, patch UpdateTrackerRequest) (*Tracker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.trackers[trackerID]
	if !ok || t.userID != userID {
		return nil, ErrNotFound
	}
	if patch.Name != nil {
		t.Name = *patch.Name
	}
	if patch.Icon != nil {
		t.Icon = *patch.Icon
	}
	t.UpdatedAt = r.now().UTC()
	tracker := t.Tracker
	return &tracker, nil
}

func (r *MemoryRepository) DeleteTracker(_ context.Context, userID, trackerID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.trackers[trackerID]
	if !ok || t.userID != userID {
		return ErrNotFound
	}
	delete(r.trackers, trackerID)
	return nil
}

func (r *MemoryRepository) ResetTracker(_ context.Context, userID, trackerID int64) (*Tracker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.trackers[trackerID]
	if !ok || t.userID != userID {
		return nil, ErrNotFound
	}
	now := r.now().UTC()
	t.LastReset = now
	t.UpdatedAt = now
	tracker := t.Tracker
	return &tracker, nil
}
