// Copyright 2025 James Stopford
// SPDX-License-Identifier: Apache-2.0

package dillyclient

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/jamesstopford/big-dilly/dillyapi"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeClock only moves when Advance is called. Due timers run synchronously on
// the advancing goroutine, in deadline order, without the clock lock held.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
	seq    int
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	seq     int
	fn      func()
	stopped bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	t := &fakeTimer{clock: c, at: c.now.Add(d), seq: c.seq, fn: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped {
		return false
	}
	t.stopped = true
	t.clock.timers = slices.DeleteFunc(t.clock.timers, func(x *fakeTimer) bool { return x == t })
	return true
}

// Advance moves the clock forward by d, firing every timer that falls due on the way
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		var next *fakeTimer
		for _, t := range c.timers {
			if t.at.After(target) {
				continue
			}
			if next == nil || t.at.Before(next.at) || (t.at.Equal(next.at) && t.seq < next.seq) {
				next = t
			}
		}
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		next.stopped = true
		c.timers = slices.DeleteFunc(c.timers, func(x *fakeTimer) bool { return x == next })
		c.now = next.at
		c.mu.Unlock()

		next.fn()
	}
}

// Pending returns the number of armed timers
func (c *fakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

// instantClock fires every timer immediately on a new goroutine and records the requested delays
type instantClock struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (c *instantClock) Now() time.Time { return time.Now() }

func (c *instantClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	c.delays = append(c.delays, d)
	c.mu.Unlock()
	go f()
	return noopTimer{}
}

func (c *instantClock) Delays() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.delays)
}

type noopTimer struct{}

func (noopTimer) Stop() bool { return false }

// memoryPrefs is a KeyValueStore backed by a map
type memoryPrefs struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemoryPrefs() *memoryPrefs {
	return &memoryPrefs{values: make(map[string]string)}
}

func (p *memoryPrefs) Get(_ context.Context, key string) (string, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.values[key]
	return v, ok, nil
}

func (p *memoryPrefs) Set(_ context.Context, key, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values[key] = value
	return nil
}

var errServer = &APIError{Status: 500, Message: "Internal server error"}

// fakeTodoAPI is a TodoService holding the server's view of the list.
// Setting fail makes every mutating call fail without changing server state.
type fakeTodoAPI struct {
	mu       sync.Mutex
	todos    []dillyapi.Todo
	template []dillyapi.TemplateItem
	nextID   int64
	fail     error
	listErr  error
	calls    []string
	onCall   func(method string)
}

func (f *fakeTodoAPI) record(method string) error {
	f.calls = append(f.calls, method)
	if f.onCall != nil {
		f.onCall(method)
	}
	return f.fail
}

func (f *fakeTodoAPI) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

func (f *fakeTodoAPI) ListTodos(context.Context) ([]dillyapi.Todo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "list")
	if f.listErr != nil {
		return nil, f.listErr
	}
	return slices.Clone(f.todos), nil
}

func (f *fakeTodoAPI) CreateTodo(_ context.Context, text string) (*dillyapi.Todo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("create"); err != nil {
		return nil, err
	}
	f.nextID++
	t := dillyapi.Todo{ID: 100 + f.nextID, Text: text, SortOrder: len(f.todos)}
	f.todos = append(f.todos, t)
	return &t, nil
}

func (f *fakeTodoAPI) UpdateTodo(_ context.Context, id int64, patch dillyapi.UpdateTodoRequest) (*dillyapi.Todo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("update"); err != nil {
		return nil, err
	}
	i := slices.IndexFunc(f.todos, func(t dillyapi.Todo) bool { return t.ID == id })
	if i < 0 {
		return nil, &APIError{Status: 404, Message: "Todo not found"}
	}
	if patch.Text != nil {
		f.todos[i].Text = *patch.Text
	}
	if patch.Completed != nil {
		f.todos[i].Completed = *patch.Completed
	}
	t := f.todos[i]
	return &t, nil
}

func (f *fakeTodoAPI) DeleteTodo(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("delete"); err != nil {
		return err
	}
	f.todos = slices.DeleteFunc(f.todos, func(t dillyapi.Todo) bool { return t.ID == id })
	return nil
}

func (f *fakeTodoAPI) ReorderTodos(_ context.Context, ids []int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("reorder"); err != nil {
		return err
	}
	next := make([]dillyapi.Todo, 0, len(ids))
	for i, id := range ids {
		j := slices.IndexFunc(f.todos, func(t dillyapi.Todo) bool { return t.ID == id })
		if j < 0 {
			return &APIError{Status: 400, Message: "Invalid todo ID"}
		}
		t := f.todos[j]
		t.SortOrder = i
		next = append(next, t)
	}
	f.todos = next
	return nil
}

func (f *fakeTodoAPI) SaveTemplate(context.Context) ([]dillyapi.TemplateItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("save-template"); err != nil {
		return nil, err
	}
	f.template = f.template[:0]
	for _, t := range f.todos {
		f.template = append(f.template, dillyapi.TemplateItem{ID: t.ID, Text: t.Text, SortOrder: t.SortOrder})
	}
	return slices.Clone(f.template), nil
}

func (f *fakeTodoAPI) ResetTemplate(context.Context) ([]dillyapi.Todo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("reset-template"); err != nil {
		return nil, err
	}
	if len(f.template) == 0 {
		return nil, &APIError{Status: 400, Message: "No template saved. Save a template first."}
	}
	f.todos = f.todos[:0]
	for _, item := range f.template {
		f.nextID++
		f.todos = append(f.todos, dillyapi.Todo{ID: 100 + f.nextID, Text: item.Text, SortOrder: item.SortOrder})
	}
	return slices.Clone(f.todos), nil
}

func (f *fakeTodoAPI) setFail(err error) {
	f.mu.Lock()
	f.fail = err
	f.mu.Unlock()
}

// fakeTrackerAPI is a TrackerService holding the server's view of the trackers
type fakeTrackerAPI struct {
	mu       sync.Mutex
	clock    Clock
	trackers []dillyapi.Tracker
	nextID   int64
	fail     error
	listErr  error
	calls    []string
}

func (f *fakeTrackerAPI) record(method string) error {
	f.calls = append(f.calls, method)
	return f.fail
}

func (f *fakeTrackerAPI) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

func (f *fakeTrackerAPI) ListTrackers(context.Context) ([]dillyapi.Tracker, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "list")
	if f.listErr != nil {
		return nil, f.listErr
	}
	return slices.Clone(f.trackers), nil
}

func (f *fakeTrackerAPI) CreateTracker(_ context.Context, name, icon string) (*dillyapi.Tracker, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("create"); err != nil {
		return nil, err
	}
	f.nextID++
	now := f.clock.Now().UTC()
	t := dillyapi.Tracker{ID: 200 + f.nextID, Name: name, Icon: icon, LastReset: now, CreatedAt: now, UpdatedAt: now}
	f.trackers = append(f.trackers, t)
	return &t, nil
}

func (f *fakeTrackerAPI) UpdateTracker(_ context.Context, id int64, patch dillyapi.UpdateTrackerRequest) (*dillyapi.Tracker, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("update"); err != nil {
		return nil, err
	}
	i := slices.IndexFunc(f.trackers, func(t dillyapi.Tracker) bool { return t.ID == id })
	if i < 0 {
		return nil, &APIError{Status: 404, Message: "Tracker not found"}
	}
	if patch.Name != nil {
		f.trackers[i].Name = *patch.Name
	}
	if patch.Icon != nil {
		f.trackers[i].Icon = *patch.Icon
	}
	t := f.trackers[i]
	return &t, nil
}

func (f *fakeTrackerAPI) DeleteTracker(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("delete"); err != nil {
		return err
	}
	f.trackers = slices.DeleteFunc(f.trackers, func(t dillyapi.Tracker) bool { return t.ID == id })
	return nil
}

func (f *fakeTrackerAPI) ResetTracker(_ context.Context, id int64) (*dillyapi.Tracker, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("reset"); err != nil {
		return nil, err
	}
	i := slices.IndexFunc(f.trackers, func(t dillyapi.Tracker) bool { return t.ID == id })
	if i < 0 {
		return nil, &APIError{Status: 404, Message: "Tracker not found"}
	}
	f.trackers[i].LastReset = f.clock.Now().UTC().Add(500 * time.Millisecond)
	t := f.trackers[i]
	return &t, nil
}

func (f *fakeTrackerAPI) setFail(err error) {
	f.mu.Lock()
	f.fail = err
	f.mu.Unlock()
}

var errNetworkDown = &NetworkError{Endpoint: "/todos", Err: errors.New("connection refused")}
