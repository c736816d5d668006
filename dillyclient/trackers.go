// Copyright 2025 James Stopford
// SPDX-License-Identifier: Apache-2.0

package dillyclient

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/jamesstopford/big-dilly/dillyapi"
)

// TrackerService is the server surface the tracker store needs; *Client implements it
type TrackerService interface {
	ListTrackers(ctx context.Context) ([]dillyapi.Tracker, error)
	CreateTracker(ctx context.Context, name, icon string) (*dillyapi.Tracker, error)
	UpdateTracker(ctx context.Context, id int64, patch dillyapi.UpdateTrackerRequest) (*dillyapi.Tracker, error)
	DeleteTracker(ctx context.Context, id int64) error
	ResetTracker(ctx context.Context, id int64) (*dillyapi.Tracker, error)
}

// TrackerState is a snapshot of the tracker store
type TrackerState struct {
	Items   []dillyapi.Tracker
	Loading bool
	Error   string
}

// TrackerPatch carries an update; nil fields are left untouched
type TrackerPatch struct {
	Name *string
	Icon *string
}

// TrackerStore mirrors the server's trackers with optimistic updates
type TrackerStore struct {
	api      TrackerService
	state    *Observable[TrackerState]
	clock    Clock
	logger   *slog.Logger
	maxItems int
}

// NewTrackerStore creates an empty store
func NewTrackerStore(api TrackerService, clock Clock, logger *slog.Logger) *TrackerStore {
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TrackerStore{
		api:      api,
		state:    NewObservable(TrackerState{Items: []dillyapi.Tracker{}}),
		clock:    clock,
		logger:   logger,
		maxItems: dillyapi.MaxTrackers,
	}
}

func (s *TrackerStore) State() TrackerState { return s.state.Get() }

func (s *TrackerStore) Items() []dillyapi.Tracker { return s.state.Get().Items }

func (s *TrackerStore) Subscribe(fn func(TrackerState)) func() { return s.state.Subscribe(fn) }

func (s *TrackerStore) Count() int { return len(s.Items()) }

func (s *TrackerStore) IsMax() bool { return s.Count() >= s.maxItems }

// Fingerprint hashes the current trackers
func (s *TrackerStore) Fingerprint() string { return FingerprintTrackers(s.Items()) }

func (s *TrackerStore) mapItems(fn func(dillyapi.Tracker) dillyapi.Tracker) {
	s.state.Update(func(st TrackerState) TrackerState {
		next := make([]dillyapi.Tracker, len(st.Items))
		for i, t := range st.Items {
			next[i] = fn(t)
		}
		st.Items = next
		return st
	})
}

// Load replaces the local trackers with the server's
func (s *TrackerStore) Load(ctx context.Context) Result {
	s.state.Update(func(st TrackerState) TrackerState {
		st.Loading = true
		st.Error = ""
		return st
	})

	trackers, err := s.api.ListTrackers(ctx)
	if err != nil {
		msg := errorMessage(err, "Failed to load trackers")
		s.logger.Warn("Failed to load trackers", "error", err)
		s.state.Update(func(st TrackerState) TrackerState {
			st.Loading = false
			st.Error = msg
			return st
		})
		return rejected(msg)
	}

	if trackers == nil {
		trackers = []dillyapi.Tracker{}
	}
	s.state.Update(func(st TrackerState) TrackerState {
		st.Items = trackers
		st.Loading = false
		return st
	})
	return succeeded()
}

// Sync replaces the local trackers without touching Loading or Error
func (s *TrackerStore) Sync(ctx context.Context) Result {
	trackers, err := s.api.ListTrackers(ctx)
	if err != nil {
		return failed(err, "Failed to load trackers")
	}
	if trackers == nil {
		trackers = []dillyapi.Tracker{}
	}
	s.state.Update(func(st TrackerState) TrackerState {
		st.Items = trackers
		return st
	})
	return succeeded()
}

// Create adds a tracker once the server has confirmed it
func (s *TrackerStore) Create(ctx context.Context, name, icon string) Result {
	name = strings.TrimSpace(name)
	if name == "" {
		return rejected("Tracker name is required")
	}
	if strings.TrimSpace(icon) == "" {
		return rejected("Tracker icon is required")
	}
	if s.IsMax() {
		return rejected(fmt.Sprintf("Maximum of %d trackers allowed", s.maxItems))
	}

	tracker, err := s.api.CreateTracker(ctx, name, icon)
	if err != nil {
		return failed(err, "Failed to create tracker")
	}
	s.state.Update(func(st TrackerState) TrackerState {
		st.Items = append(slices.Clip(st.Items), *tracker)
		return st
	})
	return succeeded()
}

// Update renames or re-icons a tracker locally, then on the server.
// A server failure reloads the whole collection.
func (s *TrackerStore) Update(ctx context.Context, id int64, patch TrackerPatch) Result {
	req := dillyapi.UpdateTrackerRequest{Icon: patch.Icon}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return rejected("Tracker name is required")
		}
		req.Name = &name
	}
	if req.Name == nil && req.Icon == nil {
		return rejected("No valid fields to update")
	}

	s.mapItems(func(t dillyapi.Tracker) dillyapi.Tracker {
		if t.ID == id {
			if req.Name != nil {
				t.Name = *req.Name
			}
			if req.Icon != nil {
				t.Icon = *req.Icon
			}
		}
		return t
	})

	if _, err := s.api.UpdateTracker(ctx, id, req); err != nil {
		s.Load(ctx)
		return failed(err, "Failed to update tracker")
	}
	return succeeded()
}

// Delete removes a tracker locally, then on the server. A server failure puts it back at its index.
func (s *TrackerStore) Delete(ctx context.Context, id int64) Result {
	index := -1
	var removed dillyapi.Tracker
	s.state.Update(func(st TrackerState) TrackerState {
		index = slices.IndexFunc(st.Items, func(t dillyapi.Tracker) bool { return t.ID == id })
		if index >= 0 {
			removed = st.Items[index]
			st.Items = slices.Delete(slices.Clone(st.Items), index, index+1)
		}
		return st
	})

	if err := s.api.DeleteTracker(ctx, id); err != nil {
		if index >= 0 {
			s.state.Update(func(st TrackerState) TrackerState {
				st.Items = slices.Insert(slices.Clone(st.Items), min(index, len(st.Items)), removed)
				return st
			})
		}
		return failed(err, "Failed to delete tracker")
	}
	return succeeded()
}

// ResetTimer sets last_reset to now locally and adopts the server's timestamp on success.
// A server failure reloads the whole collection.
func (s *TrackerStore) ResetTimer(ctx context.Context, id int64) Result {
	now := s.clock.Now().UTC().Truncate(time.Second)
	s.mapItems(func(t dillyapi.Tracker) dillyapi.Tracker {
		if t.ID == id {
			t.LastReset = now
		}
		return t
	})

	tracker, err := s.api.ResetTracker(ctx, id)
	if err != nil {
		s.Load(ctx)
		return failed(err, "Failed to reset tracker")
	}
	s.mapItems(func(t dillyapi.Tracker) dillyapi.Tracker {
		if t.ID == id {
			return *tracker
		}
		return t
	})
	return succeeded()
}

// ClearError dismisses the load error
func (s *TrackerStore) ClearError() {
	s.state.Update(func(st TrackerState) TrackerState {
		st.Error = ""
		return st
	})
}

// Reset drops all local state, e.g. on logout
func (s *TrackerStore) Reset() {
	s.state.Set(TrackerState{Items: []dillyapi.Tracker{}})
}
