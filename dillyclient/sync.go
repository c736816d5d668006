// Copyright 2025 James Stopford
// SPDX-License-Identifier: Apache-2.0

package dillyclient

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// SyncState is the visible state of the sync indicator
type SyncState string

const (
	SyncIdle    SyncState = "idle"
	SyncSyncing SyncState = "syncing"
	SyncSynced  SyncState = "synced"
	SyncError   SyncState = "error"
)

const (
	DefaultPollingInterval = 30 * time.Second
	MinPollingInterval     = 5 * time.Second
	MaxPollingInterval     = 5 * time.Minute
	SyncedFeedbackDuration = 2 * time.Second
)

// SyncStatus is a snapshot of the sync loop
type SyncStatus struct {
	State            SyncState
	LastSyncTime     time.Time // Zero until the first successful sync
	LastTodosHash    string
	LastTrackersHash string
	Error            string
	PollingInterval  time.Duration
	IsPollingActive  bool
	SyncCount        int
}

// SyncResult is the outcome of one PerformSync call
type SyncResult struct {
	Success         bool
	Reason          string // "offline" when skipped
	Error           string
	TodosChanged    bool
	TrackersChanged bool
}

// Collection is a store the sync loop can refresh from the server
type Collection interface {
	// Sync replaces local items with the server's
	Sync(ctx context.Context) Result
	// Fingerprint hashes the current items
	Fingerprint() string
}

// ClampPollingInterval bounds d to [MinPollingInterval, MaxPollingInterval]
func ClampPollingInterval(d time.Duration) time.Duration {
	return max(MinPollingInterval, min(d, MaxPollingInterval))
}

// SyncLoop pulls both collections from the server on a timer, on platform
// foreground signals and on demand. Server state always wins.
type SyncLoop struct {
	todos    Collection
	trackers Collection
	network  *ConnectivityTracker
	platform Platform
	clock    Clock
	logger   *slog.Logger
	status   *Observable[SyncStatus]

	ctx    context.Context
	cancel context.CancelFunc

	mu            sync.Mutex
	pollTimer     Timer
	pollGen       uint64
	feedbackTimer Timer
	unsubscribe   func()
	destroyed     bool
}

// NewSyncLoop creates a loop over todos and trackers. interval is clamped.
func NewSyncLoop(todos, trackers Collection, network *ConnectivityTracker, platform Platform, clock Clock, interval time.Duration, logger *slog.Logger) *SyncLoop {
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = DefaultPollingInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &SyncLoop{
		todos:    todos,
		trackers: trackers,
		network:  network,
		platform: platform,
		clock:    clock,
		logger:   logger,
		status:   NewObservable(SyncStatus{State: SyncIdle, PollingInterval: ClampPollingInterval(interval)}),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Status returns the current snapshot
func (l *SyncLoop) Status() SyncStatus { return l.status.Get() }

// Subscribe observes status changes
func (l *SyncLoop) Subscribe(fn func(SyncStatus)) func() { return l.status.Subscribe(fn) }

func (l *SyncLoop) IsSyncing() bool { return l.status.Get().State == SyncSyncing }

func (l *SyncLoop) IsSynced() bool { return l.status.Get().State == SyncSynced }

// Init subscribes to platform foreground signals, syncs once visibly and starts polling
func (l *SyncLoop) Init(ctx context.Context) SyncResult {
	l.mu.Lock()
	if l.destroyed {
		l.mu.Unlock()
		return SyncResult{Error: "sync loop destroyed"}
	}
	if l.unsubscribe == nil && l.platform != nil {
		l.unsubscribe = l.platform.Subscribe(l.handleSignal)
	}
	l.mu.Unlock()

	res := l.PerformSync(ctx, false)
	l.StartPolling()
	return res
}

func (l *SyncLoop) handleSignal(sig Signal) {
	switch sig {
	case SignalVisible, SignalFocus:
		l.logger.Debug("Foreground signal, syncing", "signal", sig.String())
		l.PerformSync(l.ctx, true)
	}
}

// PerformSync reloads both collections concurrently.
// A silent sync leaves the visible state alone unless it fails.
func (l *SyncLoop) PerformSync(ctx context.Context, silent bool) SyncResult {
	if l.network.IsOffline() {
		l.logger.Debug("Skipping sync while offline")
		return SyncResult{Reason: "offline"}
	}

	if !silent {
		l.mu.Lock()
		l.feedbackTimer = stopTimer(l.feedbackTimer)
		l.mu.Unlock()
		l.status.Update(func(s SyncStatus) SyncStatus {
			s.State = SyncSyncing
			s.Error = ""
			return s
		})
	}

	todosRes, trackersRes, err := l.loadBoth(ctx)
	if err == nil && !todosRes.Success {
		err = fmt.Errorf("%s", messageOr(todosRes.Error, "Sync failed"))
	}
	if err == nil && !trackersRes.Success {
		err = fmt.Errorf("%s", messageOr(trackersRes.Error, "Sync failed"))
	}
	if err != nil {
		l.logger.Warn("Sync failed", "error", err, "silent", silent)
		l.status.Update(func(s SyncStatus) SyncStatus {
			s.State = SyncError
			s.Error = err.Error()
			return s
		})
		return SyncResult{Error: err.Error()}
	}

	todosHash := l.todos.Fingerprint()
	trackersHash := l.trackers.Fingerprint()
	now := l.clock.Now()
	var result SyncResult
	l.status.Update(func(s SyncStatus) SyncStatus {
		result = SyncResult{
			Success:         true,
			TodosChanged:    s.LastTodosHash != "" && s.LastTodosHash != todosHash,
			TrackersChanged: s.LastTrackersHash != "" && s.LastTrackersHash != trackersHash,
		}
		s.LastSyncTime = now
		s.LastTodosHash = todosHash
		s.LastTrackersHash = trackersHash
		s.SyncCount++
		s.Error = ""
		if !silent {
			s.State = SyncSynced
		}
		return s
	})
	if result.TodosChanged || result.TrackersChanged {
		l.logger.Debug("Sync detected changes", "todos", result.TodosChanged, "trackers", result.TrackersChanged)
	}

	if !silent {
		l.scheduleIdle()
	}
	return result
}

// loadBoth refreshes both collections in parallel. A panic in either becomes an error.
func (l *SyncLoop) loadBoth(ctx context.Context) (todosRes, trackersRes Result, err error) {
	var g errgroup.Group
	g.Go(func() error {
		return safeSync(ctx, "todos", l.todos, &todosRes)
	})
	g.Go(func() error {
		return safeSync(ctx, "trackers", l.trackers, &trackersRes)
	})
	err = g.Wait()
	return todosRes, trackersRes, err
}

func safeSync(ctx context.Context, name string, c Collection, out *Result) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s sync panicked: %v", name, r)
		}
	}()
	*out = c.Sync(ctx)
	return nil
}

func messageOr(msg, fallback string) string {
	if msg == "" {
		return fallback
	}
	return msg
}

// scheduleIdle returns a SYNCED indicator to IDLE after SyncedFeedbackDuration
func (l *SyncLoop) scheduleIdle() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.destroyed {
		return
	}
	l.feedbackTimer = stopTimer(l.feedbackTimer)
	var timer Timer
	timer = l.clock.AfterFunc(SyncedFeedbackDuration, func() {
		l.mu.Lock()
		current := l.feedbackTimer == timer
		if current {
			l.feedbackTimer = nil
		}
		l.mu.Unlock()
		if !current {
			return
		}
		l.status.Update(func(s SyncStatus) SyncStatus {
			if s.State == SyncSynced {
				s.State = SyncIdle
			}
			return s
		})
	})
	l.feedbackTimer = timer
}

// Refresh is a manual, always visible sync
func (l *SyncLoop) Refresh(ctx context.Context) SyncResult {
	return l.PerformSync(ctx, false)
}

// StartPolling schedules silent syncs at the current interval
func (l *SyncLoop) StartPolling() {
	l.mu.Lock()
	if l.destroyed || l.pollTimer != nil {
		l.mu.Unlock()
		return
	}
	l.pollGen++
	l.schedulePollLocked(l.pollGen)
	l.mu.Unlock()

	l.status.Update(func(s SyncStatus) SyncStatus {
		s.IsPollingActive = true
		return s
	})
	l.logger.Debug("Polling started", "interval", l.status.Get().PollingInterval)
}

// schedulePollLocked arms the next tick, reading the interval afresh. Caller holds l.mu.
func (l *SyncLoop) schedulePollLocked(gen uint64) {
	interval := l.status.Get().PollingInterval
	l.pollTimer = l.clock.AfterFunc(interval, func() { l.poll(gen) })
}

func (l *SyncLoop) poll(gen uint64) {
	l.mu.Lock()
	if l.destroyed || gen != l.pollGen {
		l.mu.Unlock()
		return
	}
	l.mu.Unlock()

	l.PerformSync(l.ctx, true)

	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.destroyed && gen == l.pollGen {
		l.schedulePollLocked(gen)
	}
}

// StopPolling cancels the pending tick. An in-flight sync completes normally.
func (l *SyncLoop) StopPolling() {
	l.mu.Lock()
	l.pollTimer = stopTimer(l.pollTimer)
	l.pollGen++
	l.mu.Unlock()

	l.status.Update(func(s SyncStatus) SyncStatus {
		s.IsPollingActive = false
		return s
	})
}

// PausePolling stops polling and keeps the configured interval
func (l *SyncLoop) PausePolling() { l.StopPolling() }

// ResumePolling restarts polling if it is not running
func (l *SyncLoop) ResumePolling() {
	if !l.status.Get().IsPollingActive {
		l.StartPolling()
	}
}

// SetPollingInterval clamps d and restarts an active loop with it
func (l *SyncLoop) SetPollingInterval(d time.Duration) time.Duration {
	d = ClampPollingInterval(d)
	l.status.Update(func(s SyncStatus) SyncStatus {
		s.PollingInterval = d
		return s
	})
	if l.status.Get().IsPollingActive {
		l.StopPolling()
		l.StartPolling()
	}
	return d
}

// ClearError returns an ERROR indicator to IDLE
func (l *SyncLoop) ClearError() {
	l.status.Update(func(s SyncStatus) SyncStatus {
		s.Error = ""
		if s.State == SyncError {
			s.State = SyncIdle
		}
		return s
	})
}

// Reset stops polling and forgets sync history, keeping the interval
func (l *SyncLoop) Reset() {
	l.StopPolling()
	l.mu.Lock()
	l.feedbackTimer = stopTimer(l.feedbackTimer)
	l.mu.Unlock()
	l.status.Update(func(s SyncStatus) SyncStatus {
		return SyncStatus{State: SyncIdle, PollingInterval: s.PollingInterval}
	})
}

// Destroy clears timers, detaches from the platform and cancels background syncs
func (l *SyncLoop) Destroy() {
	l.StopPolling()
	l.mu.Lock()
	l.destroyed = true
	l.feedbackTimer = stopTimer(l.feedbackTimer)
	if l.unsubscribe != nil {
		l.unsubscribe()
		l.unsubscribe = nil
	}
	l.mu.Unlock()
	l.cancel()
}
