// Copyright 2025 James Stopford
// SPDX-License-Identifier: Apache-2.0

package dillyclient

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"
)

// NetworkState is the connectivity state machine's state
type NetworkState string

const (
	NetworkOnline       NetworkState = "online"
	NetworkOffline      NetworkState = "offline"
	NetworkReconnecting NetworkState = "reconnecting"
)

// BannerGracePeriod is how long the "back online" banner stays up
const BannerGracePeriod = 3 * time.Second

const bannerKey = "network-banner"

// NetworkStatus is a snapshot of the tracker
type NetworkStatus struct {
	State       NetworkState
	LastOnline  time.Time // Zero until the first transition to online
	LastOffline time.Time // Zero until the first transition to offline
	RetryCount  int
	ShowBanner  bool
}

// ConnectivityTracker follows platform signals and request outcomes.
// Construct one per client process; Init subscribes to the platform and Destroy detaches.
type ConnectivityTracker struct {
	status   *Observable[NetworkStatus]
	platform Platform
	clock    Clock
	prefs    KeyValueStore
	logger   *slog.Logger

	mu            sync.Mutex
	bannerTimer   Timer
	unsubscribe   func()
	unwatch       func()

	persistMu     sync.Mutex
	persistedShow *bool
}

// NewConnectivityTracker creates a tracker. prefs may be nil to skip banner persistence.
func NewConnectivityTracker(platform Platform, clock Clock, prefs KeyValueStore, logger *slog.Logger) *ConnectivityTracker {
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	online := platform.Online()
	status := NetworkStatus{State: NetworkOnline, ShowBanner: !online}
	if !online {
		status.State = NetworkOffline
	}
	return &ConnectivityTracker{
		status:   NewObservable(status),
		platform: platform,
		clock:    clock,
		prefs:    prefs,
		logger:   logger,
	}
}

// Init reads the platform state and starts following its signals
func (t *ConnectivityTracker) Init(ctx context.Context) {
	t.mu.Lock()
	if t.unsubscribe != nil {
		t.mu.Unlock()
		return
	}
	t.unsubscribe = t.platform.Subscribe(t.handleSignal)
	t.mu.Unlock()

	online := t.platform.Online()
	now := t.clock.Now()
	t.status.Update(func(s NetworkStatus) NetworkStatus {
		if online {
			s.State = NetworkOnline
			s.LastOnline = now
		} else {
			s.State = NetworkOffline
			s.LastOffline = now
			s.ShowBanner = true
		}
		return s
	})

	if t.prefs != nil {
		if online && t.loadPersistedBanner(ctx) {
			t.showBannerTemporarily()
		}
		unwatch := t.status.Subscribe(t.persistBanner)
		t.mu.Lock()
		t.unwatch = unwatch
		t.mu.Unlock()
	}
}

// Destroy cancels the banner timer and stops following platform signals
func (t *ConnectivityTracker) Destroy() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.bannerTimer = stopTimer(t.bannerTimer)
	if t.unsubscribe != nil {
		t.unsubscribe()
		t.unsubscribe = nil
	}
	if t.unwatch != nil {
		t.unwatch()
		t.unwatch = nil
	}
}

func (t *ConnectivityTracker) handleSignal(sig Signal) {
	switch sig {
	case SignalOnline:
		t.handleOnline()
	case SignalOffline:
		t.handleOffline()
	}
}

func (t *ConnectivityTracker) handleOnline() {
	now := t.clock.Now()
	t.status.Update(func(s NetworkStatus) NetworkStatus {
		s.State = NetworkOnline
		s.LastOnline = now
		s.RetryCount = 0
		return s
	})
	t.logger.Info("Network connection restored")
	t.showBannerTemporarily()
}

func (t *ConnectivityTracker) handleOffline() {
	t.cancelBannerTimer()
	now := t.clock.Now()
	t.status.Update(func(s NetworkStatus) NetworkStatus {
		s.State = NetworkOffline
		s.LastOffline = now
		s.ShowBanner = true
		return s
	})
	t.logger.Warn("Network connection lost")
}

// showBannerTemporarily shows the banner and hides it after the grace period if still online
func (t *ConnectivityTracker) showBannerTemporarily() {
	t.status.Update(func(s NetworkStatus) NetworkStatus {
		s.ShowBanner = true
		return s
	})

	t.mu.Lock()
	defer t.mu.Unlock()
	t.bannerTimer = stopTimer(t.bannerTimer)
	var timer Timer
	timer = t.clock.AfterFunc(BannerGracePeriod, func() {
		t.mu.Lock()
		current := t.bannerTimer == timer
		if current {
			t.bannerTimer = nil
		}
		t.mu.Unlock()
		if !current {
			return
		}
		t.status.Update(func(s NetworkStatus) NetworkStatus {
			if s.State == NetworkOnline {
				s.ShowBanner = false
			}
			return s
		})
	})
	t.bannerTimer = timer
}

func (t *ConnectivityTracker) cancelBannerTimer() {
	t.mu.Lock()
	t.bannerTimer = stopTimer(t.bannerTimer)
	t.mu.Unlock()
}

// SetReconnecting is called by the request client when it enters a retry attempt
func (t *ConnectivityTracker) SetReconnecting() {
	t.status.Update(func(s NetworkStatus) NetworkStatus {
		s.State = NetworkReconnecting
		s.ShowBanner = true
		return s
	})
}

// IncrementRetry counts one more retry attempt
func (t *ConnectivityTracker) IncrementRetry() {
	t.status.Update(func(s NetworkStatus) NetworkStatus {
		s.RetryCount++
		return s
	})
}

// ResetRetries clears the retry counter
func (t *ConnectivityTracker) ResetRetries() {
	t.status.Update(func(s NetworkStatus) NetworkStatus {
		s.RetryCount = 0
		return s
	})
}

// MarkOnline records a successful response
func (t *ConnectivityTracker) MarkOnline() {
	now := t.clock.Now()
	var restored bool
	t.status.Update(func(s NetworkStatus) NetworkStatus {
		restored = s.State != NetworkOnline
		if restored {
			s.State = NetworkOnline
			s.LastOnline = now
		}
		s.RetryCount = 0
		return s
	})
	if restored {
		t.logger.Info("Network connection restored")
		t.showBannerTemporarily()
	}
}

// MarkOffline records a terminal network failure
func (t *ConnectivityTracker) MarkOffline() {
	var wasOffline bool
	now := t.clock.Now()
	t.status.Update(func(s NetworkStatus) NetworkStatus {
		wasOffline = s.State == NetworkOffline
		s.ShowBanner = true
		if !wasOffline {
			s.State = NetworkOffline
			s.LastOffline = now
		}
		return s
	})
	if !wasOffline {
		t.cancelBannerTimer()
		t.logger.Warn("Network marked offline")
	}
}

// DismissBanner hides the banner without changing the connectivity state
func (t *ConnectivityTracker) DismissBanner() {
	t.cancelBannerTimer()
	t.status.Update(func(s NetworkStatus) NetworkStatus {
		s.ShowBanner = false
		return s
	})
}

// Status returns the current snapshot
func (t *ConnectivityTracker) Status() NetworkStatus { return t.status.Get() }

// Subscribe observes status changes
func (t *ConnectivityTracker) Subscribe(fn func(NetworkStatus)) func() { return t.status.Subscribe(fn) }

func (t *ConnectivityTracker) IsOnline() bool { return t.status.Get().State == NetworkOnline }

func (t *ConnectivityTracker) IsOffline() bool { return t.status.Get().State == NetworkOffline }

func (t *ConnectivityTracker) IsReconnecting() bool {
	return t.status.Get().State == NetworkReconnecting
}

func (t *ConnectivityTracker) BannerVisible() bool { return t.status.Get().ShowBanner }

func (t *ConnectivityTracker) loadPersistedBanner(ctx context.Context) bool {
	raw, ok, err := t.prefs.Get(ctx, bannerKey)
	if err != nil {
		t.logger.Warn("Failed to read banner state", "error", err)
		return false
	}
	if !ok {
		return false
	}
	show, err := strconv.ParseBool(raw)
	return err == nil && show
}

func (t *ConnectivityTracker) persistBanner(NetworkStatus) {
	t.persistMu.Lock()
	defer t.persistMu.Unlock()

	// Notifications from concurrent updates may arrive out of order; always save the latest value
	show := t.status.Get().ShowBanner
	if t.persistedShow != nil && *t.persistedShow == show {
		return
	}
	if err := t.prefs.Set(context.Background(), bannerKey, strconv.FormatBool(show)); err != nil {
		t.logger.Warn("Failed to persist banner state", "error", err)
		return
	}
	t.persistedShow = &show
}
