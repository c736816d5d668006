// Copyright 2025 James Stopford
// SPDX-License-Identifier: Apache-2.0

package dillyclient

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"sync"
	"sync/atomic"
	"time"
)

// Signal is a platform event the client reacts to
type Signal int

const (
	SignalOnline Signal = iota + 1
	SignalOffline
	SignalVisible // App brought to the foreground
	SignalFocus
)

func (s Signal) String() string {
	switch s {
	case SignalOnline:
		return "online"
	case SignalOffline:
		return "offline"
	case SignalVisible:
		return "visible"
	case SignalFocus:
		return "focus"
	default:
		return fmt.Sprintf("signal(%d)", int(s))
	}
}

// Platform is the source of connectivity and foreground signals
type Platform interface {
	// Online reports the platform's current view of connectivity
	Online() bool
	// Subscribe registers fn for every signal until unsubscribe is called
	Subscribe(fn func(Signal)) (unsubscribe func())
}

type signalHub struct {
	mu   sync.Mutex
	subs map[int]func(Signal)
	next int
}

func (h *signalHub) subscribe(fn func(Signal)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs == nil {
		h.subs = make(map[int]func(Signal))
	}
	id := h.next
	h.next++
	h.subs[id] = fn
	return func() {
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
	}
}

func (h *signalHub) emit(sig Signal) {
	h.mu.Lock()
	subs := make([]func(Signal), 0, len(h.subs))
	for _, fn := range h.subs {
		subs = append(subs, fn)
	}
	h.mu.Unlock()
	for _, fn := range subs {
		fn(sig)
	}
}

func (h *signalHub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// ManualPlatform is a Platform driven by explicit calls; signals are delivered synchronously
type ManualPlatform struct {
	hub    signalHub
	online atomic.Bool
}

// NewManualPlatform creates a platform with the given initial connectivity
func NewManualPlatform(online bool) *ManualPlatform {
	p := &ManualPlatform{}
	p.online.Store(online)
	return p
}

func (p *ManualPlatform) Online() bool { return p.online.Load() }

func (p *ManualPlatform) Subscribe(fn func(Signal)) func() { return p.hub.subscribe(fn) }

// Subscribers returns the number of live subscriptions
func (p *ManualPlatform) Subscribers() int { return p.hub.count() }

// SetOnline changes connectivity and emits SignalOnline or SignalOffline when it changed
func (p *ManualPlatform) SetOnline(online bool) {
	if p.online.Swap(online) == online {
		return
	}
	if online {
		p.hub.emit(SignalOnline)
	} else {
		p.hub.emit(SignalOffline)
	}
}

// Emit delivers sig to subscribers without changing connectivity
func (p *ManualPlatform) Emit(sig Signal) {
	p.hub.emit(sig)
}

// ProbePlatform derives connectivity from periodic TCP dials to the server
type ProbePlatform struct {
	address  string
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger
	dialer   net.Dialer

	hub    signalHub
	online atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewProbePlatform creates a probe for the host of serverURL
func NewProbePlatform(serverURL string, interval time.Duration, logger *slog.Logger) (*ProbePlatform, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse server url: %w", err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("server url %q has no host", serverURL)
	}
	port := u.Port()
	if port == "" {
		port = "80"
		if u.Scheme == "https" {
			port = "443"
		}
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	p := &ProbePlatform{
		address:  net.JoinHostPort(u.Hostname(), port),
		interval: interval,
		timeout:  2 * time.Second,
		logger:   logger,
	}
	p.online.Store(true)
	return p, nil
}

func (p *ProbePlatform) Online() bool { return p.online.Load() }

func (p *ProbePlatform) Subscribe(fn func(Signal)) func() { return p.hub.subscribe(fn) }

// Emit delivers sig to subscribers without changing connectivity
func (p *ProbePlatform) Emit(sig Signal) {
	p.hub.emit(sig)
}

// Start probes once synchronously, then keeps probing in the background until Stop
func (p *ProbePlatform) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}
	p.online.Store(p.probe(ctx))

	probeCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-probeCtx.Done():
				return
			case <-ticker.C:
				p.update(p.probe(probeCtx))
			}
		}
	}()
}

// Stop ends background probing
func (p *ProbePlatform) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()
	if cancel != nil {
		cancel()
		p.wg.Wait()
	}
}

func (p *ProbePlatform) probe(ctx context.Context) bool {
	dialCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	conn, err := p.dialer.DialContext(dialCtx, "tcp", p.address)
	if err != nil {
		p.logger.Debug("Connectivity probe failed", "address", p.address, "error", err)
		return false
	}
	_ = conn.Close()
	return true
}

func (p *ProbePlatform) update(online bool) {
	if p.online.Swap(online) == online {
		return
	}
	if online {
		p.hub.emit(SignalOnline)
	} else {
		p.hub.emit(SignalOffline)
	}
}
