// Copyright 2025 James Stopford
// SPDX-License-Identifier: Apache-2.0

package dillyclient

import (
	"context"
	"time"
)

// Clock is the time source of the client. Every delay the SDK waits on
// (backoff sleeps, banner grace, feedback clears, polling) goes through it.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a cancellable scheduled task
type Timer interface {
	Stop() bool
}

// SystemClock is the wall clock
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

func (SystemClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// sleepWithContext waits d on clock, returning early with ctx.Err() on cancellation
func sleepWithContext(ctx context.Context, clock Clock, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	done := make(chan struct{})
	timer := clock.AfterFunc(d, func() { close(done) })
	defer timer.Stop()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// stopTimer stops t if it is set and returns nil for assignment back to the holder
func stopTimer(t Timer) Timer {
	if t != nil {
		t.Stop()
	}
	return nil
}
