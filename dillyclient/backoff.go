// Copyright 2025 James Stopford
// SPDX-License-Identifier: Apache-2.0

package dillyclient

import (
	"math"
	"time"
)

// MaxJitter is the ceiling of the random fraction added to each backoff delay
const MaxJitter = 0.3

// RetryPolicy configures the request client's retries
type RetryPolicy struct {
	MaxRetries    int           // Retries after the first attempt (0 disables retrying)
	BaseDelay     time.Duration // Delay before the first retry, before jitter
	MaxDelay      time.Duration // Cap applied before and after jitter
	BackoffFactor float64       // Growth per attempt, > 1
}

// DefaultRetryPolicy returns 3 retries starting at 1s, doubling, capped at 30s
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:    3,
		BaseDelay:     time.Second,
		MaxDelay:      30 * time.Second,
		BackoffFactor: 2,
	}
}

// BackoffDelay returns min(base * factor^attempt * (1 + jitter), max).
// attempt is zero-indexed and jitter is a sample from [0, MaxJitter).
func BackoffDelay(attempt int, policy RetryPolicy, jitter float64) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if jitter < 0 {
		jitter = 0
	}
	maxDelay := float64(policy.MaxDelay)
	delay := float64(policy.BaseDelay) * math.Pow(policy.BackoffFactor, float64(attempt))
	if delay > maxDelay || math.IsInf(delay, 1) {
		delay = maxDelay
	}
	delay *= 1 + jitter
	if delay > maxDelay {
		delay = maxDelay
	}
	return time.Duration(delay)
}
