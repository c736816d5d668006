// Copyright 2025 James Stopford
// SPDX-License-Identifier: Apache-2.0

package dillyclient

import (
	"log/slog"
	"net/http"
	"time"
)

// Config holds configuration for the client SDK
type Config struct {
	Retry        RetryPolicy   // Request retry policy
	PollInterval time.Duration // Initial sync polling interval, clamped to [MinPollingInterval, MaxPollingInterval]
	HTTPTimeout  time.Duration // Per-attempt timeout when HTTPClient is nil (0 = none)

	HTTPClient *http.Client   // Optional; should carry a cookie jar
	Clock      Clock          // Optional; defaults to SystemClock
	Jitter     func() float64 // Optional; returns a sample from [0, MaxJitter)
	Logger     *slog.Logger
}

// DefaultConfig returns the default client configuration
func DefaultConfig() *Config {
	return &Config{
		Retry:        DefaultRetryPolicy(),
		PollInterval: DefaultPollingInterval,
		HTTPTimeout:  0,
		Logger:       slog.Default(),
	}
}
