// Copyright 2025 James Stopford
// SPDX-License-Identifier: Apache-2.0

package dillyclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"mime"
	"net/http"
	"strings"

	"github.com/jamesstopford/big-dilly/dillyapi"
)

// Client executes API requests with connectivity checks, retries and backoff
type Client struct {
	BaseURL string // Server origin, e.g. http://localhost:3000
	HTTP    *http.Client

	policy   RetryPolicy
	platform Platform
	network  *ConnectivityTracker
	clock    Clock
	jitter   func() float64
	logger   *slog.Logger
}

// NewClient creates a request client. The HTTP client should carry a cookie jar so the
// session cookie set by login is replayed on later calls.
func NewClient(baseURL string, platform Platform, network *ConnectivityTracker, config *Config) (*Client, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if platform == nil || network == nil {
		return nil, fmt.Errorf("platform and connectivity tracker are required")
	}
	if config.Retry.MaxRetries < 0 {
		return nil, fmt.Errorf("retry.MaxRetries must be >= 0")
	}
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.HTTPTimeout}
	}
	clock := config.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	jitter := config.Jitter
	if jitter == nil {
		jitter = func() float64 { return rand.Float64() * MaxJitter }
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		HTTP:     httpClient,
		policy:   config.Retry,
		platform: platform,
		network:  network,
		clock:    clock,
		jitter:   jitter,
		logger:   logger,
	}, nil
}

// Request performs one logical call to endpoint (a path under /api) and returns the raw JSON body.
// A nil body with nil error means the server answered 2xx without JSON.
// With retry false exactly one attempt is made.
func (c *Client) Request(ctx context.Context, method, endpoint string, body any, retry bool) (json.RawMessage, error) {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	maxRetries := 0
	if retry {
		maxRetries = c.policy.MaxRetries
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if !c.platform.Online() {
			c.network.MarkOffline()
			return nil, &NetworkError{Endpoint: endpoint, Err: ErrOffline}
		}

		if attempt > 0 {
			c.network.SetReconnecting()
			c.network.IncrementRetry()
			delay := BackoffDelay(attempt-1, c.policy, c.jitter())
			c.logger.Warn("Retrying request",
				"endpoint", endpoint,
				"attempt", attempt,
				"max_retries", maxRetries,
				"delay", delay,
				"error", lastErr)
			if err := sleepWithContext(ctx, c.clock, delay); err != nil {
				return nil, err
			}
		}

		data, err := c.do(ctx, method, endpoint, payload)
		if err == nil {
			c.network.MarkOnline()
			return data, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !IsRetryable(err) {
			break
		}
	}

	if IsNetworkError(lastErr) {
		c.network.MarkOffline()
	}
	return nil, lastErr
}

// do performs a single HTTP exchange
func (c *Client) do(ctx context.Context, method, endpoint string, payload []byte) (json.RawMessage, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+"/api"+endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, &NetworkError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	success := resp.StatusCode >= 200 && resp.StatusCode < 300
	if !isJSON(resp.Header.Get("Content-Type")) {
		_, _ = io.Copy(io.Discard, resp.Body)
		if !success {
			return nil, &APIError{Status: resp.StatusCode, Message: fmt.Sprintf("HTTP error %d", resp.StatusCode)}
		}
		return nil, nil
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Endpoint: endpoint, Err: err}
	}
	if !success {
		apiErr := &APIError{Status: resp.StatusCode, Payload: raw}
		var body dillyapi.ErrorResponse
		if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
			apiErr.Message = body.Error
		} else {
			apiErr.Message = fmt.Sprintf("HTTP error %d", resp.StatusCode)
		}
		return nil, apiErr
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	return raw, nil
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && (mediaType == "application/json" || strings.HasSuffix(mediaType, "+json"))
}

// call performs a request and decodes the JSON response into out
func (c *Client) call(ctx context.Context, method, endpoint string, body, out any, retry bool) error {
	raw, err := c.Request(ctx, method, endpoint, body, retry)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if raw == nil {
		return errors.New("empty response from " + endpoint)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", endpoint, err)
	}
	return nil
}
