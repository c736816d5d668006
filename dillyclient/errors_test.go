// Copyright 2025 James Stopford
// SPDX-License-Identifier: Apache-2.0

package dillyclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
	"testing"

	"github.com/stretchr/testify/require"
)

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, KindUnexpected},
		{"offline", &NetworkError{Endpoint: "/todos", Err: ErrOffline}, KindNetwork},
		{"refused", fmt.Errorf("dial: %w", syscall.ECONNREFUSED), KindNetwork},
		{"reset", syscall.ECONNRESET, KindNetwork},
		{"op error", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("boom")}, KindNetwork},
		{"timeout", timeoutError{}, KindNetwork},
		{"unexpected eof", io.ErrUnexpectedEOF, KindNetwork},
		{"failed to fetch message", errors.New("Failed to fetch"), KindNetwork},
		{"network message", errors.New("NetworkError when attempting to fetch resource"), KindNetwork},
		{"500", &APIError{Status: 500}, KindTransient},
		{"502", &APIError{Status: 502}, KindTransient},
		{"503", &APIError{Status: 503}, KindTransient},
		{"504", &APIError{Status: 504}, KindTransient},
		{"408", &APIError{Status: 408}, KindTransient},
		{"429", &APIError{Status: 429}, KindTransient},
		{"400", &APIError{Status: 400}, KindClient},
		{"401", &APIError{Status: 401}, KindClient},
		{"404", &APIError{Status: 404}, KindClient},
		{"validation", &ValidationError{Message: "Todo text is required"}, KindClient},
		{"canceled", context.Canceled, KindUnexpected},
		{"deadline", fmt.Errorf("wrapped: %w", context.DeadlineExceeded), KindUnexpected},
		{"decode failure", errors.New("invalid character 'x'"), KindUnexpected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	require.True(t, IsRetryable(&APIError{Status: 503}))
	require.True(t, IsRetryable(&NetworkError{Endpoint: "/x", Err: errors.New("connection refused")}))
	require.False(t, IsRetryable(&APIError{Status: 400}))
	require.False(t, IsRetryable(&APIError{Status: 401}))
	require.False(t, IsRetryable(context.Canceled))
	require.False(t, IsRetryable(errors.New("something odd")))
}

func TestIsRetryableStatus(t *testing.T) {
	for _, status := range []int{408, 429, 500, 502, 503, 504} {
		require.True(t, IsRetryableStatus(status), "status %d", status)
	}
	for _, status := range []int{200, 400, 401, 403, 404, 409, 501} {
		require.False(t, IsRetryableStatus(status), "status %d", status)
	}
}

func TestErrorMessage(t *testing.T) {
	require.Equal(t, "Maximum of 10 todos allowed", errorMessage(&APIError{Status: 400, Message: "Maximum of 10 todos allowed"}, "fallback"))
	require.Equal(t, "No internet connection", errorMessage(&NetworkError{Endpoint: "/todos", Err: ErrOffline}, "fallback"))
	require.Equal(t, "Tracker name is required", errorMessage(&ValidationError{Message: "Tracker name is required"}, "fallback"))
	require.Equal(t, "fallback", errorMessage(nil, "fallback"))
	require.Equal(t, "boom", errorMessage(errors.New("boom"), "fallback"))
}

func TestErrorKindString(t *testing.T) {
	require.Equal(t, "network", KindNetwork.String())
	require.Equal(t, "transient", KindTransient.String())
	require.Equal(t, "client", KindClient.String())
	require.Equal(t, "unexpected", KindUnexpected.String())
}
