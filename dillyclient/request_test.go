// Copyright 2025 James Stopford
// SPDX-License-Identifier: Apache-2.0

package dillyclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jamesstopford/big-dilly/dillyapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type requestFixture struct {
	server   *httptest.Server
	platform *ManualPlatform
	network  *ConnectivityTracker
	clock    *instantClock
	client   *Client
	hits     atomic.Int32
}

func newRequestFixture(t *testing.T, handler http.HandlerFunc) *requestFixture {
	t.Helper()
	f := &requestFixture{clock: &instantClock{}}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.hits.Add(1)
		handler(w, r)
	}))
	t.Cleanup(f.server.Close)

	f.platform = NewManualPlatform(true)
	f.network = NewConnectivityTracker(f.platform, newFakeClock(), nil, testLogger())
	f.network.Init(context.Background())
	t.Cleanup(f.network.Destroy)

	client, err := NewClient(f.server.URL, f.platform, f.network, &Config{
		Retry:  DefaultRetryPolicy(),
		Clock:  f.clock,
		Jitter: func() float64 { return 0 },
		Logger: testLogger(),
	})
	require.NoError(t, err)
	f.client = client
	return f
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestRequest_SuccessDecodesJSON(t *testing.T) {
	f := newRequestFixture(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/todos", r.URL.Path)
		writeJSON(w, http.StatusOK, dillyapi.TodoListResponse{Todos: []dillyapi.Todo{{ID: 1, Text: "milk"}}})
	})

	todos, err := f.client.ListTodos(context.Background())
	require.NoError(t, err)
	require.Len(t, todos, 1)
	require.Equal(t, "milk", todos[0].Text)
	require.EqualValues(t, 1, f.hits.Load())
	require.True(t, f.network.IsOnline())
	require.Empty(t, f.clock.Delays())
}

func TestRequest_RetriesTransientUntilExhausted(t *testing.T) {
	f := newRequestFixture(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusServiceUnavailable, dillyapi.ErrorResponse{Error: "Service unavailable"})
	})

	_, err := f.client.Request(context.Background(), http.MethodGet, "/todos", nil, true)
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusServiceUnavailable, apiErr.Status)
	require.Equal(t, "Service unavailable", apiErr.Message)

	// maxRetries+1 attempts with the delay computed from the previous attempt index
	require.EqualValues(t, 4, f.hits.Load())
	require.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, f.clock.Delays())

	// A transient server failure is not a connectivity failure
	status := f.network.Status()
	require.Equal(t, NetworkReconnecting, status.State)
	require.Equal(t, 3, status.RetryCount)
	require.True(t, status.ShowBanner)
}

func TestRequest_RecoversAfterTransientFailure(t *testing.T) {
	var calls atomic.Int32
	f := newRequestFixture(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			writeJSON(w, http.StatusBadGateway, dillyapi.ErrorResponse{Error: "Bad gateway"})
			return
		}
		writeJSON(w, http.StatusOK, dillyapi.HealthResponse{Status: "ok"})
	})

	health, err := f.client.Health(context.Background())
	require.NoError(t, err)
	require.Equal(t, "ok", health.Status)
	require.EqualValues(t, 3, f.hits.Load())

	status := f.network.Status()
	require.Equal(t, NetworkOnline, status.State)
	require.Zero(t, status.RetryCount)
	require.True(t, status.ShowBanner, "restoration banner after reconnecting")
}

func TestRequest_NoRetryEndpointMakesOneAttempt(t *testing.T) {
	f := newRequestFixture(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusServiceUnavailable, dillyapi.ErrorResponse{Error: "Service unavailable"})
	})

	_, err := f.client.Login(context.Background(), "a@b.co", "password1")
	require.Error(t, err)
	require.EqualValues(t, 1, f.hits.Load())
	require.Empty(t, f.clock.Delays())
	require.Zero(t, f.network.Status().RetryCount)
}

func TestRequest_ClientErrorFailsImmediately(t *testing.T) {
	f := newRequestFixture(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, dillyapi.ErrorResponse{Error: "Maximum of 10 todos allowed"})
	})

	_, err := f.client.CreateTodo(context.Background(), "eleventh")
	require.Error(t, err)
	require.Equal(t, "Maximum of 10 todos allowed", err.Error())
	require.Equal(t, KindClient, Classify(err))
	require.EqualValues(t, 1, f.hits.Load())
	require.True(t, f.network.IsOnline())
}

func TestRequest_NonJSONErrorUsesStatus(t *testing.T) {
	f := newRequestFixture(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "teapot", http.StatusTeapot)
	})

	_, err := f.client.Request(context.Background(), http.MethodGet, "/todos", nil, true)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, "HTTP error 418", apiErr.Message)
	require.EqualValues(t, 1, f.hits.Load())
}

func TestRequest_OfflinePreflightSendsNothing(t *testing.T) {
	f := newRequestFixture(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, dillyapi.TodoListResponse{})
	})
	f.platform.SetOnline(false)

	_, err := f.client.ListTodos(context.Background())
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrOffline))
	require.True(t, IsNetworkError(err))
	require.Equal(t, "No internet connection", errorMessage(err, ""))

	require.Zero(t, f.hits.Load())
	require.Empty(t, f.clock.Delays())
	require.True(t, f.network.IsOffline())
	require.True(t, f.network.BannerVisible())
}

func TestRequest_NonJSONSuccessReturnsNil(t *testing.T) {
	f := newRequestFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	raw, err := f.client.Request(context.Background(), http.MethodDelete, "/todos/1", nil, true)
	require.NoError(t, err)
	require.Nil(t, raw)
	require.NoError(t, f.client.DeleteTodo(context.Background(), 1))
}

func TestRequest_SendsJSONBody(t *testing.T) {
	f := newRequestFixture(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.JSONEq(t, `{"todoIds":[3,1,2]}`, string(body))
		writeJSON(w, http.StatusOK, dillyapi.MessageResponse{Message: "Todos reordered"})
	})

	require.NoError(t, f.client.ReorderTodos(context.Background(), []int64{3, 1, 2}))
}

func TestRequest_UnreachableServerMarksOffline(t *testing.T) {
	f := newRequestFixture(t, func(w http.ResponseWriter, r *http.Request) {})
	f.server.Close()

	_, err := f.client.ListTodos(context.Background())
	require.Error(t, err)
	require.True(t, IsNetworkError(err))

	// Network failures are retried before giving up
	require.Len(t, f.clock.Delays(), 3)
	status := f.network.Status()
	require.Equal(t, NetworkOffline, status.State)
	require.True(t, status.ShowBanner)
	require.False(t, status.LastOffline.IsZero())
}

func TestRequest_CanceledContextStopsRetrying(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := newRequestFixture(t, func(w http.ResponseWriter, r *http.Request) {
		cancel()
		writeJSON(w, http.StatusServiceUnavailable, dillyapi.ErrorResponse{Error: "Service unavailable"})
	})

	_, err := f.client.Request(ctx, http.MethodGet, "/todos", nil, true)
	require.ErrorIs(t, err, context.Canceled)
	require.EqualValues(t, 1, f.hits.Load())
}

func TestNewClient_Validation(t *testing.T) {
	platform := NewManualPlatform(true)
	network := NewConnectivityTracker(platform, nil, nil, testLogger())

	_, err := NewClient("http://localhost", platform, network, nil)
	require.Error(t, err)

	_, err = NewClient("http://localhost", nil, network, DefaultConfig())
	require.Error(t, err)

	cfg := DefaultConfig()
	cfg.Retry.MaxRetries = -1
	_, err = NewClient("http://localhost", platform, network, cfg)
	require.Error(t, err)

	client, err := NewClient("http://localhost:3000/", platform, network, DefaultConfig())
	require.NoError(t, err)
	require.Equal(t, "http://localhost:3000", client.BaseURL)
}
