// Copyright 2025 James Stopford
// SPDX-License-Identifier: Apache-2.0

package dillyclient

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// AppConfig holds what App needs to wire a client together
type AppConfig struct {
	ServerURL string
	StatePath string       // Device store file; ":memory:" keeps nothing between runs
	Platform  Platform     // Optional; defaults to a ProbePlatform against ServerURL
	Client    *Config      // Optional; defaults to DefaultConfig()
	Device    *DeviceStore // Optional; opened from StatePath when nil
	Logger    *slog.Logger
}

// App is a fully wired client: platform signals, connectivity, the request client,
// the stores and the sync loop
type App struct {
	Device   *DeviceStore
	Jar      *PersistentJar
	Platform Platform
	Network  *ConnectivityTracker
	Client   *Client
	Auth     *AuthStore
	Theme    *ThemeStore
	Todos    *TodoStore
	Trackers *TrackerStore
	Sync     *SyncLoop

	probe      *ProbePlatform
	ownsDevice bool
	logger     *slog.Logger
}

// NewApp builds every component. Nothing talks to the server until Start.
func NewApp(ctx context.Context, config AppConfig) (*App, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clientConfig := config.Client
	if clientConfig == nil {
		clientConfig = DefaultConfig()
	}
	if clientConfig.Logger == nil {
		clientConfig.Logger = logger
	}

	app := &App{logger: logger}
	app.Device = config.Device
	if app.Device == nil {
		device, err := OpenDeviceStore(config.StatePath)
		if err != nil {
			return nil, err
		}
		app.Device = device
		app.ownsDevice = true
	}

	jar, err := NewPersistentJar(ctx, config.ServerURL, app.Device, logger)
	if err != nil {
		_ = app.closeDevice()
		return nil, err
	}
	app.Jar = jar

	app.Platform = config.Platform
	if app.Platform == nil {
		probe, err := NewProbePlatform(config.ServerURL, 5*time.Second, logger)
		if err != nil {
			_ = app.closeDevice()
			return nil, err
		}
		app.probe = probe
		app.Platform = probe
	}

	httpClient := clientConfig.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: clientConfig.HTTPTimeout}
	}
	if httpClient.Jar == nil {
		withJar := *httpClient
		withJar.Jar = jar
		httpClient = &withJar
	}
	cfg := *clientConfig
	cfg.HTTPClient = httpClient

	app.Network = NewConnectivityTracker(app.Platform, cfg.Clock, app.Device, logger)
	client, err := NewClient(config.ServerURL, app.Platform, app.Network, &cfg)
	if err != nil {
		_ = app.closeDevice()
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	app.Client = client

	app.Auth = NewAuthStore(client, logger)
	app.Theme = NewThemeStore(ctx, client, app.Auth, app.Device, logger)
	app.Todos = NewTodoStore(client, cfg.Clock, logger)
	app.Trackers = NewTrackerStore(client, cfg.Clock, logger)
	app.Sync = NewSyncLoop(app.Todos, app.Trackers, app.Network, app.Platform, cfg.Clock, cfg.PollInterval, logger)
	return app, nil
}

// Connect probes connectivity and starts following platform signals
func (a *App) Connect(ctx context.Context) {
	if a.probe != nil {
		a.probe.Start(ctx)
	}
	a.Network.Init(ctx)
}

// Start connects, resolves the session and, when signed in, adopts the user's
// theme and loads both collections. Polling is left to StartSync.
func (a *App) Start(ctx context.Context) Result {
	a.Connect(ctx)

	if res := a.Auth.Init(ctx); !res.Success {
		return res
	}
	a.logger.Debug("Session resolved", "email", a.Auth.User().Email)
	a.Theme.InitFromUser(ctx, a.Auth.User())
	if res := a.Todos.Load(ctx); !res.Success {
		return res
	}
	return a.Trackers.Load(ctx)
}

// StartSync runs an initial visible sync and starts polling
func (a *App) StartSync(ctx context.Context) SyncResult {
	return a.Sync.Init(ctx)
}

// Logout ends the session and drops every piece of user data held locally
func (a *App) Logout(ctx context.Context) Result {
	res := a.Auth.Logout(ctx)
	a.Jar.Clear()
	a.Sync.Reset()
	a.Todos.Reset()
	a.Trackers.Reset()
	return res
}

// Close tears every component down in reverse order of construction
func (a *App) Close() error {
	a.Sync.Destroy()
	a.Todos.Destroy()
	a.Network.Destroy()
	if a.probe != nil {
		a.probe.Stop()
	}
	return a.closeDevice()
}

func (a *App) closeDevice() error {
	if !a.ownsDevice || a.Device == nil {
		return nil
	}
	if err := a.Device.Close(); err != nil {
		return fmt.Errorf("failed to close device store: %w", err)
	}
	return nil
}
