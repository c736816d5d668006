// Copyright 2025 James Stopford
// SPDX-License-Identifier: Apache-2.0

// Package cli implements the dilly command line: the API server and a terminal client.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/jamesstopford/big-dilly/dillyclient"
	"github.com/jamesstopford/big-dilly/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// runtime is shared by every command of one invocation
type runtime struct {
	configFile string
	verbose    bool

	viper  *viper.Viper
	config *config.Config
	stderr io.Writer
}

// NewRootCommand builds the dilly command tree
func NewRootCommand() *cobra.Command {
	rt := &runtime{stderr: os.Stderr}

	root := &cobra.Command{
		Use:           "dilly",
		Short:         "Big Dilly: todos and time-since trackers",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			rt.stderr = cmd.ErrOrStderr()
			return rt.load(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&rt.configFile, "config", "", "Config file (default: dilly.yaml in . or the user config dir)")
	flags.BoolVarP(&rt.verbose, "verbose", "v", false, "Debug logging")
	flags.String("server", "", "Server URL for client commands")
	flags.String("state", "", "Device state file for client commands")

	root.AddCommand(
		newServeCommand(rt),
		newRegisterCommand(rt),
		newLoginCommand(rt),
		newLogoutCommand(rt),
		newWhoamiCommand(rt),
		newForgotPasswordCommand(rt),
		newResetPasswordCommand(rt),
		newTodoCommand(rt),
		newTemplateCommand(rt),
		newTrackerCommand(rt),
		newThemeCommand(rt),
		newSyncCommand(rt),
		newWatchCommand(rt),
		newHealthCommand(rt),
		newConfigCommand(rt),
	)
	return root
}

// Execute runs the CLI and returns the process exit code
func Execute() int {
	root := NewRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// load resolves configuration once per invocation, binding the global and command flags
func (rt *runtime) load(cmd *cobra.Command) error {
	v := config.NewViper(rt.configFile)
	bindings := map[string]string{
		"server":   "server_url",
		"state":    "state_path",
		"addr":     "addr",
		"database": "database_url",
	}
	for flag, key := range bindings {
		if f := cmd.Flags().Lookup(flag); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("failed to bind --%s: %w", flag, err)
			}
		}
	}
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	if rt.verbose {
		cfg.LogLevel = "debug"
	}
	rt.viper = v
	rt.config = cfg
	return nil
}

func (rt *runtime) level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(rt.config.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// clientLogger writes human-readable logs to stderr. Below debug, only warnings
// and errors are shown so command output stays clean.
func (rt *runtime) clientLogger() *slog.Logger {
	level := max(rt.level(), slog.LevelWarn)
	if rt.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(rt.stderr, &slog.HandlerOptions{Level: level}))
}

func (rt *runtime) clientConfig(logger *slog.Logger) *dillyclient.Config {
	c := dillyclient.DefaultConfig()
	c.Retry = dillyclient.RetryPolicy{
		MaxRetries:    rt.config.Retry.MaxRetries,
		BaseDelay:     rt.config.Retry.BaseDelay,
		MaxDelay:      rt.config.Retry.MaxDelay,
		BackoffFactor: rt.config.Retry.Factor,
	}
	c.PollInterval = rt.config.PollInterval
	c.HTTPTimeout = rt.config.HTTPTimeout
	c.Logger = logger
	return c
}

// withApp builds a wired client, connects it and runs fn
func (rt *runtime) withApp(ctx context.Context, fn func(ctx context.Context, app *dillyclient.App) error) error {
	logger := rt.clientLogger()
	app, err := dillyclient.NewApp(ctx, dillyclient.AppConfig{
		ServerURL: rt.config.ServerURL,
		StatePath: rt.config.StatePath,
		Client:    rt.clientConfig(logger),
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn("Failed to close client", "error", err)
		}
	}()
	app.Connect(ctx)
	return fn(ctx, app)
}

// withSession is withApp for commands that need a signed-in user and loaded collections
func (rt *runtime) withSession(ctx context.Context, fn func(ctx context.Context, app *dillyclient.App) error) error {
	return rt.withApp(ctx, func(ctx context.Context, app *dillyclient.App) error {
		if res := app.Start(ctx); !res.Success {
			if !app.Auth.IsAuthenticated() {
				return errors.New("not logged in: run `dilly login` first")
			}
			return resultError(res)
		}
		return fn(ctx, app)
	})
}

func resultError(res dillyclient.Result) error {
	if res.Success {
		return nil
	}
	return errors.New(res.Error)
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return id, nil
}

func joinArgs(args []string) string {
	return strings.Join(args, " ")
}
