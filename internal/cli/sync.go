// Copyright 2025 James Stopford
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jamesstopford/big-dilly/dillyclient"
	"github.com/spf13/cobra"
)

func printSyncStatus(out io.Writer, s dillyclient.SyncStatus, now time.Time) {
	fmt.Fprintf(out, "sync: %s, last %s, %d syncs, polling every %s",
		s.State, dillyclient.FormatLastSync(s.LastSyncTime, now), s.SyncCount, s.PollingInterval)
	if s.Error != "" {
		fmt.Fprintf(out, " (error: %s)", s.Error)
	}
	fmt.Fprintln(out)
}

func newSyncCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Pull the latest todos and trackers from the server once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.withSession(cmd.Context(), func(ctx context.Context, app *dillyclient.App) error {
				res := app.Sync.Refresh(ctx)
				out := cmd.OutOrStdout()
				switch {
				case res.Reason == "offline":
					return errors.New("offline, sync skipped")
				case !res.Success:
					return errors.New(res.Error)
				}
				printSyncStatus(out, app.Sync.Status(), time.Now())
				fmt.Fprintf(out, "%d todos, %d trackers\n", app.Todos.Count(), app.Trackers.Count())
				return nil
			})
		},
	}
}

// watcher prints connectivity and sync transitions, skipping repeats
type watcher struct {
	out io.Writer
	mu  sync.Mutex

	network dillyclient.NetworkState
	banner  bool
	state   dillyclient.SyncState
	todos   string
	tracks  string
}

func (w *watcher) onNetwork(s dillyclient.NetworkStatus) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if s.State != w.network {
		fmt.Fprintf(w.out, "%s network %s (retries %d)\n", stamp(), s.State, s.RetryCount)
		w.network = s.State
	}
	if s.ShowBanner != w.banner {
		if s.ShowBanner {
			fmt.Fprintf(w.out, "%s banner: %s\n", stamp(), bannerText(s.State))
		} else {
			fmt.Fprintf(w.out, "%s banner hidden\n", stamp())
		}
		w.banner = s.ShowBanner
	}
}

func bannerText(state dillyclient.NetworkState) string {
	switch state {
	case dillyclient.NetworkOffline:
		return "You are offline. Changes may not be saved."
	case dillyclient.NetworkReconnecting:
		return "Reconnecting..."
	default:
		return "Back online"
	}
}

func (w *watcher) onSync(s dillyclient.SyncStatus) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if s.State != w.state {
		fmt.Fprintf(w.out, "%s sync %s", stamp(), s.State)
		if s.Error != "" {
			fmt.Fprintf(w.out, ": %s", s.Error)
		}
		fmt.Fprintln(w.out)
		w.state = s.State
	}
	if w.todos != "" && s.LastTodosHash != w.todos {
		fmt.Fprintf(w.out, "%s todos changed on the server\n", stamp())
	}
	if w.tracks != "" && s.LastTrackersHash != w.tracks {
		fmt.Fprintf(w.out, "%s trackers changed on the server\n", stamp())
	}
	w.todos, w.tracks = s.LastTodosHash, s.LastTrackersHash
}

func stamp() string {
	return time.Now().Format("15:04:05")
}

func newWatchCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep syncing in the foreground and report connectivity and sync changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return rt.withSession(ctx, func(ctx context.Context, app *dillyclient.App) error {
				w := &watcher{out: cmd.OutOrStdout()}
				unwatchNetwork := app.Network.Subscribe(w.onNetwork)
				defer unwatchNetwork()
				unwatchSync := app.Sync.Subscribe(w.onSync)
				defer unwatchSync()

				if cmd.Flags().Changed("interval") {
					interval, _ := cmd.Flags().GetDuration("interval")
					app.Sync.SetPollingInterval(interval)
				}
				app.StartSync(ctx)
				printSyncStatus(cmd.OutOrStdout(), app.Sync.Status(), time.Now())

				<-ctx.Done()
				fmt.Fprintln(cmd.OutOrStdout(), "stopping")
				return nil
			})
		},
	}
	cmd.Flags().Duration("interval", dillyclient.DefaultPollingInterval, "Polling interval, clamped to [5s, 5m]")
	return cmd
}

func newHealthCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the server is up",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.withApp(cmd.Context(), func(ctx context.Context, app *dillyclient.App) error {
				health, err := app.Client.Health(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s at %s\n", health.Status, health.Timestamp.Format(time.RFC3339))
				return nil
			})
		},
	}
}
