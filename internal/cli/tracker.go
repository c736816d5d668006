// Copyright 2025 James Stopford
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jamesstopford/big-dilly/dillyapi"
	"github.com/jamesstopford/big-dilly/dillyclient"
	"github.com/spf13/cobra"
)

func printTrackers(out io.Writer, trackers []dillyapi.Tracker, now time.Time) {
	if len(trackers) == 0 {
		fmt.Fprintln(out, "No trackers yet.")
		return
	}
	for _, t := range trackers {
		icon := dillyclient.IconByID(t.Icon)
		fmt.Fprintf(out, "#%-4d %s %-24s %s\n", t.ID, icon.Emoji, t.Name, dillyclient.FormatElapsed(t.LastReset, now))
	}
}

func (rt *runtime) trackerAction(cmd *cobra.Command, fn func(ctx context.Context, trackers *dillyclient.TrackerStore) dillyclient.Result) error {
	return rt.withSession(cmd.Context(), func(ctx context.Context, app *dillyclient.App) error {
		if err := resultError(fn(ctx, app.Trackers)); err != nil {
			return err
		}
		printTrackers(cmd.OutOrStdout(), app.Trackers.Items(), time.Now())
		return nil
	})
}

func newTrackerCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tracker",
		Short: "Manage time-since trackers",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List trackers with the time since their last reset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.trackerAction(cmd, func(context.Context, *dillyclient.TrackerStore) dillyclient.Result {
				return dillyclient.Result{Success: true}
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "icons",
		Short: "List the available tracker icons",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, icon := range dillyclient.TrackerIcons {
				fmt.Fprintf(out, "%-12s %s  %s (%s)\n", icon.ID, icon.Emoji, icon.Label, icon.Category)
			}
			return nil
		},
	})

	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a tracker",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			icon, _ := cmd.Flags().GetString("icon")
			return rt.trackerAction(cmd, func(ctx context.Context, trackers *dillyclient.TrackerStore) dillyclient.Result {
				return trackers.Create(ctx, joinArgs(args), icon)
			})
		},
	}
	add.Flags().String("icon", dillyclient.TrackerIcons[0].ID, "Icon id (see `dilly tracker icons`)")
	cmd.AddCommand(add)

	rename := &cobra.Command{
		Use:   "rename <id> [name]",
		Short: "Rename a tracker or change its icon",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var patch dillyclient.TrackerPatch
			if len(args) > 1 {
				name := joinArgs(args[1:])
				patch.Name = &name
			}
			if cmd.Flags().Changed("icon") {
				icon, _ := cmd.Flags().GetString("icon")
				patch.Icon = &icon
			}
			return rt.trackerAction(cmd, func(ctx context.Context, trackers *dillyclient.TrackerStore) dillyclient.Result {
				return trackers.Update(ctx, id, patch)
			})
		},
	}
	rename.Flags().String("icon", "", "New icon id")
	cmd.AddCommand(rename)

	cmd.AddCommand(&cobra.Command{
		Use:   "reset <id>",
		Short: "Restart a tracker's clock",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return rt.trackerAction(cmd, func(ctx context.Context, trackers *dillyclient.TrackerStore) dillyclient.Result {
				return trackers.ResetTimer(ctx, id)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a tracker",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return rt.trackerAction(cmd, func(ctx context.Context, trackers *dillyclient.TrackerStore) dillyclient.Result {
				return trackers.Delete(ctx, id)
			})
		},
	})

	return cmd
}
