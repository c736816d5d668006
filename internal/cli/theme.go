// Copyright 2025 James Stopford
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/jamesstopford/big-dilly/dillyapi"
	"github.com/jamesstopford/big-dilly/dillyclient"
	"github.com/spf13/cobra"
)

// themeAction resolves the session first so a signed-in user's choice reaches the server
func (rt *runtime) themeAction(cmd *cobra.Command, fn func(ctx context.Context, theme *dillyclient.ThemeStore) dillyclient.Result) error {
	return rt.withApp(cmd.Context(), func(ctx context.Context, app *dillyclient.App) error {
		if res := app.Auth.Init(ctx); res.Success {
			app.Theme.InitFromUser(ctx, app.Auth.User())
		}
		if fn != nil {
			if err := resultError(fn(ctx, app.Theme)); err != nil {
				return err
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "theme: %s\n", app.Theme.Theme())
		return nil
	})
}

func newThemeCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "theme",
		Short: "Show or change the theme",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.themeAction(cmd, nil)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:       "set <" + strings.Join(dillyapi.ValidThemes, "|") + ">",
		Short:     "Switch to a theme",
		Args:      cobra.ExactArgs(1),
		ValidArgs: dillyapi.ValidThemes,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.themeAction(cmd, func(ctx context.Context, theme *dillyclient.ThemeStore) dillyclient.Result {
				return theme.SetTheme(ctx, args[0])
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "cycle",
		Short: "Switch to the next theme",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.themeAction(cmd, func(ctx context.Context, theme *dillyclient.ThemeStore) dillyclient.Result {
				return theme.Cycle(ctx)
			})
		},
	})

	return cmd
}
