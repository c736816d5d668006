// Copyright 2025 James Stopford
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jamesstopford/big-dilly/dillyclient"
	"github.com/spf13/cobra"
)

// readPassword takes the password from the flag, or else the first line of stdin
func readPassword(cmd *cobra.Command, flag string) (string, error) {
	if password, _ := cmd.Flags().GetString(flag); password != "" {
		return password, nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func newCredentialsCommand(rt *runtime, use, short string, signIn func(*dillyclient.AuthStore, context.Context, string, string) dillyclient.Result) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use + " <email>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPassword(cmd, "password")
			if err != nil {
				return err
			}
			return rt.withApp(cmd.Context(), func(ctx context.Context, app *dillyclient.App) error {
				if err := resultError(signIn(app.Auth, ctx, args[0], password)); err != nil {
					return err
				}
				user := app.Auth.User()
				app.Theme.InitFromUser(ctx, user)
				fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", user.Email)
				return nil
			})
		},
	}
	cmd.Flags().StringP("password", "p", "", "Password (read from stdin when omitted)")
	return cmd
}

func newRegisterCommand(rt *runtime) *cobra.Command {
	return newCredentialsCommand(rt, "register", "Create an account and sign in", (*dillyclient.AuthStore).Register)
}

func newLoginCommand(rt *runtime) *cobra.Command {
	return newCredentialsCommand(rt, "login", "Sign in", (*dillyclient.AuthStore).Login)
}

func newLogoutCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.withApp(cmd.Context(), func(ctx context.Context, app *dillyclient.App) error {
				app.Logout(ctx)
				fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
				return nil
			})
		},
	}
}

func newWhoamiCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.withApp(cmd.Context(), func(ctx context.Context, app *dillyclient.App) error {
				if res := app.Auth.Init(ctx); !res.Success {
					return errors.New("not logged in")
				}
				user := app.Auth.User()
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s (id %d)\n", user.Email, user.ID)
				fmt.Fprintf(out, "theme: %s\n", user.Theme)
				return nil
			})
		},
	}
}

func newForgotPasswordCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "forgot-password <email>",
		Short: "Request a password reset token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.withApp(cmd.Context(), func(ctx context.Context, app *dillyclient.App) error {
				token, res := app.Auth.ForgotPassword(ctx, args[0])
				if err := resultError(res); err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, "If an account exists with that email, a reset link has been sent")
				if token != "" {
					fmt.Fprintf(out, "reset token: %s\n", token)
				}
				return nil
			})
		},
	}
}

func newResetPasswordCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset-password <token>",
		Short: "Set a new password using a reset token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPassword(cmd, "password")
			if err != nil {
				return err
			}
			return rt.withApp(cmd.Context(), func(ctx context.Context, app *dillyclient.App) error {
				if err := resultError(app.Auth.ResetPassword(ctx, args[0], password)); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Password has been reset. Sign in with the new password.")
				return nil
			})
		},
	}
	cmd.Flags().StringP("password", "p", "", "New password (read from stdin when omitted)")
	return cmd
}
