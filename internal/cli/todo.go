// Copyright 2025 James Stopford
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/jamesstopford/big-dilly/dillyapi"
	"github.com/jamesstopford/big-dilly/dillyclient"
	"github.com/spf13/cobra"
)

func printTodos(out io.Writer, todos []dillyapi.Todo) {
	if len(todos) == 0 {
		fmt.Fprintln(out, "No todos yet.")
		return
	}
	done := 0
	for _, t := range todos {
		mark := " "
		if t.Completed {
			mark = "x"
			done++
		}
		fmt.Fprintf(out, "[%s] #%-4d %s\n", mark, t.ID, t.Text)
	}
	fmt.Fprintf(out, "%d/%d done (max %d)\n", done, len(todos), dillyapi.MaxTodos)
}

// todoAction runs fn against a loaded todo store and prints the list afterwards
func (rt *runtime) todoAction(cmd *cobra.Command, fn func(ctx context.Context, todos *dillyclient.TodoStore) dillyclient.Result) error {
	return rt.withSession(cmd.Context(), func(ctx context.Context, app *dillyclient.App) error {
		if err := resultError(fn(ctx, app.Todos)); err != nil {
			return err
		}
		printTodos(cmd.OutOrStdout(), app.Todos.Items())
		return nil
	})
}

func newTodoCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "todo",
		Short: "Manage todos",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List todos",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.todoAction(cmd, func(context.Context, *dillyclient.TodoStore) dillyclient.Result {
				return dillyclient.Result{Success: true}
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add <text>",
		Short: "Add a todo",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.todoAction(cmd, func(ctx context.Context, todos *dillyclient.TodoStore) dillyclient.Result {
				return todos.Create(ctx, joinArgs(args))
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "edit <id> <text>",
		Short: "Change a todo's text",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return rt.todoAction(cmd, func(ctx context.Context, todos *dillyclient.TodoStore) dillyclient.Result {
				return todos.UpdateText(ctx, id, joinArgs(args[1:]))
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "done <id>",
		Short: "Toggle a todo's completed state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return rt.todoAction(cmd, func(ctx context.Context, todos *dillyclient.TodoStore) dillyclient.Result {
				return todos.ToggleComplete(ctx, id)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a todo",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return rt.todoAction(cmd, func(ctx context.Context, todos *dillyclient.TodoStore) dillyclient.Result {
				return todos.Delete(ctx, id)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "move <id> <position>",
		Short: "Move a todo to a 1-based position",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			position, err := strconv.Atoi(args[1])
			if err != nil || position < 1 {
				return fmt.Errorf("invalid position %q", args[1])
			}
			return rt.todoAction(cmd, func(ctx context.Context, todos *dillyclient.TodoStore) dillyclient.Result {
				return todos.Move(ctx, id, position-1)
			})
		},
	})

	return cmd
}

func newTemplateCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Save or restore the todo template",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the saved template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.withApp(cmd.Context(), func(ctx context.Context, app *dillyclient.App) error {
				items, err := app.Client.GetTemplate(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(items) == 0 {
					fmt.Fprintln(out, "No template saved.")
					return nil
				}
				for i, item := range items {
					fmt.Fprintf(out, "%2d. %s\n", i+1, item.Text)
				}
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "save",
		Short: "Save the current todos as the template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.withSession(cmd.Context(), func(ctx context.Context, app *dillyclient.App) error {
				if err := resultError(app.Todos.SaveTemplate(ctx)); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Template saved (%d items)\n", app.Todos.Count())
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Replace the todos with the template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.todoAction(cmd, func(ctx context.Context, todos *dillyclient.TodoStore) dillyclient.Result {
				return todos.ResetToTemplate(ctx)
			})
		},
	})

	return cmd
}
