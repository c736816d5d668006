// Copyright 2025 James Stopford
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jamesstopford/big-dilly/internal/server"
	"github.com/spf13/cobra"
)

func newServeCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			memory, _ := cmd.Flags().GetBool("memory")
			return rt.serve(memory)
		},
	}
	cmd.Flags().String("addr", "", "Listen address (default :3000)")
	cmd.Flags().String("database", "", "Postgres connection URL")
	cmd.Flags().Bool("memory", false, "Keep data in memory instead of Postgres")
	return cmd
}

func (rt *runtime) serve(memory bool) error {
	cfg := rt.config
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: rt.level()}))

	components, err := server.SetupServer(&server.ServerConfig{
		DatabaseURL:      cfg.DatabaseURL,
		JWTSecret:        cfg.JWTSecret,
		SecureCookies:    cfg.SecureCookies,
		ExposeResetToken: cfg.ExposeResetToken,
		LogRequests:      cfg.LogRequests,
		Logger:           logger,
		InMemory:         memory,
	})
	if err != nil {
		return fmt.Errorf("failed to setup server: %w", err)
	}
	defer components.Close()

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           components.Handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting server", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case sig := <-quit:
		logger.Info("Shutting down server...", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("Server exited")
	return nil
}
