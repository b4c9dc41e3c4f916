// Package main implements the todo MCP server executable.
// It serves a persistent todo list to MCP clients over stdio and offers
// subcommands to inspect, export and import the same store.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/d-kuro/todo-mcp/internal/cmd"
	"github.com/d-kuro/todo-mcp/internal/logging"
	"github.com/d-kuro/todo-mcp/internal/server"
	"github.com/d-kuro/todo-mcp/pkg/version"
)

// shutdownTimeout bounds the final flush of the store on exit.
const shutdownTimeout = 5 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "todo-mcp",
		Short: "Todo list MCP server",
		Long: `todo-mcp provides a Model Context Protocol server that lets AI assistants
add, query, update, complete and delete todos kept in a local store.`,
		SilenceUsage: true,
		RunE:         runServer,
	}

	rootCmd.Flags().BoolP("version", "v", false, "Print version information and exit")
	cmd.RegisterPersistentFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(cmd.NewVersionCmd())
	rootCmd.AddCommand(cmd.NewListCmd())
	rootCmd.AddCommand(cmd.NewExportCmd())
	rootCmd.AddCommand(cmd.NewImportCmd())

	return rootCmd
}

// runServer starts the MCP server
func runServer(c *cobra.Command, args []string) error {
	if versionFlag, _ := c.Flags().GetBool("version"); versionFlag {
		fmt.Fprintln(c.OutOrStdout(), version.GetVersion().String())
		return nil
	}

	cfg, err := cmd.LoadConfig(c)
	if err != nil {
		logging.NewLogger("info").Error("Invalid configuration", slog.Any("error", err))
		return err
	}

	logger := cfg.Logger()
	if cfg.ConfigFile != "" {
		logger.Debug("Loaded config file", slog.String("path", cfg.ConfigFile))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := cmd.OpenStore(ctx, cfg, logger, true)
	if err != nil {
		logger.Error("Failed to open store", slog.Any("error", err))
		return err
	}

	srv, err := server.New(&server.Options{
		Logger:     logger,
		Repository: store.Repository,
		Store:      store,
	})
	if err != nil {
		_ = store.Close(context.Background())
		logger.Error("Failed to create server", slog.Any("error", err))
		return fmt.Errorf("failed to create server: %w", err)
	}

	if err := srv.Start(ctx); err != nil {
		_ = store.Close(context.Background())
		logger.Error("Failed to start server", slog.Any("error", err))
		return fmt.Errorf("failed to start server: %w", err)
	}

	transport := mcp.NewStdioTransport()

	logger.Info("Todo MCP server starting",
		slog.String("version", version.GetVersion().Version),
		slog.String("store", cfg.DB),
		slog.String("driver", cfg.Driver),
		slog.Duration("autosave_interval", cfg.AutosaveInterval),
		slog.Int("todos", store.Repository.Count()),
		slog.Int("tools_available", srv.GetRegistry().Count()))

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- srv.Serve(ctx, transport)
	}()

	var serveErr error
	select {
	case serveErr = <-serverDone:
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
		// Serve closes the session once in-flight tool calls have finished.
		serveErr = <-serverDone
	}
	if errors.Is(serveErr, context.Canceled) {
		serveErr = nil
	}
	if serveErr != nil {
		logger.Error("Server error", slog.Any("error", serveErr))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Error("Error stopping server", slog.Any("error", err))
		return errors.Join(serveErr, err)
	}

	logger.Info("Todo MCP server stopped")
	return serveErr
}
