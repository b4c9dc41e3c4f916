// Package server wires the todo tools into an MCP server and runs it over
// a transport.
package server

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/d-kuro/todo-mcp/internal/errors"
	"github.com/d-kuro/todo-mcp/internal/logging"
	"github.com/d-kuro/todo-mcp/internal/tools"
	todotools "github.com/d-kuro/todo-mcp/internal/tools/todo"
	todos "github.com/d-kuro/todo-mcp/internal/todo"
	"github.com/d-kuro/todo-mcp/pkg/version"
)

// Name is the implementation name announced to MCP clients.
const Name = "todo-mcp-server"

// toolLogger lets the tools package log through logging.Logger without
// importing it.
type toolLogger struct {
	*logging.Logger
}

func (l toolLogger) WithTool(toolName string) tools.Logger {
	return toolLogger{Logger: l.Logger.WithTool(toolName)}
}

// Store is flushed and released by Stop. *storage.DB satisfies it.
type Store interface {
	Close(ctx context.Context) error
}

// Options configures a Server. Repository is required.
type Options struct {
	Logger     *logging.Logger
	Repository *todos.Repository
	Store      Store
}

// Server exposes a todo repository as MCP tools.
type Server struct {
	mcp      *mcp.Server
	registry *tools.Registry
	store    Store
	logger   *logging.Logger
}

// New builds the MCP server and installs the todo tools on it.
func New(opts *Options) (*Server, error) {
	if opts == nil || opts.Repository == nil {
		return nil, errors.Configuration("server requires a todo repository")
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.NewLogger("info")
	}
	logger = logger.WithComponent("server")

	registry := tools.NewRegistry(&tools.Context{Logger: toolLogger{Logger: logger}})
	if err := registry.RegisterGroup(todotools.Factory(opts.Repository)); err != nil {
		return nil, fmt.Errorf("failed to register todo tools: %w", err)
	}

	s := &Server{
		mcp: mcp.NewServer(&mcp.Implementation{
			Name:    Name,
			Version: version.GetVersion().Version,
		}, nil),
		registry: registry,
		store:    opts.Store,
		logger:   logger,
	}

	installed := registry.Install(s.mcp)
	logger.Debug("Installed tools", slog.Any("tools", installed))

	return s, nil
}

// GetRegistry returns the tool registry.
func (s *Server) GetRegistry() *tools.Registry {
	return s.registry
}

// Start checks that every installed tool is complete.
func (s *Server) Start(ctx context.Context) error {
	if err := s.registry.Validate(); err != nil {
		return fmt.Errorf("tool registry validation failed: %w", err)
	}
	s.logger.Info("Server ready",
		slog.String("name", Name),
		slog.String("version", version.GetVersion().Version),
		slog.Int("tools", s.registry.Count()))
	return nil
}

// Serve handles one client session on transport. It returns when the
// client disconnects or ctx is cancelled. On cancellation the session stops
// accepting calls, waits for the ones in flight and Serve returns ctx.Err().
// Calls in flight are not cancelled with ctx so their writes reach the store.
func (s *Server) Serve(ctx context.Context, transport mcp.Transport) error {
	session, err := s.mcp.Connect(context.WithoutCancel(ctx), transport)
	if err != nil {
		return fmt.Errorf("failed to connect MCP server: %w", err)
	}
	s.logger.Debug("Client session connected", slog.String("transport", fmt.Sprintf("%T", transport)))

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("MCP session panicked", slog.Any("panic", r))
				done <- fmt.Errorf("session panicked: %v", r)
			}
		}()
		done <- session.Wait()
	}()

	select {
	case err := <-done:
		s.logger.Info("Client session ended")
		return err
	case <-ctx.Done():
		s.logger.Info("Closing client session", slog.String("reason", context.Cause(ctx).Error()))
		_ = session.Close()
		return ctx.Err()
	}
}

// Stop flushes and closes the store. It reports ctx expiring before the
// flush completes.
func (s *Server) Stop(ctx context.Context) error {
	if s.store != nil {
		if err := s.store.Close(ctx); err != nil {
			s.logger.Error("Failed to close store", slog.Any("error", err))
			return err
		}
	}

	if err := ctx.Err(); err != nil {
		s.logger.Warn("Server stop timed out")
		return err
	}
	s.logger.Info("Server stopped")
	return nil
}
