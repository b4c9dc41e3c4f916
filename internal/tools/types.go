// Package tools provides the tool registry and common types for MCP tools.
package tools

import (
	"context"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Context contains common dependencies needed by tools.
type Context struct {
	Logger Logger
}

// Logger defines the logging interface for tools.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	WithTool(toolName string) Logger
}

// ServerTool pairs a tool definition with the function that binds its
// typed handler to an MCP server. logger may be nil.
type ServerTool struct {
	Tool         *mcp.Tool
	RegisterFunc func(server *mcp.Server, logger Logger)
}

// Name returns the tool name.
func (t *ServerTool) Name() string {
	if t.Tool == nil {
		return ""
	}
	return t.Tool.Name
}

// NewServerTool builds a ServerTool for a typed handler. The SDK infers the
// input schema from In.
func NewServerTool[In any](name, description string, handler func(context.Context, *mcp.ServerSession, *mcp.CallToolParamsFor[In]) (*mcp.CallToolResultFor[any], error)) *ServerTool {
	tool := &mcp.Tool{
		Name:        name,
		Description: description,
	}

	return &ServerTool{
		Tool: tool,
		RegisterFunc: func(server *mcp.Server, logger Logger) {
			if logger == nil {
				logger = NopLogger()
			}
			logger = logger.WithTool(name)

			mcp.AddTool(server, tool, func(ctx context.Context, session *mcp.ServerSession, params *mcp.CallToolParamsFor[In]) (*mcp.CallToolResultFor[any], error) {
				result, err := handler(ctx, session, params)
				if err == nil && result != nil && result.IsError {
					logger.Debug("Tool call rejected", "reason", strings.Join(Texts(result), "\n"))
				}
				return result, err
			})
		},
	}
}

// nopLogger discards everything.
type nopLogger struct{}

func (nopLogger) Debug(string, ...any)     {}
func (nopLogger) Info(string, ...any)      {}
func (nopLogger) Warn(string, ...any)      {}
func (nopLogger) Error(string, ...any)     {}
func (l nopLogger) WithTool(string) Logger { return l }

// NopLogger returns a Logger that discards all messages.
func NopLogger() Logger {
	return nopLogger{}
}
