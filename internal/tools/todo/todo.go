// Package todo provides todo list management tools using the MCP SDK patterns.
package todo

import (
	"context"
	"errors"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/d-kuro/todo-mcp/internal/tools"
	todos "github.com/d-kuro/todo-mcp/internal/todo"
)

// AddTodoArgs represents the arguments for the addTodo tool.
type AddTodoArgs struct {
	Title       string `json:"title" jsonschema:"title of the todo, unique, at most 100 characters"`
	Description string `json:"description" jsonschema:"details of the todo, at most 1000 characters"`
	Deadline    string `json:"deadline" jsonschema:"deadline in the format YYYY-MM-DD HH:mm:ss"`
}

// QueryTodosArgs represents the arguments for the queryTodos tool.
type QueryTodosArgs struct {
	Status todos.Status `json:"status" jsonschema:"one of pending, completed or all"`
}

// UpdateTodoArgs represents the arguments for the updateTodo tool.
type UpdateTodoArgs struct {
	Title       string `json:"title" jsonschema:"title of the todo to update"`
	NewTitle    string `json:"newTitle,omitempty" jsonschema:"new title, leave empty to keep the current one"`
	Description string `json:"description" jsonschema:"new description, at most 1000 characters"`
	Deadline    string `json:"deadline" jsonschema:"new deadline in the format YYYY-MM-DD HH:mm:ss"`
}

// ToggleTodoStatusArgs represents the arguments for the toggleTodoStatus tool.
type ToggleTodoStatusArgs struct {
	Title  string       `json:"title" jsonschema:"title of the todo"`
	Status todos.Status `json:"status" jsonschema:"new status, pending or completed"`
}

// DeleteTodoArgs represents the arguments for the deleteTodo tool.
type DeleteTodoArgs struct {
	Title string `json:"title" jsonschema:"title of the todo to delete"`
}

// Response texts shared by the handlers.
const (
	noTodosText        = "No todos found"
	noPendingTodosText = "No pending todos"
	pendingHeader      = "Pending todos:\n\n"
)

type handlers struct {
	repo   *todos.Repository
	logger tools.Logger
}

func newHandlers(ctx *tools.Context, repo *todos.Repository) *handlers {
	logger := tools.NopLogger()
	if ctx != nil && ctx.Logger != nil {
		logger = ctx.Logger
	}
	return &handlers{repo: repo, logger: logger}
}

func (h *handlers) addTodo(ctx context.Context, session *mcp.ServerSession, params *mcp.CallToolParamsFor[AddTodoArgs]) (*mcp.CallToolResultFor[any], error) {
	args := params.Arguments
	logger := h.logger.WithTool(AddTodoToolName)

	if err := todos.ValidateTitle(args.Title); err != nil {
		return tools.ValidationError("title", err), nil
	}
	if err := todos.ValidateDescription(args.Description); err != nil {
		return tools.ValidationError("description", err), nil
	}
	if err := todos.ValidateDeadline(args.Deadline); err != nil {
		return tools.ValidationError("deadline", err), nil
	}

	item, err := h.repo.Insert(ctx, args.Title, args.Description, args.Deadline)
	if errors.Is(err, todos.ErrAlreadyExists) {
		logger.Debug("Rejected duplicate todo", slog.String("title", args.Title))
		return tools.Textf("Todo already exists: %s", args.Title), nil
	}
	if err != nil {
		logger.Error("Failed to add todo", slog.String("title", args.Title), slog.Any("error", err))
		return tools.WrapError(err, "failed to add todo"), nil
	}

	logger.Info("Todo added", slog.String("title", item.Title), slog.String("deadline", item.Deadline))
	return h.withPending(ctx, "Todo added: "+item.Title), nil
}

func (h *handlers) queryTodos(ctx context.Context, session *mcp.ServerSession, params *mcp.CallToolParamsFor[QueryTodosArgs]) (*mcp.CallToolResultFor[any], error) {
	status := params.Arguments.Status
	if !todos.IsValidFilter(status) {
		return tools.Errorf("invalid status '%s'. Must be one of: pending, completed, all", status), nil
	}

	items := h.repo.FindByStatus(ctx, status)
	h.logger.WithTool(QueryTodosToolName).Debug("Queried todos",
		slog.String("status", string(status)),
		slog.Int("count", len(items)))

	if len(items) == 0 {
		return tools.Text(noTodosText), nil
	}

	result := tools.NewResult().Meta("count", len(items))
	for _, item := range items {
		result.Add(todos.FormatTodo(item))
	}
	return result.Build(), nil
}

func (h *handlers) updateTodo(ctx context.Context, session *mcp.ServerSession, params *mcp.CallToolParamsFor[UpdateTodoArgs]) (*mcp.CallToolResultFor[any], error) {
	args := params.Arguments
	logger := h.logger.WithTool(UpdateTodoToolName)

	if err := todos.ValidateTitle(args.Title); err != nil {
		return tools.ValidationError("title", err), nil
	}
	newTitle := args.Title
	if args.NewTitle != "" {
		if err := todos.ValidateTitle(args.NewTitle); err != nil {
			return tools.ValidationError("newTitle", err), nil
		}
		newTitle = args.NewTitle
	}
	if err := todos.ValidateDescription(args.Description); err != nil {
		return tools.ValidationError("description", err), nil
	}
	if err := todos.ValidateDeadline(args.Deadline); err != nil {
		return tools.ValidationError("deadline", err), nil
	}

	item, ok := h.repo.FindByTitle(ctx, args.Title)
	if !ok {
		return tools.Textf("Todo not found: %s", args.Title), nil
	}

	item.Title = newTitle
	item.Description = args.Description
	item.Deadline = args.Deadline
	item.UpdatedAt = h.repo.Now()

	err := h.repo.Rename(ctx, args.Title, item)
	switch {
	case errors.Is(err, todos.ErrNotFound):
		return tools.Textf("Todo not found: %s", args.Title), nil
	case errors.Is(err, todos.ErrAlreadyExists):
		return tools.Textf("Todo already exists: %s", newTitle), nil
	case err != nil:
		logger.Error("Failed to update todo", slog.String("title", args.Title), slog.Any("error", err))
		return tools.WrapError(err, "failed to update todo"), nil
	}

	logger.Info("Todo updated", slog.String("title", args.Title), slog.String("new_title", newTitle))
	return h.withPending(ctx, "Todo updated: "+newTitle), nil
}

func (h *handlers) toggleTodoStatus(ctx context.Context, session *mcp.ServerSession, params *mcp.CallToolParamsFor[ToggleTodoStatusArgs]) (*mcp.CallToolResultFor[any], error) {
	args := params.Arguments
	logger := h.logger.WithTool(ToggleTodoStatusToolName)

	if err := todos.ValidateTitle(args.Title); err != nil {
		return tools.ValidationError("title", err), nil
	}
	if err := todos.ValidateStatus(args.Status); err != nil {
		return tools.ValidationError("status", err), nil
	}

	item, ok := h.repo.FindByTitle(ctx, args.Title)
	if !ok {
		return tools.Textf("Todo not found: %s", args.Title), nil
	}

	item.Status = args.Status
	item.UpdatedAt = h.repo.Now()

	if err := h.repo.Update(ctx, item); err != nil {
		if errors.Is(err, todos.ErrNotFound) {
			return tools.Textf("Todo not found: %s", args.Title), nil
		}
		logger.Error("Failed to update todo status", slog.String("title", args.Title), slog.Any("error", err))
		return tools.WrapError(err, "failed to update todo status"), nil
	}

	logger.Info("Todo status updated", slog.String("title", item.Title), slog.String("status", string(item.Status)))
	return h.withPending(ctx, "Todo status updated: "+item.Title+" is now "+string(item.Status)), nil
}

func (h *handlers) deleteTodo(ctx context.Context, session *mcp.ServerSession, params *mcp.CallToolParamsFor[DeleteTodoArgs]) (*mcp.CallToolResultFor[any], error) {
	args := params.Arguments
	logger := h.logger.WithTool(DeleteTodoToolName)

	if err := todos.ValidateTitle(args.Title); err != nil {
		return tools.ValidationError("title", err), nil
	}

	removed, err := h.repo.Remove(ctx, args.Title)
	if err != nil {
		logger.Error("Failed to delete todo", slog.String("title", args.Title), slog.Any("error", err))
		return tools.WrapError(err, "failed to delete todo"), nil
	}

	logger.Info("Todo deleted", slog.String("title", args.Title), slog.Bool("existed", removed))
	return h.withPending(ctx, "Todo deleted: "+args.Title), nil
}

// withPending builds a response with message followed by the pending list.
func (h *handlers) withPending(ctx context.Context, message string) *mcp.CallToolResultFor[any] {
	pending := h.repo.FindByStatus(ctx, todos.StatusPending)

	if len(pending) == 0 {
		return tools.Text(message, noPendingTodosText)
	}
	return tools.Text(message, pendingHeader+todos.FormatTodoList(pending))
}
