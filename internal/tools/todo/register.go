// Package todo provides registration for todo management tools.
package todo

import (
	"github.com/d-kuro/todo-mcp/internal/prompts"
	"github.com/d-kuro/todo-mcp/internal/tools"
	todos "github.com/d-kuro/todo-mcp/internal/todo"
)

// Tool names as exposed to MCP clients.
const (
	AddTodoToolName          = "addTodo"
	QueryTodosToolName       = "queryTodos"
	UpdateTodoToolName       = "updateTodo"
	ToggleTodoStatusToolName = "toggleTodoStatus"
	DeleteTodoToolName       = "deleteTodo"
)

// CreateTodoTools creates all todo management tools backed by repo.
func CreateTodoTools(ctx *tools.Context, repo *todos.Repository) []*tools.ServerTool {
	h := newHandlers(ctx, repo)
	p := prompts.Default()

	return []*tools.ServerTool{
		tools.NewServerTool(AddTodoToolName, p.AddTodo, h.addTodo),
		tools.NewServerTool(QueryTodosToolName, p.QueryTodos, h.queryTodos),
		tools.NewServerTool(UpdateTodoToolName, p.UpdateTodo, h.updateTodo),
		tools.NewServerTool(ToggleTodoStatusToolName, p.ToggleTodoStatus, h.toggleTodoStatus),
		tools.NewServerTool(DeleteTodoToolName, p.DeleteTodo, h.deleteTodo),
	}
}

// Factory returns a tools.ToolGroupFactory creating the todo tools for repo.
func Factory(repo *todos.Repository) tools.ToolGroupFactory {
	return func(ctx *tools.Context) []*tools.ServerTool {
		return CreateTodoTools(ctx, repo)
	}
}
