// Package prompts contains the descriptions the server advertises for its tools.
package prompts

// ToolPrompts contains all prompts for MCP tools
type ToolPrompts struct {
	AddTodo          string
	QueryTodos       string
	UpdateTodo       string
	ToggleTodoStatus string
	DeleteTodo       string
}

// Default returns the default prompts configuration
func Default() *ToolPrompts {
	return &ToolPrompts{
		AddTodo:          AddTodoToolDescription,
		QueryTodos:       QueryTodosToolDescription,
		UpdateTodo:       UpdateTodoToolDescription,
		ToggleTodoStatus: ToggleTodoStatusToolDescription,
		DeleteTodo:       DeleteTodoToolDescription,
	}
}
