package prompts

// Todo tool descriptions
const (
	// AddTodoToolDescription is the description for the addTodo tool
	AddTodoToolDescription = `Add a todo item.

Titles are unique and identify the item in every other todo tool, so pick a short, distinctive title.
If a todo with the same title already exists, nothing changes and the reply says so.

Arguments:
- title: up to 100 characters
- description: up to 1000 characters
- deadline: format YYYY-MM-DD HH:mm:ss

Returns a confirmation followed by the current pending todos.`

	// QueryTodosToolDescription is the description for the queryTodos tool
	QueryTodosToolDescription = `Query todo items by status: pending, completed, or all.

Pending todos come first ordered by nearest deadline, then completed todos ordered by deadline.`

	// UpdateTodoToolDescription is the description for the updateTodo tool
	UpdateTodoToolDescription = `Update the description and deadline of an existing todo, identified by its title.

Set newTitle to rename the todo; the new title must not belong to another todo.
Returns a confirmation followed by the current pending todos.`

	// ToggleTodoStatusToolDescription is the description for the toggleTodoStatus tool
	ToggleTodoStatusToolDescription = `Set the status of a todo, identified by its title, to pending or completed.

Returns a confirmation followed by the current pending todos.`

	// DeleteTodoToolDescription is the description for the deleteTodo tool
	DeleteTodoToolDescription = `Delete a todo identified by its title.

Deleting a title that does not exist succeeds without changes.
Returns a confirmation followed by the current pending todos.`
)
