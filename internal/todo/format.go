package todo

import (
	"strings"
)

// FormatTodo renders a single item as a text block: title, deadline,
// description and status, one per line, followed by a blank line.
// The zero item renders as the empty string.
func FormatTodo(item TodoItem) string {
	if item == (TodoItem{}) {
		return ""
	}

	var b strings.Builder
	b.WriteString("Title: ")
	b.WriteString(item.Title)
	b.WriteString("\nDeadline: ")
	b.WriteString(item.Deadline)
	b.WriteString("\nDescription: ")
	b.WriteString(item.Description)
	b.WriteString("\nStatus: ")
	b.WriteString(string(item.Status))
	b.WriteString("\n\n")
	return b.String()
}

// FormatTodoList concatenates the blocks of items in the given order.
func FormatTodoList(items []TodoItem) string {
	if len(items) == 0 {
		return ""
	}

	var b strings.Builder
	for _, item := range items {
		b.WriteString(FormatTodo(item))
	}
	return b.String()
}
