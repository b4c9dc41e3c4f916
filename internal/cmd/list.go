package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/d-kuro/todo-mcp/internal/todo"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	doneStyle    = lipgloss.NewStyle().Faint(true)
	overdueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Faint(true)
	panelStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")).
			Padding(0, 1)

	boxChecked   = "☑"
	boxUnchecked = "☐"
)

// NewListCmd creates a command printing the stored todos.
func NewListCmd() *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored todos",
		Long:  `List the todos in the store, pending first and ordered by deadline.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := todo.Status(strings.ToLower(status))
			if !todo.IsValidFilter(filter) {
				return fmt.Errorf("invalid status %q, must be one of: pending, completed, all", status)
			}

			return withStore(cmd, func(ctx context.Context, repo *todo.Repository) error {
				items := repo.FindByStatus(ctx, filter)
				return renderList(cmd.OutOrStdout(), items, time.Now())
			})
		},
	}

	cmd.Flags().StringVarP(&status, "status", "s", string(todo.StatusAll), "Filter by status: pending, completed or all")
	return cmd
}

// renderList writes items as a bordered panel. Pending items past their
// deadline relative to now are highlighted.
func renderList(w io.Writer, items []todo.TodoItem, now time.Time) error {
	if len(items) == 0 {
		_, err := fmt.Fprintln(w, mutedStyle.Render("No todos found"))
		return err
	}

	pending := 0
	lines := make([]string, 0, len(items)*2+2)
	for _, item := range items {
		lines = append(lines, renderItem(item, now))
		if item.Description != "" {
			lines = append(lines, "  "+mutedStyle.Render(item.Description))
		}
		if item.Status == todo.StatusPending {
			pending++
		}
	}
	lines = append(lines, "", mutedStyle.Render(fmt.Sprintf("%d pending, %d completed", pending, len(items)-pending)))

	_, err := fmt.Fprintln(w, panelStyle.Render(strings.Join(lines, "\n")))
	return err
}

func renderItem(item todo.TodoItem, now time.Time) string {
	if item.Status == todo.StatusCompleted {
		return boxChecked + " " + doneStyle.Render(item.Title) + "  " + mutedStyle.Render(item.Deadline)
	}

	deadline := pendingStyle.Render(item.Deadline)
	if d, ok := item.DeadlineTime(); ok && d.Before(now) {
		deadline = overdueStyle.Render(item.Deadline + " (overdue)")
	}
	return boxUnchecked + " " + titleStyle.Render(item.Title) + "  " + deadline
}
