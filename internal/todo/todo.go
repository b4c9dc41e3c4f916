// Package todo implements the todo list domain: the record type, its
// validation rules, the repository over the document store and the text
// formatter used in tool responses.
package todo

import (
	"time"
	"unicode/utf8"

	"github.com/d-kuro/todo-mcp/internal/errors"
)

// Status represents the lifecycle state of a todo item.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"

	// StatusAll selects every item in queries. It is never stored.
	StatusAll Status = "all"
)

// TimeLayout is the format of deadlines and timestamps (YYYY-MM-DD HH:mm:ss).
const TimeLayout = "2006-01-02 15:04:05"

// Field limits, counted in characters.
const (
	MaxTitleLength       = 100
	MaxDescriptionLength = 1000
)

// CollectionName is the store collection holding todo items.
const CollectionName = "todos"

// TodoItem represents a single todo item. The title is unique and acts as its identifier.
type TodoItem struct {
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
	Status      Status `json:"status" yaml:"status"`
	Deadline    string `json:"deadline" yaml:"deadline"`
	CreatedAt   string `json:"createdAt" yaml:"createdAt"`
	UpdatedAt   string `json:"updatedAt" yaml:"updatedAt"`
}

// Key returns the identity of the item in the store.
func (t TodoItem) Key() string {
	return t.Title
}

// DeadlineTime parses the deadline. Unparseable deadlines report ok=false.
func (t TodoItem) DeadlineTime() (time.Time, bool) {
	d, err := ParseTime(t.Deadline)
	return d, err == nil
}

// IsValidStatus reports whether s can be stored on an item.
func IsValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusCompleted:
		return true
	default:
		return false
	}
}

// IsValidFilter reports whether s can be used to query items.
// The empty filter selects every item.
func IsValidFilter(s Status) bool {
	return s == "" || s == StatusAll || IsValidStatus(s)
}

// FormatTime renders t with TimeLayout.
func FormatTime(t time.Time) string {
	return t.Format(TimeLayout)
}

// ParseTime parses a TimeLayout string in local time.
func ParseTime(s string) (time.Time, error) {
	return time.ParseInLocation(TimeLayout, s, time.Local)
}

// ValidateTitle checks the title length bounds.
func ValidateTitle(title string) error {
	return validateLength("title", title, MaxTitleLength)
}

// ValidateDescription checks the description length bounds.
func ValidateDescription(description string) error {
	return validateLength("description", description, MaxDescriptionLength)
}

// ValidateDeadline checks that the deadline matches TimeLayout.
func ValidateDeadline(deadline string) error {
	if deadline == "" {
		return errors.Validation("deadline cannot be empty")
	}
	if _, err := ParseTime(deadline); err != nil {
		return errors.Validation("deadline %q must use the format YYYY-MM-DD HH:mm:ss", deadline)
	}
	return nil
}

// ValidateTimestamps checks that both timestamps use TimeLayout and that
// updatedAt is not earlier than createdAt.
func ValidateTimestamps(createdAt, updatedAt string) error {
	created, err := ParseTime(createdAt)
	if err != nil {
		return errors.Validation("createdAt %q must use the format YYYY-MM-DD HH:mm:ss", createdAt)
	}
	updated, err := ParseTime(updatedAt)
	if err != nil {
		return errors.Validation("updatedAt %q must use the format YYYY-MM-DD HH:mm:ss", updatedAt)
	}
	if updated.Before(created) {
		return errors.Validation("updatedAt %s is earlier than createdAt %s", updatedAt, createdAt)
	}
	return nil
}

// ValidateStatus checks that s is a storable status.
func ValidateStatus(s Status) error {
	if !IsValidStatus(s) {
		return errors.Validation("invalid status %q, must be one of: pending, completed", s)
	}
	return nil
}

// Validate checks every field of a stored item.
func (t TodoItem) Validate() error {
	if err := ValidateTitle(t.Title); err != nil {
		return err
	}
	if err := ValidateDescription(t.Description); err != nil {
		return err
	}
	if err := ValidateDeadline(t.Deadline); err != nil {
		return err
	}
	return ValidateStatus(t.Status)
}

func validateLength(field, value string, maxLen int) error {
	n := utf8.RuneCountInString(value)
	if n == 0 {
		return errors.Validation("%s cannot be empty", field)
	}
	if n > maxLen {
		return errors.Validation("%s must be at most %d characters, got %d", field, maxLen, n)
	}
	return nil
}
