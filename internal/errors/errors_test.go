package errors

import (
	"io"
	"strings"
	"testing"
)

func TestWrap(t *testing.T) {
	if Wrap(nil, "context") != nil {
		t.Error("Expected Wrap(nil) to return nil")
	}

	err := Wrap(io.EOF, "reading %s", "todos")
	if !Is(err, io.EOF) {
		t.Errorf("Expected wrapped error to match io.EOF, got: %v", err)
	}
	if err.Error() != "reading todos: EOF" {
		t.Errorf("Unexpected message: %s", err.Error())
	}
}

func TestCategories(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		category error
		contains string
	}{
		{
			name:     "validation",
			err:      Validation("title must be at most %d characters", 100),
			category: ErrValidation,
			contains: "at most 100",
		},
		{
			name:     "configuration",
			err:      Configuration("unknown driver %q", "mongo"),
			category: ErrConfiguration,
			contains: `"mongo"`,
		},
		{
			name:     "security",
			err:      Security("path %s is blocked", "/etc/todos.db"),
			category: ErrSecurity,
			contains: "/etc/todos.db",
		},
		{
			name:     "persistence",
			err:      Persistence(io.ErrUnexpectedEOF, "save %s", "todos"),
			category: ErrPersistence,
			contains: "save todos",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !Is(tt.err, tt.category) {
				t.Errorf("Expected %v to be in category %v", tt.err, tt.category)
			}
			if !strings.Contains(tt.err.Error(), tt.contains) {
				t.Errorf("Expected error containing %q, got: %v", tt.contains, tt.err)
			}
		})
	}

	if !Is(Persistence(io.ErrUnexpectedEOF, "save"), io.ErrUnexpectedEOF) {
		t.Error("Expected persistence error to keep its cause")
	}
	if Persistence(nil, "save") != nil {
		t.Error("Expected Persistence(nil) to return nil")
	}
}
