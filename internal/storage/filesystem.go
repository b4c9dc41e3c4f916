package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/d-kuro/todo-mcp/internal/errors"
)

// JSONFileBackend stores collections in a single human-readable JSON file.
// The file maps each collection name to its array of documents.
type JSONFileBackend struct {
	path string
	mu   sync.Mutex
}

// NewJSONFileBackend creates a backend writing to path.
// The file is created on first save.
func NewJSONFileBackend(path string) (*JSONFileBackend, error) {
	if path == "" {
		return nil, errors.Configuration("json store path cannot be empty")
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return &JSONFileBackend{path: path}, nil
}

// Path returns the path of the backing file
func (fs *JSONFileBackend) Path() string {
	return fs.path
}

// Load implements Backend.
func (fs *JSONFileBackend) Load(ctx context.Context, collection string) ([]json.RawMessage, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	file, err := fs.readFile()
	if err != nil {
		return nil, err
	}

	docs, ok := file[collection]
	if !ok {
		return nil, ErrCollectionNotFound
	}
	if docs == nil {
		docs = []json.RawMessage{}
	}
	return docs, nil
}

// Save implements Backend. Other collections in the file are preserved.
func (fs *JSONFileBackend) Save(ctx context.Context, collection string, docs []json.RawMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	file, err := fs.readFile()
	if err != nil {
		return err
	}

	if docs == nil {
		docs = []json.RawMessage{}
	}
	file[collection] = docs

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal collections: %w", err)
	}

	// Write to temporary file first, then rename for atomic operation
	tempFile := fs.path + ".tmp"
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write store file: %w", err)
	}

	if err := os.Rename(tempFile, fs.path); err != nil {
		_ = os.Remove(tempFile)
		return fmt.Errorf("failed to rename store file: %w", err)
	}

	return nil
}

// Close implements Backend.
func (fs *JSONFileBackend) Close() error {
	return nil
}

// readFile returns the decoded file, or an empty set when it does not exist yet.
func (fs *JSONFileBackend) readFile() (map[string][]json.RawMessage, error) {
	data, err := os.ReadFile(fs.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string][]json.RawMessage{}, nil
		}
		return nil, fmt.Errorf("failed to read store file: %w", err)
	}

	if len(data) == 0 {
		return map[string][]json.RawMessage{}, nil
	}

	file := map[string][]json.RawMessage{}
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to unmarshal store file: %w", err)
	}
	return file, nil
}

// NewBackend creates the backend for driver at path.
func NewBackend(driver, path string) (Backend, error) {
	switch driver {
	case DriverSQLite, "":
		return NewSQLiteBackend(path)
	case DriverJSON:
		return NewJSONFileBackend(path)
	default:
		return nil, errors.Configuration("unknown storage driver %q (supported: %v)", driver, Drivers())
	}
}
