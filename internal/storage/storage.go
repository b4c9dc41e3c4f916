// Package storage provides an embedded document store: named in-memory
// collections loaded from and persisted to a pluggable backend.
package storage

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrCollectionNotFound is returned by a backend when the named collection has never been saved
var ErrCollectionNotFound = errors.New("collection not found")

// ErrDuplicateKey is returned when inserting a document whose key already exists
var ErrDuplicateKey = errors.New("duplicate document key")

// ErrDocumentNotFound is returned when updating a document whose key is absent
var ErrDocumentNotFound = errors.New("document not found")

// ErrClosed is returned when using a database after Close
var ErrClosed = errors.New("database is closed")

// Backend persists whole collections as ordered lists of JSON documents.
type Backend interface {
	// Load returns the documents of the named collection in stored order.
	// It returns ErrCollectionNotFound if the collection does not exist.
	Load(ctx context.Context, collection string) ([]json.RawMessage, error)

	// Save replaces the stored contents of the named collection.
	Save(ctx context.Context, collection string, docs []json.RawMessage) error

	// Close releases resources held by the backend
	Close() error
}

// Driver names accepted by NewBackend.
const (
	DriverSQLite = "sqlite"
	DriverJSON   = "json"
)

// Drivers returns the supported backend driver names.
func Drivers() []string {
	return []string{DriverSQLite, DriverJSON}
}
