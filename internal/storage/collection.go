package storage

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/d-kuro/todo-mcp/internal/collections"
)

// persistable is the view of a collection the database needs to save it.
type persistable interface {
	Name() string
	Dirty() bool
	snapshot() (docs []json.RawMessage, version uint64, dirty bool, err error)
	markSaved(version uint64)
}

// Collection is an ordered, keyed set of documents held in memory.
// Documents are stored by value; callers get copies.
type Collection[T any] struct {
	name  string
	keyFn func(T) string

	mu    sync.RWMutex
	docs  []T
	index map[string]int

	// version counts mutations; saved is the version last written to the backend.
	version uint64
	saved   uint64
}

func newCollection[T any](name string, keyFn func(T) string) *Collection[T] {
	return &Collection[T]{
		name:  name,
		keyFn: keyFn,
		index: make(map[string]int),
	}
}

// decodeCollection builds a collection from stored documents.
func decodeCollection[T any](name string, keyFn func(T) string, raw []json.RawMessage) (*Collection[T], error) {
	c := newCollection(name, keyFn)
	for i, data := range raw {
		var doc T
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to decode document %d of collection %s: %w", i, name, err)
		}
		key := keyFn(doc)
		if _, exists := c.index[key]; exists {
			return nil, fmt.Errorf("collection %s: %w: %q", name, ErrDuplicateKey, key)
		}
		c.index[key] = len(c.docs)
		c.docs = append(c.docs, doc)
	}
	return c, nil
}

// Name returns the collection name.
func (c *Collection[T]) Name() string {
	return c.name
}

// Len returns the number of documents.
func (c *Collection[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.docs)
}

// Get returns the document with the given key.
func (c *Collection[T]) Get(key string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i, ok := c.index[key]
	if !ok {
		var zero T
		return zero, false
	}
	return c.docs[i], true
}

// Find returns the documents matching pred in insertion order.
// A nil pred matches every document.
func (c *Collection[T]) Find(pred func(T) bool) []T {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if pred == nil {
		result := make([]T, len(c.docs))
		copy(result, c.docs)
		return result
	}
	return collections.Filter(c.docs, pred)
}

// All returns every document in insertion order.
func (c *Collection[T]) All() []T {
	return c.Find(nil)
}

// Insert appends doc. It fails with ErrDuplicateKey if the key is taken.
func (c *Collection[T]) Insert(doc T) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := c.keyFn(doc)
	if _, exists := c.index[key]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateKey, key)
	}

	c.index[key] = len(c.docs)
	c.docs = append(c.docs, doc)
	c.version++
	return nil
}

// Update overwrites the document with the same key as doc.
func (c *Collection[T]) Update(doc T) error {
	return c.Replace(c.keyFn(doc), doc)
}

// Replace overwrites the document stored under key with doc, which may carry
// a different key. The position of the document is kept.
func (c *Collection[T]) Replace(key string, doc T) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i, ok := c.index[key]
	if !ok {
		return fmt.Errorf("%w: %q", ErrDocumentNotFound, key)
	}

	newKey := c.keyFn(doc)
	if newKey != key {
		if _, exists := c.index[newKey]; exists {
			return fmt.Errorf("%w: %q", ErrDuplicateKey, newKey)
		}
		delete(c.index, key)
		c.index[newKey] = i
	}

	c.docs[i] = doc
	c.version++
	return nil
}

// Remove deletes the document with the given key and reports whether one was removed.
func (c *Collection[T]) Remove(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	i, ok := c.index[key]
	if !ok {
		return false
	}

	c.docs = append(c.docs[:i], c.docs[i+1:]...)
	delete(c.index, key)
	for j := i; j < len(c.docs); j++ {
		c.index[c.keyFn(c.docs[j])] = j
	}
	c.version++
	return true
}

func (c *Collection[T]) snapshot() ([]json.RawMessage, uint64, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.version == c.saved {
		return nil, c.version, false, nil
	}

	docs := make([]json.RawMessage, len(c.docs))
	for i, doc := range c.docs {
		data, err := json.Marshal(doc)
		if err != nil {
			return nil, 0, false, fmt.Errorf("failed to encode document %d of collection %s: %w", i, c.name, err)
		}
		docs[i] = data
	}
	return docs, c.version, true, nil
}

func (c *Collection[T]) markSaved(version uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if version > c.saved {
		c.saved = version
	}
}

// Dirty reports whether the collection has changes not yet written to the backend.
func (c *Collection[T]) Dirty() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version != c.saved
}
