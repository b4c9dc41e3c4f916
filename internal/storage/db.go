package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/d-kuro/todo-mcp/internal/collections"
	"github.com/d-kuro/todo-mcp/internal/errors"
	"github.com/d-kuro/todo-mcp/internal/logging"
)

// DefaultAutosaveInterval is the default period between background saves
const DefaultAutosaveInterval = 10 * time.Second

// autosaveTimeout bounds a single background save
const autosaveTimeout = 30 * time.Second

// Options configures a database.
type Options struct {
	// AutosaveInterval enables periodic saves of dirty collections when positive.
	AutosaveInterval time.Duration
	Logger           *logging.Logger
}

// DB is an embedded document database made of named collections.
type DB struct {
	backend     Backend
	logger      *logging.Logger
	collections *collections.SyncMap[string, persistable]

	// saveMu serializes writes to the backend.
	saveMu sync.Mutex

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	closed    chan struct{}
}

// Open returns a database on top of backend and starts autosave if configured.
func Open(ctx context.Context, backend Backend, opts *Options) (*DB, error) {
	if backend == nil {
		return nil, errors.Configuration("storage backend is required")
	}
	if opts == nil {
		opts = &Options{}
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewLogger("info")
	}

	db := &DB{
		backend:     backend,
		logger:      opts.Logger.WithComponent("storage"),
		collections: collections.NewSyncMap[string, persistable](),
		closed:      make(chan struct{}),
	}

	if opts.AutosaveInterval > 0 {
		db.stop = make(chan struct{})
		db.done = make(chan struct{})
		go db.autosave(opts.AutosaveInterval)
		db.logger.Debug("Autosave enabled", slog.Duration("interval", opts.AutosaveInterval))
	}

	return db, nil
}

// OpenCollection returns the named collection, loading it from the backend
// on first use or creating it empty when the backend has no such collection.
func OpenCollection[T any](ctx context.Context, db *DB, name string, keyFn func(T) string) (*Collection[T], error) {
	if db.isClosed() {
		return nil, ErrClosed
	}
	if name == "" {
		return nil, errors.Configuration("collection name cannot be empty")
	}

	p, loaded, err := db.collections.LoadOrStore(name, func() (persistable, error) {
		raw, err := db.backend.Load(ctx, name)
		if errors.Is(err, ErrCollectionNotFound) {
			db.logger.Info("Creating collection", slog.String("collection", name))
			c := newCollection(name, keyFn)
			// A fresh collection is saved on the next flush so it exists on disk.
			c.version = 1
			return c, nil
		}
		if err != nil {
			return nil, errors.Persistence(err, "load collection %s", name)
		}
		c, err := decodeCollection(name, keyFn, raw)
		if err != nil {
			return nil, errors.Persistence(err, "load collection %s", name)
		}
		db.logger.Info("Loaded collection",
			slog.String("collection", name),
			slog.Int("documents", len(raw)))
		return c, nil
	})
	if err != nil {
		return nil, err
	}

	c, ok := p.(*Collection[T])
	if !ok {
		return nil, fmt.Errorf("collection %s already opened with a different document type", name)
	}
	if loaded {
		db.logger.Debug("Reusing open collection", slog.String("collection", name))
	}
	return c, nil
}

// Save writes every collection with unsaved changes to the backend.
// It returns ErrClosed once Close has been called.
func (db *DB) Save(ctx context.Context) error {
	if db.isClosed() {
		return ErrClosed
	}
	return db.save(ctx)
}

func (db *DB) save(ctx context.Context) error {
	db.saveMu.Lock()
	defer db.saveMu.Unlock()

	names := db.collections.Keys()
	sort.Strings(names)

	var errs []error
	for _, name := range names {
		p, ok := db.collections.Get(name)
		if !ok {
			continue
		}

		docs, version, dirty, err := p.snapshot()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !dirty {
			continue
		}

		if err := db.backend.Save(ctx, name, docs); err != nil {
			errs = append(errs, fmt.Errorf("collection %s: %w", name, err))
			continue
		}
		p.markSaved(version)
		db.logger.Debug("Saved collection",
			slog.String("collection", name),
			slog.Int("documents", len(docs)))
	}

	if len(errs) > 0 {
		return errors.Persistence(errors.Join(errs...), "save database")
	}
	return nil
}

// Close stops autosave, writes pending changes and closes the backend.
func (db *DB) Close(ctx context.Context) error {
	var err error
	db.closeOnce.Do(func() {
		close(db.closed)
		if db.stop != nil {
			close(db.stop)
			<-db.done
		}

		saveErr := db.save(ctx)
		closeErr := db.backend.Close()
		err = errors.Join(saveErr, closeErr)

		db.logger.Debug("Database closed", slog.Int("collections", db.collections.Len()))
		db.collections.Clear()
	})
	return err
}

// pending counts collections with unsaved changes.
func (db *DB) pending() int {
	n := 0
	for _, name := range db.collections.Keys() {
		if p, ok := db.collections.Get(name); ok && p.Dirty() {
			n++
		}
	}
	return n
}

func (db *DB) isClosed() bool {
	select {
	case <-db.closed:
		return true
	default:
		return false
	}
}

// autosave periodically saves dirty collections until Close is called.
// Failures are logged; explicit Save calls report their own errors.
func (db *DB) autosave(interval time.Duration) {
	defer close(db.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-db.stop:
			return
		case <-ticker.C:
			pending := db.pending()
			if pending == 0 {
				continue
			}
			ctx, cancel := context.WithTimeout(context.Background(), autosaveTimeout)
			if err := db.save(ctx); err != nil {
				db.logger.Error("Autosave failed", slog.Any("error", err))
			} else {
				db.logger.Debug("Autosaved", slog.Int("collections", pending))
			}
			cancel()
		}
	}
}
