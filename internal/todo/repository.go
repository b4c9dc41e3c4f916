package todo

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/d-kuro/todo-mcp/internal/errors"
	"github.com/d-kuro/todo-mcp/internal/storage"
)

// ErrAlreadyExists is returned when a title is already used by another item
var ErrAlreadyExists = errors.New("todo already exists: %w", errors.ErrConflict)

// ErrNotFound is returned when no item has the requested title
var ErrNotFound = errors.New("todo %w", errors.ErrNotFound)

// Flusher persists pending changes. *storage.DB implements it.
type Flusher interface {
	Save(ctx context.Context) error
}

// Repository provides access to todo items in the store.
// Every mutation is flushed before it returns.
type Repository struct {
	items   *storage.Collection[TodoItem]
	flusher Flusher
	now     func() time.Time
}

// Option configures a Repository.
type Option func(*Repository)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) {
		r.now = now
	}
}

// NewRepository creates a repository over an opened collection.
func NewRepository(items *storage.Collection[TodoItem], flusher Flusher, opts ...Option) *Repository {
	r := &Repository{
		items:   items,
		flusher: flusher,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Open opens the todo collection in db and returns a repository over it.
func Open(ctx context.Context, db *storage.DB, opts ...Option) (*Repository, error) {
	items, err := storage.OpenCollection(ctx, db, CollectionName, TodoItem.Key)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s collection: %w", CollectionName, err)
	}
	return NewRepository(items, db, opts...), nil
}

// Now returns the current time formatted with TimeLayout.
func (r *Repository) Now() string {
	return FormatTime(r.now())
}

// FindByStatus returns items with the given status, or every item for
// StatusAll and the empty status. The result is sorted with Sort.
func (r *Repository) FindByStatus(ctx context.Context, status Status) []TodoItem {
	var items []TodoItem
	if status == "" || status == StatusAll {
		items = r.items.All()
	} else {
		items = r.items.Find(func(t TodoItem) bool {
			return t.Status == status
		})
	}
	Sort(items)
	return items
}

// FindByTitle returns the item with the given title.
func (r *Repository) FindByTitle(ctx context.Context, title string) (TodoItem, bool) {
	return r.items.Get(title)
}

// Insert adds a pending item stamped with the current time.
// It returns ErrAlreadyExists if the title is taken.
func (r *Repository) Insert(ctx context.Context, title, description, deadline string) (TodoItem, error) {
	now := r.Now()
	item := TodoItem{
		Title:       title,
		Description: description,
		Status:      StatusPending,
		Deadline:    deadline,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := r.items.Insert(item); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return TodoItem{}, fmt.Errorf("%w: %s", ErrAlreadyExists, title)
		}
		return TodoItem{}, err
	}

	return item, r.flush(ctx)
}

// Update overwrites the item with the same title. The caller sets UpdatedAt.
func (r *Repository) Update(ctx context.Context, item TodoItem) error {
	return r.Rename(ctx, item.Title, item)
}

// Rename overwrites the item titled oldTitle with item, which may carry a new title.
func (r *Repository) Rename(ctx context.Context, oldTitle string, item TodoItem) error {
	if err := r.items.Replace(oldTitle, item); err != nil {
		switch {
		case errors.Is(err, storage.ErrDocumentNotFound):
			return fmt.Errorf("%w: %s", ErrNotFound, oldTitle)
		case errors.Is(err, storage.ErrDuplicateKey):
			return fmt.Errorf("%w: %s", ErrAlreadyExists, item.Title)
		default:
			return err
		}
	}
	return r.flush(ctx)
}

// Remove deletes the item with the given title. Removing an absent title is not an error.
func (r *Repository) Remove(ctx context.Context, title string) (bool, error) {
	if !r.items.Remove(title) {
		return false, nil
	}
	return true, r.flush(ctx)
}

// ImportResult counts what Import did with each item.
type ImportResult struct {
	Added   int
	Updated int
	Skipped int
}

// Import stores externally produced items in one flush. Every item is
// validated before anything is written. Items whose title already exists
// are overwritten when overwrite is set and skipped otherwise. Missing
// timestamps are filled with the current time.
func (r *Repository) Import(ctx context.Context, items []TodoItem, overwrite bool) (ImportResult, error) {
	var result ImportResult

	now := r.Now()
	prepared := make([]TodoItem, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for i, item := range items {
		if err := item.Validate(); err != nil {
			return result, fmt.Errorf("item %d (%q): %w", i, item.Title, err)
		}
		if _, dup := seen[item.Title]; dup {
			return result, fmt.Errorf("item %d: %w: %s", i, ErrAlreadyExists, item.Title)
		}
		seen[item.Title] = struct{}{}

		if item.CreatedAt == "" {
			item.CreatedAt = now
		}
		if item.UpdatedAt == "" {
			item.UpdatedAt = item.CreatedAt
		}
		if err := ValidateTimestamps(item.CreatedAt, item.UpdatedAt); err != nil {
			return result, fmt.Errorf("item %d (%q): %w", i, item.Title, err)
		}
		prepared = append(prepared, item)
	}

	for _, item := range prepared {
		if _, exists := r.items.Get(item.Title); exists {
			if !overwrite {
				result.Skipped++
				continue
			}
			if err := r.items.Update(item); err != nil {
				return result, err
			}
			result.Updated++
			continue
		}

		if err := r.items.Insert(item); err != nil {
			return result, err
		}
		result.Added++
	}

	if result.Added+result.Updated == 0 {
		return result, nil
	}
	return result, r.flush(ctx)
}

// Count returns the number of stored items.
func (r *Repository) Count() int {
	return r.items.Len()
}

func (r *Repository) flush(ctx context.Context) error {
	if r.flusher == nil {
		return nil
	}
	return r.flusher.Save(ctx)
}

// Sort orders items in place: pending before completed, then by ascending
// deadline within each status. Ties fall back to creation time and title.
func Sort(items []TodoItem) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]

		if ra, rb := statusRank(a.Status), statusRank(b.Status); ra != rb {
			return ra < rb
		}

		da, okA := a.DeadlineTime()
		db, okB := b.DeadlineTime()
		switch {
		case okA && okB && !da.Equal(db):
			return da.Before(db)
		case okA != okB:
			// Unparseable deadlines go last.
			return okA
		case !okA && !okB && a.Deadline != b.Deadline:
			return a.Deadline < b.Deadline
		}

		if a.CreatedAt != b.CreatedAt {
			return a.CreatedAt < b.CreatedAt
		}
		return a.Title < b.Title
	})
}

func statusRank(s Status) int {
	if s == StatusPending {
		return 0
	}
	return 1
}
