package todo

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	apperrors "github.com/d-kuro/todo-mcp/internal/errors"
	"github.com/d-kuro/todo-mcp/internal/logging"
	"github.com/d-kuro/todo-mcp/internal/storage"
)

// testClock returns increasing times one second apart.
func testClock() func() time.Time {
	current := time.Date(2025, 1, 1, 9, 0, 0, 0, time.Local)
	return func() time.Time {
		current = current.Add(time.Second)
		return current
	}
}

// newTestRepository opens a repository backed by a JSON file in a temp dir.
func newTestRepository(t *testing.T) (*Repository, *storage.DB, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "todos.json")
	backend, err := storage.NewJSONFileBackend(path)
	if err != nil {
		t.Fatalf("Failed to create backend: %v", err)
	}

	ctx := context.Background()
	db, err := storage.Open(ctx, backend, &storage.Options{
		Logger: logging.NewLoggerWithWriter("error", io.Discard),
	})
	if err != nil {
		t.Fatalf("Failed to open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close(ctx) })

	repo, err := Open(ctx, db, WithClock(testClock()))
	if err != nil {
		t.Fatalf("Failed to open repository: %v", err)
	}
	return repo, db, path
}

func titles(items []TodoItem) []string {
	result := make([]string, len(items))
	for i, item := range items {
		result[i] = item.Title
	}
	return result
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr bool
	}{
		{"title empty", ValidateTitle(""), true},
		{"title one char", ValidateTitle("x"), false},
		{"title at limit", ValidateTitle(strings.Repeat("a", MaxTitleLength)), false},
		{"title over limit", ValidateTitle(strings.Repeat("a", MaxTitleLength+1)), true},
		{"title multibyte at limit", ValidateTitle(strings.Repeat("待", MaxTitleLength)), false},
		{"description empty", ValidateDescription(""), true},
		{"description at limit", ValidateDescription(strings.Repeat("d", MaxDescriptionLength)), false},
		{"description over limit", ValidateDescription(strings.Repeat("d", MaxDescriptionLength+1)), true},
		{"deadline valid", ValidateDeadline("2025-01-01 10:00:00"), false},
		{"deadline empty", ValidateDeadline(""), true},
		{"deadline date only", ValidateDeadline("2025-01-01"), true},
		{"deadline iso", ValidateDeadline("2025-01-01T10:00:00Z"), true},
		{"status pending", ValidateStatus(StatusPending), false},
		{"status completed", ValidateStatus(StatusCompleted), false},
		{"status all", ValidateStatus(StatusAll), true},
		{"status unknown", ValidateStatus("in_progress"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.wantErr {
				if tt.err == nil {
					t.Fatal("Expected error but got none")
				}
				if !apperrors.Is(tt.err, apperrors.ErrValidation) {
					t.Errorf("Expected validation error, got: %v", tt.err)
				}
				return
			}
			if tt.err != nil {
				t.Errorf("Unexpected error: %v", tt.err)
			}
		})
	}
}

func TestIsValidFilter(t *testing.T) {
	for _, s := range []Status{"", StatusAll, StatusPending, StatusCompleted} {
		if !IsValidFilter(s) {
			t.Errorf("Expected %q to be a valid filter", s)
		}
	}
	if IsValidFilter("done") {
		t.Error("Expected \"done\" to be rejected")
	}
}

func TestInsertRoundTrip(t *testing.T) {
	repo, _, _ := newTestRepository(t)
	ctx := context.Background()

	if _, err := repo.Insert(ctx, "X", "desc", "2025-01-01 10:00:00"); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	items := repo.FindByStatus(ctx, StatusAll)
	if len(items) != 1 {
		t.Fatalf("Expected 1 item, got %d", len(items))
	}
	item := items[0]
	if item.Title != "X" || item.Status != StatusPending || item.Deadline != "2025-01-01 10:00:00" {
		t.Errorf("Unexpected item: %+v", item)
	}
	if item.CreatedAt == "" || item.CreatedAt != item.UpdatedAt {
		t.Errorf("Expected equal creation timestamps, got %q / %q", item.CreatedAt, item.UpdatedAt)
	}
	if _, err := ParseTime(item.CreatedAt); err != nil {
		t.Errorf("CreatedAt not in layout: %v", err)
	}
}

func TestInsertDuplicateDoesNotMutate(t *testing.T) {
	repo, _, _ := newTestRepository(t)
	ctx := context.Background()

	original, err := repo.Insert(ctx, "X", "first", "2025-01-01 10:00:00")
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	_, err = repo.Insert(ctx, "X", "second", "2026-01-01 10:00:00")
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("Expected ErrAlreadyExists, got: %v", err)
	}

	if repo.Count() != 1 {
		t.Errorf("Expected 1 item, got %d", repo.Count())
	}
	got, _ := repo.FindByTitle(ctx, "X")
	if got != original {
		t.Errorf("Duplicate insert mutated the store: %+v", got)
	}
}

func TestFindByStatusPartitions(t *testing.T) {
	repo, _, _ := newTestRepository(t)
	ctx := context.Background()

	const n = 6
	for i := 0; i < n; i++ {
		title := string(rune('a' + i))
		if _, err := repo.Insert(ctx, title, "desc", "2025-01-01 10:00:00"); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}
	for _, title := range []string{"b", "d"} {
		item, _ := repo.FindByTitle(ctx, title)
		item.Status = StatusCompleted
		if err := repo.Update(ctx, item); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
	}

	all := repo.FindByStatus(ctx, StatusAll)
	if len(all) != n {
		t.Fatalf("Expected %d items, got %d", n, len(all))
	}
	if len(repo.FindByStatus(ctx, "")) != n {
		t.Error("Empty status should select every item")
	}

	seen := map[string]int{}
	for _, s := range []Status{StatusPending, StatusCompleted} {
		for _, item := range repo.FindByStatus(ctx, s) {
			if item.Status != s {
				t.Errorf("Item %q has status %q in %q query", item.Title, item.Status, s)
			}
			seen[item.Title]++
		}
	}
	if len(seen) != n {
		t.Errorf("Partition missed items: %v", seen)
	}
	for title, count := range seen {
		if count != 1 {
			t.Errorf("Item %q appeared %d times", title, count)
		}
	}
}

func TestSortPolicy(t *testing.T) {
	const (
		t1 = "2025-01-01 08:00:00"
		t2 = "2025-01-02 08:00:00"
		t3 = "2025-01-03 08:00:00"
	)

	items := []TodoItem{
		{Title: "c3", Status: StatusCompleted, Deadline: t3},
		{Title: "p3", Status: StatusPending, Deadline: t3},
		{Title: "c1", Status: StatusCompleted, Deadline: t1},
		{Title: "p1", Status: StatusPending, Deadline: t1},
		{Title: "c2", Status: StatusCompleted, Deadline: t2},
		{Title: "p2", Status: StatusPending, Deadline: t2},
	}
	Sort(items)

	want := []string{"p1", "p2", "p3", "c1", "c2", "c3"}
	got := titles(items)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Expected order %v, got %v", want, got)
		}
	}
}

func TestSortPendingBeforeCompletedRegardlessOfDeadline(t *testing.T) {
	items := []TodoItem{
		{Title: "old-done", Status: StatusCompleted, Deadline: "2000-01-01 00:00:00"},
		{Title: "far-future", Status: StatusPending, Deadline: "2999-01-01 00:00:00"},
	}
	Sort(items)
	if items[0].Title != "far-future" {
		t.Errorf("Expected pending item first, got %v", titles(items))
	}
}

func TestSortTieBreaks(t *testing.T) {
	items := []TodoItem{
		{Title: "bad", Status: StatusPending, Deadline: "someday"},
		{Title: "b", Status: StatusPending, Deadline: "2025-01-01 08:00:00", CreatedAt: "2025-01-01 00:00:02"},
		{Title: "a", Status: StatusPending, Deadline: "2025-01-01 08:00:00", CreatedAt: "2025-01-01 00:00:02"},
		{Title: "z", Status: StatusPending, Deadline: "2025-01-01 08:00:00", CreatedAt: "2025-01-01 00:00:01"},
	}
	Sort(items)

	want := []string{"z", "a", "b", "bad"}
	got := titles(items)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Expected order %v, got %v", want, got)
		}
	}
}

func TestFindByStatusIsSorted(t *testing.T) {
	repo, _, _ := newTestRepository(t)
	ctx := context.Background()

	for _, in := range []struct{ title, deadline string }{
		{"T3", "2025-03-01 00:00:00"},
		{"T1", "2025-01-01 00:00:00"},
		{"T2", "2025-02-01 00:00:00"},
	} {
		if _, err := repo.Insert(ctx, in.title, "desc", in.deadline); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	got := titles(repo.FindByStatus(ctx, StatusPending))
	want := []string{"T1", "T2", "T3"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Expected %v, got %v", want, got)
		}
	}
}

func TestUpdateAndRename(t *testing.T) {
	repo, _, _ := newTestRepository(t)
	ctx := context.Background()

	_, _ = repo.Insert(ctx, "a", "desc", "2025-01-01 10:00:00")
	_, _ = repo.Insert(ctx, "b", "desc", "2025-01-01 10:00:00")

	err := repo.Update(ctx, TodoItem{Title: "missing", Status: StatusPending})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got: %v", err)
	}
	if repo.Count() != 2 {
		t.Errorf("Update of missing title must not create a record, count=%d", repo.Count())
	}

	item, _ := repo.FindByTitle(ctx, "a")
	item.Title = "b"
	if err := repo.Rename(ctx, "a", item); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("Expected ErrAlreadyExists on rename collision, got: %v", err)
	}

	item.Title = "c"
	if err := repo.Rename(ctx, "a", item); err != nil {
		t.Fatalf("Rename failed: %v", err)
	}
	if _, ok := repo.FindByTitle(ctx, "a"); ok {
		t.Error("Old title still present after rename")
	}
	if _, ok := repo.FindByTitle(ctx, "c"); !ok {
		t.Error("New title missing after rename")
	}
}

func TestRemove(t *testing.T) {
	repo, _, _ := newTestRepository(t)
	ctx := context.Background()

	_, _ = repo.Insert(ctx, "a", "desc", "2025-01-01 10:00:00")

	removed, err := repo.Remove(ctx, "missing")
	if err != nil || removed {
		t.Errorf("Remove(missing) = %v, %v", removed, err)
	}
	if repo.Count() != 1 {
		t.Errorf("Removing an absent title changed the store, count=%d", repo.Count())
	}

	removed, err = repo.Remove(ctx, "a")
	if err != nil || !removed {
		t.Errorf("Remove(a) = %v, %v", removed, err)
	}
	if repo.Count() != 0 {
		t.Errorf("Expected empty store, count=%d", repo.Count())
	}
}

func TestImport(t *testing.T) {
	repo, _, _ := newTestRepository(t)
	ctx := context.Background()

	_, _ = repo.Insert(ctx, "existing", "old", "2025-01-01 10:00:00")

	items := []TodoItem{
		{Title: "existing", Description: "new", Status: StatusCompleted, Deadline: "2025-01-02 10:00:00"},
		{Title: "fresh", Description: "d", Status: StatusPending, Deadline: "2025-01-03 10:00:00", CreatedAt: "2024-12-01 08:00:00"},
	}

	result, err := repo.Import(ctx, items, false)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if result != (ImportResult{Added: 1, Skipped: 1}) {
		t.Errorf("Unexpected result: %+v", result)
	}
	if got, _ := repo.FindByTitle(ctx, "existing"); got.Description != "old" {
		t.Errorf("Existing item overwritten without overwrite: %+v", got)
	}
	fresh, _ := repo.FindByTitle(ctx, "fresh")
	if fresh.CreatedAt != "2024-12-01 08:00:00" || fresh.UpdatedAt != fresh.CreatedAt {
		t.Errorf("Expected imported timestamps to be kept, got %+v", fresh)
	}

	result, err = repo.Import(ctx, items[:1], true)
	if err != nil {
		t.Fatalf("Import with overwrite failed: %v", err)
	}
	if result.Updated != 1 {
		t.Errorf("Expected one update, got %+v", result)
	}
	if got, _ := repo.FindByTitle(ctx, "existing"); got.Description != "new" || got.Status != StatusCompleted {
		t.Errorf("Existing item not overwritten: %+v", got)
	}

	bad := []TodoItem{
		{Title: "ok", Description: "d", Status: StatusPending, Deadline: "2025-01-01 10:00:00"},
		{Title: "bad", Description: "d", Status: "done", Deadline: "2025-01-01 10:00:00"},
	}
	if _, err := repo.Import(ctx, bad, false); !apperrors.Is(err, apperrors.ErrValidation) {
		t.Errorf("Expected validation error, got %v", err)
	}
	if _, ok := repo.FindByTitle(ctx, "ok"); ok {
		t.Error("Invalid batch partially imported")
	}

	dup := []TodoItem{bad[0], bad[0]}
	if _, err := repo.Import(ctx, dup, false); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("Expected duplicate error, got %v", err)
	}
}

func TestImportRejectsBadTimestamps(t *testing.T) {
	tests := []struct {
		name      string
		createdAt string
		updatedAt string
	}{
		{name: "malformed createdAt", createdAt: "2024-12-01T08:00:00Z"},
		{name: "malformed updatedAt", createdAt: "2024-12-01 08:00:00", updatedAt: "yesterday"},
		{name: "updatedAt before createdAt", createdAt: "2024-12-02 08:00:00", updatedAt: "2024-12-01 08:00:00"},
		{name: "updatedAt before filled createdAt", updatedAt: "2000-01-01 00:00:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, _, _ := newTestRepository(t)
			ctx := context.Background()

			items := []TodoItem{
				{Title: "ok", Description: "d", Status: StatusPending, Deadline: "2025-01-01 10:00:00"},
				{Title: "stamped", Description: "d", Status: StatusPending, Deadline: "2025-01-01 10:00:00",
					CreatedAt: tt.createdAt, UpdatedAt: tt.updatedAt},
			}
			_, err := repo.Import(ctx, items, false)
			if !apperrors.Is(err, apperrors.ErrValidation) {
				t.Fatalf("Expected validation error, got %v", err)
			}
			if repo.Count() != 0 {
				t.Errorf("Expected nothing imported, got %d items", repo.Count())
			}
		})
	}
}

func TestRepositoryErrorCategories(t *testing.T) {
	if !apperrors.Is(ErrAlreadyExists, apperrors.ErrConflict) {
		t.Error("ErrAlreadyExists should be a conflict")
	}
	if !apperrors.Is(ErrNotFound, apperrors.ErrNotFound) {
		t.Error("ErrNotFound should be in the not found category")
	}
	if ErrNotFound.Error() != "todo not found" {
		t.Errorf("Unexpected message: %q", ErrNotFound.Error())
	}

	repo, _, _ := newTestRepository(t)
	ctx := context.Background()
	_, _ = repo.Insert(ctx, "a", "d", "2025-01-01 10:00:00")
	if _, err := repo.Insert(ctx, "a", "d", "2025-01-01 10:00:00"); !apperrors.Is(err, apperrors.ErrConflict) {
		t.Errorf("Expected conflict category, got %v", err)
	}
}

func TestMutationsAreFlushed(t *testing.T) {
	repo, _, path := newTestRepository(t)
	ctx := context.Background()

	if _, err := repo.Insert(ctx, "persisted", "desc", "2025-01-01 10:00:00"); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	// Read the file through a fresh backend without closing the first database.
	backend, err := storage.NewJSONFileBackend(path)
	if err != nil {
		t.Fatalf("Failed to create backend: %v", err)
	}
	docs, err := backend.Load(ctx, CollectionName)
	if err != nil {
		t.Fatalf("Expected collection on disk right after insert: %v", err)
	}
	if len(docs) != 1 || !strings.Contains(string(docs[0]), `"persisted"`) {
		t.Errorf("Unexpected stored documents: %s", docs)
	}
}

func TestFormatTodo(t *testing.T) {
	item := TodoItem{
		Title:       "Write report",
		Description: "Quarterly numbers",
		Status:      StatusPending,
		Deadline:    "2025-01-01 10:00:00",
	}

	want := "Title: Write report\nDeadline: 2025-01-01 10:00:00\nDescription: Quarterly numbers\nStatus: pending\n\n"
	if got := FormatTodo(item); got != want {
		t.Errorf("FormatTodo() = %q, want %q", got, want)
	}

	if FormatTodo(TodoItem{}) != "" {
		t.Error("Expected zero item to render empty")
	}
}

func TestFormatTodoListPreservesOrder(t *testing.T) {
	items := []TodoItem{
		{Title: "second", Status: StatusCompleted, Deadline: "2025-01-02 00:00:00", Description: "d"},
		{Title: "first", Status: StatusPending, Deadline: "2025-01-01 00:00:00", Description: "d"},
	}

	out := FormatTodoList(items)
	if strings.Index(out, "second") > strings.Index(out, "first") {
		t.Errorf("Formatter reordered items: %q", out)
	}
	if FormatTodoList(nil) != "" {
		t.Error("Expected empty list to render empty")
	}
}
