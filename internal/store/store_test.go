package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/prodhub/prodhub/internal/entity"
)

// setupStore creates a file-backed store in a temp directory with the
// schema applied.
func setupStore(t *testing.T) *Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "prodhub.db")
	st, err := Open(path)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	if err := st.InitSchema(context.Background()); err != nil {
		t.Fatalf("Failed to init schema: %v", err)
	}
	return st
}

func TestCreateTask(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	created, err := st.CreateTask(ctx, &entity.Task{
		UserID:   "user-1",
		Title:    "Buy milk",
		Priority: entity.PriorityMedium,
	})
	if err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}

	if created.ID == "" {
		t.Error("Expected an assigned id")
	}
	if created.SyncStatus != entity.StatusPending {
		t.Errorf("Expected pending status, got %q", created.SyncStatus)
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Error("Expected assigned timestamps")
	}

	got, err := st.GetTask(ctx, created.ID)
	if err != nil {
		t.Fatalf("Failed to get task: %v", err)
	}
	if got.Title != "Buy milk" {
		t.Errorf("Expected title Buy milk, got %q", got.Title)
	}
	if got.SyncStatus != entity.StatusPending {
		t.Errorf("Expected stored row pending, got %q", got.SyncStatus)
	}
}

func TestCreateTaskInvalid(t *testing.T) {
	st := setupStore(t)

	_, err := st.CreateTask(context.Background(), &entity.Task{
		UserID:   "user-1",
		Priority: entity.PriorityLow,
		// no title
	})
	if err == nil {
		t.Fatal("Expected validation error")
	}

	// Nothing should have been written or queued.
	entries, err := st.ListPending(context.Background())
	if err != nil {
		t.Fatalf("Failed to list queue: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected empty queue, got %d entries", len(entries))
	}
}

func TestUpdateTask(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	st.SetNow(func() time.Time { return base })

	created, err := st.CreateTask(ctx, &entity.Task{
		UserID: "user-1", Title: "Draft report", Priority: entity.PriorityLow,
	})
	if err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}

	st.SetNow(func() time.Time { return base.Add(time.Hour) })

	completed := true
	updated, err := st.UpdateTask(ctx, created.ID, &entity.TaskPatch{Completed: &completed})
	if err != nil {
		t.Fatalf("Failed to update task: %v", err)
	}

	if !updated.Completed {
		t.Error("Expected task completed")
	}
	if updated.Title != "Draft report" {
		t.Errorf("Expected unpatched title preserved, got %q", updated.Title)
	}
	if !updated.UpdatedAt.After(created.CreatedAt) {
		t.Error("Expected updatedAt bumped")
	}
	if updated.SyncStatus != entity.StatusPending {
		t.Errorf("Expected pending after update, got %q", updated.SyncStatus)
	}
}

func TestUpdateTaskNotFound(t *testing.T) {
	st := setupStore(t)

	title := "x"
	_, err := st.UpdateTask(context.Background(), "missing-id", &entity.TaskPatch{Title: &title})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestDeleteTask(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	created, err := st.CreateTask(ctx, &entity.Task{
		UserID: "user-1", Title: "Throwaway", Priority: entity.PriorityLow,
	})
	if err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}

	if err := st.DeleteTask(ctx, created.ID); err != nil {
		t.Fatalf("Failed to delete task: %v", err)
	}

	if _, err := st.GetTask(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}

	// Deleting an absent id still queues the remote delete.
	if err := st.DeleteTask(ctx, "never-existed"); err != nil {
		t.Fatalf("Expected idempotent delete, got %v", err)
	}
}

func TestSetSyncStatus(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	created, err := st.CreateTask(ctx, &entity.Task{
		UserID: "user-1", Title: "Sync me", Priority: entity.PriorityHigh,
	})
	if err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}

	if err := st.SetSyncStatus(ctx, entity.TypeTask, created.ID, entity.StatusSynced); err != nil {
		t.Fatalf("Failed to set sync status: %v", err)
	}

	got, err := st.GetTask(ctx, created.ID)
	if err != nil {
		t.Fatalf("Failed to get task: %v", err)
	}
	if got.SyncStatus != entity.StatusSynced {
		t.Errorf("Expected synced, got %q", got.SyncStatus)
	}

	// Missing row is a no-op, not an error.
	if err := st.SetSyncStatus(ctx, entity.TypeTask, "gone", entity.StatusFailed); err != nil {
		t.Errorf("Expected no-op for missing row, got %v", err)
	}
}

func TestListTasksFilter(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	for _, spec := range []struct{ title, project string }{
		{"In project", "proj-1"},
		{"Other project", "proj-2"},
		{"No project", ""},
	} {
		_, err := st.CreateTask(ctx, &entity.Task{
			UserID: "user-1", Title: spec.title, ProjectID: spec.project,
			Priority: entity.PriorityMedium,
		})
		if err != nil {
			t.Fatalf("Failed to create task: %v", err)
		}
	}

	all, err := st.ListTasks(ctx, "user-1", "")
	if err != nil {
		t.Fatalf("Failed to list tasks: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("Expected 3 tasks, got %d", len(all))
	}

	scoped, err := st.ListTasks(ctx, "user-1", "proj-1")
	if err != nil {
		t.Fatalf("Failed to list project tasks: %v", err)
	}
	if len(scoped) != 1 || scoped[0].Title != "In project" {
		t.Errorf("Expected only the proj-1 task, got %d", len(scoped))
	}

	other, err := st.ListTasks(ctx, "user-2", "")
	if err != nil {
		t.Fatalf("Failed to list tasks: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("Expected no tasks for other user, got %d", len(other))
	}
}

func TestStats(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	taskA, err := st.CreateTask(ctx, &entity.Task{
		UserID: "user-1", Title: "A", Priority: entity.PriorityLow,
	})
	if err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}
	if _, err := st.CreateTask(ctx, &entity.Task{
		UserID: "user-1", Title: "B", Priority: entity.PriorityLow,
	}); err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}
	if _, err := st.CreateNote(ctx, &entity.Note{UserID: "user-1", Title: "N"}); err != nil {
		t.Fatalf("Failed to create note: %v", err)
	}

	if err := st.SetSyncStatus(ctx, entity.TypeTask, taskA.ID, entity.StatusFailed); err != nil {
		t.Fatalf("Failed to set status: %v", err)
	}

	stats, err := st.Stats(ctx)
	if err != nil {
		t.Fatalf("Failed to read stats: %v", err)
	}

	tasks := stats.Entities[entity.TypeTask]
	if tasks.Total != 2 || tasks.Pending != 1 || tasks.Failed != 1 {
		t.Errorf("Unexpected task stats: %+v", tasks)
	}
	if stats.Entities[entity.TypeNote].Total != 1 {
		t.Errorf("Expected 1 note, got %d", stats.Entities[entity.TypeNote].Total)
	}
	if stats.QueueDepth != 3 {
		t.Errorf("Expected queue depth 3, got %d", stats.QueueDepth)
	}
}

func TestExpenseLifecycle(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	created, err := st.CreateExpense(ctx, &entity.Expense{
		UserID: "user-1",
		Type:   entity.ExpenseTypeExpense,
		Amount: "12.50",
		Date:   "2026-08-29",
	})
	if err != nil {
		t.Fatalf("Failed to create expense: %v", err)
	}
	if created.SyncStatus != entity.StatusPending {
		t.Errorf("Expected pending, got %q", created.SyncStatus)
	}

	amount := "13.00"
	updated, err := st.UpdateExpense(ctx, created.ID, &entity.ExpensePatch{Amount: &amount})
	if err != nil {
		t.Fatalf("Failed to update expense: %v", err)
	}
	if updated.Amount != "13.00" {
		t.Errorf("Expected amount 13.00, got %q", updated.Amount)
	}

	if err := st.DeleteExpense(ctx, created.ID); err != nil {
		t.Fatalf("Failed to delete expense: %v", err)
	}
	if _, err := st.GetExpense(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestCategoryLifecycle(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	created, err := st.CreateCategory(ctx, &entity.Category{
		UserID: "user-1", Name: "Groceries", Icon: "🛒",
	})
	if err != nil {
		t.Fatalf("Failed to create category: %v", err)
	}

	name := "Food"
	updated, err := st.UpdateCategory(ctx, created.ID, &entity.CategoryPatch{Name: &name})
	if err != nil {
		t.Fatalf("Failed to update category: %v", err)
	}
	if updated.Name != "Food" {
		t.Errorf("Expected renamed category, got %q", updated.Name)
	}
	if updated.Icon != "🛒" {
		t.Errorf("Expected icon preserved, got %q", updated.Icon)
	}
}
