package store

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/prodhub/prodhub/internal/entity"
)

func TestQueueOrdering(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	// Interleave mutations across entity types.
	task, err := st.CreateTask(ctx, &entity.Task{
		UserID: "user-1", Title: "First", Priority: entity.PriorityLow,
	})
	if err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}
	if _, err := st.CreateNote(ctx, &entity.Note{UserID: "user-1", Title: "Second"}); err != nil {
		t.Fatalf("Failed to create note: %v", err)
	}
	title := "First edited"
	if _, err := st.UpdateTask(ctx, task.ID, &entity.TaskPatch{Title: &title}); err != nil {
		t.Fatalf("Failed to update task: %v", err)
	}
	if err := st.DeleteTask(ctx, task.ID); err != nil {
		t.Fatalf("Failed to delete task: %v", err)
	}

	entries, err := st.ListPending(ctx)
	if err != nil {
		t.Fatalf("Failed to list queue: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("Expected 4 entries, got %d", len(entries))
	}

	wantActions := []entity.Action{
		entity.ActionCreate, entity.ActionCreate, entity.ActionUpdate, entity.ActionDelete,
	}
	for i, e := range entries {
		if e.Action != wantActions[i] {
			t.Errorf("Entry %d: expected action %s, got %s", i, wantActions[i], e.Action)
		}
		if i > 0 && entries[i].ID <= entries[i-1].ID {
			t.Errorf("Entry %d: sequence ids not ascending", i)
		}
	}

	// Create carries the full record, update the patch, delete no payload.
	var full entity.Task
	if err := json.Unmarshal(entries[0].Payload, &full); err != nil {
		t.Fatalf("Failed to decode create payload: %v", err)
	}
	if full.Title != "First" {
		t.Errorf("Expected create payload to snapshot the record, got title %q", full.Title)
	}

	var patch map[string]any
	if err := json.Unmarshal(entries[2].Payload, &patch); err != nil {
		t.Fatalf("Failed to decode update payload: %v", err)
	}
	if len(patch) != 1 || patch["title"] != "First edited" {
		t.Errorf("Expected patch payload with only title, got %v", patch)
	}

	if entries[3].Payload != nil {
		t.Errorf("Expected nil delete payload, got %s", entries[3].Payload)
	}
}

func TestEnqueueRejectsUnknown(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	if _, err := st.Enqueue(ctx, entity.Type("widget"), entity.ActionCreate, "id", nil); err == nil {
		t.Error("Expected error for unknown entity type")
	}
	if _, err := st.Enqueue(ctx, entity.TypeTask, entity.Action("upsert"), "id", nil); err == nil {
		t.Error("Expected error for unknown action")
	}
}

func TestRemoveQueueEntry(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	entry, err := st.Enqueue(ctx, entity.TypeTask, entity.ActionDelete, "task-1", nil)
	if err != nil {
		t.Fatalf("Failed to enqueue: %v", err)
	}

	if err := st.RemoveQueueEntry(ctx, entry.ID); err != nil {
		t.Fatalf("Failed to remove entry: %v", err)
	}
	// Second removal is a no-op.
	if err := st.RemoveQueueEntry(ctx, entry.ID); err != nil {
		t.Errorf("Expected idempotent removal, got %v", err)
	}

	entries, err := st.ListPending(ctx)
	if err != nil {
		t.Fatalf("Failed to list queue: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected empty queue, got %d entries", len(entries))
	}
}

func TestIncrementRetry(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	entry, err := st.Enqueue(ctx, entity.TypeNote, entity.ActionDelete, "note-1", nil)
	if err != nil {
		t.Fatalf("Failed to enqueue: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := st.IncrementRetry(ctx, entry.ID); err != nil {
			t.Fatalf("Failed to increment retry: %v", err)
		}
	}

	entries, err := st.ListPending(ctx)
	if err != nil {
		t.Fatalf("Failed to list queue: %v", err)
	}
	if len(entries) != 1 || entries[0].Retries != 2 {
		t.Fatalf("Expected retries=2, got %+v", entries)
	}

	// Missing entry is a no-op.
	if err := st.IncrementRetry(ctx, 9999); err != nil {
		t.Errorf("Expected no-op for missing entry, got %v", err)
	}
}
