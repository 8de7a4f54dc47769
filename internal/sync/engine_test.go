package sync

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	gosync "sync"
	"testing"
	"time"

	"github.com/prodhub/prodhub/internal/api"
	"github.com/prodhub/prodhub/internal/connectivity"
	"github.com/prodhub/prodhub/internal/entity"
	"github.com/prodhub/prodhub/internal/store"
)

// fakeRemote is an in-memory stand-in for the server. Collections it has
// no seed data for list as empty, so the pull phase always completes.
type fakeRemote struct {
	mu gosync.Mutex

	// collections seeds GET /api/{segment} responses.
	collections map[string][]json.RawMessage

	// requests records "METHOD /path" in arrival order.
	requests []string

	// failWith, when non-zero, is returned for every write request.
	failWith int

	// block, when non-nil, stalls write requests until closed.
	block chan struct{}
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{collections: make(map[string][]json.RawMessage)}
}

func (f *fakeRemote) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.requests = append(f.requests, r.Method+" "+r.URL.Path)
		failWith := f.failWith
		block := f.block
		f.mu.Unlock()

		segment := strings.TrimPrefix(r.URL.Path, "/api/")
		segment = strings.SplitN(segment, "/", 2)[0]

		if r.Method == http.MethodGet {
			f.mu.Lock()
			records := f.collections[segment]
			f.mu.Unlock()
			if records == nil {
				records = []json.RawMessage{}
			}
			_ = json.NewEncoder(w).Encode(records)
			return
		}

		if block != nil {
			<-block
		}
		if failWith != 0 {
			http.Error(w, "rejected", failWith)
			return
		}
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusOK)
	})
}

func (f *fakeRemote) requestLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

func setupEngine(t *testing.T, remote *fakeRemote, conn connectivity.Observer, config *Config) (Engine, *store.Store) {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "prodhub.db"))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	if err := st.InitSchema(context.Background()); err != nil {
		t.Fatalf("Failed to init schema: %v", err)
	}

	server := httptest.NewServer(remote.handler())
	t.Cleanup(server.Close)

	client := api.New(api.Options{BaseURL: server.URL})

	if config == nil {
		config = &Config{}
	}
	if config.Logger == nil {
		config.Logger = log.New(io.Discard, "", 0)
	}

	return New(st, client, conn, config), st
}

func TestRunCycleOffline(t *testing.T) {
	remote := newFakeRemote()
	eng, st := setupEngine(t, remote, connectivity.NewManual(false), nil)
	ctx := context.Background()

	if _, err := st.CreateTask(ctx, &entity.Task{
		UserID: "user-1", Title: "Offline edit", Priority: entity.PriorityLow,
	}); err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}

	if err := eng.RunCycle(ctx); err != nil {
		t.Fatalf("Expected offline cycle to no-op, got %v", err)
	}

	if len(remote.requestLog()) != 0 {
		t.Errorf("Expected no requests while offline, got %v", remote.requestLog())
	}

	entries, err := st.ListPending(ctx)
	if err != nil {
		t.Fatalf("Failed to list queue: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("Expected queued mutation preserved, got %d entries", len(entries))
	}
}

func TestRunCycleDrainsQueue(t *testing.T) {
	remote := newFakeRemote()
	eng, st := setupEngine(t, remote, connectivity.NewManual(true), nil)
	ctx := context.Background()

	created, err := st.CreateTask(ctx, &entity.Task{
		UserID: "user-1", Title: "Buy milk", Priority: entity.PriorityMedium,
	})
	if err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}

	if err := eng.RunCycle(ctx); err != nil {
		t.Fatalf("Cycle failed: %v", err)
	}

	log := remote.requestLog()
	if len(log) == 0 || log[0] != "POST /api/tasks" {
		t.Fatalf("Expected POST /api/tasks first, got %v", log)
	}

	got, err := st.GetTask(ctx, created.ID)
	if err != nil {
		t.Fatalf("Failed to get task: %v", err)
	}
	if got.SyncStatus != entity.StatusSynced {
		t.Errorf("Expected synced after drain, got %q", got.SyncStatus)
	}

	entries, err := st.ListPending(ctx)
	if err != nil {
		t.Fatalf("Failed to list queue: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected empty queue, got %d entries", len(entries))
	}
}

func TestRunCycleDrainOrder(t *testing.T) {
	remote := newFakeRemote()
	eng, st := setupEngine(t, remote, connectivity.NewManual(true), nil)
	ctx := context.Background()

	created, err := st.CreateTask(ctx, &entity.Task{
		UserID: "user-1", Title: "Ordered", Priority: entity.PriorityLow,
	})
	if err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}
	title := "Ordered v2"
	if _, err := st.UpdateTask(ctx, created.ID, &entity.TaskPatch{Title: &title}); err != nil {
		t.Fatalf("Failed to update task: %v", err)
	}
	if err := st.DeleteTask(ctx, created.ID); err != nil {
		t.Fatalf("Failed to delete task: %v", err)
	}

	if err := eng.RunCycle(ctx); err != nil {
		t.Fatalf("Cycle failed: %v", err)
	}

	want := []string{
		"POST /api/tasks",
		"PUT /api/tasks/" + created.ID,
		"DELETE /api/tasks/" + created.ID,
	}
	log := remote.requestLog()
	if len(log) < len(want) {
		t.Fatalf("Expected at least %d requests, got %v", len(want), log)
	}
	for i, w := range want {
		if log[i] != w {
			t.Errorf("Request %d: expected %q, got %q", i, w, log[i])
		}
	}
}

func TestRunCycleSingleFlight(t *testing.T) {
	remote := newFakeRemote()
	remote.block = make(chan struct{})

	eng, st := setupEngine(t, remote, connectivity.NewManual(true), nil)
	ctx := context.Background()

	if _, err := st.CreateTask(ctx, &entity.Task{
		UserID: "user-1", Title: "Slow", Priority: entity.PriorityLow,
	}); err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}

	firstDone := make(chan error, 1)
	go func() { firstDone <- eng.RunCycle(ctx) }()

	// Wait until the first cycle is inside a dispatch.
	deadline := time.After(2 * time.Second)
	for !eng.Syncing() {
		select {
		case <-deadline:
			t.Fatal("First cycle never started")
		case <-time.After(5 * time.Millisecond):
		}
	}

	// The overlapping cycle must return immediately as a no-op.
	if err := eng.RunCycle(ctx); err != nil {
		t.Errorf("Expected overlapping cycle to no-op, got %v", err)
	}

	close(remote.block)
	if err := <-firstDone; err != nil {
		t.Fatalf("First cycle failed: %v", err)
	}
	if eng.Syncing() {
		t.Error("Expected syncing flag cleared after cycle")
	}
}

func TestRetryCapDropsEntry(t *testing.T) {
	remote := newFakeRemote()
	remote.failWith = http.StatusInternalServerError

	var dropped []*store.QueueEntry
	eng, st := setupEngine(t, remote, connectivity.NewManual(true), &Config{
		Events: Events{
			EntryDropped: func(e *store.QueueEntry, err error) { dropped = append(dropped, e) },
		},
	})
	ctx := context.Background()

	created, err := st.CreateTask(ctx, &entity.Task{
		UserID: "user-1", Title: "Doomed", Priority: entity.PriorityLow,
	})
	if err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}

	// Attempts 1 and 2 leave the entry queued with a bumped counter.
	for i := 0; i < 2; i++ {
		if err := eng.RunCycle(ctx); err != nil {
			t.Fatalf("Cycle %d failed: %v", i+1, err)
		}
		entries, err := st.ListPending(ctx)
		if err != nil {
			t.Fatalf("Failed to list queue: %v", err)
		}
		if len(entries) != 1 || entries[0].Retries != i+1 {
			t.Fatalf("Cycle %d: expected retries=%d, got %+v", i+1, i+1, entries)
		}
	}

	// Attempt 3 reaches the cap and drops the entry.
	if err := eng.RunCycle(ctx); err != nil {
		t.Fatalf("Final cycle failed: %v", err)
	}

	entries, err := st.ListPending(ctx)
	if err != nil {
		t.Fatalf("Failed to list queue: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("Expected entry dropped at cap, got %+v", entries)
	}
	if len(dropped) != 1 || dropped[0].ItemID != created.ID {
		t.Errorf("Expected drop event for %s, got %+v", created.ID, dropped)
	}

	// The mirror row is orphaned pending; nothing retags it.
	got, err := st.GetTask(ctx, created.ID)
	if err != nil {
		t.Fatalf("Failed to get task: %v", err)
	}
	if got.SyncStatus != entity.StatusPending {
		t.Errorf("Expected row left pending, got %q", got.SyncStatus)
	}
}

func TestValidationRejectionDropsImmediately(t *testing.T) {
	remote := newFakeRemote()
	remote.failWith = http.StatusBadRequest

	eng, st := setupEngine(t, remote, connectivity.NewManual(true), nil)
	ctx := context.Background()

	created, err := st.CreateTask(ctx, &entity.Task{
		UserID: "user-1", Title: "Rejected", Priority: entity.PriorityLow,
	})
	if err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}

	if err := eng.RunCycle(ctx); err != nil {
		t.Fatalf("Cycle failed: %v", err)
	}

	entries, err := st.ListPending(ctx)
	if err != nil {
		t.Fatalf("Failed to list queue: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("Expected immediate drop for validation error, got %+v", entries)
	}

	got, err := st.GetTask(ctx, created.ID)
	if err != nil {
		t.Fatalf("Failed to get task: %v", err)
	}
	if got.SyncStatus != entity.StatusFailed {
		t.Errorf("Expected row marked failed, got %q", got.SyncStatus)
	}
}

func TestFailureIsolation(t *testing.T) {
	// Writes to /api/tasks fail; everything else succeeds.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			_, _ = w.Write([]byte("[]"))
			return
		}
		if strings.HasPrefix(r.URL.Path, "/api/tasks") {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	st, err := store.Open(filepath.Join(t.TempDir(), "prodhub.db"))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	defer st.Close()
	ctx := context.Background()
	if err := st.InitSchema(ctx); err != nil {
		t.Fatalf("Failed to init schema: %v", err)
	}

	eng := New(st, api.New(api.Options{BaseURL: server.URL}), connectivity.NewManual(true), &Config{
		Logger: log.New(io.Discard, "", 0),
	})

	if _, err := st.CreateTask(ctx, &entity.Task{
		UserID: "user-1", Title: "Fails", Priority: entity.PriorityLow,
	}); err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}
	note, err := st.CreateNote(ctx, &entity.Note{UserID: "user-1", Title: "Succeeds"})
	if err != nil {
		t.Fatalf("Failed to create note: %v", err)
	}

	if err := eng.RunCycle(ctx); err != nil {
		t.Fatalf("Cycle failed: %v", err)
	}

	// The task entry stays queued; the note drained despite the earlier
	// failure.
	entries, err := st.ListPending(ctx)
	if err != nil {
		t.Fatalf("Failed to list queue: %v", err)
	}
	if len(entries) != 1 || entries[0].EntityType != entity.TypeTask {
		t.Fatalf("Expected only the task entry queued, got %+v", entries)
	}

	gotNote, err := st.GetNote(ctx, note.ID)
	if err != nil {
		t.Fatalf("Failed to get note: %v", err)
	}
	if gotNote.SyncStatus != entity.StatusSynced {
		t.Errorf("Expected note synced, got %q", gotNote.SyncStatus)
	}
}

func TestPullMergesCollections(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	remote := newFakeRemote()
	remote.collections["tasks"] = []json.RawMessage{
		mustMarshal(t, &entity.Task{
			ID: "remote-task", UserID: "user-1", Title: "From server",
			Priority: entity.PriorityHigh, CreatedAt: now, UpdatedAt: now,
		}),
	}
	remote.collections["expense-categories"] = []json.RawMessage{
		mustMarshal(t, &entity.Category{
			ID: "remote-cat", UserID: "user-1", Name: "Travel",
			CreatedAt: now, UpdatedAt: now,
		}),
	}

	var stats CycleStats
	eng, st := setupEngine(t, remote, connectivity.NewManual(true), &Config{
		Events: Events{CycleFinished: func(s CycleStats) { stats = s }},
	})
	ctx := context.Background()

	if err := eng.RunCycle(ctx); err != nil {
		t.Fatalf("Cycle failed: %v", err)
	}

	if stats.Merged != 2 {
		t.Errorf("Expected 2 merged records, got %d", stats.Merged)
	}

	task, err := st.GetTask(ctx, "remote-task")
	if err != nil {
		t.Fatalf("Failed to get pulled task: %v", err)
	}
	if task.SyncStatus != entity.StatusSynced {
		t.Errorf("Expected pulled task synced, got %q", task.SyncStatus)
	}

	if _, err := st.GetCategory(ctx, "remote-cat"); err != nil {
		t.Fatalf("Failed to get pulled category: %v", err)
	}
}

func TestPullPreservesPendingRows(t *testing.T) {
	now := time.Now().UTC()

	remote := newFakeRemote()
	eng, st := setupEngine(t, remote, connectivity.NewManual(true), nil)
	ctx := context.Background()

	// A local pending edit that the server knows an older version of. The
	// drain POST fails this cycle so the row stays pending, and the pull
	// must not clobber it.
	remote.failWith = http.StatusInternalServerError

	created, err := st.CreateTask(ctx, &entity.Task{
		UserID: "user-1", Title: "Local edit", Priority: entity.PriorityLow,
	})
	if err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}

	remote.collections["tasks"] = []json.RawMessage{
		mustMarshal(t, &entity.Task{
			ID: created.ID, UserID: "user-1", Title: "Stale server copy",
			Priority: entity.PriorityLow, CreatedAt: now, UpdatedAt: now.Add(time.Hour),
		}),
	}

	if err := eng.RunCycle(ctx); err != nil {
		t.Fatalf("Cycle failed: %v", err)
	}

	got, err := st.GetTask(ctx, created.ID)
	if err != nil {
		t.Fatalf("Failed to get task: %v", err)
	}
	if got.Title != "Local edit" {
		t.Errorf("Expected pending local edit preserved, got %q", got.Title)
	}
}

func TestOfflineCreateThenSync(t *testing.T) {
	remote := newFakeRemote()
	conn := connectivity.NewManual(false)
	eng, st := setupEngine(t, remote, conn, nil)
	ctx := context.Background()

	created, err := st.CreateTask(ctx, &entity.Task{
		UserID: "user-1", Title: "Buy milk", Priority: entity.PriorityMedium,
	})
	if err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}

	// Offline: the task is visible locally, tagged pending, nothing sent.
	if err := eng.RunCycle(ctx); err != nil {
		t.Fatalf("Offline cycle failed: %v", err)
	}
	if len(remote.requestLog()) != 0 {
		t.Fatalf("Expected no traffic offline, got %v", remote.requestLog())
	}

	// Connectivity returns; the next cycle converges.
	conn.SetOnline(true)
	if err := eng.RunCycle(ctx); err != nil {
		t.Fatalf("Online cycle failed: %v", err)
	}

	got, err := st.GetTask(ctx, created.ID)
	if err != nil {
		t.Fatalf("Failed to get task: %v", err)
	}
	if got.SyncStatus != entity.StatusSynced {
		t.Errorf("Expected synced after reconnect, got %q", got.SyncStatus)
	}
	if got.ID != created.ID {
		t.Errorf("Expected stable client-assigned id, got %q", got.ID)
	}
}

func mustMarshal(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}
	return b
}
