// Package store provides the on-device SQLite database for prodhub.
//
// It holds a local mirror of every server-owned entity (tasks, expenses,
// notes, projects, expense categories) plus the durable mutation queue.
// The database runs in embedded mode with WAL for concurrent reads.
//
// Write paths come in two flavors with different bookkeeping:
//   - User-initiated writes (Create*/Update*/Delete*) are optimistic: they
//     mutate the mirror row, tag it pending, and append a queue entry in the
//     same transaction.
//   - Sync-side writes (MergeRemote*/SetSyncStatus) never touch the queue
//     and respect the pending tag so they cannot clobber unconfirmed edits.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prodhub/prodhub/internal/entity"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// ErrNotFound is returned when an update or point lookup targets an id
// that has no local mirror row.
var ErrNotFound = errors.New("record not found")

// timeFormat is how timestamps are stored in TEXT columns. Nanosecond
// precision keeps recency comparisons exact after a round trip.
const timeFormat = time.RFC3339Nano

// Store wraps the SQLite connection holding mirror tables and the queue.
type Store struct {
	conn *sql.DB
	path string

	// now is swappable so tests can pin timestamps.
	now func() time.Time
}

// Open creates or opens the database at the given path.
//
// The caller MUST call Close() when done.
//
// Example:
//
//	st, err := store.Open("~/.prodhub/local.db")
//	if err != nil {
//	    return err
//	}
//	defer st.Close()
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	st := &Store{
		conn: conn,
		path: path,
		now:  time.Now,
	}

	// WAL keeps reads concurrent with the sync engine's writes.
	if _, err := st.conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := st.conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return st, nil
}

// Close closes the database connection after checkpointing the WAL.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}

	if _, err := s.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}

	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	s.conn = nil
	return nil
}

// InitSchema creates the mirror tables and the mutation queue if they
// don't exist. Idempotent, safe to call on every startup.
func (s *Store) InitSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		project_id TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		completed INTEGER NOT NULL DEFAULT 0,
		priority TEXT NOT NULL DEFAULT 'medium',
		due_date TEXT NOT NULL DEFAULT '',
		due_time TEXT NOT NULL DEFAULT '',
		reminder_enabled INTEGER NOT NULL DEFAULT 0,
		parent_task_id TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		sync_status TEXT NOT NULL DEFAULT 'pending'
	);

	CREATE TABLE IF NOT EXISTS expenses (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		category_id TEXT NOT NULL DEFAULT '',
		type TEXT NOT NULL,
		amount TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		date TEXT NOT NULL,
		is_recurring INTEGER NOT NULL DEFAULT 0,
		recurring_type TEXT NOT NULL DEFAULT '',
		is_emi INTEGER NOT NULL DEFAULT 0,
		emi_months INTEGER NOT NULL DEFAULT 0,
		emi_remaining INTEGER NOT NULL DEFAULT 0,
		is_debt INTEGER NOT NULL DEFAULT 0,
		debt_to TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		sync_status TEXT NOT NULL DEFAULT 'pending'
	);

	CREATE TABLE IF NOT EXISTS notes (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		project_id TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL,
		content TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		sync_status TEXT NOT NULL DEFAULT 'pending'
	);

	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		color TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		sync_status TEXT NOT NULL DEFAULT 'pending'
	);

	CREATE TABLE IF NOT EXISTS expense_categories (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		icon TEXT NOT NULL DEFAULT '',
		color TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		sync_status TEXT NOT NULL DEFAULT 'pending'
	);

	-- Durable mutation queue. The AUTOINCREMENT primary key is the
	-- monotonic sequence id; drain order is ascending id.
	CREATE TABLE IF NOT EXISTS sync_queue (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		entity_type TEXT NOT NULL,
		action TEXT NOT NULL,
		item_id TEXT NOT NULL,
		payload TEXT,
		enqueued_at TEXT NOT NULL,
		retries INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_user ON tasks(user_id);
	CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(project_id);
	CREATE INDEX IF NOT EXISTS idx_tasks_sync ON tasks(sync_status);

	CREATE INDEX IF NOT EXISTS idx_expenses_user ON expenses(user_id);
	CREATE INDEX IF NOT EXISTS idx_expenses_category ON expenses(category_id);
	CREATE INDEX IF NOT EXISTS idx_expenses_sync ON expenses(sync_status);

	CREATE INDEX IF NOT EXISTS idx_notes_user ON notes(user_id);
	CREATE INDEX IF NOT EXISTS idx_notes_project ON notes(project_id);
	CREATE INDEX IF NOT EXISTS idx_notes_sync ON notes(sync_status);

	CREATE INDEX IF NOT EXISTS idx_projects_user ON projects(user_id);
	CREATE INDEX IF NOT EXISTS idx_projects_sync ON projects(sync_status);

	CREATE INDEX IF NOT EXISTS idx_categories_user ON expense_categories(user_id);
	CREATE INDEX IF NOT EXISTS idx_categories_sync ON expense_categories(sync_status);

	CREATE INDEX IF NOT EXISTS idx_queue_type ON sync_queue(entity_type);
	CREATE INDEX IF NOT EXISTS idx_queue_action ON sync_queue(action);
	CREATE INDEX IF NOT EXISTS idx_queue_item ON sync_queue(item_id);
	CREATE INDEX IF NOT EXISTS idx_queue_enqueued ON sync_queue(enqueued_at);
	`

	if _, err := s.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	return nil
}

// tableFor maps an entity type to its mirror table.
var tableFor = map[entity.Type]string{
	entity.TypeTask:     "tasks",
	entity.TypeExpense:  "expenses",
	entity.TypeNote:     "notes",
	entity.TypeProject:  "projects",
	entity.TypeCategory: "expense_categories",
}

// SetSyncStatus retags a mirror row. Used by the sync engine after a queue
// entry resolves. A missing row is a no-op: the record may have been deleted
// locally while its earlier mutations were still queued.
func (s *Store) SetSyncStatus(ctx context.Context, typ entity.Type, id string, status entity.SyncStatus) error {
	table, ok := tableFor[typ]
	if !ok {
		return fmt.Errorf("unknown entity type %q", typ)
	}

	query := fmt.Sprintf("UPDATE %s SET sync_status = ? WHERE id = ?", table)
	if _, err := s.conn.ExecContext(ctx, query, string(status), id); err != nil {
		return fmt.Errorf("failed to set sync status on %s %s: %w", typ, id, err)
	}
	return nil
}

// EntityStats summarizes one mirror table for the status surface.
type EntityStats struct {
	Total   int
	Pending int
	Failed  int
}

// Stats is a snapshot of local state for the status command and dashboard.
type Stats struct {
	Entities      map[entity.Type]EntityStats
	QueueDepth    int
	QueueRetrying int
}

// Stats counts mirror rows and queue entries.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{Entities: make(map[entity.Type]EntityStats)}

	for typ, table := range tableFor {
		var es EntityStats
		query := fmt.Sprintf(`
			SELECT COUNT(*),
			       COALESCE(SUM(sync_status = 'pending'), 0),
			       COALESCE(SUM(sync_status = 'failed'), 0)
			FROM %s`, table)
		if err := s.conn.QueryRowContext(ctx, query).Scan(&es.Total, &es.Pending, &es.Failed); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		stats.Entities[typ] = es
	}

	err := s.conn.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(retries > 0), 0) FROM sync_queue").
		Scan(&stats.QueueDepth, &stats.QueueRetrying)
	if err != nil {
		return nil, fmt.Errorf("failed to count queue: %w", err)
	}

	return stats, nil
}

// SetNow overrides the store's clock. Tests use this to make updatedAt
// comparisons deterministic.
func (s *Store) SetNow(now func() time.Time) {
	s.now = now
}

// formatTime renders a timestamp for a TEXT column.
func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

// parseTime reads a timestamp from a TEXT column.
func parseTime(s string) time.Time {
	t, err := time.Parse(timeFormat, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// scanner abstracts sql.Row and sql.Rows for shared scan helpers.
type scanner interface {
	Scan(dest ...any) error
}
