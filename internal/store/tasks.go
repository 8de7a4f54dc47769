package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/prodhub/prodhub/internal/entity"
)

const taskColumns = `id, user_id, project_id, title, description, completed, priority,
	due_date, due_time, reminder_enabled, parent_task_id, created_at, updated_at, sync_status`

// CreateTask inserts a task optimistically and queues its create mutation.
//
// An empty id is assigned client-side so the record keeps the same identity
// once it reaches the server. The stored row is tagged pending.
func (s *Store) CreateTask(ctx context.Context, t *entity.Task) (*entity.Task, error) {
	now := s.now()
	if t.ID == "" {
		t.ID = entity.NewID()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = now
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("invalid task: %w", err)
	}

	payload, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal task %s: %w", t.ID, err)
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO tasks (id, user_id, project_id, title, description, completed, priority,
			due_date, due_time, reminder_enabled, parent_task_id, created_at, updated_at, sync_status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.ProjectID, t.Title, t.Description, t.Completed, t.Priority,
		t.DueDate, t.DueTime, t.ReminderEnabled, t.ParentTaskID,
		formatTime(t.CreatedAt), formatTime(t.UpdatedAt), string(entity.StatusPending))
	if err != nil {
		return nil, fmt.Errorf("failed to insert task %s: %w", t.ID, err)
	}

	if _, err := s.enqueueTx(ctx, tx, entity.TypeTask, entity.ActionCreate, t.ID, payload, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit task create: %w", err)
	}

	t.SyncStatus = entity.StatusPending
	return t, nil
}

// UpdateTask merges a partial update into an existing task, bumps updatedAt,
// retags the row pending, and queues the patch.
//
// Returns ErrNotFound if no task with the id exists.
func (s *Store) UpdateTask(ctx context.Context, id string, patch *entity.TaskPatch) (*entity.Task, error) {
	now := s.now()

	payload, err := json.Marshal(patch)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal task patch for %s: %w", id, err)
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	t, err := scanTask(tx.QueryRowContext(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load task %s: %w", id, err)
	}

	applyTaskPatch(t, patch)
	t.UpdatedAt = now
	t.SyncStatus = entity.StatusPending

	if err := writeTask(ctx, tx, t); err != nil {
		return nil, err
	}

	if _, err := s.enqueueTx(ctx, tx, entity.TypeTask, entity.ActionUpdate, id, payload, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit task update: %w", err)
	}

	return t, nil
}

// DeleteTask removes the local mirror row immediately and queues the remote
// delete. Idempotent: deleting an absent id still queues the delete, which
// the remote treats as a no-op too.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	now := s.now()

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete task %s: %w", id, err)
	}

	if _, err := s.enqueueTx(ctx, tx, entity.TypeTask, entity.ActionDelete, id, nil, now); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit task delete: %w", err)
	}
	return nil
}

// GetTask is a point lookup. Returns ErrNotFound if the id is absent.
func (s *Store) GetTask(ctx context.Context, id string) (*entity.Task, error) {
	t, err := scanTask(s.conn.QueryRowContext(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task %s: %w", id, err)
	}
	return t, nil
}

// ListTasks returns all tasks for the user, optionally narrowed to a project.
func (s *Store) ListTasks(ctx context.Context, userID, projectID string) ([]*entity.Task, error) {
	query := "SELECT " + taskColumns + " FROM tasks WHERE user_id = ?"
	args := []any{userID}
	if projectID != "" {
		query += " AND project_id = ?"
		args = append(args, projectID)
	}
	query += " ORDER BY created_at ASC"

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*entity.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}
	return tasks, nil
}

// MergeRemoteTask applies a pulled server record under the recency policy:
//
//   - no local row: insert it tagged synced
//   - local row synced and the remote updatedAt strictly newer: overwrite,
//     keep synced
//   - local row pending or failed: skip; unconfirmed local edits win until
//     they drain
//
// Returns whether the local row changed. Never enqueues.
func (s *Store) MergeRemoteTask(ctx context.Context, remote *entity.Task) (bool, error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	local, err := scanTask(tx.QueryRowContext(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE id = ?", remote.ID))

	remote.SyncStatus = entity.StatusSynced

	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = tx.ExecContext(ctx, `
			INSERT INTO tasks (id, user_id, project_id, title, description, completed, priority,
				due_date, due_time, reminder_enabled, parent_task_id, created_at, updated_at, sync_status)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			remote.ID, remote.UserID, remote.ProjectID, remote.Title, remote.Description,
			remote.Completed, remote.Priority, remote.DueDate, remote.DueTime,
			remote.ReminderEnabled, remote.ParentTaskID,
			formatTime(remote.CreatedAt), formatTime(remote.UpdatedAt), string(entity.StatusSynced))
		if err != nil {
			return false, fmt.Errorf("failed to insert pulled task %s: %w", remote.ID, err)
		}

	case err != nil:
		return false, fmt.Errorf("failed to load task %s: %w", remote.ID, err)

	case local.SyncStatus == entity.StatusSynced && remote.UpdatedAt.After(local.UpdatedAt):
		if err := writeTask(ctx, tx, remote); err != nil {
			return false, err
		}

	default:
		return false, nil
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit task merge: %w", err)
	}
	return true, nil
}

// writeTask updates every column of an existing task row.
func writeTask(ctx context.Context, tx *sql.Tx, t *entity.Task) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE tasks SET user_id = ?, project_id = ?, title = ?, description = ?,
			completed = ?, priority = ?, due_date = ?, due_time = ?,
			reminder_enabled = ?, parent_task_id = ?, created_at = ?, updated_at = ?,
			sync_status = ?
		WHERE id = ?`,
		t.UserID, t.ProjectID, t.Title, t.Description, t.Completed, t.Priority,
		t.DueDate, t.DueTime, t.ReminderEnabled, t.ParentTaskID,
		formatTime(t.CreatedAt), formatTime(t.UpdatedAt), string(t.SyncStatus), t.ID)
	if err != nil {
		return fmt.Errorf("failed to write task %s: %w", t.ID, err)
	}
	return nil
}

// scanTask reads one task row.
func scanTask(sc scanner) (*entity.Task, error) {
	var t entity.Task
	var createdAt, updatedAt, status string

	err := sc.Scan(&t.ID, &t.UserID, &t.ProjectID, &t.Title, &t.Description,
		&t.Completed, &t.Priority, &t.DueDate, &t.DueTime,
		&t.ReminderEnabled, &t.ParentTaskID, &createdAt, &updatedAt, &status)
	if err != nil {
		return nil, err
	}

	t.CreatedAt = parseTime(createdAt)
	t.UpdatedAt = parseTime(updatedAt)
	t.SyncStatus = entity.SyncStatus(status)
	return &t, nil
}

// applyTaskPatch merges non-nil patch fields into the task.
func applyTaskPatch(t *entity.Task, p *entity.TaskPatch) {
	if p == nil {
		return
	}
	if p.ProjectID != nil {
		t.ProjectID = *p.ProjectID
	}
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.DueDate != nil {
		t.DueDate = *p.DueDate
	}
	if p.DueTime != nil {
		t.DueTime = *p.DueTime
	}
	if p.ReminderEnabled != nil {
		t.ReminderEnabled = *p.ReminderEnabled
	}
	if p.ParentTaskID != nil {
		t.ParentTaskID = *p.ParentTaskID
	}
}
