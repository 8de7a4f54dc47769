package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/prodhub/prodhub/internal/entity"
)

const noteColumns = `id, user_id, project_id, title, content, created_at, updated_at, sync_status`

// CreateNote inserts a note optimistically and queues its create mutation.
func (s *Store) CreateNote(ctx context.Context, n *entity.Note) (*entity.Note, error) {
	now := s.now()
	if n.ID == "" {
		n.ID = entity.NewID()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
	if n.UpdatedAt.IsZero() {
		n.UpdatedAt = now
	}
	if err := n.Validate(); err != nil {
		return nil, fmt.Errorf("invalid note: %w", err)
	}

	payload, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal note %s: %w", n.ID, err)
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO notes (id, user_id, project_id, title, content, created_at, updated_at, sync_status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.UserID, n.ProjectID, n.Title, n.Content,
		formatTime(n.CreatedAt), formatTime(n.UpdatedAt), string(entity.StatusPending))
	if err != nil {
		return nil, fmt.Errorf("failed to insert note %s: %w", n.ID, err)
	}

	if _, err := s.enqueueTx(ctx, tx, entity.TypeNote, entity.ActionCreate, n.ID, payload, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit note create: %w", err)
	}

	n.SyncStatus = entity.StatusPending
	return n, nil
}

// UpdateNote merges a partial update and queues the patch.
// Returns ErrNotFound if no note with the id exists.
func (s *Store) UpdateNote(ctx context.Context, id string, patch *entity.NotePatch) (*entity.Note, error) {
	now := s.now()

	payload, err := json.Marshal(patch)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal note patch for %s: %w", id, err)
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	n, err := scanNote(tx.QueryRowContext(ctx,
		"SELECT "+noteColumns+" FROM notes WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("note %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load note %s: %w", id, err)
	}

	applyNotePatch(n, patch)
	n.UpdatedAt = now
	n.SyncStatus = entity.StatusPending

	if err := writeNote(ctx, tx, n); err != nil {
		return nil, err
	}

	if _, err := s.enqueueTx(ctx, tx, entity.TypeNote, entity.ActionUpdate, id, payload, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit note update: %w", err)
	}

	return n, nil
}

// DeleteNote removes the local row immediately and queues the remote delete.
func (s *Store) DeleteNote(ctx context.Context, id string) error {
	now := s.now()

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM notes WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete note %s: %w", id, err)
	}

	if _, err := s.enqueueTx(ctx, tx, entity.TypeNote, entity.ActionDelete, id, nil, now); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit note delete: %w", err)
	}
	return nil
}

// GetNote is a point lookup. Returns ErrNotFound if the id is absent.
func (s *Store) GetNote(ctx context.Context, id string) (*entity.Note, error) {
	n, err := scanNote(s.conn.QueryRowContext(ctx,
		"SELECT "+noteColumns+" FROM notes WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("note %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get note %s: %w", id, err)
	}
	return n, nil
}

// ListNotes returns all notes for the user, optionally narrowed to a project.
func (s *Store) ListNotes(ctx context.Context, userID, projectID string) ([]*entity.Note, error) {
	query := "SELECT " + noteColumns + " FROM notes WHERE user_id = ?"
	args := []any{userID}
	if projectID != "" {
		query += " AND project_id = ?"
		args = append(args, projectID)
	}
	query += " ORDER BY created_at ASC"

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	defer rows.Close()

	var notes []*entity.Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notes: %w", err)
	}
	return notes, nil
}

// MergeRemoteNote applies a pulled server record under the recency policy.
// See MergeRemoteTask for the rules.
func (s *Store) MergeRemoteNote(ctx context.Context, remote *entity.Note) (bool, error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	local, err := scanNote(tx.QueryRowContext(ctx,
		"SELECT "+noteColumns+" FROM notes WHERE id = ?", remote.ID))

	remote.SyncStatus = entity.StatusSynced

	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = tx.ExecContext(ctx, `
			INSERT INTO notes (id, user_id, project_id, title, content, created_at, updated_at, sync_status)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			remote.ID, remote.UserID, remote.ProjectID, remote.Title, remote.Content,
			formatTime(remote.CreatedAt), formatTime(remote.UpdatedAt), string(entity.StatusSynced))
		if err != nil {
			return false, fmt.Errorf("failed to insert pulled note %s: %w", remote.ID, err)
		}

	case err != nil:
		return false, fmt.Errorf("failed to load note %s: %w", remote.ID, err)

	case local.SyncStatus == entity.StatusSynced && remote.UpdatedAt.After(local.UpdatedAt):
		if err := writeNote(ctx, tx, remote); err != nil {
			return false, err
		}

	default:
		return false, nil
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit note merge: %w", err)
	}
	return true, nil
}

func writeNote(ctx context.Context, tx *sql.Tx, n *entity.Note) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE notes SET user_id = ?, project_id = ?, title = ?, content = ?,
			created_at = ?, updated_at = ?, sync_status = ?
		WHERE id = ?`,
		n.UserID, n.ProjectID, n.Title, n.Content,
		formatTime(n.CreatedAt), formatTime(n.UpdatedAt), string(n.SyncStatus), n.ID)
	if err != nil {
		return fmt.Errorf("failed to write note %s: %w", n.ID, err)
	}
	return nil
}

func scanNote(sc scanner) (*entity.Note, error) {
	var n entity.Note
	var createdAt, updatedAt, status string

	err := sc.Scan(&n.ID, &n.UserID, &n.ProjectID, &n.Title, &n.Content,
		&createdAt, &updatedAt, &status)
	if err != nil {
		return nil, err
	}

	n.CreatedAt = parseTime(createdAt)
	n.UpdatedAt = parseTime(updatedAt)
	n.SyncStatus = entity.SyncStatus(status)
	return &n, nil
}

func applyNotePatch(n *entity.Note, p *entity.NotePatch) {
	if p == nil {
		return
	}
	if p.ProjectID != nil {
		n.ProjectID = *p.ProjectID
	}
	if p.Title != nil {
		n.Title = *p.Title
	}
	if p.Content != nil {
		n.Content = *p.Content
	}
}
