package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/prodhub/prodhub/internal/entity"
)

const projectColumns = `id, user_id, name, color, created_at, updated_at, sync_status`

// CreateProject inserts a project optimistically and queues its create mutation.
func (s *Store) CreateProject(ctx context.Context, p *entity.Project) (*entity.Project, error) {
	now := s.now()
	if p.ID == "" {
		p.ID = entity.NewID()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = now
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid project: %w", err)
	}

	payload, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal project %s: %w", p.ID, err)
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO projects (id, user_id, name, color, created_at, updated_at, sync_status)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.UserID, p.Name, p.Color,
		formatTime(p.CreatedAt), formatTime(p.UpdatedAt), string(entity.StatusPending))
	if err != nil {
		return nil, fmt.Errorf("failed to insert project %s: %w", p.ID, err)
	}

	if _, err := s.enqueueTx(ctx, tx, entity.TypeProject, entity.ActionCreate, p.ID, payload, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit project create: %w", err)
	}

	p.SyncStatus = entity.StatusPending
	return p, nil
}

// UpdateProject merges a partial update and queues the patch.
// Returns ErrNotFound if no project with the id exists.
func (s *Store) UpdateProject(ctx context.Context, id string, patch *entity.ProjectPatch) (*entity.Project, error) {
	now := s.now()

	payload, err := json.Marshal(patch)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal project patch for %s: %w", id, err)
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	p, err := scanProject(tx.QueryRowContext(ctx,
		"SELECT "+projectColumns+" FROM projects WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load project %s: %w", id, err)
	}

	applyProjectPatch(p, patch)
	p.UpdatedAt = now
	p.SyncStatus = entity.StatusPending

	if err := writeProject(ctx, tx, p); err != nil {
		return nil, err
	}

	if _, err := s.enqueueTx(ctx, tx, entity.TypeProject, entity.ActionUpdate, id, payload, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit project update: %w", err)
	}

	return p, nil
}

// DeleteProject removes the local row immediately and queues the remote delete.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	now := s.now()

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete project %s: %w", id, err)
	}

	if _, err := s.enqueueTx(ctx, tx, entity.TypeProject, entity.ActionDelete, id, nil, now); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit project delete: %w", err)
	}
	return nil
}

// GetProject is a point lookup. Returns ErrNotFound if the id is absent.
func (s *Store) GetProject(ctx context.Context, id string) (*entity.Project, error) {
	p, err := scanProject(s.conn.QueryRowContext(ctx,
		"SELECT "+projectColumns+" FROM projects WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project %s: %w", id, err)
	}
	return p, nil
}

// ListProjects returns all projects for the user.
func (s *Store) ListProjects(ctx context.Context, userID string) ([]*entity.Project, error) {
	rows, err := s.conn.QueryContext(ctx,
		"SELECT "+projectColumns+" FROM projects WHERE user_id = ? ORDER BY created_at ASC", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []*entity.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating projects: %w", err)
	}
	return projects, nil
}

// MergeRemoteProject applies a pulled server record under the recency policy.
// See MergeRemoteTask for the rules.
func (s *Store) MergeRemoteProject(ctx context.Context, remote *entity.Project) (bool, error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	local, err := scanProject(tx.QueryRowContext(ctx,
		"SELECT "+projectColumns+" FROM projects WHERE id = ?", remote.ID))

	remote.SyncStatus = entity.StatusSynced

	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = tx.ExecContext(ctx, `
			INSERT INTO projects (id, user_id, name, color, created_at, updated_at, sync_status)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			remote.ID, remote.UserID, remote.Name, remote.Color,
			formatTime(remote.CreatedAt), formatTime(remote.UpdatedAt), string(entity.StatusSynced))
		if err != nil {
			return false, fmt.Errorf("failed to insert pulled project %s: %w", remote.ID, err)
		}

	case err != nil:
		return false, fmt.Errorf("failed to load project %s: %w", remote.ID, err)

	case local.SyncStatus == entity.StatusSynced && remote.UpdatedAt.After(local.UpdatedAt):
		if err := writeProject(ctx, tx, remote); err != nil {
			return false, err
		}

	default:
		return false, nil
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit project merge: %w", err)
	}
	return true, nil
}

func writeProject(ctx context.Context, tx *sql.Tx, p *entity.Project) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE projects SET user_id = ?, name = ?, color = ?, created_at = ?, updated_at = ?,
			sync_status = ?
		WHERE id = ?`,
		p.UserID, p.Name, p.Color, formatTime(p.CreatedAt), formatTime(p.UpdatedAt),
		string(p.SyncStatus), p.ID)
	if err != nil {
		return fmt.Errorf("failed to write project %s: %w", p.ID, err)
	}
	return nil
}

func scanProject(sc scanner) (*entity.Project, error) {
	var p entity.Project
	var createdAt, updatedAt, status string

	err := sc.Scan(&p.ID, &p.UserID, &p.Name, &p.Color, &createdAt, &updatedAt, &status)
	if err != nil {
		return nil, err
	}

	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	p.SyncStatus = entity.SyncStatus(status)
	return &p, nil
}

func applyProjectPatch(p *entity.Project, patch *entity.ProjectPatch) {
	if patch == nil {
		return
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Color != nil {
		p.Color = *patch.Color
	}
}
