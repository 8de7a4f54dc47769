package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/prodhub/prodhub/internal/entity"
)

const categoryColumns = `id, user_id, name, icon, color, created_at, updated_at, sync_status`

// CreateCategory inserts an expense category optimistically and queues its
// create mutation.
func (s *Store) CreateCategory(ctx context.Context, c *entity.Category) (*entity.Category, error) {
	now := s.now()
	if c.ID == "" {
		c.ID = entity.NewID()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = now
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid category: %w", err)
	}

	payload, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal category %s: %w", c.ID, err)
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO expense_categories (id, user_id, name, icon, color, created_at, updated_at, sync_status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.Name, c.Icon, c.Color,
		formatTime(c.CreatedAt), formatTime(c.UpdatedAt), string(entity.StatusPending))
	if err != nil {
		return nil, fmt.Errorf("failed to insert category %s: %w", c.ID, err)
	}

	if _, err := s.enqueueTx(ctx, tx, entity.TypeCategory, entity.ActionCreate, c.ID, payload, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit category create: %w", err)
	}

	c.SyncStatus = entity.StatusPending
	return c, nil
}

// UpdateCategory merges a partial update and queues the patch.
// Returns ErrNotFound if no category with the id exists.
func (s *Store) UpdateCategory(ctx context.Context, id string, patch *entity.CategoryPatch) (*entity.Category, error) {
	now := s.now()

	payload, err := json.Marshal(patch)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal category patch for %s: %w", id, err)
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	c, err := scanCategory(tx.QueryRowContext(ctx,
		"SELECT "+categoryColumns+" FROM expense_categories WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("category %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load category %s: %w", id, err)
	}

	applyCategoryPatch(c, patch)
	c.UpdatedAt = now
	c.SyncStatus = entity.StatusPending

	if err := writeCategory(ctx, tx, c); err != nil {
		return nil, err
	}

	if _, err := s.enqueueTx(ctx, tx, entity.TypeCategory, entity.ActionUpdate, id, payload, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit category update: %w", err)
	}

	return c, nil
}

// DeleteCategory removes the local row immediately and queues the remote delete.
func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	now := s.now()

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM expense_categories WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete category %s: %w", id, err)
	}

	if _, err := s.enqueueTx(ctx, tx, entity.TypeCategory, entity.ActionDelete, id, nil, now); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit category delete: %w", err)
	}
	return nil
}

// GetCategory is a point lookup. Returns ErrNotFound if the id is absent.
func (s *Store) GetCategory(ctx context.Context, id string) (*entity.Category, error) {
	c, err := scanCategory(s.conn.QueryRowContext(ctx,
		"SELECT "+categoryColumns+" FROM expense_categories WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("category %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category %s: %w", id, err)
	}
	return c, nil
}

// ListCategories returns all expense categories for the user.
func (s *Store) ListCategories(ctx context.Context, userID string) ([]*entity.Category, error) {
	rows, err := s.conn.QueryContext(ctx,
		"SELECT "+categoryColumns+" FROM expense_categories WHERE user_id = ? ORDER BY created_at ASC", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []*entity.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}
	return categories, nil
}

// MergeRemoteCategory applies a pulled server record under the recency policy.
// See MergeRemoteTask for the rules.
func (s *Store) MergeRemoteCategory(ctx context.Context, remote *entity.Category) (bool, error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	local, err := scanCategory(tx.QueryRowContext(ctx,
		"SELECT "+categoryColumns+" FROM expense_categories WHERE id = ?", remote.ID))

	remote.SyncStatus = entity.StatusSynced

	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = tx.ExecContext(ctx, `
			INSERT INTO expense_categories (id, user_id, name, icon, color, created_at, updated_at, sync_status)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			remote.ID, remote.UserID, remote.Name, remote.Icon, remote.Color,
			formatTime(remote.CreatedAt), formatTime(remote.UpdatedAt), string(entity.StatusSynced))
		if err != nil {
			return false, fmt.Errorf("failed to insert pulled category %s: %w", remote.ID, err)
		}

	case err != nil:
		return false, fmt.Errorf("failed to load category %s: %w", remote.ID, err)

	case local.SyncStatus == entity.StatusSynced && remote.UpdatedAt.After(local.UpdatedAt):
		if err := writeCategory(ctx, tx, remote); err != nil {
			return false, err
		}

	default:
		return false, nil
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit category merge: %w", err)
	}
	return true, nil
}

func writeCategory(ctx context.Context, tx *sql.Tx, c *entity.Category) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE expense_categories SET user_id = ?, name = ?, icon = ?, color = ?,
			created_at = ?, updated_at = ?, sync_status = ?
		WHERE id = ?`,
		c.UserID, c.Name, c.Icon, c.Color, formatTime(c.CreatedAt), formatTime(c.UpdatedAt),
		string(c.SyncStatus), c.ID)
	if err != nil {
		return fmt.Errorf("failed to write category %s: %w", c.ID, err)
	}
	return nil
}

func scanCategory(sc scanner) (*entity.Category, error) {
	var c entity.Category
	var createdAt, updatedAt, status string

	err := sc.Scan(&c.ID, &c.UserID, &c.Name, &c.Icon, &c.Color, &createdAt, &updatedAt, &status)
	if err != nil {
		return nil, err
	}

	c.CreatedAt = parseTime(createdAt)
	c.UpdatedAt = parseTime(updatedAt)
	c.SyncStatus = entity.SyncStatus(status)
	return &c, nil
}

func applyCategoryPatch(c *entity.Category, patch *entity.CategoryPatch) {
	if patch == nil {
		return
	}
	if patch.Name != nil {
		c.Name = *patch.Name
	}
	if patch.Icon != nil {
		c.Icon = *patch.Icon
	}
	if patch.Color != nil {
		c.Color = *patch.Color
	}
}
