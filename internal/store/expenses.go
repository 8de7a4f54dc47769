package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/prodhub/prodhub/internal/entity"
)

const expenseColumns = `id, user_id, category_id, type, amount, description, date,
	is_recurring, recurring_type, is_emi, emi_months, emi_remaining, is_debt, debt_to,
	created_at, updated_at, sync_status`

// CreateExpense inserts an expense optimistically and queues its create mutation.
func (s *Store) CreateExpense(ctx context.Context, e *entity.Expense) (*entity.Expense, error) {
	now := s.now()
	if e.ID == "" {
		e.ID = entity.NewID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = now
	}
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("invalid expense: %w", err)
	}

	payload, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal expense %s: %w", e.ID, err)
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO expenses (id, user_id, category_id, type, amount, description, date,
			is_recurring, recurring_type, is_emi, emi_months, emi_remaining, is_debt, debt_to,
			created_at, updated_at, sync_status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.CategoryID, e.Type, e.Amount, e.Description, e.Date,
		e.IsRecurring, e.RecurringType, e.IsEMI, e.EMIMonths, e.EMIRemaining, e.IsDebt, e.DebtTo,
		formatTime(e.CreatedAt), formatTime(e.UpdatedAt), string(entity.StatusPending))
	if err != nil {
		return nil, fmt.Errorf("failed to insert expense %s: %w", e.ID, err)
	}

	if _, err := s.enqueueTx(ctx, tx, entity.TypeExpense, entity.ActionCreate, e.ID, payload, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit expense create: %w", err)
	}

	e.SyncStatus = entity.StatusPending
	return e, nil
}

// UpdateExpense merges a partial update and queues the patch.
// Returns ErrNotFound if no expense with the id exists.
func (s *Store) UpdateExpense(ctx context.Context, id string, patch *entity.ExpensePatch) (*entity.Expense, error) {
	now := s.now()

	payload, err := json.Marshal(patch)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal expense patch for %s: %w", id, err)
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	e, err := scanExpense(tx.QueryRowContext(ctx,
		"SELECT "+expenseColumns+" FROM expenses WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("expense %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load expense %s: %w", id, err)
	}

	applyExpensePatch(e, patch)
	e.UpdatedAt = now
	e.SyncStatus = entity.StatusPending

	if err := writeExpense(ctx, tx, e); err != nil {
		return nil, err
	}

	if _, err := s.enqueueTx(ctx, tx, entity.TypeExpense, entity.ActionUpdate, id, payload, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit expense update: %w", err)
	}

	return e, nil
}

// DeleteExpense removes the local row immediately and queues the remote delete.
func (s *Store) DeleteExpense(ctx context.Context, id string) error {
	now := s.now()

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM expenses WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete expense %s: %w", id, err)
	}

	if _, err := s.enqueueTx(ctx, tx, entity.TypeExpense, entity.ActionDelete, id, nil, now); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit expense delete: %w", err)
	}
	return nil
}

// GetExpense is a point lookup. Returns ErrNotFound if the id is absent.
func (s *Store) GetExpense(ctx context.Context, id string) (*entity.Expense, error) {
	e, err := scanExpense(s.conn.QueryRowContext(ctx,
		"SELECT "+expenseColumns+" FROM expenses WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("expense %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense %s: %w", id, err)
	}
	return e, nil
}

// ListExpenses returns all expenses for the user, optionally narrowed to a category.
func (s *Store) ListExpenses(ctx context.Context, userID, categoryID string) ([]*entity.Expense, error) {
	query := "SELECT " + expenseColumns + " FROM expenses WHERE user_id = ?"
	args := []any{userID}
	if categoryID != "" {
		query += " AND category_id = ?"
		args = append(args, categoryID)
	}
	query += " ORDER BY created_at ASC"

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*entity.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expenses: %w", err)
	}
	return expenses, nil
}

// MergeRemoteExpense applies a pulled server record under the recency policy.
// See MergeRemoteTask for the rules.
func (s *Store) MergeRemoteExpense(ctx context.Context, remote *entity.Expense) (bool, error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	local, err := scanExpense(tx.QueryRowContext(ctx,
		"SELECT "+expenseColumns+" FROM expenses WHERE id = ?", remote.ID))

	remote.SyncStatus = entity.StatusSynced

	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = tx.ExecContext(ctx, `
			INSERT INTO expenses (id, user_id, category_id, type, amount, description, date,
				is_recurring, recurring_type, is_emi, emi_months, emi_remaining, is_debt, debt_to,
				created_at, updated_at, sync_status)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			remote.ID, remote.UserID, remote.CategoryID, remote.Type, remote.Amount,
			remote.Description, remote.Date, remote.IsRecurring, remote.RecurringType,
			remote.IsEMI, remote.EMIMonths, remote.EMIRemaining, remote.IsDebt, remote.DebtTo,
			formatTime(remote.CreatedAt), formatTime(remote.UpdatedAt), string(entity.StatusSynced))
		if err != nil {
			return false, fmt.Errorf("failed to insert pulled expense %s: %w", remote.ID, err)
		}

	case err != nil:
		return false, fmt.Errorf("failed to load expense %s: %w", remote.ID, err)

	case local.SyncStatus == entity.StatusSynced && remote.UpdatedAt.After(local.UpdatedAt):
		if err := writeExpense(ctx, tx, remote); err != nil {
			return false, err
		}

	default:
		return false, nil
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit expense merge: %w", err)
	}
	return true, nil
}

func writeExpense(ctx context.Context, tx *sql.Tx, e *entity.Expense) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE expenses SET user_id = ?, category_id = ?, type = ?, amount = ?, description = ?,
			date = ?, is_recurring = ?, recurring_type = ?, is_emi = ?, emi_months = ?,
			emi_remaining = ?, is_debt = ?, debt_to = ?, created_at = ?, updated_at = ?,
			sync_status = ?
		WHERE id = ?`,
		e.UserID, e.CategoryID, e.Type, e.Amount, e.Description, e.Date,
		e.IsRecurring, e.RecurringType, e.IsEMI, e.EMIMonths, e.EMIRemaining,
		e.IsDebt, e.DebtTo, formatTime(e.CreatedAt), formatTime(e.UpdatedAt),
		string(e.SyncStatus), e.ID)
	if err != nil {
		return fmt.Errorf("failed to write expense %s: %w", e.ID, err)
	}
	return nil
}

func scanExpense(sc scanner) (*entity.Expense, error) {
	var e entity.Expense
	var createdAt, updatedAt, status string

	err := sc.Scan(&e.ID, &e.UserID, &e.CategoryID, &e.Type, &e.Amount, &e.Description,
		&e.Date, &e.IsRecurring, &e.RecurringType, &e.IsEMI, &e.EMIMonths,
		&e.EMIRemaining, &e.IsDebt, &e.DebtTo, &createdAt, &updatedAt, &status)
	if err != nil {
		return nil, err
	}

	e.CreatedAt = parseTime(createdAt)
	e.UpdatedAt = parseTime(updatedAt)
	e.SyncStatus = entity.SyncStatus(status)
	return &e, nil
}

func applyExpensePatch(e *entity.Expense, p *entity.ExpensePatch) {
	if p == nil {
		return
	}
	if p.CategoryID != nil {
		e.CategoryID = *p.CategoryID
	}
	if p.Type != nil {
		e.Type = *p.Type
	}
	if p.Amount != nil {
		e.Amount = *p.Amount
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.Date != nil {
		e.Date = *p.Date
	}
	if p.IsRecurring != nil {
		e.IsRecurring = *p.IsRecurring
	}
	if p.RecurringType != nil {
		e.RecurringType = *p.RecurringType
	}
	if p.IsEMI != nil {
		e.IsEMI = *p.IsEMI
	}
	if p.EMIMonths != nil {
		e.EMIMonths = *p.EMIMonths
	}
	if p.EMIRemaining != nil {
		e.EMIRemaining = *p.EMIRemaining
	}
	if p.IsDebt != nil {
		e.IsDebt = *p.IsDebt
	}
	if p.DebtTo != nil {
		e.DebtTo = *p.DebtTo
	}
}
