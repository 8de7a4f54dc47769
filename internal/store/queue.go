package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prodhub/prodhub/internal/entity"
)

// QueueEntry is one pending outbound mutation.
//
// Entries are drained in ascending ID order; that is the only ordering
// guarantee, and it implies per-entity enqueue order since ids are assigned
// monotonically at insert time.
type QueueEntry struct {
	ID         int64
	EntityType entity.Type
	Action     entity.Action
	ItemID     string
	Payload    json.RawMessage // full record for create, patch for update, nil for delete
	EnqueuedAt time.Time
	Retries    int
}

// Enqueue appends a mutation to the queue with a fresh sequence id.
//
// User-initiated store writes enqueue inside their own transaction; this
// method exists for callers outside that path (and for tests).
func (s *Store) Enqueue(ctx context.Context, typ entity.Type, action entity.Action, itemID string, payload json.RawMessage) (*QueueEntry, error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	entry, err := s.enqueueTx(ctx, tx, typ, action, itemID, payload, s.now())
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit enqueue: %w", err)
	}
	return entry, nil
}

// enqueueTx appends a queue entry within an existing transaction so a
// mutation and its queue record are durable together.
func (s *Store) enqueueTx(ctx context.Context, tx *sql.Tx, typ entity.Type, action entity.Action, itemID string, payload json.RawMessage, now time.Time) (*QueueEntry, error) {
	if !typ.Valid() {
		return nil, fmt.Errorf("unknown entity type %q", typ)
	}
	if !action.Valid() {
		return nil, fmt.Errorf("unknown action %q", action)
	}

	var payloadArg any
	if payload != nil {
		payloadArg = string(payload)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO sync_queue (entity_type, action, item_id, payload, enqueued_at, retries)
		 VALUES (?, ?, ?, ?, ?, 0)`,
		string(typ), string(action), itemID, payloadArg, formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue %s %s %s: %w", action, typ, itemID, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read queue sequence id: %w", err)
	}

	return &QueueEntry{
		ID:         id,
		EntityType: typ,
		Action:     action,
		ItemID:     itemID,
		Payload:    payload,
		EnqueuedAt: now,
	}, nil
}

// ListPending returns all queue entries in drain order (ascending sequence
// id). It re-reads current state on every call rather than holding a
// snapshot iterator, so a restarted drain sees exactly what is left.
func (s *Store) ListPending(ctx context.Context) ([]*QueueEntry, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, entity_type, action, item_id, payload, enqueued_at, retries
		 FROM sync_queue ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list queue: %w", err)
	}
	defer rows.Close()

	var entries []*QueueEntry
	for rows.Next() {
		var e QueueEntry
		var typ, action, enqueuedAt string
		var payload sql.NullString

		if err := rows.Scan(&e.ID, &typ, &action, &e.ItemID, &payload, &enqueuedAt, &e.Retries); err != nil {
			return nil, fmt.Errorf("failed to scan queue entry: %w", err)
		}

		e.EntityType = entity.Type(typ)
		e.Action = entity.Action(action)
		e.EnqueuedAt = parseTime(enqueuedAt)
		if payload.Valid {
			e.Payload = json.RawMessage(payload.String)
		}

		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating queue: %w", err)
	}

	return entries, nil
}

// RemoveQueueEntry deletes a queue entry. Idempotent: removing an entry
// that was already resolved is a no-op.
func (s *Store) RemoveQueueEntry(ctx context.Context, id int64) error {
	if _, err := s.conn.ExecContext(ctx, "DELETE FROM sync_queue WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to remove queue entry %d: %w", id, err)
	}
	return nil
}

// IncrementRetry bumps a queue entry's retry counter. A missing entry is a
// no-op: a concurrent drain may already have resolved it.
func (s *Store) IncrementRetry(ctx context.Context, id int64) error {
	if _, err := s.conn.ExecContext(ctx,
		"UPDATE sync_queue SET retries = retries + 1 WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to increment retries on queue entry %d: %w", id, err)
	}
	return nil
}
