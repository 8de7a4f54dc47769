// Package entity defines the canonical records mirrored from the remote API
// and the shared vocabulary used by the local store and the sync engine.
//
// Every record carries a client-assigned id (stable across online and offline
// creation), an owning user id, and created/updated timestamps. The local
// store annotates each mirrored row with a SyncStatus; the tag never travels
// over the wire.
package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Type identifies one of the synchronized entity collections.
type Type string

const (
	TypeTask     Type = "task"
	TypeExpense  Type = "expense"
	TypeNote     Type = "note"
	TypeProject  Type = "project"
	TypeCategory Type = "expense-category"
)

// Types lists all entity types in the order the sync engine pulls them.
var Types = []Type{TypeTask, TypeExpense, TypeNote, TypeProject, TypeCategory}

// pathSegments maps an entity type to its REST collection path segment.
var pathSegments = map[Type]string{
	TypeTask:     "tasks",
	TypeExpense:  "expenses",
	TypeNote:     "notes",
	TypeProject:  "projects",
	TypeCategory: "expense-categories",
}

// Valid reports whether t is a known entity type.
func (t Type) Valid() bool {
	_, ok := pathSegments[t]
	return ok
}

// PathSegment returns the REST collection segment for the type,
// e.g. "tasks" for /api/tasks. Empty for unknown types.
func (t Type) PathSegment() string {
	return pathSegments[t]
}

// Action is a mutation kind recorded in the queue.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete:
		return true
	}
	return false
}

// SyncStatus tags a local mirror row with its reconciliation state.
type SyncStatus string

const (
	// StatusSynced means the last applied local write matches (or is
	// superseded by) server state and no queue entry references the row.
	StatusSynced SyncStatus = "synced"

	// StatusPending means at least one unresolved queue entry references
	// the row. Pending rows are never overwritten by the pull phase.
	StatusPending SyncStatus = "pending"

	// StatusFailed means the row's last mutation was permanently rejected
	// by the server and abandoned.
	StatusFailed SyncStatus = "failed"
)

// NewID returns a fresh globally unique entity id.
//
// Ids are assigned client-side at creation time so they remain stable
// whether the record is first created online or offline.
func NewID() string {
	return uuid.NewString()
}

// requireCommon validates the fields every canonical record shares.
func requireCommon(id, userID string, createdAt, updatedAt time.Time) error {
	if id == "" {
		return fmt.Errorf("id is required")
	}
	if userID == "" {
		return fmt.Errorf("userId is required")
	}
	if createdAt.IsZero() {
		return fmt.Errorf("createdAt is required")
	}
	if updatedAt.IsZero() {
		return fmt.Errorf("updatedAt is required")
	}
	return nil
}
