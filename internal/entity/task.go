package entity

import (
	"fmt"
	"time"
)

// Task priorities accepted by the remote API.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Task is the canonical task record as exchanged with the remote API.
//
// Field names follow the wire format. SyncStatus is local-only bookkeeping
// and is excluded from JSON so queue payloads and pull merges never carry it.
type Task struct {
	ID              string    `json:"id"`
	UserID          string    `json:"userId"`
	ProjectID       string    `json:"projectId,omitempty"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	Completed       bool      `json:"completed"`
	Priority        string    `json:"priority"`
	DueDate         string    `json:"dueDate,omitempty"` // YYYY-MM-DD
	DueTime         string    `json:"dueTime,omitempty"` // HH:MM
	ReminderEnabled bool      `json:"reminderEnabled"`
	ParentTaskID    string    `json:"parentTaskId,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`

	SyncStatus SyncStatus `json:"-"`
}

// Validate checks that the task is well-formed before it is stored or queued.
func (t *Task) Validate() error {
	if err := requireCommon(t.ID, t.UserID, t.CreatedAt, t.UpdatedAt); err != nil {
		return err
	}
	if t.Title == "" {
		return fmt.Errorf("title is required")
	}
	switch t.Priority {
	case PriorityLow, PriorityMedium, PriorityHigh:
	default:
		return fmt.Errorf("priority must be low, medium, or high (got %q)", t.Priority)
	}
	return nil
}

// TaskPatch is a partial task update. Nil fields are left untouched.
// The patch marshals with omitempty semantics so the queued payload only
// carries the fields the user actually changed.
type TaskPatch struct {
	ProjectID       *string `json:"projectId,omitempty"`
	Title           *string `json:"title,omitempty"`
	Description     *string `json:"description,omitempty"`
	Completed       *bool   `json:"completed,omitempty"`
	Priority        *string `json:"priority,omitempty"`
	DueDate         *string `json:"dueDate,omitempty"`
	DueTime         *string `json:"dueTime,omitempty"`
	ReminderEnabled *bool   `json:"reminderEnabled,omitempty"`
	ParentTaskID    *string `json:"parentTaskId,omitempty"`
}
