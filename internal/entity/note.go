package entity

import (
	"fmt"
	"time"
)

// Note is the canonical note record as exchanged with the remote API.
type Note struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	ProjectID string    `json:"projectId,omitempty"`
	Title     string    `json:"title"`
	Content   string    `json:"content,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	SyncStatus SyncStatus `json:"-"`
}

// Validate checks that the note is well-formed before it is stored or queued.
func (n *Note) Validate() error {
	if err := requireCommon(n.ID, n.UserID, n.CreatedAt, n.UpdatedAt); err != nil {
		return err
	}
	if n.Title == "" {
		return fmt.Errorf("title is required")
	}
	return nil
}

// NotePatch is a partial note update. Nil fields are left untouched.
type NotePatch struct {
	ProjectID *string `json:"projectId,omitempty"`
	Title     *string `json:"title,omitempty"`
	Content   *string `json:"content,omitempty"`
}
