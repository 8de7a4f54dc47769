package entity

import (
	"fmt"
	"time"
)

// Project is the canonical project record as exchanged with the remote API.
type Project struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	Color     string    `json:"color,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	SyncStatus SyncStatus `json:"-"`
}

// Validate checks that the project is well-formed before it is stored or queued.
func (p *Project) Validate() error {
	if err := requireCommon(p.ID, p.UserID, p.CreatedAt, p.UpdatedAt); err != nil {
		return err
	}
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	return nil
}

// ProjectPatch is a partial project update. Nil fields are left untouched.
type ProjectPatch struct {
	Name  *string `json:"name,omitempty"`
	Color *string `json:"color,omitempty"`
}
