package entity

import (
	"fmt"
	"time"
)

// Category is the canonical expense-category record as exchanged with the
// remote API.
type Category struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	Icon      string    `json:"icon,omitempty"`
	Color     string    `json:"color,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	SyncStatus SyncStatus `json:"-"`
}

// Validate checks that the category is well-formed before it is stored or queued.
func (c *Category) Validate() error {
	if err := requireCommon(c.ID, c.UserID, c.CreatedAt, c.UpdatedAt); err != nil {
		return err
	}
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	return nil
}

// CategoryPatch is a partial category update. Nil fields are left untouched.
type CategoryPatch struct {
	Name  *string `json:"name,omitempty"`
	Icon  *string `json:"icon,omitempty"`
	Color *string `json:"color,omitempty"`
}
