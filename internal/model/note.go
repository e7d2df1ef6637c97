package model

import (
	"fmt"
	"time"
)

// Note is a free-form text entry. Notes are created empty and autosaved
// by the UI on a debounce; UpdatedAt is bumped on every edit.
type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	IsPinned  bool      `json:"isPinned"`
}

// Validate checks that the note has usable field values.
func (n *Note) Validate() error {
	if n.ID == "" {
		return fmt.Errorf("id is required")
	}
	if n.CreatedAt.IsZero() {
		return fmt.Errorf("createdAt is required")
	}
	if n.UpdatedAt.IsZero() {
		return fmt.Errorf("updatedAt is required")
	}
	return nil
}

// Touch bumps UpdatedAt. Call on every edit.
func (n *Note) Touch(now time.Time) {
	n.UpdatedAt = now.UTC()
}
