package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Collection names a synced local collection. These values double as the
// table discriminator on sync queue items.
type Collection string

const (
	CollectionTasks        Collection = "tasks"
	CollectionNotes        Collection = "notes"
	CollectionProfile      Collection = "profile"
	CollectionAchievements Collection = "unlocked_achievements"
)

// SyncedCollections lists the collections replicated to the remote
// backend, in the order pull processes them.
var SyncedCollections = []Collection{
	CollectionTasks,
	CollectionNotes,
	CollectionProfile,
	CollectionAchievements,
}

// Valid reports whether c names a synced collection.
func (c Collection) Valid() bool {
	switch c {
	case CollectionTasks, CollectionNotes, CollectionProfile, CollectionAchievements:
		return true
	}
	return false
}

// Action is the mutation kind carried by a sync queue item.
type Action string

const (
	ActionInsert Action = "INSERT"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
)

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	switch a {
	case ActionInsert, ActionUpdate, ActionDelete:
		return true
	}
	return false
}

// SyncQueueItem is one durable pending mutation. Items are ordered by the
// auto-incrementing ID and removed only after the remote operation
// succeeds. For DELETE the payload is the entity id alone; otherwise it
// is a full entity snapshot.
type SyncQueueItem struct {
	ID         int64           `json:"id"`
	Table      Collection      `json:"table"`
	Action     Action          `json:"action"`
	EntityID   string          `json:"entityId"`
	Payload    json.RawMessage `json:"payload"`
	EnqueuedAt time.Time       `json:"enqueuedAt"`

	// Attempts counts rejected pushes; once it reaches the orchestrator's
	// limit the item is parked as a dead letter and no longer drained.
	Attempts   int  `json:"attempts"`
	DeadLetter bool `json:"deadLetter"`
}

// Validate checks the discriminator fields.
func (it *SyncQueueItem) Validate() error {
	if !it.Table.Valid() {
		return fmt.Errorf("unknown queue table %q", it.Table)
	}
	if !it.Action.Valid() {
		return fmt.Errorf("unknown queue action %q", it.Action)
	}
	if it.EntityID == "" {
		return fmt.Errorf("entity id is required")
	}
	return nil
}
