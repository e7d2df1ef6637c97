// Package sync drives the push/pull replication cycle between the local
// durable store and the remote backend.
//
// A cycle first pushes: the pending mutation queue is replayed against
// the remote strictly in enqueue order, and each item is removed only
// after the remote accepts it. If the remote is unreachable the push
// stops where it is and the remaining items stay queued for the next
// cycle. A cycle then pulls: remote state for every synced collection is
// applied over local state (the remote copy wins), leaving unsynced
// local data untouched.
//
// Cycles never overlap. A trigger that arrives while a cycle is running
// is dropped, not queued.
package sync

import (
	"context"

	"github.com/daybook-app/daybook/internal/cloud"
	"github.com/daybook-app/daybook/internal/model"
)

// Remote is the backend surface the orchestrator replicates against.
//
// Every call is scoped to a single owning user; implementations must
// never return or touch rows belonging to anyone else. Fetches return
// the complete remote collection for the owner. Upserts overwrite on id
// conflict. Deletes are idempotent: removing an absent row succeeds.
//
// Errors follow the cloud package taxonomy. An error matching
// cloud.ErrRemoteUnavailable means the backend could not be reached and
// the same call may succeed later; a cloud.RemoteRejectedError means
// the backend understood the call and refused it, so retrying the same
// payload is pointless.
type Remote interface {
	// Configured reports whether the remote has enough configuration
	// to accept calls at all. An unconfigured remote makes every
	// cycle a no-op skip rather than a failure.
	Configured() bool

	FetchTasks(ctx context.Context, ownerID string) ([]*model.Task, error)
	UpsertTasks(ctx context.Context, ownerID string, tasks []*model.Task) error
	DeleteTask(ctx context.Context, ownerID, id string) error

	FetchNotes(ctx context.Context, ownerID string) ([]*model.Note, error)
	UpsertNotes(ctx context.Context, ownerID string, notes []*model.Note) error
	DeleteNote(ctx context.Context, ownerID, id string) error

	// FetchProfile returns (nil, nil) when the owner has no remote
	// profile row yet.
	FetchProfile(ctx context.Context, ownerID string) (*model.UserProfile, error)
	UpsertProfile(ctx context.Context, ownerID string, p *model.UserProfile) error

	FetchUnlocked(ctx context.Context, ownerID string) ([]model.UnlockedAchievement, error)
	UpsertUnlocked(ctx context.Context, ownerID string, unlocks []model.UnlockedAchievement) error
}

var _ Remote = (*cloud.Client)(nil)
