package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/daybook-app/daybook/internal/model"
)

// Queue operations. The sync queue is a durable, ordered log of pending
// remote mutations, keyed by an auto-incrementing sequence id. Items are
// removed only after the remote operation for them succeeds; everything
// else leaves them in place for the next cycle.

// Enqueue appends a pending mutation and returns its sequence id.
//
// An enqueue failure is a data-loss risk (the mutation exists locally but
// will never reach the remote), so it is wrapped in ErrStorageUnavailable
// and must be surfaced, never swallowed.
func (s *Store) Enqueue(ctx context.Context, table model.Collection, action model.Action, entityID string, payload json.RawMessage) (int64, error) {
	item := model.SyncQueueItem{Table: table, Action: action, EntityID: entityID}
	if err := item.Validate(); err != nil {
		return 0, fmt.Errorf("invalid queue item: %w", err)
	}
	if payload == nil {
		payload = json.RawMessage("null")
	}

	res, err := s.conn.ExecContext(ctx, `
	INSERT INTO sync_queue (tbl, action, entity_id, payload, enqueued_at)
	VALUES (?, ?, ?, ?, ?)`,
		string(table), string(action), entityID, string(payload),
		time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("%w: enqueue %s %s for %s: %v",
			ErrStorageUnavailable, action, table, entityID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: read queue sequence: %v", ErrStorageUnavailable, err)
	}
	return id, nil
}

// Drain returns all queued items in enqueue order, skipping dead letters.
// Items stay queued; callers remove them individually after the remote
// apply succeeds.
func (s *Store) Drain(ctx context.Context) ([]model.SyncQueueItem, error) {
	rows, err := s.conn.QueryContext(ctx, `
	SELECT id, tbl, action, entity_id, payload, enqueued_at, attempts, dead_letter
	FROM sync_queue
	WHERE dead_letter = 0
	ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to drain sync queue: %w", err)
	}
	defer rows.Close()

	return scanQueueItems(rows)
}

// DeadLetters returns items parked after exhausting their push attempts.
func (s *Store) DeadLetters(ctx context.Context) ([]model.SyncQueueItem, error) {
	rows, err := s.conn.QueryContext(ctx, `
	SELECT id, tbl, action, entity_id, payload, enqueued_at, attempts, dead_letter
	FROM sync_queue
	WHERE dead_letter = 1
	ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list dead letters: %w", err)
	}
	defer rows.Close()

	return scanQueueItems(rows)
}

func scanQueueItems(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]model.SyncQueueItem, error) {
	var items []model.SyncQueueItem
	for rows.Next() {
		var it model.SyncQueueItem
		var table, action, payload, enqueuedAt string
		var deadLetter int
		if err := rows.Scan(&it.ID, &table, &action, &it.EntityID, &payload,
			&enqueuedAt, &it.Attempts, &deadLetter); err != nil {
			return nil, fmt.Errorf("failed to scan queue item: %w", err)
		}
		it.Table = model.Collection(table)
		it.Action = model.Action(action)
		it.Payload = json.RawMessage(payload)
		it.DeadLetter = deadLetter != 0
		if ts, err := time.Parse(time.RFC3339Nano, enqueuedAt); err == nil {
			it.EnqueuedAt = ts
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating queue: %w", err)
	}
	return items, nil
}

// RemoveQueued deletes one queue entry after its remote apply succeeded.
// Idempotent.
func (s *Store) RemoveQueued(ctx context.Context, id int64) error {
	if _, err := s.conn.ExecContext(ctx,
		`DELETE FROM sync_queue WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to remove queue item %d: %w", id, err)
	}
	return nil
}

// PurgeQueuedFor drops every queued mutation for one entity. Deleting an
// entity locally uses this as its tombstone step: mutations that never
// reached the remote must not replay after the row is gone.
func (s *Store) PurgeQueuedFor(ctx context.Context, table model.Collection, entityID string) error {
	if _, err := s.conn.ExecContext(ctx,
		`DELETE FROM sync_queue WHERE tbl = ? AND entity_id = ?`,
		string(table), entityID); err != nil {
		return fmt.Errorf("failed to purge queue for %s/%s: %w", table, entityID, err)
	}
	return nil
}

// MarkAttempt records a rejected push for a queue item. Once attempts
// reach maxAttempts the item is parked as a dead letter and will no
// longer be drained. Returns whether the item was dead-lettered.
func (s *Store) MarkAttempt(ctx context.Context, id int64, maxAttempts int) (bool, error) {
	res, err := s.conn.ExecContext(ctx, `
	UPDATE sync_queue
	SET attempts = attempts + 1,
	    dead_letter = CASE WHEN attempts + 1 >= ? THEN 1 ELSE 0 END
	WHERE id = ?`, maxAttempts, id)
	if err != nil {
		return false, fmt.Errorf("failed to mark attempt on queue item %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		return false, err
	}

	var dead int
	err = s.conn.QueryRowContext(ctx,
		`SELECT dead_letter FROM sync_queue WHERE id = ?`, id).Scan(&dead)
	if err != nil {
		return false, fmt.Errorf("failed to read dead letter flag for %d: %w", id, err)
	}
	return dead != 0, nil
}

// QueueDepth returns the number of live (non-dead-letter) queued items.
func (s *Store) QueueDepth(ctx context.Context) (int, error) {
	var n int
	err := s.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sync_queue WHERE dead_letter = 0`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count sync queue: %w", err)
	}
	return n, nil
}
