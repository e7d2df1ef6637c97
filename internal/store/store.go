// Package store provides the local durable store for daybook.
//
// The store is an embedded SQLite database (ncruces/go-sqlite3, WAL mode)
// holding the tasks, notes, profile, unlocked_achievements, and kv
// collections plus the durable sync queue. It is the source of truth for
// the application at all times; the in-memory controller is a cache over
// it, never the other way around.
//
// Schema changes are additive only: the schema_version table records a
// monotonically increasing version, and opening a database written by an
// older version applies the missing migrations without touching existing
// rows.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/daybook-app/daybook/internal/model"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// SchemaVersion is the current local schema version. Bump it whenever a
// migration is appended below.
const SchemaVersion = 2

// migrations holds one DDL block per schema version, applied in order.
// Never edit an existing entry; append a new one and bump SchemaVersion.
var migrations = []string{
	// v1: core collections
	`
	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		text TEXT NOT NULL,
		completed INTEGER NOT NULL DEFAULT 0,
		completed_at TEXT,
		is_important INTEGER NOT NULL DEFAULT 0,
		priority TEXT NOT NULL DEFAULT 'none',
		image_url TEXT,
		due_date TEXT,
		tags TEXT,  -- JSON array
		created_at TEXT NOT NULL,
		subtasks TEXT,  -- JSON array
		notified INTEGER,
		recurrence TEXT,  -- JSON object
		reminder_offset INTEGER
	);

	CREATE TABLE IF NOT EXISTS notes (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		is_pinned INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS profile (
		id TEXT PRIMARY KEY,
		data TEXT NOT NULL  -- JSON object
	);

	CREATE TABLE IF NOT EXISTS unlocked_achievements (
		achievement_id TEXT PRIMARY KEY,
		unlocked_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL  -- JSON
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_completed ON tasks(completed);
	CREATE INDEX IF NOT EXISTS idx_tasks_due ON tasks(due_date);
	CREATE INDEX IF NOT EXISTS idx_notes_pinned ON notes(is_pinned);
	`,

	// v2: durable sync queue
	`
	CREATE TABLE IF NOT EXISTS sync_queue (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tbl TEXT NOT NULL,
		action TEXT NOT NULL,
		entity_id TEXT NOT NULL,
		payload TEXT NOT NULL,  -- JSON entity snapshot
		enqueued_at TEXT NOT NULL,
		attempts INTEGER NOT NULL DEFAULT 0,
		dead_letter INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_queue_entity ON sync_queue(tbl, entity_id);
	`,
}

// Store wraps the SQLite connection. Construct one per process with Open
// (or a Lazy) and pass it by injection; there is no package-level handle.
type Store struct {
	conn *sql.DB
	path string
}

// Open creates or opens the database at path and brings the schema up to
// date. It is safe to call on an existing database of any prior schema
// version; upgrades are additive and never drop or rename collections.
//
// Failure to open or migrate wraps ErrStorageUnavailable: nothing will
// persist, and callers must degrade accordingly.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: create database directory: %v", ErrStorageUnavailable, err)
	}

	conn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %v", ErrStorageUnavailable, err)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: ping database: %v", ErrStorageUnavailable, err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	s := &Store{conn: conn, path: path}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := s.conn.Exec(pragma); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("%w: %s: %v", ErrStorageUnavailable, pragma, err)
		}
	}

	if err := s.migrate(context.Background()); err != nil {
		_ = s.Close()
		return nil, err
	}

	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close checkpoints the WAL and closes the connection.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}
	if _, err := s.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	s.conn = nil
	return nil
}

// migrate applies any missing schema versions inside one transaction.
func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.conn.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY)`); err != nil {
		return fmt.Errorf("%w: create schema_version: %v", ErrStorageUnavailable, err)
	}

	var current int
	err := s.conn.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&current)
	if err != nil {
		return fmt.Errorf("%w: read schema version: %v", ErrStorageUnavailable, err)
	}
	if current >= SchemaVersion {
		return nil
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin migration: %v", ErrStorageUnavailable, err)
	}
	defer tx.Rollback()

	for v := current; v < SchemaVersion; v++ {
		if _, err := tx.ExecContext(ctx, migrations[v]); err != nil {
			return fmt.Errorf("%w: apply schema v%d: %v", ErrStorageUnavailable, v+1, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO schema_version (version) VALUES (?)`, v+1); err != nil {
			return fmt.Errorf("%w: record schema v%d: %v", ErrStorageUnavailable, v+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit migration: %v", ErrStorageUnavailable, err)
	}
	return nil
}

// Version returns the stored schema version.
func (s *Store) Version(ctx context.Context) (int, error) {
	var v int
	err := s.conn.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return v, nil
}

// ---- tasks ----

const taskColumns = `id, text, completed, completed_at, is_important, priority,
	image_url, due_date, tags, created_at, subtasks, notified, recurrence, reminder_offset`

// PutTask upserts a task by id. Putting an identical task twice leaves a
// single unchanged row.
func (s *Store) PutTask(ctx context.Context, t *model.Task) error {
	return putTaskExec(ctx, s.conn, t)
}

// execer is satisfied by both *sql.DB and *sql.Tx so puts can run inside
// a larger all-or-nothing batch.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func putTaskExec(ctx context.Context, ex execer, t *model.Task) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("invalid task: %w", err)
	}

	tagsJSON, err := json.Marshal(t.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}
	subtasksJSON, err := json.Marshal(t.Subtasks)
	if err != nil {
		return fmt.Errorf("failed to marshal subtasks: %w", err)
	}
	var recurrenceJSON sql.NullString
	if t.RecurrenceRule != nil {
		b, err := json.Marshal(t.RecurrenceRule)
		if err != nil {
			return fmt.Errorf("failed to marshal recurrence: %w", err)
		}
		recurrenceJSON = sql.NullString{String: string(b), Valid: true}
	}

	query := `
	INSERT INTO tasks (` + taskColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		text = excluded.text,
		completed = excluded.completed,
		completed_at = excluded.completed_at,
		is_important = excluded.is_important,
		priority = excluded.priority,
		image_url = excluded.image_url,
		due_date = excluded.due_date,
		tags = excluded.tags,
		subtasks = excluded.subtasks,
		notified = excluded.notified,
		recurrence = excluded.recurrence,
		reminder_offset = excluded.reminder_offset
	`

	_, err = ex.ExecContext(ctx, query,
		t.ID,
		t.Text,
		boolToInt(t.Completed),
		timeToNullString(t.CompletedAt),
		boolToInt(t.IsImportant),
		string(t.Priority),
		nullIfEmpty(t.ImageURL),
		nullIfEmpty(t.DueDate),
		string(tagsJSON),
		t.CreatedAt.UTC().Format(time.RFC3339Nano),
		string(subtasksJSON),
		boolPtrToNullInt(t.Notified),
		recurrenceJSON,
		intPtrToNullInt(t.ReminderOffset),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert task %s: %w", t.ID, err)
	}
	return nil
}

// GetTask returns the task or (nil, nil) when absent; a missing row is
// not an error.
func (s *Store) GetTask(ctx context.Context, id string) (*model.Task, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task %s: %w", id, err)
	}
	return t, nil
}

// ListTasks returns all tasks ordered by creation time.
func (s *Store) ListTasks(ctx context.Context) ([]*model.Task, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}
	return tasks, nil
}

// DeleteTask removes a task. No-op if the task is absent (idempotent).
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	if _, err := s.conn.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete task %s: %w", id, err)
	}
	return nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (*model.Task, error) {
	var t model.Task
	var completed, important int
	var completedAt, imageURL, dueDate, recurrence sql.NullString
	var tagsJSON, subtasksJSON, createdAt string
	var notified, reminderOffset sql.NullInt64

	err := row.Scan(
		&t.ID, &t.Text, &completed, &completedAt, &important, &t.Priority,
		&imageURL, &dueDate, &tagsJSON, &createdAt, &subtasksJSON,
		&notified, &recurrence, &reminderOffset,
	)
	if err != nil {
		return nil, err
	}

	t.Completed = completed != 0
	t.IsImportant = important != 0
	t.CompletedAt = nullStringToTime(completedAt)
	t.ImageURL = imageURL.String
	t.DueDate = dueDate.String
	if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		t.CreatedAt = ts
	}
	if tagsJSON != "" && tagsJSON != "null" {
		if err := json.Unmarshal([]byte(tagsJSON), &t.Tags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
		}
	}
	if subtasksJSON != "" && subtasksJSON != "null" {
		if err := json.Unmarshal([]byte(subtasksJSON), &t.Subtasks); err != nil {
			return nil, fmt.Errorf("failed to unmarshal subtasks: %w", err)
		}
	}
	if notified.Valid {
		v := notified.Int64 != 0
		t.Notified = &v
	}
	if recurrence.Valid {
		var rule model.RecurrenceRule
		if err := json.Unmarshal([]byte(recurrence.String), &rule); err != nil {
			return nil, fmt.Errorf("failed to unmarshal recurrence: %w", err)
		}
		t.RecurrenceRule = &rule
	}
	if reminderOffset.Valid {
		v := int(reminderOffset.Int64)
		t.ReminderOffset = &v
	}
	return &t, nil
}

// ---- notes ----

// PutNote upserts a note by id.
func (s *Store) PutNote(ctx context.Context, n *model.Note) error {
	return putNoteExec(ctx, s.conn, n)
}

func putNoteExec(ctx context.Context, ex execer, n *model.Note) error {
	if err := n.Validate(); err != nil {
		return fmt.Errorf("invalid note: %w", err)
	}

	query := `
	INSERT INTO notes (id, title, content, created_at, updated_at, is_pinned)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		title = excluded.title,
		content = excluded.content,
		updated_at = excluded.updated_at,
		is_pinned = excluded.is_pinned
	`
	_, err := ex.ExecContext(ctx, query,
		n.ID, n.Title, n.Content,
		n.CreatedAt.UTC().Format(time.RFC3339Nano),
		n.UpdatedAt.UTC().Format(time.RFC3339Nano),
		boolToInt(n.IsPinned),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert note %s: %w", n.ID, err)
	}
	return nil
}

// GetNote returns the note or (nil, nil) when absent.
func (s *Store) GetNote(ctx context.Context, id string) (*model.Note, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT id, title, content, created_at, updated_at, is_pinned FROM notes WHERE id = ?`, id)
	n, err := scanNote(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get note %s: %w", id, err)
	}
	return n, nil
}

// ListNotes returns all notes, pinned first, then most recently updated.
func (s *Store) ListNotes(ctx context.Context) ([]*model.Note, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, title, content, created_at, updated_at, is_pinned
		 FROM notes ORDER BY is_pinned DESC, updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	defer rows.Close()

	var notes []*model.Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notes: %w", err)
	}
	return notes, nil
}

// DeleteNote removes a note. Idempotent.
func (s *Store) DeleteNote(ctx context.Context, id string) error {
	if _, err := s.conn.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete note %s: %w", id, err)
	}
	return nil
}

func scanNote(row scanner) (*model.Note, error) {
	var n model.Note
	var createdAt, updatedAt string
	var pinned int

	if err := row.Scan(&n.ID, &n.Title, &n.Content, &createdAt, &updatedAt, &pinned); err != nil {
		return nil, err
	}
	if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		n.CreatedAt = ts
	}
	if ts, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		n.UpdatedAt = ts
	}
	n.IsPinned = pinned != 0
	return &n, nil
}

// ---- profile ----

// PutProfile stores the singleton profile under the sentinel key.
func (s *Store) PutProfile(ctx context.Context, p *model.UserProfile) error {
	return putProfileExec(ctx, s.conn, p)
}

func putProfileExec(ctx context.Context, ex execer, p *model.UserProfile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}
	_, err = ex.ExecContext(ctx, `
	INSERT INTO profile (id, data) VALUES (?, ?)
	ON CONFLICT(id) DO UPDATE SET data = excluded.data`,
		model.ProfileKey, string(data))
	if err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	return nil
}

// GetProfile returns the stored profile or (nil, nil) when none exists.
func (s *Store) GetProfile(ctx context.Context) (*model.UserProfile, error) {
	var data string
	err := s.conn.QueryRowContext(ctx,
		`SELECT data FROM profile WHERE id = ?`, model.ProfileKey).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	var p model.UserProfile
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile: %w", err)
	}
	return &p, nil
}

// ---- unlocked achievements ----

// AddUnlocked records an achievement unlock. An id unlocks at most once;
// repeated adds for the same id keep the original timestamp.
func (s *Store) AddUnlocked(ctx context.Context, u model.UnlockedAchievement) error {
	return addUnlockedExec(ctx, s.conn, u)
}

func addUnlockedExec(ctx context.Context, ex execer, u model.UnlockedAchievement) error {
	_, err := ex.ExecContext(ctx, `
	INSERT OR IGNORE INTO unlocked_achievements (achievement_id, unlocked_at)
	VALUES (?, ?)`,
		u.AchievementID, u.UnlockedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to record achievement %s: %w", u.AchievementID, err)
	}
	return nil
}

// ListUnlocked returns all unlocked achievements in unlock order.
func (s *Store) ListUnlocked(ctx context.Context) ([]model.UnlockedAchievement, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT achievement_id, unlocked_at FROM unlocked_achievements ORDER BY unlocked_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list achievements: %w", err)
	}
	defer rows.Close()

	var out []model.UnlockedAchievement
	for rows.Next() {
		var u model.UnlockedAchievement
		var ts string
		if err := rows.Scan(&u.AchievementID, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan achievement: %w", err)
		}
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			u.UnlockedAt = parsed
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating achievements: %w", err)
	}
	return out, nil
}

// ---- key-value settings ----

// SetKV stores an arbitrary JSON value under a setting name.
func (s *Store) SetKV(ctx context.Context, key string, value json.RawMessage) error {
	return setKVExec(ctx, s.conn, key, value)
}

func setKVExec(ctx context.Context, ex execer, key string, value json.RawMessage) error {
	_, err := ex.ExecContext(ctx, `
	INSERT INTO kv (key, value) VALUES (?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, string(value))
	if err != nil {
		return fmt.Errorf("failed to set kv %s: %w", key, err)
	}
	return nil
}

// GetKV returns the stored value or (nil, nil) when the key is absent.
func (s *Store) GetKV(ctx context.Context, key string) (json.RawMessage, error) {
	var value string
	err := s.conn.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get kv %s: %w", key, err)
	}
	return json.RawMessage(value), nil
}

// ---- wipe and batch seeding ----

// collections are every user-data table covered by Clear/ClearAll and the
// importer. The sync queue is wiped too: queued mutations for wiped data
// must not replay.
var collections = []string{
	"tasks", "notes", "profile", "unlocked_achievements", "kv", "sync_queue",
}

// Clear empties one collection.
func (s *Store) Clear(ctx context.Context, table string) error {
	if _, err := s.conn.ExecContext(ctx, `DELETE FROM `+table); err != nil {
		return fmt.Errorf("failed to clear %s: %w", table, err)
	}
	return nil
}

// ClearAll empties every collection in one transaction. There is no state
// where only half the collections are wiped.
func (s *Store) ClearAll(ctx context.Context) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin wipe: %w", err)
	}
	defer tx.Rollback()

	for _, table := range collections {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return tx.Commit()
}

// Snapshot is a full copy of the user-data collections, used for legacy
// migration, export, and import.
type Snapshot struct {
	Tasks        []*model.Task
	Notes        []*model.Note
	Profile      *model.UserProfile
	Achievements []model.UnlockedAchievement
	KV           map[string]json.RawMessage
}

// ReplaceAll wipes every collection and repopulates it from snap inside a
// single transaction. Either the whole snapshot lands or nothing changes.
func (s *Store) ReplaceAll(ctx context.Context, snap *Snapshot) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin import: %w", err)
	}
	defer tx.Rollback()

	for _, table := range collections {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	for _, t := range snap.Tasks {
		if err := putTaskExec(ctx, tx, t); err != nil {
			return err
		}
	}
	for _, n := range snap.Notes {
		if err := putNoteExec(ctx, tx, n); err != nil {
			return err
		}
	}
	if snap.Profile != nil {
		if err := putProfileExec(ctx, tx, snap.Profile); err != nil {
			return err
		}
	}
	for _, u := range snap.Achievements {
		if err := addUnlockedExec(ctx, tx, u); err != nil {
			return err
		}
	}
	for key, value := range snap.KV {
		if err := setKVExec(ctx, tx, key, value); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit import: %w", err)
	}
	return nil
}

// Counts returns the row count of every user-data collection. The legacy
// migrator uses this to enforce its run-only-when-empty invariant.
func (s *Store) Counts(ctx context.Context) (map[string]int, error) {
	out := make(map[string]int, len(collections))
	for _, table := range collections {
		var n int
		if err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		out[table] = n
	}
	return out, nil
}

// Empty reports whether every user-data collection has zero rows.
func (s *Store) Empty(ctx context.Context) (bool, error) {
	counts, err := s.Counts(ctx)
	if err != nil {
		return false, err
	}
	for _, n := range counts {
		if n > 0 {
			return false, nil
		}
	}
	return true, nil
}

// ---- SQL helpers ----

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func timeToNullString(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339Nano), Valid: true}
}

func nullStringToTime(ns sql.NullString) *time.Time {
	if !ns.Valid {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, ns.String)
	if err != nil {
		return nil
	}
	return &t
}

func boolPtrToNullInt(b *bool) sql.NullInt64 {
	if b == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(boolToInt(*b)), Valid: true}
}

func intPtrToNullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
