// Package migrate imports data from the legacy daybook database.
//
// Early releases persisted to a differently-named SQLite file with an
// older layout (a "todos" table, a profile row keyed "user", a flat
// "settings" table). On first run of the current store this package
// copies everything across, exactly once.
//
// Safety invariant: migration runs only when every current-store
// collection is empty. It never overwrites existing data and never
// deletes or modifies the legacy database. A missing or unreadable
// legacy store is a soft skip, logged and otherwise invisible.
package migrate

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/daybook-app/daybook/internal/model"
	"github.com/daybook-app/daybook/internal/store"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// legacyProfileKey is the key early releases stored the profile under.
// It is normalized to model.ProfileKey during the copy.
const legacyProfileKey = "user"

// Run copies the legacy store into cur if cur is completely empty.
//
// Returns true when a migration actually happened. Detection failures
// (legacy file absent, unreadable, or not enumerable on this platform)
// return (false, nil): migration simply does not occur. Only a failure
// to write into the current store is a hard error.
func Run(ctx context.Context, cur *store.Store, legacyPath string, logger *log.Logger) (bool, error) {
	if logger == nil {
		logger = log.New(os.Stderr, "[migrate] ", log.LstdFlags)
	}

	if legacyPath == "" {
		return false, nil
	}
	if _, err := os.Stat(legacyPath); err != nil {
		if !os.IsNotExist(err) {
			logger.Printf("Skipping legacy migration: cannot stat %s: %v", legacyPath, err)
		}
		return false, nil
	}

	empty, err := cur.Empty(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check current store: %w", err)
	}
	if !empty {
		// Already migrated (or the user has data). Never overwrite.
		return false, nil
	}

	snap, err := readLegacy(ctx, legacyPath)
	if err != nil {
		logger.Printf("Skipping legacy migration: %v", err)
		return false, nil
	}

	// One logical batch: either the whole legacy dataset lands or the
	// current store stays empty.
	if err := cur.ReplaceAll(ctx, snap); err != nil {
		return false, fmt.Errorf("failed to import legacy data: %w", err)
	}

	logger.Printf("Migrated legacy store %s: %d tasks, %d notes, %d achievements",
		legacyPath, len(snap.Tasks), len(snap.Notes), len(snap.Achievements))
	return true, nil
}

// readLegacy opens the legacy database read-only and loads every
// collection it can find. Missing tables are tolerated; older installs
// predate some of them.
func readLegacy(ctx context.Context, path string) (*store.Snapshot, error) {
	conn, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open legacy store: %w", err)
	}
	defer conn.Close()
	if err := conn.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping legacy store: %w", err)
	}

	snap := &store.Snapshot{KV: make(map[string]json.RawMessage)}

	if err := readLegacyTodos(ctx, conn, snap); err != nil {
		return nil, err
	}
	if err := readLegacyNotes(ctx, conn, snap); err != nil {
		return nil, err
	}
	if err := readLegacyProfile(ctx, conn, snap); err != nil {
		return nil, err
	}
	if err := readLegacyAchievements(ctx, conn, snap); err != nil {
		return nil, err
	}
	if err := readLegacySettings(ctx, conn, snap); err != nil {
		return nil, err
	}

	return snap, nil
}

// hasTable reports whether the legacy database contains the named table.
func hasTable(ctx context.Context, conn *sql.DB, name string) (bool, error) {
	var n int
	err := conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, name).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("enumerate legacy tables: %w", err)
	}
	return n > 0, nil
}

func readLegacyTodos(ctx context.Context, conn *sql.DB, snap *store.Snapshot) error {
	ok, err := hasTable(ctx, conn, "todos")
	if err != nil || !ok {
		return err
	}

	rows, err := conn.QueryContext(ctx, `
	SELECT id, text, completed, completed_at, is_important, priority,
	       due_date, tags, created_at, subtasks
	FROM todos`)
	if err != nil {
		return fmt.Errorf("read legacy todos: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var t model.Task
		var completed, important int
		var completedAt, dueDate, tagsJSON, subtasksJSON sql.NullString
		var createdAt string

		if err := rows.Scan(&t.ID, &t.Text, &completed, &completedAt, &important,
			&t.Priority, &dueDate, &tagsJSON, &createdAt, &subtasksJSON); err != nil {
			return fmt.Errorf("scan legacy todo: %w", err)
		}

		t.Completed = completed != 0
		t.IsImportant = important != 0
		t.DueDate = dueDate.String
		if completedAt.Valid {
			if ts, err := time.Parse(time.RFC3339Nano, completedAt.String); err == nil {
				t.CompletedAt = &ts
			}
		}
		// Legacy rows could hold completed without a timestamp; repair so
		// the current invariant holds.
		if t.Completed && t.CompletedAt == nil {
			t.Completed = false
		}
		if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			t.CreatedAt = ts
		} else {
			t.CreatedAt = time.Now().UTC()
		}
		if tagsJSON.Valid && tagsJSON.String != "" && tagsJSON.String != "null" {
			if err := json.Unmarshal([]byte(tagsJSON.String), &t.Tags); err != nil {
				return fmt.Errorf("parse legacy tags for %s: %w", t.ID, err)
			}
		}
		if subtasksJSON.Valid && subtasksJSON.String != "" && subtasksJSON.String != "null" {
			if err := json.Unmarshal([]byte(subtasksJSON.String), &t.Subtasks); err != nil {
				return fmt.Errorf("parse legacy subtasks for %s: %w", t.ID, err)
			}
		}
		if !t.Priority.Valid() {
			t.Priority = model.PriorityNone
		}
		t.NormalizeTags()

		snap.Tasks = append(snap.Tasks, &t)
	}
	return rows.Err()
}

func readLegacyNotes(ctx context.Context, conn *sql.DB, snap *store.Snapshot) error {
	ok, err := hasTable(ctx, conn, "notes")
	if err != nil || !ok {
		return err
	}

	rows, err := conn.QueryContext(ctx,
		`SELECT id, title, content, created_at, updated_at, is_pinned FROM notes`)
	if err != nil {
		return fmt.Errorf("read legacy notes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var n model.Note
		var createdAt, updatedAt string
		var pinned int
		if err := rows.Scan(&n.ID, &n.Title, &n.Content, &createdAt, &updatedAt, &pinned); err != nil {
			return fmt.Errorf("scan legacy note: %w", err)
		}
		if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			n.CreatedAt = ts
		} else {
			n.CreatedAt = time.Now().UTC()
		}
		if ts, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
			n.UpdatedAt = ts
		} else {
			n.UpdatedAt = n.CreatedAt
		}
		n.IsPinned = pinned != 0
		snap.Notes = append(snap.Notes, &n)
	}
	return rows.Err()
}

func readLegacyProfile(ctx context.Context, conn *sql.DB, snap *store.Snapshot) error {
	ok, err := hasTable(ctx, conn, "user_profile")
	if err != nil || !ok {
		return err
	}

	// The legacy key differs from the current sentinel; normalizing the
	// key is the whole point of this read.
	var data string
	err = conn.QueryRowContext(ctx,
		`SELECT data FROM user_profile WHERE id = ?`, legacyProfileKey).Scan(&data)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read legacy profile: %w", err)
	}

	var p model.UserProfile
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return fmt.Errorf("parse legacy profile: %w", err)
	}
	if p.VerificationType == "" {
		p.VerificationType = model.VerificationNone
	}
	snap.Profile = &p
	return nil
}

func readLegacyAchievements(ctx context.Context, conn *sql.DB, snap *store.Snapshot) error {
	ok, err := hasTable(ctx, conn, "achievements")
	if err != nil || !ok {
		return err
	}

	rows, err := conn.QueryContext(ctx,
		`SELECT achievement_id, unlocked_at FROM achievements`)
	if err != nil {
		return fmt.Errorf("read legacy achievements: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var u model.UnlockedAchievement
		var ts string
		if err := rows.Scan(&u.AchievementID, &ts); err != nil {
			return fmt.Errorf("scan legacy achievement: %w", err)
		}
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			u.UnlockedAt = parsed
		} else {
			u.UnlockedAt = time.Now().UTC()
		}
		snap.Achievements = append(snap.Achievements, u)
	}
	return rows.Err()
}

func readLegacySettings(ctx context.Context, conn *sql.DB, snap *store.Snapshot) error {
	ok, err := hasTable(ctx, conn, "settings")
	if err != nil || !ok {
		return err
	}

	rows, err := conn.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return fmt.Errorf("read legacy settings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return fmt.Errorf("scan legacy setting: %w", err)
		}
		if !json.Valid([]byte(value)) {
			// Legacy settings stored bare strings; wrap them.
			b, err := json.Marshal(value)
			if err != nil {
				continue
			}
			value = string(b)
		}
		snap.KV[key] = json.RawMessage(value)
	}
	return rows.Err()
}
