// Package transfer implements the export/import file format: a single
// JSON document holding every user-data collection. Import is
// all-or-nothing; a file that does not parse leaves the store untouched.
package transfer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/daybook-app/daybook/internal/model"
	"github.com/daybook-app/daybook/internal/store"
)

// TagColorsKey is the settings key the tag color map lives under.
const TagColorsKey = "tagColors"

// Archive is the export file shape. Top-level key names are part of the
// format and must not change.
type Archive struct {
	Todos                []*model.Task               `json:"todos"`
	Notes                []*model.Note               `json:"notes"`
	UserProfile          *model.UserProfile          `json:"userProfile,omitempty"`
	UnlockedAchievements []model.UnlockedAchievement `json:"unlockedAchievements"`
	TagColors            map[string]string           `json:"tagColors,omitempty"`
}

// Export captures the current store contents as an archive.
func Export(ctx context.Context, s *store.Store) (*Archive, error) {
	a := &Archive{}
	var err error
	if a.Todos, err = s.ListTasks(ctx); err != nil {
		return nil, err
	}
	if a.Notes, err = s.ListNotes(ctx); err != nil {
		return nil, err
	}
	if a.UserProfile, err = s.GetProfile(ctx); err != nil {
		return nil, err
	}
	if a.UnlockedAchievements, err = s.ListUnlocked(ctx); err != nil {
		return nil, err
	}
	if a.Todos == nil {
		a.Todos = []*model.Task{}
	}
	if a.Notes == nil {
		a.Notes = []*model.Note{}
	}
	if a.UnlockedAchievements == nil {
		a.UnlockedAchievements = []model.UnlockedAchievement{}
	}

	raw, err := s.GetKV(ctx, TagColorsKey)
	if err != nil {
		return nil, err
	}
	if raw != nil {
		if err := json.Unmarshal(raw, &a.TagColors); err != nil {
			return nil, fmt.Errorf("stored tag colors are unreadable: %w", err)
		}
	}
	return a, nil
}

// ExportFile writes the archive as indented JSON to path.
func ExportFile(ctx context.Context, s *store.Store, path string) error {
	a, err := Export(ctx, s)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode archive: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write archive: %w", err)
	}
	return nil
}

// Import parses data fully, validates every entity, then wipes the store
// and repopulates it in one transaction. Any failure before the wipe
// leaves existing data exactly as it was.
func Import(ctx context.Context, s *store.Store, data []byte) error {
	var a Archive
	if err := json.Unmarshal(data, &a); err != nil {
		return fmt.Errorf("archive does not parse: %w", err)
	}
	for _, t := range a.Todos {
		// Old exports may carry completed tasks without a timestamp.
		if t.Completed && t.CompletedAt == nil {
			at := t.CreatedAt
			t.CompletedAt = &at
		}
		if err := t.Validate(); err != nil {
			return fmt.Errorf("archive task %s: %w", t.ID, err)
		}
	}
	for _, n := range a.Notes {
		if err := n.Validate(); err != nil {
			return fmt.Errorf("archive note %s: %w", n.ID, err)
		}
	}

	snap := &store.Snapshot{
		Tasks:        a.Todos,
		Notes:        a.Notes,
		Profile:      a.UserProfile,
		Achievements: a.UnlockedAchievements,
	}
	if len(a.TagColors) > 0 {
		colors, err := json.Marshal(a.TagColors)
		if err != nil {
			return fmt.Errorf("failed to encode tag colors: %w", err)
		}
		snap.KV = map[string]json.RawMessage{TagColorsKey: colors}
	}
	return s.ReplaceAll(ctx, snap)
}

// ImportFile reads path and imports it.
func ImportFile(ctx context.Context, s *store.Store, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read archive: %w", err)
	}
	return Import(ctx, s, data)
}
