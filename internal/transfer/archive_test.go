package transfer

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/daybook-app/daybook/internal/model"
	"github.com/daybook-app/daybook/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "daybook.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedStore(t *testing.T, s *store.Store) {
	t.Helper()
	ctx := context.Background()
	now := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)

	task := &model.Task{
		ID: "t-1", Text: "pack bags", Priority: model.PriorityHigh,
		Tags: []string{"travel"}, CreatedAt: now,
	}
	if err := s.PutTask(ctx, task); err != nil {
		t.Fatal(err)
	}
	note := &model.Note{ID: "n-1", Title: "itinerary", CreatedAt: now, UpdatedAt: now, IsPinned: true}
	if err := s.PutNote(ctx, note); err != nil {
		t.Fatal(err)
	}
	if err := s.PutProfile(ctx, &model.UserProfile{Name: "Ada", VerificationType: model.VerificationNone}); err != nil {
		t.Fatal(err)
	}
	if err := s.AddUnlocked(ctx, model.UnlockedAchievement{AchievementID: "first-task", UnlockedAt: now}); err != nil {
		t.Fatal(err)
	}
	colors, _ := json.Marshal(map[string]string{"travel": "#00aaff"})
	if err := s.SetKV(ctx, TagColorsKey, colors); err != nil {
		t.Fatal(err)
	}
}

func TestExportImport_RoundTrip(t *testing.T) {
	src := openTestStore(t)
	seedStore(t, src)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "daybook-export.json")
	if err := ExportFile(ctx, src, path); err != nil {
		t.Fatalf("ExportFile() failed: %v", err)
	}

	dst := openTestStore(t)
	if err := ImportFile(ctx, dst, path); err != nil {
		t.Fatalf("ImportFile() failed: %v", err)
	}

	tasks, _ := dst.ListTasks(ctx)
	if len(tasks) != 1 || tasks[0].ID != "t-1" || tasks[0].Priority != model.PriorityHigh {
		t.Errorf("tasks after import = %+v", tasks)
	}
	notes, _ := dst.ListNotes(ctx)
	if len(notes) != 1 || !notes[0].IsPinned {
		t.Errorf("notes after import = %+v", notes)
	}
	profile, _ := dst.GetProfile(ctx)
	if profile == nil || profile.Name != "Ada" {
		t.Errorf("profile after import = %+v", profile)
	}
	unlocked, _ := dst.ListUnlocked(ctx)
	if len(unlocked) != 1 || unlocked[0].AchievementID != "first-task" {
		t.Errorf("unlocks after import = %+v", unlocked)
	}
	raw, _ := dst.GetKV(ctx, TagColorsKey)
	var colors map[string]string
	if err := json.Unmarshal(raw, &colors); err != nil || colors["travel"] != "#00aaff" {
		t.Errorf("tag colors after import = %s (err %v)", raw, err)
	}
}

func TestImport_ReplacesExistingData(t *testing.T) {
	s := openTestStore(t)
	seedStore(t, s)
	ctx := context.Background()

	empty := &Archive{Todos: []*model.Task{}, Notes: []*model.Note{}}
	data, _ := json.Marshal(empty)
	if err := Import(ctx, s, data); err != nil {
		t.Fatalf("Import() failed: %v", err)
	}

	ok, err := s.Empty(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("import of an empty archive should wipe everything")
	}
}

func TestImport_ParseFailureLeavesStoreUntouched(t *testing.T) {
	s := openTestStore(t)
	seedStore(t, s)
	ctx := context.Background()

	if err := Import(ctx, s, []byte(`{"todos": [`)); err == nil {
		t.Fatal("malformed archive should fail")
	}
	tasks, _ := s.ListTasks(ctx)
	if len(tasks) != 1 {
		t.Errorf("failed import destroyed data: %d tasks left", len(tasks))
	}
}

func TestImport_InvalidEntityAbortsBeforeWipe(t *testing.T) {
	s := openTestStore(t)
	seedStore(t, s)
	ctx := context.Background()

	bad := []byte(`{"todos": [{"id": "", "text": "no id", "priority": "none", "createdAt": "2024-07-01T00:00:00Z"}]}`)
	if err := Import(ctx, s, bad); err == nil {
		t.Fatal("archive with an invalid task should fail")
	}
	tasks, _ := s.ListTasks(ctx)
	if len(tasks) != 1 {
		t.Errorf("failed import destroyed data: %d tasks left", len(tasks))
	}
}

func TestImport_RepairsCompletedWithoutTimestamp(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	data := []byte(`{"todos": [{"id": "t-1", "text": "old export", "completed": true, "priority": "none", "createdAt": "2024-07-01T00:00:00Z"}]}`)
	if err := Import(ctx, s, data); err != nil {
		t.Fatalf("Import() failed: %v", err)
	}
	task, err := s.GetTask(ctx, "t-1")
	if err != nil {
		t.Fatal(err)
	}
	if task == nil || task.CompletedAt == nil {
		t.Errorf("completed task missing repaired timestamp: %+v", task)
	}
}
