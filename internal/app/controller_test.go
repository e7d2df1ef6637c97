package app

import (
	"context"
	"fmt"
	"io"
	"log"
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

// newTestController returns a controller with a deterministic clock and
// id sequence, sync queueing on.
func newTestController(t *testing.T, s *store.Store) *Controller {
	t.Helper()
	seq := 0
	clock := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	c, err := New(context.Background(), Options{
		Store:       s,
		Logger:      log.New(io.Discard, "", 0),
		SyncEnabled: true,
		Now: func() time.Time {
			clock = clock.Add(time.Minute)
			return clock
		},
		NewID: func() string {
			seq++
			return fmt.Sprintf("id-%03d", seq)
		},
	})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return c
}

// requireCacheMatchesStore asserts the controller cache and the durable
// store agree on every collection.
func requireCacheMatchesStore(t *testing.T, c *Controller, s *store.Store) {
	t.Helper()
	ctx := context.Background()

	stored, err := s.ListTasks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	cached := c.Tasks()
	if len(stored) != len(cached) {
		t.Fatalf("task count: store=%d cache=%d", len(stored), len(cached))
	}
	byID := map[string]*model.Task{}
	for _, tk := range stored {
		byID[tk.ID] = tk
	}
	for _, tk := range cached {
		st, ok := byID[tk.ID]
		if !ok {
			t.Fatalf("cached task %s missing from store", tk.ID)
		}
		if st.Text != tk.Text || st.Completed != tk.Completed {
			t.Errorf("task %s diverged: store=%+v cache=%+v", tk.ID, st, tk)
		}
	}

	storedNotes, err := s.ListNotes(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(storedNotes) != len(c.Notes()) {
		t.Fatalf("note count: store=%d cache=%d", len(storedNotes), len(c.Notes()))
	}

	storedUnlocks, err := s.ListUnlocked(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(storedUnlocks) != len(c.Unlocked()) {
		t.Fatalf("unlock count: store=%d cache=%d", len(storedUnlocks), len(c.Unlocked()))
	}
}

func TestCreateTask_PersistsAndQueues(t *testing.T) {
	s := openTestStore(t)
	c := newTestController(t, s)
	ctx := context.Background()

	created, err := c.CreateTask(ctx, model.Task{Text: "buy milk", Tags: []string{" Errands ", "errands"}})
	if err != nil {
		t.Fatalf("CreateTask() failed: %v", err)
	}
	if created.ID == "" || created.CreatedAt.IsZero() {
		t.Errorf("created task missing identity: %+v", created)
	}
	if len(created.Tags) != 1 || created.Tags[0] != "errands" {
		t.Errorf("tags not normalized: %v", created.Tags)
	}

	items, err := s.Drain(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].Action != model.ActionInsert || items[0].EntityID != created.ID {
		t.Fatalf("queue = %+v, want one INSERT for the task", items)
	}
	requireCacheMatchesStore(t, c, s)
}

func TestCreateTask_SyncDisabledQueuesNothing(t *testing.T) {
	s := openTestStore(t)
	c := newTestController(t, s)
	c.SetSyncEnabled(false)
	ctx := context.Background()

	if _, err := c.CreateTask(ctx, model.Task{Text: "offline only"}); err != nil {
		t.Fatalf("CreateTask() failed: %v", err)
	}
	depth, _ := s.QueueDepth(ctx)
	if depth != 0 {
		t.Errorf("queue depth = %d, want 0 with sync disabled", depth)
	}
}

func TestToggleTask_RoundTripRestoresState(t *testing.T) {
	s := openTestStore(t)
	c := newTestController(t, s)
	ctx := context.Background()

	created, err := c.CreateTask(ctx, model.Task{Text: "water plants"})
	if err != nil {
		t.Fatal(err)
	}

	toggled, err := c.ToggleTask(ctx, created.ID)
	if err != nil {
		t.Fatalf("ToggleTask() failed: %v", err)
	}
	if !toggled.Completed || toggled.CompletedAt == nil {
		t.Errorf("after complete: %+v", toggled)
	}

	back, err := c.ToggleTask(ctx, created.ID)
	if err != nil {
		t.Fatalf("second ToggleTask() failed: %v", err)
	}
	if back.Completed || back.CompletedAt != nil {
		t.Errorf("after un-complete: %+v", back)
	}
	requireCacheMatchesStore(t, c, s)
}

func TestToggleTask_RecurrenceSpawnsSuccessor(t *testing.T) {
	s := openTestStore(t)
	c := newTestController(t, s)
	ctx := context.Background()

	created, err := c.CreateTask(ctx, model.Task{
		Text:           "daily standup",
		DueDate:        "2024-06-03",
		RecurrenceRule: &model.RecurrenceRule{Type: model.RecurDaily},
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := c.ToggleTask(ctx, created.ID); err != nil {
		t.Fatalf("ToggleTask() failed: %v", err)
	}

	tasks := c.Tasks()
	if len(tasks) != 2 {
		t.Fatalf("got %d tasks, want completed original plus successor", len(tasks))
	}
	var successor *model.Task
	for _, tk := range tasks {
		if tk.ID != created.ID {
			successor = tk
		}
	}
	if successor == nil {
		t.Fatal("no successor spawned")
	}
	if successor.DueDate != "2024-06-04" {
		t.Errorf("successor due date = %q, want 2024-06-04", successor.DueDate)
	}
	if successor.Completed || successor.CompletedAt != nil {
		t.Errorf("successor must start incomplete: %+v", successor)
	}

	original := c.Task(created.ID)
	if original == nil || !original.Completed {
		t.Errorf("completed original must be retained: %+v", original)
	}
	requireCacheMatchesStore(t, c, s)
}

func TestDeleteTask_PurgesQueueThenTombstones(t *testing.T) {
	s := openTestStore(t)
	c := newTestController(t, s)
	ctx := context.Background()

	created, err := c.CreateTask(ctx, model.Task{Text: "short lived"})
	if err != nil {
		t.Fatal(err)
	}
	keeper, err := c.CreateTask(ctx, model.Task{Text: "keep me"})
	if err != nil {
		t.Fatal(err)
	}

	if err := c.DeleteTask(ctx, created.ID); err != nil {
		t.Fatalf("DeleteTask() failed: %v", err)
	}

	items, err := s.Drain(ctx)
	if err != nil {
		t.Fatal(err)
	}
	// The doomed task's INSERT is purged; what remains is the keeper's
	// INSERT and the tombstone DELETE.
	for _, it := range items {
		if it.EntityID == created.ID && it.Action != model.ActionDelete {
			t.Errorf("stale queued mutation survived delete: %+v", it)
		}
	}
	var sawDelete, sawKeeper bool
	for _, it := range items {
		if it.EntityID == created.ID && it.Action == model.ActionDelete {
			sawDelete = true
		}
		if it.EntityID == keeper.ID {
			sawKeeper = true
		}
	}
	if !sawDelete || !sawKeeper {
		t.Errorf("queue = %+v, want keeper INSERT and tombstone DELETE", items)
	}

	if c.Task(created.ID) != nil {
		t.Error("deleted task still cached")
	}
	requireCacheMatchesStore(t, c, s)
}

func TestDeleteTask_AbsentIsNoOp(t *testing.T) {
	s := openTestStore(t)
	c := newTestController(t, s)

	if err := c.DeleteTask(context.Background(), "ghost"); err != nil {
		t.Errorf("deleting an absent task should succeed, got %v", err)
	}
}

func TestNotes_Lifecycle(t *testing.T) {
	s := openTestStore(t)
	c := newTestController(t, s)
	ctx := context.Background()

	n, err := c.CreateNote(ctx, "groceries", "eggs, flour")
	if err != nil {
		t.Fatalf("CreateNote() failed: %v", err)
	}

	edited := *n
	edited.Content = "eggs, flour, butter"
	if err := c.UpdateNote(ctx, edited); err != nil {
		t.Fatalf("UpdateNote() failed: %v", err)
	}
	notes := c.Notes()
	if len(notes) != 1 || notes[0].Content != "eggs, flour, butter" {
		t.Errorf("notes = %+v", notes)
	}
	if !notes[0].UpdatedAt.After(n.UpdatedAt) {
		t.Error("edit did not bump UpdatedAt")
	}

	if err := c.DeleteNote(ctx, n.ID); err != nil {
		t.Fatalf("DeleteNote() failed: %v", err)
	}
	if len(c.Notes()) != 0 {
		t.Error("note still cached after delete")
	}
	requireCacheMatchesStore(t, c, s)
}

func TestSetProfile_QueuesUnderSentinelKey(t *testing.T) {
	s := openTestStore(t)
	c := newTestController(t, s)
	ctx := context.Background()

	if err := c.SetProfile(ctx, model.UserProfile{Name: "Ada", Username: "ada"}); err != nil {
		t.Fatalf("SetProfile() failed: %v", err)
	}
	got := c.Profile()
	if got == nil || got.Name != "Ada" {
		t.Fatalf("profile = %+v", got)
	}

	items, err := s.Drain(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var sawProfile bool
	for _, it := range items {
		if it.Table == model.CollectionProfile && it.EntityID == model.ProfileKey {
			sawProfile = true
		}
	}
	if !sawProfile {
		t.Errorf("queue = %+v, want a profile mutation keyed by the sentinel", items)
	}
}

func TestAchievements_UnlockOnceAndQueue(t *testing.T) {
	s := openTestStore(t)
	c := newTestController(t, s)
	ctx := context.Background()

	created, err := c.CreateTask(ctx, model.Task{Text: "first ever task"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.ToggleTask(ctx, created.ID); err != nil {
		t.Fatal(err)
	}

	unlocked := c.Unlocked()
	if len(unlocked) != 1 || unlocked[0].AchievementID != "first-task" {
		t.Fatalf("unlocked = %+v, want first-task only", unlocked)
	}

	// Toggling back and forth must not unlock it again.
	if _, err := c.ToggleTask(ctx, created.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := c.ToggleTask(ctx, created.ID); err != nil {
		t.Fatal(err)
	}
	if got := c.Unlocked(); len(got) != 1 {
		t.Errorf("unlocked = %+v, want still exactly one", got)
	}

	items, err := s.Drain(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var unlockQueued int
	for _, it := range items {
		if it.Table == model.CollectionAchievements {
			unlockQueued++
		}
	}
	if unlockQueued != 1 {
		t.Errorf("achievement queued %d times, want 1", unlockQueued)
	}
	requireCacheMatchesStore(t, c, s)
}

func TestRefresh_SeesExternalWrites(t *testing.T) {
	s := openTestStore(t)
	c := newTestController(t, s)
	ctx := context.Background()

	// Simulate a pull cycle writing behind the controller's back.
	external := &model.Task{
		ID:        "external-1",
		Text:      "from another device",
		Priority:  model.PriorityNone,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.PutTask(ctx, external); err != nil {
		t.Fatal(err)
	}

	if c.Task("external-1") != nil {
		t.Fatal("cache saw the write without a refresh")
	}
	if err := c.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() failed: %v", err)
	}
	if c.Task("external-1") == nil {
		t.Error("refreshed cache missing external task")
	}
	requireCacheMatchesStore(t, c, s)
}
