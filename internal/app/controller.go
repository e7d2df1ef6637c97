// Package app is the application state controller: an in-memory cache of
// every collection, loaded once from the durable store and mutated only
// through methods that write the store first. Reads are served from the
// cache; the cache and the store never diverge because no mutation path
// bypasses the store write.
//
// When sync is enabled every successful mutation also appends to the
// pending queue, so the replication layer sees the exact local history.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sort"
	stdsync "sync"
	"time"

	"github.com/google/uuid"

	"github.com/daybook-app/daybook/internal/achievements"
	"github.com/daybook-app/daybook/internal/model"
	"github.com/daybook-app/daybook/internal/store"
)

// Options configures a Controller. Store is required.
type Options struct {
	Store  *store.Store
	Logger *log.Logger

	// SyncEnabled controls whether mutations are queued for replication.
	SyncEnabled bool

	// Now and NewID override the clock and id generator.
	Now   func() time.Time
	NewID func() string
}

// Controller owns the in-memory state. Safe for concurrent use.
type Controller struct {
	db     *store.Store
	logger *log.Logger
	now    func() time.Time
	newID  func() string

	mu          stdsync.Mutex
	syncEnabled bool
	tasks       map[string]*model.Task
	notes       map[string]*model.Note
	profile     *model.UserProfile
	unlocked    map[string]model.UnlockedAchievement
}

// New builds a Controller and loads the cache from the store.
func New(ctx context.Context, opts Options) (*Controller, error) {
	c := &Controller{
		db:          opts.Store,
		logger:      opts.Logger,
		now:         opts.Now,
		newID:       opts.NewID,
		syncEnabled: opts.SyncEnabled,
		tasks:       map[string]*model.Task{},
		notes:       map[string]*model.Note{},
		unlocked:    map[string]model.UnlockedAchievement{},
	}
	if c.logger == nil {
		c.logger = log.New(os.Stderr, "[app] ", log.LstdFlags)
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.newID == nil {
		c.newID = uuid.NewString
	}
	if err := c.load(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Controller) load(ctx context.Context) error {
	tasks, err := c.db.ListTasks(ctx)
	if err != nil {
		return err
	}
	for _, t := range tasks {
		c.tasks[t.ID] = t
	}
	notes, err := c.db.ListNotes(ctx)
	if err != nil {
		return err
	}
	for _, n := range notes {
		c.notes[n.ID] = n
	}
	if c.profile, err = c.db.GetProfile(ctx); err != nil {
		return err
	}
	unlocked, err := c.db.ListUnlocked(ctx)
	if err != nil {
		return err
	}
	for _, u := range unlocked {
		c.unlocked[u.AchievementID] = u
	}
	return nil
}

// SetSyncEnabled toggles mutation queueing.
func (c *Controller) SetSyncEnabled(enabled bool) {
	c.mu.Lock()
	c.syncEnabled = enabled
	c.mu.Unlock()
}

// Refresh reloads the cache from the store. Call after an external
// writer (a pull cycle, an import) has changed the store underneath.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tasks = map[string]*model.Task{}
	c.notes = map[string]*model.Note{}
	c.profile = nil
	c.unlocked = map[string]model.UnlockedAchievement{}
	return c.load(ctx)
}

// enqueue appends a mutation to the pending queue when sync is on.
// Caller holds c.mu.
func (c *Controller) enqueue(ctx context.Context, table model.Collection, action model.Action, entityID string, entity any) error {
	if !c.syncEnabled {
		return nil
	}
	payload, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", table, err)
	}
	_, err = c.db.Enqueue(ctx, table, action, entityID, payload)
	return err
}

// ---- tasks ----

// Tasks returns every cached task, newest first.
func (c *Controller) Tasks() []*model.Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*model.Task, 0, len(c.tasks))
	for _, t := range c.tasks {
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Task returns one cached task, or nil when absent.
func (c *Controller) Task(id string) *model.Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.tasks[id]
	if !ok {
		return nil
	}
	cp := *t
	return &cp
}

// CreateTask fills in id and creation time, validates, persists, and
// queues the insert. The draft's Text and option fields are taken as-is
// apart from tag normalization.
func (c *Controller) CreateTask(ctx context.Context, draft model.Task) (*model.Task, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := draft
	if t.ID == "" {
		t.ID = c.newID()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = c.now().UTC()
	}
	if t.Priority == "" {
		t.Priority = model.PriorityNone
	}
	t.NormalizeTags()
	if err := t.Validate(); err != nil {
		return nil, err
	}

	if err := c.db.PutTask(ctx, &t); err != nil {
		return nil, err
	}
	c.tasks[t.ID] = &t
	if err := c.enqueue(ctx, model.CollectionTasks, model.ActionInsert, t.ID, &t); err != nil {
		return nil, err
	}
	c.evaluateAchievements(ctx)
	cp := t
	return &cp, nil
}

// UpdateTask replaces an existing task wholesale.
func (c *Controller) UpdateTask(ctx context.Context, t model.Task) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.tasks[t.ID]; !ok {
		return fmt.Errorf("task %s not found", t.ID)
	}
	t.NormalizeTags()
	if err := t.Validate(); err != nil {
		return err
	}
	if err := c.db.PutTask(ctx, &t); err != nil {
		return err
	}
	c.tasks[t.ID] = &t
	return c.enqueue(ctx, model.CollectionTasks, model.ActionUpdate, t.ID, &t)
}

// ToggleTask flips a task's completion. Completing a recurring task also
// spawns its successor with the due date advanced and completion state
// reset; the completed original is kept.
func (c *Controller) ToggleTask(ctx context.Context, id string) (*model.Task, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cached, ok := c.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s not found", id)
	}
	t := *cached
	now := c.now()
	t.SetCompleted(!t.Completed, now)

	if err := c.db.PutTask(ctx, &t); err != nil {
		return nil, err
	}
	c.tasks[t.ID] = &t
	if err := c.enqueue(ctx, model.CollectionTasks, model.ActionUpdate, t.ID, &t); err != nil {
		return nil, err
	}

	if t.Completed && t.RecurrenceRule != nil && t.DueDate != "" {
		next, err := t.SpawnNext(c.newID(), now)
		if err != nil {
			c.logger.Printf("task %s: could not spawn recurrence: %v", t.ID, err)
		} else {
			if err := c.db.PutTask(ctx, next); err != nil {
				return nil, err
			}
			c.tasks[next.ID] = next
			if err := c.enqueue(ctx, model.CollectionTasks, model.ActionInsert, next.ID, next); err != nil {
				return nil, err
			}
		}
	}

	c.evaluateAchievements(ctx)
	cp := t
	return &cp, nil
}

// DeleteTask removes a task locally and queues the remote delete. Any
// queued inserts or updates for the task are purged first so the remote
// never resurrects a tombstoned entity.
func (c *Controller) DeleteTask(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.tasks[id]; !ok {
		return nil
	}
	if err := c.db.DeleteTask(ctx, id); err != nil {
		return err
	}
	delete(c.tasks, id)

	if !c.syncEnabled {
		return nil
	}
	if err := c.db.PurgeQueuedFor(ctx, model.CollectionTasks, id); err != nil {
		return err
	}
	return c.enqueue(ctx, model.CollectionTasks, model.ActionDelete, id, id)
}

// ---- notes ----

// Notes returns every cached note, most recently updated first.
func (c *Controller) Notes() []*model.Note {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*model.Note, 0, len(c.notes))
	for _, n := range c.notes {
		cp := *n
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// CreateNote persists a new note and queues the insert.
func (c *Controller) CreateNote(ctx context.Context, title, content string) (*model.Note, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now().UTC()
	n := &model.Note{
		ID:        c.newID(),
		Title:     title,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := c.db.PutNote(ctx, n); err != nil {
		return nil, err
	}
	c.notes[n.ID] = n
	if err := c.enqueue(ctx, model.CollectionNotes, model.ActionInsert, n.ID, n); err != nil {
		return nil, err
	}
	c.evaluateAchievements(ctx)
	cp := *n
	return &cp, nil
}

// UpdateNote replaces a note's content and bumps its edit time.
func (c *Controller) UpdateNote(ctx context.Context, n model.Note) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.notes[n.ID]; !ok {
		return fmt.Errorf("note %s not found", n.ID)
	}
	n.Touch(c.now())
	if err := n.Validate(); err != nil {
		return err
	}
	if err := c.db.PutNote(ctx, &n); err != nil {
		return err
	}
	c.notes[n.ID] = &n
	if err := c.enqueue(ctx, model.CollectionNotes, model.ActionUpdate, n.ID, &n); err != nil {
		return err
	}
	c.evaluateAchievements(ctx)
	return nil
}

// DeleteNote removes a note locally and queues the remote delete, after
// purging any still-queued mutations for it.
func (c *Controller) DeleteNote(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.notes[id]; !ok {
		return nil
	}
	if err := c.db.DeleteNote(ctx, id); err != nil {
		return err
	}
	delete(c.notes, id)

	if !c.syncEnabled {
		return nil
	}
	if err := c.db.PurgeQueuedFor(ctx, model.CollectionNotes, id); err != nil {
		return err
	}
	return c.enqueue(ctx, model.CollectionNotes, model.ActionDelete, id, id)
}

// ---- profile ----

// Profile returns the cached profile, or nil when none is set.
func (c *Controller) Profile() *model.UserProfile {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.profile == nil {
		return nil
	}
	cp := *c.profile
	return &cp
}

// SetProfile replaces the singleton profile and queues the update.
func (c *Controller) SetProfile(ctx context.Context, p model.UserProfile) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if p.VerificationType == "" {
		p.VerificationType = model.VerificationNone
	}
	if err := c.db.PutProfile(ctx, &p); err != nil {
		return err
	}
	c.profile = &p
	if err := c.enqueue(ctx, model.CollectionProfile, model.ActionUpdate, model.ProfileKey, &p); err != nil {
		return err
	}
	c.evaluateAchievements(ctx)
	return nil
}

// ---- achievements ----

// Unlocked returns every unlocked achievement, oldest first.
func (c *Controller) Unlocked() []model.UnlockedAchievement {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.UnlockedAchievement, 0, len(c.unlocked))
	for _, u := range c.unlocked {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UnlockedAt.Equal(out[j].UnlockedAt) {
			return out[i].UnlockedAt.Before(out[j].UnlockedAt)
		}
		return out[i].AchievementID < out[j].AchievementID
	})
	return out
}

// stats computes the aggregate snapshot predicates run against.
// Caller holds c.mu.
func (c *Controller) stats() achievements.Stats {
	s := achievements.Stats{
		TotalTasks: len(c.tasks),
		TotalNotes: len(c.notes),
		HasProfile: c.profile != nil,
	}
	tags := map[string]bool{}
	for _, t := range c.tasks {
		if t.Completed {
			s.CompletedTasks++
			if t.Priority == model.PriorityHigh {
				s.HighPriorityCompleted++
			}
		}
		for _, tag := range t.Tags {
			tags[tag] = true
		}
	}
	s.DistinctTags = len(tags)
	for _, n := range c.notes {
		if n.IsPinned {
			s.PinnedNotes++
		}
	}
	return s
}

// evaluateAchievements unlocks any newly satisfied achievements. Unlock
// failures are logged, never surfaced: achievements must not break a
// mutation that already committed. Caller holds c.mu.
func (c *Controller) evaluateAchievements(ctx context.Context) {
	already := make(map[string]bool, len(c.unlocked))
	for id := range c.unlocked {
		already[id] = true
	}
	for _, id := range achievements.Evaluate(c.stats(), already) {
		u := model.UnlockedAchievement{AchievementID: id, UnlockedAt: c.now().UTC()}
		if err := c.db.AddUnlocked(ctx, u); err != nil {
			c.logger.Printf("failed to record achievement %s: %v", id, err)
			continue
		}
		c.unlocked[id] = u
		if err := c.enqueue(ctx, model.CollectionAchievements, model.ActionInsert, id, u); err != nil {
			c.logger.Printf("failed to queue achievement %s: %v", id, err)
		}
	}
}
