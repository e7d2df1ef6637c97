package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	stdsync "sync"
	"time"

	"github.com/daybook-app/daybook/internal/cloud"
	"github.com/daybook-app/daybook/internal/model"
	"github.com/daybook-app/daybook/internal/store"
)

// Status is the orchestrator's externally visible phase.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusPushing Status = "pushing"
	StatusPulling Status = "pulling"
)

// DefaultMaxAttempts is how many rejected pushes a queue item survives
// before it is parked as a dead letter.
const DefaultMaxAttempts = 5

// Strategy names the conflict policy applied on pull. Only remote-wins
// is implemented: the remote copy of a row overwrites the local copy,
// a deliberate simplification over per-field merging.
type Strategy string

const StrategyRemoteWins Strategy = "remote-wins"

// Result summarizes one sync cycle.
type Result struct {
	StartedAt  time.Time
	FinishedAt time.Time

	// Skipped is non-empty when the cycle did not run at all
	// (offline, signed out, or a cycle already in flight).
	Skipped string

	Pushed       int
	DeadLettered int
	PulledTasks  int
	PulledNotes  int

	Err error
}

// Event is emitted to subscribers on every status change and at the end
// of each cycle.
type Event struct {
	Status Status    `json:"status"`
	At     time.Time `json:"at"`

	// Result is set only on the event that closes a cycle.
	Result *Result `json:"result,omitempty"`
}

// Options configures an Orchestrator. Store and Remote are required.
type Options struct {
	Store  *store.Store
	Remote Remote

	// OwnerID scopes every remote call. Empty means signed out; every
	// cycle is skipped until it is set.
	OwnerID string

	Logger *log.Logger

	// MaxAttempts overrides DefaultMaxAttempts when positive.
	MaxAttempts int

	// Online reports current connectivity. Nil means always online.
	Online func() bool

	// Now overrides the clock. Nil means time.Now.
	Now func() time.Time

	// Strategy is the pull conflict policy. Only StrategyRemoteWins
	// is supported; it is also the default.
	Strategy Strategy
}

// Orchestrator runs push/pull cycles. Safe for concurrent use; at most
// one cycle runs at a time and extra triggers are dropped.
type Orchestrator struct {
	db          *store.Store
	remote      Remote
	logger      *log.Logger
	maxAttempts int
	online      func() bool
	now         func() time.Time
	strategy    Strategy

	mu        stdsync.Mutex
	ownerID   string
	running   bool
	status    Status
	last      *Result
	listeners []func(Event)
}

// New builds an Orchestrator from opts.
func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		db:          opts.Store,
		remote:      opts.Remote,
		ownerID:     opts.OwnerID,
		logger:      opts.Logger,
		maxAttempts: opts.MaxAttempts,
		online:      opts.Online,
		now:         opts.Now,
		strategy:    opts.Strategy,
		status:      StatusIdle,
	}
	if o.strategy == "" {
		o.strategy = StrategyRemoteWins
	}
	if o.logger == nil {
		o.logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}
	if o.maxAttempts <= 0 {
		o.maxAttempts = DefaultMaxAttempts
	}
	if o.online == nil {
		o.online = func() bool { return true }
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o
}

// SetOwner changes the owner scope for subsequent cycles. An empty id
// signs out and makes cycles skip.
func (o *Orchestrator) SetOwner(id string) {
	o.mu.Lock()
	o.ownerID = id
	o.mu.Unlock()
}

// Status returns the current phase.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

// LastResult returns the most recent cycle result, or nil before the
// first cycle.
func (o *Orchestrator) LastResult() *Result {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.last
}

// Subscribe registers fn for status and cycle events. Callbacks run on
// the syncing goroutine and must return quickly.
func (o *Orchestrator) Subscribe(fn func(Event)) {
	o.mu.Lock()
	o.listeners = append(o.listeners, fn)
	o.mu.Unlock()
}

func (o *Orchestrator) emit(ev Event) {
	o.mu.Lock()
	listeners := make([]func(Event), len(o.listeners))
	copy(listeners, o.listeners)
	o.mu.Unlock()
	for _, fn := range listeners {
		fn(ev)
	}
}

func (o *Orchestrator) setStatus(s Status) {
	o.mu.Lock()
	o.status = s
	o.mu.Unlock()
	o.emit(Event{Status: s, At: o.now()})
}

// SyncNow runs one full cycle: push the queue, then pull remote state.
// A cycle already in flight, a missing owner, a disabled remote, or
// being offline all produce a skipped Result and no error.
//
// The returned error is the push or pull failure; the queue is left in
// a state where the next cycle resumes exactly where this one stopped.
func (o *Orchestrator) SyncNow(ctx context.Context) (*Result, error) {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return &Result{StartedAt: o.now(), Skipped: "sync already in progress"}, nil
	}
	o.running = true
	owner := o.ownerID
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.running = false
		o.mu.Unlock()
	}()

	res := &Result{StartedAt: o.now()}
	switch {
	case o.remote == nil || !o.remote.Configured():
		res.Skipped = "cloud sync not configured"
	case owner == "":
		res.Skipped = "not signed in"
	case !o.online():
		res.Skipped = "offline"
	}
	if res.Skipped != "" {
		res.FinishedAt = o.now()
		o.finish(res)
		return res, nil
	}

	o.setStatus(StatusPushing)
	err := o.push(ctx, owner, res)
	if err == nil {
		o.setStatus(StatusPulling)
		err = o.pull(ctx, owner, res)
	}
	res.Err = err
	res.FinishedAt = o.now()
	o.setStatus(StatusIdle)
	o.finish(res)

	if err != nil {
		o.logger.Printf("sync cycle failed: %v", err)
		return res, err
	}
	o.logger.Printf("sync cycle complete: pushed=%d pulled_tasks=%d pulled_notes=%d dead_lettered=%d",
		res.Pushed, res.PulledTasks, res.PulledNotes, res.DeadLettered)
	return res, nil
}

func (o *Orchestrator) finish(res *Result) {
	o.mu.Lock()
	o.last = res
	o.mu.Unlock()
	o.emit(Event{Status: StatusIdle, At: o.now(), Result: res})
}

// push replays the pending queue in enqueue order. Remote-unavailable
// aborts and leaves the current item and everything after it queued.
// A rejected item is counted against its attempt limit and the push
// moves on, so one poisoned payload cannot wedge the queue.
func (o *Orchestrator) push(ctx context.Context, owner string, res *Result) error {
	items, err := o.db.Drain(ctx)
	if err != nil {
		return err
	}
	for i := range items {
		item := &items[i]
		replayErr := o.replay(ctx, owner, item)
		if replayErr == nil {
			if err := o.db.RemoveQueued(ctx, item.ID); err != nil {
				return err
			}
			res.Pushed++
			continue
		}
		if errors.Is(replayErr, cloud.ErrRemoteUnavailable) {
			return replayErr
		}
		// Rejected or unreadable: retrying the same payload cannot help
		// forever, so count the attempt and keep going.
		dead, markErr := o.db.MarkAttempt(ctx, item.ID, o.maxAttempts)
		if markErr != nil {
			return markErr
		}
		if dead {
			res.DeadLettered++
			o.logger.Printf("queue item %d (%s %s %s) dead-lettered after %d attempts: %v",
				item.ID, item.Action, item.Table, item.EntityID, item.Attempts+1, replayErr)
		} else {
			o.logger.Printf("queue item %d (%s %s %s) rejected, will retry: %v",
				item.ID, item.Action, item.Table, item.EntityID, replayErr)
		}
	}
	return nil
}

// replay applies a single queued mutation to the remote.
func (o *Orchestrator) replay(ctx context.Context, owner string, item *model.SyncQueueItem) error {
	if item.Action == model.ActionDelete {
		switch item.Table {
		case model.CollectionTasks:
			return o.remote.DeleteTask(ctx, owner, item.EntityID)
		case model.CollectionNotes:
			return o.remote.DeleteNote(ctx, owner, item.EntityID)
		default:
			return fmt.Errorf("collection %s does not support remote delete", item.Table)
		}
	}

	switch item.Table {
	case model.CollectionTasks:
		var t model.Task
		if err := json.Unmarshal(item.Payload, &t); err != nil {
			return fmt.Errorf("undecodable task payload: %w", err)
		}
		return o.remote.UpsertTasks(ctx, owner, []*model.Task{&t})
	case model.CollectionNotes:
		var n model.Note
		if err := json.Unmarshal(item.Payload, &n); err != nil {
			return fmt.Errorf("undecodable note payload: %w", err)
		}
		return o.remote.UpsertNotes(ctx, owner, []*model.Note{&n})
	case model.CollectionProfile:
		var p model.UserProfile
		if err := json.Unmarshal(item.Payload, &p); err != nil {
			return fmt.Errorf("undecodable profile payload: %w", err)
		}
		return o.remote.UpsertProfile(ctx, owner, &p)
	case model.CollectionAchievements:
		var u model.UnlockedAchievement
		if err := json.Unmarshal(item.Payload, &u); err != nil {
			return fmt.Errorf("undecodable achievement payload: %w", err)
		}
		return o.remote.UpsertUnlocked(ctx, owner, []model.UnlockedAchievement{u})
	default:
		return fmt.Errorf("unknown queue table %q", item.Table)
	}
}

// pull applies remote state over local state, one collection at a time
// under the remote-wins strategy: every remote row is put over the local
// copy with the same id, and rows that exist only locally are left
// alone. A failing collection aborts only itself; the others still
// pull.
func (o *Orchestrator) pull(ctx context.Context, owner string, res *Result) error {
	if o.strategy != StrategyRemoteWins {
		return fmt.Errorf("unsupported sync strategy %q", o.strategy)
	}
	var errs []error
	if err := o.pullTasks(ctx, owner, res); err != nil {
		errs = append(errs, fmt.Errorf("pull tasks: %w", err))
	}
	if err := o.pullNotes(ctx, owner, res); err != nil {
		errs = append(errs, fmt.Errorf("pull notes: %w", err))
	}
	if err := o.pullProfile(ctx, owner); err != nil {
		errs = append(errs, fmt.Errorf("pull profile: %w", err))
	}
	if err := o.pullUnlocked(ctx, owner); err != nil {
		errs = append(errs, fmt.Errorf("pull achievements: %w", err))
	}
	return errors.Join(errs...)
}

func (o *Orchestrator) pullTasks(ctx context.Context, owner string, res *Result) error {
	remote, err := o.remote.FetchTasks(ctx, owner)
	if err != nil {
		return err
	}
	for _, t := range remote {
		if err := o.db.PutTask(ctx, t); err != nil {
			return err
		}
	}
	res.PulledTasks = len(remote)
	return nil
}

func (o *Orchestrator) pullNotes(ctx context.Context, owner string, res *Result) error {
	remote, err := o.remote.FetchNotes(ctx, owner)
	if err != nil {
		return err
	}
	for _, n := range remote {
		if err := o.db.PutNote(ctx, n); err != nil {
			return err
		}
	}
	res.PulledNotes = len(remote)
	return nil
}

func (o *Orchestrator) pullProfile(ctx context.Context, owner string) error {
	remote, err := o.remote.FetchProfile(ctx, owner)
	if err != nil {
		return err
	}
	if remote == nil {
		// Fresh remote account: the local profile was already pushed
		// this cycle (or there is none). Nothing to overwrite.
		return nil
	}
	return o.db.PutProfile(ctx, remote)
}

func (o *Orchestrator) pullUnlocked(ctx context.Context, owner string) error {
	remote, err := o.remote.FetchUnlocked(ctx, owner)
	if err != nil {
		return err
	}
	// Unlocks are monotonic; merging is a union.
	for _, u := range remote {
		if err := o.db.AddUnlocked(ctx, u); err != nil {
			return err
		}
	}
	return nil
}
