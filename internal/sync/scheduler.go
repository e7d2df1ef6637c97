package sync

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultInterval is how often the scheduler triggers a cycle.
const DefaultInterval = 5 * time.Minute

// Scheduler fires periodic sync cycles and an extra cycle on demand
// (startup, reconnect). Overlap suppression lives in the Orchestrator,
// so a trigger landing mid-cycle is harmlessly dropped.
type Scheduler struct {
	orc    *Orchestrator
	cron   *cron.Cron
	logger *log.Logger
}

// NewScheduler wires orc to a cron entry running every interval.
// A non-positive interval falls back to DefaultInterval.
func NewScheduler(orc *Orchestrator, interval time.Duration, logger *log.Logger) (*Scheduler, error) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	s := &Scheduler{
		orc:    orc,
		cron:   cron.New(),
		logger: logger,
	}
	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %s", interval), s.Trigger); err != nil {
		return nil, fmt.Errorf("failed to schedule sync: %w", err)
	}
	return s, nil
}

// Start begins periodic syncing and fires an immediate first cycle.
func (s *Scheduler) Start() {
	s.cron.Start()
	go s.Trigger()
}

// Stop halts the schedule and waits for a running cron invocation.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// Trigger runs one cycle now. Used as the cron entry and as the
// connectivity monitor's reconnect callback.
func (s *Scheduler) Trigger() {
	if _, err := s.orc.SyncNow(context.Background()); err != nil && s.logger != nil {
		s.logger.Printf("scheduled sync failed: %v", err)
	}
}
