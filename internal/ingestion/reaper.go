package ingestion

import (
	"context"
	"log"
	"time"

	"github.com/bacmr/maktaba/internal/core"
)

// StallReaper periodically demotes RUNNING jobs whose heartbeat went stale to
// PAUSED. It observes only persisted timestamps and shares no state with any
// runner, so it may live in a different process than the workers it polices.
type StallReaper struct {
	store    core.Store
	runner   *Runner
	interval time.Duration
	timeout  time.Duration
}

func NewStallReaper(store core.Store, runner *Runner, interval, timeout time.Duration) *StallReaper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &StallReaper{store: store, runner: runner, interval: interval, timeout: timeout}
}

// Run blocks until the context is cancelled. Each tick marks stalled jobs and
// then nudges the dispatcher, so a queue left idle by a crashed worker starts
// draining again without manual action.
func (s *StallReaper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("StallReaper: shutting down")
			return
		case <-ticker.C:
			n, err := s.store.MarkStalledJobs(ctx, s.timeout)
			if err != nil {
				log.Printf("StallReaper: marking stalled jobs failed: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("StallReaper: paused %d stalled job(s)", n)
			}
			if s.runner != nil {
				if _, err := s.runner.DispatchNext(ctx); err != nil {
					log.Printf("StallReaper: dispatch failed: %v", err)
				}
			}
		}
	}
}
