// Package scheduler runs the ingestion pipeline on a fixed cadence with
// a small random jitter so restarts across replicas do not line up
// against the upstream API.
package scheduler

import (
	"context"
	"log"
	"math/rand"
	"time"
)

// SyncFunc is the unit of work the scheduler drives. days is the lookback
// window passed to each run.
type SyncFunc func(ctx context.Context, days int) error

type Scheduler struct {
	Interval time.Duration
	Jitter   float64 // fraction of Interval, 0.1 means +-10%
	Days     int
	Run      SyncFunc
}

func New(run SyncFunc) *Scheduler {
	return &Scheduler{
		Interval: 10 * time.Minute,
		Jitter:   0.1,
		Days:     3,
		Run:      run,
	}
}

// Start blocks until ctx is cancelled. The first run fires after one
// jittered interval, not immediately; callers that want an eager first
// sync trigger it themselves before starting the loop.
func (s *Scheduler) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			log.Printf("[Scheduler] Stopping: %v", ctx.Err())
			return
		case <-time.After(s.nextDelay()):
		}

		start := time.Now()
		if err := s.Run(ctx, s.Days); err != nil {
			if ctx.Err() != nil {
				log.Printf("[Scheduler] Stopping: %v", ctx.Err())
				return
			}
			log.Printf("[Scheduler] Sync failed after %s: %v", time.Since(start).Round(time.Second), err)
			continue
		}
		log.Printf("[Scheduler] Sync completed in %s", time.Since(start).Round(time.Second))
	}
}

func (s *Scheduler) nextDelay() time.Duration {
	d := s.Interval
	if d <= 0 {
		d = 10 * time.Minute
	}
	if s.Jitter <= 0 {
		return d
	}
	// spread runs across [d*(1-j), d*(1+j)]
	spread := float64(d) * s.Jitter
	offset := (rand.Float64()*2 - 1) * spread
	return d + time.Duration(offset)
}
