package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestSchedulerRunsAndStops(t *testing.T) {
	var runs atomic.Int32
	s := New(func(ctx context.Context, days int) error {
		if days != 3 {
			t.Errorf("days = %d, want default 3", days)
		}
		runs.Add(1)
		return nil
	})
	s.Interval = 10 * time.Millisecond
	s.Jitter = 0

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	time.Sleep(60 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}

	if runs.Load() < 2 {
		t.Errorf("expected at least 2 runs, got %d", runs.Load())
	}
}

func TestSchedulerKeepsGoingAfterFailure(t *testing.T) {
	var runs atomic.Int32
	s := New(func(ctx context.Context, days int) error {
		if runs.Add(1) == 1 {
			return errors.New("upstream down")
		}
		return nil
	})
	s.Interval = 10 * time.Millisecond
	s.Jitter = 0

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	time.Sleep(60 * time.Millisecond)
	cancel()
	<-done

	if runs.Load() < 2 {
		t.Errorf("scheduler stopped after first failure, runs = %d", runs.Load())
	}
}

func TestNextDelayWithinJitterBounds(t *testing.T) {
	s := &Scheduler{Interval: time.Minute, Jitter: 0.1}
	for i := 0; i < 50; i++ {
		d := s.nextDelay()
		if d < 54*time.Second || d > 66*time.Second {
			t.Fatalf("delay %s outside +-10%% of 1m", d)
		}
	}
}
