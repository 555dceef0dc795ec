package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestSchedulerEveryRunsAndStops(t *testing.T) {
	s := NewScheduler()
	var runs int32
	s.Every(10*time.Millisecond, "tick", func(ctx context.Context) error {
		atomic.AddInt32(&runs, 1)
		return nil
	})

	time.Sleep(60 * time.Millisecond)
	s.Stop()
	after := atomic.LoadInt32(&runs)
	if after == 0 {
		t.Fatal("expected at least one run")
	}

	time.Sleep(40 * time.Millisecond)
	if atomic.LoadInt32(&runs) > after+1 {
		t.Fatal("job kept running after stop")
	}
}

func TestSchedulerSurvivesFailuresAndPanics(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	var runs int32
	s.Every(10*time.Millisecond, "flaky", func(ctx context.Context) error {
		n := atomic.AddInt32(&runs, 1)
		if n == 1 {
			panic("boom")
		}
		if n == 2 {
			return errors.New("transient")
		}
		return nil
	})

	deadline := time.After(time.Second)
	for atomic.LoadInt32(&runs) < 3 {
		select {
		case <-deadline:
			t.Fatalf("job stopped after a failure, runs=%d", atomic.LoadInt32(&runs))
		case <-time.After(5 * time.Millisecond):
		}
	}
}
