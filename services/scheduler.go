package services

import (
	"context"
	"time"

	"github.com/Hopium-Future/hackathon-be/utils"
)

// Scheduler runs the engine's background jobs on simple wall-clock
// triggers. Jobs are best-effort: a failing or panicking run is logged and
// the loop keeps going.
type Scheduler struct {
	stop chan struct{}
}

func NewScheduler() *Scheduler {
	return &Scheduler{stop: make(chan struct{})}
}

// Stop signals every job loop to exit after its current run.
func (s *Scheduler) Stop() {
	close(s.stop)
}

// Every runs fn once per interval. The first run waits a full interval so
// startup is not racing half-initialized state.
func (s *Scheduler) Every(interval time.Duration, name string, fn func(ctx context.Context) error) {
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				s.run(name, fn)
			}
		}
	}()
}

// DailyAt runs fn once per day at the given UTC wall time.
func (s *Scheduler) DailyAt(hour, minute int, name string, fn func(ctx context.Context) error) {
	go func() {
		for {
			now := time.Now().UTC()
			next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, time.UTC)
			if !next.After(now) {
				next = next.AddDate(0, 0, 1)
			}
			timer := time.NewTimer(next.Sub(now))
			select {
			case <-s.stop:
				timer.Stop()
				return
			case <-timer.C:
				s.run(name, fn)
			}
		}
	}()
}

func (s *Scheduler) run(name string, fn func(ctx context.Context) error) {
	defer func() {
		if r := recover(); r != nil {
			utils.Sugar.Errorf("job %s panicked: %v", name, r)
		}
	}()
	start := time.Now()
	if err := fn(context.Background()); err != nil {
		utils.Sugar.Errorf("job %s failed: %v", name, err)
		return
	}
	utils.Sugar.Infof("job %s finished in %s", name, time.Since(start))
}
