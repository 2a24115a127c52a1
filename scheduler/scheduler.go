// Package scheduler runs the periodic housekeeping of the service: reaping
// idle workspaces and reporting how many are alive.
package scheduler

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/giygas/prescription-dictation/interfaces"
	"github.com/giygas/prescription-dictation/logging"
	"github.com/go-co-op/gocron"
)

// Compile-time check to ensure Scheduler implements Scheduler interface
var _ interfaces.Scheduler = (*Scheduler)(nil)

// Scheduler reaps idle workspaces on a fixed interval
type Scheduler struct {
	store     interfaces.Reaper
	ttl       time.Duration
	interval  time.Duration
	scheduler *gocron.Scheduler
	lastSweep atomic.Int64
}

// NewScheduler creates a scheduler reaping workspaces idle for longer than
// ttl every interval
func NewScheduler(store interfaces.Reaper, ttl, interval time.Duration) *Scheduler {
	return &Scheduler{
		store:     store,
		ttl:       ttl,
		interval:  interval,
		scheduler: gocron.NewScheduler(time.Local),
	}
}

// Start runs a first sweep and schedules the next ones
func (s *Scheduler) Start() error {
	if s.ttl <= 0 || s.interval <= 0 {
		return fmt.Errorf("invalid reaper settings: ttl=%s interval=%s", s.ttl, s.interval)
	}

	s.reap()

	_, err := s.scheduler.Every(s.interval).SingletonMode().WaitForSchedule().Do(s.reap)
	if err != nil {
		logging.Error("Failed to schedule workspace reaping", "error", err)
		return fmt.Errorf("failed to schedule workspace reaping: %w", err)
	}

	_, err = s.scheduler.Every(1).Hour().WaitForSchedule().Do(s.report)
	if err != nil {
		logging.Error("Failed to schedule workspace report", "error", err)
		return fmt.Errorf("failed to schedule workspace report: %w", err)
	}

	s.scheduler.StartAsync()
	logging.Info("Workspace reaper started", "ttl", s.ttl.String(), "interval", s.interval.String())
	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// LastSweep returns when the last sweep finished, zero before the first one
func (s *Scheduler) LastSweep() time.Time {
	if ns := s.lastSweep.Load(); ns != 0 {
		return time.Unix(0, ns)
	}
	return time.Time{}
}

// Interval returns the time between two sweeps
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

func (s *Scheduler) reap() {
	start := time.Now()
	reaped := s.store.ReapIdle(s.ttl)
	s.lastSweep.Store(time.Now().UnixNano())
	if reaped > 0 {
		logging.Info("Idle workspaces reaped",
			"reaped", reaped,
			"remaining", s.store.Count(),
			"duration", time.Since(start).String(),
		)
	}
}

func (s *Scheduler) report() {
	logging.Info("Workspace report", "active", s.store.Count())
}
