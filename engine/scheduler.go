// Package engine drives time based work (fades, process polling) from a single
// clock driven loop.
package engine

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"github.com/robmorgan/showctl/logger"
	"github.com/sirupsen/logrus"
	"k8s.io/utils/clock"
)

// Task is a unit of work advanced by the Scheduler on every tick.
type Task interface {
	// Step advances the task to now. It returns true once the task is complete
	// and should no longer be scheduled.
	Step(now time.Time) bool
}

type entry struct {
	task Task
	seq  uint64
}

// Scheduler owns the set of active tasks and steps them at a fixed tick rate.
// Tasks are stepped without the scheduler lock held, so a task may schedule or
// cancel other tasks from inside Step.
type Scheduler struct {
	clock    clock.Clock
	interval time.Duration

	mu      sync.Mutex
	entries []entry
	nextSeq uint64
}

// Interval returns the tick interval for a number of ticks per second.
func Interval(tickRate int) time.Duration {
	if tickRate <= 0 {
		tickRate = 1
	}
	return time.Second / time.Duration(tickRate)
}

// NewScheduler creates a Scheduler ticking tickRate times per second on clk.
func NewScheduler(clk clock.Clock, tickRate int) *Scheduler {
	return &Scheduler{
		clock:    clk,
		interval: Interval(tickRate),
	}
}

// Now returns the scheduler's notion of the current time.
func (s *Scheduler) Now() time.Time {
	return s.clock.Now()
}

// TickInterval returns the time between two ticks.
func (s *Scheduler) TickInterval() time.Duration {
	return s.interval
}

// Schedule adds t to the active set. Scheduling a task twice is a no-op.
func (s *Scheduler) Schedule(t Task) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.entries {
		if e.task == t {
			return
		}
	}
	s.nextSeq++
	s.entries = append(s.entries, entry{task: t, seq: s.nextSeq})
}

// Cancel removes t from the active set and reports whether it was scheduled.
// A tick already in flight may still step t once.
func (s *Scheduler) Cancel(t Task) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, e := range s.entries {
		if e.task == t {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Pending returns the number of scheduled tasks.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Tick steps every scheduled task once and drops the ones that completed. It
// returns the number of completed tasks.
func (s *Scheduler) Tick() int {
	now := s.clock.Now()

	s.mu.Lock()
	snapshot := make([]entry, len(s.entries))
	copy(snapshot, s.entries)
	s.mu.Unlock()

	completed := make(map[uint64]bool)
	for _, e := range snapshot {
		if s.step(e.task, now) {
			completed[e.seq] = true
		}
	}
	if len(completed) == 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.entries[:0]
	for _, e := range s.entries {
		if !completed[e.seq] {
			kept = append(kept, e)
		}
	}
	s.entries = kept
	return len(completed)
}

// step runs a single task, dropping it if it panics so one misbehaving task
// cannot stall the show.
func (s *Scheduler) step(t Task, now time.Time) (done bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.GetProjectLogger().WithFields(logrus.Fields{"task": t}).
				Errorf("task panicked: %v\n%s", r, debug.Stack())
			done = true
		}
	}()
	return t.Step(now)
}

// Run ticks the scheduler until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	log := logger.GetProjectLogger()
	log.WithField("interval", s.interval).Info("Scheduler started")

	t := s.clock.NewTimer(s.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("Scheduler shutdown")
			return
		case <-t.C():
			s.Tick()
			t.Reset(s.interval)
		}
	}
}
