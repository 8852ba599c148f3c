package fade

import (
	"sync"
	"time"
)

// ApplyFunc pushes a fade value to whatever the fade controls.
type ApplyFunc func(value float64) error

// Task drives a Fader from scheduler ticks. The elapsed time between two Steps
// is added to the fader, so suspending a task and beginning it again later
// continues from where it stopped.
type Task struct {
	mu     sync.Mutex
	fader  *Fader
	apply  ApplyFunc
	done   func(err error)
	last   time.Time
	halted bool
}

// NewTask creates a task that starts counting from now. done is called once,
// outside of the task lock, when the fade reaches its target or apply fails.
func NewTask(f *Fader, now time.Time, apply ApplyFunc, done func(err error)) *Task {
	return &Task{
		fader: f,
		apply: apply,
		done:  done,
		last:  now,
	}
}

// Step advances the fade to now and applies the new value. It returns true when
// the task no longer needs to be scheduled.
func (t *Task) Step(now time.Time) bool {
	t.mu.Lock()
	if t.halted {
		t.mu.Unlock()
		return true
	}

	dt := now.Sub(t.last)
	t.last = now
	value := t.fader.Advance(dt)

	var err error
	if t.apply != nil {
		err = t.apply(value)
	}
	finished := err != nil || t.fader.Done()
	if finished {
		t.halted = true
	}
	t.mu.Unlock()

	if finished && t.done != nil {
		t.done(err)
	}
	return finished
}

// Suspend freezes the task. Steps become no-ops until Begin is called.
func (t *Task) Suspend() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.halted = true
}

// Begin (re)starts counting elapsed time from now.
func (t *Task) Begin(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.halted = false
	t.last = now
}

// Value returns the fader's current value.
func (t *Task) Value() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fader.Value()
}

// Progress returns the fader's normalized progress.
func (t *Task) Progress() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fader.Progress()
}

// Spec returns the spec of the underlying fader.
func (t *Task) Spec() Spec {
	return t.fader.Spec()
}
