package process

import (
	"sync"
	"time"

	commonerrors "github.com/gruntwork-io/go-commons/errors"
)

// Runner supervises a single spawned process and reports its exit.
// It implements engine.Task so exits are detected on scheduler ticks.
type Runner struct {
	svc    Service
	spec   Spec
	onExit func(code int)

	mu       sync.Mutex
	handle   Handle
	reported bool
}

// NewRunner creates a Runner for spec. onExit is called once, from Step, with
// the process exit code.
func NewRunner(svc Service, spec Spec, onExit func(code int)) *Runner {
	return &Runner{svc: svc, spec: spec, onExit: onExit}
}

// Start spawns the process.
func (r *Runner) Start() error {
	h, err := r.svc.Spawn(r.spec)
	if err != nil {
		return commonerrors.WithStackTrace(err)
	}

	r.mu.Lock()
	r.handle = h
	r.reported = false
	r.mu.Unlock()
	return nil
}

// Step polls the process and returns true once its exit has been reported.
func (r *Runner) Step(time.Time) bool {
	r.mu.Lock()
	if r.handle == nil || r.reported {
		r.mu.Unlock()
		return true
	}
	code, exited := r.svc.PollExit(r.handle)
	if !exited {
		r.mu.Unlock()
		return false
	}
	r.reported = true
	r.mu.Unlock()

	if r.onExit != nil {
		r.onExit(code)
	}
	return true
}

// Stop signals the process without waiting for it to exit.
func (r *Runner) Stop() error {
	r.mu.Lock()
	h := r.handle
	r.mu.Unlock()

	if h == nil {
		return nil
	}
	if r.spec.KillOnStop {
		return r.svc.Kill(h)
	}
	return r.svc.Terminate(h)
}

// Output returns whatever the process has written so far.
func (r *Runner) Output() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.handle == nil {
		return ""
	}
	return r.handle.Output()
}
