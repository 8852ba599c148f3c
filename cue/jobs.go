package cue

import (
	"errors"
	"time"

	"github.com/robmorgan/showctl/engine"
	"github.com/robmorgan/showctl/fade"
	"github.com/robmorgan/showctl/process"
)

var errProcessPause = errors.New("process cannot be paused")

// job is scheduled work owned by a running cue.
type job interface {
	engine.Task
	suspend() error
	resume(now time.Time)
	// cancel abandons the work. It reports whether the job must stay
	// scheduled to observe its own teardown.
	cancel() (keepScheduled bool, err error)
}

// processJob polls a spawned command until it exits.
type processJob struct {
	runner *process.Runner
}

func (j *processJob) Step(now time.Time) bool {
	return j.runner.Step(now)
}

func (j *processJob) suspend() error {
	return errProcessPause
}

func (j *processJob) resume(time.Time) {}

func (j *processJob) cancel() (bool, error) {
	return true, j.runner.Stop()
}

// fadeJob drives a volume or position fade.
type fadeJob struct {
	task  *fade.Task
	mode  fade.StopMode
	apply fade.ApplyFunc
}

func (j *fadeJob) Step(now time.Time) bool {
	return j.task.Step(now)
}

func (j *fadeJob) suspend() error {
	j.task.Suspend()
	return nil
}

func (j *fadeJob) resume(now time.Time) {
	j.task.Begin(now)
}

func (j *fadeJob) cancel() (bool, error) {
	j.task.Suspend()
	if v, ok := j.mode.StopValue(j.task.Spec(), j.task.Value()); ok {
		return false, j.apply(v)
	}
	return false, nil
}
