// Package cue implements the lifecycle shared by every kind of cue, the
// kind-specific execution and the action dispatch between cues.
package cue

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robmorgan/showctl/engine"
	"github.com/robmorgan/showctl/logger"
	"github.com/robmorgan/showctl/midi"
	"github.com/robmorgan/showctl/playback"
	"github.com/robmorgan/showctl/process"
	"github.com/sirupsen/logrus"
)

// Scheduler is the part of engine.Scheduler cues use.
type Scheduler interface {
	Schedule(t engine.Task)
	Cancel(t engine.Task) bool
	Now() time.Time
}

// Registry gives cues access to the list they belong to.
type Registry interface {
	Len() int
	At(i int) (*Cue, error)
	ByID(id string) (*Cue, bool)
	All() []*Cue
}

// Env holds the collaborators a cue needs to execute. It is shared by every
// cue of a list.
type Env struct {
	Scheduler Scheduler
	Registry  Registry
	Playback  playback.Service
	MIDI      midi.Sender
	Processes process.Service
	// Current returns the index relative index actions are resolved against.
	Current func() (int, bool)
	// FadeOutDuration is how long StopAll in FadeOut mode takes to silence media.
	FadeOutDuration time.Duration
}

// Cue is a single triggerable unit of the show.
type Cue struct {
	id string

	mu          sync.Mutex
	name        string
	description string
	cfg         Config
	state       State
	run         uint64
	job         job
	proc        *process.Runner
	lastErr     error
	exitCode    int
	warnings    []error
	env         *Env
}

// New creates an idle cue. The kind of the cue is the kind of cfg.
func New(name string, cfg Config) (*Cue, error) {
	if cfg == nil {
		return nil, errors.New("cue config is required")
	}
	return &Cue{
		id:   uuid.NewString(),
		name: name,
		cfg:  normalize(cfg),
	}, nil
}

// MustNew is like New but panics on error.
func MustNew(name string, cfg Config) *Cue {
	c, err := New(name, cfg)
	if err != nil {
		panic(err)
	}
	return c
}

func normalize(cfg Config) Config {
	if cc, ok := cfg.(CollectionConfig); ok {
		return cc.clone()
	}
	return cfg
}

// ID returns the stable identity of the cue.
func (c *Cue) ID() string {
	return c.id
}

func (c *Cue) Name() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.name
}

func (c *Cue) Description() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.description
}

func (c *Cue) SetDescription(description string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.description = description
}

func (c *Cue) Kind() Kind {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg.Kind()
}

func (c *Cue) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Config returns a copy of the cue configuration.
func (c *Cue) Config() Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return normalize(c.cfg)
}

// Configure replaces the cue configuration. It is refused while the cue is
// running or paused, and the kind of a cue can not change.
func (c *Cue) Configure(cfg Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: config is required", ErrWrongKind)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if cfg.Kind() != c.cfg.Kind() {
		return fmt.Errorf("%w: cannot change %s into %s", ErrWrongKind, c.cfg.Kind(), cfg.Kind())
	}
	if c.state.IsActive() {
		return ErrCueRunning
	}
	c.cfg = normalize(cfg)
	return nil
}

// AddEntry appends an entry to a collection cue.
func (c *Cue) AddEntry(target string, action Action) (CollectionEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cc, ok := c.cfg.(CollectionConfig)
	if !ok {
		return CollectionEntry{}, fmt.Errorf("%w: %s has no entries", ErrWrongKind, c.cfg.Kind())
	}
	if c.state.IsActive() {
		return CollectionEntry{}, ErrCueRunning
	}

	entry := NewCollectionEntry(target, action)
	cc.Entries = append(cc.Entries, entry)
	c.cfg = cc
	return entry, nil
}

// RemoveEntry deletes the collection entry with the given id.
func (c *Cue) RemoveEntry(entryID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	cc, ok := c.cfg.(CollectionConfig)
	if !ok {
		return fmt.Errorf("%w: %s has no entries", ErrWrongKind, c.cfg.Kind())
	}
	if c.state.IsActive() {
		return ErrCueRunning
	}

	for i, e := range cc.Entries {
		if e.ID == entryID {
			cc.Entries = append(cc.Entries[:i], cc.Entries[i+1:]...)
			c.cfg = cc
			return nil
		}
	}
	return fmt.Errorf("collection entry %s not found", entryID)
}

// Entries returns the entries of a collection cue, or nil for other kinds.
func (c *Cue) Entries() []CollectionEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cc, ok := c.cfg.(CollectionConfig); ok {
		return cc.clone().Entries
	}
	return nil
}

// LastError returns the error that put the cue into the Error state.
func (c *Cue) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Warnings returns the non-fatal problems recorded during the last run.
func (c *Cue) Warnings() []error {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]error, len(c.warnings))
	copy(out, c.warnings)
	return out
}

// ExitCode returns the exit code of the last command run by a command cue.
func (c *Cue) ExitCode() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exitCode
}

// Output returns the captured output of the last command run by a command cue.
func (c *Cue) Output() string {
	c.mu.Lock()
	proc := c.proc
	c.mu.Unlock()

	if proc == nil {
		return ""
	}
	return proc.Output()
}

// Bind attaches the cue to the environment of a cue list. Binding nil detaches it.
func (c *Cue) Bind(env *Env) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.env = env
}

func (c *Cue) fieldsLocked() logrus.Fields {
	return logrus.Fields{"cue_id": c.id, "cue_name": c.name, "cue_kind": c.cfg.Kind()}
}

func (c *Cue) setStateLocked(to State) {
	log := logger.GetProjectLogger().WithFields(c.fieldsLocked())
	if !CanTransition(c.state, to) {
		log.Errorf("Refusing transition %s -> %s", c.state, to)
		return
	}
	log.Debugf("%s -> %s", c.state, to)
	c.state = to
}

func (c *Cue) warnLocked(err error) {
	logger.GetProjectLogger().WithFields(c.fieldsLocked()).Warn(err)
	c.warnings = append(c.warnings, err)
}

func (c *Cue) failLocked(err error) {
	logger.GetProjectLogger().WithFields(c.fieldsLocked()).WithError(err).Error("Cue failed")
	c.lastErr = err
	var perr *ProcessError
	if errors.As(err, &perr) {
		c.exitCode = perr.ExitCode
	}
	c.job = nil
	c.setStateLocked(Error)
}

// Start runs the cue. It is valid from Idle and from every terminal state.
// Work that takes time is handed to the scheduler; the cue completes later.
// Errors found while starting put the cue into Error and are also returned.
func (c *Cue) Start() error {
	c.mu.Lock()
	if c.env == nil {
		c.mu.Unlock()
		return ErrUnbound
	}
	if c.state.IsActive() {
		err := &TransitionError{Op: "start", From: c.state}
		c.mu.Unlock()
		return err
	}
	if c.state.IsTerminal() {
		c.setStateLocked(Idle)
	}

	c.run++
	run := c.run
	c.lastErr = nil
	c.exitCode = 0
	c.warnings = nil
	c.job = nil
	c.proc = nil
	c.setStateLocked(Running)
	cfg, env := c.cfg, c.env
	logger.GetProjectLogger().WithFields(c.fieldsLocked()).Info("Cue started")
	c.mu.Unlock()

	// executing may dispatch to other cues, including this one
	out := c.execute(env, cfg, run)

	c.mu.Lock()
	defer c.mu.Unlock()

	if run != c.run {
		c.discard(env, out)
		return nil
	}
	for _, w := range out.warnings {
		c.warnLocked(w)
	}
	if c.state != Running {
		c.discard(env, out)
		return nil
	}

	c.proc = out.proc
	if out.err != nil {
		c.failLocked(out.err)
		return out.err
	}
	if out.job == nil {
		c.setStateLocked(Finished)
		return nil
	}
	c.job = out.job
	env.Scheduler.Schedule(out.job)
	return nil
}

// discard cancels work started by a run that was stopped while executing.
func (c *Cue) discard(env *Env, out outcome) {
	if out.job == nil {
		return
	}
	keep, err := out.job.cancel()
	if keep {
		env.Scheduler.Schedule(out.job)
	}
	if err != nil {
		logger.GetProjectLogger().WithFields(c.fieldsLocked()).WithError(err).Warn("Cancelling work")
	}
}

// Pause freezes a running cue. Only fades can be paused.
func (c *Cue) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Running {
		return &TransitionError{Op: "pause", From: c.state}
	}
	if c.job == nil {
		return &TransitionError{Op: "pause", From: c.state, Reason: "nothing to pause"}
	}
	if err := c.job.suspend(); err != nil {
		return &TransitionError{Op: "pause", From: c.state, Reason: err.Error()}
	}
	c.env.Scheduler.Cancel(c.job)
	c.setStateLocked(Paused)
	return nil
}

// Resume continues a paused cue from where it was paused.
func (c *Cue) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Paused {
		return &TransitionError{Op: "resume", From: c.state}
	}
	c.job.resume(c.env.Scheduler.Now())
	c.env.Scheduler.Schedule(c.job)
	c.setStateLocked(Running)
	return nil
}

// Stop cancels the outstanding work of a running or paused cue. Stopping a
// stopped cue does nothing. The state is Stopped when Stop returns, even if
// a process is still shutting down.
func (c *Cue) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case Stopped:
		return nil
	case Running, Paused:
	default:
		return &TransitionError{Op: "stop", From: c.state}
	}

	if c.job != nil {
		keep, err := c.job.cancel()
		if !keep {
			c.env.Scheduler.Cancel(c.job)
		}
		if err != nil {
			c.warnLocked(fmt.Errorf("stop: %w", err))
		}
		c.job = nil
	}
	c.setStateLocked(Stopped)
	logger.GetProjectLogger().WithFields(c.fieldsLocked()).Info("Cue stopped")
	return nil
}

// Reset returns a finished, stopped or failed cue to Idle.
func (c *Cue) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.state == Idle:
		return nil
	case c.state.IsTerminal():
		c.setStateLocked(Idle)
		return nil
	default:
		return &TransitionError{Op: "reset", From: c.state}
	}
}

// complete is called from scheduled work once it finished. Completions of an
// earlier run, or of a run that was stopped meanwhile, are ignored.
func (c *Cue) complete(run uint64, out outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if run != c.run || c.state != Running {
		return
	}
	c.job = nil
	c.exitCode = out.exitCode
	for _, w := range out.warnings {
		c.warnLocked(w)
	}
	if out.err != nil {
		c.failLocked(out.err)
		return
	}
	c.setStateLocked(Finished)
	logger.GetProjectLogger().WithFields(c.fieldsLocked()).Info("Cue finished")
}
