package cue

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/robmorgan/showctl/fade"
	"github.com/robmorgan/showctl/logger"
	"github.com/robmorgan/showctl/process"
	"github.com/sirupsen/logrus"
)

var errExecution = errors.New("error during cue execution")

// outcome is the result of executing a cue, or of its scheduled work.
type outcome struct {
	job      job
	proc     *process.Runner
	err      error
	warnings []error
	exitCode int
}

func failed(err error) outcome {
	return outcome{err: err}
}

func missingService(name string) outcome {
	return failed(fmt.Errorf("%w: no %s service", errExecution, name))
}

func (c *Cue) execute(env *Env, cfg Config, run uint64) outcome {
	switch cfg := cfg.(type) {
	case CommandConfig:
		return c.executeCommand(env, cfg, run)
	case MIDIConfig:
		return executeMIDI(env, cfg)
	case VolumeConfig:
		return c.executeVolume(env, cfg, run)
	case SeekConfig:
		return c.executeSeek(env, cfg, run)
	case CollectionConfig:
		return executeCollection(env, cfg)
	case IndexActionConfig:
		return executeIndexAction(env, cfg)
	case StopAllConfig:
		return c.executeStopAll(env, cfg)
	default:
		return failed(fmt.Errorf("%w: unsupported config %T", errExecution, cfg))
	}
}

func (c *Cue) executeCommand(env *Env, cfg CommandConfig, run uint64) outcome {
	if err := cfg.Validate(); err != nil {
		return failed(err)
	}
	if env.Processes == nil {
		return missingService("process")
	}

	runner := process.NewRunner(env.Processes, cfg.Spec, func(code int) {
		c.complete(run, commandOutcome(cfg.Spec, code))
	})
	if err := runner.Start(); err != nil {
		return failed(fmt.Errorf("%w: %w", errExecution, err))
	}
	return outcome{job: &processJob{runner: runner}, proc: runner}
}

func commandOutcome(spec process.Spec, code int) outcome {
	if code == 0 {
		return outcome{}
	}
	perr := &ProcessError{Command: spec.Command, ExitCode: code}
	if spec.IgnoreErrors {
		return outcome{exitCode: code, warnings: []error{perr}}
	}
	return outcome{exitCode: code, err: perr}
}

func executeMIDI(env *Env, cfg MIDIConfig) outcome {
	if env.MIDI == nil {
		return missingService("midi")
	}
	if err := env.MIDI.Send(cfg.Message); err != nil {
		return failed(fmt.Errorf("%w: %w", errExecution, err))
	}
	return outcome{}
}

func (c *Cue) executeVolume(env *Env, cfg VolumeConfig, run uint64) outcome {
	if cfg.Target == "" {
		return failed(ErrNoTargetSelected)
	}
	if env.Playback == nil {
		return missingService("playback")
	}

	from, err := env.Playback.Volume(cfg.Target)
	if err != nil {
		return failed(fmt.Errorf("%w: %w", errExecution, err))
	}
	spec := fade.Spec{From: from, To: cfg.Volume, Duration: cfg.Duration, Curve: cfg.Curve}
	return c.startFade(env, run, spec, cfg.StopMode, func(v float64) error {
		return env.Playback.SetVolume(cfg.Target, v)
	})
}

func (c *Cue) executeSeek(env *Env, cfg SeekConfig, run uint64) outcome {
	if cfg.Target == "" {
		return failed(ErrNoTargetSelected)
	}
	if env.Playback == nil {
		return missingService("playback")
	}

	from, err := env.Playback.Position(cfg.Target)
	if err != nil {
		return failed(fmt.Errorf("%w: %w", errExecution, err))
	}
	spec := fade.Spec{From: from.Seconds(), To: cfg.Time.Seconds(), Duration: cfg.Duration, Curve: cfg.Curve}
	return c.startFade(env, run, spec, cfg.StopMode, func(v float64) error {
		return env.Playback.Seek(cfg.Target, seconds(v))
	})
}

func seconds(v float64) time.Duration {
	return time.Duration(math.Round(v * float64(time.Second)))
}

// startFade jumps straight to the target for zero length fades and schedules
// a fade job otherwise.
func (c *Cue) startFade(env *Env, run uint64, spec fade.Spec, mode fade.StopMode, apply fade.ApplyFunc) outcome {
	f, err := fade.New(spec)
	if err != nil {
		return failed(err)
	}
	if spec.Duration == 0 {
		if err := apply(f.Value()); err != nil {
			return failed(fmt.Errorf("%w: %w", errExecution, err))
		}
		return outcome{}
	}

	task := fade.NewTask(f, env.Scheduler.Now(), apply, func(err error) {
		if err != nil {
			err = fmt.Errorf("%w: %w", errExecution, err)
		}
		c.complete(run, outcome{err: err})
	})
	return outcome{job: &fadeJob{task: task, mode: mode, apply: apply}}
}

func executeCollection(env *Env, cfg CollectionConfig) outcome {
	if env.Registry == nil {
		return missingService("registry")
	}

	var out outcome
	for _, e := range cfg.Entries {
		target, ok := env.Registry.ByID(e.Target)
		if !ok {
			out.warnings = append(out.warnings, fmt.Errorf("%w: cue %s is no longer in the list", ErrDanglingReference, e.Target))
			continue
		}
		if err := Invoke(target, actionOrDefault(e.Action)); err != nil {
			out.warnings = append(out.warnings, fmt.Errorf("%s %q: %w", e.Action, target.Name(), err))
		}
	}
	return out
}

func executeIndexAction(env *Env, cfg IndexActionConfig) outcome {
	if env.Registry == nil {
		return missingService("registry")
	}

	current, hasCurrent := 0, false
	if env.Current != nil {
		current, hasCurrent = env.Current()
	}
	ref := IndexRef{Relative: cfg.Relative, Index: cfg.TargetIndex}
	i, err := ref.Resolve(env.Registry.Len(), current, hasCurrent)
	if err != nil {
		return failed(err)
	}
	target, err := env.Registry.At(i)
	if err != nil {
		return failed(err)
	}

	if err := Invoke(target, actionOrDefault(cfg.Action)); err != nil {
		if errors.Is(err, ErrUnsupportedAction) {
			return failed(err)
		}
		return outcome{warnings: []error{err}}
	}
	return outcome{}
}

func (c *Cue) executeStopAll(env *Env, cfg StopAllConfig) outcome {
	if env.Registry == nil {
		return missingService("registry")
	}

	var targets []*Cue
	for _, other := range env.Registry.All() {
		if other != c {
			targets = append(targets, other)
		}
	}

	action := cfg.action()
	var media []string
	if action == Stop && cfg.Mode == FadeOut {
		media = fadeOutTargets(targets)
	}

	out := outcome{warnings: Broadcast(targets, action)}
	for _, target := range media {
		if err := fadeOut(env, target); err != nil {
			out.warnings = append(out.warnings, err)
		}
	}
	return out
}

// fadeOutTargets returns the media controlled by active volume cues.
func fadeOutTargets(cues []*Cue) []string {
	seen := map[string]bool{}
	var media []string
	for _, c := range cues {
		if !c.State().IsActive() {
			continue
		}
		vc, ok := c.Config().(VolumeConfig)
		if !ok || vc.Target == "" || seen[vc.Target] {
			continue
		}
		seen[vc.Target] = true
		media = append(media, vc.Target)
	}
	return media
}

// fadeOut schedules a fade to silence that belongs to no cue.
func fadeOut(env *Env, target string) error {
	if env.Playback == nil {
		return fmt.Errorf("fade out %s: no playback service", target)
	}
	from, err := env.Playback.Volume(target)
	if err != nil {
		return fmt.Errorf("fade out %s: %w", target, err)
	}

	apply := func(v float64) error { return env.Playback.SetVolume(target, v) }
	if env.FadeOutDuration <= 0 {
		return apply(0)
	}

	f, err := fade.New(fade.Spec{From: from, To: 0, Duration: env.FadeOutDuration, Curve: fade.Linear})
	if err != nil {
		return err
	}
	env.Scheduler.Schedule(fade.NewTask(f, env.Scheduler.Now(), apply, func(err error) {
		if err != nil {
			logger.GetProjectLogger().WithFields(logrus.Fields{"media": target}).WithError(err).Warn("Fade out failed")
		}
	}))
	return nil
}

func actionOrDefault(a Action) Action {
	if a == "" {
		return Default
	}
	return a
}
