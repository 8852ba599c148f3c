package cue

import (
	"fmt"
	"strings"

	"github.com/robmorgan/showctl/logger"
	"github.com/sirupsen/logrus"
)

// Action is an operation that can be invoked on a cue by name.
type Action string

const (
	Default Action = "default"
	Start   Action = "start"
	Stop    Action = "stop"
	Pause   Action = "pause"
	Resume  Action = "resume"
)

var actions = []Action{Default, Start, Stop, Pause, Resume}

// ParseAction parses an action name case-insensitively. An empty name is Default.
func ParseAction(name string) (Action, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Default, nil
	}
	for _, a := range actions {
		if strings.EqualFold(name, string(a)) {
			return a, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedAction, name)
}

// capabilities lists the actions each kind of cue accepts.
var capabilities = map[Kind][]Action{
	KindCommand:       {Default, Start, Stop},
	KindMIDI:          {Default, Start},
	KindVolumeControl: {Default, Start, Stop, Pause, Resume},
	KindSeek:          {Default, Start, Stop, Pause, Resume},
	KindCollection:    {Default, Start},
	KindIndexAction:   {Default, Start},
	KindStopAll:       {Default, Start},
}

// Supports reports whether cues of kind k accept a.
func Supports(k Kind, a Action) bool {
	for _, supported := range capabilities[k] {
		if supported == a {
			return true
		}
	}
	return false
}

// DefaultAction returns the action Default stands for on cues of kind k.
func DefaultAction(Kind) Action {
	return Start
}

// Invoke checks that c supports a and forwards it to the matching lifecycle
// operation. It returns once the operation has been issued, not once the cue
// completes. Unsupported actions fail without touching c.
func Invoke(c *Cue, a Action) error {
	kind := c.Kind()
	if !Supports(kind, a) {
		return fmt.Errorf("%w: %s does not support %q", ErrUnsupportedAction, kind, a)
	}
	if a == Default {
		a = DefaultAction(kind)
	}

	logger.GetProjectLogger().WithFields(logrus.Fields{"cue_id": c.ID(), "cue_name": c.Name(), "action": a}).Debug("Invoke")

	switch a {
	case Start:
		return c.Start()
	case Stop:
		return c.Stop()
	case Pause:
		return c.Pause()
	case Resume:
		return c.Resume()
	default:
		return fmt.Errorf("%w: %s does not support %q", ErrUnsupportedAction, kind, a)
	}
}

// Broadcast invokes a on every cue that can currently act on it: stop reaches
// Running and Paused cues, pause reaches Running cues. Failures are collected
// and never interrupt the broadcast.
func Broadcast(cues []*Cue, a Action) []error {
	var errs []error
	for _, c := range cues {
		state := c.State()
		switch {
		case a == Pause && state != Running:
			continue
		case a != Pause && !state.IsActive():
			continue
		}
		if err := Invoke(c, a); err != nil {
			errs = append(errs, fmt.Errorf("%s %q: %w", a, c.Name(), err))
		}
	}
	return errs
}
