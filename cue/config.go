package cue

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robmorgan/showctl/fade"
	"github.com/robmorgan/showctl/midi"
	"github.com/robmorgan/showctl/process"
)

// Config is the kind-specific payload of a cue.
type Config interface {
	Kind() Kind
}

// CommandConfig runs a shell command.
type CommandConfig struct {
	process.Spec
}

func (CommandConfig) Kind() Kind { return KindCommand }

// MIDIConfig sends a single MIDI message.
type MIDIConfig struct {
	Message midi.Message
}

func (MIDIConfig) Kind() Kind { return KindMIDI }

// VolumeConfig fades the volume of a media target.
type VolumeConfig struct {
	Target   string
	Volume   float64
	Duration time.Duration
	Curve    fade.Curve
	StopMode fade.StopMode
}

func (VolumeConfig) Kind() Kind { return KindVolumeControl }

// SeekConfig moves the playback position of a media target, optionally over time.
type SeekConfig struct {
	Target   string
	Time     time.Duration
	Duration time.Duration
	Curve    fade.Curve
	StopMode fade.StopMode
}

func (SeekConfig) Kind() Kind { return KindSeek }

// CollectionEntry pairs a target cue id with the action to invoke on it.
type CollectionEntry struct {
	ID     string
	Target string
	Action Action
}

// NewCollectionEntry creates an entry with a fresh identity.
func NewCollectionEntry(target string, action Action) CollectionEntry {
	return CollectionEntry{ID: uuid.NewString(), Target: target, Action: action}
}

// CollectionConfig fans actions out to other cues.
type CollectionConfig struct {
	Entries []CollectionEntry
}

func (CollectionConfig) Kind() Kind { return KindCollection }

func (c CollectionConfig) clone() CollectionConfig {
	entries := make([]CollectionEntry, len(c.Entries))
	copy(entries, c.Entries)
	return CollectionConfig{Entries: entries}
}

// IndexActionConfig invokes an action on the cue at an absolute or relative index.
type IndexActionConfig struct {
	Relative    bool
	TargetIndex int
	Action      Action
}

func (IndexActionConfig) Kind() Kind { return KindIndexAction }

// StopAllMode selects how StopAll silences the show.
type StopAllMode int

const (
	// Immediate stops every active cue.
	Immediate StopAllMode = iota
	// FadeOut stops every active cue and fades their media targets to silence.
	FadeOut
)

func (m StopAllMode) String() string {
	if m == FadeOut {
		return "FadeOut"
	}
	return "Immediate"
}

// StopAllConfig stops or pauses every active cue.
type StopAllConfig struct {
	Mode      StopAllMode
	PauseMode bool
	// Action is Stop (the default) or Pause; Pause is the same as PauseMode.
	Action Action
}

func (StopAllConfig) Kind() Kind { return KindStopAll }

func (c StopAllConfig) action() Action {
	if c.PauseMode || c.Action == Pause {
		return Pause
	}
	return Stop
}

// IndexRef addresses a cue by absolute position or by offset from the current index.
type IndexRef struct {
	Relative bool
	Index    int
}

// Resolve returns the absolute index referenced in a list of length cues.
func (r IndexRef) Resolve(length, current int, hasCurrent bool) (int, error) {
	i := r.Index
	if r.Relative {
		if !hasCurrent {
			return 0, ErrNoCurrentIndex
		}
		i += current
	}
	if i < 0 || i >= length {
		return 0, fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, i, length)
	}
	return i, nil
}
