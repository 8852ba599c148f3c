package cue

import "fmt"

// State is the lifecycle state of a cue.
type State int

const (
	Idle State = iota
	Running
	Paused
	Finished
	Stopped
	Error
)

var stateNames = map[State]string{
	Idle:     "Idle",
	Running:  "Running",
	Paused:   "Paused",
	Finished: "Finished",
	Stopped:  "Stopped",
	Error:    "Error",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// IsTerminal reports whether s ends an invocation of a cue.
func (s State) IsTerminal() bool {
	return s == Finished || s == Stopped || s == Error
}

// IsActive reports whether a cue in s has outstanding work.
func (s State) IsActive() bool {
	return s == Running || s == Paused
}

// transitions lists every edge of the lifecycle. Terminal states only lead back
// to Idle; Start passes through Idle implicitly.
var transitions = map[State][]State{
	Idle:     {Running},
	Running:  {Finished, Paused, Stopped, Error},
	Paused:   {Running, Stopped},
	Finished: {Idle},
	Stopped:  {Idle},
	Error:    {Idle},
}

// CanTransition reports whether the lifecycle has an edge from one state to another.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Kind selects the behaviour of a cue.
type Kind int

const (
	KindCommand Kind = iota
	KindMIDI
	KindVolumeControl
	KindSeek
	KindCollection
	KindIndexAction
	KindStopAll
)

var kindNames = map[Kind]string{
	KindCommand:       "Command Cue",
	KindMIDI:          "MIDI Cue",
	KindVolumeControl: "Volume Control",
	KindSeek:          "Seek Cue",
	KindCollection:    "Collection Cue",
	KindIndexAction:   "Index Action",
	KindStopAll:       "Stop-All",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}
