package fade

import (
	"fmt"
	"strings"
)

// StopMode selects the value left in effect when a fade is stopped early.
type StopMode int

const (
	// Hold keeps the current interpolated value.
	Hold StopMode = iota
	// SnapStart jumps back to the start value.
	SnapStart
	// SnapTarget jumps to the target value.
	SnapTarget
)

var stopModeNames = map[StopMode]string{
	Hold:       "Hold",
	SnapStart:  "SnapStart",
	SnapTarget: "SnapTarget",
}

func (m StopMode) String() string {
	if name, ok := stopModeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("StopMode(%d)", int(m))
}

// ParseStopMode parses a stop mode name. An empty name is Hold.
func ParseStopMode(name string) (StopMode, error) {
	if name == "" {
		return Hold, nil
	}
	for mode, modeName := range stopModeNames {
		if strings.EqualFold(name, modeName) {
			return mode, nil
		}
	}
	return Hold, fmt.Errorf("unknown stop mode %q", name)
}

// StopValue returns the value to apply when a fade of spec is stopped while at
// current, and whether anything needs to be applied at all.
func (m StopMode) StopValue(spec Spec, current float64) (float64, bool) {
	switch m {
	case SnapStart:
		return spec.From, true
	case SnapTarget:
		return spec.To, true
	default:
		return current, false
	}
}
