package cue

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTransition = errors.New("invalid transition")
	ErrUnsupportedAction = errors.New("unsupported action")
	ErrNoTargetSelected  = errors.New("no target selected")
	ErrNoCurrentIndex    = errors.New("no current index")
	ErrIndexOutOfRange   = errors.New("index out of range")
	ErrProcess           = errors.New("process error")
	ErrDanglingReference = errors.New("dangling reference")
	ErrCueRunning        = errors.New("cue is running")
	ErrUnbound           = errors.New("cue is not part of a cue list")
	ErrWrongKind         = errors.New("wrong cue kind")
)

// TransitionError reports an operation invoked from a state that does not
// allow it.
type TransitionError struct {
	Op     string
	From   State
	Reason string
}

func (e *TransitionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("cannot %s: %s", e.Op, e.Reason)
	}
	return fmt.Sprintf("cannot %s from state %s", e.Op, e.From)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// ProcessError reports a command that exited with a non-zero status.
type ProcessError struct {
	Command  string
	ExitCode int
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("Process ended with an error status. Exit code: %d", e.ExitCode)
}

func (e *ProcessError) Unwrap() error {
	return ErrProcess
}
