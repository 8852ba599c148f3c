// Package fade interpolates a scalar from a start to a target value over time.
package fade

import (
	"errors"
	"time"
)

// ErrNegativeDuration is returned for a Spec whose duration is below zero.
var ErrNegativeDuration = errors.New("fade duration must not be negative")

// Spec describes a single fade.
type Spec struct {
	From     float64
	To       float64
	Duration time.Duration
	Curve    Curve
}

// Validate checks the invariants of the spec. A zero duration is valid and
// means an instantaneous jump to To.
func (s Spec) Validate() error {
	if s.Duration < 0 {
		return ErrNegativeDuration
	}
	if _, ok := curveNames[s.Curve]; !ok {
		return errors.New("unknown fade curve")
	}
	return nil
}

// Fader accumulates elapsed time and produces the interpolated value for it.
// It is not safe for concurrent use; see Task for the scheduled variant.
type Fader struct {
	spec    Spec
	elapsed time.Duration
}

// New creates a Fader positioned at the start of spec.
func New(spec Spec) (*Fader, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &Fader{spec: spec}, nil
}

// Spec returns the spec the fader was built from.
func (f *Fader) Spec() Spec {
	return f.spec
}

// Advance moves the fader forward by dt and returns the new value. Negative
// deltas are ignored and the elapsed time never exceeds the duration.
func (f *Fader) Advance(dt time.Duration) float64 {
	if dt > 0 {
		f.elapsed += dt
	}
	if f.elapsed > f.spec.Duration {
		f.elapsed = f.spec.Duration
	}
	return f.Value()
}

// Elapsed returns the accumulated fade time.
func (f *Fader) Elapsed() time.Duration {
	return f.elapsed
}

// Progress is the normalized elapsed time t in [0,1].
func (f *Fader) Progress() float64 {
	if f.spec.Duration <= 0 {
		return 1
	}
	return clamp(float64(f.elapsed)/float64(f.spec.Duration), 0, 1)
}

// Value returns the interpolated value for the current progress. A finished
// fader always reports exactly the target.
func (f *Fader) Value() float64 {
	t := f.Progress()
	switch {
	case t >= 1:
		return f.spec.To
	case t <= 0:
		return f.spec.From
	}
	return f.spec.From + (f.spec.To-f.spec.From)*f.spec.Curve.Apply(t)
}

// Done reports whether the fader reached its target.
func (f *Fader) Done() bool {
	return f.Progress() >= 1
}
