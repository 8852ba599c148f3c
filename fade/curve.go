package fade

import (
	"fmt"
	"strings"

	"github.com/fogleman/ease"
	"golang.org/x/exp/constraints"
)

// Curve selects the easing function applied to the normalized elapsed time of a fade.
type Curve int

const (
	// Linear output = t
	Linear Curve = iota
	// Quadratic output = t²
	Quadratic
	// InverseQuadratic output = 1-(1-t)², labelled "Quadratic2" in the editor
	InverseQuadratic
)

var curveNames = map[Curve]string{
	Linear:           "Linear",
	Quadratic:        "Quadratic",
	InverseQuadratic: "Quadratic2",
}

func (c Curve) String() string {
	if name, ok := curveNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Curve(%d)", int(c))
}

// ParseCurve accepts the editor labels, case insensitively. "InverseQuadratic"
// is accepted as an alias of "Quadratic2".
func ParseCurve(name string) (Curve, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "linear", "":
		return Linear, nil
	case "quadratic":
		return Quadratic, nil
	case "quadratic2", "inversequadratic":
		return InverseQuadratic, nil
	}
	return Linear, fmt.Errorf("unknown curve %q", name)
}

// Func returns the easing function behind the curve.
func (c Curve) Func() ease.Function {
	switch c {
	case Quadratic:
		return ease.InQuad
	case InverseQuadratic:
		return ease.OutQuad
	default:
		return ease.Linear
	}
}

// Apply maps t, clamped to [0,1], through the curve.
func (c Curve) Apply(t float64) float64 {
	return c.Func()(clamp(t, 0, 1))
}

func clamp[T constraints.Integer | constraints.Float](v, min, max T) T {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
