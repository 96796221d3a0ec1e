package crossfade

import (
	"fmt"
	"math"
	"strings"

	"github.com/tessro/riffdeck/internal/core"
)

// Curve shapes transition progress into a fade value.
type Curve int

const (
	Linear Curve = iota
	Smooth
	Power
)

// Curves lists every curve.
var Curves = [...]Curve{Linear, Smooth, Power}

// ParseCurve maps a config name to a Curve.
func ParseCurve(s string) (Curve, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "linear":
		return Linear, nil
	case "smooth":
		return Smooth, nil
	case "power":
		return Power, nil
	default:
		return Linear, fmt.Errorf("invalid curve %q (want linear, smooth or power)", s)
	}
}

func (c Curve) String() string {
	switch c {
	case Linear:
		return "linear"
	case Smooth:
		return "smooth"
	case Power:
		return "power"
	default:
		return fmt.Sprintf("Curve(%d)", int(c))
	}
}

// Apply maps progress in [0,1] to a fade value in [0,1]. Progress outside
// the range is clamped first.
func (c Curve) Apply(progress float64) float64 {
	p := core.Clamp01(progress)
	switch c {
	case Smooth:
		return p * p * (3 - 2*p)
	case Power:
		return math.Pow(p, 1.5)
	default:
		return p
	}
}

func (c Curve) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}
