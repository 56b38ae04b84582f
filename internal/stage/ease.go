package stage

import (
	"errors"
	"fmt"
)

// Easing names an interpolation curve over t in [0,1].
type Easing string

const (
	EaseLinear     Easing = "linear"
	EaseOutQuad    Easing = "easeOutQuad"
	EaseInOutCubic Easing = "easeInOutCubic"
	// EaseOutBack overshoots the target and settles back onto it.
	EaseOutBack Easing = "easeOutBack"
)

var ErrUnknownEasing = errors.New("unknown easing")

// ParseEasing accepts the names above; empty means linear.
func ParseEasing(s string) (Easing, error) {
	switch e := Easing(s); e {
	case "":
		return EaseLinear, nil
	case EaseLinear, EaseOutQuad, EaseInOutCubic, EaseOutBack:
		return e, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownEasing, s)
	}
}

// Apply maps progress t to eased progress. t is clamped to [0,1]; the result may leave
// [0,1] for overshooting curves.
func (e Easing) Apply(t float64) float64 {
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	switch e {
	case EaseOutQuad:
		// f(t) = 1 - (1 - t)^2
		return 1 - (1-t)*(1-t)
	case EaseInOutCubic:
		if t < 0.5 {
			return 4 * t * t * t
		}
		return 1 - (-2*t+2)*(-2*t+2)*(-2*t+2)/2
	case EaseOutBack:
		const c1 = 1.70158
		const c3 = c1 + 1
		u := t - 1
		return 1 + c3*u*u*u + c1*u*u
	default:
		return t
	}
}

func lerp(a, b, t float64) float64 { return a + (b-a)*t }
