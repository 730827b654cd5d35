package animation

import (
	"fmt"
	"math"
)

// ErrUnknownName is returned when an easing, preset or renderer name has
// no registered implementation. A missing visual must fail loudly rather
// than silently degrade.
var ErrUnknownName = fmt.Errorf("unknown name")

// EasingFunc maps progress in [0,1] to eased progress in [0,1].
type EasingFunc func(t float64) float64

// easings is the fixed table of named easing curves. Curves are pure
// functions, so sharing the table between callers is safe.
var easings = map[string]EasingFunc{
	"linear":         func(t float64) float64 { return t },
	"easeInQuad":     func(t float64) float64 { return t * t },
	"easeOutQuad":    func(t float64) float64 { return 1 - (1-t)*(1-t) },
	"easeInOutQuad":  easeInOutQuad,
	"easeInCubic":    func(t float64) float64 { return t * t * t },
	"easeOutCubic":   func(t float64) float64 { return 1 - math.Pow(1-t, 3) },
	"easeInOutCubic": easeInOutCubic,
	"easeInQuart":    func(t float64) float64 { return t * t * t * t },
	"easeOutQuart":   func(t float64) float64 { return 1 - math.Pow(1-t, 4) },
	"easeOutBack":    easeOutBack,
	"easeOutElastic": easeOutElastic,
}

// ResolveEasing looks up an easing curve by name. An empty name selects
// linear. Unknown names fail with ErrUnknownName.
func ResolveEasing(name string) (EasingFunc, error) {
	if name == "" {
		name = "linear"
	}
	fn, ok := easings[name]
	if !ok {
		return nil, fmt.Errorf("easing %q: %w", name, ErrUnknownName)
	}
	return fn, nil
}

// easeInOutCubic applies smooth easing function
func easeInOutCubic(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	return 1 - math.Pow(-2*t+2, 3)/2
}

func easeInOutQuad(t float64) float64 {
	if t < 0.5 {
		return 2 * t * t
	}
	return 1 - math.Pow(-2*t+2, 2)/2
}

func easeOutBack(t float64) float64 {
	const c1 = 1.70158
	const c3 = c1 + 1
	return 1 + c3*math.Pow(t-1, 3) + c1*math.Pow(t-1, 2)
}

func easeOutElastic(t float64) float64 {
	const c4 = (2 * math.Pi) / 3
	if t == 0 || t == 1 {
		return t
	}
	return math.Pow(2, -10*t)*math.Sin((t*10-0.75)*c4) + 1
}
