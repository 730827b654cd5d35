package animation

import (
	"github.com/ivlev/framestudio/internal/timecode"
)

// Tween is the external tweening capability that drives structured
// animations. The engine supplies cycle-local progress; the capability
// returns a transform for it. Implementations live outside the core
// (text layout knows what a "character pop" looks like).
type Tween interface {
	Value(progress float64) Transform
}

// TweenFunc adapts a plain function to the Tween capability.
type TweenFunc func(progress float64) Transform

func (f TweenFunc) Value(progress float64) Transform { return f(progress) }

// Structured staggers one tween across a sequence of units (characters or
// words): unit i starts Stagger later than unit i-1. The tween itself is
// runtime state and is serialized only by name.
type Structured struct {
	opts      Opts
	units     int
	stagger   timecode.Micros
	tweenName string
	tween     Tween
}

// NewStructured builds a staggered animation over the given unit count.
func NewStructured(opts Opts, units int, stagger timecode.Micros, tweenName string, tween Tween) *Structured {
	if units < 1 {
		units = 1
	}
	return &Structured{
		opts:      opts,
		units:     units,
		stagger:   stagger,
		tweenName: tweenName,
		tween:     tween,
	}
}

func (s *Structured) Opts() Opts { return s.opts }

// Units returns the number of staggered units.
func (s *Structured) Units() int { return s.units }

// Stagger returns the per-unit start offset.
func (s *Structured) Stagger() timecode.Micros { return s.stagger }

// TweenName returns the serialized capability name.
func (s *Structured) TweenName() string { return s.tweenName }

// SetTween attaches the runtime tween capability after deserialization.
func (s *Structured) SetTween(t Tween) { s.tween = t }

// At reports the first unit's transform, which is the whole-clip
// contribution expected from an animation in a stack.
func (s *Structured) At(elapsed timecode.Micros) Transform {
	return s.UnitAt(0, elapsed)
}

// UnitAt evaluates a single unit. Units that have not started yet yield
// the tween's initial value; finished units clamp to the final value.
func (s *Structured) UnitAt(unit int, elapsed timecode.Micros) Transform {
	if s.tween == nil {
		return Identity()
	}
	local := elapsed - s.opts.Delay - timecode.Micros(unit)*s.stagger
	dur := s.unitDuration()
	if dur <= 0 {
		return s.tween.Value(1)
	}
	switch {
	case local <= 0:
		return s.tween.Value(0)
	case local >= dur:
		return s.tween.Value(1)
	default:
		return s.tween.Value(float64(local) / float64(dur))
	}
}

// unitDuration is the animated span of one unit: the total duration minus
// the stagger runway consumed by later units.
func (s *Structured) unitDuration() timecode.Micros {
	runway := timecode.Micros(s.units-1) * s.stagger
	return s.opts.Duration - runway
}
