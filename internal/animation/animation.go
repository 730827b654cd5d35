package animation

import (
	"github.com/ivlev/framestudio/internal/timecode"
)

// Opts are the timing parameters shared by every animation variant.
type Opts struct {
	// Duration is the total animated span across all iterations.
	Duration timecode.Micros `json:"duration"`
	// Delay shifts the animation start relative to the clip start.
	// Elapsed time inside the delay yields the identity transform.
	Delay timecode.Micros `json:"delay,omitempty"`
	// IterCount splits Duration into that many cycles. Values below 1
	// are treated as a single cycle. Finite counts clamp at the end
	// instead of wrapping.
	IterCount int `json:"iterCount,omitempty"`
}

// cycles returns the effective iteration count.
func (o Opts) cycles() int {
	if o.IterCount < 1 {
		return 1
	}
	return o.IterCount
}

// An Animation maps time elapsed since the owning clip's start to a
// transform contribution for that instant.
type Animation interface {
	// At evaluates the animation. Elapsed time before the delay yields
	// Identity; elapsed at or past the duration clamps to the final value.
	At(elapsed timecode.Micros) Transform
	// Opts exposes the shared timing parameters.
	Opts() Opts
}

// Stack is the ordered animation list attached to a clip. Contributions
// combine by summing additive fields and multiplying multiplicative ones,
// so the result is independent of list order.
type Stack []Animation

// At evaluates every animation in the stack and combines the results.
func (s Stack) At(elapsed timecode.Micros) Transform {
	out := Identity()
	for _, a := range s {
		out = out.Combine(a.At(elapsed))
	}
	return out
}
