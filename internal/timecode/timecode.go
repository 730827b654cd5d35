// Package timecode gives every engine timestamp an explicit unit.
// All timeline positions, display windows and trim windows are expressed
// in microseconds; nothing in the engine guesses units from magnitude.
package timecode

import (
	"fmt"
	"time"
)

// Micros is a point in time or a duration on the master timeline,
// in microseconds.
type Micros int64

const (
	// PerMilli is the number of Micros in one millisecond.
	PerMilli Micros = 1_000
	// PerSecond is the number of Micros in one second.
	PerSecond Micros = 1_000_000
)

// FromSeconds converts seconds to Micros, rounding to the nearest microsecond.
func FromSeconds(s float64) Micros {
	if s >= 0 {
		return Micros(s*float64(PerSecond) + 0.5)
	}
	return Micros(s*float64(PerSecond) - 0.5)
}

// FromMillis converts whole milliseconds to Micros.
func FromMillis(ms int64) Micros {
	return Micros(ms) * PerMilli
}

// FromDuration converts a time.Duration to Micros.
func FromDuration(d time.Duration) Micros {
	return Micros(d / time.Microsecond)
}

// Seconds returns the value as floating-point seconds.
func (m Micros) Seconds() float64 {
	return float64(m) / float64(PerSecond)
}

// Duration returns the value as a time.Duration.
func (m Micros) Duration() time.Duration {
	return time.Duration(m) * time.Microsecond
}

func (m Micros) String() string {
	return fmt.Sprintf("%.6fs", m.Seconds())
}

// Clamp limits m to the [lo, hi] range.
func (m Micros) Clamp(lo, hi Micros) Micros {
	if m < lo {
		return lo
	}
	if m > hi {
		return hi
	}
	return m
}

// Window is a half-open [From, To) interval on a timeline.
// A zero To means the window is unbounded on the right.
type Window struct {
	From Micros `json:"from"`
	To   Micros `json:"to"`
}

// Dur returns the window length. Unbounded windows report zero.
func (w Window) Dur() Micros {
	if w.To <= w.From {
		return 0
	}
	return w.To - w.From
}

// Contains reports whether t falls inside the window. The right edge is
// exclusive; an unbounded window contains everything at or after From.
func (w Window) Contains(t Micros) bool {
	if t < w.From {
		return false
	}
	if w.To > 0 && t >= w.To {
		return false
	}
	return true
}

// Intersects reports whether two bounded windows overlap.
func (w Window) Intersects(o Window) bool {
	return w.From < o.To && o.From < w.To
}

// Valid reports whether the window is well formed (To >= From, or unbounded).
func (w Window) Valid() bool {
	return w.To == 0 || w.To >= w.From
}
