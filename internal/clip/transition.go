package clip

import (
	"fmt"

	"github.com/ivlev/framestudio/internal/timecode"
)

// Transition describes a shader-driven blend between two adjacent clips.
// It is a relationship between the pair, not an animation owned by either
// endpoint; renderer state is cached for the lifetime of the pairing.
type Transition struct {
	Name       string          `json:"name"`
	Start      timecode.Micros `json:"start"`
	End        timecode.Micros `json:"end"`
	Duration   timecode.Micros `json:"duration"`
	FromClipID string          `json:"fromClipId"`
	ToClipID   string          `json:"toClipId"`
}

// Key identifies the pairing. Both endpoint clips carrying the same
// descriptor resolve to the same key, which is how the composer renders
// a transition at most once per frame.
func (t Transition) Key() string {
	return fmt.Sprintf("%s|%s", t.FromClipID, t.ToClipID)
}

// Window returns the active blend interval, half-open on the right.
func (t Transition) Window() timecode.Window {
	return timecode.Window{From: t.Start, To: t.End}
}

// Active reports whether ts falls inside [Start, End).
func (t Transition) Active(ts timecode.Micros) bool {
	return ts >= t.Start && ts < t.End
}

// Progress maps ts to the blend scalar in [0,1].
func (t Transition) Progress(ts timecode.Micros) float64 {
	dur := t.Duration
	if dur <= 0 {
		dur = t.End - t.Start
	}
	if dur <= 0 {
		return 1
	}
	p := float64(ts-t.Start) / float64(dur)
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
