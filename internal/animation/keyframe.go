package animation

import (
	"fmt"
	"sort"

	"github.com/ivlev/framestudio/internal/timecode"
)

// Stop is one keyframe position. Progress is the cycle-local offset in
// [0,1]; Props is the full transform at that position; Easing optionally
// names a per-segment curve for the span starting at this stop.
type Stop struct {
	Progress float64   `json:"progress"`
	Props    Transform `json:"props"`
	Easing   string    `json:"easing,omitempty"`
}

// Keyframe interpolates piecewise between ordered stops.
//
// Two easing modes exist and they are not interchangeable:
//
//   - Global easing (GlobalEasing true): the whole cycle progress is eased
//     first, then the bracketing stops are selected from the eased value
//     and interpolated linearly. This yields one continuous curve across
//     every stop.
//   - Per-segment easing (GlobalEasing false): stops are selected from raw
//     linear progress and easing is applied only inside the segment.
//
// Callers choose the mode explicitly; neither is a default of the other.
type Keyframe struct {
	opts         Opts
	stops        []Stop
	easingName   string
	globalEasing bool
	global       EasingFunc
	segments     []EasingFunc // resolved per-stop curves, same index as stops
}

// NewKeyframe builds a keyframe animation. Stops are sorted by progress.
// Easing names are resolved eagerly so an unknown name fails at
// construction, not mid-playback.
func NewKeyframe(opts Opts, stops []Stop, easing string, globalEasing bool) (*Keyframe, error) {
	if len(stops) == 0 {
		return nil, fmt.Errorf("keyframe animation needs at least one stop")
	}
	sorted := make([]Stop, len(stops))
	copy(sorted, stops)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Progress < sorted[j].Progress
	})

	k := &Keyframe{
		opts:         opts,
		stops:        sorted,
		easingName:   easing,
		globalEasing: globalEasing,
	}

	var err error
	if k.global, err = ResolveEasing(easing); err != nil {
		return nil, err
	}

	k.segments = make([]EasingFunc, len(sorted))
	for i, s := range sorted {
		name := s.Easing
		if name == "" {
			name = easing
		}
		if k.segments[i], err = ResolveEasing(name); err != nil {
			return nil, err
		}
	}
	return k, nil
}

func (k *Keyframe) Opts() Opts { return k.opts }

// Stops returns the ordered stop list.
func (k *Keyframe) Stops() []Stop { return k.stops }

// GlobalEasing reports whether the whole-cycle easing mode is active.
func (k *Keyframe) GlobalEasing() bool { return k.globalEasing }

// Easing returns the animation-level easing name.
func (k *Keyframe) Easing() string { return k.easingName }

// At evaluates the animation for an elapsed time since clip start.
func (k *Keyframe) At(elapsed timecode.Micros) Transform {
	if elapsed < k.opts.Delay {
		return Identity()
	}
	return k.atProgress(k.progress(elapsed - k.opts.Delay))
}

// progress maps delay-adjusted elapsed time to cycle-local progress.
func (k *Keyframe) progress(adj timecode.Micros) float64 {
	dur := k.opts.Duration
	if dur <= 0 {
		return 1
	}
	if adj >= dur {
		// Finite iteration counts clamp, never wrap.
		return 1
	}
	cycle := dur / timecode.Micros(k.opts.cycles())
	if cycle <= 0 {
		return 1
	}
	local := adj % cycle
	return float64(local) / float64(cycle)
}

func (k *Keyframe) atProgress(p float64) Transform {
	stops := k.stops
	if k.globalEasing {
		// Ease the whole progress, then select and lerp linearly.
		p = k.global(p)
	}
	if p <= stops[0].Progress {
		return stops[0].Props
	}
	last := len(stops) - 1
	if p >= stops[last].Progress {
		return stops[last].Props
	}

	i := 0
	for ; i < last; i++ {
		if p >= stops[i].Progress && p < stops[i+1].Progress {
			break
		}
	}

	span := stops[i+1].Progress - stops[i].Progress
	if span <= 0 {
		return stops[i+1].Props
	}
	t := (p - stops[i].Progress) / span
	if !k.globalEasing {
		t = k.segments[i](t)
	}
	return lerpTransform(stops[i].Props, stops[i+1].Props, t)
}
