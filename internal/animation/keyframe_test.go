package animation

import (
	"math"
	"testing"

	"github.com/ivlev/framestudio/internal/timecode"
)

func twoStopOpacity(t *testing.T, easing string, global bool) *Keyframe {
	t.Helper()
	from, to := Identity(), Identity()
	from.Opacity = 0
	to.Opacity = 1
	kf, err := NewKeyframe(Opts{Duration: timecode.PerSecond}, []Stop{
		{Progress: 0, Props: from},
		{Progress: 1, Props: to},
	}, easing, global)
	if err != nil {
		t.Fatalf("NewKeyframe failed: %v", err)
	}
	return kf
}

func TestKeyframeBoundaries(t *testing.T) {
	kf := twoStopOpacity(t, "easeInOutCubic", false)

	if got := kf.At(0); got.Opacity != 0 {
		t.Errorf("At(0): expected opacity 0, got %v", got.Opacity)
	}
	if got := kf.At(timecode.PerSecond); got.Opacity != 1 {
		t.Errorf("At(duration): expected opacity 1, got %v", got.Opacity)
	}
	// Past the end a finite animation clamps, never wraps.
	if got := kf.At(5 * timecode.PerSecond); got.Opacity != 1 {
		t.Errorf("At(5x duration): expected clamp to 1, got %v", got.Opacity)
	}
}

func TestKeyframeDelay(t *testing.T) {
	from, to := Identity(), Identity()
	from.X = 100
	kf, err := NewKeyframe(Opts{Duration: timecode.PerSecond, Delay: 500 * timecode.PerMilli}, []Stop{
		{Progress: 0, Props: from},
		{Progress: 1, Props: to},
	}, "linear", false)
	if err != nil {
		t.Fatalf("NewKeyframe failed: %v", err)
	}

	if got := kf.At(250 * timecode.PerMilli); got != Identity() {
		t.Errorf("inside delay: expected identity, got %+v", got)
	}
	if got := kf.At(500 * timecode.PerMilli); got.X != 100 {
		t.Errorf("at delay end: expected first stop props, got %+v", got)
	}
}

// Global easing and per-segment easing must stay distinct modes: for a
// non-linear curve over three stops they produce different intermediate
// values.
func TestGlobalVersusSegmentEasing(t *testing.T) {
	mid := Identity()
	mid.X = 50
	end := Identity()
	end.X = 200

	stops := []Stop{
		{Progress: 0, Props: Identity()},
		{Progress: 0.5, Props: mid},
		{Progress: 1, Props: end},
	}

	global, err := NewKeyframe(Opts{Duration: timecode.PerSecond}, stops, "easeInQuad", true)
	if err != nil {
		t.Fatalf("NewKeyframe(global) failed: %v", err)
	}
	segment, err := NewKeyframe(Opts{Duration: timecode.PerSecond}, stops, "easeInQuad", false)
	if err != nil {
		t.Fatalf("NewKeyframe(segment) failed: %v", err)
	}

	// At raw progress 0.5: global easing maps 0.5 -> 0.25, landing in the
	// first segment; per-segment easing selects the stop at 0.5 exactly.
	at := 500 * timecode.PerMilli
	g := global.At(at)
	s := segment.At(at)
	if g.X == s.X {
		t.Fatalf("easing modes collapsed: both produced X=%v at midpoint", g.X)
	}

	// Global mode: eased progress 0.25 is halfway through segment one.
	if math.Abs(g.X-25) > 1e-9 {
		t.Errorf("global easing at midpoint: expected X=25, got %v", g.X)
	}
	if s.X != 50 {
		t.Errorf("segment easing at midpoint: expected X=50, got %v", s.X)
	}
}

func TestKeyframeIterations(t *testing.T) {
	from, to := Identity(), Identity()
	to.Angle = 360
	kf, err := NewKeyframe(Opts{Duration: 2 * timecode.PerSecond, IterCount: 2}, []Stop{
		{Progress: 0, Props: from},
		{Progress: 1, Props: to},
	}, "linear", false)
	if err != nil {
		t.Fatalf("NewKeyframe failed: %v", err)
	}

	// Each cycle is one second; halfway through the second cycle the
	// progress is 0.5 again.
	if got := kf.At(1_500 * timecode.PerMilli); math.Abs(got.Angle-180) > 1e-9 {
		t.Errorf("second cycle midpoint: expected angle 180, got %v", got.Angle)
	}
	// At the very end the finite count clamps to the last stop.
	if got := kf.At(2 * timecode.PerSecond); got.Angle != 360 {
		t.Errorf("end: expected angle 360, got %v", got.Angle)
	}
}

func TestKeyframeUnknownEasing(t *testing.T) {
	_, err := NewKeyframe(Opts{Duration: timecode.PerSecond}, []Stop{
		{Progress: 0, Props: Identity()},
		{Progress: 1, Props: Identity()},
	}, "easeWobble", false)
	if err == nil {
		t.Fatal("expected error for unknown easing name")
	}
}

func TestStackComposition(t *testing.T) {
	move := Identity()
	move.X = 10
	move.Y = -4
	a1, err := NewKeyframe(Opts{Duration: timecode.PerSecond}, []Stop{
		{Progress: 0, Props: move},
		{Progress: 1, Props: move},
	}, "linear", false)
	if err != nil {
		t.Fatalf("NewKeyframe failed: %v", err)
	}

	dim := Identity()
	dim.X = 5
	dim.Scale = 0.5
	dim.Opacity = 0.5
	a2, err := NewKeyframe(Opts{Duration: timecode.PerSecond}, []Stop{
		{Progress: 0, Props: dim},
		{Progress: 1, Props: dim},
	}, "linear", false)
	if err != nil {
		t.Fatalf("NewKeyframe failed: %v", err)
	}

	got := Stack{a1, a2}.At(500 * timecode.PerMilli)
	if got.X != 15 {
		t.Errorf("additive X: expected 15, got %v", got.X)
	}
	if got.Y != -4 {
		t.Errorf("additive Y: expected -4, got %v", got.Y)
	}
	if got.Scale != 0.5 || got.Opacity != 0.5 {
		t.Errorf("multiplicative fields: expected 0.5/0.5, got %v/%v", got.Scale, got.Opacity)
	}

	// Commutative combination: order must not matter.
	rev := Stack{a2, a1}.At(500 * timecode.PerMilli)
	if rev != got {
		t.Errorf("stack order changed result: %+v vs %+v", got, rev)
	}
}
