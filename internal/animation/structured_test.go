package animation

import (
	"testing"

	"github.com/ivlev/framestudio/internal/timecode"
)

// riseTween lifts a unit from y=20 to y=0 as progress runs 0..1.
func riseTween(progress float64) Transform {
	tr := Identity()
	tr.Y = 20 * (1 - progress)
	return tr
}

func TestStructuredStagger(t *testing.T) {
	s := NewStructured(Opts{Duration: timecode.PerSecond}, 3, 200*timecode.PerMilli, "rise", TweenFunc(riseTween))

	// Unit duration: 1s total minus 2x200ms runway = 600ms.
	at := 300 * timecode.PerMilli

	u0 := s.UnitAt(0, at) // 300ms into 600ms -> progress 0.5
	if u0.Y != 10 {
		t.Errorf("unit 0: expected Y=10, got %v", u0.Y)
	}
	u1 := s.UnitAt(1, at) // started at 200ms -> 100ms in -> progress 1/6
	if u1.Y <= u0.Y {
		t.Errorf("later unit should lag: unit0 Y=%v, unit1 Y=%v", u0.Y, u1.Y)
	}
	u2 := s.UnitAt(2, at) // not meaningfully started
	if u2.Y != 20 {
		t.Errorf("unit 2 at start: expected Y=20, got %v", u2.Y)
	}

	// Everyone settles at the final value eventually.
	for i := 0; i < 3; i++ {
		if got := s.UnitAt(i, 2*timecode.PerSecond); got.Y != 0 {
			t.Errorf("unit %d end: expected Y=0, got %v", i, got.Y)
		}
	}
}

func TestStructuredWithoutTween(t *testing.T) {
	s := NewStructured(Opts{Duration: timecode.PerSecond}, 4, 0, "missing", nil)
	if got := s.At(500 * timecode.PerMilli); got != Identity() {
		t.Errorf("tween-less structured animation: expected identity, got %+v", got)
	}
}
