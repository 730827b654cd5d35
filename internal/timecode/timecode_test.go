package timecode

import (
	"testing"
	"time"
)

func TestConversions(t *testing.T) {
	tests := []struct {
		seconds  float64
		expected Micros
	}{
		{0, 0},
		{1.0, 1_000_000},
		{0.5, 500_000},
		{7.25, 7_250_000},
		{-1.0, -1_000_000},
	}

	for _, tt := range tests {
		got := FromSeconds(tt.seconds)
		if got != tt.expected {
			t.Errorf("FromSeconds(%v): expected %d, got %d", tt.seconds, tt.expected, got)
		}
		if tt.expected >= 0 && got.Seconds() != tt.seconds {
			t.Errorf("Seconds round-trip for %v: got %v", tt.seconds, got.Seconds())
		}
	}

	if FromMillis(1500) != 1_500_000 {
		t.Errorf("FromMillis(1500): got %d", FromMillis(1500))
	}
	if FromDuration(2*time.Second) != 2_000_000 {
		t.Errorf("FromDuration(2s): got %d", FromDuration(2*time.Second))
	}
	if (Micros(250_000)).Duration() != 250*time.Millisecond {
		t.Errorf("Duration: got %v", Micros(250_000).Duration())
	}
}

func TestWindowContains(t *testing.T) {
	w := Window{From: 5_000_000, To: 10_000_000}

	tests := []struct {
		at       Micros
		expected bool
	}{
		{0, false},
		{4_999_999, false},
		{5_000_000, true},
		{7_000_000, true},
		{9_999_999, true},
		{10_000_000, false}, // right edge is exclusive
		{15_000_000, false},
	}

	for _, tt := range tests {
		if got := w.Contains(tt.at); got != tt.expected {
			t.Errorf("Contains(%d): expected %v, got %v", tt.at, tt.expected, got)
		}
	}
}

func TestWindowUnbounded(t *testing.T) {
	w := Window{From: 1_000_000}
	if w.Contains(0) {
		t.Error("unbounded window should not contain times before From")
	}
	if !w.Contains(100_000_000) {
		t.Error("unbounded window should contain any time at or after From")
	}
	if w.Dur() != 0 {
		t.Errorf("unbounded window duration: expected 0, got %d", w.Dur())
	}
}

func TestWindowIntersects(t *testing.T) {
	a := Window{From: 0, To: 5_000_000}
	b := Window{From: 4_000_000, To: 8_000_000}
	c := Window{From: 5_000_000, To: 6_000_000}

	if !a.Intersects(b) {
		t.Error("expected a and b to intersect")
	}
	if a.Intersects(c) {
		t.Error("adjacent windows must not intersect")
	}
}

func TestClamp(t *testing.T) {
	if got := Micros(15).Clamp(0, 10); got != 10 {
		t.Errorf("Clamp above: got %d", got)
	}
	if got := Micros(-5).Clamp(0, 10); got != 0 {
		t.Errorf("Clamp below: got %d", got)
	}
	if got := Micros(5).Clamp(0, 10); got != 5 {
		t.Errorf("Clamp inside: got %d", got)
	}
}
