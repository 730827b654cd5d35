package animation

import (
	"errors"
	"testing"

	"github.com/ivlev/framestudio/internal/timecode"
)

func TestPresetRegistry(t *testing.T) {
	reg := NewPresetRegistry()

	for _, name := range reg.Names() {
		t.Run(name, func(t *testing.T) {
			p, err := reg.Build(name, PresetParams{})
			if err != nil {
				t.Fatalf("Build(%q) failed: %v", name, err)
			}
			if p.Opts().Duration <= 0 {
				t.Errorf("preset %q has no default duration", name)
			}
			// End state of an "in" preset must be the identity so the
			// clip's own geometry takes over after the animation.
			end := p.At(p.Opts().Delay + p.Opts().Duration)
			if name != "fade-out" && end != Identity() {
				t.Errorf("preset %q end state: expected identity, got %+v", name, end)
			}
		})
	}
}

func TestPresetUnknownName(t *testing.T) {
	reg := NewPresetRegistry()
	_, err := reg.Build("teleport", PresetParams{})
	if err == nil {
		t.Fatal("expected error for unknown preset")
	}
	if !errors.Is(err, ErrUnknownName) {
		t.Errorf("expected ErrUnknownName, got %v", err)
	}
}

func TestPresetOverrides(t *testing.T) {
	reg := NewPresetRegistry()
	p, err := reg.Build("slide-in-left", PresetParams{
		Duration: 2 * timecode.PerSecond,
		Distance: 500,
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if p.Opts().Duration != 2*timecode.PerSecond {
		t.Errorf("duration override ignored: got %v", p.Opts().Duration)
	}
	if got := p.At(0); got.X != -500 {
		t.Errorf("distance override ignored: expected X=-500, got %v", got.X)
	}
}

func TestFadePresets(t *testing.T) {
	reg := NewPresetRegistry()

	in, err := reg.Build("fade-in", PresetParams{})
	if err != nil {
		t.Fatalf("Build(fade-in) failed: %v", err)
	}
	if got := in.At(0); got.Opacity != 0 {
		t.Errorf("fade-in start: expected opacity 0, got %v", got.Opacity)
	}

	out, err := reg.Build("fade-out", PresetParams{})
	if err != nil {
		t.Fatalf("Build(fade-out) failed: %v", err)
	}
	if got := out.At(out.Opts().Duration); got.Opacity != 0 {
		t.Errorf("fade-out end: expected opacity 0, got %v", got.Opacity)
	}
}
