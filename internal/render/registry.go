// Package render implements the blend and post-process stages of the
// frame pipeline plus the texture cache that owns per-clip render state.
// Everything here works on CPU-side RGBA targets; a GPU binding would
// slot in behind the same renderer interfaces.
package render

import (
	"fmt"
	"image"
	"sort"

	"github.com/ivlev/framestudio/internal/animation"
)

// TransitionRenderer blends two sampled frames into one using a single
// progress scalar: 0 shows only the outgoing frame, 1 only the incoming.
type TransitionRenderer interface {
	Blend(dst, from, to *image.RGBA, progress float64)
}

// EffectRenderer post-processes one composited frame in place of dst.
// Progress carries the effect's own ramp (usually intensity).
type EffectRenderer interface {
	Apply(dst, src *image.RGBA, progress float64)
}

// Registry resolves transition and effect renderers by name. It is built
// once at startup and handed to the composer by reference; there are no
// process-wide mutable singletons, which keeps the unknown-name failure
// path trivially testable.
type Registry struct {
	transitions map[string]func() TransitionRenderer
	effects     map[string]func() EffectRenderer
}

// NewRegistry returns a registry preloaded with the built-in renderers.
func NewRegistry() *Registry {
	r := &Registry{
		transitions: make(map[string]func() TransitionRenderer),
		effects:     make(map[string]func() EffectRenderer),
	}

	r.RegisterTransition("crossfade", func() TransitionRenderer { return crossfade{} })
	r.RegisterTransition("fade-black", func() TransitionRenderer { return fadeBlack{} })
	r.RegisterTransition("wipe-left", func() TransitionRenderer { return wipe{dx: -1} })
	r.RegisterTransition("wipe-right", func() TransitionRenderer { return wipe{dx: 1} })
	r.RegisterTransition("wipe-up", func() TransitionRenderer { return wipe{dy: -1} })
	r.RegisterTransition("wipe-down", func() TransitionRenderer { return wipe{dy: 1} })
	r.RegisterTransition("slide-left", func() TransitionRenderer { return slide{dx: -1} })
	r.RegisterTransition("slide-right", func() TransitionRenderer { return slide{dx: 1} })

	r.RegisterEffect("grayscale", func() EffectRenderer { return grayscale{} })
	r.RegisterEffect("sepia", func() EffectRenderer { return sepia{} })
	r.RegisterEffect("brightness", func() EffectRenderer { return brightness{} })
	r.RegisterEffect("blur", func() EffectRenderer { return boxBlur{} })
	r.RegisterEffect("vignette", func() EffectRenderer { return vignette{} })

	return r
}

// RegisterTransition adds or replaces a transition factory.
func (r *Registry) RegisterTransition(name string, f func() TransitionRenderer) {
	r.transitions[name] = f
}

// RegisterEffect adds or replaces an effect factory.
func (r *Registry) RegisterEffect(name string, f func() EffectRenderer) {
	r.effects[name] = f
}

// Transition instantiates a blend renderer. Unknown names fail loudly;
// a silently missing transition is worse than an error during editing.
func (r *Registry) Transition(name string) (TransitionRenderer, error) {
	f, ok := r.transitions[name]
	if !ok {
		return nil, fmt.Errorf("transition %q: %w", name, animation.ErrUnknownName)
	}
	return f(), nil
}

// Effect instantiates a post-process renderer.
func (r *Registry) Effect(name string) (EffectRenderer, error) {
	f, ok := r.effects[name]
	if !ok {
		return nil, fmt.Errorf("effect %q: %w", name, animation.ErrUnknownName)
	}
	return f(), nil
}

// TransitionNames lists registered transitions, sorted.
func (r *Registry) TransitionNames() []string {
	names := make([]string, 0, len(r.transitions))
	for n := range r.transitions {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// EffectNames lists registered effects, sorted.
func (r *Registry) EffectNames() []string {
	names := make([]string, 0, len(r.effects))
	for n := range r.effects {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
