package animation

import (
	"fmt"
	"sort"

	"github.com/ivlev/framestudio/internal/timecode"
)

// PresetParams are the template parameters a preset factory accepts.
// Zero values fall back to per-preset defaults.
type PresetParams struct {
	Duration timecode.Micros `json:"duration,omitempty"`
	Delay    timecode.Micros `json:"delay,omitempty"`
	// Distance is the travel offset in pixels for slide presets.
	Distance float64 `json:"distance,omitempty"`
	// Scale is the starting factor for zoom presets.
	Scale float64 `json:"scale,omitempty"`
	// Turns is the rotation count for spin presets.
	Turns float64 `json:"turns,omitempty"`
	// Easing overrides the preset's default curve.
	Easing string `json:"easing,omitempty"`
}

// PresetFactory builds a concrete keyframe animation from template
// parameters. Factories are pure: the same parameters always produce an
// equivalent animation.
type PresetFactory func(p PresetParams) (*Keyframe, error)

// PresetRegistry maps preset names to factories. It is constructed once
// at startup and passed by reference; there is no package-global registry.
type PresetRegistry struct {
	factories map[string]PresetFactory
}

// NewPresetRegistry returns a registry preloaded with the built-in presets.
func NewPresetRegistry() *PresetRegistry {
	r := &PresetRegistry{factories: make(map[string]PresetFactory)}
	r.Register("fade-in", fadePreset(true))
	r.Register("fade-out", fadePreset(false))
	r.Register("zoom-in", zoomPreset(true))
	r.Register("zoom-out", zoomPreset(false))
	r.Register("slide-in-left", slidePreset(-1, 0))
	r.Register("slide-in-right", slidePreset(1, 0))
	r.Register("slide-in-up", slidePreset(0, -1))
	r.Register("slide-in-down", slidePreset(0, 1))
	r.Register("spin", spinPreset)
	r.Register("pop", popPreset)
	return r
}

// Register adds or replaces a factory.
func (r *PresetRegistry) Register(name string, f PresetFactory) {
	r.factories[name] = f
}

// Names lists the registered presets in sorted order.
func (r *PresetRegistry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build instantiates a preset. Unknown names fail with ErrUnknownName.
func (r *PresetRegistry) Build(name string, params PresetParams) (*Preset, error) {
	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("animation preset %q: %w", name, ErrUnknownName)
	}
	kf, err := factory(params)
	if err != nil {
		return nil, fmt.Errorf("animation preset %q: %w", name, err)
	}
	return &Preset{Name: name, Params: params, keyframe: kf}, nil
}

// Preset is a keyframe animation that remembers the template it was built
// from, so serialization reproduces the original {name, params} form.
type Preset struct {
	Name     string
	Params   PresetParams
	keyframe *Keyframe
}

func (p *Preset) At(elapsed timecode.Micros) Transform { return p.keyframe.At(elapsed) }
func (p *Preset) Opts() Opts                           { return p.keyframe.Opts() }

func (p PresetParams) withDefaults(dur timecode.Micros, easing string) PresetParams {
	if p.Duration <= 0 {
		p.Duration = dur
	}
	if p.Easing == "" {
		p.Easing = easing
	}
	return p
}

func fadePreset(in bool) PresetFactory {
	return func(p PresetParams) (*Keyframe, error) {
		p = p.withDefaults(500*timecode.PerMilli, "easeInOutQuad")
		from, to := 0.0, 1.0
		if !in {
			from, to = 1.0, 0.0
		}
		fromProps, toProps := Identity(), Identity()
		fromProps.Opacity = from
		toProps.Opacity = to
		return NewKeyframe(Opts{Duration: p.Duration, Delay: p.Delay}, []Stop{
			{Progress: 0, Props: fromProps},
			{Progress: 1, Props: toProps},
		}, p.Easing, false)
	}
}

func zoomPreset(in bool) PresetFactory {
	return func(p PresetParams) (*Keyframe, error) {
		p = p.withDefaults(600*timecode.PerMilli, "easeInOutCubic")
		start := p.Scale
		if start <= 0 {
			if in {
				start = 0.6
			} else {
				start = 1.4
			}
		}
		fromProps := Identity()
		fromProps.Scale = start
		return NewKeyframe(Opts{Duration: p.Duration, Delay: p.Delay}, []Stop{
			{Progress: 0, Props: fromProps},
			{Progress: 1, Props: Identity()},
		}, p.Easing, false)
	}
}

func slidePreset(dx, dy float64) PresetFactory {
	return func(p PresetParams) (*Keyframe, error) {
		p = p.withDefaults(600*timecode.PerMilli, "easeOutCubic")
		dist := p.Distance
		if dist <= 0 {
			dist = 200
		}
		fromProps := Identity()
		fromProps.X = dx * dist
		fromProps.Y = dy * dist
		fromProps.Opacity = 0
		return NewKeyframe(Opts{Duration: p.Duration, Delay: p.Delay}, []Stop{
			{Progress: 0, Props: fromProps},
			{Progress: 1, Props: Identity()},
		}, p.Easing, false)
	}
}

func spinPreset(p PresetParams) (*Keyframe, error) {
	p = p.withDefaults(timecode.PerSecond, "linear")
	turns := p.Turns
	if turns == 0 {
		turns = 1
	}
	fromProps := Identity()
	fromProps.Angle = -360 * turns
	return NewKeyframe(Opts{Duration: p.Duration, Delay: p.Delay}, []Stop{
		{Progress: 0, Props: fromProps},
		{Progress: 1, Props: Identity()},
	}, p.Easing, false)
}

func popPreset(p PresetParams) (*Keyframe, error) {
	p = p.withDefaults(400*timecode.PerMilli, "easeOutBack")
	small := Identity()
	small.Scale = 0.3
	small.Opacity = 0
	over := Identity()
	over.Scale = 1.08
	return NewKeyframe(Opts{Duration: p.Duration, Delay: p.Delay}, []Stop{
		{Progress: 0, Props: small},
		{Progress: 0.7, Props: over},
		{Progress: 1, Props: Identity()},
	}, p.Easing, false)
}
