package animation

import (
	"encoding/json"
	"fmt"

	"github.com/ivlev/framestudio/internal/timecode"
)

// JSON is the serialized form of one animation: a type tag, shared timing
// opts and a variant-specific params payload.
type JSON struct {
	Type   string          `json:"type"`
	Opts   Opts            `json:"opts"`
	Params json.RawMessage `json:"params,omitempty"`
}

type keyframeParams struct {
	Stops        []Stop `json:"stops"`
	Easing       string `json:"easing,omitempty"`
	GlobalEasing bool   `json:"globalEasing,omitempty"`
}

type presetParamsJSON struct {
	Name   string       `json:"name"`
	Params PresetParams `json:"params"`
}

type structuredParams struct {
	Units   int             `json:"units"`
	Stagger timecode.Micros `json:"stagger"`
	Tween   string          `json:"tween,omitempty"`
}

// Marshal converts an animation to its serialized form.
func Marshal(a Animation) (JSON, error) {
	switch v := a.(type) {
	case *Keyframe:
		params, err := json.Marshal(keyframeParams{
			Stops:        v.Stops(),
			Easing:       v.Easing(),
			GlobalEasing: v.GlobalEasing(),
		})
		if err != nil {
			return JSON{}, err
		}
		return JSON{Type: "keyframe", Opts: v.Opts(), Params: params}, nil
	case *Preset:
		params, err := json.Marshal(presetParamsJSON{Name: v.Name, Params: v.Params})
		if err != nil {
			return JSON{}, err
		}
		return JSON{Type: "preset", Opts: v.Opts(), Params: params}, nil
	case *Structured:
		params, err := json.Marshal(structuredParams{
			Units:   v.Units(),
			Stagger: v.Stagger(),
			Tween:   v.TweenName(),
		})
		if err != nil {
			return JSON{}, err
		}
		return JSON{Type: "structured", Opts: v.Opts(), Params: params}, nil
	default:
		return JSON{}, fmt.Errorf("animation type %T is not serializable", a)
	}
}

// Unmarshal rebuilds an animation from its serialized form. Presets are
// re-instantiated through the registry so template changes propagate.
// Structured animations come back without a tween; the owner reattaches
// the capability via SetTween.
func Unmarshal(j JSON, presets *PresetRegistry) (Animation, error) {
	switch j.Type {
	case "keyframe":
		var p keyframeParams
		if err := json.Unmarshal(j.Params, &p); err != nil {
			return nil, fmt.Errorf("keyframe params: %w", err)
		}
		return NewKeyframe(j.Opts, p.Stops, p.Easing, p.GlobalEasing)
	case "preset":
		var p presetParamsJSON
		if err := json.Unmarshal(j.Params, &p); err != nil {
			return nil, fmt.Errorf("preset params: %w", err)
		}
		if presets == nil {
			return nil, fmt.Errorf("preset %q: no registry attached", p.Name)
		}
		if p.Params.Duration == 0 {
			p.Params.Duration = j.Opts.Duration
		}
		if p.Params.Delay == 0 {
			p.Params.Delay = j.Opts.Delay
		}
		return presets.Build(p.Name, p.Params)
	case "structured":
		var p structuredParams
		if err := json.Unmarshal(j.Params, &p); err != nil {
			return nil, fmt.Errorf("structured params: %w", err)
		}
		return NewStructured(j.Opts, p.Units, p.Stagger, p.Tween, nil), nil
	default:
		return nil, fmt.Errorf("animation type %q: %w", j.Type, ErrUnknownName)
	}
}

// MarshalStack serializes an animation list in order.
func MarshalStack(s Stack) ([]JSON, error) {
	out := make([]JSON, 0, len(s))
	for _, a := range s {
		j, err := Marshal(a)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, nil
}

// UnmarshalStack rebuilds an animation list in order.
func UnmarshalStack(list []JSON, presets *PresetRegistry) (Stack, error) {
	out := make(Stack, 0, len(list))
	for _, j := range list {
		a, err := Unmarshal(j, presets)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}
