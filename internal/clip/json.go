package clip

import (
	"fmt"

	"github.com/ivlev/framestudio/internal/animation"
	"github.com/ivlev/framestudio/internal/timecode"
)

// JSON is the canonical serialized clip. All times are microseconds.
type JSON struct {
	ID           string           `json:"id"`
	Type         Type             `json:"type"`
	Geometry     Geometry         `json:"geometry"`
	Display      timecode.Window  `json:"display"`
	Duration     timecode.Micros  `json:"duration,omitempty"`
	Trim         timecode.Window  `json:"trim"`
	PlaybackRate float64          `json:"playbackRate,omitempty"`
	Style        Style            `json:"style,omitempty"`
	Animations   []animation.JSON `json:"animations,omitempty"`
	Effects      []EffectRef      `json:"effects,omitempty"`
	Transition   *Transition      `json:"transition,omitempty"`

	Text    *TextPayload    `json:"text,omitempty"`
	Caption *CaptionPayload `json:"caption,omitempty"`
	Media   *MediaPayload   `json:"media,omitempty"`
	Effect  *EffectPayload  `json:"effect,omitempty"`
}

// ToJSON serializes the clip. Runtime capabilities (frame source,
// playback) are not part of the wire form.
func (c *Clip) ToJSON() (JSON, error) {
	anims, err := animation.MarshalStack(c.Animations)
	if err != nil {
		return JSON{}, fmt.Errorf("clip %s: %w", c.ID, err)
	}
	return JSON{
		ID:           c.ID,
		Type:         c.Type,
		Geometry:     c.Geometry,
		Display:      c.Display,
		Duration:     c.Duration,
		Trim:         c.Trim,
		PlaybackRate: c.PlaybackRate,
		Style:        c.Style,
		Animations:   anims,
		Effects:      append([]EffectRef(nil), c.Effects...),
		Transition:   c.Transition,
		Text:         c.Text,
		Caption:      c.Caption,
		Media:        c.Media,
		Effect:       c.Effect,
	}, nil
}

// FromJSON rebuilds a clip. The id is taken verbatim so round-trips and
// history replay keep identity stable. Unknown type tags fail the load.
func FromJSON(j JSON, presets *animation.PresetRegistry) (*Clip, error) {
	if !knownTypes[j.Type] {
		return nil, fmt.Errorf("clip %s type %q: %w", j.ID, j.Type, ErrUnsupportedType)
	}
	anims, err := animation.UnmarshalStack(j.Animations, presets)
	if err != nil {
		return nil, fmt.Errorf("clip %s: %w", j.ID, err)
	}

	c := &Clip{
		ID:           j.ID,
		Type:         j.Type,
		Geometry:     j.Geometry,
		Display:      j.Display,
		Duration:     j.Duration,
		Trim:         j.Trim,
		PlaybackRate: j.PlaybackRate,
		Style:        j.Style,
		Animations:   anims,
		Effects:      append([]EffectRef(nil), j.Effects...),
		Transition:   j.Transition,
		Text:         j.Text,
		Caption:      j.Caption,
		Media:        j.Media,
		Effect:       j.Effect,
	}
	if c.PlaybackRate == 0 {
		c.PlaybackRate = 1
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
