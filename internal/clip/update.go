package clip

import (
	"github.com/ivlev/framestudio/internal/animation"
	"github.com/ivlev/framestudio/internal/timecode"
)

// Update is a partial clip mutation. Nil fields leave the clip untouched;
// set fields are merged through the single ApplyUpdate entry point so
// every mutation is observable by the owner.
type Update struct {
	Left    *float64
	Top     *float64
	Width   *float64
	Height  *float64
	Angle   *float64
	ZIndex  *int
	Opacity *float64
	FlipX   *bool
	FlipY   *bool

	Display      *timecode.Window
	Trim         *timecode.Window
	Duration     *timecode.Micros
	PlaybackRate *float64

	Style      *Style
	Animations *animation.Stack
	Effects    *[]EffectRef
	Transition **Transition

	Text    *TextPayload
	Caption *CaptionPayload
	Media   *MediaPayload
	Effect  *EffectPayload
}

// ApplyUpdate merges the update onto the clip and reports whether any
// field changed. Object identity of untouched fields is preserved.
func (c *Clip) ApplyUpdate(u Update) bool {
	changed := false

	setF := func(dst *float64, src *float64) {
		if src != nil && *dst != *src {
			*dst = *src
			changed = true
		}
	}
	setB := func(dst *bool, src *bool) {
		if src != nil && *dst != *src {
			*dst = *src
			changed = true
		}
	}

	setF(&c.Geometry.Left, u.Left)
	setF(&c.Geometry.Top, u.Top)
	setF(&c.Geometry.Width, u.Width)
	setF(&c.Geometry.Height, u.Height)
	setF(&c.Geometry.Angle, u.Angle)
	setF(&c.Geometry.Opacity, u.Opacity)
	setB(&c.Geometry.FlipX, u.FlipX)
	setB(&c.Geometry.FlipY, u.FlipY)
	if u.ZIndex != nil && c.Geometry.ZIndex != *u.ZIndex {
		c.Geometry.ZIndex = *u.ZIndex
		changed = true
	}

	if u.Display != nil && c.Display != *u.Display {
		c.Display = *u.Display
		changed = true
	}
	if u.Trim != nil && c.Trim != *u.Trim {
		c.Trim = *u.Trim
		changed = true
	}
	if u.Duration != nil && c.Duration != *u.Duration {
		c.Duration = *u.Duration
		changed = true
	}
	if u.PlaybackRate != nil && c.PlaybackRate != *u.PlaybackRate {
		c.PlaybackRate = *u.PlaybackRate
		changed = true
	}

	if u.Style != nil {
		c.Style = *u.Style
		changed = true
	}
	if u.Animations != nil {
		c.Animations = *u.Animations
		changed = true
	}
	if u.Effects != nil {
		c.Effects = *u.Effects
		changed = true
	}
	if u.Transition != nil {
		c.Transition = *u.Transition
		changed = true
	}
	if u.Text != nil {
		c.Text = u.Text
		changed = true
	}
	if u.Caption != nil {
		c.Caption = u.Caption
		changed = true
	}
	if u.Media != nil {
		c.Media = u.Media
		changed = true
	}
	if u.Effect != nil {
		c.Effect = u.Effect
		changed = true
	}

	return changed
}
