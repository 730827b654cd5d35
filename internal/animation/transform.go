// Package animation maps elapsed time to transform deltas: keyframe
// interpolation, named presets and staggered structured animations.
package animation

// Transform is the contribution of one animation at one instant.
// X, Y, Width, Height and Angle are additive deltas; Scale and Opacity
// are multiplicative factors. The zero contribution is Identity, not the
// zero value.
type Transform struct {
	X       float64
	Y       float64
	Width   float64
	Height  float64
	Angle   float64
	Scale   float64
	Opacity float64
}

// Identity returns the no-op transform.
func Identity() Transform {
	return Transform{Scale: 1, Opacity: 1}
}

// Combine merges another contribution into t: additive fields sum,
// multiplicative fields multiply. Both operations commute, so the result
// does not depend on animation list order.
func (t Transform) Combine(o Transform) Transform {
	return Transform{
		X:       t.X + o.X,
		Y:       t.Y + o.Y,
		Width:   t.Width + o.Width,
		Height:  t.Height + o.Height,
		Angle:   t.Angle + o.Angle,
		Scale:   t.Scale * o.Scale,
		Opacity: t.Opacity * o.Opacity,
	}
}

// lerp performs linear interpolation between a and b
func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// lerpTransform interpolates every field linearly.
func lerpTransform(a, b Transform, t float64) Transform {
	return Transform{
		X:       lerp(a.X, b.X, t),
		Y:       lerp(a.Y, b.Y, t),
		Width:   lerp(a.Width, b.Width, t),
		Height:  lerp(a.Height, b.Height, t),
		Angle:   lerp(a.Angle, b.Angle, t),
		Scale:   lerp(a.Scale, b.Scale, t),
		Opacity: lerp(a.Opacity, b.Opacity, t),
	}
}
