// Package clip defines the atomic editable unit of a composition: its
// type tag, geometry, timing windows, style, animations and the
// capability contracts external media implementations plug into.
package clip

import (
	"context"
	"fmt"
	"image"

	"github.com/google/uuid"

	"github.com/ivlev/framestudio/internal/animation"
	"github.com/ivlev/framestudio/internal/timecode"
)

// ErrUnsupportedType is returned when deserialization meets a clip type
// tag the engine does not know. The load operation fails as a whole.
var ErrUnsupportedType = fmt.Errorf("unsupported clip type")

// Type tags the clip variant.
type Type string

const (
	TypeVideo       Type = "video"
	TypeAudio       Type = "audio"
	TypeImage       Type = "image"
	TypeText        Type = "text"
	TypeCaption     Type = "caption"
	TypeEffect      Type = "effect"
	TypeTransition  Type = "transition"
	TypePlaceholder Type = "placeholder"
)

// knownTypes guards deserialization.
var knownTypes = map[Type]bool{
	TypeVideo: true, TypeAudio: true, TypeImage: true, TypeText: true,
	TypeCaption: true, TypeEffect: true, TypeTransition: true, TypePlaceholder: true,
}

// Geometry is the clip's placement on the canvas.
type Geometry struct {
	Left    float64 `json:"left"`
	Top     float64 `json:"top"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Angle   float64 `json:"angle,omitempty"`
	ZIndex  int     `json:"zIndex,omitempty"`
	Opacity float64 `json:"opacity"`
	FlipX   bool    `json:"flipX,omitempty"`
	FlipY   bool    `json:"flipY,omitempty"`
}

// Metadata is what a frame source reports once it is ready.
type Metadata struct {
	Width    int
	Height   int
	Duration timecode.Micros
}

// FrameSource is the capability contract every renderable clip type
// exposes. Implementations are external to the engine; internal/source
// ships reference implementations for still content.
type FrameSource interface {
	// Ready blocks until source metadata is known.
	Ready(ctx context.Context) (Metadata, error)
	// Frame returns a renderable frame for an in-clip time.
	Frame(rel timecode.Micros) (image.Image, error)
	Close() error
}

// Playback is the optional capability for clips with continuous media.
type Playback interface {
	Play(at timecode.Micros) error
	Pause() error
	Seek(at timecode.Micros) error
	// Sync realigns external playback with the engine clock.
	Sync(at timecode.Micros) error
	Cleanup() error
}

// EffectRef is an adjustment-layer reference held by a clip: the named
// post-process applies to the composited result while the owning clip is
// active.
type EffectRef struct {
	Name      string  `json:"name"`
	Intensity float64 `json:"intensity,omitempty"`
}

// Clip is the atomic editable unit. The id is immutable and stable
// across clone, serialize and deserialize. Track membership is not
// stored here; the timeline owns it.
type Clip struct {
	ID           string
	Type         Type
	Geometry     Geometry
	Display      timecode.Window
	Duration     timecode.Micros
	Trim         timecode.Window
	PlaybackRate float64
	Style        Style
	Animations   animation.Stack
	Effects      []EffectRef
	Transition   *Transition

	Text    *TextPayload
	Caption *CaptionPayload
	Media   *MediaPayload
	Effect  *EffectPayload

	source   FrameSource
	playback Playback
	meta     *Metadata
}

// New creates an empty clip of the given type with a fresh id.
func New(t Type) *Clip {
	return &Clip{
		ID:           uuid.New().String(),
		Type:         t,
		Geometry:     Geometry{Opacity: 1},
		PlaybackRate: 1,
	}
}

// NewImage creates an image clip backed by a media path.
func NewImage(src string) *Clip {
	c := New(TypeImage)
	c.Media = &MediaPayload{Src: src}
	return c
}

// NewVideo creates a video clip backed by a media path.
func NewVideo(src string) *Clip {
	c := New(TypeVideo)
	c.Media = &MediaPayload{Src: src}
	return c
}

// NewAudio creates an audio clip backed by a media path.
func NewAudio(src string) *Clip {
	c := New(TypeAudio)
	c.Media = &MediaPayload{Src: src}
	return c
}

// NewText creates a text clip.
func NewText(text string) *Clip {
	c := New(TypeText)
	c.Text = &TextPayload{Text: text, FontSize: 48, Color: "#ffffff"}
	return c
}

// NewCaption creates a caption clip from timed words.
func NewCaption(words []Word) *Clip {
	c := New(TypeCaption)
	c.Caption = &CaptionPayload{Words: words, Colors: DefaultCaptionColors()}
	return c
}

// NewEffect creates an adjustment-layer clip: while active, the named
// post-process applies to every clip on lower-priority tracks.
func NewEffect(name string, intensity float64) *Clip {
	c := New(TypeEffect)
	c.Effect = &EffectPayload{Name: name, Intensity: intensity}
	return c
}

// Validate checks the structural invariants.
func (c *Clip) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("clip has no id")
	}
	if !knownTypes[c.Type] {
		return fmt.Errorf("clip %s type %q: %w", c.ID, c.Type, ErrUnsupportedType)
	}
	if !c.Display.Valid() {
		return fmt.Errorf("clip %s: display window ends before it starts", c.ID)
	}
	if !c.Trim.Valid() {
		return fmt.Errorf("clip %s: trim window ends before it starts", c.ID)
	}
	if c.meta != nil && c.meta.Duration > 0 && c.Duration > c.meta.Duration {
		return fmt.Errorf("clip %s: duration %v exceeds source duration %v", c.ID, c.Duration, c.meta.Duration)
	}
	return nil
}

// SetSource attaches the frame-source capability.
func (c *Clip) SetSource(s FrameSource) {
	c.source = s
	c.meta = nil
}

// Source returns the attached frame source, if any.
func (c *Clip) Source() FrameSource { return c.source }

// SetPlayback attaches the optional playback capability.
func (c *Clip) SetPlayback(p Playback) { c.playback = p }

// PlaybackHandle returns the attached playback capability, if any.
func (c *Clip) PlaybackHandle() Playback { return c.playback }

// ResolveMeta waits for source readiness, caches the metadata and clamps
// the clip duration so it never exceeds the source's native span.
func (c *Clip) ResolveMeta(ctx context.Context) (Metadata, error) {
	if c.meta != nil {
		return *c.meta, nil
	}
	if c.source == nil {
		return Metadata{}, fmt.Errorf("clip %s has no frame source", c.ID)
	}
	meta, err := c.source.Ready(ctx)
	if err != nil {
		return Metadata{}, fmt.Errorf("clip %s source: %w", c.ID, err)
	}
	c.meta = &meta
	if meta.Duration > 0 && c.Duration > meta.Duration {
		c.Duration = meta.Duration
	}
	if c.Duration == 0 {
		c.Duration = meta.Duration
	}
	return meta, nil
}

// SourceDuration returns the cached native duration, zero if unresolved.
func (c *Clip) SourceDuration() timecode.Micros {
	if c.meta == nil {
		return 0
	}
	return c.meta.Duration
}

// SourceTime maps a timeline timestamp to in-source time, honoring the
// trim window and playback rate.
func (c *Clip) SourceTime(ts timecode.Micros) timecode.Micros {
	rel := ts - c.Display.From
	rate := c.PlaybackRate
	if rate <= 0 {
		rate = 1
	}
	return c.Trim.From + timecode.Micros(float64(rel)*rate)
}

// TransformAt combines every attached animation for a timeline instant.
func (c *Clip) TransformAt(ts timecode.Micros) animation.Transform {
	return c.Animations.At(ts - c.Display.From)
}

// ReleaseResources closes the source and tears down playback. Invoked
// exactly once, when the clip leaves its last track permanently.
func (c *Clip) ReleaseResources() {
	if c.playback != nil {
		c.playback.Cleanup()
		c.playback = nil
	}
	if c.source != nil {
		c.source.Close()
		c.source = nil
	}
	c.meta = nil
}

// DetachResources drops the capability handles without closing them.
// Used when another clip still holds the same source.
func (c *Clip) DetachResources() {
	c.playback = nil
	c.source = nil
	c.meta = nil
}

// Clone returns a deep copy sharing the source capability. The id is
// preserved; callers producing an independent clip assign a new one.
func (c *Clip) Clone() *Clip {
	out := *c
	out.Animations = append(animation.Stack(nil), c.Animations...)
	out.Effects = append([]EffectRef(nil), c.Effects...)
	if c.Transition != nil {
		tr := *c.Transition
		out.Transition = &tr
	}
	if c.Text != nil {
		t := *c.Text
		out.Text = &t
	}
	if c.Caption != nil {
		out.Caption = c.Caption.clone()
	}
	if c.Media != nil {
		m := *c.Media
		out.Media = &m
	}
	if c.Effect != nil {
		e := *c.Effect
		out.Effect = &e
	}
	return &out
}
