// Package storyboard turns a document or an image set into a ready
// timeline: one clip per page, transitions between neighbours, and a
// camera path that visits the detected regions of each page.
package storyboard

import (
	"context"
	"fmt"
	"image"

	"github.com/ivlev/framestudio/internal/analyzer"
	"github.com/ivlev/framestudio/internal/animation"
	"github.com/ivlev/framestudio/internal/clip"
	"github.com/ivlev/framestudio/internal/logging"
	"github.com/ivlev/framestudio/internal/source"
	"github.com/ivlev/framestudio/internal/studio"
	"github.com/ivlev/framestudio/internal/timecode"
)

// Builder plans page sequences. Zero values fall back to the defaults
// set by NewBuilder.
type Builder struct {
	Width  int
	Height int

	// PageDuration is how long each page stays on screen, transition
	// overlap included.
	PageDuration timecode.Micros
	// Transition names the renderer used between neighbouring pages.
	// A luma jump above LumaJump switches the pair to fade-black.
	Transition         string
	TransitionDuration timecode.Micros
	LumaJump           float64

	// DPI used when rasterizing document pages.
	DPI float64
	// Detector finds camera targets. Nil disables the camera path.
	Detector *analyzer.Detector
	// MaxZoom caps how far the camera closes in on a region.
	MaxZoom float64
}

// NewBuilder returns a builder for the given canvas size.
func NewBuilder(width, height int) *Builder {
	return &Builder{
		Width:              width,
		Height:             height,
		PageDuration:       4 * timecode.PerSecond,
		Transition:         "crossfade",
		TransitionDuration: 500 * timecode.PerMilli,
		LumaJump:           96,
		DPI:                150,
		Detector:           analyzer.NewDetector(),
		MaxZoom:            3,
	}
}

// Sequence is a planned set of clips and the transitions pairing them.
type Sequence struct {
	Clips       []*clip.Clip
	Transitions []*clip.Transition
}

// Duration returns the end of the last clip's display window.
func (s *Sequence) Duration() timecode.Micros {
	if len(s.Clips) == 0 {
		return 0
	}
	return s.Clips[len(s.Clips)-1].Display.To
}

// Apply adds the sequence to a session as one undoable edit.
func (s *Sequence) Apply(st *studio.Studio, trackID string) error {
	st.BeginGroup()
	defer st.EndGroup()

	for _, c := range s.Clips {
		if err := st.AddClip(c, trackID); err != nil {
			return err
		}
	}
	for _, tr := range s.Transitions {
		if err := st.SetTransition(tr); err != nil {
			return err
		}
	}
	return nil
}

// FromDocument plans a sequence with one clip per document page.
func (b *Builder) FromDocument(ctx context.Context, path string) (*Sequence, error) {
	pages, err := source.PageCount(path)
	if err != nil {
		return nil, err
	}
	if pages == 0 {
		return nil, fmt.Errorf("document %s has no pages", path)
	}

	sources := make([]clip.FrameSource, pages)
	for i := range sources {
		sources[i] = source.NewDocumentSource(path, i, b.DPI)
	}
	return b.plan(ctx, path, sources)
}

// FromImages plans a sequence from still image files, one clip each.
func (b *Builder) FromImages(ctx context.Context, paths []string) (*Sequence, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no images given")
	}
	sources := make([]clip.FrameSource, len(paths))
	for i, p := range paths {
		sources[i] = source.NewImageSource(p)
	}
	return b.plan(ctx, "", sources)
}

// FromSources plans a sequence over caller-provided frame sources.
func (b *Builder) FromSources(ctx context.Context, sources []clip.FrameSource) (*Sequence, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("no sources given")
	}
	return b.plan(ctx, "", sources)
}

func (b *Builder) plan(ctx context.Context, docPath string, sources []clip.FrameSource) (*Sequence, error) {
	pageDur := b.PageDuration
	if pageDur <= 0 {
		pageDur = 4 * timecode.PerSecond
	}
	overlap := b.TransitionDuration
	if overlap < 0 || overlap >= pageDur {
		overlap = 0
	}

	seq := &Sequence{}
	var prevLuma float64
	var cursor timecode.Micros

	for i, src := range sources {
		c := clip.New(clip.TypeImage)
		c.Geometry.Width = float64(b.Width)
		c.Geometry.Height = float64(b.Height)
		c.Geometry.Opacity = 1
		if docPath != "" {
			c.Media = &clip.MediaPayload{Src: docPath, Page: i, DPI: int(b.DPI)}
		} else if is, ok := src.(*source.ImageSource); ok {
			c.Media = &clip.MediaPayload{Src: is.Path()}
		}
		c.SetSource(src)
		c.Display = timecode.Window{From: cursor, To: cursor + pageDur}

		luma, err := b.decorate(ctx, c, src)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}

		if i > 0 && overlap > 0 {
			prev := seq.Clips[i-1]
			name := b.Transition
			if name == "" {
				name = "crossfade"
			}
			if b.LumaJump > 0 && abs(luma-prevLuma) > b.LumaJump {
				name = "fade-black"
			}
			seq.Transitions = append(seq.Transitions, &clip.Transition{
				Name:       name,
				Start:      c.Display.From,
				End:        c.Display.From + overlap,
				Duration:   overlap,
				FromClipID: prev.ID,
				ToClipID:   c.ID,
			})
		}

		seq.Clips = append(seq.Clips, c)
		prevLuma = luma
		cursor += pageDur - overlap
	}

	logger := logging.WithComponent("storyboard")
	logger.Debug().
		Int("clips", len(seq.Clips)).
		Int("transitions", len(seq.Transitions)).
		Str("duration", seq.Duration().String()).
		Msg("sequence planned")
	return seq, nil
}

// decorate analyzes the page and attaches the camera path. Returns the
// page's mean luma for transition selection.
func (b *Builder) decorate(ctx context.Context, c *clip.Clip, src clip.FrameSource) (float64, error) {
	meta, err := src.Ready(ctx)
	if err != nil {
		return 0, err
	}
	frame, err := src.Frame(0)
	if err != nil {
		return 0, err
	}

	luma := analyzer.MeanLuma(frame)
	if b.Detector == nil {
		return luma, nil
	}

	regions := b.Detector.Regions(frame)
	if len(regions) == 0 {
		return luma, nil
	}
	stops := b.cameraStops(regions, meta)
	anim, err := animation.NewKeyframe(
		animation.Opts{Duration: c.Display.To - c.Display.From},
		stops, "easeInOutQuad", false)
	if err != nil {
		return 0, err
	}
	c.Animations = append(c.Animations, anim)
	return luma, nil
}

// cameraStops plans the camera path over a page: full view, each region
// in reading order, full view again. Region coordinates come in source
// pixels and are mapped to canvas space before the zoom is derived.
func (b *Builder) cameraStops(regions []image.Rectangle, meta clip.Metadata) []animation.Stop {
	const settle = 0.12 // share of the cycle held at full view on each end

	stops := []animation.Stop{{Progress: 0, Props: animation.Identity()}}

	span := 1 - 2*settle
	step := span / float64(len(regions)+1)
	for i, r := range regions {
		p := settle + step*float64(i+1)
		stops = append(stops, animation.Stop{Progress: p, Props: b.focusOn(r, meta)})
	}

	stops = append(stops, animation.Stop{Progress: 1, Props: animation.Identity()})
	return stops
}

// focusOn returns the transform that centers a source region on the
// canvas at a zoom that fits it with ten percent padding.
func (b *Builder) focusOn(r image.Rectangle, meta clip.Metadata) animation.Transform {
	if meta.Width <= 0 || meta.Height <= 0 {
		return animation.Identity()
	}
	sx := float64(b.Width) / float64(meta.Width)
	sy := float64(b.Height) / float64(meta.Height)

	w := float64(r.Dx()) * sx
	h := float64(r.Dy()) * sy
	cx := (float64(r.Min.X) + float64(r.Dx())/2) * sx
	cy := (float64(r.Min.Y) + float64(r.Dy())/2) * sy

	zoom := 1.0
	if w > 0 && h > 0 {
		zoom = min(0.9*float64(b.Width)/w, 0.9*float64(b.Height)/h)
	}
	if zoom < 1 {
		zoom = 1
	}
	if max := b.MaxZoom; max > 1 && zoom > max {
		zoom = max
	}

	t := animation.Identity()
	t.Scale = zoom
	t.X = -(cx - float64(b.Width)/2) * zoom
	t.Y = -(cy - float64(b.Height)/2) * zoom
	return t
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
