// Package composer turns a timeline plus a timestamp into one composited
// frame. It owns the per-frame evaluation pipeline: active-clip
// selection, z-ordering, animation evaluation, transition blending and
// layered post-effects.
package composer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"reflect"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/ivlev/framestudio/internal/animation"
	"github.com/ivlev/framestudio/internal/clip"
	"github.com/ivlev/framestudio/internal/logging"
	"github.com/ivlev/framestudio/internal/render"
	"github.com/ivlev/framestudio/internal/timecode"
	"github.com/ivlev/framestudio/internal/timeline"
)

// zSpacing separates whole tracks in the priority space so intra-track
// zIndex can never push a clip across a track boundary.
const zSpacing = 1000

// ClipState is where a clip lands in the per-frame state machine.
type ClipState int

const (
	StateInactiveBefore ClipState = iota
	StateInactiveAfter
	StateDurationExceeded
	StateInTransition
	StateActive
)

// Frame is one composited result. Image stays owned by the composer and
// is valid until the next UpdateFrame call.
type Frame struct {
	Image       *image.RGBA
	Timestamp   timecode.Micros
	Interactive []string
}

// Composer evaluates the timeline at a timestamp. It is driven from a
// single render goroutine; concurrent UpdateFrame calls supersede each
// other rather than queue.
type Composer struct {
	tl     *timeline.Timeline
	reg    *render.Registry
	cache  *render.TextureCache
	pool   *render.FramePool
	raster *render.Rasterizer
	log    zerolog.Logger

	generation atomic.Uint64

	mu           sync.Mutex
	suspendDepth int
	editMode     bool
	canvas       *image.RGBA
}

func New(tl *timeline.Timeline, reg *render.Registry, cache *render.TextureCache, pool *render.FramePool) *Composer {
	return &Composer{
		tl:     tl,
		reg:    reg,
		cache:  cache,
		pool:   pool,
		raster: render.NewRasterizer(pool),
		log:    logging.WithComponent("composer"),
	}
}

// SetEditMode toggles interactive marking of active clips.
func (c *Composer) SetEditMode(on bool) {
	c.mu.Lock()
	c.editMode = on
	c.mu.Unlock()
}

// Suspend pauses composition so a batch of mutations does not trigger
// intermediate partial redraws. Calls nest; every Suspend needs a
// matching Resume.
func (c *Composer) Suspend() {
	c.mu.Lock()
	c.suspendDepth++
	c.mu.Unlock()
}

// Resume reverses one Suspend.
func (c *Composer) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.suspendDepth == 0 {
		c.log.Warn().Msg("resume without matching suspend")
		return
	}
	c.suspendDepth--
}

// Suspended reports whether composition is currently paused.
func (c *Composer) Suspended() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.suspendDepth > 0
}

// StateOf classifies one clip for a timestamp. Exposed for the studio,
// which uses it to drive playback side effects.
func (c *Composer) StateOf(cl *clip.Clip, ts timecode.Micros) ClipState {
	if ts < cl.Display.From {
		return StateInactiveBefore
	}
	if cl.Display.To > 0 && ts >= cl.Display.To {
		return StateInactiveAfter
	}
	rel := ts - cl.Display.From
	limit := cl.Duration
	if sd := cl.SourceDuration(); sd > limit {
		limit = sd
	}
	if limit > 0 && rel >= limit {
		return StateDurationExceeded
	}
	if tr := c.activeTransition(cl, ts); tr != nil {
		return StateInTransition
	}
	return StateActive
}

func (c *Composer) activeTransition(cl *clip.Clip, ts timecode.Micros) *clip.Transition {
	for _, tr := range c.tl.Transitions() {
		if tr.Active(ts) && (tr.FromClipID == cl.ID || tr.ToClipID == cl.ID) {
			return tr
		}
	}
	return nil
}

type itemKind int

const (
	kindClip itemKind = iota
	kindPair
)

type renderItem struct {
	kind     itemKind
	priority int
	clip     *clip.Clip
	trackIdx int
	pair     *clip.Transition
}

type effectPass struct {
	name      string
	intensity float64
	trackIdx  int
}

// UpdateFrame composes the frame for ts. A nil Frame with a nil error
// means the call produced nothing: composition is suspended or a newer
// call superseded this one mid-flight.
func (c *Composer) UpdateFrame(ctx context.Context, ts timecode.Micros) (*Frame, error) {
	if c.Suspended() {
		return nil, nil
	}
	gen := c.generation.Add(1)

	items, passes, interactive, err := c.collect(ctx, ts)
	if err != nil {
		return nil, err
	}
	if c.generation.Load() != gen {
		return nil, nil
	}

	settings := c.tl.Settings()
	rect := image.Rect(0, 0, settings.Width, settings.Height)
	base := c.pool.Get(rect)
	fillBackground(base, settings.BgColor)

	// Bottom-most first. Effects chain in the same direction, so a pass
	// sees everything beneath its own track already composited.
	sort.SliceStable(items, func(i, j int) bool { return items[i].priority < items[j].priority })
	sort.SliceStable(passes, func(i, j int) bool { return passes[i].trackIdx > passes[j].trackIdx })

	next := 0
	for _, pass := range passes {
		// Draw everything below the pass's own track, then run the pass
		// over the accumulated composite.
		boundary := c.priorityFloor(pass.trackIdx)
		for next < len(items) && items[next].priority < boundary {
			if err := c.drawItem(ctx, base, items[next], ts, gen); err != nil {
				c.pool.Put(base)
				return nil, err
			}
			next++
		}
		if c.generation.Load() != gen {
			c.pool.Put(base)
			return nil, nil
		}
		eff, err := c.reg.Effect(pass.name)
		if err != nil {
			c.pool.Put(base)
			return nil, fmt.Errorf("effect pass: %w", err)
		}
		tmp := c.pool.Get(rect)
		eff.Apply(tmp, base, pass.intensity)
		c.pool.Put(base)
		base = tmp
	}
	for next < len(items) {
		if err := c.drawItem(ctx, base, items[next], ts, gen); err != nil {
			c.pool.Put(base)
			return nil, err
		}
		next++
	}

	if c.generation.Load() != gen {
		c.pool.Put(base)
		return nil, nil
	}

	c.mu.Lock()
	if c.canvas != nil {
		c.pool.Put(c.canvas)
	}
	c.canvas = base
	c.mu.Unlock()

	return &Frame{Image: base, Timestamp: ts, Interactive: interactive}, nil
}

// collect walks every track and classifies each clip, producing the
// draw list, the active effect passes and the interactive set. A
// transition pairing yields one pair item regardless of how many of its
// endpoints are encountered.
func (c *Composer) collect(ctx context.Context, ts timecode.Micros) ([]renderItem, []effectPass, []string, error) {
	tracks := c.tl.Tracks()
	total := len(tracks)

	var items []renderItem
	var passes []effectPass
	var interactive []string
	pairsDone := map[string]bool{}

	c.mu.Lock()
	editMode := c.editMode
	c.mu.Unlock()

	for trackIdx, track := range tracks {
		for _, clipID := range track.ClipIDs {
			if err := ctx.Err(); err != nil {
				return nil, nil, nil, err
			}
			cl, ok := c.tl.GetClipByID(clipID)
			if !ok {
				c.log.Warn().Str("clip", clipID).Msg("track references missing clip")
				continue
			}

			state := c.StateOf(cl, ts)
			switch state {
			case StateInactiveBefore, StateInactiveAfter, StateDurationExceeded:
				c.pausePlayback(cl)
				continue
			case StateInTransition:
				tr := c.activeTransition(cl, ts)
				if pairsDone[tr.Key()] {
					continue
				}
				pairsDone[tr.Key()] = true
				items = append(items, renderItem{
					kind:     kindPair,
					priority: (total-trackIdx)*zSpacing + cl.Geometry.ZIndex,
					trackIdx: trackIdx,
					pair:     tr,
				})
				continue
			}

			if editMode {
				interactive = append(interactive, cl.ID)
			}

			if cl.Type == clip.TypeEffect && cl.Effect != nil {
				passes = append(passes, effectPass{
					name:      cl.Effect.Name,
					intensity: effectIntensity(cl.Effect.Intensity),
					trackIdx:  trackIdx,
				})
				continue
			}
			for _, ref := range cl.Effects {
				passes = append(passes, effectPass{
					name:      ref.Name,
					intensity: effectIntensity(ref.Intensity),
					trackIdx:  trackIdx,
				})
			}

			if cl.Type == clip.TypeAudio {
				c.syncPlayback(cl, ts)
				continue
			}

			items = append(items, renderItem{
				kind:     kindClip,
				priority: (total-trackIdx)*zSpacing + cl.Geometry.ZIndex,
				clip:     cl,
				trackIdx: trackIdx,
			})
		}
	}
	return items, passes, interactive, nil
}

// priorityFloor is the smallest priority a clip on trackIdx can have.
func (c *Composer) priorityFloor(trackIdx int) int {
	total := len(c.tl.Tracks())
	return (total - trackIdx) * zSpacing
}

// drawItem renders one item onto the target. Unknown renderer names are
// configuration errors and propagate; anything else is logged and the
// item skipped so one broken clip cannot take down the frame.
func (c *Composer) drawItem(ctx context.Context, target *image.RGBA, item renderItem, ts timecode.Micros, gen uint64) error {
	var err error
	switch item.kind {
	case kindClip:
		err = c.drawClip(ctx, target, item.clip, ts, gen)
	case kindPair:
		err = c.drawPair(ctx, target, item.pair, ts, gen)
	}
	if errors.Is(err, animation.ErrUnknownName) {
		return err
	}
	if err != nil {
		c.log.Warn().Err(err).Msg("item skipped")
	}
	return nil
}

func (c *Composer) drawClip(ctx context.Context, target *image.RGBA, cl *clip.Clip, ts timecode.Micros, gen uint64) error {
	frame, pl, err := c.sampleClip(ctx, cl, ts, gen)
	if err != nil || frame == nil {
		return err
	}
	c.syncPlayback(cl, ts)

	// Upload into the clip's cached texture; the cache keeps the handle
	// alive across frames and across non-permanent removal.
	fb := frame.Bounds()
	if fb.Dx() == 0 || fb.Dy() == 0 {
		return fmt.Errorf("clip %s: %w: %dx%d", cl.ID, render.ErrBadFrame, fb.Dx(), fb.Dy())
	}
	tex := c.cache.Acquire(cl.ID, image.Rect(0, 0, fb.Dx(), fb.Dy()))
	draw.Draw(tex, tex.Bounds(), frame, fb.Min, draw.Src)
	return c.raster.Draw(target, tex, pl)
}

// sampleClip fetches a clip's frame and resolved placement for ts. Both
// ResolveMeta and Frame are await points: after each, a newer generation
// abandons the sample.
func (c *Composer) sampleClip(ctx context.Context, cl *clip.Clip, ts timecode.Micros, gen uint64) (image.Image, render.Placement, error) {
	if cl.Source() == nil {
		return nil, render.Placement{}, nil
	}
	meta, err := cl.ResolveMeta(ctx)
	if err != nil {
		return nil, render.Placement{}, err
	}
	if c.generation.Load() != gen {
		return nil, render.Placement{}, nil
	}

	frame, err := cl.Source().Frame(cl.SourceTime(ts))
	if err != nil {
		return nil, render.Placement{}, fmt.Errorf("clip %s frame: %w", cl.ID, err)
	}
	if frame == nil || isNilImage(frame) {
		return nil, render.Placement{}, fmt.Errorf("clip %s: %w: source returned no frame", cl.ID, render.ErrBadFrame)
	}
	if c.generation.Load() != gen {
		return nil, render.Placement{}, nil
	}

	g := cl.Geometry
	if g.Width == 0 {
		g.Width = float64(meta.Width)
	}
	if g.Height == 0 {
		g.Height = float64(meta.Height)
	}
	return frame, render.PlacementFor(g, cl.TransformAt(ts)), nil
}

// isNilImage catches a typed nil smuggled inside a non-nil interface,
// where calling Bounds would panic.
func isNilImage(img image.Image) bool {
	v := reflect.ValueOf(img)
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice:
		return v.IsNil()
	}
	return false
}

// drawPair renders a transition pairing: both endpoints sampled into
// offscreen targets at their current transforms, blended once, then
// composited as a single result.
func (c *Composer) drawPair(ctx context.Context, target *image.RGBA, tr *clip.Transition, ts timecode.Micros, gen uint64) error {
	blender, err := c.reg.Transition(tr.Name)
	if err != nil {
		return fmt.Errorf("transition %s: %w", tr.Key(), err)
	}

	from, okFrom := c.tl.GetClipByID(tr.FromClipID)
	to, okTo := c.tl.GetClipByID(tr.ToClipID)
	if !okFrom || !okTo {
		c.log.Warn().Str("pair", tr.Key()).Msg("transition endpoint missing")
		return nil
	}

	rect := target.Bounds()
	fromTarget := c.pool.Get(rect)
	defer c.pool.Put(fromTarget)
	toTarget := c.pool.Get(rect)
	defer c.pool.Put(toTarget)

	if err := c.renderEndpoint(ctx, fromTarget, from, ts, gen); err != nil {
		return err
	}
	if err := c.renderEndpoint(ctx, toTarget, to, ts, gen); err != nil {
		return err
	}
	if c.generation.Load() != gen {
		return nil
	}

	blended := c.cache.AcquirePair(tr.Key(), rect)
	blender.Blend(blended, fromTarget, toTarget, tr.Progress(ts))
	draw.Draw(target, rect, blended, rect.Min, draw.Over)
	return nil
}

func (c *Composer) renderEndpoint(ctx context.Context, target *image.RGBA, cl *clip.Clip, ts timecode.Micros, gen uint64) error {
	frame, pl, err := c.sampleClip(ctx, cl, ts, gen)
	if err != nil {
		c.log.Warn().Err(err).Str("clip", cl.ID).Msg("transition endpoint sample failed")
		return nil
	}
	if frame == nil {
		return nil
	}
	return c.raster.Draw(target, frame, pl)
}

func (c *Composer) pausePlayback(cl *clip.Clip) {
	if pb := cl.PlaybackHandle(); pb != nil {
		if err := pb.Pause(); err != nil {
			c.log.Warn().Err(err).Str("clip", cl.ID).Msg("pause failed")
		}
	}
}

func (c *Composer) syncPlayback(cl *clip.Clip, ts timecode.Micros) {
	if pb := cl.PlaybackHandle(); pb != nil {
		if err := pb.Sync(cl.SourceTime(ts)); err != nil {
			c.log.Warn().Err(err).Str("clip", cl.ID).Msg("sync failed")
		}
	}
}

func effectIntensity(v float64) float64 {
	if v <= 0 {
		return 1
	}
	if v > 1 {
		return 1
	}
	return v
}

func fillBackground(img *image.RGBA, hex string) {
	draw.Draw(img, img.Bounds(), image.NewUniform(parseHexColor(hex)), image.Point{}, draw.Src)
}

func parseHexColor(s string) color.RGBA {
	c := color.RGBA{A: 255}
	if len(s) == 7 && s[0] == '#' {
		fmt.Sscanf(s[1:], "%02x%02x%02x", &c.R, &c.G, &c.B)
	}
	return c
}
