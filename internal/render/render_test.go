package render

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/ivlev/framestudio/internal/animation"
	"github.com/ivlev/framestudio/internal/clip"
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

func TestRegistryLookups(t *testing.T) {
	r := NewRegistry()

	for _, name := range []string{"crossfade", "fade-black", "wipe-left", "slide-right"} {
		if _, err := r.Transition(name); err != nil {
			t.Errorf("transition %q: unexpected error %v", name, err)
		}
	}
	for _, name := range []string{"grayscale", "sepia", "brightness", "blur", "vignette"} {
		if _, err := r.Effect(name); err != nil {
			t.Errorf("effect %q: unexpected error %v", name, err)
		}
	}

	if _, err := r.Transition("warp-speed"); !errors.Is(err, animation.ErrUnknownName) {
		t.Errorf("unknown transition: expected ErrUnknownName, got %v", err)
	}
	if _, err := r.Effect("hologram"); !errors.Is(err, animation.ErrUnknownName) {
		t.Errorf("unknown effect: expected ErrUnknownName, got %v", err)
	}
}

func TestCrossfadeEndpoints(t *testing.T) {
	from := solid(4, 4, color.RGBA{R: 200, A: 255})
	to := solid(4, 4, color.RGBA{B: 100, A: 255})
	dst := image.NewRGBA(from.Bounds())

	r := NewRegistry()
	tr, err := r.Transition("crossfade")
	if err != nil {
		t.Fatal(err)
	}

	tr.Blend(dst, from, to, 0)
	if got := dst.RGBAAt(1, 1); got != from.RGBAAt(1, 1) {
		t.Errorf("progress 0: expected from pixel, got %v", got)
	}

	tr.Blend(dst, from, to, 1)
	if got := dst.RGBAAt(1, 1); got != to.RGBAAt(1, 1) {
		t.Errorf("progress 1: expected to pixel, got %v", got)
	}

	tr.Blend(dst, from, to, 0.5)
	got := dst.RGBAAt(1, 1)
	if got.R < 90 || got.R > 110 || got.B < 40 || got.B > 60 {
		t.Errorf("midpoint: expected blended pixel, got %v", got)
	}
}

func TestWipeReveal(t *testing.T) {
	from := solid(10, 4, color.RGBA{R: 255, A: 255})
	to := solid(10, 4, color.RGBA{G: 255, A: 255})
	dst := image.NewRGBA(from.Bounds())

	r := NewRegistry()
	tr, err := r.Transition("wipe-right")
	if err != nil {
		t.Fatal(err)
	}

	tr.Blend(dst, from, to, 0.5)
	if got := dst.RGBAAt(2, 2); got.G != 255 {
		t.Errorf("left half at 0.5: expected revealed to frame, got %v", got)
	}
	if got := dst.RGBAAt(8, 2); got.R != 255 {
		t.Errorf("right half at 0.5: expected from frame, got %v", got)
	}
}

func TestGrayscaleFull(t *testing.T) {
	src := solid(2, 2, color.RGBA{R: 255, A: 255})
	dst := image.NewRGBA(src.Bounds())

	grayscale{}.Apply(dst, src, 1)
	got := dst.RGBAAt(0, 0)
	if got.R != got.G || got.G != got.B {
		t.Errorf("expected neutral gray, got %v", got)
	}
	if got.A != 255 {
		t.Errorf("alpha must survive, got %d", got.A)
	}
}

func TestBrightnessNeutralMidpoint(t *testing.T) {
	src := solid(2, 2, color.RGBA{R: 80, G: 120, B: 160, A: 255})
	dst := image.NewRGBA(src.Bounds())

	brightness{}.Apply(dst, src, 0.5)
	if got := dst.RGBAAt(0, 0); got != src.RGBAAt(0, 0) {
		t.Errorf("progress 0.5 must be identity, got %v", got)
	}

	brightness{}.Apply(dst, src, 0)
	if got := dst.RGBAAt(0, 0); got.R != 0 || got.G != 0 || got.B != 0 {
		t.Errorf("progress 0 must black out, got %v", got)
	}
}

func TestVignetteDarkensEdges(t *testing.T) {
	src := solid(20, 20, color.RGBA{R: 200, G: 200, B: 200, A: 255})
	dst := image.NewRGBA(src.Bounds())

	vignette{}.Apply(dst, src, 1)
	center := dst.RGBAAt(10, 10)
	corner := dst.RGBAAt(0, 0)
	if corner.R >= center.R {
		t.Errorf("corner %d must be darker than center %d", corner.R, center.R)
	}
}

func TestFramePoolReusesCleared(t *testing.T) {
	p := NewFramePool()
	rect := image.Rect(0, 0, 8, 8)

	img := p.Get(rect)
	img.SetRGBA(3, 3, color.RGBA{R: 255, A: 255})
	p.Put(img)

	again := p.Get(rect)
	if got := again.RGBAAt(3, 3); got.R != 0 || got.A != 0 {
		t.Errorf("pooled buffer must come back cleared, got %v", got)
	}
}

func TestPlacementFor(t *testing.T) {
	g := clip.Geometry{Left: 100, Top: 50, Width: 200, Height: 100, Opacity: 0.8}
	tr := animation.Identity()
	tr.X = 10
	tr.Scale = 0.5
	tr.Opacity = 0.5

	pl := PlacementFor(g, tr)
	if pl.W != 100 || pl.H != 50 {
		t.Errorf("scaled size: expected 100x50, got %vx%v", pl.W, pl.H)
	}
	// Scale shrinks around the moved center (210, 100).
	if pl.X != 160 || pl.Y != 75 {
		t.Errorf("position: expected (160, 75), got (%v, %v)", pl.X, pl.Y)
	}
	if pl.Opacity != 0.4 {
		t.Errorf("opacity: expected 0.4, got %v", pl.Opacity)
	}
}

func TestRasterizerRejectsEmptyFrame(t *testing.T) {
	r := NewRasterizer(NewFramePool())
	canvas := image.NewRGBA(image.Rect(0, 0, 32, 32))
	empty := image.NewRGBA(image.Rect(0, 0, 0, 0))

	err := r.Draw(canvas, empty, Placement{W: 10, H: 10, Opacity: 1})
	if !errors.Is(err, ErrBadFrame) {
		t.Errorf("expected ErrBadFrame, got %v", err)
	}
}

func TestRasterizerAxisAligned(t *testing.T) {
	r := NewRasterizer(NewFramePool())
	canvas := image.NewRGBA(image.Rect(0, 0, 32, 32))
	frame := solid(4, 4, color.RGBA{R: 255, A: 255})

	err := r.Draw(canvas, frame, Placement{X: 8, Y: 8, W: 8, H: 8, Opacity: 1})
	if err != nil {
		t.Fatal(err)
	}
	if got := canvas.RGBAAt(12, 12); got.R != 255 {
		t.Errorf("inside placement: expected red, got %v", got)
	}
	if got := canvas.RGBAAt(2, 2); got.R != 0 {
		t.Errorf("outside placement: expected untouched, got %v", got)
	}
}

func TestRasterizerOpacityBlend(t *testing.T) {
	r := NewRasterizer(NewFramePool())
	canvas := solid(16, 16, color.RGBA{B: 200, A: 255})
	frame := solid(4, 4, color.RGBA{R: 200, A: 255})

	err := r.Draw(canvas, frame, Placement{W: 16, H: 16, Opacity: 0.5})
	if err != nil {
		t.Fatal(err)
	}
	got := canvas.RGBAAt(8, 8)
	if got.R < 80 || got.R > 120 || got.B < 80 || got.B > 120 {
		t.Errorf("half opacity over blue: expected mixed pixel, got %v", got)
	}
}

func TestTextureCacheDestroyOnce(t *testing.T) {
	c := NewTextureCacheWithBudget(NewFramePool(), 1<<30)
	rect := image.Rect(0, 0, 16, 16)

	first := c.Acquire("clip-1", rect)
	second := c.Acquire("clip-1", rect)
	if first != second {
		t.Error("second acquire must return the same target")
	}
	if c.Len() != 1 {
		t.Errorf("expected 1 live target, got %d", c.Len())
	}

	c.Destroy("clip-1")
	if c.Len() != 0 || c.Used() != 0 {
		t.Errorf("after destroy: expected empty cache, got len=%d used=%d", c.Len(), c.Used())
	}

	// Repeated and unknown destroys are no-ops.
	c.Destroy("clip-1")
	c.Destroy("never-seen")
	if c.Used() != 0 {
		t.Errorf("double destroy must not underflow, used=%d", c.Used())
	}
}

func TestTextureCachePairTargets(t *testing.T) {
	c := NewTextureCacheWithBudget(NewFramePool(), 1<<30)
	rect := image.Rect(0, 0, 8, 8)

	pair := c.AcquirePair("a|b", rect)
	clipTarget := c.Acquire("a", rect)
	if pair == clipTarget {
		t.Error("pair and clip targets must be distinct buffers")
	}

	c.DestroyPair("a|b")
	if c.Len() != 1 {
		t.Errorf("expected clip target to survive pair destroy, len=%d", c.Len())
	}
}

func TestTextureCacheEvictsOverBudget(t *testing.T) {
	rect := image.Rect(0, 0, 16, 16) // 1024 bytes each
	c := NewTextureCacheWithBudget(NewFramePool(), 2048)

	c.Acquire("a", rect)
	c.Acquire("b", rect)
	c.Acquire("c", rect)

	if c.Used() > 2048 {
		t.Errorf("cache must evict back under budget, used=%d", c.Used())
	}
	if c.Len() >= 3 {
		t.Errorf("expected an eviction, len=%d", c.Len())
	}
}

func TestTextureCacheResizeRecycles(t *testing.T) {
	c := NewTextureCacheWithBudget(NewFramePool(), 1<<30)

	c.Acquire("clip", image.Rect(0, 0, 8, 8))
	c.Acquire("clip", image.Rect(0, 0, 16, 16))

	if c.Len() != 1 {
		t.Errorf("resize must replace, not add, len=%d", c.Len())
	}
	if c.Used() != 16*16*4 {
		t.Errorf("expected only new target accounted, used=%d", c.Used())
	}
}
