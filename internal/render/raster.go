package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	xdraw "golang.org/x/image/draw"

	"github.com/ivlev/framestudio/internal/animation"
	"github.com/ivlev/framestudio/internal/clip"
)

// ErrBadFrame reports a source frame that cannot be placed, typically
// one with a zero dimension.
var ErrBadFrame = fmt.Errorf("bad frame")

// Placement is a clip's resolved position on the canvas for one frame:
// base geometry with the animated transform already folded in.
type Placement struct {
	X, Y    float64
	W, H    float64
	Angle   float64
	Opacity float64
	FlipX   bool
	FlipY   bool
}

// PlacementFor folds an animated transform into base geometry. Offsets
// and size deltas add, scale grows the box around its center, opacity
// multiplies.
func PlacementFor(g clip.Geometry, t animation.Transform) Placement {
	w := g.Width + t.Width
	h := g.Height + t.Height
	cx := g.Left + t.X + w/2
	cy := g.Top + t.Y + h/2
	w *= t.Scale
	h *= t.Scale
	return Placement{
		X:       cx - w/2,
		Y:       cy - h/2,
		W:       w,
		H:       h,
		Angle:   g.Angle + t.Angle,
		Opacity: g.Opacity * t.Opacity,
		FlipX:   g.FlipX,
		FlipY:   g.FlipY,
	}
}

// Rasterizer scales, flips, rotates and composites source frames onto a
// canvas. Intermediate buffers come from a FramePool.
type Rasterizer struct {
	pool *FramePool
}

func NewRasterizer(pool *FramePool) *Rasterizer {
	return &Rasterizer{pool: pool}
}

// Draw composites one frame onto the canvas at the given placement.
// Frames with a zero dimension return ErrBadFrame; fully transparent or
// degenerate placements are a silent no-op.
func (r *Rasterizer) Draw(canvas *image.RGBA, frame image.Image, pl Placement) error {
	fb := frame.Bounds()
	if fb.Dx() == 0 || fb.Dy() == 0 {
		return fmt.Errorf("%w: %dx%d", ErrBadFrame, fb.Dx(), fb.Dy())
	}

	w := int(math.Round(pl.W))
	h := int(math.Round(pl.H))
	if w <= 0 || h <= 0 || pl.Opacity <= 0 {
		return nil
	}

	scaled := r.pool.Get(image.Rect(0, 0, w, h))
	defer r.pool.Put(scaled)
	xdraw.BiLinear.Scale(scaled, scaled.Bounds(), frame, fb, xdraw.Src, nil)

	if pl.FlipX {
		flipHorizontal(scaled)
	}
	if pl.FlipY {
		flipVertical(scaled)
	}

	if pl.Angle == 0 {
		r.compositeAxisAligned(canvas, scaled, pl)
		return nil
	}
	r.compositeRotated(canvas, scaled, pl)
	return nil
}

func (r *Rasterizer) compositeAxisAligned(canvas, scaled *image.RGBA, pl Placement) {
	dest := image.Rect(
		int(math.Round(pl.X)),
		int(math.Round(pl.Y)),
		int(math.Round(pl.X))+scaled.Rect.Dx(),
		int(math.Round(pl.Y))+scaled.Rect.Dy(),
	)
	if pl.Opacity >= 1 {
		draw.Draw(canvas, dest, scaled, scaled.Rect.Min, draw.Over)
		return
	}
	mask := image.NewUniform(color.Alpha{A: uint8(pl.Opacity * 255)})
	draw.DrawMask(canvas, dest, scaled, scaled.Rect.Min, mask, image.Point{}, draw.Over)
}

// compositeRotated inverse-maps every canvas pixel inside the rotated
// bounding box back into the scaled frame. Nearest-neighbor sampling is
// intentional here: the software path favors predictability over
// filtering quality.
func (r *Rasterizer) compositeRotated(canvas, scaled *image.RGBA, pl Placement) {
	w, h := scaled.Rect.Dx(), scaled.Rect.Dy()
	cx := pl.X + float64(w)/2
	cy := pl.Y + float64(h)/2

	rad := pl.Angle * math.Pi / 180
	sin, cos := math.Sin(rad), math.Cos(rad)

	// Bounding box of the rotated rect on the canvas.
	half := math.Hypot(float64(w), float64(h)) / 2
	box := image.Rect(
		int(math.Floor(cx-half)), int(math.Floor(cy-half)),
		int(math.Ceil(cx+half)), int(math.Ceil(cy+half)),
	).Intersect(canvas.Bounds())

	for y := box.Min.Y; y < box.Max.Y; y++ {
		for x := box.Min.X; x < box.Max.X; x++ {
			dx := float64(x) + 0.5 - cx
			dy := float64(y) + 0.5 - cy
			sx := int(dx*cos + dy*sin + float64(w)/2)
			sy := int(-dx*sin + dy*cos + float64(h)/2)
			if sx < 0 || sx >= w || sy < 0 || sy >= h {
				continue
			}
			si := scaled.PixOffset(scaled.Rect.Min.X+sx, scaled.Rect.Min.Y+sy)
			a := float64(scaled.Pix[si+3]) / 255 * pl.Opacity
			if a == 0 {
				continue
			}
			di := canvas.PixOffset(x, y)
			blendPixel(canvas.Pix[di:di+4], scaled.Pix[si:si+4], a)
		}
	}
}

// blendPixel does source-over with an extra coverage factor a.
func blendPixel(dst, src []byte, a float64) {
	ia := 1 - a
	dst[0] = uint8(float64(src[0])*a + float64(dst[0])*ia)
	dst[1] = uint8(float64(src[1])*a + float64(dst[1])*ia)
	dst[2] = uint8(float64(src[2])*a + float64(dst[2])*ia)
	da := float64(dst[3]) / 255
	dst[3] = uint8((a + da*ia) * 255)
}

func flipHorizontal(img *image.RGBA) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for xl, xr := b.Min.X, b.Max.X-1; xl < xr; xl, xr = xl+1, xr-1 {
			l := img.PixOffset(xl, y)
			r := img.PixOffset(xr, y)
			for k := 0; k < 4; k++ {
				img.Pix[l+k], img.Pix[r+k] = img.Pix[r+k], img.Pix[l+k]
			}
		}
	}
}

func flipVertical(img *image.RGBA) {
	b := img.Bounds()
	row := make([]byte, b.Dx()*4)
	for yt, yb := b.Min.Y, b.Max.Y-1; yt < yb; yt, yb = yt+1, yb-1 {
		t := img.PixOffset(b.Min.X, yt)
		bo := img.PixOffset(b.Min.X, yb)
		copy(row, img.Pix[t:t+len(row)])
		copy(img.Pix[t:t+len(row)], img.Pix[bo:bo+len(row)])
		copy(img.Pix[bo:bo+len(row)], row)
	}
}
