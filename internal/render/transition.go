package render

import (
	"image"
	"image/draw"
)

// crossfade lerps every pixel between the two frames.
type crossfade struct{}

func (crossfade) Blend(dst, from, to *image.RGBA, progress float64) {
	p := clamp01(progress)
	w := uint32(p * 256)
	iw := 256 - w

	n := len(dst.Pix)
	for i := 0; i < n; i++ {
		a := uint32(from.Pix[i])
		b := uint32(to.Pix[i])
		dst.Pix[i] = uint8((a*iw + b*w) >> 8)
	}
}

// fadeBlack dips the outgoing frame to black during the first half and
// raises the incoming frame during the second.
type fadeBlack struct{}

func (fadeBlack) Blend(dst, from, to *image.RGBA, progress float64) {
	p := clamp01(progress)
	var src *image.RGBA
	var level float64
	if p < 0.5 {
		src = from
		level = 1 - p*2
	} else {
		src = to
		level = (p - 0.5) * 2
	}
	scale := uint32(level * 256)
	n := len(dst.Pix)
	for i := 0; i < n; i += 4 {
		dst.Pix[i+0] = uint8(uint32(src.Pix[i+0]) * scale >> 8)
		dst.Pix[i+1] = uint8(uint32(src.Pix[i+1]) * scale >> 8)
		dst.Pix[i+2] = uint8(uint32(src.Pix[i+2]) * scale >> 8)
		dst.Pix[i+3] = src.Pix[i+3]
	}
}

// wipe reveals the incoming frame behind a moving edge.
type wipe struct {
	dx, dy int
}

func (t wipe) Blend(dst, from, to *image.RGBA, progress float64) {
	p := clamp01(progress)
	b := dst.Bounds()
	w, h := b.Dx(), b.Dy()

	draw.Draw(dst, b, from, from.Bounds().Min, draw.Src)

	var reveal image.Rectangle
	switch {
	case t.dx < 0: // edge travels right to left
		reveal = image.Rect(b.Max.X-int(p*float64(w)), b.Min.Y, b.Max.X, b.Max.Y)
	case t.dx > 0:
		reveal = image.Rect(b.Min.X, b.Min.Y, b.Min.X+int(p*float64(w)), b.Max.Y)
	case t.dy < 0:
		reveal = image.Rect(b.Min.X, b.Max.Y-int(p*float64(h)), b.Max.X, b.Max.Y)
	default:
		reveal = image.Rect(b.Min.X, b.Min.Y, b.Max.X, b.Min.Y+int(p*float64(h)))
	}
	draw.Draw(dst, reveal, to, reveal.Min.Sub(b.Min).Add(to.Bounds().Min), draw.Src)
}

// slide pushes the outgoing frame off-canvas while the incoming frame
// follows it in.
type slide struct {
	dx int
}

func (t slide) Blend(dst, from, to *image.RGBA, progress float64) {
	p := clamp01(progress)
	b := dst.Bounds()
	w := b.Dx()
	shift := int(p * float64(w))

	clearRGBA(dst)

	// Translation of each frame relative to the canvas.
	var fromOffset, toOffset image.Point
	if t.dx < 0 {
		fromOffset = image.Pt(-shift, 0)
		toOffset = image.Pt(w-shift, 0)
	} else {
		fromOffset = image.Pt(shift, 0)
		toOffset = image.Pt(shift-w, 0)
	}

	draw.Draw(dst, b, from, from.Bounds().Min.Sub(fromOffset), draw.Src)
	draw.Draw(dst, b, to, to.Bounds().Min.Sub(toOffset), draw.Src)
}

func clearRGBA(img *image.RGBA) {
	for i := range img.Pix {
		img.Pix[i] = 0
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
