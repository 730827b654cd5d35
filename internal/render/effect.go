package render

import "image"

// grayscale mixes each pixel toward its BT.601 luma. Progress is the mix
// amount: 0 leaves the frame untouched, 1 is fully desaturated.
type grayscale struct{}

func (grayscale) Apply(dst, src *image.RGBA, progress float64) {
	p := clamp01(progress)
	q := 1 - p
	pix, out := src.Pix, dst.Pix
	for i := 0; i+3 < len(pix); i += 4 {
		r, g, b := float64(pix[i]), float64(pix[i+1]), float64(pix[i+2])
		y := 0.299*r + 0.587*g + 0.114*b
		out[i] = uint8(r*q + y*p)
		out[i+1] = uint8(g*q + y*p)
		out[i+2] = uint8(b*q + y*p)
		out[i+3] = pix[i+3]
	}
}

type sepia struct{}

func (sepia) Apply(dst, src *image.RGBA, progress float64) {
	p := clamp01(progress)
	q := 1 - p
	pix, out := src.Pix, dst.Pix
	for i := 0; i+3 < len(pix); i += 4 {
		r, g, b := float64(pix[i]), float64(pix[i+1]), float64(pix[i+2])
		sr := 0.393*r + 0.769*g + 0.189*b
		sg := 0.349*r + 0.686*g + 0.168*b
		sb := 0.272*r + 0.534*g + 0.131*b
		out[i] = clampByte(r*q + sr*p)
		out[i+1] = clampByte(g*q + sg*p)
		out[i+2] = clampByte(b*q + sb*p)
		out[i+3] = pix[i+3]
	}
}

// brightness scales the color channels. Progress 0.5 is neutral, below
// darkens toward black and above lightens toward double gain.
type brightness struct{}

func (brightness) Apply(dst, src *image.RGBA, progress float64) {
	gain := 2 * clamp01(progress)
	pix, out := src.Pix, dst.Pix
	for i := 0; i+3 < len(pix); i += 4 {
		out[i] = clampByte(float64(pix[i]) * gain)
		out[i+1] = clampByte(float64(pix[i+1]) * gain)
		out[i+2] = clampByte(float64(pix[i+2]) * gain)
		out[i+3] = pix[i+3]
	}
}

const maxBlurRadius = 10

// boxBlur is a separable two-pass box blur. The radius grows with
// progress up to maxBlurRadius pixels.
type boxBlur struct{}

func (boxBlur) Apply(dst, src *image.RGBA, progress float64) {
	radius := int(clamp01(progress) * maxBlurRadius)
	if radius == 0 {
		copy(dst.Pix, src.Pix)
		return
	}
	b := src.Bounds()
	tmp := image.NewRGBA(b)
	blurPass(tmp, src, radius, true)
	blurPass(dst, tmp, radius, false)
}

func blurPass(dst, src *image.RGBA, radius int, horizontal bool) {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	limit := w
	if !horizontal {
		limit = h
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sr, sg, sb, sa, n int
			for k := -radius; k <= radius; k++ {
				sx, sy := x, y
				if horizontal {
					sx += k
				} else {
					sy += k
				}
				pos := sx
				if !horizontal {
					pos = sy
				}
				if pos < 0 || pos >= limit {
					continue
				}
				i := src.PixOffset(b.Min.X+sx, b.Min.Y+sy)
				sr += int(src.Pix[i])
				sg += int(src.Pix[i+1])
				sb += int(src.Pix[i+2])
				sa += int(src.Pix[i+3])
				n++
			}
			o := dst.PixOffset(b.Min.X+x, b.Min.Y+y)
			dst.Pix[o] = uint8(sr / n)
			dst.Pix[o+1] = uint8(sg / n)
			dst.Pix[o+2] = uint8(sb / n)
			dst.Pix[o+3] = uint8(sa / n)
		}
	}
}

// vignette darkens pixels by their distance from the frame center.
type vignette struct{}

func (vignette) Apply(dst, src *image.RGBA, progress float64) {
	p := clamp01(progress)
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	cx, cy := float64(w)/2, float64(h)/2
	maxDist := cx*cx + cy*cy
	for y := 0; y < h; y++ {
		dy := float64(y) - cy
		for x := 0; x < w; x++ {
			dx := float64(x) - cx
			dist := (dx*dx + dy*dy) / maxDist
			gain := 1 - p*dist
			i := src.PixOffset(b.Min.X+x, b.Min.Y+y)
			o := dst.PixOffset(b.Min.X+x, b.Min.Y+y)
			dst.Pix[o] = uint8(float64(src.Pix[i]) * gain)
			dst.Pix[o+1] = uint8(float64(src.Pix[i+1]) * gain)
			dst.Pix[o+2] = uint8(float64(src.Pix[i+2]) * gain)
			dst.Pix[o+3] = src.Pix[i+3]
		}
	}
}

func clampByte(v float64) uint8 {
	if v > 255 {
		return 255
	}
	if v < 0 {
		return 0
	}
	return uint8(v)
}
