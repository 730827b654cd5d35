// Package analyzer finds regions of interest in still frames. The
// storyboard builder uses the detected regions as pan and zoom targets
// when it lays imported pages onto a timeline.
package analyzer

import (
	"image"
	"math"
	"sort"
)

// Detector locates high-contrast regions via gradient thresholding.
type Detector struct {
	// MinArea drops components smaller than this many pixels.
	MinArea int
	// EdgeThreshold is the minimum gradient magnitude counted as an edge.
	EdgeThreshold float64
	// Grow widens every edge pixel by this radius before the components
	// are traced, so nearby strokes fuse into one region.
	Grow int
}

// NewDetector returns a detector tuned for rasterized document pages.
func NewDetector() *Detector {
	return &Detector{MinArea: 500, EdgeThreshold: 30, Grow: 5}
}

// Regions returns the bounding boxes of detected regions in reading
// order: top to bottom, ties resolved left to right.
func (d *Detector) Regions(img image.Image) []image.Rectangle {
	plane := lumaPlane(img)
	edges := plane.edgeMask(d.EdgeThreshold)
	edges.grow(d.Grow)

	regions := edges.components(d.MinArea)
	sort.SliceStable(regions, func(i, j int) bool {
		const rowTolerance = 20
		if di := regions[i].Min.Y - regions[j].Min.Y; di > rowTolerance || di < -rowTolerance {
			return regions[i].Min.Y < regions[j].Min.Y
		}
		return regions[i].Min.X < regions[j].Min.X
	})
	return regions
}

// MeanLuma returns the average luminance of the frame in [0,255].
func MeanLuma(img image.Image) float64 {
	plane := lumaPlane(img)
	if len(plane.pix) == 0 {
		return 0
	}
	var sum float64
	for _, v := range plane.pix {
		sum += v
	}
	return sum / float64(len(plane.pix))
}

// plane is a float luminance raster with origin at (0,0).
type plane struct {
	w, h int
	pix  []float64
}

func lumaPlane(img image.Image) *plane {
	b := img.Bounds()
	p := &plane{w: b.Dx(), h: b.Dy(), pix: make([]float64, b.Dx()*b.Dy())}
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			// BT.601 luma on 8-bit channels.
			p.pix[i] = 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(bl>>8)
			i++
		}
	}
	return p
}

func (p *plane) at(x, y int) float64 { return p.pix[y*p.w+x] }

// mask is a binary raster sharing the plane's coordinate space.
type mask struct {
	w, h int
	on   []bool
}

// edgeMask applies the Sobel operator and thresholds the magnitude.
func (p *plane) edgeMask(threshold float64) *mask {
	m := &mask{w: p.w, h: p.h, on: make([]bool, p.w*p.h)}
	for y := 1; y < p.h-1; y++ {
		for x := 1; x < p.w-1; x++ {
			gx := p.at(x+1, y-1) + 2*p.at(x+1, y) + p.at(x+1, y+1) -
				p.at(x-1, y-1) - 2*p.at(x-1, y) - p.at(x-1, y+1)
			gy := p.at(x-1, y+1) + 2*p.at(x, y+1) + p.at(x+1, y+1) -
				p.at(x-1, y-1) - 2*p.at(x, y-1) - p.at(x+1, y-1)
			if math.Sqrt(gx*gx+gy*gy) > threshold {
				m.on[y*m.w+x] = true
			}
		}
	}
	return m
}

// grow dilates the mask by radius using two separable max passes.
func (m *mask) grow(radius int) {
	if radius <= 0 {
		return
	}
	next := make([]bool, len(m.on))
	for y := 0; y < m.h; y++ {
		row := y * m.w
		for x := 0; x < m.w; x++ {
			if !m.on[row+x] {
				continue
			}
			lo, hi := x-radius, x+radius
			if lo < 0 {
				lo = 0
			}
			if hi >= m.w {
				hi = m.w - 1
			}
			for i := lo; i <= hi; i++ {
				next[row+i] = true
			}
		}
	}
	final := make([]bool, len(m.on))
	for x := 0; x < m.w; x++ {
		for y := 0; y < m.h; y++ {
			if !next[y*m.w+x] {
				continue
			}
			lo, hi := y-radius, y+radius
			if lo < 0 {
				lo = 0
			}
			if hi >= m.h {
				hi = m.h - 1
			}
			for i := lo; i <= hi; i++ {
				final[i*m.w+x] = true
			}
		}
	}
	m.on = final
}

// components traces 4-connected regions and returns bounding boxes of
// those at least minArea pixels large.
func (m *mask) components(minArea int) []image.Rectangle {
	seen := make([]bool, len(m.on))
	var out []image.Rectangle

	for start := range m.on {
		if !m.on[start] || seen[start] {
			continue
		}
		minX, minY := m.w, m.h
		maxX, maxY := 0, 0

		stack := []int{start}
		seen[start] = true
		for len(stack) > 0 {
			i := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			x, y := i%m.w, i/m.w
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}

			if x > 0 {
				m.visit(i-1, seen, &stack)
			}
			if x < m.w-1 {
				m.visit(i+1, seen, &stack)
			}
			if y > 0 {
				m.visit(i-m.w, seen, &stack)
			}
			if y < m.h-1 {
				m.visit(i+m.w, seen, &stack)
			}
		}

		rect := image.Rect(minX, minY, maxX+1, maxY+1)
		if rect.Dx()*rect.Dy() >= minArea {
			out = append(out, rect)
		}
	}
	return out
}

func (m *mask) visit(i int, seen []bool, stack *[]int) {
	if m.on[i] && !seen[i] {
		seen[i] = true
		*stack = append(*stack, i)
	}
}
