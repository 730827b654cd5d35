package source

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/ivlev/framestudio/internal/clip"
	"github.com/ivlev/framestudio/internal/timecode"
)

// TestCardSource generates a slate frame for placeholder clips: color
// bars over a dark background, with a QR code carrying the label so a
// rendered export can be traced back to the clip that produced it.
type TestCardSource struct {
	label  string
	width  int
	height int

	once   sync.Once
	mu     sync.Mutex
	frame  *image.RGBA
	err    error
	closed bool
}

func NewTestCardSource(label string, width, height int) *TestCardSource {
	if width <= 0 {
		width = 640
	}
	if height <= 0 {
		height = 360
	}
	return &TestCardSource{label: label, width: width, height: height}
}

var barColors = []color.RGBA{
	{R: 192, G: 192, B: 192, A: 255},
	{R: 192, G: 192, A: 255},
	{G: 192, B: 192, A: 255},
	{G: 192, A: 255},
	{R: 192, B: 192, A: 255},
	{R: 192, A: 255},
	{B: 192, A: 255},
}

func (s *TestCardSource) Ready(ctx context.Context) (clip.Metadata, error) {
	s.once.Do(s.render)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return clip.Metadata{}, fmt.Errorf("test card %q: %w", s.label, ErrClosed)
	}
	if s.err != nil {
		return clip.Metadata{}, s.err
	}
	return clip.Metadata{Width: s.width, Height: s.height}, nil
}

func (s *TestCardSource) render() {
	img := image.NewRGBA(image.Rect(0, 0, s.width, s.height))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.RGBA{R: 16, G: 16, B: 16, A: 255}), image.Point{}, draw.Src)

	// Classic bars across the top two thirds.
	barH := s.height * 2 / 3
	barW := s.width / len(barColors)
	for i, c := range barColors {
		r := image.Rect(i*barW, 0, (i+1)*barW, barH)
		draw.Draw(img, r, image.NewUniform(c), image.Point{}, draw.Src)
	}

	if s.label != "" {
		qrSize := s.height / 3
		if qrSize > 0 {
			q, err := qrcode.New(s.label, qrcode.Medium)
			if err != nil {
				s.err = err
				return
			}
			code := q.Image(qrSize)
			pos := image.Pt(s.width-qrSize-8, s.height-qrSize-8)
			draw.Draw(img, image.Rectangle{Min: pos, Max: pos.Add(code.Bounds().Size())}, code, code.Bounds().Min, draw.Src)
		}
	}
	s.frame = img
}

func (s *TestCardSource) Frame(rel timecode.Micros) (image.Image, error) {
	s.once.Do(s.render)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, fmt.Errorf("test card %q: %w", s.label, ErrClosed)
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.frame, nil
}

func (s *TestCardSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.frame = nil
	return nil
}
