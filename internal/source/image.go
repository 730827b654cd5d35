// Package source ships FrameSource implementations for still content:
// image files, document pages and generated test cards. Video decode
// stays behind the same interface but is provided by the embedding
// application.
package source

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"sync"

	"github.com/ivlev/framestudio/internal/clip"
	"github.com/ivlev/framestudio/internal/timecode"
)

// ErrClosed is returned by every source once Close has run; a closed
// source never serves frames again.
var ErrClosed = errors.New("source closed")

// ImageSource serves a single still image. Every frame request returns
// the same decoded picture; a still has no intrinsic duration.
type ImageSource struct {
	path string

	once   sync.Once
	mu     sync.Mutex
	img    image.Image
	meta   clip.Metadata
	err    error
	closed bool
}

func NewImageSource(path string) *ImageSource {
	return &ImageSource{path: path}
}

// Path returns the backing file path.
func (s *ImageSource) Path() string { return s.path }

func (s *ImageSource) Ready(ctx context.Context) (clip.Metadata, error) {
	done := make(chan struct{})
	go func() {
		s.once.Do(s.load)
		close(done)
	}()
	select {
	case <-ctx.Done():
		return clip.Metadata{}, ctx.Err()
	case <-done:
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed {
			return clip.Metadata{}, fmt.Errorf("image %s: %w", s.path, ErrClosed)
		}
		return s.meta, s.err
	}
}

func (s *ImageSource) load() {
	f, err := os.Open(s.path)
	if err != nil {
		s.err = fmt.Errorf("open image: %w", err)
		return
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		s.err = fmt.Errorf("decode image %s: %w", s.path, err)
		return
	}
	s.img = img
	s.meta = clip.Metadata{
		Width:  img.Bounds().Dx(),
		Height: img.Bounds().Dy(),
	}
}

func (s *ImageSource) Frame(rel timecode.Micros) (image.Image, error) {
	s.once.Do(s.load)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, fmt.Errorf("image %s: %w", s.path, ErrClosed)
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.img, nil
}

func (s *ImageSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.img = nil
	return nil
}
