package source

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/gen2brain/go-fitz"

	"github.com/ivlev/framestudio/internal/clip"
	"github.com/ivlev/framestudio/internal/timecode"
)

// DocumentSource rasterizes one page of a PDF (or any MuPDF-supported
// document) as a still frame. Page is zero-based.
type DocumentSource struct {
	path string
	page int
	dpi  float64

	mu     sync.Mutex
	doc    *fitz.Document
	frame  image.Image
	meta   clip.Metadata
	loaded bool
	closed bool
}

func NewDocumentSource(path string, page int, dpi float64) *DocumentSource {
	if dpi <= 0 {
		dpi = 150
	}
	return &DocumentSource{path: path, page: page, dpi: dpi}
}

// PageCount opens a document just long enough to count its pages.
func PageCount(path string) (int, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return 0, fmt.Errorf("open document: %w", err)
	}
	defer doc.Close()
	return doc.NumPage(), nil
}

func (s *DocumentSource) Ready(ctx context.Context) (clip.Metadata, error) {
	done := make(chan error, 1)
	go func() { done <- s.open() }()
	select {
	case <-ctx.Done():
		return clip.Metadata{}, ctx.Err()
	case err := <-done:
		if err != nil {
			return clip.Metadata{}, err
		}
		return s.meta, nil
	}
}

func (s *DocumentSource) open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("document %s: %w", s.path, ErrClosed)
	}
	if s.loaded {
		return nil
	}

	doc, err := fitz.New(s.path)
	if err != nil {
		return fmt.Errorf("open document: %w", err)
	}
	if s.page < 0 || s.page >= doc.NumPage() {
		doc.Close()
		return fmt.Errorf("document %s has no page %d", s.path, s.page)
	}

	img, err := doc.ImageDPI(s.page, s.dpi)
	if err != nil {
		doc.Close()
		return fmt.Errorf("rasterize page %d: %w", s.page, err)
	}

	s.doc = doc
	s.frame = img
	s.meta = clip.Metadata{
		Width:  img.Bounds().Dx(),
		Height: img.Bounds().Dy(),
	}
	s.loaded = true
	return nil
}

func (s *DocumentSource) Frame(rel timecode.Micros) (image.Image, error) {
	if err := s.open(); err != nil {
		return nil, err
	}
	return s.frame, nil
}

func (s *DocumentSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.frame = nil
	s.loaded = false
	if s.doc != nil {
		err := s.doc.Close()
		s.doc = nil
		return err
	}
	return nil
}
