package source

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTestPNG(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	path := filepath.Join(t.TempDir(), "frame.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestImageSource(t *testing.T) {
	src := NewImageSource(writeTestPNG(t, 12, 8))
	defer src.Close()

	meta, err := src.Ready(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if meta.Width != 12 || meta.Height != 8 {
		t.Errorf("metadata: expected 12x8, got %dx%d", meta.Width, meta.Height)
	}
	if meta.Duration != 0 {
		t.Errorf("still must report zero duration, got %v", meta.Duration)
	}

	f1, err := src.Frame(0)
	if err != nil {
		t.Fatal(err)
	}
	f2, err := src.Frame(5 * 1_000_000)
	if err != nil {
		t.Fatal(err)
	}
	if f1 != f2 {
		t.Error("still source must return the same frame at any time")
	}
}

func TestImageSourceMissingFile(t *testing.T) {
	src := NewImageSource(filepath.Join(t.TempDir(), "absent.png"))
	if _, err := src.Ready(context.Background()); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := src.Frame(0); err == nil {
		t.Error("Frame must report the load error too")
	}
}

func TestImageSourceReadyHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := NewImageSource(writeTestPNG(t, 4, 4))
	done := make(chan error, 1)
	go func() {
		_, err := src.Ready(ctx)
		done <- err
	}()
	select {
	case err := <-done:
		// Either outcome is fine: a canceled context error or a fast
		// load that beat the cancellation.
		t.Logf("ready returned: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("Ready must not block on a canceled context")
	}
}

func TestFrameAfterCloseErrors(t *testing.T) {
	img := NewImageSource(writeTestPNG(t, 4, 4))
	if _, err := img.Frame(0); err != nil {
		t.Fatal(err)
	}
	img.Close()
	frame, err := img.Frame(0)
	if !errors.Is(err, ErrClosed) {
		t.Errorf("closed image source: expected ErrClosed, got %v", err)
	}
	if frame != nil {
		t.Errorf("closed image source must not hand out a frame, got %T", frame)
	}

	card := NewTestCardSource("x", 64, 64)
	if _, err := card.Frame(0); err != nil {
		t.Fatal(err)
	}
	card.Close()
	frame, err = card.Frame(0)
	if !errors.Is(err, ErrClosed) {
		t.Errorf("closed test card: expected ErrClosed, got %v", err)
	}
	if frame != nil {
		t.Errorf("closed test card must not hand out a frame, got %T", frame)
	}
}

func TestTestCardSource(t *testing.T) {
	src := NewTestCardSource("clip-42", 320, 180)
	defer src.Close()

	meta, err := src.Ready(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if meta.Width != 320 || meta.Height != 180 {
		t.Errorf("metadata: expected 320x180, got %dx%d", meta.Width, meta.Height)
	}

	frame, err := src.Frame(0)
	if err != nil {
		t.Fatal(err)
	}
	rgba, ok := frame.(*image.RGBA)
	if !ok {
		t.Fatalf("expected *image.RGBA frame, got %T", frame)
	}

	// Top-left sits inside the first bar, which is gray, not background.
	if got := rgba.RGBAAt(5, 5); got == (color.RGBA{R: 16, G: 16, B: 16, A: 255}) {
		t.Errorf("expected color bar at top-left, got background %v", got)
	}
}

func TestTestCardSourceDefaultSize(t *testing.T) {
	src := NewTestCardSource("x", 0, 0)
	meta, err := src.Ready(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if meta.Width != 640 || meta.Height != 360 {
		t.Errorf("zero size must default to 640x360, got %dx%d", meta.Width, meta.Height)
	}
}

func TestDocumentSourceMissingFile(t *testing.T) {
	src := NewDocumentSource(filepath.Join(t.TempDir(), "absent.pdf"), 0, 150)
	if _, err := src.Ready(context.Background()); err == nil {
		t.Error("expected error for missing document")
	}
}
