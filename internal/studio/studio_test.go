package studio

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"reflect"
	"testing"
	"time"

	"github.com/ivlev/framestudio/internal/clip"
	"github.com/ivlev/framestudio/internal/timecode"
	"github.com/ivlev/framestudio/internal/timeline"
)

type stubSource struct {
	w, h   int
	color  color.RGBA
	closed bool
}

func (s *stubSource) Ready(ctx context.Context) (clip.Metadata, error) {
	if s.closed {
		return clip.Metadata{}, errors.New("source closed")
	}
	return clip.Metadata{Width: s.w, Height: s.h}, nil
}

func (s *stubSource) Frame(rel timecode.Micros) (image.Image, error) {
	if s.closed {
		return nil, errors.New("source closed")
	}
	img := image.NewRGBA(image.Rect(0, 0, s.w, s.h))
	draw.Draw(img, img.Bounds(), image.NewUniform(s.color), image.Point{}, draw.Src)
	return img, nil
}

func (s *stubSource) Close() error {
	s.closed = true
	return nil
}

func newStudio(t *testing.T) *Studio {
	t.Helper()
	settings := timeline.DefaultSettings()
	settings.Width = 64
	settings.Height = 64
	s := New(settings)
	t.Cleanup(s.Close)
	return s
}

func visibleClip(c color.RGBA) *clip.Clip {
	cl := clip.New(clip.TypeImage)
	cl.Geometry.Width = 64
	cl.Geometry.Height = 64
	cl.Display = timecode.Window{From: 0, To: 10 * timecode.PerSecond}
	cl.SetSource(&stubSource{w: 64, h: 64, color: c})
	return cl
}

func TestUndoRestoresExactState(t *testing.T) {
	s := newStudio(t)

	cl := visibleClip(color.RGBA{R: 200, A: 255})
	if err := s.AddClip(cl, ""); err != nil {
		t.Fatal(err)
	}
	before, err := s.exportState()
	if err != nil {
		t.Fatal(err)
	}

	left := 42.0
	if err := s.UpdateClip(cl.ID, clip.Update{Left: &left}); err != nil {
		t.Fatal(err)
	}
	if err := s.Undo(); err != nil {
		t.Fatal(err)
	}

	after, err := s.exportState()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(before, after) {
		t.Error("undo did not restore the exact pre-edit state")
	}
	if got, _ := s.Timeline().GetClipByID(cl.ID); got.Geometry.Left != 0 {
		t.Errorf("geometry not rolled back: %v", got.Geometry.Left)
	}

	if err := s.Redo(); err != nil {
		t.Fatal(err)
	}
	if got, _ := s.Timeline().GetClipByID(cl.ID); got.Geometry.Left != 42 {
		t.Errorf("redo not applied: %v", got.Geometry.Left)
	}
}

func TestUndoKeepsSurvivingClipSources(t *testing.T) {
	s := newStudio(t)

	cl := visibleClip(color.RGBA{R: 200, A: 255})
	src := cl.Source()
	if err := s.AddClip(cl, ""); err != nil {
		t.Fatal(err)
	}
	left := 12.0
	if err := s.UpdateClip(cl.ID, clip.Update{Left: &left}); err != nil {
		t.Fatal(err)
	}
	if err := s.Undo(); err != nil {
		t.Fatal(err)
	}

	got, ok := s.Timeline().GetClipByID(cl.ID)
	if !ok {
		t.Fatal("clip missing after undo")
	}
	if got.Source() == nil {
		t.Fatal("undo of a property edit must not detach the clip's source")
	}
	if got.Source() != src {
		t.Error("undo must hand the same source instance to the reloaded clip")
	}
	if frame := s.CurrentFrame(); frame == nil || frame.Image.RGBAAt(32, 32).R == 0 {
		t.Error("clip should still render after undo")
	}

	if err := s.Redo(); err != nil {
		t.Fatal(err)
	}
	if got, _ := s.Timeline().GetClipByID(cl.ID); got.Source() != src {
		t.Error("redo must keep the source attached")
	}
}

func TestNonPermanentRemovalKeepsResources(t *testing.T) {
	s := newStudio(t)

	cl := visibleClip(color.RGBA{G: 200, A: 255})
	src := cl.Source()
	if err := s.AddClip(cl, ""); err != nil {
		t.Fatal(err)
	}
	if s.cache.Len() != 1 {
		t.Fatalf("expected one cached texture after first compose, got %d", s.cache.Len())
	}

	if err := s.RemoveClip(cl.ID, false); err != nil {
		t.Fatal(err)
	}
	if s.cache.Len() != 1 {
		t.Errorf("non-permanent removal must keep the texture, got %d", s.cache.Len())
	}

	if err := s.Undo(); err != nil {
		t.Fatal(err)
	}
	restored, ok := s.Timeline().GetClipByID(cl.ID)
	if !ok {
		t.Fatal("clip not back after undo")
	}
	if restored.Source() != src {
		t.Error("undo must reattach the original source instance")
	}
	if s.cache.Len() != 1 {
		t.Errorf("undo of removal must neither leak nor duplicate textures, got %d", s.cache.Len())
	}
}

func TestPermanentRemovalDestroysTexture(t *testing.T) {
	s := newStudio(t)

	cl := visibleClip(color.RGBA{B: 200, A: 255})
	if err := s.AddClip(cl, ""); err != nil {
		t.Fatal(err)
	}
	if err := s.RemoveClip(cl.ID, true); err != nil {
		t.Fatal(err)
	}
	if s.cache.Len() != 0 {
		t.Errorf("permanent removal must destroy the texture, got %d", s.cache.Len())
	}
}

func TestGroupedEditsAreOneStep(t *testing.T) {
	s := newStudio(t)

	cl := visibleClip(color.RGBA{R: 200, A: 255})
	if err := s.AddClip(cl, ""); err != nil {
		t.Fatal(err)
	}
	before, err := s.exportState()
	if err != nil {
		t.Fatal(err)
	}

	s.BeginGroup()
	for _, left := range []float64{10, 20, 30} {
		v := left
		if err := s.UpdateClip(cl.ID, clip.Update{Left: &v}); err != nil {
			t.Fatal(err)
		}
	}
	s.EndGroup()

	if err := s.Undo(); err != nil {
		t.Fatal(err)
	}
	after, err := s.exportState()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(before, after) {
		t.Error("one undo should revert the whole group")
	}
	if s.hist.CanRedo() != true {
		t.Error("group should be a single redoable step")
	}
}

func TestSplitClip(t *testing.T) {
	s := newStudio(t)

	cl := visibleClip(color.RGBA{R: 200, A: 255})
	cl.Display = timecode.Window{From: 2 * timecode.PerSecond, To: 10 * timecode.PerSecond}
	if err := s.AddClip(cl, ""); err != nil {
		t.Fatal(err)
	}

	right, err := s.SplitClip(cl.ID, 6*timecode.PerSecond)
	if err != nil {
		t.Fatal(err)
	}
	if right.ID == cl.ID {
		t.Error("right half must get a fresh id")
	}
	if cl.Display.To != 6*timecode.PerSecond {
		t.Errorf("left half end: %v", cl.Display.To)
	}
	if right.Display.From != 6*timecode.PerSecond || right.Display.To != 10*timecode.PerSecond {
		t.Errorf("right half window: %+v", right.Display)
	}
	if right.Trim.From != 4*timecode.PerSecond {
		t.Errorf("right half trim offset: %v", right.Trim.From)
	}

	// The split is a single history step.
	if err := s.Undo(); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Timeline().GetClipByID(right.ID); ok {
		t.Error("split should undo as one step")
	}
	restored, ok := s.Timeline().GetClipByID(cl.ID)
	if !ok {
		t.Fatal("original clip missing after undo")
	}
	if restored.Display.To != 10*timecode.PerSecond {
		t.Errorf("left half not restored: %v", restored.Display.To)
	}

	if _, err := s.SplitClip(cl.ID, timecode.PerSecond); err == nil {
		t.Error("split outside the display window should fail")
	}
}

func TestDuplicateClip(t *testing.T) {
	s := newStudio(t)

	cl := visibleClip(color.RGBA{R: 200, A: 255})
	if err := s.AddClip(cl, ""); err != nil {
		t.Fatal(err)
	}
	dup, err := s.DuplicateClip(cl.ID)
	if err != nil {
		t.Fatal(err)
	}
	if dup.ID == cl.ID {
		t.Error("duplicate must get a fresh id")
	}
	trackA, _ := s.Timeline().FindTrackIDByClipID(cl.ID)
	trackB, _ := s.Timeline().FindTrackIDByClipID(dup.ID)
	if trackA != trackB {
		t.Error("duplicate should land on the same track")
	}
}

func TestRemovingDuplicateKeepsSharedSource(t *testing.T) {
	s := newStudio(t)

	cl := visibleClip(color.RGBA{R: 200, A: 255})
	src := cl.Source().(*stubSource)
	if err := s.AddClip(cl, ""); err != nil {
		t.Fatal(err)
	}
	dup, err := s.DuplicateClip(cl.ID)
	if err != nil {
		t.Fatal(err)
	}

	if err := s.RemoveClip(dup.ID, true); err != nil {
		t.Fatal(err)
	}
	if src.closed {
		t.Fatal("removing one holder must not close a source the original still uses")
	}
	if frame := s.CurrentFrame(); frame == nil || frame.Image.RGBAAt(32, 32).R == 0 {
		t.Error("original clip should still render after the duplicate is gone")
	}

	if err := s.RemoveClip(cl.ID, true); err != nil {
		t.Fatal(err)
	}
	if !src.closed {
		t.Error("the last holder leaving must close the source")
	}
}

func TestEventsFanOut(t *testing.T) {
	s := newStudio(t)
	ch := s.Subscribe()

	cl := visibleClip(color.RGBA{R: 200, A: 255})
	if err := s.AddClip(cl, ""); err != nil {
		t.Fatal(err)
	}

	kinds := map[string]Event{}
	deadline := time.After(time.Second)
	for len(kinds) < 3 {
		select {
		case ev := <-ch:
			kinds[ev.Kind] = ev
		case <-deadline:
			t.Fatalf("timed out waiting for events, got %v", kinds)
		}
	}
	if _, ok := kinds[string(timeline.EventClipAdded)]; !ok {
		t.Error("expected clip:added")
	}
	if _, ok := kinds[string(timeline.EventTrackAdded)]; !ok {
		t.Error("expected track:added for the auto-created track")
	}
	hc, ok := kinds[EventHistoryChanged]
	if !ok {
		t.Fatal("expected history:changed")
	}
	if !hc.CanUndo || hc.CanRedo {
		t.Errorf("history flags: %+v", hc)
	}
}

func TestCloseDuringEventFanOut(t *testing.T) {
	settings := timeline.DefaultSettings()
	settings.Width = 64
	settings.Height = 64
	s := New(settings)
	s.Subscribe()

	cl := visibleClip(color.RGBA{R: 200, A: 255})
	if err := s.AddClip(cl, ""); err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			s.Seek(timecode.Micros(i) * timecode.PerMilli)
		}
	}()
	s.Close()
	<-done

	// Emissions after Close are swallowed, never a send on a closed
	// channel.
	s.Seek(timecode.PerSecond)
}

func TestSeekRecomposes(t *testing.T) {
	s := newStudio(t)

	cl := visibleClip(color.RGBA{R: 200, A: 255})
	cl.Display = timecode.Window{From: 5 * timecode.PerSecond, To: 10 * timecode.PerSecond}
	if err := s.AddClip(cl, ""); err != nil {
		t.Fatal(err)
	}
	if got := s.CurrentFrame().Image.RGBAAt(32, 32); got.R != 0 {
		t.Errorf("clip should be hidden at t=0, got %v", got)
	}

	s.Seek(7 * timecode.PerSecond)
	if s.CurrentTime() != 7*timecode.PerSecond {
		t.Errorf("playhead: %v", s.CurrentTime())
	}
	if got := s.CurrentFrame().Image.RGBAAt(32, 32); got.R == 0 {
		t.Errorf("clip should be visible after seek, got %v", got)
	}
	if s.Playing() {
		t.Error("seek must not start playback")
	}
}

func TestRenderAtDoesNotMovePlayhead(t *testing.T) {
	s := newStudio(t)

	cl := visibleClip(color.RGBA{R: 200, A: 255})
	cl.Display = timecode.Window{From: 5 * timecode.PerSecond, To: 10 * timecode.PerSecond}
	if err := s.AddClip(cl, ""); err != nil {
		t.Fatal(err)
	}

	frame, err := s.RenderAt(context.Background(), 7*timecode.PerSecond)
	if err != nil {
		t.Fatal(err)
	}
	if got := frame.Image.RGBAAt(32, 32); got.R == 0 {
		t.Errorf("expected clip visible in off-playhead render, got %v", got)
	}
	if s.CurrentTime() != 0 {
		t.Errorf("RenderAt moved the playhead to %v", s.CurrentTime())
	}
}

func TestProjectRoundTrip(t *testing.T) {
	s := newStudio(t)

	cl := visibleClip(color.RGBA{R: 200, A: 255})
	if err := s.AddClip(cl, ""); err != nil {
		t.Fatal(err)
	}
	data, err := s.SaveProject()
	if err != nil {
		t.Fatal(err)
	}

	s2 := newStudio(t)
	if err := s2.LoadProject(data); err != nil {
		t.Fatal(err)
	}
	got, ok := s2.Timeline().GetClipByID(cl.ID)
	if !ok {
		t.Fatal("clip missing after load")
	}
	if got.Display != cl.Display {
		t.Errorf("display window: %+v", got.Display)
	}
	if s2.hist.CanUndo() {
		t.Error("loading a project must reset history")
	}
}
