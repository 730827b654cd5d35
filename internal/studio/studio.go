// Package studio is the session façade: one object owning the timeline,
// composer, history, render caches and the playback clock, exposing the
// mutation entry points the embedding application calls and fanning out
// change events.
package studio

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ivlev/framestudio/internal/animation"
	"github.com/ivlev/framestudio/internal/clip"
	"github.com/ivlev/framestudio/internal/composer"
	"github.com/ivlev/framestudio/internal/history"
	"github.com/ivlev/framestudio/internal/logging"
	"github.com/ivlev/framestudio/internal/render"
	"github.com/ivlev/framestudio/internal/timecode"
	"github.com/ivlev/framestudio/internal/timeline"
	"github.com/ivlev/framestudio/internal/transport"
)

// Event kinds beyond the timeline's own.
const (
	EventCurrentTime    = "currentTime"
	EventPlay           = "play"
	EventPause          = "pause"
	EventHistoryChanged = "history:changed"
	EventRestored       = "studio:restored"
)

// Event is the studio-level notification fanned out to subscribers.
type Event struct {
	Kind    string
	ClipID  string
	TrackID string
	Time    timecode.Micros
	CanUndo bool
	CanRedo bool
}

// Studio owns one editing session. Entry points are safe for concurrent
// use: opMu serializes timeline mutation and composition, which keeps
// the composer on its single-driver contract while the clock goroutine
// ticks.
type Studio struct {
	opMu  sync.Mutex
	tl    *timeline.Timeline
	comp  *composer.Composer
	hist  *history.History
	clock *transport.Clock
	reg   *render.Registry
	cache *render.TextureCache
	pool  *render.FramePool
	log   zerolog.Logger

	mu        sync.Mutex
	subs      []chan Event
	lastFrame *composer.Frame
	closed    bool
}

// New builds a session around the given canvas settings.
func New(settings timeline.Settings) *Studio {
	pool := render.NewFramePool()
	cache := render.NewTextureCache(pool)
	tl := timeline.New(settings, animation.NewPresetRegistry())

	s := &Studio{
		tl:    tl,
		hist:  history.New(),
		reg:   render.NewRegistry(),
		cache: cache,
		pool:  pool,
		log:   logging.WithComponent("studio"),
	}
	s.comp = composer.New(tl, s.reg, cache, pool)
	s.clock = transport.NewClock(settings.FPS, s.onTick)
	s.clock.Start()

	if state, err := s.exportState(); err == nil {
		s.hist.Init(state)
	}
	return s
}

// Timeline exposes read access to the model.
func (s *Studio) Timeline() *timeline.Timeline { return s.tl }

// Composer exposes the frame pipeline, mainly for edit-mode toggles.
func (s *Studio) Composer() *composer.Composer { return s.comp }

// Registry exposes the renderer registry for custom registrations.
func (s *Studio) Registry() *render.Registry { return s.reg }

// Close stops the clock and closes every subscription channel.
func (s *Studio) Close() {
	s.clock.Stop()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for _, ch := range s.subs {
		close(ch)
	}
	s.subs = nil
}

// Subscribe returns a buffered event channel. Slow consumers drop
// events rather than stall the engine.
func (s *Studio) Subscribe() <-chan Event {
	ch := make(chan Event, 64)
	s.mu.Lock()
	s.subs = append(s.subs, ch)
	s.mu.Unlock()
	return ch
}

// emit fans out under mu. Sends never block, so holding the lock is
// cheap and keeps Close from closing a channel mid-fanout.
func (s *Studio) emit(events ...Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	for _, ev := range events {
		for _, ch := range s.subs {
			select {
			case ch <- ev:
			default:
				s.log.Debug().Str("kind", ev.Kind).Msg("subscriber full, event dropped")
			}
		}
	}
}

func fromTimeline(events []timeline.Event) []Event {
	out := make([]Event, len(events))
	for i, ev := range events {
		out[i] = Event{Kind: string(ev.Kind), ClipID: ev.ClipID, TrackID: ev.TrackID}
	}
	return out
}

// --- mutation entry points -----------------------------------------------

// AddClip places a clip and records the edit.
func (s *Studio) AddClip(c *clip.Clip, trackID string) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	return s.addClip(c, trackID)
}

func (s *Studio) addClip(c *clip.Clip, trackID string) error {
	events, err := s.tl.AddClip(c, trackID)
	if err != nil {
		return err
	}
	s.afterMutation(fromTimeline(events))
	return nil
}

// RemoveClip detaches a clip. Permanent removal releases the clip's
// source and destroys its texture; non-permanent removal keeps both so
// an undo re-adds the same instance without resource churn.
func (s *Studio) RemoveClip(id string, permanent bool) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if !permanent {
		if c, ok := s.tl.GetClipByID(id); ok {
			s.hist.CacheClip(c)
		}
	}
	events, err := s.tl.RemoveClip(id, permanent)
	if err != nil {
		return err
	}
	if permanent {
		s.cache.Destroy(id)
	}
	s.afterMutation(fromTimeline(events))
	return nil
}

// UpdateClip merges a partial update.
func (s *Studio) UpdateClip(id string, u clip.Update) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	return s.updateClip(id, u)
}

func (s *Studio) updateClip(id string, u clip.Update) error {
	events, err := s.tl.UpdateClip(id, u)
	if err != nil {
		return err
	}
	s.afterMutation(fromTimeline(events))
	return nil
}

// MoveClip reassigns a clip to another track.
func (s *Studio) MoveClip(clipID, trackID string) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	events, err := s.tl.MoveClip(clipID, trackID)
	if err != nil {
		return err
	}
	s.afterMutation(fromTimeline(events))
	return nil
}

// AddTrack appends a track.
func (s *Studio) AddTrack(name, trackType string) *timeline.Track {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	track, ev := s.tl.AddTrack(name, trackType)
	s.afterMutation(fromTimeline([]timeline.Event{ev}))
	return track
}

// RemoveTrack drops a track and its clips.
func (s *Studio) RemoveTrack(trackID string, permanent bool) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	track := s.trackByID(trackID)
	if permanent && track != nil {
		for _, clipID := range track.ClipIDs {
			s.cache.Destroy(clipID)
		}
	}
	events, err := s.tl.RemoveTrack(trackID, permanent)
	if err != nil {
		return err
	}
	s.afterMutation(fromTimeline(events))
	return nil
}

func (s *Studio) trackByID(trackID string) *timeline.Track {
	for _, tr := range s.tl.Tracks() {
		if tr.ID == trackID {
			return tr
		}
	}
	return nil
}

// MoveTrack changes one track's position.
func (s *Studio) MoveTrack(trackID string, newIndex int) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	events, err := s.tl.MoveTrack(trackID, newIndex)
	if err != nil {
		return err
	}
	s.afterMutation(fromTimeline(events))
	return nil
}

// SetTrackOrder replaces the full track ordering.
func (s *Studio) SetTrackOrder(ids []string) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	events, err := s.tl.SetTrackOrder(ids)
	if err != nil {
		return err
	}
	s.afterMutation(fromTimeline(events))
	return nil
}

// SetTransition registers a pairing between two clips.
func (s *Studio) SetTransition(tr *clip.Transition) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if err := s.tl.SetTransition(tr); err != nil {
		return err
	}
	s.afterMutation(nil)
	return nil
}

// RemoveTransition drops a pairing and its cached blend target.
func (s *Studio) RemoveTransition(key string) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.tl.RemoveTransition(key)
	s.cache.DestroyPair(key)
	s.afterMutation(nil)
}

// SplitClip cuts a clip at a timeline position. The original keeps its
// id and becomes the left half; the right half is a new clip on the
// same track. The whole edit is one undo step.
func (s *Studio) SplitClip(id string, at timecode.Micros) (*clip.Clip, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	c, ok := s.tl.GetClipByID(id)
	if !ok {
		return nil, fmt.Errorf("split: %w: %s", timeline.ErrNoSuchClip, id)
	}
	if at <= c.Display.From || (c.Display.To > 0 && at >= c.Display.To) {
		return nil, fmt.Errorf("split point %v outside clip %s display window", at, id)
	}
	trackID, _ := s.tl.FindTrackIDByClipID(id)
	offset := at - c.Display.From

	right := c.Clone()
	right.ID = uuid.New().String()
	right.Display = timecode.Window{From: at, To: c.Display.To}
	rate := c.PlaybackRate
	if rate <= 0 {
		rate = 1
	}
	right.Trim.From = c.Trim.From + timecode.Micros(float64(offset)*rate)
	if right.Duration > offset {
		right.Duration -= offset
	}

	s.beginGroup()
	leftWindow := timecode.Window{From: c.Display.From, To: at}
	dur := c.Duration
	if dur == 0 || dur > offset {
		dur = offset
	}
	if err := s.updateClip(id, clip.Update{Display: &leftWindow, Duration: &dur}); err != nil {
		s.endGroup()
		return nil, err
	}
	if err := s.addClip(right, trackID); err != nil {
		s.endGroup()
		return nil, err
	}
	s.endGroup()
	return right, nil
}

// DuplicateClip copies a clip onto its own track under a fresh id.
func (s *Studio) DuplicateClip(id string) (*clip.Clip, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	c, ok := s.tl.GetClipByID(id)
	if !ok {
		return nil, fmt.Errorf("duplicate: %w: %s", timeline.ErrNoSuchClip, id)
	}
	trackID, _ := s.tl.FindTrackIDByClipID(id)

	dup := c.Clone()
	dup.ID = uuid.New().String()
	if err := s.addClip(dup, trackID); err != nil {
		return nil, err
	}
	return dup, nil
}

// BeginGroup opens a compound edit: history collapses everything until
// the matching EndGroup into one step, and composition is suspended so
// no partial state is drawn.
func (s *Studio) BeginGroup() {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.beginGroup()
}

// EndGroup closes a compound edit and recomposes.
func (s *Studio) EndGroup() {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.endGroup()
}

func (s *Studio) beginGroup() {
	s.hist.BeginGroup()
	s.comp.Suspend()
}

func (s *Studio) endGroup() {
	s.comp.Resume()
	if state, err := s.exportState(); err == nil {
		s.hist.EndGroup(state)
	} else {
		s.log.Error().Err(err).Msg("snapshot failed on endGroup")
	}
	s.composeLocked(s.clock.Current())
	s.emitHistoryChanged()
}

// afterMutation is the shared tail of every edit: snapshot, recompose,
// fan out. Callers hold opMu.
func (s *Studio) afterMutation(events []Event) {
	if state, err := s.exportState(); err == nil {
		s.hist.Push(state)
	} else {
		s.log.Error().Err(err).Msg("snapshot failed, edit not recorded")
	}
	s.composeLocked(s.clock.Current())
	s.emit(events...)
	s.emitHistoryChanged()
}

func (s *Studio) exportState() (history.ProjectState, error) {
	p, err := s.tl.ExportJSON()
	if err != nil {
		return history.ProjectState{}, err
	}
	return history.StateOf(p)
}

func (s *Studio) emitHistoryChanged() {
	s.emit(Event{Kind: EventHistoryChanged, CanUndo: s.hist.CanUndo(), CanRedo: s.hist.CanRedo()})
}

// --- history -------------------------------------------------------------

// Undo steps the project back one edit. A no-op when nothing to undo.
func (s *Studio) Undo() error { return s.restore(true) }

// Redo steps the project forward one edit.
func (s *Studio) Redo() error { return s.restore(false) }

func (s *Studio) restore(back bool) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	current, err := s.exportState()
	if err != nil {
		return err
	}
	var r *history.Restore
	if back {
		r = s.hist.Undo(current)
	} else {
		r = s.hist.Redo(current)
	}
	if r == nil {
		return nil
	}

	// Patch application against the current state validates the diff;
	// restore failures must leave the live timeline and the history
	// index untouched.
	if _, err := history.Apply(current, r.Patches); err != nil {
		s.hist.Abort()
		return fmt.Errorf("history restore: %w", err)
	}
	project, err := r.State.Project()
	if err != nil {
		s.hist.Abort()
		return fmt.Errorf("history restore: %w", err)
	}
	prev := s.tl.Clips()
	if err := s.tl.LoadJSON(project); err != nil {
		s.hist.Abort()
		return fmt.Errorf("history restore: %w", err)
	}
	s.hist.Complete()
	s.reattach(prev)

	s.composeLocked(s.clock.Current())
	s.emit(Event{Kind: EventRestored})
	s.emitHistoryChanged()
	return nil
}

// reattach hands sources and playback handles over to the reloaded clip
// instances: from the pre-restore survivors first, then from clips
// cached at removal time, so no restore re-acquires live resources.
// Survivors absent from the reloaded tree keep their resources in the
// clip cache, where the opposite restore direction picks them up.
func (s *Studio) reattach(prev map[string]*clip.Clip) {
	for id, old := range prev {
		if _, ok := s.tl.GetClipByID(id); !ok && old.Source() != nil {
			s.hist.CacheClip(old)
		}
	}
	for id, c := range s.tl.Clips() {
		if c.Source() != nil {
			continue
		}
		if old, ok := prev[id]; ok && old.Source() != nil {
			c.SetSource(old.Source())
			c.SetPlayback(old.PlaybackHandle())
			continue
		}
		if cached, ok := s.hist.TakeClip(id); ok {
			c.SetSource(cached.Source())
			c.SetPlayback(cached.PlaybackHandle())
		}
	}
}

// --- playback ------------------------------------------------------------

// Play starts the transport and active media playback.
func (s *Studio) Play() {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.clock.Play()
	ts := s.clock.Current()
	s.eachPlayback(func(pb clip.Playback, c *clip.Clip) error {
		return pb.Play(c.SourceTime(ts))
	})
	s.emit(Event{Kind: EventPlay, Time: ts})
}

// Pause freezes the transport and media playback.
func (s *Studio) Pause() {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.clock.Pause()
	s.eachPlayback(func(pb clip.Playback, c *clip.Clip) error {
		return pb.Pause()
	})
	s.emit(Event{Kind: EventPause, Time: s.clock.Current()})
}

// Seek jumps the playhead and recomposes immediately.
func (s *Studio) Seek(ts timecode.Micros) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.clock.Seek(ts)
	s.eachPlayback(func(pb clip.Playback, c *clip.Clip) error {
		return pb.Seek(c.SourceTime(ts))
	})
	s.composeLocked(s.clock.Current())
	s.emit(Event{Kind: EventCurrentTime, Time: s.clock.Current()})
}

// Playing reports the transport state.
func (s *Studio) Playing() bool { return s.clock.Playing() }

// CurrentTime returns the playhead position.
func (s *Studio) CurrentTime() timecode.Micros { return s.clock.Current() }

func (s *Studio) eachPlayback(f func(pb clip.Playback, c *clip.Clip) error) {
	for _, c := range s.tl.Clips() {
		if pb := c.PlaybackHandle(); pb != nil {
			if err := f(pb, c); err != nil {
				s.log.Warn().Err(err).Str("clip", c.ID).Msg("playback control failed")
			}
		}
	}
}

func (s *Studio) onTick(ts timecode.Micros) {
	s.opMu.Lock()
	s.composeLocked(ts)
	s.opMu.Unlock()
	s.emit(Event{Kind: EventCurrentTime, Time: ts})
}

// --- frames --------------------------------------------------------------

func (s *Studio) composeLocked(ts timecode.Micros) {
	frame, err := s.comp.UpdateFrame(context.Background(), ts)
	if err != nil {
		s.log.Error().Err(err).Msg("composition failed")
		return
	}
	if frame == nil {
		return
	}
	s.mu.Lock()
	s.lastFrame = frame
	s.mu.Unlock()
}

// CurrentFrame returns the most recent composite, nil before the first.
func (s *Studio) CurrentFrame() *composer.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastFrame
}

// RenderAt composes a frame for an arbitrary timestamp without moving
// the playhead.
func (s *Studio) RenderAt(ctx context.Context, ts timecode.Micros) (*composer.Frame, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	frame, err := s.comp.UpdateFrame(ctx, ts)
	if err != nil {
		return nil, err
	}
	if frame == nil {
		return nil, fmt.Errorf("composition superseded or suspended")
	}
	return frame, nil
}

// --- persistence ---------------------------------------------------------

// SaveProject serializes the session.
func (s *Studio) SaveProject() ([]byte, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	return s.tl.Encode()
}

// LoadProject replaces the session contents and resets history and
// texture state.
func (s *Studio) LoadProject(data []byte) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if err := s.tl.Decode(data); err != nil {
		return err
	}
	s.cache.Reset()
	if state, err := s.exportState(); err == nil {
		s.hist.Init(state)
	}
	s.composeLocked(s.clock.Current())
	s.emit(Event{Kind: EventRestored})
	s.emitHistoryChanged()
	return nil
}
