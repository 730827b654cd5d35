// Package timeline owns the canonical project state: tracks, clip
// storage, transitions and settings. Tracks hold id lists only; every
// cross-reference is resolved by lookup, never by back-pointer.
package timeline

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ivlev/framestudio/internal/animation"
	"github.com/ivlev/framestudio/internal/clip"
	"github.com/ivlev/framestudio/internal/logging"
	"github.com/ivlev/framestudio/internal/timecode"
)

// ErrNoSuchClip marks operations against a clip id that is no longer
// present. Mutators treat it as a warning-level no-op because interactive
// edit-and-delete races are expected; queries return it to the caller.
var ErrNoSuchClip = fmt.Errorf("no such clip")

// ErrNoSuchTrack is the track-side counterpart of ErrNoSuchClip.
var ErrNoSuchTrack = fmt.Errorf("no such track")

// Settings are the project-level options serialized with the timeline.
type Settings struct {
	Width   int     `json:"width"`
	Height  int     `json:"height"`
	FPS     float64 `json:"fps"`
	BgColor string  `json:"bgColor,omitempty"`
}

// DefaultSettings returns the canvas defaults for a new project.
func DefaultSettings() Settings {
	return Settings{Width: 1280, Height: 720, FPS: 30, BgColor: "#000000"}
}

// Timeline is the single owner of clip and track membership.
type Timeline struct {
	tracks      []*Track
	clips       map[string]*clip.Clip
	trackByClip map[string]string
	transitions map[string]*clip.Transition
	settings    Settings
	presets     *animation.PresetRegistry
	log         zerolog.Logger
}

// New creates an empty timeline. The preset registry is used when
// deserializing clip animations.
func New(settings Settings, presets *animation.PresetRegistry) *Timeline {
	if presets == nil {
		presets = animation.NewPresetRegistry()
	}
	return &Timeline{
		clips:       make(map[string]*clip.Clip),
		trackByClip: make(map[string]string),
		transitions: make(map[string]*clip.Transition),
		settings:    settings,
		presets:     presets,
		log:         logging.WithComponent("timeline"),
	}
}

// Settings returns the project settings.
func (t *Timeline) Settings() Settings { return t.settings }

// SetSettings replaces the project settings.
func (t *Timeline) SetSettings(s Settings) { t.settings = s }

// Presets exposes the animation preset registry used for loading.
func (t *Timeline) Presets() *animation.PresetRegistry { return t.presets }

// Tracks returns the track list in z-priority order (index 0 in front).
func (t *Timeline) Tracks() []*Track { return t.tracks }

// TrackIndex returns the position of a track, -1 when absent.
func (t *Timeline) TrackIndex(trackID string) int {
	for i, tr := range t.tracks {
		if tr.ID == trackID {
			return i
		}
	}
	return -1
}

// GetClipByID resolves a clip. O(1).
func (t *Timeline) GetClipByID(id string) (*clip.Clip, bool) {
	c, ok := t.clips[id]
	return c, ok
}

// FindTrackIDByClipID resolves clip membership. O(1); the index is
// maintained incrementally by the mutators.
func (t *Timeline) FindTrackIDByClipID(clipID string) (string, bool) {
	id, ok := t.trackByClip[clipID]
	return id, ok
}

// Clips returns every stored clip keyed by id. The map is the canonical
// storage; callers must not mutate membership through it.
func (t *Timeline) Clips() map[string]*clip.Clip { return t.clips }

// AddTrack appends a new track at the back of the stack.
func (t *Timeline) AddTrack(name, trackType string) (*Track, Event) {
	tr := &Track{ID: uuid.New().String(), Name: name, Type: trackType}
	t.tracks = append(t.tracks, tr)
	return tr, Event{Kind: EventTrackAdded, TrackID: tr.ID}
}

// defaultTrack returns the first track, creating one when none exists.
func (t *Timeline) defaultTrack() *Track {
	if len(t.tracks) == 0 {
		tr, _ := t.AddTrack("Track 1", "main")
		return tr
	}
	return t.tracks[0]
}

// AddClip assigns clips to a track, creating a default track when no
// track id is given. Re-adding an existing id is skipped, not duplicated;
// history replay relies on that idempotency.
func (t *Timeline) AddClip(c *clip.Clip, trackID string) ([]Event, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if _, exists := t.clips[c.ID]; exists {
		t.log.Debug().Str("clip", c.ID).Msg("clip already present, skipping add")
		return nil, nil
	}

	var events []Event
	var target *Track
	if trackID == "" {
		if len(t.tracks) == 0 {
			tr, ev := t.AddTrack("Track 1", "main")
			events = append(events, ev)
			target = tr
		} else {
			target = t.defaultTrack()
		}
	} else {
		idx := t.TrackIndex(trackID)
		if idx < 0 {
			return nil, fmt.Errorf("track %s: %w", trackID, ErrNoSuchTrack)
		}
		target = t.tracks[idx]
	}

	t.clips[c.ID] = c
	target.ClipIDs = append(target.ClipIDs, c.ID)
	t.trackByClip[c.ID] = target.ID
	if c.Transition != nil {
		t.transitions[c.Transition.Key()] = c.Transition
	}

	events = append(events, Event{Kind: EventClipAdded, ClipID: c.ID, TrackID: target.ID})
	return events, nil
}

// RemoveClip detaches a clip from its track. Permanent removal releases
// the clip's resources; non-permanent removal keeps them alive because
// history may re-add the same instance immediately.
func (t *Timeline) RemoveClip(clipID string, permanent bool) ([]Event, error) {
	c, ok := t.clips[clipID]
	if !ok {
		t.log.Warn().Str("clip", clipID).Msg("remove of unknown clip ignored")
		return nil, nil
	}

	trackID := t.trackByClip[clipID]
	if idx := t.TrackIndex(trackID); idx >= 0 {
		t.tracks[idx].remove(clipID)
	}
	delete(t.clips, clipID)
	delete(t.trackByClip, clipID)

	if c.Transition != nil {
		delete(t.transitions, c.Transition.Key())
	}
	if permanent {
		// Split and duplicate clips share one source instance; close it
		// only when the last holder leaves.
		if t.sourceShared(c) {
			c.DetachResources()
		} else {
			c.ReleaseResources()
		}
	}

	return []Event{{Kind: EventClipRemoved, ClipID: clipID, TrackID: trackID}}, nil
}

func (t *Timeline) sourceShared(c *clip.Clip) bool {
	src := c.Source()
	if src == nil {
		return false
	}
	for _, other := range t.clips {
		if other.Source() == src {
			return true
		}
	}
	return false
}

// UpdateClip merges a partial update onto a clip through its single
// mutation entry point. Updating a missing clip is a warned no-op.
func (t *Timeline) UpdateClip(clipID string, u clip.Update) ([]Event, error) {
	c, ok := t.clips[clipID]
	if !ok {
		t.log.Warn().Str("clip", clipID).Msg("update of unknown clip ignored")
		return nil, nil
	}
	// Rehearse the merge on a copy so a rejected update leaves the live
	// clip untouched.
	cand := c.Clone()
	if !cand.ApplyUpdate(u) {
		return nil, nil
	}
	if err := cand.Validate(); err != nil {
		return nil, err
	}
	c.ApplyUpdate(u)
	return []Event{{Kind: EventClipUpdated, ClipID: clipID, TrackID: t.trackByClip[clipID]}}, nil
}

// MoveClip reassigns a clip to another track.
func (t *Timeline) MoveClip(clipID, trackID string) ([]Event, error) {
	if _, ok := t.clips[clipID]; !ok {
		t.log.Warn().Str("clip", clipID).Msg("move of unknown clip ignored")
		return nil, nil
	}
	destIdx := t.TrackIndex(trackID)
	if destIdx < 0 {
		return nil, fmt.Errorf("track %s: %w", trackID, ErrNoSuchTrack)
	}
	if srcIdx := t.TrackIndex(t.trackByClip[clipID]); srcIdx >= 0 {
		t.tracks[srcIdx].remove(clipID)
	}
	t.tracks[destIdx].ClipIDs = append(t.tracks[destIdx].ClipIDs, clipID)
	t.trackByClip[clipID] = trackID
	return []Event{{Kind: EventClipUpdated, ClipID: clipID, TrackID: trackID}}, nil
}

// RemoveTrack drops a track and everything on it.
func (t *Timeline) RemoveTrack(trackID string, permanent bool) ([]Event, error) {
	idx := t.TrackIndex(trackID)
	if idx < 0 {
		return nil, fmt.Errorf("track %s: %w", trackID, ErrNoSuchTrack)
	}

	var events []Event
	for _, clipID := range append([]string(nil), t.tracks[idx].ClipIDs...) {
		evs, err := t.RemoveClip(clipID, permanent)
		if err != nil {
			return events, err
		}
		events = append(events, evs...)
	}
	idx = t.TrackIndex(trackID)
	t.tracks = append(t.tracks[:idx], t.tracks[idx+1:]...)
	events = append(events, Event{Kind: EventTrackRemoved, TrackID: trackID})
	return events, nil
}

// MoveTrack shifts a track to a new stack position, changing z-priority
// for every clip on the affected tracks.
func (t *Timeline) MoveTrack(trackID string, newIndex int) ([]Event, error) {
	idx := t.TrackIndex(trackID)
	if idx < 0 {
		return nil, fmt.Errorf("track %s: %w", trackID, ErrNoSuchTrack)
	}
	if newIndex < 0 {
		newIndex = 0
	}
	if newIndex >= len(t.tracks) {
		newIndex = len(t.tracks) - 1
	}
	if newIndex == idx {
		return nil, nil
	}

	tr := t.tracks[idx]
	t.tracks = append(t.tracks[:idx], t.tracks[idx+1:]...)
	t.tracks = append(t.tracks[:newIndex], append([]*Track{tr}, t.tracks[newIndex:]...)...)
	return []Event{{Kind: EventTrackOrderChanged, TrackID: trackID}}, nil
}

// SetTrackOrder reorders the whole stack. Every listed id must exist and
// every track must be listed exactly once.
func (t *Timeline) SetTrackOrder(ids []string) ([]Event, error) {
	if len(ids) != len(t.tracks) {
		return nil, fmt.Errorf("track order lists %d of %d tracks", len(ids), len(t.tracks))
	}
	ordered := make([]*Track, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		idx := t.TrackIndex(id)
		if idx < 0 {
			return nil, fmt.Errorf("track %s: %w", id, ErrNoSuchTrack)
		}
		if seen[id] {
			return nil, fmt.Errorf("track %s listed twice", id)
		}
		seen[id] = true
		ordered = append(ordered, t.tracks[idx])
	}
	t.tracks = ordered
	return []Event{{Kind: EventTrackOrderChanged}}, nil
}

// SetTransition registers a blend between two clips and mirrors the
// descriptor onto both endpoints so frame evaluation sees it locally.
func (t *Timeline) SetTransition(tr *clip.Transition) error {
	from, ok := t.clips[tr.FromClipID]
	if !ok {
		return fmt.Errorf("transition from %s: %w", tr.FromClipID, ErrNoSuchClip)
	}
	to, ok := t.clips[tr.ToClipID]
	if !ok {
		return fmt.Errorf("transition to %s: %w", tr.ToClipID, ErrNoSuchClip)
	}
	t.transitions[tr.Key()] = tr
	from.Transition = tr
	to.Transition = tr
	return nil
}

// RemoveTransition drops a pairing and clears both endpoints.
func (t *Timeline) RemoveTransition(key string) {
	tr, ok := t.transitions[key]
	if !ok {
		return
	}
	delete(t.transitions, key)
	if c, ok := t.clips[tr.FromClipID]; ok && c.Transition == tr {
		c.Transition = nil
	}
	if c, ok := t.clips[tr.ToClipID]; ok && c.Transition == tr {
		c.Transition = nil
	}
}

// Transitions returns the registered pairings keyed by pair key.
func (t *Timeline) Transitions() map[string]*clip.Transition { return t.transitions }

// Duration returns the end of the last display window on any track.
func (t *Timeline) Duration() timecode.Micros {
	var end timecode.Micros
	for _, c := range t.clips {
		if c.Display.To > end {
			end = c.Display.To
		}
	}
	return end
}
