package timeline

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/ivlev/framestudio/internal/clip"
	"github.com/ivlev/framestudio/internal/timecode"
)

// TransitionJSON is the wire form of one pairing.
type TransitionJSON struct {
	Key      string          `json:"key"`
	Name     string          `json:"name"`
	Start    timecode.Micros `json:"start"`
	End      timecode.Micros `json:"end"`
	Duration timecode.Micros `json:"duration"`
	Clips    []string        `json:"clips"`
}

// ProjectJSON is the canonical persisted project shape.
type ProjectJSON struct {
	Tracks      []Track          `json:"tracks"`
	Clips       []clip.JSON      `json:"clips"`
	Transitions []TransitionJSON `json:"transitions,omitempty"`
	Settings    Settings         `json:"settings"`
}

// ExportJSON produces the loss-free serialized project. Clips are listed
// in track order so repeated exports of the same state are identical.
func (t *Timeline) ExportJSON() (ProjectJSON, error) {
	out := ProjectJSON{Settings: t.settings}

	for _, tr := range t.tracks {
		out.Tracks = append(out.Tracks, *tr.clone())
		for _, clipID := range tr.ClipIDs {
			c, ok := t.clips[clipID]
			if !ok {
				return ProjectJSON{}, fmt.Errorf("track %s references missing clip %s", tr.ID, clipID)
			}
			cj, err := c.ToJSON()
			if err != nil {
				return ProjectJSON{}, err
			}
			out.Clips = append(out.Clips, cj)
		}
	}

	keys := make([]string, 0, len(t.transitions))
	for key := range t.transitions {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		tr := t.transitions[key]
		out.Transitions = append(out.Transitions, TransitionJSON{
			Key:      key,
			Name:     tr.Name,
			Start:    tr.Start,
			End:      tr.End,
			Duration: tr.Duration,
			Clips:    []string{tr.FromClipID, tr.ToClipID},
		})
	}
	return out, nil
}

// LoadJSON replaces the timeline contents from a serialized project.
// A clip with an unsupported type fails the whole load; the timeline is
// only swapped in after every clip deserialized cleanly.
func (t *Timeline) LoadJSON(p ProjectJSON) error {
	clips := make(map[string]*clip.Clip, len(p.Clips))
	for _, cj := range p.Clips {
		c, err := clip.FromJSON(cj, t.presets)
		if err != nil {
			return fmt.Errorf("load project: %w", err)
		}
		clips[c.ID] = c
	}

	tracks := make([]*Track, 0, len(p.Tracks))
	trackByClip := make(map[string]string, len(clips))
	for i := range p.Tracks {
		tr := p.Tracks[i].clone()
		for _, clipID := range tr.ClipIDs {
			if _, ok := clips[clipID]; !ok {
				return fmt.Errorf("load project: track %s references missing clip %s", tr.ID, clipID)
			}
			trackByClip[clipID] = tr.ID
		}
		tracks = append(tracks, tr)
	}

	transitions := make(map[string]*clip.Transition, len(p.Transitions))
	for _, tj := range p.Transitions {
		if len(tj.Clips) != 2 {
			return fmt.Errorf("load project: transition %s needs two clips", tj.Key)
		}
		tr := &clip.Transition{
			Name:       tj.Name,
			Start:      tj.Start,
			End:        tj.End,
			Duration:   tj.Duration,
			FromClipID: tj.Clips[0],
			ToClipID:   tj.Clips[1],
		}
		transitions[tr.Key()] = tr
		if c, ok := clips[tr.FromClipID]; ok {
			c.Transition = tr
		}
		if c, ok := clips[tr.ToClipID]; ok {
			c.Transition = tr
		}
	}

	t.tracks = tracks
	t.clips = clips
	t.trackByClip = trackByClip
	t.transitions = transitions
	t.settings = p.Settings
	return nil
}

// Encode renders the project as indented JSON bytes.
func (t *Timeline) Encode() ([]byte, error) {
	p, err := t.ExportJSON()
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(p, "", "  ")
}

// Decode loads a project from JSON bytes.
func (t *Timeline) Decode(data []byte) error {
	var p ProjectJSON
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("decode project: %w", err)
	}
	return t.LoadJSON(p)
}
