// Package history provides snapshot undo/redo over the project state:
// a targeted structural diff producing typed patch records, a purely
// functional patch apply, and a grouped snapshot stack.
package history

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/ivlev/framestudio/internal/clip"
	"github.com/ivlev/framestudio/internal/timeline"
)

// ProjectState is the history-side view of a project: clips keyed by
// id for per-clip diffing, everything held as decoded JSON values so
// deep-path patches can address individual fields.
type ProjectState struct {
	Tracks      []any
	ClipsByID   map[string]map[string]any
	Transitions map[string]any
	Settings    map[string]any
}

// StateOf converts the canonical project shape into diffable state.
func StateOf(p timeline.ProjectJSON) (ProjectState, error) {
	s := ProjectState{
		ClipsByID:   map[string]map[string]any{},
		Transitions: map[string]any{},
		Settings:    map[string]any{},
	}

	if err := reshape(p.Tracks, &s.Tracks); err != nil {
		return ProjectState{}, fmt.Errorf("state tracks: %w", err)
	}
	for _, cj := range p.Clips {
		var m map[string]any
		if err := reshape(cj, &m); err != nil {
			return ProjectState{}, fmt.Errorf("state clip: %w", err)
		}
		id, _ := m["id"].(string)
		if id == "" {
			return ProjectState{}, fmt.Errorf("state clip without id")
		}
		s.ClipsByID[id] = m
	}
	for _, tj := range p.Transitions {
		var m map[string]any
		if err := reshape(tj, &m); err != nil {
			return ProjectState{}, fmt.Errorf("state transition: %w", err)
		}
		s.Transitions[tj.Key] = m
	}
	if err := reshape(p.Settings, &s.Settings); err != nil {
		return ProjectState{}, fmt.Errorf("state settings: %w", err)
	}
	return s, nil
}

// Project converts state back into the canonical shape. Clips come out
// in track order, matching what ExportJSON produces, so a state round
// trip is structurally stable.
func (s ProjectState) Project() (timeline.ProjectJSON, error) {
	var p timeline.ProjectJSON

	if err := reshape(s.Tracks, &p.Tracks); err != nil {
		return timeline.ProjectJSON{}, fmt.Errorf("project tracks: %w", err)
	}
	seen := map[string]bool{}
	for _, tr := range p.Tracks {
		for _, clipID := range tr.ClipIDs {
			m, ok := s.ClipsByID[clipID]
			if !ok {
				return timeline.ProjectJSON{}, fmt.Errorf("track %s references missing clip %s", tr.ID, clipID)
			}
			var cj clip.JSON
			if err := reshape(m, &cj); err != nil {
				return timeline.ProjectJSON{}, fmt.Errorf("project clip %s: %w", clipID, err)
			}
			p.Clips = append(p.Clips, cj)
			seen[clipID] = true
		}
	}
	if len(seen) != len(s.ClipsByID) {
		for id := range s.ClipsByID {
			if !seen[id] {
				return timeline.ProjectJSON{}, fmt.Errorf("clip %s belongs to no track", id)
			}
		}
	}
	for _, key := range sortedKeys(s.Transitions) {
		var tj timeline.TransitionJSON
		if err := reshape(s.Transitions[key], &tj); err != nil {
			return timeline.ProjectJSON{}, fmt.Errorf("project transition %s: %w", key, err)
		}
		p.Transitions = append(p.Transitions, tj)
	}
	if err := reshape(s.Settings, &p.Settings); err != nil {
		return timeline.ProjectJSON{}, fmt.Errorf("project settings: %w", err)
	}
	return p, nil
}

// Clone deep-copies the state so a functional apply never aliases the
// input.
func (s ProjectState) Clone() ProjectState {
	out := ProjectState{
		ClipsByID:   make(map[string]map[string]any, len(s.ClipsByID)),
		Transitions: make(map[string]any, len(s.Transitions)),
		Settings:    map[string]any{},
	}
	out.Tracks = deepCopy(s.Tracks).([]any)
	for id, m := range s.ClipsByID {
		out.ClipsByID[id] = deepCopy(m).(map[string]any)
	}
	for key, v := range s.Transitions {
		out.Transitions[key] = deepCopy(v)
	}
	out.Settings = deepCopy(s.Settings).(map[string]any)
	return out
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[k] = deepCopy(e)
		}
		return m
	case []any:
		l := make([]any, len(t))
		for i, e := range t {
			l[i] = deepCopy(e)
		}
		return l
	default:
		return v
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// reshape moves a value across shapes through its JSON form.
func reshape(in, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
