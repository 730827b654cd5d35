package history

import (
	"fmt"
	"reflect"
)

// Op is a patch operation.
type Op string

const (
	OpCreate Op = "create"
	OpRemove Op = "remove"
	OpChange Op = "change"
)

// Root names the part of the project state a patch addresses.
type Root string

const (
	RootTracks      Root = "tracks"
	RootClips       Root = "clips"
	RootTransitions Root = "transitions"
	RootSettings    Root = "settings"
)

// Patch is one typed state edit. For RootClips, ID selects the clip and
// Path walks into nested fields for OpChange; Value carries the new
// content (or the created object). Track lists change as a whole, since
// ordering is the value there.
type Patch struct {
	Root  Root
	Op    Op
	ID    string
	Path  []string
	Value any
}

// Diff computes the patches that transform old into new. Applying the
// result to old must yield a state structurally equal to new.
func Diff(old, new ProjectState) []Patch {
	var patches []Patch

	if !reflect.DeepEqual(old.Tracks, new.Tracks) {
		patches = append(patches, Patch{Root: RootTracks, Op: OpChange, Value: new.Tracks})
	}

	for _, id := range sortedKeys(old.ClipsByID) {
		if _, ok := new.ClipsByID[id]; !ok {
			patches = append(patches, Patch{Root: RootClips, Op: OpRemove, ID: id})
		}
	}
	for _, id := range sortedKeys(new.ClipsByID) {
		newClip := new.ClipsByID[id]
		oldClip, ok := old.ClipsByID[id]
		if !ok {
			patches = append(patches, Patch{Root: RootClips, Op: OpCreate, ID: id, Value: newClip})
			continue
		}
		patches = append(patches, diffObject(RootClips, id, nil, oldClip, newClip)...)
	}

	for _, key := range sortedKeys(old.Transitions) {
		if _, ok := new.Transitions[key]; !ok {
			patches = append(patches, Patch{Root: RootTransitions, Op: OpRemove, ID: key})
		}
	}
	for _, key := range sortedKeys(new.Transitions) {
		newTr := new.Transitions[key]
		oldTr, ok := old.Transitions[key]
		if !ok {
			patches = append(patches, Patch{Root: RootTransitions, Op: OpCreate, ID: key, Value: newTr})
			continue
		}
		if !reflect.DeepEqual(oldTr, newTr) {
			patches = append(patches, Patch{Root: RootTransitions, Op: OpChange, ID: key, Value: newTr})
		}
	}

	for _, key := range sortedKeys(old.Settings) {
		if _, ok := new.Settings[key]; !ok {
			patches = append(patches, Patch{Root: RootSettings, Op: OpRemove, Path: []string{key}})
		}
	}
	for _, key := range sortedKeys(new.Settings) {
		if !reflect.DeepEqual(old.Settings[key], new.Settings[key]) {
			patches = append(patches, Patch{Root: RootSettings, Op: OpChange, Path: []string{key}, Value: new.Settings[key]})
		}
	}

	return patches
}

// diffObject produces field-level CHANGE patches for one clip, walking
// into nested maps so sibling fields survive the apply untouched.
// Arrays and scalars replace at their own path.
func diffObject(root Root, id string, path []string, old, new map[string]any) []Patch {
	var patches []Patch

	for _, key := range sortedKeys(old) {
		if _, ok := new[key]; !ok {
			patches = append(patches, Patch{Root: root, Op: OpRemove, ID: id, Path: appendPath(path, key)})
		}
	}
	for _, key := range sortedKeys(new) {
		newVal := new[key]
		oldVal, ok := old[key]
		if ok && reflect.DeepEqual(oldVal, newVal) {
			continue
		}
		oldMap, oldIsMap := oldVal.(map[string]any)
		newMap, newIsMap := newVal.(map[string]any)
		if ok && oldIsMap && newIsMap {
			patches = append(patches, diffObject(root, id, appendPath(path, key), oldMap, newMap)...)
			continue
		}
		patches = append(patches, Patch{Root: root, Op: OpChange, ID: id, Path: appendPath(path, key), Value: newVal})
	}
	return patches
}

func appendPath(path []string, key string) []string {
	out := make([]string, 0, len(path)+1)
	out = append(out, path...)
	return append(out, key)
}

// Apply produces a new state from old plus patches. It never mutates
// old; on error the returned state is the zero value and old remains
// the last consistent configuration.
func Apply(old ProjectState, patches []Patch) (ProjectState, error) {
	s := old.Clone()

	for _, p := range patches {
		if err := applyOne(&s, p); err != nil {
			return ProjectState{}, err
		}
	}
	return s, nil
}

func applyOne(s *ProjectState, p Patch) error {
	switch p.Root {
	case RootTracks:
		if p.Value == nil {
			s.Tracks = nil
			return nil
		}
		tracks, ok := p.Value.([]any)
		if !ok {
			return fmt.Errorf("tracks patch: unexpected value %T", p.Value)
		}
		s.Tracks = deepCopy(tracks).([]any)
		return nil

	case RootClips:
		switch p.Op {
		case OpCreate:
			m, ok := p.Value.(map[string]any)
			if !ok {
				return fmt.Errorf("clip create %s: unexpected value %T", p.ID, p.Value)
			}
			s.ClipsByID[p.ID] = deepCopy(m).(map[string]any)
			return nil
		case OpRemove:
			if len(p.Path) == 0 {
				if _, ok := s.ClipsByID[p.ID]; !ok {
					return fmt.Errorf("clip remove %s: no such clip", p.ID)
				}
				delete(s.ClipsByID, p.ID)
				return nil
			}
			return setPath(s.ClipsByID[p.ID], p.Path, nil, true)
		case OpChange:
			clip, ok := s.ClipsByID[p.ID]
			if !ok {
				return fmt.Errorf("clip change %s: no such clip", p.ID)
			}
			return setPath(clip, p.Path, deepCopy(p.Value), false)
		}

	case RootTransitions:
		switch p.Op {
		case OpCreate, OpChange:
			s.Transitions[p.ID] = deepCopy(p.Value)
			return nil
		case OpRemove:
			if _, ok := s.Transitions[p.ID]; !ok {
				return fmt.Errorf("transition remove %s: no such pairing", p.ID)
			}
			delete(s.Transitions, p.ID)
			return nil
		}

	case RootSettings:
		if len(p.Path) != 1 {
			return fmt.Errorf("settings patch needs a single key, got %v", p.Path)
		}
		if p.Op == OpRemove {
			delete(s.Settings, p.Path[0])
			return nil
		}
		s.Settings[p.Path[0]] = deepCopy(p.Value)
		return nil
	}
	return fmt.Errorf("patch with unknown root %q", p.Root)
}

// setPath assigns (or deletes) a value at a deep path, creating
// intermediate maps for assignment.
func setPath(m map[string]any, path []string, value any, remove bool) error {
	if m == nil || len(path) == 0 {
		return fmt.Errorf("empty patch path")
	}
	for i := 0; i < len(path)-1; i++ {
		next, ok := m[path[i]].(map[string]any)
		if !ok {
			if remove {
				return nil
			}
			next = map[string]any{}
			m[path[i]] = next
		}
		m = next
	}
	leaf := path[len(path)-1]
	if remove {
		delete(m, leaf)
		return nil
	}
	m[leaf] = value
	return nil
}
