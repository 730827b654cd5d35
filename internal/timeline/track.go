package timeline

// Track is an ordered lane of clip ids. Its index in the timeline's
// track list encodes z-stack priority (lower index renders in front);
// the order of ids inside a track is display grouping only.
type Track struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Type    string   `json:"type,omitempty"`
	ClipIDs []string `json:"clipIds"`
}

func (t *Track) contains(clipID string) bool {
	for _, id := range t.ClipIDs {
		if id == clipID {
			return true
		}
	}
	return false
}

func (t *Track) remove(clipID string) bool {
	for i, id := range t.ClipIDs {
		if id == clipID {
			t.ClipIDs = append(t.ClipIDs[:i], t.ClipIDs[i+1:]...)
			return true
		}
	}
	return false
}

func (t *Track) clone() *Track {
	out := *t
	out.ClipIDs = append([]string(nil), t.ClipIDs...)
	return &out
}
