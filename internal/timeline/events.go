package timeline

// EventKind names a mutation notification.
type EventKind string

const (
	EventClipAdded         EventKind = "clip:added"
	EventClipRemoved       EventKind = "clip:removed"
	EventClipUpdated       EventKind = "clip:updated"
	EventTrackAdded        EventKind = "track:added"
	EventTrackRemoved      EventKind = "track:removed"
	EventTrackOrderChanged EventKind = "track:order-changed"
)

// Event is returned from mutator calls instead of being fired through an
// ambient emitter; the session layer decides how to fan it out.
type Event struct {
	Kind    EventKind
	ClipID  string
	TrackID string
}
