package history

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/ivlev/framestudio/internal/clip"
	"github.com/ivlev/framestudio/internal/logging"
)

// defaultLimit caps how many snapshots stay undoable.
const defaultLimit = 100

// Restore is what an undo or redo hands back: the snapshot to load and
// the patches that lead there from the caller's current state.
type Restore struct {
	State   ProjectState
	Patches []Patch
}

// History is the snapshot stack. Pushes while a group is open are
// discarded; the outermost EndGroup pushes once, so a compound edit
// costs exactly one undo step. Undo and redo are non-reentrant: a call
// arriving while another is in flight is a logged no-op.
type History struct {
	mu         sync.Mutex
	entries    []ProjectState
	index      int
	pending    int
	groupDepth int
	busy       bool
	limit      int

	clipCache map[string]*clip.Clip
	log       zerolog.Logger
}

func New() *History {
	return &History{
		limit:     defaultLimit,
		clipCache: map[string]*clip.Clip{},
		log:       logging.WithComponent("history"),
	}
}

// Init seeds the stack with the opening snapshot and clears everything
// else.
func (h *History) Init(s ProjectState) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = []ProjectState{s.Clone()}
	h.index = 0
	h.pending = 0
	h.busy = false
	h.groupDepth = 0
	h.clipCache = map[string]*clip.Clip{}
}

// Push records a snapshot as the new top, discarding any redo tail.
// While a group is open the push is dropped.
func (h *History) Push(s ProjectState) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.groupDepth > 0 {
		h.log.Debug().Int("depth", h.groupDepth).Msg("push discarded inside group")
		return
	}
	h.push(s)
}

func (h *History) push(s ProjectState) {
	h.entries = append(h.entries[:h.index+1], s.Clone())
	if len(h.entries) > h.limit {
		h.entries = h.entries[len(h.entries)-h.limit:]
	}
	h.index = len(h.entries) - 1
}

// BeginGroup opens a compound edit. Calls nest.
func (h *History) BeginGroup() {
	h.mu.Lock()
	h.groupDepth++
	h.mu.Unlock()
}

// EndGroup closes one nesting level; the outermost close pushes the
// final snapshot. Unbalanced calls are logged and ignored.
func (h *History) EndGroup(s ProjectState) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.groupDepth == 0 {
		h.log.Warn().Msg("endGroup without beginGroup")
		return
	}
	h.groupDepth--
	if h.groupDepth == 0 {
		h.push(s)
	}
}

// Undo steps back one entry. Returns nil when there is nothing to undo,
// a group is open, or another history operation is in flight. The index
// does not move until Complete confirms the restore landed.
func (h *History) Undo(current ProjectState) *Restore {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.busy {
		h.log.Warn().Msg("undo ignored: history operation in flight")
		return nil
	}
	if h.groupDepth > 0 || h.index == 0 {
		return nil
	}
	h.busy = true
	h.pending = -1

	target := h.entries[h.index-1]
	return &Restore{State: target.Clone(), Patches: Diff(current, target)}
}

// Redo steps forward one entry.
func (h *History) Redo(current ProjectState) *Restore {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.busy {
		h.log.Warn().Msg("redo ignored: history operation in flight")
		return nil
	}
	if h.groupDepth > 0 || h.index >= len(h.entries)-1 {
		return nil
	}
	h.busy = true
	h.pending = 1

	target := h.entries[h.index+1]
	return &Restore{State: target.Clone(), Patches: Diff(current, target)}
}

// Complete commits the in-flight undo or redo, moving the index. Until
// then any further undo or redo call is a no-op.
func (h *History) Complete() {
	h.mu.Lock()
	h.index += h.pending
	h.pending = 0
	h.busy = false
	h.mu.Unlock()
}

// Abort discards the in-flight undo or redo without moving the index,
// so a failed restore leaves the stack aligned with the live state.
func (h *History) Abort() {
	h.mu.Lock()
	h.pending = 0
	h.busy = false
	h.mu.Unlock()
}

// CanUndo reports whether a step back exists.
func (h *History) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.index > 0
}

// CanRedo reports whether a step forward exists.
func (h *History) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.index < len(h.entries)-1
}

// CacheClip remembers a live clip instance so that undoing its removal
// can bring back the same resources instead of re-deserializing.
func (h *History) CacheClip(c *clip.Clip) {
	if c == nil {
		return
	}
	h.mu.Lock()
	h.clipCache[c.ID] = c
	h.mu.Unlock()
}

// TakeClip hands back a cached clip and forgets it.
func (h *History) TakeClip(id string) (*clip.Clip, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.clipCache[id]
	if ok {
		delete(h.clipCache, id)
	}
	return c, ok
}
