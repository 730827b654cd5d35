// Package transport drives playback time: a frame-rate ticker that
// advances the playhead while playing and reports each tick.
package transport

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ivlev/framestudio/internal/logging"
	"github.com/ivlev/framestudio/internal/timecode"
)

// TickFunc receives the playhead position on every frame tick while
// playing. It runs on the clock goroutine; heavy work belongs elsewhere.
type TickFunc func(ts timecode.Micros)

// Clock is the playback transport. Position advances against the wall
// clock while playing, so a slow tick consumer drops frames instead of
// slowing playback down.
type Clock struct {
	interval time.Duration
	onTick   TickFunc
	log      zerolog.Logger

	mu       sync.Mutex
	playing  bool
	base     timecode.Micros
	playedAt time.Time

	done     chan struct{}
	stopOnce sync.Once
}

// NewClock creates a stopped clock ticking at fps.
func NewClock(fps float64, onTick TickFunc) *Clock {
	if fps <= 0 {
		fps = 30
	}
	return &Clock{
		interval: time.Duration(float64(time.Second) / fps),
		onTick:   onTick,
		log:      logging.WithComponent("transport"),
		done:     make(chan struct{}),
	}
}

// Start launches the tick loop. Call Stop to end it.
func (c *Clock) Start() {
	go c.run()
}

func (c *Clock) run() {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.mu.Lock()
			playing := c.playing
			ts := c.current()
			c.mu.Unlock()
			if playing && c.onTick != nil {
				c.onTick(ts)
			}
		}
	}
}

// Stop ends the tick loop permanently.
func (c *Clock) Stop() {
	c.stopOnce.Do(func() { close(c.done) })
}

// Play starts advancing from the current position. Playing twice is a
// no-op.
func (c *Clock) Play() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.playing {
		return
	}
	c.playing = true
	c.playedAt = time.Now()
}

// Pause freezes the playhead where it is.
func (c *Clock) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.playing {
		return
	}
	c.base = c.current()
	c.playing = false
}

// Seek jumps the playhead. While playing, playback resumes from the new
// position immediately.
func (c *Clock) Seek(ts timecode.Micros) {
	if ts < 0 {
		ts = 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.base = ts
	c.playedAt = time.Now()
}

// Current returns the playhead position.
func (c *Clock) Current() timecode.Micros {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current()
}

func (c *Clock) current() timecode.Micros {
	if !c.playing {
		return c.base
	}
	return c.base + timecode.FromDuration(time.Since(c.playedAt))
}

// Playing reports the transport state.
func (c *Clock) Playing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playing
}
