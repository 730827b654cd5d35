package render

import (
	"image"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/ivlev/framestudio/internal/logging"
)

// texture is one cached render target. destroyed guards against the
// double-release that would corrupt the pool.
type texture struct {
	target    *image.RGBA
	lastUse   time.Time
	destroyed bool
}

// TextureCache owns the per-clip render targets that survive between
// frames, plus the shared targets transitions render their endpoint
// pair into. Every target is created at most once per key and destroyed
// at most once, so callers can release defensively without leaking or
// double-freeing buffers.
type TextureCache struct {
	mu     sync.Mutex
	pool   *FramePool
	clips  map[string]*texture
	pairs  map[string]*texture
	budget uint64
	used   uint64
	log    zerolog.Logger
}

// NewTextureCache sizes the cache budget at a quarter of system memory.
// A zero reading (restricted containers) falls back to 512 MiB.
func NewTextureCache(pool *FramePool) *TextureCache {
	var budget uint64 = 512 << 20
	if vm, err := mem.VirtualMemory(); err == nil && vm.Total > 0 {
		budget = vm.Total / 4
	}
	return NewTextureCacheWithBudget(pool, budget)
}

func NewTextureCacheWithBudget(pool *FramePool, budget uint64) *TextureCache {
	return &TextureCache{
		pool:   pool,
		clips:  make(map[string]*texture),
		pairs:  make(map[string]*texture),
		budget: budget,
		log:    logging.WithComponent("texture-cache"),
	}
}

// Acquire returns the per-clip target for clipID, allocating one on
// first use. The returned buffer stays owned by the cache.
func (c *TextureCache) Acquire(clipID string, rect image.Rectangle) *image.RGBA {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.acquire(c.clips, clipID, rect)
}

// AcquirePair returns the shared target for a transition pair key. Both
// halves of the pair render into the same buffer, which is why the key
// is the pair and not a clip.
func (c *TextureCache) AcquirePair(pairKey string, rect image.Rectangle) *image.RGBA {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.acquire(c.pairs, pairKey, rect)
}

func (c *TextureCache) acquire(m map[string]*texture, key string, rect image.Rectangle) *image.RGBA {
	if t, ok := m[key]; ok && !t.destroyed && t.target.Rect == rect {
		t.lastUse = time.Now()
		return t.target
	}
	if t, ok := m[key]; ok && !t.destroyed {
		// Size changed, recycle the old target first.
		c.release(t)
		delete(m, key)
	}

	buf := c.pool.Get(rect)
	m[key] = &texture{target: buf, lastUse: time.Now()}
	c.used += uint64(len(buf.Pix))
	if c.budget > 0 && c.used > c.budget {
		c.evictOldest(key)
	}
	return buf
}

// Destroy releases a clip target. Destroying an absent or already
// destroyed target is a no-op.
func (c *TextureCache) Destroy(clipID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.destroy(c.clips, clipID)
}

// DestroyPair releases a transition pair target.
func (c *TextureCache) DestroyPair(pairKey string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.destroy(c.pairs, pairKey)
}

func (c *TextureCache) destroy(m map[string]*texture, key string) {
	t, ok := m[key]
	if !ok {
		return
	}
	if t.destroyed {
		c.log.Debug().Str("key", key).Msg("target already destroyed")
		return
	}
	c.release(t)
	delete(m, key)
}

// Reset drops every cached target. Used on project load.
func (c *TextureCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, t := range c.clips {
		c.release(t)
		delete(c.clips, key)
	}
	for key, t := range c.pairs {
		c.release(t)
		delete(c.pairs, key)
	}
}

// Len reports how many live targets the cache holds.
func (c *TextureCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.clips) + len(c.pairs)
}

// Used reports the bytes currently held by live targets.
func (c *TextureCache) Used() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.used
}

func (c *TextureCache) release(t *texture) {
	t.destroyed = true
	c.used -= uint64(len(t.target.Pix))
	c.pool.Put(t.target)
	t.target = nil
}

// evictOldest drops least recently used clip targets until the cache is
// back under budget. The target just acquired under keep is exempt, as
// are pair targets, which are short-lived by construction.
func (c *TextureCache) evictOldest(keep string) {
	for c.used > c.budget {
		var oldestKey string
		var oldest *texture
		for key, t := range c.clips {
			if key == keep {
				continue
			}
			if oldest == nil || t.lastUse.Before(oldest.lastUse) {
				oldestKey, oldest = key, t
			}
		}
		if oldest == nil {
			return
		}
		c.log.Debug().Str("clip", oldestKey).Uint64("used", c.used).Msg("evicting target over budget")
		c.release(oldest)
		delete(c.clips, oldestKey)
	}
}
