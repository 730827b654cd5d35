package render

import (
	"image"
	"sync"
)

// FramePool reuses *image.RGBA buffers between composited frames to keep
// per-frame allocation off the GC. Buffers are bucketed by their bounds,
// so a pool serving one canvas size and a handful of clip sizes stays
// small.
type FramePool struct {
	mu    sync.RWMutex
	pools map[string]*sync.Pool
}

func NewFramePool() *FramePool {
	return &FramePool{pools: make(map[string]*sync.Pool)}
}

// Get returns a cleared buffer covering rect.
func (p *FramePool) Get(rect image.Rectangle) *image.RGBA {
	key := rect.String()
	p.mu.RLock()
	pool, ok := p.pools[key]
	p.mu.RUnlock()

	if !ok {
		p.mu.Lock()
		pool, ok = p.pools[key]
		if !ok {
			pool = &sync.Pool{
				New: func() interface{} {
					return image.NewRGBA(rect)
				},
			}
			p.pools[key] = pool
		}
		p.mu.Unlock()
	}

	img := pool.Get().(*image.RGBA)
	clearRGBA(img)
	return img
}

// Put hands a buffer back for reuse. Buffers whose size was never
// requested are dropped.
func (p *FramePool) Put(img *image.RGBA) {
	if img == nil {
		return
	}
	key := img.Rect.String()
	p.mu.RLock()
	pool, ok := p.pools[key]
	p.mu.RUnlock()

	if ok {
		pool.Put(img)
	}
}
