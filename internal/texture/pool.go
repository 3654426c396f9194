package texture

import (
	"image"
	"sync"

	"github.com/matjam/smoothframes/internal/render"
)

// Pool keeps released pixel buffers and texture handles for reuse. Handles
// beyond the spare limit are doomed and deleted by Collect on the render
// thread; buffers beyond their limit are left to the garbage collector.
//
// Thread safety: all methods except Collect are safe for concurrent use.
type Pool struct {
	mu         sync.Mutex
	maxBuffers int
	maxHandles int
	buffers    []*image.RGBA
	handles    []render.Handle
	doomed     []render.Handle

	reusedBuffers int
	reusedHandles int
	deleted       int
}

// PoolStats is a snapshot of the pool.
type PoolStats struct {
	Buffers       int `json:"buffers"`
	Handles       int `json:"handles"`
	Doomed        int `json:"doomed"`
	ReusedBuffers int `json:"reused_buffers"`
	ReusedHandles int `json:"reused_handles"`
	Deleted       int `json:"deleted"`
}

func NewPool(maxBuffers, maxHandles int) *Pool {
	return &Pool{
		maxBuffers: maxBuffers,
		maxHandles: maxHandles,
	}
}

// Put takes ownership of what res holds. The handle goes to the spare list
// (or the doomed list when full), the buffer to the buffer list. res is
// emptied so a stale reference cannot draw a recycled texture.
func (p *Pool) Put(res *Resource) {
	if res == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if res.Handle != 0 {
		if len(p.handles) < p.maxHandles {
			p.handles = append(p.handles, res.Handle)
		} else {
			p.doomed = append(p.doomed, res.Handle)
		}
	}
	if res.Buffer != nil && len(p.buffers) < p.maxBuffers {
		p.buffers = append(p.buffers, res.Buffer)
	}

	res.Handle = 0
	res.Buffer = nil
}

// Discard schedules h for deletion without offering it for reuse.
func (p *Pool) Discard(h render.Handle) {
	if h == 0 {
		return
	}
	p.mu.Lock()
	p.doomed = append(p.doomed, h)
	p.mu.Unlock()
}

// Buffer returns a released buffer whose bounds match size, or nil.
func (p *Pool) Buffer(size image.Point) *image.RGBA {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := len(p.buffers) - 1; i >= 0; i-- {
		b := p.buffers[i]
		if b.Rect.Dx() == size.X && b.Rect.Dy() == size.Y {
			p.buffers = append(p.buffers[:i], p.buffers[i+1:]...)
			p.reusedBuffers++
			return b
		}
	}
	return nil
}

// Handle returns a spare texture handle, or zero.
func (p *Pool) Handle() render.Handle {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(p.handles)
	if n == 0 {
		return 0
	}
	h := p.handles[n-1]
	p.handles = p.handles[:n-1]
	p.reusedHandles++
	return h
}

// Collect deletes doomed handles through b. Render thread only.
func (p *Pool) Collect(b render.Binder) int {
	p.mu.Lock()
	doomed := p.doomed
	p.doomed = nil
	p.deleted += len(doomed)
	p.mu.Unlock()

	for _, h := range doomed {
		b.Delete(h)
	}
	return len(doomed)
}

// Purge dooms every spare handle and drops every buffer.
func (p *Pool) Purge() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.doomed = append(p.doomed, p.handles...)
	p.handles = nil
	p.buffers = nil
}

func (p *Pool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PoolStats{
		Buffers:       len(p.buffers),
		Handles:       len(p.handles),
		Doomed:        len(p.doomed),
		ReusedBuffers: p.reusedBuffers,
		ReusedHandles: p.reusedHandles,
		Deleted:       p.deleted,
	}
}
