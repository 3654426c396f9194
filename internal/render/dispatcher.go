package render

import (
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"golang.org/x/sys/unix"
)

// ThreadDispatcher queues units of work for the render thread, which drains
// them from its frame callback with RunPending.
//
// The render thread is identified by its kernel thread id, so the goroutine
// calling Attach must have called runtime.LockOSThread first and keep the
// lock for as long as it renders.
type ThreadDispatcher struct {
	mu    sync.Mutex
	units []func()
	tid   atomic.Int64
}

func NewThreadDispatcher() *ThreadDispatcher {
	return &ThreadDispatcher{}
}

// Attach marks the calling OS thread as the render thread.
func (d *ThreadDispatcher) Attach() {
	d.tid.Store(int64(unix.Gettid()))
}

// Detach forgets the render thread. Units queued afterwards wait until the
// next Attach.
func (d *ThreadDispatcher) Detach() {
	d.tid.Store(0)
}

// Dispatch queues fn to run on the render thread. It never runs fn inline,
// even when called from the render thread, so units keep their FIFO order.
func (d *ThreadDispatcher) Dispatch(fn func()) {
	if fn == nil {
		return
	}
	d.mu.Lock()
	d.units = append(d.units, fn)
	d.mu.Unlock()
}

// IsRenderThread reports whether the caller runs on the attached thread.
func (d *ThreadDispatcher) IsRenderThread() bool {
	tid := d.tid.Load()
	return tid != 0 && tid == int64(unix.Gettid())
}

// Pending returns the number of queued units.
func (d *ThreadDispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.units)
}

// RunPending runs every unit queued before the call and returns how many ran.
// Units dispatched while running wait for the next call. Calls from any
// thread other than the render thread are ignored.
func (d *ThreadDispatcher) RunPending() int {
	if !d.IsRenderThread() {
		log.Error("RunPending called off the render thread")
		return 0
	}

	d.mu.Lock()
	units := d.units
	d.units = nil
	d.mu.Unlock()

	for _, fn := range units {
		fn()
	}
	return len(units)
}
