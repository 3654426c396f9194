package texture

import (
	"context"
	"image"
	"math/rand/v2"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/sourcegraph/conc"
	"golang.org/x/sync/semaphore"

	"github.com/matjam/smoothframes/internal/render"
)

// Decoder turns a file into pixels of the requested size. reuse, when not
// nil, already has the requested bounds and may be written into.
type Decoder interface {
	Decode(path string, size image.Point, reuse *image.RGBA) (*image.RGBA, error)
}

// LoaderOptions wires a Loader to its collaborators.
type LoaderOptions struct {
	Decoder    Decoder
	Binder     render.Binder
	Dispatcher render.Dispatcher

	// TargetSize is the pixel size images are decoded to.
	TargetSize image.Point

	// QuarantineAfter skips a file after this many decode failures in a row
	// until the next SetFiles. Zero disables quarantine.
	QuarantineAfter int

	// Paused starts the loader paused.
	Paused bool

	// Rediscover is called, on its own goroutine, when the source list runs
	// dry. SetFiles answers it. Run does not return before it has.
	Rediscover func()

	// OnGPUError receives bind failures on the render thread.
	OnGPUError func(error)

	Rand *rand.Rand
}

// Loader picks images at random, decodes them off the render thread and has
// the render thread bind them, one image at a time. It stops decoding while
// paused or while the handoff queue is full.
//
// Files are drawn from a fresh list and moved to a shown list; once the fresh
// list is empty it is refilled from the shown list, so every file is shown
// once per rotation.
type Loader struct {
	m    *Manager
	opts LoaderOptions
	sem  *semaphore.Weighted
	rng  *rand.Rand
	log  *log.Logger
	bg   conc.WaitGroup

	// guarded by m.mu
	fresh       []string
	shown       []string
	last        string
	generation  uint64
	paused      bool
	size        image.Point
	failures    map[string]int
	quarantined map[string]struct{}
	rediscover  bool // a rediscovery was requested and not yet answered
	inFlight    string

	decoded atomic.Uint64
	failed  atomic.Uint64
}

// LoaderStats is a snapshot of the loader.
type LoaderStats struct {
	Fresh       int    `json:"fresh"`
	Shown       int    `json:"shown"`
	Quarantined int    `json:"quarantined"`
	Paused      bool   `json:"paused"`
	InFlight    string `json:"in_flight,omitempty"`
	Decoded     uint64 `json:"decoded"`
	Failed      uint64 `json:"failed"`
}

func NewLoader(m *Manager, opts LoaderOptions) *Loader {
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Loader{
		m:           m,
		opts:        opts,
		sem:         semaphore.NewWeighted(1),
		rng:         rng,
		log:         log.WithPrefix("loader"),
		paused:      opts.Paused,
		size:        opts.TargetSize,
		failures:    make(map[string]int),
		quarantined: make(map[string]struct{}),
	}
}

// Run loads images until ctx is done. It returns ctx's error.
func (l *Loader) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, l.m.Wake)
	defer stop()

	l.log.Info("loader started")
	defer l.log.Info("loader stopped")
	defer l.bg.Wait()

	for {
		p, ok := l.next(ctx)
		if !ok {
			return ctx.Err()
		}
		if err := l.load(ctx, p); err != nil {
			return err
		}
	}
}

// SetFiles replaces the source list. A new list starts a new rotation and
// lifts every quarantine. When userRequested is set, images already queued
// from the old list are dropped so the new ones show up promptly.
func (l *Loader) SetFiles(files []string, userRequested bool) {
	l.m.mu.Lock()
	l.generation++
	l.fresh = append([]string(nil), files...)
	l.shown = nil
	l.last = ""
	l.rediscover = false
	clear(l.failures)
	clear(l.quarantined)
	l.m.wake.Broadcast()
	l.m.mu.Unlock()

	l.log.Info("source list updated", "files", len(files), "user", userRequested)

	if userRequested {
		if n := l.m.Drain(); n > 0 {
			l.log.Debug("dropped queued images", "count", n)
		}
	}
}

// SetPaused stops or resumes decoding. Queued images and waiting frames are
// left alone.
func (l *Loader) SetPaused(paused bool) {
	l.m.mu.Lock()
	changed := l.paused != paused
	l.paused = paused
	l.m.wake.Broadcast()
	l.m.mu.Unlock()

	if changed {
		l.log.Info("pause changed", "paused", paused)
	}
}

func (l *Loader) Paused() bool {
	l.m.mu.Lock()
	defer l.m.mu.Unlock()
	return l.paused
}

// SetTargetSize changes the decode size for images picked from now on.
func (l *Loader) SetTargetSize(size image.Point) {
	l.m.mu.Lock()
	l.size = size
	l.m.wake.Broadcast()
	l.m.mu.Unlock()
}

func (l *Loader) Stats() LoaderStats {
	l.m.mu.Lock()
	defer l.m.mu.Unlock()
	return LoaderStats{
		Fresh:       len(l.fresh),
		Shown:       len(l.shown),
		Quarantined: len(l.quarantined),
		Paused:      l.paused,
		InFlight:    l.inFlight,
		Decoded:     l.decoded.Load(),
		Failed:      l.failed.Load(),
	}
}

type pick struct {
	path       string
	size       image.Point
	generation uint64
}

// next blocks until the loader may decode another image and returns the file
// to decode. It returns false once ctx is done.
func (l *Loader) next(ctx context.Context) (pick, bool) {
	l.m.mu.Lock()
	defer l.m.mu.Unlock()

	for {
		if ctx.Err() != nil {
			return pick{}, false
		}
		if l.paused || !l.m.hasRoom() {
			l.m.wake.Wait()
			continue
		}

		if len(l.fresh) == 0 {
			l.fresh, l.shown = l.shown, nil
		}
		if len(l.fresh) == 0 {
			l.requestRediscovery()
			l.m.wake.Wait()
			continue
		}

		path := l.draw()
		if _, bad := l.quarantined[path]; bad {
			continue
		}
		l.inFlight = path
		return pick{path: path, size: l.size, generation: l.generation}, true
	}
}

// draw removes a uniformly random file from the fresh list, avoiding the file
// shown last when there is a choice. m.mu held.
func (l *Loader) draw() string {
	n := len(l.fresh)
	i := l.rng.IntN(n)
	if n > 1 && l.fresh[i] == l.last {
		i = (i + 1 + l.rng.IntN(n-1)) % n
	}
	path := l.fresh[i]
	l.fresh[i] = l.fresh[n-1]
	l.fresh = l.fresh[:n-1]
	return path
}

// requestRediscovery asks for a new source list once per dry spell. m.mu held.
func (l *Loader) requestRediscovery() {
	if l.rediscover || l.opts.Rediscover == nil {
		return
	}
	l.rediscover = true
	l.log.Warn("no images to show, searching again")
	l.bg.Go(l.opts.Rediscover)
}

// load decodes p and waits for the render thread to bind and deliver it.
func (l *Loader) load(ctx context.Context, p pick) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer l.sem.Release(1)

	var reuse *image.RGBA
	if p.size.X > 0 && p.size.Y > 0 {
		reuse = l.m.pool.Buffer(p.size)
	}

	pixels, err := l.opts.Decoder.Decode(p.path, p.size, reuse)
	if err != nil {
		l.failed.Add(1)
		l.log.Warn("decode failed", "path", p.path, "err", err)
		if pixels == nil && reuse != nil {
			l.m.pool.Put(&Resource{Buffer: reuse})
		}
	} else {
		l.decoded.Add(1)
	}

	done := make(chan struct{})
	l.opts.Dispatcher.Dispatch(func() {
		defer close(done)
		l.bind(p.path, pixels, err)
	})

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	l.finish(p, err)
	return nil
}

// bind uploads pixels and offers the result. Render thread only.
func (l *Loader) bind(path string, pixels *image.RGBA, decodeErr error) {
	if decodeErr != nil || pixels == nil {
		l.m.Offer(invalid(path, decodeErr))
		return
	}

	reuse := l.m.pool.Handle()
	h, err := l.opts.Binder.Bind(pixels, reuse)
	if err != nil {
		l.m.pool.Discard(reuse)
		if l.opts.OnGPUError != nil {
			l.opts.OnGPUError(err)
		}
		res := invalid(path, err)
		res.Buffer = pixels
		l.m.Offer(res)
		return
	}

	l.m.Offer(&Resource{
		Handle: h,
		Buffer: pixels,
		Path:   path,
		Size:   pixels.Rect.Size(),
	})
}

// finish records the outcome of p and moves it to the shown list, unless the
// source list was replaced while it loaded.
func (l *Loader) finish(p pick, decodeErr error) {
	l.m.mu.Lock()
	defer l.m.mu.Unlock()

	l.inFlight = ""
	if p.generation != l.generation {
		return
	}

	if decodeErr != nil {
		l.failures[p.path]++
		if l.opts.QuarantineAfter > 0 && l.failures[p.path] >= l.opts.QuarantineAfter {
			l.quarantined[p.path] = struct{}{}
			l.log.Warn("skipping file until the next search", "path", p.path, "failures", l.failures[p.path])
			return
		}
	} else {
		delete(l.failures, p.path)
	}

	l.shown = append(l.shown, p.path)
	l.last = p.path
}
