// Package slideshow runs a grid of frames: it wires discovery, the texture
// loader and the transition scheduler together and drives them from the
// host's render loop.
package slideshow

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math/rand/v2"
	"slices"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/sourcegraph/conc"
	"github.com/spf13/afero"

	"github.com/matjam/smoothframes/internal/config"
	"github.com/matjam/smoothframes/internal/decode"
	"github.com/matjam/smoothframes/internal/discovery"
	"github.com/matjam/smoothframes/internal/ipc"
	"github.com/matjam/smoothframes/internal/layout"
	"github.com/matjam/smoothframes/internal/render"
	"github.com/matjam/smoothframes/internal/scheduler"
	"github.com/matjam/smoothframes/internal/texture"
	"github.com/matjam/smoothframes/internal/transition"
	"github.com/matjam/smoothframes/internal/types"
)

var (
	// ErrNotRunning is returned for commands sent after the show ended.
	ErrNotRunning = errors.New("slideshow is not running")

	errStop = errors.New("stop requested")
)

// Host owns the window and the GPU context. Loop must call frame on the
// thread Run was called on.
type Host interface {
	render.Binder

	// Size returns the drawable size in pixels.
	Size() image.Point

	// Loop calls frame once per displayed frame until frame fails, ctx is
	// done or the window is closed.
	Loop(ctx context.Context, frame render.FrameFunc) error
}

// Options supply the parts of a Show that tests replace.
type Options struct {
	Fs    afero.Fs
	Clock clockwork.Clock
	Rand  *rand.Rand
}

// Status is the snapshot reported over the control socket.
type Status struct {
	Session   string              `json:"session"`
	Started   time.Time           `json:"started"`
	Uptime    string              `json:"uptime"`
	Images    string              `json:"images"`
	Files     int64               `json:"files"`
	Pinned    bool                `json:"pinned"`
	Grid      string              `json:"grid"`
	Size      string              `json:"size"`
	Scheduler scheduler.Snapshot  `json:"scheduler"`
	Textures  texture.Stats       `json:"textures"`
	Loader    texture.LoaderStats `json:"loader"`
	GPUFaults int                 `json:"gpu_faults"`
}

// Show is a running slideshow. Create it with New, then call Run on the
// thread that owns the GPU context.
type Show struct {
	clock   clockwork.Clock
	log     *log.Logger
	session uuid.UUID
	started time.Time

	pool       *texture.Pool
	manager    *texture.Manager
	loader     *texture.Loader
	decoder    *decode.Decoder
	discoverer *discovery.Discoverer
	scheduler  *scheduler.Scheduler
	dispatcher *render.ThreadDispatcher
	faults     *render.FaultTracker
	loaderRand *rand.Rand

	cmds    chan ipc.Command
	configs chan *config.Config
	done    chan struct{}

	// set once Run starts
	ctx  context.Context
	host Host

	// render thread only
	cfg   *config.Config
	size  image.Point
	fatal error

	filter atomic.Pointer[discovery.Filter]
	pinned atomic.Bool // an explicit file list replaced discovery
	files  atomic.Int64
	status atomic.Pointer[Status]
}

func New(cfg *config.Config, opts Options) *Show {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	fs := opts.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	pool := texture.NewPool(cfg.PoolBuffers, cfg.PoolHandles)
	manager := texture.NewManager(cfg.QueueCapacity, pool)

	s := &Show{
		clock:      clock,
		log:        log.WithPrefix("show"),
		session:    uuid.New(),
		started:    clock.Now(),
		pool:       pool,
		manager:    manager,
		decoder:    decode.New(fs, cfg.ScaleMode),
		discoverer: discovery.New(fs, clock),
		dispatcher: render.NewThreadDispatcher(),
		faults:     render.NewFaultTracker(clock, cfg.FaultThreshold, cfg.FaultWindow),
		// The loader runs on its own goroutine and needs its own source.
		loaderRand: rand.New(rand.NewPCG(rng.Uint64(), rng.Uint64())),
		cmds:       make(chan ipc.Command, 16),
		configs:    make(chan *config.Config, 1),
		done:       make(chan struct{}),
		cfg:        cfg,
	}
	s.scheduler = scheduler.New(manager, scheduler.Options{
		Transitions:       cfg.Transitions,
		Durations:         cfg.Durations,
		Easing:            cfg.Easing,
		Interval:          cfg.Interval,
		MaxTransitionTime: cfg.MaxTransitionTime,
		Registry:          transition.Builtin(),
		Rand:              rng,
	})
	s.filter.Store(filterFor(cfg))
	return s
}

// Run shows the slideshow on host until ctx is done, a stop command arrives,
// the window closes or the GPU keeps failing. The caller must have locked
// the calling goroutine to its OS thread. A stop command or a cancelled ctx
// returns nil.
func (s *Show) Run(ctx context.Context, host Host) error {
	s.dispatcher.Attach()
	defer s.dispatcher.Detach()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.ctx = ctx
	s.host = host
	s.size = host.Size()

	s.loader = texture.NewLoader(s.manager, texture.LoaderOptions{
		Decoder:         s.decoder,
		Binder:          host,
		Dispatcher:      s.dispatcher,
		TargetSize:      s.cellSize(),
		QuarantineAfter: s.cfg.QuarantineAfter,
		Paused:          s.cfg.Paused,
		Rediscover:      func() { s.discover(false) },
		OnGPUError:      s.ReportGPUError,
		Rand:            s.loaderRand,
	})
	s.scheduler.Rebuild(s.grid(), s.clock.Now())

	var wg conc.WaitGroup
	wg.Go(func() {
		if err := s.loader.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.log.Error("loader stopped", "err", err)
		}
	})
	filter, interval := *s.filter.Load(), s.cfg.RediscoverInterval
	wg.Go(func() {
		if err := s.discoverer.Watch(ctx, filter, interval, func() { s.discover(false) }); err != nil {
			s.log.Error("watcher stopped", "err", err)
		}
	})
	s.discover(false)

	s.log.Info("slideshow started",
		"session", s.session,
		"grid", fmt.Sprintf("%dx%d", s.cfg.Columns, s.cfg.Rows),
		"images", s.cfg.Images,
		"size", s.size)

	err := host.Loop(ctx, s.frame)
	if errors.Is(err, errStop) || errors.Is(err, context.Canceled) {
		err = nil
	}

	cancel()
	s.manager.Wake()
	wg.Wait()
	s.discoverer.Stop()
	s.teardown()
	close(s.done)

	s.log.Info("slideshow stopped", "err", err)
	return err
}

// EnqueueCommand hands cmd to the render loop, waiting for room if needed.
func (s *Show) EnqueueCommand(cmd ipc.Command) error {
	if !cmd.Type.Valid() {
		return fmt.Errorf("unknown command %q", cmd.Type)
	}
	if cmd.Type == ipc.CommandStatus {
		return nil
	}
	select {
	case <-s.done:
		return ErrNotRunning
	default:
	}
	select {
	case s.cmds <- cmd:
		return nil
	case <-s.done:
		return ErrNotRunning
	}
}

// Post hands cmd to the render loop without waiting. It is safe to call
// from the render thread itself, for example from window callbacks.
func (s *Show) Post(cmd ipc.Command) bool {
	select {
	case s.cmds <- cmd:
		return true
	default:
		s.log.Warn("command queue full, dropping command", "type", cmd.Type)
		return false
	}
}

// Reconfigure applies cfg on the next frame. Settings that size the texture
// pipeline keep their old values until restart.
func (s *Show) Reconfigure(cfg *config.Config) {
	for {
		select {
		case s.configs <- cfg:
			return
		default:
		}
		// Only the newest configuration matters.
		select {
		case <-s.configs:
		default:
		}
	}
}

// Status implements ipc.ManagerInterface.
func (s *Show) Status() any {
	return s.Snapshot()
}

// Snapshot returns the status published by the last frame.
func (s *Show) Snapshot() Status {
	if st := s.status.Load(); st != nil {
		return *st
	}
	return Status{
		Session: s.session.String(),
		Started: s.started,
	}
}

// Done is closed once Run has returned.
func (s *Show) Done() <-chan struct{} {
	return s.done
}

func (s *Show) frame(c render.Canvas) error {
	now := s.clock.Now()

	if err := s.applyCommands(now); err != nil {
		return err
	}

	s.dispatcher.RunPending()
	if s.fatal != nil {
		return s.fatal
	}
	s.pool.Collect(s.host)

	if size := s.host.Size(); size != s.size {
		s.resize(size)
	}

	s.scheduler.Tick(c, now)
	s.publish(now)
	return nil
}

func (s *Show) applyCommands(now time.Time) error {
	for {
		select {
		case cfg := <-s.configs:
			s.apply(cfg, now)
		case cmd := <-s.cmds:
			if err := s.execute(cmd, now); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

func (s *Show) execute(cmd ipc.Command, now time.Time) error {
	s.log.Debug("command", "type", cmd.Type, "args", len(cmd.Args))

	switch cmd.Type {
	case ipc.CommandStop:
		s.log.Info("stop requested")
		return errStop
	case ipc.CommandNext:
		if !s.scheduler.Next(now) {
			s.log.Info("a transition is already running")
		}
	case ipc.CommandPause:
		s.loader.SetPaused(true)
	case ipc.CommandResume:
		s.loader.SetPaused(false)
	case ipc.CommandLoad:
		if len(cmd.Args) == 0 {
			s.log.Error("no files given to load")
			return nil
		}
		files := make([]string, len(cmd.Args))
		for i, f := range cmd.Args {
			files[i] = config.CanonicalPath(f)
		}
		s.pinned.Store(true)
		s.files.Store(int64(len(files)))
		s.loader.SetFiles(files, true)
	case ipc.CommandReload:
		s.pinned.Store(false)
		s.discover(true)
	case ipc.CommandStatus:
	default:
		s.log.Error("unknown command", "type", cmd.Type)
	}
	return nil
}

// apply switches to cfg. Render thread only.
func (s *Show) apply(cfg *config.Config, now time.Time) {
	old := s.cfg
	s.cfg = cfg

	s.decoder.SetMode(cfg.ScaleMode)
	s.scheduler.SetTransitions(cfg.Transitions, cfg.Durations, cfg.Easing)
	s.scheduler.SetInterval(cfg.Interval, cfg.MaxTransitionTime)

	if cfg.Rows != old.Rows || cfg.Columns != old.Columns || cfg.Gap != old.Gap {
		s.scheduler.Relayout(s.grid(), now)
		s.loader.SetTargetSize(s.cellSize())
	}

	f := filterFor(cfg)
	if prev := s.filter.Swap(f); prev.Root != f.Root || prev.Recursive != f.Recursive || !slices.Equal(prev.Extensions, f.Extensions) {
		s.discover(false)
	}

	if cfg.QueueCapacity != old.QueueCapacity || cfg.PoolBuffers != old.PoolBuffers || cfg.PoolHandles != old.PoolHandles ||
		cfg.FaultThreshold != old.FaultThreshold || cfg.FaultWindow != old.FaultWindow ||
		cfg.QuarantineAfter != old.QuarantineAfter || cfg.RediscoverInterval != old.RediscoverInterval {
		s.log.Warn("some settings only take effect after a restart")
	}
	s.log.Info("configuration applied")
}

func (s *Show) resize(size image.Point) {
	s.log.Info("drawable resized", "from", s.size, "to", size)
	s.size = size
	s.loader.SetTargetSize(s.cellSize())
}

// discover searches for images unless an explicit list is in use or the
// show is stopping.
func (s *Show) discover(userRequested bool) {
	if s.ctx.Err() != nil {
		return
	}
	if s.pinned.Load() && !userRequested {
		s.log.Debug("explicit file list in use, not searching")
		return
	}
	s.discoverer.Discover(s.ctx, *s.filter.Load(), userRequested, func(files []string, user bool) {
		if s.pinned.Load() && !user {
			return
		}
		if len(files) == 0 {
			s.log.Warn("no images found", "root", s.filter.Load().Root)
		}
		s.files.Store(int64(len(files)))
		s.loader.SetFiles(files, user)
	})
}

// ReportGPUError records a GPU failure seen while rendering. It must be
// called on the render thread. Once failures reach the fault threshold the
// next frame stops Run with render.ErrPipelineFatal.
func (s *Show) ReportGPUError(err error) {
	if ferr := s.faults.Record(err); ferr != nil && s.fatal == nil {
		s.fatal = ferr
	}
}

func (s *Show) publish(now time.Time) {
	s.status.Store(&Status{
		Session:   s.session.String(),
		Started:   s.started,
		Uptime:    now.Sub(s.started).Truncate(time.Second).String(),
		Images:    s.cfg.Images,
		Files:     s.files.Load(),
		Pinned:    s.pinned.Load(),
		Grid:      fmt.Sprintf("%dx%d", s.cfg.Columns, s.cfg.Rows),
		Size:      fmt.Sprintf("%dx%d", s.size.X, s.size.Y),
		Scheduler: s.scheduler.Snapshot(),
		Textures:  s.manager.Stats(),
		Loader:    s.loader.Stats(),
		GPUFaults: s.faults.Total(),
	})
}

// teardown returns every texture to the host. Render thread only.
func (s *Show) teardown() {
	s.scheduler.Close()
	s.dispatcher.RunPending()
	s.manager.Drain()
	s.pool.Purge()
	if n := s.pool.Collect(s.host); n > 0 {
		s.log.Debug("deleted textures", "count", n)
	}
}

func (s *Show) grid() []types.Rect {
	return layout.Grid(s.cfg.Rows, s.cfg.Columns, s.cfg.Gap)
}

func (s *Show) cellSize() image.Point {
	w, h := layout.CellSize(s.cfg.Rows, s.cfg.Columns, s.cfg.Gap, s.size.X, s.size.Y)
	return image.Pt(w, h)
}

func filterFor(cfg *config.Config) *discovery.Filter {
	return &discovery.Filter{
		Root:       cfg.Images,
		Recursive:  cfg.Recursive,
		Extensions: cfg.Extensions,
	}
}
