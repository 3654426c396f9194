// Package scheduler decides which grid cell animates next, drives every
// cell's transition once per rendered frame and swaps images in when a
// transition completes.
package scheduler

import (
	"math/rand/v2"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matjam/smoothframes/internal/frame"
	"github.com/matjam/smoothframes/internal/render"
	"github.com/matjam/smoothframes/internal/transition"
	"github.com/matjam/smoothframes/internal/types"
)

// Options configure a Scheduler.
type Options struct {
	// Transitions is the preference set kinds are drawn from.
	Transitions []types.TransitionType
	Durations   map[types.TransitionType]time.Duration
	Easing      types.EasingMode

	// Interval is the pause between the end of one transition and the start
	// of the next.
	Interval time.Duration

	// MaxTransitionTime bounds how long a started transition may run before
	// it is forced to complete. It must exceed every duration.
	MaxTransitionTime time.Duration

	Registry *transition.Registry
	Rand     *rand.Rand
}

// Scheduler owns the frames of the grid and one transition slot per frame.
// It is driven by the render thread and is not safe for concurrent use.
type Scheduler struct {
	opts Options
	src  frame.Source
	rng  *rand.Rand
	log  *log.Logger

	frames  []*frame.Frame
	current []transition.Transition
	deck    *Deck
	free    map[types.TransitionType][]transition.Transition

	// config counts SetTransitions calls; born records the count each
	// transition was built under. Older ones are not pooled again.
	config uint64
	born   map[transition.Transition]uint64

	active     int // slot of the transition started last, -1 when none runs
	lastStart  time.Time
	lastFinish time.Time

	started   uint64
	completed uint64
	forced    uint64
}

// Snapshot describes the scheduler at one point in time.
type Snapshot struct {
	Frames     int    `json:"frames"`
	Loaded     int    `json:"loaded"`
	Running    int    `json:"running"`
	Active     int    `json:"active"`
	ActiveType string `json:"active_type,omitempty"`
	Available  int    `json:"deck_available"`
	Used       int    `json:"deck_used"`
	Started    uint64 `json:"started"`
	Completed  uint64 `json:"completed"`
	Forced     uint64 `json:"forced"`
}

func New(src frame.Source, opts Options) *Scheduler {
	if opts.Registry == nil {
		opts.Registry = transition.Builtin()
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Scheduler{
		opts:   opts,
		src:    src,
		rng:    rng,
		log:    log.WithPrefix("scheduler"),
		deck:   NewDeck(0, rng),
		free:   make(map[types.TransitionType][]transition.Transition),
		born:   make(map[transition.Transition]uint64),
		active: -1,
	}
}

// Rebuild replaces the grid. Old frames give their images back; each new
// frame requests an image and is gated by a none transition until it
// arrives.
func (s *Scheduler) Rebuild(geometry []types.Rect, now time.Time) {
	s.release()

	s.frames = make([]*frame.Frame, len(geometry))
	s.current = make([]transition.Transition, len(geometry))
	for i, g := range geometry {
		s.frames[i] = frame.New(g, s.src)
		tr := s.obtain(types.TransitionNone)
		tr.Select(s.frames[i], s.src)
		s.current[i] = tr
	}
	s.deck.Reset(len(geometry))
	s.active = -1
	s.lastFinish = now

	s.log.Info("grid rebuilt", "frames", len(geometry))
}

// Relayout moves the frames to new geometry. A different cell count
// rebuilds the grid.
func (s *Scheduler) Relayout(geometry []types.Rect, now time.Time) {
	if len(geometry) != len(s.frames) {
		s.Rebuild(geometry, now)
		return
	}
	for i, g := range geometry {
		s.frames[i].SetGeometry(g)
		if tr := s.current[i]; tr != nil && tr.Incoming() != nil {
			tr.Incoming().SetGeometry(g)
		}
	}
}

// SetTransitions changes the preference set and timing for transitions
// selected from now on. Transitions already running keep their timing and
// are discarded when they finish.
func (s *Scheduler) SetTransitions(kinds []types.TransitionType, durations map[types.TransitionType]time.Duration, easing types.EasingMode) {
	s.opts.Transitions = kinds
	s.opts.Durations = durations
	s.opts.Easing = easing

	s.config++
	for _, pool := range s.free {
		for _, tr := range pool {
			delete(s.born, tr)
		}
	}
	clear(s.free)
}

func (s *Scheduler) SetInterval(interval, maxTransitionTime time.Duration) {
	s.opts.Interval = interval
	s.opts.MaxTransitionTime = maxTransitionTime
}

func (s *Scheduler) Frames() []*frame.Frame {
	return s.frames
}

// Transition returns the transition occupying slot i, or nil.
func (s *Scheduler) Transition(i int) transition.Transition {
	return s.current[i]
}

// Tick draws every frame through its transition, retires finished
// transitions, enforces the timeout and starts the next transition when the
// interval has passed.
func (s *Scheduler) Tick(c render.Canvas, now time.Time) {
	for i, f := range s.frames {
		tr := s.current[i]
		if tr == nil {
			f.Draw(c, 1)
			continue
		}
		tr.Apply(c, now)
		if !tr.IsRunning() {
			s.DeselectCurrentTransition(i, c, now)
		}
	}

	if s.active >= 0 && s.opts.MaxTransitionTime > 0 && now.Sub(s.lastStart) > s.opts.MaxTransitionTime {
		s.log.Debug("transition overran, forcing it to finish", "slot", s.active, "type", s.current[s.active].Type(), "elapsed", now.Sub(s.lastStart))
		s.forced++
		s.DeselectCurrentTransition(s.active, c, now)
	}

	if s.active < 0 && len(s.frames) > 0 && now.Sub(s.lastFinish) >= s.opts.Interval {
		s.SelectRandomTransition(now)
	}
}

// Next starts a transition right away unless one is already running.
func (s *Scheduler) Next(now time.Time) bool {
	if s.active >= 0 {
		return false
	}
	_, ok := s.SelectRandomTransition(now)
	return ok
}

// SelectRandomTransition gives the next frame in the deck its turn. Frames
// still busy with a transition are passed over until they are idle. It
// returns the chosen slot.
func (s *Scheduler) SelectRandomTransition(now time.Time) (int, bool) {
	idx, ok := s.deck.Draw(func(i int) bool { return s.current[i] == nil })
	if !ok {
		return -1, false
	}
	s.SelectTransitionForFrame(idx, now)
	return idx, true
}

// SelectTransitionForFrame starts a transition on slot i, drawing kinds from
// the preference set until one suits the frame's geometry. swap is used when
// none does.
func (s *Scheduler) SelectTransitionForFrame(i int, now time.Time) transition.Transition {
	f := s.frames[i]

	var chosen transition.Transition
	for _, k := range s.rng.Perm(len(s.opts.Transitions)) {
		tr := s.obtain(s.opts.Transitions[k])
		if tr.IsSelectable(f) {
			chosen = tr
			break
		}
		s.recycle(tr)
	}
	if chosen == nil {
		chosen = s.obtain(types.TransitionSwap)
	}

	chosen.Select(f, s.src)
	s.current[i] = chosen
	s.active = i
	s.lastStart = now
	s.started++

	s.log.Debug("transition selected", "slot", i, "type", chosen.Type(), "geometry", f.Geometry())
	return chosen
}

// DeselectCurrentTransition retires the transition in slot i. If its
// incoming frame has an image, that frame replaces the old one, whose image
// goes back to the pool; otherwise the incoming frame is dropped and the old
// image stays. The settled frame is drawn once.
func (s *Scheduler) DeselectCurrentTransition(i int, c render.Canvas, now time.Time) {
	tr := s.current[i]
	if tr == nil {
		return
	}

	if in := tr.Incoming(); in != nil {
		if in.Loaded() {
			s.frames[i].Release()
			s.frames[i] = in
		} else {
			in.Release()
		}
	}
	s.frames[i].Draw(c, 1)

	s.current[i] = nil
	s.recycle(tr)
	s.completed++

	if i == s.active {
		s.active = -1
		s.lastFinish = now
	}
}

// Close releases every frame and transition.
func (s *Scheduler) Close() {
	s.release()
	s.frames = nil
	s.current = nil
	s.deck.Reset(0)
	s.active = -1
}

func (s *Scheduler) Snapshot() Snapshot {
	snap := Snapshot{
		Frames:    len(s.frames),
		Active:    s.active,
		Available: s.deck.Available(),
		Used:      s.deck.Used(),
		Started:   s.started,
		Completed: s.completed,
		Forced:    s.forced,
	}
	for i, f := range s.frames {
		if f.Loaded() {
			snap.Loaded++
		}
		if s.current[i] != nil && s.current[i].IsRunning() {
			snap.Running++
		}
	}
	if s.active >= 0 {
		snap.ActiveType = string(s.current[s.active].Type())
	}
	return snap
}

// obtain reuses a pooled transition of kind k or builds one.
func (s *Scheduler) obtain(k types.TransitionType) transition.Transition {
	if pool := s.free[k]; len(pool) > 0 {
		tr := pool[len(pool)-1]
		s.free[k] = pool[:len(pool)-1]
		return tr
	}

	tr, err := s.opts.Registry.New(k, transition.Options{
		Duration: s.opts.Durations[k],
		Easing:   s.opts.Easing,
		Rand:     s.rng,
	})
	if err != nil {
		s.log.Error("cannot build transition, using swap", "type", k, "err", err)
		tr = transition.NewSwap(transition.Options{})
	}
	s.born[tr] = s.config
	return tr
}

// recycle pools tr for reuse unless it was built before the last
// SetTransitions.
func (s *Scheduler) recycle(tr transition.Transition) {
	tr.Reset()
	if born, ok := s.born[tr]; !ok || born != s.config {
		delete(s.born, tr)
		s.log.Debug("dropping transition built with old settings", "type", tr.Type())
		return
	}
	s.free[tr.Type()] = append(s.free[tr.Type()], tr)
}

// release hands back every image the grid holds.
func (s *Scheduler) release() {
	for i, tr := range s.current {
		if tr == nil {
			continue
		}
		if in := tr.Incoming(); in != nil {
			in.Release()
		}
		s.recycle(tr)
		s.current[i] = nil
	}
	for _, f := range s.frames {
		f.Release()
	}
}
