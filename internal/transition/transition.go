// Package transition animates a grid cell from its current image to a new
// one. Each kind of animation implements Transition; the scheduler picks
// kinds by name through a Registry.
package transition

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/matjam/smoothframes/internal/frame"
	"github.com/matjam/smoothframes/internal/render"
	"github.com/matjam/smoothframes/internal/types"
)

// State is the lifecycle of a Transition: Idle -> Selected -> Running -> Finished.
type State int

const (
	Idle State = iota
	Selected
	Running
	Finished
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Selected:
		return "selected"
	case Running:
		return "running"
	case Finished:
		return "finished"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Transition is one animation of one frame. All methods run on the render
// thread.
type Transition interface {
	Type() types.TransitionType

	// IsSelectable reports whether this kind can animate target where it
	// currently sits on screen.
	IsSelectable(target *frame.Frame) bool

	// Select binds the transition to target. Kinds that animate towards a
	// new image create the incoming frame here, which requests its image
	// from src.
	Select(target *frame.Frame, src frame.Source)

	// Apply draws the current step. The clock starts on the first call
	// that has both images available.
	Apply(c render.Canvas, now time.Time)

	IsRunning() bool
	State() State

	// Delta is the un-eased progress in 0..1.
	Delta() float32

	Target() *frame.Frame
	Incoming() *frame.Frame

	// Reset returns the transition to Idle so it can be reused.
	Reset()
}

// Options configure a new transition.
type Options struct {
	Duration time.Duration
	Easing   types.EasingMode
	Rand     *rand.Rand
}

// Factory builds a transition of one kind.
type Factory func(Options) Transition

// Registry maps transition kinds to their factories.
type Registry struct {
	factories map[types.TransitionType]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[types.TransitionType]Factory)}
}

// Builtin returns a registry holding every kind this package implements.
func Builtin() *Registry {
	r := NewRegistry()
	r.Register(types.TransitionNone, NewNone)
	r.Register(types.TransitionSwap, NewSwap)
	r.Register(types.TransitionFade, NewFade)
	r.Register(types.TransitionSlide, NewSlide)
	r.Register(types.TransitionZoom, NewZoom)
	return r
}

// Register adds a kind. It panics on duplicates.
func (r *Registry) Register(t types.TransitionType, f Factory) {
	if _, exists := r.factories[t]; exists {
		panic("transition: duplicate registration for " + string(t))
	}
	r.factories[t] = f
}

func (r *Registry) Has(t types.TransitionType) bool {
	_, ok := r.factories[t]
	return ok
}

// New builds a transition of kind t.
func (r *Registry) New(t types.TransitionType, opts Options) (Transition, error) {
	f, ok := r.factories[t]
	if !ok {
		return nil, fmt.Errorf("unknown transition %q", t)
	}
	return f(opts), nil
}

// Types lists the registered kinds, sorted.
func (r *Registry) Types() []types.TransitionType {
	out := make([]types.TransitionType, 0, len(r.factories))
	for t := range r.factories {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
