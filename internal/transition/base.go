package transition

import (
	"time"

	"github.com/matjam/smoothframes/internal/frame"
	"github.com/matjam/smoothframes/internal/render"
	"github.com/matjam/smoothframes/internal/types"
)

// animated holds the timing shared by every kind that moves from the
// target's image to an incoming frame's image.
type animated struct {
	kind     types.TransitionType
	opts     Options
	target   *frame.Frame
	incoming *frame.Frame

	state   State
	start   time.Time
	started bool
	delta   float32
}

func newAnimated(kind types.TransitionType, opts Options) animated {
	return animated{kind: kind, opts: opts}
}

func (a *animated) Type() types.TransitionType { return a.kind }
func (a *animated) State() State               { return a.state }
func (a *animated) Delta() float32             { return a.delta }
func (a *animated) Target() *frame.Frame       { return a.target }
func (a *animated) Incoming() *frame.Frame     { return a.incoming }

func (a *animated) IsRunning() bool {
	return a.state == Selected || a.state == Running
}

func (a *animated) Select(target *frame.Frame, src frame.Source) {
	a.target = target
	a.incoming = frame.New(target.Geometry(), src)
	a.state = Selected
	a.started = false
	a.delta = 0
}

func (a *animated) Reset() {
	a.target = nil
	a.incoming = nil
	a.state = Idle
	a.started = false
	a.delta = 0
}

// step advances the clock and returns the eased progress. ready is false
// while the incoming image has not arrived; the clock does not start until
// it has.
func (a *animated) step(now time.Time) (eased float32, ready bool) {
	if a.state != Selected && a.state != Running {
		return a.delta, a.state == Finished
	}
	if a.incoming == nil || !a.incoming.Loaded() {
		return 0, false
	}
	if !a.started {
		a.start = now
		a.started = true
		a.state = Running
	}

	d := float32(1)
	if a.opts.Duration > 0 {
		elapsed := now.Sub(a.start)
		if elapsed < 0 {
			elapsed = 0
		}
		if elapsed > a.opts.Duration {
			elapsed = a.opts.Duration
		}
		d = float32(float64(elapsed) / float64(a.opts.Duration))
	}
	// Never move backwards, even if the clock does.
	if d < a.delta {
		d = a.delta
	}
	a.delta = d
	if a.delta >= 1 {
		a.delta = 1
		a.state = Finished
	}
	return Ease(a.opts.Easing, a.delta), true
}

// settle draws the final state: the incoming image alone, in place, opaque.
func (a *animated) settle(c render.Canvas) {
	a.incoming.Draw(c, 1)
}

// waiting draws the target unchanged until the incoming image arrives.
func (a *animated) waiting(c render.Canvas) {
	if a.target != nil {
		a.target.Draw(c, 1)
	}
}
