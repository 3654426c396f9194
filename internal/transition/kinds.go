package transition

import (
	"time"

	"github.com/matjam/smoothframes/internal/frame"
	"github.com/matjam/smoothframes/internal/render"
	"github.com/matjam/smoothframes/internal/types"
)

// none holds a frame back until its first image arrives. It has no incoming
// frame and animates nothing.
type none struct {
	target *frame.Frame
	state  State
}

func NewNone(Options) Transition {
	return &none{}
}

func (n *none) Type() types.TransitionType     { return types.TransitionNone }
func (n *none) IsSelectable(*frame.Frame) bool { return true }
func (n *none) Target() *frame.Frame           { return n.target }
func (n *none) Incoming() *frame.Frame         { return nil }
func (n *none) State() State                   { return n.state }
func (n *none) IsRunning() bool                { return n.state == Selected || n.state == Running }
func (n *none) Reset()                         { n.target, n.state = nil, Idle }

func (n *none) Select(target *frame.Frame, _ frame.Source) {
	n.target = target
	n.state = Running
}

func (n *none) Delta() float32 {
	if n.state == Finished {
		return 1
	}
	return 0
}

func (n *none) Apply(c render.Canvas, _ time.Time) {
	if n.target == nil {
		return
	}
	if n.IsRunning() && n.target.Loaded() {
		n.state = Finished
	}
	n.target.Draw(c, 1)
}

// swap replaces the image in a single frame once the new one has arrived.
type swap struct {
	animated
}

func NewSwap(opts Options) Transition {
	opts.Duration = 0
	return &swap{newAnimated(types.TransitionSwap, opts)}
}

func (s *swap) IsSelectable(*frame.Frame) bool { return true }

func (s *swap) Apply(c render.Canvas, now time.Time) {
	if _, ready := s.step(now); !ready {
		s.waiting(c)
		return
	}
	s.settle(c)
}

// fade crossfades the two images.
type fade struct {
	animated
}

func NewFade(opts Options) Transition {
	return &fade{newAnimated(types.TransitionFade, opts)}
}

func (f *fade) IsSelectable(*frame.Frame) bool { return true }

func (f *fade) Apply(c render.Canvas, now time.Time) {
	alpha, ready := f.step(now)
	if !ready {
		f.waiting(c)
		return
	}
	if f.state == Finished {
		f.settle(c)
		return
	}
	if alpha < 1 {
		f.target.Draw(c, 1-alpha)
	}
	f.incoming.Draw(c, alpha)
}

// slide pushes the old image out while the new one enters from a screen edge
// the frame touches.
type slide struct {
	animated
	dx, dy float32 // direction the new image travels from, unit steps
}

func NewSlide(opts Options) Transition {
	return &slide{animated: newAnimated(types.TransitionSlide, opts)}
}

func (s *slide) IsSelectable(target *frame.Frame) bool {
	return target.Geometry().TouchesEdge()
}

func (s *slide) Select(target *frame.Frame, src frame.Source) {
	s.animated.Select(target, src)

	g := target.Geometry()
	type edge struct {
		ok     bool
		dx, dy float32
	}
	edges := []edge{
		{g.TouchesLeft(), -1, 0},
		{g.TouchesRight(), 1, 0},
		{g.TouchesTop(), 0, -1},
		{g.TouchesBottom(), 0, 1},
	}
	var touched []edge
	for _, e := range edges {
		if e.ok {
			touched = append(touched, e)
		}
	}
	if len(touched) == 0 {
		s.dx, s.dy = -1, 0
		return
	}
	pick := touched[0]
	if s.opts.Rand != nil {
		pick = touched[s.opts.Rand.IntN(len(touched))]
	}
	s.dx, s.dy = pick.dx, pick.dy
}

func (s *slide) Apply(c render.Canvas, now time.Time) {
	p, ready := s.step(now)
	if !ready {
		s.waiting(c)
		return
	}
	if s.state == Finished {
		s.settle(c)
		return
	}
	g := s.target.Geometry()
	in := g.Offset(s.dx*g.W*(1-p), s.dy*g.H*(1-p))
	out := g.Offset(-s.dx*g.W*p, -s.dy*g.H*p)
	s.target.DrawAt(c, out, 1)
	s.incoming.DrawAt(c, in, 1)
}

// zoom grows the new image from the centre of the cell while fading it in.
type zoom struct {
	animated
}

func NewZoom(opts Options) Transition {
	return &zoom{newAnimated(types.TransitionZoom, opts)}
}

// IsSelectable keeps zoom off cells spanning the whole screen in either
// direction, where growing from the centre reads as a glitch.
func (z *zoom) IsSelectable(target *frame.Frame) bool {
	g := target.Geometry()
	return g.W < 1 && g.H < 1
}

func (z *zoom) Apply(c render.Canvas, now time.Time) {
	p, ready := z.step(now)
	if !ready {
		z.waiting(c)
		return
	}
	if z.state == Finished {
		z.settle(c)
		return
	}
	g := z.target.Geometry()
	z.target.Draw(c, 1)
	if p > 0 {
		z.incoming.DrawAt(c, g.ScaleAboutCenter(p), p)
	}
}
