package transition

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"

	"github.com/matjam/smoothframes/internal/frame"
	"github.com/matjam/smoothframes/internal/render"
	"github.com/matjam/smoothframes/internal/texture"
	"github.com/matjam/smoothframes/internal/types"
)

type drawCall struct {
	Handle render.Handle
	Quad   render.Quad
}

type recorder struct {
	calls []drawCall
}

func (r *recorder) Draw(h render.Handle, q render.Quad) {
	r.calls = append(r.calls, drawCall{h, q})
}

func (r *recorder) last() drawCall {
	return r.calls[len(r.calls)-1]
}

func offer(m *texture.Manager, h render.Handle) {
	m.Offer(&texture.Resource{Handle: h, Path: "/pics/x.jpg"})
}

// loadedFrame returns a frame already showing handle h.
func loadedFrame(m *texture.Manager, g types.Rect, h render.Handle) *frame.Frame {
	f := frame.New(g, m)
	offer(m, h)
	return f
}

func TestEaseEndpoints(t *testing.T) {
	modes := []types.EasingMode{
		types.EasingLinear, types.EasingEaseIn, types.EasingEaseOut, types.EasingEaseInOut,
	}
	for _, mode := range modes {
		if got := Ease(mode, 0); got != 0 {
			t.Errorf("%s: Ease(0) = %v", mode, got)
		}
		if got := Ease(mode, 1); got != 1 {
			t.Errorf("%s: Ease(1) = %v", mode, got)
		}
		prev := float32(0)
		for i := 1; i <= 20; i++ {
			v := Ease(mode, float32(i)/20)
			if v < prev {
				t.Errorf("%s: decreasing at step %d", mode, i)
			}
			prev = v
		}
	}
}

func TestRegistry(t *testing.T) {
	r := Builtin()
	want := []types.TransitionType{
		types.TransitionFade, types.TransitionNone, types.TransitionSlide,
		types.TransitionSwap, types.TransitionZoom,
	}
	if diff := cmp.Diff(want, r.Types()); diff != "" {
		t.Errorf("Types (-want +got):\n%s", diff)
	}
	if _, err := r.New("wipe", Options{}); err == nil {
		t.Error("New accepted an unknown kind")
	}

	defer func() {
		if recover() == nil {
			t.Error("duplicate Register did not panic")
		}
	}()
	r.Register(types.TransitionFade, NewFade)
}

func TestFadeRunsToCompletion(t *testing.T) {
	clock := clockwork.NewFakeClock()
	m := texture.NewManager(3, nil)
	g := types.Rect{X: 0, Y: 0, W: 0.5, H: 0.5}
	target := loadedFrame(m, g, 1)

	tr := NewFade(Options{Duration: time.Second, Easing: types.EasingLinear})
	tr.Select(target, m)
	if tr.State() != Selected || !tr.IsRunning() {
		t.Fatalf("after Select: state=%s", tr.State())
	}

	c := &recorder{}
	clock.Advance(5 * time.Second)
	tr.Apply(c, clock.Now())
	if tr.Delta() != 0 {
		t.Fatal("clock started before the incoming image arrived")
	}
	if diff := cmp.Diff(drawCall{1, render.Quad{Dst: g, Clip: g, Alpha: 1}}, c.last()); diff != "" {
		t.Errorf("waiting draw (-want +got):\n%s", diff)
	}

	offer(m, 2)
	tr.Apply(c, clock.Now())
	clock.Advance(250 * time.Millisecond)
	c.calls = nil
	tr.Apply(c, clock.Now())
	want := []drawCall{
		{1, render.Quad{Dst: g, Clip: g, Alpha: 0.75}},
		{2, render.Quad{Dst: g, Clip: g, Alpha: 0.25}},
	}
	if diff := cmp.Diff(want, c.calls); diff != "" {
		t.Errorf("mid-fade draws (-want +got):\n%s", diff)
	}

	clock.Advance(time.Second)
	tr.Apply(c, clock.Now())
	if tr.State() != Finished || tr.IsRunning() || tr.Delta() != 1 {
		t.Fatalf("after duration: state=%s delta=%v", tr.State(), tr.Delta())
	}
	if diff := cmp.Diff(drawCall{2, render.Quad{Dst: g, Clip: g, Alpha: 1}}, c.last()); diff != "" {
		t.Errorf("final draw (-want +got):\n%s", diff)
	}
}

func TestDeltaNeverDecreases(t *testing.T) {
	clock := clockwork.NewFakeClock()
	m := texture.NewManager(3, nil)
	target := loadedFrame(m, types.Rect{W: 0.5, H: 0.5}, 1)

	tr := NewZoom(Options{Duration: time.Second})
	tr.Select(target, m)
	offer(m, 2)

	start := clock.Now()
	tr.Apply(&recorder{}, start)
	tr.Apply(&recorder{}, start.Add(600*time.Millisecond))
	high := tr.Delta()
	tr.Apply(&recorder{}, start.Add(100*time.Millisecond))
	if tr.Delta() < high {
		t.Fatalf("delta went back from %v to %v", high, tr.Delta())
	}
}

func TestSwapIsInstant(t *testing.T) {
	m := texture.NewManager(3, nil)
	g := types.Rect{W: 1, H: 1}
	target := loadedFrame(m, g, 1)

	tr := NewSwap(Options{Duration: time.Hour})
	tr.Select(target, m)
	offer(m, 2)

	c := &recorder{}
	tr.Apply(c, time.Now())
	if tr.State() != Finished {
		t.Fatalf("state = %s, want finished", tr.State())
	}
	if diff := cmp.Diff(drawCall{2, render.Quad{Dst: g, Clip: g, Alpha: 1}}, c.last()); diff != "" {
		t.Errorf("draw (-want +got):\n%s", diff)
	}
}

func TestNoneGatesUntilLoaded(t *testing.T) {
	m := texture.NewManager(3, nil)
	target := frame.New(types.Rect{W: 1, H: 1}, m)

	tr := NewNone(Options{})
	tr.Select(target, m)
	tr.Apply(&recorder{}, time.Now())
	if !tr.IsRunning() || tr.Incoming() != nil {
		t.Fatal("none finished without an image")
	}

	offer(m, 3)
	c := &recorder{}
	tr.Apply(c, time.Now())
	if tr.IsRunning() || len(c.calls) != 1 {
		t.Fatalf("none after load: running=%v draws=%d", tr.IsRunning(), len(c.calls))
	}
}

func TestSelectability(t *testing.T) {
	m := texture.NewManager(8, nil)
	full := frame.New(types.Rect{W: 1, H: 1}, m)
	inner := frame.New(types.Rect{X: 0.3, Y: 0.3, W: 0.3, H: 0.3}, m)
	corner := frame.New(types.Rect{X: 0, Y: 0, W: 0.5, H: 0.5}, m)

	tests := []struct {
		name string
		tr   Transition
		f    *frame.Frame
		want bool
	}{
		{"slide full", NewSlide(Options{}), full, true},
		{"slide inner", NewSlide(Options{}), inner, false},
		{"slide corner", NewSlide(Options{}), corner, true},
		{"zoom full", NewZoom(Options{}), full, false},
		{"zoom inner", NewZoom(Options{}), inner, true},
		{"fade inner", NewFade(Options{}), inner, true},
		{"swap full", NewSwap(Options{}), full, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.tr.IsSelectable(tt.f); got != tt.want {
				t.Errorf("IsSelectable = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSlideEntersFromTouchedEdge(t *testing.T) {
	m := texture.NewManager(3, nil)
	// Touches only the right edge.
	g := types.Rect{X: 0.5, Y: 0.25, W: 0.5, H: 0.5}
	target := loadedFrame(m, g, 1)

	tr := NewSlide(Options{Duration: time.Second, Easing: types.EasingLinear, Rand: rand.New(rand.NewPCG(1, 1))})
	tr.Select(target, m)
	offer(m, 2)

	start := time.Now()
	tr.Apply(&recorder{}, start)
	c := &recorder{}
	tr.Apply(c, start.Add(500*time.Millisecond))

	want := []drawCall{
		{1, render.Quad{Dst: g.Offset(-0.25, 0), Clip: g, Alpha: 1}},
		{2, render.Quad{Dst: g.Offset(0.25, 0), Clip: g, Alpha: 1}},
	}
	if diff := cmp.Diff(want, c.calls); diff != "" {
		t.Errorf("draws (-want +got):\n%s", diff)
	}
}

func TestResetAllowsReuse(t *testing.T) {
	m := texture.NewManager(3, nil)
	tr := NewFade(Options{Duration: time.Second})
	tr.Select(loadedFrame(m, types.Rect{W: 0.5, H: 0.5}, 1), m)

	tr.Reset()
	if tr.State() != Idle || tr.Target() != nil || tr.Incoming() != nil || tr.Delta() != 0 {
		t.Fatal("Reset left state behind")
	}
}
