package scheduler

import (
	"fmt"
	"image"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"

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

// feed offers one texture per handle, as the loader would.
func feed(m *texture.Manager, handles ...render.Handle) {
	for _, h := range handles {
		m.Offer(&texture.Resource{
			Handle: h,
			Path:   fmt.Sprintf("/pics/%d.jpg", h),
			Size:   image.Pt(4, 4),
		})
	}
}

func grid(n int) []types.Rect {
	w := 1 / float32(n)
	out := make([]types.Rect, n)
	for i := range out {
		out[i] = types.Rect{X: float32(i) * w, Y: 0, W: w, H: 0.5}
	}
	return out
}

func newTestScheduler(m *texture.Manager, opts Options) *Scheduler {
	opts.Rand = rand.New(rand.NewPCG(1, 2))
	return New(m, opts)
}

func TestFramesWaitForFirstImage(t *testing.T) {
	clock := clockwork.NewFakeClock()
	m := texture.NewManager(3, texture.NewPool(4, 8))
	s := newTestScheduler(m, Options{
		Transitions:       []types.TransitionType{types.TransitionSwap},
		Interval:          time.Hour,
		MaxTransitionTime: time.Minute,
	})
	s.Rebuild(grid(2), clock.Now())

	c := &recorder{}
	s.Tick(c, clock.Now())
	if len(c.calls) != 0 {
		t.Fatalf("drew %d quads before any image arrived", len(c.calls))
	}
	if got := m.Stats().Pending; got != 2 {
		t.Fatalf("pending = %d, want 2", got)
	}

	feed(m, 10, 11)
	s.Tick(c, clock.Now())
	snap := s.Snapshot()
	if snap.Loaded != 2 || snap.Running != 0 {
		t.Fatalf("snapshot after load = %+v", snap)
	}
	for i := range s.Frames() {
		if s.Transition(i) != nil {
			t.Errorf("slot %d still holds a transition", i)
		}
	}
}

func TestSelectRandomTransitionVisitsEveryFrame(t *testing.T) {
	const n = 6

	clock := clockwork.NewFakeClock()
	m := texture.NewManager(3, texture.NewPool(4, 8))
	s := newTestScheduler(m, Options{
		Transitions:       []types.TransitionType{types.TransitionSwap},
		Interval:          time.Hour,
		MaxTransitionTime: time.Minute,
	})
	s.Rebuild(grid(n), clock.Now())

	next := render.Handle(1)
	for range n {
		feed(m, next)
		next++
	}

	c := &recorder{}
	s.Tick(c, clock.Now())

	for round := range 3 {
		seen := make(map[int]bool)
		for range n {
			idx, ok := s.SelectRandomTransition(clock.Now())
			if !ok {
				t.Fatalf("round %d: no frame selected", round)
			}
			if seen[idx] {
				t.Fatalf("round %d: frame %d selected twice", round, idx)
			}
			seen[idx] = true

			feed(m, next)
			next++
			clock.Advance(time.Second)
			s.Tick(c, clock.Now())
			if s.Transition(idx) != nil {
				t.Fatalf("round %d: swap on frame %d did not finish", round, idx)
			}
		}
		if len(seen) != n {
			t.Fatalf("round %d: visited %d frames, want %d", round, len(seen), n)
		}
	}
}

func TestSelectRandomTransitionSkipsBusyFrames(t *testing.T) {
	clock := clockwork.NewFakeClock()
	m := texture.NewManager(3, texture.NewPool(4, 8))
	s := newTestScheduler(m, Options{
		Transitions:       []types.TransitionType{types.TransitionFade},
		Durations:         map[types.TransitionType]time.Duration{types.TransitionFade: time.Second},
		Interval:          time.Hour,
		MaxTransitionTime: time.Minute,
	})
	s.Rebuild(grid(2), clock.Now())
	feed(m, 1, 2)
	s.Tick(&recorder{}, clock.Now())

	first, ok := s.SelectRandomTransition(clock.Now())
	if !ok {
		t.Fatal("first selection failed")
	}
	second, ok := s.SelectRandomTransition(clock.Now())
	if !ok || second == first {
		t.Fatalf("second selection = %d, %v; want the other frame", second, ok)
	}
	if _, ok := s.SelectRandomTransition(clock.Now()); ok {
		t.Fatal("selected a frame while both are busy")
	}
}

func TestFallsBackToSwap(t *testing.T) {
	clock := clockwork.NewFakeClock()
	m := texture.NewManager(3, texture.NewPool(4, 8))
	s := newTestScheduler(m, Options{
		// zoom refuses full-screen frames, slide accepts them; only zoom is on offer.
		Transitions:       []types.TransitionType{types.TransitionZoom},
		Interval:          time.Hour,
		MaxTransitionTime: time.Minute,
	})
	s.Rebuild([]types.Rect{{X: 0, Y: 0, W: 1, H: 1}}, clock.Now())
	feed(m, 1)
	s.Tick(&recorder{}, clock.Now())

	tr := s.SelectTransitionForFrame(0, clock.Now())
	if tr.Type() != types.TransitionSwap {
		t.Fatalf("type = %s, want swap", tr.Type())
	}
}

func TestCompletedTransitionSwapsImage(t *testing.T) {
	clock := clockwork.NewFakeClock()
	m := texture.NewManager(3, texture.NewPool(4, 8))
	s := newTestScheduler(m, Options{
		Transitions:       []types.TransitionType{types.TransitionFade},
		Durations:         map[types.TransitionType]time.Duration{types.TransitionFade: time.Second},
		Interval:          time.Hour,
		MaxTransitionTime: time.Minute,
	})
	g := types.Rect{X: 0.5, Y: 0.5, W: 0.5, H: 0.5}
	s.Rebuild([]types.Rect{g}, clock.Now())
	feed(m, 1)
	c := &recorder{}
	s.Tick(c, clock.Now())

	s.SelectTransitionForFrame(0, clock.Now())
	feed(m, 2)
	s.Tick(c, clock.Now())
	clock.Advance(400 * time.Millisecond)
	s.Tick(c, clock.Now())
	if s.Transition(0) == nil {
		t.Fatal("fade finished early")
	}

	clock.Advance(2 * time.Second)
	c.calls = nil
	s.Tick(c, clock.Now())

	want := drawCall{2, render.Quad{Dst: g, Clip: g, Alpha: 1}}
	if diff := cmp.Diff(want, c.last()); diff != "" {
		t.Errorf("final draw (-want +got):\n%s", diff)
	}
	if got := s.Frames()[0].Image().Handle; got != 2 {
		t.Errorf("frame shows handle %d, want 2", got)
	}
	if got := m.Pool().Stats().Handles; got != 1 {
		t.Errorf("pool holds %d handles, want the old one back", got)
	}
}

func TestTimeoutForcesTransitionToFinish(t *testing.T) {
	clock := clockwork.NewFakeClock()
	m := texture.NewManager(3, texture.NewPool(4, 8))
	s := newTestScheduler(m, Options{
		Transitions:       []types.TransitionType{types.TransitionFade},
		Durations:         map[types.TransitionType]time.Duration{types.TransitionFade: time.Second},
		Interval:          time.Hour,
		MaxTransitionTime: 5 * time.Second,
	})
	g := types.Rect{X: 0, Y: 0, W: 0.5, H: 0.5}
	s.Rebuild([]types.Rect{g}, clock.Now())
	feed(m, 1)
	c := &recorder{}
	s.Tick(c, clock.Now())

	s.SelectTransitionForFrame(0, clock.Now())
	s.Tick(c, clock.Now())

	// The incoming image shows up late, so the fade cannot finish in time.
	clock.Advance(4800 * time.Millisecond)
	feed(m, 2)
	s.Tick(c, clock.Now())
	if s.Transition(0) == nil || !s.Transition(0).IsRunning() {
		t.Fatal("fade not running after its image arrived")
	}

	clock.Advance(300 * time.Millisecond)
	c.calls = nil
	s.Tick(c, clock.Now())

	if s.Transition(0) != nil {
		t.Fatal("transition still running past the timeout")
	}
	snap := s.Snapshot()
	if snap.Forced != 1 || snap.Active != -1 {
		t.Fatalf("snapshot = %+v", snap)
	}
	want := drawCall{2, render.Quad{Dst: g, Clip: g, Alpha: 1}}
	if diff := cmp.Diff(want, c.last()); diff != "" {
		t.Errorf("forced final draw (-want +got):\n%s", diff)
	}
}

func TestSetTransitionsAppliesToRunningKinds(t *testing.T) {
	clock := clockwork.NewFakeClock()
	m := texture.NewManager(3, texture.NewPool(4, 8))
	s := newTestScheduler(m, Options{
		Transitions:       []types.TransitionType{types.TransitionFade},
		Durations:         map[types.TransitionType]time.Duration{types.TransitionFade: 8 * time.Second},
		Interval:          time.Hour,
		MaxTransitionTime: 10 * time.Second,
	})
	s.Rebuild([]types.Rect{{X: 0, Y: 0, W: 0.5, H: 0.5}}, clock.Now())
	feed(m, 1)
	c := &recorder{}
	s.Tick(c, clock.Now())

	old := s.SelectTransitionForFrame(0, clock.Now())
	feed(m, 2)
	s.Tick(c, clock.Now())

	s.SetTransitions([]types.TransitionType{types.TransitionFade},
		map[types.TransitionType]time.Duration{types.TransitionFade: 100 * time.Millisecond},
		types.EasingLinear)
	s.SetInterval(time.Hour, 2*time.Second)

	clock.Advance(9 * time.Second)
	s.Tick(c, clock.Now())
	if s.Transition(0) != nil {
		t.Fatal("old fade still running")
	}

	next := s.SelectTransitionForFrame(0, clock.Now())
	if next == old {
		t.Fatal("fade built with the old duration was reused")
	}
	feed(m, 3)
	s.Tick(c, clock.Now())

	clock.Advance(50 * time.Millisecond)
	s.Tick(c, clock.Now())
	if got := next.Delta(); got != 0.5 {
		t.Errorf("delta after 50ms = %v, want 0.5", got)
	}

	clock.Advance(60 * time.Millisecond)
	s.Tick(c, clock.Now())
	if s.Transition(0) != nil {
		t.Fatal("new fade still running past its duration")
	}
	if got := s.Snapshot().Forced; got != 0 {
		t.Errorf("forced = %d, want 0", got)
	}
	if got := s.Frames()[0].Image().Handle; got != 3 {
		t.Errorf("frame shows handle %d, want 3", got)
	}
}

func TestTimeoutKeepsOldImageWhenNewOneNeverArrived(t *testing.T) {
	clock := clockwork.NewFakeClock()
	m := texture.NewManager(3, texture.NewPool(4, 8))
	s := newTestScheduler(m, Options{
		Transitions:       []types.TransitionType{types.TransitionFade},
		Durations:         map[types.TransitionType]time.Duration{types.TransitionFade: time.Second},
		Interval:          time.Hour,
		MaxTransitionTime: 5 * time.Second,
	})
	s.Rebuild([]types.Rect{{X: 0, Y: 0, W: 0.5, H: 0.5}}, clock.Now())
	feed(m, 7)
	s.Tick(&recorder{}, clock.Now())

	s.SelectTransitionForFrame(0, clock.Now())
	if got := m.Stats().Pending; got != 1 {
		t.Fatalf("pending = %d, want the incoming frame", got)
	}

	clock.Advance(6 * time.Second)
	s.Tick(&recorder{}, clock.Now())

	if s.Transition(0) != nil {
		t.Fatal("transition still running past the timeout")
	}
	if got := m.Stats().Pending; got != 0 {
		t.Errorf("pending = %d, incoming request not withdrawn", got)
	}
	if got := s.Frames()[0].Image().Handle; got != 7 {
		t.Errorf("frame shows handle %d, want the old image", got)
	}
}

func TestIntervalStartsNextTransition(t *testing.T) {
	clock := clockwork.NewFakeClock()
	m := texture.NewManager(3, texture.NewPool(4, 8))
	s := newTestScheduler(m, Options{
		Transitions:       []types.TransitionType{types.TransitionSwap},
		Interval:          3 * time.Second,
		MaxTransitionTime: time.Minute,
	})
	s.Rebuild(grid(2), clock.Now())
	feed(m, 1, 2)

	s.Tick(&recorder{}, clock.Now())
	if s.Snapshot().Active != -1 {
		t.Fatal("transition started before the interval passed")
	}

	clock.Advance(3 * time.Second)
	s.Tick(&recorder{}, clock.Now())
	snap := s.Snapshot()
	if snap.Active == -1 || snap.ActiveType != string(types.TransitionSwap) {
		t.Fatalf("snapshot = %+v, want a running swap", snap)
	}
	if s.Next(clock.Now()) {
		t.Error("Next started a second transition while one runs")
	}
}

func TestCloseReturnsEverything(t *testing.T) {
	clock := clockwork.NewFakeClock()
	pool := texture.NewPool(4, 8)
	m := texture.NewManager(3, pool)
	s := newTestScheduler(m, Options{
		Transitions:       []types.TransitionType{types.TransitionFade},
		Durations:         map[types.TransitionType]time.Duration{types.TransitionFade: time.Second},
		Interval:          time.Hour,
		MaxTransitionTime: time.Minute,
	})
	s.Rebuild(grid(3), clock.Now())
	feed(m, 1, 2, 3)
	s.Tick(&recorder{}, clock.Now())
	s.SelectTransitionForFrame(1, clock.Now())

	s.Close()

	if got := m.Stats().Pending; got != 0 {
		t.Errorf("pending = %d after close", got)
	}
	if got := pool.Stats().Handles; got != 3 {
		t.Errorf("pool holds %d handles, want 3", got)
	}
}

func TestRelayoutKeepsImages(t *testing.T) {
	clock := clockwork.NewFakeClock()
	m := texture.NewManager(3, texture.NewPool(4, 8))
	s := newTestScheduler(m, Options{
		Transitions:       []types.TransitionType{types.TransitionSwap},
		Interval:          time.Hour,
		MaxTransitionTime: time.Minute,
	})
	s.Rebuild(grid(2), clock.Now())
	feed(m, 10, 11)
	s.Tick(&recorder{}, clock.Now())

	moved := []types.Rect{{X: 0, Y: 0.5, W: 0.5, H: 0.5}, {X: 0.5, Y: 0.5, W: 0.5, H: 0.5}}
	s.Relayout(moved, clock.Now())
	for i, f := range s.Frames() {
		if f.Geometry() != moved[i] || !f.Loaded() {
			t.Errorf("frame %d: geometry %v loaded %v", i, f.Geometry(), f.Loaded())
		}
	}

	s.Relayout(grid(3), clock.Now())
	if n := len(s.Frames()); n != 3 {
		t.Fatalf("frames = %d after a count change", n)
	}
	if s.Frames()[0].Loaded() {
		t.Error("rebuilt frame kept an image")
	}
}
