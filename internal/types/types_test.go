package types

import "testing"

func TestRectEdges(t *testing.T) {
	tests := []struct {
		name string
		r    Rect
		want bool
	}{
		{"full screen", Rect{0, 0, 1, 1}, true},
		{"top left cell", Rect{0, 0, 0.5, 0.5}, true},
		{"bottom right cell", Rect{0.5, 0.5, 0.5, 0.5}, true},
		{"centre cell", Rect{0.34, 0.34, 0.32, 0.32}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.r.TouchesEdge(); got != tt.want {
				t.Errorf("TouchesEdge(%v) = %v, want %v", tt.r, got, tt.want)
			}
		})
	}
}

func TestRectScaleAboutCenter(t *testing.T) {
	r := Rect{X: 0.2, Y: 0.2, W: 0.4, H: 0.2}
	s := r.ScaleAboutCenter(0.5)
	if !near(s.CenterX(), r.CenterX()) || !near(s.CenterY(), r.CenterY()) {
		t.Fatalf("centre moved: %v -> %v", r, s)
	}
	if !near(s.W, 0.2) || !near(s.H, 0.1) {
		t.Fatalf("unexpected size %v", s)
	}
}

func near(a, b float32) bool {
	d := a - b
	return d < 1e-6 && d > -1e-6
}
