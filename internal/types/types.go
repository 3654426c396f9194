package types

import "fmt"

type ScalingMode string

const (
	ScalingModeCenter        ScalingMode = "center"
	ScalingModeStretch       ScalingMode = "stretched"
	ScalingModeFitHorizontal ScalingMode = "horizontal"
	ScalingModeFitVertical   ScalingMode = "vertical"
)

type EasingMode string

const (
	EasingLinear    EasingMode = "linear"
	EasingEaseIn    EasingMode = "ease-in"
	EasingEaseOut   EasingMode = "ease-out"
	EasingEaseInOut EasingMode = "ease-in-out"
)

// TransitionType names one kind of animation between two images of a cell.
type TransitionType string

const (
	TransitionNone  TransitionType = "none"  // waits for the first image, draws nothing extra
	TransitionSwap  TransitionType = "swap"  // replaces the image in one frame
	TransitionFade  TransitionType = "fade"  // crossfade
	TransitionSlide TransitionType = "slide" // slides in from a screen edge
	TransitionZoom  TransitionType = "zoom"  // grows from the cell centre
)

// Edge tolerance for deciding whether a rect touches the screen border.
const edgeEpsilon = 1e-4

// Rect is an axis aligned rectangle in normalized screen space, where the
// screen spans 0..1 on both axes and Y grows downwards.
type Rect struct {
	X, Y, W, H float32
}

func (r Rect) Right() float32  { return r.X + r.W }
func (r Rect) Bottom() float32 { return r.Y + r.H }

func (r Rect) CenterX() float32 { return r.X + r.W/2 }
func (r Rect) CenterY() float32 { return r.Y + r.H/2 }

func (r Rect) TouchesLeft() bool   { return r.X <= edgeEpsilon }
func (r Rect) TouchesTop() bool    { return r.Y <= edgeEpsilon }
func (r Rect) TouchesRight() bool  { return r.Right() >= 1-edgeEpsilon }
func (r Rect) TouchesBottom() bool { return r.Bottom() >= 1-edgeEpsilon }

// TouchesEdge reports whether any side of r lies on the screen border.
func (r Rect) TouchesEdge() bool {
	return r.TouchesLeft() || r.TouchesTop() || r.TouchesRight() || r.TouchesBottom()
}

// Offset returns r moved by dx, dy.
func (r Rect) Offset(dx, dy float32) Rect {
	return Rect{X: r.X + dx, Y: r.Y + dy, W: r.W, H: r.H}
}

// ScaleAboutCenter returns r scaled by s around its own centre.
func (r Rect) ScaleAboutCenter(s float32) Rect {
	w, h := r.W*s, r.H*s
	return Rect{X: r.CenterX() - w/2, Y: r.CenterY() - h/2, W: w, H: h}
}

func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

func (r Rect) String() string {
	return fmt.Sprintf("(%.3f,%.3f %.3fx%.3f)", r.X, r.Y, r.W, r.H)
}
