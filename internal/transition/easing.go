package transition

import "github.com/matjam/smoothframes/internal/types"

// Ease maps progress t in 0..1 through the easing curve of mode. Every
// curve maps 0 to 0 and 1 to 1 and never decreases.
func Ease(mode types.EasingMode, t float32) float32 {
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}

	switch mode {
	case types.EasingLinear:
		return t
	case types.EasingEaseIn:
		return t * t
	case types.EasingEaseOut:
		return t * (2 - t)
	case types.EasingEaseInOut:
		if t < 0.5 {
			return 2 * t * t
		} else {
			return -1 + (4-2*t)*t
		}
	default:
		return t
	}
}
