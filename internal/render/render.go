package render

import (
	"image"

	"github.com/matjam/smoothframes/internal/types"
)

// Handle is an opaque GPU texture name. Zero means no texture.
type Handle uint32

// Quad describes one textured draw in normalized screen space.
type Quad struct {
	Dst   types.Rect // where the texture lands
	Clip  types.Rect // nothing outside Clip is touched
	Alpha float32
}

// Binder is the GPU side of texture management. Every method must be called
// on the render thread.
type Binder interface {
	Bind(pixels *image.RGBA, reuse Handle) (Handle, error) // Upload pixels, reusing reuse if non-zero
	Delete(h Handle)                                       // Free a texture
}

// Canvas receives the draws of one render pass.
type Canvas interface {
	Draw(h Handle, q Quad)
}

// Dispatcher runs units of work on the single thread that owns the graphics
// context.
type Dispatcher interface {
	Dispatch(fn func())
	IsRenderThread() bool
}

// FrameFunc draws one frame. A non-nil error ends the render loop.
type FrameFunc func(c Canvas) error
