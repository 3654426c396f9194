// Package texture moves decoded images from the background loader to the
// frames on screen: a bounded handoff queue, the registry of frames waiting
// for an image, the pool of recycled buffers and texture handles, and the
// loader goroutine feeding them.
package texture

import (
	"fmt"
	"image"

	"github.com/matjam/smoothframes/internal/render"
)

// Resource is one decoded image bound to a GPU texture. Exactly one owner
// holds a Resource at any time: the queue, a frame, a transition or the pool.
type Resource struct {
	Handle render.Handle
	Buffer *image.RGBA
	Path   string
	Size   image.Point

	// Err is set on invalid resources.
	Err error
}

// Valid reports whether r carries a usable texture.
func (r *Resource) Valid() bool {
	return r != nil && r.Err == nil && r.Handle != 0
}

func (r *Resource) String() string {
	if r == nil {
		return "<nil>"
	}
	if r.Err != nil {
		return fmt.Sprintf("invalid(%s: %v)", r.Path, r.Err)
	}
	return fmt.Sprintf("texture(%d %s %dx%d)", r.Handle, r.Path, r.Size.X, r.Size.Y)
}

// invalid builds the sentinel returned for a file that could not be decoded
// or uploaded. It never carries a handle.
func invalid(path string, err error) *Resource {
	if err == nil {
		err = fmt.Errorf("no image")
	}
	return &Resource{Path: path, Err: err}
}
