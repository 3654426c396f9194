package frame

import (
	"github.com/charmbracelet/log"

	"github.com/matjam/smoothframes/internal/render"
	"github.com/matjam/smoothframes/internal/texture"
	"github.com/matjam/smoothframes/internal/types"
)

// Source hands images to frames and takes them back. texture.Manager
// implements it.
type Source interface {
	Request(r texture.Requestor)
	Cancel(r texture.Requestor) bool
	Release(res *texture.Resource)
}

// Frame is one grid cell showing one image. It asks its Source for an image
// as soon as it is created and shows nothing until the image arrives.
//
// A Frame is only touched by the render thread.
type Frame struct {
	geometry types.Rect
	src      Source
	image    *texture.Resource
	waiting  bool
	released bool
}

// New creates a frame covering geometry and requests its first image.
func New(geometry types.Rect, src Source) *Frame {
	f := &Frame{
		geometry: geometry,
		src:      src,
	}
	f.request()
	return f
}

func (f *Frame) Geometry() types.Rect {
	return f.geometry
}

// SetGeometry moves the frame, for example after a window resize.
func (f *Frame) SetGeometry(r types.Rect) {
	f.geometry = r
}

// Loaded reports whether the frame has an image to draw.
func (f *Frame) Loaded() bool {
	return f.image != nil
}

func (f *Frame) Image() *texture.Resource {
	return f.image
}

// Waiting reports whether the frame sits in its source's waiting list.
func (f *Frame) Waiting() bool {
	return f.waiting
}

// OnResourceReady implements texture.Requestor. An invalid image is thrown
// away and a new one requested straight away.
func (f *Frame) OnResourceReady(res *texture.Resource) {
	f.waiting = false

	if f.released {
		// Torn down while the image was on its way.
		f.src.Release(res)
		return
	}
	if !res.Valid() {
		log.Debug("frame got an invalid image, asking again", "resource", res)
		f.src.Release(res)
		f.request()
		return
	}
	if f.image != nil {
		f.src.Release(f.image)
	}
	f.image = res
}

// Cancel withdraws an outstanding request.
func (f *Frame) Cancel() {
	if f.waiting {
		f.src.Cancel(f)
		f.waiting = false
	}
}

// Release cancels any outstanding request and returns the image to the
// source. The frame must not be used afterwards.
func (f *Frame) Release() {
	f.Cancel()
	if f.image != nil {
		f.src.Release(f.image)
		f.image = nil
	}
	f.released = true
}

// Draw renders the image over the frame's geometry. Frames without an image
// draw nothing.
func (f *Frame) Draw(c render.Canvas, alpha float32) {
	f.DrawAt(c, f.geometry, alpha)
}

// DrawAt renders the image at dst, clipped to the frame.
func (f *Frame) DrawAt(c render.Canvas, dst types.Rect, alpha float32) {
	if f.image == nil || alpha <= 0 {
		return
	}
	c.Draw(f.image.Handle, render.Quad{Dst: dst, Clip: f.geometry, Alpha: alpha})
}

func (f *Frame) request() {
	// Set before asking: the source may answer from inside Request.
	f.waiting = true
	f.src.Request(f)
}
