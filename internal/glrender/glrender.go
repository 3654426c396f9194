package glrender

/*
#cgo LDFLAGS: -lGL -lX11
#include <GL/gl.h>
#include <X11/Xlib.h>
#include <X11/Xatom.h>
#include <X11/Xutil.h>
#include <stdlib.h>
#include <string.h>

void set_window_override_redirect(Display* display, Window win) {
    XSetWindowAttributes attrs;
    attrs.override_redirect = True;
    XChangeWindowAttributes(display, win, CWOverrideRedirect, &attrs);
}

void set_net_wm_window_type_desktop(Display* display, Window win) {
    Atom net_wm_window_type = XInternAtom(display, "_NET_WM_WINDOW_TYPE", False);
    Atom net_wm_window_type_desktop = XInternAtom(display, "_NET_WM_WINDOW_TYPE_DESKTOP", False);
    XChangeProperty(display, win, net_wm_window_type, XA_ATOM, 32, PropModeReplace, (unsigned char *)&net_wm_window_type_desktop, 1);
}
*/
import "C"

import (
	"context"
	"fmt"
	"image"
	"os"
	"runtime"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-gl/gl/v2.1/gl"
	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/matjam/smoothframes/internal/layout"
	"github.com/matjam/smoothframes/internal/render"
)

type Options struct {
	Framerate int  // frames per second, clamped to 1..240
	Windowed  bool // a normal decorated window instead of a desktop background

	// OnIconify is called on the render thread when the window is minimized
	// or restored.
	OnIconify func(iconified bool)

	// OnError receives GL errors raised while drawing, on the render thread.
	// Upload failures are returned by Bind instead.
	OnError func(error)
}

// Window is an OpenGL 2.1 window that draws the slideshow. It implements
// render.Binder and render.Canvas and owns the render loop. Everything but New
// must run on the thread that called New.
type Window struct {
	win       *glfw.Window
	framerate int
	log       *log.Logger
	onError   func(error)

	size     image.Point
	textures map[render.Handle]image.Point
}

// New opens the window. The calling goroutine is locked to its OS thread and
// becomes the render thread.
func New(opts Options) (*Window, error) {
	runtime.LockOSThread()
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("glfw init failed: %w", err)
	}

	vidMode := glfw.GetPrimaryMonitor().GetVideoMode()
	width, height := vidMode.Width, vidMode.Height
	if opts.Windowed {
		glfw.WindowHint(glfw.Resizable, glfw.True)
		width, height = width/2, height/2
	} else {
		glfw.WindowHint(glfw.Decorated, glfw.False)
		glfw.WindowHint(glfw.Focused, glfw.False)
		glfw.WindowHint(glfw.Floating, glfw.False)
		glfw.WindowHint(glfw.Resizable, glfw.False)
		glfw.WindowHint(glfw.Visible, glfw.False) // prevent auto-map
	}

	win, err := glfw.CreateWindow(width, height, "smoothframes", nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("create window failed: %w", err)
	}

	if !opts.Windowed {
		if os.Getenv("XDG_SESSION_TYPE") == "wayland" {
			log.Warn("desktop window hints need X11, showing a normal window")
			win.Show()
		} else {
			// --- Begin compositor-safe setup ---
			display := C.XOpenDisplay(nil)
			if display != nil {
				displayWindow := C.Window(win.GetX11Window())
				C.set_window_override_redirect(display, displayWindow)
				C.set_net_wm_window_type_desktop(display, displayWindow)
				C.XMapWindow(display, displayWindow)
				C.XLowerWindow(display, displayWindow)
				C.XFlush(display)
			}
			// --- End compositor-safe setup ---
		}
	}

	win.MakeContextCurrent()

	if err := gl.Init(); err != nil {
		win.Destroy()
		glfw.Terminate()
		return nil, fmt.Errorf("gl init failed: %w", err)
	}
	gl.ClearColor(0.0, 0.0, 0.0, 1.0)

	framerate := opts.Framerate
	if framerate <= 0 {
		framerate = 60
	} else if framerate > 240 {
		framerate = 240
	}

	w := &Window{
		win:       win,
		framerate: framerate,
		log:       log.WithPrefix("gl"),
		onError:   opts.OnError,
		textures:  make(map[render.Handle]image.Point),
	}
	if opts.OnIconify != nil {
		win.SetIconifyCallback(func(_ *glfw.Window, iconified bool) {
			opts.OnIconify(iconified)
		})
	}
	w.updateViewport()

	w.log.Info("window ready", "size", w.size, "framerate", framerate,
		"renderer", gl.GoStr(gl.GetString(gl.RENDERER)))
	return w, nil
}

// Size returns the framebuffer size in pixels.
func (w *Window) Size() image.Point {
	return w.size
}

func (w *Window) updateViewport() {
	fw, fh := w.win.GetFramebufferSize()
	size := image.Pt(fw, fh)
	if size == w.size {
		return
	}
	w.size = size
	gl.Viewport(0, 0, int32(fw), int32(fh))
}

// Bind uploads pixels. When reuse names a texture of the same size its storage
// is overwritten in place.
func (w *Window) Bind(pixels *image.RGBA, reuse render.Handle) (render.Handle, error) {
	// Errors pending from earlier drawing are not the upload's.
	if code := glError(); code != gl.NO_ERROR {
		w.drawError(code)
	}

	size := pixels.Rect.Size()
	tex := uint32(reuse)
	created := false
	if tex == 0 {
		gl.GenTextures(1, &tex)
		created = true
	}

	gl.BindTexture(gl.TEXTURE_2D, tex)
	if !created && w.textures[reuse] == size {
		gl.TexSubImage2D(gl.TEXTURE_2D, 0, 0, 0,
			int32(size.X), int32(size.Y),
			gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pixels.Pix))
	} else {
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)

		gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA,
			int32(size.X), int32(size.Y), 0,
			gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pixels.Pix))
	}
	gl.BindTexture(gl.TEXTURE_2D, 0)

	if code := glError(); code != gl.NO_ERROR {
		if created {
			gl.DeleteTextures(1, &tex)
		}
		return 0, fmt.Errorf("texture upload failed: gl error 0x%04x", code)
	}
	w.textures[render.Handle(tex)] = size
	return render.Handle(tex), nil
}

func (w *Window) Delete(h render.Handle) {
	if h == 0 {
		return
	}
	tex := uint32(h)
	gl.DeleteTextures(1, &tex)
	delete(w.textures, h)
}

// Draw implements render.Canvas.
func (w *Window) Draw(h render.Handle, q render.Quad) {
	if h == 0 || q.Alpha <= 0 || q.Clip.Empty() {
		return
	}

	x, y, cw, ch := layout.Pixels(q.Clip, w.size.X, w.size.Y)
	gl.Enable(gl.SCISSOR_TEST)
	gl.Scissor(int32(x), int32(w.size.Y-y-ch), int32(cw), int32(ch))

	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	gl.Enable(gl.TEXTURE_2D)
	gl.BindTexture(gl.TEXTURE_2D, uint32(h))
	gl.Color4f(1, 1, 1, q.Alpha)

	drawQuad(q)

	gl.Disable(gl.TEXTURE_2D)
	gl.Disable(gl.BLEND)
	gl.Disable(gl.SCISSOR_TEST)
}

// drawQuad maps q.Dst from normalized top-left space to clip space.
func drawQuad(q render.Quad) {
	left := q.Dst.X*2 - 1
	right := q.Dst.Right()*2 - 1
	top := 1 - q.Dst.Y*2
	bottom := 1 - q.Dst.Bottom()*2

	gl.Begin(gl.QUADS)
	gl.TexCoord2f(0, 1)
	gl.Vertex2f(left, bottom)
	gl.TexCoord2f(1, 1)
	gl.Vertex2f(right, bottom)
	gl.TexCoord2f(1, 0)
	gl.Vertex2f(right, top)
	gl.TexCoord2f(0, 0)
	gl.Vertex2f(left, top)
	gl.End()
}

// Loop renders frames until the window is closed, ctx is done or frame
// returns an error.
func (w *Window) Loop(ctx context.Context, frame render.FrameFunc) error {
	period := time.Second / time.Duration(w.framerate)
	for !w.win.ShouldClose() {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := time.Now()

		w.updateViewport()
		gl.Clear(gl.COLOR_BUFFER_BIT)
		if err := frame(w); err != nil {
			return err
		}
		if code := glError(); code != gl.NO_ERROR {
			w.drawError(code)
		}

		w.win.SwapBuffers()
		glfw.PollEvents()
		if rest := period - time.Since(start); rest > 0 {
			time.Sleep(rest)
		}
	}
	w.log.Info("window closed")
	return nil
}

func (w *Window) drawError(code uint32) {
	err := fmt.Errorf("gl error 0x%04x while drawing", code)
	w.log.Warn("gl error during frame", "code", fmt.Sprintf("0x%04x", code))
	if w.onError != nil {
		w.onError(err)
	}
}

// glError returns the first pending error flag and clears the others. An
// implementation may keep one flag per error kind.
func glError() uint32 {
	first := uint32(gl.NO_ERROR)
	for range 8 {
		code := gl.GetError()
		if code == gl.NO_ERROR {
			break
		}
		if first == gl.NO_ERROR {
			first = code
		}
	}
	return first
}

// Close destroys the window. Textures still bound are freed with the context.
func (w *Window) Close() {
	if w.win != nil {
		w.win.Destroy()
		w.win = nil
	}
	glfw.Terminate()
}
