// Package decode reads image files and scales them to the size of a grid
// cell, ready for upload.
package decode

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"sync"

	"github.com/spf13/afero"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/matjam/smoothframes/internal/types"
)

// DefaultMaxPixels rejects images larger than a 100 megapixel photo before
// their pixels are decoded.
const DefaultMaxPixels = 100_000_000

// ErrTooLarge is returned for images above the pixel limit.
var ErrTooLarge = errors.New("image too large")

// Decoder decodes files from a file system. It is safe for concurrent use.
type Decoder struct {
	fs        afero.Fs
	maxPixels int

	mu   sync.RWMutex
	mode types.ScalingMode
}

func New(fs afero.Fs, mode types.ScalingMode) *Decoder {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Decoder{
		fs:        fs,
		maxPixels: DefaultMaxPixels,
		mode:      mode,
	}
}

// SetMode changes the scaling mode for later decodes.
func (d *Decoder) SetMode(mode types.ScalingMode) {
	d.mu.Lock()
	d.mode = mode
	d.mu.Unlock()
}

// SetMaxPixels changes the size limit. Zero or less removes it.
func (d *Decoder) SetMaxPixels(n int) {
	d.maxPixels = n
}

// Decode reads path and returns its pixels scaled to size. A zero size keeps
// the image's own size. reuse is written into when its bounds match.
func (d *Decoder) Decode(path string, size image.Point, reuse *image.RGBA) (*image.RGBA, error) {
	img, err := d.read(path)
	if err != nil {
		return nil, err
	}

	if size.X <= 0 || size.Y <= 0 {
		size = img.Bounds().Size()
	}
	dst := reuse
	if dst == nil || dst.Rect.Size() != size {
		dst = image.NewRGBA(image.Rectangle{Max: size})
	}

	d.mu.RLock()
	mode := d.mode
	d.mu.RUnlock()

	if img.Bounds().Size() == size {
		draw.Draw(dst, dst.Bounds(), img, img.Bounds().Min, draw.Src)
		return dst, nil
	}
	ScaleInto(dst, img, mode)
	return dst, nil
}

func (d *Decoder) read(path string) (image.Image, error) {
	f, err := d.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%s: empty %s image", path, format)
	}
	if d.maxPixels > 0 && cfg.Width*cfg.Height > d.maxPixels {
		return nil, fmt.Errorf("%s: %dx%d: %w", path, cfg.Width, cfg.Height, ErrTooLarge)
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewinding %s: %w", path, err)
	}
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return img, nil
}
