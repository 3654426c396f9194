package decode

import (
	"image"

	"golang.org/x/image/draw"

	"github.com/matjam/smoothframes/internal/types"
)

// Placement returns where an image of size src lands inside a target of
// size dst under mode.
func Placement(src, dst image.Point, mode types.ScalingMode) image.Rectangle {
	srcW, srcH := src.X, src.Y
	targetW, targetH := dst.X, dst.Y

	switch mode {
	case types.ScalingModeStretch:
		return image.Rect(0, 0, targetW, targetH)
	case types.ScalingModeFitHorizontal:
		scale := float64(targetW) / float64(srcW)
		h := int(float64(srcH) * scale)
		y := (targetH - h) / 2
		return image.Rect(0, y, targetW, y+h)
	case types.ScalingModeFitVertical:
		scale := float64(targetH) / float64(srcH)
		w := int(float64(srcW) * scale)
		x := (targetW - w) / 2
		return image.Rect(x, 0, x+w, targetH)
	case types.ScalingModeCenter:
		fallthrough
	default:
		// Fit inside, keeping the aspect ratio, and centre.
		scale := min(float64(targetW)/float64(srcW), float64(targetH)/float64(srcH))
		w := int(float64(srcW)*scale + 0.5)
		h := int(float64(srcH)*scale + 0.5)
		x := (targetW - w) / 2
		y := (targetH - h) / 2
		return image.Rect(x, y, x+w, y+h)
	}
}

// ScaleInto draws img into dst according to mode. Whatever dst held before
// is cleared to transparent.
func ScaleInto(dst *image.RGBA, img image.Image, mode types.ScalingMode) {
	draw.Draw(dst, dst.Bounds(), image.Transparent, image.Point{}, draw.Src)

	dstRect := Placement(img.Bounds().Size(), dst.Bounds().Size(), mode)
	d := draw.CatmullRom
	d.Scale(dst, dstRect, img, img.Bounds(), draw.Over, nil)
}
