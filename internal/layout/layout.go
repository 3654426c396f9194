// Package layout computes where the cells of the slideshow grid sit.
package layout

import "github.com/matjam/smoothframes/internal/types"

// Grid splits the unit square into rows x columns cells, row by row from the
// top left, leaving gap between neighbouring cells. The outer cells stay
// flush with the screen edges so that edge-sensitive transitions can tell
// which cells touch them.
func Grid(rows, columns int, gap float32) []types.Rect {
	if rows < 1 || columns < 1 {
		return nil
	}
	if gap < 0 {
		gap = 0
	}

	w := (1 - gap*float32(columns-1)) / float32(columns)
	h := (1 - gap*float32(rows-1)) / float32(rows)

	cells := make([]types.Rect, 0, rows*columns)
	for r := range rows {
		for c := range columns {
			cell := types.Rect{
				X: float32(c) * (w + gap),
				Y: float32(r) * (h + gap),
				W: w,
				H: h,
			}
			// Snap the last row and column to the edge so rounding never
			// leaves a sliver.
			if c == columns-1 {
				cell.W = 1 - cell.X
			}
			if r == rows-1 {
				cell.H = 1 - cell.Y
			}
			cells = append(cells, cell)
		}
	}
	return cells
}

// Pixels converts r from normalized coordinates to a pixel rectangle on a
// screen of width x height, with the origin at the top left.
func Pixels(r types.Rect, width, height int) (x, y, w, h int) {
	x = int(r.X*float32(width) + 0.5)
	y = int(r.Y*float32(height) + 0.5)
	w = int(r.Right()*float32(width)+0.5) - x
	h = int(r.Bottom()*float32(height)+0.5) - y
	return x, y, w, h
}

// CellSize is the pixel size images for a rows x columns grid should be
// decoded to.
func CellSize(rows, columns int, gap float32, width, height int) (int, int) {
	cells := Grid(rows, columns, gap)
	if len(cells) == 0 {
		return 0, 0
	}
	_, _, w, h := Pixels(cells[0], width, height)
	return w, h
}
