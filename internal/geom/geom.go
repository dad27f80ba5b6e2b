// Package geom holds the geometry primitives shared by the World and the
// Placement Engine: rectangles, points, sizes and the small set of
// arithmetic helpers used for grid placement and verification. Coordinates
// are global screen coordinates with a bottom-left origin throughout, per
// spec.md §6.
package geom

import "math"

type Point struct {
	X, Y float64
}

type Size struct {
	W, H float64
}

type Rect struct {
	X, Y, W, H float64
}

func (r Rect) Origin() Point { return Point{X: r.X, Y: r.Y} }
func (r Rect) Size() Size    { return Size{W: r.W, H: r.H} }

// Contains reports whether point (x, y) falls within r (inclusive of the
// origin edges, exclusive of the far edges), matching AppKit's convention.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}

// ApproxEq reports whether a and b differ by no more than eps.
func ApproxEq(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

// Delta is the per-component difference target-minus-observed, used for
// placement verification diagnostics.
type Delta struct {
	DX, DY, DW, DH float64
}

func (d Delta) WithinEps(eps float64) bool {
	return math.Abs(d.DX) <= eps && math.Abs(d.DY) <= eps &&
		math.Abs(d.DW) <= eps && math.Abs(d.DH) <= eps
}

// Sub computes target - observed component-wise.
func Sub(target, observed Rect) Delta {
	return Delta{
		DX: target.X - observed.X,
		DY: target.Y - observed.Y,
		DW: target.W - observed.W,
		DH: target.H - observed.H,
	}
}

// GlobalizeRect adds a screen/visible-frame origin to a rectangle expressed
// in local (screen-relative) coordinates, producing a global-coordinate
// rectangle. Grounded on mac-winops/src/screen_util.rs globalize_rect.
func GlobalizeRect(local Rect, originX, originY float64) Rect {
	return Rect{X: originX + local.X, Y: originY + local.Y, W: local.W, H: local.H}
}

// ClampFlags records which visible-frame edges a rectangle is clamped
// against, within eps. Used by the Placement Engine's "anchored" outcome.
type ClampFlags struct {
	Left, Right, Bottom, Top bool
}

func (c ClampFlags) Any() bool { return c.Left || c.Right || c.Bottom || c.Top }

// ComputeClampFlags reports which edges of vf the rectangle got touches,
// within eps.
func ComputeClampFlags(vf, got Rect, eps float64) ClampFlags {
	return ClampFlags{
		Left:   ApproxEq(got.X, vf.X, eps),
		Right:  ApproxEq(got.X+got.W, vf.X+vf.W, eps),
		Bottom: ApproxEq(got.Y, vf.Y, eps),
		Top:    ApproxEq(got.Y+got.H, vf.Y+vf.H, eps),
	}
}

// GridCell computes the target rectangle for grid cell (col, row) of a
// cols x rows grid tiling the visible frame vf. Tiling floors to integer
// pixel borders; the last row/column absorbs rounding residue so the grid
// exactly covers vf. Grounded on mac-winops/src/place/mod.rs & geometry.rs.
func GridCell(vf Rect, cols, rows, col, row int) Rect {
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	if col < 0 {
		col = 0
	}
	if col >= cols {
		col = cols - 1
	}
	if row < 0 {
		row = 0
	}
	if row >= rows {
		row = rows - 1
	}

	tileW := math.Floor(vf.W / float64(cols))
	tileH := math.Floor(vf.H / float64(rows))
	if tileW < 1 {
		tileW = 1
	}
	if tileH < 1 {
		tileH = 1
	}

	w := tileW
	if col == cols-1 {
		w = vf.W - tileW*float64(cols-1)
	}
	h := tileH
	if row == rows-1 {
		h = vf.H - tileH*float64(rows-1)
	}

	return Rect{
		X: vf.X + tileW*float64(col),
		Y: vf.Y + tileH*float64(row),
		W: w,
		H: h,
	}
}

// GridGuessCellByPos maps a point to its (col, row) within a cols x rows
// grid tiling vf, clamped to grid bounds. Grounded on
// mac-winops/src/place/mod.rs grid_guess_cell_by_pos.
func GridGuessCellByPos(vf Rect, cols, rows int, p Point) (col, row int) {
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	tileW := math.Floor(vf.W / float64(cols))
	tileH := math.Floor(vf.H / float64(rows))
	if tileW < 1 {
		tileW = 1
	}
	if tileH < 1 {
		tileH = 1
	}

	c := int(math.Floor((p.X - vf.X) / tileW))
	r := int(math.Floor((p.Y - vf.Y) / tileH))
	if c < 0 {
		c = 0
	}
	if r < 0 {
		r = 0
	}
	if c >= cols {
		c = cols - 1
	}
	if r >= rows {
		r = rows - 1
	}
	return c, r
}
