package geom

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGridCellTilesExactly(t *testing.T) {
	vf := Rect{X: 0, Y: 0, W: 1441, H: 901}

	var union float64
	for col := 0; col < 3; col++ {
		for row := 0; row < 2; row++ {
			cell := GridCell(vf, 3, 2, col, row)
			require.GreaterOrEqual(t, cell.X, vf.X)
			require.GreaterOrEqual(t, cell.Y, vf.Y)
			require.LessOrEqual(t, cell.X+cell.W, vf.X+vf.W+0.001)
			require.LessOrEqual(t, cell.Y+cell.H, vf.Y+vf.H+0.001)
			if col == 0 {
				union += cell.H
			}
		}
	}
	require.InDelta(t, vf.H, union, 0.001, "column of rows must exactly cover the visible frame height")
}

func TestGridCellClampsOutOfRange(t *testing.T) {
	vf := Rect{X: 0, Y: 0, W: 1000, H: 1000}
	inBounds := GridCell(vf, 2, 2, 1, 1)
	clampedHigh := GridCell(vf, 2, 2, 99, 99)
	clampedLow := GridCell(vf, 2, 2, -5, -5)
	require.Equal(t, inBounds, clampedHigh)
	require.Equal(t, GridCell(vf, 2, 2, 0, 0), clampedLow)
}

func TestGridGuessCellByPosRoundTrip(t *testing.T) {
	vf := Rect{X: 100, Y: 200, W: 1200, H: 800}
	for col := 0; col < 4; col++ {
		for row := 0; row < 3; row++ {
			cell := GridCell(vf, 4, 3, col, row)
			mid := Point{X: cell.X + cell.W/2, Y: cell.Y + cell.H/2}
			gotCol, gotRow := GridGuessCellByPos(vf, 4, 3, mid)
			require.Equal(t, col, gotCol)
			require.Equal(t, row, gotRow)
		}
	}
}

func TestGridGuessCellByPosClampsOutOfBounds(t *testing.T) {
	vf := Rect{X: 0, Y: 0, W: 1000, H: 1000}
	col, row := GridGuessCellByPos(vf, 4, 4, Point{X: -500, Y: 5000})
	require.Equal(t, 0, col)
	require.Equal(t, 3, row)
}

func TestSubAndWithinEps(t *testing.T) {
	target := Rect{X: 10, Y: 10, W: 100, H: 100}
	observed := Rect{X: 11, Y: 9, W: 101, H: 99}
	delta := Sub(target, observed)
	require.True(t, delta.WithinEps(2))
	require.False(t, delta.WithinEps(0.5))
}

func TestComputeClampFlags(t *testing.T) {
	vf := Rect{X: 0, Y: 0, W: 1000, H: 800}
	got := Rect{X: 0, Y: 0, W: 400, H: 300}
	flags := ComputeClampFlags(vf, got, 2)
	require.True(t, flags.Left)
	require.True(t, flags.Bottom)
	require.False(t, flags.Right)
	require.False(t, flags.Top)
	require.True(t, flags.Any())
}

func TestGlobalizeRect(t *testing.T) {
	local := Rect{X: 10, Y: 20, W: 30, H: 40}
	global := GlobalizeRect(local, 100, 200)
	require.Equal(t, Rect{X: 110, Y: 220, W: 30, H: 40}, global)
}
