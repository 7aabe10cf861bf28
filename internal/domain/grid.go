package domain

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// Affine holds the six coefficients (a, b, c, d, e, f) of a grid-to-world
// transform: x = a*col + b*row + c, y = d*col + e*row + f.
type Affine [6]float64

// NorthUp builds the transform of an unrotated grid whose top-left corner is
// at (originX, originY) with square cells of the given size.
func NorthUp(originX, originY, cellSize float64) Affine {
	return Affine{cellSize, 0, originX, 0, -cellSize, originY}
}

// Apply maps grid coordinates to world coordinates.
func (t Affine) Apply(col, row float64) (x, y float64) {
	return t[0]*col + t[1]*row + t[2], t[3]*col + t[4]*row + t[5]
}

func (t Affine) determinant() float64 {
	return t[0]*t[4] - t[1]*t[3]
}

// Invert maps world coordinates back to fractional grid coordinates.
// The transform must be invertible; see GridDescriptor.Validate.
func (t Affine) Invert(x, y float64) (col, row float64) {
	det := t.determinant()
	dx, dy := x-t[2], y-t[5]
	col = (t[4]*dx - t[1]*dy) / det
	row = (-t[3]*dx + t[0]*dy) / det
	return col, row
}

// GridDescriptor captures the spatial grid of a raster.
type GridDescriptor struct {
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Transform Affine `json:"transform"`
}

// Validate reports whether the descriptor describes a usable grid.
func (g GridDescriptor) Validate() error {
	if g.Width <= 0 || g.Height <= 0 {
		return fmt.Errorf("invalid grid size %dx%d", g.Width, g.Height)
	}
	for _, v := range g.Transform {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.New("grid transform has non-finite coefficient")
		}
	}
	if g.Transform.determinant() == 0 {
		return errors.New("grid transform is not invertible")
	}
	return nil
}

// Consistent reports whether two grids have the same width, height and
// transform, compared exactly.
func (g GridDescriptor) Consistent(other GridDescriptor) bool {
	return g.Width == other.Width && g.Height == other.Height && g.Transform == other.Transform
}

// Contains reports whether (i, j) addresses a cell of the grid.
func (g GridDescriptor) Contains(c CellIndex) bool {
	return c.I >= 0 && c.I < g.Width && c.J >= 0 && c.J < g.Height
}

// toGrid maps a world point into fractional grid space.
func (g GridDescriptor) toGrid(p orb.Point) (col, row float64) {
	return g.Transform.Invert(p[0], p[1])
}

// cellOf floors fractional grid coordinates to a cell. The result may lie
// outside the grid.
func cellOf(col, row float64) CellIndex {
	return CellIndex{I: int(math.Floor(col)), J: int(math.Floor(row))}
}
