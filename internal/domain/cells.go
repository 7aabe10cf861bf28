package domain

import (
	"errors"

	"github.com/paulmach/orb"
)

// CellIndexOf returns the cell of a segment, decided the way SplitLineStrings
// decides it: the grid-space midpoint of the first edge with non-zero length.
// A segment with no such edge falls in the cell of its first vertex. Only
// that one edge is checked: the segment is assumed to lie in a single cell.
func CellIndexOf(seg SplitSegment, grid GridDescriptor) (CellIndex, error) {
	if len(seg.Geometry) == 0 {
		return CellIndex{}, errors.New("empty segment geometry")
	}
	cell := segmentCell(seg.Geometry, grid)
	if !grid.Contains(cell) {
		return CellIndex{}, &BoundsError{
			OriginalIndex: seg.OriginalIndex,
			Cell:          cell,
			Width:         grid.Width,
			Height:        grid.Height,
		}
	}
	return cell, nil
}

// AssignCellIndices sets Cell on every segment, stopping at the first error.
func AssignCellIndices(segments []SplitSegment, grid GridDescriptor) error {
	for n := range segments {
		cell, err := CellIndexOf(segments[n], grid)
		if err != nil {
			return err
		}
		segments[n].Cell = cell
	}
	return nil
}

func segmentCell(line orb.LineString, grid GridDescriptor) CellIndex {
	for k := 1; k < len(line); k++ {
		if line[k-1] != line[k] {
			return edgeCell(grid.vertex(line[k-1]), grid.vertex(line[k]))
		}
	}
	return cellOf(grid.toGrid(line[0]))
}
