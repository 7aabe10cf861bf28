package domain

import (
	"errors"
	"fmt"
)

// ErrNoRasters is returned when an operation needs at least one raster path.
var ErrNoRasters = errors.New("no raster paths given")

// GridMismatchError reports a raster whose grid differs from the reference
// raster of its set.
type GridMismatchError struct {
	Path           string
	ExpectedWidth  int
	ActualWidth    int
	ExpectedHeight int
	ActualHeight   int
	TransformEqual bool
}

func (e *GridMismatchError) Error() string {
	return fmt.Sprintf(
		"raster attribute mismatch in file %s: height expected=%d actual=%d; width expected=%d actual=%d; transform equal=%t",
		e.Path, e.ExpectedHeight, e.ActualHeight, e.ExpectedWidth, e.ActualWidth, e.TransformEqual,
	)
}

// GeometryTypeError reports a feature that is not a single LineString.
type GeometryTypeError struct {
	Index int
	Type  string
}

func (e *GeometryTypeError) Error() string {
	return fmt.Sprintf("can only split LineString geometries: feature %d is %s", e.Index, e.Type)
}

// BoundsError reports a cell index outside the grid. It indicates a defect in
// splitting or index assignment, or a network that extends past the raster.
type BoundsError struct {
	OriginalIndex int
	Cell          CellIndex
	Width         int
	Height        int
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("cell (%d, %d) of feature %d outside %dx%d grid",
		e.Cell.I, e.Cell.J, e.OriginalIndex, e.Width, e.Height)
}

// RasterReadError wraps a failure to open or read a raster file.
type RasterReadError struct {
	Path string
	Err  error
}

func (e *RasterReadError) Error() string {
	return fmt.Sprintf("read raster %s: %v", e.Path, e.Err)
}

func (e *RasterReadError) Unwrap() error { return e.Err }

// Error kinds, used as result fields and metric labels.
const (
	KindGridMismatch = "grid_mismatch"
	KindGeometryType = "geometry_type"
	KindBounds       = "bounds"
	KindRasterIO     = "raster_io"
	KindInput        = "input"
)

// ErrorKind classifies an analysis error.
func ErrorKind(err error) string {
	var (
		mismatch *GridMismatchError
		geomType *GeometryTypeError
		bounds   *BoundsError
		readErr  *RasterReadError
	)
	switch {
	case errors.As(err, &mismatch):
		return KindGridMismatch
	case errors.As(err, &geomType):
		return KindGeometryType
	case errors.As(err, &bounds):
		return KindBounds
	case errors.As(err, &readErr):
		return KindRasterIO
	default:
		return KindInput
	}
}
