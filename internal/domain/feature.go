package domain

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"gonum.org/v1/gonum/mat"
)

// NoData marks an absent or negligible hazard value.
var NoData = math.NaN()

// IsNoData reports whether v is the no-data marker.
func IsNoData(v float64) bool { return math.IsNaN(v) }

// Feature is one input network geometry. Index is its position in the source
// collection and is carried onto every segment split from it.
type Feature struct {
	Index    int
	Geometry orb.Geometry
}

// CellIndex addresses a grid cell: I is the column, J the row.
type CellIndex struct {
	I int `json:"raster_i"`
	J int `json:"raster_j"`
}

// SplitSegment is a piece of a feature lying within a single grid cell.
// Cell is set by AssignCellIndices and Values by ExposureTable.AddColumn.
type SplitSegment struct {
	OriginalIndex int
	Geometry      orb.LineString
	Cell          CellIndex
	Values        []float64
}

// ExposureTable is the tabular result of an analysis. Values[k] of every
// segment belongs to Columns[k].
type ExposureTable struct {
	Grid     GridDescriptor
	Segments []SplitSegment
	Columns  []string
}

// AddColumn appends one sampled value per segment under the given name.
func (t *ExposureTable) AddColumn(name string, values []float64) error {
	if len(values) != len(t.Segments) {
		return fmt.Errorf("column %q has %d values for %d segments", name, len(values), len(t.Segments))
	}
	for _, c := range t.Columns {
		if c == name {
			return fmt.Errorf("duplicate column %q", name)
		}
	}
	t.Columns = append(t.Columns, name)
	for n := range t.Segments {
		t.Segments[n].Values = append(t.Segments[n].Values, values[n])
	}
	return nil
}

// Column returns the values stored under name, in segment order.
func (t *ExposureTable) Column(name string) ([]float64, bool) {
	for k, c := range t.Columns {
		if c != name {
			continue
		}
		out := make([]float64, len(t.Segments))
		for n := range t.Segments {
			out[n] = t.Segments[n].Values[k]
		}
		return out, true
	}
	return nil, false
}

// Raster is an open raster file.
type Raster interface {
	Grid() GridDescriptor
	// ReadBand returns band n (1-based) as a Height×Width matrix.
	ReadBand(n int) (*mat.Dense, error)
	Close() error
}

// RasterOpener opens raster files for reading.
type RasterOpener interface {
	Open(path string) (Raster, error)
}
