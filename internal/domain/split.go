package domain

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
)

// crossingEpsilon merges boundary crossings that land on the same edge
// parameter, which happens when an edge passes through a cell corner.
const crossingEpsilon = 1e-12

// SplitLineStrings splits every feature on the cell boundaries of grid.
// Segments are returned in feature order, then in along-line order. If any
// feature is not a LineString nothing is split and a *GeometryTypeError is
// returned.
func SplitLineStrings(features []Feature, grid GridDescriptor) ([]SplitSegment, error) {
	if err := grid.Validate(); err != nil {
		return nil, err
	}
	for _, f := range features {
		if _, ok := f.Geometry.(orb.LineString); !ok {
			return nil, &GeometryTypeError{Index: f.Index, Type: geometryType(f.Geometry)}
		}
	}

	segments := make([]SplitSegment, 0, len(features))
	for _, f := range features {
		for _, part := range SplitLineString(f.Geometry.(orb.LineString), grid) {
			segments = append(segments, SplitSegment{OriginalIndex: f.Index, Geometry: part})
		}
	}
	return segments, nil
}

// SplitLineString cuts a line into maximal runs that each stay within one
// grid cell. The grid lines are treated as unbounded, so parts of the line
// beyond the raster extent are cut too. The grid must be valid.
func SplitLineString(line orb.LineString, grid GridDescriptor) []orb.LineString {
	if len(line) < 2 {
		return []orb.LineString{line.Clone()}
	}

	verts := refine(line, grid)

	var parts []orb.LineString
	current := orb.LineString{verts[0].p}
	var currentCell CellIndex
	started := false

	for k := 1; k < len(verts); k++ {
		a, b := verts[k-1], verts[k]
		if a.p == b.p {
			current = append(current, b.p)
			continue
		}
		cell := edgeCell(a, b)
		if started && cell != currentCell {
			parts = append(parts, current)
			current = orb.LineString{a.p}
		}
		current = append(current, b.p)
		currentCell, started = cell, true
	}
	return append(parts, current)
}

// gridVertex is a line vertex with its position in both world and grid space.
type gridVertex struct {
	p        orb.Point
	col, row float64
}

func (g GridDescriptor) vertex(p orb.Point) gridVertex {
	col, row := g.toGrid(p)
	return gridVertex{p: p, col: col, row: row}
}

// refine returns the vertices of line with every strict crossing of a
// column or row boundary inserted in along-line order.
func refine(line orb.LineString, grid GridDescriptor) []gridVertex {
	verts := make([]gridVertex, 0, len(line)*2)
	a := grid.vertex(line[0])
	verts = append(verts, a)
	for _, p := range line[1:] {
		b := grid.vertex(p)
		for _, t := range edgeCrossings(a, b) {
			verts = append(verts, gridVertex{
				p:   orb.Point{lerp(a.p[0], b.p[0], t), lerp(a.p[1], b.p[1], t)},
				col: lerp(a.col, b.col, t),
				row: lerp(a.row, b.row, t),
			})
		}
		verts = append(verts, b)
		a = b
	}
	return verts
}

// edgeCrossings returns the sorted, de-duplicated edge parameters in (0, 1)
// at which the edge a→b crosses an integer column or row.
func edgeCrossings(a, b gridVertex) []float64 {
	ts := axisCrossings(nil, a.col, b.col)
	ts = axisCrossings(ts, a.row, b.row)
	if len(ts) < 2 {
		return ts
	}
	sort.Float64s(ts)
	out := ts[:1]
	for _, t := range ts[1:] {
		if t-out[len(out)-1] > crossingEpsilon {
			out = append(out, t)
		}
	}
	return out
}

// axisCrossings appends the parameters at which u→v passes strictly through
// an integer value.
func axisCrossings(ts []float64, u, v float64) []float64 {
	if u == v {
		return ts
	}
	lo, hi := math.Min(u, v), math.Max(u, v)
	for k := math.Floor(lo) + 1; k < hi; k++ {
		t := (k - u) / (v - u)
		if t > 0 && t < 1 {
			ts = append(ts, t)
		}
	}
	return ts
}

// edgeCell is the cell holding the grid-space midpoint of a→b. A part never
// leaves the cell of its edges, so this also names the part's cell.
func edgeCell(a, b gridVertex) CellIndex {
	return cellOf((a.col+b.col)/2, (a.row+b.row)/2)
}

func lerp(a, b, t float64) float64 {
	return a + t*(b-a)
}

func geometryType(g orb.Geometry) string {
	if g == nil {
		return "null"
	}
	return g.GeoJSONType()
}
