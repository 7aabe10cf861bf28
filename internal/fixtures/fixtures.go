// Package fixtures writes deterministic raster sets and networks for smoke
// and integration tests.
package fixtures

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/couchcryptid/hazard-exposure-service/internal/domain"
	"github.com/couchcryptid/hazard-exposure-service/internal/raster"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"gonum.org/v1/gonum/mat"
)

// ReturnPeriods of the generated flood set, in years.
var ReturnPeriods = []int{2, 10, 100, 1000}

// Set lists the files written by Write. Paths are relative to the output
// directory.
type Set struct {
	// Scenario is the 2x2 grid with values [[0, 0], [5, 1e-7]] and a single
	// road crossing its bottom row.
	ScenarioRaster  string
	ScenarioNetwork string

	// Flood is a 40x30 grid with one raster per return period, and Roads a
	// network of straight and winding roads over it.
	FloodRasters []string
	Roads        string

	// Rotated is the flood grid turned by 30 degrees, written with a world
	// file.
	RotatedRaster string
}

// ScenarioGrid is the grid of the 2x2 scenario.
var ScenarioGrid = domain.GridDescriptor{Width: 2, Height: 2, Transform: domain.NorthUp(0, 2, 1)}

// FloodGrid is the grid of the flood set.
var FloodGrid = domain.GridDescriptor{Width: 40, Height: 30, Transform: domain.NorthUp(500000, 4200000, 25)}

// Write generates every fixture into dir.
func Write(dir string) (Set, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Set{}, err
	}
	set := Set{
		ScenarioRaster:  "scenario.asc",
		ScenarioNetwork: "scenario.geojson",
		Roads:           "roads.geojson",
		RotatedRaster:   "rotated_rp0100.asc",
	}

	scenario := mat.NewDense(2, 2, []float64{0, 0, 5, 0.0000001})
	if err := raster.Write(filepath.Join(dir, set.ScenarioRaster), ScenarioGrid, scenario); err != nil {
		return set, err
	}
	if err := writeNetwork(filepath.Join(dir, set.ScenarioNetwork), []orb.Geometry{
		orb.LineString{{0.5, 0.5}, {1.5, 0.5}},
	}); err != nil {
		return set, err
	}

	for _, rp := range ReturnPeriods {
		name := fmt.Sprintf("inunriver_rp%05d.asc", rp)
		if err := raster.Write(filepath.Join(dir, name), FloodGrid, floodDepth(FloodGrid, rp)); err != nil {
			return set, err
		}
		set.FloodRasters = append(set.FloodRasters, name)
	}
	if err := writeNetwork(filepath.Join(dir, set.Roads), roads(FloodGrid)); err != nil {
		return set, err
	}

	rotated := FloodGrid
	rotated.Transform = rotate(FloodGrid.Transform, 30)
	if err := raster.Write(filepath.Join(dir, set.RotatedRaster), rotated, floodDepth(rotated, 100)); err != nil {
		return set, err
	}
	return set, nil
}

// floodDepth models a river valley running down the middle columns of the
// grid. Depth grows with the log of the return period and is zero (dry)
// away from the valley.
func floodDepth(grid domain.GridDescriptor, returnPeriod int) *mat.Dense {
	band := mat.NewDense(grid.Height, grid.Width, nil)
	centre := float64(grid.Width) / 2
	spread := 2 + math.Log10(float64(returnPeriod))*3
	peak := 0.5 + math.Log10(float64(returnPeriod))
	for j := 0; j < grid.Height; j++ {
		meander := 4 * math.Sin(float64(j)/5)
		for i := 0; i < grid.Width; i++ {
			d := math.Abs(float64(i) + 0.5 - centre - meander)
			if d < spread {
				band.Set(j, i, math.Round(peak*(1-d/spread)*1000)/1000)
			}
		}
	}
	return band
}

// roads returns lines in world coordinates, each kept inside the grid.
func roads(grid domain.GridDescriptor) []orb.Geometry {
	w := func(col, row float64) orb.Point {
		x, y := grid.Transform.Apply(col, row)
		return orb.Point{x, y}
	}
	winding := orb.LineString{}
	for k := 0; k <= 20; k++ {
		col := 2 + float64(k)*1.8
		winding = append(winding, w(col, 15+6*math.Sin(float64(k)/3)))
	}
	return []orb.Geometry{
		orb.LineString{w(0.5, 3.5), w(39.5, 3.5)},     // east-west
		orb.LineString{w(20.25, 0.5), w(20.25, 29.5)}, // north-south along the valley
		orb.LineString{w(1, 1), w(39, 29)},            // diagonal
		winding,
		orb.LineString{w(10, 10), w(10, 10)}, // degenerate
	}
}

func rotate(t domain.Affine, degrees float64) domain.Affine {
	s, c := math.Sincos(degrees * math.Pi / 180)
	a, b, d, e := t[0], t[1], t[3], t[4]
	return domain.Affine{c*a - s*d, c*b - s*e, t[2], s*a + c*d, s*b + c*e, t[5]}
}

func writeNetwork(path string, geoms []orb.Geometry) error {
	fc := geojson.NewFeatureCollection()
	for n, g := range geoms {
		f := geojson.NewFeature(g)
		f.Properties["name"] = fmt.Sprintf("road-%d", n)
		fc.Append(f)
	}
	data, err := fc.MarshalJSON()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
