package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/hazard-exposure-service/internal/domain"
	"github.com/couchcryptid/hazard-exposure-service/internal/raster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func writeRaster(t *testing.T, dir, name string, grid domain.GridDescriptor) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, raster.Write(path, grid, mat.NewDense(grid.Height, grid.Width, nil)))
	return path
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	grid := domain.GridDescriptor{Width: 3, Height: 2, Transform: domain.NorthUp(10, 20, 0.5)}
	a := writeRaster(t, dir, "a.asc", grid)
	b := writeRaster(t, dir, "b.asc", grid)
	taller := writeRaster(t, dir, "c.asc", domain.GridDescriptor{Width: 3, Height: 3, Transform: grid.Transform})

	t.Run("consistent", func(t *testing.T) {
		var out bytes.Buffer
		assert.Equal(t, 0, run(&out, raster.Opener{}, []string{a, b}))
		assert.Contains(t, out.String(), "3x2")
		assert.Contains(t, out.String(), "All 2 rasters share one grid.")
	})

	t.Run("mismatch", func(t *testing.T) {
		var out bytes.Buffer
		assert.Equal(t, 1, run(&out, raster.Opener{}, []string{a, taller}))
		assert.Contains(t, out.String(), "height expected=2 actual=3")
		assert.Contains(t, out.String(), "Grid check FAILED.")
	})

	t.Run("unreadable", func(t *testing.T) {
		var out bytes.Buffer
		assert.Equal(t, 1, run(&out, raster.Opener{}, []string{a, filepath.Join(dir, "missing.asc")}))
		assert.Contains(t, out.String(), "missing.asc")
		assert.Contains(t, out.String(), "skipped")
	})
}
