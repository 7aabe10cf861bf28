package fixtures

import (
	"path/filepath"
	"testing"

	"github.com/couchcryptid/hazard-exposure-service/internal/adapter/vector"
	"github.com/couchcryptid/hazard-exposure-service/internal/domain"
	"github.com/couchcryptid/hazard-exposure-service/internal/raster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrite(t *testing.T) {
	dir := t.TempDir()
	set, err := Write(dir)
	require.NoError(t, err)

	var paths []string
	for _, p := range set.FloodRasters {
		paths = append(paths, filepath.Join(dir, p))
	}
	require.Len(t, paths, len(ReturnPeriods))
	require.NoError(t, domain.CheckGridConsistent(raster.Opener{}, paths))

	grid, err := domain.ReadGrid(raster.Opener{}, filepath.Join(dir, set.RotatedRaster))
	require.NoError(t, err)
	assert.False(t, grid.Consistent(FloodGrid))
	assert.NoError(t, grid.Validate())

	features, err := vector.GeoJSONLoader{}.Load(filepath.Join(dir, set.Roads))
	require.NoError(t, err)
	segments, err := domain.SplitLineStrings(features, FloodGrid)
	require.NoError(t, err)
	require.NoError(t, domain.AssignCellIndices(segments, FloodGrid))
	assert.Greater(t, len(segments), len(features))
}

func TestFloodDepthGrowsWithReturnPeriod(t *testing.T) {
	low := floodDepth(FloodGrid, 2)
	high := floodDepth(FloodGrid, 1000)

	var lowSum, highSum float64
	for j := 0; j < FloodGrid.Height; j++ {
		for i := 0; i < FloodGrid.Width; i++ {
			assert.LessOrEqual(t, low.At(j, i), high.At(j, i)+1e-9)
			lowSum += low.At(j, i)
			highSum += high.At(j, i)
		}
	}
	assert.Greater(t, highSum, lowSum)
}
