package vector

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/couchcryptid/hazard-exposure-service/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const network = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"name": "A1"}, "geometry": {"type": "LineString", "coordinates": [[0.5, 1.5], [1.5, 1.5]]}},
    {"type": "Feature", "properties": {}, "geometry": {"type": "Point", "coordinates": [1, 1]}},
    {"type": "Feature", "properties": {}, "geometry": null}
  ]
}`

func TestReadGeoJSON(t *testing.T) {
	features, err := ReadGeoJSON(strings.NewReader(network))
	require.NoError(t, err)
	require.Len(t, features, 3)

	want := []domain.Feature{
		{Index: 0, Geometry: orb.LineString{{0.5, 1.5}, {1.5, 1.5}}},
		{Index: 1, Geometry: orb.Point{1, 1}},
		{Index: 2},
	}
	if diff := cmp.Diff(want, features); diff != "" {
		t.Errorf("features mismatch (-want +got):\n%s", diff)
	}
}

func TestReadGeoJSON_Invalid(t *testing.T) {
	_, err := ReadGeoJSON(strings.NewReader(`{"type":"Feature"}`))
	assert.ErrorContains(t, err, "decode geojson")

	_, err = ReadGeoJSON(strings.NewReader(`{not json`))
	assert.Error(t, err)
}

func TestGeoJSONLoader_Load(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "roads.geojson")
	require.NoError(t, os.WriteFile(path, []byte(network), 0o644))

	features, err := GeoJSONLoader{}.Load(path)
	require.NoError(t, err)
	assert.Len(t, features, 3)

	_, err = GeoJSONLoader{}.Load(filepath.Join(dir, "missing.geojson"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func sampleTable(t *testing.T) *domain.ExposureTable {
	t.Helper()
	table := &domain.ExposureTable{
		Segments: []domain.SplitSegment{
			{OriginalIndex: 0, Geometry: orb.LineString{{0.5, 1.5}, {1, 1.5}}, Cell: domain.CellIndex{I: 0, J: 1}},
			{OriginalIndex: 0, Geometry: orb.LineString{{1, 1.5}, {1.5, 1.5}}, Cell: domain.CellIndex{I: 1, J: 1}},
		},
	}
	require.NoError(t, table.AddColumn("depth", []float64{5, domain.NoData}))
	return table
}

func TestWriteGeoJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteGeoJSON(&buf, sampleTable(t)))

	var doc struct {
		Type     string `json:"type"`
		Features []struct {
			Properties map[string]any `json:"properties"`
			Geometry   struct {
				Type string `json:"type"`
			} `json:"geometry"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))

	assert.Equal(t, "FeatureCollection", doc.Type)
	require.Len(t, doc.Features, 2)
	assert.Equal(t, "LineString", doc.Features[0].Geometry.Type)
	assert.Equal(t, 5.0, doc.Features[0].Properties["depth"])
	assert.Equal(t, 1.0, doc.Features[1].Properties["raster_i"])
	assert.Equal(t, 1.0, doc.Features[1].Properties["raster_j"])

	depth, ok := doc.Features[1].Properties["depth"]
	assert.True(t, ok, "no-data column still present")
	assert.Nil(t, depth)
}

func TestWriteGeoJSON_RoundTripsThroughReader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteGeoJSON(&buf, sampleTable(t)))

	features, err := ReadGeoJSON(&buf)
	require.NoError(t, err)
	require.Len(t, features, 2)
	assert.Equal(t, orb.LineString{{1, 1.5}, {1.5, 1.5}}, features[1].Geometry)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleTable(t)))

	want := "original_index,raster_i,raster_j,geometry,depth\n" +
		"0,0,1,\"LINESTRING(0.5 1.5,1 1.5)\",5\n" +
		"0,1,1,\"LINESTRING(1 1.5,1.5 1.5)\",\n"
	assert.Equal(t, want, buf.String())
}
