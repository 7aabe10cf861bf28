// Package vector reads network features and writes exposure tables as
// vector data.
package vector

import (
	"fmt"
	"io"
	"os"

	"github.com/couchcryptid/hazard-exposure-service/internal/domain"
	"github.com/paulmach/orb/geojson"
)

// GeoJSONLoader loads features from GeoJSON FeatureCollection files.
type GeoJSONLoader struct{}

// Load implements exposure.FeatureLoader.
func (GeoJSONLoader) Load(path string) ([]domain.Feature, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	features, err := ReadGeoJSON(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return features, nil
}

// ReadGeoJSON decodes a FeatureCollection. Each feature's Index is its
// position in the collection. Geometries are not type-checked here.
func ReadGeoJSON(r io.Reader) ([]domain.Feature, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read geojson: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("decode geojson: %w", err)
	}

	features := make([]domain.Feature, len(fc.Features))
	for n, f := range fc.Features {
		features[n] = domain.Feature{Index: n}
		if f != nil {
			features[n].Geometry = f.Geometry
		}
	}
	return features, nil
}

// WriteGeoJSON encodes the table as a FeatureCollection with one LineString
// feature per segment. Sampled values are keyed by column name and no data
// is written as null.
func WriteGeoJSON(w io.Writer, table *domain.ExposureTable) error {
	fc := geojson.NewFeatureCollection()
	for _, seg := range table.Segments {
		f := geojson.NewFeature(seg.Geometry)
		f.Properties["original_index"] = seg.OriginalIndex
		f.Properties["raster_i"] = seg.Cell.I
		f.Properties["raster_j"] = seg.Cell.J
		for k, name := range table.Columns {
			f.Properties[name] = nullable(seg.Values[k])
		}
		fc.Append(f)
	}

	data, err := fc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode geojson: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	return nil
}

func nullable(v float64) any {
	if domain.IsNoData(v) {
		return nil
	}
	return v
}
