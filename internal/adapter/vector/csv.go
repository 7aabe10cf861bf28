package vector

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/couchcryptid/hazard-exposure-service/internal/domain"
	"github.com/paulmach/orb/encoding/wkt"
)

// WriteCSV writes the table with a WKT geometry column. No data is an empty
// field.
func WriteCSV(w io.Writer, table *domain.ExposureTable) error {
	cw := csv.NewWriter(w)

	head := append([]string{"original_index", "raster_i", "raster_j", "geometry"}, table.Columns...)
	if err := cw.Write(head); err != nil {
		return err
	}

	row := make([]string, len(head))
	for _, seg := range table.Segments {
		row[0] = strconv.Itoa(seg.OriginalIndex)
		row[1] = strconv.Itoa(seg.Cell.I)
		row[2] = strconv.Itoa(seg.Cell.J)
		row[3] = wkt.MarshalString(seg.Geometry)
		for k, v := range seg.Values {
			if domain.IsNoData(v) {
				row[4+k] = ""
			} else {
				row[4+k] = strconv.FormatFloat(v, 'g', -1, 64)
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
