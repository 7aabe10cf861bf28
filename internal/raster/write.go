package raster

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/couchcryptid/hazard-exposure-service/internal/domain"
	"gonum.org/v1/gonum/mat"
)

// DefaultNodata is written for NaN cells.
const DefaultNodata = -9999

// Write stores band as an ASCII grid at path. Grids that the header cannot
// describe (rotated, sheared or with non-square cells) get a .wld world file
// carrying the full transform.
func Write(path string, grid domain.GridDescriptor, band *mat.Dense) error {
	if err := grid.Validate(); err != nil {
		return err
	}
	rows, cols := band.Dims()
	if rows != grid.Height || cols != grid.Width {
		return fmt.Errorf("band is %dx%d, grid is %dx%d", cols, rows, grid.Width, grid.Height)
	}

	t := grid.Transform
	northUp := t[1] == 0 && t[3] == 0 && t[0] > 0 && t[4] == -t[0]

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "ncols %d\nnrows %d\n", grid.Width, grid.Height)
	if northUp {
		fmt.Fprintf(w, "xllcorner %s\nyllcorner %s\ncellsize %s\n",
			formatFloat(t[2]), formatFloat(t[5]+float64(grid.Height)*t[4]), formatFloat(t[0]))
	} else {
		fmt.Fprint(w, "xllcorner 0\nyllcorner 0\ncellsize 1\n")
	}
	fmt.Fprintf(w, "NODATA_value %d\n", DefaultNodata)

	row := make([]string, cols)
	for j := 0; j < rows; j++ {
		for i := 0; i < cols; i++ {
			v := band.At(j, i)
			if math.IsNaN(v) {
				row[i] = strconv.Itoa(DefaultNodata)
			} else {
				row[i] = formatFloat(v)
			}
		}
		fmt.Fprintln(w, strings.Join(row, " "))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	if northUp {
		return nil
	}
	return writeWorldFile(strings.TrimSuffix(path, filepath.Ext(path))+".wld", t)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
