// Package raster reads and writes hazard rasters stored as ESRI ASCII grids.
//
// A grid file starts with a keyword header followed by nrows lines of ncols
// values, northernmost row first:
//
//	ncols        4
//	nrows        3
//	xllcorner    100.0   (or xllcenter)
//	yllcorner    40.0    (or yllcenter)
//	cellsize     0.5     (or dx and dy)
//	NODATA_value -9999   (optional)
//
// The header can only describe north-up grids. A world file next to the grid
// (same stem, extension .wld or .aaw) overrides the transform and allows
// rotated or sheared grids.
package raster

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/couchcryptid/hazard-exposure-service/internal/domain"
	"gonum.org/v1/gonum/mat"
)

// header holds the parsed keyword header of an ASCII grid.
type header struct {
	ncols, nrows int
	xll, yll     float64
	xCenter      bool
	yCenter      bool
	dx, dy       float64
	nodata       float64
	hasNodata    bool
}

func (h header) transform() domain.Affine {
	xll, yll := h.xll, h.yll
	if h.xCenter {
		xll -= h.dx / 2
	}
	if h.yCenter {
		yll -= h.dy / 2
	}
	return domain.Affine{h.dx, 0, xll, 0, -h.dy, yll + float64(h.nrows)*h.dy}
}

// Dataset is an open ASCII grid. It has a single band.
type Dataset struct {
	path   string
	file   *os.File
	body   *bufio.Reader
	header header
	grid   domain.GridDescriptor
	band   *mat.Dense
}

// Open reads the header of an ASCII grid and any world file beside it. Band
// values are read on the first call to ReadBand.
func Open(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	body := bufio.NewReader(f)
	h, err := readHeader(body)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	transform, err := sidecarTransform(path)
	if err != nil {
		f.Close()
		return nil, err
	}
	if transform == nil {
		t := h.transform()
		transform = &t
	}

	grid := domain.GridDescriptor{Width: h.ncols, Height: h.nrows, Transform: *transform}
	if err := grid.Validate(); err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return &Dataset{path: path, file: f, body: body, header: h, grid: grid}, nil
}

// Path returns the file the dataset was opened from.
func (d *Dataset) Path() string { return d.path }

// Grid returns the spatial grid of the dataset.
func (d *Dataset) Grid() domain.GridDescriptor { return d.grid }

// ReadBand returns the grid values as an nrows×ncols matrix, with NODATA
// cells set to NaN. Only band 1 exists.
func (d *Dataset) ReadBand(n int) (*mat.Dense, error) {
	if n != 1 {
		return nil, fmt.Errorf("band %d out of range: ascii grids have 1 band", n)
	}
	if d.band != nil {
		return d.band, nil
	}
	if d.file == nil {
		return nil, os.ErrClosed
	}

	data := make([]float64, d.header.ncols*d.header.nrows)
	if err := readValues(d.body, data); err != nil {
		return nil, fmt.Errorf("%s: %w", d.path, err)
	}
	if d.header.hasNodata {
		for k, v := range data {
			if v == d.header.nodata {
				data[k] = math.NaN()
			}
		}
	}

	d.band = mat.NewDense(d.header.nrows, d.header.ncols, data)
	return d.band, nil
}

// Close releases the underlying file. It is safe to call more than once.
func (d *Dataset) Close() error {
	if d.file == nil {
		return nil
	}
	err := d.file.Close()
	d.file = nil
	return err
}

// Opener opens ASCII grids. It implements domain.RasterOpener.
type Opener struct{}

// Open implements domain.RasterOpener.
func (Opener) Open(path string) (domain.Raster, error) {
	d, err := Open(path)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func readHeader(r *bufio.Reader) (header, error) {
	var h header
	seen := make(map[string]bool)

	for lineNo := 1; ; lineNo++ {
		peek, err := r.Peek(1)
		if err != nil {
			return h, fmt.Errorf("read header: %w", err)
		}
		if c := peek[0]; c == '-' || c == '+' || c == '.' || (c >= '0' && c <= '9') {
			break
		}

		line, err := r.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return h, fmt.Errorf("read header: %w", err)
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			if errors.Is(err, io.EOF) {
				return h, errors.New("read header: no data")
			}
			continue
		}
		if len(fields) != 2 {
			return h, fmt.Errorf("malformed header line %d", lineNo)
		}

		key := strings.ToLower(fields[0])
		if err := h.set(key, fields[1]); err != nil {
			return h, fmt.Errorf("header line %d: %w", lineNo, err)
		}
		seen[key] = true
	}

	for _, key := range []string{"ncols", "nrows"} {
		if !seen[key] {
			return h, fmt.Errorf("header missing %s", key)
		}
	}
	if !(seen["xllcorner"] || seen["xllcenter"]) || !(seen["yllcorner"] || seen["yllcenter"]) {
		return h, errors.New("header missing lower-left origin")
	}
	if seen["cellsize"] {
		if seen["dx"] || seen["dy"] {
			return h, errors.New("header has both cellsize and dx/dy")
		}
	} else if !seen["dx"] || !seen["dy"] {
		return h, errors.New("header missing cellsize")
	}
	if h.ncols <= 0 || h.nrows <= 0 || h.dx <= 0 || h.dy <= 0 {
		return h, fmt.Errorf("invalid header dimensions %dx%d cell %gx%g", h.ncols, h.nrows, h.dx, h.dy)
	}
	return h, nil
}

func (h *header) set(key, value string) error {
	switch key {
	case "ncols", "nrows":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("parse %s: %w", key, numberError(err))
		}
		if key == "ncols" {
			h.ncols = n
		} else {
			h.nrows = n
		}
		return nil
	}

	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", key, numberError(err))
	}
	switch key {
	case "xllcorner", "xllcenter":
		h.xll, h.xCenter = v, key == "xllcenter"
	case "yllcorner", "yllcenter":
		h.yll, h.yCenter = v, key == "yllcenter"
	case "cellsize":
		h.dx, h.dy = v, v
	case "dx":
		h.dx = v
	case "dy":
		h.dy = v
	case "nodata_value":
		h.nodata, h.hasNodata = v, true
	default:
		return errUnknownKeyword
	}
	return nil
}

func readValues(r io.Reader, data []float64) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	sc.Split(bufio.ScanWords)

	n := 0
	for sc.Scan() {
		if n == len(data) {
			return fmt.Errorf("more than %d values", len(data))
		}
		v, err := strconv.ParseFloat(sc.Text(), 64)
		if err != nil {
			return fmt.Errorf("value %d: %w", n, numberError(err))
		}
		data[n] = v
		n++
	}
	if err := sc.Err(); err != nil {
		return err
	}
	if n != len(data) {
		return fmt.Errorf("expected %d values, found %d", len(data), n)
	}
	return nil
}

var errUnknownKeyword = errors.New("unknown header keyword")

// numberError drops the offending text from a strconv error so file content
// never reaches callers.
func numberError(err error) error {
	var ne *strconv.NumError
	if errors.As(err, &ne) {
		return ne.Err
	}
	return err
}
