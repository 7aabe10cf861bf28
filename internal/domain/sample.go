package domain

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// DefaultNoDataThreshold is the hazard magnitude below which a sample is
// reported as NoData.
const DefaultNoDataThreshold = 1e-6

// Sampler reads raster values at assigned cell indices.
type Sampler struct {
	threshold float64
}

// NewSampler creates a Sampler masking values below threshold.
func NewSampler(threshold float64) Sampler {
	return Sampler{threshold: threshold}
}

// Threshold returns the negligibility threshold.
func (s Sampler) Threshold() float64 { return s.threshold }

// Mask returns NoData for NaN or sub-threshold values and v otherwise.
func (s Sampler) Mask(v float64) float64 {
	if math.IsNaN(v) || v < s.threshold {
		return NoData
	}
	return v
}

// SampleBand returns one masked value per segment from a Height×Width band,
// indexed by row j then column i.
func (s Sampler) SampleBand(segments []SplitSegment, band *mat.Dense) ([]float64, error) {
	rows, cols := band.Dims()
	values := make([]float64, len(segments))
	for n, seg := range segments {
		c := seg.Cell
		if c.I < 0 || c.I >= cols || c.J < 0 || c.J >= rows {
			return nil, &BoundsError{OriginalIndex: seg.OriginalIndex, Cell: c, Width: cols, Height: rows}
		}
		values[n] = s.Mask(band.At(c.J, c.I))
	}
	return values, nil
}

// SampleRaster opens path, reads band bandNumber (1 when zero) and samples it
// at every segment's cell. The file is closed before returning.
func (s Sampler) SampleRaster(opener RasterOpener, segments []SplitSegment, path string, bandNumber int) ([]float64, error) {
	if bandNumber == 0 {
		bandNumber = 1
	}

	r, err := opener.Open(path)
	if err != nil {
		return nil, &RasterReadError{Path: path, Err: err}
	}
	defer r.Close() //nolint:errcheck // read-only handle

	band, err := r.ReadBand(bandNumber)
	if err != nil {
		return nil, &RasterReadError{Path: path, Err: err}
	}
	return s.SampleBand(segments, band)
}
