package domain

import (
	"io/fs"

	"gonum.org/v1/gonum/mat"
)

// unitGrid is a width×height grid whose cells are 1×1 and whose grid space
// equals world space.
func unitGrid(width, height int) GridDescriptor {
	return GridDescriptor{Width: width, Height: height, Transform: Affine{1, 0, 0, 0, 1, 0}}
}

type memRaster struct {
	grid  GridDescriptor
	bands []*mat.Dense
}

// memOpener serves in-memory rasters and counts handle lifecycles.
type memOpener struct {
	rasters map[string]memRaster
	opened  []string
	closes  int
}

func newMemOpener() *memOpener {
	return &memOpener{rasters: make(map[string]memRaster)}
}

func (o *memOpener) add(path string, grid GridDescriptor, bands ...*mat.Dense) {
	o.rasters[path] = memRaster{grid: grid, bands: bands}
}

func (o *memOpener) Open(path string) (Raster, error) {
	r, ok := o.rasters[path]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
	}
	o.opened = append(o.opened, path)
	return &memHandle{raster: r, opener: o}, nil
}

type memHandle struct {
	raster memRaster
	opener *memOpener
}

func (h *memHandle) Grid() GridDescriptor { return h.raster.grid }

func (h *memHandle) ReadBand(n int) (*mat.Dense, error) {
	if n < 1 || n > len(h.raster.bands) {
		return nil, fs.ErrInvalid
	}
	return h.raster.bands[n-1], nil
}

func (h *memHandle) Close() error {
	h.opener.closes++
	return nil
}
