// Package domain models the intersection of linear infrastructure networks
// with gridded hazard rasters (flood depth, storm surge, and similar).
//
// # Grid Conventions
//
// A raster grid is described by its width (columns), height (rows) and a
// six-coefficient affine transform mapping grid space to world space:
//
//	x = a*col + b*row + c
//	y = d*col + e*row + f
//
// This is the ordering used by GDAL/rasterio affine objects. For the common
// north-up raster, b = d = 0, a is the cell width and e is the negative cell
// height, so row 0 is the northern edge.
//
// Cell (i, j) covers grid space [i, i+1) × [j, j+1): i is the column and j the
// row. A point lying exactly on a cell boundary belongs to the cell with the
// higher index, which is what flooring the grid coordinate gives.
//
// Band data is row-major: the value for cell (i, j) is band.At(j, i).
//
// # Processing Stages
//
//	CheckGridConsistent  every raster in a set shares one grid
//	SplitLineStrings     lines are cut on cell boundaries
//	AssignCellIndices    each piece gets the (i, j) of its first edge
//	Sampler              band values are read at (j, i)
//
// Stages run in that order. Splitting and sampling both assume the raster
// set has been validated, so rasters of different return periods line up
// cell for cell.
//
// # No Data
//
// Hazard magnitudes below a negligibility threshold (1e-6 by default) carry
// no meaning, so they are reported as [NoData] rather than as a small or zero
// value. Raster NODATA sentinels are converted to NaN on read and are masked
// the same way.
package domain
