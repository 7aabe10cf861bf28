package domain

// CheckGridConsistent verifies that every raster in paths shares the grid of
// the first one. A single path passes without any comparison.
func CheckGridConsistent(opener RasterOpener, paths []string) error {
	if len(paths) == 0 {
		return ErrNoRasters
	}
	if len(paths) == 1 {
		return nil
	}

	reference, err := ReadGrid(opener, paths[0])
	if err != nil {
		return err
	}

	for _, path := range paths[1:] {
		grid, err := ReadGrid(opener, path)
		if err != nil {
			return err
		}
		if !reference.Consistent(grid) {
			return &GridMismatchError{
				Path:           path,
				ExpectedWidth:  reference.Width,
				ActualWidth:    grid.Width,
				ExpectedHeight: reference.Height,
				ActualHeight:   grid.Height,
				TransformEqual: reference.Transform == grid.Transform,
			}
		}
	}
	return nil
}

// ReadGrid opens a raster just long enough to read its grid.
func ReadGrid(opener RasterOpener, path string) (GridDescriptor, error) {
	r, err := opener.Open(path)
	if err != nil {
		return GridDescriptor{}, &RasterReadError{Path: path, Err: err}
	}
	defer r.Close() //nolint:errcheck // read-only handle
	return r.Grid(), nil
}
