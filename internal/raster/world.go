package raster

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/couchcryptid/hazard-exposure-service/internal/domain"
)

// worldFileExts are tried in order when looking for a world file.
var worldFileExts = []string{".wld", ".aaw"}

// sidecarTransform returns the transform from the world file beside path, or
// nil when there is none.
func sidecarTransform(path string) (*domain.Affine, error) {
	stem := strings.TrimSuffix(path, filepath.Ext(path))
	for _, ext := range worldFileExts {
		t, err := readWorldFile(stem + ext)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return &t, nil
	}
	return nil, nil
}

// readWorldFile parses the six lines A, D, B, E, C, F of a world file. C and
// F locate the centre of the top-left pixel.
func readWorldFile(path string) (domain.Affine, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.Affine{}, err
	}
	defer f.Close()

	var v []float64
	sc := bufio.NewScanner(f)
	for lineNo := 1; sc.Scan(); lineNo++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		x, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return domain.Affine{}, fmt.Errorf("world file %s line %d: %w", path, lineNo, numberError(err))
		}
		v = append(v, x)
	}
	if err := sc.Err(); err != nil {
		return domain.Affine{}, fmt.Errorf("world file %s: %w", path, err)
	}
	if len(v) != 6 {
		return domain.Affine{}, fmt.Errorf("world file %s: expected 6 values, found %d", path, len(v))
	}

	a, d, b, e, c, fy := v[0], v[1], v[2], v[3], v[4], v[5]
	return domain.Affine{a, b, c - a/2 - b/2, d, e, fy - d/2 - e/2}, nil
}

// writeWorldFile writes t as a world file.
func writeWorldFile(path string, t domain.Affine) error {
	cx, cy := t.Apply(0.5, 0.5)
	lines := []float64{t[0], t[3], t[1], t[4], cx, cy}

	var b strings.Builder
	for _, x := range lines {
		b.WriteString(strconv.FormatFloat(x, 'g', -1, 64))
		b.WriteByte('\n')
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}
