package exposure

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ColumnName names the table column sampled from path: the file stem, with a
// band suffix for any band other than the first.
func ColumnName(path string, band int) string {
	return withBand(stem(path), band)
}

// ColumnNames names the columns for a whole request. Stems shared by several
// rasters are qualified by their parent directory (rp100/depth.asc becomes
// rp100_depth), and anything still repeated gets its 1-based position.
func ColumnNames(paths []string, band int) []string {
	names := make([]string, len(paths))
	for k, p := range paths {
		names[k] = stem(p)
	}
	for k, n := range repeated(names) {
		if parent := filepath.Base(filepath.Dir(paths[k])); parent != "." && parent != string(filepath.Separator) {
			names[k] = parent + "_" + n
		}
	}

	for k, n := range repeated(names) {
		names[k] = fmt.Sprintf("%s_%d", n, k+1)
	}

	taken := make(map[string]bool, len(names))
	for k, n := range names {
		for taken[n] {
			n += "_"
		}
		taken[n] = true
		names[k] = withBand(n, band)
	}
	return names
}

// repeated returns, by index, the names that occur more than once.
func repeated(names []string) map[int]string {
	count := make(map[string]int, len(names))
	for _, n := range names {
		count[n]++
	}
	out := make(map[int]string)
	for k, n := range names {
		if count[n] > 1 {
			out[k] = n
		}
	}
	return out
}

func stem(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

func withBand(name string, band int) string {
	if band > 1 {
		return fmt.Sprintf("%s_b%d", name, band)
	}
	return name
}
