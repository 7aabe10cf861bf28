// Command checkgrid reports the grid of each raster in a set and checks that
// they all share the grid of the first one.
//
// Usage:
//
//	go run ./cmd/checkgrid data/flood/*.asc
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/couchcryptid/hazard-exposure-service/internal/domain"
	"github.com/couchcryptid/hazard-exposure-service/internal/raster"
)

// phase tracks pass/fail for a check.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), "usage: checkgrid raster [raster...]")
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}
	os.Exit(run(os.Stdout, raster.Opener{}, flag.Args()))
}

func run(w io.Writer, opener domain.RasterOpener, paths []string) int {
	fmt.Fprintln(w, "=== Raster Grid Check ===")
	fmt.Fprintln(w)

	readable := &phase{name: "rasters readable"}
	valid := &phase{name: "grids valid"}
	for _, path := range paths {
		grid, err := domain.ReadGrid(opener, path)
		if err != nil {
			readable.errorf("%v", err)
			continue
		}
		t := grid.Transform
		fmt.Fprintf(w, "  %s\n    %dx%d  transform (%g, %g, %g, %g, %g, %g)\n",
			path, grid.Width, grid.Height, t[0], t[1], t[2], t[3], t[4], t[5])
		if err := grid.Validate(); err != nil {
			valid.errorf("%s: %v", path, err)
		}
	}

	consistent := &phase{name: "grids consistent"}
	if readable.passed() {
		err := domain.CheckGridConsistent(opener, paths)
		var mismatch *domain.GridMismatchError
		switch {
		case errors.As(err, &mismatch):
			consistent.errorf("%v", mismatch)
		case err != nil:
			consistent.errorf("%v", err)
		}
	} else {
		consistent.errorf("skipped: not every raster could be read")
	}

	phases := []*phase{readable, valid, consistent}

	fmt.Fprintln(w)
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(w, "  %-24s %s\n", p.name, status)
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(w, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintf(w, "\nAll %d rasters share one grid.\n", len(paths))
		return 0
	}
	fmt.Fprintln(w, "\nGrid check FAILED.")
	return 1
}
