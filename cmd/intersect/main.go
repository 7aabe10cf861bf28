// Command intersect overlays a line network on a set of hazard rasters and
// writes the split segments with their sampled values.
//
// Usage:
//
//	go run ./cmd/intersect \
//	  -network data/roads.geojson \
//	  -rasters data/flood_rp0010.asc,data/flood_rp0100.asc \
//	  -out exposure.csv
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/couchcryptid/hazard-exposure-service/internal/adapter/sqlite"
	"github.com/couchcryptid/hazard-exposure-service/internal/adapter/vector"
	"github.com/couchcryptid/hazard-exposure-service/internal/domain"
	"github.com/couchcryptid/hazard-exposure-service/internal/exposure"
	"github.com/couchcryptid/hazard-exposure-service/internal/observability"
	"github.com/couchcryptid/hazard-exposure-service/internal/raster"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/google/uuid"
)

type options struct {
	network   string
	rasters   []string
	band      int
	threshold float64
	workers   int
	out       string
	db        string
	logLevel  string
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := sharedobs.NewLogger(opts.logLevel, "text")
	if err := run(ctx, opts, logger); err != nil {
		logger.Error("intersect failed", "kind", domain.ErrorKind(err), "error", err)
		os.Exit(1)
	}
}

func parseFlags(args []string) (options, error) {
	var (
		opts    options
		rasters string
	)
	fs := flag.NewFlagSet("intersect", flag.ContinueOnError)
	fs.StringVar(&opts.network, "network", "", "GeoJSON FeatureCollection of LineStrings")
	fs.StringVar(&rasters, "rasters", "", "comma-separated raster paths sharing one grid")
	fs.IntVar(&opts.band, "band", 1, "raster band to sample")
	fs.Float64Var(&opts.threshold, "threshold", domain.DefaultNoDataThreshold, "values below this are no data")
	fs.IntVar(&opts.workers, "workers", 4, "rasters sampled concurrently")
	fs.StringVar(&opts.out, "out", "", "output file (.csv or .geojson); stdout CSV when empty")
	fs.StringVar(&opts.db, "db", "", "optional SQLite archive for the result")
	fs.StringVar(&opts.logLevel, "log-level", "info", "log level")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	for _, p := range strings.Split(rasters, ",") {
		if p = strings.TrimSpace(p); p != "" {
			opts.rasters = append(opts.rasters, p)
		}
	}
	switch {
	case opts.network == "":
		return opts, errors.New("-network is required")
	case len(opts.rasters) == 0:
		return opts, errors.New("-rasters is required")
	case opts.band < 1:
		return opts, fmt.Errorf("-band must be at least 1, got %d", opts.band)
	case opts.workers < 1:
		return opts, fmt.Errorf("-workers must be at least 1, got %d", opts.workers)
	case math.IsNaN(opts.threshold) || math.IsInf(opts.threshold, 0):
		return opts, fmt.Errorf("-threshold must be a finite number, got %g", opts.threshold)
	}
	if _, err := outputWriter(opts.out); err != nil {
		return opts, err
	}
	return opts, nil
}

type tableWriter func(io.Writer, *domain.ExposureTable) error

func outputWriter(path string) (tableWriter, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case "", ".csv":
		return vector.WriteCSV, nil
	case ".geojson", ".json":
		return vector.WriteGeoJSON, nil
	default:
		return nil, fmt.Errorf("unsupported output format %q", filepath.Ext(path))
	}
}

func run(ctx context.Context, opts options, logger *slog.Logger) error {
	analyzer := exposure.NewAnalyzer(
		raster.Opener{},
		vector.GeoJSONLoader{},
		exposure.Options{Threshold: opts.threshold, DefaultBand: opts.band, Workers: opts.workers},
		logger,
		observability.NewMetrics(),
	)

	req := domain.AnalysisRequest{
		ID:      uuid.NewString(),
		Network: opts.network,
		Rasters: opts.rasters,
		Band:    opts.band,
	}
	table, err := analyzer.Analyze(ctx, req)
	if err != nil {
		return err
	}

	if err := writeTable(opts.out, table); err != nil {
		return fmt.Errorf("write %s: %w", opts.out, err)
	}

	if opts.db != "" {
		store, err := sqlite.Open(opts.db, logger)
		if err != nil {
			return err
		}
		defer store.Close()

		result := domain.CompletedResult(req, uuid.NewString(), table)
		if err := store.SaveResult(ctx, result); err != nil {
			return err
		}
		logger.Info("result archived", "db", opts.db, "run_id", result.RunID)
	}
	return nil
}

func writeTable(path string, table *domain.ExposureTable) error {
	write, err := outputWriter(path)
	if err != nil {
		return err
	}
	if path == "" {
		return write(os.Stdout, table)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f, table); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
