// Package exposure runs the network/raster overlay: it validates a raster
// set, splits the network on the shared grid and samples every raster at
// each segment's cell.
package exposure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/hazard-exposure-service/internal/domain"
	"github.com/couchcryptid/hazard-exposure-service/internal/observability"
	"golang.org/x/sync/errgroup"
)

// FeatureLoader reads the network features stored at path.
type FeatureLoader interface {
	Load(path string) ([]domain.Feature, error)
}

// Options tune an Analyzer. Threshold is used as given; zero DefaultBand and
// Workers select the defaults.
type Options struct {
	Threshold   float64
	DefaultBand int
	Workers     int
}

const defaultWorkers = 4

// Analyzer overlays networks on raster sets.
type Analyzer struct {
	opener      domain.RasterOpener
	loader      FeatureLoader
	sampler     domain.Sampler
	defaultBand int
	workers     int
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// NewAnalyzer creates an Analyzer reading rasters through opener and
// networks through loader.
func NewAnalyzer(opener domain.RasterOpener, loader FeatureLoader, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Analyzer {
	if opts.DefaultBand <= 0 {
		opts.DefaultBand = 1
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	return &Analyzer{
		opener:      &countingOpener{RasterOpener: opener, metrics: metrics},
		loader:      loader,
		sampler:     domain.NewSampler(opts.Threshold),
		defaultBand: opts.DefaultBand,
		workers:     opts.Workers,
		logger:      logger,
		metrics:     metrics,
	}
}

// Analyze runs one overlay. The returned table holds one column per raster,
// in request order. Nothing is returned on error.
func (a *Analyzer) Analyze(ctx context.Context, req domain.AnalysisRequest) (*domain.ExposureTable, error) {
	start := time.Now()
	table, err := a.analyze(ctx, req)
	a.metrics.AnalysisDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		kind := domain.ErrorKind(err)
		a.metrics.Analyses.WithLabelValues(domain.StatusFailed, kind).Inc()
		a.logger.Warn("analysis failed",
			"request_id", req.ID,
			"network", req.Network,
			"kind", kind,
			"error", err,
		)
		return nil, err
	}

	a.metrics.Analyses.WithLabelValues(domain.StatusCompleted, "").Inc()
	a.metrics.SegmentsProduced.Add(float64(len(table.Segments)))
	a.countSamples(table)
	a.logger.Info("analysis completed",
		"request_id", req.ID,
		"network", req.Network,
		"rasters", len(req.Rasters),
		"segments", len(table.Segments),
		"duration", time.Since(start),
	)
	return table, nil
}

func (a *Analyzer) analyze(ctx context.Context, req domain.AnalysisRequest) (*domain.ExposureTable, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	band := req.Band
	if band == 0 {
		band = a.defaultBand
	}
	names := ColumnNames(req.Rasters, band)

	if err := domain.CheckGridConsistent(a.opener, req.Rasters); err != nil {
		return nil, err
	}
	grid, err := domain.ReadGrid(a.opener, req.Rasters[0])
	if err != nil {
		return nil, err
	}
	a.logger.Debug("raster grid validated", "request_id", req.ID, "width", grid.Width, "height", grid.Height)

	features, err := a.loader.Load(req.Network)
	if err != nil {
		return nil, fmt.Errorf("load network %s: %w", req.Network, err)
	}

	segments, err := domain.SplitLineStrings(features, grid)
	if err != nil {
		return nil, err
	}
	if err := domain.AssignCellIndices(segments, grid); err != nil {
		return nil, err
	}
	a.logger.Debug("network split", "request_id", req.ID, "features", len(features), "segments", len(segments))

	columns, err := a.sampleAll(ctx, segments, req.Rasters, band)
	if err != nil {
		return nil, err
	}

	table := &domain.ExposureTable{Grid: grid, Segments: segments}
	for k := range req.Rasters {
		if err := table.AddColumn(names[k], columns[k]); err != nil {
			return nil, err
		}
	}
	return table, nil
}

// sampleAll samples every raster with at most a.workers files open at once.
// Column k always holds the values of rasters[k].
func (a *Analyzer) sampleAll(ctx context.Context, segments []domain.SplitSegment, rasters []string, band int) ([][]float64, error) {
	columns := make([][]float64, len(rasters))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for k, path := range rasters {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			values, err := a.sampler.SampleRaster(a.opener, segments, path, band)
			if err != nil {
				return err
			}
			columns[k] = values
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return columns, nil
}

func (a *Analyzer) countSamples(table *domain.ExposureTable) {
	var values, nodata int
	for _, seg := range table.Segments {
		for _, v := range seg.Values {
			if domain.IsNoData(v) {
				nodata++
			} else {
				values++
			}
		}
	}
	a.metrics.Samples.WithLabelValues("value").Add(float64(values))
	a.metrics.Samples.WithLabelValues("nodata").Add(float64(nodata))
}

// countingOpener records every raster open.
type countingOpener struct {
	domain.RasterOpener
	metrics *observability.Metrics
}

func (o *countingOpener) Open(path string) (domain.Raster, error) {
	r, err := o.RasterOpener.Open(path)
	if err == nil {
		o.metrics.RasterOpens.Inc()
	}
	return r, err
}

// IsCanceled reports whether err came from context cancellation rather than
// from the analysis itself.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
