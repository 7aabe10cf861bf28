package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/hazard-exposure-service/internal/domain"
	"github.com/google/uuid"
)

// Analyzer runs one overlay of a network on a raster set.
type Analyzer interface {
	Analyze(ctx context.Context, req domain.AnalysisRequest) (*domain.ExposureTable, error)
}

// ExposureTransformer implements Transformer by running each request
// through an Analyzer.
type ExposureTransformer struct {
	analyzer Analyzer
	dataDir  string
	newRunID func(domain.RawEvent) string
	logger   *slog.Logger
}

// NewTransformer creates an ExposureTransformer. When dataDir is set, request
// paths must be relative and stay inside it; otherwise they are used as given.
func NewTransformer(analyzer Analyzer, dataDir string, logger *slog.Logger) *ExposureTransformer {
	return &ExposureTransformer{
		analyzer: analyzer,
		dataDir:  dataDir,
		newRunID: runIDFor,
		logger:   logger,
	}
}

// runIDFor names the run for a delivery. A Kafka message keeps the same run
// ID however often it is redelivered; other sources get a random one.
func runIDFor(raw domain.RawEvent) string {
	if raw.Topic == "" {
		return uuid.NewString()
	}
	name := fmt.Sprintf("kafka://%s/%d/%d", raw.Topic, raw.Partition, raw.Offset)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}

// Transform decodes the request and analyzes it. Analysis errors produce a
// failed result; only undecodable messages and cancellation return an error.
func (t *ExposureTransformer) Transform(ctx context.Context, raw domain.RawEvent) (domain.ExposureResult, error) {
	req, err := domain.ParseRequest(raw)
	if err != nil {
		return domain.ExposureResult{}, err
	}

	runID := t.newRunID(raw)
	t.logger.Info("analysis started", "request_id", req.ID, "run_id", runID, "rasters", len(req.Rasters))

	resolved, err := t.resolve(req)
	if err != nil {
		t.logger.Warn("request rejected", "request_id", req.ID, "error", err)
		return domain.FailedResult(req, runID, err), nil
	}
	table, err := t.analyzer.Analyze(ctx, resolved)
	if err != nil {
		if ctx.Err() != nil {
			return domain.ExposureResult{}, ctx.Err()
		}
		return domain.FailedResult(req, runID, err), nil
	}
	return domain.CompletedResult(req, runID, table), nil
}

// resolve returns a copy of req with paths joined to the data directory. The
// original request is reported in results.
func (t *ExposureTransformer) resolve(req domain.AnalysisRequest) (domain.AnalysisRequest, error) {
	if t.dataDir == "" {
		return req, nil
	}
	out := req
	var err error
	if out.Network, err = t.join(req.Network); err != nil {
		return req, err
	}
	out.Rasters = make([]string, len(req.Rasters))
	for i, p := range req.Rasters {
		if out.Rasters[i], err = t.join(p); err != nil {
			return req, err
		}
	}
	return out, nil
}

func (t *ExposureTransformer) join(p string) (string, error) {
	if filepath.IsAbs(p) {
		return "", fmt.Errorf("path %q must be relative to the data directory", p)
	}
	clean := filepath.Clean(p)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes the data directory", p)
	}
	return filepath.Join(t.dataDir, clean), nil
}
