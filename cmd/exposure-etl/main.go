package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/hazard-exposure-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/hazard-exposure-service/internal/adapter/kafka"
	"github.com/couchcryptid/hazard-exposure-service/internal/adapter/sqlite"
	"github.com/couchcryptid/hazard-exposure-service/internal/adapter/vector"
	"github.com/couchcryptid/hazard-exposure-service/internal/config"
	"github.com/couchcryptid/hazard-exposure-service/internal/exposure"
	"github.com/couchcryptid/hazard-exposure-service/internal/observability"
	"github.com/couchcryptid/hazard-exposure-service/internal/pipeline"
	"github.com/couchcryptid/hazard-exposure-service/internal/raster"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	analyzer := exposure.NewAnalyzer(
		raster.Opener{},
		vector.NewCachedLoader(vector.GeoJSONLoader{}, cfg.NetworkCacheSize),
		exposure.Options{
			Threshold:   cfg.NoDataThreshold,
			DefaultBand: cfg.DefaultBand,
			Workers:     cfg.SampleWorkers,
		},
		logger,
		metrics,
	)
	transformer := pipeline.NewTransformer(analyzer, cfg.DataDir, logger)

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)

	var loader pipeline.BatchLoader = writer
	var store *sqlite.Store
	if cfg.ResultsDB != "" {
		store, err = sqlite.Open(cfg.ResultsDB, logger)
		if err != nil {
			logger.Error("failed to open results database", "path", cfg.ResultsDB, "error", err)
			os.Exit(1)
		}
		loader = pipeline.MultiLoader{store, writer}
		logger.Info("archiving results", "path", cfg.ResultsDB)
	}

	p := pipeline.New(reader, transformer, loader, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, transformer, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start ETL pipeline.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}
	if store != nil {
		if err := store.Close(); err != nil {
			logger.Error("results database close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
