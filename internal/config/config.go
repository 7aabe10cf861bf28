package config

import (
	"errors"
	"math"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// Analysis settings.
	NoDataThreshold float64
	DefaultBand     int
	SampleWorkers   int
	// NetworkCacheSize is the number of parsed networks kept in memory.
	NetworkCacheSize int
	// DataDir resolves relative network and raster paths in requests.
	DataDir string
	// ResultsDB is an optional SQLite archive of every result.
	ResultsDB string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	threshold, err := parseThreshold()
	if err != nil {
		return nil, err
	}

	band, err := parseIntRange("DEFAULT_BAND", 1, 1, math.MaxInt32)
	if err != nil {
		return nil, err
	}

	workers, err := parseIntRange("SAMPLE_WORKERS", 4, 1, 64)
	if err != nil {
		return nil, err
	}

	cacheSize, err := parseIntRange("NETWORK_CACHE_SIZE", 16, 1, 4096)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "exposure-requests"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "exposure-results"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "hazard-exposure"),
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		NoDataThreshold:  threshold,
		DefaultBand:      band,
		SampleWorkers:    workers,
		NetworkCacheSize: cacheSize,
		DataDir:          os.Getenv("DATA_DIR"),
		ResultsDB:        os.Getenv("RESULTS_DB"),
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}

	return cfg, nil
}

// parseThreshold reads NODATA_THRESHOLD. Default: 1e-6. Must be finite.
func parseThreshold() (float64, error) {
	s := os.Getenv("NODATA_THRESHOLD")
	if s == "" {
		return 1e-6, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.New("invalid NODATA_THRESHOLD: must be a finite number")
	}
	return v, nil
}

func parseIntRange(key string, def, lo, hi int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < lo || n > hi {
		return 0, errors.New("invalid " + key + ": must be " + strconv.Itoa(lo) + "-" + strconv.Itoa(hi))
	}
	return n, nil
}
