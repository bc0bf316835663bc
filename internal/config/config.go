package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	BoundaryShapefile  string
	GlaciersShapefile  string
	SubbasinsShapefile string // optional

	GridSize      int
	LayerCacheTTL time.Duration
	Workers       int

	RiskLowMax  float64
	RiskHighMin float64

	AnalysisInterval time.Duration

	OpenMeteoBaseURL string // empty = provider default
	OpenMeteoTimeout time.Duration
	OpenTopoBaseURL  string
	OpenTopoTimeout  time.Duration

	// Kafka publishing is enabled when brokers are configured.
	KafkaBrokers      []string
	KafkaResultsTopic string

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// KafkaEnabled reports whether results should be published to Kafka.
func (c *Config) KafkaEnabled() bool { return len(c.KafkaBrokers) > 0 }

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	gridSize, err := envIntInRange("GRID_SIZE", 30, 2, 200)
	if err != nil {
		return nil, err
	}

	workers, err := envIntInRange("WORKERS", 8, 1, 64)
	if err != nil {
		return nil, err
	}

	cacheTTL, err := envDuration("LAYER_CACHE_TTL", time.Hour)
	if err != nil {
		return nil, err
	}

	interval, err := envDuration("ANALYSIS_INTERVAL", time.Hour)
	if err != nil {
		return nil, err
	}

	meteoTimeout, err := envDuration("OPENMETEO_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	topoTimeout, err := envDuration("OPENTOPO_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	shutdownTimeout, err := envDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	lowMax, err := envFloat("RISK_LOW_MAX", 20)
	if err != nil {
		return nil, err
	}

	highMin, err := envFloat("RISK_HIGH_MIN", 70)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		BoundaryShapefile:  envOrDefault("BOUNDARY_SHAPEFILE", "data/aysen_region.shp"),
		GlaciersShapefile:  envOrDefault("GLACIERS_SHAPEFILE", "data/glaciers.shp"),
		SubbasinsShapefile: os.Getenv("SUBBASINS_SHAPEFILE"),

		GridSize:      gridSize,
		LayerCacheTTL: cacheTTL,
		Workers:       workers,

		RiskLowMax:  lowMax,
		RiskHighMin: highMin,

		AnalysisInterval: interval,

		OpenMeteoBaseURL: os.Getenv("OPENMETEO_BASE_URL"),
		OpenMeteoTimeout: meteoTimeout,
		OpenTopoBaseURL:  os.Getenv("OPENTOPO_BASE_URL"),
		OpenTopoTimeout:  topoTimeout,

		KafkaBrokers:      parseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaResultsTopic: envOrDefault("KAFKA_RESULTS_TOPIC", "glacier-risk-results"),

		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
	}

	if cfg.BoundaryShapefile == "" {
		return nil, fmt.Errorf("BOUNDARY_SHAPEFILE is required")
	}
	if cfg.GlaciersShapefile == "" {
		return nil, fmt.Errorf("GLACIERS_SHAPEFILE is required")
	}
	if cfg.RiskLowMax >= cfg.RiskHighMin {
		return nil, fmt.Errorf("RISK_LOW_MAX must be below RISK_HIGH_MIN")
	}
	if cfg.KafkaEnabled() && cfg.KafkaResultsTopic == "" {
		return nil, fmt.Errorf("KAFKA_RESULTS_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}

func envIntInRange(key string, def, lo, hi int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < lo || n > hi {
		return 0, fmt.Errorf("invalid %s: %q (must be %d-%d)", key, s, lo, hi)
	}
	return n, nil
}

func envFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return v, nil
}

func parseBrokers(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}
