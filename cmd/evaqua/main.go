package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	httpadapter "github.com/evaqua/glacier-risk-core/internal/adapter/http"
	kafkaadapter "github.com/evaqua/glacier-risk-core/internal/adapter/kafka"
	"github.com/evaqua/glacier-risk-core/internal/adapter/openmeteo"
	"github.com/evaqua/glacier-risk-core/internal/adapter/opentopo"
	"github.com/evaqua/glacier-risk-core/internal/adapter/shapefile"
	"github.com/evaqua/glacier-risk-core/internal/config"
	"github.com/evaqua/glacier-risk-core/internal/domain"
	"github.com/evaqua/glacier-risk-core/internal/observability"
	"github.com/evaqua/glacier-risk-core/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	layers := shapefile.NewCachedLoader(
		shapefile.NewLoader(logger),
		cfg.LayerCacheTTL,
		clockwork.NewRealClock(),
		metrics,
	)
	elevations := opentopo.NewClient(cfg.OpenTopoBaseURL, cfg.OpenTopoTimeout, logger)
	climate := openmeteo.NewClient(cfg.OpenMeteoBaseURL, cfg.OpenMeteoTimeout, logger)

	topo := pipeline.NewTopographyResolver(elevations, cfg.GridSize, logger)
	attacher := pipeline.NewClimateAttacher(climate, logger)

	p := pipeline.New(layers, topo, attacher,
		pipeline.LogSink{Logger: logger},
		domain.RiskThresholds{LowMax: cfg.RiskLowMax, HighMin: cfg.RiskHighMin},
		cfg.Workers, metrics, logger)

	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled() {
		writer = kafkaadapter.NewWriter(cfg, logger)
		logger.Info("kafka publishing enabled",
			"brokers", cfg.KafkaBrokers, "topic", cfg.KafkaResultsTopic)
	} else {
		logger.Info("kafka publishing disabled")
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, p, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Run the analysis immediately, then on every interval tick.
	go func() {
		paths := pipeline.LayerPaths{
			Boundary:  cfg.BoundaryShapefile,
			Glaciers:  cfg.GlaciersShapefile,
			Subbasins: cfg.SubbasinsShapefile,
		}
		runOnce(ctx, p, writer, paths, logger)

		ticker := time.NewTicker(cfg.AnalysisInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				runOnce(ctx, p, writer, paths, logger)
			}
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

func runOnce(ctx context.Context, p *pipeline.Pipeline, writer *kafkaadapter.Writer, paths pipeline.LayerPaths, logger *slog.Logger) {
	result, err := p.Run(ctx, paths)
	if err != nil {
		logger.Error("analysis run error", "error", err)
		return
	}
	if writer == nil {
		return
	}
	if err := writer.PublishResult(ctx, result); err != nil {
		logger.Error("result publish error", "error", err)
	}
}
