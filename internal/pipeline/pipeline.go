// Package pipeline orchestrates the staged risk analysis: load layers,
// resolve topography, attach climate, then derive melt, runoff, and risk per
// unit.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/evaqua/glacier-risk-core/internal/domain"
	"github.com/evaqua/glacier-risk-core/internal/observability"
)

// StageError reports which stage an aborted run failed in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("pipeline stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// LayerPaths names the shapefiles a run loads. Subbasins may be empty.
type LayerPaths struct {
	Boundary  string
	Glaciers  string
	Subbasins string
}

// Pipeline runs the full analysis and retains the latest completed result.
// Stages run strictly in order; derivation stages fan work out over a worker
// pool while keeping units in input order.
type Pipeline struct {
	layers     domain.LayerLoader
	topo       *TopographyResolver
	climate    *ClimateAttacher
	sink       ProgressSink
	logger     *slog.Logger
	metrics    *observability.Metrics
	thresholds domain.RiskThresholds
	workers    int

	mu         sync.Mutex
	stage      Stage
	lastResult *domain.Result
}

// New assembles a pipeline. A nil sink discards progress.
func New(
	layers domain.LayerLoader,
	topo *TopographyResolver,
	climate *ClimateAttacher,
	sink ProgressSink,
	thresholds domain.RiskThresholds,
	workers int,
	metrics *observability.Metrics,
	logger *slog.Logger,
) *Pipeline {
	if sink == nil {
		sink = NopSink{}
	}
	if workers < 1 {
		workers = 1
	}
	return &Pipeline{
		layers:     layers,
		topo:       topo,
		climate:    climate,
		sink:       sink,
		logger:     logger,
		metrics:    metrics,
		thresholds: thresholds,
		workers:    workers,
	}
}

// Run executes one full analysis. On success the result is retained and
// returned; on failure the error names the stage that aborted the run and no
// partial result is kept.
func (p *Pipeline) Run(ctx context.Context, paths LayerPaths) (*domain.Result, error) {
	runID := uuid.NewString()
	startedAt := domain.Now()
	logger := p.logger.With("run_id", runID)

	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	logger.Info("analysis run started",
		"boundary", paths.Boundary, "glaciers", paths.Glaciers)

	var base BaseLayers
	err := p.runStage(StageLoading, func() error {
		var err error
		base, err = p.loadBase(ctx, paths)
		return err
	})
	if err != nil {
		return nil, p.fail(logger, StageLoading, err)
	}

	var hrus []domain.HRU
	err = p.runStage(StageTopography, func() error {
		var err error
		hrus, err = p.topo.Resolve(ctx, base)
		return err
	})
	if err != nil {
		return nil, p.fail(logger, StageTopography, err)
	}
	p.metrics.UnitsProcessed.WithLabelValues(string(StageTopography)).Add(float64(len(hrus)))
	p.countGaps("topography", hrus, func(h domain.HRU) bool { return h.TopoMissing })

	err = p.runStage(StageClimate, func() error {
		return p.climate.Attach(ctx, hrus)
	})
	if err != nil {
		return nil, p.fail(logger, StageClimate, err)
	}
	p.metrics.UnitsProcessed.WithLabelValues(string(StageClimate)).Add(float64(len(hrus)))
	p.countGaps("climate", hrus, func(h domain.HRU) bool { return h.ClimateMissing })

	err = p.compute(ctx, StageMelt, hrus, domain.ComputeMelt)
	if err != nil {
		return nil, p.fail(logger, StageMelt, err)
	}

	err = p.compute(ctx, StageRunoff, hrus, domain.ComputeRunoff)
	if err != nil {
		return nil, p.fail(logger, StageRunoff, err)
	}

	err = p.compute(ctx, StageRisk, hrus, func(h domain.HRU) domain.HRU {
		return domain.ClassifyRisk(h, p.thresholds)
	})
	if err != nil {
		return nil, p.fail(logger, StageRisk, err)
	}

	result := &domain.Result{
		RunID:       runID,
		StartedAt:   startedAt,
		CompletedAt: domain.Now(),
		HRUs:        hrus,
	}

	p.mu.Lock()
	p.stage = StageDone
	p.lastResult = result
	p.mu.Unlock()
	p.sink.Progress(StageDone, 1)

	p.metrics.LastRunUnits.Set(float64(len(hrus)))
	p.metrics.RunsTotal.WithLabelValues("completed").Inc()
	logger.Info("analysis run completed",
		"units", len(hrus), "duration", result.CompletedAt.Sub(startedAt))
	return result, nil
}

// Stage returns the stage the pipeline is currently in.
func (p *Pipeline) Stage() Stage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stage
}

// LastResult returns the latest completed result, if any run has finished.
func (p *Pipeline) LastResult() (*domain.Result, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastResult, p.lastResult != nil
}

// CheckReadiness reports whether a completed result is available to serve.
func (p *Pipeline) CheckReadiness(context.Context) error {
	if _, ok := p.LastResult(); !ok {
		return errors.New("no completed analysis run yet")
	}
	return nil
}

func (p *Pipeline) loadBase(ctx context.Context, paths LayerPaths) (BaseLayers, error) {
	boundary, err := p.layers.Load(ctx, paths.Boundary)
	if err != nil {
		return BaseLayers{}, err
	}
	glaciers, err := p.layers.Load(ctx, paths.Glaciers)
	if err != nil {
		return BaseLayers{}, err
	}
	base := BaseLayers{Boundary: &boundary, Glaciers: &glaciers}
	if paths.Subbasins != "" {
		subbasins, err := p.layers.Load(ctx, paths.Subbasins)
		if err != nil {
			return BaseLayers{}, err
		}
		base.Subbasins = &subbasins
	}
	return base, nil
}

// runStage marks the stage active, emits its start and end progress events,
// and records its duration.
func (p *Pipeline) runStage(stage Stage, fn func() error) error {
	p.mu.Lock()
	p.stage = stage
	p.mu.Unlock()

	p.sink.Progress(stage, 0)
	timer := p.metrics.StageTimer(string(stage))
	if err := fn(); err != nil {
		timer.ObserveDuration()
		return err
	}
	timer.ObserveDuration()
	p.sink.Progress(stage, 1)
	return nil
}

// compute applies fn to every unit over the worker pool, preserving order
// and emitting fractional progress as units finish.
func (p *Pipeline) compute(ctx context.Context, stage Stage, hrus []domain.HRU, fn func(domain.HRU) domain.HRU) error {
	return p.runStage(stage, func() error {
		if err := ctx.Err(); err != nil {
			return err
		}

		indexes := make(chan int)
		var done atomic.Int64
		var wg sync.WaitGroup
		for w := 0; w < p.workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range indexes {
					hrus[i] = fn(hrus[i])
					n := done.Add(1)
					p.sink.Progress(stage, float64(n)/float64(len(hrus)))
				}
			}()
		}
		for i := range hrus {
			indexes <- i
		}
		close(indexes)
		wg.Wait()

		p.metrics.UnitsProcessed.WithLabelValues(string(stage)).Add(float64(len(hrus)))
		return nil
	})
}

func (p *Pipeline) countGaps(kind string, hrus []domain.HRU, missing func(domain.HRU) bool) {
	var gaps int
	for _, h := range hrus {
		if missing(h) {
			gaps++
		}
	}
	if gaps > 0 {
		p.metrics.CoverageGaps.WithLabelValues(kind).Add(float64(gaps))
	}
}

func (p *Pipeline) fail(logger *slog.Logger, stage Stage, err error) error {
	p.mu.Lock()
	p.stage = StageFailed
	p.mu.Unlock()
	p.sink.Progress(StageFailed, 0)

	p.metrics.RunsTotal.WithLabelValues("failed").Inc()
	logger.Error("analysis run failed", "stage", string(stage), "error", err)
	return &StageError{Stage: stage, Err: err}
}
