package pipeline

import "log/slog"

// Stage identifies one phase of an analysis run. Stages advance strictly in
// the order listed; StageFailed is terminal and replaces whatever stage was
// active when the run aborted.
type Stage string

const (
	StageLoading    Stage = "loading"
	StageTopography Stage = "topography"
	StageClimate    Stage = "climate"
	StageMelt       Stage = "melt"
	StageRunoff     Stage = "runoff"
	StageRisk       Stage = "risk"
	StageDone       Stage = "done"
	StageFailed     Stage = "failed"
)

// ProgressSink receives stage transitions and fractional progress during a
// run. Emission is synchronous on the pipeline goroutine, so implementations
// must return promptly; progress is advisory and sinks must not fail the run.
type ProgressSink interface {
	Progress(stage Stage, fraction float64)
}

// LogSink reports progress through the service logger.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Progress(stage Stage, fraction float64) {
	s.Logger.Debug("pipeline progress", "stage", string(stage), "fraction", fraction)
}

// NopSink discards progress events.
type NopSink struct{}

func (NopSink) Progress(Stage, float64) {}
