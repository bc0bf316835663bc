package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/evaqua/glacier-risk-core/internal/domain"
)

// ClimateAttacher fetches hourly climate for every unit centroid and attaches
// the records plus a rolling summary. A unit the provider returns no records
// for is flagged ClimateMissing; downstream stages propagate the gap instead
// of inventing zero weather.
type ClimateAttacher struct {
	source domain.ClimateSource
	logger *slog.Logger
}

// NewClimateAttacher creates an attacher backed by the given source.
func NewClimateAttacher(source domain.ClimateSource, logger *slog.Logger) *ClimateAttacher {
	return &ClimateAttacher{source: source, logger: logger}
}

// Attach fetches climate for all units in one batch and fills in records and
// summaries in place. A source failure aborts the stage; per-unit gaps do
// not.
func (a *ClimateAttacher) Attach(ctx context.Context, hrus []domain.HRU) error {
	if len(hrus) == 0 {
		return nil
	}

	points := make([]domain.Geo, len(hrus))
	for i, h := range hrus {
		points[i] = h.Centroid
	}

	sites, err := a.source.Fetch(ctx, points)
	if err != nil {
		var srcErr *domain.ClimateSourceError
		if errors.As(err, &srcErr) {
			return err
		}
		return &domain.ClimateSourceError{Err: err}
	}
	if len(sites) != len(hrus) {
		return &domain.ClimateSourceError{
			Err: errors.New("climate source returned a different number of sites than requested"),
		}
	}

	var gaps int
	for i, site := range sites {
		if len(site.Records) == 0 {
			hrus[i].ClimateMissing = true
			gaps++
			continue
		}
		hrus[i].Climate = site.Records
		hrus[i].ClimateSummary = domain.SummarizeClimate(site.Records, site.ModelElevation)
	}

	if gaps > 0 {
		a.logger.Warn("climate coverage gaps", "units", len(hrus), "gaps", gaps)
	}
	return nil
}
