package domain

import "fmt"

// LoadError reports an unreadable or unparseable vector source. Loads that
// fail this way are never cached; a retry re-reads the source.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string { return fmt.Sprintf("load layer %s: %v", e.Path, e.Err) }
func (e *LoadError) Unwrap() error { return e.Err }

// ProjectionError reports a declared CRS that cannot be reprojected to the
// canonical frame.
type ProjectionError struct {
	Path     string
	SourceSR string
	Err      error
}

func (e *ProjectionError) Error() string {
	return fmt.Sprintf("project layer %s from %q: %v", e.Path, e.SourceSR, e.Err)
}
func (e *ProjectionError) Unwrap() error { return e.Err }

// ClimateSourceError reports total unavailability of the climate feed. This
// is the only per-stage condition that aborts a run past loading; per-unit
// missing coverage is data, not an error.
type ClimateSourceError struct {
	Err error
}

func (e *ClimateSourceError) Error() string { return fmt.Sprintf("climate source: %v", e.Err) }
func (e *ClimateSourceError) Unwrap() error { return e.Err }

// TopographyError names an elevation coverage gap for one unit. It is
// non-fatal: resolvers record it as the unit's TopoMissing flag rather than
// failing the run, so it surfaces only in per-unit diagnostics.
type TopographyError struct {
	UnitID string
}

func (e *TopographyError) Error() string {
	return fmt.Sprintf("no elevation coverage for unit %s", e.UnitID)
}
