// Package domain models the EVAQUA glacier/subbasin risk analysis.
//
// # Spatial units
//
// The analysis discretizes the study region into hydrologic response units
// (HRUs): a regular grid of cells derived from the boundary layer's extent.
// Each HRU owns a growing attribute set as it moves through the pipeline
// stages: topography, climate, melt, runoff, risk. Unit IDs are assigned once
// at grid derivation (row-major, "hru-RRR-CCC") and never change; stages only
// ever add attributes.
//
// # Coordinate reference
//
// All vector layers are normalized to WGS-84 lon/lat (EPSG:4326) on load.
// Downstream code assumes the canonical frame and never re-checks. Areas are
// measured by projecting to UTM zone 18S (EPSG:32718), which covers the
// Aysén study region in metres.
//
// # Melt model
//
// Degree-day melt:
//
//	melt (mm/day) = DDF × max(0, T − 0 °C)
//
// with DDF = 8.0 mm/day/°C for bare ice and 4.0 for fresh snow (snowfall in
// the last 24 h). The forcing temperature is corrected from the climate
// model's elevation to the cell's mean elevation using a lapse rate of
// −0.65 °C per 100 m.
//
// # Runoff
//
// Depth-based rational method:
//
//	runoff (mm/day) = C(slope) × (melt + precip24)
//
// where C is banded by mean slope: 0.20 (<5°), 0.35 (<10°), 0.50 (<20°),
// 0.70 (≥20°). Cells without topographic coverage fall back to C = 0.50.
//
// # Risk classes
//
// Risk is classified from runoff magnitude against fixed bands
// (low < 20 mm/day ≤ medium ≤ 70 mm/day < high by default), so the class is
// monotonic in runoff. A weighted composite score (melt, runoff, 72 h
// precipitation components) is carried alongside for display.
//
// # Missing data
//
// "No data for this unit" is a valid state, distinct from "the pipeline is
// broken". Coverage gaps are recorded as flags (TopoMissing, ClimateMissing,
// MeltMissing, RunoffMissing) and propagate forward; a unit without runoff is
// classified RiskUnknown, never given a numeric band or a zero default. Only
// source-level failures (unreadable layer, unprojectable CRS, unreachable
// climate feed) abort a run.
package domain
