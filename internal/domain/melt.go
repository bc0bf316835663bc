package domain

import "math"

// Degree-day melt model constants.
const (
	// DegreeDayFactorIce is the melt rate per degree above base for bare
	// ice, in mm/day/°C. Ice is more sensitive than snow.
	DegreeDayFactorIce = 8.0

	// DegreeDayFactorSnow applies when fresh snow fell in the last 24 h.
	DegreeDayFactorSnow = 4.0

	// BaseTempThreshold is the temperature below which no melt occurs, °C.
	BaseTempThreshold = 0.0

	// LapseRate corrects temperature for elevation, °C per metre of gain.
	LapseRate = -0.0065
)

// ComputeMelt derives the degree-day melt rate for one unit from its
// topography and climate summary. Units without climate coverage get melt
// marked missing, never zero: zero melt is a computed result, absent forcing
// is not.
func ComputeMelt(h HRU) HRU {
	if h.ClimateMissing {
		h.MeltMissing = true
		return h
	}

	temp := h.ClimateSummary.TempC
	if !h.TopoMissing && h.ClimateSummary.ModelElevation > 0 && h.Topography.ElevationMean > 0 {
		// The climate model reports temperature at its own surface
		// elevation; shift it to the cell's mean elevation.
		temp += (h.Topography.ElevationMean - h.ClimateSummary.ModelElevation) * LapseRate
	}

	excess := math.Max(0, temp-BaseTempThreshold)

	factor := DegreeDayFactorIce
	if h.ClimateSummary.Snow24MM > 0 {
		factor = DegreeDayFactorSnow
		h.SnowRecent = true
	}

	h.MeltRateMMDay = factor * excess
	return h
}
