package domain

// DefaultRunoffCoefficient applies when a unit has no topographic coverage
// and its slope band is unknown.
const DefaultRunoffCoefficient = 0.50

// RunoffCoefficient returns the rational-method coefficient for a mean
// surface slope in degrees. Steeper terrain sheds a larger fraction of the
// available water.
func RunoffCoefficient(slopeDeg float64) float64 {
	switch {
	case slopeDeg < 5:
		return 0.20
	case slopeDeg < 10:
		return 0.35
	case slopeDeg < 20:
		return 0.50
	default:
		return 0.70
	}
}

// ComputeRunoff derives the runoff depth rate for one unit from its melt and
// 24 h precipitation. Missing melt propagates to missing runoff.
func ComputeRunoff(h HRU) HRU {
	if h.MeltMissing {
		h.RunoffMissing = true
		return h
	}

	c := DefaultRunoffCoefficient
	if !h.TopoMissing {
		c = RunoffCoefficient(h.Topography.SlopeMean)
	}

	h.RunoffCoeff = c
	h.RunoffMMDay = c * (h.MeltRateMMDay + h.ClimateSummary.Precip24MM)
	return h
}
