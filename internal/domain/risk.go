package domain

import "math"

// RiskThresholds are the runoff bands (mm/day) separating the classes:
// runoff < LowMax is low, runoff > HighMin is high, between is medium.
type RiskThresholds struct {
	LowMax  float64
	HighMin float64
}

// DefaultRiskThresholds are the production bands.
var DefaultRiskThresholds = RiskThresholds{LowMax: 20, HighMin: 70}

// Composite score normalization ceilings: a component saturates at 1 when
// the quantity reaches this value.
const (
	meltScoreCeiling   = 50.0  // mm/day
	runoffScoreCeiling = 100.0 // mm/day
	precipScoreCeiling = 300.0 // mm over 72 h
)

// ClassifyRisk assigns the final risk estimate for one unit. The class comes
// strictly from runoff magnitude against the fixed bands, which keeps it
// monotonic in runoff; the composite score is carried for display. Units
// whose runoff could not be computed are RiskUnknown — the signal that
// coverage, not hazard, is the issue.
func ClassifyRisk(h HRU, t RiskThresholds) HRU {
	if h.RunoffMissing {
		h.Risk = RiskEstimate{Class: RiskUnknown}
		return h
	}

	h.Risk = RiskEstimate{
		Score: riskScore(h),
		Class: classifyRunoff(h.RunoffMMDay, t),
	}
	return h
}

func classifyRunoff(runoff float64, t RiskThresholds) RiskClass {
	switch {
	case runoff < t.LowMax:
		return RiskLow
	case runoff > t.HighMin:
		return RiskHigh
	default:
		return RiskMedium
	}
}

// riskScore combines normalized melt, runoff, and 72 h precipitation
// components. When melt is negligible the weights rebalance toward rain, so
// a rain-only basin is not under-scored for lacking a glacier.
func riskScore(h HRU) float64 {
	meltComp := math.Min(1, h.MeltRateMMDay/meltScoreCeiling)
	runoffComp := math.Min(1, h.RunoffMMDay/runoffScoreCeiling)
	precipComp := math.Min(1, h.ClimateSummary.Precip72MM/precipScoreCeiling)

	wMelt, wRunoff, wPrecip := 0.40, 0.40, 0.20
	if h.MeltRateMMDay < 0.1 {
		wMelt, wRunoff, wPrecip = 0.05, 0.55, 0.40
	}

	return wMelt*meltComp + wRunoff*runoffComp + wPrecip*precipComp
}
