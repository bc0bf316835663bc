package domain

import (
	"time"

	"github.com/ctessum/geom"
)

// Topography holds per-cell terrain attributes derived from the elevation
// surface. Slope is the mean surface slope in degrees; aspect is the dominant
// downslope compass octant.
type Topography struct {
	ElevationMean float64 `json:"elevation_mean"`
	ElevationMin  float64 `json:"elevation_min"`
	ElevationMax  float64 `json:"elevation_max"`
	SlopeMean     float64 `json:"slope_mean"`
	AspectDeg     float64 `json:"aspect_deg"`
	Aspect        string  `json:"aspect"`
}

// ClimateRecord is one hourly observation associated with an HRU.
type ClimateRecord struct {
	Time            time.Time `json:"time"`
	TemperatureC    float64   `json:"temperature_c"`
	PrecipitationMM float64   `json:"precipitation_mm"`
	SnowfallMM      float64   `json:"snowfall_mm"`
}

// ClimateSummary is the windowed view of an HRU's climate records that the
// melt and runoff computations consume.
type ClimateSummary struct {
	TempC          float64 `json:"temp_c"`
	Precip24MM     float64 `json:"precip_24h_mm"`
	Precip72MM     float64 `json:"precip_72h_mm"`
	Snow24MM       float64 `json:"snow_24h_mm"`
	ModelElevation float64 `json:"model_elevation_m"`
}

// RiskClass is a discrete hazard category. RiskUnknown marks units whose
// coverage gaps prevented runoff computation; it is a statement about data,
// not about hazard.
type RiskClass string

const (
	RiskUnknown RiskClass = "unknown"
	RiskLow     RiskClass = "low"
	RiskMedium  RiskClass = "medium"
	RiskHigh    RiskClass = "high"
)

// Rank orders the known classes for monotonicity comparisons: low < medium
// < high. RiskUnknown ranks 0 and is not comparable to the numeric bands.
func (c RiskClass) Rank() int {
	switch c {
	case RiskLow:
		return 1
	case RiskMedium:
		return 2
	case RiskHigh:
		return 3
	default:
		return 0
	}
}

// RiskEstimate is the final per-HRU output: a composite score in [0,1] for
// display and a class from the fixed runoff bands.
type RiskEstimate struct {
	Score float64   `json:"score"`
	Class RiskClass `json:"class"`
}

// HRU is one hydrologic response unit: a grid cell with the attributes
// accumulated by the pipeline stages. The ID is assigned at grid derivation
// and is stable across runs for identical inputs.
type HRU struct {
	ID             string  `json:"id"`
	Centroid       Geo     `json:"centroid"`
	AreaKm2        float64 `json:"area_km2"`
	GlacierAreaKm2 float64 `json:"glacier_area_km2"`

	// Geometry stays in the canonical CRS; it is carried for spatial joins
	// and excluded from the serialized result.
	Geometry geom.Polygonal `json:"-"`

	Topography  Topography `json:"topography"`
	TopoMissing bool       `json:"topo_missing"`

	Climate        []ClimateRecord `json:"-"`
	ClimateSummary ClimateSummary  `json:"climate"`
	ClimateMissing bool            `json:"climate_missing"`

	MeltRateMMDay float64 `json:"melt_rate_mm_day"`
	SnowRecent    bool    `json:"snow_recent"`
	MeltMissing   bool    `json:"melt_missing"`

	RunoffCoeff   float64 `json:"runoff_coeff"`
	RunoffMMDay   float64 `json:"runoff_mm_day"`
	RunoffMissing bool    `json:"runoff_missing"`

	Risk RiskEstimate `json:"risk"`
}

// Result is one completed analysis run: the fully annotated HRU collection
// plus run identity and timing, suitable for serialization or rendering.
type Result struct {
	RunID       string    `json:"run_id"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	HRUs        []HRU     `json:"hrus"`
}
