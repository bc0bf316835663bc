package domain

import (
	"context"
	"time"

	"github.com/ctessum/geom"
)

// CanonicalProj is WGS-84 lon/lat (EPSG:4326) in Proj4 notation. Every layer
// handed downstream is in this reference frame.
const CanonicalProj = "+proj=longlat +datum=WGS84 +no_defs"

// AreaProj is UTM zone 18S (EPSG:32718), used to measure areas in metres.
const AreaProj = "+proj=utm +zone=18 +south +datum=WGS84 +units=m +no_defs"

// Geo is a WGS-84 latitude/longitude coordinate pair.
type Geo struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Feature is one geometry from a vector layer with its attribute fields.
type Feature struct {
	Geom   geom.Geom
	Fields map[string]string
}

// SpatialLayer is a named collection of features loaded from a vector
// dataset, always in the canonical CRS. Layers are immutable after load.
type SpatialLayer struct {
	Name        string
	Path        string
	Fingerprint string // path|size|mtime of the source at load time
	Features    []Feature
	LoadedAt    time.Time
}

// Bounds returns the union of all feature bounds, or nil for an empty layer.
func (l SpatialLayer) Bounds() *geom.Bounds {
	var b *geom.Bounds
	for _, f := range l.Features {
		fb := f.Geom.Bounds()
		if fb == nil {
			continue
		}
		if b == nil {
			b = &geom.Bounds{Min: fb.Min, Max: fb.Max}
			continue
		}
		if fb.Min.X < b.Min.X {
			b.Min.X = fb.Min.X
		}
		if fb.Min.Y < b.Min.Y {
			b.Min.Y = fb.Min.Y
		}
		if fb.Max.X > b.Max.X {
			b.Max.X = fb.Max.X
		}
		if fb.Max.Y > b.Max.Y {
			b.Max.Y = fb.Max.Y
		}
	}
	return b
}

// LayerLoader loads a vector layer from a filesystem path and normalizes it
// to the canonical CRS.
type LayerLoader interface {
	Load(ctx context.Context, path string) (SpatialLayer, error)
}

// ElevationSource samples a digital elevation surface at the given points.
// The result has one value per point, in input order; points the surface does
// not cover are NaN.
type ElevationSource interface {
	Elevations(ctx context.Context, points []Geo) ([]float64, error)
}

// SiteClimate is the climate feed's answer for one query point: the model
// elevation the series was computed at and the hourly records. An empty
// record slice means the feed has no coverage for the point.
type SiteClimate struct {
	ModelElevation float64
	Records        []ClimateRecord
}

// ClimateSource fetches climate series for a batch of points, one SiteClimate
// per point in input order. Errors indicate total source unavailability;
// per-point missing coverage is expressed as an empty record slice.
type ClimateSource interface {
	Fetch(ctx context.Context, points []Geo) ([]SiteClimate, error)
}
