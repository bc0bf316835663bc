package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
	"github.com/ctessum/geom/proj"

	"github.com/evaqua/glacier-risk-core/internal/domain"
)

// Meters per degree at the equator, for latitude-corrected sample spacing.
const (
	metersPerDegLon = 111320.0
	metersPerDegLat = 110540.0
)

// BaseLayers are the spatial layers an analysis run is built on. Subbasins
// is optional and carried through for reporting only.
type BaseLayers struct {
	Boundary  *domain.SpatialLayer
	Glaciers  *domain.SpatialLayer
	Subbasins *domain.SpatialLayer
}

// TopographyResolver divides the boundary extent into a regular grid of
// hydrological response units and attaches terrain attributes to each:
// elevation statistics, mean slope, dominant aspect, and glacierized area.
type TopographyResolver struct {
	elev     domain.ElevationSource
	gridSize int
	logger   *slog.Logger
}

// NewTopographyResolver creates a resolver producing a gridSize x gridSize
// unit grid.
func NewTopographyResolver(elev domain.ElevationSource, gridSize int, logger *slog.Logger) *TopographyResolver {
	return &TopographyResolver{elev: elev, gridSize: gridSize, logger: logger}
}

// glacierShape is an rtree entry for one glacier polygon.
type glacierShape struct {
	geom.Polygonal
}

// Resolve builds the unit grid. Unit IDs are deterministic for a given
// boundary and grid size: hru-RRR-CCC in row-major order. An elevation
// source outage degrades every unit to TopoMissing instead of failing the
// run.
func (r *TopographyResolver) Resolve(ctx context.Context, base BaseLayers) ([]domain.HRU, error) {
	bounds := base.Boundary.Bounds()
	if bounds == nil {
		return nil, fmt.Errorf("boundary layer %q has no geometry", base.Boundary.Name)
	}
	if bounds.Max.X <= bounds.Min.X || bounds.Max.Y <= bounds.Min.Y {
		return nil, fmt.Errorf("boundary layer %q has a degenerate extent", base.Boundary.Name)
	}

	areaTr, err := areaTransform()
	if err != nil {
		return nil, err
	}

	glaciers := glacierIndex(base.Glaciers)

	n := r.gridSize
	dx := (bounds.Max.X - bounds.Min.X) / float64(n)
	dy := (bounds.Max.Y - bounds.Min.Y) / float64(n)

	hrus := make([]domain.HRU, 0, n*n)
	for row := 0; row < n; row++ {
		for col := 0; col < n; col++ {
			x0 := bounds.Min.X + float64(col)*dx
			y0 := bounds.Min.Y + float64(row)*dy
			cell := geom.Polygon{{
				{X: x0, Y: y0},
				{X: x0 + dx, Y: y0},
				{X: x0 + dx, Y: y0 + dy},
				{X: x0, Y: y0 + dy},
				{X: x0, Y: y0},
			}}

			h := domain.HRU{
				ID:       fmt.Sprintf("hru-%03d-%03d", row, col),
				Centroid: domain.Geo{Lat: y0 + dy/2, Lon: x0 + dx/2},
				Geometry: cell,
			}
			h.AreaKm2, err = projectedAreaKm2(cell, areaTr)
			if err != nil {
				return nil, fmt.Errorf("unit %s area: %w", h.ID, err)
			}
			h.GlacierAreaKm2, err = glacierAreaKm2(cell, glaciers, areaTr)
			if err != nil {
				return nil, fmt.Errorf("unit %s glacier area: %w", h.ID, err)
			}
			hrus = append(hrus, h)
		}
	}

	samples := samplePoints(hrus, dx, dy)
	elevs, err := r.elev.Elevations(ctx, samples)
	if err != nil {
		r.logger.Warn("elevation source unavailable, units proceed without topography",
			"units", len(hrus), "error", err)
		for i := range hrus {
			hrus[i].TopoMissing = true
		}
		return hrus, nil
	}
	if len(elevs) != len(samples) {
		return nil, fmt.Errorf("elevation source returned %d values for %d samples", len(elevs), len(samples))
	}

	for i := range hrus {
		attachTerrain(&hrus[i], elevs[i*9:i*9+9], dx, dy)
	}

	r.logger.Info("unit grid resolved",
		"units", len(hrus), "grid_size", n, "layer", base.Boundary.Name)
	return hrus, nil
}

func areaTransform() (proj.Transformer, error) {
	canonical, err := proj.Parse(domain.CanonicalProj)
	if err != nil {
		return nil, fmt.Errorf("parse canonical projection: %w", err)
	}
	area, err := proj.Parse(domain.AreaProj)
	if err != nil {
		return nil, fmt.Errorf("parse area projection: %w", err)
	}
	tr, err := canonical.NewTransform(area)
	if err != nil {
		return nil, fmt.Errorf("create area transform: %w", err)
	}
	return tr, nil
}

func glacierIndex(layer *domain.SpatialLayer) *rtree.Rtree {
	index := rtree.NewTree(25, 50)
	if layer == nil {
		return index
	}
	for _, f := range layer.Features {
		if p, ok := f.Geom.(geom.Polygonal); ok {
			index.Insert(glacierShape{p})
		}
	}
	return index
}

func projectedAreaKm2(p geom.Polygonal, tr proj.Transformer) (float64, error) {
	projected, err := p.Transform(tr)
	if err != nil {
		return 0, err
	}
	pp, ok := projected.(geom.Polygonal)
	if !ok {
		return 0, fmt.Errorf("projected geometry is %T, not polygonal", projected)
	}
	return pp.Area() / 1e6, nil
}

func glacierAreaKm2(cell geom.Polygon, glaciers *rtree.Rtree, tr proj.Transformer) (float64, error) {
	var total float64
	for _, item := range glaciers.SearchIntersect(cell.Bounds()) {
		g := item.(glacierShape)
		overlap := cell.Intersection(g.Polygonal)
		if overlap == nil {
			continue
		}
		km2, err := projectedAreaKm2(overlap, tr)
		if err != nil {
			return 0, err
		}
		total += km2
	}
	return total, nil
}

// samplePoints lays a 3x3 probe grid over each unit, row-major within the
// unit, matching the slice layout attachTerrain expects.
func samplePoints(hrus []domain.HRU, dx, dy float64) []domain.Geo {
	points := make([]domain.Geo, 0, len(hrus)*9)
	for _, h := range hrus {
		for dr := -1; dr <= 1; dr++ {
			for dc := -1; dc <= 1; dc++ {
				points = append(points, domain.Geo{
					Lat: h.Centroid.Lat + float64(dr)*dy/3,
					Lon: h.Centroid.Lon + float64(dc)*dx/3,
				})
			}
		}
	}
	return points
}

var aspectNames = [8]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

// attachTerrain derives elevation statistics from the unit's nine probe
// elevations. Slope and aspect need the full 3x3 patch; with any probe
// missing they stay zero while elevation statistics still use whatever
// probes resolved. All nine missing marks the unit TopoMissing.
func attachTerrain(h *domain.HRU, elevs []float64, dx, dy float64) {
	var (
		sum   float64
		valid int
	)
	minElev, maxElev := math.Inf(1), math.Inf(-1)
	for _, e := range elevs {
		if math.IsNaN(e) {
			continue
		}
		sum += e
		valid++
		minElev = math.Min(minElev, e)
		maxElev = math.Max(maxElev, e)
	}
	if valid == 0 {
		h.TopoMissing = true
		return
	}

	h.Topography.ElevationMean = sum / float64(valid)
	h.Topography.ElevationMin = minElev
	h.Topography.ElevationMax = maxElev

	if valid == 9 {
		slope, aspectDeg := slopeAspect(elevs, dx, dy, h.Centroid.Lat)
		h.Topography.SlopeMean = slope
		h.Topography.AspectDeg = aspectDeg
		h.Topography.Aspect = aspectNames[int(math.Mod(aspectDeg+22.5, 360)/45)]
	}
}

// slopeAspect computes mean slope (degrees) and mean downslope direction
// (degrees clockwise from north) over the 3x3 elevation patch, using central
// differences inside the patch and one-sided differences at its edges.
func slopeAspect(elevs []float64, dx, dy, lat float64) (float64, float64) {
	// Probe spacing in meters. Longitudinal spacing shrinks with latitude.
	sx := dx / 3 * metersPerDegLon * math.Cos(lat*math.Pi/180)
	sy := dy / 3 * metersPerDegLat

	var (
		slopeSum  float64
		aspectSum float64
	)
	at := func(r, c int) float64 { return elevs[r*3+c] }
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			var gx, gy float64
			switch c {
			case 0:
				gx = (at(r, 1) - at(r, 0)) / sx
			case 2:
				gx = (at(r, 2) - at(r, 1)) / sx
			default:
				gx = (at(r, 2) - at(r, 0)) / (2 * sx)
			}
			switch r {
			case 0:
				gy = (at(1, c) - at(0, c)) / sy
			case 2:
				gy = (at(2, c) - at(1, c)) / sy
			default:
				gy = (at(2, c) - at(0, c)) / (2 * sy)
			}

			slopeSum += math.Atan(math.Hypot(gx, gy)) * 180 / math.Pi

			aspect := math.Atan2(-gy, gx) * 180 / math.Pi
			if aspect < 0 {
				aspect += 360
			}
			aspectSum += aspect
		}
	}
	return slopeSum / 9, aspectSum / 9
}
