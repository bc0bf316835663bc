package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/ctessum/geom"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evaqua/glacier-risk-core/internal/domain"
)

type stubElevations struct {
	fn  func(p domain.Geo) float64
	err error
}

func (s stubElevations) Elevations(_ context.Context, points []domain.Geo) ([]float64, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = s.fn(p)
	}
	return out, nil
}

func constantElevation(v float64) stubElevations {
	return stubElevations{fn: func(domain.Geo) float64 { return v }}
}

func rectLayer(name string, minLon, minLat, maxLon, maxLat float64) *domain.SpatialLayer {
	poly := geom.Polygon{{
		{X: minLon, Y: minLat},
		{X: maxLon, Y: minLat},
		{X: maxLon, Y: maxLat},
		{X: minLon, Y: maxLat},
		{X: minLon, Y: minLat},
	}}
	return &domain.SpatialLayer{
		Name:     name,
		Features: []domain.Feature{{Geom: poly}},
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testBase() BaseLayers {
	return BaseLayers{
		Boundary: rectLayer("boundary", -73, -46, -72, -45),
		Glaciers: rectLayer("glaciers", -73, -46, -72.5, -45.5),
	}
}

func TestTopographyResolver_GridShapeAndDeterministicIDs(t *testing.T) {
	r := NewTopographyResolver(constantElevation(1000), 4, testLogger())

	hrus, err := r.Resolve(context.Background(), testBase())
	require.NoError(t, err)
	require.Len(t, hrus, 16)

	assert.Equal(t, "hru-000-000", hrus[0].ID)
	assert.Equal(t, "hru-000-003", hrus[3].ID)
	assert.Equal(t, "hru-003-003", hrus[15].ID)

	again, err := r.Resolve(context.Background(), testBase())
	require.NoError(t, err)

	ids := func(hs []domain.HRU) []string {
		out := make([]string, len(hs))
		for i, h := range hs {
			out[i] = h.ID
		}
		return out
	}
	if diff := cmp.Diff(ids(hrus), ids(again)); diff != "" {
		t.Fatalf("unit IDs differ across runs (-first +second):\n%s", diff)
	}
}

func TestTopographyResolver_FlatTerrain(t *testing.T) {
	r := NewTopographyResolver(constantElevation(1200), 2, testLogger())

	hrus, err := r.Resolve(context.Background(), testBase())
	require.NoError(t, err)

	for _, h := range hrus {
		assert.False(t, h.TopoMissing)
		assert.Equal(t, 1200.0, h.Topography.ElevationMean, h.ID)
		assert.Equal(t, 1200.0, h.Topography.ElevationMin, h.ID)
		assert.Equal(t, 1200.0, h.Topography.ElevationMax, h.ID)
		assert.Zero(t, h.Topography.SlopeMean, h.ID)
		assert.Positive(t, h.AreaKm2, h.ID)
	}
}

func TestTopographyResolver_SlopedTerrain(t *testing.T) {
	// Elevation climbs steadily eastward, 1 m per 0.001 degree of longitude.
	sloped := stubElevations{fn: func(p domain.Geo) float64 {
		return 2000 + (p.Lon+73)*1000
	}}
	r := NewTopographyResolver(sloped, 2, testLogger())

	hrus, err := r.Resolve(context.Background(), testBase())
	require.NoError(t, err)

	for _, h := range hrus {
		assert.Positive(t, h.Topography.SlopeMean, h.ID)
		assert.Greater(t, h.Topography.ElevationMax, h.Topography.ElevationMin, h.ID)
		assert.NotEmpty(t, h.Topography.Aspect, h.ID)
	}
}

func TestTopographyResolver_GlacierAreaWithinUnitArea(t *testing.T) {
	r := NewTopographyResolver(constantElevation(1000), 2, testLogger())

	// The glacier layer covers exactly the southwest quadrant, which is the
	// first cell of a 2x2 grid.
	hrus, err := r.Resolve(context.Background(), testBase())
	require.NoError(t, err)
	require.Len(t, hrus, 4)

	sw := hrus[0]
	assert.InEpsilon(t, sw.AreaKm2, sw.GlacierAreaKm2, 0.01,
		"fully glacierized cell should report its whole area as glacier")
	for _, h := range hrus[1:] {
		assert.InDelta(t, 0, h.GlacierAreaKm2, 1e-6, h.ID)
	}
	for _, h := range hrus {
		assert.LessOrEqual(t, h.GlacierAreaKm2, h.AreaKm2*1.01, h.ID)
	}
}

func TestTopographyResolver_ElevationOutageDegrades(t *testing.T) {
	r := NewTopographyResolver(stubElevations{err: errors.New("service down")}, 3, testLogger())

	hrus, err := r.Resolve(context.Background(), testBase())
	require.NoError(t, err, "elevation outage must not fail the run")
	require.Len(t, hrus, 9)

	for _, h := range hrus {
		assert.True(t, h.TopoMissing, h.ID)
	}
}

func TestTopographyResolver_NoCoverageMarksUnits(t *testing.T) {
	nan := stubElevations{fn: func(domain.Geo) float64 { return math.NaN() }}
	r := NewTopographyResolver(nan, 2, testLogger())

	hrus, err := r.Resolve(context.Background(), testBase())
	require.NoError(t, err)

	for _, h := range hrus {
		assert.True(t, h.TopoMissing, h.ID)
	}
}

func TestTopographyResolver_PartialProbesKeepStatistics(t *testing.T) {
	// One probe per unit is outside coverage; statistics come from the rest
	// and slope stays unset.
	var calls int
	spotty := stubElevations{fn: func(domain.Geo) float64 {
		calls++
		if calls%9 == 1 {
			return math.NaN()
		}
		return 900
	}}
	r := NewTopographyResolver(spotty, 2, testLogger())

	hrus, err := r.Resolve(context.Background(), testBase())
	require.NoError(t, err)

	for _, h := range hrus {
		assert.False(t, h.TopoMissing, h.ID)
		assert.Equal(t, 900.0, h.Topography.ElevationMean, h.ID)
		assert.Zero(t, h.Topography.SlopeMean, h.ID)
		assert.Empty(t, h.Topography.Aspect, h.ID)
	}
}

func TestTopographyResolver_EmptyBoundary(t *testing.T) {
	r := NewTopographyResolver(constantElevation(1000), 2, testLogger())

	base := testBase()
	base.Boundary = &domain.SpatialLayer{Name: "empty"}

	_, err := r.Resolve(context.Background(), base)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no geometry")
}
