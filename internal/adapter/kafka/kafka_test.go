package kafka

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evaqua/glacier-risk-core/internal/domain"
)

func TestSerializeToMessage(t *testing.T) {
	completed := time.Date(2026, 8, 22, 12, 0, 0, 0, time.UTC)
	result := &domain.Result{
		RunID:       "run-1",
		StartedAt:   completed.Add(-time.Minute),
		CompletedAt: completed,
	}
	h := domain.HRU{
		ID:          "hru-004-011",
		Centroid:    domain.Geo{Lat: -45.75, Lon: -72.25},
		RunoffMMDay: 84,
		Risk:        domain.RiskEstimate{Score: 0.61, Class: domain.RiskHigh},
	}

	msg, err := serializeToMessage(result, &h)
	require.NoError(t, err)

	assert.Equal(t, []byte("hru-004-011"), msg.Key)
	assert.Contains(t, string(msg.Value), `"id":"hru-004-011"`)
	assert.Contains(t, string(msg.Value), `"class":"high"`)

	require.Len(t, msg.Headers, 3)
	assert.Equal(t, "run_id", msg.Headers[0].Key)
	assert.Equal(t, []byte("run-1"), msg.Headers[0].Value)
	assert.Equal(t, "risk_class", msg.Headers[1].Key)
	assert.Equal(t, []byte("high"), msg.Headers[1].Value)
	assert.Equal(t, "completed_at", msg.Headers[2].Key)
	assert.Equal(t, []byte(completed.Format(time.RFC3339)), msg.Headers[2].Value)
}

func TestSerializeToMessage_OmitsGeometryAndRecords(t *testing.T) {
	h := domain.HRU{
		ID:      "hru-000-000",
		Climate: []domain.ClimateRecord{{TemperatureC: 3}},
	}

	msg, err := serializeToMessage(&domain.Result{RunID: "run-2"}, &h)
	require.NoError(t, err)

	assert.NotContains(t, string(msg.Value), "temperature_c")
	assert.NotContains(t, string(msg.Value), "Geometry")
}
