package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func hourlyRecords(n int, temp, precip, snow float64) []ClimateRecord {
	start := time.Date(2026, time.August, 20, 0, 0, 0, 0, time.UTC)
	records := make([]ClimateRecord, n)
	for i := range records {
		records[i] = ClimateRecord{
			Time:            start.Add(time.Duration(i) * time.Hour),
			TemperatureC:    temp,
			PrecipitationMM: precip,
			SnowfallMM:      snow,
		}
	}
	return records
}

func TestSummarizeClimate_Windows(t *testing.T) {
	// 96 hourly records, 0.5 mm precipitation and 0.1 mm snowfall each.
	s := SummarizeClimate(hourlyRecords(96, 4.0, 0.5, 0.1), 650)

	assert.Equal(t, 4.0, s.TempC)
	assert.InDelta(t, 12.0, s.Precip24MM, 1e-9)
	assert.InDelta(t, 36.0, s.Precip72MM, 1e-9)
	assert.InDelta(t, 2.4, s.Snow24MM, 1e-9)
	assert.Equal(t, 650.0, s.ModelElevation)
}

func TestSummarizeClimate_ShortSeries(t *testing.T) {
	s := SummarizeClimate(hourlyRecords(6, -1.5, 1.0, 0), 0)

	assert.Equal(t, -1.5, s.TempC)
	assert.InDelta(t, 6.0, s.Precip24MM, 1e-9)
	assert.InDelta(t, 6.0, s.Precip72MM, 1e-9)
}

func TestSummarizeClimate_Empty(t *testing.T) {
	s := SummarizeClimate(nil, 650)

	assert.Zero(t, s.TempC)
	assert.Zero(t, s.Precip24MM)
	assert.Equal(t, 650.0, s.ModelElevation)
}
