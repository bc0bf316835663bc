package domain

// SummarizeClimate reduces hourly records to the windowed quantities the melt
// and runoff computations consume. Records are hourly, newest last, so the
// 24 h and 72 h windows are the trailing 24 and 72 entries.
func SummarizeClimate(records []ClimateRecord, modelElevation float64) ClimateSummary {
	s := ClimateSummary{ModelElevation: modelElevation}
	if len(records) == 0 {
		return s
	}

	s.TempC = records[len(records)-1].TemperatureC

	from24 := max(0, len(records)-24)
	for _, r := range records[from24:] {
		s.Precip24MM += r.PrecipitationMM
		s.Snow24MM += r.SnowfallMM
	}

	from72 := max(0, len(records)-72)
	for _, r := range records[from72:] {
		s.Precip72MM += r.PrecipitationMM
	}

	return s
}
