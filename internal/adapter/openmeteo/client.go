// Package openmeteo fetches hourly climate records from the Open-Meteo
// forecast API.
package openmeteo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/evaqua/glacier-risk-core/internal/domain"
)

const defaultBaseURL = "https://api.open-meteo.com"

// hourLayout is the timestamp format Open-Meteo uses with timezone=UTC.
const hourLayout = "2006-01-02T15:04"

// Client implements domain.ClimateSource using the Open-Meteo forecast API.
// All points of a batch go out in one request; Open-Meteo accepts
// comma-separated coordinate lists and answers with one block per point.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates an Open-Meteo client. An empty baseURL selects the
// public API endpoint.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger,
	}
}

// Fetch retrieves hourly temperature, precipitation, and snowfall for the
// past three days plus the current day at each point. Sites are returned in
// input order. A site the provider has no data for comes back with zero
// records rather than an error.
func (c *Client) Fetch(ctx context.Context, points []domain.Geo) ([]domain.SiteClimate, error) {
	if len(points) == 0 {
		return nil, nil
	}

	lats := make([]string, len(points))
	lons := make([]string, len(points))
	for i, p := range points {
		lats[i] = fmt.Sprintf("%.6f", p.Lat)
		lons[i] = fmt.Sprintf("%.6f", p.Lon)
	}

	params := url.Values{
		"latitude":      {strings.Join(lats, ",")},
		"longitude":     {strings.Join(lons, ",")},
		"hourly":        {"temperature_2m,precipitation,snowfall"},
		"past_days":     {"3"},
		"forecast_days": {"1"},
		"timezone":      {"UTC"},
	}

	sites, err := c.doRequest(ctx, c.baseURL+"/v1/forecast?"+params.Encode())
	if err != nil {
		return nil, &domain.ClimateSourceError{Err: err}
	}
	if len(sites) != len(points) {
		return nil, &domain.ClimateSourceError{
			Err: fmt.Errorf("requested %d sites, got %d", len(points), len(sites)),
		}
	}

	out := make([]domain.SiteClimate, len(sites))
	for i, s := range sites {
		records, err := s.Hourly.records()
		if err != nil {
			return nil, &domain.ClimateSourceError{Err: fmt.Errorf("site %d: %w", i, err)}
		}
		out[i] = domain.SiteClimate{
			ModelElevation: s.Elevation,
			Records:        records,
		}
	}
	return out, nil
}

func (c *Client) doRequest(ctx context.Context, fullURL string) ([]siteResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("forecast request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("open-meteo API error: status %d: %s", resp.StatusCode, body)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	// A multi-point request answers with a JSON array, a single-point
	// request with one object.
	var sites []siteResponse
	if bytes.HasPrefix(bytes.TrimSpace(body), []byte("[")) {
		if err := json.Unmarshal(body, &sites); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		return sites, nil
	}
	var single siteResponse
	if err := json.Unmarshal(body, &single); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return []siteResponse{single}, nil
}

// Open-Meteo API response types.

type siteResponse struct {
	Elevation float64     `json:"elevation"`
	Hourly    hourlyBlock `json:"hourly"`
}

type hourlyBlock struct {
	Time          []string  `json:"time"`
	Temperature2M []float64 `json:"temperature_2m"`
	Precipitation []float64 `json:"precipitation"`
	Snowfall      []float64 `json:"snowfall"`
}

func (h hourlyBlock) records() ([]domain.ClimateRecord, error) {
	n := len(h.Time)
	if len(h.Temperature2M) != n || len(h.Precipitation) != n || len(h.Snowfall) != n {
		return nil, fmt.Errorf("hourly series lengths differ: time=%d temperature=%d precipitation=%d snowfall=%d",
			n, len(h.Temperature2M), len(h.Precipitation), len(h.Snowfall))
	}

	records := make([]domain.ClimateRecord, 0, n)
	for i := 0; i < n; i++ {
		ts, err := time.Parse(hourLayout, h.Time[i])
		if err != nil {
			return nil, fmt.Errorf("parse hourly timestamp %q: %w", h.Time[i], err)
		}
		records = append(records, domain.ClimateRecord{
			Time:            ts.UTC(),
			TemperatureC:    h.Temperature2M[i],
			PrecipitationMM: h.Precipitation[i],
			SnowfallMM:      h.Snowfall[i],
		})
	}
	return records, nil
}
