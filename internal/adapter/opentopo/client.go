// Package opentopo resolves terrain elevations through the OpenTopoData API.
package opentopo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/evaqua/glacier-risk-core/internal/domain"
)

const defaultBaseURL = "https://api.opentopodata.org"

// batchSize is the provider's per-request location limit.
const batchSize = 100

// Client implements domain.ElevationSource using the OpenTopoData SRTM
// dataset. Points outside dataset coverage resolve to NaN.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates an OpenTopoData client. An empty baseURL selects the
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

// Elevations returns one elevation per point, in input order, querying the
// provider in batches. A null elevation in the response becomes NaN.
func (c *Client) Elevations(ctx context.Context, points []domain.Geo) ([]float64, error) {
	out := make([]float64, 0, len(points))
	for start := 0; start < len(points); start += batchSize {
		end := min(start+batchSize, len(points))
		batch, err := c.fetchBatch(ctx, points[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, batch...)
	}
	return out, nil
}

func (c *Client) fetchBatch(ctx context.Context, points []domain.Geo) ([]float64, error) {
	locs := make([]string, len(points))
	for i, p := range points {
		locs[i] = fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lon)
	}
	params := url.Values{"locations": {strings.Join(locs, "|")}}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/v1/srtm90m?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elevation request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("opentopodata API error: status %d: %s", resp.StatusCode, body)
	}

	var topoResp response
	if err := json.NewDecoder(resp.Body).Decode(&topoResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(topoResp.Results) != len(points) {
		return nil, fmt.Errorf("requested %d elevations, got %d", len(points), len(topoResp.Results))
	}

	elevs := make([]float64, len(topoResp.Results))
	for i, r := range topoResp.Results {
		if r.Elevation == nil {
			elevs[i] = math.NaN()
			continue
		}
		elevs[i] = *r.Elevation
	}
	return elevs, nil
}

// OpenTopoData API response types.

type response struct {
	Results []result `json:"results"`
}

type result struct {
	Elevation *float64 `json:"elevation"` // null outside dataset coverage
}
