package environment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// WeatherClient talks to the upstream weather and solar irradiance
// service.
type WeatherClient struct {
	baseURL string
	client  *http.Client
}

func NewWeatherClient(baseURL string, timeout time.Duration) *WeatherClient {
	return &WeatherClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// upstreamObservation is the upstream wire format.
type upstreamObservation struct {
	ObservedAt    time.Time `json:"observed_at"`
	TemperatureC  float64   `json:"temperature_c"`
	HumidityPct   float64   `json:"humidity_pct"`
	IrradianceWm2 float64   `json:"irradiance_wm2"`
	WindSpeedMs   float64   `json:"wind_speed_ms"`
	CloudCoverPct float64   `json:"cloud_cover_pct"`
}

// Fetch pulls the latest observations for a location.
func (c *WeatherClient) Fetch(ctx context.Context, location string) ([]NewReading, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	u.Path += "/observations"

	q := u.Query()
	q.Set("location", location)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upstream returned status %d", resp.StatusCode)
	}

	var payload struct {
		Observations []upstreamObservation `json:"observations"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode JSON: %w", err)
	}

	out := make([]NewReading, 0, len(payload.Observations))
	for _, ob := range payload.Observations {
		out = append(out, NewReading{
			Location:        location,
			RecordedAt:      ob.ObservedAt,
			TemperatureC:    ob.TemperatureC,
			HumidityPct:     ob.HumidityPct,
			SolarIrradiance: ob.IrradianceWm2,
			WindSpeedMs:     ob.WindSpeedMs,
			CloudCoverPct:   ob.CloudCoverPct,
			Source:          "upstream",
		})
	}
	return out, nil
}
