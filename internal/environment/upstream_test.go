package environment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeatherClientFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/observations", r.URL.Path)
		assert.Equal(t, "Sevilla", r.URL.Query().Get("location"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"observations": [
			{"observed_at": "2026-07-01T12:00:00Z", "temperature_c": 34.5, "humidity_pct": 22, "irradiance_wm2": 880, "wind_speed_ms": 3.1, "cloud_cover_pct": 5}
		]}`))
	}))
	defer srv.Close()

	c := NewWeatherClient(srv.URL, 2*time.Second)
	readings, err := c.Fetch(context.Background(), "Sevilla")
	require.NoError(t, err)
	require.Len(t, readings, 1)

	got := readings[0]
	assert.Equal(t, "Sevilla", got.Location)
	assert.Equal(t, 34.5, got.TemperatureC)
	assert.Equal(t, 880.0, got.SolarIrradiance)
	assert.Equal(t, "upstream", got.Source)
	assert.Equal(t, time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC), got.RecordedAt)
}

func TestWeatherClientUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewWeatherClient(srv.URL, 2*time.Second)
	_, err := c.Fetch(context.Background(), "Sevilla")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}

func TestWeatherClientBadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	c := NewWeatherClient(srv.URL, 2*time.Second)
	_, err := c.Fetch(context.Background(), "Sevilla")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode JSON")
}
