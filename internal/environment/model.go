package environment

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("environment resource not found")

type PlantSpecies struct {
	ID             string    `json:"id"`
	CommonName     string    `json:"common_name"`
	ScientificName string    `json:"scientific_name"`
	Slug           string    `json:"slug"`
	Description    *string   `json:"description"`
	CO2KgPerYear   float64   `json:"co2_kg_per_year"`
	WaterNeeds     string    `json:"water_needs"`
	SunExposure    string    `json:"sun_exposure"`
	NativeToIberia bool      `json:"native_to_iberia"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// WeatherReading is one sample from the upstream weather service or a
// manual entry.
type WeatherReading struct {
	ID              string    `json:"id"`
	Location        string    `json:"location"`
	RecordedAt      time.Time `json:"recorded_at"`
	TemperatureC    float64   `json:"temperature_c"`
	HumidityPct     float64   `json:"humidity_pct"`
	SolarIrradiance float64   `json:"solar_irradiance_wm2"`
	WindSpeedMs     float64   `json:"wind_speed_ms"`
	CloudCoverPct   float64   `json:"cloud_cover_pct"`
	Source          string    `json:"source"`
	CreatedAt       time.Time `json:"created_at"`
}

// CO2Stats aggregates the species catalogue for the offset calculator.
type CO2Stats struct {
	SpeciesCount    int64   `json:"species_count"`
	AvgCO2KgPerYear float64 `json:"avg_co2_kg_per_year"`
	MaxCO2KgPerYear float64 `json:"max_co2_kg_per_year"`
	NativeCount     int64   `json:"native_count"`
}
