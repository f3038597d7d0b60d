package environment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ecovida/ecovida-backend/internal/taxonomy"
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{db: db}
}

const speciesColumns = `id::text, common_name, scientific_name, slug, description, co2_kg_per_year,
water_needs, sun_exposure, native_to_iberia, created_at, updated_at`

func scanSpecies(row pgx.Row) (*PlantSpecies, error) {
	var p PlantSpecies
	err := row.Scan(&p.ID, &p.CommonName, &p.ScientificName, &p.Slug, &p.Description, &p.CO2KgPerYear,
		&p.WaterNeeds, &p.SunExposure, &p.NativeToIberia, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

type SpeciesFilter struct {
	WaterNeeds string
	Native     *bool
	Query      string
	Limit      int
	Offset     int
}

func (r *Repo) ListSpecies(ctx context.Context, f SpeciesFilter) ([]PlantSpecies, int64, error) {
	where := " WHERE 1=1"
	args := []any{}
	if f.WaterNeeds != "" {
		args = append(args, f.WaterNeeds)
		where += fmt.Sprintf(" AND water_needs = $%d", len(args))
	}
	if f.Native != nil {
		args = append(args, *f.Native)
		where += fmt.Sprintf(" AND native_to_iberia = $%d", len(args))
	}
	if f.Query != "" {
		args = append(args, "%"+f.Query+"%")
		where += fmt.Sprintf(" AND (common_name ILIKE $%d OR scientific_name ILIKE $%d)", len(args), len(args))
	}

	var total int64
	if err := r.db.QueryRow(ctx, "SELECT count(*) FROM plant_species"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, f.Limit, f.Offset)
	q := fmt.Sprintf("SELECT %s FROM plant_species%s ORDER BY common_name LIMIT $%d OFFSET $%d",
		speciesColumns, where, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]PlantSpecies, 0, f.Limit)
	for rows.Next() {
		var p PlantSpecies
		if err := rows.Scan(&p.ID, &p.CommonName, &p.ScientificName, &p.Slug, &p.Description, &p.CO2KgPerYear,
			&p.WaterNeeds, &p.SunExposure, &p.NativeToIberia, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

type NewSpecies struct {
	CommonName     string
	ScientificName string
	Description    *string
	CO2KgPerYear   float64
	WaterNeeds     string
	SunExposure    string
	NativeToIberia bool
}

func (r *Repo) CreateSpecies(ctx context.Context, in NewSpecies) (*PlantSpecies, error) {
	slug := taxonomy.Slugify(in.CommonName)

	for i := 0; i < 5; i++ {
		p, err := scanSpecies(r.db.QueryRow(ctx, `
INSERT INTO plant_species (common_name, scientific_name, slug, description, co2_kg_per_year, water_needs, sun_exposure, native_to_iberia)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING `+speciesColumns,
			in.CommonName, in.ScientificName, slug, in.Description, in.CO2KgPerYear,
			in.WaterNeeds, in.SunExposure, in.NativeToIberia))
		if err == nil {
			return p, nil
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			slug = taxonomy.SlugWithSuffix(in.CommonName)
			continue
		}
		return nil, err
	}

	return nil, fmt.Errorf("failed to generate unique species slug")
}

func (r *Repo) GetSpecies(ctx context.Context, idOrSlug string) (*PlantSpecies, error) {
	return scanSpecies(r.db.QueryRow(ctx, `
SELECT `+speciesColumns+`
FROM plant_species
WHERE id::text = $1 OR slug = $1`, idOrSlug))
}

type SpeciesUpdate struct {
	CommonName     *string
	ScientificName *string
	Description    *string
	CO2KgPerYear   *float64
	WaterNeeds     *string
	SunExposure    *string
	NativeToIberia *bool
}

func (r *Repo) UpdateSpecies(ctx context.Context, id string, in SpeciesUpdate) (*PlantSpecies, error) {
	return scanSpecies(r.db.QueryRow(ctx, `
UPDATE plant_species
SET common_name      = coalesce($2, common_name),
    scientific_name  = coalesce($3, scientific_name),
    description      = coalesce($4, description),
    co2_kg_per_year  = coalesce($5, co2_kg_per_year),
    water_needs      = coalesce($6, water_needs),
    sun_exposure     = coalesce($7, sun_exposure),
    native_to_iberia = coalesce($8, native_to_iberia),
    updated_at       = now()
WHERE id = $1
RETURNING `+speciesColumns,
		id, in.CommonName, in.ScientificName, in.Description, in.CO2KgPerYear,
		in.WaterNeeds, in.SunExposure, in.NativeToIberia))
}

func (r *Repo) DeleteSpecies(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM plant_species WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CO2Statistics aggregates the catalogue in one query.
func (r *Repo) CO2Statistics(ctx context.Context) (*CO2Stats, error) {
	var s CO2Stats
	err := r.db.QueryRow(ctx, `
SELECT
  count(*),
  coalesce(avg(co2_kg_per_year), 0),
  coalesce(max(co2_kg_per_year), 0),
  count(*) FILTER (WHERE native_to_iberia)
FROM plant_species`).Scan(&s.SpeciesCount, &s.AvgCO2KgPerYear, &s.MaxCO2KgPerYear, &s.NativeCount)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

const readingColumns = `id::text, location, recorded_at, temperature_c, humidity_pct,
solar_irradiance_wm2, wind_speed_ms, cloud_cover_pct, source, created_at`

type ReadingFilter struct {
	Location string
	From     *time.Time
	To       *time.Time
	Limit    int
	Offset   int
}

func (r *Repo) ListReadings(ctx context.Context, f ReadingFilter) ([]WeatherReading, int64, error) {
	where := " WHERE 1=1"
	args := []any{}
	if f.Location != "" {
		args = append(args, f.Location)
		where += fmt.Sprintf(" AND location = $%d", len(args))
	}
	if f.From != nil {
		args = append(args, *f.From)
		where += fmt.Sprintf(" AND recorded_at >= $%d", len(args))
	}
	if f.To != nil {
		args = append(args, *f.To)
		where += fmt.Sprintf(" AND recorded_at <= $%d", len(args))
	}

	var total int64
	if err := r.db.QueryRow(ctx, "SELECT count(*) FROM weather_solar_data"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, f.Limit, f.Offset)
	q := fmt.Sprintf("SELECT %s FROM weather_solar_data%s ORDER BY recorded_at DESC LIMIT $%d OFFSET $%d",
		readingColumns, where, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]WeatherReading, 0, f.Limit)
	for rows.Next() {
		var w WeatherReading
		if err := rows.Scan(&w.ID, &w.Location, &w.RecordedAt, &w.TemperatureC, &w.HumidityPct,
			&w.SolarIrradiance, &w.WindSpeedMs, &w.CloudCoverPct, &w.Source, &w.CreatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, w)
	}
	return out, total, rows.Err()
}

type NewReading struct {
	Location        string
	RecordedAt      time.Time
	TemperatureC    float64
	HumidityPct     float64
	SolarIrradiance float64
	WindSpeedMs     float64
	CloudCoverPct   float64
	Source          string
}

func (r *Repo) InsertReading(ctx context.Context, in NewReading) (*WeatherReading, error) {
	var w WeatherReading
	err := r.db.QueryRow(ctx, `
INSERT INTO weather_solar_data (location, recorded_at, temperature_c, humidity_pct, solar_irradiance_wm2, wind_speed_ms, cloud_cover_pct, source)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (location, recorded_at) DO UPDATE
SET temperature_c        = excluded.temperature_c,
    humidity_pct         = excluded.humidity_pct,
    solar_irradiance_wm2 = excluded.solar_irradiance_wm2,
    wind_speed_ms        = excluded.wind_speed_ms,
    cloud_cover_pct      = excluded.cloud_cover_pct,
    source               = excluded.source
RETURNING `+readingColumns,
		in.Location, in.RecordedAt, in.TemperatureC, in.HumidityPct, in.SolarIrradiance,
		in.WindSpeedMs, in.CloudCoverPct, in.Source).
		Scan(&w.ID, &w.Location, &w.RecordedAt, &w.TemperatureC, &w.HumidityPct,
			&w.SolarIrradiance, &w.WindSpeedMs, &w.CloudCoverPct, &w.Source, &w.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// Locations lists the distinct locations with stored readings; the
// ingestion job refreshes each of them.
func (r *Repo) Locations(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT DISTINCT location FROM weather_solar_data ORDER BY location`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var loc string
		if err := rows.Scan(&loc); err != nil {
			return nil, err
		}
		out = append(out, loc)
	}
	return out, rows.Err()
}
