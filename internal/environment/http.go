package environment

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/ecovida/ecovida-backend/internal/auth"
	"github.com/ecovida/ecovida-backend/internal/httpx"
	"github.com/ecovida/ecovida-backend/internal/policy"
)

type Store interface {
	ListSpecies(ctx context.Context, f SpeciesFilter) ([]PlantSpecies, int64, error)
	CreateSpecies(ctx context.Context, in NewSpecies) (*PlantSpecies, error)
	GetSpecies(ctx context.Context, idOrSlug string) (*PlantSpecies, error)
	UpdateSpecies(ctx context.Context, id string, in SpeciesUpdate) (*PlantSpecies, error)
	DeleteSpecies(ctx context.Context, id string) error
	CO2Statistics(ctx context.Context) (*CO2Stats, error)
	ListReadings(ctx context.Context, f ReadingFilter) ([]WeatherReading, int64, error)
	InsertReading(ctx context.Context, in NewReading) (*WeatherReading, error)
}

// Fetcher pulls fresh observations from the upstream weather service.
type Fetcher interface {
	Fetch(ctx context.Context, location string) ([]NewReading, error)
}

type Handler struct {
	store   Store
	fetcher Fetcher
	log     zerolog.Logger
}

func Register(api *gin.RouterGroup, store Store, fetcher Fetcher, log zerolog.Logger) {
	h := &Handler{store: store, fetcher: fetcher, log: log}

	species := api.Group("/plant-species")
	species.GET("", h.listSpecies)
	species.GET("/statistics", h.statistics)
	species.POST("", auth.Require(), h.createSpecies)
	species.GET("/:id", h.showSpecies)
	species.PATCH("/:id", auth.Require(), h.updateSpecies)
	species.PUT("/:id", auth.Require(), h.updateSpecies)
	species.DELETE("/:id", auth.Require(), h.deleteSpecies)

	weather := api.Group("/weather-data")
	weather.GET("", h.listReadings)
	weather.POST("", auth.Require(), h.createReading)
	weather.POST("/ingest", auth.Require(), h.ingest)
}

type speciesListReq struct {
	WaterNeeds string `form:"water_needs" binding:"omitempty,oneof=baja media alta"`
	Native     *bool  `form:"native"`
	Query      string `form:"q" binding:"omitempty,max=120"`
}

func (h *Handler) listSpecies(c *gin.Context) {
	var req speciesListReq
	if !httpx.BindQuery(c, &req) {
		return
	}

	page := httpx.ParsePage(c)
	items, total, err := h.store.ListSpecies(c.Request.Context(), SpeciesFilter{
		WaterNeeds: req.WaterNeeds,
		Native:     req.Native,
		Query:      req.Query,
		Limit:      page.Limit(),
		Offset:     page.Offset(),
	})
	if err != nil {
		httpx.Internal(c)
		return
	}
	httpx.List(c, items, page.Meta(total))
}

func (h *Handler) statistics(c *gin.Context) {
	s, err := h.store.CO2Statistics(c.Request.Context())
	if err != nil {
		httpx.Internal(c)
		return
	}
	httpx.Data(c, http.StatusOK, s)
}

type speciesCreateReq struct {
	CommonName     string  `json:"common_name" binding:"required,max=160"`
	ScientificName string  `json:"scientific_name" binding:"required,max=160"`
	Description    *string `json:"description" binding:"omitempty,max=4000"`
	CO2KgPerYear   float64 `json:"co2_kg_per_year" binding:"required,gt=0"`
	WaterNeeds     string  `json:"water_needs" binding:"required,oneof=baja media alta"`
	SunExposure    string  `json:"sun_exposure" binding:"required,oneof=sombra semisombra sol"`
	NativeToIberia bool    `json:"native_to_iberia"`
}

func (h *Handler) createSpecies(c *gin.Context) {
	actor, _ := auth.CurrentActor(c)
	if !policy.Authorize(c, actor, policy.ActionModerate, policy.System{}) {
		return
	}

	var req speciesCreateReq
	if !httpx.BindJSON(c, &req) {
		return
	}

	p, err := h.store.CreateSpecies(c.Request.Context(), NewSpecies{
		CommonName:     req.CommonName,
		ScientificName: req.ScientificName,
		Description:    req.Description,
		CO2KgPerYear:   req.CO2KgPerYear,
		WaterNeeds:     req.WaterNeeds,
		SunExposure:    req.SunExposure,
		NativeToIberia: req.NativeToIberia,
	})
	if err != nil {
		httpx.Internal(c)
		return
	}
	httpx.Data(c, http.StatusCreated, p)
}

func (h *Handler) showSpecies(c *gin.Context) {
	p, err := h.store.GetSpecies(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.NotFound(c)
			return
		}
		httpx.Internal(c)
		return
	}
	httpx.Data(c, http.StatusOK, p)
}

type speciesUpdateReq struct {
	CommonName     *string  `json:"common_name" binding:"omitempty,max=160"`
	ScientificName *string  `json:"scientific_name" binding:"omitempty,max=160"`
	Description    *string  `json:"description" binding:"omitempty,max=4000"`
	CO2KgPerYear   *float64 `json:"co2_kg_per_year" binding:"omitempty,gt=0"`
	WaterNeeds     *string  `json:"water_needs" binding:"omitempty,oneof=baja media alta"`
	SunExposure    *string  `json:"sun_exposure" binding:"omitempty,oneof=sombra semisombra sol"`
	NativeToIberia *bool    `json:"native_to_iberia"`
}

func (h *Handler) updateSpecies(c *gin.Context) {
	actor, _ := auth.CurrentActor(c)
	if !policy.Authorize(c, actor, policy.ActionModerate, policy.System{}) {
		return
	}

	existing, err := h.store.GetSpecies(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.NotFound(c)
			return
		}
		httpx.Internal(c)
		return
	}

	var req speciesUpdateReq
	if !httpx.BindJSON(c, &req) {
		return
	}

	p, err := h.store.UpdateSpecies(c.Request.Context(), existing.ID, SpeciesUpdate{
		CommonName:     req.CommonName,
		ScientificName: req.ScientificName,
		Description:    req.Description,
		CO2KgPerYear:   req.CO2KgPerYear,
		WaterNeeds:     req.WaterNeeds,
		SunExposure:    req.SunExposure,
		NativeToIberia: req.NativeToIberia,
	})
	if err != nil {
		httpx.Internal(c)
		return
	}
	httpx.Data(c, http.StatusOK, p)
}

func (h *Handler) deleteSpecies(c *gin.Context) {
	actor, _ := auth.CurrentActor(c)
	if !policy.Authorize(c, actor, policy.ActionDelete, policy.System{}) {
		return
	}

	if err := h.store.DeleteSpecies(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.NotFound(c)
			return
		}
		httpx.Internal(c)
		return
	}
	httpx.NoContent(c)
}

type readingListReq struct {
	Location string     `form:"location" binding:"omitempty,max=120"`
	From     *time.Time `form:"from" time_format:"2006-01-02"`
	To       *time.Time `form:"to" time_format:"2006-01-02"`
}

func (h *Handler) listReadings(c *gin.Context) {
	var req readingListReq
	if !httpx.BindQuery(c, &req) {
		return
	}

	page := httpx.ParsePage(c)
	items, total, err := h.store.ListReadings(c.Request.Context(), ReadingFilter{
		Location: req.Location,
		From:     req.From,
		To:       req.To,
		Limit:    page.Limit(),
		Offset:   page.Offset(),
	})
	if err != nil {
		httpx.Internal(c)
		return
	}
	httpx.List(c, items, page.Meta(total))
}

type readingCreateReq struct {
	Location        string    `json:"location" binding:"required,max=120"`
	RecordedAt      time.Time `json:"recorded_at" binding:"required"`
	TemperatureC    float64   `json:"temperature_c" binding:"required"`
	HumidityPct     float64   `json:"humidity_pct" binding:"gte=0,lte=100"`
	SolarIrradiance float64   `json:"solar_irradiance_wm2" binding:"gte=0"`
	WindSpeedMs     float64   `json:"wind_speed_ms" binding:"gte=0"`
	CloudCoverPct   float64   `json:"cloud_cover_pct" binding:"gte=0,lte=100"`
}

func (h *Handler) createReading(c *gin.Context) {
	actor, _ := auth.CurrentActor(c)
	if !policy.Authorize(c, actor, policy.ActionModerate, policy.System{}) {
		return
	}

	var req readingCreateReq
	if !httpx.BindJSON(c, &req) {
		return
	}

	w, err := h.store.InsertReading(c.Request.Context(), NewReading{
		Location:        req.Location,
		RecordedAt:      req.RecordedAt,
		TemperatureC:    req.TemperatureC,
		HumidityPct:     req.HumidityPct,
		SolarIrradiance: req.SolarIrradiance,
		WindSpeedMs:     req.WindSpeedMs,
		CloudCoverPct:   req.CloudCoverPct,
		Source:          "manual",
	})
	if err != nil {
		httpx.Internal(c)
		return
	}
	httpx.Data(c, http.StatusCreated, w)
}

type ingestReq struct {
	Location string `json:"location" binding:"required,max=120"`
}

// ingest pulls the upstream service on demand; the nightly job does the
// same for every known location.
func (h *Handler) ingest(c *gin.Context) {
	actor, _ := auth.CurrentActor(c)
	if !policy.Authorize(c, actor, policy.ActionModerate, policy.System{}) {
		return
	}

	var req ingestReq
	if !httpx.BindJSON(c, &req) {
		return
	}

	if h.fetcher == nil {
		httpx.Message(c, http.StatusServiceUnavailable, "El servicio meteorológico no está configurado")
		return
	}

	readings, err := h.fetcher.Fetch(c.Request.Context(), req.Location)
	if err != nil {
		h.log.Error().Err(err).Str("location", req.Location).Msg("weather fetch failed")
		httpx.Message(c, http.StatusBadGateway, "El servicio meteorológico no está disponible")
		return
	}

	stored := 0
	for _, in := range readings {
		if _, err := h.store.InsertReading(c.Request.Context(), in); err != nil {
			h.log.Warn().Err(err).Str("location", in.Location).Msg("reading insert failed")
			continue
		}
		stored++
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"fetched": len(readings), "stored": stored}})
}
