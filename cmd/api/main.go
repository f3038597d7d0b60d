package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ecovida/ecovida-backend/config"
	"github.com/ecovida/ecovida-backend/internal/auth"
	"github.com/ecovida/ecovida-backend/internal/bootstrap"
	"github.com/ecovida/ecovida-backend/internal/community"
	"github.com/ecovida/ecovida-backend/internal/environment"
	"github.com/ecovida/ecovida-backend/internal/jobs"
	"github.com/ecovida/ecovida-backend/internal/logging"
	"github.com/ecovida/ecovida-backend/internal/reputation"
)

const serviceName = "ecovida-backend"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := logging.New(serviceName, "", "info")
		fallback.Fatal().Err(err).Msg("config load failed")
	}

	log := logging.New(serviceName, cfg.App.Version, cfg.App.LogLevel)
	bootstrap.SetGinMode(cfg.App.Environment)

	ctx := context.Background()

	db, err := bootstrap.OpenDB(ctx, bootstrap.DBOptions{
		DSN:      cfg.Database.DSN,
		MaxConns: int32(cfg.Database.MaxConns),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("database open failed")
	}
	defer db.Close()

	rdb, err := bootstrap.OpenRedis(ctx, cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("redis open failed")
	}
	defer rdb.Close()

	verifier, err := auth.InitializeFirebase(&cfg.Firebase)
	if err != nil {
		log.Fatal().Err(err).Msg("firebase init failed")
	}

	var weather *environment.WeatherClient
	if cfg.Weather.BaseURL != "" {
		weather = environment.NewWeatherClient(cfg.Weather.BaseURL, cfg.Weather.Timeout)
	} else {
		log.Warn().Msg("WEATHER_UPSTREAM_URL not set, weather ingestion disabled")
	}

	envRepo := environment.NewRepo(db)
	repRepo := reputation.NewRepo(db)
	board := reputation.NewLeaderboard(rdb)
	trending := community.NewTrending(rdb)

	var fetcher jobs.Fetcher
	if weather != nil {
		fetcher = weather
	}
	scheduler := jobs.NewScheduler(repRepo, board, trending, envRepo, fetcher, log)
	if err := scheduler.Start(); err != nil {
		log.Fatal().Err(err).Msg("scheduler start failed")
	}
	defer scheduler.Stop()

	router := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName: serviceName,
		Cfg:         cfg,
		DB:          db,
		Redis:       rdb,
		Verifier:    verifier,
		Weather:     weather,
		Log:         log,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown failed")
	}
}
