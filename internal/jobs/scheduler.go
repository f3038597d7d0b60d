package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/ecovida/ecovida-backend/internal/environment"
	"github.com/ecovida/ecovida-backend/internal/reputation"
)

// ReputationSource feeds the nightly leaderboard rebuild.
type ReputationSource interface {
	AllScores(ctx context.Context) ([]reputation.UserReputation, error)
}

type Board interface {
	Rebuild(ctx context.Context, scores []reputation.UserReputation) error
}

// TrendingBoard is cleared nightly so each day ranks on fresh activity.
type TrendingBoard interface {
	Reset(ctx context.Context) error
}

// WeatherSink stores fetched readings and knows which locations to
// refresh.
type WeatherSink interface {
	Locations(ctx context.Context) ([]string, error)
	InsertReading(ctx context.Context, in environment.NewReading) (*environment.WeatherReading, error)
}

type Fetcher interface {
	Fetch(ctx context.Context, location string) ([]environment.NewReading, error)
}

type Scheduler struct {
	cron       *cron.Cron
	reputation ReputationSource
	board      Board
	trending   TrendingBoard
	weather    WeatherSink
	fetcher    Fetcher
	log        zerolog.Logger
}

func NewScheduler(rep ReputationSource, board Board, trending TrendingBoard, weather WeatherSink, fetcher Fetcher, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:       cron.New(),
		reputation: rep,
		board:      board,
		trending:   trending,
		weather:    weather,
		fetcher:    fetcher,
		log:        log,
	}
}

// Start registers the nightly jobs and launches the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("0 3 * * *", s.rebuildLeaderboards); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("30 3 * * *", s.ingestWeather); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("0 4 * * *", s.resetTrending); err != nil {
		return err
	}

	s.cron.Start()
	s.log.Info().Msg("cron scheduler started")
	return nil
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Scheduler) rebuildLeaderboards() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	start := time.Now()
	scores, err := s.reputation.AllScores(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("leaderboard rebuild: load scores failed")
		return
	}
	if err := s.board.Rebuild(ctx, scores); err != nil {
		s.log.Error().Err(err).Msg("leaderboard rebuild failed")
		return
	}
	s.log.Info().Int("users", len(scores)).Dur("took", time.Since(start)).Msg("leaderboards rebuilt")
}

func (s *Scheduler) resetTrending() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.trending.Reset(ctx); err != nil {
		s.log.Error().Err(err).Msg("trending reset failed")
		return
	}
	s.log.Info().Msg("trending window reset")
}

func (s *Scheduler) ingestWeather() {
	if s.fetcher == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	locations, err := s.weather.Locations(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("weather ingest: list locations failed")
		return
	}

	stored := 0
	for _, loc := range locations {
		readings, err := s.fetcher.Fetch(ctx, loc)
		if err != nil {
			s.log.Warn().Err(err).Str("location", loc).Msg("weather fetch failed")
			continue
		}
		for _, in := range readings {
			if _, err := s.weather.InsertReading(ctx, in); err != nil {
				s.log.Warn().Err(err).Str("location", loc).Msg("reading insert failed")
				continue
			}
			stored++
		}
	}
	s.log.Info().Int("locations", len(locations)).Int("stored", stored).Msg("weather ingest completed")
}
