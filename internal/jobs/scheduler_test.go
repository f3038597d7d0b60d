package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecovida/ecovida-backend/internal/environment"
	"github.com/ecovida/ecovida-backend/internal/reputation"
)

type stubReputation struct {
	scores []reputation.UserReputation
	err    error
}

func (s *stubReputation) AllScores(ctx context.Context) ([]reputation.UserReputation, error) {
	return s.scores, s.err
}

type stubBoard struct {
	rebuilt []reputation.UserReputation
	calls   int
}

func (s *stubBoard) Rebuild(ctx context.Context, scores []reputation.UserReputation) error {
	s.calls++
	s.rebuilt = scores
	return nil
}

type stubTrending struct {
	calls int
	err   error
}

func (s *stubTrending) Reset(ctx context.Context) error {
	s.calls++
	return s.err
}

type stubWeather struct{}

func (s *stubWeather) Locations(ctx context.Context) ([]string, error) { return nil, nil }
func (s *stubWeather) InsertReading(ctx context.Context, in environment.NewReading) (*environment.WeatherReading, error) {
	return nil, nil
}

func newTestScheduler(rep ReputationSource, board Board, trending TrendingBoard) *Scheduler {
	return NewScheduler(rep, board, trending, &stubWeather{}, nil, zerolog.Nop())
}

func TestRebuildLeaderboardsPassesScores(t *testing.T) {
	rep := &stubReputation{scores: []reputation.UserReputation{
		{UserID: "u1", CredibilityScore: 10},
		{UserID: "u2", CredibilityScore: 20},
	}}
	board := &stubBoard{}

	s := newTestScheduler(rep, board, &stubTrending{})
	s.rebuildLeaderboards()

	require.Equal(t, 1, board.calls)
	assert.Len(t, board.rebuilt, 2)
}

func TestRebuildLeaderboardsSkipsOnLoadError(t *testing.T) {
	rep := &stubReputation{err: errors.New("db down")}
	board := &stubBoard{}

	s := newTestScheduler(rep, board, &stubTrending{})
	s.rebuildLeaderboards()

	assert.Zero(t, board.calls)
}

func TestResetTrendingClearsWindow(t *testing.T) {
	trending := &stubTrending{}

	s := newTestScheduler(&stubReputation{}, &stubBoard{}, trending)
	s.resetTrending()

	assert.Equal(t, 1, trending.calls)
}

func TestSchedulerRegistersJobs(t *testing.T) {
	s := newTestScheduler(&stubReputation{}, &stubBoard{}, &stubTrending{})
	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Len(t, s.cron.Entries(), 3)
}
