package reputation

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupLeaderboard(t *testing.T) (*Leaderboard, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewLeaderboard(client), mr
}

func TestLeaderboardTopOrdering(t *testing.T) {
	lb, _ := setupLeaderboard(t)
	ctx := context.Background()

	require.NoError(t, lb.Set(ctx, KindCredibility, "u1", 10))
	require.NoError(t, lb.Set(ctx, KindCredibility, "u2", 50))
	require.NoError(t, lb.Set(ctx, KindCredibility, "u3", 30))

	top, err := lb.Top(ctx, KindCredibility, 10)
	require.NoError(t, err)
	require.Len(t, top, 3)

	assert.Equal(t, Entry{Position: 1, UserID: "u2", Score: 50}, top[0])
	assert.Equal(t, Entry{Position: 2, UserID: "u3", Score: 30}, top[1])
	assert.Equal(t, Entry{Position: 3, UserID: "u1", Score: 10}, top[2])
}

func TestLeaderboardTopLimit(t *testing.T) {
	lb, _ := setupLeaderboard(t)
	ctx := context.Background()

	for i, id := range []string{"a", "b", "c", "d"} {
		require.NoError(t, lb.Set(ctx, KindInfluence, id, i*10))
	}

	top, err := lb.Top(ctx, KindInfluence, 2)
	require.NoError(t, err)
	assert.Len(t, top, 2)
	assert.Equal(t, "d", top[0].UserID)
}

func TestLeaderboardSetOverwrites(t *testing.T) {
	lb, _ := setupLeaderboard(t)
	ctx := context.Background()

	require.NoError(t, lb.Set(ctx, KindCredibility, "u1", 10))
	require.NoError(t, lb.Set(ctx, KindCredibility, "u1", 70))

	entry, err := lb.Rank(ctx, KindCredibility, "u1")
	require.NoError(t, err)
	assert.Equal(t, 70, entry.Score)
	assert.Equal(t, 1, entry.Position)
}

func TestLeaderboardRankMissingUser(t *testing.T) {
	lb, _ := setupLeaderboard(t)

	_, err := lb.Rank(context.Background(), KindCredibility, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLeaderboardKindsAreIndependent(t *testing.T) {
	lb, _ := setupLeaderboard(t)
	ctx := context.Background()

	require.NoError(t, lb.Set(ctx, KindCredibility, "u1", 10))

	top, err := lb.Top(ctx, KindInfluence, 10)
	require.NoError(t, err)
	assert.Empty(t, top)
}

func TestLeaderboardRebuild(t *testing.T) {
	lb, _ := setupLeaderboard(t)
	ctx := context.Background()

	// Stale entry that the rebuild must drop.
	require.NoError(t, lb.Set(ctx, KindCredibility, "stale", 999))

	err := lb.Rebuild(ctx, []UserReputation{
		{UserID: "u1", CredibilityScore: 5, InfluenceScore: 40},
		{UserID: "u2", CredibilityScore: 25, InfluenceScore: 10},
	})
	require.NoError(t, err)

	cred, err := lb.Top(ctx, KindCredibility, 10)
	require.NoError(t, err)
	require.Len(t, cred, 2)
	assert.Equal(t, "u2", cred[0].UserID)

	infl, err := lb.Top(ctx, KindInfluence, 10)
	require.NoError(t, err)
	require.Len(t, infl, 2)
	assert.Equal(t, "u1", infl[0].UserID)

	_, err = lb.Rank(ctx, KindCredibility, "stale")
	assert.ErrorIs(t, err, ErrNotFound)
}
