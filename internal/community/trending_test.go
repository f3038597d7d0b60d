package community

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTrending(t *testing.T) (*Trending, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewTrending(client), mr
}

func TestTrendingAccumulatesWeights(t *testing.T) {
	tr, _ := setupTrending(t)
	ctx := context.Background()

	// t1: one post and two views. t2: one member join.
	require.NoError(t, tr.Touch(ctx, "t1", WeightPost))
	require.NoError(t, tr.Touch(ctx, "t1", WeightView))
	require.NoError(t, tr.Touch(ctx, "t1", WeightView))
	require.NoError(t, tr.Touch(ctx, "t2", WeightMember))

	top, err := tr.Top(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"t1", "t2"}, top)
}

func TestTrendingTopLimit(t *testing.T) {
	tr, _ := setupTrending(t)
	ctx := context.Background()

	require.NoError(t, tr.Touch(ctx, "a", 1))
	require.NoError(t, tr.Touch(ctx, "b", 2))
	require.NoError(t, tr.Touch(ctx, "c", 3))

	top, err := tr.Top(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b"}, top)
}

func TestTrendingReset(t *testing.T) {
	tr, _ := setupTrending(t)
	ctx := context.Background()

	require.NoError(t, tr.Touch(ctx, "t1", WeightPost))
	require.NoError(t, tr.Reset(ctx))

	top, err := tr.Top(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, top)
}

func TestTrendingKeyExpires(t *testing.T) {
	tr, mr := setupTrending(t)
	ctx := context.Background()

	require.NoError(t, tr.Touch(ctx, "t1", WeightView))

	// The ranking decays by TTL rather than per-member.
	mr.FastForward(trendingTTL)

	top, err := tr.Top(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, top)
}
