package community

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	trendingKey = "community:trending:topics" // ZSET topic_id -> activity score
	trendingTTL = 48 * time.Hour

	// Activity weights feeding the trending score.
	WeightView   = 1
	WeightPost   = 5
	WeightMember = 3
)

// Trending keeps a decayed activity ranking of topics in Redis.
type Trending struct {
	client *redis.Client
}

func NewTrending(client *redis.Client) *Trending {
	return &Trending{client: client}
}

// Touch adds activity weight for a topic.
func (t *Trending) Touch(ctx context.Context, topicID string, weight float64) error {
	pipe := t.client.Pipeline()
	pipe.ZIncrBy(ctx, trendingKey, weight, topicID)
	pipe.Expire(ctx, trendingKey, trendingTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// Top returns the n most active topic ids, best first.
func (t *Trending) Top(ctx context.Context, n int) ([]string, error) {
	return t.client.ZRevRange(ctx, trendingKey, 0, int64(n-1)).Result()
}

// Reset clears the ranking; the nightly job calls this so each day
// ranks on fresh activity.
func (t *Trending) Reset(ctx context.Context) error {
	return t.client.Del(ctx, trendingKey).Err()
}
