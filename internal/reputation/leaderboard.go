package reputation

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const leaderboardKeyPrefix = "reputation:leaderboard:" // ZSET per kind: user_id -> score

// Leaderboard materializes the reputation ranking in Redis sorted sets.
// It is updated incrementally on every transaction and rebuilt nightly
// from the ledger.
type Leaderboard struct {
	client *redis.Client
}

func NewLeaderboard(client *redis.Client) *Leaderboard {
	return &Leaderboard{client: client}
}

func (l *Leaderboard) key(kind ScoreKind) string {
	return fmt.Sprintf("%s%s", leaderboardKeyPrefix, kind)
}

// Set records a user's absolute score for a kind.
func (l *Leaderboard) Set(ctx context.Context, kind ScoreKind, userID string, score int) error {
	return l.client.ZAdd(ctx, l.key(kind), redis.Z{Score: float64(score), Member: userID}).Err()
}

// Top returns the first n entries, best score first. Ties resolve by
// member ordering, which keeps positions stable between calls.
func (l *Leaderboard) Top(ctx context.Context, kind ScoreKind, n int) ([]Entry, error) {
	zs, err := l.client.ZRevRangeWithScores(ctx, l.key(kind), 0, int64(n-1)).Result()
	if err != nil {
		return nil, err
	}

	out := make([]Entry, 0, len(zs))
	for i, z := range zs {
		member, _ := z.Member.(string)
		out = append(out, Entry{
			Position: i + 1,
			UserID:   member,
			Score:    int(z.Score),
		})
	}
	return out, nil
}

// Rank returns a user's 1-based position and score, or ErrNotFound if
// the user has no entry.
func (l *Leaderboard) Rank(ctx context.Context, kind ScoreKind, userID string) (*Entry, error) {
	pos, err := l.client.ZRevRank(ctx, l.key(kind), userID).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNotFound
		}
		return nil, err
	}

	score, err := l.client.ZScore(ctx, l.key(kind), userID).Result()
	if err != nil {
		return nil, err
	}

	return &Entry{Position: int(pos) + 1, UserID: userID, Score: int(score)}, nil
}

// Rebuild replaces both rankings with the given scores atomically
// enough for a nightly job: the sets are deleted and refilled in one
// pipeline.
func (l *Leaderboard) Rebuild(ctx context.Context, scores []UserReputation) error {
	pipe := l.client.Pipeline()
	pipe.Del(ctx, l.key(KindCredibility), l.key(KindInfluence))
	for _, s := range scores {
		pipe.ZAdd(ctx, l.key(KindCredibility), redis.Z{Score: float64(s.CredibilityScore), Member: s.UserID})
		pipe.ZAdd(ctx, l.key(KindInfluence), redis.Z{Score: float64(s.InfluenceScore), Member: s.UserID})
	}
	_, err := pipe.Exec(ctx)
	return err
}
