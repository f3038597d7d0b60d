package reputation

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("reputation not found")

// ScoreKind selects which of the two scores a transaction or
// leaderboard refers to.
type ScoreKind string

const (
	KindCredibility ScoreKind = "credibility"
	KindInfluence   ScoreKind = "influence"
)

type UserReputation struct {
	UserID           string    `json:"user_id"`
	CredibilityScore int       `json:"credibility_score"`
	InfluenceScore   int       `json:"influence_score"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Transaction is one append-only ledger entry; scores are the running
// sum of their transactions.
type Transaction struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Kind      ScoreKind `json:"kind"`
	Points    int       `json:"points"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

// Entry is one leaderboard row.
type Entry struct {
	Position int    `json:"position"`
	UserID   string `json:"user_id"`
	Score    int    `json:"score"`
}

type Stats struct {
	TotalUsers        int64   `json:"total_users"`
	TotalTransactions int64   `json:"total_transactions"`
	AvgCredibility    float64 `json:"avg_credibility"`
	AvgInfluence      float64 `json:"avg_influence"`
}
