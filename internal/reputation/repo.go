package reputation

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{db: db}
}

type NewTransaction struct {
	UserID string
	Kind   ScoreKind
	Points int
	Reason string
}

// AddTransaction appends a ledger entry and moves the user's running
// score in the same transaction, returning both.
func (r *Repo) AddTransaction(ctx context.Context, in NewTransaction) (*Transaction, *UserReputation, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var t Transaction
	err = tx.QueryRow(ctx, `
INSERT INTO reputation_transactions (user_id, kind, points, reason)
VALUES ($1, $2, $3, $4)
RETURNING id::text, user_id::text, kind, points, reason, created_at`,
		in.UserID, in.Kind, in.Points, in.Reason).
		Scan(&t.ID, &t.UserID, &t.Kind, &t.Points, &t.Reason, &t.CreatedAt)
	if err != nil {
		return nil, nil, err
	}

	credDelta, inflDelta := 0, 0
	if in.Kind == KindCredibility {
		credDelta = in.Points
	} else {
		inflDelta = in.Points
	}

	var rep UserReputation
	err = tx.QueryRow(ctx, `
INSERT INTO user_reputations (user_id, credibility_score, influence_score, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (user_id) DO UPDATE
SET credibility_score = user_reputations.credibility_score + $2,
    influence_score   = user_reputations.influence_score + $3,
    updated_at        = now()
RETURNING user_id::text, credibility_score, influence_score, updated_at`,
		in.UserID, credDelta, inflDelta).
		Scan(&rep.UserID, &rep.CredibilityScore, &rep.InfluenceScore, &rep.UpdatedAt)
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}
	return &t, &rep, nil
}

func (r *Repo) GetByUser(ctx context.Context, userID string) (*UserReputation, error) {
	var rep UserReputation
	err := r.db.QueryRow(ctx, `
SELECT user_id::text, credibility_score, influence_score, updated_at
FROM user_reputations
WHERE user_id = $1`, userID).
		Scan(&rep.UserID, &rep.CredibilityScore, &rep.InfluenceScore, &rep.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rep, nil
}

func (r *Repo) ListTransactions(ctx context.Context, userID string, kind ScoreKind, limit, offset int) ([]Transaction, int64, error) {
	where := " WHERE user_id = $1"
	args := []any{userID}
	if kind != "" {
		args = append(args, kind)
		where += fmt.Sprintf(" AND kind = $%d", len(args))
	}

	var total int64
	if err := r.db.QueryRow(ctx, "SELECT count(*) FROM reputation_transactions"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	q := fmt.Sprintf(`
SELECT id::text, user_id::text, kind, points, reason, created_at
FROM reputation_transactions%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]Transaction, 0, limit)
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Kind, &t.Points, &t.Reason, &t.CreatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, t)
	}
	return out, total, rows.Err()
}

func (r *Repo) Statistics(ctx context.Context) (*Stats, error) {
	var s Stats
	err := r.db.QueryRow(ctx, `
SELECT
  count(*),
  coalesce(avg(credibility_score), 0),
  coalesce(avg(influence_score), 0)
FROM user_reputations`).Scan(&s.TotalUsers, &s.AvgCredibility, &s.AvgInfluence)
	if err != nil {
		return nil, err
	}

	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM reputation_transactions`).Scan(&s.TotalTransactions); err != nil {
		return nil, err
	}
	return &s, nil
}

// AllScores streams every user's scores; the nightly job feeds them to
// the leaderboard rebuild.
func (r *Repo) AllScores(ctx context.Context) ([]UserReputation, error) {
	rows, err := r.db.Query(ctx, `
SELECT user_id::text, credibility_score, influence_score, updated_at
FROM user_reputations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []UserReputation
	for rows.Next() {
		var rep UserReputation
		if err := rows.Scan(&rep.UserID, &rep.CredibilityScore, &rep.InfluenceScore, &rep.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}
