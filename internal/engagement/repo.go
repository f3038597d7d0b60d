package engagement

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

// ToggleVote applies the toggle semantics for (user, kind, target) and
// keeps the target's vote counters in the same transaction. The row
// lock on the existing vote serializes concurrent toggles per user.
func (r *Repo) ToggleVote(ctx context.Context, userID string, kind TargetKind, targetID string, vt VoteType) (*VoteResult, error) {
	table, err := Lookup(kind, true)
	if err != nil {
		return nil, err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var exists bool
	if err := tx.QueryRow(ctx,
		fmt.Sprintf(`SELECT exists(SELECT 1 FROM %s WHERE id = $1)`, table), targetID).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotFound
	}

	var existing *VoteType
	var current VoteType
	err = tx.QueryRow(ctx, `
SELECT vote_type FROM content_votes
WHERE user_id = $1 AND votable_type = $2 AND votable_id = $3
FOR UPDATE`, userID, kind, targetID).Scan(&current)
	switch {
	case err == nil:
		existing = &current
	case errors.Is(err, pgx.ErrNoRows):
	default:
		return nil, err
	}

	op, dUp, dDown := resolveToggle(existing, vt)

	switch op {
	case opInsert:
		_, err = tx.Exec(ctx, `
INSERT INTO content_votes (user_id, votable_type, votable_id, vote_type)
VALUES ($1, $2, $3, $4)`, userID, kind, targetID, vt)
	case opDelete:
		_, err = tx.Exec(ctx, `
DELETE FROM content_votes
WHERE user_id = $1 AND votable_type = $2 AND votable_id = $3`, userID, kind, targetID)
	case opSwitch:
		_, err = tx.Exec(ctx, `
UPDATE content_votes SET vote_type = $4
WHERE user_id = $1 AND votable_type = $2 AND votable_id = $3`, userID, kind, targetID, vt)
	}
	if err != nil {
		return nil, err
	}

	res := &VoteResult{}
	err = tx.QueryRow(ctx, fmt.Sprintf(`
UPDATE %s
SET upvotes = greatest(upvotes + $2, 0), downvotes = greatest(downvotes + $3, 0)
WHERE id = $1
RETURNING upvotes, downvotes`, table), targetID, dUp, dDown).Scan(&res.Upvotes, &res.Downvotes)
	if err != nil {
		return nil, err
	}

	if op != opDelete {
		res.Voted = true
		res.VoteType = &vt
	}

	return res, tx.Commit(ctx)
}

// ListVotes returns the acting user's votes, optionally scoped to a kind.
func (r *Repo) ListVotes(ctx context.Context, userID string, kind TargetKind, limit, offset int) ([]Vote, int64, error) {
	where := " WHERE user_id = $1"
	args := []any{userID}
	if kind != "" {
		args = append(args, kind)
		where += fmt.Sprintf(" AND votable_type = $%d", len(args))
	}

	var total int64
	if err := r.db.QueryRow(ctx, "SELECT count(*) FROM content_votes"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	q := fmt.Sprintf(`
SELECT id::text, user_id::text, votable_type, votable_id::text, vote_type, created_at
FROM content_votes%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]Vote, 0, limit)
	for rows.Next() {
		var v Vote
		if err := rows.Scan(&v.ID, &v.UserID, &v.Kind, &v.TargetID, &v.VoteType, &v.CreatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, v)
	}
	return out, total, rows.Err()
}

// ToggleBookmark saves the target for the user, or removes the bookmark
// if it already exists.
func (r *Repo) ToggleBookmark(ctx context.Context, userID string, kind TargetKind, targetID string) (saved bool, err error) {
	table, err := Lookup(kind, false)
	if err != nil {
		return false, err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var exists bool
	if err := tx.QueryRow(ctx,
		fmt.Sprintf(`SELECT exists(SELECT 1 FROM %s WHERE id = $1)`, table), targetID).Scan(&exists); err != nil {
		return false, err
	}
	if !exists {
		return false, ErrNotFound
	}

	tag, err := tx.Exec(ctx, `
DELETE FROM user_bookmarks
WHERE user_id = $1 AND bookmarkable_type = $2 AND bookmarkable_id = $3`, userID, kind, targetID)
	if err != nil {
		return false, err
	}

	if tag.RowsAffected() == 0 {
		if _, err := tx.Exec(ctx, `
INSERT INTO user_bookmarks (user_id, bookmarkable_type, bookmarkable_id)
VALUES ($1, $2, $3)`, userID, kind, targetID); err != nil {
			return false, err
		}
		saved = true
	}

	return saved, tx.Commit(ctx)
}

func (r *Repo) ListBookmarks(ctx context.Context, userID string, kind TargetKind, limit, offset int) ([]Bookmark, int64, error) {
	where := " WHERE user_id = $1"
	args := []any{userID}
	if kind != "" {
		args = append(args, kind)
		where += fmt.Sprintf(" AND bookmarkable_type = $%d", len(args))
	}

	var total int64
	if err := r.db.QueryRow(ctx, "SELECT count(*) FROM user_bookmarks"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	q := fmt.Sprintf(`
SELECT id::text, user_id::text, bookmarkable_type, bookmarkable_id::text, created_at
FROM user_bookmarks%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]Bookmark, 0, limit)
	for rows.Next() {
		var b Bookmark
		if err := rows.Scan(&b.ID, &b.UserID, &b.Kind, &b.TargetID, &b.CreatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, b)
	}
	return out, total, rows.Err()
}
