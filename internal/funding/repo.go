package funding

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ecovida/ecovida-backend/internal/taxonomy"
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{db: db}
}

const proposalColumns = `id::text, user_id::text, organization_id::text, category_id::text, title, slug,
description, location, funding_goal, raised_amount, investors_count, status, created_at, updated_at`

func scanProposal(row pgx.Row) (*Proposal, error) {
	var p Proposal
	err := row.Scan(&p.ID, &p.UserID, &p.OrganizationID, &p.CategoryID, &p.Title, &p.Slug,
		&p.Description, &p.Location, &p.FundingGoal, &p.RaisedAmount, &p.InvestorsCount,
		&p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

type ProposalFilter struct {
	Status     ProposalStatus
	CategoryID string
	UserID     string
	Query      string
	Limit      int
	Offset     int
}

func (r *Repo) ListProposals(ctx context.Context, f ProposalFilter) ([]Proposal, int64, error) {
	where := " WHERE 1=1"
	args := []any{}
	if f.Status != "" {
		args = append(args, f.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if f.CategoryID != "" {
		args = append(args, f.CategoryID)
		where += fmt.Sprintf(" AND category_id = $%d", len(args))
	}
	if f.UserID != "" {
		args = append(args, f.UserID)
		where += fmt.Sprintf(" AND user_id = $%d", len(args))
	}
	if f.Query != "" {
		args = append(args, "%"+f.Query+"%")
		where += fmt.Sprintf(" AND (title ILIKE $%d OR description ILIKE $%d)", len(args), len(args))
	}

	var total int64
	if err := r.db.QueryRow(ctx, "SELECT count(*) FROM project_proposals"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, f.Limit, f.Offset)
	q := fmt.Sprintf("SELECT %s FROM project_proposals%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		proposalColumns, where, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]Proposal, 0, f.Limit)
	for rows.Next() {
		var p Proposal
		if err := rows.Scan(&p.ID, &p.UserID, &p.OrganizationID, &p.CategoryID, &p.Title, &p.Slug,
			&p.Description, &p.Location, &p.FundingGoal, &p.RaisedAmount, &p.InvestorsCount,
			&p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

type NewProposal struct {
	UserID         string
	OrganizationID *string
	CategoryID     *string
	Title          string
	Description    string
	Location       *string
	FundingGoal    float64
}

func (r *Repo) CreateProposal(ctx context.Context, in NewProposal) (*Proposal, error) {
	slug := taxonomy.Slugify(in.Title)

	for i := 0; i < 5; i++ {
		const q = `
INSERT INTO project_proposals (user_id, organization_id, category_id, title, slug, description, location, funding_goal, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'active')
RETURNING ` + proposalColumns + `;`

		p, err := scanProposal(r.db.QueryRow(ctx, q, in.UserID, in.OrganizationID, in.CategoryID,
			in.Title, slug, in.Description, in.Location, in.FundingGoal))
		if err == nil {
			return p, nil
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == "23505" {
				slug = taxonomy.SlugWithSuffix(in.Title)
				continue
			}
			if pgErr.Code == "23503" {
				return nil, ErrNotFound
			}
		}
		return nil, err
	}

	return nil, fmt.Errorf("failed to generate unique proposal slug")
}

func (r *Repo) GetProposal(ctx context.Context, idOrSlug string) (*Proposal, error) {
	const q = `
SELECT ` + proposalColumns + `
FROM project_proposals
WHERE id::text = $1 OR slug = $1;`
	return scanProposal(r.db.QueryRow(ctx, q, idOrSlug))
}

type ProposalUpdate struct {
	Title       *string
	Description *string
	Location    *string
	FundingGoal *float64
	Status      *ProposalStatus
}

func (r *Repo) UpdateProposal(ctx context.Context, id string, in ProposalUpdate) (*Proposal, error) {
	const q = `
UPDATE project_proposals
SET
  title        = coalesce($2, title),
  description  = coalesce($3, description),
  location     = coalesce($4, location),
  funding_goal = coalesce($5, funding_goal),
  status       = coalesce($6, status),
  updated_at   = now()
WHERE id = $1
RETURNING ` + proposalColumns + `;`
	return scanProposal(r.db.QueryRow(ctx, q, id, in.Title, in.Description, in.Location, in.FundingGoal, in.Status))
}

func (r *Repo) DeleteProposal(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM project_proposals WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Invest records an investment and moves the proposal's totals in the
// same transaction. investors_count counts distinct investors, so it
// only grows on a user's first investment in the proposal.
func (r *Repo) Invest(ctx context.Context, proposalID, userID string, amount float64) (*Investment, *Proposal, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var status ProposalStatus
	err = tx.QueryRow(ctx, `SELECT status FROM project_proposals WHERE id = $1 FOR UPDATE`, proposalID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}
	if status != ProposalActive {
		return nil, nil, ErrProposalClosed
	}

	var prior int
	err = tx.QueryRow(ctx, `
SELECT count(*) FROM project_investments WHERE project_proposal_id = $1 AND user_id = $2`,
		proposalID, userID).Scan(&prior)
	if err != nil {
		return nil, nil, err
	}

	var inv Investment
	err = tx.QueryRow(ctx, `
INSERT INTO project_investments (project_proposal_id, user_id, amount)
VALUES ($1, $2, $3)
RETURNING id::text, project_proposal_id::text, user_id::text, amount, created_at`,
		proposalID, userID, amount).
		Scan(&inv.ID, &inv.ProposalID, &inv.UserID, &inv.Amount, &inv.CreatedAt)
	if err != nil {
		return nil, nil, err
	}

	newInvestor := 0
	if prior == 0 {
		newInvestor = 1
	}

	p, err := scanProposal(tx.QueryRow(ctx, `
UPDATE project_proposals
SET raised_amount   = raised_amount + $2,
    investors_count = investors_count + $3,
    status          = CASE WHEN raised_amount + $2 >= funding_goal THEN 'funded' ELSE status END,
    updated_at      = now()
WHERE id = $1
RETURNING `+proposalColumns, proposalID, amount, newInvestor))
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}
	return &inv, p, nil
}

func (r *Repo) ListInvestments(ctx context.Context, proposalID string, limit, offset int) ([]Investment, int64, error) {
	var total int64
	if err := r.db.QueryRow(ctx,
		`SELECT count(*) FROM project_investments WHERE project_proposal_id = $1`, proposalID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Query(ctx, `
SELECT id::text, project_proposal_id::text, user_id::text, amount, created_at
FROM project_investments
WHERE project_proposal_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`, proposalID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]Investment, 0, limit)
	for rows.Next() {
		var inv Investment
		if err := rows.Scan(&inv.ID, &inv.ProposalID, &inv.UserID, &inv.Amount, &inv.CreatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, inv)
	}
	return out, total, rows.Err()
}

func (r *Repo) CreateCommission(ctx context.Context, proposalID string, kind CommissionType, rate float64) (*Commission, error) {
	var cm Commission
	err := r.db.QueryRow(ctx, `
INSERT INTO project_commissions (project_proposal_id, type, rate)
VALUES ($1, $2, $3)
RETURNING id::text, project_proposal_id::text, type, rate, created_at`,
		proposalID, kind, rate).
		Scan(&cm.ID, &cm.ProposalID, &cm.Type, &cm.Rate, &cm.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == "23505" {
				return nil, ErrDuplicate
			}
			if pgErr.Code == "23503" {
				return nil, ErrNotFound
			}
		}
		return nil, err
	}
	return &cm, nil
}

func (r *Repo) ListCommissions(ctx context.Context, proposalID string) ([]Commission, error) {
	rows, err := r.db.Query(ctx, `
SELECT id::text, project_proposal_id::text, type, rate, created_at
FROM project_commissions
WHERE project_proposal_id = $1
ORDER BY created_at`, proposalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Commission
	for rows.Next() {
		var cm Commission
		if err := rows.Scan(&cm.ID, &cm.ProposalID, &cm.Type, &cm.Rate, &cm.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, cm)
	}
	return out, rows.Err()
}

const verificationColumns = `id::text, project_proposal_id::text, status, reviewer_id::text, notes, score,
rejection_reason, reviewed_at, created_at, updated_at`

func scanVerification(row pgx.Row) (*Verification, error) {
	var v Verification
	err := row.Scan(&v.ID, &v.ProposalID, &v.Status, &v.ReviewerID, &v.Notes, &v.Score,
		&v.RejectionReason, &v.ReviewedAt, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &v, nil
}

// RequestVerification opens the review record; a proposal has at most
// one, so a second request returns the duplicate error.
func (r *Repo) RequestVerification(ctx context.Context, proposalID string) (*Verification, error) {
	v, err := scanVerification(r.db.QueryRow(ctx, `
INSERT INTO project_verifications (project_proposal_id, status)
VALUES ($1, 'pending')
RETURNING `+verificationColumns, proposalID))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == "23505" {
				return nil, ErrDuplicate
			}
			if pgErr.Code == "23503" {
				return nil, ErrNotFound
			}
		}
		return nil, err
	}
	return v, nil
}

func (r *Repo) GetVerification(ctx context.Context, id string) (*Verification, error) {
	return scanVerification(r.db.QueryRow(ctx, `
SELECT `+verificationColumns+`
FROM project_verifications
WHERE id = $1`, id))
}

func (r *Repo) GetVerificationByProposal(ctx context.Context, proposalID string) (*Verification, error) {
	return scanVerification(r.db.QueryRow(ctx, `
SELECT `+verificationColumns+`
FROM project_verifications
WHERE project_proposal_id = $1`, proposalID))
}

type Review struct {
	ReviewerID      string
	Notes           *string
	Score           *int
	RejectionReason *string
}

// TransitionVerification applies one guarded status move as a single
// conditional UPDATE. A zero-row update with an existing row means the
// precondition failed.
func (r *Repo) TransitionVerification(ctx context.Context, id string, target VerificationStatus, review Review) (*Verification, error) {
	from := verificationPrecondition(target)
	if from == "" {
		return nil, ErrInvalidTransition
	}

	v, err := scanVerification(r.db.QueryRow(ctx, `
UPDATE project_verifications
SET status           = $2,
    reviewer_id      = coalesce($4, reviewer_id),
    notes            = coalesce($5, notes),
    score            = coalesce($6, score),
    rejection_reason = coalesce($7, rejection_reason),
    reviewed_at      = CASE WHEN $2 IN ('approved', 'rejected') THEN now() ELSE reviewed_at END,
    updated_at       = now()
WHERE id = $1 AND status = $3
RETURNING `+verificationColumns,
		id, target, from, nullable(review.ReviewerID), review.Notes, review.Score, review.RejectionReason))
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	// Distinguish a missing row from a wrong-state row.
	if _, getErr := r.GetVerification(ctx, id); getErr == nil {
		return nil, ErrInvalidTransition
	}
	return nil, ErrNotFound
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
