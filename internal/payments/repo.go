package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{db: db}
}

const columns = `id::text, user_id::text, payable_type, payable_id::text, amount, currency, method,
status, transaction_ref, failure_reason, paid_at, failed_at, refunded_at, created_at, updated_at`

func scan(row pgx.Row) (*Payment, error) {
	var p Payment
	err := row.Scan(&p.ID, &p.UserID, &p.PayableType, &p.PayableID, &p.Amount, &p.Currency, &p.Method,
		&p.Status, &p.TransactionRef, &p.FailureReason, &p.PaidAt, &p.FailedAt, &p.RefundedAt,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

type Filter struct {
	UserID string
	Status Status
	Limit  int
	Offset int
}

func (r *Repo) List(ctx context.Context, f Filter) ([]Payment, int64, error) {
	where := " WHERE 1=1"
	args := []any{}
	if f.UserID != "" {
		args = append(args, f.UserID)
		where += fmt.Sprintf(" AND user_id = $%d", len(args))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}

	var total int64
	if err := r.db.QueryRow(ctx, "SELECT count(*) FROM payments"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, f.Limit, f.Offset)
	q := fmt.Sprintf("SELECT %s FROM payments%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		columns, where, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]Payment, 0, f.Limit)
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.UserID, &p.PayableType, &p.PayableID, &p.Amount, &p.Currency, &p.Method,
			&p.Status, &p.TransactionRef, &p.FailureReason, &p.PaidAt, &p.FailedAt, &p.RefundedAt,
			&p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

type NewPayment struct {
	UserID      string
	PayableType PayableKind
	PayableID   string
	Amount      float64
	Currency    string
	Method      string
}

func (r *Repo) Create(ctx context.Context, in NewPayment) (*Payment, error) {
	p, err := scan(r.db.QueryRow(ctx, `
INSERT INTO payments (user_id, payable_type, payable_id, amount, currency, method, status)
VALUES ($1, $2, $3, $4, $5, $6, 'pending')
RETURNING `+columns,
		in.UserID, in.PayableType, in.PayableID, in.Amount, in.Currency, in.Method))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *Repo) Get(ctx context.Context, id string) (*Payment, error) {
	return scan(r.db.QueryRow(ctx, `
SELECT `+columns+`
FROM payments
WHERE id = $1`, id))
}

type TransitionData struct {
	TransactionRef *string
	FailureReason  *string
}

// Transition bundles the status move with its timestamp and side data
// in one conditional UPDATE.
func (r *Repo) Transition(ctx context.Context, id string, target Status, data TransitionData) (*Payment, error) {
	allowed := AllowedFrom(target)
	if len(allowed) == 0 {
		return nil, ErrInvalidTransition
	}

	from := make([]string, len(allowed))
	for i, s := range allowed {
		from[i] = string(s)
	}

	var tsCol string
	switch target {
	case StatusCompleted:
		tsCol = "paid_at"
	case StatusFailed:
		tsCol = "failed_at"
	case StatusRefunded:
		tsCol = "refunded_at"
	}

	q := fmt.Sprintf(`
UPDATE payments
SET status          = $2,
    %s              = now(),
    transaction_ref = coalesce($4, transaction_ref),
    failure_reason  = coalesce($5, failure_reason),
    updated_at      = now()
WHERE id = $1 AND status = ANY($3)
RETURNING %s`, tsCol, columns)

	p, err := scan(r.db.QueryRow(ctx, q, id, target, from, data.TransactionRef, data.FailureReason))
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	if _, getErr := r.Get(ctx, id); getErr == nil {
		return nil, ErrInvalidTransition
	}
	return nil, ErrNotFound
}
