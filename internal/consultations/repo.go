package consultations

import (
	"context"
	"errors"
	"fmt"
	"time"

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

const columns = `id::text, client_id::text, provider_id::text, service_type, description, status,
price, notes, scheduled_at, accepted_at, started_at, completed_at, cancelled_at, created_at, updated_at`

func scan(row pgx.Row) (*Consultation, error) {
	var cs Consultation
	err := row.Scan(&cs.ID, &cs.ClientID, &cs.ProviderID, &cs.ServiceType, &cs.Description, &cs.Status,
		&cs.Price, &cs.Notes, &cs.ScheduledAt, &cs.AcceptedAt, &cs.StartedAt, &cs.CompletedAt,
		&cs.CancelledAt, &cs.CreatedAt, &cs.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &cs, nil
}

type Filter struct {
	Status     Status
	ClientID   string
	ProviderID string
	Limit      int
	Offset     int
}

func (r *Repo) List(ctx context.Context, f Filter) ([]Consultation, int64, error) {
	where := " WHERE 1=1"
	args := []any{}
	if f.Status != "" {
		args = append(args, f.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if f.ClientID != "" {
		args = append(args, f.ClientID)
		where += fmt.Sprintf(" AND client_id = $%d", len(args))
	}
	if f.ProviderID != "" {
		args = append(args, f.ProviderID)
		where += fmt.Sprintf(" AND provider_id = $%d", len(args))
	}

	var total int64
	if err := r.db.QueryRow(ctx, "SELECT count(*) FROM consultation_services"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, f.Limit, f.Offset)
	q := fmt.Sprintf("SELECT %s FROM consultation_services%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		columns, where, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]Consultation, 0, f.Limit)
	for rows.Next() {
		var cs Consultation
		if err := rows.Scan(&cs.ID, &cs.ClientID, &cs.ProviderID, &cs.ServiceType, &cs.Description, &cs.Status,
			&cs.Price, &cs.Notes, &cs.ScheduledAt, &cs.AcceptedAt, &cs.StartedAt, &cs.CompletedAt,
			&cs.CancelledAt, &cs.CreatedAt, &cs.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, cs)
	}
	return out, total, rows.Err()
}

type NewConsultation struct {
	ClientID    string
	ProviderID  string
	ServiceType string
	Description string
	Price       *float64
}

func (r *Repo) Create(ctx context.Context, in NewConsultation) (*Consultation, error) {
	cs, err := scan(r.db.QueryRow(ctx, `
INSERT INTO consultation_services (client_id, provider_id, service_type, description, status, price)
VALUES ($1, $2, $3, $4, 'requested', $5)
RETURNING `+columns,
		in.ClientID, in.ProviderID, in.ServiceType, in.Description, in.Price))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return cs, nil
}

func (r *Repo) Get(ctx context.Context, id string) (*Consultation, error) {
	return scan(r.db.QueryRow(ctx, `
SELECT `+columns+`
FROM consultation_services
WHERE id = $1`, id))
}

// timestampColumn names the column that records when each status was
// entered.
func timestampColumn(target Status) string {
	switch target {
	case StatusAccepted:
		return "accepted_at"
	case StatusInProgress:
		return "started_at"
	case StatusCompleted:
		return "completed_at"
	case StatusCancelled:
		return "cancelled_at"
	default:
		return ""
	}
}

type TransitionData struct {
	Price       *float64
	Notes       *string
	ScheduledAt *time.Time
}

// Transition performs one guarded status move as a single conditional
// UPDATE so the check and the write cannot interleave with a concurrent
// request.
func (r *Repo) Transition(ctx context.Context, id string, target Status, data TransitionData) (*Consultation, error) {
	allowed := AllowedFrom(target)
	if len(allowed) == 0 {
		return nil, ErrInvalidTransition
	}
	tsCol := timestampColumn(target)

	from := make([]string, len(allowed))
	for i, s := range allowed {
		from[i] = string(s)
	}

	q := fmt.Sprintf(`
UPDATE consultation_services
SET status       = $2,
    %s           = now(),
    price        = coalesce($4, price),
    notes        = coalesce($5, notes),
    scheduled_at = coalesce($6, scheduled_at),
    updated_at   = now()
WHERE id = $1 AND status = ANY($3)
RETURNING %s`, tsCol, columns)

	cs, err := scan(r.db.QueryRow(ctx, q, id, target, from, data.Price, data.Notes, data.ScheduledAt))
	if err == nil {
		return cs, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	if _, getErr := r.Get(ctx, id); getErr == nil {
		return nil, ErrInvalidTransition
	}
	return nil, ErrNotFound
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM consultation_services WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
