package organizations

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

const orgColumns = `id::text, user_id::text, name, slug, description, sector, website, city,
followers_count, appearances_count, is_verified, created_at, updated_at`

func scanOrg(row pgx.Row) (*Organization, error) {
	var o Organization
	err := row.Scan(&o.ID, &o.UserID, &o.Name, &o.Slug, &o.Description, &o.Sector, &o.Website,
		&o.City, &o.FollowersCount, &o.AppearancesCount, &o.IsVerified, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

type Filter struct {
	Sector   string
	UserID   string
	Verified *bool
	Query    string
	Limit    int
	Offset   int
}

func (r *Repo) List(ctx context.Context, f Filter) ([]Organization, int64, error) {
	where := " WHERE 1=1"
	args := []any{}
	if f.Sector != "" {
		args = append(args, f.Sector)
		where += fmt.Sprintf(" AND sector = $%d", len(args))
	}
	if f.UserID != "" {
		args = append(args, f.UserID)
		where += fmt.Sprintf(" AND user_id = $%d", len(args))
	}
	if f.Verified != nil {
		args = append(args, *f.Verified)
		where += fmt.Sprintf(" AND is_verified = $%d", len(args))
	}
	if f.Query != "" {
		args = append(args, "%"+f.Query+"%")
		where += fmt.Sprintf(" AND (name ILIKE $%d OR description ILIKE $%d)", len(args), len(args))
	}

	var total int64
	if err := r.db.QueryRow(ctx, "SELECT count(*) FROM organizations"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, f.Limit, f.Offset)
	q := fmt.Sprintf("SELECT %s FROM organizations%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		orgColumns, where, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]Organization, 0, f.Limit)
	for rows.Next() {
		var o Organization
		if err := rows.Scan(&o.ID, &o.UserID, &o.Name, &o.Slug, &o.Description, &o.Sector, &o.Website,
			&o.City, &o.FollowersCount, &o.AppearancesCount, &o.IsVerified, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, o)
	}
	return out, total, rows.Err()
}

type NewOrganization struct {
	UserID      string
	Name        string
	Description *string
	Sector      string
	Website     *string
	City        *string
}

func (r *Repo) Create(ctx context.Context, in NewOrganization) (*Organization, error) {
	slug := taxonomy.Slugify(in.Name)

	for i := 0; i < 5; i++ {
		const q = `
INSERT INTO organizations (user_id, name, slug, description, sector, website, city)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + orgColumns + `;`

		o, err := scanOrg(r.db.QueryRow(ctx, q, in.UserID, in.Name, slug, in.Description, in.Sector, in.Website, in.City))
		if err == nil {
			return o, nil
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			slug = taxonomy.SlugWithSuffix(in.Name)
			continue
		}
		return nil, err
	}

	return nil, fmt.Errorf("failed to generate unique organization slug")
}

func (r *Repo) Get(ctx context.Context, idOrSlug string) (*Organization, error) {
	const q = `
SELECT ` + orgColumns + `
FROM organizations
WHERE id::text = $1 OR slug = $1;`
	return scanOrg(r.db.QueryRow(ctx, q, idOrSlug))
}

type Update struct {
	Name        *string
	Description *string
	Sector      *string
	Website     *string
	City        *string
}

func (r *Repo) Update(ctx context.Context, id string, in Update) (*Organization, error) {
	const q = `
UPDATE organizations
SET
  name        = coalesce($2, name),
  description = coalesce($3, description),
  sector      = coalesce($4, sector),
  website     = coalesce($5, website),
  city        = coalesce($6, city),
  updated_at  = now()
WHERE id = $1
RETURNING ` + orgColumns + `;`
	return scanOrg(r.db.QueryRow(ctx, q, id, in.Name, in.Description, in.Sector, in.Website, in.City))
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM organizations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ToggleFollow follows the organization, or unfollows if the user
// already follows it. The follower row and followers_count move
// together in one transaction.
func (r *Repo) ToggleFollow(ctx context.Context, orgID, userID string) (following bool, followersCount int, err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx,
		`DELETE FROM organization_followers WHERE organization_id = $1 AND user_id = $2`, orgID, userID)
	if err != nil {
		return false, 0, err
	}

	if tag.RowsAffected() > 0 {
		following = false
		err = tx.QueryRow(ctx, `
UPDATE organizations SET followers_count = greatest(followers_count - 1, 0), updated_at = now()
WHERE id = $1
RETURNING followers_count`, orgID).Scan(&followersCount)
	} else {
		following = true
		if _, err = tx.Exec(ctx,
			`INSERT INTO organization_followers (organization_id, user_id) VALUES ($1, $2)`, orgID, userID); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23503" {
				return false, 0, ErrNotFound
			}
			return false, 0, err
		}
		err = tx.QueryRow(ctx, `
UPDATE organizations SET followers_count = followers_count + 1, updated_at = now()
WHERE id = $1
RETURNING followers_count`, orgID).Scan(&followersCount)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, 0, ErrNotFound
		}
		return false, 0, err
	}

	return following, followersCount, tx.Commit(ctx)
}
