package media

import (
	"context"
	"errors"
	"fmt"
	"time"

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

const outletColumns = `id::text, name, slug, website, kind, created_at, updated_at`

func scanOutlet(row pgx.Row) (*Outlet, error) {
	var o Outlet
	err := row.Scan(&o.ID, &o.Name, &o.Slug, &o.Website, &o.Kind, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

func (r *Repo) ListOutlets(ctx context.Context, kind, query string, limit, offset int) ([]Outlet, int64, error) {
	where := " WHERE 1=1"
	args := []any{}
	if kind != "" {
		args = append(args, kind)
		where += fmt.Sprintf(" AND kind = $%d", len(args))
	}
	if query != "" {
		args = append(args, "%"+query+"%")
		where += fmt.Sprintf(" AND name ILIKE $%d", len(args))
	}

	var total int64
	if err := r.db.QueryRow(ctx, "SELECT count(*) FROM media_outlets"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	q := fmt.Sprintf("SELECT %s FROM media_outlets%s ORDER BY name LIMIT $%d OFFSET $%d",
		outletColumns, where, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]Outlet, 0, limit)
	for rows.Next() {
		var o Outlet
		if err := rows.Scan(&o.ID, &o.Name, &o.Slug, &o.Website, &o.Kind, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, o)
	}
	return out, total, rows.Err()
}

type NewOutlet struct {
	Name    string
	Website *string
	Kind    string
}

func (r *Repo) CreateOutlet(ctx context.Context, in NewOutlet) (*Outlet, error) {
	slug := taxonomy.Slugify(in.Name)

	for i := 0; i < 5; i++ {
		o, err := scanOutlet(r.db.QueryRow(ctx, `
INSERT INTO media_outlets (name, slug, website, kind)
VALUES ($1, $2, $3, $4)
RETURNING `+outletColumns, in.Name, slug, in.Website, in.Kind))
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

	return nil, fmt.Errorf("failed to generate unique outlet slug")
}

func (r *Repo) GetOutlet(ctx context.Context, idOrSlug string) (*Outlet, error) {
	return scanOutlet(r.db.QueryRow(ctx, `
SELECT `+outletColumns+`
FROM media_outlets
WHERE id::text = $1 OR slug = $1`, idOrSlug))
}

type OutletUpdate struct {
	Name    *string
	Website *string
	Kind    *string
}

func (r *Repo) UpdateOutlet(ctx context.Context, id string, in OutletUpdate) (*Outlet, error) {
	return scanOutlet(r.db.QueryRow(ctx, `
UPDATE media_outlets
SET name       = coalesce($2, name),
    website    = coalesce($3, website),
    kind       = coalesce($4, kind),
    updated_at = now()
WHERE id = $1
RETURNING `+outletColumns, id, in.Name, in.Website, in.Kind))
}

func (r *Repo) DeleteOutlet(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM media_outlets WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const articleColumns = `id::text, media_outlet_id::text, title, slug, url, summary, published_at,
upvotes, downvotes, created_at, updated_at`

func scanArticle(row pgx.Row) (*Article, error) {
	var a Article
	err := row.Scan(&a.ID, &a.OutletID, &a.Title, &a.Slug, &a.URL, &a.Summary, &a.PublishedAt,
		&a.Upvotes, &a.Downvotes, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

type ArticleFilter struct {
	OutletID string
	Query    string
	Limit    int
	Offset   int
}

func (r *Repo) ListArticles(ctx context.Context, f ArticleFilter) ([]Article, int64, error) {
	where := " WHERE 1=1"
	args := []any{}
	if f.OutletID != "" {
		args = append(args, f.OutletID)
		where += fmt.Sprintf(" AND media_outlet_id = $%d", len(args))
	}
	if f.Query != "" {
		args = append(args, "%"+f.Query+"%")
		where += fmt.Sprintf(" AND title ILIKE $%d", len(args))
	}

	var total int64
	if err := r.db.QueryRow(ctx, "SELECT count(*) FROM news_articles"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, f.Limit, f.Offset)
	q := fmt.Sprintf("SELECT %s FROM news_articles%s ORDER BY published_at DESC NULLS LAST, created_at DESC LIMIT $%d OFFSET $%d",
		articleColumns, where, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]Article, 0, f.Limit)
	for rows.Next() {
		var a Article
		if err := rows.Scan(&a.ID, &a.OutletID, &a.Title, &a.Slug, &a.URL, &a.Summary, &a.PublishedAt,
			&a.Upvotes, &a.Downvotes, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, a)
	}
	return out, total, rows.Err()
}

type NewArticle struct {
	OutletID    string
	Title       string
	URL         string
	Summary     *string
	PublishedAt *time.Time
}

func (r *Repo) CreateArticle(ctx context.Context, in NewArticle) (*Article, error) {
	slug := taxonomy.Slugify(in.Title)

	for i := 0; i < 5; i++ {
		a, err := scanArticle(r.db.QueryRow(ctx, `
INSERT INTO news_articles (media_outlet_id, title, slug, url, summary, published_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING `+articleColumns, in.OutletID, in.Title, slug, in.URL, in.Summary, in.PublishedAt))
		if err == nil {
			return a, nil
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

	return nil, fmt.Errorf("failed to generate unique article slug")
}

func (r *Repo) GetArticle(ctx context.Context, idOrSlug string) (*Article, error) {
	return scanArticle(r.db.QueryRow(ctx, `
SELECT `+articleColumns+`
FROM news_articles
WHERE id::text = $1 OR slug = $1`, idOrSlug))
}

type ArticleUpdate struct {
	Title       *string
	URL         *string
	Summary     *string
	PublishedAt *time.Time
}

func (r *Repo) UpdateArticle(ctx context.Context, id string, in ArticleUpdate) (*Article, error) {
	return scanArticle(r.db.QueryRow(ctx, `
UPDATE news_articles
SET title        = coalesce($2, title),
    url          = coalesce($3, url),
    summary      = coalesce($4, summary),
    published_at = coalesce($5, published_at),
    updated_at   = now()
WHERE id = $1
RETURNING `+articleColumns, id, in.Title, in.URL, in.Summary, in.PublishedAt))
}

func (r *Repo) DeleteArticle(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM news_articles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type NewAppearance struct {
	OrganizationID string
	OutletID       string
	ArticleID      *string
	Note           *string
	AppearedAt     *time.Time
}

// CreateAppearance records the coverage and bumps the organization's
// appearances_count in the same transaction.
func (r *Repo) CreateAppearance(ctx context.Context, in NewAppearance) (*Appearance, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var ap Appearance
	err = tx.QueryRow(ctx, `
INSERT INTO appearances (organization_id, media_outlet_id, news_article_id, note, appeared_at)
VALUES ($1, $2, $3, $4, coalesce($5, now()))
RETURNING id::text, organization_id::text, media_outlet_id::text, news_article_id::text, note, appeared_at, created_at`,
		in.OrganizationID, in.OutletID, in.ArticleID, in.Note, in.AppearedAt).
		Scan(&ap.ID, &ap.OrganizationID, &ap.OutletID, &ap.ArticleID, &ap.Note, &ap.AppearedAt, &ap.CreatedAt)
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

	tag, err := tx.Exec(ctx, `
UPDATE organizations
SET appearances_count = appearances_count + 1, updated_at = now()
WHERE id = $1`, in.OrganizationID)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &ap, nil
}

// DeleteAppearance removes the link and keeps the counter in step.
func (r *Repo) DeleteAppearance(ctx context.Context, id string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var orgID string
	err = tx.QueryRow(ctx, `
DELETE FROM appearances WHERE id = $1
RETURNING organization_id::text`, id).Scan(&orgID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}

	if _, err := tx.Exec(ctx, `
UPDATE organizations
SET appearances_count = greatest(appearances_count - 1, 0), updated_at = now()
WHERE id = $1`, orgID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *Repo) ListAppearances(ctx context.Context, organizationID string, limit, offset int) ([]Appearance, int64, error) {
	var total int64
	if err := r.db.QueryRow(ctx,
		`SELECT count(*) FROM appearances WHERE organization_id = $1`, organizationID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Query(ctx, `
SELECT id::text, organization_id::text, media_outlet_id::text, news_article_id::text, note, appeared_at, created_at
FROM appearances
WHERE organization_id = $1
ORDER BY appeared_at DESC
LIMIT $2 OFFSET $3`, organizationID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]Appearance, 0, limit)
	for rows.Next() {
		var ap Appearance
		if err := rows.Scan(&ap.ID, &ap.OrganizationID, &ap.OutletID, &ap.ArticleID, &ap.Note, &ap.AppearedAt, &ap.CreatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, ap)
	}
	return out, total, rows.Err()
}
