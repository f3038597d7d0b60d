package taxonomy

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

const categoryColumns = `id::text, name, slug, description, parent_id::text, is_active, items_count, created_at, updated_at`

func scanCategory(row pgx.Row) (*Category, error) {
	var cat Category
	err := row.Scan(&cat.ID, &cat.Name, &cat.Slug, &cat.Description, &cat.ParentID,
		&cat.IsActive, &cat.ItemsCount, &cat.CreatedAt, &cat.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &cat, nil
}

type CategoryFilter struct {
	ParentID *string
	IsActive *bool
	Query    string
	Limit    int
	Offset   int
}

func (r *Repo) ListCategories(ctx context.Context, f CategoryFilter) ([]Category, int64, error) {
	where := " WHERE 1=1"
	args := []any{}
	if f.ParentID != nil {
		args = append(args, *f.ParentID)
		where += fmt.Sprintf(" AND parent_id = $%d", len(args))
	}
	if f.IsActive != nil {
		args = append(args, *f.IsActive)
		where += fmt.Sprintf(" AND is_active = $%d", len(args))
	}
	if f.Query != "" {
		args = append(args, "%"+f.Query+"%")
		where += fmt.Sprintf(" AND name ILIKE $%d", len(args))
	}

	var total int64
	if err := r.db.QueryRow(ctx, "SELECT count(*) FROM categories"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, f.Limit, f.Offset)
	q := fmt.Sprintf("SELECT %s FROM categories%s ORDER BY name ASC LIMIT $%d OFFSET $%d",
		categoryColumns, where, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]Category, 0, f.Limit)
	for rows.Next() {
		var cat Category
		if err := rows.Scan(&cat.ID, &cat.Name, &cat.Slug, &cat.Description, &cat.ParentID,
			&cat.IsActive, &cat.ItemsCount, &cat.CreatedAt, &cat.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, cat)
	}
	return out, total, rows.Err()
}

type NewCategory struct {
	Name        string
	Description *string
	ParentID    *string
	IsActive    bool
}

// CreateCategory inserts a category, deriving the slug from the name.
// On a slug collision it retries with a random suffix.
func (r *Repo) CreateCategory(ctx context.Context, in NewCategory) (*Category, error) {
	slug := Slugify(in.Name)

	for i := 0; i < 5; i++ {
		const q = `
INSERT INTO categories (name, slug, description, parent_id, is_active)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + categoryColumns + `;`

		cat, err := scanCategory(r.db.QueryRow(ctx, q, in.Name, slug, in.Description, in.ParentID, in.IsActive))
		if err == nil {
			return cat, nil
		}
		if isUniqueViolation(err) {
			slug = SlugWithSuffix(in.Name)
			continue
		}
		if isForeignKeyViolation(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return nil, fmt.Errorf("failed to generate unique category slug")
}

// GetCategory accepts a primary key or a slug.
func (r *Repo) GetCategory(ctx context.Context, idOrSlug string) (*Category, error) {
	const q = `
SELECT ` + categoryColumns + `
FROM categories
WHERE id::text = $1 OR slug = $1;`
	return scanCategory(r.db.QueryRow(ctx, q, idOrSlug))
}

type UpdateCategory struct {
	Name        *string
	Description *string
	IsActive    *bool
}

func (r *Repo) UpdateCategory(ctx context.Context, id string, in UpdateCategory) (*Category, error) {
	const q = `
UPDATE categories
SET
  name        = coalesce($2, name),
  description = coalesce($3, description),
  is_active   = coalesce($4, is_active),
  updated_at  = now()
WHERE id = $1
RETURNING ` + categoryColumns + `;`
	return scanCategory(r.db.QueryRow(ctx, q, id, in.Name, in.Description, in.IsActive))
}

// DeleteCategory refuses to delete a category that still has children.
func (r *Repo) DeleteCategory(ctx context.Context, id string) error {
	var children int
	if err := r.db.QueryRow(ctx,
		`SELECT count(*) FROM categories WHERE parent_id = $1`, id).Scan(&children); err != nil {
		return err
	}
	if children > 0 {
		return ErrHasChildren
	}

	tag, err := r.db.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) ListTags(ctx context.Context, query string, limit, offset int) ([]Tag, int64, error) {
	where := ""
	args := []any{}
	if query != "" {
		args = append(args, "%"+query+"%")
		where = " WHERE name ILIKE $1"
	}

	var total int64
	if err := r.db.QueryRow(ctx, "SELECT count(*) FROM tags"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	q := fmt.Sprintf(`SELECT id::text, name, slug, usage_count, created_at FROM tags%s
ORDER BY usage_count DESC, name ASC LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]Tag, 0, limit)
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug, &t.UsageCount, &t.CreatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, t)
	}
	return out, total, rows.Err()
}

// CreateTag inserts a tag; an existing name is a conflict, not an upsert.
func (r *Repo) CreateTag(ctx context.Context, name string) (*Tag, error) {
	const q = `
INSERT INTO tags (name, slug)
VALUES ($1, $2)
RETURNING id::text, name, slug, usage_count, created_at;`

	var t Tag
	err := r.db.QueryRow(ctx, q, name, Slugify(name)).
		Scan(&t.ID, &t.Name, &t.Slug, &t.UsageCount, &t.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return &t, nil
}

func (r *Repo) GetTag(ctx context.Context, idOrSlug string) (*Tag, error) {
	const q = `
SELECT id::text, name, slug, usage_count, created_at
FROM tags
WHERE id::text = $1 OR slug = $1;`

	var t Tag
	err := r.db.QueryRow(ctx, q, idOrSlug).
		Scan(&t.ID, &t.Name, &t.Slug, &t.UsageCount, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *Repo) DeleteTag(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM tags WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
