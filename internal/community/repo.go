package community

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

const topicColumns = `id::text, user_id::text, category_id::text, name, slug, description,
members_count, posts_count, created_at, updated_at`

const postColumns = `id::text, topic_id::text, user_id::text, title, content,
upvotes, downvotes, comments_count, views_count, published_at, created_at, updated_at`

const commentColumns = `id::text, post_id::text, user_id::text, parent_id::text, content,
upvotes, downvotes, created_at, updated_at`

func scanTopic(row pgx.Row) (*Topic, error) {
	var t Topic
	err := row.Scan(&t.ID, &t.UserID, &t.CategoryID, &t.Name, &t.Slug, &t.Description,
		&t.MembersCount, &t.PostsCount, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func scanPost(row pgx.Row) (*Post, error) {
	var p Post
	err := row.Scan(&p.ID, &p.TopicID, &p.UserID, &p.Title, &p.Content,
		&p.Upvotes, &p.Downvotes, &p.CommentsCount, &p.ViewsCount, &p.PublishedAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func scanComment(row pgx.Row) (*Comment, error) {
	var cm Comment
	err := row.Scan(&cm.ID, &cm.PostID, &cm.UserID, &cm.ParentID, &cm.Content,
		&cm.Upvotes, &cm.Downvotes, &cm.CreatedAt, &cm.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &cm, nil
}

type TopicFilter struct {
	CategoryID string
	Query      string
	Limit      int
	Offset     int
}

func (r *Repo) ListTopics(ctx context.Context, f TopicFilter) ([]Topic, int64, error) {
	where := " WHERE 1=1"
	args := []any{}
	if f.CategoryID != "" {
		args = append(args, f.CategoryID)
		where += fmt.Sprintf(" AND category_id = $%d", len(args))
	}
	if f.Query != "" {
		args = append(args, "%"+f.Query+"%")
		where += fmt.Sprintf(" AND name ILIKE $%d", len(args))
	}

	var total int64
	if err := r.db.QueryRow(ctx, "SELECT count(*) FROM topics"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, f.Limit, f.Offset)
	q := fmt.Sprintf("SELECT %s FROM topics%s ORDER BY members_count DESC, created_at DESC LIMIT $%d OFFSET $%d",
		topicColumns, where, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]Topic, 0, f.Limit)
	for rows.Next() {
		var t Topic
		if err := rows.Scan(&t.ID, &t.UserID, &t.CategoryID, &t.Name, &t.Slug, &t.Description,
			&t.MembersCount, &t.PostsCount, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, t)
	}
	return out, total, rows.Err()
}

type NewTopic struct {
	UserID      string
	CategoryID  *string
	Name        string
	Description *string
}

// CreateTopic inserts the topic and enrolls the creator as its first
// member in the same transaction.
func (r *Repo) CreateTopic(ctx context.Context, in NewTopic) (*Topic, error) {
	slug := taxonomy.Slugify(in.Name)

	for i := 0; i < 5; i++ {
		tx, err := r.db.Begin(ctx)
		if err != nil {
			return nil, err
		}

		const q = `
INSERT INTO topics (user_id, category_id, name, slug, description, members_count)
VALUES ($1, $2, $3, $4, $5, 1)
RETURNING ` + topicColumns + `;`

		t, err := scanTopic(tx.QueryRow(ctx, q, in.UserID, in.CategoryID, in.Name, slug, in.Description))
		if err != nil {
			_ = tx.Rollback(ctx)
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				slug = taxonomy.SlugWithSuffix(in.Name)
				continue
			}
			return nil, err
		}

		if _, err := tx.Exec(ctx,
			`INSERT INTO topic_memberships (topic_id, user_id) VALUES ($1, $2)`, t.ID, in.UserID); err != nil {
			_ = tx.Rollback(ctx)
			return nil, err
		}

		if err := tx.Commit(ctx); err != nil {
			return nil, err
		}
		return t, nil
	}

	return nil, fmt.Errorf("failed to generate unique topic slug")
}

func (r *Repo) GetTopic(ctx context.Context, idOrSlug string) (*Topic, error) {
	const q = `
SELECT ` + topicColumns + `
FROM topics
WHERE id::text = $1 OR slug = $1;`
	return scanTopic(r.db.QueryRow(ctx, q, idOrSlug))
}

type UpdateTopic struct {
	Name        *string
	Description *string
	CategoryID  *string
}

func (r *Repo) UpdateTopic(ctx context.Context, id string, in UpdateTopic) (*Topic, error) {
	const q = `
UPDATE topics
SET
  name        = coalesce($2, name),
  description = coalesce($3, description),
  category_id = coalesce($4, category_id),
  updated_at  = now()
WHERE id = $1
RETURNING ` + topicColumns + `;`
	return scanTopic(r.db.QueryRow(ctx, q, id, in.Name, in.Description, in.CategoryID))
}

func (r *Repo) DeleteTopic(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM topics WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ToggleMembership joins the user to the topic, or leaves if already a
// member. The membership row and members_count move together in one
// transaction.
func (r *Repo) ToggleMembership(ctx context.Context, topicID, userID string) (joined bool, membersCount int, err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx,
		`DELETE FROM topic_memberships WHERE topic_id = $1 AND user_id = $2`, topicID, userID)
	if err != nil {
		return false, 0, err
	}

	if tag.RowsAffected() > 0 {
		joined = false
		err = tx.QueryRow(ctx, `
UPDATE topics SET members_count = greatest(members_count - 1, 0), updated_at = now()
WHERE id = $1
RETURNING members_count`, topicID).Scan(&membersCount)
	} else {
		joined = true
		if _, err = tx.Exec(ctx,
			`INSERT INTO topic_memberships (topic_id, user_id) VALUES ($1, $2)`, topicID, userID); err != nil {
			if isForeignKeyViolation(err) {
				return false, 0, ErrNotFound
			}
			return false, 0, err
		}
		err = tx.QueryRow(ctx, `
UPDATE topics SET members_count = members_count + 1, updated_at = now()
WHERE id = $1
RETURNING members_count`, topicID).Scan(&membersCount)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, 0, ErrNotFound
		}
		return false, 0, err
	}

	return joined, membersCount, tx.Commit(ctx)
}

type PostFilter struct {
	TopicID string
	UserID  string
	Query   string
	Limit   int
	Offset  int
}

func (r *Repo) ListPosts(ctx context.Context, f PostFilter) ([]Post, int64, error) {
	where := " WHERE 1=1"
	args := []any{}
	if f.TopicID != "" {
		args = append(args, f.TopicID)
		where += fmt.Sprintf(" AND topic_id = $%d", len(args))
	}
	if f.UserID != "" {
		args = append(args, f.UserID)
		where += fmt.Sprintf(" AND user_id = $%d", len(args))
	}
	if f.Query != "" {
		args = append(args, "%"+f.Query+"%")
		where += fmt.Sprintf(" AND (title ILIKE $%d OR content ILIKE $%d)", len(args), len(args))
	}

	var total int64
	if err := r.db.QueryRow(ctx, "SELECT count(*) FROM topic_posts"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, f.Limit, f.Offset)
	q := fmt.Sprintf("SELECT %s FROM topic_posts%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		postColumns, where, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]Post, 0, f.Limit)
	for rows.Next() {
		var p Post
		if err := rows.Scan(&p.ID, &p.TopicID, &p.UserID, &p.Title, &p.Content,
			&p.Upvotes, &p.Downvotes, &p.CommentsCount, &p.ViewsCount, &p.PublishedAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

type NewPost struct {
	TopicID string
	UserID  string
	Title   string
	Content string
}

// CreatePost inserts the post and bumps the topic's posts_count in one
// transaction.
func (r *Repo) CreatePost(ctx context.Context, in NewPost) (*Post, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const q = `
INSERT INTO topic_posts (topic_id, user_id, title, content, published_at)
VALUES ($1, $2, $3, $4, now())
RETURNING ` + postColumns + `;`

	p, err := scanPost(tx.QueryRow(ctx, q, in.TopicID, in.UserID, in.Title, in.Content))
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if _, err := tx.Exec(ctx,
		`UPDATE topics SET posts_count = posts_count + 1, updated_at = now() WHERE id = $1`, in.TopicID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *Repo) GetPost(ctx context.Context, id string) (*Post, error) {
	const q = `SELECT ` + postColumns + ` FROM topic_posts WHERE id = $1;`
	return scanPost(r.db.QueryRow(ctx, q, id))
}

// RecordView bumps the view counter and returns the post.
func (r *Repo) RecordView(ctx context.Context, id string) (*Post, error) {
	const q = `
UPDATE topic_posts
SET views_count = views_count + 1
WHERE id = $1
RETURNING ` + postColumns + `;`
	return scanPost(r.db.QueryRow(ctx, q, id))
}

type UpdatePost struct {
	Title   *string
	Content *string
}

func (r *Repo) UpdatePost(ctx context.Context, id string, in UpdatePost) (*Post, error) {
	const q = `
UPDATE topic_posts
SET
  title      = coalesce($2, title),
  content    = coalesce($3, content),
  updated_at = now()
WHERE id = $1
RETURNING ` + postColumns + `;`
	return scanPost(r.db.QueryRow(ctx, q, id, in.Title, in.Content))
}

// DeletePost removes the post and decrements the topic's posts_count
// together.
func (r *Repo) DeletePost(ctx context.Context, id string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var topicID string
	err = tx.QueryRow(ctx, `DELETE FROM topic_posts WHERE id = $1 RETURNING topic_id::text`, id).Scan(&topicID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}

	if _, err := tx.Exec(ctx,
		`UPDATE topics SET posts_count = greatest(posts_count - 1, 0), updated_at = now() WHERE id = $1`, topicID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *Repo) ListComments(ctx context.Context, postID string, limit, offset int) ([]Comment, int64, error) {
	var total int64
	if err := r.db.QueryRow(ctx,
		`SELECT count(*) FROM comments WHERE post_id = $1`, postID).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := `SELECT ` + commentColumns + ` FROM comments WHERE post_id = $1 ORDER BY created_at ASC LIMIT $2 OFFSET $3`
	rows, err := r.db.Query(ctx, q, postID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]Comment, 0, limit)
	for rows.Next() {
		var cm Comment
		if err := rows.Scan(&cm.ID, &cm.PostID, &cm.UserID, &cm.ParentID, &cm.Content,
			&cm.Upvotes, &cm.Downvotes, &cm.CreatedAt, &cm.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, cm)
	}
	return out, total, rows.Err()
}

type NewComment struct {
	PostID   string
	UserID   string
	ParentID *string
	Content  string
}

// CreateComment inserts a comment and bumps the post's comments_count.
// Replies may only target a root comment of the same post.
func (r *Repo) CreateComment(ctx context.Context, in NewComment) (*Comment, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if in.ParentID != nil {
		var parentPost string
		var parentParent *string
		err := tx.QueryRow(ctx,
			`SELECT post_id::text, parent_id::text FROM comments WHERE id = $1`, *in.ParentID).
			Scan(&parentPost, &parentParent)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrInvalidParent
			}
			return nil, err
		}
		if parentPost != in.PostID || parentParent != nil {
			return nil, ErrInvalidParent
		}
	}

	const q = `
INSERT INTO comments (post_id, user_id, parent_id, content)
VALUES ($1, $2, $3, $4)
RETURNING ` + commentColumns + `;`

	cm, err := scanComment(tx.QueryRow(ctx, q, in.PostID, in.UserID, in.ParentID, in.Content))
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if _, err := tx.Exec(ctx,
		`UPDATE topic_posts SET comments_count = comments_count + 1, updated_at = now() WHERE id = $1`, in.PostID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return cm, nil
}

func (r *Repo) GetComment(ctx context.Context, id string) (*Comment, error) {
	const q = `SELECT ` + commentColumns + ` FROM comments WHERE id = $1;`
	return scanComment(r.db.QueryRow(ctx, q, id))
}

func (r *Repo) UpdateComment(ctx context.Context, id, content string) (*Comment, error) {
	const q = `
UPDATE comments
SET content = $2, updated_at = now()
WHERE id = $1
RETURNING ` + commentColumns + `;`
	return scanComment(r.db.QueryRow(ctx, q, id, content))
}

func (r *Repo) DeleteComment(ctx context.Context, id string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var postID string
	err = tx.QueryRow(ctx, `DELETE FROM comments WHERE id = $1 RETURNING post_id::text`, id).Scan(&postID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}

	if _, err := tx.Exec(ctx,
		`UPDATE topic_posts SET comments_count = greatest(comments_count - 1, 0), updated_at = now() WHERE id = $1`, postID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// GetTopicsByIDs loads topics preserving the order of ids.
func (r *Repo) GetTopicsByIDs(ctx context.Context, ids []string) ([]Topic, error) {
	if len(ids) == 0 {
		return []Topic{}, nil
	}

	const q = `
SELECT ` + topicColumns + `
FROM topics
WHERE id::text = any($1);`
	rows, err := r.db.Query(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byID := make(map[string]Topic, len(ids))
	for rows.Next() {
		var t Topic
		if err := rows.Scan(&t.ID, &t.UserID, &t.CategoryID, &t.Name, &t.Slug, &t.Description,
			&t.MembersCount, &t.PostsCount, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		byID[t.ID] = t
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]Topic, 0, len(ids))
	for _, id := range ids {
		if t, ok := byID[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
