package media

import (
	"errors"
	"time"
)

var (
	ErrNotFound  = errors.New("media resource not found")
	ErrDuplicate = errors.New("duplicate media resource")
)

type Outlet struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Website   *string   `json:"website"`
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Article struct {
	ID          string     `json:"id"`
	OutletID    string     `json:"outlet_id"`
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	URL         string     `json:"url"`
	Summary     *string    `json:"summary"`
	PublishedAt *time.Time `json:"published_at"`
	Upvotes     int        `json:"upvotes"`
	Downvotes   int        `json:"downvotes"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Appearance links an organization to press coverage, either a whole
// outlet feature or one article.
type Appearance struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	OutletID       string    `json:"outlet_id"`
	ArticleID      *string   `json:"article_id"`
	Note           *string   `json:"note"`
	AppearedAt     time.Time `json:"appeared_at"`
	CreatedAt      time.Time `json:"created_at"`
}
