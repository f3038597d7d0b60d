package community

import (
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidParent = errors.New("invalid parent comment")
)

type Topic struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	CategoryID   *string   `json:"category_id,omitempty"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	Description  *string   `json:"description,omitempty"`
	MembersCount int       `json:"members_count"`
	PostsCount   int       `json:"posts_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (t *Topic) OwnerID() string { return t.UserID }

type Post struct {
	ID            string     `json:"id"`
	TopicID       string     `json:"topic_id"`
	UserID        string     `json:"user_id"`
	Title         string     `json:"title"`
	Content       string     `json:"content"`
	Upvotes       int        `json:"upvotes"`
	Downvotes     int        `json:"downvotes"`
	CommentsCount int        `json:"comments_count"`
	ViewsCount    int        `json:"views_count"`
	PublishedAt   *time.Time `json:"published_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (p *Post) OwnerID() string { return p.UserID }

type Comment struct {
	ID        string    `json:"id"`
	PostID    string    `json:"post_id"`
	UserID    string    `json:"user_id"`
	ParentID  *string   `json:"parent_id,omitempty"`
	Content   string    `json:"content"`
	Upvotes   int       `json:"upvotes"`
	Downvotes int       `json:"downvotes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (cm *Comment) OwnerID() string { return cm.UserID }
