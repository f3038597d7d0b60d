package organizations

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("organization not found")

type Organization struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	Name             string    `json:"name"`
	Slug             string    `json:"slug"`
	Description      *string   `json:"description,omitempty"`
	Sector           string    `json:"sector"`
	Website          *string   `json:"website,omitempty"`
	City             *string   `json:"city,omitempty"`
	FollowersCount   int       `json:"followers_count"`
	AppearancesCount int       `json:"appearances_count"`
	IsVerified       bool      `json:"is_verified"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// OwnerID satisfies policy.Owned.
func (o *Organization) OwnerID() string { return o.UserID }
