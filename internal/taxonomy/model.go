package taxonomy

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrHasChildren = errors.New("category has subcategories")
	ErrDuplicate   = errors.New("duplicate name")
)

type Category struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description *string   `json:"description,omitempty"`
	ParentID    *string   `json:"parent_id,omitempty"`
	IsActive    bool      `json:"is_active"`
	ItemsCount  int       `json:"items_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Tag struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Slug       string    `json:"slug"`
	UsageCount int       `json:"usage_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// Slugify derives a URL slug from a display name.
func Slugify(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		case r == 'á':
			b.WriteRune('a')
			lastDash = false
		case r == 'é':
			b.WriteRune('e')
			lastDash = false
		case r == 'í':
			b.WriteRune('i')
			lastDash = false
		case r == 'ó':
			b.WriteRune('o')
			lastDash = false
		case r == 'ú', r == 'ü':
			b.WriteRune('u')
			lastDash = false
		case r == 'ñ':
			b.WriteRune('n')
			lastDash = false
		default:
			if !lastDash {
				b.WriteRune('-')
				lastDash = true
			}
		}
	}
	s := strings.Trim(b.String(), "-")
	if s == "" {
		s = "item"
	}
	return s
}

// SlugWithSuffix disambiguates a taken slug with a short random suffix.
func SlugWithSuffix(name string) string {
	return Slugify(name) + "-" + uuid.NewString()[:8]
}
