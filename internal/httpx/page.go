package httpx

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// Page is the parsed offset-pagination request.
type Page struct {
	Number  int
	PerPage int
}

// PageMeta is the Laravel-style pagination block returned under "meta".
type PageMeta struct {
	CurrentPage int   `json:"current_page"`
	LastPage    int   `json:"last_page"`
	PerPage     int   `json:"per_page"`
	Total       int64 `json:"total"`
}

// ParsePage reads page/per_page from the query string, clamping per_page
// to MaxPerPage. Invalid or missing values fall back to defaults.
func ParsePage(c *gin.Context) Page {
	page := atoiDefault(c.Query("page"), 1)
	if page < 1 {
		page = 1
	}

	per := atoiDefault(c.Query("per_page"), DefaultPerPage)
	if per < 1 {
		per = DefaultPerPage
	}
	if per > MaxPerPage {
		per = MaxPerPage
	}

	return Page{Number: page, PerPage: per}
}

func (p Page) Offset() int {
	return (p.Number - 1) * p.PerPage
}

func (p Page) Limit() int {
	return p.PerPage
}

// Meta computes the pagination block for a total row count.
func (p Page) Meta(total int64) PageMeta {
	last := int((total + int64(p.PerPage) - 1) / int64(p.PerPage))
	if last < 1 {
		last = 1
	}
	return PageMeta{
		CurrentPage: p.Number,
		LastPage:    last,
		PerPage:     p.PerPage,
		Total:       total,
	}
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
