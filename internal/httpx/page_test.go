package httpx

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func pageFor(t *testing.T, query string) Page {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/?"+query, nil)
	return ParsePage(c)
}

func TestParsePageDefaults(t *testing.T) {
	p := pageFor(t, "")
	assert.Equal(t, 1, p.Number)
	assert.Equal(t, DefaultPerPage, p.PerPage)
}

func TestParsePageClamp(t *testing.T) {
	p := pageFor(t, "page=2&per_page=500")
	assert.Equal(t, 2, p.Number)
	assert.Equal(t, MaxPerPage, p.PerPage)
}

func TestParsePageInvalidValues(t *testing.T) {
	p := pageFor(t, "page=abc&per_page=-4")
	assert.Equal(t, 1, p.Number)
	assert.Equal(t, DefaultPerPage, p.PerPage)
}

func TestPageOffset(t *testing.T) {
	p := Page{Number: 3, PerPage: 25}
	assert.Equal(t, 50, p.Offset())
	assert.Equal(t, 25, p.Limit())
}

func TestPageMeta(t *testing.T) {
	m := Page{Number: 2, PerPage: 20}.Meta(45)
	assert.Equal(t, 2, m.CurrentPage)
	assert.Equal(t, 3, m.LastPage)
	assert.Equal(t, 20, m.PerPage)
	assert.Equal(t, int64(45), m.Total)
}

func TestPageMetaEmpty(t *testing.T) {
	m := Page{Number: 1, PerPage: 20}.Meta(0)
	assert.Equal(t, 1, m.LastPage, "an empty result still reports one page")
}
