package taxonomy

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecovida/ecovida-backend/internal/auth"
)

type stubStore struct {
	Store
	deleteCategory func(ctx context.Context, id string) error
	createTag      func(ctx context.Context, name string) (*Tag, error)
	listCategories func(ctx context.Context, f CategoryFilter) ([]Category, int64, error)
}

func (s *stubStore) DeleteCategory(ctx context.Context, id string) error {
	return s.deleteCategory(ctx, id)
}

func (s *stubStore) CreateTag(ctx context.Context, name string) (*Tag, error) {
	return s.createTag(ctx, name)
}

func (s *stubStore) ListCategories(ctx context.Context, f CategoryFilter) ([]Category, int64, error) {
	return s.listCategories(ctx, f)
}

func newRouter(store Store, actor *auth.Actor) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	if actor != nil {
		r.Use(func(c *gin.Context) {
			auth.SetActor(c, *actor)
			c.Next()
		})
	}
	Register(r.Group("/api/v1"), store)
	return r
}

func TestDeleteCategoryWithChildren(t *testing.T) {
	store := &stubStore{
		deleteCategory: func(ctx context.Context, id string) error {
			return ErrHasChildren
		},
	}
	r := newRouter(store, &auth.Actor{ID: "u1", Role: "admin"})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/categories/c1", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "La categoría tiene subcategorías asociadas", body["message"])
}

func TestDeleteCategoryNotAdmin(t *testing.T) {
	called := false
	store := &stubStore{
		deleteCategory: func(ctx context.Context, id string) error {
			called = true
			return nil
		},
	}
	r := newRouter(store, &auth.Actor{ID: "u1", Role: "user"})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/categories/c1", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.False(t, called, "store must not be reached on a policy denial")
}

func TestDeleteCategoryUnauthenticated(t *testing.T) {
	r := newRouter(&stubStore{}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/categories/c1", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateTagDuplicate(t *testing.T) {
	store := &stubStore{
		createTag: func(ctx context.Context, name string) (*Tag, error) {
			return nil, ErrDuplicate
		},
	}
	r := newRouter(store, &auth.Actor{ID: "u1", Role: "user"})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tags", strings.NewReader(`{"name":"solar"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "La etiqueta ya existe", body["message"])
}

func TestCreateTagValidation(t *testing.T) {
	r := newRouter(&stubStore{}, &auth.Actor{ID: "u1", Role: "user"})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tags", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var body struct {
		Message string            `json:"message"`
		Errors  map[string]string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Los datos proporcionados no son válidos", body.Message)
	assert.Contains(t, body.Errors, "name")
}

func TestListCategoriesPagination(t *testing.T) {
	var got CategoryFilter
	store := &stubStore{
		listCategories: func(ctx context.Context, f CategoryFilter) ([]Category, int64, error) {
			got = f
			return []Category{}, 250, nil
		},
	}
	r := newRouter(store, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/categories?page=3&per_page=1000", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 100, got.Limit, "per_page is clamped to 100")
	assert.Equal(t, 200, got.Offset)

	var body struct {
		Data []Category `json:"data"`
		Meta struct {
			CurrentPage int   `json:"current_page"`
			LastPage    int   `json:"last_page"`
			PerPage     int   `json:"per_page"`
			Total       int64 `json:"total"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 3, body.Meta.CurrentPage)
	assert.Equal(t, 3, body.Meta.LastPage)
	assert.Equal(t, int64(250), body.Meta.Total)
	assert.Empty(t, body.Data)
}
