package organizations

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecovida/ecovida-backend/internal/auth"
)

type stubStore struct {
	Store
	get          func(ctx context.Context, idOrSlug string) (*Organization, error)
	toggleFollow func(ctx context.Context, orgID, userID string) (bool, int, error)
}

func (s *stubStore) Get(ctx context.Context, idOrSlug string) (*Organization, error) {
	return s.get(ctx, idOrSlug)
}

func (s *stubStore) ToggleFollow(ctx context.Context, orgID, userID string) (bool, int, error) {
	return s.toggleFollow(ctx, orgID, userID)
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

func postFollow(r *gin.Engine, id string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/organizations/"+id+"/follow", nil)
	r.ServeHTTP(w, req)
	return w
}

func TestToggleFollowOn(t *testing.T) {
	store := &stubStore{
		get: func(ctx context.Context, idOrSlug string) (*Organization, error) {
			return &Organization{ID: "o1", Slug: idOrSlug}, nil
		},
		toggleFollow: func(ctx context.Context, orgID, userID string) (bool, int, error) {
			assert.Equal(t, "o1", orgID)
			assert.Equal(t, "u1", userID)
			return true, 4, nil
		},
	}
	r := newRouter(store, &auth.Actor{ID: "u1", Role: "user"})

	w := postFollow(r, "energia-local")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data struct {
			Following      bool `json:"following"`
			FollowersCount int  `json:"followers_count"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Data.Following)
	assert.Equal(t, 4, body.Data.FollowersCount)
}

func TestToggleFollowOff(t *testing.T) {
	store := &stubStore{
		get: func(ctx context.Context, idOrSlug string) (*Organization, error) {
			return &Organization{ID: "o1"}, nil
		},
		toggleFollow: func(ctx context.Context, orgID, userID string) (bool, int, error) {
			return false, 3, nil
		},
	}
	r := newRouter(store, &auth.Actor{ID: "u1", Role: "user"})

	w := postFollow(r, "o1")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data struct {
			Following      bool `json:"following"`
			FollowersCount int  `json:"followers_count"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Data.Following)
	assert.Equal(t, 3, body.Data.FollowersCount)
}

func TestToggleFollowMissingOrganization(t *testing.T) {
	store := &stubStore{
		get: func(ctx context.Context, idOrSlug string) (*Organization, error) {
			return nil, ErrNotFound
		},
	}
	r := newRouter(store, &auth.Actor{ID: "u1", Role: "user"})

	w := postFollow(r, "nope")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestToggleFollowRequiresAuth(t *testing.T) {
	called := false
	store := &stubStore{
		get: func(ctx context.Context, idOrSlug string) (*Organization, error) {
			return &Organization{ID: "o1"}, nil
		},
		toggleFollow: func(ctx context.Context, orgID, userID string) (bool, int, error) {
			called = true
			return false, 0, nil
		},
	}
	r := newRouter(store, nil)

	w := postFollow(r, "o1")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, called)
}
