package engagement

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
	toggleVote func(ctx context.Context, userID string, kind TargetKind, targetID string, vt VoteType) (*VoteResult, error)
}

func (s *stubStore) ToggleVote(ctx context.Context, userID string, kind TargetKind, targetID string, vt VoteType) (*VoteResult, error) {
	return s.toggleVote(ctx, userID, kind, targetID, vt)
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

func postVote(r *gin.Engine, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/content-votes/vote", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

const validVote = `{"votable_type":"post","votable_id":"6e9bb63e-56a4-4cc5-8b30-9cf1a32902c9","vote_type":"upvote"}`

func TestVoteToggleOff(t *testing.T) {
	store := &stubStore{
		toggleVote: func(ctx context.Context, userID string, kind TargetKind, targetID string, vt VoteType) (*VoteResult, error) {
			assert.Equal(t, "u1", userID)
			assert.Equal(t, KindPost, kind)
			assert.Equal(t, Upvote, vt)
			return &VoteResult{Voted: false, Upvotes: 0, Downvotes: 0}, nil
		},
	}
	r := newRouter(store, &auth.Actor{ID: "u1", Role: "user"})

	w := postVote(r, validVote)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data VoteResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Data.Voted)
	assert.Equal(t, 0, body.Data.Upvotes)
}

func TestVoteRejectsFreeTextType(t *testing.T) {
	r := newRouter(&stubStore{}, &auth.Actor{ID: "u1", Role: "user"})

	w := postVote(r, `{"votable_type":"App\\Models\\Post","votable_id":"6e9bb63e-56a4-4cc5-8b30-9cf1a32902c9","vote_type":"upvote"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestVoteTargetMissing(t *testing.T) {
	store := &stubStore{
		toggleVote: func(ctx context.Context, userID string, kind TargetKind, targetID string, vt VoteType) (*VoteResult, error) {
			return nil, ErrNotFound
		},
	}
	r := newRouter(store, &auth.Actor{ID: "u1", Role: "user"})

	w := postVote(r, validVote)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestVoteRequiresAuth(t *testing.T) {
	r := newRouter(&stubStore{}, nil)

	w := postVote(r, validVote)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
