package funding

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
	invest           func(ctx context.Context, proposalID, userID string, amount float64) (*Investment, *Proposal, error)
	createCommission func(ctx context.Context, proposalID string, kind CommissionType, rate float64) (*Commission, error)
}

func (s *stubStore) Invest(ctx context.Context, proposalID, userID string, amount float64) (*Investment, *Proposal, error) {
	return s.invest(ctx, proposalID, userID, amount)
}

func (s *stubStore) CreateCommission(ctx context.Context, proposalID string, kind CommissionType, rate float64) (*Commission, error) {
	return s.createCommission(ctx, proposalID, kind, rate)
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

func post(r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestInvestClosedProposal(t *testing.T) {
	store := &stubStore{
		invest: func(ctx context.Context, proposalID, userID string, amount float64) (*Investment, *Proposal, error) {
			return nil, nil, ErrProposalClosed
		},
	}
	r := newRouter(store, &auth.Actor{ID: "u1", Role: "user"})

	w := post(r, "/api/v1/project-proposals/p1/invest", `{"amount": 50}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "El proyecto no acepta inversiones en su estado actual", body["message"])
}

func TestInvestRequiresPositiveAmount(t *testing.T) {
	called := false
	store := &stubStore{
		invest: func(ctx context.Context, proposalID, userID string, amount float64) (*Investment, *Proposal, error) {
			called = true
			return nil, nil, nil
		},
	}
	r := newRouter(store, &auth.Actor{ID: "u1", Role: "user"})

	w := post(r, "/api/v1/project-proposals/p1/invest", `{"amount": -5}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.False(t, called)
}

func TestCreateCommissionDuplicate(t *testing.T) {
	store := &stubStore{
		createCommission: func(ctx context.Context, proposalID string, kind CommissionType, rate float64) (*Commission, error) {
			assert.Equal(t, CommissionPlatform, kind)
			return nil, ErrDuplicate
		},
	}
	r := newRouter(store, &auth.Actor{ID: "a1", Role: "admin"})

	w := post(r, "/api/v1/project-proposals/p1/commissions", `{"type": "plataforma", "rate": 5}`)
	require.Equal(t, http.StatusConflict, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "El proyecto ya tiene una comisión de este tipo", body["message"])
}

func TestCreateCommissionForbiddenForUsers(t *testing.T) {
	called := false
	store := &stubStore{
		createCommission: func(ctx context.Context, proposalID string, kind CommissionType, rate float64) (*Commission, error) {
			called = true
			return nil, nil
		},
	}
	r := newRouter(store, &auth.Actor{ID: "u1", Role: "user"})

	w := post(r, "/api/v1/project-proposals/p1/commissions", `{"type": "legal", "rate": 2}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.False(t, called)
}
