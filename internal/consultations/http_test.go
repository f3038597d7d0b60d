package consultations

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecovida/ecovida-backend/internal/auth"
)

type stubStore struct {
	Store
	get        func(ctx context.Context, id string) (*Consultation, error)
	transition func(ctx context.Context, id string, target Status, data TransitionData) (*Consultation, error)
}

func (s *stubStore) Get(ctx context.Context, id string) (*Consultation, error) {
	return s.get(ctx, id)
}

func (s *stubStore) Transition(ctx context.Context, id string, target Status, data TransitionData) (*Consultation, error) {
	return s.transition(ctx, id, target, data)
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

func TestCompleteFromWrongState(t *testing.T) {
	store := &stubStore{
		get: func(ctx context.Context, id string) (*Consultation, error) {
			return &Consultation{ID: id, ClientID: "c1", ProviderID: "p1", Status: StatusRequested}, nil
		},
		transition: func(ctx context.Context, id string, target Status, data TransitionData) (*Consultation, error) {
			assert.Equal(t, StatusCompleted, target)
			return nil, ErrInvalidTransition
		},
	}
	r := newRouter(store, &auth.Actor{ID: "p1", Role: "user"})

	w := post(r, "/api/v1/consultation-services/cs1/complete", `{}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "La consultoría no está en el estado requerido", body["message"])
}

func TestAcceptOnlyProvider(t *testing.T) {
	store := &stubStore{
		get: func(ctx context.Context, id string) (*Consultation, error) {
			return &Consultation{ID: id, ClientID: "c1", ProviderID: "p1", Status: StatusRequested}, nil
		},
	}
	// The requesting client cannot accept their own request.
	r := newRouter(store, &auth.Actor{ID: "c1", Role: "user"})

	w := post(r, "/api/v1/consultation-services/cs1/accept", `{}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCancelByClient(t *testing.T) {
	store := &stubStore{
		get: func(ctx context.Context, id string) (*Consultation, error) {
			return &Consultation{ID: id, ClientID: "c1", ProviderID: "p1", Status: StatusRequested}, nil
		},
		transition: func(ctx context.Context, id string, target Status, data TransitionData) (*Consultation, error) {
			assert.Equal(t, StatusCancelled, target)
			return &Consultation{ID: id, ClientID: "c1", ProviderID: "p1", Status: StatusCancelled}, nil
		},
	}
	r := newRouter(store, &auth.Actor{ID: "c1", Role: "user"})

	w := post(r, "/api/v1/consultation-services/cs1/cancel", `{}`)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data Consultation `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, StatusCancelled, body.Data.Status)
}

func TestTransitionByOutsider(t *testing.T) {
	store := &stubStore{
		get: func(ctx context.Context, id string) (*Consultation, error) {
			return &Consultation{ID: id, ClientID: "c1", ProviderID: "p1", Status: StatusRequested}, nil
		},
	}
	r := newRouter(store, &auth.Actor{ID: "intruso", Role: "user"})

	w := post(r, "/api/v1/consultation-services/cs1/cancel", `{}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAcceptMalformedScheduledAt(t *testing.T) {
	called := false
	store := &stubStore{
		get: func(ctx context.Context, id string) (*Consultation, error) {
			return &Consultation{ID: id, ClientID: "c1", ProviderID: "p1", Status: StatusRequested}, nil
		},
		transition: func(ctx context.Context, id string, target Status, data TransitionData) (*Consultation, error) {
			called = true
			return nil, nil
		},
	}
	r := newRouter(store, &auth.Actor{ID: "p1", Role: "user"})

	w := post(r, "/api/v1/consultation-services/cs1/accept", `{"scheduled_at": "mañana"}`)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.False(t, called)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Los datos proporcionados no son válidos", body["message"])
}

func TestAcceptParsesScheduledAt(t *testing.T) {
	when := time.Date(2026, 10, 5, 9, 30, 0, 0, time.UTC)
	store := &stubStore{
		get: func(ctx context.Context, id string) (*Consultation, error) {
			return &Consultation{ID: id, ClientID: "c1", ProviderID: "p1", Status: StatusRequested}, nil
		},
		transition: func(ctx context.Context, id string, target Status, data TransitionData) (*Consultation, error) {
			require.NotNil(t, data.ScheduledAt)
			assert.True(t, data.ScheduledAt.Equal(when))
			return &Consultation{ID: id, ClientID: "c1", ProviderID: "p1", Status: StatusAccepted, ScheduledAt: data.ScheduledAt}, nil
		},
	}
	r := newRouter(store, &auth.Actor{ID: "p1", Role: "user"})

	w := post(r, "/api/v1/consultation-services/cs1/accept", `{"scheduled_at": "2026-10-05T09:30:00Z"}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTransitionMissingConsultation(t *testing.T) {
	store := &stubStore{
		get: func(ctx context.Context, id string) (*Consultation, error) {
			return nil, ErrNotFound
		},
	}
	r := newRouter(store, &auth.Actor{ID: "p1", Role: "user"})

	w := post(r, "/api/v1/consultation-services/nope/start", `{}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
