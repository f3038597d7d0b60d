package consultations

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ecovida/ecovida-backend/internal/auth"
	"github.com/ecovida/ecovida-backend/internal/httpx"
	"github.com/ecovida/ecovida-backend/internal/policy"
)

type Store interface {
	List(ctx context.Context, f Filter) ([]Consultation, int64, error)
	Create(ctx context.Context, in NewConsultation) (*Consultation, error)
	Get(ctx context.Context, id string) (*Consultation, error)
	Transition(ctx context.Context, id string, target Status, data TransitionData) (*Consultation, error)
	Delete(ctx context.Context, id string) error
}

type Handler struct {
	store Store
}

func Register(api *gin.RouterGroup, store Store) {
	h := &Handler{store: store}

	cs := api.Group("/consultation-services", auth.Require())
	cs.GET("", h.list)
	cs.POST("", h.create)
	cs.GET("/:id", h.show)
	cs.DELETE("/:id", h.delete)
	cs.POST("/:id/accept", h.accept)
	cs.POST("/:id/start", h.start)
	cs.POST("/:id/complete", h.complete)
	cs.POST("/:id/cancel", h.cancel)
}

type listReq struct {
	Status Status `form:"status" binding:"omitempty,oneof=requested accepted in_progress completed cancelled"`
	Role   string `form:"role" binding:"omitempty,oneof=client provider"`
}

// list only ever shows the caller's own consultations, on whichever
// side of the exchange they are.
func (h *Handler) list(c *gin.Context) {
	actor, _ := auth.CurrentActor(c)

	var req listReq
	if !httpx.BindQuery(c, &req) {
		return
	}

	f := Filter{Status: req.Status}
	switch req.Role {
	case "provider":
		f.ProviderID = actor.ID
	case "client":
		f.ClientID = actor.ID
	default:
		// admins see everything unless they pick a side
		if !actor.IsAdmin() {
			f.ClientID = actor.ID
		}
	}

	page := httpx.ParsePage(c)
	f.Limit, f.Offset = page.Limit(), page.Offset()

	items, total, err := h.store.List(c.Request.Context(), f)
	if err != nil {
		httpx.Internal(c)
		return
	}
	httpx.List(c, items, page.Meta(total))
}

type createReq struct {
	ProviderID  string   `json:"provider_id" binding:"required,uuid"`
	ServiceType string   `json:"service_type" binding:"required,oneof=auditoria instalacion mantenimiento asesoria formacion"`
	Description string   `json:"description" binding:"required,max=4000"`
	Price       *float64 `json:"price" binding:"omitempty,gt=0"`
}

func (h *Handler) create(c *gin.Context) {
	actor, _ := auth.CurrentActor(c)

	var req createReq
	if !httpx.BindJSON(c, &req) {
		return
	}

	cs, err := h.store.Create(c.Request.Context(), NewConsultation{
		ClientID:    actor.ID,
		ProviderID:  req.ProviderID,
		ServiceType: req.ServiceType,
		Description: req.Description,
		Price:       req.Price,
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.NotFound(c)
			return
		}
		httpx.Internal(c)
		return
	}
	httpx.Data(c, http.StatusCreated, cs)
}

func (h *Handler) show(c *gin.Context) {
	actor, _ := auth.CurrentActor(c)

	cs := h.load(c)
	if cs == nil {
		return
	}
	if !h.participant(actor, cs) {
		httpx.Forbidden(c)
		return
	}
	httpx.Data(c, http.StatusOK, cs)
}

func (h *Handler) delete(c *gin.Context) {
	actor, _ := auth.CurrentActor(c)

	cs := h.load(c)
	if cs == nil {
		return
	}
	if !policy.Authorize(c, actor, policy.ActionDelete, cs) {
		return
	}

	if err := h.store.Delete(c.Request.Context(), cs.ID); err != nil {
		httpx.Internal(c)
		return
	}
	httpx.NoContent(c)
}

type acceptReq struct {
	Price       *float64   `json:"price" binding:"omitempty,gt=0"`
	ScheduledAt *time.Time `json:"scheduled_at"`
	Notes       *string    `json:"notes" binding:"omitempty,max=2000"`
}

// accept and start belong to the provider, complete to the provider,
// cancel to either party while work has not started.
func (h *Handler) accept(c *gin.Context) {
	var req acceptReq
	if !httpx.BindJSON(c, &req) {
		return
	}
	h.transition(c, StatusAccepted, TransitionData{Price: req.Price, ScheduledAt: req.ScheduledAt, Notes: req.Notes}, sideProvider)
}

func (h *Handler) start(c *gin.Context) {
	h.transition(c, StatusInProgress, TransitionData{}, sideProvider)
}

type completeReq struct {
	Notes *string `json:"notes" binding:"omitempty,max=2000"`
}

func (h *Handler) complete(c *gin.Context) {
	var req completeReq
	if !httpx.BindJSON(c, &req) {
		return
	}
	h.transition(c, StatusCompleted, TransitionData{Notes: req.Notes}, sideProvider)
}

func (h *Handler) cancel(c *gin.Context) {
	h.transition(c, StatusCancelled, TransitionData{}, sideEither)
}

type side int

const (
	sideProvider side = iota
	sideEither
)

func (h *Handler) transition(c *gin.Context, target Status, data TransitionData, who side) {
	actor, _ := auth.CurrentActor(c)

	cs := h.load(c)
	if cs == nil {
		return
	}

	allowed := actor.IsAdmin()
	switch who {
	case sideProvider:
		allowed = allowed || actor.ID == cs.ProviderID
	case sideEither:
		allowed = allowed || h.participant(actor, cs)
	}
	if !allowed {
		httpx.Forbidden(c)
		return
	}

	updated, err := h.store.Transition(c.Request.Context(), cs.ID, target, data)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			httpx.NotFound(c)
		case errors.Is(err, ErrInvalidTransition):
			httpx.Message(c, http.StatusBadRequest, "La consultoría no está en el estado requerido")
		default:
			httpx.Internal(c)
		}
		return
	}
	httpx.Data(c, http.StatusOK, updated)
}

// load fetches the consultation and writes the error response itself;
// a nil return means the response is already committed.
func (h *Handler) load(c *gin.Context) *Consultation {
	cs, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.NotFound(c)
		} else {
			httpx.Internal(c)
		}
		return nil
	}
	return cs
}

func (h *Handler) participant(actor auth.Actor, cs *Consultation) bool {
	return actor.IsAdmin() || actor.ID == cs.ClientID || actor.ID == cs.ProviderID
}
