package payments

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ecovida/ecovida-backend/internal/auth"
	"github.com/ecovida/ecovida-backend/internal/httpx"
	"github.com/ecovida/ecovida-backend/internal/policy"
)

type Store interface {
	List(ctx context.Context, f Filter) ([]Payment, int64, error)
	Create(ctx context.Context, in NewPayment) (*Payment, error)
	Get(ctx context.Context, id string) (*Payment, error)
	Transition(ctx context.Context, id string, target Status, data TransitionData) (*Payment, error)
}

type Handler struct {
	store Store
}

func Register(api *gin.RouterGroup, store Store) {
	h := &Handler{store: store}

	pay := api.Group("/payments", auth.Require())
	pay.GET("", h.list)
	pay.POST("", h.create)
	pay.GET("/:id", h.show)
	pay.POST("/:id/complete", h.complete)
	pay.POST("/:id/fail", h.fail)
	pay.POST("/:id/refund", h.refund)
}

type listReq struct {
	Status Status `form:"status" binding:"omitempty,oneof=pending completed failed refunded"`
	UserID string `form:"user_id" binding:"omitempty,uuid"`
}

func (h *Handler) list(c *gin.Context) {
	actor, _ := auth.CurrentActor(c)

	var req listReq
	if !httpx.BindQuery(c, &req) {
		return
	}

	f := Filter{Status: req.Status, UserID: actor.ID}
	if actor.IsAdmin() {
		f.UserID = req.UserID
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
	PayableType PayableKind `json:"payable_type" binding:"required,oneof=investment consultation"`
	PayableID   string      `json:"payable_id" binding:"required,uuid"`
	Amount      float64     `json:"amount" binding:"required,gt=0"`
	Currency    string      `json:"currency" binding:"omitempty,oneof=EUR USD"`
	Method      string      `json:"method" binding:"required,oneof=tarjeta transferencia bizum"`
}

func (h *Handler) create(c *gin.Context) {
	actor, _ := auth.CurrentActor(c)

	var req createReq
	if !httpx.BindJSON(c, &req) {
		return
	}
	if req.Currency == "" {
		req.Currency = "EUR"
	}

	p, err := h.store.Create(c.Request.Context(), NewPayment{
		UserID:      actor.ID,
		PayableType: req.PayableType,
		PayableID:   req.PayableID,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Method:      req.Method,
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.NotFound(c)
			return
		}
		httpx.Internal(c)
		return
	}
	httpx.Data(c, http.StatusCreated, p)
}

func (h *Handler) show(c *gin.Context) {
	actor, _ := auth.CurrentActor(c)

	p, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.NotFound(c)
			return
		}
		httpx.Internal(c)
		return
	}
	if !actor.IsAdmin() && p.UserID != actor.ID {
		httpx.Forbidden(c)
		return
	}
	httpx.Data(c, http.StatusOK, p)
}

type completeReq struct {
	TransactionRef string `json:"transaction_ref" binding:"required,max=120"`
}

func (h *Handler) complete(c *gin.Context) {
	var req completeReq
	if !httpx.BindJSON(c, &req) {
		return
	}
	h.transition(c, StatusCompleted, TransitionData{TransactionRef: &req.TransactionRef})
}

type failReq struct {
	FailureReason string `json:"failure_reason" binding:"required,max=500"`
}

func (h *Handler) fail(c *gin.Context) {
	var req failReq
	if !httpx.BindJSON(c, &req) {
		return
	}
	h.transition(c, StatusFailed, TransitionData{FailureReason: &req.FailureReason})
}

func (h *Handler) refund(c *gin.Context) {
	h.transition(c, StatusRefunded, TransitionData{})
}

// Status moves are reserved for operators: the platform, not the
// payer, learns the outcome from the processor.
func (h *Handler) transition(c *gin.Context, target Status, data TransitionData) {
	actor, _ := auth.CurrentActor(c)
	if !policy.Authorize(c, actor, policy.ActionModerate, policy.System{}) {
		return
	}

	p, err := h.store.Transition(c.Request.Context(), c.Param("id"), target, data)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			httpx.NotFound(c)
		case errors.Is(err, ErrInvalidTransition):
			httpx.Message(c, http.StatusBadRequest, "El pago no está en el estado requerido")
		default:
			httpx.Internal(c)
		}
		return
	}
	httpx.Data(c, http.StatusOK, p)
}
