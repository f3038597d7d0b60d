package funding

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
	ListProposals(ctx context.Context, f ProposalFilter) ([]Proposal, int64, error)
	CreateProposal(ctx context.Context, in NewProposal) (*Proposal, error)
	GetProposal(ctx context.Context, idOrSlug string) (*Proposal, error)
	UpdateProposal(ctx context.Context, id string, in ProposalUpdate) (*Proposal, error)
	DeleteProposal(ctx context.Context, id string) error
	Invest(ctx context.Context, proposalID, userID string, amount float64) (*Investment, *Proposal, error)
	ListInvestments(ctx context.Context, proposalID string, limit, offset int) ([]Investment, int64, error)
	CreateCommission(ctx context.Context, proposalID string, kind CommissionType, rate float64) (*Commission, error)
	ListCommissions(ctx context.Context, proposalID string) ([]Commission, error)
	RequestVerification(ctx context.Context, proposalID string) (*Verification, error)
	GetVerificationByProposal(ctx context.Context, proposalID string) (*Verification, error)
	TransitionVerification(ctx context.Context, id string, target VerificationStatus, review Review) (*Verification, error)
}

type Handler struct {
	store Store
}

func Register(api *gin.RouterGroup, store Store) {
	h := &Handler{store: store}

	props := api.Group("/project-proposals")
	props.GET("", h.list)
	props.POST("", auth.Require(), h.create)
	props.GET("/:id", h.show)
	props.PATCH("/:id", auth.Require(), h.update)
	props.PUT("/:id", auth.Require(), h.update)
	props.DELETE("/:id", auth.Require(), h.delete)
	props.POST("/:id/invest", auth.Require(), h.invest)
	props.GET("/:id/investments", h.listInvestments)
	props.GET("/:id/commissions", h.listCommissions)
	props.POST("/:id/commissions", auth.Require(), h.createCommission)
	props.GET("/:id/verification", h.showVerification)
	props.POST("/:id/verification", auth.Require(), h.requestVerification)

	vers := api.Group("/project-verifications", auth.Require())
	vers.POST("/:id/start-review", h.startReview)
	vers.POST("/:id/approve", h.approve)
	vers.POST("/:id/reject", h.reject)
}

type listReq struct {
	Status     ProposalStatus `form:"status" binding:"omitempty,oneof=active funded closed"`
	CategoryID string         `form:"category_id" binding:"omitempty,uuid"`
	UserID     string         `form:"user_id" binding:"omitempty,uuid"`
	Query      string         `form:"q" binding:"omitempty,max=120"`
}

func (h *Handler) list(c *gin.Context) {
	var req listReq
	if !httpx.BindQuery(c, &req) {
		return
	}

	page := httpx.ParsePage(c)
	items, total, err := h.store.ListProposals(c.Request.Context(), ProposalFilter{
		Status:     req.Status,
		CategoryID: req.CategoryID,
		UserID:     req.UserID,
		Query:      req.Query,
		Limit:      page.Limit(),
		Offset:     page.Offset(),
	})
	if err != nil {
		httpx.Internal(c)
		return
	}
	httpx.List(c, items, page.Meta(total))
}

type createReq struct {
	OrganizationID *string `json:"organization_id" binding:"omitempty,uuid"`
	CategoryID     *string `json:"category_id" binding:"omitempty,uuid"`
	Title          string  `json:"title" binding:"required,max=200"`
	Description    string  `json:"description" binding:"required,max=8000"`
	Location       *string `json:"location" binding:"omitempty,max=200"`
	FundingGoal    float64 `json:"funding_goal" binding:"required,gt=0"`
}

func (h *Handler) create(c *gin.Context) {
	actor, _ := auth.CurrentActor(c)

	var req createReq
	if !httpx.BindJSON(c, &req) {
		return
	}

	p, err := h.store.CreateProposal(c.Request.Context(), NewProposal{
		UserID:         actor.ID,
		OrganizationID: req.OrganizationID,
		CategoryID:     req.CategoryID,
		Title:          req.Title,
		Description:    req.Description,
		Location:       req.Location,
		FundingGoal:    req.FundingGoal,
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
	p, err := h.store.GetProposal(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.NotFound(c)
			return
		}
		httpx.Internal(c)
		return
	}
	httpx.Data(c, http.StatusOK, p)
}

type updateReq struct {
	Title       *string  `json:"title" binding:"omitempty,max=200"`
	Description *string  `json:"description" binding:"omitempty,max=8000"`
	Location    *string  `json:"location" binding:"omitempty,max=200"`
	FundingGoal *float64 `json:"funding_goal" binding:"omitempty,gt=0"`
	Status      *string  `json:"status" binding:"omitempty,oneof=active closed"`
}

func (h *Handler) update(c *gin.Context) {
	actor, _ := auth.CurrentActor(c)

	existing, err := h.store.GetProposal(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.NotFound(c)
			return
		}
		httpx.Internal(c)
		return
	}
	if !policy.Authorize(c, actor, policy.ActionUpdate, existing) {
		return
	}

	var req updateReq
	if !httpx.BindJSON(c, &req) {
		return
	}

	var status *ProposalStatus
	if req.Status != nil {
		s := ProposalStatus(*req.Status)
		status = &s
	}

	p, err := h.store.UpdateProposal(c.Request.Context(), existing.ID, ProposalUpdate{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		FundingGoal: req.FundingGoal,
		Status:      status,
	})
	if err != nil {
		httpx.Internal(c)
		return
	}
	httpx.Data(c, http.StatusOK, p)
}

func (h *Handler) delete(c *gin.Context) {
	actor, _ := auth.CurrentActor(c)

	existing, err := h.store.GetProposal(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.NotFound(c)
			return
		}
		httpx.Internal(c)
		return
	}
	if !policy.Authorize(c, actor, policy.ActionDelete, existing) {
		return
	}

	if err := h.store.DeleteProposal(c.Request.Context(), existing.ID); err != nil {
		httpx.Internal(c)
		return
	}
	httpx.NoContent(c)
}

type investReq struct {
	Amount float64 `json:"amount" binding:"required,gt=0"`
}

func (h *Handler) invest(c *gin.Context) {
	actor, _ := auth.CurrentActor(c)

	var req investReq
	if !httpx.BindJSON(c, &req) {
		return
	}

	inv, p, err := h.store.Invest(c.Request.Context(), c.Param("id"), actor.ID, req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			httpx.NotFound(c)
		case errors.Is(err, ErrProposalClosed):
			httpx.Message(c, http.StatusBadRequest, "El proyecto no acepta inversiones en su estado actual")
		default:
			httpx.Internal(c)
		}
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": inv, "proposal": p})
}

func (h *Handler) listInvestments(c *gin.Context) {
	page := httpx.ParsePage(c)
	items, total, err := h.store.ListInvestments(c.Request.Context(), c.Param("id"), page.Limit(), page.Offset())
	if err != nil {
		httpx.Internal(c)
		return
	}
	httpx.List(c, items, page.Meta(total))
}

type commissionReq struct {
	Type CommissionType `json:"type" binding:"required,oneof=plataforma gestion legal"`
	Rate float64        `json:"rate" binding:"required,gt=0,lte=100"`
}

func (h *Handler) createCommission(c *gin.Context) {
	actor, _ := auth.CurrentActor(c)
	if !policy.Authorize(c, actor, policy.ActionModerate, policy.System{}) {
		return
	}

	var req commissionReq
	if !httpx.BindJSON(c, &req) {
		return
	}

	cm, err := h.store.CreateCommission(c.Request.Context(), c.Param("id"), req.Type, req.Rate)
	if err != nil {
		switch {
		case errors.Is(err, ErrDuplicate):
			httpx.Message(c, http.StatusConflict, "El proyecto ya tiene una comisión de este tipo")
		case errors.Is(err, ErrNotFound):
			httpx.NotFound(c)
		default:
			httpx.Internal(c)
		}
		return
	}
	httpx.Data(c, http.StatusCreated, cm)
}

func (h *Handler) listCommissions(c *gin.Context) {
	items, err := h.store.ListCommissions(c.Request.Context(), c.Param("id"))
	if err != nil {
		httpx.Internal(c)
		return
	}
	if items == nil {
		items = []Commission{}
	}
	httpx.Data(c, http.StatusOK, items)
}

func (h *Handler) showVerification(c *gin.Context) {
	v, err := h.store.GetVerificationByProposal(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.NotFound(c)
			return
		}
		httpx.Internal(c)
		return
	}
	httpx.Data(c, http.StatusOK, v)
}

// requestVerification is owner-initiated: only the proposal's creator
// or an admin may open the review.
func (h *Handler) requestVerification(c *gin.Context) {
	actor, _ := auth.CurrentActor(c)

	p, err := h.store.GetProposal(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.NotFound(c)
			return
		}
		httpx.Internal(c)
		return
	}
	if !policy.Authorize(c, actor, policy.ActionUpdate, p) {
		return
	}

	v, err := h.store.RequestVerification(c.Request.Context(), p.ID)
	if err != nil {
		switch {
		case errors.Is(err, ErrDuplicate):
			httpx.Message(c, http.StatusConflict, "El proyecto ya tiene una verificación en curso")
		case errors.Is(err, ErrNotFound):
			httpx.NotFound(c)
		default:
			httpx.Internal(c)
		}
		return
	}
	httpx.Data(c, http.StatusCreated, v)
}

func (h *Handler) startReview(c *gin.Context) {
	h.transition(c, VerificationInReview, Review{})
}

type approveReq struct {
	Notes *string `json:"notes" binding:"omitempty,max=2000"`
	Score *int    `json:"score" binding:"omitempty,gte=0,lte=100"`
}

func (h *Handler) approve(c *gin.Context) {
	var req approveReq
	if !httpx.BindJSON(c, &req) {
		return
	}
	h.transition(c, VerificationApproved, Review{Notes: req.Notes, Score: req.Score})
}

type rejectReq struct {
	RejectionReason string  `json:"rejection_reason" binding:"required,max=2000"`
	Notes           *string `json:"notes" binding:"omitempty,max=2000"`
}

func (h *Handler) reject(c *gin.Context) {
	var req rejectReq
	if !httpx.BindJSON(c, &req) {
		return
	}
	h.transition(c, VerificationRejected, Review{Notes: req.Notes, RejectionReason: &req.RejectionReason})
}

func (h *Handler) transition(c *gin.Context, target VerificationStatus, review Review) {
	actor, _ := auth.CurrentActor(c)
	if !policy.Authorize(c, actor, policy.ActionModerate, policy.System{}) {
		return
	}
	review.ReviewerID = actor.ID

	v, err := h.store.TransitionVerification(c.Request.Context(), c.Param("id"), target, review)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			httpx.NotFound(c)
		case errors.Is(err, ErrInvalidTransition):
			httpx.Message(c, http.StatusBadRequest, "La verificación no está en el estado requerido")
		default:
			httpx.Internal(c)
		}
		return
	}
	httpx.Data(c, http.StatusOK, v)
}
