package organizations

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
	List(ctx context.Context, f Filter) ([]Organization, int64, error)
	Create(ctx context.Context, in NewOrganization) (*Organization, error)
	Get(ctx context.Context, idOrSlug string) (*Organization, error)
	Update(ctx context.Context, id string, in Update) (*Organization, error)
	Delete(ctx context.Context, id string) error
	ToggleFollow(ctx context.Context, orgID, userID string) (following bool, followersCount int, err error)
}

type Handler struct {
	store Store
}

func Register(api *gin.RouterGroup, store Store) {
	h := &Handler{store: store}

	orgs := api.Group("/organizations")
	orgs.GET("", h.list)
	orgs.GET("/search", h.search)
	orgs.POST("", auth.Require(), h.create)
	orgs.GET("/:id", h.show)
	orgs.PATCH("/:id", auth.Require(), h.update)
	orgs.PUT("/:id", auth.Require(), h.update)
	orgs.DELETE("/:id", auth.Require(), h.delete)
	orgs.POST("/:id/follow", auth.Require(), h.toggleFollow)
}

type listReq struct {
	Sector   string `form:"sector" binding:"omitempty,max=40"`
	UserID   string `form:"user_id" binding:"omitempty,uuid"`
	Verified *bool  `form:"is_verified"`
}

func (h *Handler) list(c *gin.Context) {
	var req listReq
	if !httpx.BindQuery(c, &req) {
		return
	}

	page := httpx.ParsePage(c)
	items, total, err := h.store.List(c.Request.Context(), Filter{
		Sector:   req.Sector,
		UserID:   req.UserID,
		Verified: req.Verified,
		Limit:    page.Limit(),
		Offset:   page.Offset(),
	})
	if err != nil {
		httpx.Internal(c)
		return
	}
	httpx.List(c, items, page.Meta(total))
}

type searchReq struct {
	Query string `form:"q" binding:"required,max=120"`
}

func (h *Handler) search(c *gin.Context) {
	var req searchReq
	if !httpx.BindQuery(c, &req) {
		return
	}

	page := httpx.ParsePage(c)
	items, total, err := h.store.List(c.Request.Context(), Filter{
		Query:  req.Query,
		Limit:  page.Limit(),
		Offset: page.Offset(),
	})
	if err != nil {
		httpx.Internal(c)
		return
	}
	httpx.List(c, items, page.Meta(total))
}

type createReq struct {
	Name        string  `json:"name" binding:"required,max=160"`
	Description *string `json:"description" binding:"omitempty,max=2000"`
	Sector      string  `json:"sector" binding:"required,oneof=solar eolica hidraulica biomasa reciclaje agricultura transporte educacion otro"`
	Website     *string `json:"website" binding:"omitempty,url,max=2048"`
	City        *string `json:"city" binding:"omitempty,max=120"`
}

func (h *Handler) create(c *gin.Context) {
	actor, _ := auth.CurrentActor(c)

	var req createReq
	if !httpx.BindJSON(c, &req) {
		return
	}

	o, err := h.store.Create(c.Request.Context(), NewOrganization{
		UserID:      actor.ID,
		Name:        req.Name,
		Description: req.Description,
		Sector:      req.Sector,
		Website:     req.Website,
		City:        req.City,
	})
	if err != nil {
		httpx.Internal(c)
		return
	}
	httpx.Data(c, http.StatusCreated, o)
}

func (h *Handler) show(c *gin.Context) {
	o, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.NotFound(c)
			return
		}
		httpx.Internal(c)
		return
	}
	httpx.Data(c, http.StatusOK, o)
}

type updateReq struct {
	Name        *string `json:"name" binding:"omitempty,max=160"`
	Description *string `json:"description" binding:"omitempty,max=2000"`
	Sector      *string `json:"sector" binding:"omitempty,oneof=solar eolica hidraulica biomasa reciclaje agricultura transporte educacion otro"`
	Website     *string `json:"website" binding:"omitempty,url,max=2048"`
	City        *string `json:"city" binding:"omitempty,max=120"`
}

func (h *Handler) update(c *gin.Context) {
	actor, _ := auth.CurrentActor(c)

	existing, err := h.store.Get(c.Request.Context(), c.Param("id"))
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

	o, err := h.store.Update(c.Request.Context(), existing.ID, Update{
		Name:        req.Name,
		Description: req.Description,
		Sector:      req.Sector,
		Website:     req.Website,
		City:        req.City,
	})
	if err != nil {
		httpx.Internal(c)
		return
	}
	httpx.Data(c, http.StatusOK, o)
}

func (h *Handler) delete(c *gin.Context) {
	actor, _ := auth.CurrentActor(c)

	existing, err := h.store.Get(c.Request.Context(), c.Param("id"))
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

	if err := h.store.Delete(c.Request.Context(), existing.ID); err != nil {
		httpx.Internal(c)
		return
	}
	httpx.NoContent(c)
}

func (h *Handler) toggleFollow(c *gin.Context) {
	actor, _ := auth.CurrentActor(c)

	o, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.NotFound(c)
			return
		}
		httpx.Internal(c)
		return
	}

	following, followers, err := h.store.ToggleFollow(c.Request.Context(), o.ID, actor.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.NotFound(c)
			return
		}
		httpx.Internal(c)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"following":       following,
		"followers_count": followers,
	}})
}
