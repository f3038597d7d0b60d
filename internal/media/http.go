package media

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
	ListOutlets(ctx context.Context, kind, query string, limit, offset int) ([]Outlet, int64, error)
	CreateOutlet(ctx context.Context, in NewOutlet) (*Outlet, error)
	GetOutlet(ctx context.Context, idOrSlug string) (*Outlet, error)
	UpdateOutlet(ctx context.Context, id string, in OutletUpdate) (*Outlet, error)
	DeleteOutlet(ctx context.Context, id string) error

	ListArticles(ctx context.Context, f ArticleFilter) ([]Article, int64, error)
	CreateArticle(ctx context.Context, in NewArticle) (*Article, error)
	GetArticle(ctx context.Context, idOrSlug string) (*Article, error)
	UpdateArticle(ctx context.Context, id string, in ArticleUpdate) (*Article, error)
	DeleteArticle(ctx context.Context, id string) error

	CreateAppearance(ctx context.Context, in NewAppearance) (*Appearance, error)
	DeleteAppearance(ctx context.Context, id string) error
	ListAppearances(ctx context.Context, organizationID string, limit, offset int) ([]Appearance, int64, error)
}

type Handler struct {
	store Store
}

func Register(api *gin.RouterGroup, store Store) {
	h := &Handler{store: store}

	outlets := api.Group("/media-outlets")
	outlets.GET("", h.listOutlets)
	outlets.POST("", auth.Require(), h.createOutlet)
	outlets.GET("/:id", h.showOutlet)
	outlets.PATCH("/:id", auth.Require(), h.updateOutlet)
	outlets.PUT("/:id", auth.Require(), h.updateOutlet)
	outlets.DELETE("/:id", auth.Require(), h.deleteOutlet)

	articles := api.Group("/news-articles")
	articles.GET("", h.listArticles)
	articles.POST("", auth.Require(), h.createArticle)
	articles.GET("/:id", h.showArticle)
	articles.PATCH("/:id", auth.Require(), h.updateArticle)
	articles.PUT("/:id", auth.Require(), h.updateArticle)
	articles.DELETE("/:id", auth.Require(), h.deleteArticle)

	apps := api.Group("/appearances")
	apps.POST("", auth.Require(), h.createAppearance)
	apps.DELETE("/:id", auth.Require(), h.deleteAppearance)
	api.GET("/organizations/:id/appearances", h.listAppearances)
}

type outletListReq struct {
	Kind  string `form:"kind" binding:"omitempty,oneof=periodico revista radio television digital"`
	Query string `form:"q" binding:"omitempty,max=120"`
}

func (h *Handler) listOutlets(c *gin.Context) {
	var req outletListReq
	if !httpx.BindQuery(c, &req) {
		return
	}

	page := httpx.ParsePage(c)
	items, total, err := h.store.ListOutlets(c.Request.Context(), req.Kind, req.Query, page.Limit(), page.Offset())
	if err != nil {
		httpx.Internal(c)
		return
	}
	httpx.List(c, items, page.Meta(total))
}

type outletCreateReq struct {
	Name    string  `json:"name" binding:"required,max=160"`
	Website *string `json:"website" binding:"omitempty,url,max=2048"`
	Kind    string  `json:"kind" binding:"required,oneof=periodico revista radio television digital"`
}

// Outlets and articles are curated reference data, so writes are
// admin-only.
func (h *Handler) createOutlet(c *gin.Context) {
	actor, _ := auth.CurrentActor(c)
	if !policy.Authorize(c, actor, policy.ActionModerate, policy.System{}) {
		return
	}

	var req outletCreateReq
	if !httpx.BindJSON(c, &req) {
		return
	}

	o, err := h.store.CreateOutlet(c.Request.Context(), NewOutlet{
		Name:    req.Name,
		Website: req.Website,
		Kind:    req.Kind,
	})
	if err != nil {
		httpx.Internal(c)
		return
	}
	httpx.Data(c, http.StatusCreated, o)
}

func (h *Handler) showOutlet(c *gin.Context) {
	o, err := h.store.GetOutlet(c.Request.Context(), c.Param("id"))
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

type outletUpdateReq struct {
	Name    *string `json:"name" binding:"omitempty,max=160"`
	Website *string `json:"website" binding:"omitempty,url,max=2048"`
	Kind    *string `json:"kind" binding:"omitempty,oneof=periodico revista radio television digital"`
}

func (h *Handler) updateOutlet(c *gin.Context) {
	actor, _ := auth.CurrentActor(c)
	if !policy.Authorize(c, actor, policy.ActionModerate, policy.System{}) {
		return
	}

	existing, err := h.store.GetOutlet(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.NotFound(c)
			return
		}
		httpx.Internal(c)
		return
	}

	var req outletUpdateReq
	if !httpx.BindJSON(c, &req) {
		return
	}

	o, err := h.store.UpdateOutlet(c.Request.Context(), existing.ID, OutletUpdate{
		Name:    req.Name,
		Website: req.Website,
		Kind:    req.Kind,
	})
	if err != nil {
		httpx.Internal(c)
		return
	}
	httpx.Data(c, http.StatusOK, o)
}

func (h *Handler) deleteOutlet(c *gin.Context) {
	actor, _ := auth.CurrentActor(c)
	if !policy.Authorize(c, actor, policy.ActionDelete, policy.System{}) {
		return
	}

	if err := h.store.DeleteOutlet(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.NotFound(c)
			return
		}
		httpx.Internal(c)
		return
	}
	httpx.NoContent(c)
}

type articleListReq struct {
	OutletID string `form:"outlet_id" binding:"omitempty,uuid"`
	Query    string `form:"q" binding:"omitempty,max=120"`
}

func (h *Handler) listArticles(c *gin.Context) {
	var req articleListReq
	if !httpx.BindQuery(c, &req) {
		return
	}

	page := httpx.ParsePage(c)
	items, total, err := h.store.ListArticles(c.Request.Context(), ArticleFilter{
		OutletID: req.OutletID,
		Query:    req.Query,
		Limit:    page.Limit(),
		Offset:   page.Offset(),
	})
	if err != nil {
		httpx.Internal(c)
		return
	}
	httpx.List(c, items, page.Meta(total))
}

type articleCreateReq struct {
	OutletID    string     `json:"outlet_id" binding:"required,uuid"`
	Title       string     `json:"title" binding:"required,max=250"`
	URL         string     `json:"url" binding:"required,url,max=2048"`
	Summary     *string    `json:"summary" binding:"omitempty,max=4000"`
	PublishedAt *time.Time `json:"published_at"`
}

func (h *Handler) createArticle(c *gin.Context) {
	actor, _ := auth.CurrentActor(c)
	if !policy.Authorize(c, actor, policy.ActionModerate, policy.System{}) {
		return
	}

	var req articleCreateReq
	if !httpx.BindJSON(c, &req) {
		return
	}

	a, err := h.store.CreateArticle(c.Request.Context(), NewArticle{
		OutletID:    req.OutletID,
		Title:       req.Title,
		URL:         req.URL,
		Summary:     req.Summary,
		PublishedAt: req.PublishedAt,
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.NotFound(c)
			return
		}
		httpx.Internal(c)
		return
	}
	httpx.Data(c, http.StatusCreated, a)
}

func (h *Handler) showArticle(c *gin.Context) {
	a, err := h.store.GetArticle(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.NotFound(c)
			return
		}
		httpx.Internal(c)
		return
	}
	httpx.Data(c, http.StatusOK, a)
}

type articleUpdateReq struct {
	Title       *string    `json:"title" binding:"omitempty,max=250"`
	URL         *string    `json:"url" binding:"omitempty,url,max=2048"`
	Summary     *string    `json:"summary" binding:"omitempty,max=4000"`
	PublishedAt *time.Time `json:"published_at"`
}

func (h *Handler) updateArticle(c *gin.Context) {
	actor, _ := auth.CurrentActor(c)
	if !policy.Authorize(c, actor, policy.ActionModerate, policy.System{}) {
		return
	}

	existing, err := h.store.GetArticle(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.NotFound(c)
			return
		}
		httpx.Internal(c)
		return
	}

	var req articleUpdateReq
	if !httpx.BindJSON(c, &req) {
		return
	}

	a, err := h.store.UpdateArticle(c.Request.Context(), existing.ID, ArticleUpdate{
		Title:       req.Title,
		URL:         req.URL,
		Summary:     req.Summary,
		PublishedAt: req.PublishedAt,
	})
	if err != nil {
		httpx.Internal(c)
		return
	}
	httpx.Data(c, http.StatusOK, a)
}

func (h *Handler) deleteArticle(c *gin.Context) {
	actor, _ := auth.CurrentActor(c)
	if !policy.Authorize(c, actor, policy.ActionDelete, policy.System{}) {
		return
	}

	if err := h.store.DeleteArticle(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.NotFound(c)
			return
		}
		httpx.Internal(c)
		return
	}
	httpx.NoContent(c)
}

type appearanceCreateReq struct {
	OrganizationID string     `json:"organization_id" binding:"required,uuid"`
	OutletID       string     `json:"outlet_id" binding:"required,uuid"`
	ArticleID      *string    `json:"article_id" binding:"omitempty,uuid"`
	Note           *string    `json:"note" binding:"omitempty,max=1000"`
	AppearedAt     *time.Time `json:"appeared_at"`
}

func (h *Handler) createAppearance(c *gin.Context) {
	actor, _ := auth.CurrentActor(c)
	if !policy.Authorize(c, actor, policy.ActionModerate, policy.System{}) {
		return
	}

	var req appearanceCreateReq
	if !httpx.BindJSON(c, &req) {
		return
	}

	ap, err := h.store.CreateAppearance(c.Request.Context(), NewAppearance{
		OrganizationID: req.OrganizationID,
		OutletID:       req.OutletID,
		ArticleID:      req.ArticleID,
		Note:           req.Note,
		AppearedAt:     req.AppearedAt,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrDuplicate):
			httpx.Message(c, http.StatusConflict, "La aparición ya está registrada")
		case errors.Is(err, ErrNotFound):
			httpx.NotFound(c)
		default:
			httpx.Internal(c)
		}
		return
	}
	httpx.Data(c, http.StatusCreated, ap)
}

func (h *Handler) deleteAppearance(c *gin.Context) {
	actor, _ := auth.CurrentActor(c)
	if !policy.Authorize(c, actor, policy.ActionDelete, policy.System{}) {
		return
	}

	if err := h.store.DeleteAppearance(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.NotFound(c)
			return
		}
		httpx.Internal(c)
		return
	}
	httpx.NoContent(c)
}

func (h *Handler) listAppearances(c *gin.Context) {
	page := httpx.ParsePage(c)
	items, total, err := h.store.ListAppearances(c.Request.Context(), c.Param("id"), page.Limit(), page.Offset())
	if err != nil {
		httpx.Internal(c)
		return
	}
	httpx.List(c, items, page.Meta(total))
}
