package taxonomy

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ecovida/ecovida-backend/internal/auth"
	"github.com/ecovida/ecovida-backend/internal/httpx"
	"github.com/ecovida/ecovida-backend/internal/policy"
)

// Store is the repository surface the handlers depend on.
type Store interface {
	ListCategories(ctx context.Context, f CategoryFilter) ([]Category, int64, error)
	CreateCategory(ctx context.Context, in NewCategory) (*Category, error)
	GetCategory(ctx context.Context, idOrSlug string) (*Category, error)
	UpdateCategory(ctx context.Context, id string, in UpdateCategory) (*Category, error)
	DeleteCategory(ctx context.Context, id string) error

	ListTags(ctx context.Context, query string, limit, offset int) ([]Tag, int64, error)
	CreateTag(ctx context.Context, name string) (*Tag, error)
	GetTag(ctx context.Context, idOrSlug string) (*Tag, error)
	DeleteTag(ctx context.Context, id string) error
}

type Handler struct {
	store Store
}

func Register(api *gin.RouterGroup, store Store) {
	h := &Handler{store: store}

	categories := api.Group("/categories")
	categories.GET("", h.listCategories)
	categories.POST("", auth.Require(), h.createCategory)
	categories.GET("/:id", h.showCategory)
	categories.PATCH("/:id", auth.Require(), h.updateCategory)
	categories.PUT("/:id", auth.Require(), h.updateCategory)
	categories.DELETE("/:id", auth.Require(), h.deleteCategory)

	tags := api.Group("/tags")
	tags.GET("", h.listTags)
	tags.POST("", auth.Require(), h.createTag)
	tags.GET("/:id", h.showTag)
	tags.DELETE("/:id", auth.Require(), h.deleteTag)
}

type categoryListReq struct {
	ParentID *string `form:"parent_id" binding:"omitempty,uuid"`
	IsActive *bool   `form:"is_active"`
	Query    string  `form:"q" binding:"omitempty,max=120"`
}

func (h *Handler) listCategories(c *gin.Context) {
	var req categoryListReq
	if !httpx.BindQuery(c, &req) {
		return
	}

	page := httpx.ParsePage(c)
	items, total, err := h.store.ListCategories(c.Request.Context(), CategoryFilter{
		ParentID: req.ParentID,
		IsActive: req.IsActive,
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

type createCategoryReq struct {
	Name        string  `json:"name" binding:"required,max=120"`
	Description *string `json:"description" binding:"omitempty,max=1000"`
	ParentID    *string `json:"parent_id" binding:"omitempty,uuid"`
	IsActive    *bool   `json:"is_active"`
}

func (h *Handler) createCategory(c *gin.Context) {
	actor, _ := auth.CurrentActor(c)
	if !policy.Authorize(c, actor, policy.ActionModerate, policy.System{}) {
		return
	}

	var req createCategoryReq
	if !httpx.BindJSON(c, &req) {
		return
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	cat, err := h.store.CreateCategory(c.Request.Context(), NewCategory{
		Name:        req.Name,
		Description: req.Description,
		ParentID:    req.ParentID,
		IsActive:    active,
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.Message(c, http.StatusUnprocessableEntity, "La categoría padre no existe")
			return
		}
		httpx.Internal(c)
		return
	}
	httpx.Data(c, http.StatusCreated, cat)
}

func (h *Handler) showCategory(c *gin.Context) {
	cat, err := h.store.GetCategory(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.NotFound(c)
			return
		}
		httpx.Internal(c)
		return
	}
	httpx.Data(c, http.StatusOK, cat)
}

type updateCategoryReq struct {
	Name        *string `json:"name" binding:"omitempty,max=120"`
	Description *string `json:"description" binding:"omitempty,max=1000"`
	IsActive    *bool   `json:"is_active"`
}

func (h *Handler) updateCategory(c *gin.Context) {
	actor, _ := auth.CurrentActor(c)
	if !policy.Authorize(c, actor, policy.ActionModerate, policy.System{}) {
		return
	}

	var req updateCategoryReq
	if !httpx.BindJSON(c, &req) {
		return
	}

	cat, err := h.store.UpdateCategory(c.Request.Context(), c.Param("id"), UpdateCategory{
		Name:        req.Name,
		Description: req.Description,
		IsActive:    req.IsActive,
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.NotFound(c)
			return
		}
		httpx.Internal(c)
		return
	}
	httpx.Data(c, http.StatusOK, cat)
}

func (h *Handler) deleteCategory(c *gin.Context) {
	actor, _ := auth.CurrentActor(c)
	if !policy.Authorize(c, actor, policy.ActionModerate, policy.System{}) {
		return
	}

	err := h.store.DeleteCategory(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, ErrHasChildren):
			httpx.Message(c, http.StatusUnprocessableEntity, "La categoría tiene subcategorías asociadas")
		case errors.Is(err, ErrNotFound):
			httpx.NotFound(c)
		default:
			httpx.Internal(c)
		}
		return
	}
	httpx.NoContent(c)
}

type tagListReq struct {
	Query string `form:"q" binding:"omitempty,max=120"`
}

func (h *Handler) listTags(c *gin.Context) {
	var req tagListReq
	if !httpx.BindQuery(c, &req) {
		return
	}

	page := httpx.ParsePage(c)
	items, total, err := h.store.ListTags(c.Request.Context(), req.Query, page.Limit(), page.Offset())
	if err != nil {
		httpx.Internal(c)
		return
	}
	httpx.List(c, items, page.Meta(total))
}

type createTagReq struct {
	Name string `json:"name" binding:"required,max=80"`
}

func (h *Handler) createTag(c *gin.Context) {
	var req createTagReq
	if !httpx.BindJSON(c, &req) {
		return
	}

	t, err := h.store.CreateTag(c.Request.Context(), req.Name)
	if err != nil {
		if errors.Is(err, ErrDuplicate) {
			httpx.Message(c, http.StatusConflict, "La etiqueta ya existe")
			return
		}
		httpx.Internal(c)
		return
	}
	httpx.Data(c, http.StatusCreated, t)
}

func (h *Handler) showTag(c *gin.Context) {
	t, err := h.store.GetTag(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.NotFound(c)
			return
		}
		httpx.Internal(c)
		return
	}
	httpx.Data(c, http.StatusOK, t)
}

func (h *Handler) deleteTag(c *gin.Context) {
	actor, _ := auth.CurrentActor(c)
	if !policy.Authorize(c, actor, policy.ActionModerate, policy.System{}) {
		return
	}

	if err := h.store.DeleteTag(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.NotFound(c)
			return
		}
		httpx.Internal(c)
		return
	}
	httpx.NoContent(c)
}
