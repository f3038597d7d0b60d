package users

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ecovida/ecovida-backend/internal/auth"
	"github.com/ecovida/ecovida-backend/internal/httpx"
)

type Handler struct {
	repo *Repo
}

func Register(rg *gin.RouterGroup, repo *Repo) {
	h := &Handler{repo: repo}

	rg.GET("/me", auth.Require(), h.me)
	rg.PATCH("/me", auth.Require(), h.updateMe)
	rg.GET("/:id", h.show)
}

func (h *Handler) me(c *gin.Context) {
	actor, _ := auth.CurrentActor(c)

	u, err := h.repo.GetByID(c.Request.Context(), actor.ID)
	if err != nil {
		httpx.Internal(c)
		return
	}
	httpx.Data(c, http.StatusOK, u)
}

type updateMeReq struct {
	DisplayName *string `json:"display_name" binding:"omitempty,max=120"`
	PhotoURL    *string `json:"photo_url" binding:"omitempty,max=2048,url"`
	Bio         *string `json:"bio" binding:"omitempty,max=1000"`
}

func (h *Handler) updateMe(c *gin.Context) {
	actor, _ := auth.CurrentActor(c)

	var req updateMeReq
	if !httpx.BindJSON(c, &req) {
		return
	}

	u, err := h.repo.UpdateProfile(c.Request.Context(), actor.ID, UpdateProfile{
		DisplayName: req.DisplayName,
		PhotoURL:    req.PhotoURL,
		Bio:         req.Bio,
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.NotFound(c)
			return
		}
		httpx.Internal(c)
		return
	}
	httpx.Data(c, http.StatusOK, u)
}

func (h *Handler) show(c *gin.Context) {
	u, err := h.repo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.NotFound(c)
			return
		}
		httpx.Internal(c)
		return
	}
	httpx.Data(c, http.StatusOK, u)
}
