package engagement

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ecovida/ecovida-backend/internal/auth"
	"github.com/ecovida/ecovida-backend/internal/httpx"
)

type Store interface {
	ToggleVote(ctx context.Context, userID string, kind TargetKind, targetID string, vt VoteType) (*VoteResult, error)
	ListVotes(ctx context.Context, userID string, kind TargetKind, limit, offset int) ([]Vote, int64, error)
	ToggleBookmark(ctx context.Context, userID string, kind TargetKind, targetID string) (bool, error)
	ListBookmarks(ctx context.Context, userID string, kind TargetKind, limit, offset int) ([]Bookmark, int64, error)
}

type Handler struct {
	store Store
}

func Register(api *gin.RouterGroup, store Store) {
	h := &Handler{store: store}

	votes := api.Group("/content-votes", auth.Require())
	votes.POST("/vote", h.vote)
	votes.GET("", h.listVotes)

	bookmarks := api.Group("/bookmarks", auth.Require())
	bookmarks.POST("/toggle", h.toggleBookmark)
	bookmarks.GET("", h.listBookmarks)
}

type voteReq struct {
	VotableType TargetKind `json:"votable_type" binding:"required,oneof=post comment news_article"`
	VotableID   string     `json:"votable_id" binding:"required,uuid"`
	VoteType    VoteType   `json:"vote_type" binding:"required,oneof=upvote downvote"`
}

func (h *Handler) vote(c *gin.Context) {
	actor, _ := auth.CurrentActor(c)

	var req voteReq
	if !httpx.BindJSON(c, &req) {
		return
	}

	res, err := h.store.ToggleVote(c.Request.Context(), actor.ID, req.VotableType, req.VotableID, req.VoteType)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnknownTarget):
			httpx.Message(c, http.StatusUnprocessableEntity, "Tipo de contenido no válido")
		case errors.Is(err, ErrNotFound):
			httpx.NotFound(c)
		default:
			httpx.Internal(c)
		}
		return
	}
	httpx.Data(c, http.StatusOK, res)
}

type voteListReq struct {
	Kind TargetKind `form:"votable_type" binding:"omitempty,oneof=post comment news_article"`
}

func (h *Handler) listVotes(c *gin.Context) {
	actor, _ := auth.CurrentActor(c)

	var req voteListReq
	if !httpx.BindQuery(c, &req) {
		return
	}

	page := httpx.ParsePage(c)
	items, total, err := h.store.ListVotes(c.Request.Context(), actor.ID, req.Kind, page.Limit(), page.Offset())
	if err != nil {
		httpx.Internal(c)
		return
	}
	httpx.List(c, items, page.Meta(total))
}

type bookmarkReq struct {
	BookmarkableType TargetKind `json:"bookmarkable_type" binding:"required,oneof=post comment news_article proposal"`
	BookmarkableID   string     `json:"bookmarkable_id" binding:"required,uuid"`
}

func (h *Handler) toggleBookmark(c *gin.Context) {
	actor, _ := auth.CurrentActor(c)

	var req bookmarkReq
	if !httpx.BindJSON(c, &req) {
		return
	}

	saved, err := h.store.ToggleBookmark(c.Request.Context(), actor.ID, req.BookmarkableType, req.BookmarkableID)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnknownTarget):
			httpx.Message(c, http.StatusUnprocessableEntity, "Tipo de contenido no válido")
		case errors.Is(err, ErrNotFound):
			httpx.NotFound(c)
		default:
			httpx.Internal(c)
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"saved": saved}})
}

type bookmarkListReq struct {
	Kind TargetKind `form:"bookmarkable_type" binding:"omitempty,oneof=post comment news_article proposal"`
}

func (h *Handler) listBookmarks(c *gin.Context) {
	actor, _ := auth.CurrentActor(c)

	var req bookmarkListReq
	if !httpx.BindQuery(c, &req) {
		return
	}

	page := httpx.ParsePage(c)
	items, total, err := h.store.ListBookmarks(c.Request.Context(), actor.ID, req.Kind, page.Limit(), page.Offset())
	if err != nil {
		httpx.Internal(c)
		return
	}
	httpx.List(c, items, page.Meta(total))
}
