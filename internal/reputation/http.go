package reputation

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/ecovida/ecovida-backend/internal/auth"
	"github.com/ecovida/ecovida-backend/internal/httpx"
	"github.com/ecovida/ecovida-backend/internal/policy"
)

type Store interface {
	AddTransaction(ctx context.Context, in NewTransaction) (*Transaction, *UserReputation, error)
	GetByUser(ctx context.Context, userID string) (*UserReputation, error)
	ListTransactions(ctx context.Context, userID string, kind ScoreKind, limit, offset int) ([]Transaction, int64, error)
	Statistics(ctx context.Context) (*Stats, error)
}

type Ranking interface {
	Set(ctx context.Context, kind ScoreKind, userID string, score int) error
	Top(ctx context.Context, kind ScoreKind, n int) ([]Entry, error)
	Rank(ctx context.Context, kind ScoreKind, userID string) (*Entry, error)
}

type Handler struct {
	store   Store
	ranking Ranking
	log     zerolog.Logger
}

func Register(api *gin.RouterGroup, store Store, ranking Ranking, log zerolog.Logger) {
	h := &Handler{store: store, ranking: ranking, log: log}

	reps := api.Group("/reputations")
	reps.GET("/statistics", h.statistics)
	reps.GET("/me", auth.Require(), h.mine)
	reps.GET("/me/transactions", auth.Require(), h.myTransactions)
	reps.GET("/:user_id", h.show)

	api.POST("/reputation-transactions", auth.Require(), h.createTransaction)

	boards := api.Group("/leaderboards")
	boards.GET("/:kind", h.leaderboard)
	boards.GET("/:kind/me", auth.Require(), h.myRank)
}

func (h *Handler) statistics(c *gin.Context) {
	s, err := h.store.Statistics(c.Request.Context())
	if err != nil {
		httpx.Internal(c)
		return
	}
	httpx.Data(c, http.StatusOK, s)
}

func (h *Handler) mine(c *gin.Context) {
	actor, _ := auth.CurrentActor(c)
	h.showUser(c, actor.ID)
}

func (h *Handler) show(c *gin.Context) {
	h.showUser(c, c.Param("user_id"))
}

func (h *Handler) showUser(c *gin.Context, userID string) {
	rep, err := h.store.GetByUser(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// No ledger activity yet reads as zero scores, not 404.
			httpx.Data(c, http.StatusOK, &UserReputation{UserID: userID})
			return
		}
		httpx.Internal(c)
		return
	}
	httpx.Data(c, http.StatusOK, rep)
}

type txListReq struct {
	Kind ScoreKind `form:"kind" binding:"omitempty,oneof=credibility influence"`
}

func (h *Handler) myTransactions(c *gin.Context) {
	actor, _ := auth.CurrentActor(c)

	var req txListReq
	if !httpx.BindQuery(c, &req) {
		return
	}

	page := httpx.ParsePage(c)
	items, total, err := h.store.ListTransactions(c.Request.Context(), actor.ID, req.Kind, page.Limit(), page.Offset())
	if err != nil {
		httpx.Internal(c)
		return
	}
	httpx.List(c, items, page.Meta(total))
}

type createTxReq struct {
	UserID string    `json:"user_id" binding:"required,uuid"`
	Kind   ScoreKind `json:"kind" binding:"required,oneof=credibility influence"`
	Points int       `json:"points" binding:"required,ne=0,min=-1000,max=1000"`
	Reason string    `json:"reason" binding:"required,max=255"`
}

// createTransaction is the moderation entry point for granting or
// penalizing reputation; regular flows append through domain events.
func (h *Handler) createTransaction(c *gin.Context) {
	actor, _ := auth.CurrentActor(c)
	if !policy.Authorize(c, actor, policy.ActionModerate, policy.System{}) {
		return
	}

	var req createTxReq
	if !httpx.BindJSON(c, &req) {
		return
	}

	t, rep, err := h.store.AddTransaction(c.Request.Context(), NewTransaction{
		UserID: req.UserID,
		Kind:   req.Kind,
		Points: req.Points,
		Reason: req.Reason,
	})
	if err != nil {
		httpx.Internal(c)
		return
	}

	if h.ranking != nil {
		score := rep.CredibilityScore
		if req.Kind == KindInfluence {
			score = rep.InfluenceScore
		}
		if err := h.ranking.Set(c.Request.Context(), req.Kind, rep.UserID, score); err != nil {
			h.log.Warn().Err(err).Str("user_id", rep.UserID).Msg("leaderboard update failed")
		}
	}

	c.JSON(http.StatusCreated, gin.H{"data": t, "reputation": rep})
}

type leaderboardReq struct {
	Kind ScoreKind `uri:"kind" binding:"required,oneof=credibility influence"`
}

func (h *Handler) leaderboard(c *gin.Context) {
	var req leaderboardReq
	if err := c.ShouldBindUri(&req); err != nil {
		httpx.Message(c, http.StatusUnprocessableEntity, "Tabla de clasificación no válida")
		return
	}

	if h.ranking == nil {
		httpx.Data(c, http.StatusOK, []Entry{})
		return
	}

	n := httpx.ParsePage(c).PerPage
	entries, err := h.ranking.Top(c.Request.Context(), req.Kind, n)
	if err != nil {
		httpx.Internal(c)
		return
	}
	httpx.Data(c, http.StatusOK, entries)
}

func (h *Handler) myRank(c *gin.Context) {
	var req leaderboardReq
	if err := c.ShouldBindUri(&req); err != nil {
		httpx.Message(c, http.StatusUnprocessableEntity, "Tabla de clasificación no válida")
		return
	}

	if h.ranking == nil {
		httpx.NotFound(c)
		return
	}

	actor, _ := auth.CurrentActor(c)
	entry, err := h.ranking.Rank(c.Request.Context(), req.Kind, actor.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.NotFound(c)
			return
		}
		httpx.Internal(c)
		return
	}
	httpx.Data(c, http.StatusOK, entry)
}
