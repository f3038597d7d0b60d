package community

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
	ListTopics(ctx context.Context, f TopicFilter) ([]Topic, int64, error)
	CreateTopic(ctx context.Context, in NewTopic) (*Topic, error)
	GetTopic(ctx context.Context, idOrSlug string) (*Topic, error)
	UpdateTopic(ctx context.Context, id string, in UpdateTopic) (*Topic, error)
	DeleteTopic(ctx context.Context, id string) error
	ToggleMembership(ctx context.Context, topicID, userID string) (bool, int, error)
	GetTopicsByIDs(ctx context.Context, ids []string) ([]Topic, error)

	ListPosts(ctx context.Context, f PostFilter) ([]Post, int64, error)
	CreatePost(ctx context.Context, in NewPost) (*Post, error)
	GetPost(ctx context.Context, id string) (*Post, error)
	RecordView(ctx context.Context, id string) (*Post, error)
	UpdatePost(ctx context.Context, id string, in UpdatePost) (*Post, error)
	DeletePost(ctx context.Context, id string) error

	ListComments(ctx context.Context, postID string, limit, offset int) ([]Comment, int64, error)
	CreateComment(ctx context.Context, in NewComment) (*Comment, error)
	GetComment(ctx context.Context, id string) (*Comment, error)
	UpdateComment(ctx context.Context, id, content string) (*Comment, error)
	DeleteComment(ctx context.Context, id string) error
}

// Ranker is the trending backend; nil disables trending routes' Redis
// side effects but keeps the API shape.
type Ranker interface {
	Touch(ctx context.Context, topicID string, weight float64) error
	Top(ctx context.Context, n int) ([]string, error)
}

type Handler struct {
	store    Store
	trending Ranker
	log      zerolog.Logger
}

func Register(api *gin.RouterGroup, store Store, trending Ranker, log zerolog.Logger) {
	h := &Handler{store: store, trending: trending, log: log}

	topics := api.Group("/topics")
	topics.GET("", h.listTopics)
	topics.GET("/trending", h.trendingTopics)
	topics.POST("", auth.Require(), h.createTopic)
	topics.GET("/:id", h.showTopic)
	topics.PATCH("/:id", auth.Require(), h.updateTopic)
	topics.DELETE("/:id", auth.Require(), h.deleteTopic)
	topics.POST("/:id/join", auth.Require(), h.toggleMembership)
	topics.GET("/:id/posts", h.listPosts)
	topics.POST("/:id/posts", auth.Require(), h.createPost)

	posts := api.Group("/posts")
	posts.GET("/:id", h.showPost)
	posts.PATCH("/:id", auth.Require(), h.updatePost)
	posts.DELETE("/:id", auth.Require(), h.deletePost)
	posts.GET("/:id/comments", h.listComments)
	posts.POST("/:id/comments", auth.Require(), h.createComment)

	comments := api.Group("/comments")
	comments.PATCH("/:id", auth.Require(), h.updateComment)
	comments.DELETE("/:id", auth.Require(), h.deleteComment)
}

// touch is best-effort: a Redis outage must not fail the request.
func (h *Handler) touch(c *gin.Context, topicID string, weight float64) {
	if h.trending == nil {
		return
	}
	if err := h.trending.Touch(c.Request.Context(), topicID, weight); err != nil {
		h.log.Warn().Err(err).Str("topic_id", topicID).Msg("trending touch failed")
	}
}

type topicListReq struct {
	CategoryID string `form:"category_id" binding:"omitempty,uuid"`
	Query      string `form:"q" binding:"omitempty,max=120"`
}

func (h *Handler) listTopics(c *gin.Context) {
	var req topicListReq
	if !httpx.BindQuery(c, &req) {
		return
	}

	page := httpx.ParsePage(c)
	items, total, err := h.store.ListTopics(c.Request.Context(), TopicFilter{
		CategoryID: req.CategoryID,
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

func (h *Handler) trendingTopics(c *gin.Context) {
	if h.trending == nil {
		httpx.Data(c, http.StatusOK, []Topic{})
		return
	}

	ids, err := h.trending.Top(c.Request.Context(), 10)
	if err != nil {
		httpx.Internal(c)
		return
	}

	topics, err := h.store.GetTopicsByIDs(c.Request.Context(), ids)
	if err != nil {
		httpx.Internal(c)
		return
	}
	httpx.Data(c, http.StatusOK, topics)
}

type createTopicReq struct {
	Name        string  `json:"name" binding:"required,max=140"`
	Description *string `json:"description" binding:"omitempty,max=2000"`
	CategoryID  *string `json:"category_id" binding:"omitempty,uuid"`
}

func (h *Handler) createTopic(c *gin.Context) {
	actor, _ := auth.CurrentActor(c)

	var req createTopicReq
	if !httpx.BindJSON(c, &req) {
		return
	}

	t, err := h.store.CreateTopic(c.Request.Context(), NewTopic{
		UserID:      actor.ID,
		CategoryID:  req.CategoryID,
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		httpx.Internal(c)
		return
	}
	httpx.Data(c, http.StatusCreated, t)
}

func (h *Handler) showTopic(c *gin.Context) {
	t, err := h.store.GetTopic(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.NotFound(c)
			return
		}
		httpx.Internal(c)
		return
	}
	h.touch(c, t.ID, WeightView)
	httpx.Data(c, http.StatusOK, t)
}

type updateTopicReq struct {
	Name        *string `json:"name" binding:"omitempty,max=140"`
	Description *string `json:"description" binding:"omitempty,max=2000"`
	CategoryID  *string `json:"category_id" binding:"omitempty,uuid"`
}

func (h *Handler) updateTopic(c *gin.Context) {
	actor, _ := auth.CurrentActor(c)

	existing, err := h.store.GetTopic(c.Request.Context(), c.Param("id"))
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

	var req updateTopicReq
	if !httpx.BindJSON(c, &req) {
		return
	}

	t, err := h.store.UpdateTopic(c.Request.Context(), existing.ID, UpdateTopic{
		Name:        req.Name,
		Description: req.Description,
		CategoryID:  req.CategoryID,
	})
	if err != nil {
		httpx.Internal(c)
		return
	}
	httpx.Data(c, http.StatusOK, t)
}

func (h *Handler) deleteTopic(c *gin.Context) {
	actor, _ := auth.CurrentActor(c)

	existing, err := h.store.GetTopic(c.Request.Context(), c.Param("id"))
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

	if err := h.store.DeleteTopic(c.Request.Context(), existing.ID); err != nil {
		httpx.Internal(c)
		return
	}
	httpx.NoContent(c)
}

func (h *Handler) toggleMembership(c *gin.Context) {
	actor, _ := auth.CurrentActor(c)

	topic, err := h.store.GetTopic(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.NotFound(c)
			return
		}
		httpx.Internal(c)
		return
	}

	joined, members, err := h.store.ToggleMembership(c.Request.Context(), topic.ID, actor.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.NotFound(c)
			return
		}
		httpx.Internal(c)
		return
	}

	if joined {
		h.touch(c, topic.ID, WeightMember)
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"joined":        joined,
		"members_count": members,
	}})
}

func (h *Handler) listPosts(c *gin.Context) {
	topic, err := h.store.GetTopic(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.NotFound(c)
			return
		}
		httpx.Internal(c)
		return
	}

	page := httpx.ParsePage(c)
	items, total, err := h.store.ListPosts(c.Request.Context(), PostFilter{
		TopicID: topic.ID,
		Query:   c.Query("q"),
		Limit:   page.Limit(),
		Offset:  page.Offset(),
	})
	if err != nil {
		httpx.Internal(c)
		return
	}
	httpx.List(c, items, page.Meta(total))
}

type createPostReq struct {
	Title   string `json:"title" binding:"required,max=200"`
	Content string `json:"content" binding:"required,max=20000"`
}

func (h *Handler) createPost(c *gin.Context) {
	actor, _ := auth.CurrentActor(c)

	topic, err := h.store.GetTopic(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.NotFound(c)
			return
		}
		httpx.Internal(c)
		return
	}

	var req createPostReq
	if !httpx.BindJSON(c, &req) {
		return
	}

	p, err := h.store.CreatePost(c.Request.Context(), NewPost{
		TopicID: topic.ID,
		UserID:  actor.ID,
		Title:   req.Title,
		Content: req.Content,
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.NotFound(c)
			return
		}
		httpx.Internal(c)
		return
	}

	h.touch(c, topic.ID, WeightPost)
	httpx.Data(c, http.StatusCreated, p)
}

func (h *Handler) showPost(c *gin.Context) {
	p, err := h.store.RecordView(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.NotFound(c)
			return
		}
		httpx.Internal(c)
		return
	}
	h.touch(c, p.TopicID, WeightView)
	httpx.Data(c, http.StatusOK, p)
}

type updatePostReq struct {
	Title   *string `json:"title" binding:"omitempty,max=200"`
	Content *string `json:"content" binding:"omitempty,max=20000"`
}

func (h *Handler) updatePost(c *gin.Context) {
	actor, _ := auth.CurrentActor(c)

	existing, err := h.store.GetPost(c.Request.Context(), c.Param("id"))
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

	var req updatePostReq
	if !httpx.BindJSON(c, &req) {
		return
	}

	p, err := h.store.UpdatePost(c.Request.Context(), existing.ID, UpdatePost{
		Title:   req.Title,
		Content: req.Content,
	})
	if err != nil {
		httpx.Internal(c)
		return
	}
	httpx.Data(c, http.StatusOK, p)
}

func (h *Handler) deletePost(c *gin.Context) {
	actor, _ := auth.CurrentActor(c)

	existing, err := h.store.GetPost(c.Request.Context(), c.Param("id"))
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

	if err := h.store.DeletePost(c.Request.Context(), existing.ID); err != nil {
		httpx.Internal(c)
		return
	}
	httpx.NoContent(c)
}

func (h *Handler) listComments(c *gin.Context) {
	post, err := h.store.GetPost(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.NotFound(c)
			return
		}
		httpx.Internal(c)
		return
	}

	page := httpx.ParsePage(c)
	items, total, err := h.store.ListComments(c.Request.Context(), post.ID, page.Limit(), page.Offset())
	if err != nil {
		httpx.Internal(c)
		return
	}
	httpx.List(c, items, page.Meta(total))
}

type createCommentReq struct {
	Content  string  `json:"content" binding:"required,max=5000"`
	ParentID *string `json:"parent_id" binding:"omitempty,uuid"`
}

func (h *Handler) createComment(c *gin.Context) {
	actor, _ := auth.CurrentActor(c)

	post, err := h.store.GetPost(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.NotFound(c)
			return
		}
		httpx.Internal(c)
		return
	}

	var req createCommentReq
	if !httpx.BindJSON(c, &req) {
		return
	}

	cm, err := h.store.CreateComment(c.Request.Context(), NewComment{
		PostID:   post.ID,
		UserID:   actor.ID,
		ParentID: req.ParentID,
		Content:  req.Content,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidParent):
			httpx.Message(c, http.StatusUnprocessableEntity, "El comentario padre no es válido")
		case errors.Is(err, ErrNotFound):
			httpx.NotFound(c)
		default:
			httpx.Internal(c)
		}
		return
	}
	httpx.Data(c, http.StatusCreated, cm)
}

type updateCommentReq struct {
	Content string `json:"content" binding:"required,max=5000"`
}

func (h *Handler) updateComment(c *gin.Context) {
	actor, _ := auth.CurrentActor(c)

	existing, err := h.store.GetComment(c.Request.Context(), c.Param("id"))
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

	var req updateCommentReq
	if !httpx.BindJSON(c, &req) {
		return
	}

	cm, err := h.store.UpdateComment(c.Request.Context(), existing.ID, req.Content)
	if err != nil {
		httpx.Internal(c)
		return
	}
	httpx.Data(c, http.StatusOK, cm)
}

func (h *Handler) deleteComment(c *gin.Context) {
	actor, _ := auth.CurrentActor(c)

	existing, err := h.store.GetComment(c.Request.Context(), c.Param("id"))
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

	if err := h.store.DeleteComment(c.Request.Context(), existing.ID); err != nil {
		httpx.Internal(c)
		return
	}
	httpx.NoContent(c)
}
