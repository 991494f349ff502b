package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/compasshq/compass/internal/pkg/errcode"
	"github.com/compasshq/compass/internal/pkg/response"
	"github.com/compasshq/compass/internal/repo"
	"github.com/compasshq/compass/internal/service"
)

type PodcastHandler struct {
	podcasts *repo.PodcastRepo
	feeds    *service.FeedService
}

func NewPodcastHandler(podcasts *repo.PodcastRepo, feeds *service.FeedService) *PodcastHandler {
	return &PodcastHandler{podcasts: podcasts, feeds: feeds}
}

type subscribeRequest struct {
	FeedURL string `json:"feed_url"`
}

func (h *PodcastHandler) Subscribe(c *gin.Context) {
	var req subscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	if strings.TrimSpace(req.FeedURL) == "" {
		response.Error(c, errcode.ErrInvalid, "feed_url is required")
		return
	}
	podcast, err := h.feeds.Subscribe(c.Request.Context(), req.FeedURL)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, podcast)
}

func (h *PodcastHandler) List(c *gin.Context) {
	podcasts, err := h.podcasts.List(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"podcasts": podcasts, "total": len(podcasts)})
}

func (h *PodcastHandler) Refresh(c *gin.Context) {
	if err := h.feeds.RefreshAll(c.Request.Context()); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}
