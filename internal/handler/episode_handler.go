package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/compasshq/compass/internal/pkg/errcode"
	"github.com/compasshq/compass/internal/pkg/response"
	"github.com/compasshq/compass/internal/repo"
	"github.com/compasshq/compass/internal/service"
)

type EpisodeHandler struct {
	episodes      *repo.EpisodeRepo
	transcription *service.TranscriptionService
}

func NewEpisodeHandler(episodes *repo.EpisodeRepo, transcription *service.TranscriptionService) *EpisodeHandler {
	return &EpisodeHandler{episodes: episodes, transcription: transcription}
}

func (h *EpisodeHandler) Get(c *gin.Context) {
	episode, err := h.episodes.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, episode)
}

type transcribeRequest struct {
	Language string `json:"language"`
	BeamSize int    `json:"beam_size"`
	Force    bool   `json:"force"`
}

// Transcribe queues the episode for the background transcription worker.
func (h *EpisodeHandler) Transcribe(c *gin.Context) {
	var req transcribeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, errcode.ErrInvalid, "invalid request")
			return
		}
	}
	id := c.Param("id")
	if _, err := h.episodes.GetByID(c.Request.Context(), id); err != nil {
		handleError(c, err)
		return
	}
	opts := service.TranscribeOptions{
		Language: req.Language,
		BeamSize: req.BeamSize,
		Force:    req.Force,
	}
	if !h.transcription.Enqueue(id, opts) {
		response.Error(c, errcode.ErrTooMany, "transcription queue is full")
		return
	}
	response.Success(c, gin.H{"episode_id": id, "status": "queued"})
}

type batchTranscribeRequest struct {
	EpisodeIDs []string `json:"episode_ids"`
	Language   string   `json:"language"`
	BeamSize   int      `json:"beam_size"`
	Force      bool     `json:"force"`
}

type batchTranscribeItem struct {
	EpisodeID string `json:"episode_id"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
}

// TranscribeBatch runs the pipeline inline over the given episodes, one at a
// time, and reports per-episode outcomes. One failing episode does not stop
// the rest.
func (h *EpisodeHandler) TranscribeBatch(c *gin.Context) {
	var req batchTranscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	if len(req.EpisodeIDs) == 0 {
		response.Error(c, errcode.ErrInvalid, "episode_ids is required")
		return
	}
	opts := service.TranscribeOptions{
		Language: req.Language,
		BeamSize: req.BeamSize,
		Force:    req.Force,
	}
	results := h.transcription.TranscribeBatch(c.Request.Context(), req.EpisodeIDs, opts)

	items := make([]batchTranscribeItem, 0, len(req.EpisodeIDs))
	succeeded := 0
	for _, id := range req.EpisodeIDs {
		item := batchTranscribeItem{
			EpisodeID: id,
			Success:   results[id].Success,
			Error:     results[id].Error,
		}
		if item.Success {
			succeeded++
		}
		items = append(items, item)
	}
	response.Success(c, gin.H{
		"results":   items,
		"total":     len(items),
		"succeeded": succeeded,
	})
}

func (h *EpisodeHandler) TranscriptionStats(c *gin.Context) {
	stats, err := h.transcription.Stats(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, stats)
}

func (h *EpisodeHandler) ListUntranscribed(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	episodes, err := h.transcription.ListUntranscribed(c.Request.Context(), limit)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"episodes": episodes, "total": len(episodes)})
}
