package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/compasshq/compass/internal/middleware"
)

type RouterDeps struct {
	Search   *SearchHandler
	Graph    *GraphHandler
	Episodes *EpisodeHandler
	Podcasts *PodcastHandler
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.POST("/search", deps.Search.Search)

	api.POST("/graph/index", deps.Graph.Index)
	api.POST("/graph/relate", deps.Graph.Relate)
	api.GET("/graph/related", deps.Graph.Related)
	api.GET("/graph/stats", deps.Graph.Stats)
	api.GET("/graph/health", deps.Graph.Health)

	api.POST("/podcasts", deps.Podcasts.Subscribe)
	api.GET("/podcasts", deps.Podcasts.List)
	api.POST("/podcasts/refresh", deps.Podcasts.Refresh)

	api.GET("/episodes/untranscribed", deps.Episodes.ListUntranscribed)
	api.GET("/episodes/transcription/stats", deps.Episodes.TranscriptionStats)
	api.GET("/episodes/:id", deps.Episodes.Get)

	transcribeGroup := api.Group("")
	transcribeGroup.Use(middleware.RateLimit(time.Second))
	transcribeGroup.POST("/episodes/:id/transcribe", deps.Episodes.Transcribe)
	transcribeGroup.POST("/episodes/transcribe/batch", deps.Episodes.TranscribeBatch)
}
