package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/compasshq/compass/internal/pkg/errcode"
	"github.com/compasshq/compass/internal/pkg/response"
	"github.com/compasshq/compass/internal/service"
)

type GraphHandler struct {
	indexer *service.IndexService
	related *service.RelatedService
	graph   *service.GraphService
}

func NewGraphHandler(indexer *service.IndexService, related *service.RelatedService, graph *service.GraphService) *GraphHandler {
	return &GraphHandler{indexer: indexer, related: related, graph: graph}
}

type indexRequest struct {
	EntityID      string                 `json:"entity_id"`
	EntityType    string                 `json:"entity_type"`
	Content       string                 `json:"content"`
	CanonicalName string                 `json:"canonical_name"`
	Metadata      map[string]interface{} `json:"metadata"`
}

// Index accepts the entity and queues it for background indexing. A full
// queue drops the request; the periodic reindex sweep picks such entities
// up later.
func (h *GraphHandler) Index(c *gin.Context) {
	var req indexRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	if strings.TrimSpace(req.EntityID) == "" || strings.TrimSpace(req.EntityType) == "" || strings.TrimSpace(req.Content) == "" {
		response.Error(c, errcode.ErrInvalid, "entity_id, entity_type and content are required")
		return
	}
	h.indexer.Enqueue(c.Request.Context(), service.IndexInput{
		EntityID:      req.EntityID,
		EntityType:    req.EntityType,
		Content:       req.Content,
		CanonicalName: req.CanonicalName,
		Metadata:      req.Metadata,
	})
	response.Success(c, gin.H{"status": "accepted"})
}

type relateRequest struct {
	FromType     string `json:"from_type"`
	FromID       string `json:"from_id"`
	ToType       string `json:"to_type"`
	ToID         string `json:"to_id"`
	Relationship string `json:"relationship"`
}

func (h *GraphHandler) Relate(c *gin.Context) {
	var req relateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	if req.FromType == "" || req.FromID == "" || req.ToType == "" || req.ToID == "" {
		response.Error(c, errcode.ErrInvalid, "from and to entities are required")
		return
	}
	if err := h.indexer.Relate(c.Request.Context(), req.FromType, req.FromID, req.ToType, req.ToID, req.Relationship); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

func (h *GraphHandler) Related(c *gin.Context) {
	entityType := c.Query("entity_type")
	key := c.Query("key")
	limit, _ := strconv.Atoi(c.Query("limit"))
	threshold, _ := strconv.ParseFloat(c.Query("similarity_threshold"), 64)

	results, err := h.related.FindRelated(c.Request.Context(), entityType, key, limit, threshold)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{
		"entity_type": entityType,
		"key":         key,
		"related":     results,
		"total":       len(results),
	})
}

func (h *GraphHandler) Stats(c *gin.Context) {
	stats, err := h.graph.Stats(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, stats)
}

func (h *GraphHandler) Health(c *gin.Context) {
	response.Success(c, h.graph.Health(c.Request.Context()))
}
