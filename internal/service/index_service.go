package service

import (
	"context"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/compasshq/compass/internal/ai"
	appErr "github.com/compasshq/compass/internal/pkg/errors"

	"github.com/compasshq/compass/internal/model"
)

type IndexInput struct {
	EntityID      string                 `json:"entity_id"`
	EntityType    string                 `json:"entity_type"`
	Content       string                 `json:"content"`
	CanonicalName string                 `json:"canonical_name"`
	Metadata      map[string]interface{} `json:"metadata"`
}

// IndexService writes domain entities into the knowledge graph. Indexing is
// best-effort from the caller's point of view: CRUD writes enqueue work after
// commit and never see indexing failures.
type IndexService struct {
	store    GraphStore
	embedder ai.IEmbedder
	queue    chan IndexInput
}

func NewIndexService(store GraphStore, embedder ai.IEmbedder, queueSize int) *IndexService {
	if queueSize <= 0 {
		queueSize = 1024
	}
	return &IndexService{
		store:    store,
		embedder: embedder,
		queue:    make(chan IndexInput, queueSize),
	}
}

// Index upserts one entity node and returns the store-side node id. Empty
// content is indexed without an embedding; an embedding failure downgrades to
// a node without an embedding rather than failing the upsert.
func (s *IndexService) Index(ctx context.Context, in IndexInput) (string, error) {
	if strings.TrimSpace(in.EntityID) == "" || strings.TrimSpace(in.EntityType) == "" {
		return "", appErr.ErrInvalid
	}
	logger := logutil.GetLogger(ctx).With(
		zap.String("entity_type", in.EntityType),
		zap.String("entity_id", in.EntityID),
	)

	content := markdownToText(in.Content)
	var embedding []float32
	if content != "" {
		values, err := s.embedder.Embed(ctx, content, ai.TaskTypeDocument)
		if err != nil {
			logger.Warn("embedding failed, indexing without vector", zap.Error(err))
		} else {
			embedding = values
		}
	}

	nodeID, err := s.store.UpsertEntity(ctx, &model.EntityNode{
		EntityID:      in.EntityID,
		EntityType:    strings.ToLower(strings.TrimSpace(in.EntityType)),
		Content:       in.Content,
		Metadata:      in.Metadata,
		Embedding:     embedding,
		CanonicalName: strings.TrimSpace(in.CanonicalName),
	})
	if err != nil {
		return "", err
	}
	logger.Debug("entity indexed", zap.String("node_id", nodeID))
	return nodeID, nil
}

// Relate merges a typed relationship between two already-indexed entities.
func (s *IndexService) Relate(ctx context.Context, fromType, fromID, toType, toID, relType string) error {
	if fromID == "" || toID == "" || fromType == "" || toType == "" {
		return appErr.ErrInvalid
	}
	return s.store.UpsertRelationship(ctx, fromType, fromID, toType, toID, relType)
}

// Enqueue hands an entity to the background indexer. It never blocks: when
// the queue is full the entry is dropped and picked up by the next reindex
// sweep.
func (s *IndexService) Enqueue(ctx context.Context, in IndexInput) {
	select {
	case s.queue <- in:
	default:
		logutil.GetLogger(ctx).Warn("index queue full, dropping entity",
			zap.String("entity_type", in.EntityType),
			zap.String("entity_id", in.EntityID),
		)
	}
}

// Start drains the index queue until ctx is cancelled. Errors are logged and
// swallowed; a failed entry is retried by the reindex job, not here.
func (s *IndexService) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case in := <-s.queue:
				if _, err := s.Index(ctx, in); err != nil {
					logutil.GetLogger(ctx).Warn("background indexing failed",
						zap.String("entity_type", in.EntityType),
						zap.String("entity_id", in.EntityID),
						zap.Error(err),
					)
				}
			}
		}
	}()
}
