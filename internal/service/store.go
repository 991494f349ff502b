package service

import (
	"context"

	"github.com/compasshq/compass/internal/graph"
	"github.com/compasshq/compass/internal/model"
)

// GraphStore is the slice of the graph client the knowledge-graph services
// depend on. *graph.Client satisfies it; tests swap in fakes.
type GraphStore interface {
	UpsertEntity(ctx context.Context, node *model.EntityNode) (string, error)
	UpsertRelationship(ctx context.Context, fromType, fromID, toType, toID, relType string) error
	Resolve(ctx context.Context, entityType, key string) (*model.EntityNode, error)
	Neighbors(ctx context.Context, entityType, entityID string, limit int) ([]model.RelatedEntity, error)
	CoOccurrences(ctx context.Context, entityType, entityID string, limit int) ([]graph.CoOccurrence, error)
	FuzzyCandidates(ctx context.Context, entityType string, limit int) ([]model.EntityNode, error)
	VectorQuery(ctx context.Context, entityType string, embedding []float32, k int, minScore float64) ([]model.SearchResult, error)
	Stats(ctx context.Context) (*model.GraphStats, error)
	Health(ctx context.Context) error
}
