package service

import (
	"context"
	"errors"
	"sync"

	"github.com/compasshq/compass/internal/graph"
	"github.com/compasshq/compass/internal/model"
	appErr "github.com/compasshq/compass/internal/pkg/errors"
)

var errStoreDown = errors.New("store down")

type fakeGraphStore struct {
	mu            sync.Mutex
	nodes         map[string]*model.EntityNode
	upserted      []*model.EntityNode
	relationships [][5]string
	neighbors     []model.RelatedEntity
	occurrences   []graph.CoOccurrence
	candidates    []model.EntityNode
	vectorResults []model.SearchResult

	neighborsErr   error
	occurrencesErr error
	vectorErr      error
	resolveErr     error
	upsertErr      error
	candidatesErr  error

	vectorCalls []string
}

func newFakeGraphStore() *fakeGraphStore {
	return &fakeGraphStore{nodes: make(map[string]*model.EntityNode)}
}

func (f *fakeGraphStore) UpsertEntity(ctx context.Context, node *model.EntityNode) (string, error) {
	if f.upsertErr != nil {
		return "", f.upsertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserted = append(f.upserted, node)
	f.nodes[node.EntityType+"/"+node.EntityID] = node
	return "node-" + node.EntityID, nil
}

func (f *fakeGraphStore) nodeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.nodes)
}

func (f *fakeGraphStore) UpsertRelationship(ctx context.Context, fromType, fromID, toType, toID, relType string) error {
	f.relationships = append(f.relationships, [5]string{fromType, fromID, toType, toID, relType})
	return nil
}

func (f *fakeGraphStore) Resolve(ctx context.Context, entityType, key string) (*model.EntityNode, error) {
	if f.resolveErr != nil {
		return nil, f.resolveErr
	}
	if node, ok := f.nodes[entityType+"/"+key]; ok {
		return node, nil
	}
	for _, node := range f.nodes {
		if node.EntityType == entityType && node.CanonicalName == key {
			return node, nil
		}
	}
	return nil, appErr.ErrNotFound
}

func (f *fakeGraphStore) Neighbors(ctx context.Context, entityType, entityID string, limit int) ([]model.RelatedEntity, error) {
	if f.neighborsErr != nil {
		return nil, f.neighborsErr
	}
	return f.neighbors, nil
}

func (f *fakeGraphStore) CoOccurrences(ctx context.Context, entityType, entityID string, limit int) ([]graph.CoOccurrence, error) {
	if f.occurrencesErr != nil {
		return nil, f.occurrencesErr
	}
	return f.occurrences, nil
}

func (f *fakeGraphStore) FuzzyCandidates(ctx context.Context, entityType string, limit int) ([]model.EntityNode, error) {
	if f.candidatesErr != nil {
		return nil, f.candidatesErr
	}
	return f.candidates, nil
}

func (f *fakeGraphStore) VectorQuery(ctx context.Context, entityType string, embedding []float32, k int, minScore float64) ([]model.SearchResult, error) {
	if f.vectorErr != nil {
		return nil, f.vectorErr
	}
	f.vectorCalls = append(f.vectorCalls, entityType)
	out := make([]model.SearchResult, 0, len(f.vectorResults))
	for _, result := range f.vectorResults {
		if entityType != "" && result.EntityType != entityType {
			continue
		}
		if result.RelevanceScore < minScore {
			continue
		}
		out = append(out, result)
	}
	return out, nil
}

func (f *fakeGraphStore) Stats(ctx context.Context) (*model.GraphStats, error) {
	return &model.GraphStats{TotalNodes: int64(len(f.nodes))}, nil
}

func (f *fakeGraphStore) Health(ctx context.Context) error {
	return nil
}

type fakeEmbedder struct {
	embedding []float32
	err       error
	calls     int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.embedding != nil {
		return f.embedding, nil
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func (f *fakeEmbedder) ModelName() string {
	return "fake-embedding-model"
}
