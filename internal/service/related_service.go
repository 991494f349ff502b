package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/agnivade/levenshtein"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/compasshq/compass/internal/model"
	appErr "github.com/compasshq/compass/internal/pkg/errors"
)

const (
	directRelationScore = 0.9
	coOccurrenceScore   = 0.8
)

// RelatedService discovers entities related to a given one by combining
// three independent candidate providers: direct graph relationships, vector
// similarity, and co-occurrence through shared intermediate nodes. Candidates
// found by more than one provider keep their highest score.
type RelatedService struct {
	store GraphStore
}

func NewRelatedService(store GraphStore) *RelatedService {
	return &RelatedService{store: store}
}

// FindRelated resolves the key (entity id or canonical name) to one node and
// merges the provider results. When no node resolves, it falls back to fuzzy
// name matching over nodes of the same type and returns those directly.
func (s *RelatedService) FindRelated(ctx context.Context, entityType, key string, limit int, threshold float64) ([]model.RelatedEntity, error) {
	entityType = strings.ToLower(strings.TrimSpace(entityType))
	key = strings.TrimSpace(key)
	if entityType == "" || key == "" {
		return nil, appErr.ErrInvalid
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if threshold <= 0 {
		threshold = defaultMinRelevance
	}
	if threshold > 1 {
		return nil, fmt.Errorf("%w: similarity_threshold must be in (0,1]", appErr.ErrInvalid)
	}

	node, err := s.store.Resolve(ctx, entityType, key)
	if appErr.IsNotFound(err) {
		return s.fuzzyFallback(ctx, entityType, key, limit, threshold)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", appErr.ErrUnavailable, err)
	}

	var (
		mu         sync.Mutex
		candidates []model.RelatedEntity
	)
	collect := func(items []model.RelatedEntity) {
		mu.Lock()
		candidates = append(candidates, items...)
		mu.Unlock()
	}
	logger := logutil.GetLogger(ctx).With(
		zap.String("entity_type", entityType),
		zap.String("entity_id", node.EntityID),
	)

	// Each provider failing alone only loses its own candidates.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		neighbors, err := s.store.Neighbors(gctx, node.EntityType, node.EntityID, limit)
		if err != nil {
			logger.Warn("direct-relationship strategy failed", zap.Error(err))
			return nil
		}
		for i := range neighbors {
			neighbors[i].RelevanceScore = directRelationScore
		}
		collect(neighbors)
		return nil
	})
	g.Go(func() error {
		if len(node.Embedding) == 0 {
			return nil
		}
		similar, err := s.store.VectorQuery(gctx, node.EntityType, node.Embedding, limit+1, threshold)
		if err != nil {
			logger.Warn("vector-similarity strategy failed", zap.Error(err))
			return nil
		}
		items := make([]model.RelatedEntity, 0, len(similar))
		for _, result := range similar {
			if result.EntityID == node.EntityID && result.EntityType == node.EntityType {
				continue
			}
			items = append(items, model.RelatedEntity{
				EntityID:       result.EntityID,
				EntityType:     result.EntityType,
				Content:        result.Content,
				Metadata:       result.Metadata,
				RelevanceScore: result.RelevanceScore,
				Evidence:       "similarity",
			})
		}
		collect(items)
		return nil
	})
	g.Go(func() error {
		occurrences, err := s.store.CoOccurrences(gctx, node.EntityType, node.EntityID, limit)
		if err != nil {
			logger.Warn("co-occurrence strategy failed", zap.Error(err))
			return nil
		}
		items := make([]model.RelatedEntity, 0, len(occurrences))
		for _, occ := range occurrences {
			item := occ.Entity
			item.RelevanceScore = coOccurrenceScore
			items = append(items, item)
		}
		collect(items)
		return nil
	})
	_ = g.Wait()

	return mergeMaxWins(candidates, limit), nil
}

// mergeMaxWins unions candidates keyed by target entity; a candidate seen by
// multiple providers keeps the single highest score, never a combination.
func mergeMaxWins(candidates []model.RelatedEntity, limit int) []model.RelatedEntity {
	best := make(map[string]model.RelatedEntity, len(candidates))
	order := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		key := candidate.EntityType + "/" + candidate.EntityID
		existing, ok := best[key]
		if !ok {
			best[key] = candidate
			order = append(order, key)
			continue
		}
		if candidate.RelevanceScore > existing.RelevanceScore {
			best[key] = candidate
		}
	}
	merged := make([]model.RelatedEntity, 0, len(order))
	for _, key := range order {
		merged = append(merged, best[key])
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].RelevanceScore > merged[j].RelevanceScore
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

// fuzzyFallback matches the key against names of all nodes of the type by
// normalized edit distance. This is the terminal path for unresolved keys.
func (s *RelatedService) fuzzyFallback(ctx context.Context, entityType, key string, limit int, threshold float64) ([]model.RelatedEntity, error) {
	nodes, err := s.store.FuzzyCandidates(ctx, entityType, defaultFuzzyCandidatePool)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", appErr.ErrUnavailable, err)
	}
	var out []model.RelatedEntity
	for _, node := range nodes {
		score := nameSimilarity(key, node)
		if score < threshold {
			continue
		}
		out = append(out, model.RelatedEntity{
			EntityID:       node.EntityID,
			EntityType:     node.EntityType,
			Content:        node.Content,
			Metadata:       node.Metadata,
			RelevanceScore: score,
			Evidence:       "fuzzy_match",
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RelevanceScore > out[j].RelevanceScore
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func nameSimilarity(key string, node model.EntityNode) float64 {
	name := node.CanonicalName
	if name == "" {
		name = node.Content
		if idx := strings.IndexByte(name, '\n'); idx >= 0 {
			name = name[:idx]
		}
	}
	name = strings.ToLower(strings.TrimSpace(name))
	key = strings.ToLower(key)
	if name == "" {
		return 0
	}
	distance := levenshtein.ComputeDistance(key, name)
	longest := len([]rune(key))
	if n := len([]rune(name)); n > longest {
		longest = n
	}
	if longest == 0 {
		return 0
	}
	return 1 - float64(distance)/float64(longest)
}
