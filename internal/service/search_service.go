package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/compasshq/compass/internal/ai"
	"github.com/compasshq/compass/internal/model"
	appErr "github.com/compasshq/compass/internal/pkg/errors"
)

const (
	defaultSearchLimit        = 10
	maxSearchLimit            = 100
	defaultMinRelevance       = 0.7
	defaultFuzzyCandidatePool = 500
)

type SearchInput struct {
	Query        string   `json:"query"`
	Limit        int      `json:"limit"`
	EntityTypes  []string `json:"entity_types"`
	MinRelevance *float64 `json:"min_relevance"`
}

type SearchOutput struct {
	Query           string               `json:"query"`
	Results         []model.SearchResult `json:"results"`
	TotalResults    int                  `json:"total_results"`
	ExecutionTimeMS float64              `json:"execution_time_ms"`
}

type SearchService struct {
	store    GraphStore
	embedder ai.IEmbedder
}

func NewSearchService(store GraphStore, embedder ai.IEmbedder) *SearchService {
	return &SearchService{store: store, embedder: embedder}
}

// Search embeds the query and runs a nearest-neighbor lookup per requested
// entity type (or one across all types), merged and ranked by score. Equal
// scores keep the store's order; no secondary sort key is applied.
func (s *SearchService) Search(ctx context.Context, in SearchInput) (*SearchOutput, error) {
	query := strings.TrimSpace(in.Query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", appErr.ErrInvalid)
	}
	limit := in.Limit
	if limit == 0 {
		limit = defaultSearchLimit
	}
	if limit < 1 || limit > maxSearchLimit {
		return nil, fmt.Errorf("%w: limit must be in [1,%d]", appErr.ErrInvalid, maxSearchLimit)
	}
	minRelevance := defaultMinRelevance
	if in.MinRelevance != nil {
		minRelevance = *in.MinRelevance
	}
	if minRelevance < 0 || minRelevance > 1 {
		return nil, fmt.Errorf("%w: min_relevance must be in [0,1]", appErr.ErrInvalid)
	}

	start := time.Now()
	embedding, err := s.embedder.Embed(ctx, query, ai.TaskTypeQuery)
	if err != nil {
		logutil.GetLogger(ctx).Error("query embedding failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", appErr.ErrUnavailable, err)
	}

	var merged []model.SearchResult
	if len(in.EntityTypes) == 0 {
		merged, err = s.store.VectorQuery(ctx, "", embedding, limit, minRelevance)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", appErr.ErrUnavailable, err)
		}
	} else {
		for _, entityType := range in.EntityTypes {
			results, err := s.store.VectorQuery(ctx, entityType, embedding, limit, minRelevance)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", appErr.ErrUnavailable, err)
			}
			merged = append(merged, results...)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].RelevanceScore > merged[j].RelevanceScore
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}

	out := &SearchOutput{
		Query:           query,
		Results:         merged,
		TotalResults:    len(merged),
		ExecutionTimeMS: float64(time.Since(start).Microseconds()) / 1000.0,
	}
	logutil.GetLogger(ctx).Debug("semantic search",
		zap.String("query", query),
		zap.Int("results", out.TotalResults),
		zap.Float64("elapsed_ms", out.ExecutionTimeMS),
	)
	return out, nil
}
