package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/compasshq/compass/internal/graph"
	"github.com/compasshq/compass/internal/model"
	appErr "github.com/compasshq/compass/internal/pkg/errors"
)

func seedNode(store *fakeGraphStore, entityType, entityID, name string) *model.EntityNode {
	node := &model.EntityNode{
		EntityID:      entityID,
		EntityType:    entityType,
		Content:       name + " content",
		CanonicalName: name,
		Embedding:     []float32{0.5, 0.5, 0.5},
	}
	store.nodes[entityType+"/"+entityID] = node
	return node
}

func TestFindRelatedMaxWinsMerge(t *testing.T) {
	store := newFakeGraphStore()
	seedNode(store, "skill", "go", "Go")
	// "docker" arrives from both the direct-relationship provider (0.9) and
	// the similarity provider (0.6); the merged result keeps 0.9 only.
	store.neighbors = []model.RelatedEntity{
		{EntityID: "docker", EntityType: "skill", RelevanceScore: 0, Evidence: "relationship:RELATED_TO"},
	}
	store.vectorResults = []model.SearchResult{
		{EntityID: "docker", EntityType: "skill", RelevanceScore: 0.6},
		{EntityID: "kubernetes", EntityType: "skill", RelevanceScore: 0.75},
	}

	related := NewRelatedService(store)
	out, err := related.FindRelated(context.Background(), "skill", "go", 10, 0.5)
	require.NoError(t, err)
	require.Len(t, out, 2)

	byID := map[string]model.RelatedEntity{}
	for _, item := range out {
		byID[item.EntityID] = item
	}
	require.InDelta(t, 0.9, byID["docker"].RelevanceScore, 1e-9)
	require.Equal(t, "relationship:RELATED_TO", byID["docker"].Evidence)
	require.InDelta(t, 0.75, byID["kubernetes"].RelevanceScore, 1e-9)
}

func TestFindRelatedCoOccurrenceScore(t *testing.T) {
	store := newFakeGraphStore()
	seedNode(store, "person", "alice", "Alice")
	store.occurrences = []graph.CoOccurrence{
		{Entity: model.RelatedEntity{EntityID: "bob", EntityType: "person", Evidence: "co_occurrence"}, Count: 3},
	}

	related := NewRelatedService(store)
	out, err := related.FindRelated(context.Background(), "person", "alice", 10, 0.5)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.InDelta(t, 0.8, out[0].RelevanceScore, 1e-9)
}

func TestFindRelatedExcludesSelfFromSimilarity(t *testing.T) {
	store := newFakeGraphStore()
	seedNode(store, "skill", "go", "Go")
	store.vectorResults = []model.SearchResult{
		{EntityID: "go", EntityType: "skill", RelevanceScore: 1.0},
		{EntityID: "rust", EntityType: "skill", RelevanceScore: 0.7},
	}

	related := NewRelatedService(store)
	out, err := related.FindRelated(context.Background(), "skill", "go", 10, 0.5)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "rust", out[0].EntityID)
}

func TestFindRelatedSurvivesPartialStrategyFailure(t *testing.T) {
	store := newFakeGraphStore()
	seedNode(store, "skill", "go", "Go")
	store.neighborsErr = errStoreDown
	store.occurrencesErr = errStoreDown
	store.vectorResults = []model.SearchResult{
		{EntityID: "rust", EntityType: "skill", RelevanceScore: 0.7},
	}

	related := NewRelatedService(store)
	out, err := related.FindRelated(context.Background(), "skill", "go", 10, 0.5)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "rust", out[0].EntityID)
}

func TestFindRelatedFuzzyFallback(t *testing.T) {
	store := newFakeGraphStore()
	store.candidates = []model.EntityNode{
		{EntityID: "kubernetes", EntityType: "skill", CanonicalName: "Kubernetes"},
		{EntityID: "go", EntityType: "skill", CanonicalName: "Go"},
	}

	related := NewRelatedService(store)
	out, err := related.FindRelated(context.Background(), "skill", "kubernets", 10, 0.6)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "kubernetes", out[0].EntityID)
	require.Equal(t, "fuzzy_match", out[0].Evidence)
	require.Greater(t, out[0].RelevanceScore, 0.6)
}

func TestFindRelatedValidation(t *testing.T) {
	related := NewRelatedService(newFakeGraphStore())

	_, err := related.FindRelated(context.Background(), "", "go", 10, 0.5)
	require.ErrorIs(t, err, appErr.ErrInvalid)

	_, err = related.FindRelated(context.Background(), "skill", "", 10, 0.5)
	require.ErrorIs(t, err, appErr.ErrInvalid)

	_, err = related.FindRelated(context.Background(), "skill", "go", 10, 1.5)
	require.ErrorIs(t, err, appErr.ErrInvalid)
}

func TestFindRelatedResolveErrorIsUnavailable(t *testing.T) {
	store := newFakeGraphStore()
	store.resolveErr = errStoreDown

	related := NewRelatedService(store)
	_, err := related.FindRelated(context.Background(), "skill", "go", 10, 0.5)
	require.ErrorIs(t, err, appErr.ErrUnavailable)
}

func TestMergeMaxWinsKeepsHighestScore(t *testing.T) {
	merged := mergeMaxWins([]model.RelatedEntity{
		{EntityID: "a", EntityType: "skill", RelevanceScore: 0.6, Evidence: "similarity"},
		{EntityID: "b", EntityType: "skill", RelevanceScore: 0.8, Evidence: "co_occurrence"},
		{EntityID: "a", EntityType: "skill", RelevanceScore: 0.9, Evidence: "relationship:USES"},
	}, 10)

	require.Len(t, merged, 2)
	require.Equal(t, "a", merged[0].EntityID)
	require.InDelta(t, 0.9, merged[0].RelevanceScore, 1e-9)
	require.Equal(t, "relationship:USES", merged[0].Evidence)
	require.Equal(t, "b", merged[1].EntityID)
}

func TestNameSimilarity(t *testing.T) {
	require.InDelta(t, 1.0, nameSimilarity("go", model.EntityNode{CanonicalName: "Go"}), 1e-9)
	require.Less(t, nameSimilarity("python", model.EntityNode{CanonicalName: "Go"}), 0.5)

	// falls back to the first content line when no canonical name is set
	score := nameSimilarity("release notes", model.EntityNode{Content: "Release Notes\nbody"})
	require.InDelta(t, 1.0, score, 1e-9)
}
