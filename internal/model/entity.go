package model

// EntityNode is the graph-store representation of a domain entity
// (issue, project, document, skill, technology, ...).
type EntityNode struct {
	EntityID      string                 `json:"entity_id"`
	EntityType    string                 `json:"entity_type"`
	Content       string                 `json:"content"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	Embedding     []float32              `json:"embedding,omitempty"`
	CanonicalName string                 `json:"canonical_name,omitempty"`
	Ctime         int64                  `json:"ctime"`
	Mtime         int64                  `json:"mtime"`
}

type SearchResult struct {
	EntityID       string                 `json:"entity_id"`
	EntityType     string                 `json:"entity_type"`
	Content        string                 `json:"content"`
	RelevanceScore float64                `json:"relevance_score"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
	Mtime          int64                  `json:"mtime,omitempty"`
}

// RelatedEntity is one candidate produced by the related-entity resolver.
// Evidence names the strategy that produced the winning score.
type RelatedEntity struct {
	EntityID       string                 `json:"entity_id"`
	EntityType     string                 `json:"entity_type"`
	Content        string                 `json:"content"`
	RelevanceScore float64                `json:"relevance_score"`
	Evidence       string                 `json:"evidence"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

type GraphStats struct {
	TotalNodes     int64            `json:"total_nodes"`
	TotalEdges     int64            `json:"total_edges"`
	EntitiesByType map[string]int64 `json:"entities_by_type"`
	LastUpdated    int64            `json:"last_updated"`
}
