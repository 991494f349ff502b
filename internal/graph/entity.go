package graph

import (
	"context"
	"encoding/json"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/compasshq/compass/internal/model"
	appErr "github.com/compasshq/compass/internal/pkg/errors"
)

// UpsertEntity creates or replaces the node keyed by (entity_type, entity_id)
// and returns the store-side node id. Metadata is stored as a JSON string
// property since the store only holds scalar properties.
func (c *Client) UpsertEntity(ctx context.Context, node *model.EntityNode) (string, error) {
	if _, err := c.ensureTypeIndex(ctx, node.EntityType); err != nil {
		return "", err
	}

	metadata := ""
	if len(node.Metadata) > 0 {
		blob, err := json.Marshal(node.Metadata)
		if err != nil {
			return "", err
		}
		metadata = string(blob)
	}

	query := `
		MERGE (e:Entity {entity_type: $entity_type, entity_id: $entity_id})
		ON CREATE SET e.ctime = $now
		SET e:` + typeLabel(node.EntityType) + `,
			e.content = $content,
			e.metadata = $metadata,
			e.canonical_name = $canonical_name,
			e.mtime = $now
	`
	params := map[string]interface{}{
		"entity_type":    node.EntityType,
		"entity_id":      node.EntityID,
		"content":        node.Content,
		"metadata":       metadata,
		"canonical_name": node.CanonicalName,
		"now":            time.Now().UnixMilli(),
	}
	if len(node.Embedding) > 0 {
		query += `
		WITH e
		CALL db.create.setNodeVectorProperty(e, 'embedding', $embedding)
		RETURN elementId(e) AS node_id`
		params["embedding"] = toFloat64s(node.Embedding)
	} else {
		query += `
		SET e.embedding = null
		RETURN elementId(e) AS node_id`
	}

	session := c.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)
	result, err := session.Run(ctx, query, params)
	if err != nil {
		return "", err
	}
	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return "", err
		}
		return "", appErr.ErrInternal
	}
	return recordString(result.Record(), "node_id"), nil
}

// UpsertRelationship merges a typed edge between two entity nodes. Both nodes
// must already exist.
func (c *Client) UpsertRelationship(ctx context.Context, fromType, fromID, toType, toID, relType string) error {
	label := relationshipType(relType)
	query := `
		MATCH (a:Entity {entity_type: $from_type, entity_id: $from_id})
		MATCH (b:Entity {entity_type: $to_type, entity_id: $to_id})
		MERGE (a)-[r:` + label + `]->(b)
		SET r.mtime = $now
	`
	session := c.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)
	result, err := session.Run(ctx, query, map[string]interface{}{
		"from_type": fromType,
		"from_id":   fromID,
		"to_type":   toType,
		"to_id":     toID,
		"now":       time.Now().UnixMilli(),
	})
	if err != nil {
		return err
	}
	_, err = result.Consume(ctx)
	return err
}

// Resolve looks up a node of the given type by entity id, canonical name or
// content prefix, in that order of intent; the first match wins.
func (c *Client) Resolve(ctx context.Context, entityType, key string) (*model.EntityNode, error) {
	const query = `
		MATCH (e:Entity {entity_type: $entity_type})
		WHERE e.entity_id = $key OR e.canonical_name = $key OR e.content STARTS WITH $key
		RETURN e.entity_id AS entity_id, e.entity_type AS entity_type, e.content AS content,
			e.metadata AS metadata, e.canonical_name AS canonical_name,
			e.embedding AS embedding, e.ctime AS ctime, e.mtime AS mtime
		LIMIT 1
	`
	session := c.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)
	result, err := session.Run(ctx, query, map[string]interface{}{
		"entity_type": entityType,
		"key":         key,
	})
	if err != nil {
		return nil, err
	}
	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return nil, err
		}
		return nil, appErr.ErrNotFound
	}
	record := result.Record()
	node := &model.EntityNode{
		EntityID:      recordString(record, "entity_id"),
		EntityType:    recordString(record, "entity_type"),
		Content:       recordString(record, "content"),
		Metadata:      recordMetadata(record, "metadata"),
		CanonicalName: recordString(record, "canonical_name"),
		Ctime:         recordInt(record, "ctime"),
		Mtime:         recordInt(record, "mtime"),
	}
	if raw, ok := record.Get("embedding"); ok && raw != nil {
		if values, ok := raw.([]interface{}); ok {
			node.Embedding = make([]float32, 0, len(values))
			for _, v := range values {
				f, _ := v.(float64)
				node.Embedding = append(node.Embedding, float32(f))
			}
		}
	}
	return node, nil
}

// Neighbors returns entities one hop away along any relationship type.
func (c *Client) Neighbors(ctx context.Context, entityType, entityID string, limit int) ([]model.RelatedEntity, error) {
	const query = `
		MATCH (e:Entity {entity_type: $entity_type, entity_id: $entity_id})-[r]-(n:Entity)
		RETURN DISTINCT n.entity_id AS entity_id, n.entity_type AS entity_type,
			n.content AS content, n.metadata AS metadata, type(r) AS rel_type
		LIMIT $limit
	`
	session := c.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)
	result, err := session.Run(ctx, query, map[string]interface{}{
		"entity_type": entityType,
		"entity_id":   entityID,
		"limit":       limit,
	})
	if err != nil {
		return nil, err
	}
	var out []model.RelatedEntity
	for result.Next(ctx) {
		record := result.Record()
		out = append(out, model.RelatedEntity{
			EntityID:   recordString(record, "entity_id"),
			EntityType: recordString(record, "entity_type"),
			Content:    recordString(record, "content"),
			Metadata:   recordMetadata(record, "metadata"),
			Evidence:   "relationship:" + recordString(record, "rel_type"),
		})
	}
	return out, result.Err()
}

type CoOccurrence struct {
	Entity model.RelatedEntity
	Count  int64
}

// CoOccurrences finds entities connected to the same intermediate node, e.g.
// two technologies used by the same project.
func (c *Client) CoOccurrences(ctx context.Context, entityType, entityID string, limit int) ([]CoOccurrence, error) {
	const query = `
		MATCH (e:Entity {entity_type: $entity_type, entity_id: $entity_id})--(m:Entity)--(n:Entity)
		WHERE n <> e
		RETURN n.entity_id AS entity_id, n.entity_type AS entity_type,
			n.content AS content, n.metadata AS metadata, count(DISTINCT m) AS weight
		ORDER BY weight DESC
		LIMIT $limit
	`
	session := c.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)
	result, err := session.Run(ctx, query, map[string]interface{}{
		"entity_type": entityType,
		"entity_id":   entityID,
		"limit":       limit,
	})
	if err != nil {
		return nil, err
	}
	var out []CoOccurrence
	for result.Next(ctx) {
		record := result.Record()
		out = append(out, CoOccurrence{
			Entity: model.RelatedEntity{
				EntityID:   recordString(record, "entity_id"),
				EntityType: recordString(record, "entity_type"),
				Content:    recordString(record, "content"),
				Metadata:   recordMetadata(record, "metadata"),
				Evidence:   "co_occurrence",
			},
			Count: recordInt(record, "weight"),
		})
	}
	return out, result.Err()
}

// FuzzyCandidates lists nodes of a type for client-side name matching.
func (c *Client) FuzzyCandidates(ctx context.Context, entityType string, limit int) ([]model.EntityNode, error) {
	const query = `
		MATCH (e:Entity {entity_type: $entity_type})
		RETURN e.entity_id AS entity_id, e.entity_type AS entity_type,
			e.content AS content, e.metadata AS metadata, e.canonical_name AS canonical_name
		LIMIT $limit
	`
	session := c.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)
	result, err := session.Run(ctx, query, map[string]interface{}{
		"entity_type": entityType,
		"limit":       limit,
	})
	if err != nil {
		return nil, err
	}
	var out []model.EntityNode
	for result.Next(ctx) {
		record := result.Record()
		out = append(out, model.EntityNode{
			EntityID:      recordString(record, "entity_id"),
			EntityType:    recordString(record, "entity_type"),
			Content:       recordString(record, "content"),
			Metadata:      recordMetadata(record, "metadata"),
			CanonicalName: recordString(record, "canonical_name"),
		})
	}
	return out, result.Err()
}

// VectorQuery runs a nearest-neighbor search. An empty entityType queries the
// global index across all entity types.
func (c *Client) VectorQuery(ctx context.Context, entityType string, embedding []float32, k int, minScore float64) ([]model.SearchResult, error) {
	indexName := globalIndexName
	if entityType != "" {
		name, err := c.ensureTypeIndex(ctx, entityType)
		if err != nil {
			return nil, err
		}
		indexName = name
	}
	const query = `
		CALL db.index.vector.queryNodes($index, $k, $embedding)
		YIELD node, score
		WHERE score >= $min_score
		RETURN node.entity_id AS entity_id, node.entity_type AS entity_type,
			node.content AS content, node.metadata AS metadata, node.mtime AS mtime, score
	`
	session := c.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)
	result, err := session.Run(ctx, query, map[string]interface{}{
		"index":     indexName,
		"k":         k,
		"embedding": toFloat64s(embedding),
		"min_score": minScore,
	})
	if err != nil {
		return nil, err
	}
	var out []model.SearchResult
	for result.Next(ctx) {
		record := result.Record()
		out = append(out, model.SearchResult{
			EntityID:       recordString(record, "entity_id"),
			EntityType:     recordString(record, "entity_type"),
			Content:        recordString(record, "content"),
			Metadata:       recordMetadata(record, "metadata"),
			Mtime:          recordInt(record, "mtime"),
			RelevanceScore: recordFloat(record, "score"),
		})
	}
	return out, result.Err()
}

func toFloat64s(values []float32) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = float64(v)
	}
	return out
}
