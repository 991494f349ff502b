package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

const globalIndexName = "entity_embedding"

// EnsureSchema creates the uniqueness constraint and the global vector index.
// Per-type vector indexes are created lazily on first use.
func (c *Client) EnsureSchema(ctx context.Context) error {
	session := c.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	queries := []string{
		`CREATE CONSTRAINT entity_identity IF NOT EXISTS
		 FOR (e:Entity) REQUIRE (e.entity_type, e.entity_id) IS UNIQUE`,
		vectorIndexQuery(globalIndexName, "Entity", c.dimensions),
	}
	for _, query := range queries {
		result, err := session.Run(ctx, query, nil)
		if err != nil {
			return err
		}
		if _, err := result.Consume(ctx); err != nil {
			return err
		}
	}
	return nil
}

func vectorIndexQuery(name, label string, dimensions int) string {
	return fmt.Sprintf(`CREATE VECTOR INDEX %s IF NOT EXISTS
		FOR (e:%s) ON (e.embedding)
		OPTIONS {indexConfig: {
			`+"`vector.dimensions`"+`: %d,
			`+"`vector.similarity_function`"+`: 'cosine'
		}}`, name, label, dimensions)
}

func typeIndexName(entityType string) string {
	return "entity_" + strings.ToLower(typeLabel(entityType)) + "_embedding"
}

// ensureTypeIndex creates the per-type vector index once per process.
func (c *Client) ensureTypeIndex(ctx context.Context, entityType string) (string, error) {
	name := typeIndexName(entityType)
	c.mu.Lock()
	done := c.ensured[name]
	c.mu.Unlock()
	if done {
		return name, nil
	}

	session := c.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)
	result, err := session.Run(ctx, vectorIndexQuery(name, typeLabel(entityType), c.dimensions), nil)
	if err != nil {
		return "", err
	}
	if _, err := result.Consume(ctx); err != nil {
		return "", err
	}

	c.mu.Lock()
	c.ensured[name] = true
	c.mu.Unlock()
	return name, nil
}
