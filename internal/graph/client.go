// Package graph wraps the neo4j driver with the small set of operations the
// knowledge-graph services need: entity upserts, relationship upserts, vector
// index queries and a few label-scoped traversals.
package graph

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"unicode"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/compasshq/compass/internal/config"
	"github.com/compasshq/compass/internal/model"
)

type Client struct {
	driver     neo4j.DriverWithContext
	database   string
	dimensions int

	mu      sync.Mutex
	ensured map[string]bool
}

func NewClient(ctx context.Context, cfg config.GraphConfig) (*Client, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, err
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, err
	}
	return &Client{
		driver:     driver,
		database:   cfg.Database,
		dimensions: cfg.VectorDimensions,
		ensured:    make(map[string]bool),
	}, nil
}

func (c *Client) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}

func (c *Client) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return c.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode, DatabaseName: c.database})
}

func (c *Client) Health(ctx context.Context) error {
	session := c.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)
	result, err := session.Run(ctx, "RETURN 1", nil)
	if err != nil {
		return err
	}
	_, err = result.Consume(ctx)
	return err
}

func (c *Client) Stats(ctx context.Context) (*model.GraphStats, error) {
	session := c.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	stats := &model.GraphStats{EntitiesByType: map[string]int64{}}

	result, err := session.Run(ctx, `
		MATCH (e:Entity)
		RETURN e.entity_type AS entity_type, count(*) AS total, max(e.mtime) AS last_updated
	`, nil)
	if err != nil {
		return nil, err
	}
	for result.Next(ctx) {
		record := result.Record()
		entityType := recordString(record, "entity_type")
		total := recordInt(record, "total")
		stats.EntitiesByType[entityType] = total
		stats.TotalNodes += total
		if updated := recordInt(record, "last_updated"); updated > stats.LastUpdated {
			stats.LastUpdated = updated
		}
	}
	if err := result.Err(); err != nil {
		return nil, err
	}

	result, err = session.Run(ctx, `MATCH (:Entity)-[r]->(:Entity) RETURN count(r) AS total`, nil)
	if err != nil {
		return nil, err
	}
	if result.Next(ctx) {
		stats.TotalEdges = recordInt(result.Record(), "total")
	}
	return stats, result.Err()
}

// typeLabel converts an entity type tag into a cypher-safe label, e.g.
// "issue" -> "Issue", "tech-stack" -> "TechStack". Labels cannot be passed as
// query parameters, so anything not alphanumeric is dropped.
func typeLabel(entityType string) string {
	var b strings.Builder
	upper := true
	for _, r := range entityType {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			upper = true
			continue
		}
		if upper {
			b.WriteRune(unicode.ToUpper(r))
			upper = false
			continue
		}
		b.WriteRune(r)
	}
	if b.Len() == 0 {
		return "Unknown"
	}
	return b.String()
}

// relationshipType sanitizes a relationship tag into an upper-snake cypher
// type, e.g. "uses" -> "USES", "blocked by" -> "BLOCKED_BY".
func relationshipType(relType string) string {
	var b strings.Builder
	lastUnderscore := true
	for _, r := range relType {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToUpper(r))
			lastUnderscore = false
		case !lastUnderscore:
			b.WriteRune('_')
			lastUnderscore = true
		}
	}
	out := strings.Trim(b.String(), "_")
	if out == "" {
		return "RELATED_TO"
	}
	return out
}

func recordString(record *neo4j.Record, key string) string {
	value, ok := record.Get(key)
	if !ok || value == nil {
		return ""
	}
	s, _ := value.(string)
	return s
}

func recordInt(record *neo4j.Record, key string) int64 {
	value, ok := record.Get(key)
	if !ok || value == nil {
		return 0
	}
	n, _ := value.(int64)
	return n
}

func recordFloat(record *neo4j.Record, key string) float64 {
	value, ok := record.Get(key)
	if !ok || value == nil {
		return 0
	}
	f, _ := value.(float64)
	return f
}

func recordMetadata(record *neo4j.Record, key string) map[string]interface{} {
	raw := recordString(record, key)
	if raw == "" {
		return nil
	}
	var meta map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return nil
	}
	return meta
}
