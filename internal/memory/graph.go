package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

// GraphStore persists episodic memories in Neo4j:
//
//	(:Memory)-[:ON]->(:Day {date})
//	(:Memory)-[:TAGGED]->(:Keyword {name})
//	(:Memory)-[:ASSOCIATED]->(:Association {name})
type GraphStore struct {
	driver neo4j.DriverWithContext
	now    func() time.Time
	logger *zap.Logger
}

// NewGraphStore creates a Neo4j-backed memory manager.
func NewGraphStore(uri, user, password string, logger *zap.Logger) (*GraphStore, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	return &GraphStore{driver: driver, now: time.Now, logger: logger}, nil
}

// Close shuts down the Neo4j driver.
func (s *GraphStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

// Ping verifies the Neo4j connection.
func (s *GraphStore) Ping(ctx context.Context) error {
	return s.driver.VerifyConnectivity(ctx)
}

// EnsureSchema creates uniqueness constraints used by MERGE.
func (s *GraphStore) EnsureSchema(ctx context.Context) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	for _, stmt := range []string{
		`CREATE CONSTRAINT memory_id IF NOT EXISTS FOR (m:Memory) REQUIRE m.id IS UNIQUE`,
		`CREATE CONSTRAINT day_date IF NOT EXISTS FOR (d:Day) REQUIRE d.date IS UNIQUE`,
		`CREATE CONSTRAINT keyword_name IF NOT EXISTS FOR (k:Keyword) REQUIRE k.name IS UNIQUE`,
		`CREATE CONSTRAINT association_name IF NOT EXISTS FOR (a:Association) REQUIRE a.name IS UNIQUE`,
	} {
		if _, err := session.Run(ctx, stmt, nil); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// Save upserts each record and its day, keyword and association links.
// Links are MERGEd, so repeated saves do not duplicate edges.
func (s *GraphStore) Save(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, r := range records {
			_, err := tx.Run(ctx,
				`MERGE (m:Memory {id: $id})
				 SET m.content = $content, m.importance = $importance,
				     m.timestamp = $timestamp, m.entities = $entities,
				     m.source = $source, m.keywords = $keywords,
				     m.associations = $associations
				 WITH m
				 OPTIONAL MATCH (m)-[old:ON|TAGGED|ASSOCIATED]->()
				 DELETE old
				 WITH DISTINCT m
				 MERGE (d:Day {date: $date})
				 MERGE (m)-[:ON]->(d)
				 FOREACH (kw IN $keywords |
				   MERGE (k:Keyword {name: kw})
				   MERGE (m)-[:TAGGED]->(k))
				 FOREACH (assoc IN $associations |
				   MERGE (a:Association {name: assoc})
				   MERGE (m)-[:ASSOCIATED]->(a))`,
				map[string]any{
					"id":           r.ID,
					"content":      r.Content,
					"importance":   r.Importance,
					"timestamp":    r.Timestamp.UTC().Format(time.RFC3339Nano),
					"entities":     nonNil(r.Entities),
					"source":       r.Source,
					"keywords":     nonNil(r.Keywords),
					"associations": nonNil(r.Associations),
					"date":         r.Date(),
				})
			if err != nil {
				return nil, fmt.Errorf("save memory %s: %w", r.ID, err)
			}
		}
		return nil, nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("episodic memories saved to graph", zap.Int("records", len(records)))
	return nil
}

// Query matches memories by day range and importance, then by any of the
// given keywords and any of the given associations.
func (s *GraphStore) Query(ctx context.Context, q Query) ([]Record, error) {
	start, end := ParseDateRange(q.DateRange, s.now())

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.Run(ctx,
		`MATCH (m:Memory)-[:ON]->(d:Day)
		 WHERE d.date >= $start AND d.date <= $end
		   AND m.importance >= $importanceMin
		   AND (size($keywords) = 0 OR EXISTS {
		     MATCH (m)-[:TAGGED]->(k:Keyword) WHERE k.name IN $keywords })
		   AND (size($associations) = 0 OR EXISTS {
		     MATCH (m)-[:ASSOCIATED]->(a:Association) WHERE a.name IN $associations })
		 RETURN m.id AS id, m.content AS content, m.importance AS importance,
		        m.timestamp AS timestamp, m.entities AS entities, m.source AS source,
		        m.keywords AS keywords, m.associations AS associations
		 ORDER BY m.timestamp`,
		map[string]any{
			"start":         start.Format(DateLayout),
			"end":           end.Format(DateLayout),
			"importanceMin": q.ImportanceMin,
			"keywords":      nonNil(q.Keywords),
			"associations":  nonNil(q.Associations),
		})
	if err != nil {
		return nil, fmt.Errorf("query memories: %w", err)
	}

	var out []Record
	for result.Next(ctx) {
		rec := result.Record()
		r := Record{
			ID:           getString(rec, "id"),
			Content:      getString(rec, "content"),
			Source:       getString(rec, "source"),
			Entities:     getStrings(rec, "entities"),
			Keywords:     getStrings(rec, "keywords"),
			Associations: getStrings(rec, "associations"),
		}
		if v, ok := rec.Get("importance"); ok {
			if f, ok := v.(float64); ok {
				r.Importance = f
			}
		}
		if ts, err := time.Parse(time.RFC3339Nano, getString(rec, "timestamp")); err == nil {
			r.Timestamp = ts
		}
		out = append(out, r)
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("read memories: %w", err)
	}
	return out, nil
}

func getString(rec *neo4j.Record, key string) string {
	v, _ := rec.Get(key)
	s, _ := v.(string)
	return s
}

func getStrings(rec *neo4j.Record, key string) []string {
	v, _ := rec.Get(key)
	list, _ := v.([]any)
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
