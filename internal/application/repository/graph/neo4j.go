// Package graph persists merged knowledge graphs into Neo4j for downstream
// graph queries.
package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v6/neo4j"

	"github.com/semweave/semweave/internal/logger"
	"github.com/semweave/semweave/internal/types"
)

// Neo4jSink writes entities and relations of a run. The sink is optional:
// with a nil driver every write is a logged no-op.
type Neo4jSink struct {
	driver neo4j.Driver
}

// NewNeo4jSink creates the sink.
func NewNeo4jSink(driver neo4j.Driver) *Neo4jSink {
	return &Neo4jSink{driver: driver}
}

// WriteGraph merges the graph's entities and relations under the document
// URI. Entities merge on (document, id) so re-running a document updates in
// place.
func (s *Neo4jSink) WriteGraph(ctx context.Context, documentURI string, graph *types.KnowledgeGraph) error {
	if s.driver == nil {
		logger.Warnf(ctx, "neo4j sink disabled, skipping graph write")
		return nil
	}

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		entityQuery := `
			UNWIND $entities AS row
			MERGE (e:Entity {document: $document, id: row.id})
			SET e.mention = row.mention, e.types = row.types, e.confidence = row.confidence
		`
		entityData := make([]map[string]interface{}, len(graph.Entities))
		for i, entity := range graph.Entities {
			entityData[i] = map[string]interface{}{
				"id":         entity.ID,
				"mention":    entity.Mention,
				"types":      entity.Types,
				"confidence": entity.GroundingConfidence,
			}
		}
		if _, err := tx.Run(ctx, entityQuery, map[string]interface{}{
			"document": documentURI,
			"entities": entityData,
		}); err != nil {
			return nil, fmt.Errorf("failed to merge entities: %w", err)
		}

		relationQuery := `
			UNWIND $relations AS row
			MATCH (s:Entity {document: $document, id: row.subject})
			MATCH (o:Entity {document: $document, id: row.object})
			MERGE (s)-[r:RELATED {predicate: row.predicate}]->(o)
			SET r.evidence = row.evidence
		`
		relationData := []map[string]interface{}{}
		for _, relation := range graph.Relations {
			// Literal-valued relations live on the entity node itself
			if relation.ObjectLiteral != nil {
				continue
			}
			evidence := ""
			if relation.Evidence != nil {
				evidence = relation.Evidence.Text
			}
			relationData = append(relationData, map[string]interface{}{
				"subject":   relation.SubjectID,
				"predicate": relation.Predicate,
				"object":    relation.ObjectID,
				"evidence":  evidence,
			})
		}
		if len(relationData) > 0 {
			if _, err := tx.Run(ctx, relationQuery, map[string]interface{}{
				"document":  documentURI,
				"relations": relationData,
			}); err != nil {
				return nil, fmt.Errorf("failed to merge relations: %w", err)
			}
		}
		return nil, nil
	})
	if err != nil {
		return &types.StoreConnectionError{Store: "neo4j", Cause: err}
	}

	logger.Infof(ctx, "wrote %d entities, %d relations to neo4j for %s",
		len(graph.Entities), len(graph.Relations), documentURI)
	return nil
}
