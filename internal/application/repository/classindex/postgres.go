package classindex

import (
	"context"
	"sort"
	"strings"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/semweave/semweave/internal/logger"
	"github.com/semweave/semweave/internal/models/embedding"
	"github.com/semweave/semweave/internal/ontology"
	"github.com/semweave/semweave/internal/types"
	"github.com/semweave/semweave/internal/types/interfaces"
)

// classVector is the pgvector row for one class document.
type classVector struct {
	ClassIRI  string          `gorm:"type:text;primaryKey;column:class_iri"`
	Document  string          `gorm:"type:text"`
	Embedding pgvector.Vector `gorm:"type:vector(1024)"`
	Dimension int
}

// TableName sets the table class vectors live in.
func (classVector) TableName() string { return "class_vectors" }

// PostgresIndex stores class documents and embeddings in Postgres with
// pgvector for nearest-neighbour search and tsvector matching for the
// lexical side.
type PostgresIndex struct {
	db       *gorm.DB
	embedder embedding.Embedder
	pooler   embedding.Pooler
}

// NewPostgresIndex creates the index and migrates its schema.
func NewPostgresIndex(db *gorm.DB, embedder embedding.Embedder, pooler embedding.Pooler) (*PostgresIndex, error) {
	if err := db.AutoMigrate(&classVector{}); err != nil {
		return nil, err
	}
	return &PostgresIndex{db: db, embedder: embedder, pooler: pooler}, nil
}

// IndexClasses rebuilds the index from class documents.
func (p *PostgresIndex) IndexClasses(ctx context.Context, docs map[types.IRI]string) error {
	ids := make([]types.IRI, 0, len(docs))
	texts := make([]string, 0, len(docs))
	for id := range docs {
		ids = append(ids, id)
	}
	// Deterministic ordering keeps reindex runs reproducible
	sortIRIs(ids)
	for _, id := range ids {
		texts = append(texts, docs[id])
	}

	vectors, err := p.pooler.BatchEmbedWithPool(ctx, p.embedder, texts)
	if err != nil {
		return err
	}

	rows := make([]*classVector, len(ids))
	for i, id := range ids {
		rows[i] = &classVector{
			ClassIRI:  id,
			Document:  texts[i],
			Embedding: pgvector.NewVector(vectors[i]),
			Dimension: len(vectors[i]),
		}
	}
	err = p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "class_iri"}},
		UpdateAll: true,
	}).Create(rows).Error
	if err != nil {
		logger.Errorf(ctx, "[Postgres] class index rebuild failed: %v", err)
		return &types.StoreConnectionError{Store: "classindex", Cause: err}
	}
	logger.Infof(ctx, "[Postgres] indexed %d class documents", len(rows))
	return nil
}

// SearchLexical matches class documents with Postgres full-text search.
func (p *PostgresIndex) SearchLexical(ctx context.Context, query string, k int) ([]interfaces.ScoredID, error) {
	tokens := ontology.Tokenize(query)
	if len(tokens) == 0 {
		return nil, nil
	}
	tsQuery := strings.Join(tokens, " | ")

	var rows []struct {
		ClassIRI string
		Score    float64
	}
	err := p.db.WithContext(ctx).Raw(`
		SELECT class_iri,
		       ts_rank(to_tsvector('simple', document), to_tsquery('simple', ?)) AS score
		FROM class_vectors
		WHERE to_tsvector('simple', document) @@ to_tsquery('simple', ?)
		ORDER BY score DESC, class_iri
		LIMIT ?`, tsQuery, tsQuery, k).Scan(&rows).Error
	if err != nil {
		return nil, &types.StoreConnectionError{Store: "classindex", Cause: err}
	}

	hits := make([]interfaces.ScoredID, len(rows))
	for i, row := range rows {
		hits[i] = interfaces.ScoredID{ID: row.ClassIRI, Score: row.Score}
	}
	return hits, nil
}

// SearchByText embeds the query and runs a cosine nearest-neighbour search.
func (p *PostgresIndex) SearchByText(ctx context.Context, query string, k int) ([]interfaces.ScoredID, error) {
	queryVector, err := p.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		ClassIRI string
		Score    float64
	}
	err = p.db.WithContext(ctx).Raw(`
		SELECT class_iri, 1 - (embedding <=> ?) AS score
		FROM class_vectors
		ORDER BY embedding <=> ?
		LIMIT ?`, pgvector.NewVector(queryVector), pgvector.NewVector(queryVector), k).Scan(&rows).Error
	if err != nil {
		return nil, &types.StoreConnectionError{Store: "classindex", Cause: err}
	}

	hits := make([]interfaces.ScoredID, len(rows))
	for i, row := range rows {
		hits[i] = interfaces.ScoredID{ID: row.ClassIRI, Score: row.Score}
	}
	return hits, nil
}

func sortIRIs(ids []types.IRI) {
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
}
