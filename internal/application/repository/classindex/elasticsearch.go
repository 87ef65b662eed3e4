package classindex

import (
	"context"
	"encoding/json"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/typedapi/core/search"
	estypes "github.com/elastic/go-elasticsearch/v8/typedapi/types"

	"github.com/semweave/semweave/internal/logger"
	"github.com/semweave/semweave/internal/models/embedding"
	"github.com/semweave/semweave/internal/types"
	"github.com/semweave/semweave/internal/types/interfaces"
)

// classDocument is the indexed form of one class.
type classDocument struct {
	ClassIRI  string    `json:"class_iri"`
	Document  string    `json:"document"`
	Embedding []float32 `json:"embedding,omitempty"`
}

// ElasticsearchIndex backs class search with an Elasticsearch v8 cluster:
// match queries for the lexical side, script-score cosine similarity for the
// vector side.
type ElasticsearchIndex struct {
	client   *elasticsearch.TypedClient
	index    string
	embedder embedding.Embedder
}

// NewElasticsearchIndex creates the index wrapper and ensures the index
// exists. The embedder may be nil for lexical-only deployments.
func NewElasticsearchIndex(client *elasticsearch.TypedClient, index string, embedder embedding.Embedder) *ElasticsearchIndex {
	if index == "" {
		index = "semweave_classes"
	}
	res := &ElasticsearchIndex{client: client, index: index, embedder: embedder}
	if err := res.createIndexIfNotExists(context.Background()); err != nil {
		logger.Errorf(context.Background(), "[Elasticsearch] failed to ensure class index: %v", err)
	}
	return res
}

func (e *ElasticsearchIndex) createIndexIfNotExists(ctx context.Context) error {
	exists, err := e.client.Indices.Exists(e.index).Do(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	_, err = e.client.Indices.Create(e.index).Do(ctx)
	return err
}

// IndexClasses rebuilds the index from class documents.
func (e *ElasticsearchIndex) IndexClasses(ctx context.Context, docs map[types.IRI]string) error {
	for iri, doc := range docs {
		document := classDocument{ClassIRI: iri, Document: doc}
		if e.embedder != nil {
			vector, err := e.embedder.Embed(ctx, doc)
			if err != nil {
				return err
			}
			document.Embedding = vector
		}
		if _, err := e.client.Index(e.index).Id(iri).Request(document).Do(ctx); err != nil {
			logger.Errorf(ctx, "[Elasticsearch] failed to index class %s: %v", iri, err)
			return &types.StoreConnectionError{Store: "classindex", Cause: err}
		}
	}
	logger.Infof(ctx, "[Elasticsearch] indexed %d class documents", len(docs))
	return nil
}

// SearchLexical runs a match query over the class documents.
func (e *ElasticsearchIndex) SearchLexical(ctx context.Context, query string, k int) ([]interfaces.ScoredID, error) {
	response, err := e.client.Search().Index(e.index).Request(&search.Request{
		Size: &k,
		Query: &estypes.Query{
			Match: map[string]estypes.MatchQuery{
				"document": {Query: query},
			},
		},
	}).Do(ctx)
	if err != nil {
		return nil, &types.StoreConnectionError{Store: "classindex", Cause: err}
	}
	return e.collectHits(response)
}

// SearchByText embeds the query and scores documents by cosine similarity.
func (e *ElasticsearchIndex) SearchByText(ctx context.Context, query string, k int) ([]interfaces.ScoredID, error) {
	if e.embedder == nil {
		return nil, nil
	}
	queryVector, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	queryVectorJSON, err := json.Marshal(queryVector)
	if err != nil {
		return nil, err
	}
	source := "cosineSimilarity(params.query_vector, 'embedding') + 1.0"
	response, err := e.client.Search().Index(e.index).Request(&search.Request{
		Size: &k,
		Query: &estypes.Query{
			ScriptScore: &estypes.ScriptScoreQuery{
				Query: estypes.Query{Exists: &estypes.ExistsQuery{Field: "embedding"}},
				Script: estypes.Script{
					Source: &source,
					Params: map[string]json.RawMessage{
						"query_vector": json.RawMessage(queryVectorJSON),
					},
				},
			},
		},
	}).Do(ctx)
	if err != nil {
		return nil, &types.StoreConnectionError{Store: "classindex", Cause: err}
	}
	return e.collectHits(response)
}

func (e *ElasticsearchIndex) collectHits(response *search.Response) ([]interfaces.ScoredID, error) {
	hits := make([]interfaces.ScoredID, 0, len(response.Hits.Hits))
	for _, hit := range response.Hits.Hits {
		if hit.Id_ == nil {
			continue
		}
		score := 0.0
		if hit.Score_ != nil {
			score = float64(*hit.Score_)
		}
		hits = append(hits, interfaces.ScoredID{ID: *hit.Id_, Score: score})
	}
	return hits, nil
}
