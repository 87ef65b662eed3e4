// Package classindex provides the pluggable lexical/vector indexes over
// ontology class documents consumed by hybrid class search.
package classindex

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/semweave/semweave/internal/models/embedding"
	"github.com/semweave/semweave/internal/ontology"
	"github.com/semweave/semweave/internal/types"
	"github.com/semweave/semweave/internal/types/interfaces"
)

// MemoryIndex keeps class document embeddings in process. It is the default
// backend and the one tests run against.
type MemoryIndex struct {
	embedder embedding.Embedder

	mu      sync.RWMutex
	ids     []types.IRI
	docs    map[types.IRI]string
	vectors map[types.IRI][]float32
}

// NewMemoryIndex creates a MemoryIndex. The embedder may be nil, in which
// case vector search reports no hits and hybrid search stays lexical.
func NewMemoryIndex(embedder embedding.Embedder) *MemoryIndex {
	return &MemoryIndex{
		embedder: embedder,
		docs:     map[types.IRI]string{},
		vectors:  map[types.IRI][]float32{},
	}
}

// IndexClasses rebuilds the index from class documents.
func (m *MemoryIndex) IndexClasses(ctx context.Context, docs map[types.IRI]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ids = m.ids[:0]
	m.docs = make(map[types.IRI]string, len(docs))
	m.vectors = make(map[types.IRI][]float32, len(docs))
	for id, doc := range docs {
		m.ids = append(m.ids, id)
		m.docs[id] = doc
	}
	sort.Slice(m.ids, func(a, b int) bool { return m.ids[a] < m.ids[b] })

	if m.embedder == nil {
		return nil
	}
	texts := make([]string, len(m.ids))
	for i, id := range m.ids {
		texts[i] = m.docs[id]
	}
	vectors, err := m.embedder.BatchEmbed(ctx, texts)
	if err != nil {
		return err
	}
	for i, id := range m.ids {
		m.vectors[id] = vectors[i]
	}
	return nil
}

// SearchLexical scores documents by token overlap.
func (m *MemoryIndex) SearchLexical(ctx context.Context, query string, k int) ([]interfaces.ScoredID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	queryTokens := ontology.Tokenize(query)
	if len(queryTokens) == 0 {
		return nil, nil
	}
	querySet := map[string]struct{}{}
	for _, t := range queryTokens {
		querySet[t] = struct{}{}
	}

	var hits []interfaces.ScoredID
	for _, id := range m.ids {
		docTokens := ontology.Tokenize(m.docs[id])
		if len(docTokens) == 0 {
			continue
		}
		overlap := 0
		for _, t := range docTokens {
			if _, ok := querySet[t]; ok {
				overlap++
			}
		}
		if overlap > 0 {
			hits = append(hits, interfaces.ScoredID{ID: id, Score: float64(overlap) / float64(len(docTokens))})
		}
	}
	sort.SliceStable(hits, func(a, b int) bool {
		if hits[a].Score != hits[b].Score {
			return hits[a].Score > hits[b].Score
		}
		return hits[a].ID < hits[b].ID
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// SearchByText embeds the query and returns the nearest documents by cosine
// similarity.
func (m *MemoryIndex) SearchByText(ctx context.Context, query string, k int) ([]interfaces.ScoredID, error) {
	if m.embedder == nil {
		return nil, nil
	}
	queryVector, err := m.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var hits []interfaces.ScoredID
	for _, id := range m.ids {
		vector, ok := m.vectors[id]
		if !ok {
			continue
		}
		if score := cosine(queryVector, vector); score > 0 {
			hits = append(hits, interfaces.ScoredID{ID: id, Score: score})
		}
	}
	sort.SliceStable(hits, func(a, b int) bool {
		if hits[a].Score != hits[b].Score {
			return hits[a].Score > hits[b].Score
		}
		return hits[a].ID < hits[b].ID
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
