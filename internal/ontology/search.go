package ontology

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/yanyiwu/gojieba"

	"github.com/semweave/semweave/internal/logger"
	"github.com/semweave/semweave/internal/types"
	"github.com/semweave/semweave/internal/types/interfaces"
)

// Weights for combining lexical and vector scores in hybrid search.
const (
	lexicalWeight = 0.7
	vectorWeight  = 0.3
)

// jiebaOnce guards the shared tokenizer. Loading the dictionaries is
// expensive, one instance serves every ontology.
var (
	jiebaOnce sync.Once
	jieba     *gojieba.Jieba
)

func sharedJieba() *gojieba.Jieba {
	jiebaOnce.Do(func() {
		jieba = gojieba.NewJieba()
	})
	return jieba
}

// Tokenize splits text into lowercase search tokens. Jieba keeps CJK text
// usable and degrades to word segmentation for Latin scripts.
func Tokenize(text string) []string {
	raw := sharedJieba().CutForSearch(strings.ToLower(text), true)
	tokens := make([]string, 0, len(raw))
	for _, tok := range raw {
		tok = strings.TrimSpace(tok)
		if tok == "" || len(tok) == 1 && !isCJK(tok) {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

func isCJK(s string) bool {
	for _, r := range s {
		if r >= 0x4E00 && r <= 0x9FFF {
			return true
		}
	}
	return false
}

// lexicalIndex is a TF-IDF index over class documents, built once per
// loaded ontology.
type lexicalIndex struct {
	docs   []lexicalDoc
	docFre map[string]int // token -> number of documents containing it
}

type lexicalDoc struct {
	iri    types.IRI
	ord    int // declaration order, used for deterministic tie-break
	tokens map[string]int
	length int
}

func newLexicalIndex(c *Context) *lexicalIndex {
	idx := &lexicalIndex{docFre: make(map[string]int)}
	for i := range c.snapshot.Classes {
		cls := &c.snapshot.Classes[i]
		tokens := Tokenize(ClassDocument(cls))
		if len(tokens) == 0 {
			continue
		}
		freq := make(map[string]int, len(tokens))
		for _, t := range tokens {
			freq[t]++
		}
		for t := range freq {
			idx.docFre[t]++
		}
		idx.docs = append(idx.docs, lexicalDoc{iri: cls.ID, ord: i, tokens: freq, length: len(tokens)})
	}
	return idx
}

// score computes a TF-IDF similarity between the query tokens and a document.
func (idx *lexicalIndex) score(queryTokens []string, doc *lexicalDoc) float64 {
	if doc.length == 0 {
		return 0
	}
	total := float64(len(idx.docs))
	var s float64
	for _, qt := range queryTokens {
		tf := float64(doc.tokens[qt]) / float64(doc.length)
		if tf == 0 {
			continue
		}
		df := float64(idx.docFre[qt])
		idf := math.Log(1 + total/(1+df))
		s += tf * idf
	}
	return s
}

func (idx *lexicalIndex) search(query string, k int) []interfaces.ScoredID {
	queryTokens := Tokenize(query)
	if len(queryTokens) == 0 {
		return nil
	}
	hits := make([]interfaces.ScoredID, 0, len(idx.docs))
	ords := make(map[types.IRI]int, len(idx.docs))
	for i := range idx.docs {
		doc := &idx.docs[i]
		if s := idx.score(queryTokens, doc); s > 0 {
			hits = append(hits, interfaces.ScoredID{ID: doc.iri, Score: s})
			ords[doc.iri] = doc.ord
		}
	}
	sort.SliceStable(hits, func(a, b int) bool {
		if hits[a].Score != hits[b].Score {
			return hits[a].Score > hits[b].Score
		}
		return ords[hits[a].ID] < ords[hits[b].ID]
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

// SetVectorIndex attaches an optional vector search collaborator. Without
// one, hybrid search degrades to lexical only.
func (c *Context) SetVectorIndex(v interfaces.VectorIndex) {
	c.vector = v
}

// SearchClassesHybrid returns up to k candidate classes for the query,
// ordered by a combined lexical and vector relevance score. The result is
// deterministic for a fixed query and ontology snapshot: ties fall back to
// the lexical score, then to declaration order. An empty ontology yields an
// empty result, never an error.
func (c *Context) SearchClassesHybrid(ctx context.Context, query string, k int) ([]types.ClassDefinition, error) {
	if len(c.snapshot.Classes) == 0 {
		return []types.ClassDefinition{}, nil
	}
	if k <= 0 {
		return []types.ClassDefinition{}, nil
	}

	lexHits := c.lexical.search(query, k)

	var vecHits []interfaces.ScoredID
	if c.vector != nil {
		var err error
		vecHits, err = c.vector.SearchByText(ctx, query, k)
		if err != nil {
			// Vector search is best-effort; fall back to lexical scores.
			logger.Warnf(ctx, "vector class search failed, using lexical only: %v", err)
			vecHits = nil
		}
	}

	if len(lexHits) == 0 && len(vecHits) == 0 {
		if len(c.lexical.docs) == 0 && c.vector == nil {
			return nil, &types.OntologyIndexUnavailableError{Cause: errors.New("no lexical documents and no vector index")}
		}
		return []types.ClassDefinition{}, nil
	}

	lexScores := make(map[types.IRI]float64, len(lexHits))
	maxLex := 0.0
	for _, h := range lexHits {
		lexScores[h.ID] = h.Score
		if h.Score > maxLex {
			maxLex = h.Score
		}
	}
	vecScores := make(map[types.IRI]float64, len(vecHits))
	maxVec := 0.0
	for _, h := range vecHits {
		vecScores[h.ID] = h.Score
		if h.Score > maxVec {
			maxVec = h.Score
		}
	}

	ordOf := make(map[types.IRI]int, len(c.snapshot.Classes))
	for i := range c.snapshot.Classes {
		ordOf[c.snapshot.Classes[i].ID] = i
	}

	type combined struct {
		iri      types.IRI
		score    float64
		lexScore float64
	}
	seen := map[types.IRI]struct{}{}
	var all []combined
	for _, pool := range [][]interfaces.ScoredID{lexHits, vecHits} {
		for _, h := range pool {
			if _, ok := seen[h.ID]; ok {
				continue
			}
			seen[h.ID] = struct{}{}
			lex := 0.0
			if maxLex > 0 {
				lex = lexScores[h.ID] / maxLex
			}
			vec := 0.0
			if maxVec > 0 {
				vec = vecScores[h.ID] / maxVec
			}
			all = append(all, combined{iri: h.ID, score: lexicalWeight*lex + vectorWeight*vec, lexScore: lex})
		}
	}
	sort.SliceStable(all, func(a, b int) bool {
		if all[a].score != all[b].score {
			return all[a].score > all[b].score
		}
		if all[a].lexScore != all[b].lexScore {
			return all[a].lexScore > all[b].lexScore
		}
		return ordOf[all[a].iri] < ordOf[all[b].iri]
	})

	if len(all) > k {
		all = all[:k]
	}
	result := make([]types.ClassDefinition, 0, len(all))
	for _, hit := range all {
		if cls := c.GetClass(hit.iri); cls != nil {
			result = append(result, *cls)
		}
	}
	return result, nil
}

// FirstClasses returns the first k classes in declaration order, the
// deterministic fallback when no index can serve a search.
func (c *Context) FirstClasses(k int) []types.ClassDefinition {
	if k > len(c.snapshot.Classes) {
		k = len(c.snapshot.Classes)
	}
	return append([]types.ClassDefinition{}, c.snapshot.Classes[:k]...)
}
