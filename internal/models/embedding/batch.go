package embedding

import (
	"context"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/semweave/semweave/internal/common"
)

// batchEmbedder splits large inputs into small provider batches and runs
// them concurrently on the shared goroutine pool.
type batchEmbedder struct {
	pool *ants.Pool
}

// NewBatchEmbedder creates a Pooler over the shared ants pool.
func NewBatchEmbedder(pool *ants.Pool) Pooler {
	return &batchEmbedder{pool: pool}
}

type textEmbedding struct {
	text    string
	results []float32
}

// providerBatchSize is the number of texts sent per upstream request
const providerBatchSize = 5

// BatchEmbedWithPool embeds texts in provider-sized batches, preserving
// input order in the result.
func (e *batchEmbedder) BatchEmbedWithPool(ctx context.Context, model Embedder, texts []string) ([][]float32, error) {
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	textEmbeddings := common.MapSlice(texts, func(text string) *textEmbedding {
		return &textEmbedding{text: text}
	})

	processBatch := func(batch []*textEmbedding) func() {
		return func() {
			defer wg.Done()
			mu.Lock()
			failed := firstErr != nil
			mu.Unlock()
			if failed {
				return
			}
			vectors, err := model.BatchEmbed(ctx, common.MapSlice(batch, func(t *textEmbedding) string {
				return t.text
			}))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			for i, t := range batch {
				t.results = vectors[i]
			}
		}
	}

	for _, batch := range common.ChunkSlice(textEmbeddings, providerBatchSize) {
		wg.Add(1)
		if err := e.pool.Submit(processBatch(batch)); err != nil {
			wg.Done()
			return nil, err
		}
	}

	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}

	return common.MapSlice(textEmbeddings, func(t *textEmbedding) []float32 {
		return t.results
	}), nil
}
