package embedding

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/semweave/semweave/internal/common"
	"github.com/semweave/semweave/internal/logger"
)

// cachedEmbedder wraps an Embedder with a Redis cache. Keys are the
// 64-hex-char SHA-256 of (text, task type), so identical class documents
// across runs hit the cache instead of the provider.
type cachedEmbedder struct {
	Embedder
	client   *redis.Client
	taskType string
	ttl      time.Duration
}

// NewCachedEmbedder wraps model with a Redis cache scoped to taskType.
func NewCachedEmbedder(model Embedder, client *redis.Client, taskType string, ttl time.Duration) Embedder {
	return &cachedEmbedder{Embedder: model, client: client, taskType: taskType, ttl: ttl}
}

func (c *cachedEmbedder) cacheKey(text string) string {
	return "emb:" + common.HashEmbeddingKey(text, c.taskType)
}

// Embed serves from cache when possible.
func (c *cachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.BatchEmbed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// BatchEmbed serves cached entries and only sends misses upstream.
func (c *cachedEmbedder) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	var missTexts []string
	var missIdx []int

	keys := common.MapSlice(texts, func(t string) string { return c.cacheKey(t) })
	cached, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		// Cache trouble is never fatal; fall through to the provider.
		logger.Warnf(ctx, "embedding cache read failed: %v", err)
		cached = make([]interface{}, len(texts))
	}

	for i := range texts {
		if raw, ok := cached[i].(string); ok {
			var vec []float32
			if err := json.Unmarshal([]byte(raw), &vec); err == nil {
				results[i] = vec
				continue
			}
		}
		missTexts = append(missTexts, texts[i])
		missIdx = append(missIdx, i)
	}

	if len(missTexts) == 0 {
		return results, nil
	}

	fresh, err := c.Embedder.BatchEmbed(ctx, missTexts)
	if err != nil {
		return nil, err
	}

	pipe := c.client.Pipeline()
	for i, vec := range fresh {
		results[missIdx[i]] = vec
		if data, err := json.Marshal(vec); err == nil {
			pipe.Set(ctx, keys[missIdx[i]], data, c.ttl)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Warnf(ctx, "embedding cache write failed: %v", err)
	}

	return results, nil
}
