package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/semweave/semweave/internal/types"
)

// RedisCheckpointPublisher stores checkpoints in a Redis list per run, with
// a TTL so finished runs age out.
type RedisCheckpointPublisher struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCheckpointPublisher connects to Redis and verifies the connection.
func NewRedisCheckpointPublisher(addr, password string, db int, ttl time.Duration) (*RedisCheckpointPublisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return &RedisCheckpointPublisher{client: client, ttl: ttl}, nil
}

func (r *RedisCheckpointPublisher) key(runID string) string {
	return "checkpoints:" + runID
}

// PublishCheckpoint appends a checkpoint for a run.
func (r *RedisCheckpointPublisher) PublishCheckpoint(ctx context.Context, runID string, checkpoint types.ValidationCheckpoint) error {
	data, err := json.Marshal(checkpoint)
	if err != nil {
		return err
	}
	pipe := r.client.Pipeline()
	pipe.RPush(ctx, r.key(runID), data)
	pipe.Expire(ctx, r.key(runID), r.ttl)
	_, err = pipe.Exec(ctx)
	return err
}

// Checkpoints returns the checkpoints of a run in publish order.
func (r *RedisCheckpointPublisher) Checkpoints(ctx context.Context, runID string) ([]types.ValidationCheckpoint, error) {
	raw, err := r.client.LRange(ctx, r.key(runID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	checkpoints := make([]types.ValidationCheckpoint, 0, len(raw))
	for _, item := range raw {
		var checkpoint types.ValidationCheckpoint
		if err := json.Unmarshal([]byte(item), &checkpoint); err != nil {
			return nil, err
		}
		checkpoints = append(checkpoints, checkpoint)
	}
	return checkpoints, nil
}
