// Package stream publishes validation-loop checkpoint events so API clients
// can follow the progress of a run.
package stream

import (
	"os"
	"strconv"
	"time"

	"github.com/semweave/semweave/internal/types/interfaces"
)

// Checkpoint publisher backends
const (
	TypeMemory = "memory"
	TypeRedis  = "redis"
)

// NewCheckpointPublisher selects the backend from the environment: redis
// when CHECKPOINT_PUBLISHER=redis, in-memory otherwise.
func NewCheckpointPublisher() (interfaces.CheckpointPublisher, error) {
	switch os.Getenv("CHECKPOINT_PUBLISHER") {
	case TypeRedis:
		db, err := strconv.Atoi(os.Getenv("REDIS_DB"))
		if err != nil {
			db = 0
		}
		return NewRedisCheckpointPublisher(
			os.Getenv("REDIS_ADDR"),
			os.Getenv("REDIS_PASSWORD"),
			db,
			24*time.Hour,
		)
	default:
		return NewMemoryCheckpointPublisher(), nil
	}
}
