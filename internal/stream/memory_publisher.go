package stream

import (
	"context"
	"sync"

	"github.com/semweave/semweave/internal/types"
)

// MemoryCheckpointPublisher keeps checkpoints in process, keyed by run ID.
type MemoryCheckpointPublisher struct {
	mu          sync.RWMutex
	checkpoints map[string][]types.ValidationCheckpoint
}

// NewMemoryCheckpointPublisher creates an in-memory publisher.
func NewMemoryCheckpointPublisher() *MemoryCheckpointPublisher {
	return &MemoryCheckpointPublisher{
		checkpoints: make(map[string][]types.ValidationCheckpoint),
	}
}

// PublishCheckpoint appends a checkpoint for a run.
func (m *MemoryCheckpointPublisher) PublishCheckpoint(ctx context.Context, runID string, checkpoint types.ValidationCheckpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkpoints[runID] = append(m.checkpoints[runID], checkpoint)
	return nil
}

// Checkpoints returns the checkpoints of a run in publish order.
func (m *MemoryCheckpointPublisher) Checkpoints(ctx context.Context, runID string) ([]types.ValidationCheckpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]types.ValidationCheckpoint{}, m.checkpoints[runID]...), nil
}
