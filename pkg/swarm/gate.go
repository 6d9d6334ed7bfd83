package swarm

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// DefaultGateSize serializes all remote calls in the process. Concurrent
// sessions queue on the gate instead of running in parallel; raise the
// pool size in the config to trade that simplicity for throughput.
const DefaultGateSize = 1

// Gate bounds the number of in-flight Docker API calls.
type Gate struct {
	sem *semaphore.Weighted
}

// NewGate creates a gate admitting at most size concurrent calls.
func NewGate(size int64) *Gate {
	if size < 1 {
		size = DefaultGateSize
	}
	return &Gate{sem: semaphore.NewWeighted(size)}
}

// Do runs fn once a slot is free. Waiting respects ctx cancellation.
func (g *Gate) Do(ctx context.Context, fn func() error) error {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer g.sem.Release(1)
	return fn()
}
