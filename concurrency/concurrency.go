// Package concurrency bounds the number of simultaneously executing export
// pipelines. The gate is an in-process semaphore; callers beyond the cap are
// rejected immediately rather than queued, keeping latency predictable.
package concurrency

import (
	"fmt"
	"sync/atomic"
)

// Gate caps concurrent executions.
type Gate struct {
	max       int32
	current   atomic.Int32
	semaphore chan struct{}

	totalExecutions atomic.Int64
	rejectedCount   atomic.Int64
}

// Metrics is a snapshot of gate counters.
type Metrics struct {
	Active          int32 `json:"active"`
	Max             int32 `json:"max"`
	TotalExecutions int64 `json:"total_executions"`
	Rejected        int64 `json:"rejected"`
}

// NewGate creates a gate allowing up to max concurrent executions.
func NewGate(max int32) (*Gate, error) {
	if max <= 0 {
		return nil, fmt.Errorf("max concurrent must be positive, got: %d", max)
	}
	return &Gate{
		max:       max,
		semaphore: make(chan struct{}, max),
	}, nil
}

// TryAcquire attempts to take a slot without blocking. It reports whether a
// slot was acquired; a false return counts as a rejection.
func (g *Gate) TryAcquire() bool {
	select {
	case g.semaphore <- struct{}{}:
		g.current.Add(1)
		g.totalExecutions.Add(1)
		return true
	default:
		g.rejectedCount.Add(1)
		return false
	}
}

// Release frees a slot.
func (g *Gate) Release() {
	select {
	case <-g.semaphore:
		g.current.Add(-1)
	default:
		panic("concurrency: release without matching acquire")
	}
}

// Active returns the number of occupied slots.
func (g *Gate) Active() int32 {
	return g.current.Load()
}

// Available returns the number of free slots.
func (g *Gate) Available() int32 {
	return g.max - g.current.Load()
}

// Max returns the configured cap.
func (g *Gate) Max() int32 {
	return g.max
}

// Snapshot returns current gate metrics.
func (g *Gate) Snapshot() Metrics {
	return Metrics{
		Active:          g.current.Load(),
		Max:             g.max,
		TotalExecutions: g.totalExecutions.Load(),
		Rejected:        g.rejectedCount.Load(),
	}
}
