package cache

import (
	"sync/atomic"
	"time"
)

// Collector receives cache operation outcomes for observability. A disabled
// collector must never affect correctness; the NoOpCollector is the default.
type Collector interface {
	Command(command string, duration time.Duration, err error)
	Hit()
	Miss()
}

// NoOpCollector implements Collector with no-op methods.
type NoOpCollector struct{}

func (NoOpCollector) Command(string, time.Duration, error) {}
func (NoOpCollector) Hit()                                 {}
func (NoOpCollector) Miss()                                {}

// OpsCollector counts cache operations with atomics.
type OpsCollector struct {
	hits      atomic.Int64
	misses    atomic.Int64
	sets      atomic.Int64
	deletes   atomic.Int64
	errors    atomic.Int64
	commands  atomic.Int64
	latencyNs atomic.Int64
}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Hits           int64         `json:"hits"`
	Misses         int64         `json:"misses"`
	Sets           int64         `json:"sets"`
	Deletes        int64         `json:"deletes"`
	Errors         int64         `json:"errors"`
	Commands       int64         `json:"commands"`
	AverageLatency time.Duration `json:"average_latency"`
}

// NewOpsCollector creates an OpsCollector.
func NewOpsCollector() *OpsCollector {
	return &OpsCollector{}
}

// Command records a backend command outcome.
func (c *OpsCollector) Command(command string, duration time.Duration, err error) {
	c.commands.Add(1)
	c.latencyNs.Add(int64(duration))
	switch command {
	case "set", "setnx":
		c.sets.Add(1)
	case "del", "cad":
		c.deletes.Add(1)
	}
	if err != nil {
		c.errors.Add(1)
	}
}

// Hit records a cache hit.
func (c *OpsCollector) Hit() { c.hits.Add(1) }

// Miss records a cache miss.
func (c *OpsCollector) Miss() { c.misses.Add(1) }

// Snapshot returns the current counters.
func (c *OpsCollector) Snapshot() Stats {
	commands := c.commands.Load()
	var avg time.Duration
	if commands > 0 {
		avg = time.Duration(c.latencyNs.Load() / commands)
	}
	return Stats{
		Hits:           c.hits.Load(),
		Misses:         c.misses.Load(),
		Sets:           c.sets.Load(),
		Deletes:        c.deletes.Load(),
		Errors:         c.errors.Load(),
		Commands:       commands,
		AverageLatency: avg,
	}
}
