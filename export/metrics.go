package export

import "sync/atomic"

// Metrics counts orchestrator outcomes. Owned by the orchestrator instance,
// reset only on process restart; no ambient global state.
type Metrics struct {
	totalRequests atomic.Int64
	cacheHits     atomic.Int64
	cacheMisses   atomic.Int64
	deduplicated  atomic.Int64
	rateLimited   atomic.Int64
	completed     atomic.Int64
	failed        atomic.Int64
}

// MetricsSnapshot is a point-in-time view of orchestrator counters.
type MetricsSnapshot struct {
	TotalRequests int64 `json:"totalRequests"`
	CacheHits     int64 `json:"cacheHits"`
	CacheMisses   int64 `json:"cacheMisses"`
	Deduplicated  int64 `json:"deduplicated"`
	RateLimited   int64 `json:"rateLimited"`
	Completed     int64 `json:"completed"`
	Failed        int64 `json:"failed"`
}

// Snapshot returns the current counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		TotalRequests: m.totalRequests.Load(),
		CacheHits:     m.cacheHits.Load(),
		CacheMisses:   m.cacheMisses.Load(),
		Deduplicated:  m.deduplicated.Load(),
		RateLimited:   m.rateLimited.Load(),
		Completed:     m.completed.Load(),
		Failed:        m.failed.Load(),
	}
}
