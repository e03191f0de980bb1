package cache

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"
)

// Memory is the process-wide in-memory cache. Concurrent misses on one key
// share a single computation. A value computed across an InvalidateAll is
// returned to its callers but not stored.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]any
	gen     uint64
	group   singleflight.Group

	hits   atomic.Uint64
	misses atomic.Uint64
	clears atomic.Uint64
}

// NewMemory returns an empty cache.
func NewMemory() *Memory {
	return &Memory{entries: map[string]any{}}
}

var _ Cache = (*Memory)(nil)

func (m *Memory) GetOrCompute(ctx context.Context, key string, fn ComputeFunc) (any, error) {
	m.mu.RLock()
	v, ok := m.entries[key]
	gen := m.gen
	m.mu.RUnlock()
	if ok {
		m.hits.Add(1)
		return v, nil
	}
	m.misses.Add(1)

	v, err, _ := m.group.Do(strconv.FormatUint(gen, 10)+"|"+key, func() (any, error) {
		v, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		m.mu.Lock()
		if m.gen == gen {
			m.entries[key] = v
		}
		m.mu.Unlock()
		return v, nil
	})
	return v, err
}

func (m *Memory) InvalidateAll() {
	m.mu.Lock()
	m.entries = map[string]any{}
	m.gen++
	m.mu.Unlock()
	m.clears.Add(1)
}

// Len returns the number of stored entries.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Stats returns the hit, miss and invalidation counters.
func (m *Memory) Stats() (hits, misses, clears uint64) {
	return m.hits.Load(), m.misses.Load(), m.clears.Load()
}

// Register exposes the cache counters on reg.
func (m *Memory) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "qc_read_cache_hits_total",
			Help: "Read cache lookups answered from memory.",
		}, func() float64 { return float64(m.hits.Load()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "qc_read_cache_misses_total",
			Help: "Read cache lookups that ran the query.",
		}, func() float64 { return float64(m.misses.Load()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "qc_read_cache_invalidations_total",
			Help: "Full cache clears triggered by mutations.",
		}, func() float64 { return float64(m.clears.Load()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "qc_read_cache_entries",
			Help: "Entries currently held by the read cache.",
		}, func() float64 { return float64(m.Len()) }),
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
