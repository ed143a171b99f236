// Package store provides in-memory implementations of the generic storage interfaces.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/commission-engine/generic"
)

// =============================================================================
// MEMORY SNAPSHOT STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu        sync.RWMutex
	snapshots map[key]generic.Snapshot
}

type key struct {
	RepID generic.RepID
	Month generic.MonthKey
}

var _ generic.SnapshotStore = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{snapshots: make(map[key]generic.Snapshot)}
}

// SaveSnapshot replaces any snapshot for the same rep and month.
func (m *Memory) SaveSnapshot(_ context.Context, s generic.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	payload := make([]byte, len(s.Payload))
	copy(payload, s.Payload)
	s.Payload = payload
	m.snapshots[key{RepID: s.RepID, Month: s.Month}] = s
	return nil
}

func (m *Memory) GetSnapshot(_ context.Context, repID generic.RepID, month generic.MonthKey) (*generic.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.snapshots[key{RepID: repID, Month: month}]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *Memory) ListSnapshots(_ context.Context, repID generic.RepID) ([]generic.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []generic.Snapshot
	for k, s := range m.snapshots {
		if k.RepID == repID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Month.Year != out[j].Month.Year {
			return out[i].Month.Year > out[j].Month.Year
		}
		return out[i].Month.Month > out[j].Month.Month
	})
	return out, nil
}

// =============================================================================
// MEMORY CACHE - TTL map
// =============================================================================

type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	now     func() time.Time
}

type cacheEntry struct {
	value     []byte
	expiresAt time.Time // zero = never
}

var _ generic.Cache = (*MemoryCache)(nil)

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]cacheEntry), now: time.Now}
}

func (c *MemoryCache) Get(_ context.Context, k string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[k]
	if !ok {
		return nil, generic.ErrCacheMiss
	}
	if !e.expiresAt.IsZero() && !c.now().Before(e.expiresAt) {
		delete(c.entries, k)
		return nil, generic.ErrCacheMiss
	}
	return e.value, nil
}

func (c *MemoryCache) Set(_ context.Context, k string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := cacheEntry{value: value}
	if ttl > 0 {
		e.expiresAt = c.now().Add(ttl)
	}
	c.entries[k] = e
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
