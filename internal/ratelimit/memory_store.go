package ratelimit

import (
	"context"
	"hash/fnv"
	"sync"
	"time"
)

const shardCount = 16

type counter struct {
	count   int64
	expires time.Time
}

type shard struct {
	mu       sync.Mutex
	counters map[string]*counter
}

// MemoryStore is the single-instance counter store: a lock-striped map,
// never a bare shared one. Entries carry their own expiry and are dropped
// on the next touch or by Sweep.
type MemoryStore struct {
	shards [shardCount]*shard
	now    func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithClock(time.Now)
}

func NewMemoryStoreWithClock(now func() time.Time) *MemoryStore {
	s := &MemoryStore{now: now}
	for i := range s.shards {
		s.shards[i] = &shard{counters: make(map[string]*counter)}
	}
	return s
}

func (s *MemoryStore) Incr(_ context.Context, key string, window time.Duration) (int64, error) {
	sh := s.shardFor(key)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	now := s.now()
	c, ok := sh.counters[key]
	if !ok || !c.expires.After(now) {
		c = &counter{expires: now.Add(window)}
		sh.counters[key] = c
	}
	c.count++
	return c.count, nil
}

// Sweep drops expired counters. Run periodically; correctness does not
// depend on it.
func (s *MemoryStore) Sweep() int {
	now := s.now()
	removed := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		for key, c := range sh.counters {
			if !c.expires.After(now) {
				delete(sh.counters, key)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed
}

func (s *MemoryStore) shardFor(key string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return s.shards[h.Sum32()%shardCount]
}
