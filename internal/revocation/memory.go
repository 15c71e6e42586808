package revocation

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store. Reads take a shared lock so
// concurrent guards do not serialize on each other.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
	clock   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry), clock: time.Now}
}

func (s *MemoryStore) Revoke(ctx context.Context, e Entry) (bool, error) {
	if err := validate(e); err != nil {
		return false, err
	}
	now := s.clock()
	if !e.Live(now) {
		// Past natural expiry there is nothing to enforce.
		return true, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.entries[e.Key]; ok && cur.Live(now) {
		return false, nil
	}
	s.entries[e.Key] = e
	return true, nil
}

func (s *MemoryStore) Put(ctx context.Context, e Entry) error {
	if err := validate(e); err != nil {
		return err
	}
	now := s.clock()
	if !e.Live(now) {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.entries[e.Key]; ok && !supersedes(e, cur, now) {
		return nil
	}
	s.entries[e.Key] = e
	return nil
}

func (s *MemoryStore) Lookup(ctx context.Context, keys ...string) ([]Entry, error) {
	now := s.clock()

	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Entry
	for _, k := range keys {
		if e, ok := s.entries[k]; ok && e.Live(now) {
			out = append(out, e)
		}
	}
	return out, nil
}

// Sweep drops entries whose natural expiry has passed.
func (s *MemoryStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k, e := range s.entries {
		if !e.Live(now) {
			delete(s.entries, k)
			n++
		}
	}
	return n, nil
}

// Len is the number of entries held, live or not.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

var (
	_ Store   = (*MemoryStore)(nil)
	_ Sweeper = (*MemoryStore)(nil)
)
