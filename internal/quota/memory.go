package quota

import (
	"context"
	"sync"
)

// MemoryStore is a process-local quota store for single-instance
// deployments and tests. Counts do not survive a restart.
type MemoryStore struct {
	mu   sync.Mutex
	sent map[string]int
}

// NewMemoryStore builds an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sent: make(map[string]int)}
}

// IncrementSent adds n to the day's counter and returns the new total.
func (s *MemoryStore) IncrementSent(ctx context.Context, day string, n int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent[day] += n
	return s.sent[day], nil
}

// SentOn reads the day's counter, zero if absent.
func (s *MemoryStore) SentOn(ctx context.Context, day string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sent[day], nil
}
