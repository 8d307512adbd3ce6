package vote

import (
	"context"
	"sync"
)

// MemorySetStore is an in-process SetStore for tests. Production wiring always
// uses the Redis store.
type MemorySetStore struct {
	mu   sync.Mutex
	sets map[string]map[string]struct{}
}

// NewMemorySetStore creates an empty in-memory set store
func NewMemorySetStore() *MemorySetStore {
	return &MemorySetStore{sets: make(map[string]map[string]struct{})}
}

func (s *MemorySetStore) Move(_ context.Context, addKey, removeKey, member string) (bool, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.add(addKey, member), s.remove(removeKey, member), nil
}

func (s *MemorySetStore) Withdraw(_ context.Context, firstKey, secondKey, member string) (bool, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remove(firstKey, member), s.remove(secondKey, member), nil
}

func (s *MemorySetStore) Add(_ context.Context, key, member string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.add(key, member), nil
}

func (s *MemorySetStore) Remove(_ context.Context, key, member string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remove(key, member), nil
}

func (s *MemorySetStore) IsMember(_ context.Context, key, member string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sets[key][member]
	return ok, nil
}

func (s *MemorySetStore) Card(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.sets[key])), nil
}

func (s *MemorySetStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.sets, key)
	}
	return nil
}

// Exists reports whether a set key is present. Empty sets are removed, as in
// Redis.
func (s *MemorySetStore) Exists(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sets[key]
	return ok
}

// Len returns the number of non-empty sets
func (s *MemorySetStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sets)
}

func (s *MemorySetStore) add(key, member string) bool {
	set, ok := s.sets[key]
	if !ok {
		set = make(map[string]struct{})
		s.sets[key] = set
	}
	if _, exists := set[member]; exists {
		return false
	}
	set[member] = struct{}{}
	return true
}

func (s *MemorySetStore) remove(key, member string) bool {
	set, ok := s.sets[key]
	if !ok {
		return false
	}
	if _, exists := set[member]; !exists {
		return false
	}
	delete(set, member)
	if len(set) == 0 {
		delete(s.sets, key)
	}
	return true
}
