package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore implements Store interface with in-memory storage.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]string
	used  int64
	quota int64
}

// NewMemoryStore creates a new MemoryStore with the given byte quota.
// A quota of zero or less disables the limit.
func NewMemoryStore(quota int64) *MemoryStore {
	return &MemoryStore{
		items: make(map[string]string),
		quota: quota,
	}
}

// Read returns the value stored under key.
func (s *MemoryStore) Read(ctx context.Context, key string) (string, error) {
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("read key: %w", ctx.Err())
	default:
	}

	if key == "" {
		return "", ErrInvalidKey
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	value, exists := s.items[key]
	if !exists {
		return "", ErrNotFound
	}

	return value, nil
}

// Write stores value under key subject to the quota.
func (s *MemoryStore) Write(ctx context.Context, key, value string) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("write key: %w", ctx.Err())
	default:
	}

	if key == "" {
		return ErrInvalidKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var oldSize int64
	if old, exists := s.items[key]; exists {
		oldSize = entrySize(key, old)
	}

	newSize := entrySize(key, value)
	if err := checkQuota(s.used, oldSize, newSize, s.quota); err != nil {
		return fmt.Errorf("write %q: %w", key, err)
	}

	s.items[key] = value
	s.used += newSize - oldSize

	return nil
}

// Remove deletes key from the store.
func (s *MemoryStore) Remove(ctx context.Context, key string) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("remove key: %w", ctx.Err())
	default:
	}

	if key == "" {
		return ErrInvalidKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, exists := s.items[key]; exists {
		s.used -= entrySize(key, old)
		delete(s.items, key)
	}

	return nil
}

// Keys returns all keys in ascending order.
func (s *MemoryStore) Keys(ctx context.Context) ([]string, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("list keys: %w", ctx.Err())
	default:
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.items))
	for key := range s.items {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	return keys, nil
}

// Usage returns the bytes in use and the quota.
func (s *MemoryStore) Usage(_ context.Context) (int64, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.used, s.quota, nil
}

// Close is a no-op for the memory store.
func (s *MemoryStore) Close() error {
	return nil
}
