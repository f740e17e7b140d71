package threadchat

import (
	"context"
	"sync"
)

// ThreadIDKey is the storage key the Controller keeps the current thread id under.
const ThreadIDKey = "chatThreadId"

// Storage is a flat string key/value store. Get reports ok=false when the key
// is absent.
type Storage interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

var _ Storage = &MemoryStorage{}

// MemoryStorage is a simple in-memory implementation of the Storage interface.
type MemoryStorage struct {
	mu      sync.RWMutex
	storage map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		storage: make(map[string]string),
	}
}

func (m *MemoryStorage) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	val, exists := m.storage[key]
	return val, exists, nil
}

func (m *MemoryStorage) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.storage[key] = value
	return nil
}

func (m *MemoryStorage) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.storage, key)
	return nil
}
