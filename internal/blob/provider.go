// Package blob provides the key-value blob store used to persist client
// state (history, preferences) by string key.
package blob

import (
	"context"
	"errors"
	"sync"
)

// Provider defines the minimal blob operations needed by the client stores.
type Provider interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Del(ctx context.Context, key string) error
	Close() error
}

// ErrNotFound signals that a blob key was not found.
var ErrNotFound = errors.New("blob not found")

// MemoryProvider implements Provider in process memory. It is the default
// backend and the one tests use; contents do not survive a restart.
type MemoryProvider struct {
	mu    sync.Mutex
	store map[string][]byte
}

// NewMemoryProvider returns an empty in-memory provider.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{store: make(map[string][]byte)}
}

// Get fetches bytes by key, returning ErrNotFound when the key is absent.
func (m *MemoryProvider) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.store[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

// Set stores a copy of value under key.
func (m *MemoryProvider) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[key] = append([]byte(nil), value...)
	return nil
}

// Del removes a key; deleting an absent key is not an error.
func (m *MemoryProvider) Del(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.store, key)
	return nil
}

// Close is a no-op for the in-memory provider.
func (m *MemoryProvider) Close() error { return nil }
