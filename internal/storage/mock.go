package storage

import (
	"context"
	"sync"
)

// MockStore is an in-memory ObjectStore for testing.
type MockStore struct {
	mu      sync.Mutex
	baseURL string
	objects map[string][]byte
	opts    map[string]PutOptions
	putErr  error
}

// NewMockStore creates an empty MockStore whose URLs start with baseURL.
func NewMockStore(baseURL string) *MockStore {
	return &MockStore{
		baseURL: baseURL,
		objects: make(map[string][]byte),
		opts:    make(map[string]PutOptions),
	}
}

// SetPutError makes every Put fail with err.
func (m *MockStore) SetPutError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putErr = err
}

// Put stores a copy of data.
func (m *MockStore) Put(ctx context.Context, key string, opts PutOptions, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return "", m.putErr
	}
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	m.objects[key] = append([]byte(nil), data...)
	m.opts[key] = opts
	return joinURL(m.baseURL, key), nil
}

// Get returns a stored object.
func (m *MockStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key, err := cleanKey(key)
	if err != nil {
		return nil, err
	}
	data, ok := m.objects[key]
	if !ok {
		return nil, ErrObjectNotFound
	}
	return append([]byte(nil), data...), nil
}

// Options returns the metadata stored with key.
func (m *MockStore) Options(key string) (PutOptions, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	opts, ok := m.opts[key]
	return opts, ok
}

// Len returns the number of stored objects.
func (m *MockStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}
