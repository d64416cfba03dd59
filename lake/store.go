package lake

import (
	"context"
	"errors"
	"sync"
)

// ErrNotExist is returned by Store.Get for keys with no object.
var ErrNotExist = errors.New("lake: object does not exist")

// Store abstracts the object store. The merge cycle only needs whole-object
// reads and writes; implementations must not be assumed to support append.
type Store interface {
	// Get reads the full object at key. Returns ErrNotExist if absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put writes data to key, overwriting any existing object.
	Put(ctx context.Context, key string, data []byte) error

	// Exists reports whether an object is present at key.
	Exists(ctx context.Context, key string) (bool, error)
}

// MemStore is an in-memory Store for tests.
type MemStore struct {
	mu      sync.Mutex
	objects map[string][]byte

	// PutCount counts Put calls for write-amplification assertions.
	PutCount int
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{objects: make(map[string][]byte)}
}

// Get implements Store.
func (s *MemStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.objects[key]
	if !ok {
		return nil, ErrNotExist
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Put implements Store.
func (s *MemStore) Put(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]byte, len(data))
	copy(stored, data)
	s.objects[key] = stored
	s.PutCount++
	return nil
}

// Exists implements Store.
func (s *MemStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.objects[key]
	return ok, nil
}

// Object returns the stored bytes for key, for test inspection.
func (s *MemStore) Object(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.objects[key]
	return data, ok
}

// Keys returns all stored keys, for test inspection.
func (s *MemStore) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	return keys
}
