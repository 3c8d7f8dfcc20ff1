package storage

import (
	"encoding/json"
	"fmt"
	"sync"
)

// MemStore is an in-memory DocStore used by tests. Documents are held as
// encoded JSON so Load/Save round-trip through the same marshalling path
// as the sqlite store.
type MemStore struct {
	mu   sync.Mutex
	docs map[string][]byte
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{docs: make(map[string][]byte)}
}

func (s *MemStore) Load(name string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.docs[name]
	if !ok {
		return ErrNotFound
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("storage: failed to decode document %q: %w", name, err)
	}
	return nil
}

func (s *MemStore) Save(name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("storage: failed to encode document %q: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[name] = data
	return nil
}

func (s *MemStore) Close() error { return nil }

// Corrupt overwrites a document with undecodable bytes. Tests use it to
// exercise the corrupt-document recovery paths.
func (s *MemStore) Corrupt(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[name] = []byte("{not json")
}
