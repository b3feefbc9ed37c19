package storage

import (
	"sync"

	"paydesk/pkg/session"
)

// MemoryStorage keeps the serialized session in process memory.
type MemoryStorage struct {
	mu    sync.Mutex
	data  []byte
	saves int
}

// NewMemoryStorage returns an empty in-memory backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// NewMemoryStorageWith returns a backend pre-loaded with data.
func NewMemoryStorageWith(data []byte) *MemoryStorage {
	return &MemoryStorage{data: copyBytes(data)}
}

func (m *MemoryStorage) Load() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return nil, session.ErrNotFound
	}
	return copyBytes(m.data), nil
}

func (m *MemoryStorage) Save(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = copyBytes(data)
	m.saves++
	return nil
}

func (m *MemoryStorage) Remove() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = nil
	return nil
}

// Bytes returns the currently stored payload, or nil.
func (m *MemoryStorage) Bytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return nil
	}
	return copyBytes(m.data)
}

// SaveCount reports how many times Save has been called.
func (m *MemoryStorage) SaveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func copyBytes(in []byte) []byte {
	out := make([]byte, len(in))
	copy(out, in)
	return out
}
