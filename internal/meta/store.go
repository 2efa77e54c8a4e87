package meta

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// ErrStoreUnavailable indicates the metadata store dependency is not configured.
var ErrStoreUnavailable = errors.New("meta: store unavailable")

// Store keeps raw metadata values per owner. Owners are products, variations or the site
// itself for cart-level settings. A missing value is reported with found == false, not an
// error.
type Store interface {
	Get(ctx context.Context, owner, key string) (value []byte, found bool, err error)
	Put(ctx context.Context, owner, key string, value []byte) error
	Delete(ctx context.Context, owner, key string) error
}

// Memory is an in-process Store used by tests and single-binary tools.
type Memory struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewMemory constructs an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{values: make(map[string][]byte)}
}

func memoryKey(owner, key string) string {
	return strings.TrimSpace(owner) + "\x00" + key
}

// Get implements Store.
func (m *Memory) Get(_ context.Context, owner, key string) ([]byte, bool, error) {
	if m == nil {
		return nil, false, ErrStoreUnavailable
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[memoryKey(owner, key)]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// Put implements Store.
func (m *Memory) Put(_ context.Context, owner, key string, value []byte) error {
	if m == nil {
		return ErrStoreUnavailable
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values == nil {
		m.values = make(map[string][]byte)
	}
	m.values[memoryKey(owner, key)] = append([]byte(nil), value...)
	return nil
}

// Delete implements Store.
func (m *Memory) Delete(_ context.Context, owner, key string) error {
	if m == nil {
		return ErrStoreUnavailable
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, memoryKey(owner, key))
	return nil
}
