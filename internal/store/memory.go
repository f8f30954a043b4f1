package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	apperrors "github.com/oliviawu/xetra-ruoshi/internal/errors"
)

// MemoryBucket is an in-memory Gateway implementation. It backs the core
// tests and local dry runs; semantics mirror Bucket at the contract
// level (not-found mapping, format handling, empty-write no-op).
type MemoryBucket struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemoryBucket creates an empty in-memory bucket
func NewMemoryBucket() *MemoryBucket {
	return &MemoryBucket{objects: make(map[string][]byte)}
}

// List returns all keys with the given prefix in lexicographic order
func (m *MemoryBucket) List(ctx context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var keys []string
	for key := range m.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	return keys, nil
}

// ReadTable decodes the object at key by its suffix
func (m *MemoryBucket) ReadTable(ctx context.Context, key string) (*Table, error) {
	m.mu.RLock()
	data, ok := m.objects[key]
	m.mu.RUnlock()

	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("object %q does not exist", key), nil)
	}

	return decodeTable(data, key)
}

// WriteTable encodes and stores the table, overwriting any prior object
func (m *MemoryBucket) WriteTable(ctx context.Context, t *Table, key, format string) (bool, error) {
	if t.Empty() {
		return false, nil
	}

	data, err := encodeTable(t, format)
	if err != nil {
		return false, err
	}

	m.mu.Lock()
	m.objects[key] = data
	m.mu.Unlock()

	return true, nil
}

// PutRaw stores raw object bytes, bypassing the table codecs. Tests use
// it to stage malformed payloads.
func (m *MemoryBucket) PutRaw(key string, data []byte) {
	m.mu.Lock()
	m.objects[key] = data
	m.mu.Unlock()
}
