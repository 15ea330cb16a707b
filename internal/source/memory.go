package source

import (
	"context"
	"fmt"
	"sort"
	"sync"

	domainerr "folio/internal/domain/errors"
)

// Memory is a map-backed Store for tests and embedded content.
type Memory struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

func NewMemory(docs map[string]string) *Memory {
	m := &Memory{docs: make(map[string][]byte, len(docs))}
	for id, raw := range docs {
		m.docs[id] = []byte(raw)
	}
	return m
}

func (m *Memory) Put(id, raw string) {
	m.mu.Lock()
	m.docs[id] = []byte(raw)
	m.mu.Unlock()
}

func (m *Memory) Delete(id string) {
	m.mu.Lock()
	delete(m.docs, id)
	m.mu.Unlock()
}

func (m *Memory) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.docs))
	for id := range m.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *Memory) Read(ctx context.Context, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	raw, ok := m.docs[id]
	if !ok {
		return nil, fmt.Errorf("read %q: %w", id, domainerr.ErrNotFound)
	}
	return append([]byte(nil), raw...), nil
}
