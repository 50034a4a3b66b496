package kv

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/ding-dong-qiang/blockchain-storage-system/internal/common"
)

// ErrQuotaExceeded is returned by MemoryStore.Set when the write would push
// the stored bytes past the quota.
var ErrQuotaExceeded = errors.New("storage quota exceeded")

// MemoryStore keeps everything in a map. A positive quota bounds the total
// size of keys plus values.
type MemoryStore struct {
	mu    sync.RWMutex
	data  map[string][]byte
	quota int
	used  int
}

func NewMemoryStore(quota int) *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte), quota: quota}
}

func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[key]
	if !ok {
		return nil, common.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryStore) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	used := m.used + len(key) + len(value)
	if old, ok := m.data[key]; ok {
		used -= len(key) + len(old)
	}
	if m.quota > 0 && used > m.quota {
		return ErrQuotaExceeded
	}

	m.data[key] = append([]byte(nil), value...)
	m.used = used
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if old, ok := m.data[key]; ok {
		m.used -= len(key) + len(old)
		delete(m.data, key)
	}
	return nil
}

func (m *MemoryStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0)
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
