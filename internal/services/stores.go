package services

import (
	"context"
	"sync"

	"github.com/ding-dong-qiang/blockchain-storage-system/internal/logging"
	"github.com/ding-dong-qiang/blockchain-storage-system/internal/repositories/content"
	"github.com/ding-dong-qiang/blockchain-storage-system/internal/repositories/index"
	"github.com/ding-dong-qiang/blockchain-storage-system/internal/repositories/kv"
)

// Stores groups the index and content stores over one substrate. Its lock
// serializes index read-modify-write cycles across all services.
type Stores struct {
	mu      sync.RWMutex
	kv      kv.Store
	index   *index.Store
	content *content.Store
}

func NewStores(store kv.Store, log logging.Logger) *Stores {
	return &Stores{
		kv:      store,
		index:   index.NewStore(store, log),
		content: content.NewStore(store),
	}
}

// KV is the underlying substrate.
func (s *Stores) KV() kv.Store {
	return s.kv
}

// update runs fn under the write lock, inside one transaction when the
// substrate supports it.
func (s *Stores) update(ctx context.Context, fn func(ctx context.Context, store kv.Store, ix *index.Store, c *content.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tx, ok := s.kv.(kv.Transactor); ok {
		return tx.WithTx(ctx, func(ctx context.Context, store kv.Store) error {
			return fn(ctx, store, s.index.WithKV(store), s.content.WithKV(store))
		})
	}
	return fn(ctx, s.kv, s.index, s.content)
}

// view runs fn under the read lock.
func (s *Stores) view(fn func(ix *index.Store, c *content.Store) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.index, s.content)
}
