package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ding-dong-qiang/blockchain-storage-system/internal/cryptox"
	"github.com/ding-dong-qiang/blockchain-storage-system/internal/logging"
	"github.com/ding-dong-qiang/blockchain-storage-system/internal/remote"
	"github.com/ding-dong-qiang/blockchain-storage-system/internal/repositories/kv"
	"github.com/stretchr/testify/require"
)

const testSalt = "test-salt"

var errInjected = errors.New("injected storage failure")

func newKeys(t *testing.T, secret string) *cryptox.Keyring {
	t.Helper()
	keys, err := cryptox.NewKeyring(secret, testSalt)
	require.NoError(t, err)
	return keys
}

func newWorkspace(t *testing.T, store kv.Store, blobs remote.BlobStore, secret string) *Workspace {
	t.Helper()
	w := NewWorkspace(NewStores(store, logging.Nop()), newKeys(t, secret), blobs, MirrorOptions{}, logging.Nop())
	t.Cleanup(w.Mirror.Wait)
	return w
}

// flakyKV fails operations on keys with a given prefix once armed.
type flakyKV struct {
	kv.Store
	failGet    string
	failSet    string
	failDelete string
}

func (f *flakyKV) Get(ctx context.Context, key string) ([]byte, error) {
	if f.failGet != "" && strings.HasPrefix(key, f.failGet) {
		return nil, errInjected
	}
	return f.Store.Get(ctx, key)
}

func (f *flakyKV) Set(ctx context.Context, key string, value []byte) error {
	if f.failSet != "" && strings.HasPrefix(key, f.failSet) {
		return errInjected
	}
	return f.Store.Set(ctx, key, value)
}

func (f *flakyKV) Delete(ctx context.Context, key string) error {
	if f.failDelete != "" && strings.HasPrefix(key, f.failDelete) {
		return errInjected
	}
	return f.Store.Delete(ctx, key)
}

// flakyTxKV is flakyKV for a transactional store: the failure is injected
// inside the transaction.
type flakyTxKV struct {
	*kv.SQLStore
	failSet string
}

func (f *flakyTxKV) WithTx(ctx context.Context, fn func(ctx context.Context, s kv.Store) error) error {
	return f.SQLStore.WithTx(ctx, func(ctx context.Context, tx kv.Store) error {
		return fn(ctx, &flakyKV{Store: tx, failSet: f.failSet})
	})
}

func openSQLite(t *testing.T) *kv.SQLStore {
	t.Helper()
	s, err := kv.Open(context.Background(), kv.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}
