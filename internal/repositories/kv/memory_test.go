package kv

import (
	"context"
	"testing"

	"github.com/ding-dong-qiang/blockchain-storage-system/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Basics(t *testing.T) {
	m := NewMemoryStore(0)
	ctx := context.Background()

	_, err := m.Get(ctx, "k")
	require.ErrorIs(t, err, common.ErrNotFound)

	require.NoError(t, m.Set(ctx, "k", []byte("v")))
	v, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), v)

	v[0] = 'x'
	again, _ := m.Get(ctx, "k")
	assert.Equal(t, []byte("v"), again, "returned slices must not alias storage")

	require.NoError(t, m.Delete(ctx, "k"))
	require.NoError(t, m.Delete(ctx, "k"))
	_, err = m.Get(ctx, "k")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestMemoryStore_Keys(t *testing.T) {
	m := NewMemoryStore(0)
	ctx := context.Background()
	for _, k := range []string{"b:2", "a:1", "b:1"} {
		require.NoError(t, m.Set(ctx, k, nil))
	}

	keys, err := m.Keys(ctx, "b:")
	require.NoError(t, err)
	assert.Equal(t, []string{"b:1", "b:2"}, keys)
}

func TestMemoryStore_Quota(t *testing.T) {
	m := NewMemoryStore(10)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k", []byte("12345")))
	require.ErrorIs(t, m.Set(ctx, "j", []byte("123456")), ErrQuotaExceeded)

	// overwriting frees the old value first
	require.NoError(t, m.Set(ctx, "k", []byte("123456789")))
	require.ErrorIs(t, m.Set(ctx, "z", nil), ErrQuotaExceeded, "key bytes count too")

	require.NoError(t, m.Delete(ctx, "k"))
	require.NoError(t, m.Set(ctx, "j", []byte("123456")), "deleting frees its bytes")
}

func TestMemoryStore_CanceledContext(t *testing.T) {
	m := NewMemoryStore(0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, m.Set(ctx, "k", nil), context.Canceled)
}
