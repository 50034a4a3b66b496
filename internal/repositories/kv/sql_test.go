package kv

import (
	"context"
	"errors"
	"testing"

	"github.com/ding-dong-qiang/blockchain-storage-system/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openSQLite(t *testing.T) *SQLStore {
	t.Helper()
	s, err := Open(context.Background(), DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLStore_SetAndGet(t *testing.T) {
	s := openSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k1", []byte{0x01, 0x02}))

	v, err := s.Get(ctx, "k1")
	require.NoError(t, err)
	require.Equal(t, []byte{0x01, 0x02}, v)
}

func TestSQLStore_GetMissing_NotFound(t *testing.T) {
	s := openSQLite(t)

	_, err := s.Get(context.Background(), "absent")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestSQLStore_SetOverwrites(t *testing.T) {
	s := openSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", []byte("old")))
	require.NoError(t, s.Set(ctx, "k", []byte("new")))

	v, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("new"), v)
}

func TestSQLStore_DeleteIsIdempotent(t *testing.T) {
	s := openSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "x", []byte{0x01}))
	require.NoError(t, s.Delete(ctx, "x"))
	require.NoError(t, s.Delete(ctx, "x"))

	_, err := s.Get(ctx, "x")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestSQLStore_KeysByPrefix(t *testing.T) {
	s := openSQLite(t)
	ctx := context.Background()

	for _, k := range []string{"fm:content:b", "fm:index", "fm:content:a", "other"} {
		require.NoError(t, s.Set(ctx, k, []byte("v")))
	}

	keys, err := s.Keys(ctx, "fm:content:")
	require.NoError(t, err)
	assert.Equal(t, []string{"fm:content:a", "fm:content:b"}, keys)

	all, err := s.Keys(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestSQLStore_WithTx_Commit(t *testing.T) {
	s := openSQLite(t)
	ctx := context.Background()

	err := s.WithTx(ctx, func(ctx context.Context, tx Store) error {
		if err := tx.Set(ctx, "a", []byte("1")); err != nil {
			return err
		}
		return tx.Set(ctx, "b", []byte("2"))
	})
	require.NoError(t, err)

	keys, err := s.Keys(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)
}

func TestSQLStore_WithTx_Rollback(t *testing.T) {
	s := openSQLite(t)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "keep", []byte("1")))

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(ctx context.Context, tx Store) error {
		require.NoError(t, tx.Set(ctx, "a", []byte("1")))
		require.NoError(t, tx.Delete(ctx, "keep"))
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.Get(ctx, "a")
	require.ErrorIs(t, err, common.ErrNotFound)
	v, err := s.Get(ctx, "keep")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), v)
}

func TestSQLStore_WithTx_Nested(t *testing.T) {
	s := openSQLite(t)
	ctx := context.Background()

	err := s.WithTx(ctx, func(ctx context.Context, tx Store) error {
		return tx.(Transactor).WithTx(ctx, func(ctx context.Context, inner Store) error {
			return inner.Set(ctx, "n", []byte("1"))
		})
	})
	require.NoError(t, err)

	_, err = s.Get(ctx, "n")
	require.NoError(t, err)
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "dsn")
	require.Error(t, err)
}
