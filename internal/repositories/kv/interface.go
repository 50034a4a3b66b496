package kv

import "context"

type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// Keys lists the keys starting with prefix in ascending order.
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// Transactor is implemented by stores that can run several operations
// atomically. fn receives a Store bound to the transaction; returning an
// error rolls everything back.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, s Store) error) error
}

// Driver names accepted by Open and the configuration.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
	DriverMemory   = "memory"
)
