// Package kv is the persistence substrate of the file manager: a flat
// string-keyed byte store with an optional transactional capability.
//
// Implementations:
//
//   - SQLStore: a single "kv" table in SQLite (modernc.org/sqlite, driver
//     "sqlite") or PostgreSQL (pgx stdlib, driver "pgx"). The schema is
//     managed by goose migrations; see Open.
//   - MemoryStore: an in-memory map with an optional byte quota, for tests
//     and throwaway sessions.
//
// Get reports a missing key with common.ErrNotFound. Delete of a missing
// key is not an error.
package kv
