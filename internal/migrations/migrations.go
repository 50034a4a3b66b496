// Package migrations embeds the goose SQL migrations of the key-value table,
// one directory per SQL dialect.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed sqlite/*.sql postgres/*.sql
var Migrations embed.FS

// dialects maps a database/sql driver name to its goose dialect and directory.
var dialects = map[string]struct {
	goose string
	dir   string
}{
	"sqlite": {goose: "sqlite3", dir: "sqlite"},
	"pgx":    {goose: "pgx", dir: "postgres"},
}

// Up applies all pending migrations for driver to db.
func Up(ctx context.Context, db *sql.DB, driver string) error {
	d, ok := dialects[driver]
	if !ok {
		return fmt.Errorf("no migrations for driver %q", driver)
	}

	goose.SetBaseFS(Migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect(d.goose); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, d.dir)
}
