package migrations

import (
	"context"
	"database/sql"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func TestMigrations_EmbeddedPerDialect(t *testing.T) {
	for _, dir := range []string{"sqlite", "postgres"} {
		files, err := fs.Glob(Migrations, dir+"/*.sql")
		require.NoError(t, err)
		assert.NotEmpty(t, files, "no migrations embedded for %s", dir)
	}
}

func TestUp_SQLite(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	require.NoError(t, Up(ctx, db, "sqlite"))
	require.NoError(t, Up(ctx, db, "sqlite"), "second run must be a no-op")

	_, err = db.Exec(`INSERT INTO kv (key, value) VALUES ('k', x'01')`)
	require.NoError(t, err)
}

func TestUp_UnknownDriver(t *testing.T) {
	err := Up(context.Background(), nil, "mysql")
	require.Error(t, err)
}
