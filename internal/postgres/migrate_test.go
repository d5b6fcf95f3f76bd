package postgres

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateURL(t *testing.T) {
	assert.Equal(t, "pgx5://u:p@db:5432/courts?sslmode=disable", migrateURL("postgres://u:p@db:5432/courts?sslmode=disable"))
	assert.Equal(t, "pgx5://u@db/courts", migrateURL("postgresql://u@db/courts"))
	assert.Equal(t, "pgx5://already", migrateURL("pgx5://already"))
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	names, err := fs.Glob(migrations, "migrations/*.sql")
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{
		"migrations/000001_init.down.sql",
		"migrations/000001_init.up.sql",
		"migrations/000002_seed.down.sql",
		"migrations/000002_seed.up.sql",
	}, names)
}
