package postgres_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/rpcombat/internal/storage/postgres"
	"github.com/cory-johannsen/rpcombat/internal/testutil"
)

func TestMigrate_DownAndUp(t *testing.T) {
	pc := testutil.NewPostgresContainer(t)
	dsn := pc.Config.DSN()
	dir := testutil.MigrationsDir(t)

	version, err := postgres.Migrate(dsn, dir, 0)
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)

	version, err = postgres.Migrate(dsn, dir, -1)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	require.NoError(t, postgres.Rollback(dsn, dir))

	version, err = postgres.Migrate(dsn, dir, 0)
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
}
