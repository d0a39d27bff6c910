package db

import (
	"testing"
	"time"

	"github.com/skillbridge/skillbridge/server/config"
	dbsqlite "github.com/skillbridge/skillbridge/server/db/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyPool(t *testing.T) {
	gdb, err := dbsqlite.Open(":memory:")
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, applyPool(gdb, Pool{MaxOpen: 7, MaxIdle: 2, MaxLife: time.Minute}))
	assert.Equal(t, 7, sqlDB.Stats().MaxOpenConnections)

	// Zero values leave the current limits alone.
	require.NoError(t, applyPool(gdb, Pool{}))
	assert.Equal(t, 7, sqlDB.Stats().MaxOpenConnections)
}

func TestOpen_UnknownMode(t *testing.T) {
	_, err := Open(config.DatabaseConfig{Mode: "oracle"})
	assert.ErrorContains(t, err, `unknown mode "oracle"`)
}
