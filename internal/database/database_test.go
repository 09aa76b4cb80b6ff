package database

import (
	"bytes"
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-assessment/internal/middleware"
	"github.com/noah-isme/gema-assessment/internal/models"
)

func TestConnectSelectsSQLiteAndMigrates(t *testing.T) {
	db, err := Connect("file:database_connect?mode=memory&cache=shared", Options{Logger: zerolog.Nop()})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	course := models.Course{Name: "Forklift Safety"}
	require.NoError(t, db.Create(&course).Error)

	duplicate := models.Course{Name: "Forklift Safety"}
	err = db.Create(&duplicate).Error
	require.Error(t, err)

	_, err = Connect("", Options{})
	require.Error(t, err)
}

func TestConnectRedis(t *testing.T) {
	client, err := ConnectRedis("")
	require.NoError(t, err)
	require.Nil(t, client)

	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	client, err = ConnectRedis("redis://" + server.Addr())
	require.NoError(t, err)
	require.NotNil(t, client)
	require.NoError(t, client.Close())

	_, err = ConnectRedis("://bad")
	require.Error(t, err)
}

func TestConfigurePoolAppliesLimits(t *testing.T) {
	db, err := ConnectSQLite("file:database_pool?mode=memory&cache=shared")
	require.NoError(t, err)

	require.NoError(t, configurePool(db, Options{MaxOpenConns: 7, MaxIdleConns: 3, ConnMaxLifetime: time.Minute}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	defer sqlDB.Close()
	require.Equal(t, 7, sqlDB.Stats().MaxOpenConnections)
}

func TestQueryLoggerSkipsMissesAndReportsFailures(t *testing.T) {
	var buf bytes.Buffer
	db, err := Connect("file:database_query_log?mode=memory&cache=shared", Options{Logger: zerolog.New(&buf)})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	buf.Reset()

	var course models.Course
	err = db.First(&course, 42).Error
	require.Error(t, err)
	require.Empty(t, buf.String())

	ctx := middleware.ContextWithCorrelation(context.Background(), "req-7")
	err = db.WithContext(ctx).Exec("UPDATE missing_table SET name = 'x'").Error
	require.Error(t, err)
	require.Contains(t, buf.String(), "query failed")
	require.Contains(t, buf.String(), "missing_table")
	require.Contains(t, buf.String(), `"correlation_id":"req-7"`)
}
