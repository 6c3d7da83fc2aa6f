package database

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mockPool(t *testing.T) (*Pool, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	return &Pool{db: sqlx.NewDb(db, DriverName)}, mock
}

func TestPoolHealth(t *testing.T) {
	p, mock := mockPool(t)
	mock.ExpectPing()
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	assert.NoError(t, p.Health(context.Background()))
	assert.Error(t, p.Health(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPoolCollector(t *testing.T) {
	p, mock := mockPool(t)
	mock.ExpectClose()

	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(p.Collector()))
	n, err := testutil.GatherAndCount(reg, "go_sql_max_open_connections", "go_sql_open_connections")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, p.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}
