/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package db

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nethesis/client-portal/configuration"
)

// withTestConnection swaps the global connection state and the seams,
// restoring them when the test ends.
func withTestConnection(t *testing.T, open func(driver, dsn string) (*sqlx.DB, error), now func() time.Time) {
	t.Helper()
	originalConfig, originalOpen, originalNow := configuration.Config, sqlOpenFunc, nowFunc
	t.Cleanup(func() {
		configuration.Config, sqlOpenFunc, nowFunc = originalConfig, originalOpen, originalNow
		DB, lastAttempt = nil, time.Time{}
	})

	configuration.Config.DBDriver = "mysql"
	configuration.Config.DBHost = "db.invalid"
	configuration.Config.DBPort = "3306"
	sqlOpenFunc, nowFunc = open, now
	DB, lastAttempt = nil, time.Time{}
}

func TestGetDBConnectsOncePerInterval(t *testing.T) {
	var opens int32
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	withTestConnection(t, func(driver, dsn string) (*sqlx.DB, error) {
		atomic.AddInt32(&opens, 1)
		return nil, errors.New("connection refused")
	}, func() time.Time { return now })

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Nil(t, GetDB())
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&opens), "concurrent callers share one attempt")

	now = now.Add(reconnectInterval)
	assert.Nil(t, GetDB())
	assert.Equal(t, int32(2), atomic.LoadInt32(&opens))
}

func TestInitClosesPreviousPool(t *testing.T) {
	oldConn, oldMock, err := sqlmock.New()
	require.NoError(t, err)
	oldMock.ExpectClose()

	newConn, newMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true), sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer newConn.Close()
	newMock.ExpectPing()
	content, err := schemas.ReadFile("schema/mysql.sql")
	require.NoError(t, err)
	for _, statement := range splitStatements(string(content)) {
		newMock.ExpectExec(statement).WillReturnResult(sqlmock.NewResult(0, 0))
	}

	withTestConnection(t, func(driver, dsn string) (*sqlx.DB, error) {
		return sqlx.NewDb(newConn, driver), nil
	}, time.Now)
	previous := sqlx.NewDb(oldConn, "mysql")
	DB = previous

	require.NoError(t, Init())
	assert.NotSame(t, previous, DB)
	assert.Same(t, DB, GetDB(), "a live pool is returned without pinging")
	assert.NoError(t, oldMock.ExpectationsWereMet())
	assert.NoError(t, newMock.ExpectationsWereMet())
}

func TestBuildDSNMySQL(t *testing.T) {
	dsn, err := buildDSN(configuration.Configuration{
		DBDriver:   "mysql",
		DBHost:     "127.0.0.1",
		DBPort:     "3306",
		DBUser:     "root",
		DBPassword: "root",
		DBName:     "portal",
	})
	require.NoError(t, err)
	assert.Equal(t, "root:root@tcp(127.0.0.1:3306)/portal?parseTime=true", dsn)
}

func TestBuildDSNPostgres(t *testing.T) {
	dsn, err := buildDSN(configuration.Configuration{
		DBDriver:   "pgx",
		DBHost:     "db",
		DBPort:     "5432",
		DBUser:     "portal",
		DBPassword: "p@ss",
		DBName:     "portal",
	})
	require.NoError(t, err)
	assert.Equal(t, "postgres://portal:p%40ss@db:5432/portal", dsn)
}

func TestBuildDSNRejectsMissingHost(t *testing.T) {
	_, err := buildDSN(configuration.Configuration{DBDriver: "mysql", DBPort: "3306"})
	assert.Error(t, err)

	_, err = buildDSN(configuration.Configuration{DBDriver: "sqlite", DBHost: "h", DBPort: "1"})
	assert.Error(t, err)
}

func TestSchemasSplitIntoStatements(t *testing.T) {
	for _, file := range []string{"schema/mysql.sql", "schema/postgres.sql"} {
		content, err := schemas.ReadFile(file)
		require.NoError(t, err, file)

		statements := splitStatements(string(content))
		assert.GreaterOrEqual(t, len(statements), 9, file)
		for _, statement := range statements {
			assert.NotContains(t, statement, ";\n", file)
		}
	}
}
