/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package db

import (
	"context"
	"embed"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/nethesis/client-portal/configuration"
	"github.com/nethesis/client-portal/logs"
)

var (
	DB          *sqlx.DB
	dbMutex     sync.Mutex
	lastAttempt time.Time

	// test seams
	sqlOpenFunc = sqlx.Open
	nowFunc     = time.Now
)

// reconnectInterval bounds how often GetDB retries a database that is down.
const reconnectInterval = 5 * time.Second

//go:embed schema/*.sql
var schemas embed.FS

// Init opens the connection pool for the configured driver, pings it with a
// few retries and creates the schema when missing.
func Init() error {
	dbMutex.Lock()
	defer dbMutex.Unlock()

	return connect()
}

// connect opens a new pool and swaps it in, closing the previous one. The
// caller holds dbMutex.
func connect() error {
	lastAttempt = nowFunc()

	dsn, err := buildDSN(configuration.Config)
	if err != nil {
		logs.Log("[CRITICAL][DB] Invalid database configuration: " + err.Error())
		return err
	}

	conn, err := sqlOpenFunc(configuration.Config.DBDriver, dsn)
	if err != nil {
		logs.Log("[CRITICAL][DB] Failed to open database connection: " + err.Error())
		return err
	}

	// Configure connection pool
	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	// Test the connection with a few retries to tolerate transient DB startup
	var pingErr error
	maxAttempts := 5
	for i := 0; i < maxAttempts; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		pingErr = conn.PingContext(ctx)
		cancel()
		if pingErr == nil {
			break
		}
		time.Sleep(250 * time.Millisecond)
	}
	if pingErr != nil {
		logs.Log("[CRITICAL][DB] Failed to ping database: " + pingErr.Error())
		_ = conn.Close()
		return pingErr
	}

	if DB != nil {
		_ = DB.Close()
	}
	DB = conn

	logs.Log("[INFO][DB] Database connection established successfully (" + configuration.Config.DBDriver + ")")

	// Create schema if it doesn't exist
	if err := loadCreateSchema(conn); err != nil {
		logs.Log("[CRITICAL][DB] Failed to create schema: " + err.Error())
		return err
	}

	return nil
}

// Close gracefully closes the database connection pool.
func Close() error {
	dbMutex.Lock()
	defer dbMutex.Unlock()

	if DB == nil {
		return nil
	}
	err := DB.Close()
	DB = nil
	return err
}

// GetDB returns the shared pool, connecting first when Init did not succeed.
// Connection attempts are spaced by reconnectInterval; a pool that lost its
// server re-dials by itself.
func GetDB() *sqlx.DB {
	dbMutex.Lock()
	defer dbMutex.Unlock()

	if DB == nil && nowFunc().Sub(lastAttempt) >= reconnectInterval {
		if err := connect(); err != nil {
			logs.Log("[CRITICAL][DB] Failed to initialize database: " + err.Error())
		}
	}
	return DB
}

// HealthCheck performs a health check on the database connection.
func HealthCheck() error {
	dbMutex.Lock()
	conn := DB
	dbMutex.Unlock()

	if conn == nil {
		return errors.New("database not initialized")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	return conn.PingContext(ctx)
}

func buildDSN(cfg configuration.Configuration) (string, error) {
	if strings.TrimSpace(cfg.DBHost) == "" || strings.TrimSpace(cfg.DBPort) == "" {
		return "", errors.New("missing database configuration: host/port must be set")
	}

	switch cfg.DBDriver {
	case "mysql":
		return fmt.Sprintf(
			"%s:%s@tcp(%s:%s)/%s?parseTime=true",
			cfg.DBUser,
			cfg.DBPassword,
			cfg.DBHost,
			cfg.DBPort,
			cfg.DBName,
		), nil
	case "pgx":
		pgURL := url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(cfg.DBUser, cfg.DBPassword),
			Host:   fmt.Sprintf("%s:%s", cfg.DBHost, cfg.DBPort),
			Path:   cfg.DBName,
		}
		return pgURL.String(), nil
	}

	return "", errors.Errorf("unsupported database driver %q", cfg.DBDriver)
}

// loadCreateSchema runs the driver's schema file one statement at a time.
func loadCreateSchema(conn *sqlx.DB) error {
	file := "schema/mysql.sql"
	if conn.DriverName() == "pgx" {
		file = "schema/postgres.sql"
	}

	content, err := schemas.ReadFile(file)
	if err != nil {
		return errors.Wrap(err, "read schema")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, statement := range splitStatements(string(content)) {
		if _, err := conn.ExecContext(ctx, statement); err != nil {
			return errors.Wrapf(err, "exec schema statement %q", firstLine(statement))
		}
	}

	logs.Log("[INFO][DB] Schema created/verified successfully")
	return nil
}

func splitStatements(content string) []string {
	var statements []string
	for _, part := range strings.Split(content, ";\n") {
		part = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(part), ";"))
		if part != "" {
			statements = append(statements, part)
		}
	}
	return statements
}

func firstLine(statement string) string {
	if idx := strings.Index(statement, "\n"); idx >= 0 {
		return statement[:idx]
	}
	return statement
}
