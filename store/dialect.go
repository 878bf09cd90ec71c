/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package store

import (
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/nethesis/client-portal/db"
)

type dialect struct {
	driver string
}

func dialectFor(driver string) dialect {
	return dialect{driver: driver}
}

func (d dialect) postgres() bool {
	return d.driver == "pgx" || d.driver == "postgres"
}

// quote escapes an identifier, "groups" is reserved on MySQL and "user" on
// PostgreSQL.
func (d dialect) quote(ident string) string {
	if d.postgres() {
		return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
	}
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}

func (d dialect) rebind(query string) string {
	return sqlx.Rebind(sqlx.BindType(d.driver), query)
}

func (d dialect) like() string {
	if d.postgres() {
		return "ILIKE"
	}
	return "LIKE"
}

// insertIgnore returns the prefix and suffix of an insert that skips
// existing rows.
func (d dialect) insertIgnore() (string, string) {
	if d.postgres() {
		return "INSERT INTO", " ON CONFLICT DO NOTHING"
	}
	return "INSERT IGNORE INTO", ""
}

func escapeLike(value string) string {
	r := strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)
	return r.Replace(value)
}

// getDB is swapped by tests.
var getDB = func() *sqlx.DB {
	return db.GetDB()
}

func conn() (*sqlx.DB, dialect, error) {
	database := getDB()
	if database == nil {
		return nil, dialect{}, ErrNoDatabase
	}
	return database, dialectFor(database.DriverName()), nil
}
