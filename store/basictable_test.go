/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package store

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useMockDB(t *testing.T, driver string) sqlmock.Sqlmock {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	database := sqlx.NewDb(mockDB, driver)
	previous := getDB
	getDB = func() *sqlx.DB { return database }
	t.Cleanup(func() {
		getDB = previous
		mockDB.Close()
	})
	return mock
}

func TestBuildListQueryMySQL(t *testing.T) {
	built, err := buildListQuery(dialectFor("mysql"), TableQuery{
		Table:    "companies",
		Filters:  []Filter{{Column: "name", Op: OpLike, Value: "ac%me"}},
		Page:     2,
		PageSize: 10,
	})
	require.NoError(t, err)

	assert.Equal(t, "SELECT t.`id`, t.`name`, t.`logo` FROM `companies` t WHERE t.`name` LIKE ? ORDER BY t.`name` ASC, t.`id` ASC LIMIT 10 OFFSET 10", built.rows)
	assert.Equal(t, "SELECT COUNT(*) FROM `companies` t WHERE t.`name` LIKE ?", built.count)
	assert.Equal(t, []interface{}{`%ac\%me%`}, built.args)
	assert.Equal(t, 2, built.page)
	assert.Equal(t, 10, built.pageSize)
}

func TestBuildListQueryPostgres(t *testing.T) {
	built, err := buildListQuery(dialectFor("pgx"), TableQuery{
		Table:   "groups",
		Filters: []Filter{{Column: "active", Op: OpEqual, Value: "true"}, {Column: "name", Op: OpLike, Value: "sal"}},
		OrderBy: "qty_users",
		Desc:    true,
	})
	require.NoError(t, err)

	assert.Contains(t, built.rows, `(SELECT COUNT(*) FROM user_groups ug WHERE ug.group_id = t.id) AS "qty_users"`)
	assert.Contains(t, built.rows, `FROM "groups" t WHERE t."active" = $1 AND t."name" ILIKE $2`)
	assert.Contains(t, built.rows, `ORDER BY "qty_users" DESC, t."id" ASC LIMIT 50 OFFSET 0`)
	assert.Equal(t, `SELECT COUNT(*) FROM "groups" t WHERE t."active" = $1 AND t."name" ILIKE $2`, built.count)
	assert.Equal(t, []interface{}{true, "%sal%"}, built.args)
}

func TestBuildListQueryNeverSelectsPassword(t *testing.T) {
	built, err := buildListQuery(dialectFor("mysql"), TableQuery{Table: "users"})
	require.NoError(t, err)
	assert.NotContains(t, built.rows, "password")

	_, err = buildListQuery(dialectFor("mysql"), TableQuery{
		Table:   "users",
		Filters: []Filter{{Column: "password", Op: OpEqual, Value: "x"}},
	})
	assert.True(t, errors.Is(err, ErrUnknownColumn))
}

func TestBuildListQueryRejectsBadInput(t *testing.T) {
	d := dialectFor("mysql")

	_, err := buildListQuery(d, TableQuery{Table: "nope"})
	assert.True(t, errors.Is(err, ErrUnknownTable))

	_, err = buildListQuery(d, TableQuery{Table: "users", OrderBy: "name; DROP TABLE users"})
	assert.True(t, errors.Is(err, ErrUnknownColumn))

	_, err = buildListQuery(d, TableQuery{Table: "users", Filters: []Filter{{Column: "id", Op: OpLike, Value: "1"}}})
	assert.True(t, errors.Is(err, ErrInvalidFilter))

	_, err = buildListQuery(d, TableQuery{Table: "users", Filters: []Filter{{Column: "name", Op: "gt", Value: "a"}}})
	assert.True(t, errors.Is(err, ErrInvalidFilter))

	_, err = buildListQuery(d, TableQuery{Table: "users", Filters: []Filter{{Column: "id", Op: OpEqual, Value: "abc"}}})
	assert.True(t, errors.Is(err, ErrInvalidFilter))
}

func TestPageBounds(t *testing.T) {
	page, size := pageBounds(0, 0)
	assert.Equal(t, 1, page)
	assert.Equal(t, fallbackPageSize, size)

	_, size = pageBounds(3, 100000)
	assert.Equal(t, fallbackMaxSize, size)
}

func TestListRowsNormalizesValues(t *testing.T) {
	mock := useMockDB(t, "mysql")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM `groups` t")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(1)))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT t.`id`, t.`name`, t.`customer_id`, t.`active`")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "customer_id", "active", "qty_users"}).
			AddRow([]byte("3"), []byte("Sales"), nil, int64(1), int64(4)))

	result, err := ListRows(context.Background(), TableQuery{Table: "groups"})
	require.NoError(t, err)

	assert.Equal(t, int64(1), result.Total)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, map[string]interface{}{
		"id":          int64(3),
		"name":        "Sales",
		"customer_id": nil,
		"active":      true,
		"qty_users":   int64(4),
	}, result.Rows[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertRowMySQL(t *testing.T) {
	mock := useMockDB(t, "mysql")

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `companies` (`logo`, `name`) VALUES (?, ?)")).
		WithArgs("", "ACME").
		WillReturnResult(sqlmock.NewResult(12, 1))

	id, err := InsertRow(context.Background(), "companies", map[string]interface{}{"name": "ACME", "logo": ""})
	require.NoError(t, err)
	assert.Equal(t, int64(12), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertRowPostgresUsesReturning(t *testing.T) {
	mock := useMockDB(t, "pgx")

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "workspaces" ("name") VALUES ($1) RETURNING "id"`)).
		WithArgs("Finance").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(5)))

	id, err := InsertRow(context.Background(), "workspaces", map[string]interface{}{"name": "Finance"})
	require.NoError(t, err)
	assert.Equal(t, int64(5), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateRowUnknownID(t *testing.T) {
	mock := useMockDB(t, "mysql")

	mock.ExpectExec(regexp.QuoteMeta("UPDATE `companies` SET `name` = ? WHERE `id` = ?")).
		WithArgs("ACME", int64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT `id` FROM `companies` WHERE `id` = ?")).
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	err := UpdateRow(context.Background(), "companies", 99, map[string]interface{}{"id": float64(99), "name": "ACME"})
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteRow(t *testing.T) {
	mock := useMockDB(t, "mysql")

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM `reports` WHERE `id` = ?")).
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM `reports` WHERE `id` = ?")).
		WithArgs(int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, DeleteRow(context.Background(), "reports", 3))
	assert.True(t, errors.Is(DeleteRow(context.Background(), "reports", 4), ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNoDatabase(t *testing.T) {
	previous := getDB
	getDB = func() *sqlx.DB { return nil }
	defer func() { getDB = previous }()

	_, err := ListRows(context.Background(), TableQuery{Table: "users"})
	assert.True(t, errors.Is(err, ErrNoDatabase))
}
