/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package store

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nethesis/client-portal/models"
)

func TestDedupeIDs(t *testing.T) {
	ids, err := dedupeIDs([]int64{3, 1, 3, 2, 1})
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 1, 2}, ids)

	_, err = dedupeIDs([]int64{1, 0})
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestReplaceAssociationsDeletesExisting(t *testing.T) {
	mock := useMockDB(t, "mysql")

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT `id` FROM `users` WHERE `id` = ?")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM `user_groups` WHERE `user_id` = ?")).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("INSERT IGNORE INTO `user_groups` (`user_id`, `group_id`) VALUES (?, ?)")).
		WithArgs(int64(7), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT IGNORE INTO `user_groups` (`user_id`, `group_id`) VALUES (?, ?)")).
		WithArgs(int64(7), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	count, err := ReplaceAssociations(context.Background(), UserGroups, 7, []int64{1, 2, 1}, true)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceAssociationsEmptySetClearsLinks(t *testing.T) {
	mock := useMockDB(t, "pgx")

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "id" FROM "groups" WHERE "id" = $1`)).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(4)))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "user_groups" WHERE "group_id" = $1`)).
		WithArgs(int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	count, err := ReplaceAssociations(context.Background(), GroupUsers, 4, nil, true)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceAssociationsUnknownOwnerRollsBack(t *testing.T) {
	mock := useMockDB(t, "mysql")

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT `id` FROM `reports` WHERE `id` = ?")).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err := ReplaceAssociations(context.Background(), ReportGroups, 9, []int64{1}, true)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceAssociationsUnknownTarget(t *testing.T) {
	mock := useMockDB(t, "mysql")

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT `id` FROM `reports` WHERE `id` = ?")).
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(2)))
	mock.ExpectExec(regexp.QuoteMeta("INSERT IGNORE INTO `report_groups`")).
		WithArgs(int64(2), int64(404)).
		WillReturnError(&mysql.MySQLError{Number: 1452, Message: "foreign key constraint fails"})
	mock.ExpectRollback()

	_, err := ReplaceAssociations(context.Background(), ReportGroups, 2, []int64{404}, false)
	assert.True(t, errors.Is(err, ErrInvalidReference))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportsByUserClientSeesActiveGroupsOnly(t *testing.T) {
	mock := useMockDB(t, "mysql")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT r.`id`")).
		WithArgs(int64(5), true, true).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "description", "embedded_url", "workspace_id", "active"}).
			AddRow(int64(1), "Sales", "", "https://embed/1", int64(2), int64(1)))

	reports, err := ReportsByUser(context.Background(), &models.UserAuthorizations{UserID: 5, Profile: models.ProfileClient})
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, "Sales", reports[0].Title)
	assert.True(t, reports[0].Active)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertAndListLogs(t *testing.T) {
	mock := useMockDB(t, "mysql")

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `logs` (`created_at`, `user_id`, `report_id`, `action`) VALUES (?, ?, ?, ?)")).
		WithArgs(sqlmock.AnyArg(), int64(3), nil, models.ActionOpenReport).
		WillReturnResult(sqlmock.NewResult(21, 1))

	id, err := InsertLog(context.Background(), 3, 0, models.ActionOpenReport)
	require.NoError(t, err)
	assert.Equal(t, int64(21), id)

	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM `logs` l WHERE l.`user_id` IN (?, ?) AND l.`created_at` >= ?")).
		WithArgs(int64(3), int64(4), from).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(1)))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY l.`id` DESC LIMIT 50 OFFSET 0")).
		WithArgs(int64(3), int64(4), from).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "user_id", "user", "report_id", "report", "action"}).
			AddRow(int64(21), from, int64(3), "Ada", nil, "", models.ActionOpenReport))

	result, err := ListLogs(context.Background(), models.LogFilter{Users: []int64{3, 4}, From: &from})
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Total)
	require.Len(t, result.Logs, 1)
	assert.Equal(t, "Ada", result.Logs[0].User)
	assert.Nil(t, result.Logs[0].ReportID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertLogStoresFreeFormAction(t *testing.T) {
	mock := useMockDB(t, "mysql")

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `logs`")).
		WithArgs(sqlmock.AnyArg(), int64(1), int64(2), "DOWNLOAD REPORT").
		WillReturnResult(sqlmock.NewResult(22, 1))

	id, err := InsertLog(context.Background(), 1, 2, "  DOWNLOAD REPORT ")
	require.NoError(t, err)
	assert.Equal(t, int64(22), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertLogRejectsEmptyOrOverlongAction(t *testing.T) {
	for _, action := range []string{"", "   ", strings.Repeat("a", MaxLogActionLength+1)} {
		_, err := InsertLog(context.Background(), 1, 1, action)
		var verr *ValidationError
		assert.True(t, errors.As(err, &verr), "action %q", action)
	}

	action, err := NormalizeLogAction(strings.Repeat("è", MaxLogActionLength))
	require.NoError(t, err, "the limit counts characters, not bytes")
	assert.Len(t, []rune(action), MaxLogActionLength)
}
