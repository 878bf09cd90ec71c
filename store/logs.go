/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package store

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/nethesis/client-portal/models"
)

// MaxLogActionLength is the width of logs.action.
const MaxLogActionLength = 64

// NormalizeLogAction trims action and checks that it fits the access log.
// Any other text is accepted, OPEN REPORT and CLOSE REPORT are only the
// actions the dashboard sends.
func NormalizeLogAction(action string) (string, error) {
	action = strings.TrimSpace(action)
	if action == "" {
		return "", &ValidationError{Fields: map[string]string{"action": "must not be empty"}}
	}
	if utf8.RuneCountInString(action) > MaxLogActionLength {
		return "", &ValidationError{Fields: map[string]string{"action": "longer than " + strconv.Itoa(MaxLogActionLength) + " characters"}}
	}
	return action, nil
}

func logSelect(d dialect) string {
	return "SELECT l." + d.quote("id") + ", l." + d.quote("created_at") + ", l." + d.quote("user_id") +
		", COALESCE(u." + d.quote("name") + ", '') AS " + d.quote("user") +
		", l." + d.quote("report_id") +
		", COALESCE(r." + d.quote("title") + ", '') AS " + d.quote("report") +
		", l." + d.quote("action") +
		" FROM " + d.quote("logs") + " l" +
		" LEFT JOIN " + d.quote("users") + " u ON u." + d.quote("id") + " = l." + d.quote("user_id") +
		" LEFT JOIN " + d.quote("reports") + " r ON r." + d.quote("id") + " = l." + d.quote("report_id")
}

// InsertLog appends an access log entry and returns its id. A zero reportID
// is stored as NULL.
func InsertLog(ctx context.Context, userID int64, reportID int64, action string) (int64, error) {
	action, err := NormalizeLogAction(action)
	if err != nil {
		return 0, err
	}

	database, d, err := conn()
	if err != nil {
		return 0, err
	}

	var report interface{}
	if reportID > 0 {
		report = reportID
	}

	query := "INSERT INTO " + d.quote("logs") + " (" + d.quote("created_at") + ", " + d.quote("user_id") + ", " +
		d.quote("report_id") + ", " + d.quote("action") + ") VALUES (?, ?, ?, ?)"
	args := []interface{}{time.Now().UTC(), userID, report, action}

	if d.postgres() {
		var id int64
		if err := database.QueryRowxContext(ctx, d.rebind(query+" RETURNING "+d.quote("id")), args...).Scan(&id); err != nil {
			return 0, classify(err)
		}
		return id, nil
	}

	res, err := database.ExecContext(ctx, d.rebind(query), args...)
	if err != nil {
		return 0, classify(err)
	}
	return res.LastInsertId()
}

// GetLog returns the joined entry id.
func GetLog(ctx context.Context, id int64) (*models.LogEntry, error) {
	database, d, err := conn()
	if err != nil {
		return nil, err
	}

	var entry models.LogEntry
	query := d.rebind(logSelect(d) + " WHERE l." + d.quote("id") + " = ?")
	if err := database.GetContext(ctx, &entry, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "get log")
	}
	return &entry, nil
}

func buildLogsWhere(d dialect, filter models.LogFilter) (string, []interface{}, error) {
	var conditions []string
	var args []interface{}

	if len(filter.Users) > 0 {
		clause, inArgs, err := sqlx.In("l."+d.quote("user_id")+" IN (?)", filter.Users)
		if err != nil {
			return "", nil, errors.Wrap(err, "expand users")
		}
		conditions = append(conditions, clause)
		args = append(args, inArgs...)
	}
	if len(filter.Actions) > 0 {
		clause, inArgs, err := sqlx.In("l."+d.quote("action")+" IN (?)", filter.Actions)
		if err != nil {
			return "", nil, errors.Wrap(err, "expand actions")
		}
		conditions = append(conditions, clause)
		args = append(args, inArgs...)
	}
	if filter.From != nil {
		conditions = append(conditions, "l."+d.quote("created_at")+" >= ?")
		args = append(args, filter.From.UTC())
	}
	if filter.To != nil {
		conditions = append(conditions, "l."+d.quote("created_at")+" <= ?")
		args = append(args, filter.To.UTC())
	}

	if len(conditions) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args, nil
}

// ListLogs returns one page of the access log, newest first.
func ListLogs(ctx context.Context, filter models.LogFilter) (*models.LogsResponse, error) {
	database, d, err := conn()
	if err != nil {
		return nil, err
	}

	where, args, err := buildLogsWhere(d, filter)
	if err != nil {
		return nil, err
	}
	page, pageSize := pageBounds(filter.Page, filter.PageSize)

	var total int64
	count := d.rebind("SELECT COUNT(*) FROM " + d.quote("logs") + " l" + where)
	if err := database.GetContext(ctx, &total, count, args...); err != nil {
		return nil, errors.Wrap(err, "count logs")
	}

	query := d.rebind(logSelect(d) + where + " ORDER BY l." + d.quote("id") + " DESC LIMIT " +
		strconv.Itoa(pageSize) + " OFFSET " + strconv.Itoa((page-1)*pageSize))

	entries := []models.LogEntry{}
	if err := database.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, errors.Wrap(err, "list logs")
	}

	return &models.LogsResponse{Logs: entries, Total: total}, nil
}

// PurgeLogs deletes entries older than cutoff and returns how many.
func PurgeLogs(ctx context.Context, cutoff time.Time) (int64, error) {
	database, d, err := conn()
	if err != nil {
		return 0, err
	}

	res, err := database.ExecContext(ctx, d.rebind("DELETE FROM "+d.quote("logs")+" WHERE "+d.quote("created_at")+" < ?"), cutoff.UTC())
	if err != nil {
		return 0, errors.Wrap(err, "purge logs")
	}
	return res.RowsAffected()
}
