/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/nethesis/client-portal/configuration"
	"github.com/nethesis/client-portal/logs"
	"github.com/nethesis/client-portal/models"
)

const (
	OpLike  = "like"
	OpEqual = "equal"
)

const (
	fallbackPageSize = 50
	fallbackMaxSize  = 500
)

// Filter is one "<column>[<op>]=<value>" condition.
type Filter struct {
	Column string
	Op     string
	Value  string
}

// TableQuery is a listing request over a registry table.
type TableQuery struct {
	Table    string
	Filters  []Filter
	Page     int
	PageSize int
	OrderBy  string
	Desc     bool
}

type builtQuery struct {
	rows     string
	count    string
	args     []interface{}
	columns  []Column
	page     int
	pageSize int
}

// pageBounds applies the configured defaults, pages start at 1.
func pageBounds(page, pageSize int) (int, int) {
	def := configuration.Config.DefaultPageSize
	if def <= 0 {
		def = fallbackPageSize
	}
	max := configuration.Config.MaxPageSize
	if max <= 0 {
		max = fallbackMaxSize
	}

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = def
	}
	if pageSize > max {
		pageSize = max
	}
	return page, pageSize
}

func columnExpr(d dialect, col Column) string {
	if col.Derived != "" {
		return col.Derived
	}
	return "t." + d.quote(col.Name)
}

// buildWhere validates filters against the table and returns the WHERE
// clause with unbound "?" placeholders.
func buildWhere(d dialect, t *Table, filters []Filter) (string, []interface{}, error) {
	var conditions []string
	var args []interface{}

	for _, f := range filters {
		col, ok := t.column(f.Column)
		if !ok || col.WriteOnly {
			return "", nil, errors.Wrapf(ErrUnknownColumn, "%s.%s", t.Name, f.Column)
		}

		switch f.Op {
		case OpLike:
			if col.Kind != KindString || col.Derived != "" {
				return "", nil, errors.Wrapf(ErrInvalidFilter, "like is not supported on %s", f.Column)
			}
			conditions = append(conditions, columnExpr(d, *col)+" "+d.like()+" ?")
			args = append(args, "%"+escapeLike(f.Value)+"%")
		case OpEqual, "":
			value, err := coerceIn(*col, f.Value)
			if err != nil {
				return "", nil, errors.Wrapf(ErrInvalidFilter, "%s %s", f.Column, err.Error())
			}
			conditions = append(conditions, columnExpr(d, *col)+" = ?")
			args = append(args, value)
		default:
			return "", nil, errors.Wrapf(ErrInvalidFilter, "unknown operator %q", f.Op)
		}
	}

	if len(conditions) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args, nil
}

func buildListQuery(d dialect, q TableQuery) (*builtQuery, error) {
	t, err := LookupTable(q.Table)
	if err != nil {
		return nil, err
	}

	columns := t.readable()
	selects := make([]string, 0, len(columns))
	for _, col := range columns {
		if col.Derived != "" {
			selects = append(selects, col.Derived+" AS "+d.quote(col.Name))
			continue
		}
		selects = append(selects, "t."+d.quote(col.Name))
	}

	where, args, err := buildWhere(d, t, q.Filters)
	if err != nil {
		return nil, err
	}

	orderBy := q.OrderBy
	if orderBy == "" {
		orderBy = t.OrderBy
	}
	orderCol, ok := t.column(orderBy)
	if !ok || orderCol.WriteOnly {
		return nil, errors.Wrapf(ErrUnknownColumn, "cannot order %s by %s", t.Name, orderBy)
	}
	order := "t." + d.quote(orderCol.Name)
	if orderCol.Derived != "" {
		order = d.quote(orderCol.Name)
	}
	if q.Desc {
		order += " DESC"
	} else {
		order += " ASC"
	}
	// stable pagination on non unique columns
	if orderCol.Name != "id" {
		order += ", t." + d.quote("id") + " ASC"
	}

	page, pageSize := pageBounds(q.Page, q.PageSize)
	from := " FROM " + d.quote(t.Name) + " t"

	rows := "SELECT " + strings.Join(selects, ", ") + from + where +
		" ORDER BY " + order + " LIMIT " + strconv.Itoa(pageSize) + " OFFSET " + strconv.Itoa((page-1)*pageSize)

	return &builtQuery{
		rows:     d.rebind(rows),
		count:    d.rebind("SELECT COUNT(*)" + from + where),
		args:     args,
		columns:  columns,
		page:     page,
		pageSize: pageSize,
	}, nil
}

// ListRows returns one page of a registry table.
func ListRows(ctx context.Context, q TableQuery) (*models.TableResult, error) {
	database, d, err := conn()
	if err != nil {
		return nil, err
	}

	built, err := buildListQuery(d, q)
	if err != nil {
		return nil, err
	}

	var total int64
	if err := database.GetContext(ctx, &total, built.count, built.args...); err != nil {
		logs.Log("[ERROR][STORE] Failed to count rows of " + q.Table + ": " + err.Error())
		return nil, errors.Wrap(err, "count rows")
	}

	rows, err := database.QueryxContext(ctx, built.rows, built.args...)
	if err != nil {
		logs.Log("[ERROR][STORE] Failed to list rows of " + q.Table + ": " + err.Error())
		return nil, errors.Wrap(err, "list rows")
	}
	defer rows.Close()

	result := &models.TableResult{
		Rows:     []map[string]interface{}{},
		Total:    total,
		Page:     built.page,
		PageSize: built.pageSize,
	}
	for rows.Next() {
		row := make(map[string]interface{})
		if err := rows.MapScan(row); err != nil {
			return nil, errors.Wrap(err, "scan row")
		}
		result.Rows = append(result.Rows, normalizeRow(built.columns, row))
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate rows")
	}

	return result, nil
}

// GetRow returns a single row by id.
func GetRow(ctx context.Context, table string, id int64) (map[string]interface{}, error) {
	result, err := ListRows(ctx, TableQuery{
		Table:    table,
		Filters:  []Filter{{Column: "id", Op: OpEqual, Value: strconv.FormatInt(id, 10)}},
		PageSize: 1,
		OrderBy:  "id",
	})
	if err != nil {
		return nil, err
	}
	if len(result.Rows) == 0 {
		return nil, ErrNotFound
	}
	return result.Rows[0], nil
}

func normalizeRow(columns []Column, row map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(columns))
	for _, col := range columns {
		out[col.Name] = coerceOut(col, row[col.Name])
	}
	return out
}

func sortedKeys(values map[string]interface{}) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func buildInsert(d dialect, t *Table, values map[string]interface{}) (string, []interface{}) {
	keys := sortedKeys(values)
	cols := make([]string, 0, len(keys))
	marks := make([]string, 0, len(keys))
	args := make([]interface{}, 0, len(keys))
	for _, key := range keys {
		cols = append(cols, d.quote(key))
		marks = append(marks, "?")
		args = append(args, values[key])
	}

	query := "INSERT INTO " + d.quote(t.Name) + " (" + strings.Join(cols, ", ") + ") VALUES (" + strings.Join(marks, ", ") + ")"
	if d.postgres() {
		query += " RETURNING " + d.quote("id")
	}
	return d.rebind(query), args
}

func buildUpdate(d dialect, t *Table, id int64, values map[string]interface{}) (string, []interface{}) {
	keys := sortedKeys(values)
	sets := make([]string, 0, len(keys))
	args := make([]interface{}, 0, len(keys)+1)
	for _, key := range keys {
		sets = append(sets, d.quote(key)+" = ?")
		args = append(args, values[key])
	}
	args = append(args, id)

	query := "UPDATE " + d.quote(t.Name) + " SET " + strings.Join(sets, ", ") + " WHERE " + d.quote("id") + " = ?"
	return d.rebind(query), args
}

// InsertRow validates payload and inserts it, returning the new id.
func InsertRow(ctx context.Context, table string, payload map[string]interface{}) (int64, error) {
	t, err := LookupTable(table)
	if err != nil {
		return 0, err
	}
	values, err := t.prepareWrite(payload, true)
	if err != nil {
		return 0, err
	}
	if len(values) == 0 {
		return 0, &ValidationError{Fields: map[string]string{"body": "no writable column"}}
	}

	database, d, err := conn()
	if err != nil {
		return 0, err
	}

	query, args := buildInsert(d, t, values)
	if d.postgres() {
		var id int64
		if err := database.QueryRowxContext(ctx, query, args...).Scan(&id); err != nil {
			return 0, classify(err)
		}
		return id, nil
	}

	res, err := database.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, classify(err)
	}
	return res.LastInsertId()
}

// UpdateRow applies a partial update to row id.
func UpdateRow(ctx context.Context, table string, id int64, payload map[string]interface{}) error {
	t, err := LookupTable(table)
	if err != nil {
		return err
	}
	delete(payload, "id")
	values, err := t.prepareWrite(payload, false)
	if err != nil {
		return err
	}

	database, d, err := conn()
	if err != nil {
		return err
	}

	if len(values) == 0 {
		return rowExists(ctx, database, d, t.Name, id)
	}

	query, args := buildUpdate(d, t, id, values)
	res, err := database.ExecContext(ctx, query, args...)
	if err != nil {
		return classify(err)
	}

	// MySQL reports 0 affected rows when nothing changed
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return rowExists(ctx, database, d, t.Name, id)
	}
	return nil
}

// DeleteRow removes row id.
func DeleteRow(ctx context.Context, table string, id int64) error {
	t, err := LookupTable(table)
	if err != nil {
		return err
	}

	database, d, err := conn()
	if err != nil {
		return err
	}

	query := d.rebind("DELETE FROM " + d.quote(t.Name) + " WHERE " + d.quote("id") + " = ?")
	res, err := database.ExecContext(ctx, query, id)
	if err != nil {
		return classify(err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return ErrNotFound
	}
	return nil
}

func rowExists(ctx context.Context, q sqlx.QueryerContext, d dialect, table string, id int64) error {
	var found int64
	err := q.QueryRowxContext(ctx, d.rebind("SELECT "+d.quote("id")+" FROM "+d.quote(table)+" WHERE "+d.quote("id")+" = ?"), id).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return errors.Wrap(err, fmt.Sprintf("lookup %s %d", table, id))
	}
	return nil
}
