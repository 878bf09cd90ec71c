/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package client

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	OpLike  = "like"
	OpEqual = "equal"
)

// Filter is one "<field>[<op>]=<value>" condition.
type Filter struct {
	Field string
	Op    string
	Value string
}

// Like matches rows whose field contains value, ignoring case.
func Like(field, value string) Filter {
	return Filter{Field: field, Op: OpLike, Value: value}
}

func Equal(field string, value interface{}) Filter {
	return Filter{Field: field, Op: OpEqual, Value: formatValue(value)}
}

func formatValue(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	default:
		return ""
	}
}

// Query addresses one page of a generic table. OrderBy is "field" or
// "field desc".
type Query struct {
	Table    string
	Filters  []Filter
	Page     int
	PageSize int
	OrderBy  string
}

// Values encodes the query string of /basictable.
func (q Query) Values() url.Values {
	values := url.Values{}
	values.Set("tablename", q.Table)
	for _, f := range q.Filters {
		op := strings.ToLower(f.Op)
		if op == "" {
			op = OpEqual
		}
		values.Add(f.Field+"["+op+"]", f.Value)
	}
	if q.Page > 0 {
		values.Set("page", strconv.Itoa(q.Page))
	}
	if q.PageSize > 0 {
		values.Set("pagesize", strconv.Itoa(q.PageSize))
	}
	if q.OrderBy != "" {
		values.Set("orderby", q.OrderBy)
	}
	return values
}

// LogQuery narrows an access log listing. Zero values are omitted.
type LogQuery struct {
	Users    []int64
	Actions  []string
	From     time.Time
	To       time.Time
	Page     int
	PageSize int
}

func (q LogQuery) Values() url.Values {
	values := url.Values{}
	for _, id := range q.Users {
		values.Add("user", strconv.FormatInt(id, 10))
	}
	for _, action := range q.Actions {
		values.Add("action", action)
	}
	if !q.From.IsZero() {
		values.Set("from", q.From.UTC().Format(time.RFC3339))
	}
	if !q.To.IsZero() {
		values.Set("to", q.To.UTC().Format(time.RFC3339))
	}
	if q.Page > 0 {
		values.Set("page", strconv.Itoa(q.Page))
	}
	if q.PageSize > 0 {
		values.Set("pagesize", strconv.Itoa(q.PageSize))
	}
	return values
}
