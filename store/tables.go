/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package store

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

type ColumnKind int

const (
	KindInt ColumnKind = iota
	KindString
	KindBool
	KindTime
)

// Column describes one column reachable through the generic table API.
type Column struct {
	Name      string
	Kind      ColumnKind
	Nullable  bool
	ReadOnly  bool   // never written by clients
	WriteOnly bool   // never selected nor filtered
	Derived   string // SQL expression computed on read, "t" aliases the table
}

// Table is a registry entry. Rules are go-playground/validator tags applied
// to the written values.
type Table struct {
	Name        string
	Columns     []Column
	Rules       map[string]interface{}
	OrderBy     string
	BeforeWrite func(values map[string]interface{}, insert bool) error
}

var validate = validator.New()

var tables = map[string]*Table{
	"companies": {
		Name: "companies",
		Columns: []Column{
			{Name: "id", Kind: KindInt, ReadOnly: true},
			{Name: "name", Kind: KindString},
			{Name: "logo", Kind: KindString},
		},
		Rules:   map[string]interface{}{"name": "required,max=255"},
		OrderBy: "name",
	},
	"profiles": {
		Name: "profiles",
		Columns: []Column{
			{Name: "id", Kind: KindInt, ReadOnly: true},
			{Name: "name", Kind: KindString},
		},
		Rules:   map[string]interface{}{"name": "required,max=64"},
		OrderBy: "id",
	},
	"users": {
		Name: "users",
		Columns: []Column{
			{Name: "id", Kind: KindInt, ReadOnly: true},
			{Name: "name", Kind: KindString},
			{Name: "email", Kind: KindString},
			{Name: "password", Kind: KindString, WriteOnly: true},
			{Name: "active", Kind: KindBool},
			{Name: "company_id", Kind: KindInt, Nullable: true},
			{Name: "profile_id", Kind: KindInt},
		},
		Rules: map[string]interface{}{
			"name":       "required,max=255",
			"email":      "required,email",
			"profile_id": "required",
		},
		OrderBy:     "name",
		BeforeWrite: hashPasswordValue,
	},
	"groups": {
		Name: "groups",
		Columns: []Column{
			{Name: "id", Kind: KindInt, ReadOnly: true},
			{Name: "name", Kind: KindString},
			{Name: "customer_id", Kind: KindInt, Nullable: true},
			{Name: "active", Kind: KindBool},
			{Name: "qty_users", Kind: KindInt, ReadOnly: true, Derived: "(SELECT COUNT(*) FROM user_groups ug WHERE ug.group_id = t.id)"},
		},
		Rules:   map[string]interface{}{"name": "required,max=255"},
		OrderBy: "name",
	},
	"workspaces": {
		Name: "workspaces",
		Columns: []Column{
			{Name: "id", Kind: KindInt, ReadOnly: true},
			{Name: "name", Kind: KindString},
			{Name: "url", Kind: KindString},
		},
		Rules:   map[string]interface{}{"name": "required,max=255"},
		OrderBy: "name",
	},
	"reports": {
		Name: "reports",
		Columns: []Column{
			{Name: "id", Kind: KindInt, ReadOnly: true},
			{Name: "title", Kind: KindString},
			{Name: "description", Kind: KindString, Nullable: true},
			{Name: "embedded_url", Kind: KindString},
			{Name: "workspace_id", Kind: KindInt},
			{Name: "active", Kind: KindBool},
		},
		Rules: map[string]interface{}{
			"title":        "required,max=255",
			"workspace_id": "required",
		},
		OrderBy: "title",
	},
}

// LookupTable returns the registry entry for name.
func LookupTable(name string) (*Table, error) {
	t, ok := tables[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, name)
	}
	return t, nil
}

// TableNames lists the tables reachable through the generic API.
func TableNames() []string {
	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (t *Table) column(name string) (*Column, bool) {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i], true
		}
	}
	return nil, false
}

// readable returns the columns a listing returns.
func (t *Table) readable() []Column {
	cols := make([]Column, 0, len(t.Columns))
	for _, c := range t.Columns {
		if !c.WriteOnly {
			cols = append(cols, c)
		}
	}
	return cols
}

// prepareWrite coerces a client payload into column values. Read-only and
// derived columns are dropped, unknown columns are rejected. On insert every
// rule is checked, on update only the rules of the provided columns.
func (t *Table) prepareWrite(payload map[string]interface{}, insert bool) (map[string]interface{}, error) {
	values := make(map[string]interface{}, len(payload))
	for key, raw := range payload {
		col, ok := t.column(key)
		if !ok {
			return nil, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, t.Name, key)
		}
		if col.ReadOnly {
			continue
		}

		value, err := coerceIn(*col, raw)
		if err != nil {
			return nil, &ValidationError{Fields: map[string]string{key: err.Error()}}
		}
		values[key] = value
	}

	if err := t.validateValues(values, insert); err != nil {
		return nil, err
	}

	if t.BeforeWrite != nil {
		if err := t.BeforeWrite(values, insert); err != nil {
			return nil, err
		}
	}

	return values, nil
}

func (t *Table) validateValues(values map[string]interface{}, insert bool) error {
	rules := t.Rules
	if !insert {
		rules = make(map[string]interface{})
		for key, rule := range t.Rules {
			if _, ok := values[key]; ok {
				rules[key] = rule
			}
		}
	}
	if len(rules) == 0 {
		return nil
	}

	// validator treats a missing key as nil, which fails "required"
	data := make(map[string]interface{}, len(values))
	for key, value := range values {
		if value != nil {
			data[key] = value
		}
	}

	failures := validate.ValidateMap(data, rules)
	if len(failures) == 0 {
		return nil
	}

	fields := make(map[string]string, len(failures))
	for key, failure := range failures {
		if errs, ok := failure.(validator.ValidationErrors); ok && len(errs) > 0 {
			fields[key] = "failed '" + errs[0].Tag() + "' rule"
			continue
		}
		fields[key] = fmt.Sprint(failure)
	}
	return &ValidationError{Fields: fields}
}

// coerceIn converts a decoded JSON value to the Go type of the column.
func coerceIn(col Column, raw interface{}) (interface{}, error) {
	if raw == nil {
		if col.Nullable {
			return nil, nil
		}
		return nil, fmt.Errorf("must not be null")
	}

	switch col.Kind {
	case KindInt:
		switch v := raw.(type) {
		case float64:
			if v != float64(int64(v)) {
				return nil, fmt.Errorf("must be an integer")
			}
			return int64(v), nil
		case int:
			return int64(v), nil
		case int64:
			return v, nil
		case string:
			n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("must be an integer")
			}
			return n, nil
		}
		return nil, fmt.Errorf("must be an integer")
	case KindBool:
		switch v := raw.(type) {
		case bool:
			return v, nil
		case float64:
			return v != 0, nil
		case string:
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				return nil, fmt.Errorf("must be a boolean")
			}
			return b, nil
		}
		return nil, fmt.Errorf("must be a boolean")
	case KindString:
		switch v := raw.(type) {
		case string:
			return v, nil
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64), nil
		case bool:
			return strconv.FormatBool(v), nil
		}
		return nil, fmt.Errorf("must be a string")
	case KindTime:
		if s, ok := raw.(string); ok {
			ts, err := time.Parse(time.RFC3339, s)
			if err != nil {
				return nil, fmt.Errorf("must be an RFC3339 timestamp")
			}
			return ts.UTC(), nil
		}
		return nil, fmt.Errorf("must be an RFC3339 timestamp")
	}

	return nil, fmt.Errorf("unsupported column type")
}

// coerceOut normalizes a scanned value, drivers disagree on []byte vs typed
// values and on TINYINT booleans.
func coerceOut(col Column, raw interface{}) interface{} {
	if raw == nil {
		return nil
	}
	if b, ok := raw.([]byte); ok {
		raw = string(b)
	}

	switch col.Kind {
	case KindInt:
		switch v := raw.(type) {
		case int64:
			return v
		case int32:
			return int64(v)
		case int:
			return int64(v)
		case uint64:
			return int64(v)
		case float64:
			return int64(v)
		case string:
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				return n
			}
		}
	case KindBool:
		switch v := raw.(type) {
		case bool:
			return v
		case int64:
			return v != 0
		case int32:
			return v != 0
		case string:
			if b, err := strconv.ParseBool(v); err == nil {
				return b
			}
		}
	case KindTime:
		if s, ok := raw.(string); ok {
			for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05"} {
				if ts, err := time.Parse(layout, s); err == nil {
					return ts
				}
			}
		}
	}

	return raw
}
