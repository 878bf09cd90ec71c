/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package store

import (
	"sort"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
)

var (
	ErrUnknownTable     = errors.New("unknown table")
	ErrUnknownColumn    = errors.New("unknown column")
	ErrInvalidFilter    = errors.New("invalid filter")
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("duplicate value")
	ErrInvalidReference = errors.New("invalid reference")
	ErrNoDatabase       = errors.New("database not available")
)

// ValidationError lists the rejected fields of a write, field -> reason.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for key := range e.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+": "+e.Fields[key])
	}
	return "validation failed (" + strings.Join(parts, ", ") + ")"
}

// classify maps driver constraint errors to store errors.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1062:
			return errors.Wrap(ErrConflict, myErr.Message)
		case 1451, 1452:
			return errors.Wrap(ErrInvalidReference, myErr.Message)
		}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return errors.Wrap(ErrConflict, pgErr.Message)
		case "23503":
			return errors.Wrap(ErrInvalidReference, pgErr.Message)
		}
	}

	return err
}
