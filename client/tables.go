/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pkg/errors"

	"github.com/nethesis/client-portal/models"
)

type rowsPage struct {
	Rows     json.RawMessage `json:"rows"`
	Total    int64           `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"pagesize"`
}

// List fetches one page of q.Table and decodes the rows into out, a pointer
// to a slice. It returns the total number of matching rows.
func (c *Client) List(ctx context.Context, q Query, out interface{}) (int64, error) {
	var page rowsPage
	if err := c.do(ctx, http.MethodGet, "/basictable", q.Values(), nil, &page); err != nil {
		return 0, err
	}
	if len(page.Rows) > 0 && string(page.Rows) != "null" {
		if err := json.Unmarshal(page.Rows, out); err != nil {
			return 0, errors.Wrapf(err, "decode %s rows", q.Table)
		}
	}
	return page.Total, nil
}

// Rows is List returning untyped rows.
func (c *Client) Rows(ctx context.Context, q Query) (*models.TableResult, error) {
	var result models.TableResult
	if err := c.do(ctx, http.MethodGet, "/basictable", q.Values(), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Get decodes the row id of table into out.
func (c *Client) Get(ctx context.Context, table string, id int64, out interface{}) error {
	var rows []json.RawMessage
	q := Query{Table: table, Filters: []Filter{Equal("id", id)}, PageSize: 1}
	if _, err := c.List(ctx, q, &rows); err != nil {
		return err
	}
	if len(rows) == 0 {
		return errors.Wrapf(ErrNotFound, "%s %d", table, id)
	}
	return errors.Wrapf(json.Unmarshal(rows[0], out), "decode %s %d", table, id)
}

// payload turns entity into a JSON object, without id when id is zero.
func payload(entity interface{}, id int64) (map[string]interface{}, error) {
	raw, err := json.Marshal(entity)
	if err != nil {
		return nil, errors.Wrap(err, "encode entity")
	}
	values := map[string]interface{}{}
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, errors.Wrap(err, "entity is not a JSON object")
	}
	delete(values, "id")
	if id > 0 {
		values["id"] = id
	}
	return values, nil
}

func tableQuery(table string) url.Values {
	return url.Values{"tablename": {table}}
}

// Create inserts entity and returns the new id.
func (c *Client) Create(ctx context.Context, table string, entity interface{}) (int64, error) {
	body, err := payload(entity, 0)
	if err != nil {
		return 0, err
	}

	var result models.IDResult
	if err := c.do(ctx, http.MethodPost, "/basictable", tableQuery(table), body, &result); err != nil {
		return 0, err
	}
	return result.ID, nil
}

// Update writes the fields of entity to row id.
func (c *Client) Update(ctx context.Context, table string, id int64, entity interface{}) error {
	if id < 1 {
		return errors.New("update " + table + ": id must be positive, got " + strconv.FormatInt(id, 10))
	}
	body, err := payload(entity, id)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPatch, "/basictable", tableQuery(table), body, nil)
}

// Upsert creates entity when id is zero and updates it otherwise. created
// reports which one happened.
func (c *Client) Upsert(ctx context.Context, table string, id int64, entity interface{}) (int64, bool, error) {
	if id == 0 {
		newID, err := c.Create(ctx, table, entity)
		return newID, true, err
	}
	return id, false, c.Update(ctx, table, id, entity)
}

func (c *Client) Delete(ctx context.Context, table string, id int64) error {
	query := tableQuery(table)
	query.Set("id", strconv.FormatInt(id, 10))
	return c.do(ctx, http.MethodDelete, "/basictable", query, nil, nil)
}
