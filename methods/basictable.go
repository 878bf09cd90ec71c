/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package methods

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/structs"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/nethesis/client-portal/logs"
	"github.com/nethesis/client-portal/models"
	"github.com/nethesis/client-portal/store"
)

const requestTimeout = 10 * time.Second

// test seams
var (
	listRowsFunc  = store.ListRows
	insertRowFunc = store.InsertRow
	updateRowFunc = store.UpdateRow
	deleteRowFunc = store.DeleteRow
)

var reservedParams = map[string]bool{
	"tablename": true,
	"page":      true,
	"pagesize":  true,
	"orderby":   true,
	"jwt":       true,
}

var filterParam = regexp.MustCompile(`^([A-Za-z0-9_]+)\[([A-Za-z]+)\]$`)

// parseTableQuery reads tablename, "<field>[<op>]" filters, page, pagesize
// and orderby ("field", "field desc" or "field asc"). A bare "<field>=v" is
// an equality filter.
func parseTableQuery(values url.Values) (store.TableQuery, error) {
	q := store.TableQuery{Table: strings.TrimSpace(values.Get("tablename"))}
	if q.Table == "" {
		return q, fmt.Errorf("tablename is required")
	}

	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if reservedParams[key] {
			continue
		}

		column, op := key, store.OpEqual
		if match := filterParam.FindStringSubmatch(key); match != nil {
			column, op = match[1], strings.ToLower(match[2])
		}
		for _, value := range values[key] {
			q.Filters = append(q.Filters, store.Filter{Column: column, Op: op, Value: value})
		}
	}

	var err error
	if raw := values.Get("page"); raw != "" {
		if q.Page, err = strconv.Atoi(raw); err != nil || q.Page < 1 {
			return q, fmt.Errorf("page must be a positive integer")
		}
	}
	if raw := values.Get("pagesize"); raw != "" {
		if q.PageSize, err = strconv.Atoi(raw); err != nil || q.PageSize < 1 {
			return q, fmt.Errorf("pagesize must be a positive integer")
		}
	}

	if raw := strings.Fields(values.Get("orderby")); len(raw) > 0 {
		if len(raw) > 2 {
			return q, fmt.Errorf("orderby must be 'field' or 'field desc'")
		}
		q.OrderBy = raw[0]
		if len(raw) == 2 {
			switch strings.ToLower(raw[1]) {
			case "desc":
				q.Desc = true
			case "asc":
			default:
				return q, fmt.Errorf("orderby direction must be asc or desc")
			}
		}
	}

	return q, nil
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("id must be a positive integer")
	}
	return id, nil
}

func tableName(c *gin.Context) (string, bool) {
	table := strings.TrimSpace(c.Query("tablename"))
	if table == "" {
		badRequest(c, "tablename is required", nil)
		return "", false
	}
	return table, true
}

// GetBasicTable lists one page of a table.
func GetBasicTable(c *gin.Context) {
	q, err := parseTableQuery(c.Request.URL.Query())
	if err != nil {
		badRequest(c, err.Error(), nil)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	result, err := listRowsFunc(ctx, q)
	if err != nil {
		respondError(c, "list "+q.Table, err)
		return
	}

	c.JSON(http.StatusOK, structs.Map(models.StatusOK{
		Code:    http.StatusOK,
		Message: "success",
		Data:    result,
	}))
}

// CreateBasicTable inserts the JSON object of the body.
func CreateBasicTable(c *gin.Context) {
	table, ok := tableName(c)
	if !ok {
		return
	}

	var payload map[string]interface{}
	if err := c.ShouldBindBodyWith(&payload, binding.JSON); err != nil || payload == nil {
		badRequest(c, "request fields malformed", errString(err))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	id, err := insertRowFunc(ctx, table, payload)
	if err != nil {
		respondError(c, "create "+table, err)
		return
	}

	logs.Log(fmt.Sprintf("[INFO][API] Created %s %d", table, id))
	c.JSON(http.StatusCreated, structs.Map(models.StatusCreated{
		Code:    http.StatusCreated,
		Message: "created",
		Data:    models.IDResult{ID: id},
	}))
}

// UpdateBasicTable applies the JSON object of the body to the row named by
// its "id".
func UpdateBasicTable(c *gin.Context) {
	table, ok := tableName(c)
	if !ok {
		return
	}

	var payload map[string]interface{}
	if err := c.ShouldBindBodyWith(&payload, binding.JSON); err != nil || payload == nil {
		badRequest(c, "request fields malformed", errString(err))
		return
	}

	id, err := parseID(fmt.Sprint(payload["id"]))
	if err != nil {
		badRequest(c, err.Error(), nil)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	if err := updateRowFunc(ctx, table, id, payload); err != nil {
		respondError(c, "update "+table, err)
		return
	}

	logs.Log(fmt.Sprintf("[INFO][API] Updated %s %d", table, id))
	c.JSON(http.StatusOK, structs.Map(models.StatusOK{
		Code:    http.StatusOK,
		Message: "updated",
		Data:    models.IDResult{ID: id},
	}))
}

// DeleteBasicTable removes the row named by the "id" query parameter.
func DeleteBasicTable(c *gin.Context) {
	table, ok := tableName(c)
	if !ok {
		return
	}

	raw := c.Query("id")
	if raw == "" {
		raw = c.Query("id[equal]")
	}
	id, err := parseID(raw)
	if err != nil {
		badRequest(c, err.Error(), nil)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	if err := deleteRowFunc(ctx, table, id); err != nil {
		respondError(c, "delete "+table, err)
		return
	}

	logs.Log(fmt.Sprintf("[INFO][API] Deleted %s %d", table, id))
	c.JSON(http.StatusOK, structs.Map(models.StatusOK{
		Code:    http.StatusOK,
		Message: "deleted",
		Data:    models.IDResult{ID: id},
	}))
}

func errString(err error) interface{} {
	if err == nil {
		return nil
	}
	return err.Error()
}
