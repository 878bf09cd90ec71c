/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package methods

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/structs"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/nethesis/client-portal/logs"
	"github.com/nethesis/client-portal/metrics"
	"github.com/nethesis/client-portal/middleware"
	"github.com/nethesis/client-portal/models"
	"github.com/nethesis/client-portal/mqtt"
	"github.com/nethesis/client-portal/socket"
	"github.com/nethesis/client-portal/store"
)

// test seams
var (
	insertLogFunc  = store.InsertLog
	getLogFunc     = store.GetLog
	listLogsFunc   = store.ListLogs
	publishLogFunc = publishLog
)

// publishLog relays a new entry through the broker when one is configured,
// straight to the WebSocket subscribers otherwise.
func publishLog(entry models.LogEntry) {
	if mqtt.Enabled() {
		err := mqtt.PublishLog(entry)
		if err == nil {
			return
		}
		logs.Log("[WARNING][MQTT] Publish log entry failed, broadcasting locally: " + err.Error())
	}
	socket.BroadcastLog(entry)
}

// CreateLog records an access event such as OPEN REPORT. Clients can only
// log on their own behalf.
func CreateLog(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, structs.Map(models.StatusUnauthorized{
			Code:    http.StatusUnauthorized,
			Message: "authentication required",
			Data:    nil,
		}))
		return
	}

	var req models.LogRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		badRequest(c, "request fields malformed", err.Error())
		return
	}
	if req.ReportID < 0 {
		badRequest(c, "reportid must not be negative", nil)
		return
	}
	if !user.IsAdmin() && req.UserID != user.UserID {
		c.JSON(http.StatusForbidden, structs.Map(models.StatusForbidden{
			Code:    http.StatusForbidden,
			Message: "cannot log on behalf of another user",
			Data:    nil,
		}))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	id, err := insertLogFunc(ctx, req.UserID, req.ReportID, req.Action)
	if err != nil {
		respondError(c, "create log", err)
		return
	}
	metrics.AccessLogCounter.WithLabelValues(actionLabel(req.Action)).Inc()

	entry, err := getLogFunc(ctx, id)
	if err != nil {
		logs.Log(fmt.Sprintf("[WARNING][API] Log %d stored but not reloaded: %v", id, err))
	} else {
		publishLogFunc(*entry)
	}

	logs.Log(fmt.Sprintf("[INFO][API] %s by user %d on report %d", req.Action, req.UserID, req.ReportID))
	c.JSON(http.StatusCreated, structs.Map(models.StatusCreated{
		Code:    http.StatusCreated,
		Message: "created",
		Data:    models.IDResult{ID: id},
	}))
}

// actionLabel keeps the metric cardinality bounded, actions are free text.
func actionLabel(action string) string {
	switch action = strings.TrimSpace(action); action {
	case models.ActionOpenReport, models.ActionCloseReport:
		return action
	}
	return "other"
}

// splitValues accepts repeated parameters and comma separated lists.
func splitValues(values []string) []string {
	var out []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func parseLogFilter(c *gin.Context) (models.LogFilter, error) {
	var filter models.LogFilter

	for _, raw := range splitValues(c.QueryArray("user")) {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id < 1 {
			return filter, fmt.Errorf("user must be a positive integer")
		}
		filter.Users = append(filter.Users, id)
	}
	for _, raw := range splitValues(c.QueryArray("action")) {
		action, err := store.NormalizeLogAction(raw)
		if err != nil {
			return filter, fmt.Errorf("action must be at most %d characters", store.MaxLogActionLength)
		}
		filter.Actions = append(filter.Actions, action)
	}

	for _, bound := range []struct {
		name   string
		target **time.Time
	}{{"from", &filter.From}, {"to", &filter.To}} {
		raw := c.Query(bound.name)
		if raw == "" {
			continue
		}
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, fmt.Errorf("%s must be an RFC 3339 timestamp", bound.name)
		}
		*bound.target = &parsed
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return filter, fmt.Errorf("to must not precede from")
	}

	var err error
	if raw := c.Query("page"); raw != "" {
		if filter.Page, err = strconv.Atoi(raw); err != nil || filter.Page < 1 {
			return filter, fmt.Errorf("page must be a positive integer")
		}
	}
	if raw := c.Query("pagesize"); raw != "" {
		if filter.PageSize, err = strconv.Atoi(raw); err != nil || filter.PageSize < 1 {
			return filter, fmt.Errorf("pagesize must be a positive integer")
		}
	}
	return filter, nil
}

// ListLogs returns the access log, newest first.
func ListLogs(c *gin.Context) {
	filter, err := parseLogFilter(c)
	if err != nil {
		badRequest(c, err.Error(), nil)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	result, err := listLogsFunc(ctx, filter)
	if err != nil {
		respondError(c, "list logs", err)
		return
	}

	c.JSON(http.StatusOK, structs.Map(models.StatusOK{
		Code:    http.StatusOK,
		Message: "success",
		Data:    result,
	}))
}
