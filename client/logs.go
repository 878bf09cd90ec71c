/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package client

import (
	"context"
	"net/http"

	"github.com/nethesis/client-portal/models"
)

// LogAction appends an access log entry, e.g. models.ActionOpenReport.
func (c *Client) LogAction(ctx context.Context, userID, reportID int64, action string) (int64, error) {
	var result models.IDResult
	err := c.do(ctx, http.MethodPost, "/logs", nil, models.LogRequest{
		UserID:   userID,
		ReportID: reportID,
		Action:   action,
	}, &result)
	return result.ID, err
}

func (c *Client) ListLogs(ctx context.Context, q LogQuery) (*models.LogsResponse, error) {
	var resp models.LogsResponse
	if err := c.do(ctx, http.MethodGet, "/logs", q.Values(), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
