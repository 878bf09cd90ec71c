/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/nethesis/client-portal/models"
)

// replace posts the full association set of id to path. The server drops
// the existing links first, so an empty set clears them.
func (c *Client) replace(ctx context.Context, path string, id int64, associatedIDs []int64, action string) (int, error) {
	if associatedIDs == nil {
		associatedIDs = []int64{}
	}

	var result models.AssociationResult
	err := c.do(ctx, http.MethodPost, path, nil, models.AssociationRequest{
		ID:            id,
		AssociatedIDs: associatedIDs,
		Action:        action,
	}, &result)
	return result.Count, err
}

func (c *Client) ReplaceGroupsByUser(ctx context.Context, userID int64, groupIDs []int64) (int, error) {
	return c.replace(ctx, "/groupsbyuser", userID, groupIDs, models.ActionDeleteExistingGroups)
}

func (c *Client) ReplaceUsersByGroup(ctx context.Context, groupID int64, userIDs []int64) (int, error) {
	return c.replace(ctx, "/usersbygroup", groupID, userIDs, models.ActionDeleteExistingUsers)
}

func (c *Client) ReplaceGroupsByReport(ctx context.Context, reportID int64, groupIDs []int64) (int, error) {
	return c.replace(ctx, "/groupsbyreport", reportID, groupIDs, models.ActionDeleteExistingGroups)
}

func idQuery(id int64) url.Values {
	return url.Values{"id": {strconv.FormatInt(id, 10)}}
}

func (c *Client) GroupsByUser(ctx context.Context, userID int64) ([]models.Group, error) {
	var resp models.GroupsByUserResponse
	if err := c.do(ctx, http.MethodGet, "/groupsbyuser", idQuery(userID), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Groups, nil
}

func (c *Client) UsersByGroup(ctx context.Context, groupID int64) ([]models.User, error) {
	var resp models.UsersByGroupResponse
	if err := c.do(ctx, http.MethodGet, "/usersbygroup", idQuery(groupID), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Users, nil
}

func (c *Client) GroupsByReport(ctx context.Context, reportID int64) ([]models.Group, error) {
	var resp models.GroupsByReportResponse
	if err := c.do(ctx, http.MethodGet, "/groupsbyreport", idQuery(reportID), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Groups, nil
}

// ReportsByUser lists the reports the session user may open.
func (c *Client) ReportsByUser(ctx context.Context) ([]models.Report, error) {
	var resp models.ReportsByUserResponse
	if err := c.do(ctx, http.MethodGet, "/reportsbyuser", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Reports, nil
}
