/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package methods

import (
	"context"
	"fmt"
	"net/http"

	"github.com/fatih/structs"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/nethesis/client-portal/logs"
	"github.com/nethesis/client-portal/middleware"
	"github.com/nethesis/client-portal/models"
	"github.com/nethesis/client-portal/store"
)

// test seams
var (
	replaceAssociationsFunc = store.ReplaceAssociations
	groupsByUserFunc        = store.GroupsByUser
	usersByGroupFunc        = store.UsersByGroup
	groupsByReportFunc      = store.GroupsByReport
	reportsByUserFunc       = store.ReportsByUser
)

// setAssociations handles {id, associatedIds, action}. replaceAction
// replaces the links, an empty action appends.
func setAssociations(c *gin.Context, association store.Association, replaceAction string) {
	var req models.AssociationRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		badRequest(c, "request fields malformed", err.Error())
		return
	}
	if req.ID < 1 {
		badRequest(c, "id must be a positive integer", nil)
		return
	}

	var replace bool
	switch req.Action {
	case replaceAction:
		replace = true
	case "":
	default:
		badRequest(c, fmt.Sprintf("unsupported action %q", req.Action), nil)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	count, err := replaceAssociationsFunc(ctx, association, req.ID, req.AssociatedIDs, replace)
	if err != nil {
		respondError(c, "update "+association.Table, err)
		return
	}

	c.JSON(http.StatusOK, structs.Map(models.StatusOK{
		Code:    http.StatusOK,
		Message: "success",
		Data:    models.AssociationResult{ID: req.ID, Count: count},
	}))
}

func queryID(c *gin.Context) (int64, bool) {
	id, err := parseID(c.Query("id"))
	if err != nil {
		badRequest(c, err.Error(), nil)
		return 0, false
	}
	return id, true
}

func SetGroupsByUser(c *gin.Context) {
	setAssociations(c, store.UserGroups, models.ActionDeleteExistingGroups)
}

func SetUsersByGroup(c *gin.Context) {
	setAssociations(c, store.GroupUsers, models.ActionDeleteExistingUsers)
}

func SetGroupsByReport(c *gin.Context) {
	setAssociations(c, store.ReportGroups, models.ActionDeleteExistingGroups)
}

func GetGroupsByUser(c *gin.Context) {
	id, ok := queryID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	groups, err := groupsByUserFunc(ctx, id)
	if err != nil {
		respondError(c, "groups by user", err)
		return
	}

	c.JSON(http.StatusOK, structs.Map(models.StatusOK{
		Code:    http.StatusOK,
		Message: "success",
		Data:    models.GroupsByUserResponse{Groups: groups},
	}))
}

func GetUsersByGroup(c *gin.Context) {
	id, ok := queryID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	users, err := usersByGroupFunc(ctx, id)
	if err != nil {
		respondError(c, "users by group", err)
		return
	}

	c.JSON(http.StatusOK, structs.Map(models.StatusOK{
		Code:    http.StatusOK,
		Message: "success",
		Data:    models.UsersByGroupResponse{Users: users},
	}))
}

func GetGroupsByReport(c *gin.Context) {
	id, ok := queryID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	groups, err := groupsByReportFunc(ctx, id)
	if err != nil {
		respondError(c, "groups by report", err)
		return
	}

	c.JSON(http.StatusOK, structs.Map(models.StatusOK{
		Code:    http.StatusOK,
		Message: "success",
		Data:    models.GroupsByReportResponse{Groups: groups},
	}))
}

// GetReportsByUser returns the reports visible to the caller.
func GetReportsByUser(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, structs.Map(models.StatusUnauthorized{
			Code:    http.StatusUnauthorized,
			Message: "authentication required",
			Data:    nil,
		}))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	reports, err := reportsByUserFunc(ctx, user)
	if err != nil {
		respondError(c, "reports by user", err)
		return
	}

	logs.Log(fmt.Sprintf("[DEBUG][API] %d report(s) visible to %s", len(reports), user.Email))
	c.JSON(http.StatusOK, structs.Map(models.StatusOK{
		Code:    http.StatusOK,
		Message: "success",
		Data:    models.ReportsByUserResponse{Reports: reports},
	}))
}
