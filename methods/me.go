/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package methods

import (
	"context"
	"net/http"

	"github.com/fatih/structs"
	"github.com/gin-gonic/gin"

	"github.com/nethesis/client-portal/middleware"
	"github.com/nethesis/client-portal/models"
	"github.com/nethesis/client-portal/store"
)

var getMeFunc = store.GetMe

// GetMe returns the profile of the authenticated user.
func GetMe(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil || user.UserID < 1 {
		c.JSON(http.StatusUnauthorized, structs.Map(models.StatusUnauthorized{
			Code:    http.StatusUnauthorized,
			Message: "authentication required",
			Data:    nil,
		}))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	me, err := getMeFunc(ctx, user.UserID)
	if err != nil {
		respondError(c, "load profile", err)
		return
	}

	c.JSON(http.StatusOK, structs.Map(models.StatusOK{
		Code:    http.StatusOK,
		Message: "success",
		Data:    me,
	}))
}
