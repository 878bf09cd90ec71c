/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package methods

import (
	"net/http"
	"sort"

	"github.com/Jeffail/gabs/v2"
	"github.com/fatih/structs"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/nethesis/client-portal/logs"
	"github.com/nethesis/client-portal/models"
	"github.com/nethesis/client-portal/store"
)

// validationPayload builds {"validation":{"errors":[{parameter,message,value}]}}
func validationPayload(fields map[string]string) *gabs.Container {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	payload := gabs.New()
	payload.Array("validation", "errors")
	for _, key := range keys {
		item := gabs.New()
		item.Set(key, "parameter")
		item.Set(fields[key], "message")
		item.Set("", "value")
		payload.ArrayAppend(item.Data(), "validation", "errors")
	}
	return payload
}

func badRequest(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusBadRequest, structs.Map(models.StatusBadRequest{
		Code:    http.StatusBadRequest,
		Message: message,
		Data:    data,
	}))
}

// respondError maps store errors to HTTP responses.
func respondError(c *gin.Context, action string, err error) {
	var verr *store.ValidationError
	switch {
	case errors.As(err, &verr):
		badRequest(c, "validation_failed", validationPayload(verr.Fields).Data())
	case errors.Is(err, store.ErrUnknownTable), errors.Is(err, store.ErrUnknownColumn),
		errors.Is(err, store.ErrInvalidFilter), errors.Is(err, store.ErrInvalidReference):
		badRequest(c, err.Error(), nil)
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, structs.Map(models.StatusNotFound{
			Code:    http.StatusNotFound,
			Message: "not found",
			Data:    nil,
		}))
	case errors.Is(err, store.ErrConflict):
		c.JSON(http.StatusConflict, structs.Map(models.StatusBadRequest{
			Code:    http.StatusConflict,
			Message: err.Error(),
			Data:    nil,
		}))
	case errors.Is(err, store.ErrNoDatabase):
		c.JSON(http.StatusServiceUnavailable, structs.Map(models.StatusServiceUnavailable{
			Code:    http.StatusServiceUnavailable,
			Message: "database not available",
			Data:    nil,
		}))
	default:
		logs.Log("[ERROR][API] " + action + " failed: " + err.Error())
		c.JSON(http.StatusInternalServerError, structs.Map(models.StatusInternalServerError{
			Code:    http.StatusInternalServerError,
			Message: action + " failed",
			Data:    nil,
		}))
	}
}
