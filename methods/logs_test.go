/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package methods

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nethesis/client-portal/models"
	"github.com/nethesis/client-portal/store"
)

func stubLogStore(t *testing.T) *[]models.LogEntry {
	t.Helper()
	originalInsert, originalGet, originalPublish := insertLogFunc, getLogFunc, publishLogFunc
	t.Cleanup(func() {
		insertLogFunc, getLogFunc, publishLogFunc = originalInsert, originalGet, originalPublish
	})

	published := &[]models.LogEntry{}
	insertLogFunc = func(_ context.Context, userID, reportID int64, action string) (int64, error) {
		if _, err := store.NormalizeLogAction(action); err != nil {
			return 0, err
		}
		return 21, nil
	}
	getLogFunc = func(_ context.Context, id int64) (*models.LogEntry, error) {
		userID, reportID := int64(2), int64(5)
		return &models.LogEntry{ID: id, UserID: &userID, User: "Ada", ReportID: &reportID, Report: "Sales", Action: models.ActionOpenReport}, nil
	}
	publishLogFunc = func(entry models.LogEntry) {
		*published = append(*published, entry)
	}
	return published
}

func TestCreateLog(t *testing.T) {
	published := stubLogStore(t)

	w, env := perform(t, newTestRouter(testClient), http.MethodPost, "/logs", models.LogRequest{
		UserID: testClient.UserID, ReportID: 5, Action: models.ActionOpenReport,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var result models.IDResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, int64(21), result.ID)

	require.Len(t, *published, 1)
	assert.Equal(t, "Sales", (*published)[0].Report)
}

func TestCreateLogOnBehalfOfAnotherUser(t *testing.T) {
	published := stubLogStore(t)

	w, _ := perform(t, newTestRouter(testClient), http.MethodPost, "/logs", models.LogRequest{
		UserID: 99, ReportID: 5, Action: models.ActionCloseReport,
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = perform(t, newTestRouter(testAdmin), http.MethodPost, "/logs", models.LogRequest{
		UserID: 99, ReportID: 5, Action: models.ActionCloseReport,
	})
	assert.Equal(t, http.StatusCreated, w.Code, "admins may log for anyone")
	assert.Len(t, *published, 1)
}

func TestCreateLogAcceptsFreeFormAction(t *testing.T) {
	published := stubLogStore(t)

	w, _ := perform(t, newTestRouter(testClient), http.MethodPost, "/logs", models.LogRequest{
		UserID: testClient.UserID, ReportID: 5, Action: "DOWNLOAD REPORT",
	})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Len(t, *published, 1)
}

func TestActionLabel(t *testing.T) {
	assert.Equal(t, models.ActionOpenReport, actionLabel(" OPEN REPORT "))
	assert.Equal(t, models.ActionCloseReport, actionLabel(models.ActionCloseReport))
	assert.Equal(t, "other", actionLabel("DOWNLOAD REPORT"))
}

func TestCreateLogRejectsBadInput(t *testing.T) {
	published := stubLogStore(t)
	router := newTestRouter(testClient)

	w, env := perform(t, router, http.MethodPost, "/logs", models.LogRequest{UserID: 2, Action: "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation_failed", env.Message)

	w, env = perform(t, router, http.MethodPost, "/logs", models.LogRequest{UserID: 2, Action: strings.Repeat("x", store.MaxLogActionLength+1)})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation_failed", env.Message)

	w, _ = perform(t, router, http.MethodPost, "/logs", map[string]interface{}{"reportid": 5})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = perform(t, newTestRouter(nil), http.MethodPost, "/logs", models.LogRequest{UserID: 2, Action: models.ActionOpenReport})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	assert.Empty(t, *published)
}

func TestListLogsFilters(t *testing.T) {
	original := listLogsFunc
	defer func() { listLogsFunc = original }()

	var got models.LogFilter
	listLogsFunc = func(_ context.Context, filter models.LogFilter) (*models.LogsResponse, error) {
		got = filter
		return &models.LogsResponse{Logs: []models.LogEntry{{ID: 1, Action: models.ActionOpenReport}}, Total: 1}, nil
	}

	target := "/logs?user=2,3&user=4&action=OPEN%20REPORT,DOWNLOAD%20REPORT&from=2025-01-01T00:00:00Z&to=2025-02-01T00:00:00Z&page=2&pagesize=20"
	w, env := perform(t, newTestRouter(testAdmin), http.MethodGet, target, nil)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, []int64{2, 3, 4}, got.Users)
	assert.Equal(t, []string{models.ActionOpenReport, "DOWNLOAD REPORT"}, got.Actions)
	require.NotNil(t, got.From)
	require.NotNil(t, got.To)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), got.From.UTC())
	assert.Equal(t, 2, got.Page)
	assert.Equal(t, 20, got.PageSize)

	var result models.LogsResponse
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, int64(1), result.Total)
}

func TestListLogsRejectsBadFilters(t *testing.T) {
	router := newTestRouter(testAdmin)
	for _, target := range []string{
		"/logs?user=abc",
		"/logs?action=" + strings.Repeat("x", store.MaxLogActionLength+1),
		"/logs?from=yesterday",
		"/logs?from=2025-02-01T00:00:00Z&to=2025-01-01T00:00:00Z",
		"/logs?pagesize=-1",
	} {
		w, _ := perform(t, router, http.MethodGet, target, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
	}
}

func TestGetMe(t *testing.T) {
	original := getMeFunc
	defer func() { getMeFunc = original }()

	getMeFunc = func(_ context.Context, id int64) (*models.Me, error) {
		return &models.Me{ID: id, Name: "Ada", Email: "ada@example.com", ProfileName: models.ProfileClient,
			Company: &models.Company{ID: 4, Name: "Acme"}}, nil
	}

	w, env := perform(t, newTestRouter(testClient), http.MethodGet, "/me", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var me models.Me
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, int64(2), me.ID)
	require.NotNil(t, me.Company)
	assert.Equal(t, "Acme", me.Company.Name)

	w, _ = perform(t, newTestRouter(nil), http.MethodGet, "/me", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
