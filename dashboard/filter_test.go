/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package dashboard

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nethesis/client-portal/models"
)

func TestFilterUsers(t *testing.T) {
	users := []models.User{
		{ID: 1, Name: "Ada Lovelace", Email: "ada@example.com"},
		{ID: 2, Name: "Alan Turing", Email: "alan@EXAMPLE.org"},
		{ID: 3, Name: "Grace", Email: "grace@navy.mil"},
	}

	assert.Equal(t, users, FilterUsers(users, ""))
	assert.Equal(t, []models.User{users[1]}, FilterUsers(users, "n tur"), "spaces are part of the query")
	assert.Empty(t, FilterUsers(users, " grace"), "the query is not trimmed")
	assert.Equal(t, []models.User{users[0]}, FilterUsers(users, "LOVE"))
	assert.Equal(t, []models.User{users[1]}, FilterUsers(users, "example.org"))
	assert.Len(t, FilterUsers(users, "a"), 3)
	assert.Empty(t, FilterUsers(users, "hopper"))
}

func TestFilterByName(t *testing.T) {
	groups := []models.Group{{ID: 1, Name: "Sales"}, {ID: 2, Name: "Wholesale"}, {ID: 3, Name: "Support"}}
	assert.Equal(t, []models.Group{groups[0], groups[1]}, FilterGroups(groups, "SALE"))

	companies := []models.Company{{ID: 1, Name: "Acme"}, {ID: 2, Name: "Globex"}}
	assert.Equal(t, []models.Company{companies[1]}, FilterCompanies(companies, "glo"))

	workspaces := []models.Workspace{{ID: 1, Name: "Finance", URL: "https://sales.example.com"}}
	assert.Empty(t, FilterWorkspaces(workspaces, "sales"), "only the name is matched")

	reports := []models.Report{{ID: 1, Title: "Quarterly Sales", Description: "revenue"}}
	assert.Len(t, FilterReports(reports, "quarterly"), 1)
	assert.Empty(t, FilterReports(reports, "revenue"))
}
