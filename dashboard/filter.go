/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package dashboard

import (
	"strings"

	"github.com/nethesis/client-portal/models"
)

// containsFold reports whether value contains query, ignoring case. query
// is already lower-cased.
func containsFold(value, query string) bool {
	return strings.Contains(strings.ToLower(value), query)
}

func filter[T any](items []T, query string, fields func(T) []string) []T {
	if query == "" {
		return items
	}
	query = strings.ToLower(query)

	out := make([]T, 0, len(items))
	for _, item := range items {
		for _, field := range fields(item) {
			if containsFold(field, query) {
				out = append(out, item)
				break
			}
		}
	}
	return out
}

// FilterUsers keeps the users whose name or e-mail contains query.
func FilterUsers(users []models.User, query string) []models.User {
	return filter(users, query, func(u models.User) []string { return []string{u.Name, u.Email} })
}

func FilterGroups(groups []models.Group, query string) []models.Group {
	return filter(groups, query, func(g models.Group) []string { return []string{g.Name} })
}

func FilterCompanies(companies []models.Company, query string) []models.Company {
	return filter(companies, query, func(c models.Company) []string { return []string{c.Name} })
}

func FilterWorkspaces(workspaces []models.Workspace, query string) []models.Workspace {
	return filter(workspaces, query, func(w models.Workspace) []string { return []string{w.Name} })
}

// FilterReports matches on the title only.
func FilterReports(reports []models.Report, query string) []models.Report {
	return filter(reports, query, func(r models.Report) []string { return []string{r.Title} })
}
