/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package store

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/nethesis/client-portal/logs"
	"github.com/nethesis/client-portal/models"
)

// Association is one direction of a many-to-many link table.
type Association struct {
	Table        string
	OwnerTable   string
	OwnerColumn  string
	TargetColumn string
}

var (
	UserGroups   = Association{Table: "user_groups", OwnerTable: "users", OwnerColumn: "user_id", TargetColumn: "group_id"}
	GroupUsers   = Association{Table: "user_groups", OwnerTable: "groups", OwnerColumn: "group_id", TargetColumn: "user_id"}
	ReportGroups = Association{Table: "report_groups", OwnerTable: "reports", OwnerColumn: "report_id", TargetColumn: "group_id"}
)

// dedupeIDs keeps the first occurrence of every id, rejecting non positive
// ones.
func dedupeIDs(ids []int64) ([]int64, error) {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			return nil, &ValidationError{Fields: map[string]string{"associatedIds": fmt.Sprintf("invalid id %d", id)}}
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}

// ReplaceAssociations links ownerID to ids inside one transaction. With
// replace set the existing links of ownerID are deleted first, otherwise ids
// are appended and already linked ones are skipped. It returns the number of
// distinct ids requested.
func ReplaceAssociations(ctx context.Context, a Association, ownerID int64, ids []int64, replace bool) (int, error) {
	targets, err := dedupeIDs(ids)
	if err != nil {
		return 0, err
	}

	database, d, err := conn()
	if err != nil {
		return 0, err
	}

	tx, err := database.BeginTxx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "begin transaction")
	}
	defer tx.Rollback()

	if err := rowExists(ctx, tx, d, a.OwnerTable, ownerID); err != nil {
		return 0, err
	}

	if replace {
		query := d.rebind("DELETE FROM " + d.quote(a.Table) + " WHERE " + d.quote(a.OwnerColumn) + " = ?")
		if _, err := tx.ExecContext(ctx, query, ownerID); err != nil {
			return 0, errors.Wrap(err, "delete existing links")
		}
	}

	prefix, suffix := d.insertIgnore()
	insert := d.rebind(prefix + " " + d.quote(a.Table) + " (" + d.quote(a.OwnerColumn) + ", " + d.quote(a.TargetColumn) + ") VALUES (?, ?)" + suffix)
	for _, target := range targets {
		if _, err := tx.ExecContext(ctx, insert, ownerID, target); err != nil {
			return 0, classify(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "commit links")
	}

	logs.Log(fmt.Sprintf("[INFO][STORE] Linked %s %d to %d %s row(s) (replace=%t)", a.OwnerTable, ownerID, len(targets), a.TargetColumn, replace))
	return len(targets), nil
}

func groupColumns(d dialect, alias string) string {
	return fmt.Sprintf("%[1]s.%[2]s, %[1]s.%[3]s, %[1]s.%[4]s, %[1]s.%[5]s, (SELECT COUNT(*) FROM %[6]s x WHERE x.%[7]s = %[1]s.%[2]s) AS qty_users",
		alias, d.quote("id"), d.quote("name"), d.quote("customer_id"), d.quote("active"), d.quote("user_groups"), d.quote("group_id"))
}

func userColumns(d dialect, alias string) string {
	return fmt.Sprintf("%[1]s.%[2]s, %[1]s.%[3]s, %[1]s.%[4]s, %[1]s.%[5]s, %[1]s.%[6]s, %[1]s.%[7]s",
		alias, d.quote("id"), d.quote("name"), d.quote("email"), d.quote("active"), d.quote("company_id"), d.quote("profile_id"))
}

func reportColumns(d dialect, alias string) string {
	return fmt.Sprintf("%[1]s.%[2]s, %[1]s.%[3]s, COALESCE(%[1]s.%[4]s, '') AS description, %[1]s.%[5]s, %[1]s.%[6]s, %[1]s.%[7]s",
		alias, d.quote("id"), d.quote("title"), d.quote("description"), d.quote("embedded_url"), d.quote("workspace_id"), d.quote("active"))
}

// GroupsByUser returns the groups userID belongs to.
func GroupsByUser(ctx context.Context, userID int64) ([]models.Group, error) {
	database, d, err := conn()
	if err != nil {
		return nil, err
	}

	query := d.rebind("SELECT " + groupColumns(d, "g") +
		" FROM " + d.quote("groups") + " g JOIN " + d.quote("user_groups") + " ug ON ug." + d.quote("group_id") + " = g." + d.quote("id") +
		" WHERE ug." + d.quote("user_id") + " = ? ORDER BY g." + d.quote("name"))

	groups := []models.Group{}
	if err := database.SelectContext(ctx, &groups, query, userID); err != nil {
		return nil, errors.Wrap(err, "groups by user")
	}
	return groups, nil
}

// UsersByGroup returns the members of groupID.
func UsersByGroup(ctx context.Context, groupID int64) ([]models.User, error) {
	database, d, err := conn()
	if err != nil {
		return nil, err
	}

	query := d.rebind("SELECT " + userColumns(d, "u") +
		" FROM " + d.quote("users") + " u JOIN " + d.quote("user_groups") + " ug ON ug." + d.quote("user_id") + " = u." + d.quote("id") +
		" WHERE ug." + d.quote("group_id") + " = ? ORDER BY u." + d.quote("name"))

	users := []models.User{}
	if err := database.SelectContext(ctx, &users, query, groupID); err != nil {
		return nil, errors.Wrap(err, "users by group")
	}
	return users, nil
}

// GroupsByReport returns the groups granted access to reportID.
func GroupsByReport(ctx context.Context, reportID int64) ([]models.Group, error) {
	database, d, err := conn()
	if err != nil {
		return nil, err
	}

	query := d.rebind("SELECT " + groupColumns(d, "g") +
		" FROM " + d.quote("groups") + " g JOIN " + d.quote("report_groups") + " rg ON rg." + d.quote("group_id") + " = g." + d.quote("id") +
		" WHERE rg." + d.quote("report_id") + " = ? ORDER BY g." + d.quote("name"))

	groups := []models.Group{}
	if err := database.SelectContext(ctx, &groups, query, reportID); err != nil {
		return nil, errors.Wrap(err, "groups by report")
	}
	return groups, nil
}

// ReportsByUser returns the active reports visible to auth. Admins see every
// active report, clients those shared with one of their active groups.
func ReportsByUser(ctx context.Context, auth *models.UserAuthorizations) ([]models.Report, error) {
	database, d, err := conn()
	if err != nil {
		return nil, err
	}

	var query string
	var args []interface{}
	if auth.IsAdmin() {
		query = "SELECT " + reportColumns(d, "r") + " FROM " + d.quote("reports") + " r" +
			" WHERE r." + d.quote("active") + " = ? ORDER BY r." + d.quote("title")
		args = []interface{}{true}
	} else {
		query = "SELECT DISTINCT " + reportColumns(d, "r") + " FROM " + d.quote("reports") + " r" +
			" JOIN " + d.quote("report_groups") + " rg ON rg." + d.quote("report_id") + " = r." + d.quote("id") +
			" JOIN " + d.quote("groups") + " g ON g." + d.quote("id") + " = rg." + d.quote("group_id") +
			" JOIN " + d.quote("user_groups") + " ug ON ug." + d.quote("group_id") + " = g." + d.quote("id") +
			" WHERE ug." + d.quote("user_id") + " = ? AND g." + d.quote("active") + " = ? AND r." + d.quote("active") + " = ?" +
			" ORDER BY r." + d.quote("title")
		args = []interface{}{auth.UserID, true, true}
	}

	reports := []models.Report{}
	if err := database.SelectContext(ctx, &reports, d.rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "reports by user")
	}
	return reports, nil
}
