/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

// Package dashboard drives the portal screens on top of the API client:
// list and detail loading that degrades to empty values, two-phase saves
// and report access logging.
package dashboard

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/nethesis/client-portal/client"
	"github.com/nethesis/client-portal/models"
)

// listPageSize is the page requested by list screens, which filter locally.
const listPageSize = 500

// API is the part of client.Client the dashboard uses.
type API interface {
	List(ctx context.Context, q client.Query, out interface{}) (int64, error)
	Get(ctx context.Context, table string, id int64, out interface{}) error
	Upsert(ctx context.Context, table string, id int64, entity interface{}) (int64, bool, error)
	Delete(ctx context.Context, table string, id int64) error

	ReplaceGroupsByUser(ctx context.Context, userID int64, groupIDs []int64) (int, error)
	ReplaceUsersByGroup(ctx context.Context, groupID int64, userIDs []int64) (int, error)
	ReplaceGroupsByReport(ctx context.Context, reportID int64, groupIDs []int64) (int, error)
	GroupsByUser(ctx context.Context, userID int64) ([]models.Group, error)
	UsersByGroup(ctx context.Context, groupID int64) ([]models.User, error)
	GroupsByReport(ctx context.Context, reportID int64) ([]models.Group, error)
	ReportsByUser(ctx context.Context) ([]models.Report, error)

	LogAction(ctx context.Context, userID, reportID int64, action string) (int64, error)
	ListLogs(ctx context.Context, q client.LogQuery) (*models.LogsResponse, error)
}

var _ API = (*client.Client)(nil)

type Dashboard struct {
	api      API
	notifier Notifier
}

// New returns a dashboard over api. A nil notifier logs.
func New(api API, notifier Notifier) *Dashboard {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	return &Dashboard{api: api, notifier: notifier}
}

func (d *Dashboard) fail(message string, err error) {
	d.notifier.Notify(Notification{Level: LevelError, Message: message, Err: err})
}

// list loads a table into out, notifying and leaving out empty on failure.
func (d *Dashboard) list(ctx context.Context, table, orderBy string, filters []client.Filter, out interface{}) {
	q := client.Query{Table: table, Filters: filters, PageSize: listPageSize, OrderBy: orderBy}
	total, err := d.api.List(ctx, q, out)
	if err != nil {
		d.fail("could not load "+table, err)
		return
	}
	if total > listPageSize {
		d.notifier.Notify(Notification{
			Level:   LevelInfo,
			Message: fmt.Sprintf("showing the first %d of %d %s, refine the search to see the others", listPageSize, total, table),
		})
	}
}

func (d *Dashboard) Users(ctx context.Context, filters ...client.Filter) []models.User {
	users := []models.User{}
	d.list(ctx, "users", "name", filters, &users)
	return users
}

func (d *Dashboard) Groups(ctx context.Context, filters ...client.Filter) []models.Group {
	groups := []models.Group{}
	d.list(ctx, "groups", "name", filters, &groups)
	return groups
}

func (d *Dashboard) Reports(ctx context.Context, filters ...client.Filter) []models.Report {
	reports := []models.Report{}
	d.list(ctx, "reports", "title", filters, &reports)
	return reports
}

func (d *Dashboard) Workspaces(ctx context.Context, filters ...client.Filter) []models.Workspace {
	workspaces := []models.Workspace{}
	d.list(ctx, "workspaces", "name", filters, &workspaces)
	return workspaces
}

func (d *Dashboard) Companies(ctx context.Context, filters ...client.Filter) []models.Company {
	companies := []models.Company{}
	d.list(ctx, "companies", "name", filters, &companies)
	return companies
}

func (d *Dashboard) Profiles(ctx context.Context) []models.Profile {
	profiles := []models.Profile{}
	d.list(ctx, "profiles", "id", nil, &profiles)
	return profiles
}

// Logs returns one page of the access log, newest first.
func (d *Dashboard) Logs(ctx context.Context, q client.LogQuery) []models.LogEntry {
	resp, err := d.api.ListLogs(ctx, q)
	if err != nil {
		d.fail("could not load the access log", err)
		return []models.LogEntry{}
	}
	return resp.Logs
}

// MyReports lists the reports the session user may open.
func (d *Dashboard) MyReports(ctx context.Context) []models.Report {
	reports, err := d.api.ReportsByUser(ctx)
	if err != nil {
		d.fail("could not load your reports", err)
		return []models.Report{}
	}
	return reports
}

type UserDetail struct {
	User   models.User
	Groups []models.Group
}

type GroupDetail struct {
	Group models.Group
	Users []models.User
}

type ReportDetail struct {
	Report models.Report
	Groups []models.Group
}

// User loads a user with its groups. A failed entity fetch yields the zero
// detail, a failed association fetch an empty group list.
func (d *Dashboard) User(ctx context.Context, id int64) UserDetail {
	detail := UserDetail{Groups: []models.Group{}}
	if err := d.api.Get(ctx, "users", id, &detail.User); err != nil {
		d.fail(fmt.Sprintf("could not load user %d", id), err)
		return UserDetail{Groups: []models.Group{}}
	}
	groups, err := d.api.GroupsByUser(ctx, id)
	if err != nil {
		d.fail(fmt.Sprintf("could not load the groups of user %d", id), err)
		return detail
	}
	detail.Groups = groups
	return detail
}

func (d *Dashboard) Group(ctx context.Context, id int64) GroupDetail {
	detail := GroupDetail{Users: []models.User{}}
	if err := d.api.Get(ctx, "groups", id, &detail.Group); err != nil {
		d.fail(fmt.Sprintf("could not load group %d", id), err)
		return GroupDetail{Users: []models.User{}}
	}
	users, err := d.api.UsersByGroup(ctx, id)
	if err != nil {
		d.fail(fmt.Sprintf("could not load the users of group %d", id), err)
		return detail
	}
	detail.Users = users
	return detail
}

func (d *Dashboard) Report(ctx context.Context, id int64) ReportDetail {
	detail := ReportDetail{Groups: []models.Group{}}
	if err := d.api.Get(ctx, "reports", id, &detail.Report); err != nil {
		d.fail(fmt.Sprintf("could not load report %d", id), err)
		return ReportDetail{Groups: []models.Group{}}
	}
	groups, err := d.api.GroupsByReport(ctx, id)
	if err != nil {
		d.fail(fmt.Sprintf("could not load the groups of report %d", id), err)
		return detail
	}
	detail.Groups = groups
	return detail
}

func (d *Dashboard) upsert(table string, id int64, entity interface{}) UpsertFunc {
	return func(ctx context.Context) (int64, bool, error) {
		return d.api.Upsert(ctx, table, id, entity)
	}
}

// SaveUser persists user, then replaces its groups.
func (d *Dashboard) SaveUser(ctx context.Context, user models.User, groupIDs []int64) (int64, error) {
	return SaveWithAssociations(ctx, "user", d.upsert("users", user.ID, user),
		func(ctx context.Context, id int64, ids []int64) error {
			_, err := d.api.ReplaceGroupsByUser(ctx, id, ids)
			return err
		}, groupIDs, d.notifier)
}

// SaveGroup persists group, then replaces its users.
func (d *Dashboard) SaveGroup(ctx context.Context, group models.Group, userIDs []int64) (int64, error) {
	return SaveWithAssociations(ctx, "group", d.upsert("groups", group.ID, group),
		func(ctx context.Context, id int64, ids []int64) error {
			_, err := d.api.ReplaceUsersByGroup(ctx, id, ids)
			return err
		}, userIDs, d.notifier)
}

// SaveReport persists report, then replaces the groups allowed to open it.
func (d *Dashboard) SaveReport(ctx context.Context, report models.Report, groupIDs []int64) (int64, error) {
	return SaveWithAssociations(ctx, "report", d.upsert("reports", report.ID, report),
		func(ctx context.Context, id int64, ids []int64) error {
			_, err := d.api.ReplaceGroupsByReport(ctx, id, ids)
			return err
		}, groupIDs, d.notifier)
}

func (d *Dashboard) save(ctx context.Context, table string, id int64, entity interface{}) (int64, error) {
	newID, _, err := d.api.Upsert(ctx, table, id, entity)
	if err != nil {
		return 0, errors.Wrapf(err, "save %s", table)
	}
	return newID, nil
}

func (d *Dashboard) SaveCompany(ctx context.Context, company models.Company) (int64, error) {
	return d.save(ctx, "companies", company.ID, company)
}

func (d *Dashboard) SaveWorkspace(ctx context.Context, workspace models.Workspace) (int64, error) {
	return d.save(ctx, "workspaces", workspace.ID, workspace)
}

func (d *Dashboard) SaveProfile(ctx context.Context, profile models.Profile) (int64, error) {
	return d.save(ctx, "profiles", profile.ID, profile)
}

// Remove deletes row id of table.
func (d *Dashboard) Remove(ctx context.Context, table string, id int64) error {
	if err := d.api.Delete(ctx, table, id); err != nil {
		return errors.Wrapf(err, "delete %s %d", table, id)
	}
	return nil
}

// OpenReport records the access and returns the URL to embed. Logging never
// prevents opening the report.
func (d *Dashboard) OpenReport(ctx context.Context, report models.Report) string {
	d.logAccess(ctx, report.ID, models.ActionOpenReport)
	return report.EmbeddedURL
}

func (d *Dashboard) CloseReport(ctx context.Context, reportID int64) {
	d.logAccess(ctx, reportID, models.ActionCloseReport)
}

func (d *Dashboard) logAccess(ctx context.Context, reportID int64, action string) {
	session, ok := client.SessionFromContext(ctx)
	if !ok {
		d.notifier.Notify(Notification{Level: LevelWarning, Message: action + " not logged", Err: client.ErrNoSession})
		return
	}
	if _, err := d.api.LogAction(ctx, session.UserID, reportID, action); err != nil {
		d.notifier.Notify(Notification{
			Level:   LevelWarning,
			Message: fmt.Sprintf("%s of report %d not logged", action, reportID),
			Err:     err,
		})
	}
}
