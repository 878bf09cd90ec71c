/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package models

const (
	ActionDeleteExistingGroups = "DELETE_EXISTING_GROUPS"
	ActionDeleteExistingUsers  = "DELETE_EXISTING_USERS"
)

// AssociationRequest replaces (or extends, with an empty action) the links
// of entity ID.
type AssociationRequest struct {
	ID            int64   `json:"id" binding:"required"`
	AssociatedIDs []int64 `json:"associatedIds"`
	Action        string  `json:"action"`
}

type AssociationResult struct {
	ID    int64 `json:"id" structs:"id"`
	Count int   `json:"count" structs:"count"`
}

type GroupsByUserResponse struct {
	Groups []Group `json:"groups" structs:"groups"`
}

type UsersByGroupResponse struct {
	Users []User `json:"users" structs:"users"`
}

type GroupsByReportResponse struct {
	Groups []Group `json:"groups" structs:"groups"`
}

type ReportsByUserResponse struct {
	Reports []Report `json:"reports" structs:"reports"`
}

// TableResult is one page of a generic table listing.
type TableResult struct {
	Rows     []map[string]interface{} `json:"rows" structs:"rows"`
	Total    int64                    `json:"total" structs:"total"`
	Page     int                      `json:"page" structs:"page"`
	PageSize int                      `json:"pagesize" structs:"pagesize"`
}

type IDResult struct {
	ID int64 `json:"id" structs:"id"`
}
