/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package models

type Company struct {
	ID   int64  `json:"id" db:"id" structs:"id"`
	Name string `json:"name" db:"name" structs:"name"`
	Logo string `json:"logo" db:"logo" structs:"logo"`
}

type Profile struct {
	ID   int64  `json:"id" db:"id" structs:"id"`
	Name string `json:"name" db:"name" structs:"name"`
}

// User is a portal account. Password is only ever sent, never returned.
type User struct {
	ID        int64  `json:"id" db:"id" structs:"id"`
	Name      string `json:"name" db:"name" structs:"name"`
	Email     string `json:"email" db:"email" structs:"email"`
	Password  string `json:"password,omitempty" db:"-" structs:"password,omitempty"`
	Active    bool   `json:"active" db:"active" structs:"active"`
	CompanyID *int64 `json:"company_id" db:"company_id" structs:"company_id"`
	ProfileID int64  `json:"profile_id" db:"profile_id" structs:"profile_id"`
}

// Group collects users and grants them access to reports. QtyUsers is
// computed by the server.
type Group struct {
	ID         int64  `json:"id" db:"id" structs:"id"`
	Name       string `json:"name" db:"name" structs:"name"`
	CustomerID *int64 `json:"customer_id" db:"customer_id" structs:"customer_id"`
	Active     bool   `json:"active" db:"active" structs:"active"`
	QtyUsers   int64  `json:"qty_users,omitempty" db:"qty_users" structs:"qty_users"`
}

type Workspace struct {
	ID   int64  `json:"id" db:"id" structs:"id"`
	Name string `json:"name" db:"name" structs:"name"`
	URL  string `json:"url" db:"url" structs:"url"`
}

// Report is an embedded dashboard published inside a workspace.
type Report struct {
	ID          int64  `json:"id" db:"id" structs:"id"`
	Title       string `json:"title" db:"title" structs:"title"`
	Description string `json:"description" db:"description" structs:"description"`
	EmbeddedURL string `json:"embedded_url" db:"embedded_url" structs:"embedded_url"`
	WorkspaceID int64  `json:"workspace_id" db:"workspace_id" structs:"workspace_id"`
	Active      bool   `json:"active" db:"active" structs:"active"`
}
