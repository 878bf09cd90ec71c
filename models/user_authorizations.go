/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package models

const (
	ProfileAdmin  = "admin"
	ProfileClient = "client"
)

// UserAuthorizations is the identity carried by a portal JWT.
type UserAuthorizations struct {
	UserID    int64  `json:"id" structs:"id"`
	Name      string `json:"name" structs:"name"`
	Email     string `json:"email" structs:"email"`
	Profile   string `json:"profile" structs:"profile"`
	CompanyID int64  `json:"company_id" structs:"company_id"`
}

func (u *UserAuthorizations) IsAdmin() bool {
	return u != nil && u.Profile == ProfileAdmin
}
