/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package models

// UserSession tracks the tokens issued to one user, keyed by user id.
type UserSession struct {
	UserID    string
	JWTTokens []string
}

type LoginJson struct {
	Email    string `json:"email" structs:"email"`
	Password string `json:"password" structs:"password"`
}

// Credentials is the login view of a users row.
type Credentials struct {
	ID           int64  `db:"id"`
	Name         string `db:"name"`
	Email        string `db:"email"`
	PasswordHash string `db:"password"`
	Active       bool   `db:"active"`
	CompanyID    *int64 `db:"company_id"`
	ProfileID    int64  `db:"profile_id"`
	ProfileName  string `db:"profile_name"`
}

// Me is the profile of the authenticated user.
type Me struct {
	ID          int64    `json:"id" structs:"id"`
	Name        string   `json:"name" structs:"name"`
	Email       string   `json:"email" structs:"email"`
	ProfileID   int64    `json:"profile_id" structs:"profile_id"`
	ProfileName string   `json:"profile_name" structs:"profile_name"`
	Company     *Company `json:"company" structs:"company"`
}
