/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package models

import (
	"time"
)

const (
	ActionOpenReport  = "OPEN REPORT"
	ActionCloseReport = "CLOSE REPORT"
)

// LogEntry is one row of the access log, joined with the user name and the
// report title.
type LogEntry struct {
	ID        int64     `json:"id" db:"id" structs:"id"`
	CreatedAt time.Time `json:"created_at" db:"created_at" structs:"created_at"`
	UserID    *int64    `json:"user_id" db:"user_id" structs:"user_id"`
	User      string    `json:"user" db:"user" structs:"user"`
	ReportID  *int64    `json:"report_id" db:"report_id" structs:"report_id"`
	Report    string    `json:"report" db:"report" structs:"report"`
	Action    string    `json:"action" db:"action" structs:"action"`
}

type LogRequest struct {
	UserID   int64  `json:"userid" binding:"required"`
	ReportID int64  `json:"reportid"`
	Action   string `json:"action" binding:"required"`
}

// LogFilter narrows a log listing. Zero values are ignored.
type LogFilter struct {
	Users    []int64
	Actions  []string
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}

type LogsResponse struct {
	Logs  []LogEntry `json:"logs" structs:"logs"`
	Total int64      `json:"total" structs:"total"`
}
