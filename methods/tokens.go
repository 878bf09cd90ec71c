/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package methods

import (
	"context"
	"fmt"
	"time"

	jwtv4 "github.com/golang-jwt/jwt/v4"

	"github.com/nethesis/client-portal/configuration"
	"github.com/nethesis/client-portal/logs"
	"github.com/nethesis/client-portal/store"
)

// test seams
var (
	saveSessionsFunc = store.SaveSessions
	purgeLogsFunc    = store.PurgeLogs
	nowFunc          = time.Now
)

// tokenExpired reports whether tokenString no longer validates with the
// current secret, an expired exp claim included.
func tokenExpired(tokenString string) bool {
	token, err := jwtv4.Parse(tokenString, func(token *jwtv4.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwtv4.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(configuration.Config.Secret_jwt), nil
	})
	return err != nil || token == nil || !token.Valid
}

// DeleteExpiredTokens drops every stored token that is expired or was signed
// with an old secret, then persists the sessions. Run daily by the scheduler.
func DeleteExpiredTokens() int {
	removed := store.PruneTokens(tokenExpired)
	if removed == 0 {
		return 0
	}

	if err := saveSessionsFunc(); err != nil {
		logs.Log("[ERROR][AUTH] Failed to persist sessions after token cleanup: " + err.Error())
	}
	logs.Log(fmt.Sprintf("[INFO][AUTH] Removed %d expired token(s)", removed))
	return removed
}

// PurgeOldLogs deletes access log entries older than the configured
// retention. A retention of zero days keeps everything.
func PurgeOldLogs() {
	days := configuration.Config.LogRetentionDays
	if days <= 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cutoff := nowFunc().AddDate(0, 0, -days)
	removed, err := purgeLogsFunc(ctx, cutoff)
	if err != nil {
		logs.Log("[ERROR][LOGS] Access log purge failed: " + err.Error())
		return
	}
	if removed > 0 {
		logs.Log(fmt.Sprintf("[INFO][LOGS] Purged %d access log entries older than %d days", removed, days))
	}
}
