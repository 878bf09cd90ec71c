/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package store

import (
	"sync"

	"github.com/nethesis/client-portal/models"
)

var (
	UserSessions  map[string]*models.UserSession
	sessionsMutex sync.RWMutex
)

func UserSessionInit() map[string]*models.UserSession {
	sessionsMutex.Lock()
	defer sessionsMutex.Unlock()

	UserSessions = make(map[string]*models.UserSession)
	return UserSessions
}

// AddToken records an issued token for userID.
func AddToken(userID string, token string) {
	sessionsMutex.Lock()
	defer sessionsMutex.Unlock()

	if UserSessions == nil {
		UserSessions = make(map[string]*models.UserSession)
	}
	session, ok := UserSessions[userID]
	if !ok {
		session = &models.UserSession{UserID: userID}
		UserSessions[userID] = session
	}
	for _, existing := range session.JWTTokens {
		if existing == token {
			return
		}
	}
	session.JWTTokens = append(session.JWTTokens, token)
}

// RemoveToken forgets token, dropping the session when it was the last one.
func RemoveToken(userID string, token string) {
	sessionsMutex.Lock()
	defer sessionsMutex.Unlock()

	session, ok := UserSessions[userID]
	if !ok {
		return
	}
	session.JWTTokens = removeToken(session.JWTTokens, token)
	if len(session.JWTTokens) == 0 {
		delete(UserSessions, userID)
	}
}

// HasToken reports whether token is an active session of userID.
func HasToken(userID string, token string) bool {
	sessionsMutex.RLock()
	defer sessionsMutex.RUnlock()

	session, ok := UserSessions[userID]
	if !ok {
		return false
	}
	for _, existing := range session.JWTTokens {
		if existing == token {
			return true
		}
	}
	return false
}

// PruneTokens removes every token for which expired returns true and reports
// how many were removed.
func PruneTokens(expired func(token string) bool) int {
	sessionsMutex.Lock()
	defer sessionsMutex.Unlock()

	removed := 0
	for userID, session := range UserSessions {
		kept := session.JWTTokens[:0]
		for _, token := range session.JWTTokens {
			if expired(token) {
				removed++
				continue
			}
			kept = append(kept, token)
		}
		session.JWTTokens = kept
		if len(kept) == 0 {
			delete(UserSessions, userID)
		}
	}
	return removed
}

func removeToken(tokens []string, token string) []string {
	out := tokens[:0]
	for _, existing := range tokens {
		if existing != token {
			out = append(out, existing)
		}
	}
	return out
}
