/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/nethesis/client-portal/logs"
	"github.com/nethesis/client-portal/models"
)

// PersistedSession is the on-disk form of a user session
type PersistedSession struct {
	UserID    string   `json:"user_id"`
	JWTTokens []string `json:"jwt_tokens"`
}

var (
	persistenceMutex sync.Mutex
	persistencePath  string
)

// InitPersistence sets the directory of sessions.json, an empty dir disables
// persistence
func InitPersistence(dataDir string) {
	if dataDir == "" {
		persistencePath = ""
		return
	}
	persistencePath = filepath.Join(dataDir, "sessions.json")
	logs.Log("[INFO][PERSISTENCE] Session persistence initialized at " + persistencePath)
}

// SaveSessions writes the active sessions to disk
func SaveSessions() error {
	if persistencePath == "" {
		return nil
	}

	persistenceMutex.Lock()
	defer persistenceMutex.Unlock()

	sessionsMutex.RLock()
	sessions := make([]PersistedSession, 0, len(UserSessions))
	for userID, session := range UserSessions {
		sessions = append(sessions, PersistedSession{
			UserID:    userID,
			JWTTokens: append([]string(nil), session.JWTTokens...),
		})
	}
	sessionsMutex.RUnlock()

	data, err := json.MarshalIndent(sessions, "", "  ")
	if err != nil {
		logs.Log("[ERROR][PERSISTENCE] Failed to marshal sessions: " + err.Error())
		return err
	}

	if err := os.MkdirAll(filepath.Dir(persistencePath), 0700); err != nil {
		logs.Log("[ERROR][PERSISTENCE] Failed to create directory: " + err.Error())
		return err
	}

	// write to a temp file, then rename
	tempPath := persistencePath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		logs.Log("[ERROR][PERSISTENCE] Failed to write sessions file: " + err.Error())
		return err
	}

	if err := os.Rename(tempPath, persistencePath); err != nil {
		logs.Log("[ERROR][PERSISTENCE] Failed to rename sessions file: " + err.Error())
		os.Remove(tempPath)
		return err
	}

	return nil
}

// LoadSessions restores sessions saved by SaveSessions
func LoadSessions() error {
	if persistencePath == "" {
		return nil
	}

	persistenceMutex.Lock()
	defer persistenceMutex.Unlock()

	data, err := os.ReadFile(persistencePath)
	if os.IsNotExist(err) {
		logs.Log("[INFO][PERSISTENCE] No persisted sessions found (first run)")
		return nil
	}
	if err != nil {
		logs.Log("[ERROR][PERSISTENCE] Failed to read sessions file: " + err.Error())
		return err
	}

	var sessions []PersistedSession
	if err := json.Unmarshal(data, &sessions); err != nil {
		logs.Log("[ERROR][PERSISTENCE] Failed to unmarshal sessions: " + err.Error())
		return err
	}

	sessionsMutex.Lock()
	if UserSessions == nil {
		UserSessions = make(map[string]*models.UserSession)
	}
	for _, ps := range sessions {
		if ps.UserID == "" || len(ps.JWTTokens) == 0 {
			continue
		}
		UserSessions[ps.UserID] = &models.UserSession{
			UserID:    ps.UserID,
			JWTTokens: ps.JWTTokens,
		}
	}
	loaded := len(UserSessions)
	sessionsMutex.Unlock()

	logs.Log(fmt.Sprintf("[INFO][PERSISTENCE] Loaded %d session(s) from disk", loaded))
	return nil
}
