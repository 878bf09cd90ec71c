/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package socket

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nethesis/client-portal/logs"
	"github.com/nethesis/client-portal/mqtt"
)

const writeTimeout = 5 * time.Second

// UserConnection is a WebSocket subscriber of the live access log
type UserConnection struct {
	Conn   *websocket.Conn
	UserID int64
	Email  string

	writeMutex sync.Mutex
}

// WriteJSON serializes writes, a websocket allows one writer at a time.
func (u *UserConnection) WriteJSON(v interface{}) error {
	u.writeMutex.Lock()
	defer u.writeMutex.Unlock()

	_ = u.Conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return u.Conn.WriteJSON(v)
}

// ConnectionManager tracks the active WebSocket connections
type ConnectionManager struct {
	connections map[*websocket.Conn]*UserConnection
	mutex       sync.RWMutex
}

var connManager = &ConnectionManager{
	connections: make(map[*websocket.Conn]*UserConnection),
}

// GetConnectionManager returns the global connection manager instance
func GetConnectionManager() *ConnectionManager {
	return connManager
}

// AddConnection adds a new connection to the manager
func (cm *ConnectionManager) AddConnection(conn *websocket.Conn, user *UserConnection) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()
	user.Conn = conn
	cm.connections[conn] = user
}

// RemoveConnection removes a connection from the manager
func (cm *ConnectionManager) RemoveConnection(conn *websocket.Conn) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()
	delete(cm.connections, conn)
}

// Count returns the number of active connections
func (cm *ConnectionManager) Count() int {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()
	return len(cm.connections)
}

// Broadcast sends a message to every connection. Failed connections are
// closed, their reader loop then removes them.
func (cm *ConnectionManager) Broadcast(messageType string, data interface{}) {
	cm.mutex.RLock()
	users := make([]*UserConnection, 0, len(cm.connections))
	for _, user := range cm.connections {
		users = append(users, user)
	}
	cm.mutex.RUnlock()

	msg := mqtt.WebSocketMessage{Type: messageType, Data: data}
	for _, user := range users {
		go func(user *UserConnection) {
			if err := user.WriteJSON(msg); err != nil {
				logs.Log(fmt.Sprintf("[WARNING][WS] Failed to send %s to %s: %v", messageType, user.Email, err))
				user.Conn.Close()
			}
		}(user)
	}
}
