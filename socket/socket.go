/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package socket

import (
	"fmt"
	"net/http"

	"github.com/fatih/structs"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/nethesis/client-portal/logs"
	"github.com/nethesis/client-portal/middleware"
	"github.com/nethesis/client-portal/models"
	"github.com/nethesis/client-portal/mqtt"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// SetMQTTChannel forwards the messages relayed by the MQTT client to the
// WebSocket clients.
func SetMQTTChannel(ch chan mqtt.WebSocketMessage) {
	if ch == nil {
		return
	}
	go func() {
		for msg := range ch {
			connManager.Broadcast(msg.Type, msg.Data)
		}
	}()
}

// BroadcastLog sends a new access log entry to every subscriber.
func BroadcastLog(entry models.LogEntry) {
	connManager.Broadcast(mqtt.LogMessageType, entry)
}

// LogsStreamHandler upgrades the request and streams new access log entries
// until the client goes away. It expects an authenticated admin.
func LogsStreamHandler(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, structs.Map(models.StatusUnauthorized{
			Code:    http.StatusUnauthorized,
			Message: "authentication required",
			Data:    nil,
		}))
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logs.Log("[ERROR][WS] WebSocket upgrade failed: " + err.Error())
		return
	}
	defer conn.Close()

	connManager.AddConnection(conn, &UserConnection{UserID: user.UserID, Email: user.Email})
	defer connManager.RemoveConnection(conn)
	logs.Log(fmt.Sprintf("[INFO][WS] %s subscribed to the access log", user.Email))

	// reads only detect the close, clients never send data
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			logs.Log(fmt.Sprintf("[INFO][WS] %s unsubscribed: %v", user.Email, err))
			return
		}
	}
}
