/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package mqtt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nethesis/client-portal/configuration"
	"github.com/nethesis/client-portal/models"
)

func TestInitDisabled(t *testing.T) {
	configuration.Config.MQTTEnabled = false
	assert.Nil(t, Init())
	assert.False(t, Enabled())
	assert.ErrorIs(t, PublishLog(models.LogEntry{ID: 1}), ErrDisabled)
}

func TestLogEntryHandler(t *testing.T) {
	entry, ok := LogEntryHandler("portal/logs", []byte(`{"id":3,"user":"Ada","action":"OPEN REPORT"}`)).(models.LogEntry)
	require.True(t, ok)
	assert.Equal(t, int64(3), entry.ID)
	assert.Equal(t, "Ada", entry.User)

	assert.Nil(t, LogEntryHandler("portal/logs", []byte("not json")))
}

func TestHandleMessageForwardsLogEntries(t *testing.T) {
	websocketChannel = make(chan WebSocketMessage, 1)
	defer func() { websocketChannel = nil }()

	handlersMutex.Lock()
	handlers["portal/logs"] = LogEntryHandler
	handlersMutex.Unlock()

	handleMessage("portal/logs", []byte(`{"id":9,"action":"CLOSE REPORT"}`))

	msg := <-websocketChannel
	assert.Equal(t, LogMessageType, msg.Type)
	assert.Equal(t, models.ActionCloseReport, msg.Data.(models.LogEntry).Action)

	// unknown topics are dropped
	handleMessage("other", []byte("{}"))
	assert.Len(t, websocketChannel, 0)
}
