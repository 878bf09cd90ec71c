/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package dashboard

import (
	"sync"

	"github.com/nethesis/client-portal/logs"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is a non-blocking message for the operator.
type Notification struct {
	Level   Level
	Message string
	Err     error
}

type Notifier interface {
	Notify(n Notification)
}

// LogNotifier writes notifications to the process logger.
type LogNotifier struct{}

func (LogNotifier) Notify(n Notification) {
	message := n.Message
	if n.Err != nil {
		message += ": " + n.Err.Error()
	}

	switch n.Level {
	case LevelError:
		logs.Log("[ERROR][DASHBOARD] " + message)
	case LevelWarning:
		logs.Log("[WARNING][DASHBOARD] " + message)
	default:
		logs.Log("[INFO][DASHBOARD] " + message)
	}
}

// Recorder keeps every notification, for tests and for UIs that render a
// list of toasts.
type Recorder struct {
	mu    sync.Mutex
	items []Notification
}

func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
}

func (r *Recorder) Notifications() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.items...)
}

// Count returns how many notifications of level were recorded.
func (r *Recorder) Count(level Level) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, item := range r.items {
		if item.Level == level {
			n++
		}
	}
	return n
}
