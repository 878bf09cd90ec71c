/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package mqtt

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nethesis/client-portal/configuration"
	"github.com/nethesis/client-portal/logs"
	"github.com/nethesis/client-portal/models"
)

// MessageHandler converts a received payload into the data forwarded to
// WebSocket clients, nil drops the message.
type MessageHandler func(topic string, payload []byte) interface{}

// WebSocketMessage is the envelope sent to WebSocket clients
type WebSocketMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

const LogMessageType = "log"

var ErrDisabled = fmt.Errorf("MQTT client not initialized")

var (
	client           mqtt.Client
	websocketChannel chan WebSocketMessage
	handlers         = map[string]MessageHandler{}
	handlersMutex    sync.RWMutex
)

// Init connects to the broker in background. It returns the channel of
// messages to forward to WebSocket clients, nil when MQTT is disabled.
func Init() chan WebSocketMessage {
	if !configuration.Config.MQTTEnabled {
		logs.Log("[INFO][MQTT] MQTT disabled - no broker configured")
		return nil
	}

	websocketChannel = make(chan WebSocketMessage, 100)

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%s", configuration.Config.MQTTHost, configuration.Config.MQTTPort))
	opts.SetClientID(fmt.Sprintf("client-portal-%d", time.Now().UnixNano()))
	opts.SetUsername(configuration.Config.MQTTUsername)
	opts.SetPassword(configuration.Config.MQTTPassword)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)

	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		logs.Log(fmt.Sprintf("[WARNING][MQTT] Connection lost: %v", err))
	})

	opts.SetOnConnectHandler(func(client mqtt.Client) {
		logs.Log("[INFO][MQTT] Connected to MQTT broker")

		// re-subscribe after reconnection
		handlersMutex.RLock()
		defer handlersMutex.RUnlock()
		for topic := range handlers {
			subscribeToTopic(topic)
		}
	})

	client = mqtt.NewClient(opts)

	// connect without blocking startup, the client retries by itself
	token := client.Connect()
	go func() {
		if token.Wait() && token.Error() != nil {
			logs.Log(fmt.Sprintf("[ERROR][MQTT] Failed to connect to MQTT broker: %v", token.Error()))
			logs.Log("[INFO][MQTT] Will retry connection in background...")
		}
	}()

	// every instance relays the access log of the others
	RegisterHandler(configuration.Config.MQTTTopic, LogEntryHandler)

	logs.Log("[INFO][MQTT] MQTT client initialized - connecting in background")
	return websocketChannel
}

// Enabled reports whether a broker client exists.
func Enabled() bool {
	return client != nil
}

// RegisterHandler records handler for topic, subscribing now when connected
// and on every reconnection.
func RegisterHandler(topic string, handler MessageHandler) {
	handlersMutex.Lock()
	handlers[topic] = handler
	handlersMutex.Unlock()

	if client != nil && client.IsConnected() {
		subscribeToTopic(topic)
	}
}

func subscribeToTopic(topic string) error {
	token := client.Subscribe(topic, 1, func(client mqtt.Client, msg mqtt.Message) {
		handleMessage(msg.Topic(), msg.Payload())
	})

	if token.Wait() && token.Error() != nil {
		logs.Log(fmt.Sprintf("[ERROR][MQTT] Failed to subscribe to %s: %v", topic, token.Error()))
		return token.Error()
	}

	logs.Log(fmt.Sprintf("[INFO][MQTT] Subscribed to topic: %s", topic))
	return nil
}

// handleMessage routes messages to their handler
func handleMessage(topic string, payload []byte) {
	handlersMutex.RLock()
	handler, exists := handlers[topic]
	handlersMutex.RUnlock()
	if !exists {
		logs.Log(fmt.Sprintf("[WARNING][MQTT] No handler found for topic: %s", topic))
		return
	}

	processed := handler(topic, payload)
	if processed == nil {
		return
	}

	messageType := topic
	if _, ok := processed.(models.LogEntry); ok {
		messageType = LogMessageType
	}

	select {
	case websocketChannel <- WebSocketMessage{Type: messageType, Data: processed}:
	default:
		logs.Log(fmt.Sprintf("[ERROR][MQTT] WebSocket channel full, dropping message from topic: %s", topic))
	}
}

// LogEntryHandler decodes an access log entry published by PublishLog.
func LogEntryHandler(topic string, payload []byte) interface{} {
	var entry models.LogEntry
	if err := json.Unmarshal(payload, &entry); err != nil {
		logs.Log(fmt.Sprintf("[WARNING][MQTT] Invalid log entry on %s: %v", topic, err))
		return nil
	}
	return entry
}

// Publish sends data as JSON to topic.
func Publish(topic string, data interface{}) error {
	if client == nil {
		return ErrDisabled
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}

	token := client.Publish(topic, 1, false, payload)
	if !token.WaitTimeout(2 * time.Second) {
		return fmt.Errorf("publish to %s timed out", topic)
	}
	return token.Error()
}

// PublishLog sends an access log entry to the configured topic.
func PublishLog(entry models.LogEntry) error {
	return Publish(configuration.Config.MQTTTopic, entry)
}

// Close disconnects the client
func Close() {
	if client != nil && client.IsConnected() {
		client.Disconnect(250)
		logs.Log("[INFO][MQTT] MQTT client disconnected")
	}
	if websocketChannel != nil {
		close(websocketChannel)
		websocketChannel = nil
	}
}
