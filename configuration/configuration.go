/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package configuration

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Configuration struct {
	ListenAddress    string `json:"listen_address"`
	Secret_jwt       string `json:"secret_jwt"`
	Environment      string `json:"environment"`
	LogLevel         string `json:"log_level"`
	SessionsDir      string `json:"sessions_dir"`
	DBDriver         string `json:"db_driver"`
	DBHost           string `json:"db_host"`
	DBPort           string `json:"db_port"`
	DBUser           string `json:"db_user"`
	DBPassword       string `json:"db_password"`
	DBName           string `json:"db_name"`
	LogRetentionDays int    `json:"log_retention_days"`
	DefaultPageSize  int    `json:"default_page_size"`
	MaxPageSize      int    `json:"max_page_size"`
	MQTTEnabled      bool   `json:"mqtt_enabled"`
	MQTTHost         string `json:"mqtt_host"`
	MQTTPort         string `json:"mqtt_port"`
	MQTTUsername     string `json:"mqtt_username"`
	MQTTPassword     string `json:"mqtt_password"`
	MQTTTopic        string `json:"mqtt_topic"`
}

var Config = Configuration{}

// Init reads the configuration from the environment, after loading an
// optional .env file from the working directory.
func Init() {
	// a missing .env is not an error
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("PORTAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("LISTEN_ADDRESS", "127.0.0.1:8080")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SESSIONS_DIR", "/var/lib/client-portal")
	v.SetDefault("DB_DRIVER", "mysql")
	v.SetDefault("DB_HOST", "127.0.0.1")
	v.SetDefault("DB_PORT", "3306")
	v.SetDefault("DB_USER", "portal")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_NAME", "portal")
	v.SetDefault("LOG_RETENTION_DAYS", 0)
	v.SetDefault("DEFAULT_PAGE_SIZE", 50)
	v.SetDefault("MAX_PAGE_SIZE", 500)
	v.SetDefault("MQTT_PORT", "1883")
	v.SetDefault("MQTT_TOPIC", "portal/logs")

	Config.ListenAddress = v.GetString("LISTEN_ADDRESS")
	Config.Environment = v.GetString("ENVIRONMENT")
	Config.LogLevel = v.GetString("LOG_LEVEL")
	Config.SessionsDir = v.GetString("SESSIONS_DIR")

	// the signing secret has no default
	Config.Secret_jwt = v.GetString("SECRET_JWT")
	if Config.Secret_jwt == "" {
		os.Stderr.WriteString("PORTAL_SECRET_JWT variable is empty. ")
		os.Exit(1)
	}

	// set database connection
	Config.DBDriver = strings.ToLower(v.GetString("DB_DRIVER"))
	if Config.DBDriver != "mysql" && Config.DBDriver != "pgx" {
		os.Stderr.WriteString("PORTAL_DB_DRIVER must be mysql or pgx. ")
		os.Exit(1)
	}
	Config.DBHost = v.GetString("DB_HOST")
	Config.DBPort = v.GetString("DB_PORT")
	Config.DBUser = v.GetString("DB_USER")
	Config.DBPassword = v.GetString("DB_PASSWORD")
	Config.DBName = v.GetString("DB_NAME")

	// set access log retention, 0 keeps everything
	Config.LogRetentionDays = v.GetInt("LOG_RETENTION_DAYS")

	// set pagination bounds
	Config.DefaultPageSize = v.GetInt("DEFAULT_PAGE_SIZE")
	Config.MaxPageSize = v.GetInt("MAX_PAGE_SIZE")
	if Config.MaxPageSize < Config.DefaultPageSize {
		Config.MaxPageSize = Config.DefaultPageSize
	}

	// set MQTT, enabled only when a host is given
	Config.MQTTHost = v.GetString("MQTT_HOST")
	Config.MQTTPort = v.GetString("MQTT_PORT")
	Config.MQTTUsername = v.GetString("MQTT_USERNAME")
	Config.MQTTPassword = v.GetString("MQTT_PASSWORD")
	Config.MQTTTopic = v.GetString("MQTT_TOPIC")
	Config.MQTTEnabled = Config.MQTTHost != ""
}
