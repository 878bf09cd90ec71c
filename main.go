/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package main

import (
	"io"
	"net/http"

	"github.com/fatih/structs"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"

	"github.com/nethesis/client-portal/configuration"
	"github.com/nethesis/client-portal/db"
	"github.com/nethesis/client-portal/logs"
	"github.com/nethesis/client-portal/methods"
	"github.com/nethesis/client-portal/metrics"
	"github.com/nethesis/client-portal/middleware"
	"github.com/nethesis/client-portal/models"
	"github.com/nethesis/client-portal/mqtt"
	"github.com/nethesis/client-portal/socket"
	"github.com/nethesis/client-portal/store"
)

func main() {
	// init configuration
	configuration.Init()

	// init logger
	logs.InitWith("client-portal", configuration.Config.Environment, configuration.Config.LogLevel)
	defer logs.Sync()

	// init database, requests retry the connection when it is down
	if err := db.Init(); err != nil {
		logs.Log("[WARNING][DB] Starting without database: " + err.Error())
	}
	defer db.Close()

	// init store and reload the sessions of the previous run
	store.UserSessionInit()
	store.InitPersistence(configuration.Config.SessionsDir)
	if err := store.LoadSessions(); err != nil {
		logs.Log("[WARNING][AUTH] Failed to load sessions: " + err.Error())
	}

	// relay access log entries through the broker, when configured
	socket.SetMQTTChannel(mqtt.Init())
	defer mqtt.Close()

	// create router
	router := createRouter()

	// create cron to run daily
	c := cron.New()
	c.AddFunc("@daily", func() { methods.DeleteExpiredTokens() })
	c.AddFunc("@daily", methods.PurgeOldLogs)
	c.Start()
	defer c.Stop()

	// run server
	if err := router.Run(configuration.Config.ListenAddress); err != nil {
		logs.Log("[CRITICAL][API] Server stopped: " + err.Error())
	}
}

func createRouter() *gin.Engine {
	// disable log to stdout when running in release mode
	if gin.Mode() == gin.ReleaseMode {
		gin.DefaultWriter = io.Discard
	}

	// init routers
	router := gin.New()
	router.RedirectTrailingSlash = false
	router.Use(
		gin.LoggerWithWriter(gin.DefaultWriter),
		gin.Recovery(),
		middleware.RequestID(),
		metrics.Middleware(),
		middleware.NormalizeAuthorization(),
	)

	// add default compression
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	// cors configuration only in debug mode GIN_MODE=debug (default)
	if gin.Mode() == gin.DebugMode {
		corsConf := cors.DefaultConfig()
		corsConf.AllowHeaders = []string{"Authorization", "Content-Type", "Accept", middleware.RequestIDHeader}
		corsConf.AllowAllOrigins = true
		router.Use(cors.New(corsConf))
	}

	// define api group
	api := router.Group("/")

	api.POST("/login", middleware.InstanceJWT().LoginHandler)
	api.POST("/logout", middleware.InstanceJWT().LogoutHandler)

	// health and metrics (not authenticated)
	api.GET("/health", func(c *gin.Context) {
		if err := db.HealthCheck(); err != nil {
			c.JSON(http.StatusServiceUnavailable, structs.Map(models.StatusServiceUnavailable{
				Code:    http.StatusServiceUnavailable,
				Message: "database unreachable",
				Data:    nil,
			}))
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message": "healthy",
			"status":  "ok",
		})
	})
	api.GET("/metrics", gin.WrapH(metrics.Handler()))

	api.Use(middleware.InstanceJWT().MiddlewareFunc())
	{
		// every profile
		api.GET("/me", methods.GetMe)
		api.GET("/reportsbyuser", methods.GetReportsByUser)
		api.POST("/logs", methods.CreateLog)

		admin := api.Group("/", middleware.RequireAdmin())
		{
			// generic tables
			admin.GET("/basictable", methods.GetBasicTable)
			admin.POST("/basictable", methods.CreateBasicTable)
			admin.PATCH("/basictable", methods.UpdateBasicTable)
			admin.DELETE("/basictable", methods.DeleteBasicTable)

			// associations
			admin.GET("/usersbygroup", methods.GetUsersByGroup)
			admin.POST("/usersbygroup", methods.SetUsersByGroup)
			admin.GET("/groupsbyuser", methods.GetGroupsByUser)
			admin.POST("/groupsbyuser", methods.SetGroupsByUser)
			admin.GET("/groupsbyreport", methods.GetGroupsByReport)
			admin.POST("/groupsbyreport", methods.SetGroupsByReport)

			// access log
			admin.GET("/logs", methods.ListLogs)
			admin.GET("/ws/logs", socket.LogsStreamHandler)
		}
	}

	// handle missing endpoint
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, structs.Map(models.StatusNotFound{
			Code:    http.StatusNotFound,
			Message: "API not found",
			Data:    nil,
		}))
	})

	return router
}
