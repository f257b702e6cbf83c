package api

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/niyoseris/curling/internal/api/handlers"
	"github.com/niyoseris/curling/internal/config"
	"github.com/niyoseris/curling/internal/game"
	"github.com/niyoseris/curling/internal/middleware"
	"github.com/niyoseris/curling/internal/store"
	"github.com/niyoseris/curling/internal/ws"
)

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, db *sqlx.DB, games *game.Manager, hub *ws.Hub, cfg *config.Config) {
	router.Use(middleware.CORSMiddleware(cfg))
	router.Use(middleware.WebSocketCORSCheck(cfg))

	if cfg.Environment != "production" {
		router.Use(func(c *gin.Context) {
			c.Header("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
			c.Header("Pragma", "no-cache")
			c.Header("Expires", "0")
			c.Next()
		})
		log.Println("[DEV MODE] No-cache headers enabled for all routes")
	}

	st := store.New(db)
	requirePlayer := middleware.AuthMiddleware(cfg)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", handlers.HealthCheck(games))
		v1.GET("/config", handlers.GetConfig(games, cfg))
		v1.POST("/session", handlers.CreateSession(st, cfg))

		// Pure physics and AI endpoints
		v1.POST("/simulate", handlers.Simulate(games))
		v1.POST("/ai/shot", handlers.SuggestShot(games))

		// The websocket authenticates with ?pt= since browsers cannot set headers on upgrade
		v1.GET("/matches/:token/ws", ws.NewHandler(hub, games, cfg).Serve)

		matches := v1.Group("/matches", requirePlayer)
		{
			matches.POST("", handlers.CreateMatch(games, st))
			matches.GET("/:token", handlers.GetMatch(games))
			matches.POST("/:token/start", handlers.StartMatch(games))
			matches.POST("/:token/throw", handlers.ThrowStone(games))
			matches.POST("/:token/next-end", handlers.NextEnd(games))
			matches.POST("/:token/concede", handlers.ConcedeMatch(games))
			matches.POST("/:token/menu", handlers.ReturnToMenu(games))
		}

		v1.GET("/players/:id/stats", handlers.GetPlayerStats(st))

		v1.POST("/admin/login", handlers.AdminLogin(db, cfg))
		adminGroup := v1.Group("/admin", middleware.AdminMiddleware(cfg))
		{
			adminGroup.GET("/matches", handlers.AdminMatches(db, st, games))
			adminGroup.GET("/matches/:token", handlers.AdminMatchDetail(st))
			adminGroup.GET("/audit", handlers.AdminAuditLogs(db))
			adminGroup.GET("/config", handlers.GetRuntimeConfig(db))
			adminGroup.PUT("/config/:key", handlers.SetRuntimeConfig(db))
			adminGroup.DELETE("/config/:key", handlers.DeleteRuntimeConfig(db))
		}
	}
}
