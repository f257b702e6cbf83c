package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/niyoseris/curling/internal/config"
	"github.com/niyoseris/curling/internal/curling"
	"github.com/niyoseris/curling/internal/game"
)

// GetConfig returns the sheet and match settings the client needs to draw and aim
func GetConfig(games *game.Manager, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		settings := games.Settings()
		c.JSON(http.StatusOK, gin.H{
			"sheet":            settings.Sheet,
			"total_ends":       settings.TotalEnds,
			"stones_per_team":  settings.StonesPerTeam,
			"player_side":      game.PlayerSide,
			"ai_side":          game.AISide,
			"tick_interval_ms": cfg.TickIntervalMs,
			"max_launch_speed": curling.MaxLaunchSpeed,
			"house_radius":     curling.HouseRadius,
			"stop_speed":       curling.StopSpeed,
		})
	}
}
