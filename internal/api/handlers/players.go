package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/niyoseris/curling/internal/store"
)

// GetPlayerStats returns a player's completed-match totals
func GetPlayerStats(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid player id"})
			return
		}

		stats, err := st.PlayerStats(c.Request.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Player not found"})
			return
		}
		if err != nil {
			log.Printf("[DB] GetPlayerStats failed for %d: %v", id, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load stats"})
			return
		}

		winRate := 0.0
		if stats.MatchesPlayed > 0 {
			winRate = float64(stats.MatchesWon) / float64(stats.MatchesPlayed) * 100
		}
		c.JSON(http.StatusOK, gin.H{
			"player_id":      stats.PlayerID,
			"display_name":   stats.DisplayName,
			"matches_played": stats.MatchesPlayed,
			"matches_won":    stats.MatchesWon,
			"matches_drawn":  stats.MatchesDrawn,
			"total_points":   stats.TotalPoints,
			"win_rate":       winRate,
		})
	}
}
