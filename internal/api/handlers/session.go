package handlers

import (
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/niyoseris/curling/internal/auth"
	"github.com/niyoseris/curling/internal/config"
	"github.com/niyoseris/curling/internal/store"
)

var validName = regexp.MustCompile(`^[\p{L}\p{N}\p{P}\p{S}\p{Zs}]+$`)

// CreateSession registers a guest player and returns a bearer token for it
func CreateSession(st *store.Store, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			DisplayName string `json:"display_name"`
		}
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
				return
			}
		}

		name := strings.TrimSpace(req.DisplayName)
		if name == "" {
			name = generateDisplayName()
		} else if len(name) > 50 || !validName.MatchString(name) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid display_name"})
			return
		}

		player, err := st.CreatePlayer(c.Request.Context(), name)
		if err != nil {
			log.Printf("[DB] CreateSession failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create player"})
			return
		}

		ttl := time.Duration(cfg.SessionTimeoutMin) * time.Minute
		if ttl <= 0 {
			ttl = 24 * time.Hour
		}
		token, expires, err := auth.IssuePlayerToken(cfg.JWTSecret, player.ID, player.DisplayName, ttl)
		if err != nil {
			log.Printf("[AUTH] Failed to sign token for player %d: %v", player.ID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"token":      token,
			"expires_at": expires,
			"player":     player,
		})
	}
}
