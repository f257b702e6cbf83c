package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/niyoseris/curling/internal/admin"
	"github.com/niyoseris/curling/internal/auth"
	"github.com/niyoseris/curling/internal/config"
	"github.com/niyoseris/curling/internal/game"
	"github.com/niyoseris/curling/internal/store"
)

const adminSessionTTL = 4 * time.Hour

// AdminLogin exchanges a username and admin token for a short-lived bearer token
func AdminLogin(db *sqlx.DB, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Username string `json:"username" binding:"required"`
			Token    string `json:"token" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}

		ctx := c.Request.Context()
		username := strings.TrimSpace(req.Username)
		acc, err := admin.ValidateCredentials(ctx, db, username, strings.TrimSpace(req.Token))
		if err != nil {
			admin.LogAdminAction(ctx, db, username, c.ClientIP(), c.FullPath(), "login", map[string]interface{}{"username": username}, false)
			if errors.Is(err, admin.ErrAccountNotFound) || errors.Is(err, admin.ErrInvalidToken) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
			return
		}

		token, expires, err := auth.IssueAdminToken(cfg.JWTSecret, acc.Username, adminSessionTTL)
		if err != nil {
			log.Printf("[ADMIN] Failed to sign session for %s: %v", acc.Username, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
			return
		}

		admin.LogAdminAction(ctx, db, acc.Username, c.ClientIP(), c.FullPath(), "login", map[string]interface{}{"username": acc.Username}, true)
		c.JSON(http.StatusOK, gin.H{
			"token":      token,
			"expires_at": expires,
			"username":   acc.Username,
			"roles":      acc.Roles,
		})
	}
}

// AdminMatches lists recent matches newest first
func AdminMatches(db *sqlx.DB, st *store.Store, games *game.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := queryInt(c, "limit", 25, 200)
		offset := queryInt(c, "offset", 0, 0)

		ctx := c.Request.Context()
		matches, err := st.RecentMatches(ctx, limit, offset)
		if err != nil {
			log.Printf("[ADMIN] Failed to list matches: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list matches"})
			return
		}

		admin.LogAdminAction(ctx, db, c.GetString("admin_username"), c.ClientIP(), c.FullPath(), "list_matches",
			map[string]interface{}{"limit": limit, "offset": offset}, true)
		c.JSON(http.StatusOK, gin.H{
			"matches":        matches,
			"limit":          limit,
			"offset":         offset,
			"active_matches": games.ActiveCount(),
		})
	}
}

// AdminMatchDetail returns a persisted match with its end-by-end scores
func AdminMatchDetail(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		m, err := st.MatchByToken(ctx, c.Param("token"))
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Match not found"})
			return
		}
		if err != nil {
			log.Printf("[ADMIN] Failed to load match %s: %v", c.Param("token"), err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load match"})
			return
		}
		ends, err := st.MatchEnds(ctx, m.ID)
		if err != nil {
			log.Printf("[ADMIN] Failed to load ends for match %d: %v", m.ID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load match"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"match": m, "ends": ends})
	}
}

// AdminAuditLogs returns recent admin actions
func AdminAuditLogs(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := queryInt(c, "limit", 50, 200)
		offset := queryInt(c, "offset", 0, 0)
		logs, err := admin.GetAdminAuditLogs(c.Request.Context(), db, limit, offset)
		if err != nil {
			log.Printf("[ADMIN] Failed to fetch audit logs: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch audit logs"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"logs": logs, "limit": limit, "offset": offset})
	}
}

// GetRuntimeConfig lists the stored overrides
func GetRuntimeConfig(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		configs, err := admin.GetAllRuntimeConfig(c.Request.Context(), db)
		if err != nil {
			log.Printf("[ADMIN] Failed to fetch runtime config: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch runtime config"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"config": configs})
	}
}

// SetRuntimeConfig stores an override for one key. Changes apply after a restart.
func SetRuntimeConfig(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Value string `json:"value" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}

		ctx := c.Request.Context()
		key := c.Param("key")
		username := c.GetString("admin_username")
		details := map[string]interface{}{"key": key, "value": req.Value}

		err := admin.SetRuntimeConfigValue(ctx, db, key, strings.TrimSpace(req.Value), username)
		admin.LogAdminAction(ctx, db, username, c.ClientIP(), c.FullPath(), "set_runtime_config", details, err == nil)
		switch {
		case errors.Is(err, admin.ErrUnknownConfigKey):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, admin.ErrInvalidConfigValue):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case err != nil:
			log.Printf("[ADMIN] Failed to set %s: %v", key, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update config"})
		default:
			c.JSON(http.StatusOK, gin.H{"key": key, "value": req.Value, "applies": "after restart"})
		}
	}
}

// DeleteRuntimeConfig drops an override
func DeleteRuntimeConfig(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		key := c.Param("key")
		username := c.GetString("admin_username")

		err := admin.DeleteRuntimeConfigValue(ctx, db, key)
		admin.LogAdminAction(ctx, db, username, c.ClientIP(), c.FullPath(), "delete_runtime_config", map[string]interface{}{"key": key}, err == nil)
		if err != nil {
			log.Printf("[ADMIN] Failed to delete %s: %v", key, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete config"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": key})
	}
}
