package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/niyoseris/curling/internal/curling"
	"github.com/niyoseris/curling/internal/game"
	"github.com/niyoseris/curling/internal/store"
)

// throwRequest carries either an explicit shot or a swipe gesture.
type throwRequest struct {
	Power *float64 `json:"power"`
	Angle float64  `json:"angle"`
	Curl  float64  `json:"curl"`
	Swipe *struct {
		DX float64 `json:"dx"`
		DY float64 `json:"dy"`
	} `json:"swipe"`
}

func (r throwRequest) shot() (curling.Shot, error) {
	if r.Swipe != nil {
		return game.ShotFromSwipe(r.Swipe.DX, r.Swipe.DY, r.Curl)
	}
	s := curling.Shot{Angle: r.Angle, Curl: r.Curl}
	if r.Power != nil {
		s.Power = *r.Power
	}
	return s, nil
}

// ownedMatch loads the match named in the path and checks the caller may act on it.
func ownedMatch(c *gin.Context, games *game.Manager) (*game.Match, bool) {
	m, err := games.GetByToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		matchError(c, err)
		return nil, false
	}
	if err := m.Authorize(c.GetInt("player_id")); err != nil {
		matchError(c, err)
		return nil, false
	}
	return m, true
}

// CreateMatch starts a new match for the authenticated player
func CreateMatch(games *game.Manager, st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		playerID := c.GetInt("player_id")
		name := ""
		if st != nil {
			if p, err := st.GetPlayer(c.Request.Context(), playerID); err == nil {
				name = p.DisplayName
			} else {
				log.Printf("[DB] CreateMatch - player %d lookup failed: %v", playerID, err)
			}
		}

		m, err := games.CreateMatch(c.Request.Context(), playerID, name)
		if err != nil {
			log.Printf("[GAME] CreateMatch failed for player %d: %v", playerID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create match"})
			return
		}

		c.Header("X-Match-Token", m.Token)
		c.JSON(http.StatusCreated, gin.H{
			"match_token": m.Token,
			"ws_path":     "/api/v1/matches/" + m.Token + "/ws",
			"state":       m.StateFor(playerID),
		})
	}
}

// GetMatch returns the match as seen by the caller
func GetMatch(games *game.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		m, ok := ownedMatch(c, games)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, m.StateFor(c.GetInt("player_id")))
	}
}

// StartMatch leaves the menu and opens the first end
func StartMatch(games *game.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		m, ok := ownedMatch(c, games)
		if !ok {
			return
		}
		if err := games.Start(c.Request.Context(), m); err != nil {
			matchError(c, err)
			return
		}
		c.JSON(http.StatusOK, m.StateFor(c.GetInt("player_id")))
	}
}

// ThrowStone launches the player's stone. The throw resolves in the background and
// progress is streamed over the match websocket.
func ThrowStone(games *game.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req throwRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		if req.Power == nil && req.Swipe == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "power or swipe required"})
			return
		}
		shot, err := req.shot()
		if err != nil {
			matchError(c, err)
			return
		}

		m, ok := ownedMatch(c, games)
		if !ok {
			return
		}
		thrown, err := games.Throw(c.Request.Context(), m, shot)
		if err != nil {
			matchError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{
			"shot":  thrown,
			"phase": m.CurrentPhase(),
		})
	}
}

// NextEnd moves from the end summary to the next end
func NextEnd(games *game.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		m, ok := ownedMatch(c, games)
		if !ok {
			return
		}
		if err := games.NextEnd(c.Request.Context(), m); err != nil {
			matchError(c, err)
			return
		}
		c.JSON(http.StatusOK, m.StateFor(c.GetInt("player_id")))
	}
}

// ConcedeMatch forfeits the match to the AI
func ConcedeMatch(games *game.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		m, ok := ownedMatch(c, games)
		if !ok {
			return
		}
		if err := games.Concede(c.Request.Context(), m); err != nil {
			matchError(c, err)
			return
		}
		c.JSON(http.StatusOK, m.StateFor(c.GetInt("player_id")))
	}
}

// ReturnToMenu resets a finished match for a rematch
func ReturnToMenu(games *game.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		m, ok := ownedMatch(c, games)
		if !ok {
			return
		}
		if err := games.ReturnToMenu(c.Request.Context(), m); err != nil {
			matchError(c, err)
			return
		}
		c.JSON(http.StatusOK, m.StateFor(c.GetInt("player_id")))
	}
}
