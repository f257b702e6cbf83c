package handlers

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/niyoseris/curling/internal/curling"
	"github.com/niyoseris/curling/internal/game"
)

// generateDisplayName creates a short guest display name
func generateDisplayName() string {
	adjectives := []string{"Swift", "Steady", "Brave", "Jolly", "Mighty", "Quiet", "Clever", "Frosty", "Nimble", "Bold"}
	nouns := []string{"Skip", "Sweeper", "Hammer", "Lead", "Granite", "Button", "Pebble", "Curler", "Vice", "Draw"}
	pick := func(n int) int {
		v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
		if err != nil {
			return 0
		}
		return int(v.Int64())
	}
	return fmt.Sprintf("%s %s %d", adjectives[pick(len(adjectives))], nouns[pick(len(nouns))], pick(1000))
}

// queryInt reads a non-negative integer query parameter, clamped to max when max > 0.
func queryInt(c *gin.Context, key string, def, max int) int {
	v, err := strconv.Atoi(c.DefaultQuery(key, strconv.Itoa(def)))
	if err != nil || v < 0 {
		v = def
	}
	if max > 0 && v > max {
		v = max
	}
	return v
}

// matchError writes the response for a failed match action
func matchError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, game.ErrMatchNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Match not found"})
	case errors.Is(err, game.ErrNotYourMatch):
		c.JSON(http.StatusForbidden, gin.H{"error": "Not your match"})
	case errors.Is(err, game.ErrWrongPhase), errors.Is(err, game.ErrNoStonesLeft), errors.Is(err, game.ErrStonesMoving):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, curling.ErrInvalidShot), errors.Is(err, game.ErrWeakSwipe):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}
