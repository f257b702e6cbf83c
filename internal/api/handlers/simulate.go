package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/niyoseris/curling/internal/curling"
	"github.com/niyoseris/curling/internal/game"
)

const (
	maxSimStones = 32
	// client stones may not move faster than twice a full-power launch
	maxStoneSpeed = 2 * curling.MaxLaunchSpeed
)

// ShotStone is the ID given to the stone thrown by a simulate request.
const ShotStone = "shot"

type simulateRequest struct {
	Stones curling.Set     `json:"stones"`
	Sheet  *curling.Config `json:"sheet"`
	Shot   *struct {
		curling.Shot
		Side curling.Side `json:"side"`
	} `json:"shot"`
}

// sheetFor returns the requested sheet or the server default.
func sheetFor(req *curling.Config, games *game.Manager) (curling.Config, error) {
	if req == nil {
		return games.Settings().Sheet, nil
	}
	if err := req.Validate(); err != nil {
		return curling.Config{}, err
	}
	return *req, nil
}

// onSheet reports whether p lies within one sheet size of the sheet itself.
func onSheet(p curling.Vec2, sheet curling.Config) bool {
	return p.X >= -sheet.SheetWidth && p.X <= 2*sheet.SheetWidth &&
		p.Y >= -sheet.SheetHeight && p.Y <= 2*sheet.SheetHeight
}

// checkStones validates client-supplied stones and derives Moving from velocity.
func checkStones(set curling.Set, sheet curling.Config) (curling.Set, error) {
	if len(set) > maxSimStones {
		return nil, fmt.Errorf("at most %d stones", maxSimStones)
	}
	out := set.Clone()
	seen := make(map[string]bool, len(out))
	for i, d := range out {
		if !d.Side.Valid() {
			return nil, fmt.Errorf("stone %q: %w", d.ID, curling.ErrInvalidSide)
		}
		if d.ID == "" || seen[d.ID] {
			return nil, fmt.Errorf("stone ids must be unique and non-empty")
		}
		seen[d.ID] = true
		if !d.Position.IsFinite() || !d.Velocity.IsFinite() {
			return nil, fmt.Errorf("stone %q: non-finite position or velocity", d.ID)
		}
		if !onSheet(d.Position, sheet) {
			return nil, fmt.Errorf("stone %q: position outside the sheet", d.ID)
		}
		if d.Velocity.Magnitude() > maxStoneSpeed {
			return nil, fmt.Errorf("stone %q: speed above %g", d.ID, maxStoneSpeed)
		}
		if d.Velocity.Magnitude() > curling.StopSpeed {
			out[i].Moving = true
		} else {
			out[i].Velocity = curling.Vec2{}
			out[i].Moving = false
		}
	}
	return out, nil
}

// Simulate runs a set of stones, optionally with a newly thrown stone, until everything
// is at rest and returns the final layout with the end score it would produce.
func Simulate(games *game.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req simulateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		sheet, err := sheetFor(req.Sheet, games)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		set, err := checkStones(req.Stones, sheet)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if req.Shot != nil {
			shot := req.Shot.Shot
			if err := shot.Validate(); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			side := req.Shot.Side
			if side == "" {
				side = game.PlayerSide
			}
			lp := sheet.LaunchPoint()
			stone, err := curling.NewDisc(ShotStone, side, lp.X, lp.Y)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			if _, dup := set.Find(ShotStone); dup {
				c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("stone id %q is reserved", ShotStone)})
				return
			}
			shot.Power = curling.ClampPower(shot.Power, 0)
			set = append(set, curling.LaunchShot(stone, shot))
		}

		final, events, ticks := game.SimulateToRest(set, sheet, games.MaxTicks())
		if final == nil {
			final = curling.Set{}
		}
		if events == nil {
			events = []curling.Event{}
		}
		c.JSON(http.StatusOK, gin.H{
			"stones":  final,
			"events":  events,
			"ticks":   ticks,
			"outcome": curling.Score(final, sheet),
		})
	}
}

// SuggestShot returns the shot the AI would play from the given layout
func SuggestShot(games *game.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Stones    curling.Set     `json:"stones"`
			Sheet     *curling.Config `json:"sheet"`
			Side      curling.Side    `json:"side"`
			Remaining int             `json:"remaining"`
			Seed      *uint64         `json:"seed"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		sheet, err := sheetFor(req.Sheet, games)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		set, err := checkStones(req.Stones, sheet)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		side := req.Side
		if side == "" {
			side = game.AISide
		}
		if !side.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": curling.ErrInvalidSide.Error()})
			return
		}
		remaining := req.Remaining
		if remaining <= 0 {
			remaining = 1
		}

		seed := uint64(1)
		if req.Seed != nil {
			seed = *req.Seed
		}
		shot := curling.ChooseShot(set, side, sheet, remaining, curling.NewRand(seed))
		c.JSON(http.StatusOK, gin.H{"shot": shot, "side": side})
	}
}
