package game

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// StartIdleWorker concedes matches whose player has not acted within the idle limit.
// Deadlines live in the idle_forfeit sorted set so any instance can process them.
func (gm *Manager) StartIdleWorker(ctx context.Context) {
	if gm.rdb == nil || gm.config.IdleForfeitSeconds <= 0 {
		log.Println("[IDLE] Redis or idle limit missing; idle worker not started")
		return
	}
	poll := time.Duration(gm.config.IdleWorkerPollInterval) * time.Second
	if poll <= 0 {
		poll = 5 * time.Second
	}

	log.Println("[IDLE] Idle worker started")
	go func() {
		ticker := time.NewTicker(poll)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Println("[IDLE] Idle worker stopping")
				return
			case now := <-ticker.C:
				gm.ProcessIdle(ctx, now)
			}
		}
	}()
}

// ProcessIdle handles every idle deadline that has passed by now and returns how many
// matches were forfeited.
func (gm *Manager) ProcessIdle(ctx context.Context, now time.Time) int {
	members, err := gm.rdb.ZRangeByScore(ctx, IdleForfeitZSet, &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("%d", now.Unix()),
	}).Result()
	if err != nil {
		log.Printf("[IDLE] Failed to fetch idle forfeits: %v", err)
		return 0
	}

	forfeited := 0
	for _, token := range members {
		// Only the instance that removes the member handles it.
		if removed, _ := gm.rdb.ZRem(ctx, IdleForfeitZSet, token).Result(); removed == 0 {
			continue
		}

		last, _ := gm.rdb.Get(ctx, lastActiveKey(token)).Result()
		lastTs, _ := strconv.ParseInt(last, 10, 64)
		if now.Unix()-lastTs < int64(gm.config.IdleForfeitSeconds) {
			continue
		}

		m, err := gm.GetByToken(ctx, token)
		if err != nil {
			log.Printf("[IDLE] Match %s not found: %v", token, err)
			continue
		}
		if phase := m.CurrentPhase(); phase != PhasePlaying && phase != PhaseEndSummary {
			log.Printf("[IDLE] Skipping forfeit for match %s (phase=%s)", token, phase)
			continue
		}

		log.Printf("[IDLE] Forfeiting match %s due to inactivity", token)
		if err := gm.Concede(ctx, m); err != nil {
			log.Printf("[IDLE] Forfeit of match %s failed: %v", token, err)
			continue
		}
		gm.notify(ctx, token, "player_forfeit", map[string]interface{}{
			"match_token": token,
			"message":     "Player forfeited due to inactivity",
			"state":       m.StateFor(m.PlayerID),
		})
		forfeited++
	}
	return forfeited
}
