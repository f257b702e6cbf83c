package ws

import (
	"context"
	"encoding/json"
	"log"

	"github.com/niyoseris/curling/internal/game"
	"github.com/redis/go-redis/v9"
)

// StartEventSubscriber forwards match events published by any instance to the clients
// connected here.
func StartEventSubscriber(ctx context.Context, rdb *redis.Client, hub *Hub) {
	if rdb == nil {
		log.Println("[WS] Redis client not set; match event subscriber not started")
		return
	}

	pubsub := rdb.Subscribe(ctx, game.EventsChannel)
	// Wait for the subscription to be confirmed so no event published after we return is lost.
	if _, err := pubsub.Receive(ctx); err != nil {
		log.Printf("[WS] Failed to subscribe to %s: %v", game.EventsChannel, err)
		pubsub.Close()
		return
	}
	ch := pubsub.Channel()
	go func() {
		defer pubsub.Close()
		log.Printf("[WS] %s subscriber started", game.EventsChannel)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev game.MatchEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					log.Printf("[WS] invalid event payload: %v", err)
					continue
				}
				if ev.MatchToken == "" || ev.Type == "" {
					continue
				}
				data, err := json.Marshal(Message{Type: ev.Type, Data: ev.Payload})
				if err != nil {
					continue
				}
				hub.broadcastRaw(ev.MatchToken, data)
			}
		}
	}()
}
