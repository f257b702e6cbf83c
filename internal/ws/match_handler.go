package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/niyoseris/curling/internal/auth"
	"github.com/niyoseris/curling/internal/config"
	"github.com/niyoseris/curling/internal/curling"
	"github.com/niyoseris/curling/internal/game"
	"github.com/niyoseris/curling/internal/middleware"
)

// ThrowData is the payload of a throw message. A swipe, when present, takes precedence
// over power and angle.
type ThrowData struct {
	Power float64    `json:"power"`
	Angle float64    `json:"angle"`
	Curl  float64    `json:"curl"`
	Swipe *SwipeData `json:"swipe,omitempty"`
}

type SwipeData struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

// Handler upgrades match connections and dispatches client messages.
type Handler struct {
	hub      *Hub
	games    *game.Manager
	cfg      *config.Config
	upgrader websocket.Upgrader
}

func NewHandler(hub *Hub, games *game.Manager, cfg *config.Config) *Handler {
	return &Handler{
		hub:   hub,
		games: games,
		cfg:   cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return middleware.OriginAllowed(cfg, r.Header.Get("Origin"))
			},
		},
	}
}

// Serve handles GET /matches/:token/ws?pt=<player jwt>.
func (h *Handler) Serve(c *gin.Context) {
	token := c.Param("token")
	pt := c.Query("pt")
	if pt == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "pt required"})
		return
	}
	playerID, err := auth.ParsePlayerToken(h.cfg.JWTSecret, pt)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid player token"})
		return
	}

	m, err := h.games.GetByToken(c.Request.Context(), token)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "match not found"})
		return
	}
	if err := m.Authorize(playerID); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "not your match"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WS] Upgrade error: %v", err)
		return
	}

	welcome, _ := encode(game.MsgGameUpdate, m.StateFor(playerID))
	client := &Client{
		hub:        h.hub,
		conn:       conn,
		playerID:   playerID,
		matchToken: token,
		send:       make(chan []byte, 256),
		welcome:    welcome,
	}
	h.hub.register <- client

	go client.writePump()
	go h.readPump(client)
}

// readPump reads client messages until the connection drops.
func (h *Handler) readPump(c *Client) {
	defer func() {
		h.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[WS] Unexpected close for player %d: %v", c.playerID, err)
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.sendError("Invalid message")
			continue
		}
		h.handleMessage(c, msg)
	}
}

func (h *Handler) handleMessage(c *Client, msg Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	m, err := h.games.GetByToken(ctx, c.matchToken)
	if err != nil {
		c.sendError("Match not found")
		return
	}

	switch msg.Type {
	case "throw":
		var data ThrowData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("Invalid throw data")
			return
		}
		shot := curling.Shot{Power: data.Power, Angle: data.Angle, Curl: data.Curl}
		if data.Swipe != nil {
			if shot, err = game.ShotFromSwipe(data.Swipe.DX, data.Swipe.DY, data.Curl); err != nil {
				c.sendError(err.Error())
				return
			}
		}
		if _, err := h.games.Throw(ctx, m, shot); err != nil {
			c.sendError(errorText(err))
		}

	case "start":
		if err := h.games.Start(ctx, m); err != nil {
			c.sendError(errorText(err))
		}

	case "next_end":
		if err := h.games.NextEnd(ctx, m); err != nil {
			c.sendError(errorText(err))
		}

	case "concede":
		if err := h.games.Concede(ctx, m); err != nil {
			c.sendError(errorText(err))
		}

	case "return_to_menu":
		if err := h.games.ReturnToMenu(ctx, m); err != nil {
			c.sendError(errorText(err))
		}

	case "get_state":
		c.sendJSON(game.MsgGameUpdate, m.StateFor(c.playerID))

	default:
		c.sendError("Unknown message type")
	}
}

func errorText(err error) string {
	switch {
	case errors.Is(err, game.ErrWrongPhase):
		return "Not your turn"
	case errors.Is(err, game.ErrNoStonesLeft):
		return "No stones left"
	case errors.Is(err, curling.ErrInvalidShot):
		return "Invalid shot"
	}
	return err.Error()
}
