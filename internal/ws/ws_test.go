package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/niyoseris/curling/internal/auth"
	"github.com/niyoseris/curling/internal/config"
	"github.com/niyoseris/curling/internal/game"
	"github.com/redis/go-redis/v9"
)

const testSecret = "ws-test-secret"

type fixture struct {
	srv   *httptest.Server
	hub   *Hub
	games *game.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Environment:     "test",
		JWTSecret:       testSecret,
		TotalEnds:       1,
		StonesPerTeam:   2,
		TickIntervalMs:  1,
		MaxSimTicks:     5000,
		MatchTTLMinutes: 60,
	}
	games, err := game.NewManager(nil, nil, cfg)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	games.SetBroadcaster(hub.Broadcast)

	r := gin.New()
	r.GET("/matches/:token/ws", NewHandler(hub, games, cfg).Serve)
	srv := httptest.NewServer(r)

	t.Cleanup(func() {
		srv.Close()
		games.Shutdown()
		cancel()
	})
	return &fixture{srv: srv, hub: hub, games: games}
}

func (f *fixture) url(token, pt string) string {
	return "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/matches/" + token + "/ws?pt=" + pt
}

func playerToken(t *testing.T, id int) string {
	t.Helper()
	tok, _, err := auth.IssuePlayerToken(testSecret, id, "Ann", time.Hour)
	if err != nil {
		t.Fatalf("IssuePlayerToken: %v", err)
	}
	return tok
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

// readUntil skips messages until one of the wanted type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, msgType string) (Message, int) {
	t.Helper()
	skipped := 0
	for {
		msg := readMessage(t, conn)
		if msg.Type == msgType {
			return msg, skipped
		}
		skipped++
	}
}

func phaseOf(t *testing.T, msg Message) string {
	t.Helper()
	var state struct {
		Phase string `json:"phase"`
	}
	if err := json.Unmarshal(msg.Data, &state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	return state.Phase
}

func send(t *testing.T, conn *websocket.Conn, msgType string, data interface{}) {
	t.Helper()
	raw, _ := json.Marshal(data)
	if err := conn.WriteJSON(Message{Type: msgType, Data: raw}); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestServeRejectsBadRequests(t *testing.T) {
	f := newFixture(t)
	m, err := f.games.CreateMatch(context.Background(), 7, "Ann")
	if err != nil {
		t.Fatalf("CreateMatch: %v", err)
	}

	cases := []struct {
		name   string
		url    string
		status int
	}{
		{"missing token", f.url(m.Token, ""), http.StatusBadRequest},
		{"bad jwt", f.url(m.Token, "garbage"), http.StatusUnauthorized},
		{"unknown match", f.url("nope", playerToken(t, 7)), http.StatusNotFound},
		{"other player", f.url(m.Token, playerToken(t, 8)), http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, resp, err := websocket.DefaultDialer.Dial(tc.url, nil)
			if err == nil {
				t.Fatal("expected dial to fail")
			}
			if resp == nil || resp.StatusCode != tc.status {
				t.Fatalf("expected status %d, got %+v", tc.status, resp)
			}
		})
	}
}

func TestServeAllowsAnyOriginWithoutFrontendURL(t *testing.T) {
	f := newFixture(t)
	m, _ := f.games.CreateMatch(context.Background(), 7, "Ann")

	header := http.Header{"Origin": []string{"http://elsewhere.example"}}
	conn, _, err := websocket.DefaultDialer.Dial(f.url(m.Token, playerToken(t, 7)), header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	conn.Close()
}

func TestConnectSendsInitialState(t *testing.T) {
	f := newFixture(t)
	m, _ := f.games.CreateMatch(context.Background(), 7, "Ann")

	conn, _, err := websocket.DefaultDialer.Dial(f.url(m.Token, playerToken(t, 7)), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	msg := readMessage(t, conn)
	if msg.Type != game.MsgGameUpdate {
		t.Fatalf("expected %s, got %s", game.MsgGameUpdate, msg.Type)
	}
	if got := phaseOf(t, msg); got != string(game.PhaseMenu) {
		t.Fatalf("expected menu phase, got %s", got)
	}
	if f.hub.RoomSize(m.Token) != 1 {
		t.Fatalf("expected 1 watcher, got %d", f.hub.RoomSize(m.Token))
	}
}

func TestThrowStreamsFrames(t *testing.T) {
	f := newFixture(t)
	m, _ := f.games.CreateMatch(context.Background(), 7, "Ann")

	conn, _, err := websocket.DefaultDialer.Dial(f.url(m.Token, playerToken(t, 7)), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	readMessage(t, conn)

	send(t, conn, "start", nil)
	msg, _ := readUntil(t, conn, game.MsgGameUpdate)
	if got := phaseOf(t, msg); got != string(game.PhasePlaying) {
		t.Fatalf("expected playing after start, got %s", got)
	}

	send(t, conn, "throw", ThrowData{Power: 0.86})
	readUntil(t, conn, game.MsgFrame)
	msg, _ = readUntil(t, conn, game.MsgAIShot)
	var shot struct {
		Kind string `json:"kind"`
	}
	json.Unmarshal(msg.Data, &shot)
	if shot.Kind == "" {
		t.Fatalf("expected AI shot kind, got %s", msg.Data)
	}
}

func TestMessageErrors(t *testing.T) {
	f := newFixture(t)
	m, _ := f.games.CreateMatch(context.Background(), 7, "Ann")

	conn, _, err := websocket.DefaultDialer.Dial(f.url(m.Token, playerToken(t, 7)), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	readMessage(t, conn)

	cases := []struct {
		msgType string
		data    interface{}
		want    string
	}{
		{"dance", nil, "Unknown message type"},
		{"throw", ThrowData{Power: 0.5}, "Not your turn"},
		{"throw", ThrowData{Swipe: &SwipeData{DX: 1, DY: 2}}, game.ErrWeakSwipe.Error()},
	}
	for _, tc := range cases {
		send(t, conn, tc.msgType, tc.data)
		msg := readMessage(t, conn)
		if msg.Type != game.MsgError {
			t.Fatalf("%s: expected error, got %s", tc.msgType, msg.Type)
		}
		var body map[string]string
		json.Unmarshal(msg.Data, &body)
		if body["message"] != tc.want {
			t.Fatalf("%s: expected %q, got %q", tc.msgType, tc.want, body["message"])
		}
	}
}

func TestGetState(t *testing.T) {
	f := newFixture(t)
	m, _ := f.games.CreateMatch(context.Background(), 7, "Ann")

	conn, _, err := websocket.DefaultDialer.Dial(f.url(m.Token, playerToken(t, 7)), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	readMessage(t, conn)

	send(t, conn, "get_state", nil)
	msg := readMessage(t, conn)
	if msg.Type != game.MsgGameUpdate {
		t.Fatalf("expected state, got %s", msg.Type)
	}
}

func TestEventSubscriberRelaysToRoom(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub()
	go hub.Run(ctx)
	StartEventSubscriber(ctx, rdb, hub)

	client := &Client{hub: hub, playerID: 7, matchToken: "tok", send: make(chan []byte, 4)}
	hub.register <- client
	for deadline := time.Now().Add(time.Second); hub.RoomSize("tok") == 0; {
		if time.Now().After(deadline) {
			t.Fatal("client never joined the room")
		}
		time.Sleep(time.Millisecond)
	}

	ev, _ := json.Marshal(game.MatchEvent{
		Type:       game.MsgGameUpdate,
		MatchToken: "tok",
		Payload:    json.RawMessage(`{"phase":"playing"}`),
	})
	if err := rdb.Publish(ctx, game.EventsChannel, ev).Err(); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case raw := <-client.send:
		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			t.Fatal(err)
		}
		if msg.Type != game.MsgGameUpdate || phaseOf(t, msg) != "playing" {
			t.Errorf("unexpected relayed message %s", raw)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event was not relayed to the room")
	}
}
