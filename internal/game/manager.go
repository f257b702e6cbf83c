package game

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/niyoseris/curling/internal/config"
	"github.com/niyoseris/curling/internal/curling"
	"github.com/niyoseris/curling/internal/models"
	"github.com/redis/go-redis/v9"
)

// Redis keys and channels.
const (
	EventsChannel   = "match_events"
	IdleForfeitZSet = "idle_forfeit"
)

func stateKey(token string) string { return "match:" + token + ":state" }

func lastActiveKey(token string) string { return "last_active:" + token }

// Recorder persists match history. *store.Store implements it.
type Recorder interface {
	CreateMatch(ctx context.Context, m *models.Match) error
	MarkMatchStarted(ctx context.Context, matchID int, at time.Time) error
	RecordThrow(ctx context.Context, t *models.MatchThrow) error
	RecordEnd(ctx context.Context, e *models.MatchEnd) error
	FinishMatch(ctx context.Context, m *models.Match) error
}

// Broadcaster delivers a message to every client watching a match.
type Broadcaster func(token, msgType string, payload interface{})

// MatchEvent is the envelope published on EventsChannel.
type MatchEvent struct {
	Type       string          `json:"type"`
	MatchToken string          `json:"match_token"`
	Payload    json.RawMessage `json:"payload"`
}

// Manager owns the live matches of this process.
type Manager struct {
	matches   map[string]*Match // keyed by token
	running   map[string]bool   // tokens with a resolution goroutine
	rdb       *redis.Client
	rec       Recorder
	config    *config.Config
	settings  Settings
	runner    *Runner
	broadcast Broadcaster
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.RWMutex
}

// NewManager builds a manager from cfg. rdb and rec may be nil, in which case live state
// is kept in memory only and nothing is persisted.
func NewManager(rdb *redis.Client, rec Recorder, cfg *config.Config) (*Manager, error) {
	sheet, err := cfg.Sheet()
	if err != nil {
		return nil, err
	}
	settings := Settings{
		TotalEnds:     cfg.TotalEnds,
		StonesPerTeam: cfg.StonesPerTeam,
		Sheet:         sheet,
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("match settings: %w", err)
	}
	if cfg.MaxSimTicks < 1 {
		return nil, fmt.Errorf("match settings: max sim ticks must be at least 1, got %d", cfg.MaxSimTicks)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		matches:  make(map[string]*Match),
		running:  make(map[string]bool),
		rdb:      rdb,
		rec:      rec,
		config:   cfg,
		settings: settings,
		runner: &Runner{
			TickInterval: cfg.TickInterval(),
			AIThinkDelay: cfg.AIThinkDelay(),
			MaxTicks:     cfg.MaxSimTicks,
		},
		broadcast: func(string, string, interface{}) {},
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

// Settings returns the settings new matches are created with.
func (gm *Manager) Settings() Settings {
	return gm.settings
}

// MaxTicks returns the tick budget for one throw.
func (gm *Manager) MaxTicks() int {
	return gm.runner.MaxTicks
}

// SetBroadcaster installs the function used to reach connected clients.
func (gm *Manager) SetBroadcaster(b Broadcaster) {
	gm.mu.Lock()
	defer gm.mu.Unlock()
	gm.broadcast = b
}

// Shutdown stops every in-flight simulation and waits for them to exit.
func (gm *Manager) Shutdown() {
	gm.cancel()
	gm.wg.Wait()
}

// Wait blocks until no simulation goroutines are running.
func (gm *Manager) Wait() {
	gm.wg.Wait()
}

// generateToken generates a secure random token
func generateToken(length int) string {
	bytes := make([]byte, length)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

func randomSeed() uint64 {
	var b [8]byte
	rand.Read(b[:])
	return binary.LittleEndian.Uint64(b[:])
}

// CreateMatch registers a new match for playerID (0 for an anonymous player).
func (gm *Manager) CreateMatch(ctx context.Context, playerID int, playerName string) (*Match, error) {
	settings := gm.settings
	settings.Seed = randomSeed()
	m := NewMatch("match_"+generateToken(8), generateToken(16), playerID, playerName, settings)

	gm.persist(ctx, m)

	gm.mu.Lock()
	gm.matches[m.Token] = m
	gm.mu.Unlock()

	if err := gm.saveToRedis(ctx, m); err != nil {
		log.Printf("[REDIS] Failed to save match %s: %v", m.Token, err)
	}
	log.Printf("[GAME] Match %s created (player=%d seed=%d)", m.Token, playerID, settings.Seed)
	return m, nil
}

// GetByToken returns a live match, falling back to the Redis snapshot.
func (gm *Manager) GetByToken(ctx context.Context, token string) (*Match, error) {
	gm.mu.RLock()
	m, ok := gm.matches[token]
	gm.mu.RUnlock()
	if ok {
		return m, nil
	}

	m, err := gm.loadFromRedis(ctx, token)
	if err != nil {
		return nil, err
	}

	gm.mu.Lock()
	if existing, ok := gm.matches[token]; ok {
		gm.mu.Unlock()
		return existing, nil
	}
	gm.matches[token] = m
	gm.mu.Unlock()

	log.Printf("[GAME] Match %s restored from Redis in phase %s", token, m.CurrentPhase())
	if m.CurrentPhase().Simulating() || m.CurrentPhase() == PhaseAIThinking {
		gm.launch(m)
	}
	return m, nil
}

// persist creates the database record for m and stores its ID on the match.
func (gm *Manager) persist(ctx context.Context, m *Match) {
	if gm.rec == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := &models.Match{
		MatchToken:    m.Token,
		Status:        string(m.Status),
		TotalEnds:     m.Settings.TotalEnds,
		StonesPerTeam: m.Settings.StonesPerTeam,
		Seed:          int64(m.Settings.Seed),
	}
	if m.PlayerID > 0 {
		rec.PlayerID = sql.NullInt64{Int64: int64(m.PlayerID), Valid: true}
	}
	if err := gm.rec.CreateMatch(ctx, rec); err != nil {
		log.Printf("[DB] Failed to persist match %s: %v", m.Token, err)
		m.RecordID = 0
		return
	}
	m.RecordID = rec.ID
}

// ActiveCount returns the number of matches held in memory.
func (gm *Manager) ActiveCount() int {
	gm.mu.RLock()
	defer gm.mu.RUnlock()
	return len(gm.matches)
}

// Start begins a match.
func (gm *Manager) Start(ctx context.Context, m *Match) error {
	if err := m.Start(); err != nil {
		return err
	}
	if gm.rec != nil && m.RecordID > 0 {
		if err := gm.rec.MarkMatchStarted(ctx, m.RecordID, time.Now()); err != nil {
			log.Printf("[DB] Failed to mark match %s started: %v", m.Token, err)
		}
	}
	gm.trackIdle(ctx, m)
	gm.commit(ctx, m)
	return nil
}

// Throw launches the player's stone and resolves it in the background.
func (gm *Manager) Throw(ctx context.Context, m *Match, shot curling.Shot) (curling.Shot, error) {
	thrown, err := m.PlayerThrow(shot)
	if err != nil {
		return curling.Shot{}, err
	}
	gm.clearIdle(ctx, m)
	gm.recordThrow(ctx, m, PlayerSide, thrown)
	if err := gm.saveToRedis(ctx, m); err != nil {
		log.Printf("[REDIS] Failed to save match %s: %v", m.Token, err)
	}
	gm.launch(m)
	return thrown, nil
}

// NextEnd moves an end summary on to the next end.
func (gm *Manager) NextEnd(ctx context.Context, m *Match) error {
	if err := m.NextEnd(); err != nil {
		return err
	}
	gm.trackIdle(ctx, m)
	gm.commit(ctx, m)
	return nil
}

// Concede forfeits the match to the AI.
func (gm *Manager) Concede(ctx context.Context, m *Match) error {
	if err := m.Concede(); err != nil {
		return err
	}
	gm.clearIdle(ctx, m)
	gm.finish(ctx, m)
	gm.commit(ctx, m)
	log.Printf("[GAME] Match %s conceded", m.Token)
	return nil
}

// ReturnToMenu resets a finished match so the player can play again under the same
// token. The rematch gets a new seed and a new database record.
func (gm *Manager) ReturnToMenu(ctx context.Context, m *Match) error {
	if p := m.CurrentPhase(); p != PhaseGameOver {
		return fmt.Errorf("%w: return to menu during %s", ErrWrongPhase, p)
	}
	if err := m.ReturnToMenu(); err != nil {
		return err
	}
	m.mu.Lock()
	m.Settings.Seed = randomSeed()
	m.mu.Unlock()
	gm.persist(ctx, m)
	gm.clearIdle(ctx, m)
	gm.commit(ctx, m)
	return nil
}

// commit saves the match and tells its watchers.
func (gm *Manager) commit(ctx context.Context, m *Match) {
	if err := gm.saveToRedis(ctx, m); err != nil {
		log.Printf("[REDIS] Failed to save match %s: %v", m.Token, err)
	}
	gm.notify(ctx, m.Token, MsgGameUpdate, m.StateFor(m.PlayerID))
}

// launch starts a resolution goroutine for m unless one is already running.
func (gm *Manager) launch(m *Match) {
	gm.mu.Lock()
	if gm.running[m.Token] {
		gm.mu.Unlock()
		return
	}
	gm.running[m.Token] = true
	gm.mu.Unlock()

	gm.wg.Add(1)
	go func() {
		defer gm.wg.Done()
		defer func() {
			gm.mu.Lock()
			delete(gm.running, m.Token)
			gm.mu.Unlock()
		}()
		if err := gm.Resolve(gm.ctx, m); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("[GAME] Resolve failed for match %s: %v", m.Token, err)
			gm.notify(gm.ctx, m.Token, MsgError, map[string]string{"error": err.Error()})
		}
	}()
}

// Resolve runs m forward until the player is due to act or the end is over.
func (gm *Manager) Resolve(ctx context.Context, m *Match) error {
	return gm.runner.Run(ctx, m, gm.emitterFor(ctx, m))
}

func (gm *Manager) emitterFor(ctx context.Context, m *Match) Emitter {
	return func(msgType string, payload interface{}) {
		switch msgType {
		case MsgFrame:
			// Frames are high rate and only go to local watchers.
			gm.deliver(m.Token, msgType, payload)
			return
		case MsgAIShot:
			if shot, ok := payload.(curling.Shot); ok {
				gm.recordThrow(ctx, m, AISide, shot)
			}
		case MsgEndScored:
			if es, ok := payload.(*EndScore); ok {
				gm.recordEnd(ctx, m, es)
			}
		case MsgGameUpdate:
			if err := gm.saveToRedis(ctx, m); err != nil {
				log.Printf("[REDIS] Failed to save match %s: %v", m.Token, err)
			}
			switch m.CurrentPhase() {
			case PhaseGameOver:
				gm.clearIdle(ctx, m)
				gm.finish(ctx, m)
			case PhasePlaying, PhaseEndSummary:
				gm.trackIdle(ctx, m)
			}
		}
		gm.notify(ctx, m.Token, msgType, payload)
	}
}

func (gm *Manager) deliver(token, msgType string, payload interface{}) {
	gm.mu.RLock()
	b := gm.broadcast
	gm.mu.RUnlock()
	b(token, msgType, payload)
}

// notify publishes a match event through Redis so every instance's watchers see it.
// Without Redis it is delivered locally.
func (gm *Manager) notify(ctx context.Context, token, msgType string, payload interface{}) {
	if gm.rdb == nil {
		gm.deliver(token, msgType, payload)
		return
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[REDIS] Failed to encode %s event for match %s: %v", msgType, token, err)
		return
	}
	b, _ := json.Marshal(MatchEvent{Type: msgType, MatchToken: token, Payload: raw})
	if err := gm.rdb.Publish(ctx, EventsChannel, b).Err(); err != nil {
		log.Printf("[REDIS] Publish %s for match %s failed: %v; delivering locally", msgType, token, err)
		gm.deliver(token, msgType, payload)
	}
}

func (gm *Manager) recordThrow(ctx context.Context, m *Match, side curling.Side, shot curling.Shot) {
	if gm.rec == nil || m.RecordID == 0 {
		return
	}
	end, number, stoneID := m.LastThrow()
	data, err := json.Marshal(shot)
	if err != nil {
		log.Printf("[DB] Failed to marshal shot for match %s: %v", m.Token, err)
		return
	}
	err = gm.rec.RecordThrow(ctx, &models.MatchThrow{
		MatchID:     m.RecordID,
		EndNumber:   end,
		ThrowNumber: number,
		Side:        string(side),
		StoneID:     stoneID,
		ShotData:    data,
	})
	if err != nil {
		log.Printf("[DB] Failed to record throw %d for match %s: %v", number, m.Token, err)
	}
}

func (gm *Manager) recordEnd(ctx context.Context, m *Match, es *EndScore) {
	log.Printf("[GAME] Match %s end %d scored red=%d yellow=%d", m.Token, es.End, es.Red, es.Yellow)
	if gm.rec == nil || m.RecordID == 0 {
		return
	}
	err := gm.rec.RecordEnd(ctx, &models.MatchEnd{
		MatchID:     m.RecordID,
		EndNumber:   es.End,
		RedScore:    es.Red,
		YellowScore: es.Yellow,
		Closest:     string(es.Closest),
	})
	if err != nil {
		log.Printf("[DB] Failed to record end %d for match %s: %v", es.End, m.Token, err)
	}
}

func (gm *Manager) finish(ctx context.Context, m *Match) {
	winner, red, yellow, status, conceded := m.Summary()
	log.Printf("[GAME] Match %s over: winner=%s red=%d yellow=%d", m.Token, winner, red, yellow)
	if gm.rec == nil || m.RecordID == 0 {
		return
	}
	rec := &models.Match{
		ID:          m.RecordID,
		Status:      string(status),
		Winner:      sql.NullString{String: winner, Valid: winner != ""},
		RedScore:    red,
		YellowScore: yellow,
		Conceded:    conceded,
	}
	if m.PlayerID > 0 {
		rec.PlayerID = sql.NullInt64{Int64: int64(m.PlayerID), Valid: true}
	}
	if err := gm.rec.FinishMatch(ctx, rec); err != nil {
		log.Printf("[DB] Failed to finish match %s: %v", m.Token, err)
	}
}

// saveToRedis stores the match snapshot under match:<token>:state.
func (gm *Manager) saveToRedis(ctx context.Context, m *Match) error {
	if gm.rdb == nil {
		return nil
	}
	data, err := m.Snapshot()
	if err != nil {
		return err
	}
	ttl := gm.config.MatchTTL()
	if ttl <= 0 {
		ttl = time.Hour
	}
	return gm.rdb.SetEx(ctx, stateKey(m.Token), data, ttl).Err()
}

func (gm *Manager) loadFromRedis(ctx context.Context, token string) (*Match, error) {
	if gm.rdb == nil {
		return nil, ErrMatchNotFound
	}
	data, err := gm.rdb.Get(ctx, stateKey(token)).Bytes()
	if err == redis.Nil {
		return nil, ErrMatchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load match %s: %w", token, err)
	}
	return RestoreMatch(data)
}

// trackIdle schedules a forfeit check for when the player will have been idle too long.
func (gm *Manager) trackIdle(ctx context.Context, m *Match) {
	if gm.rdb == nil || gm.config.IdleForfeitSeconds <= 0 {
		return
	}
	now := time.Now()
	deadline := now.Add(time.Duration(gm.config.IdleForfeitSeconds) * time.Second)
	pipe := gm.rdb.TxPipeline()
	pipe.Set(ctx, lastActiveKey(m.Token), strconv.FormatInt(now.Unix(), 10), gm.config.MatchTTL())
	pipe.ZAdd(ctx, IdleForfeitZSet, redis.Z{Score: float64(deadline.Unix()), Member: m.Token})
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("[IDLE] Failed to track match %s: %v", m.Token, err)
	}
}

func (gm *Manager) clearIdle(ctx context.Context, m *Match) {
	m.Touch()
	if gm.rdb == nil {
		return
	}
	if err := gm.rdb.ZRem(ctx, IdleForfeitZSet, m.Token).Err(); err != nil {
		log.Printf("[IDLE] Failed to clear match %s: %v", m.Token, err)
	}
}

// Sweep drops finished or abandoned matches older than the match TTL from memory.
func (gm *Manager) Sweep(now time.Time) int {
	ttl := gm.config.MatchTTL()
	gm.mu.Lock()
	defer gm.mu.Unlock()

	removed := 0
	for token, m := range gm.matches {
		if gm.running[token] {
			continue
		}
		m.mu.RLock()
		stale := now.Sub(m.LastActivity) > ttl
		m.mu.RUnlock()
		if stale {
			delete(gm.matches, token)
			removed++
		}
	}
	return removed
}

// StartJanitor periodically sweeps stale matches until ctx is done.
func (gm *Manager) StartJanitor(ctx context.Context, every time.Duration) {
	go func() {
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if n := gm.Sweep(now); n > 0 {
					log.Printf("[GAME] Swept %d stale matches", n)
				}
			}
		}
	}()
}
