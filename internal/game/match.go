package game

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/niyoseris/curling/internal/curling"
)

// The human always plays red and throws first in every end; the AI plays yellow.
const (
	PlayerSide = curling.SideRed
	AISide     = curling.SideYellow
)

var (
	ErrMatchNotFound = errors.New("match not found")
	ErrWrongPhase    = errors.New("action not allowed in the current phase")
	ErrNoStonesLeft  = errors.New("no stones left")
	ErrStonesMoving  = errors.New("stones are still moving")
	ErrNotYourMatch  = errors.New("match belongs to another player")
)

// Settings are fixed for the lifetime of a match.
type Settings struct {
	TotalEnds     int            `json:"total_ends"`
	StonesPerTeam int            `json:"stones_per_team"`
	Sheet         curling.Config `json:"sheet"`
	Seed          uint64         `json:"seed"` // AI randomness; throw n uses Seed+n
}

// DefaultSettings returns a four-end match with five stones a side.
func DefaultSettings() Settings {
	return Settings{
		TotalEnds:     4,
		StonesPerTeam: 5,
		Sheet:         curling.DefaultConfig(),
	}
}

// Validate checks the settings before a match is created.
func (s Settings) Validate() error {
	if s.TotalEnds < 1 {
		return fmt.Errorf("total ends must be at least 1, got %d", s.TotalEnds)
	}
	if s.StonesPerTeam < 1 {
		return fmt.Errorf("stones per team must be at least 1, got %d", s.StonesPerTeam)
	}
	return s.Sheet.Validate()
}

// EndScore is the result of one completed end.
type EndScore struct {
	End     int          `json:"end"`
	Red     int          `json:"red"`
	Yellow  int          `json:"yellow"`
	Closest curling.Side `json:"closest_side,omitempty"`
}

// Frame is one simulated tick as streamed to clients.
type Frame struct {
	Tick   int             `json:"tick"`
	Stones curling.Set     `json:"stones"`
	Events []curling.Event `json:"events,omitempty"`
	Moving bool            `json:"moving"`
}

// Match is one player against the AI. All methods are safe for concurrent use.
type Match struct {
	ID           string        `json:"id"`
	Token        string        `json:"token"`
	PlayerID     int           `json:"player_id,omitempty"`
	PlayerName   string        `json:"player_name,omitempty"`
	RecordID     int           `json:"record_id,omitempty"` // matches.id once persisted
	Settings     Settings      `json:"settings"`
	Phase        Phase         `json:"phase"`
	Status       GameStatus    `json:"status"`
	CurrentEnd   int           `json:"current_end"`
	Turn         curling.Side  `json:"turn"`
	RedLeft      int           `json:"red_left"`
	YellowLeft   int           `json:"yellow_left"`
	Stones       curling.Set   `json:"stones"`
	ThrowNumber  int           `json:"throw_number"`
	ActiveStone  string        `json:"active_stone,omitempty"`
	LastShot     *curling.Shot `json:"last_shot,omitempty"`
	Ticks        int           `json:"ticks"`
	EndScores    []EndScore    `json:"end_scores"`
	RedTotal     int           `json:"red_total"`
	YellowTotal  int           `json:"yellow_total"`
	Winner       string        `json:"winner,omitempty"` // red, yellow or draw
	Conceded     bool          `json:"conceded,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	StartedAt    *time.Time    `json:"started_at,omitempty"`
	CompletedAt  *time.Time    `json:"completed_at,omitempty"`
	LastActivity time.Time     `json:"last_activity"`
	mu           sync.RWMutex
}

// NewMatch creates a match sitting at the menu.
func NewMatch(id, token string, playerID int, playerName string, settings Settings) *Match {
	now := time.Now()
	return &Match{
		ID:           id,
		Token:        token,
		PlayerID:     playerID,
		PlayerName:   playerName,
		Settings:     settings,
		Phase:        PhaseMenu,
		Status:       StatusWaiting,
		Turn:         PlayerSide,
		CreatedAt:    now,
		LastActivity: now,
	}
}

// Start begins the first end.
func (m *Match) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Phase != PhaseMenu {
		return fmt.Errorf("%w: start from %s", ErrWrongPhase, m.Phase)
	}
	now := time.Now()
	m.EndScores = nil
	m.RedTotal, m.YellowTotal = 0, 0
	m.Winner = ""
	m.Conceded = false
	m.ThrowNumber = 0
	m.CurrentEnd = 1
	m.Status = StatusInProgress
	m.StartedAt = &now
	m.CompletedAt = nil
	m.resetEnd()
	m.LastActivity = now
	return nil
}

// PlayerThrow launches the player's next stone. Power is clamped into range; non-finite
// values are rejected.
func (m *Match) PlayerThrow(shot curling.Shot) (curling.Shot, error) {
	if err := shot.Validate(); err != nil {
		return curling.Shot{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Phase != PhasePlaying {
		return curling.Shot{}, fmt.Errorf("%w: throw during %s", ErrWrongPhase, m.Phase)
	}
	if m.RedLeft == 0 {
		return curling.Shot{}, ErrNoStonesLeft
	}
	shot.Power = curling.ClampPower(shot.Power, curling.MinPower)
	shot.Kind = ""
	m.throw(PlayerSide, shot)
	m.Phase = PhaseThrowing
	return shot, nil
}

// AIThrow picks and launches the AI's stone.
func (m *Match) AIThrow() (curling.Shot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Phase != PhaseAIThinking {
		return curling.Shot{}, fmt.Errorf("%w: ai throw during %s", ErrWrongPhase, m.Phase)
	}
	if m.YellowLeft == 0 {
		return curling.Shot{}, ErrNoStonesLeft
	}
	rng := curling.NewRand(m.Settings.Seed + uint64(m.ThrowNumber))
	shot := curling.ChooseShot(m.Stones, AISide, m.Settings.Sheet, m.YellowLeft, rng)
	m.throw(AISide, shot)
	m.Phase = PhaseAIThrowing
	return shot, nil
}

func (m *Match) throw(side curling.Side, shot curling.Shot) {
	inEnd := 2*m.Settings.StonesPerTeam - m.RedLeft - m.YellowLeft + 1
	lp := m.Settings.Sheet.LaunchPoint()
	stone := curling.Disc{
		ID:       fmt.Sprintf("e%d-s%d", m.CurrentEnd, inEnd),
		Side:     side,
		Position: lp,
	}
	stone = curling.LaunchShot(stone, shot)
	m.Stones = append(m.Stones, stone)

	if side == curling.SideRed {
		m.RedLeft--
	} else {
		m.YellowLeft--
	}
	m.Turn = side
	m.ThrowNumber++
	m.ActiveStone = stone.ID
	m.LastShot = &shot
	m.Ticks = 0
	m.LastActivity = time.Now()
}

// Tick advances the stones in flight by one step.
func (m *Match) Tick() (Frame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.Phase.Simulating() {
		return Frame{}, fmt.Errorf("%w: tick during %s", ErrWrongPhase, m.Phase)
	}
	next, events := curling.StepWithEvents(m.Stones, m.Settings.Sheet)
	m.Stones = next
	m.Ticks++
	return Frame{
		Tick:   m.Ticks,
		Stones: next.Clone(),
		Events: events,
		Moving: curling.IsAnyMoving(next),
	}, nil
}

// Halt brings every stone to rest where it lies. Used when a simulation runs past its
// tick budget.
func (m *Match) Halt() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.halt()
}

func (m *Match) halt() {
	for i := range m.Stones {
		m.Stones[i].Velocity = curling.Vec2{}
		m.Stones[i].Moving = false
	}
	// A step over resting stones only retires the ones short of play.
	m.Stones = curling.Step(m.Stones, m.Settings.Sheet)
}

// ThrowComplete settles a throw once every stone is at rest. When both sides are out of
// stones the end is scored and returned; otherwise the turn passes on.
func (m *Match) ThrowComplete() (*EndScore, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.Phase.Simulating() {
		return nil, fmt.Errorf("%w: complete during %s", ErrWrongPhase, m.Phase)
	}
	if curling.IsAnyMoving(m.Stones) {
		return nil, ErrStonesMoving
	}
	m.ActiveStone = ""
	m.LastActivity = time.Now()

	if m.RedLeft == 0 && m.YellowLeft == 0 {
		out := curling.Score(m.Stones, m.Settings.Sheet)
		es := EndScore{End: m.CurrentEnd, Red: out.Red, Yellow: out.Yellow, Closest: out.Closest}
		m.EndScores = append(m.EndScores, es)
		m.RedTotal += out.Red
		m.YellowTotal += out.Yellow
		if m.CurrentEnd >= m.Settings.TotalEnds {
			m.finish()
		} else {
			m.Phase = PhaseEndSummary
		}
		return &es, nil
	}

	next := m.Turn.Opponent()
	if m.left(next) == 0 {
		next = m.Turn
	}
	m.Turn = next
	if next == PlayerSide {
		m.Phase = PhasePlaying
	} else {
		m.Phase = PhaseAIThinking
	}
	return nil, nil
}

// NextEnd clears the sheet and starts the following end.
func (m *Match) NextEnd() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Phase != PhaseEndSummary {
		return fmt.Errorf("%w: next end during %s", ErrWrongPhase, m.Phase)
	}
	m.CurrentEnd++
	m.resetEnd()
	m.LastActivity = time.Now()
	return nil
}

// ReturnToMenu abandons the current match state. Not allowed while stones are in flight.
func (m *Match) ReturnToMenu() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Phase.Simulating() {
		return fmt.Errorf("%w: return to menu during %s", ErrWrongPhase, m.Phase)
	}
	m.Phase = PhaseMenu
	m.Status = StatusWaiting
	m.Stones = nil
	m.EndScores = nil
	m.RedTotal, m.YellowTotal = 0, 0
	m.Winner = ""
	m.Conceded = false
	m.CurrentEnd = 0
	m.ActiveStone = ""
	m.LastShot = nil
	m.LastActivity = time.Now()
	return nil
}

// Concede ends the match in the AI's favour.
func (m *Match) Concede() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.Phase.Active() {
		return fmt.Errorf("%w: concede during %s", ErrWrongPhase, m.Phase)
	}
	if curling.IsAnyMoving(m.Stones) {
		m.halt()
	}
	m.ActiveStone = ""
	m.Conceded = true
	m.finish()
	m.Winner = string(AISide)
	return nil
}

func (m *Match) finish() {
	now := time.Now()
	m.Phase = PhaseGameOver
	m.Status = StatusCompleted
	m.CompletedAt = &now
	m.LastActivity = now
	switch {
	case m.RedTotal > m.YellowTotal:
		m.Winner = string(curling.SideRed)
	case m.YellowTotal > m.RedTotal:
		m.Winner = string(curling.SideYellow)
	default:
		m.Winner = WinnerDraw
	}
}

func (m *Match) resetEnd() {
	m.Stones = nil
	m.RedLeft = m.Settings.StonesPerTeam
	m.YellowLeft = m.Settings.StonesPerTeam
	m.Turn = PlayerSide
	m.ActiveStone = ""
	m.Ticks = 0
	m.Phase = PhasePlaying
}

func (m *Match) left(side curling.Side) int {
	if side == curling.SideRed {
		return m.RedLeft
	}
	return m.YellowLeft
}

// CurrentPhase returns the phase under the read lock.
func (m *Match) CurrentPhase() Phase {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.Phase
}

// LastThrow returns the end, throw number and stone ID of the most recent throw.
func (m *Match) LastThrow() (end, number int, stoneID string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.CurrentEnd, m.ThrowNumber, m.ActiveStone
}

// Authorize returns ErrNotYourMatch unless playerID may act on the match. Anonymous
// matches (PlayerID 0) accept anyone holding the token.
func (m *Match) Authorize(playerID int) error {
	if m.PlayerID != 0 && m.PlayerID != playerID {
		return ErrNotYourMatch
	}
	return nil
}

// Touch records player activity.
func (m *Match) Touch() {
	m.mu.Lock()
	m.LastActivity = time.Now()
	m.mu.Unlock()
}

// Summary returns the fields persisted when a match finishes.
func (m *Match) Summary() (winner string, red, yellow int, status GameStatus, conceded bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.Winner, m.RedTotal, m.YellowTotal, m.Status, m.Conceded
}

// StateFor returns the client view of the match for playerID.
func (m *Match) StateFor(playerID int) map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stones := m.Stones.Clone()
	if stones == nil {
		stones = curling.Set{}
	}
	endScores := make([]EndScore, len(m.EndScores))
	copy(endScores, m.EndScores)

	return map[string]interface{}{
		"id":           m.ID,
		"token":        m.Token,
		"phase":        m.Phase,
		"status":       m.Status,
		"current_end":  m.CurrentEnd,
		"total_ends":   m.Settings.TotalEnds,
		"turn":         m.Turn,
		"your_side":    PlayerSide,
		"is_owner":     m.PlayerID == 0 || m.PlayerID == playerID,
		"is_your_turn": m.Phase == PhasePlaying,
		"stones":       stones,
		"stones_left":  map[string]int{"red": m.RedLeft, "yellow": m.YellowLeft},
		"end_scores":   endScores,
		"totals":       map[string]int{"red": m.RedTotal, "yellow": m.YellowTotal},
		"winner":       m.Winner,
		"conceded":     m.Conceded,
		"last_shot":    m.LastShot,
		"sheet":        m.Settings.Sheet,
	}
}

// Snapshot serializes the match for the live-state cache.
func (m *Match) Snapshot() ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return json.Marshal(m)
}

// RestoreMatch rebuilds a match from Snapshot output.
func RestoreMatch(data []byte) (*Match, error) {
	m := &Match{}
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("decode match snapshot: %w", err)
	}
	if err := m.Settings.Validate(); err != nil {
		return nil, fmt.Errorf("restored match %s: %w", m.Token, err)
	}
	return m, nil
}
