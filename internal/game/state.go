package game

// GameStatus is the persisted lifecycle of a match.
type GameStatus string

const (
	StatusWaiting    GameStatus = "WAITING"
	StatusInProgress GameStatus = "IN_PROGRESS"
	StatusCompleted  GameStatus = "COMPLETED"
	StatusCancelled  GameStatus = "CANCELLED"
)

// Phase is where a match is in its turn cycle.
type Phase string

const (
	PhaseMenu       Phase = "menu"
	PhasePlaying    Phase = "playing" // waiting for the player's throw
	PhaseThrowing   Phase = "throwing"
	PhaseAIThinking Phase = "ai_thinking"
	PhaseAIThrowing Phase = "ai_throwing"
	PhaseEndSummary Phase = "end_summary"
	PhaseGameOver   Phase = "game_over"
)

// Simulating reports whether stones are in flight.
func (p Phase) Simulating() bool {
	return p == PhaseThrowing || p == PhaseAIThrowing
}

// Active reports whether the match has started and not yet finished.
func (p Phase) Active() bool {
	return p != PhaseMenu && p != PhaseGameOver
}

const (
	WinnerDraw = "draw"
)
