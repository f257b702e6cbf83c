package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/niyoseris/curling/internal/models"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// Store persists players, matches, ends and throws in Postgres.
type Store struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// CreatePlayer inserts a guest player.
func (s *Store) CreatePlayer(ctx context.Context, displayName string) (*models.Player, error) {
	var p models.Player
	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO players (display_name, created_at, last_active)
		VALUES ($1, NOW(), NOW())
		RETURNING id, display_name, created_at, total_matches_played, total_matches_won, total_points, last_active
	`, displayName).StructScan(&p)
	if err != nil {
		return nil, fmt.Errorf("create player: %w", err)
	}
	return &p, nil
}

func (s *Store) GetPlayer(ctx context.Context, id int) (*models.Player, error) {
	var p models.Player
	err := s.db.GetContext(ctx, &p, `
		SELECT id, display_name, created_at, total_matches_played, total_matches_won, total_points, last_active
		FROM players WHERE id=$1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get player %d: %w", id, err)
	}
	return &p, nil
}

// CreateMatch inserts m and fills in its ID and CreatedAt.
func (s *Store) CreateMatch(ctx context.Context, m *models.Match) error {
	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO matches (match_token, player_id, status, total_ends, stones_per_team, seed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING id, created_at
	`, m.MatchToken, m.PlayerID, m.Status, m.TotalEnds, m.StonesPerTeam, m.Seed).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("create match %s: %w", m.MatchToken, err)
	}
	return nil
}

// MarkMatchStarted sets started_at and moves the match in progress.
func (s *Store) MarkMatchStarted(ctx context.Context, matchID int, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE matches SET status='IN_PROGRESS', started_at=$1 WHERE id=$2`, at, matchID)
	if err != nil {
		return fmt.Errorf("mark match %d started: %w", matchID, err)
	}
	return nil
}

// RecordThrow stores one thrown stone with its shot as JSONB.
func (s *Store) RecordThrow(ctx context.Context, t *models.MatchThrow) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO match_throws (match_id, end_number, throw_number, side, stone_id, shot_data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb, NOW())
	`, t.MatchID, t.EndNumber, t.ThrowNumber, t.Side, t.StoneID, string(t.ShotData))
	if err != nil {
		return fmt.Errorf("record throw %d for match %d: %w", t.ThrowNumber, t.MatchID, err)
	}
	return nil
}

// RecordEnd stores an end score. Re-recording the same end overwrites it.
func (s *Store) RecordEnd(ctx context.Context, e *models.MatchEnd) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO match_ends (match_id, end_number, red_score, yellow_score, closest_side, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (match_id, end_number) DO UPDATE SET
			red_score = EXCLUDED.red_score,
			yellow_score = EXCLUDED.yellow_score,
			closest_side = EXCLUDED.closest_side
	`, e.MatchID, e.EndNumber, e.RedScore, e.YellowScore, e.Closest)
	if err != nil {
		return fmt.Errorf("record end %d for match %d: %w", e.EndNumber, e.MatchID, err)
	}
	return nil
}

// FinishMatch writes the final result and updates the player's totals. Finishing an
// already finished match is a no-op.
func (s *Store) FinishMatch(ctx context.Context, m *models.Match) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin finish match %d: %w", m.ID, err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE matches SET status=$1, winner=$2, red_score=$3, yellow_score=$4, conceded=$5, completed_at=NOW()
		WHERE id=$6 AND completed_at IS NULL
	`, m.Status, m.Winner, m.RedScore, m.YellowScore, m.Conceded, m.ID)
	if err != nil {
		return fmt.Errorf("finish match %d: %w", m.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil
	}

	if m.PlayerID.Valid {
		won := 0
		if m.Winner.Valid && m.Winner.String == "red" {
			won = 1
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE players SET
				total_matches_played = total_matches_played + 1,
				total_matches_won = total_matches_won + $1,
				total_points = total_points + $2,
				last_active = NOW()
			WHERE id=$3
		`, won, m.RedScore, m.PlayerID.Int64)
		if err != nil {
			return fmt.Errorf("update player %d totals: %w", m.PlayerID.Int64, err)
		}
	}

	return tx.Commit()
}

// MatchByToken loads a persisted match.
func (s *Store) MatchByToken(ctx context.Context, token string) (*models.Match, error) {
	var m models.Match
	err := s.db.GetContext(ctx, &m, `SELECT `+matchColumns+` FROM matches WHERE match_token=$1`, token)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get match %s: %w", token, err)
	}
	return &m, nil
}

// RecentMatches lists matches newest first.
func (s *Store) RecentMatches(ctx context.Context, limit, offset int) ([]models.Match, error) {
	matches := []models.Match{}
	err := s.db.SelectContext(ctx, &matches,
		`SELECT `+matchColumns+` FROM matches ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	return matches, nil
}

// MatchEnds returns the recorded ends of a match in order.
func (s *Store) MatchEnds(ctx context.Context, matchID int) ([]models.MatchEnd, error) {
	ends := []models.MatchEnd{}
	err := s.db.SelectContext(ctx, &ends, `
		SELECT id, match_id, end_number, red_score, yellow_score, closest_side, created_at
		FROM match_ends WHERE match_id=$1 ORDER BY end_number
	`, matchID)
	if err != nil {
		return nil, fmt.Errorf("list ends for match %d: %w", matchID, err)
	}
	return ends, nil
}

// PlayerStats aggregates a player's completed matches. The player always plays red.
func (s *Store) PlayerStats(ctx context.Context, playerID int) (*models.PlayerStats, error) {
	var st models.PlayerStats
	err := s.db.GetContext(ctx, &st, `
		SELECT p.id AS player_id, p.display_name,
			COUNT(m.id) AS matches_played,
			COUNT(m.id) FILTER (WHERE m.winner = 'red') AS matches_won,
			COUNT(m.id) FILTER (WHERE m.winner = 'draw') AS matches_drawn,
			COALESCE(SUM(m.red_score), 0) AS total_points
		FROM players p
		LEFT JOIN matches m ON m.player_id = p.id AND m.status = 'COMPLETED'
		WHERE p.id = $1
		GROUP BY p.id, p.display_name
	`, playerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("player %d stats: %w", playerID, err)
	}
	return &st, nil
}

const matchColumns = `id, match_token, player_id, status, winner, red_score, yellow_score, total_ends,
	stones_per_team, seed, conceded, created_at, started_at, completed_at`
