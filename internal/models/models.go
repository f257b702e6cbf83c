package models

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/lib/pq"
)

// Player is a guest account created by a session request.
type Player struct {
	ID                 int          `db:"id" json:"id"`
	DisplayName        string       `db:"display_name" json:"display_name"`
	CreatedAt          time.Time    `db:"created_at" json:"created_at"`
	TotalMatchesPlayed int          `db:"total_matches_played" json:"total_matches_played"`
	TotalMatchesWon    int          `db:"total_matches_won" json:"total_matches_won"`
	TotalPoints        int          `db:"total_points" json:"total_points"`
	LastActive         sql.NullTime `db:"last_active" json:"last_active,omitempty"`
}

// Match is the persisted record of one match against the AI
type Match struct {
	ID            int            `db:"id" json:"id"`
	MatchToken    string         `db:"match_token" json:"match_token"`
	PlayerID      sql.NullInt64  `db:"player_id" json:"player_id,omitempty"`
	Status        string         `db:"status" json:"status"`
	Winner        sql.NullString `db:"winner" json:"winner,omitempty"`
	RedScore      int            `db:"red_score" json:"red_score"`
	YellowScore   int            `db:"yellow_score" json:"yellow_score"`
	TotalEnds     int            `db:"total_ends" json:"total_ends"`
	StonesPerTeam int            `db:"stones_per_team" json:"stones_per_team"`
	Seed          int64          `db:"seed" json:"seed"`
	Conceded      bool           `db:"conceded" json:"conceded"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	StartedAt     sql.NullTime   `db:"started_at" json:"started_at,omitempty"`
	CompletedAt   sql.NullTime   `db:"completed_at" json:"completed_at,omitempty"`
}

// MatchEnd is the score of a single end
type MatchEnd struct {
	ID          int       `db:"id" json:"id"`
	MatchID     int       `db:"match_id" json:"match_id"`
	EndNumber   int       `db:"end_number" json:"end_number"`
	RedScore    int       `db:"red_score" json:"red_score"`
	YellowScore int       `db:"yellow_score" json:"yellow_score"`
	Closest     string    `db:"closest_side" json:"closest_side,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// MatchThrow is one thrown stone; ShotData holds the shot as JSONB
type MatchThrow struct {
	ID          int             `db:"id" json:"id"`
	MatchID     int             `db:"match_id" json:"match_id"`
	EndNumber   int             `db:"end_number" json:"end_number"`
	ThrowNumber int             `db:"throw_number" json:"throw_number"`
	Side        string          `db:"side" json:"side"`
	StoneID     string          `db:"stone_id" json:"stone_id"`
	ShotData    json.RawMessage `db:"shot_data" json:"shot_data"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

// PlayerStats aggregates a player's finished matches
type PlayerStats struct {
	PlayerID      int    `db:"player_id" json:"player_id"`
	DisplayName   string `db:"display_name" json:"display_name"`
	MatchesPlayed int    `db:"matches_played" json:"matches_played"`
	MatchesWon    int    `db:"matches_won" json:"matches_won"`
	MatchesDrawn  int    `db:"matches_drawn" json:"matches_drawn"`
	TotalPoints   int    `db:"total_points" json:"total_points"`
}

// AdminAccount represents an admin user
type AdminAccount struct {
	Username    string         `db:"username" json:"username"`
	DisplayName sql.NullString `db:"display_name" json:"display_name,omitempty"`
	TokenHash   string         `db:"token_hash" json:"-"`
	Roles       pq.StringArray `db:"roles" json:"roles"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

// AdminAudit is one entry in the admin audit log
type AdminAudit struct {
	ID            int             `db:"id" json:"id"`
	AdminUsername string          `db:"admin_username" json:"admin_username"`
	IP            string          `db:"ip" json:"ip"`
	Route         string          `db:"route" json:"route"`
	Action        string          `db:"action" json:"action"`
	Details       json.RawMessage `db:"details" json:"details"`
	Success       bool            `db:"success" json:"success"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

// RuntimeConfig is an admin-editable override of a config value, applied at startup
type RuntimeConfig struct {
	Key         string         `db:"key" json:"key"`
	Value       string         `db:"value" json:"value"`
	ValueType   string         `db:"value_type" json:"value_type"`
	Description string         `db:"description" json:"description"`
	UpdatedBy   sql.NullString `db:"updated_by" json:"updated_by,omitempty"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}
