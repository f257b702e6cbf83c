package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/niyoseris/curling/internal/models"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(sqlx.NewDb(db, "postgres")), mock
}

func TestCreatePlayer(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now()
	mock.ExpectQuery(`INSERT INTO players`).
		WithArgs("Alice").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "display_name", "created_at", "total_matches_played", "total_matches_won", "total_points", "last_active",
		}).AddRow(7, "Alice", now, 0, 0, 0, now))

	p, err := s.CreatePlayer(context.Background(), "Alice")
	if err != nil {
		t.Fatalf("CreatePlayer: %v", err)
	}
	if p.ID != 7 || p.DisplayName != "Alice" || !p.LastActive.Valid {
		t.Errorf("unexpected player %+v", p)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestGetPlayerNotFound(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`FROM players WHERE id=\$1`).WithArgs(3).WillReturnError(sql.ErrNoRows)

	if _, err := s.GetPlayer(context.Background(), 3); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetPlayer() = %v, want ErrNotFound", err)
	}
}

func TestCreateMatchFillsID(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now()
	mock.ExpectQuery(`INSERT INTO matches`).
		WithArgs("tok", int64(7), "WAITING", 4, 5, int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(12, now))

	m := &models.Match{
		MatchToken:    "tok",
		PlayerID:      sql.NullInt64{Int64: 7, Valid: true},
		Status:        "WAITING",
		TotalEnds:     4,
		StonesPerTeam: 5,
		Seed:          99,
	}
	if err := s.CreateMatch(context.Background(), m); err != nil {
		t.Fatalf("CreateMatch: %v", err)
	}
	if m.ID != 12 {
		t.Errorf("ID = %d, want 12", m.ID)
	}
}

func TestRecordThrowStoresJSONB(t *testing.T) {
	s, mock := newMockStore(t)
	shot := json.RawMessage(`{"power":0.5,"angle":0,"curl":0.1}`)
	mock.ExpectExec(`INSERT INTO match_throws`).
		WithArgs(12, 1, 3, "red", "e1-s3", string(shot)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := s.RecordThrow(context.Background(), &models.MatchThrow{
		MatchID: 12, EndNumber: 1, ThrowNumber: 3, Side: "red", StoneID: "e1-s3", ShotData: shot,
	})
	if err != nil {
		t.Fatalf("RecordThrow: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestFinishMatchUpdatesPlayer(t *testing.T) {
	s, mock := newMockStore(t)
	m := &models.Match{
		ID:          12,
		PlayerID:    sql.NullInt64{Int64: 7, Valid: true},
		Status:      "COMPLETED",
		Winner:      sql.NullString{String: "red", Valid: true},
		RedScore:    3,
		YellowScore: 1,
	}

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE matches SET status`).
		WithArgs("COMPLETED", "red", 3, 1, false, 12).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE players SET`).
		WithArgs(1, 3, int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := s.FinishMatch(context.Background(), m); err != nil {
		t.Fatalf("FinishMatch: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestFinishMatchTwiceIsNoop(t *testing.T) {
	s, mock := newMockStore(t)
	m := &models.Match{
		ID:       12,
		PlayerID: sql.NullInt64{Int64: 7, Valid: true},
		Status:   "COMPLETED",
		Winner:   sql.NullString{String: "yellow", Valid: true},
	}

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE matches SET status`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	if err := s.FinishMatch(context.Background(), m); err != nil {
		t.Fatalf("FinishMatch: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPlayerStats(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`FROM players p`).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{
			"player_id", "display_name", "matches_played", "matches_won", "matches_drawn", "total_points",
		}).AddRow(7, "Alice", 5, 3, 1, 14))

	st, err := s.PlayerStats(context.Background(), 7)
	if err != nil {
		t.Fatalf("PlayerStats: %v", err)
	}
	want := models.PlayerStats{PlayerID: 7, DisplayName: "Alice", MatchesPlayed: 5, MatchesWon: 3, MatchesDrawn: 1, TotalPoints: 14}
	if *st != want {
		t.Errorf("PlayerStats() = %+v, want %+v", *st, want)
	}
}
