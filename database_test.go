package main

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCreateAndGetUser(t *testing.T) {
	db := openTestDB(t)

	id, err := db.CreateUser("alice@example.com", "alice", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	u, err := db.GetUserByEmail("alice@example.com")
	if err != nil || u == nil {
		t.Fatalf("get by email: %v %v", u, err)
	}
	if u.ID != id || u.Username != "alice" {
		t.Errorf("user = %+v", u)
	}

	u2, err := db.GetUserByID(id)
	if err != nil || u2 == nil || u2.Email != "alice@example.com" {
		t.Errorf("get by id: %+v %v", u2, err)
	}

	if u3, err := db.GetUserByEmail("nobody@example.com"); err != nil || u3 != nil {
		t.Errorf("missing user = %+v %v", u3, err)
	}

	// A fresh user starts with an empty stats row.
	s, err := db.GetStats(id)
	if err != nil || s == nil {
		t.Fatalf("get stats: %v %v", s, err)
	}
	if s.TotalScore != 0 || s.GamesPlayed != 0 {
		t.Errorf("fresh stats = %+v", s)
	}
}

func TestDuplicateUserRejected(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.CreateUser("a@example.com", "alice", "h"); err != nil {
		t.Fatal(err)
	}
	if _, err := db.CreateUser("a@example.com", "other", "h"); err == nil {
		t.Error("duplicate email accepted")
	}
	if _, err := db.CreateUser("b@example.com", "alice", "h"); err == nil {
		t.Error("duplicate username accepted")
	}

	if ok, _ := db.EmailExists("a@example.com"); !ok {
		t.Error("EmailExists missed a registered email")
	}
	if ok, _ := db.UsernameExists("alice"); !ok {
		t.Error("UsernameExists missed a taken name")
	}
}

func TestPersistRoomScoresAggregates(t *testing.T) {
	db := openTestDB(t)
	id, _ := db.CreateUser("a@example.com", "alice", "h")

	if err := db.PersistRoomScores(map[string]int64{id: 100}); err != nil {
		t.Fatal(err)
	}
	if err := db.PersistRoomScores(map[string]int64{id: 40}); err != nil {
		t.Fatal(err)
	}

	s, err := db.GetStats(id)
	if err != nil || s == nil {
		t.Fatal(err)
	}
	if s.TotalScore != 140 {
		t.Errorf("total = %d, want 140", s.TotalScore)
	}
	if s.GamesPlayed != 2 {
		t.Errorf("games = %d, want 2", s.GamesPlayed)
	}
	if s.HighScore != 100 {
		t.Errorf("high = %d, want 100", s.HighScore)
	}
}

func TestPersistRoomScoresSkipsUnknownUsers(t *testing.T) {
	db := openTestDB(t)
	if err := db.PersistRoomScores(map[string]int64{"no-such-user": 50}); err != nil {
		t.Errorf("unknown user should be skipped, got %v", err)
	}
}

func TestGameResultsRoundTrip(t *testing.T) {
	db := openTestDB(t)
	roomID := uuid.NewString()
	scores := map[string]int64{"p1": 120, "p2": 40}

	if err := db.SaveGameResult(roomID, 3, scores); err != nil {
		t.Fatal(err)
	}

	results, err := db.GetGameResults(roomID, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1", len(results))
	}
	got := results[0]
	if got.RoomID != roomID || got.Detail.Wave != 3 {
		t.Errorf("result = %+v", got)
	}
	if got.Detail.Scores["p1"] != 120 || got.Detail.Scores["p2"] != 40 {
		t.Errorf("scores = %v", got.Detail.Scores)
	}

	if other, _ := db.GetGameResults(uuid.NewString(), 10); len(other) != 0 {
		t.Error("results leaked across rooms")
	}
}

func TestLeaderboardOrder(t *testing.T) {
	db := openTestDB(t)
	a, _ := db.CreateUser("a@example.com", "alice", "h")
	b, _ := db.CreateUser("b@example.com", "bob", "h")

	db.PersistRoomScores(map[string]int64{a: 50})
	db.PersistRoomScores(map[string]int64{b: 200})

	rows, err := db.Leaderboard(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0].Player != "bob" || rows[0].Score != 200 {
		t.Errorf("top row = %+v", rows[0])
	}
	if rows[1].Player != "alice" {
		t.Errorf("second row = %+v", rows[1])
	}
}

func TestSettings(t *testing.T) {
	db := openTestDB(t)
	if v := db.GetSetting("missing"); v != "" {
		t.Errorf("missing setting = %q", v)
	}
	if err := db.SetSetting("k", "v1"); err != nil {
		t.Fatal(err)
	}
	if err := db.SetSetting("k", "v2"); err != nil {
		t.Fatal(err)
	}
	if v := db.GetSetting("k"); v != "v2" {
		t.Errorf("setting = %q, want v2", v)
	}
}

func TestInsertEvents(t *testing.T) {
	db := openTestDB(t)
	batch := []AnalyticsEvent{
		{Type: EvtRoomCreated, RoomID: "r1", Timestamp: time.Now().UTC()},
		{Type: EvtPlayerJoin, UserID: "u1", RoomID: "r1", Timestamp: time.Now().UTC()},
	}
	if err := db.InsertEvents(batch); err != nil {
		t.Fatal(err)
	}

	var count int
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM events").Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("events = %d, want 2", count)
	}
}
