package main

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
	_ "modernc.org/sqlite"
)

// DB wraps the SQLite database connection
type DB struct {
	conn *sql.DB
}

// UserRow represents a user account record
type UserRow struct {
	ID        string
	Email     string
	Username  string
	PassHash  string
	CreatedAt time.Time
}

// StatsRow represents a player's aggregate score record
type StatsRow struct {
	UserID      string
	TotalScore  int64
	GamesPlayed int
	HighScore   int64
}

// GameResultDetail is the msgpack-encoded per-room result blob: the
// drained score ledger plus the wave the room reached.
type GameResultDetail struct {
	Wave   int              `msgpack:"wave"`
	Scores map[string]int64 `msgpack:"scores"`
}

// GameResultRow represents one finished room
type GameResultRow struct {
	ID        string
	RoomID    string
	Detail    GameResultDetail
	CreatedAt time.Time
}

// OpenDB opens (or creates) the SQLite database
func OpenDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL mode for better concurrency between game loop and API reads
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, err
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates tables if they don't exist
func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		username TEXT NOT NULL UNIQUE,
		pass_hash TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS stats (
		user_id TEXT PRIMARY KEY REFERENCES users(id),
		total_score INTEGER NOT NULL DEFAULT 0,
		games_played INTEGER NOT NULL DEFAULT 0,
		high_score INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS game_results (
		id TEXT PRIMARY KEY,
		room_id TEXT NOT NULL,
		wave_reached INTEGER NOT NULL DEFAULT 1,
		detail BLOB NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		type TEXT NOT NULL,
		user_id TEXT NOT NULL DEFAULT '',
		room_id TEXT NOT NULL DEFAULT '',
		data TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_game_results_room ON game_results(room_id);
	CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
	`
	_, err := db.conn.Exec(schema)
	if err != nil {
		logger.Errorw("db migration failed", "err", err)
	}
	return err
}

// CreateUser creates a new user account with an empty stats row and
// returns the generated user id.
func (db *DB) CreateUser(email, username, passHash string) (string, error) {
	id := uuid.NewString()
	if _, err := db.conn.Exec(
		"INSERT INTO users (id, email, username, pass_hash) VALUES (?, ?, ?, ?)",
		id, email, username, passHash,
	); err != nil {
		return "", err
	}
	_, err := db.conn.Exec("INSERT INTO stats (user_id) VALUES (?)", id)
	return id, err
}

// GetUserByEmail returns a user by email, or nil when absent
func (db *DB) GetUserByEmail(email string) (*UserRow, error) {
	row := db.conn.QueryRow(
		"SELECT id, email, username, pass_hash, created_at FROM users WHERE email = ?",
		email,
	)
	u := &UserRow{}
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PassHash, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return u, err
}

// GetUserByID returns a user by id, or nil when absent
func (db *DB) GetUserByID(id string) (*UserRow, error) {
	row := db.conn.QueryRow(
		"SELECT id, email, username, pass_hash, created_at FROM users WHERE id = ?",
		id,
	)
	u := &UserRow{}
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PassHash, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return u, err
}

// EmailExists checks if an email is already registered
func (db *DB) EmailExists(email string) (bool, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM users WHERE email = ?", email).Scan(&count)
	return count > 0, err
}

// UsernameExists checks if a username is taken
func (db *DB) UsernameExists(username string) (bool, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM users WHERE username = ?", username).Scan(&count)
	return count > 0, err
}

// GetStats returns a user's aggregate scores, or nil when absent
func (db *DB) GetStats(userID string) (*StatsRow, error) {
	row := db.conn.QueryRow(
		"SELECT user_id, total_score, games_played, high_score FROM stats WHERE user_id = ?",
		userID,
	)
	s := &StatsRow{}
	err := row.Scan(&s.UserID, &s.TotalScore, &s.GamesPlayed, &s.HighScore)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return s, err
}

// PersistRoomScores folds a drained room ledger into per-user aggregates:
// total score, games played and high score. Unknown user ids are skipped.
func (db *DB) PersistRoomScores(scores map[string]int64) error {
	for userID, score := range scores {
		user, err := db.GetUserByID(userID)
		if err != nil {
			return err
		}
		if user == nil {
			logger.Warnw("cannot persist score for unknown user", "user", userID)
			continue
		}
		if _, err := db.conn.Exec(`
			INSERT INTO stats (user_id, total_score, games_played, high_score)
			VALUES (?, ?, 1, ?)
			ON CONFLICT(user_id) DO UPDATE SET
				total_score = total_score + excluded.total_score,
				games_played = games_played + 1,
				high_score = MAX(high_score, excluded.high_score)`,
			userID, score, score,
		); err != nil {
			return err
		}
	}
	return nil
}

// SaveGameResult records one finished room with its msgpack detail blob
func (db *DB) SaveGameResult(roomID string, wave int, scores map[string]int64) error {
	blob, err := msgpack.Marshal(GameResultDetail{Wave: wave, Scores: scores})
	if err != nil {
		return err
	}
	_, err = db.conn.Exec(
		"INSERT INTO game_results (id, room_id, wave_reached, detail) VALUES (?, ?, ?, ?)",
		uuid.NewString(), roomID, wave, blob,
	)
	return err
}

// GetGameResults returns the recorded results for a room, newest first
func (db *DB) GetGameResults(roomID string, limit int) ([]GameResultRow, error) {
	rows, err := db.conn.Query(`
		SELECT id, room_id, detail, created_at FROM game_results
		WHERE room_id = ? ORDER BY created_at DESC LIMIT ?`,
		roomID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []GameResultRow
	for rows.Next() {
		var r GameResultRow
		var blob []byte
		if err := rows.Scan(&r.ID, &r.RoomID, &blob, &r.CreatedAt); err != nil {
			return nil, err
		}
		if err := msgpack.Unmarshal(blob, &r.Detail); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// Leaderboard returns the top players ordered by high score
func (db *DB) Leaderboard(limit int) ([]LeaderboardRow, error) {
	rows, err := db.conn.Query(`
		SELECT u.username, s.high_score
		FROM stats s JOIN users u ON u.id = s.user_id
		ORDER BY s.high_score DESC, s.total_score DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []LeaderboardRow
	for rows.Next() {
		var e LeaderboardRow
		if err := rows.Scan(&e.Player, &e.Score); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// GetSetting returns a settings value, or "" when absent
func (db *DB) GetSetting(key string) string {
	var value string
	err := db.conn.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err != nil {
		return ""
	}
	return value
}

// SetSetting stores a settings value
func (db *DB) SetSetting(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	return err
}

// InsertEvents writes a batch of analytics events in one transaction
func (db *DB) InsertEvents(batch []AnalyticsEvent) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(
		"INSERT INTO events (type, user_id, room_id, data, created_at) VALUES (?, ?, ?, ?, ?)",
	)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, evt := range batch {
		if _, err := stmt.Exec(evt.Type, evt.UserID, evt.RoomID, evt.Data, evt.Timestamp); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}
