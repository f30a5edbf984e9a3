package main

import "encoding/json"

// Client -> Server message types
const (
	MsgInput = "input"
	MsgQuit  = "quit"
)

// Server -> Client message types
const (
	MsgState = "state"
	MsgError = "error"
)

// Envelope wraps all outgoing messages with a type field
type Envelope struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// InEnvelope is used for incoming messages — json.RawMessage avoids double-unmarshal
type InEnvelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// InputPayload carries a player's movement and fire intent.
type InputPayload struct {
	Left  bool `json:"left"`
	Right bool `json:"right"`
	Fire  bool `json:"fire"`
}

// PlayerSnap is the per-player entry of a state snapshot.
type PlayerSnap struct {
	ID    string  `json:"userId"`
	Name  string  `json:"username"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	W     float64 `json:"w"`
	H     float64 `json:"h"`
	Score int64   `json:"score"`
	Lives int     `json:"lives"`
	Shot  *Shot   `json:"shot"` // null while no projectile is in flight
}

// StatePayload is the full room snapshot broadcast every tick.
type StatePayload struct {
	Players      []PlayerSnap   `json:"players"`
	Enemies      []*Enemy       `json:"enemies"`
	EnemyBullets []*EnemyBullet `json:"enemyProjectiles"`
	Shields      []*ShieldCell  `json:"shields"`
	Bonus        *Saucer        `json:"bonus"`
	Wave         int            `json:"wave"`
	GameOver     bool           `json:"gameOver"`
}

// ErrorPayload sends an error message to the client.
type ErrorPayload struct {
	Msg string `json:"msg"`
}

// RegisterRequest is the /api/register body.
type RegisterRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginRequest is the /api/login body.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse is returned by both auth endpoints.
type TokenResponse struct {
	Token    string `json:"token"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// LeaderboardRow is one line of /api/leaderboard.
type LeaderboardRow struct {
	Player string `json:"player"`
	Score  int64  `json:"score"`
}
