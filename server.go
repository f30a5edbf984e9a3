package main

import (
	"encoding/json"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		return strings.Contains(origin, r.Host)
	},
}

// uuidPathRe matches SPA deep links of the form /<room-uuid>.
var uuidPathRe = regexp.MustCompile(`^/[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// SetupRoutes wires the websocket endpoint, the JSON API and optionally
// the static frontend into a mux.
func SetupRoutes(hub *Hub, clientDir string) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		serveWS(hub, w, r)
	})
	mux.HandleFunc("/api/register", func(w http.ResponseWriter, r *http.Request) {
		handleRegister(hub, w, r)
	})
	mux.HandleFunc("/api/login", func(w http.ResponseWriter, r *http.Request) {
		handleLogin(hub, w, r)
	})
	mux.HandleFunc("/api/leaderboard", func(w http.ResponseWriter, r *http.Request) {
		handleLeaderboard(hub, w, r)
	})
	mux.HandleFunc("/api/results", func(w http.ResponseWriter, r *http.Request) {
		handleResults(hub, w, r)
	})
	mux.HandleFunc("/admin/stats", func(w http.ResponseWriter, r *http.Request) {
		handleAdminStats(hub, w, r)
	})
	mux.HandleFunc("/qr", handleJoinQR)

	if clientDir != "" {
		fs := http.FileServer(http.Dir(clientDir))
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			// Room deep links load the SPA shell, which reads the room
			// id back out of the path.
			if r.URL.Path == "/" || uuidPathRe.MatchString(r.URL.Path) {
				http.ServeFile(w, r, filepath.Join(clientDir, "index.html"))
				return
			}
			if _, err := os.Stat(filepath.Join(clientDir, filepath.Clean(r.URL.Path))); err != nil {
				http.NotFound(w, r)
				return
			}
			fs.ServeHTTP(w, r)
		})
	}
	return mux
}

// serveWS authenticates the token, applies connection limits, upgrades
// and seats the client in a room before starting its pumps.
func serveWS(hub *Hub, w http.ResponseWriter, r *http.Request) {
	userID, username, err := hub.auth.ValidateToken(r.URL.Query().Get("token"))
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	ip := extractIP(r)
	if !hub.CanAccept(ip) {
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warnw("ws upgrade failed", "ip", ip, "err", err)
		return
	}
	hub.TrackConnect(ip)

	client := NewClient(hub, conn, ip, userID, username)
	if !hub.Place(client, r.URL.Query().Get("room")) {
		client.SendJSON(Envelope{Type: MsgError, Payload: ErrorPayload{Msg: "no open room"}})
		hub.TrackDisconnect(ip)
		conn.Close()
		return
	}

	hub.register <- client
	go client.WritePump()
	go client.ReadPump()
}

func handleRegister(hub *Hub, w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	id, token, err := hub.auth.Register(req.Email, req.Username, req.Password)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, TokenResponse{Token: token, UserID: id, Username: strings.TrimSpace(req.Username)})
}

func handleLogin(hub *Hub, w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	id, token, err := hub.auth.Login(req.Email, req.Password, extractIP(r))
	if err != nil {
		writeJSONError(w, http.StatusUnauthorized, err.Error())
		return
	}
	user, err := hub.db.GetUserByID(id)
	if err != nil || user == nil {
		writeJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, TokenResponse{Token: token, UserID: id, Username: user.Username})
}

func handleLeaderboard(hub *Hub, w http.ResponseWriter, r *http.Request) {
	if hub.db == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "no database")
		return
	}
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	rows, err := hub.db.Leaderboard(limit)
	if err != nil {
		logger.Errorw("leaderboard query failed", "err", err)
		writeJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if rows == nil {
		rows = []LeaderboardRow{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func handleResults(hub *Hub, w http.ResponseWriter, r *http.Request) {
	if hub.db == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "no database")
		return
	}
	roomID := r.URL.Query().Get("room")
	if _, err := uuid.Parse(roomID); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid room id")
		return
	}
	results, err := hub.db.GetGameResults(roomID, 20)
	if err != nil {
		logger.Errorw("results query failed", "room", roomID, "err", err)
		writeJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}

	type resultOut struct {
		RoomID    string           `json:"roomId"`
		Wave      int              `json:"wave"`
		Scores    map[string]int64 `json:"scores"`
		CreatedAt string           `json:"createdAt"`
	}
	out := make([]resultOut, 0, len(results))
	for _, res := range results {
		out = append(out, resultOut{
			RoomID:    res.RoomID,
			Wave:      res.Detail.Wave,
			Scores:    res.Detail.Scores,
			CreatedAt: res.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func handleAdminStats(hub *Hub, w http.ResponseWriter, r *http.Request) {
	stats := hub.metrics.Snapshot()
	stats["rooms"] = hub.scheduler.RoomCount()
	stats["clients"] = hub.ClientCount()
	stats["connections"] = hub.TotalConns()
	writeJSON(w, http.StatusOK, stats)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// extractIP returns the client address, preferring X-Forwarded-For when
// running behind a proxy.
func extractIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
