package main

import (
	"sync"

	"github.com/google/uuid"
)

const (
	maxConnsPerIP = 5
	maxTotalConns = 1000
)

// Hub manages all connected clients, routes them into rooms and drives
// score persistence when rooms close.
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client

	// Connection limiting (mutex-protected, accessed from HTTP handlers)
	connMu     sync.Mutex
	ipConns    map[string]int
	totalConns int

	scheduler *Scheduler
	db        *DB
	auth      *Auth
	analytics *Analytics
	metrics   *Metrics
}

// NewHub creates a Hub with its scheduler, auth and analytics wired up.
// db may be nil in tests; persistence is then skipped.
func NewHub(db *DB) *Hub {
	h := &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		ipConns:    make(map[string]int),
		db:         db,
		auth:       NewAuth(db),
		metrics:    &Metrics{},
	}
	h.scheduler = NewScheduler(h.metrics)
	h.scheduler.OnClose(h.persistRoom)
	h.scheduler.OnCreate(func(r *Room) {
		h.track(EvtRoomCreated, "", r.ID)
	})
	if db != nil {
		h.analytics = NewAnalytics(db)
	}
	return h
}

// Scheduler returns the room scheduler so the caller can run and stop it.
func (h *Hub) Scheduler() *Scheduler {
	return h.scheduler
}

// Shutdown stops the scheduler and flushes pending analytics.
func (h *Hub) Shutdown() {
	h.scheduler.Stop()
	if h.analytics != nil {
		h.analytics.Stop()
	}
}

func (h *Hub) track(evtType, userID, roomID string) {
	if h.analytics != nil {
		h.analytics.Track(evtType, userID, roomID, "")
	}
}

// CanAccept reports whether a new connection from ip fits the limits.
func (h *Hub) CanAccept(ip string) bool {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	if h.totalConns >= maxTotalConns {
		return false
	}
	if h.ipConns[ip] >= maxConnsPerIP {
		return false
	}
	return true
}

// TrackConnect counts an accepted connection.
func (h *Hub) TrackConnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]++
	h.totalConns++
	h.metrics.ConnOpened()
}

// TrackDisconnect counts a dropped connection.
func (h *Hub) TrackDisconnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]--
	if h.ipConns[ip] <= 0 {
		delete(h.ipConns, ip)
	}
	h.totalConns--
	h.metrics.ConnClosed()
}

// Place seats a client in a room: the requested one if its id parses,
// otherwise any open room. A full or closed target falls back to
// auto-matching. Returns false only if no room would seat the player.
func (h *Hub) Place(c *Client, roomID string) bool {
	var room *Room
	if roomID != "" {
		if _, err := uuid.Parse(roomID); err == nil {
			room = h.scheduler.GetOrCreate(roomID)
		} else {
			logger.Infow("invalid room id, auto-matching", "room", roomID, "user", c.userID)
		}
	}
	if room == nil {
		room = h.scheduler.FindAvailableRoom()
	}
	if !room.Connect(c.userID, c.username, c) {
		room = h.scheduler.FindAvailableRoom()
		if !room.Connect(c.userID, c.username, c) {
			return false
		}
	}
	c.room = room
	h.track(EvtPlayerJoin, c.userID, room.ID)
	logger.Infow("player connected", "user", c.userID, "name", c.username, "room", room.ID)
	return true
}

// Run processes register/unregister events.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
			}
			h.mu.Unlock()
			client.closeSend()
			if client.room != nil {
				if id, ok := client.room.Disconnect(client); ok {
					h.track(EvtPlayerLeave, id, client.room.ID)
					logger.Infow("player disconnected", "user", id, "room", client.room.ID)
				}
				h.persistRoom(client.room)
			}
		}
	}
}

// persistRoom drains a closed room's score ledger and writes aggregates
// plus a game-result record. The read-once ledger makes this safe to call
// from both the disconnect path and the scheduler's reap hook.
func (h *Hub) persistRoom(room *Room) {
	if !room.Closed() {
		return
	}
	scores := room.DrainScores()
	if scores == nil {
		return
	}
	if room.GameOver() {
		h.track(EvtGameOver, "", room.ID)
	}
	h.track(EvtRoomClosed, "", room.ID)
	if h.db == nil || len(scores) == 0 {
		return
	}
	if err := h.db.PersistRoomScores(scores); err != nil {
		logger.Errorw("persisting room scores failed", "room", room.ID, "err", err)
	}
	if err := h.db.SaveGameResult(room.ID, room.Wave(), scores); err != nil {
		logger.Errorw("saving game result failed", "room", room.ID, "err", err)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// TotalConns returns the tracked connection count.
func (h *Hub) TotalConns() int {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	return h.totalConns
}
