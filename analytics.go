package main

import (
	"sync"
	"time"
)

// Event types for room lifecycle tracking
const (
	EvtRoomCreated = "room_created"
	EvtRoomClosed  = "room_closed"
	EvtPlayerJoin  = "player_join"
	EvtPlayerLeave = "player_leave"
	EvtGameOver    = "game_over"
)

// AnalyticsEvent represents a single trackable event
type AnalyticsEvent struct {
	Type      string
	UserID    string
	RoomID    string
	Data      string // JSON metadata (optional)
	Timestamp time.Time
}

// Analytics handles event tracking with batched background writes so the
// game loop never waits on the database.
type Analytics struct {
	db     *DB
	events chan AnalyticsEvent
	stop   chan struct{}
	wg     sync.WaitGroup
}

// NewAnalytics creates and starts the analytics background writer
func NewAnalytics(db *DB) *Analytics {
	a := &Analytics{
		db:     db,
		events: make(chan AnalyticsEvent, 1024),
		stop:   make(chan struct{}),
	}
	a.wg.Add(1)
	go a.writer()
	return a
}

// Track enqueues an event for async persistence (non-blocking)
func (a *Analytics) Track(evtType, userID, roomID, data string) {
	select {
	case a.events <- AnalyticsEvent{
		Type:      evtType,
		UserID:    userID,
		RoomID:    roomID,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}:
	default:
		// Channel full — drop event rather than blocking the caller
	}
}

// Stop gracefully shuts down the analytics writer
func (a *Analytics) Stop() {
	close(a.stop)
	a.wg.Wait()
}

// writer is the background goroutine that batches and writes events to DB
func (a *Analytics) writer() {
	defer a.wg.Done()

	batch := make([]AnalyticsEvent, 0, 64)
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := a.db.InsertEvents(batch); err != nil {
			logger.Warnw("analytics flush failed", "events", len(batch), "err", err)
		}
		batch = batch[:0]
	}

	for {
		select {
		case evt := <-a.events:
			batch = append(batch, evt)
			if len(batch) >= 50 {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-a.stop:
			// Drain anything still queued before exiting
			for {
				select {
				case evt := <-a.events:
					batch = append(batch, evt)
				default:
					flush()
					return
				}
			}
		}
	}
}
