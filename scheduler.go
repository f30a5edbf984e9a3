package main

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// TickInterval is the global fixed-rate room tick.
	TickInterval = 16 * time.Millisecond
	// TickDT is the simulation step passed to every room per tick.
	TickDT = 0.016
)

// RoomIdleTimeout bounds memory if a teardown signal was missed: rooms
// that are empty and idle longer than this are reaped. Variable so tests
// can shorten it.
var RoomIdleTimeout = 30 * time.Minute

// Scheduler owns the set of live rooms and drives the global tick. Rooms
// are mutually independent, so the registry lock is only held for
// bookkeeping, never across room updates.
type Scheduler struct {
	mu      sync.Mutex
	rooms   map[string]*Room
	stop    chan struct{}
	once    sync.Once
	onClose  func(*Room) // invoked outside the registry lock for reaped rooms
	onCreate func(*Room)
	metrics  *Metrics
}

// NewScheduler creates an empty scheduler.
func NewScheduler(metrics *Metrics) *Scheduler {
	return &Scheduler{
		rooms:   make(map[string]*Room),
		stop:    make(chan struct{}),
		metrics: metrics,
	}
}

// OnClose registers a hook called for every room the scheduler closes
// itself (idle reaping), so the caller can drain its score ledger.
func (s *Scheduler) OnClose(fn func(*Room)) {
	s.onClose = fn
}

// OnCreate registers a hook called whenever the scheduler registers a
// fresh room. The hook must not block.
func (s *Scheduler) OnCreate(fn func(*Room)) {
	s.onCreate = fn
}

// Run drives the fixed-rate tick until Stop is called.
func (s *Scheduler) Run() {
	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.Tick(TickDT)
		case <-s.stop:
			return
		}
	}
}

// Stop terminates the tick loop.
func (s *Scheduler) Stop() {
	s.once.Do(func() { close(s.stop) })
}

// Tick removes rooms that closed since the last tick, reaps idle empty
// rooms, then updates every remaining room.
func (s *Scheduler) Tick(dt float64) {
	start := time.Now()

	s.mu.Lock()
	live := make([]*Room, 0, len(s.rooms))
	var reaped []*Room
	for id, r := range s.rooms {
		if r.Closed() {
			delete(s.rooms, id)
			continue
		}
		if r.Empty() && time.Since(r.LastActive()) > RoomIdleTimeout {
			delete(s.rooms, id)
			reaped = append(reaped, r)
			continue
		}
		live = append(live, r)
	}
	s.mu.Unlock()

	for _, r := range reaped {
		logger.Infow("reaped idle room", "room", r.ID)
		r.Close()
		if s.onClose != nil {
			s.onClose(r)
		}
	}
	for _, r := range live {
		r.Update(dt)
	}

	if s.metrics != nil {
		s.metrics.AddTick(time.Since(start).Nanoseconds())
	}
}

// FindAvailableRoom returns the first open room, creating and registering
// a fresh one if every room is full or closed.
func (s *Scheduler) FindAvailableRoom() *Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rooms {
		if !r.Closed() && !r.Full() {
			return r
		}
	}
	return s.registerLocked(NewRoom(uuid.NewString()))
}

// GetOrCreate returns the room with the given identity, creating and
// registering it if absent. Used to reconnect a client to a specific,
// externally known room.
func (s *Scheduler) GetOrCreate(roomID string) *Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.rooms[roomID]; ok {
		return r
	}
	return s.registerLocked(NewRoom(roomID))
}

// GetRoom returns the registered room with the given identity, or nil.
func (s *Scheduler) GetRoom(roomID string) *Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rooms[roomID]
}

func (s *Scheduler) registerLocked(r *Room) *Room {
	s.rooms[r.ID] = r
	if s.onCreate != nil {
		s.onCreate(r)
	}
	return r
}

// RoomCount returns the number of registered rooms.
func (s *Scheduler) RoomCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rooms)
}
