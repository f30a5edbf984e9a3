package main

import (
	"encoding/json"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"
)

// RoomStatus is the room lifecycle state.
type RoomStatus int

const (
	RoomWaiting RoomStatus = iota // accepting joins
	RoomActive                    // both seats taken
	RoomClosed                    // terminal, never ticked again
)

// MaxPlayers is the fixed seat count per room.
const MaxPlayers = 2

// Conn is the transport handle a room pushes snapshots through. Send must
// never block; a returned error means the connection is gone and the room
// drops it.
type Conn interface {
	Send(data []byte) error
}

// Room owns the full authoritative state of one game session: players,
// the enemy swarm, projectiles, shields and the bonus saucer. A single
// mutex serializes the tick driver against transport-driven calls; rooms
// never share state with each other.
type Room struct {
	ID string

	mu      sync.Mutex
	status  RoomStatus
	players map[string]*Player
	order   []string        // join order, keeps collision passes deterministic
	conns   map[Conn]string // connection -> player id

	enemies      []*Enemy
	enemyBullets []*EnemyBullet
	shields      []*ShieldCell
	saucer       *Saucer

	wave       int
	enemyDir   float64
	enemySpeed float64
	fireBase   float64 // base enemy fire interval for the current wave
	fireAccum  float64

	saucerAccum float64
	saucerNext  float64

	gameOver   bool
	lastActive time.Time

	ledger        map[string]int64 // final scores, survives player removal
	ledgerDrained bool

	rng *rand.Rand
}

// NewRoom creates a room with a fresh enemy grid and shield layout.
func NewRoom(id string) *Room {
	r := &Room{
		ID:           id,
		status:       RoomWaiting,
		players:      make(map[string]*Player),
		conns:        make(map[Conn]string),
		enemies:      NewEnemyGrid(),
		enemyBullets: make([]*EnemyBullet, 0),
		shields:      NewShieldBunkers(),
		wave:         1,
		enemyDir:     1,
		ledger:       make(map[string]int64),
		lastActive:   time.Now(),
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	r.retune()
	r.saucerNext = 20 + r.rng.Float64()*20
	return r
}

// retune recomputes the difficulty-scaled swarm speed and fire interval
// for the current wave.
func (r *Room) retune() {
	r.enemySpeed = math.Min(120.0, 18.0+float64(r.wave-1)*3.5)
	r.fireBase = math.Max(0.4, 2.5-float64(r.wave-1)*0.12)
}

// Connect registers a connection and seats its player. Returns false,
// changing nothing, if the room is closed or already full.
func (r *Room) Connect(playerID, name string, conn Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status == RoomClosed || len(r.players) >= MaxPlayers {
		return false
	}
	r.conns[conn] = playerID
	if _, ok := r.players[playerID]; !ok {
		r.players[playerID] = NewPlayer(playerID, name, len(r.players))
		r.order = append(r.order, playerID)
	}
	if len(r.players) == MaxPlayers {
		r.status = RoomActive
	}
	r.lastActive = time.Now()
	return true
}

// Disconnect removes a connection and its player, snapshotting the final
// score into the ledger. Closes the room when the last seat empties.
// Returns the removed player id, if any. Safe to call multiple times.
func (r *Room) Disconnect(conn Conn) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropConnLocked(conn)
}

func (r *Room) dropConnLocked(conn Conn) (string, bool) {
	playerID, known := r.conns[conn]
	if !known {
		return "", false
	}
	delete(r.conns, conn)
	removed := false
	if p, ok := r.players[playerID]; ok {
		r.ledger[playerID] = p.Score
		delete(r.players, playerID)
		for i, id := range r.order {
			if id == playerID {
				r.order = append(r.order[:i], r.order[i+1:]...)
				break
			}
		}
		removed = true
	}
	r.lastActive = time.Now()
	if len(r.players) == 0 && len(r.conns) == 0 {
		r.closeLocked()
	}
	if !removed {
		return "", false
	}
	return playerID, true
}

// Close transitions the room to CLOSED. Idempotent; a closed room is
// never ticked or mutated again.
func (r *Room) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closeLocked()
}

func (r *Room) closeLocked() {
	if r.status == RoomClosed {
		return
	}
	r.status = RoomClosed
	r.players = make(map[string]*Player)
	r.order = nil
	r.conns = make(map[Conn]string)
	r.enemies = nil
	r.enemyBullets = nil
	r.shields = nil
	r.saucer = nil
}

// ApplyInput records a player's movement intent. A fire press is sticky
// and consumed on the next tick, decoupling network arrival from the
// fixed simulation step. Ignored for closed rooms, finished games and
// unknown players.
func (r *Room) ApplyInput(playerID string, left, right, fire bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status == RoomClosed || r.gameOver {
		return
	}
	p, ok := r.players[playerID]
	if !ok {
		return
	}
	p.MoveLeft = left
	p.MoveRight = right
	if fire {
		p.FireWanted = true
	}
	r.lastActive = time.Now()
}

// Update advances the simulation by dt seconds and broadcasts the
// resulting snapshot. Once the game is over only the frozen state is
// re-broadcast.
func (r *Room) Update(dt float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status == RoomClosed {
		return
	}
	if r.gameOver {
		r.broadcastLocked()
		return
	}

	for _, id := range r.order {
		r.players[id].Update(dt)
	}
	r.updateEnemies(dt)
	r.updateEnemyFire(dt)
	r.updateEnemyBullets(dt)
	r.updateSaucer(dt)
	r.resolveCollisions()
	r.checkGameOver()

	r.broadcastLocked()
}

func (r *Room) aliveEnemies() []*Enemy {
	alive := make([]*Enemy, 0, len(r.enemies))
	for _, e := range r.enemies {
		if e.Alive {
			alive = append(alive, e)
		}
	}
	return alive
}

// updateEnemies moves the swarm: horizontal drift, step-down at the side
// margins, wave respawn when the grid is cleared, and the instant loss
// when the swarm reaches the ground line.
func (r *Room) updateEnemies(dt float64) {
	alive := r.aliveEnemies()
	if len(alive) == 0 {
		r.wave++
		r.retune()
		r.enemies = NewEnemyGrid()
		r.enemyBullets = r.enemyBullets[:0]
		r.saucer = nil
		r.saucerNext = 15 + r.rng.Float64()*25
		return
	}

	minX := alive[0].X
	maxX := alive[0].X + alive[0].W
	for _, e := range alive[1:] {
		minX = math.Min(minX, e.X)
		maxX = math.Max(maxX, e.X+e.W)
	}

	stepDown := (r.enemyDir > 0 && maxX+r.enemySpeed*dt >= FieldWidth-EdgeMargin) ||
		(r.enemyDir < 0 && minX-r.enemySpeed*dt <= EdgeMargin)
	if stepDown {
		for _, e := range alive {
			e.Y += EnemyStepDown
		}
		r.enemyDir = -r.enemyDir
	} else {
		for _, e := range alive {
			e.X += r.enemyDir * r.enemySpeed * dt
		}
	}

	for _, e := range alive {
		if e.Y+e.H >= GroundY {
			// Swarm reached the player line: instant loss for the room.
			for _, id := range r.order {
				r.players[id].Lives = 0
			}
			r.gameOver = true
			break
		}
	}
}

// updateEnemyFire accumulates time and, past the difficulty-scaled
// interval, fires one bullet from the bottom-most enemy of a randomly
// chosen occupied column.
func (r *Room) updateEnemyFire(dt float64) {
	r.fireAccum += dt
	interval := math.Max(0.4, r.fireBase/(1+float64(r.wave-1)*0.08))
	if r.fireAccum < interval {
		return
	}
	r.fireAccum = 0
	shooter := r.pickShooter()
	if shooter == nil {
		return
	}
	r.enemyBullets = append(r.enemyBullets, &EnemyBullet{
		Rect: Rect{
			X: shooter.X + shooter.W/2 - EnemyBulletW/2,
			Y: shooter.Y + shooter.H,
			W: EnemyBulletW,
			H: EnemyBulletH,
		},
		VY: EnemyBulletVY,
	})
}

// pickShooter buckets alive enemies by nearest column index derived from
// their drifting x position and returns the bottom-most enemy of one
// randomly chosen occupied column.
func (r *Room) pickShooter() *Enemy {
	bottom := make(map[int]*Enemy)
	for _, e := range r.enemies {
		if !e.Alive {
			continue
		}
		col := int(math.Round((e.X - EnemyOriginX) / EnemySpacingX))
		if cur, ok := bottom[col]; !ok || e.Y > cur.Y {
			bottom[col] = e
		}
	}
	if len(bottom) == 0 {
		return nil
	}
	cols := make([]int, 0, len(bottom))
	for c := range bottom {
		cols = append(cols, c)
	}
	sort.Ints(cols)
	return bottom[cols[r.rng.Intn(len(cols))]]
}

func (r *Room) updateEnemyBullets(dt float64) {
	kept := r.enemyBullets[:0]
	for _, b := range r.enemyBullets {
		b.Y += b.VY * dt
		if b.Y <= FieldHeight+50 {
			kept = append(kept, b)
		}
	}
	r.enemyBullets = kept
}

// updateSaucer spawns the bonus saucer when its randomized timer elapses
// and drives the active one across the field.
func (r *Room) updateSaucer(dt float64) {
	r.saucerAccum += dt
	if r.saucer == nil {
		if r.saucerAccum >= r.saucerNext {
			r.saucer = NewSaucer(r.rng.Intn(2) == 0)
			r.saucerAccum = 0
			r.saucerNext = 25 + r.rng.Float64()*30
		}
		return
	}
	r.saucer.X += r.saucer.VX * dt
	if r.saucer.X < -200 || r.saucer.X > FieldWidth+200 {
		r.saucer = nil
		r.saucerAccum = 0
	}
}

// resolveCollisions runs the fixed-precedence collision pass. Player
// shots test enemies first, then the saucer, then shields; enemy bullets
// test players first, then shields. Within a category the first entity in
// stored order wins, and each projectile is consumed by at most one hit.
func (r *Room) resolveCollisions() {
	for _, id := range r.order {
		p := r.players[id]
		if p.Shot == nil {
			continue
		}
		if e := r.firstShotEnemy(p.Shot.Rect); e != nil {
			e.Alive = false
			p.Shot = nil
			p.Score += 10 * int64(max(1, r.wave))
			continue
		}
		if r.saucer != nil && Overlap(p.Shot.Rect, r.saucer.Rect) {
			p.Score += int64(r.saucer.Value)
			p.Shot = nil
			r.saucer = nil
			continue
		}
		for _, cell := range r.shields {
			if cell.HP <= 0 {
				continue
			}
			if Overlap(p.Shot.Rect, cell.Rect) {
				cell.HP--
				p.Shot = nil
				break
			}
		}
	}

	kept := r.enemyBullets[:0]
	for _, b := range r.enemyBullets {
		consumed := false
		for _, id := range r.order {
			p := r.players[id]
			if Overlap(b.Rect, p.Rect) {
				p.HitByBullet()
				consumed = true
				break
			}
		}
		if !consumed {
			for _, cell := range r.shields {
				if cell.HP <= 0 {
					continue
				}
				if Overlap(b.Rect, cell.Rect) {
					cell.HP--
					consumed = true
					break
				}
			}
		}
		if !consumed {
			kept = append(kept, b)
		}
	}
	r.enemyBullets = kept
}

func (r *Room) firstShotEnemy(shot Rect) *Enemy {
	for _, e := range r.enemies {
		if e.Alive && Overlap(shot, e.Rect) {
			return e
		}
	}
	return nil
}

func (r *Room) checkGameOver() {
	if len(r.players) == 0 {
		return
	}
	for _, p := range r.players {
		if p.Lives > 0 {
			return
		}
	}
	r.gameOver = true
}

// broadcastLocked serializes the snapshot once and pushes it to every
// connection. A failed send drops that connection (and its player)
// without failing the tick.
func (r *Room) broadcastLocked() {
	if len(r.conns) == 0 {
		return
	}
	data, err := json.Marshal(Envelope{Type: MsgState, Payload: r.snapshotLocked()})
	if err != nil {
		logger.Errorw("snapshot marshal failed", "room", r.ID, "err", err)
		return
	}
	var dead []Conn
	for conn := range r.conns {
		if err := conn.Send(data); err != nil {
			dead = append(dead, conn)
		}
	}
	for _, conn := range dead {
		if id, ok := r.dropConnLocked(conn); ok {
			logger.Infow("dropped dead connection", "room", r.ID, "player", id)
		}
	}
}

// Snapshot returns the current serializable state. It also refreshes the
// score ledger so final scores survive a later disconnect.
func (r *Room) Snapshot() StatePayload {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Room) snapshotLocked() StatePayload {
	players := make([]PlayerSnap, 0, len(r.players))
	for _, id := range r.order {
		p := r.players[id]
		players = append(players, PlayerSnap{
			ID:    p.ID,
			Name:  p.Name,
			X:     p.X,
			Y:     p.Y,
			W:     p.W,
			H:     p.H,
			Score: p.Score,
			Lives: p.Lives,
			Shot:  p.Shot,
		})
		r.ledger[id] = p.Score
	}
	return StatePayload{
		Players:      players,
		Enemies:      r.enemies,
		EnemyBullets: r.enemyBullets,
		Shields:      r.shields,
		Bonus:        r.saucer,
		Wave:         r.wave,
		GameOver:     r.gameOver,
	}
}

// DrainScores hands out the final score ledger exactly once after the
// room closed. Every later call, and any call before the CLOSED
// transition, returns nil.
func (r *Room) DrainScores() map[string]int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status != RoomClosed || r.ledgerDrained {
		return nil
	}
	r.ledgerDrained = true
	out := make(map[string]int64, len(r.ledger))
	for id, score := range r.ledger {
		out[id] = score
	}
	return out
}

// Status returns the lifecycle state.
func (r *Room) Status() RoomStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Closed reports whether the room reached its terminal state.
func (r *Room) Closed() bool {
	return r.Status() == RoomClosed
}

// Full reports whether both seats are taken.
func (r *Room) Full() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players) >= MaxPlayers
}

// Empty reports whether the room has neither players nor connections.
func (r *Room) Empty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players) == 0 && len(r.conns) == 0
}

// PlayerCount returns the number of seated players.
func (r *Room) PlayerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}

// Wave returns the current wave number. It survives the room closing, so
// results can still record the wave reached.
func (r *Room) Wave() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.wave
}

// GameOver reports whether the simulation is frozen.
func (r *Room) GameOver() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gameOver
}

// LastActive returns the time of the last join, leave or input.
func (r *Room) LastActive() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastActive
}
