package main

const (
	PlayerW      = 32.0
	PlayerH      = 16.0
	PlayerY      = 560.0
	PlayerSpeed  = 180.0 // pixels/s
	PlayerLives  = 3
	PlayerSlotDX = 48.0 // horizontal offset between the two seats

	FireCooldown = 0.5 // seconds between shots
	ShotW        = 2.0
	ShotH        = 8.0
	ShotVY       = -360.0
)

// Player is one seat in a room. All fields are guarded by the owning
// room's lock; the Player itself has no synchronization.
type Player struct {
	ID   string
	Name string
	Rect
	Speed float64
	Score int64
	Lives int

	// Intent flags, set by ApplyInput and consumed on the next tick.
	MoveLeft   bool
	MoveRight  bool
	FireWanted bool

	CooldownT float64 // seconds until the next shot is allowed
	Shot      *Shot
}

// NewPlayer seats a player at the given slot. Slots are offset so two
// players never spawn overlapping.
func NewPlayer(id, name string, slot int) *Player {
	return &Player{
		ID:   id,
		Name: name,
		Rect: Rect{
			X: FieldWidth/2 - PlayerW/2 + float64(slot)*PlayerSlotDX,
			Y: PlayerY,
			W: PlayerW,
			H: PlayerH,
		},
		Speed: PlayerSpeed,
		Lives: PlayerLives,
	}
}

// Update consumes the intent flags for one tick: horizontal motion with
// bounds clamping, firing, and advancing the live shot.
func (p *Player) Update(dt float64) {
	var vx float64
	if p.MoveLeft {
		vx -= p.Speed
	}
	if p.MoveRight {
		vx += p.Speed
	}
	p.X = Clamp(p.X+vx*dt, EdgeMargin, FieldWidth-p.W-EdgeMargin)

	if p.CooldownT > 0 {
		p.CooldownT -= dt
	}
	// A fire request stays sticky until both the cooldown has elapsed and
	// the previous shot is gone.
	if p.FireWanted && p.CooldownT <= 0 && p.Shot == nil {
		p.Shot = &Shot{
			Rect: Rect{X: p.X + p.W/2 - ShotW/2, Y: p.Y - ShotH, W: ShotW, H: ShotH},
			VY:   ShotVY,
		}
		p.CooldownT = FireCooldown
		p.FireWanted = false
	}

	if p.Shot != nil {
		p.Shot.Y += p.Shot.VY * dt
		if p.Shot.Y < -10 {
			p.Shot = nil
		}
	}
}

// HitByBullet applies the soft death penalty: one life lost and a respawn
// at the field center. Lives never go below zero.
func (p *Player) HitByBullet() {
	if p.Lives > 0 {
		p.Lives--
	}
	p.X = FieldWidth/2 - p.W/2
}
