package main

import "testing"

func TestPlayerSpawnSlots(t *testing.T) {
	p0 := NewPlayer("a", "alice", 0)
	p1 := NewPlayer("b", "bob", 1)
	if p0.X != FieldWidth/2-PlayerW/2 {
		t.Errorf("slot 0 x = %v, want field center %v", p0.X, FieldWidth/2-PlayerW/2)
	}
	if p0.X == p1.X {
		t.Error("both seats spawned at the same x")
	}
	if p0.Y != PlayerY || p1.Y != PlayerY {
		t.Errorf("players at y=%v/%v, want %v", p0.Y, p1.Y, PlayerY)
	}
	if p0.Lives != PlayerLives {
		t.Errorf("lives = %d, want %d", p0.Lives, PlayerLives)
	}
}

func TestPlayerMovementClamped(t *testing.T) {
	p := NewPlayer("a", "alice", 0)
	p.MoveLeft = true
	for i := 0; i < 1000; i++ {
		p.Update(0.016)
	}
	if p.X != EdgeMargin {
		t.Errorf("player x = %v, want clamped at %v", p.X, EdgeMargin)
	}

	p.MoveLeft = false
	p.MoveRight = true
	for i := 0; i < 1000; i++ {
		p.Update(0.016)
	}
	if p.X != FieldWidth-p.W-EdgeMargin {
		t.Errorf("player x = %v, want clamped at %v", p.X, FieldWidth-p.W-EdgeMargin)
	}
}

func TestPlayerFireCooldown(t *testing.T) {
	p := NewPlayer("a", "alice", 0)
	p.FireWanted = true
	p.Update(0.016)
	if p.Shot == nil {
		t.Fatal("expected a shot after the first fire request")
	}
	if p.FireWanted {
		t.Error("fire request must be consumed by firing")
	}
	first := p.Shot

	// A second request is blocked while the shot lives and the cooldown runs.
	p.FireWanted = true
	p.Update(0.016)
	if p.Shot != first {
		t.Error("shot was replaced while still in flight")
	}

	// Let the shot leave the field, then wait out the cooldown.
	for i := 0; i < 200 && p.Shot != nil; i++ {
		p.Update(0.016)
	}
	if p.Shot == nil && p.CooldownT <= 0 {
		p.FireWanted = true
		p.Update(0.016)
		if p.Shot == nil {
			t.Error("expected a new shot once the cooldown elapsed")
		}
	}
}

func TestPlayerShotLeavesField(t *testing.T) {
	p := NewPlayer("a", "alice", 0)
	p.FireWanted = true
	for i := 0; i < 200; i++ {
		p.Update(0.016)
	}
	if p.Shot != nil {
		t.Errorf("shot still alive at y=%v after leaving the field", p.Shot.Y)
	}
}

func TestPlayerHitByBullet(t *testing.T) {
	p := NewPlayer("a", "alice", 0)
	p.X = EdgeMargin

	p.HitByBullet()
	if p.Lives != PlayerLives-1 {
		t.Errorf("lives = %d, want %d", p.Lives, PlayerLives-1)
	}
	if p.X != FieldWidth/2-p.W/2 {
		t.Errorf("player respawned at x=%v, want field center", p.X)
	}

	p.Lives = 0
	p.HitByBullet()
	if p.Lives != 0 {
		t.Errorf("lives = %d, must never go negative", p.Lives)
	}
}
