package main

import "testing"

func TestOverlap(t *testing.T) {
	a := Rect{X: 0, Y: 0, W: 10, H: 10}

	if !Overlap(a, Rect{X: 5, Y: 5, W: 10, H: 10}) {
		t.Error("expected overlapping rects to collide")
	}
	if Overlap(a, Rect{X: 20, Y: 0, W: 10, H: 10}) {
		t.Error("expected disjoint rects not to collide")
	}
	// Touching edges are not a collision.
	if Overlap(a, Rect{X: 10, Y: 0, W: 10, H: 10}) {
		t.Error("edge-touching rects must not collide")
	}
	if Overlap(a, Rect{X: 0, Y: 10, W: 10, H: 10}) {
		t.Error("edge-touching rects must not collide")
	}
}

func TestNewEnemyGrid(t *testing.T) {
	grid := NewEnemyGrid()
	if len(grid) != EnemyRows*EnemyCols {
		t.Fatalf("grid size = %d, want %d", len(grid), EnemyRows*EnemyCols)
	}

	first := grid[0]
	if first.X != EnemyOriginX || first.Y != EnemyOriginY {
		t.Errorf("first enemy at (%v,%v), want (%v,%v)", first.X, first.Y, EnemyOriginX, EnemyOriginY)
	}

	for _, e := range grid {
		if !e.Alive {
			t.Fatalf("enemy (%d,%d) spawned dead", e.Row, e.Col)
		}
		if e.Type != e.Row {
			t.Errorf("enemy (%d,%d) type = %d, want row index", e.Row, e.Col, e.Type)
		}
		wantX := EnemyOriginX + float64(e.Col)*EnemySpacingX
		wantY := EnemyOriginY + float64(e.Row)*EnemySpacingY
		if e.X != wantX || e.Y != wantY {
			t.Errorf("enemy (%d,%d) at (%v,%v), want (%v,%v)", e.Row, e.Col, e.X, e.Y, wantX, wantY)
		}
	}
}

func TestNewShieldBunkers(t *testing.T) {
	cells := NewShieldBunkers()
	want := ShieldBunkers * ShieldCellsWide * ShieldCellsHigh
	if len(cells) != want {
		t.Fatalf("shield cells = %d, want %d", len(cells), want)
	}
	for i, c := range cells {
		if c.HP != ShieldCellHP {
			t.Fatalf("cell %d HP = %d, want %d", i, c.HP, ShieldCellHP)
		}
		if c.Y < ShieldBaseY || c.Y >= GroundY {
			t.Errorf("cell %d at y=%v, outside the bunker band", i, c.Y)
		}
	}
}

func TestNewSaucer(t *testing.T) {
	left := NewSaucer(true)
	if left.X >= 0 || left.VX != SaucerSpeed {
		t.Errorf("left saucer at x=%v vx=%v, want offscreen left moving right", left.X, left.VX)
	}
	right := NewSaucer(false)
	if right.X <= FieldWidth || right.VX != -SaucerSpeed {
		t.Errorf("right saucer at x=%v vx=%v, want offscreen right moving left", right.X, right.VX)
	}
	if left.Value != SaucerValue {
		t.Errorf("saucer value = %d, want %d", left.Value, SaucerValue)
	}
}
