package main

// Playfield and entity tuning. Positions are in playfield units with the
// origin at the top-left corner; the y axis points down.
const (
	FieldWidth  = 480.0
	FieldHeight = 600.0
	EdgeMargin  = 16.0
	GroundY     = 560.0 // enemies crossing this line end the game

	EnemyRows     = 5
	EnemyCols     = 11
	EnemyW        = 24.0
	EnemyH        = 16.0
	EnemyOriginX  = 60.0
	EnemyOriginY  = 80.0
	EnemySpacingX = 36.0
	EnemySpacingY = 28.0
	EnemyStepDown = 14.0

	EnemyBulletW  = 2.0
	EnemyBulletH  = 8.0
	EnemyBulletVY = 200.0

	SaucerW     = 48.0
	SaucerH     = 20.0
	SaucerY     = 40.0
	SaucerSpeed = 120.0
	SaucerValue = 200

	ShieldBunkers   = 3
	ShieldCellSize  = 8.0
	ShieldCellsWide = 6
	ShieldCellsHigh = 2
	ShieldMargin    = 30.0
	ShieldBaseY     = FieldHeight - 140
	ShieldCellHP    = 3
)

// Rect is the axis-aligned bounding box shared by all playfield entities.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Overlap reports whether two rectangles intersect. All four comparisons
// are strict, so rectangles that merely touch do not collide.
func Overlap(a, b Rect) bool {
	return a.X < b.X+b.W && a.X+a.W > b.X &&
		a.Y < b.Y+b.H && a.Y+a.H > b.Y
}

// Enemy is one alien in the marching grid. Row and Col record the layout
// slot it spawned in; its world position drifts with the swarm afterwards.
type Enemy struct {
	Rect
	Row   int  `json:"row"`
	Col   int  `json:"col"`
	Type  int  `json:"type"`
	Alive bool `json:"alive"`
}

// EnemyBullet falls from an enemy toward the players.
type EnemyBullet struct {
	Rect
	VY float64 `json:"vy"`
}

// Shot is a player's projectile. Each player owns at most one at a time.
type Shot struct {
	Rect
	VY float64 `json:"vy"`
}

// Saucer is the bonus target that crosses the top of the field on a
// randomized timer. At most one exists per room.
type Saucer struct {
	Rect
	VX    float64 `json:"vx"`
	Value int     `json:"value"`
}

// ShieldCell is one destructible block of a bunker. Cells with HP 0 stay
// in the slice but no longer block or absorb hits.
type ShieldCell struct {
	Rect
	HP int `json:"hp"`
}

// NewEnemyGrid builds a fresh full grid of alive enemies.
func NewEnemyGrid() []*Enemy {
	grid := make([]*Enemy, 0, EnemyRows*EnemyCols)
	for r := 0; r < EnemyRows; r++ {
		for c := 0; c < EnemyCols; c++ {
			grid = append(grid, &Enemy{
				Rect: Rect{
					X: EnemyOriginX + float64(c)*EnemySpacingX,
					Y: EnemyOriginY + float64(r)*EnemySpacingY,
					W: EnemyW,
					H: EnemyH,
				},
				Row:   r,
				Col:   c,
				Type:  r,
				Alive: true,
			})
		}
	}
	return grid
}

// NewShieldBunkers lays out the destructible bunkers, evenly spread
// across the field above the player line.
func NewShieldBunkers() []*ShieldCell {
	cells := make([]*ShieldCell, 0, ShieldBunkers*ShieldCellsWide*ShieldCellsHigh)
	usable := FieldWidth - 2*ShieldMargin
	spacing := usable / float64(ShieldBunkers-1)
	for b := 0; b < ShieldBunkers; b++ {
		baseX := ShieldMargin + float64(b)*spacing - float64(ShieldCellsWide)*ShieldCellSize/2
		for bx := 0; bx < ShieldCellsWide; bx++ {
			for by := 0; by < ShieldCellsHigh; by++ {
				cells = append(cells, &ShieldCell{
					Rect: Rect{
						X: baseX + float64(bx)*ShieldCellSize,
						Y: ShieldBaseY + float64(by)*ShieldCellSize,
						W: ShieldCellSize,
						H: ShieldCellSize,
					},
					HP: ShieldCellHP,
				})
			}
		}
	}
	return cells
}

// NewSaucer creates a bonus saucer entering just outside the chosen side.
func NewSaucer(fromLeft bool) *Saucer {
	x := -60.0
	vx := SaucerSpeed
	if !fromLeft {
		x = FieldWidth + 60
		vx = -SaucerSpeed
	}
	return &Saucer{
		Rect:  Rect{X: x, Y: SaucerY, W: SaucerW, H: SaucerH},
		VX:    vx,
		Value: SaucerValue,
	}
}
