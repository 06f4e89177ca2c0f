package ground

import (
	gomath "math"

	"github.com/Faultbox/midgard-rig/pkg/math"
)

// WalkGrid marks which cells of a scene a character can stand on.
type WalkGrid struct {
	CellsX   int
	CellsZ   int
	CellSize float32
	Origin   math.Vec2

	walkable []bool
	heights  []float32
}

// WalkGrid samples the scene over its terrain grid. A cell is walkable
// when the terrain does not block it, its surface is no steeper than
// maxSlope degrees, and no corner sits more than maxStep above or below
// the center, sampling slightly into the neighbors. Returns nil without
// terrain.
func (s *Scene) WalkGrid(maxSlope, maxStep float32) *WalkGrid {
	if s.Terrain == nil {
		return nil
	}
	t := s.Terrain
	g := &WalkGrid{
		CellsX:   t.CellsX,
		CellsZ:   t.CellsZ,
		CellSize: t.CellSize,
		Origin:   t.Origin,
		walkable: make([]bool, t.CellsX*t.CellsZ),
		heights:  make([]float32, t.CellsX*t.CellsZ),
	}
	minNormalY := float32(gomath.Cos(float64(math.DegToRad(maxSlope))))
	// Corners reach just past the cell so both sides of a ledge are blocked.
	r := t.CellSize * 0.55

	for z := 0; z < g.CellsZ; z++ {
		for x := 0; x < g.CellsX; x++ {
			c := g.CellCenter(x, z)
			center, ok := s.Probe(c.X, c.Y)
			if !ok {
				continue
			}
			g.heights[z*g.CellsX+x] = center.Height
			if t.CellBlocked(x, z) || center.Normal.Y < minNormalY {
				continue
			}
			flat := true
			for _, d := range [4]math.Vec2{{X: -r, Y: -r}, {X: r, Y: -r}, {X: -r, Y: r}, {X: r, Y: r}} {
				p := c.Add(d)
				corner, ok := s.Probe(p.X, p.Y)
				if !ok || gomath.Abs(float64(corner.Height-center.Height)) > float64(maxStep) {
					flat = false
					break
				}
			}
			g.walkable[z*g.CellsX+x] = flat
		}
	}
	return g
}

// InBounds reports whether (x, z) is a cell of the grid.
func (g *WalkGrid) InBounds(x, z int) bool {
	return x >= 0 && z >= 0 && x < g.CellsX && z < g.CellsZ
}

// Walkable reports whether cell (x, z) can be stood on.
func (g *WalkGrid) Walkable(x, z int) bool {
	return g.InBounds(x, z) && g.walkable[z*g.CellsX+x]
}

// SetWalkable overrides a cell.
func (g *WalkGrid) SetWalkable(x, z int, walkable bool) {
	if g.InBounds(x, z) {
		g.walkable[z*g.CellsX+x] = walkable
	}
}

// Height returns the surface height sampled at the center of cell (x, z).
func (g *WalkGrid) Height(x, z int) float32 {
	if !g.InBounds(x, z) {
		return 0
	}
	return g.heights[z*g.CellsX+x]
}

// CellOf returns the cell containing a ground-plane position.
func (g *WalkGrid) CellOf(p math.Vec2) (int, int) {
	local := p.Sub(g.Origin).Scale(1 / g.CellSize)
	return int(gomath.Floor(float64(local.X))), int(gomath.Floor(float64(local.Y)))
}

// CellCenter returns the ground-plane position of the center of cell (x, z).
func (g *WalkGrid) CellCenter(x, z int) math.Vec2 {
	return g.Origin.Add(math.Vec2{X: float32(x) + 0.5, Y: float32(z) + 0.5}.Scale(g.CellSize))
}

// WalkableCount returns the number of walkable cells.
func (g *WalkGrid) WalkableCount() int {
	n := 0
	for _, w := range g.walkable {
		if w {
			n++
		}
	}
	return n
}
