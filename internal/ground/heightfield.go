// Package ground answers height and surface normal queries for the
// locomotor: a regular heightfield plus box platforms.
package ground

import (
	gomath "math"

	"github.com/Faultbox/midgard-rig/internal/locomotor"
	"github.com/Faultbox/midgard-rig/pkg/math"
)

// Heightfield is a regular grid of vertex heights on the XZ plane.
// Vertex (x, z) sits at Origin + (x*CellSize, z*CellSize).
type Heightfield struct {
	CellsX   int
	CellsZ   int
	CellSize float32
	Origin   math.Vec2 // world X, Z of vertex (0, 0)
	Heights  []float32 // (CellsX+1)*(CellsZ+1), row-major by z

	// Blocked marks cells routing must avoid, CellsX*CellsZ; nil means none.
	Blocked []bool
}

// NewHeightfield creates a flat heightfield centered on the world origin.
func NewHeightfield(cellsX, cellsZ int, cellSize float32) *Heightfield {
	if cellsX < 1 {
		cellsX = 1
	}
	if cellsZ < 1 {
		cellsZ = 1
	}
	if cellSize <= 0 {
		cellSize = 1
	}
	return &Heightfield{
		CellsX:   cellsX,
		CellsZ:   cellsZ,
		CellSize: cellSize,
		Origin: math.Vec2{
			X: -float32(cellsX) * cellSize / 2,
			Y: -float32(cellsZ) * cellSize / 2,
		},
		Heights: make([]float32, (cellsX+1)*(cellsZ+1)),
	}
}

// NewRollingHeightfield creates a heightfield of gentle hills:
// amplitude * sin(2*pi*x/wavelength) * cos(2*pi*z/wavelength).
func NewRollingHeightfield(cellsX, cellsZ int, cellSize, amplitude, wavelength float32) *Heightfield {
	h := NewHeightfield(cellsX, cellsZ, cellSize)
	if amplitude == 0 || wavelength <= 0 {
		return h
	}
	k := 2 * gomath.Pi / float64(wavelength)
	for z := 0; z <= h.CellsZ; z++ {
		for x := 0; x <= h.CellsX; x++ {
			wx, wz := h.vertexWorld(x, z)
			v := float64(amplitude) * gomath.Sin(k*float64(wx)) * gomath.Cos(k*float64(wz))
			h.Set(x, z, float32(v))
		}
	}
	return h
}

// Set sets the height of vertex (x, z). Out of range vertices are ignored.
func (h *Heightfield) Set(x, z int, height float32) {
	if x < 0 || z < 0 || x > h.CellsX || z > h.CellsZ {
		return
	}
	h.Heights[z*(h.CellsX+1)+x] = height
}

// At returns the height of vertex (x, z), clamped to the grid.
func (h *Heightfield) At(x, z int) float32 {
	x = clampInt(x, 0, h.CellsX)
	z = clampInt(z, 0, h.CellsZ)
	return h.Heights[z*(h.CellsX+1)+x]
}

// Contains reports whether the world position lies over the grid.
func (h *Heightfield) Contains(wx, wz float32) bool {
	fx := (wx - h.Origin.X) / h.CellSize
	fz := (wz - h.Origin.Y) / h.CellSize
	return fx >= 0 && fz >= 0 && fx <= float32(h.CellsX) && fz <= float32(h.CellsZ)
}

// Height returns the bilinearly interpolated height at a world position.
// Positions outside the grid use the nearest edge.
func (h *Heightfield) Height(wx, wz float32) float32 {
	fx := math.Clamp((wx-h.Origin.X)/h.CellSize, 0, float32(h.CellsX))
	fz := math.Clamp((wz-h.Origin.Y)/h.CellSize, 0, float32(h.CellsZ))

	cellX := clampInt(int(fx), 0, h.CellsX-1)
	cellZ := clampInt(int(fz), 0, h.CellsZ-1)
	fracX := math.Clamp(fx-float32(cellX), 0, 1)
	fracZ := math.Clamp(fz-float32(cellZ), 0, 1)

	// South edge (lower Z), then north edge, then blend along Z.
	south := h.At(cellX, cellZ)*(1-fracX) + h.At(cellX+1, cellZ)*fracX
	north := h.At(cellX, cellZ+1)*(1-fracX) + h.At(cellX+1, cellZ+1)*fracX
	return south*(1-fracZ) + north*fracZ
}

// Normal returns the surface normal at a world position from central
// differences of Height.
func (h *Heightfield) Normal(wx, wz float32) math.Vec3 {
	e := h.CellSize / 2
	dx := (h.Height(wx+e, wz) - h.Height(wx-e, wz)) / (2 * e)
	dz := (h.Height(wx, wz+e) - h.Height(wx, wz-e)) / (2 * e)
	return math.Vec3{X: -dx, Y: 1, Z: -dz}.Normalize()
}

// Probe implements locomotor.GroundProbe. Positions off the grid miss.
func (h *Heightfield) Probe(x, z float32) (locomotor.GroundHit, bool) {
	if !h.Contains(x, z) {
		return locomotor.GroundHit{}, false
	}
	return locomotor.GroundHit{Height: h.Height(x, z), Normal: h.Normal(x, z)}, true
}

// CellBlocked reports whether cell (x, z) is marked blocked.
func (h *Heightfield) CellBlocked(x, z int) bool {
	if h.Blocked == nil || x < 0 || z < 0 || x >= h.CellsX || z >= h.CellsZ {
		return false
	}
	return h.Blocked[z*h.CellsX+x]
}

func (h *Heightfield) vertexWorld(x, z int) (float32, float32) {
	return h.Origin.X + float32(x)*h.CellSize, h.Origin.Y + float32(z)*h.CellSize
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
