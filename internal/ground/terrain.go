package ground

import (
	"fmt"

	"github.com/Faultbox/midgard-rig/internal/config"
	"github.com/Faultbox/midgard-rig/pkg/formats"
)

// HeightfieldFromGRD builds a heightfield centered on the world origin from
// a ground table. Each vertex takes the average of the cell corners that
// touch it; cells whose surface is not walkable are marked blocked.
func HeightfieldFromGRD(g *formats.GRD) *Heightfield {
	h := NewHeightfield(g.Width, g.Depth, g.CellSize)
	h.Blocked = make([]bool, g.Width*g.Depth)

	counts := make([]float32, len(h.Heights))
	stride := h.CellsX + 1
	for z := 0; z < g.Depth; z++ {
		for x := 0; x < g.Width; x++ {
			cell := g.Cell(x, z)
			corners := [4]int{
				z*stride + x,
				z*stride + x + 1,
				(z+1)*stride + x,
				(z+1)*stride + x + 1,
			}
			for i, v := range corners {
				h.Heights[v] += cell.Heights[i]
				counts[v]++
			}
			h.Blocked[z*g.Width+x] = !cell.Surface.IsWalkable()
		}
	}
	for i, n := range counts {
		if n > 0 {
			h.Heights[i] /= n
		}
	}
	return h
}

// GRD exports the heightfield as a ground table.
func (h *Heightfield) GRD() *formats.GRD {
	g := formats.NewGRD(h.CellsX, h.CellsZ, h.CellSize)
	for z := 0; z < h.CellsZ; z++ {
		for x := 0; x < h.CellsX; x++ {
			cell := g.Cell(x, z)
			cell.Heights = [4]float32{h.At(x, z), h.At(x+1, z), h.At(x, z+1), h.At(x+1, z+1)}
			if h.CellBlocked(x, z) {
				cell.Surface = formats.GRDBlocked
			}
		}
	}
	return g
}

// LoadScene builds the scene described by cfg, reading the terrain from
// cfg.File when it is set.
func LoadScene(cfg config.GroundConfig) (*Scene, error) {
	s := NewScene(cfg)
	if cfg.File == "" {
		return s, nil
	}
	g, err := formats.LoadGRD(cfg.File)
	if err != nil {
		return nil, fmt.Errorf("loading ground %s: %w", cfg.File, err)
	}
	s.Terrain = HeightfieldFromGRD(g)
	return s, nil
}
