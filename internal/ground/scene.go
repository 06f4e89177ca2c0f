package ground

import (
	"github.com/Faultbox/midgard-rig/internal/config"
	"github.com/Faultbox/midgard-rig/internal/locomotor"
	"github.com/Faultbox/midgard-rig/pkg/math"
)

// Scene is the walkable world: an optional heightfield plus platforms.
// It is read-only after construction and safe for concurrent probes.
type Scene struct {
	Terrain   *Heightfield
	Platforms []AABB
}

// NewScene builds the scene described by the ground configuration.
func NewScene(cfg config.GroundConfig) *Scene {
	s := &Scene{
		Terrain: NewRollingHeightfield(cfg.Width, cfg.Depth, cfg.CellSize, cfg.Amplitude, cfg.Wavelength),
	}
	for _, p := range cfg.Platforms {
		s.Platforms = append(s.Platforms, NewAABB(p.Min, p.Max))
	}
	return s
}

// Probe implements locomotor.GroundProbe. The highest surface under
// (x, z) wins; platform tops face straight up.
func (s *Scene) Probe(x, z float32) (locomotor.GroundHit, bool) {
	best, found := locomotor.GroundHit{}, false
	if s.Terrain != nil {
		best, found = s.Terrain.Probe(x, z)
	}

	for _, box := range s.Platforms {
		ray := Down(x, box.Max.Y+1, z)
		t, hit := ray.Intersect(box)
		if !hit {
			continue
		}
		height := ray.At(t).Y
		if !found || height > best.Height {
			best = locomotor.GroundHit{Height: height, Normal: math.Up}
			found = true
		}
	}
	return best, found
}
