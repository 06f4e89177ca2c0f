package locomotor

import (
	"fmt"

	"github.com/tiendc/go-deepcopy"

	"github.com/Faultbox/midgard-rig/pkg/math"
)

// Snapshot is a detached copy of the simulation state.
type Snapshot struct {
	Phase         float32
	Speed         float32
	BodyCurrent   math.Transform
	BodyTarget    math.Transform
	PelvisCurrent math.Transform
	PelvisTarget  math.Transform
	Feet          []*Foot
	SetOffsets    []float32
}

// Snapshot deep-copies the current state. Later ticks do not affect the
// returned value.
func (l *Locomotor) Snapshot() (*Snapshot, error) {
	live := Snapshot{
		Phase:         l.phase,
		Speed:         l.speed,
		BodyCurrent:   l.bodyCurrent,
		BodyTarget:    l.bodyTarget,
		PelvisCurrent: l.pelvisCurrent,
		PelvisTarget:  l.pelvisTarget,
		Feet:          l.feet,
	}
	for _, set := range l.sets {
		live.SetOffsets = append(live.SetOffsets, set.PhaseOffset)
	}

	snap := &Snapshot{}
	if err := deepcopy.Copy(snap, &live); err != nil {
		return nil, fmt.Errorf("copying locomotor state: %w", err)
	}
	return snap, nil
}

// AirborneCount returns how many feet were in the air.
func (s *Snapshot) AirborneCount() int {
	n := 0
	for _, f := range s.Feet {
		if f.State == Airborne {
			n++
		}
	}
	return n
}
