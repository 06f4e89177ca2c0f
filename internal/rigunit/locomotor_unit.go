// Package rigunit runs the locomotion and rig logic engines against a
// character hierarchy: read named bones and curves, compute, write back.
package rigunit

import (
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-rig/internal/locomotor"
	"github.com/Faultbox/midgard-rig/internal/logger"
	"github.com/Faultbox/midgard-rig/internal/rig"
	"github.com/Faultbox/midgard-rig/pkg/math"
)

// FootBinding ties a simulated foot to a bone.
type FootBinding struct {
	Bone     string
	Settings locomotor.FootSettings
}

// FootSetBinding is a foot set and its feet.
type FootSetBinding struct {
	PhaseOffset float32
	Feet        []FootBinding
}

// LocomotorUnit drives the root, pelvis and foot bones of a hierarchy with
// a Locomotor. Bone names that do not resolve are skipped.
type LocomotorUnit struct {
	RootBone   string
	PelvisBone string
	FootSets   []FootSetBinding

	loco      *locomotor.Locomotor
	ready     bool
	topology  int
	goalScale math.Vec3

	root   int
	pelvis int
	feet   []int // bone per simulated foot, in Locomotor.Feet order
}

// NewLocomotorUnit binds the bones named by a skeleton's locomotion
// section, giving every foot the same settings.
func NewLocomotorUnit(def rig.LocomotionDef, root string, foot locomotor.FootSettings) *LocomotorUnit {
	u := &LocomotorUnit{RootBone: root, PelvisBone: def.Pelvis}
	for _, set := range def.FootSets {
		binding := FootSetBinding{PhaseOffset: set.PhaseOffset}
		for _, bone := range set.Feet {
			binding.Feet = append(binding.Feet, FootBinding{Bone: bone, Settings: foot})
		}
		u.FootSets = append(u.FootSets, binding)
	}
	return u
}

// Locomotor returns the underlying simulation, or nil before the first
// Execute.
func (u *LocomotorUnit) Locomotor() *locomotor.Locomotor { return u.loco }

// Invalidate forces a reset on the next Execute.
func (u *LocomotorUnit) Invalidate() { u.ready = false }

// Execute advances the simulation one tick and writes the results into h.
// The simulation is rebuilt from the current pose on first use, whenever
// the hierarchy topology changes and whenever the goal scale changes.
func (u *LocomotorUnit) Execute(h *rig.Hierarchy, in locomotor.InputSettings) {
	if !u.ready || u.topology != h.TopologyVersion() || u.goalScale != in.RootGoalWorld.Scale {
		u.reset(h, in)
	}

	u.loco.RunSimulation(in)

	if u.root != rig.IndexNone {
		h.SetGlobal(u.root, u.loco.BodyCurrent())
	}
	if u.pelvis != rig.IndexNone {
		h.SetGlobal(u.pelvis, u.loco.PelvisCurrent())
	}
	for i, f := range u.loco.Feet() {
		h.SetGlobal(u.feet[i], f.CurrentWorld)
	}
}

func (u *LocomotorUnit) reset(h *rig.Hierarchy, in locomotor.InputSettings) {
	if u.loco == nil {
		u.loco = locomotor.New()
	}
	u.root = h.BoneIndex(u.RootBone)
	u.pelvis = h.BoneIndex(u.PelvisBone)
	u.feet = u.feet[:0]

	pelvisWorld := in.RootGoalWorld
	if u.pelvis != rig.IndexNone {
		pelvisWorld = h.Global(u.pelvis)
	}
	u.loco.Reset(in.RootGoalWorld, pelvisWorld)

	skipped := 0
	for _, set := range u.FootSets {
		idx := u.loco.AddFootSet(set.PhaseOffset)
		for _, foot := range set.Feet {
			bone := h.BoneIndex(foot.Bone)
			if bone == rig.IndexNone {
				skipped++
				continue
			}
			u.loco.AddFootToSet(idx, h.Global(bone), foot.Settings)
			u.feet = append(u.feet, bone)
		}
	}

	u.ready = true
	u.topology = h.TopologyVersion()
	u.goalScale = in.RootGoalWorld.Scale

	logger.Debug("locomotor reset",
		zap.Int("feet", len(u.feet)),
		zap.Int("skipped", skipped),
		zap.Bool("pelvis", u.pelvis != rig.IndexNone))
}
