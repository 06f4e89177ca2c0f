package rigunit

import (
	"github.com/Faultbox/midgard-rig/internal/rig"
	"github.com/Faultbox/midgard-rig/internal/riglogic"
	"github.com/Faultbox/midgard-rig/pkg/math"
)

// RigLogicUnit evaluates a behavior model against a hierarchy. Raw
// controls come from curves of the same name and driver joints from bone
// local rotations; joints, blend shapes and animated maps are written
// back. Model may be swapped between calls.
type RigLogicUnit struct {
	Model *riglogic.BehaviorModel
	LOD   int

	eval     *riglogic.Evaluator
	bound    *riglogic.BehaviorModel
	ready    bool
	topology int

	raw     []float32
	drivers []math.Quat
}

// NewRigLogicUnit returns a unit for model.
func NewRigLogicUnit(model *riglogic.BehaviorModel, lod int) *RigLogicUnit {
	return &RigLogicUnit{Model: model, LOD: lod, eval: riglogic.NewEvaluator()}
}

// Evaluator returns the per-character evaluator.
func (u *RigLogicUnit) Evaluator() *riglogic.Evaluator { return u.eval }

// Execute runs one evaluation. Without a model it does nothing.
func (u *RigLogicUnit) Execute(h *rig.Hierarchy) {
	if u.eval == nil {
		u.eval = riglogic.NewEvaluator()
	}
	if !u.ready || u.bound != u.Model || u.topology != h.TopologyVersion() {
		u.bind(h)
	}
	if !u.eval.IsInitialized() {
		return
	}
	u.eval.SetLOD(u.LOD)

	model := u.eval.Model()
	mapping := u.eval.Mapping()

	current := u.eval.RawControls()
	for i, curve := range mapping.RawControlCurves {
		u.raw[i] = current[i]
		if curve != riglogic.IndexNone {
			u.raw[i] = h.Curve(curve)
		}
	}
	for i, bone := range mapping.DriverJointBones {
		u.drivers[i] = model.DriverJoints()[i].Neutral
		if bone != riglogic.IndexNone {
			u.drivers[i] = h.Local(bone).Rotation
		}
	}

	out := u.eval.Evaluate(riglogic.Inputs{RawControls: u.raw, DriverRotations: u.drivers})

	joints := model.Joints()
	count := out.JointCount()
	for j, bone := range mapping.JointBones {
		if bone == riglogic.IndexNone {
			continue
		}
		if j < count {
			h.SetLocal(bone, riglogic.ComposeJoint(joints[j].Neutral, out.JointDelta(j)))
		} else {
			h.SetLocal(bone, joints[j].Neutral)
		}
	}
	writeCurves(h, mapping.BlendShapeCurves, out.BlendShapes)
	writeCurves(h, mapping.AnimatedMapCurves, out.AnimatedMaps)
}

// bind (re)initializes the evaluator for the current model and hierarchy.
func (u *RigLogicUnit) bind(h *rig.Hierarchy) {
	u.ready = true
	u.bound = u.Model
	u.topology = h.TopologyVersion()

	if u.Model == nil {
		// Initialize logs the missing model and keeps the old binding.
		u.eval.Initialize(nil, h)
		u.eval = riglogic.NewEvaluator()
		return
	}
	u.eval.Initialize(u.Model, h)
	u.raw = make([]float32, u.Model.RawControlCount())
	u.drivers = make([]math.Quat, len(u.Model.DriverJoints()))
}

// writeCurves copies values into mapped curves. Values past the active
// LOD are not written.
func writeCurves(h *rig.Hierarchy, curves []int, values []float32) {
	for i, v := range values {
		if curves[i] != riglogic.IndexNone {
			h.SetCurve(curves[i], v)
		}
	}
}
