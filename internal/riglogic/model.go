// Package riglogic evaluates facial rig behavior: it turns raw control
// values into joint deltas, blend shape weights and animated map values
// using the tables of a shared BehaviorModel.
package riglogic

import (
	"fmt"
	gomath "math"

	"gonum.org/v1/gonum/mat"

	"github.com/Faultbox/midgard-rig/pkg/formats"
	"github.com/Faultbox/midgard-rig/pkg/math"
)

// Joint attribute layout: nine dofs per joint in the joint matrix, ten
// floats per joint in the evaluated output.
const (
	JointAttributeCount = 9
	JointOutputStride   = 10
)

// Joint is a driven joint and its neutral local transform.
type Joint struct {
	Name    string
	Neutral math.Transform
}

// BlendShape is a blend shape channel driven by one control.
type BlendShape struct {
	Name  string
	Input int
}

// DriverJoint feeds a joint's rotation delta into four raw controls.
type DriverJoint struct {
	Joint   string
	Neutral math.Quat
	// Raw holds the raw control indices receiving x, y, z and w.
	Raw [4]int
}

// RangeMapping contributes Slope*v + Cut for inputs within its range.
type RangeMapping struct {
	Input  int
	Output int
	From   float32
	To     float32
	Slope  float32
	Cut    float32
}

type corrective struct {
	name    string
	inputs  []int
	weights []float32
}

type jointGroup struct {
	inputs  []int
	outputs []int
	// blocks[lod] views the rows active at lod; nil when none are.
	blocks []*mat.Dense
}

// BehaviorModel is the compiled, read-only form of a behavior table
// package. It is safe for concurrent use by any number of evaluators.
type BehaviorModel struct {
	name     string
	lodCount int

	guiControls []string
	guiToRaw    []RangeMapping
	guiRanges   [][2]float32
	rawControls []string
	correctives []corrective
	mlControls  []string
	networks    []network

	joints      []Joint
	jointLODs   []int
	jointGroups []jointGroup

	blendShapes    []BlendShape
	blendShapeLODs []int

	animatedMaps    []string
	animatedMapLODs []int
	conditionals    []RangeMapping

	driverJoints []DriverJoint
}

// NewBehaviorModel validates and compiles a behavior table package.
func NewBehaviorModel(bhv *formats.BHV) (*BehaviorModel, error) {
	if bhv == nil {
		return nil, fmt.Errorf("behavior model: nil table package")
	}
	if err := Validate(bhv); err != nil {
		return nil, fmt.Errorf("behavior model %q: %w", bhv.Name, err)
	}

	m := &BehaviorModel{
		name:            bhv.Name,
		lodCount:        bhv.LODCount,
		guiControls:     append([]string(nil), bhv.GUIControls...),
		rawControls:     append([]string(nil), bhv.RawControls...),
		mlControls:      append([]string(nil), bhv.MLControls...),
		animatedMaps:    append([]string(nil), bhv.AnimatedMaps...),
		jointLODs:       lodCounts(bhv.JointLODs, bhv.LODCount, len(bhv.Joints)),
		blendShapeLODs:  lodCounts(bhv.BlendShapeLODs, bhv.LODCount, len(bhv.BlendShapes)),
		animatedMapLODs: lodCounts(bhv.AnimatedMapLODs, bhv.LODCount, len(bhv.AnimatedMaps)),
		guiToRaw:        convertRanges(bhv.GUIToRaw),
		conditionals:    convertRanges(bhv.AnimatedMapConditionals),
	}

	m.guiRanges = make([][2]float32, len(m.guiControls))
	for i := range m.guiRanges {
		m.guiRanges[i] = [2]float32{float32(gomath.Inf(1)), float32(gomath.Inf(-1))}
	}
	for i, r := range m.guiToRaw {
		if r.From > r.To {
			r.From, r.To = r.To, r.From
			m.guiToRaw[i] = r
		}
		m.guiRanges[r.Input][0] = min(m.guiRanges[r.Input][0], r.From)
		m.guiRanges[r.Input][1] = max(m.guiRanges[r.Input][1], r.To)
	}

	for _, c := range bhv.Correctives {
		m.correctives = append(m.correctives, corrective{
			name:    c.Name,
			inputs:  append([]int(nil), c.Inputs...),
			weights: append([]float32(nil), c.Weights...),
		})
	}
	for _, n := range bhv.Networks {
		m.networks = append(m.networks, compileNetwork(n))
	}

	for _, j := range bhv.Joints {
		m.joints = append(m.joints, Joint{
			Name: j.Name,
			Neutral: math.Transform{
				Translation: math.Vec3{X: j.Translation[0], Y: j.Translation[1], Z: j.Translation[2]},
				Rotation:    quatFromArray(j.Rotation),
				Scale:       math.Vec3{X: j.Scale[0], Y: j.Scale[1], Z: j.Scale[2]},
			},
		})
	}
	for _, g := range bhv.JointGroups {
		group := jointGroup{
			inputs:  append([]int(nil), g.Inputs...),
			outputs: append([]int(nil), g.Outputs...),
		}
		values := denseFromFloat32(len(g.Outputs), len(g.Inputs), g.Values)
		lodRows := lodCounts(g.LODRows, bhv.LODCount, len(g.Outputs))
		group.blocks = make([]*mat.Dense, len(lodRows))
		for lod, rows := range lodRows {
			if values != nil && rows > 0 {
				group.blocks[lod] = values.Slice(0, rows, 0, len(g.Inputs)).(*mat.Dense)
			}
		}
		m.jointGroups = append(m.jointGroups, group)
	}

	for _, s := range bhv.BlendShapes {
		m.blendShapes = append(m.blendShapes, BlendShape{Name: s.Name, Input: s.Input})
	}
	for _, d := range bhv.DriverJoints {
		m.driverJoints = append(m.driverJoints, DriverJoint{
			Joint:   d.Joint,
			Neutral: quatFromArray(d.NeutralRotation),
			Raw:     [4]int{d.RawX, d.RawY, d.RawZ, d.RawW},
		})
	}
	return m, nil
}

// Name returns the model name.
func (m *BehaviorModel) Name() string { return m.name }

// LODCount returns the number of supported levels of detail.
func (m *BehaviorModel) LODCount() int { return m.lodCount }

// RawControlCount returns the number of raw controls.
func (m *BehaviorModel) RawControlCount() int { return len(m.rawControls) }

// RawControlName returns the name of raw control i.
func (m *BehaviorModel) RawControlName(i int) string { return m.rawControls[i] }

// GUIControlCount returns the number of GUI controls.
func (m *BehaviorModel) GUIControlCount() int { return len(m.guiControls) }

// ControlCount returns the length of the full control vector.
func (m *BehaviorModel) ControlCount() int {
	return len(m.rawControls) + len(m.correctives) + len(m.mlControls)
}

// Joints returns the driven joints.
func (m *BehaviorModel) Joints() []Joint { return m.joints }

// BlendShapes returns the blend shape channels.
func (m *BehaviorModel) BlendShapes() []BlendShape { return m.blendShapes }

// AnimatedMaps returns the animated map names.
func (m *BehaviorModel) AnimatedMaps() []string { return m.animatedMaps }

// DriverJoints returns the rotation driven controls.
func (m *BehaviorModel) DriverJoints() []DriverJoint { return m.driverJoints }

// JointCount returns the number of joints active at lod.
func (m *BehaviorModel) JointCount(lod int) int { return m.jointLODs[m.ClampLOD(lod)] }

// BlendShapeCount returns the number of blend shapes active at lod.
func (m *BehaviorModel) BlendShapeCount(lod int) int { return m.blendShapeLODs[m.ClampLOD(lod)] }

// AnimatedMapCount returns the number of animated maps active at lod.
func (m *BehaviorModel) AnimatedMapCount(lod int) int { return m.animatedMapLODs[m.ClampLOD(lod)] }

// ClampLOD limits lod to the supported range.
func (m *BehaviorModel) ClampLOD(lod int) int {
	return max(0, min(lod, m.lodCount-1))
}

// GUIToRaw maps GUI control values onto raw controls. Every raw control
// targeted by a mapping is first zeroed, then receives the contributions
// of the mappings whose range [From, To) holds the GUI value. Values past
// either end of a GUI control's overall range hold the end value.
func (m *BehaviorModel) GUIToRaw(gui, raw []float32) {
	for _, r := range m.guiToRaw {
		if r.Output < len(raw) {
			raw[r.Output] = 0
		}
	}
	for _, r := range m.guiToRaw {
		if r.Input >= len(gui) || r.Output >= len(raw) {
			continue
		}
		v := gui[r.Input]
		span := m.guiRanges[r.Input]
		switch {
		case v >= r.From && v < r.To:
			raw[r.Output] += r.Slope*v + r.Cut
		case r.From == span[0] && v < r.From:
			raw[r.Output] += r.Slope*r.From + r.Cut
		case r.To == span[1] && v >= r.To:
			raw[r.Output] += r.Slope*r.To + r.Cut
		}
	}
}

// lodCounts expands per-LOD counts, defaulting every level to total.
func lodCounts(counts []int, lodCount, total int) []int {
	out := make([]int, max(lodCount, 1))
	for i := range out {
		out[i] = total
		if i < len(counts) {
			out[i] = counts[i]
		}
	}
	return out
}

func convertRanges(in []formats.BHVRangeMapping) []RangeMapping {
	out := make([]RangeMapping, len(in))
	for i, r := range in {
		out[i] = RangeMapping(r)
	}
	return out
}

func quatFromArray(q [4]float32) math.Quat {
	return math.Quat{X: q[0], Y: q[1], Z: q[2], W: q[3]}.Normalize()
}

// scratchWidth is the longest vector a joint group or network layer
// needs during evaluation.
func (m *BehaviorModel) scratchWidth() int {
	width := 1
	for _, g := range m.jointGroups {
		width = max(width, len(g.inputs), len(g.outputs))
	}
	for _, n := range m.networks {
		width = max(width, len(n.inputs))
		for _, l := range n.layers {
			width = max(width, l.biases.Len())
		}
	}
	return width
}

func denseFromFloat32(rows, cols int, values []float32) *mat.Dense {
	if rows == 0 || cols == 0 {
		return nil
	}
	data := make([]float64, rows*cols)
	for i, v := range values {
		data[i] = float64(v)
	}
	return mat.NewDense(rows, cols, data)
}
