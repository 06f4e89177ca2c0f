package riglogic

import (
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/Faultbox/midgard-rig/internal/logger"
	"github.com/Faultbox/midgard-rig/pkg/math"
)

// Evaluator is the per-character evaluation state for one BehaviorModel.
// It is not safe for concurrent use; the model it points to is.
type Evaluator struct {
	model   *BehaviorModel
	mapping *MappingTable
	lod     int

	rawControls []float32
	controls    []float64
	attributes  []float64
	outputs     Outputs

	// Scratch vectors for joint groups and network layers.
	gather  mat.VecDense
	product mat.VecDense
}

// NewEvaluator returns an uninitialized evaluator.
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Initialize binds the evaluator to model and resolves the model's names
// against src. A nil model leaves the evaluator uninitialized. Any previous
// state is discarded.
func (e *Evaluator) Initialize(model *BehaviorModel, src NameSource) {
	if model == nil {
		logger.Warn("rig logic: no behavior model, evaluator stays uninitialized")
		return
	}

	*e = Evaluator{
		model:       model,
		mapping:     BuildMapping(model, src),
		rawControls: make([]float32, model.RawControlCount()),
		controls:    make([]float64, model.ControlCount()),
		attributes:  make([]float64, len(model.joints)*JointAttributeCount),
	}
	e.resizeOutputs()
	width := model.scratchWidth()
	for _, v := range []*mat.VecDense{&e.gather, &e.product} {
		v.ReuseAsVec(width)
		v.Reset()
	}

	logger.Debug("rig logic initialized",
		zap.String("model", model.Name()),
		zap.Int("rawControls", model.RawControlCount()),
		zap.Int("joints", len(model.joints)),
		zap.Int("unmapped", e.mapping.Missing()))
}

// IsInitialized reports whether Initialize succeeded.
func (e *Evaluator) IsInitialized() bool { return e.model != nil }

// Model returns the bound model, or nil.
func (e *Evaluator) Model() *BehaviorModel { return e.model }

// Mapping returns the index mapping table, or nil before Initialize.
func (e *Evaluator) Mapping() *MappingTable { return e.mapping }

// LOD returns the active level of detail.
func (e *Evaluator) LOD() int { return e.lod }

// SetLOD changes the level of detail, clamped to the model's range.
func (e *Evaluator) SetLOD(level int) {
	if e.model == nil {
		return
	}
	e.lod = e.model.ClampLOD(level)
	e.resizeOutputs()
}

// RawControls returns the current raw control values.
func (e *Evaluator) RawControls() []float32 { return e.rawControls }

// SetRawControl sets raw control i, clamped to [0, 1]. Out of range
// indices are ignored.
func (e *Evaluator) SetRawControl(i int, value float32) {
	if i < 0 || i >= len(e.rawControls) {
		return
	}
	e.rawControls[i] = clampUnit(value)
}

// Outputs returns the results of the last evaluation.
func (e *Evaluator) Outputs() *Outputs { return &e.outputs }

// Evaluate runs the model on in and returns the outputs for the active
// LOD. The returned buffers are reused by the next call. An uninitialized
// evaluator returns its previous (empty) outputs unchanged.
func (e *Evaluator) Evaluate(in Inputs) *Outputs {
	if e.model == nil {
		return &e.outputs
	}
	m := e.model

	for i, v := range in.RawControls {
		e.SetRawControl(i, v)
	}

	raw := len(m.rawControls)
	for i, v := range e.rawControls {
		e.controls[i] = float64(v)
	}
	// Driver deltas bypass clamping.
	for i, d := range m.driverJoints {
		if i >= len(in.DriverRotations) {
			break
		}
		delta := d.Neutral.Inverse().Mul(in.DriverRotations[i].Normalize())
		e.controls[d.Raw[0]] = float64(delta.X)
		e.controls[d.Raw[1]] = float64(delta.Y)
		e.controls[d.Raw[2]] = float64(delta.Z)
		e.controls[d.Raw[3]] = float64(delta.W)
	}

	mlBase := raw + len(m.correctives)
	for i := mlBase; i < len(e.controls); i++ {
		e.controls[i] = 0
	}
	for i := range m.networks {
		m.networks[i].evaluate(e.controls, mlBase, &e.gather, &e.product)
	}
	e.evaluateCorrectives(raw)

	e.evaluateJoints()
	e.evaluateBlendShapes()
	e.evaluateAnimatedMaps()
	return &e.outputs
}

// evaluateCorrectives computes each corrective as the product of its
// clamped, weighted inputs.
func (e *Evaluator) evaluateCorrectives(base int) {
	for i, c := range e.model.correctives {
		v := 1.0
		for k, in := range c.inputs {
			v *= clampUnit64(e.controls[in]) * float64(c.weights[k])
		}
		e.controls[base+i] = clampUnit64(v)
	}
}

func (e *Evaluator) evaluateJoints() {
	m := e.model
	for i := range e.attributes {
		e.attributes[i] = 0
	}

	for _, g := range m.jointGroups {
		block := g.blocks[e.lod]
		if block == nil {
			continue
		}
		rows, _ := block.Dims()
		x := resizeVec(&e.gather, len(g.inputs))
		for c, in := range g.inputs {
			x.SetVec(c, e.controls[in])
		}
		y := resizeVec(&e.product, rows)
		y.MulVec(block, x)
		for r := 0; r < rows; r++ {
			e.attributes[g.outputs[r]] += y.AtVec(r)
		}
	}

	count := m.JointCount(e.lod)
	out := e.outputs.JointDeltas[:count*JointOutputStride]
	for j := 0; j < count; j++ {
		a := e.attributes[j*JointAttributeCount : (j+1)*JointAttributeCount]
		rotation := math.QuatFromEulerXYZ(
			math.DegToRad(float32(a[3])),
			math.DegToRad(float32(a[4])),
			math.DegToRad(float32(a[5])),
		)
		o := out[j*JointOutputStride : (j+1)*JointOutputStride]
		o[0], o[1], o[2] = float32(a[0]), float32(a[1]), float32(a[2])
		o[3], o[4], o[5], o[6] = rotation.X, rotation.Y, rotation.Z, rotation.W
		o[7], o[8], o[9] = float32(a[6]), float32(a[7]), float32(a[8])
	}
}

func (e *Evaluator) evaluateBlendShapes() {
	shapes := e.model.blendShapes
	for i := range e.outputs.BlendShapes {
		e.outputs.BlendShapes[i] = float32(e.controls[shapes[i].Input])
	}
}

// evaluateAnimatedMaps sums the conditionals whose range (From, To] holds
// the input, clamped to [0, 1].
func (e *Evaluator) evaluateAnimatedMaps() {
	maps := e.outputs.AnimatedMaps
	for i := range maps {
		maps[i] = 0
	}
	for _, c := range e.model.conditionals {
		if c.Output >= len(maps) {
			continue
		}
		v := float32(e.controls[c.Input])
		if v > c.From && v <= c.To {
			maps[c.Output] += c.Slope*v + c.Cut
		}
	}
	for i := range maps {
		maps[i] = clampUnit(maps[i])
	}
}

func (e *Evaluator) resizeOutputs() {
	m := e.model
	e.outputs = Outputs{
		JointDeltas:  make([]float32, m.JointCount(e.lod)*JointOutputStride),
		BlendShapes:  make([]float32, m.BlendShapeCount(e.lod)),
		AnimatedMaps: make([]float32, m.AnimatedMapCount(e.lod)),
	}
}

func clampUnit(v float32) float32 {
	if !math.IsFinite(v) {
		return 0
	}
	return math.Clamp(v, 0, 1)
}

func clampUnit64(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// resizeVec empties v and gives it length n, keeping its backing array
// when it is large enough.
func resizeVec(v *mat.VecDense, n int) *mat.VecDense {
	v.Reset()
	v.ReuseAsVec(n)
	return v
}
