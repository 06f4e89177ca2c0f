package riglogic

import (
	"github.com/Faultbox/midgard-rig/pkg/math"
)

// Inputs are the per-frame evaluation inputs. RawControls, when set,
// overwrites the leading raw controls. DriverRotations holds the current
// local rotation of each driver joint, in model order.
type Inputs struct {
	RawControls     []float32
	DriverRotations []math.Quat
}

// Outputs are the evaluation results sized for the active LOD.
// JointDeltas holds JointOutputStride floats per joint: translation delta
// (3), rotation delta quaternion x y z w (4), scale delta (3).
type Outputs struct {
	JointDeltas  []float32
	BlendShapes  []float32
	AnimatedMaps []float32
}

// JointCount returns the number of joints in the outputs.
func (o *Outputs) JointCount() int {
	return len(o.JointDeltas) / JointOutputStride
}

// JointDelta returns the delta transform of joint i.
func (o *Outputs) JointDelta(i int) math.Transform {
	d := o.JointDeltas[i*JointOutputStride : (i+1)*JointOutputStride]
	return math.Transform{
		Translation: math.Vec3{X: d[0], Y: d[1], Z: d[2]},
		Rotation:    math.Quat{X: d[3], Y: d[4], Z: d[5], W: d[6]},
		Scale:       math.Vec3{X: d[7], Y: d[8], Z: d[9]},
	}
}

// ComposeJoint applies a joint delta to its neutral transform: translation
// and scale add, rotation multiplies on the right.
func ComposeJoint(neutral, delta math.Transform) math.Transform {
	return math.Transform{
		Translation: neutral.Translation.Add(delta.Translation),
		Rotation:    neutral.Rotation.Mul(delta.Rotation).Normalize(),
		Scale:       neutral.Scale.Add(delta.Scale),
	}
}
