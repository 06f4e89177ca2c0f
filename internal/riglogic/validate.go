package riglogic

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/Faultbox/midgard-rig/pkg/formats"
)

// Validate checks a behavior table package for structural problems and
// returns all of them combined.
func Validate(bhv *formats.BHV) error {
	v := validator{bhv: bhv}
	v.controls()
	v.networks()
	v.joints()
	v.blendShapes()
	v.animatedMaps()
	v.driverJoints()
	return v.err
}

type validator struct {
	bhv *formats.BHV
	err error
}

func (v *validator) fail(format string, args ...any) {
	v.err = multierr.Append(v.err, fmt.Errorf(format, args...))
}

func (v *validator) controlCount() int {
	return len(v.bhv.RawControls) + len(v.bhv.Correctives) + len(v.bhv.MLControls)
}

func (v *validator) index(what string, idx, limit int) {
	if idx < 0 || idx >= limit {
		v.fail("%s index %d out of range [0, %d)", what, idx, limit)
	}
}

func (v *validator) lods(what string, counts []int, limit int) {
	if len(counts) == 0 {
		return
	}
	if len(counts) != v.bhv.LODCount {
		v.fail("%s: %d LOD counts for %d LODs", what, len(counts), v.bhv.LODCount)
	}
	for lod, n := range counts {
		if n < 0 || n > limit {
			v.fail("%s: LOD %d count %d out of range [0, %d]", what, lod, n, limit)
		}
	}
}

func (v *validator) unique(what string, names []string) {
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if name == "" {
			v.fail("%s: empty name", what)
			continue
		}
		if seen[name] {
			v.fail("%s: duplicate name %q", what, name)
		}
		seen[name] = true
	}
}

func (v *validator) controls() {
	b := v.bhv
	if b.LODCount < 1 {
		v.fail("LOD count must be at least 1, got %d", b.LODCount)
	}
	v.unique("raw controls", b.RawControls)
	v.unique("GUI controls", b.GUIControls)
	for i, r := range b.GUIToRaw {
		v.index(fmt.Sprintf("GUI mapping %d input", i), r.Input, len(b.GUIControls))
		v.index(fmt.Sprintf("GUI mapping %d output", i), r.Output, len(b.RawControls))
	}

	raw := len(b.RawControls)
	psdEnd := raw + len(b.Correctives)
	for i, c := range b.Correctives {
		if len(c.Inputs) != len(c.Weights) {
			v.fail("corrective %q: %d inputs but %d weights", c.Name, len(c.Inputs), len(c.Weights))
		}
		if len(c.Inputs) == 0 {
			v.fail("corrective %q: no inputs", c.Name)
		}
		for _, in := range c.Inputs {
			v.index(fmt.Sprintf("corrective %d input", i), in, v.controlCount())
			if in >= raw && in < psdEnd {
				v.fail("corrective %q: input %d is itself a corrective", c.Name, in)
			}
		}
	}
}

func (v *validator) networks() {
	b := v.bhv
	for _, n := range b.Networks {
		for _, in := range n.Inputs {
			v.index(fmt.Sprintf("network %q input", n.Name), in, len(b.RawControls))
		}
		for _, out := range n.Outputs {
			v.index(fmt.Sprintf("network %q output", n.Name), out, len(b.MLControls))
		}
		if len(n.Layers) == 0 {
			v.fail("network %q: no layers", n.Name)
			continue
		}
		in := len(n.Inputs)
		for li, l := range n.Layers {
			out := len(l.Biases)
			if out == 0 {
				v.fail("network %q layer %d: no outputs", n.Name, li)
			}
			if len(l.Weights) != out*in {
				v.fail("network %q layer %d: %d weights, want %dx%d", n.Name, li, len(l.Weights), out, in)
			}
			if _, ok := ParseActivation(l.Activation); !ok {
				v.fail("network %q layer %d: unknown activation %q", n.Name, li, l.Activation)
			}
			in = out
		}
		if in != len(n.Outputs) {
			v.fail("network %q: last layer has %d outputs for %d ML controls", n.Name, in, len(n.Outputs))
		}
	}
}

func (v *validator) joints() {
	b := v.bhv
	names := make([]string, len(b.Joints))
	for i, j := range b.Joints {
		names[i] = j.Name
		q := j.Rotation
		if q[0] == 0 && q[1] == 0 && q[2] == 0 && q[3] == 0 {
			v.fail("joint %q: zero rotation", j.Name)
		}
	}
	v.unique("joints", names)
	v.lods("joints", b.JointLODs, len(b.Joints))

	attrs := len(b.Joints) * JointAttributeCount
	for gi, g := range b.JointGroups {
		for _, in := range g.Inputs {
			v.index(fmt.Sprintf("joint group %d input", gi), in, v.controlCount())
		}
		for _, out := range g.Outputs {
			v.index(fmt.Sprintf("joint group %d output", gi), out, attrs)
		}
		if want := len(g.Outputs) * len(g.Inputs); len(g.Values) != want {
			v.fail("joint group %d: %d values, want %d", gi, len(g.Values), want)
		}
		v.lods(fmt.Sprintf("joint group %d", gi), g.LODRows, len(g.Outputs))
	}
}

func (v *validator) blendShapes() {
	b := v.bhv
	names := make([]string, len(b.BlendShapes))
	for i, s := range b.BlendShapes {
		names[i] = s.Name
		v.index(fmt.Sprintf("blend shape %q input", s.Name), s.Input, v.controlCount())
	}
	v.unique("blend shapes", names)
	v.lods("blend shapes", b.BlendShapeLODs, len(b.BlendShapes))
}

func (v *validator) animatedMaps() {
	b := v.bhv
	v.unique("animated maps", b.AnimatedMaps)
	v.lods("animated maps", b.AnimatedMapLODs, len(b.AnimatedMaps))
	for i, c := range b.AnimatedMapConditionals {
		v.index(fmt.Sprintf("conditional %d input", i), c.Input, v.controlCount())
		v.index(fmt.Sprintf("conditional %d output", i), c.Output, len(b.AnimatedMaps))
		if c.From > c.To {
			v.fail("conditional %d: from %v greater than to %v", i, c.From, c.To)
		}
	}
}

func (v *validator) driverJoints() {
	b := v.bhv
	for _, d := range b.DriverJoints {
		if d.Joint == "" {
			v.fail("driver joint: empty name")
		}
		for _, raw := range []int{d.RawX, d.RawY, d.RawZ, d.RawW} {
			v.index(fmt.Sprintf("driver joint %q raw control", d.Joint), raw, len(b.RawControls))
		}
	}
}
