package riglogic

// IndexNone marks a model element with no counterpart in the rig.
const IndexNone = -1

// NameSource resolves bone and curve names to rig indices, returning
// IndexNone when the name is absent. Matching is exact and case-sensitive.
type NameSource interface {
	BoneIndex(name string) int
	CurveIndex(name string) int
}

// MappingTable maps model indices to rig indices.
type MappingTable struct {
	RawControlCurves  []int
	DriverJointBones  []int
	JointBones        []int
	BlendShapeCurves  []int
	AnimatedMapCurves []int
}

// BuildMapping resolves every model element name against src.
func BuildMapping(m *BehaviorModel, src NameSource) *MappingTable {
	t := &MappingTable{
		RawControlCurves:  make([]int, len(m.rawControls)),
		DriverJointBones:  make([]int, len(m.driverJoints)),
		JointBones:        make([]int, len(m.joints)),
		BlendShapeCurves:  make([]int, len(m.blendShapes)),
		AnimatedMapCurves: make([]int, len(m.animatedMaps)),
	}
	for i, name := range m.rawControls {
		t.RawControlCurves[i] = resolve(src.CurveIndex, name)
	}
	for i, d := range m.driverJoints {
		t.DriverJointBones[i] = resolve(src.BoneIndex, d.Joint)
	}
	for i, j := range m.joints {
		t.JointBones[i] = resolve(src.BoneIndex, j.Name)
	}
	for i, s := range m.blendShapes {
		t.BlendShapeCurves[i] = resolve(src.CurveIndex, s.Name)
	}
	for i, name := range m.animatedMaps {
		t.AnimatedMapCurves[i] = resolve(src.CurveIndex, name)
	}
	return t
}

// Missing counts the unmapped entries of the table.
func (t *MappingTable) Missing() int {
	n := 0
	for _, list := range [][]int{t.RawControlCurves, t.DriverJointBones, t.JointBones, t.BlendShapeCurves, t.AnimatedMapCurves} {
		for _, idx := range list {
			if idx == IndexNone {
				n++
			}
		}
	}
	return n
}

func resolve(lookup func(string) int, name string) int {
	if idx := lookup(name); idx >= 0 {
		return idx
	}
	return IndexNone
}
