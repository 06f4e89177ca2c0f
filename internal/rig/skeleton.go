package rig

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/midgard-rig/pkg/math"
)

// SkeletonDef is the YAML description of a hierarchy.
type SkeletonDef struct {
	Name       string        `yaml:"name"`
	Bones      []BoneDef     `yaml:"bones"`
	Curves     []CurveDef    `yaml:"curves"`
	Locomotion LocomotionDef `yaml:"locomotion"`
}

// BoneDef describes one bone. Parent names an earlier bone or is empty.
// A zero rotation means identity and a zero scale means unit scale.
type BoneDef struct {
	Name        string     `yaml:"name"`
	Parent      string     `yaml:"parent"`
	Translation [3]float32 `yaml:"translation"`
	Rotation    [4]float32 `yaml:"rotation"`
	Scale       [3]float32 `yaml:"scale"`
}

// CurveDef describes one named curve.
type CurveDef struct {
	Name  string  `yaml:"name"`
	Value float32 `yaml:"value"`
}

// LocomotionDef names the bones driven by the locomotor.
type LocomotionDef struct {
	Pelvis   string       `yaml:"pelvis"`
	FootSets []FootSetDef `yaml:"foot_sets"`
}

// FootSetDef is a group of feet sharing a stride.
type FootSetDef struct {
	PhaseOffset float32  `yaml:"phase_offset"`
	Feet        []string `yaml:"feet"`
}

// LoadSkeleton reads a skeleton definition from a YAML file.
func LoadSkeleton(path string) (*SkeletonDef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading skeleton: %w", err)
	}
	def := &SkeletonDef{}
	if err := yaml.Unmarshal(data, def); err != nil {
		return nil, fmt.Errorf("parsing skeleton %s: %w", path, err)
	}
	return def, nil
}

// Build creates a hierarchy from the definition.
func (d *SkeletonDef) Build() (*Hierarchy, error) {
	h := NewHierarchy()
	for _, b := range d.Bones {
		parent := IndexNone
		if b.Parent != "" {
			parent = h.BoneIndex(b.Parent)
			if parent == IndexNone {
				return nil, fmt.Errorf("bone %q: unknown parent %q: %w", b.Name, b.Parent, ErrInvalidParent)
			}
		}
		if _, err := h.AddBone(b.Name, parent, b.transform()); err != nil {
			return nil, err
		}
	}
	for _, c := range d.Curves {
		if _, err := h.AddCurve(c.Name, c.Value); err != nil {
			return nil, err
		}
	}
	return h, nil
}

func (b BoneDef) transform() math.Transform {
	t := math.TransformIdentity()
	t.Translation = math.Vec3{X: b.Translation[0], Y: b.Translation[1], Z: b.Translation[2]}
	if b.Rotation != [4]float32{} {
		t.Rotation = math.Quat{X: b.Rotation[0], Y: b.Rotation[1], Z: b.Rotation[2], W: b.Rotation[3]}.Normalize()
	}
	if b.Scale != [3]float32{} {
		t.Scale = math.Vec3{X: b.Scale[0], Y: b.Scale[1], Z: b.Scale[2]}
	}
	return t
}

// BipedDef returns a two-legged skeleton one unit tall at the pelvis, with
// a small face rig and the curves it reads and writes.
func BipedDef() *SkeletonDef {
	return &SkeletonDef{
		Name: "biped",
		Bones: []BoneDef{
			{Name: "root"},
			{Name: "pelvis", Parent: "root", Translation: [3]float32{0, 1, 0}},
			{Name: "spine", Parent: "pelvis", Translation: [3]float32{0, 0.25, 0}},
			{Name: "neck", Parent: "spine", Translation: [3]float32{0, 0.3, 0}},
			{Name: "head", Parent: "neck", Translation: [3]float32{0, 0.1, 0}},
			{Name: "jaw", Parent: "head", Translation: [3]float32{0, -0.05, 0.05}},
			{Name: "brow", Parent: "head", Translation: [3]float32{0, 0.08, 0.08}},
			{Name: "thigh_l", Parent: "pelvis", Translation: [3]float32{-0.1, 0, 0}},
			{Name: "calf_l", Parent: "thigh_l", Translation: [3]float32{0, -0.45, 0}},
			{Name: "foot_l", Parent: "calf_l", Translation: [3]float32{0, -0.45, 0}},
			{Name: "thigh_r", Parent: "pelvis", Translation: [3]float32{0.1, 0, 0}},
			{Name: "calf_r", Parent: "thigh_r", Translation: [3]float32{0, -0.45, 0}},
			{Name: "foot_r", Parent: "calf_r", Translation: [3]float32{0, -0.45, 0}},
		},
		Curves: []CurveDef{
			{Name: "jaw_open"},
			{Name: "brow_up"},
			{Name: "jaw_open_bs"},
			{Name: "brow_up_bs"},
			{Name: "brow_wrinkle"},
		},
		Locomotion: LocomotionDef{
			Pelvis: "pelvis",
			FootSets: []FootSetDef{
				{PhaseOffset: 0, Feet: []string{"foot_l", "foot_r"}},
			},
		},
	}
}

// NewBiped builds the hierarchy of BipedDef.
func NewBiped() *Hierarchy {
	h, err := BipedDef().Build()
	if err != nil {
		panic(fmt.Sprintf("rig: biped definition: %v", err))
	}
	return h
}
