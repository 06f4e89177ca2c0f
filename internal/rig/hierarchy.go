// Package rig holds a character's bone hierarchy and named float curves,
// the data the locomotion and rig logic units read and write each frame.
package rig

import (
	"errors"
	"fmt"

	"github.com/Faultbox/midgard-rig/pkg/math"
)

// IndexNone is returned for names that are not in the hierarchy.
const IndexNone = -1

// Hierarchy errors.
var (
	ErrDuplicateName = errors.New("duplicate name")
	ErrInvalidParent = errors.New("invalid parent index")
)

// Bone is one joint of the hierarchy. Parent is IndexNone for roots and
// always precedes the bone.
type Bone struct {
	Name   string
	Parent int
	Local  math.Transform
}

// Hierarchy stores bones with local transforms, resolving global
// transforms on demand, plus a set of named curves.
type Hierarchy struct {
	bones     []Bone
	boneIndex map[string]int
	globals   []math.Transform
	dirty     bool

	curves     []float32
	curveNames []string
	curveIndex map[string]int

	topology int
}

// NewHierarchy returns an empty hierarchy.
func NewHierarchy() *Hierarchy {
	return &Hierarchy{
		boneIndex:  make(map[string]int),
		curveIndex: make(map[string]int),
	}
}

// AddBone appends a bone and returns its index.
func (h *Hierarchy) AddBone(name string, parent int, local math.Transform) (int, error) {
	if _, exists := h.boneIndex[name]; exists {
		return IndexNone, fmt.Errorf("bone %q: %w", name, ErrDuplicateName)
	}
	if parent != IndexNone && (parent < 0 || parent >= len(h.bones)) {
		return IndexNone, fmt.Errorf("bone %q parent %d: %w", name, parent, ErrInvalidParent)
	}
	idx := len(h.bones)
	h.bones = append(h.bones, Bone{Name: name, Parent: parent, Local: local})
	h.globals = append(h.globals, local)
	h.boneIndex[name] = idx
	h.dirty = true
	h.topology++
	return idx, nil
}

// AddCurve appends a named curve with an initial value and returns its index.
func (h *Hierarchy) AddCurve(name string, value float32) (int, error) {
	if _, exists := h.curveIndex[name]; exists {
		return IndexNone, fmt.Errorf("curve %q: %w", name, ErrDuplicateName)
	}
	idx := len(h.curves)
	h.curves = append(h.curves, value)
	h.curveNames = append(h.curveNames, name)
	h.curveIndex[name] = idx
	h.topology++
	return idx, nil
}

// TopologyVersion changes whenever a bone or curve is added.
func (h *Hierarchy) TopologyVersion() int { return h.topology }

// BoneIndex returns the index of the named bone, or IndexNone.
func (h *Hierarchy) BoneIndex(name string) int {
	if idx, ok := h.boneIndex[name]; ok {
		return idx
	}
	return IndexNone
}

// CurveIndex returns the index of the named curve, or IndexNone.
func (h *Hierarchy) CurveIndex(name string) int {
	if idx, ok := h.curveIndex[name]; ok {
		return idx
	}
	return IndexNone
}

// BoneCount returns the number of bones.
func (h *Hierarchy) BoneCount() int { return len(h.bones) }

// CurveCount returns the number of curves.
func (h *Hierarchy) CurveCount() int { return len(h.curves) }

// Bone returns bone i.
func (h *Hierarchy) Bone(i int) Bone { return h.bones[i] }

// BoneNames returns bone names in index order.
func (h *Hierarchy) BoneNames() []string {
	names := make([]string, len(h.bones))
	for i, b := range h.bones {
		names[i] = b.Name
	}
	return names
}

// CurveNames returns curve names in index order.
func (h *Hierarchy) CurveNames() []string {
	return append([]string(nil), h.curveNames...)
}

// Local returns the parent-relative transform of bone i.
func (h *Hierarchy) Local(i int) math.Transform { return h.bones[i].Local }

// SetLocal sets the parent-relative transform of bone i.
func (h *Hierarchy) SetLocal(i int, t math.Transform) {
	h.bones[i].Local = t
	h.dirty = true
}

// Global returns the world transform of bone i.
func (h *Hierarchy) Global(i int) math.Transform {
	h.resolve()
	return h.globals[i]
}

// SetGlobal places bone i at a world transform by rewriting its local
// transform. Children follow.
func (h *Hierarchy) SetGlobal(i int, t math.Transform) {
	parent := h.bones[i].Parent
	if parent == IndexNone {
		h.SetLocal(i, t)
		return
	}
	h.SetLocal(i, h.Global(parent).Relative(t))
}

// Palette writes the world matrix of every bone into dst, growing it as
// needed, and returns it.
func (h *Hierarchy) Palette(dst []math.Mat4) []math.Mat4 {
	h.resolve()
	dst = dst[:0]
	for _, g := range h.globals {
		dst = append(dst, g.ToMat4())
	}
	return dst
}

// Curve returns the value of curve i.
func (h *Hierarchy) Curve(i int) float32 { return h.curves[i] }

// SetCurve sets the value of curve i.
func (h *Hierarchy) SetCurve(i int, v float32) { h.curves[i] = v }

// resolve recomputes global transforms. Parents always precede children,
// so one forward pass suffices.
func (h *Hierarchy) resolve() {
	if !h.dirty {
		return
	}
	for i, b := range h.bones {
		if b.Parent == IndexNone {
			h.globals[i] = b.Local
		} else {
			h.globals[i] = h.globals[b.Parent].Mul(b.Local)
		}
	}
	h.dirty = false
}
