package rig

import (
	"github.com/Faultbox/midgard-rig/pkg/math"
)

// CurveKey is one keyframe of a curve track. Time is in seconds.
type CurveKey struct {
	Time  float32 `yaml:"time"`
	Value float32 `yaml:"value"`
}

// RotationKey is one keyframe of a bone rotation track, x y z w.
type RotationKey struct {
	Time     float32    `yaml:"time"`
	Rotation [4]float32 `yaml:"rotation"`
}

// CurveTrack animates a named curve.
type CurveTrack struct {
	Curve string     `yaml:"curve"`
	Keys  []CurveKey `yaml:"keys"`
}

// RotationTrack animates the local rotation of a named bone.
type RotationTrack struct {
	Bone string        `yaml:"bone"`
	Keys []RotationKey `yaml:"keys"`
}

// Clip is a looping set of keyframed tracks. Keys must be sorted by time.
type Clip struct {
	Name      string          `yaml:"name"`
	Length    float32         `yaml:"length"`
	Curves    []CurveTrack    `yaml:"curves"`
	Rotations []RotationTrack `yaml:"rotations"`
}

// Apply samples the clip at time t, wrapped to the clip length, and writes
// the values into h. Tracks naming absent bones or curves are skipped.
func (c *Clip) Apply(h *Hierarchy, t float32) {
	if c.Length > 0 {
		t = math.Wrap01(t/c.Length) * c.Length
	}
	for _, track := range c.Curves {
		idx := h.CurveIndex(track.Curve)
		if idx == IndexNone || len(track.Keys) == 0 {
			continue
		}
		h.SetCurve(idx, SampleCurve(track.Keys, t))
	}
	for _, track := range c.Rotations {
		idx := h.BoneIndex(track.Bone)
		if idx == IndexNone || len(track.Keys) == 0 {
			continue
		}
		local := h.Local(idx)
		local.Rotation = SampleRotation(track.Keys, t)
		h.SetLocal(idx, local)
	}
}

// SampleCurve interpolates curve keys linearly at time t, holding the end
// values outside the key range.
func SampleCurve(keys []CurveKey, t float32) float32 {
	if len(keys) == 0 {
		return 0
	}
	prev, next := surrounding(len(keys), func(i int) float32 { return keys[i].Time }, t)
	if prev == next {
		return keys[prev].Value
	}
	k0, k1 := keys[prev], keys[next]
	return math.Lerp(k0.Value, k1.Value, keyAlpha(k0.Time, k1.Time, t))
}

// SampleRotation slerps rotation keys at time t.
func SampleRotation(keys []RotationKey, t float32) math.Quat {
	if len(keys) == 0 {
		return math.QuatIdentity()
	}
	prev, next := surrounding(len(keys), func(i int) float32 { return keys[i].Time }, t)
	q0 := quatKey(keys[prev].Rotation)
	if prev == next {
		return q0
	}
	q1 := quatKey(keys[next].Rotation)
	return q0.Slerp(q1, keyAlpha(keys[prev].Time, keys[next].Time, t))
}

// surrounding finds the keys bracketing t. prev == next outside the range.
func surrounding(n int, at func(int) float32, t float32) (prev, next int) {
	for i := 0; i < n; i++ {
		if at(i) > t {
			if i == 0 {
				return 0, 0
			}
			return prev, i
		}
		prev = i
	}
	return prev, prev
}

func keyAlpha(t0, t1, t float32) float32 {
	if t1 == t0 {
		return 0
	}
	return (t - t0) / (t1 - t0)
}

func quatKey(r [4]float32) math.Quat {
	return math.Quat{X: r[0], Y: r[1], Z: r[2], W: r[3]}.Normalize()
}

// TalkClip returns a short looping face performance for the biped: the jaw
// opens and closes, the brow lifts once and the neck turns side to side.
func TalkClip() *Clip {
	turn := func(deg float32) [4]float32 {
		q := math.QuatFromAxisAngle(math.Up, math.DegToRad(deg))
		return [4]float32{q.X, q.Y, q.Z, q.W}
	}
	return &Clip{
		Name:   "talk",
		Length: 2,
		Curves: []CurveTrack{
			{Curve: "jaw_open", Keys: []CurveKey{{0, 0}, {0.25, 0.8}, {0.5, 0.1}, {0.75, 0.6}, {1, 0}, {2, 0}}},
			{Curve: "brow_up", Keys: []CurveKey{{0, 0}, {1, 1}, {1.5, 0}}},
		},
		Rotations: []RotationTrack{
			{Bone: "neck", Keys: []RotationKey{{0, turn(0)}, {0.5, turn(20)}, {1.5, turn(-20)}, {2, turn(0)}}},
		},
	}
}
