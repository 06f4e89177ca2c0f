package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// BHV format errors.
var (
	ErrInvalidBHVMagic       = errors.New("invalid BHV magic: expected 'BH'")
	ErrUnsupportedBHVVersion = errors.New("unsupported BHV version")
	ErrTruncatedBHVData      = errors.New("truncated BHV data")
)

// BHVVersionCurrent is the version written by Encode.
const BHVVersionCurrent BHVVersion = 0x0100

// BHVVersion represents the BHV file version.
type BHVVersion uint16

// String returns the version as "Major.Minor".
func (v BHVVersion) String() string {
	return fmt.Sprintf("%d.%d", v>>8, v&0xFF)
}

// BHV is a rig behavior table package: the controls, joints, blend shapes
// and animated maps of a character rig plus the tables that drive them.
// Indices into the control vector address the layout
// [raw controls | correctives | ML controls].
type BHV struct {
	Version  BHVVersion `yaml:"-"`
	Name     string     `yaml:"name"`
	LODCount int        `yaml:"lod_count"`

	GUIControls []string          `yaml:"gui_controls,omitempty"`
	GUIToRaw    []BHVRangeMapping `yaml:"gui_to_raw,omitempty"`
	RawControls []string          `yaml:"raw_controls"`
	Correctives []BHVCorrective   `yaml:"correctives,omitempty"`
	MLControls  []string          `yaml:"ml_controls,omitempty"`
	Networks    []BHVNetwork      `yaml:"networks,omitempty"`

	Joints      []BHVJoint      `yaml:"joints,omitempty"`
	JointLODs   []int           `yaml:"joint_lods,omitempty"`
	JointGroups []BHVJointGroup `yaml:"joint_groups,omitempty"`

	BlendShapes    []BHVBlendShape `yaml:"blend_shapes,omitempty"`
	BlendShapeLODs []int           `yaml:"blend_shape_lods,omitempty"`

	AnimatedMaps            []string          `yaml:"animated_maps,omitempty"`
	AnimatedMapLODs         []int             `yaml:"animated_map_lods,omitempty"`
	AnimatedMapConditionals []BHVRangeMapping `yaml:"animated_map_conditionals,omitempty"`

	DriverJoints []BHVDriverJoint `yaml:"driver_joints,omitempty"`
}

// BHVRangeMapping maps an input into an output over the interval
// [From, To] as Slope*value + Cut.
type BHVRangeMapping struct {
	Input  int     `yaml:"input"`
	Output int     `yaml:"output"`
	From   float32 `yaml:"from"`
	To     float32 `yaml:"to"`
	Slope  float32 `yaml:"slope"`
	Cut    float32 `yaml:"cut"`
}

// BHVCorrective is a pose-space corrective: the product of its weighted
// inputs.
type BHVCorrective struct {
	Name    string    `yaml:"name"`
	Inputs  []int     `yaml:"inputs"`
	Weights []float32 `yaml:"weights"`
}

// BHVNetwork is a small fully connected network feeding ML controls.
// Inputs index the control vector, Outputs index MLControls.
type BHVNetwork struct {
	Name    string     `yaml:"name"`
	Inputs  []int      `yaml:"inputs"`
	Outputs []int      `yaml:"outputs"`
	Layers  []BHVLayer `yaml:"layers"`
}

// BHVLayer holds row-major weights (outputs x inputs).
type BHVLayer struct {
	Activation string    `yaml:"activation"`
	Weights    []float32 `yaml:"weights"`
	Biases     []float32 `yaml:"biases"`
	Params     []float32 `yaml:"params,omitempty"`
}

// BHVJoint is a driven joint and its neutral (bind) local transform.
// Rotation is a quaternion stored as x, y, z, w.
type BHVJoint struct {
	Name        string     `yaml:"name"`
	Translation [3]float32 `yaml:"translation"`
	Rotation    [4]float32 `yaml:"rotation"`
	Scale       [3]float32 `yaml:"scale"`
}

// BHVJointGroup is a dense block of the joint matrix. Outputs are joint
// attribute indices (joint*9 + dof, dofs tx ty tz rx ry rz sx sy sz with
// rotations in degrees). LODRows gives the number of leading output rows
// evaluated at each LOD. Values is row-major (outputs x inputs).
type BHVJointGroup struct {
	Inputs  []int     `yaml:"inputs"`
	Outputs []int     `yaml:"outputs"`
	LODRows []int     `yaml:"lod_rows"`
	Values  []float32 `yaml:"values"`
}

// BHVBlendShape is a blend shape channel read from one control.
type BHVBlendShape struct {
	Name  string `yaml:"name"`
	Input int    `yaml:"input"`
}

// BHVDriverJoint feeds a joint's rotation, relative to its neutral
// rotation, into four raw controls.
type BHVDriverJoint struct {
	Joint           string     `yaml:"joint"`
	NeutralRotation [4]float32 `yaml:"neutral_rotation"`
	RawX            int        `yaml:"raw_x"`
	RawY            int        `yaml:"raw_y"`
	RawZ            int        `yaml:"raw_z"`
	RawW            int        `yaml:"raw_w"`
}

// LoadBHV reads and parses a binary BHV file.
func LoadBHV(path string) (*BHV, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading BHV file: %w", err)
	}
	return ParseBHV(data)
}

// ParseBHVYAML parses the text form of a BHV table package.
func ParseBHVYAML(data []byte) (*BHV, error) {
	bhv := &BHV{}
	if err := yaml.Unmarshal(data, bhv); err != nil {
		return nil, fmt.Errorf("parsing BHV yaml: %w", err)
	}
	bhv.Version = BHVVersionCurrent
	return bhv, nil
}

// ParseBHV parses a BHV file from raw bytes.
func ParseBHV(data []byte) (*BHV, error) {
	if len(data) < 8 {
		return nil, ErrTruncatedBHVData
	}
	if data[0] != 'B' || data[1] != 'H' {
		return nil, ErrInvalidBHVMagic
	}

	// Version is stored as Minor, Major
	version := BHVVersion(uint16(data[3])<<8 | uint16(data[2]))
	if version != BHVVersionCurrent {
		return nil, fmt.Errorf("%w: 0x%X", ErrUnsupportedBHVVersion, uint16(version))
	}

	r := &bhvReader{r: bytes.NewReader(data[8:])}
	bhv := &BHV{Version: version}

	bhv.Name = r.str()
	bhv.LODCount = int(r.u16())

	bhv.GUIControls = r.strs()
	bhv.GUIToRaw = r.rangeMappings()
	bhv.RawControls = r.strs()

	n := r.count()
	for i := 0; i < n && r.err == nil; i++ {
		bhv.Correctives = append(bhv.Correctives, BHVCorrective{
			Name:    r.str(),
			Inputs:  r.ints(),
			Weights: r.floats(),
		})
	}

	bhv.MLControls = r.strs()
	n = r.count()
	for i := 0; i < n && r.err == nil; i++ {
		net := BHVNetwork{Name: r.str(), Inputs: r.ints(), Outputs: r.ints()}
		layers := r.count()
		for l := 0; l < layers && r.err == nil; l++ {
			net.Layers = append(net.Layers, BHVLayer{
				Activation: r.str(),
				Weights:    r.floats(),
				Biases:     r.floats(),
				Params:     r.floats(),
			})
		}
		bhv.Networks = append(bhv.Networks, net)
	}

	n = r.count()
	for i := 0; i < n && r.err == nil; i++ {
		j := BHVJoint{Name: r.str()}
		for k := range j.Translation {
			j.Translation[k] = r.f32()
		}
		for k := range j.Rotation {
			j.Rotation[k] = r.f32()
		}
		for k := range j.Scale {
			j.Scale[k] = r.f32()
		}
		bhv.Joints = append(bhv.Joints, j)
	}
	bhv.JointLODs = r.ints()

	n = r.count()
	for i := 0; i < n && r.err == nil; i++ {
		bhv.JointGroups = append(bhv.JointGroups, BHVJointGroup{
			Inputs:  r.ints(),
			Outputs: r.ints(),
			LODRows: r.ints(),
			Values:  r.floats(),
		})
	}

	n = r.count()
	for i := 0; i < n && r.err == nil; i++ {
		bhv.BlendShapes = append(bhv.BlendShapes, BHVBlendShape{Name: r.str(), Input: int(r.i32())})
	}
	bhv.BlendShapeLODs = r.ints()

	bhv.AnimatedMaps = r.strs()
	bhv.AnimatedMapLODs = r.ints()
	bhv.AnimatedMapConditionals = r.rangeMappings()

	n = r.count()
	for i := 0; i < n && r.err == nil; i++ {
		d := BHVDriverJoint{Joint: r.str()}
		for k := range d.NeutralRotation {
			d.NeutralRotation[k] = r.f32()
		}
		d.RawX = int(r.i32())
		d.RawY = int(r.i32())
		d.RawZ = int(r.i32())
		d.RawW = int(r.i32())
		bhv.DriverJoints = append(bhv.DriverJoints, d)
	}

	if r.err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTruncatedBHVData, r.err)
	}
	return bhv, nil
}

// Encode serializes the package into the binary BHV layout.
func (b *BHV) Encode() []byte {
	var buf bytes.Buffer
	w := &bhvWriter{w: &buf}

	// Header (8 bytes)
	buf.WriteString("BH")
	buf.WriteByte(byte(BHVVersionCurrent & 0xFF))
	buf.WriteByte(byte(BHVVersionCurrent >> 8))
	buf.Write(make([]byte, 4)) // reserved

	w.str(b.Name)
	w.u16(uint16(b.LODCount))

	w.strs(b.GUIControls)
	w.rangeMappings(b.GUIToRaw)
	w.strs(b.RawControls)

	w.count(len(b.Correctives))
	for _, c := range b.Correctives {
		w.str(c.Name)
		w.ints(c.Inputs)
		w.floats(c.Weights)
	}

	w.strs(b.MLControls)
	w.count(len(b.Networks))
	for _, net := range b.Networks {
		w.str(net.Name)
		w.ints(net.Inputs)
		w.ints(net.Outputs)
		w.count(len(net.Layers))
		for _, l := range net.Layers {
			w.str(l.Activation)
			w.floats(l.Weights)
			w.floats(l.Biases)
			w.floats(l.Params)
		}
	}

	w.count(len(b.Joints))
	for _, j := range b.Joints {
		w.str(j.Name)
		for _, v := range j.Translation {
			w.f32(v)
		}
		for _, v := range j.Rotation {
			w.f32(v)
		}
		for _, v := range j.Scale {
			w.f32(v)
		}
	}
	w.ints(b.JointLODs)

	w.count(len(b.JointGroups))
	for _, g := range b.JointGroups {
		w.ints(g.Inputs)
		w.ints(g.Outputs)
		w.ints(g.LODRows)
		w.floats(g.Values)
	}

	w.count(len(b.BlendShapes))
	for _, s := range b.BlendShapes {
		w.str(s.Name)
		w.i32(int32(s.Input))
	}
	w.ints(b.BlendShapeLODs)

	w.strs(b.AnimatedMaps)
	w.ints(b.AnimatedMapLODs)
	w.rangeMappings(b.AnimatedMapConditionals)

	w.count(len(b.DriverJoints))
	for _, d := range b.DriverJoints {
		w.str(d.Joint)
		for _, v := range d.NeutralRotation {
			w.f32(v)
		}
		w.i32(int32(d.RawX))
		w.i32(int32(d.RawY))
		w.i32(int32(d.RawZ))
		w.i32(int32(d.RawW))
	}

	return buf.Bytes()
}

// EncodeYAML returns the text form read by ParseBHVYAML.
func (b *BHV) EncodeYAML() ([]byte, error) {
	return yaml.Marshal(b)
}

// bhvReader reads little-endian fields and keeps the first error.
type bhvReader struct {
	r   *bytes.Reader
	err error
}

func (r *bhvReader) read(v any) {
	if r.err != nil {
		return
	}
	r.err = binary.Read(r.r, binary.LittleEndian, v)
}

func (r *bhvReader) u16() uint16 {
	var v uint16
	r.read(&v)
	return v
}

func (r *bhvReader) i32() int32 {
	var v int32
	r.read(&v)
	return v
}

func (r *bhvReader) f32() float32 {
	var v uint32
	r.read(&v)
	return math.Float32frombits(v)
}

// count reads an element count and rejects counts larger than the
// remaining data could possibly hold.
func (r *bhvReader) count() int {
	var v uint32
	r.read(&v)
	if r.err == nil && int64(v) > int64(r.r.Len()) {
		r.err = io.ErrUnexpectedEOF
		return 0
	}
	return int(v)
}

func (r *bhvReader) str() string {
	n := r.u16()
	if r.err != nil {
		return ""
	}
	if int(n) > r.r.Len() {
		r.err = io.ErrUnexpectedEOF
		return ""
	}
	buf := make([]byte, n)
	_, r.err = io.ReadFull(r.r, buf)
	return string(buf)
}

func (r *bhvReader) strs() []string {
	n := r.count()
	var out []string
	for i := 0; i < n && r.err == nil; i++ {
		out = append(out, r.str())
	}
	return out
}

func (r *bhvReader) ints() []int {
	n := r.count()
	var out []int
	for i := 0; i < n && r.err == nil; i++ {
		out = append(out, int(r.i32()))
	}
	return out
}

func (r *bhvReader) floats() []float32 {
	n := r.count()
	var out []float32
	for i := 0; i < n && r.err == nil; i++ {
		out = append(out, r.f32())
	}
	return out
}

func (r *bhvReader) rangeMappings() []BHVRangeMapping {
	n := r.count()
	var out []BHVRangeMapping
	for i := 0; i < n && r.err == nil; i++ {
		out = append(out, BHVRangeMapping{
			Input:  int(r.i32()),
			Output: int(r.i32()),
			From:   r.f32(),
			To:     r.f32(),
			Slope:  r.f32(),
			Cut:    r.f32(),
		})
	}
	return out
}

type bhvWriter struct {
	w *bytes.Buffer
}

func (w *bhvWriter) u16(v uint16) {
	_ = binary.Write(w.w, binary.LittleEndian, v)
}

func (w *bhvWriter) i32(v int32) {
	_ = binary.Write(w.w, binary.LittleEndian, v)
}

func (w *bhvWriter) f32(v float32) {
	_ = binary.Write(w.w, binary.LittleEndian, math.Float32bits(v))
}

func (w *bhvWriter) count(n int) {
	_ = binary.Write(w.w, binary.LittleEndian, uint32(n))
}

func (w *bhvWriter) str(s string) {
	w.u16(uint16(len(s)))
	w.w.WriteString(s)
}

func (w *bhvWriter) strs(v []string) {
	w.count(len(v))
	for _, s := range v {
		w.str(s)
	}
}

func (w *bhvWriter) ints(v []int) {
	w.count(len(v))
	for _, x := range v {
		w.i32(int32(x))
	}
}

func (w *bhvWriter) floats(v []float32) {
	w.count(len(v))
	for _, x := range v {
		w.f32(x)
	}
}

func (w *bhvWriter) rangeMappings(v []BHVRangeMapping) {
	w.count(len(v))
	for _, m := range v {
		w.i32(int32(m.Input))
		w.i32(int32(m.Output))
		w.f32(m.From)
		w.f32(m.To)
		w.f32(m.Slope)
		w.f32(m.Cut)
	}
}
