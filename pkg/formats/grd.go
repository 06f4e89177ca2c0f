package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
)

// GRD format errors.
var (
	ErrInvalidGRDMagic       = errors.New("invalid GRD magic: expected 'GRND'")
	ErrUnsupportedGRDVersion = errors.New("unsupported GRD version")
	ErrTruncatedGRDData      = errors.New("truncated GRD data")
)

// GRDVersionCurrent is the version written by Encode.
const GRDVersionCurrent uint16 = 0x0100

// maxGRDSize bounds each grid dimension.
const maxGRDSize = 4096

// GRDSurface classifies a ground cell.
type GRDSurface uint8

// Surface types.
const (
	GRDSolid   GRDSurface = 0 // Walkable ground
	GRDBlocked GRDSurface = 1 // Never walkable
	GRDWater   GRDSurface = 2 // Probed as ground, not walkable
)

// String returns a human-readable surface name.
func (s GRDSurface) String() string {
	switch s {
	case GRDSolid:
		return "Solid"
	case GRDBlocked:
		return "Blocked"
	case GRDWater:
		return "Water"
	default:
		return fmt.Sprintf("Unknown(%d)", s)
	}
}

// IsWalkable reports whether characters may route across the surface.
func (s GRDSurface) IsWalkable() bool {
	return s == GRDSolid
}

// GRDCell is one cell of a ground table. Heights are the corners in the
// order (x, z), (x+1, z), (x, z+1), (x+1, z+1).
type GRDCell struct {
	Heights [4]float32
	Surface GRDSurface
}

// GRD is a ground table: a grid of cells with corner heights and a
// surface type, laid out row by row along +Z.
type GRD struct {
	Version  uint16
	Width    int
	Depth    int
	CellSize float32
	Cells    []GRDCell
}

// NewGRD returns a flat, solid table.
func NewGRD(width, depth int, cellSize float32) *GRD {
	return &GRD{
		Version:  GRDVersionCurrent,
		Width:    width,
		Depth:    depth,
		CellSize: cellSize,
		Cells:    make([]GRDCell, width*depth),
	}
}

// Cell returns the cell at (x, z), or nil outside the grid.
func (g *GRD) Cell(x, z int) *GRDCell {
	if x < 0 || z < 0 || x >= g.Width || z >= g.Depth {
		return nil
	}
	return &g.Cells[z*g.Width+x]
}

// CountBySurface returns the number of cells of each surface type.
func (g *GRD) CountBySurface() map[GRDSurface]int {
	counts := make(map[GRDSurface]int)
	for _, c := range g.Cells {
		counts[c.Surface]++
	}
	return counts
}

// HeightRange returns the lowest and highest corner.
func (g *GRD) HeightRange() (lo, hi float32) {
	if len(g.Cells) == 0 {
		return 0, 0
	}
	lo, hi = g.Cells[0].Heights[0], g.Cells[0].Heights[0]
	for _, c := range g.Cells {
		for _, h := range c.Heights {
			lo = min(lo, h)
			hi = max(hi, h)
		}
	}
	return lo, hi
}

// LoadGRD parses a GRD file from disk.
func LoadGRD(path string) (*GRD, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading GRD file: %w", err)
	}
	return ParseGRD(data)
}

// ParseGRD parses a GRD table from raw bytes.
func ParseGRD(data []byte) (*GRD, error) {
	const headerSize = 4 + 2 + 4 + 4 + 4
	if len(data) < headerSize {
		return nil, ErrTruncatedGRDData
	}
	if string(data[0:4]) != "GRND" {
		return nil, ErrInvalidGRDMagic
	}

	r := bytes.NewReader(data[4:])
	var header struct {
		Version  uint16
		Width    uint32
		Depth    uint32
		CellSize float32
	}
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("%w: reading header", ErrTruncatedGRDData)
	}
	if header.Version>>8 != GRDVersionCurrent>>8 {
		return nil, fmt.Errorf("%w: %d.%d", ErrUnsupportedGRDVersion, header.Version>>8, header.Version&0xFF)
	}
	if header.Width == 0 || header.Depth == 0 || header.Width > maxGRDSize || header.Depth > maxGRDSize {
		return nil, fmt.Errorf("invalid GRD dimensions: %dx%d", header.Width, header.Depth)
	}
	if !(header.CellSize > 0) {
		return nil, fmt.Errorf("invalid GRD cell size: %v", header.CellSize)
	}

	g := NewGRD(int(header.Width), int(header.Depth), header.CellSize)
	g.Version = header.Version
	for i := range g.Cells {
		if err := binary.Read(r, binary.LittleEndian, &g.Cells[i].Heights); err != nil {
			return nil, fmt.Errorf("%w: cell %d heights", ErrTruncatedGRDData, i)
		}
		surface, err := r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("%w: cell %d surface", ErrTruncatedGRDData, i)
		}
		g.Cells[i].Surface = GRDSurface(surface)
	}
	return g, nil
}

// Encode serializes the table.
func (g *GRD) Encode() []byte {
	buf := new(bytes.Buffer)
	buf.WriteString("GRND")
	binary.Write(buf, binary.LittleEndian, GRDVersionCurrent)
	binary.Write(buf, binary.LittleEndian, uint32(g.Width))
	binary.Write(buf, binary.LittleEndian, uint32(g.Depth))
	binary.Write(buf, binary.LittleEndian, g.CellSize)
	for _, c := range g.Cells {
		binary.Write(buf, binary.LittleEndian, c.Heights)
		buf.WriteByte(byte(c.Surface))
	}
	return buf.Bytes()
}
