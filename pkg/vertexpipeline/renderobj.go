package vertexpipeline

import (
	"encoding/binary"
	"math"

	"github.com/taigrr/rasterix/pkg/math3d"
)

// DataType is the element type of a vertex or index array.
type DataType int

const (
	Byte DataType = iota
	UnsignedByte
	Short
	UnsignedShort
	UnsignedInt
	Float
)

func (t DataType) String() string {
	switch t {
	case Byte:
		return "byte"
	case UnsignedByte:
		return "unsigned_byte"
	case Short:
		return "short"
	case UnsignedShort:
		return "unsigned_short"
	case UnsignedInt:
		return "unsigned_int"
	case Float:
		return "float"
	}
	return "unknown"
}

// Size returns the size of one element in bytes.
func (t DataType) Size() int {
	switch t {
	case Byte, UnsignedByte:
		return 1
	case Short, UnsignedShort:
		return 2
	}
	return 4
}

// max returns the largest value of an integer type, used to normalize
// colors.
func (t DataType) max() float64 {
	switch t {
	case Byte:
		return math.MaxInt8
	case UnsignedByte:
		return math.MaxUint8
	case Short:
		return math.MaxInt16
	case UnsignedShort:
		return math.MaxUint16
	case UnsignedInt:
		return math.MaxUint32
	}
	return 1
}

// Array describes an interleaved or packed little-endian attribute array.
type Array struct {
	Enabled bool
	Size    int // components per element, 1..4
	Type    DataType
	Stride  int // bytes between elements, 0 for packed
	Data    []byte
}

func (a *Array) stride() int {
	if a.Stride != 0 {
		return a.Stride
	}
	return a.Size * a.Type.Size()
}

func (a *Array) component(off int) (float64, bool) {
	if off < 0 || off+a.Type.Size() > len(a.Data) {
		return 0, false
	}
	b := a.Data[off:]
	switch a.Type {
	case Byte:
		return float64(int8(b[0])), true
	case UnsignedByte:
		return float64(b[0]), true
	case Short:
		return float64(int16(binary.LittleEndian.Uint16(b))), true
	case UnsignedShort:
		return float64(binary.LittleEndian.Uint16(b)), true
	case UnsignedInt:
		return float64(binary.LittleEndian.Uint32(b)), true
	}
	return float64(math.Float32frombits(binary.LittleEndian.Uint32(b))), true
}

// Fetch reads element i over def. Components missing from the array or the
// data keep the value of def.
func (a *Array) Fetch(i int, def math3d.Vec4) math3d.Vec4 {
	out := [4]float64{def.X, def.Y, def.Z, def.W}
	base := i * a.stride()
	for c := range min(a.Size, 4) {
		if v, ok := a.component(base + c*a.Type.Size()); ok {
			out[c] = v
		}
	}
	return math3d.V4(out[0], out[1], out[2], out[3])
}

// FetchNormalized reads element i like Fetch and maps integer types to
// [0, 1] or [-1, 1].
func (a *Array) FetchNormalized(i int, def math3d.Vec4) math3d.Vec4 {
	v := a.Fetch(i, math3d.Vec4{})
	s := 1 / a.Type.max()
	out := [4]float64{def.X, def.Y, def.Z, def.W}
	for c := range min(a.Size, 4) {
		out[c] = v.Component(c) * s
	}
	return math3d.V4(out[0], out[1], out[2], out[3])
}

// RenderObj describes one draw call: its arrays, the current attribute
// values used where an array is disabled, and the vertex order.
type RenderObj struct {
	Mode  DrawMode
	Count int // vertices to draw
	First int // array offset when no index array is used

	Vertex   Array
	Normal   Array // always three components
	Color    Array
	TexCoord [MaxTMUCount]Array

	CurrentNormal   math3d.Vec3
	CurrentColor    math3d.Vec4
	CurrentTexCoord [MaxTMUCount]math3d.Vec4

	IndicesEnabled bool
	IndexType      DataType // UnsignedByte, UnsignedShort or UnsignedInt
	Indices        []byte
}

// NewRenderObj returns a draw call with the API default current normal and
// color.
func NewRenderObj() *RenderObj {
	o := &RenderObj{
		CurrentNormal: math3d.V3(0, 0, 1),
		CurrentColor:  math3d.V4(1, 1, 1, 1),
	}
	for i := range o.CurrentTexCoord {
		o.CurrentTexCoord[i] = math3d.V4(0, 0, 0, 1)
	}
	return o
}

// Index maps the i-th vertex of the draw call to its array element.
func (o *RenderObj) Index(i int) int {
	if !o.IndicesEnabled {
		return i + o.First
	}
	off := i * o.IndexType.Size()
	if off < 0 || off+o.IndexType.Size() > len(o.Indices) {
		return 0
	}
	b := o.Indices[off:]
	switch o.IndexType {
	case UnsignedByte, Byte:
		return int(b[0])
	case UnsignedShort, Short:
		return int(binary.LittleEndian.Uint16(b))
	}
	return int(binary.LittleEndian.Uint32(b))
}

// Position returns the position of array element i. Missing components
// are filled from (0, 0, 0, 1).
func (o *RenderObj) Position(i int) math3d.Vec4 {
	return o.Vertex.Fetch(i, math3d.V4(0, 0, 0, 1))
}

// NormalAt returns the normal of array element i or the current normal.
func (o *RenderObj) NormalAt(i int) math3d.Vec3 {
	if !o.Normal.Enabled {
		return o.CurrentNormal
	}
	n := o.Normal
	n.Size = 3
	return n.Fetch(i, math3d.V4FromV3(o.CurrentNormal, 0)).Vec3()
}

// ColorAt returns the color of array element i or the current color.
func (o *RenderObj) ColorAt(i int) math3d.Vec4 {
	if !o.Color.Enabled {
		return o.CurrentColor
	}
	return o.Color.FetchNormalized(i, math3d.V4(0, 0, 0, 1))
}

// TexCoordAt returns the coordinate of TMU tmu for array element i or the
// current coordinate.
func (o *RenderObj) TexCoordAt(tmu, i int) math3d.Vec4 {
	if !o.TexCoord[tmu].Enabled {
		return o.CurrentTexCoord[tmu]
	}
	return o.TexCoord[tmu].Fetch(i, math3d.V4(0, 0, 0, 1))
}
