package vertexpipeline

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/taigrr/rasterix/pkg/math3d"
)

func floats(vs ...float32) []byte {
	b := make([]byte, 0, 4*len(vs))
	for _, v := range vs {
		b = binary.LittleEndian.AppendUint32(b, math.Float32bits(v))
	}
	return b
}

func shorts(vs ...int16) []byte {
	b := make([]byte, 0, 2*len(vs))
	for _, v := range vs {
		b = binary.LittleEndian.AppendUint16(b, uint16(v))
	}
	return b
}

func TestArrayFetch(t *testing.T) {
	def := math3d.V4(0, 0, 0, 1)
	tests := []struct {
		name string
		arr  Array
		i    int
		want math3d.Vec4
	}{
		{"packed float xy", Array{Size: 2, Type: Float, Data: floats(1, 2, 3, 4)}, 1, math3d.V4(3, 4, 0, 1)},
		{"packed float xyz", Array{Size: 3, Type: Float, Data: floats(1, 2, 3, 4, 5, 6)}, 1, math3d.V4(4, 5, 6, 1)},
		{"strided float", Array{Size: 2, Type: Float, Stride: 12, Data: floats(1, 2, 9, 3, 4, 9)}, 1, math3d.V4(3, 4, 0, 1)},
		{"signed byte", Array{Size: 3, Type: Byte, Data: []byte{0xff, 2, 0x80}}, 0, math3d.V4(-1, 2, -128, 1)},
		{"short", Array{Size: 2, Type: Short, Data: shorts(-5, 7)}, 0, math3d.V4(-5, 7, 0, 1)},
		{"unsigned int", Array{Size: 1, Type: UnsignedInt, Data: []byte{1, 1, 0, 0}}, 0, math3d.V4(257, 0, 0, 1)},
		{"past the end", Array{Size: 3, Type: Float, Data: floats(1, 2, 3)}, 1, def},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.arr.Fetch(tt.i, def); got != tt.want {
				t.Errorf("Fetch(%d) = %v, want %v", tt.i, got, tt.want)
			}
		})
	}
}

func TestColorNormalization(t *testing.T) {
	tests := []struct {
		name string
		arr  Array
		want math3d.Vec4
	}{
		{"unsigned byte", Array{Enabled: true, Size: 4, Type: UnsignedByte, Data: []byte{255, 0, 51, 255}}, math3d.V4(1, 0, 0.2, 1)},
		{"rgb keeps alpha", Array{Enabled: true, Size: 3, Type: UnsignedByte, Data: []byte{0, 255, 0}}, math3d.V4(0, 1, 0, 1)},
		{"short", Array{Enabled: true, Size: 4, Type: Short, Data: shorts(32767, 0, 0, 32767)}, math3d.V4(1, 0, 0, 1)},
		{"float", Array{Enabled: true, Size: 4, Type: Float, Data: floats(0.5, 0.25, 0, 1)}, math3d.V4(0.5, 0.25, 0, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewRenderObj()
			o.Color = tt.arr
			if got := o.ColorAt(0); !approxVec4(got, tt.want) {
				t.Errorf("ColorAt(0) = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRenderObjDefaults(t *testing.T) {
	o := NewRenderObj()
	o.CurrentTexCoord[1] = math3d.V4(0.5, 0.5, 0, 1)
	if got := o.NormalAt(3); got != math3d.V3(0, 0, 1) {
		t.Errorf("NormalAt() = %v, want +z", got)
	}
	if got := o.ColorAt(3); got != math3d.V4(1, 1, 1, 1) {
		t.Errorf("ColorAt() = %v, want white", got)
	}
	if got := o.TexCoordAt(1, 3); got != math3d.V4(0.5, 0.5, 0, 1) {
		t.Errorf("TexCoordAt() = %v, want current coordinate", got)
	}

	o.Normal = Array{Enabled: true, Size: 1, Type: Float, Data: floats(0, 1, 0)}
	if got := o.NormalAt(0); got != math3d.V3(0, 1, 0) {
		t.Errorf("NormalAt(0) = %v, want +y", got)
	}
}

func TestRenderObjIndex(t *testing.T) {
	tests := []struct {
		name string
		obj  RenderObj
		want []int
	}{
		{"first offset", RenderObj{First: 4}, []int{4, 5, 6}},
		{"byte indices", RenderObj{IndicesEnabled: true, IndexType: UnsignedByte, Indices: []byte{2, 0, 1}}, []int{2, 0, 1}},
		{"short indices", RenderObj{IndicesEnabled: true, IndexType: UnsignedShort, Indices: shorts(300, 1, 2)}, []int{300, 1, 2}},
		{"int indices", RenderObj{IndicesEnabled: true, IndexType: UnsignedInt, Indices: []byte{0, 0, 1, 0, 7, 0, 0, 0, 1, 0, 0, 0}}, []int{65536, 7, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i, want := range tt.want {
				if got := tt.obj.Index(i); got != want {
					t.Errorf("Index(%d) = %d, want %d", i, got, want)
				}
			}
		})
	}
}
