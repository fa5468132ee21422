package models

import (
	"encoding/binary"
	"fmt"
	"image"
	"math"

	"golang.org/x/image/draw"

	"github.com/taigrr/rasterix/pkg/renderer"
	"github.com/taigrr/rasterix/pkg/rrx"
)

// Interleaved vertex layout of Arrays.Data: float32 position, normal, uv
// and color.
const (
	positionOffset = 0
	normalOffset   = 12
	uvOffset       = 24
	colorOffset    = 32
	VertexStride   = 48
)

// Arrays is a mesh packed for DrawElements.
type Arrays struct {
	Data      []byte // interleaved vertices, VertexStride bytes each
	Indices   []byte // little-endian, IndexType elements
	IndexType rrx.DataType
	Count     int // indices to draw
}

// Pack interleaves the vertices of m and flattens its faces into an index
// buffer. Small meshes use 16 bit indices.
func (m *Mesh) Pack() Arrays {
	a := Arrays{
		Data:  make([]byte, len(m.Vertices)*VertexStride),
		Count: len(m.Faces) * 3,
	}
	for i, v := range m.Vertices {
		b := a.Data[i*VertexStride:]
		putFloats(b[positionOffset:], v.Position.X, v.Position.Y, v.Position.Z)
		putFloats(b[normalOffset:], v.Normal.X, v.Normal.Y, v.Normal.Z)
		putFloats(b[uvOffset:], v.UV.X, v.UV.Y)
		putFloats(b[colorOffset:], v.Color.X, v.Color.Y, v.Color.Z, v.Color.W)
	}

	if len(m.Vertices) <= math.MaxUint16+1 {
		a.IndexType = rrx.UnsignedShort
		a.Indices = make([]byte, 0, a.Count*2)
		for _, f := range m.Faces {
			for _, i := range f.V {
				a.Indices = binary.LittleEndian.AppendUint16(a.Indices, uint16(i))
			}
		}
		return a
	}
	a.IndexType = rrx.UnsignedInt
	a.Indices = make([]byte, 0, a.Count*4)
	for _, f := range m.Faces {
		for _, i := range f.V {
			a.Indices = binary.LittleEndian.AppendUint32(a.Indices, uint32(i))
		}
	}
	return a
}

func putFloats(b []byte, vs ...float64) {
	for i, v := range vs {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(float32(v)))
	}
}

// Bind points the client arrays of ctx at a and enables them. Texture
// coordinates are bound to TMU 0.
func (a Arrays) Bind(ctx *rrx.Context) error {
	if len(a.Data) == 0 {
		return nil
	}
	steps := []func() error{
		func() error { return ctx.VertexPointer(3, rrx.Float, VertexStride, a.Data[positionOffset:]) },
		func() error { return ctx.NormalPointer(rrx.Float, VertexStride, a.Data[normalOffset:]) },
		func() error { return ctx.ColorPointer(4, rrx.Float, VertexStride, a.Data[colorOffset:]) },
		func() error { return ctx.ClientActiveTexture(0) },
		func() error { return ctx.TexCoordPointer(2, rrx.Float, VertexStride, a.Data[uvOffset:]) },
		func() error { return ctx.EnableClientState(rrx.VertexArray) },
		func() error { return ctx.EnableClientState(rrx.NormalArray) },
		func() error { return ctx.EnableClientState(rrx.ColorArray) },
		func() error { return ctx.EnableClientState(rrx.TextureCoordArray) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return fmt.Errorf("bind arrays: %w", err)
		}
	}
	return nil
}

// Draw binds a and draws its triangles.
func (a Arrays) Draw(ctx *rrx.Context) error {
	if a.Count == 0 {
		return nil
	}
	if err := a.Bind(ctx); err != nil {
		return err
	}
	return ctx.DrawElements(rrx.Triangles, a.Count, a.IndexType, a.Indices)
}

// FitTexture scales img to the nearest power of two sides no larger than
// maxSize, as texture units require.
func FitTexture(img image.Image, maxSize int) *image.NRGBA {
	b := img.Bounds()
	w := min(ceilPow2(b.Dx()), maxSize)
	h := min(ceilPow2(b.Dy()), maxSize)
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
		return dst
	}
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

func ceilPow2(v int) int {
	p := 1
	for p < v {
		p <<= 1
	}
	return p
}

// UploadTexture creates a texture from the mesh texture on the active TMU
// and binds it. It returns 0 when the mesh has no texture.
func (m *Mesh) UploadTexture(ctx *rrx.Context) (uint16, error) {
	if m.Texture == nil {
		return 0, nil
	}
	id, err := ctx.GenTexture()
	if err != nil {
		return 0, err
	}
	if err := ctx.BindTexture(id); err != nil {
		return 0, err
	}
	img := FitTexture(m.Texture, ctx.Config().MaxTextureSize)
	if err := ctx.TexImage2D(img, renderer.FormatRGBA); err != nil {
		return 0, fmt.Errorf("upload %s texture: %w", m.Name, err)
	}
	return id, nil
}
