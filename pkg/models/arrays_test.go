package models

import (
	"encoding/binary"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/taigrr/rasterix/pkg/bus"
	"github.com/taigrr/rasterix/pkg/config"
	"github.com/taigrr/rasterix/pkg/rrx"
)

func newTestContext(t *testing.T) *rrx.Context {
	t.Helper()
	cfg := config.Default()
	cfg.MaxDisplayWidth = 64
	cfg.MaxDisplayHeight = 32
	cfg.FramebufferSizeInPixelLg = 11
	cfg.NumberOfTexturePages = 64
	cfg.NumberOfTextures = 16
	cfg.TexturePageSize = 512
	cfg.MaxTextureSize = 16
	cfg.DisplayListSize = 16 * 1024
	mem := bus.NewMemory(cfg.BusBufferCount(), cfg.DisplayListSize, nil)
	c, err := rrx.New(cfg, mem, nil)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestPackLayout(t *testing.T) {
	a := quadMesh().Pack()
	if len(a.Data) != 4*VertexStride {
		t.Fatalf("len(Data) = %d", len(a.Data))
	}
	if a.Count != 6 || a.IndexType != rrx.UnsignedShort || len(a.Indices) != 12 {
		t.Fatalf("indices: count %d type %v bytes %d", a.Count, a.IndexType, len(a.Indices))
	}

	f := func(vertex, off int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(a.Data[vertex*VertexStride+off:]))
	}
	tests := []struct {
		name   string
		vertex int
		off    int
		want   float32
	}{
		{"position x", 1, positionOffset, 1},
		{"position y", 1, positionOffset + 4, -1},
		{"uv s", 2, uvOffset, 1},
		{"uv t", 2, uvOffset + 4, 1},
		{"color r", 3, colorOffset, 1},
		{"color a", 3, colorOffset + 12, 1},
		{"color g", 3, colorOffset + 4, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f(tt.vertex, tt.off); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}

	if got := binary.LittleEndian.Uint16(a.Indices[10:]); got != 3 {
		t.Errorf("last index = %d, want 3", got)
	}
}

func TestPackWideIndices(t *testing.T) {
	m := NewMesh("big")
	m.Vertices = make([]MeshVertex, math.MaxUint16+2)
	m.Faces = []Face{{V: [3]int{0, 1, math.MaxUint16 + 1}}}
	a := m.Pack()
	if a.IndexType != rrx.UnsignedInt || len(a.Indices) != 12 {
		t.Fatalf("type %v, %d index bytes", a.IndexType, len(a.Indices))
	}
	if got := binary.LittleEndian.Uint32(a.Indices[8:]); got != math.MaxUint16+1 {
		t.Errorf("last index = %d", got)
	}
}

func TestDrawSubmitsTriangles(t *testing.T) {
	c := newTestContext(t)
	if err := quadMesh().Pack().Draw(c); err != nil {
		t.Fatal(err)
	}
	st := c.Stats().Vertex
	if st.Triangles != 2 || st.Drawn != 2 {
		t.Errorf("stats = %+v, want 2 triangles drawn", st)
	}

	if err := (Arrays{}).Draw(c); err != nil {
		t.Errorf("empty Draw() = %v", err)
	}
}

func TestFitTexture(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 3, 5))
	for i := range src.Pix {
		src.Pix[i] = 0xff
	}
	tests := []struct {
		name    string
		img     image.Image
		maxSize int
		w, h    int
	}{
		{"round up", src, 16, 4, 8},
		{"clamped", src, 4, 4, 4},
		{"already square", image.NewRGBA(image.Rect(0, 0, 8, 8)), 16, 8, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FitTexture(tt.img, tt.maxSize)
			if got.Bounds().Dx() != tt.w || got.Bounds().Dy() != tt.h {
				t.Errorf("size = %v, want %dx%d", got.Bounds().Size(), tt.w, tt.h)
			}
		})
	}
}

func TestUploadTexture(t *testing.T) {
	c := newTestContext(t)
	m := quadMesh()
	if id, err := m.UploadTexture(c); id != 0 || err != nil {
		t.Fatalf("untextured UploadTexture() = %d, %v", id, err)
	}

	img := image.NewNRGBA(image.Rect(0, 0, 6, 6))
	for y := range 6 {
		for x := range 6 {
			img.Set(x, y, color.NRGBA{R: 255, A: 255})
		}
	}
	m.Texture = img
	id, err := m.UploadTexture(c)
	if err != nil {
		t.Fatal(err)
	}
	if id == 0 || !c.IsTexture(id) {
		t.Errorf("UploadTexture() = %d, want a live texture", id)
	}
}
