package rrx

import (
	"encoding/binary"
	"errors"
	"image"
	"math"
	"testing"

	"github.com/taigrr/rasterix/pkg/bus"
	"github.com/taigrr/rasterix/pkg/commands"
	"github.com/taigrr/rasterix/pkg/config"
	"github.com/taigrr/rasterix/pkg/math3d"
	"github.com/taigrr/rasterix/pkg/registers"
	"github.com/taigrr/rasterix/pkg/renderer"
)

const eps = 1e-9

func testConfig() config.RenderConfig {
	cfg := config.Default()
	cfg.MaxDisplayWidth = 64
	cfg.MaxDisplayHeight = 32
	cfg.FramebufferSizeInPixelLg = 11
	cfg.NumberOfTexturePages = 64
	cfg.NumberOfTextures = 16
	cfg.TexturePageSize = 512
	cfg.MaxTextureSize = 16
	cfg.DisplayListSize = 16 * 1024
	return cfg
}

func newTestContext(t *testing.T) (*Context, *bus.Memory) {
	t.Helper()
	cfg := testConfig()
	mem := bus.NewMemory(cfg.BusBufferCount(), cfg.DisplayListSize, nil)
	c, err := New(cfg, mem, nil)
	if err != nil {
		t.Fatal(err)
	}
	return c, mem
}

// registerWrites decodes every upload and counts the writes to addr.
func registerWrites(t *testing.T, mem *bus.Memory, addr uint32) int {
	t.Helper()
	var n int
	for _, up := range mem.Uploads() {
		entries, err := commands.Decoder{TMUs: 2}.Decode(up.Data)
		if err != nil {
			t.Fatal(err)
		}
		for _, e := range entries {
			for _, cmd := range e.Commands {
				if cmd.Op() == commands.OpWriteRegister && cmd.Header&commands.ImmMask == addr {
					n++
				}
			}
		}
	}
	return n
}

func float32Bytes(vs ...float32) []byte {
	b := make([]byte, 4*len(vs))
	for i, v := range vs {
		binary.LittleEndian.PutUint32(b[4*i:], math.Float32bits(v))
	}
	return b
}

func TestErrorKeepsFirstUnread(t *testing.T) {
	c, _ := newTestContext(t)
	if err := c.Error(); err != nil {
		t.Fatalf("fresh context Error() = %v", err)
	}
	if err := c.LineWidth(0); !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("LineWidth(0) = %v, want ErrInvalidValue", err)
	}
	if err := c.DepthFunc(registers.TestFunc(99)); !errors.Is(err, ErrInvalidEnum) {
		t.Fatalf("DepthFunc(99) = %v, want ErrInvalidEnum", err)
	}
	if err := c.Error(); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("Error() = %v, want the first error", err)
	}
	if err := c.Error(); err != nil {
		t.Errorf("Error() after read = %v, want nil", err)
	}
}

func TestMatrixStackThroughContext(t *testing.T) {
	c, _ := newTestContext(t)
	if err := c.MatrixMode(ModelViewMatrix); err != nil {
		t.Fatal(err)
	}
	c.Rotate(30, 0, 0, 1)
	before := c.CurrentMatrix()
	if err := c.PushMatrix(); err != nil {
		t.Fatal(err)
	}
	c.Translate(1, 2, 3)
	if err := c.PopMatrix(); err != nil {
		t.Fatal(err)
	}
	if c.CurrentMatrix() != before {
		t.Errorf("top after push, translate, pop = %v, want %v", c.CurrentMatrix(), before)
	}

	for range 16 {
		if err := c.PushMatrix(); err != nil {
			t.Fatal(err)
		}
	}
	if err := c.PushMatrix(); !errors.Is(err, ErrStackOverflow) {
		t.Errorf("17th PushMatrix = %v, want ErrStackOverflow", err)
	}
	if !errors.Is(c.Error(), ErrStackOverflow) {
		t.Error("overflow not recorded as the last error")
	}
	if err := c.MatrixMode(MatrixMode(42)); !errors.Is(err, ErrInvalidEnum) {
		t.Errorf("MatrixMode(42) = %v, want ErrInvalidEnum", err)
	}
}

func TestProjectionArguments(t *testing.T) {
	c, _ := newTestContext(t)
	tests := []struct {
		name string
		call func() error
		ok   bool
	}{
		{"frustum", func() error { return c.Frustum(-1, 1, -1, 1, 1, 10) }, true},
		{"frustum zero near", func() error { return c.Frustum(-1, 1, -1, 1, 0, 10) }, false},
		{"frustum flat", func() error { return c.Frustum(1, 1, -1, 1, 1, 10) }, false},
		{"ortho", func() error { return c.Ortho(0, 64, 0, 32, -1, 1) }, true},
		{"ortho flat", func() error { return c.Ortho(0, 64, 0, 32, 1, 1) }, false},
		{"perspective", func() error { return c.Perspective(60, 2, 0.1, 100) }, true},
		{"perspective fov", func() error { return c.Perspective(180, 2, 0.1, 100) }, false},
		{"look at", func() error { return c.LookAt(math3d.V3(0, 0, 5), math3d.Zero3(), math3d.V3(0, 1, 0)) }, true},
		{"look at up parallel", func() error { return c.LookAt(math3d.V3(0, 5, 0), math3d.Zero3(), math3d.V3(0, 1, 0)) }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			if tt.ok && err != nil {
				t.Errorf("err = %v, want nil", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidValue) {
				t.Errorf("err = %v, want ErrInvalidValue", err)
			}
			c.Error()
		})
	}
}

func TestImmediateMode(t *testing.T) {
	c, _ := newTestContext(t)
	if err := c.End(); !errors.Is(err, ErrInvalidOperation) {
		t.Errorf("End without Begin = %v, want ErrInvalidOperation", err)
	}
	if err := c.Vertex3(0, 0, 0); !errors.Is(err, ErrInvalidOperation) {
		t.Errorf("Vertex outside Begin = %v, want ErrInvalidOperation", err)
	}
	if err := c.Begin(DrawMode(99)); !errors.Is(err, ErrInvalidEnum) {
		t.Errorf("Begin(99) = %v, want ErrInvalidEnum", err)
	}
	c.Error()

	if err := c.Begin(Quads); err != nil {
		t.Fatal(err)
	}
	if err := c.Begin(Triangles); !errors.Is(err, ErrInvalidOperation) {
		t.Errorf("nested Begin = %v, want ErrInvalidOperation", err)
	}
	c.Color3(1, 0, 0)
	for _, v := range [][2]float64{{-0.5, -0.5}, {0.5, -0.5}, {0.5, 0.5}, {-0.5, 0.5}} {
		if err := c.Vertex2(v[0], v[1]); err != nil {
			t.Fatal(err)
		}
	}
	if err := c.SwapBuffers(); !errors.Is(err, ErrInvalidOperation) {
		t.Errorf("SwapBuffers inside Begin = %v, want ErrInvalidOperation", err)
	}
	if err := c.End(); err != nil {
		t.Fatal(err)
	}
	if s := c.Stats().Vertex; s.Vertices != 4 || s.Drawn != 2 {
		t.Errorf("vertex stats = %+v, want 4 vertices and 2 triangles", s)
	}
}

func TestDrawArraysAndElements(t *testing.T) {
	c, _ := newTestContext(t)
	quad := float32Bytes(
		-0.5, -0.5, 0,
		0.5, -0.5, 0,
		0.5, 0.5, 0,
		-0.5, 0.5, 0)
	if err := c.VertexPointer(3, Float, 0, quad); err != nil {
		t.Fatal(err)
	}
	if err := c.EnableClientState(VertexArray); err != nil {
		t.Fatal(err)
	}
	if err := c.DrawArrays(TriangleFan, 0, 4); err != nil {
		t.Fatal(err)
	}
	if got := c.Stats().Vertex.Drawn; got != 2 {
		t.Fatalf("DrawArrays drew %d triangles, want 2", got)
	}

	indices := []byte{0, 1, 2, 0, 2, 3}
	if err := c.DrawElements(Triangles, 6, UnsignedByte, indices); err != nil {
		t.Fatal(err)
	}
	if got := c.Stats().Vertex.Drawn; got != 4 {
		t.Errorf("after DrawElements drawn = %d, want 4", got)
	}
	if err := c.DrawElements(Triangles, 6, Float, indices); !errors.Is(err, ErrInvalidEnum) {
		t.Errorf("float indices = %v, want ErrInvalidEnum", err)
	}
	if err := c.VertexPointer(1, Float, 0, quad); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("VertexPointer size 1 = %v, want ErrInvalidValue", err)
	}
	if err := c.ClientActiveTexture(2); !errors.Is(err, ErrInvalidEnum) {
		t.Errorf("ClientActiveTexture(2) = %v, want ErrInvalidEnum", err)
	}
}

func TestEnableDisable(t *testing.T) {
	caps := []Capability{DepthTest, AlphaTest, Blend, StencilTest, StencilTestTwoSide, ScissorTest, Fog, CullFace, Lighting, Texture2D, Light0 + 3}
	for _, cp := range caps {
		t.Run(cp.String(), func(t *testing.T) {
			c, _ := newTestContext(t)
			if err := c.Enable(cp); err != nil {
				t.Fatal(err)
			}
			if on, err := c.IsEnabled(cp); err != nil || !on {
				t.Errorf("IsEnabled after Enable = %v, %v", on, err)
			}
			if err := c.Disable(cp); err != nil {
				t.Fatal(err)
			}
			if on, err := c.IsEnabled(cp); err != nil || on {
				t.Errorf("IsEnabled after Disable = %v, %v", on, err)
			}
		})
	}

	c, _ := newTestContext(t)
	if err := c.Enable(Light0 + 8); !errors.Is(err, ErrInvalidEnum) {
		t.Errorf("Enable(light8) = %v, want ErrInvalidEnum", err)
	}
	if err := c.Enable(Dither); err != nil {
		t.Errorf("Enable(dither) = %v, want a logged no-op", err)
	}
}

func TestStateUploadedOnlyOnChange(t *testing.T) {
	c, mem := newTestContext(t)
	draw := func() {
		t.Helper()
		if err := c.Begin(Triangles); err != nil {
			t.Fatal(err)
		}
		c.Vertex2(-0.5, -0.5)
		c.Vertex2(0.5, -0.5)
		c.Vertex2(0, 0.5)
		if err := c.End(); err != nil {
			t.Fatal(err)
		}
	}

	// Less is the reset value.
	if err := c.DepthFunc(registers.Less); err != nil {
		t.Fatal(err)
	}
	draw()
	if err := c.DepthFunc(registers.LEqual); err != nil {
		t.Fatal(err)
	}
	draw()
	draw()
	if err := c.SwapBuffers(); err != nil {
		t.Fatal(err)
	}
	// reset value plus one change
	if n := registerWrites(t, mem, registers.AddrFragmentPipeline); n != 2 {
		t.Errorf("fragment pipeline writes = %d, want 2", n)
	}
}

func TestLightPositionUsesModelView(t *testing.T) {
	c, _ := newTestContext(t)
	if err := c.MatrixMode(ModelViewMatrix); err != nil {
		t.Fatal(err)
	}
	c.Translate(1, 2, 3)
	if err := c.LightPosition(0, math3d.V4(0, 0, 0, 1)); err != nil {
		t.Fatal(err)
	}
	if err := c.LightPosition(1, math3d.V4(0, 0, 1, 0)); err != nil {
		t.Fatal(err)
	}
	c.LoadIdentity()

	tests := []struct {
		light int
		want  math3d.Vec4
	}{
		{0, math3d.V4(1, 2, 3, 1)},
		{1, math3d.V4(0, 0, 1, 0)},
	}
	for _, tt := range tests {
		l, err := c.VertexPipeline().Lighting().Light(tt.light)
		if err != nil {
			t.Fatal(err)
		}
		p := l.Position
		if math.Abs(p.X-tt.want.X) > eps || math.Abs(p.Y-tt.want.Y) > eps ||
			math.Abs(p.Z-tt.want.Z) > eps || math.Abs(p.W-tt.want.W) > eps {
			t.Errorf("light %d position = %v, want %v", tt.light, p, tt.want)
		}
	}
	if err := c.LightAmbient(8, math3d.V4(1, 1, 1, 1)); !errors.Is(err, ErrInvalidEnum) {
		t.Errorf("LightAmbient(8) = %v, want ErrInvalidEnum", err)
	}
	if err := c.MaterialShininess(129); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("MaterialShininess(129) = %v, want ErrInvalidValue", err)
	}
}

func TestTextureCalls(t *testing.T) {
	c, _ := newTestContext(t)
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	if err := c.TexImage2D(img, renderer.FormatRGBA); !errors.Is(err, ErrInvalidOperation) {
		t.Errorf("TexImage2D without binding = %v, want ErrInvalidOperation", err)
	}
	if err := c.BindTexture(7); err != nil {
		t.Fatal(err)
	}
	if !c.IsTexture(7) {
		t.Error("binding an unknown name did not create it")
	}
	if err := c.TexImage2D(image.NewNRGBA(image.Rect(0, 0, 3, 4)), renderer.FormatRGBA); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("3x4 image = %v, want ErrInvalidValue", err)
	}
	if err := c.TexImage2D(image.NewNRGBA(image.Rect(0, 0, 32, 32)), renderer.FormatRGBA); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("image above max size = %v, want ErrInvalidValue", err)
	}
	if err := c.TexImage2D(img, renderer.FormatRGB); err != nil {
		t.Fatal(err)
	}
	if err := c.TexWrap(registers.WrapClampToEdge, registers.WrapRepeat); err != nil {
		t.Fatal(err)
	}
	if err := c.CombineScale(3, 1); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("CombineScale(3) = %v, want ErrInvalidValue", err)
	}
	if err := c.TexGen(R, SphereMap); !errors.Is(err, ErrInvalidEnum) {
		t.Errorf("sphere map on R = %v, want ErrInvalidEnum", err)
	}
	if err := c.ActiveTexture(2); !errors.Is(err, ErrInvalidEnum) {
		t.Errorf("ActiveTexture(2) = %v, want ErrInvalidEnum", err)
	}

	id, err := c.GenTexture()
	if err != nil {
		t.Fatal(err)
	}
	if id == 0 || id == 7 {
		t.Errorf("GenTexture() = %d, want a fresh non-zero name", id)
	}
	if err := c.DeleteTexture(7); err != nil {
		t.Fatal(err)
	}
	if c.IsTexture(7) {
		t.Error("deleted texture is still valid")
	}
}

func TestBlendFuncRejectsSaturateDestination(t *testing.T) {
	c, _ := newTestContext(t)
	if err := c.BlendFunc(registers.BlendSrcAlphaSaturate, registers.BlendOne); err != nil {
		t.Errorf("saturate source = %v, want nil", err)
	}
	if err := c.BlendFunc(registers.BlendOne, registers.BlendSrcAlphaSaturate); !errors.Is(err, ErrInvalidEnum) {
		t.Errorf("saturate destination = %v, want ErrInvalidEnum", err)
	}
}

func TestUnsupportedCallsAreNoops(t *testing.T) {
	c, _ := newTestContext(t)
	c.Accum()
	c.NewList(1)
	c.EndList()
	c.CallList(1)
	c.PolygonMode()
	c.TexImage3D()
	if err := c.Error(); err != nil {
		t.Errorf("Error() = %v after unsupported calls, want nil", err)
	}
}

func TestClose(t *testing.T) {
	c, mem := newTestContext(t)
	if err := c.ClearColor(0, 0, 1, 1); err != nil {
		t.Fatal(err)
	}
	if err := c.Clear(ColorBuffer | DepthBuffer); err != nil {
		t.Fatal(err)
	}
	if err := c.Clear(Buffer(0x80)); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("Clear(0x80) = %v, want ErrInvalidValue", err)
	}
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	if len(mem.Uploads()) == 0 {
		t.Error("Close uploaded nothing")
	}
}
