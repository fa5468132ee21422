package registers

import "testing"

func TestSerialize(t *testing.T) {
	tests := []struct {
		name     string
		reg      Register
		addr     uint32
		expected uint32
	}{
		{"fragment pipeline default", DefaultFragmentPipeline(), 0x3, 0xFBFC2},
		{"tmu texture default", DefaultTmuTexture(0), 0xC, 0x800},
		{"tmu texture tmu1", TmuTexture{TMU: 1, WidthLg: 8, HeightLg: 7, PixelFormat: RGB565}, 0xF, 8 | 7<<4 | 2<<12},
		{"feature enable depth+tmu0", FeatureEnable{DepthTest: true, TMU: [2]bool{true, false}}, 0x0, 1<<2 | 1<<6},
		{"clear color", ColorBufferClearColor{Color{R: 1, G: 2, B: 3, A: 4}}, 0x1, 0x01020304},
		{"fog color", FogColor{Color{R: 0xff}}, 0x9, 0xff000000},
		{"tex env color tmu1", TexEnvColor{Color: Color{A: 0x80}, TMU: 1}, 0xE, 0x80},
		{"clear depth", DepthBufferClearDepth{Depth: 0xffff}, 0x2, 0xffff},
		{"scissor start masks", ScissorStart{X: 0xfff, Y: 3}, 0x5, 0x7ff | 3<<16},
		{"y offset drops x", YOffset{X: 5, Y: 0x900}, 0x7, 0x100 << 16},
		{"render resolution", RenderResolution{X: 640, Y: 480}, 0x8, 640 | 480<<16},
		{"color buffer address", ColorBufferAddr(0x1000, 0x100), 0x10, 0x1100},
		{"stencil buffer address", StencilBufferAddr(0x20, 0), 0x12, 0x20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.reg.Addr(); got != tt.addr {
				t.Errorf("Addr() = %#x, want %#x", got, tt.addr)
			}
			if got := tt.reg.Serialize(); got != tt.expected {
				t.Errorf("Serialize() = %#x, want %#x", got, tt.expected)
			}
		})
	}
}

func TestStencilClamps(t *testing.T) {
	s := DefaultStencil()
	s.Ref = 0x20
	clamped := DefaultStencil()
	clamped.Ref = MaxStencilValue
	if s.Serialize() != clamped.Serialize() {
		t.Errorf("Serialize() = %#x, want %#x", s.Serialize(), clamped.Serialize())
	}
	if got := DeserializeStencil(s.Serialize()).Ref; got != MaxStencilValue {
		t.Errorf("Ref = %d, want %d", got, MaxStencilValue)
	}
}

func TestDeserializeInverse(t *testing.T) {
	fp := FragmentPipeline{
		DepthFunc:    GEqual,
		AlphaFunc:    Greater,
		RefAlpha:     0x42,
		DepthMask:    true,
		ColorMaskR:   true,
		BlendSFactor: BlendSrcAlpha,
		BlendDFactor: BlendOneMinusSrcAlpha,
	}
	if got := DeserializeFragmentPipeline(fp.Serialize()); got != fp {
		t.Errorf("fragment pipeline = %+v, want %+v", got, fp)
	}

	st := Stencil{TestFunc: NotEqual, Mask: 3, Ref: 7, OpZPass: StencilIncrWrap, OpZFail: StencilInvert, OpFail: StencilZero, ClearStencil: 1, StencilMask: 9}
	if got := DeserializeStencil(st.Serialize()); got != st {
		t.Errorf("stencil = %+v, want %+v", got, st)
	}

	te := DefaultTexEnv(1)
	te.CombineRGB = CombineDot3RGBA
	te.OperandAlpha[2] = OperandOneMinusSrcAlpha
	te.ShiftRGB = 2
	if got := DeserializeTexEnv(1, te.Serialize()); got != te {
		t.Errorf("tex env = %+v, want %+v", got, te)
	}

	fe := FeatureEnable{Fog: true, StencilTest: true, TMU: [2]bool{false, true}}
	if got := DeserializeFeatureEnable(fe.Serialize()); got != fe {
		t.Errorf("feature enable = %+v, want %+v", got, fe)
	}
}

func TestTexEnvFitsRegister(t *testing.T) {
	te := TexEnv{
		CombineRGB:   CombineDot3RGBA,
		CombineAlpha: CombineDot3RGBA,
		SrcRGB:       [3]SrcReg{SrcPrevious, SrcPrevious, SrcPrevious},
		SrcAlpha:     [3]SrcReg{SrcPrevious, SrcPrevious, SrcPrevious},
		OperandRGB:   [3]Operand{OperandOneMinusSrcColor, OperandOneMinusSrcColor, OperandOneMinusSrcColor},
		OperandAlpha: [3]Operand{OperandOneMinusSrcAlpha, OperandOneMinusSrcAlpha, OperandOneMinusSrcAlpha},
		ShiftRGB:     3,
		ShiftAlpha:   3,
	}
	// 3+3+6+6+6+3+2+2 = 31 bits
	if got := te.Serialize(); got != 1<<31-1 {
		t.Errorf("Serialize() = %#x, want %#x", got, uint32(1<<31-1))
	}
}
