// Package registers holds the typed device registers and their 32-bit wire
// layout. Fields are packed LSB first.
package registers

import "github.com/taigrr/rasterix/pkg/math3d"

// Register addresses.
const (
	AddrFeatureEnable         uint32 = 0x0
	AddrColorBufferClearColor uint32 = 0x1
	AddrDepthBufferClearDepth uint32 = 0x2
	AddrFragmentPipeline      uint32 = 0x3
	AddrStencil               uint32 = 0x4
	AddrScissorStart          uint32 = 0x5
	AddrScissorEnd            uint32 = 0x6
	AddrYOffset               uint32 = 0x7
	AddrRenderResolution      uint32 = 0x8
	AddrFogColor              uint32 = 0x9
	AddrTexEnv                uint32 = 0xA
	AddrTexEnvColor           uint32 = 0xB
	AddrTmuTexture            uint32 = 0xC
	AddrColorBufferAddr       uint32 = 0x10
	AddrDepthBufferAddr       uint32 = 0x11
	AddrStencilBufferAddr     uint32 = 0x12

	// TMUOffset separates the per-TMU register banks.
	TMUOffset uint32 = 3
)

// Register is a device register: an address and a serialized value.
type Register interface {
	Addr() uint32
	Serialize() uint32
}

type packer struct {
	v   uint32
	pos uint
}

func (p *packer) put(val uint32, width uint) {
	p.v |= (val & (1<<width - 1)) << p.pos
	p.pos += width
}

func (p *packer) flag(b bool) {
	if b {
		p.put(1, 1)
		return
	}
	p.pos++
}

type unpacker struct {
	v   uint32
	pos uint
}

func (u *unpacker) get(width uint) uint32 {
	val := (u.v >> u.pos) & (1<<width - 1)
	u.pos += width
	return val
}

func (u *unpacker) flag() bool {
	return u.get(1) == 1
}

// FeatureEnable switches the per-fragment stages on and off.
type FeatureEnable struct {
	Fog, Blending, DepthTest, AlphaTest, StencilTest, Scissor bool
	TMU                                                       [2]bool
}

func (r FeatureEnable) Addr() uint32 { return AddrFeatureEnable }

func (r FeatureEnable) Serialize() uint32 {
	var p packer
	p.flag(r.Fog)
	p.flag(r.Blending)
	p.flag(r.DepthTest)
	p.flag(r.AlphaTest)
	p.flag(r.StencilTest)
	p.flag(r.Scissor)
	p.flag(r.TMU[0])
	p.flag(r.TMU[1])
	return p.v
}

// DeserializeFeatureEnable decodes a FeatureEnable register value.
func DeserializeFeatureEnable(v uint32) FeatureEnable {
	u := unpacker{v: v}
	var r FeatureEnable
	r.Fog = u.flag()
	r.Blending = u.flag()
	r.DepthTest = u.flag()
	r.AlphaTest = u.flag()
	r.StencilTest = u.flag()
	r.Scissor = u.flag()
	r.TMU[0] = u.flag()
	r.TMU[1] = u.flag()
	return r
}

// FragmentPipeline configures depth, alpha, masks and blending.
type FragmentPipeline struct {
	DepthFunc    TestFunc
	AlphaFunc    TestFunc
	RefAlpha     uint8
	DepthMask    bool
	ColorMaskA   bool
	ColorMaskB   bool
	ColorMaskG   bool
	ColorMaskR   bool
	BlendSFactor BlendFunc
	BlendDFactor BlendFunc
}

// DefaultFragmentPipeline returns the register's reset value.
func DefaultFragmentPipeline() FragmentPipeline {
	return FragmentPipeline{
		DepthFunc:    Less,
		AlphaFunc:    Always,
		RefAlpha:     0xff,
		ColorMaskA:   true,
		ColorMaskB:   true,
		ColorMaskG:   true,
		ColorMaskR:   true,
		BlendSFactor: BlendOne,
		BlendDFactor: BlendZero,
	}
}

func (r FragmentPipeline) Addr() uint32 { return AddrFragmentPipeline }

func (r FragmentPipeline) Serialize() uint32 {
	var p packer
	p.put(uint32(r.DepthFunc), 3)
	p.put(uint32(r.AlphaFunc), 3)
	p.put(uint32(r.RefAlpha), 8)
	p.flag(r.DepthMask)
	p.flag(r.ColorMaskA)
	p.flag(r.ColorMaskB)
	p.flag(r.ColorMaskG)
	p.flag(r.ColorMaskR)
	p.put(uint32(r.BlendSFactor), 4)
	p.put(uint32(r.BlendDFactor), 4)
	return p.v
}

// DeserializeFragmentPipeline decodes a FragmentPipeline register value.
func DeserializeFragmentPipeline(v uint32) FragmentPipeline {
	u := unpacker{v: v}
	var r FragmentPipeline
	r.DepthFunc = TestFunc(u.get(3))
	r.AlphaFunc = TestFunc(u.get(3))
	r.RefAlpha = uint8(u.get(8))
	r.DepthMask = u.flag()
	r.ColorMaskA = u.flag()
	r.ColorMaskB = u.flag()
	r.ColorMaskG = u.flag()
	r.ColorMaskR = u.flag()
	r.BlendSFactor = BlendFunc(u.get(4))
	r.BlendDFactor = BlendFunc(u.get(4))
	return r
}

// MaxStencilValue is the largest value a 4 bit stencil field holds.
const MaxStencilValue = 0xf

// Stencil configures the stencil test. Values above MaxStencilValue are
// clamped on serialization.
type Stencil struct {
	TestFunc     TestFunc
	Mask         uint8
	Ref          uint8
	OpZPass      StencilOp
	OpZFail      StencilOp
	OpFail       StencilOp
	ClearStencil uint8
	StencilMask  uint8
}

// DefaultStencil returns the register's reset value.
func DefaultStencil() Stencil {
	return Stencil{
		TestFunc:    Always,
		Mask:        MaxStencilValue,
		StencilMask: MaxStencilValue,
	}
}

func (r Stencil) Addr() uint32 { return AddrStencil }

func (r Stencil) Serialize() uint32 {
	var p packer
	p.put(uint32(r.TestFunc), 3)
	p.put(uint32(min(r.Mask, MaxStencilValue)), 4)
	p.put(uint32(min(r.Ref, MaxStencilValue)), 4)
	p.put(uint32(r.OpZPass), 3)
	p.put(uint32(r.OpZFail), 3)
	p.put(uint32(r.OpFail), 3)
	p.put(uint32(min(r.ClearStencil, MaxStencilValue)), 4)
	p.put(uint32(min(r.StencilMask, MaxStencilValue)), 4)
	return p.v
}

// DeserializeStencil decodes a Stencil register value.
func DeserializeStencil(v uint32) Stencil {
	u := unpacker{v: v}
	var r Stencil
	r.TestFunc = TestFunc(u.get(3))
	r.Mask = uint8(u.get(4))
	r.Ref = uint8(u.get(4))
	r.OpZPass = StencilOp(u.get(3))
	r.OpZFail = StencilOp(u.get(3))
	r.OpFail = StencilOp(u.get(3))
	r.ClearStencil = uint8(u.get(4))
	r.StencilMask = uint8(u.get(4))
	return r
}

// TexEnv configures the texture combiner of one TMU.
type TexEnv struct {
	TMU          int
	CombineRGB   Combine
	CombineAlpha Combine
	SrcRGB       [3]SrcReg
	SrcAlpha     [3]SrcReg
	OperandRGB   [3]Operand
	// OperandAlpha only distinguishes SRC_ALPHA and ONE_MINUS_SRC_ALPHA.
	OperandAlpha [3]Operand
	ShiftRGB     uint8
	ShiftAlpha   uint8
}

// DefaultTexEnv returns the register's reset value for tmu.
func DefaultTexEnv(tmu int) TexEnv {
	return TexEnv{
		TMU:          tmu,
		CombineRGB:   CombineModulate,
		CombineAlpha: CombineModulate,
		SrcRGB:       [3]SrcReg{SrcTexture, SrcPrevious, SrcConstant},
		SrcAlpha:     [3]SrcReg{SrcTexture, SrcPrevious, SrcConstant},
		OperandRGB:   [3]Operand{OperandSrcColor, OperandSrcColor, OperandSrcColor},
		OperandAlpha: [3]Operand{OperandSrcAlpha, OperandSrcAlpha, OperandSrcAlpha},
	}
}

func (r TexEnv) Addr() uint32 { return AddrTexEnv + uint32(r.TMU)*TMUOffset }

func (r TexEnv) Serialize() uint32 {
	var p packer
	p.put(uint32(r.CombineRGB), 3)
	p.put(uint32(r.CombineAlpha), 3)
	for _, s := range r.SrcRGB {
		p.put(uint32(s), 2)
	}
	for _, s := range r.SrcAlpha {
		p.put(uint32(s), 2)
	}
	for _, o := range r.OperandRGB {
		p.put(uint32(o), 2)
	}
	for _, o := range r.OperandAlpha {
		p.put(uint32(o), 1)
	}
	p.put(uint32(r.ShiftRGB), 2)
	p.put(uint32(r.ShiftAlpha), 2)
	return p.v
}

// DeserializeTexEnv decodes a TexEnv register value for tmu.
func DeserializeTexEnv(tmu int, v uint32) TexEnv {
	u := unpacker{v: v}
	r := TexEnv{TMU: tmu}
	r.CombineRGB = Combine(u.get(3))
	r.CombineAlpha = Combine(u.get(3))
	for i := range r.SrcRGB {
		r.SrcRGB[i] = SrcReg(u.get(2))
	}
	for i := range r.SrcAlpha {
		r.SrcAlpha[i] = SrcReg(u.get(2))
	}
	for i := range r.OperandRGB {
		r.OperandRGB[i] = Operand(u.get(2))
	}
	for i := range r.OperandAlpha {
		r.OperandAlpha[i] = Operand(u.get(1))
	}
	r.ShiftRGB = uint8(u.get(2))
	r.ShiftAlpha = uint8(u.get(2))
	return r
}

// TmuTexture describes the texture bound to a TMU.
type TmuTexture struct {
	TMU int
	// WidthLg and HeightLg are log2 of the texture size.
	WidthLg, HeightLg uint8
	WrapS, WrapT      WrapMode
	MagFilter         bool
	MinFilter         bool
	PixelFormat       PixelFormat
}

// DefaultTmuTexture returns the register's reset value for tmu.
func DefaultTmuTexture(tmu int) TmuTexture {
	return TmuTexture{TMU: tmu, MinFilter: true}
}

func (r TmuTexture) Addr() uint32 { return AddrTmuTexture + uint32(r.TMU)*TMUOffset }

func (r TmuTexture) Serialize() uint32 {
	var p packer
	p.put(uint32(r.WidthLg), 4)
	p.put(uint32(r.HeightLg), 4)
	p.put(uint32(r.WrapS), 1)
	p.put(uint32(r.WrapT), 1)
	p.flag(r.MagFilter)
	p.flag(r.MinFilter)
	p.put(uint32(r.PixelFormat), 4)
	return p.v
}

// DeserializeTmuTexture decodes a TmuTexture register value for tmu.
func DeserializeTmuTexture(tmu int, v uint32) TmuTexture {
	u := unpacker{v: v}
	r := TmuTexture{TMU: tmu}
	r.WidthLg = uint8(u.get(4))
	r.HeightLg = uint8(u.get(4))
	r.WrapS = WrapMode(u.get(1))
	r.WrapT = WrapMode(u.get(1))
	r.MagFilter = u.flag()
	r.MinFilter = u.flag()
	r.PixelFormat = PixelFormat(u.get(4))
	return r
}

// Color is an RGBA8 color with red in the top byte.
type Color struct {
	R, G, B, A uint8
}

// ColorFromVec converts a 0..255 color vector, saturating each channel.
func ColorFromVec(v math3d.Vec4) Color {
	c := v.Clamp(0, 255)
	return Color{uint8(c.X), uint8(c.Y), uint8(c.Z), uint8(c.W)}
}

func (c Color) serialize() uint32 {
	return uint32(c.A) | uint32(c.B)<<8 | uint32(c.G)<<16 | uint32(c.R)<<24
}

// DeserializeColor decodes a color register value.
func DeserializeColor(v uint32) Color {
	return Color{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}
}

// ColorBufferClearColor is the color written by a color buffer memset.
type ColorBufferClearColor struct{ Color }

func (r ColorBufferClearColor) Addr() uint32      { return AddrColorBufferClearColor }
func (r ColorBufferClearColor) Serialize() uint32 { return r.serialize() }

// FogColor is the color fragments are blended toward by fog.
type FogColor struct{ Color }

func (r FogColor) Addr() uint32      { return AddrFogColor }
func (r FogColor) Serialize() uint32 { return r.serialize() }

// TexEnvColor is the combiner CONSTANT source of a TMU.
type TexEnvColor struct {
	Color
	TMU int
}

func (r TexEnvColor) Addr() uint32      { return AddrTexEnvColor + uint32(r.TMU)*TMUOffset }
func (r TexEnvColor) Serialize() uint32 { return r.serialize() }

// DepthBufferClearDepth is the depth written by a depth buffer memset.
type DepthBufferClearDepth struct {
	Depth uint16
}

func (r DepthBufferClearDepth) Addr() uint32      { return AddrDepthBufferClearDepth }
func (r DepthBufferClearDepth) Serialize() uint32 { return uint32(r.Depth) }

type xy struct {
	X, Y uint16
}

func (r xy) serialize(maskX, maskY uint16) uint32 {
	return uint32(r.X&maskX) | uint32(r.Y&maskY)<<16
}

// DeserializeXY splits an XY register value.
func DeserializeXY(v uint32) (x, y uint16) {
	return uint16(v), uint16(v >> 16)
}

const xyMask = 0x7ff

// ScissorStart is the inclusive lower corner of the scissor box.
type ScissorStart xy

func (r ScissorStart) Addr() uint32      { return AddrScissorStart }
func (r ScissorStart) Serialize() uint32 { return xy(r).serialize(xyMask, xyMask) }

// ScissorEnd is the exclusive upper corner of the scissor box.
type ScissorEnd xy

func (r ScissorEnd) Addr() uint32      { return AddrScissorEnd }
func (r ScissorEnd) Serialize() uint32 { return xy(r).serialize(xyMask, xyMask) }

// RenderResolution is the width and the per display line height.
type RenderResolution xy

func (r RenderResolution) Addr() uint32      { return AddrRenderResolution }
func (r RenderResolution) Serialize() uint32 { return xy(r).serialize(xyMask, xyMask) }

// YOffset is the first screen line a display list renders.
type YOffset xy

func (r YOffset) Addr() uint32      { return AddrYOffset }
func (r YOffset) Serialize() uint32 { return xy(r).serialize(0, xyMask) }

// BufferAddr is a device memory address register. The GRAM offset is
// added by the constructor.
type BufferAddr struct {
	addr    uint32
	address uint32
}

// ColorBufferAddr points the device at a color buffer.
func ColorBufferAddr(addr, gram uint32) BufferAddr {
	return BufferAddr{addr: AddrColorBufferAddr, address: addr + gram}
}

// DepthBufferAddr points the device at the depth buffer.
func DepthBufferAddr(addr, gram uint32) BufferAddr {
	return BufferAddr{addr: AddrDepthBufferAddr, address: addr + gram}
}

// StencilBufferAddr points the device at the stencil buffer.
func StencilBufferAddr(addr, gram uint32) BufferAddr {
	return BufferAddr{addr: AddrStencilBufferAddr, address: addr + gram}
}

func (r BufferAddr) Addr() uint32      { return r.addr }
func (r BufferAddr) Serialize() uint32 { return r.address }
