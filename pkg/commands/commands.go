// Package commands encodes the RRX command words and the DSE transfer
// descriptors that frame them.
//
// Every command is a header word with the opcode in the top nibble, followed
// by payload words. All words are little-endian on the wire.
package commands

import (
	"math"

	"github.com/taigrr/rasterix/pkg/math3d"
	"github.com/taigrr/rasterix/pkg/registers"
)

// RRX opcodes.
const (
	OpMask           uint32 = 0xF000_0000
	ImmMask          uint32 = ^OpMask
	OpNop            uint32 = 0x0000_0000
	OpWriteRegister  uint32 = 0x1000_0000
	OpFramebuffer    uint32 = 0x2000_0000
	OpTriangleStream uint32 = 0x3000_0000
	OpFogLut         uint32 = 0x4000_0000
	OpTextureStream  uint32 = 0x5000_0000
	OpPushVertex     uint32 = 0xD000_0000
)

// Framebuffer command flags.
const (
	FramebufferCommit        uint32 = 0x01
	FramebufferMemset        uint32 = 0x02
	FramebufferSwap          uint32 = 0x04
	FramebufferSelectColor   uint32 = 0x10
	FramebufferSelectDepth   uint32 = 0x20
	FramebufferSelectStencil uint32 = 0x40
)

// Texture stream header fields.
const (
	TextureStreamSizeMask uint32 = 0x3FFFF
	TextureStreamTMUPos          = 19
)

// FogLutSize is the fog LUT payload length in words: two bounds plus
// 32 (m, b) pairs.
const FogLutSize = 66

// Command is an RRX command.
type Command interface {
	Header() uint32
	Payload() []uint32
}

// Size returns the encoded size of cmd in bytes.
func Size(cmd Command) int {
	return 4 + 4*len(cmd.Payload())
}

// Nop is an empty command; a zero word decodes as Nop.
type Nop struct{}

func (Nop) Header() uint32    { return OpNop }
func (Nop) Payload() []uint32 { return nil }

// WriteRegister writes a register value.
type WriteRegister struct {
	Reg registers.Register
}

func (c WriteRegister) Header() uint32    { return OpWriteRegister | c.Reg.Addr() }
func (c WriteRegister) Payload() []uint32 { return []uint32{c.Reg.Serialize()} }

// Framebuffer commits, clears or swaps the selected buffers.
type Framebuffer struct {
	op uint32
}

// NewFramebuffer selects the buffers the command acts on.
func NewFramebuffer(color, depth, stencil bool) Framebuffer {
	var f Framebuffer
	if color {
		f.op |= FramebufferSelectColor
	}
	if depth {
		f.op |= FramebufferSelectDepth
	}
	if stencil {
		f.op |= FramebufferSelectStencil
	}
	return f
}

// Memset clears the selected buffers to their clear values.
func (f Framebuffer) Memset() Framebuffer { f.op |= FramebufferMemset; return f }

// Commit writes the selected internal buffers out.
func (f Framebuffer) Commit() Framebuffer { f.op |= FramebufferCommit; return f }

// Swap presents the selected color buffer.
func (f Framebuffer) Swap() Framebuffer { f.op |= FramebufferSwap; return f }

func (f Framebuffer) Header() uint32    { return OpFramebuffer | f.op }
func (f Framebuffer) Payload() []uint32 { return nil }

// FogLut uploads the fog lookup table.
type FogLut struct {
	lut [FogLutSize]uint32
}

// NewFogLut encodes a 33 entry fog table sampled at 2^i. The first word is
// the lower bound (at least 1), the second the upper bound, then one
// (slope, intercept) pair per interval, both scaled by 2^30.
func NewFogLut(table [33]float64, start, end float64) FogLut {
	var f FogLut
	f.lut[0] = math.Float32bits(float32(max(start, 1)))
	f.lut[1] = math.Float32bits(float32(end))
	for i := range len(table) - 1 {
		m := (table[i+1] - table[i]) / 256 * (1 << 30)
		b := table[i] * (1 << 30)
		f.lut[(i+1)*2] = uint32(int32(m))
		f.lut[(i+1)*2+1] = uint32(int32(b))
	}
	return f
}

func (f FogLut) Header() uint32    { return OpFogLut }
func (f FogLut) Payload() []uint32 { return f.lut[:] }

// TextureStream binds device memory pages to a TMU.
type TextureStream struct {
	TMU   int
	Pages []uint32
}

// NewTextureStream converts page indices into device addresses.
func NewTextureStream(tmu int, pages []int, pageSize int, gram uint32) TextureStream {
	addrs := make([]uint32, len(pages))
	for i, p := range pages {
		addrs[i] = gram + uint32(p*pageSize)
	}
	return TextureStream{TMU: tmu, Pages: addrs}
}

func (c TextureStream) Header() uint32 {
	return OpTextureStream | uint32(len(c.Pages))&TextureStreamSizeMask | uint32(c.TMU)<<TextureStreamTMUPos
}

func (c TextureStream) Payload() []uint32 { return c.Pages }

// PushVertex sends one transformed vertex for devices that assemble
// triangles themselves.
type PushVertex struct {
	Position math3d.Vec4
	Color    math3d.Vec4
	Tex      []math3d.Vec4
}

func (c PushVertex) Header() uint32 { return OpPushVertex | uint32(4*len(c.Payload())) }

func (c PushVertex) Payload() []uint32 {
	words := make([]uint32, 0, 8+4*len(c.Tex))
	words = appendVec4(words, c.Position)
	words = appendVec4(words, c.Color)
	for _, t := range c.Tex {
		words = appendVec4(words, t)
	}
	return words
}

func appendVec4(words []uint32, v math3d.Vec4) []uint32 {
	return append(words,
		math.Float32bits(float32(v.X)),
		math.Float32bits(float32(v.Y)),
		math.Float32bits(float32(v.Z)),
		math.Float32bits(float32(v.W)))
}
