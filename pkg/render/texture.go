package render

import (
	"encoding/binary"
	"math"

	"github.com/taigrr/rasterix/pkg/math3d"
	"github.com/taigrr/rasterix/pkg/registers"
)

// Texture is the level 0 image of the texture bound to a TMU, read from
// the pages the TMU streams from.
type Texture struct {
	Width    int
	Height   int
	WrapS    registers.WrapMode
	WrapT    registers.WrapMode
	Bilinear bool
	Format   registers.PixelFormat
	texels   []uint16 // row-major, row 0 at t = 0
}

// newTexture decodes a TMU configuration over its page contents.
func newTexture(conf registers.TmuTexture, data []byte) *Texture {
	t := &Texture{
		Width:    1 << conf.WidthLg,
		Height:   1 << conf.HeightLg,
		WrapS:    conf.WrapS,
		WrapT:    conf.WrapT,
		Bilinear: conf.MagFilter,
		Format:   conf.PixelFormat,
	}
	t.texels = make([]uint16, t.Width*t.Height)
	for i := range t.texels {
		if 2*i+1 >= len(data) {
			break
		}
		t.texels[i] = binary.LittleEndian.Uint16(data[2*i:])
	}
	return t
}

// Sample samples the texture at s, t with the texture's wrap and filter
// modes.
func (t *Texture) Sample(s, tc float64) math3d.Vec4 {
	s = wrapCoord(s, t.WrapS)
	tc = wrapCoord(tc, t.WrapT)
	if t.Bilinear {
		return t.sampleBilinear(s, tc)
	}
	return t.sampleNearest(s, tc)
}

func wrapCoord(coord float64, mode registers.WrapMode) float64 {
	switch mode {
	case registers.WrapRepeat:
		coord -= math.Floor(coord)
	case registers.WrapClampToEdge:
		coord = math.Max(0, math.Min(1, coord))
	}
	return coord
}

func (t *Texture) sampleNearest(s, tc float64) math3d.Vec4 {
	x := min(int(s*float64(t.Width)), t.Width-1)
	y := min(int(tc*float64(t.Height)), t.Height-1)
	return t.Texel(x, y)
}

func (t *Texture) sampleBilinear(s, tc float64) math3d.Vec4 {
	fx := s*float64(t.Width) - 0.5
	fy := tc*float64(t.Height) - 0.5

	x0 := int(math.Floor(fx))
	y0 := int(math.Floor(fy))
	tx := fx - float64(x0)
	ty := fy - float64(y0)

	x1 := wrapTexel(x0+1, t.Width, t.WrapS)
	y1 := wrapTexel(y0+1, t.Height, t.WrapT)
	x0 = wrapTexel(x0, t.Width, t.WrapS)
	y0 = wrapTexel(y0, t.Height, t.WrapT)

	top := t.Texel(x0, y0).Lerp(t.Texel(x1, y0), tx)
	bot := t.Texel(x0, y1).Lerp(t.Texel(x1, y1), tx)
	return top.Lerp(bot, ty)
}

func wrapTexel(x, size int, mode registers.WrapMode) int {
	if mode == registers.WrapRepeat {
		x %= size
		if x < 0 {
			x += size
		}
		return x
	}
	return min(max(x, 0), size-1)
}

// Texel returns the decoded texel at x, y as 0..1 channels.
func (t *Texture) Texel(x, y int) math3d.Vec4 {
	if x < 0 || x >= t.Width || y < 0 || y >= t.Height {
		return math3d.Vec4{}
	}
	return DecodeTexel(t.texels[y*t.Width+x], t.Format)
}

// DecodeTexel expands a 16 bit texel of format f.
func DecodeTexel(p uint16, f registers.PixelFormat) math3d.Vec4 {
	ch := func(shift, bits uint) float64 {
		mask := uint16(1)<<bits - 1
		return float64(p>>shift&mask) / float64(mask)
	}
	switch f {
	case registers.RGB565:
		return math3d.V4(ch(11, 5), ch(5, 6), ch(0, 5), 1)
	case registers.RGBA5551:
		return math3d.V4(ch(11, 5), ch(6, 5), ch(1, 5), ch(0, 1))
	}
	return math3d.V4(ch(12, 4), ch(8, 4), ch(4, 4), ch(0, 4))
}
