package renderer

import (
	"encoding/binary"
	"image"
	"image/color"

	"golang.org/x/image/draw"

	"github.com/taigrr/rasterix/pkg/registers"
)

// MaxLOD is the highest mip level the device samples.
const MaxLOD = 8

// InternalFormat is the texel layout an application asks for. It maps onto
// one of the device pixel formats.
type InternalFormat int

const (
	FormatAlpha InternalFormat = iota
	FormatLuminance
	FormatIntensity
	FormatLuminanceAlpha
	FormatRGB
	FormatRGBA
	FormatRGBA1
)

// PixelFormat returns the device format texels of f are stored in.
func (f InternalFormat) PixelFormat() registers.PixelFormat {
	switch f {
	case FormatLuminance, FormatRGB:
		return registers.RGB565
	case FormatRGBA1:
		return registers.RGBA5551
	default:
		return registers.RGBA4444
	}
}

// ConvertColor packs an 8 bit per channel color into a 16 bit texel.
func (f InternalFormat) ConvertColor(r, g, b, a uint8) uint16 {
	r16, g16, b16, a16 := uint16(r), uint16(g), uint16(b), uint16(a)
	switch f {
	case FormatAlpha:
		return a16 >> 4
	case FormatLuminance:
		return r16>>3<<11 | r16>>2<<5 | r16>>3
	case FormatIntensity:
		return r16>>4<<12 | r16>>4<<8 | r16>>4<<4 | r16>>4
	case FormatLuminanceAlpha:
		return r16>>4<<12 | r16>>4<<8 | r16>>4<<4 | a16>>4
	case FormatRGB:
		return r16>>3<<11 | g16>>2<<5 | b16>>3
	case FormatRGBA:
		return r16>>4<<12 | g16>>4<<8 | b16>>4<<4 | a16>>4
	case FormatRGBA1:
		return r16>>3<<11 | g16>>3<<6 | b16>>3<<1 | a16>>7
	}
	return 0
}

// TextureObject is one mip level in device format.
type TextureObject struct {
	Pixels []uint16
	Width  int
	Height int
	Format InternalFormat
}

// NewTextureObject converts img into format f.
func NewTextureObject(img image.Image, f InternalFormat) TextureObject {
	b := img.Bounds()
	obj := TextureObject{
		Pixels: make([]uint16, 0, b.Dx()*b.Dy()),
		Width:  b.Dx(),
		Height: b.Dy(),
		Format: f,
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			obj.Pixels = append(obj.Pixels, f.ConvertColor(c.R, c.G, c.B, c.A))
		}
	}
	return obj
}

// Size is the byte size of the level.
func (t TextureObject) Size() int { return 2 * t.Width * t.Height }

// Empty reports whether the level holds no texels.
func (t TextureObject) Empty() bool { return t.Width == 0 || t.Height == 0 }

// Bytes returns the texels little-endian.
func (t TextureObject) Bytes() []byte {
	out := make([]byte, 2*len(t.Pixels))
	for i, p := range t.Pixels {
		binary.LittleEndian.PutUint16(out[2*i:], p)
	}
	return out
}

// Mipmap is a mip chain, level 0 first. Missing levels are empty.
type Mipmap [MaxLOD + 1]TextureObject

// Size is the byte size of all levels.
func (m *Mipmap) Size() int {
	n := 0
	for _, l := range m {
		n += l.Size()
	}
	return n
}

// Bytes concatenates all levels the way they are placed in texture memory.
func (m *Mipmap) Bytes() []byte {
	out := make([]byte, 0, m.Size())
	for _, l := range m {
		out = append(out, l.Bytes()...)
	}
	return out
}

// BuildMipmap converts img and, when levels is set, halves it down to 1x1
// with bilinear filtering.
func BuildMipmap(img image.Image, f InternalFormat, levels bool) Mipmap {
	var m Mipmap
	m[0] = NewTextureObject(img, f)
	if !levels {
		return m
	}
	src := img
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	for lod := 1; lod <= MaxLOD && (w > 1 || h > 1); lod++ {
		w, h = max(w/2, 1), max(h/2, 1)
		dst := image.NewNRGBA(image.Rect(0, 0, w, h))
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
		m[lod] = NewTextureObject(dst, f)
		src = dst
	}
	return m
}
