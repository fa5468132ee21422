package commands

import (
	"fmt"
	"math"

	"github.com/taigrr/rasterix/pkg/math3d"
)

// Fractional bits of the fixed-point triangle descriptor.
const (
	TextureFracBits = 28
	ColorFracBits   = 24
	DepthFracBits   = 30
)

const (
	triangleStaticWords  = 30
	triangleTextureWords = 9
)

// TextureParams holds the perspective-weighted s, t, q of one TMU and their
// per-pixel increments.
type TextureParams struct {
	Stq, StqXInc, StqYInc math3d.Vec3
}

// TriangleDesc is the setup data of one triangle: bounding box in pixels,
// edge function values at the box origin with their per-pixel increments,
// and the interpolated attributes at the same origin.
type TriangleDesc struct {
	BBStartX, BBStartY uint16
	BBEndX, BBEndY     uint16

	WInit, WXInc, WYInc math3d.Vec3i

	Color, ColorXInc, ColorYInc math3d.Vec4

	DepthW, DepthWXInc, DepthWYInc float64
	DepthZ, DepthZXInc, DepthZYInc float64

	Texture []TextureParams
}

// Clone returns a deep copy.
func (d TriangleDesc) Clone() TriangleDesc {
	d.Texture = append([]TextureParams(nil), d.Texture...)
	return d
}

// InBounds reports whether the triangle touches screen lines
// [lineStart, lineEnd).
func (d *TriangleDesc) InBounds(lineStart, lineEnd int) bool {
	return int(d.BBEndY) >= lineStart && int(d.BBStartY) < lineEnd
}

// Increment advances the start values of a triangle that begins above
// lineStart so that a display line starting at lineStart can render it.
// It reports whether the triangle is visible in [lineStart, lineEnd).
func (d *TriangleDesc) Increment(lineStart, lineEnd int) bool {
	if lineStart == 0 && int(d.BBStartY) < lineEnd {
		return true
	}
	if !d.InBounds(lineStart, lineEnd) {
		return false
	}
	if int(d.BBStartY) < lineStart {
		diff := lineStart - int(d.BBStartY)
		for i := range d.WInit {
			d.WInit[i] += d.WYInc[i] * int32(diff)
		}
		fd := float64(diff)
		d.DepthW += d.DepthWYInc * fd
		d.DepthZ += d.DepthZYInc * fd
		d.Color = d.Color.Add(d.ColorYInc.Scale(fd))
		for i := range d.Texture {
			d.Texture[i].Stq = d.Texture[i].Stq.Add(d.Texture[i].StqYInc.Scale(fd))
		}
	}
	return true
}

// TriangleWords is the payload length of a descriptor for tmus TMUs.
func TriangleWords(tmus int) int {
	return triangleStaticWords + triangleTextureWords*tmus
}

// TriangleStream carries one triangle descriptor, encoded either in fixed
// point or as float32.
type TriangleStream struct {
	Desc  TriangleDesc
	Float bool
}

func (c TriangleStream) Header() uint32 {
	return OpTriangleStream | uint32(4*TriangleWords(len(c.Desc.Texture)))
}

func (c TriangleStream) Payload() []uint32 {
	d := &c.Desc
	words := make([]uint32, 0, TriangleWords(len(d.Texture)))
	words = append(words,
		0,
		uint32(d.BBStartX)|uint32(d.BBStartY)<<16,
		uint32(d.BBEndX)|uint32(d.BBEndY)<<16)
	for _, v := range [...]math3d.Vec3i{d.WInit, d.WXInc, d.WYInc} {
		words = append(words, uint32(v[0]), uint32(v[1]), uint32(v[2]))
	}
	for _, v := range [...]math3d.Vec4{d.Color, d.ColorXInc, d.ColorYInc} {
		words = append(words, c.scalar(v.X, ColorFracBits), c.scalar(v.Y, ColorFracBits),
			c.scalar(v.Z, ColorFracBits), c.scalar(v.W, ColorFracBits))
	}
	for _, v := range [...]float64{d.DepthW, d.DepthWXInc, d.DepthWYInc, d.DepthZ, d.DepthZXInc, d.DepthZYInc} {
		words = append(words, c.scalar(v, DepthFracBits))
	}
	for _, t := range d.Texture {
		for _, v := range [...]math3d.Vec3{t.Stq, t.StqXInc, t.StqYInc} {
			words = append(words, c.scalar(v.X, TextureFracBits), c.scalar(v.Y, TextureFracBits),
				c.scalar(v.Z, TextureFracBits))
		}
	}
	return words
}

func (c TriangleStream) scalar(v float64, frac uint) uint32 {
	if c.Float {
		return math.Float32bits(float32(v))
	}
	return uint32(math3d.ToFixed(v, frac))
}

// DecodeTriangle parses a triangle stream payload for tmus TMUs.
func DecodeTriangle(words []uint32, tmus int, float bool) (TriangleDesc, error) {
	if len(words) != TriangleWords(tmus) {
		return TriangleDesc{}, fmt.Errorf("%w: triangle payload has %d words, want %d",
			ErrMalformed, len(words), TriangleWords(tmus))
	}
	scalar := func(w uint32, frac uint) float64 {
		if float {
			return float64(math.Float32frombits(w))
		}
		return math3d.FromFixed(int32(w), frac)
	}
	var d TriangleDesc
	d.BBStartX, d.BBStartY = uint16(words[1]), uint16(words[1]>>16)
	d.BBEndX, d.BBEndY = uint16(words[2]), uint16(words[2]>>16)
	pos := 3
	for _, v := range [...]*math3d.Vec3i{&d.WInit, &d.WXInc, &d.WYInc} {
		*v = math3d.Vec3i{int32(words[pos]), int32(words[pos+1]), int32(words[pos+2])}
		pos += 3
	}
	for _, v := range [...]*math3d.Vec4{&d.Color, &d.ColorXInc, &d.ColorYInc} {
		*v = math3d.Vec4{
			X: scalar(words[pos], ColorFracBits),
			Y: scalar(words[pos+1], ColorFracBits),
			Z: scalar(words[pos+2], ColorFracBits),
			W: scalar(words[pos+3], ColorFracBits),
		}
		pos += 4
	}
	for _, v := range [...]*float64{&d.DepthW, &d.DepthWXInc, &d.DepthWYInc, &d.DepthZ, &d.DepthZXInc, &d.DepthZYInc} {
		*v = scalar(words[pos], DepthFracBits)
		pos++
	}
	d.Texture = make([]TextureParams, tmus)
	for i := range d.Texture {
		t := &d.Texture[i]
		for _, v := range [...]*math3d.Vec3{&t.Stq, &t.StqXInc, &t.StqYInc} {
			*v = math3d.Vec3{
				X: scalar(words[pos], TextureFracBits),
				Y: scalar(words[pos+1], TextureFracBits),
				Z: scalar(words[pos+2], TextureFracBits),
			}
			pos += 3
		}
	}
	return d, nil
}
