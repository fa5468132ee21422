package render

import (
	"math"

	"github.com/taigrr/rasterix/pkg/commands"
	"github.com/taigrr/rasterix/pkg/math3d"
	"github.com/taigrr/rasterix/pkg/registers"
)

// compare evaluates a test function as "a fn b".
func compare(fn registers.TestFunc, a, b int) bool {
	switch fn {
	case registers.Always:
		return true
	case registers.Never:
		return false
	case registers.Less:
		return a < b
	case registers.Equal:
		return a == b
	case registers.LEqual:
		return a <= b
	case registers.Greater:
		return a > b
	case registers.NotEqual:
		return a != b
	case registers.GEqual:
		return a >= b
	}
	return false
}

// stencilOp applies op to a 4 bit stencil value.
func stencilOp(op registers.StencilOp, v, ref uint8) uint8 {
	switch op {
	case registers.StencilZero:
		return 0
	case registers.StencilReplace:
		return ref
	case registers.StencilIncr:
		return min(v+1, registers.MaxStencilValue)
	case registers.StencilIncrWrap:
		return (v + 1) & registers.MaxStencilValue
	case registers.StencilDecr:
		if v == 0 {
			return 0
		}
		return v - 1
	case registers.StencilDecrWrap:
		return (v - 1) & registers.MaxStencilValue
	case registers.StencilInvert:
		return ^v & registers.MaxStencilValue
	}
	return v
}

// blendFactor returns the factor fn for source src over destination dst.
func blendFactor(fn registers.BlendFunc, src, dst math3d.Vec4) math3d.Vec4 {
	switch fn {
	case registers.BlendZero:
		return math3d.Vec4{}
	case registers.BlendOne:
		return math3d.V4(1, 1, 1, 1)
	case registers.BlendDstColor:
		return dst
	case registers.BlendSrcColor:
		return src
	case registers.BlendOneMinusDstColor:
		return math3d.V4(1, 1, 1, 1).Sub(dst)
	case registers.BlendOneMinusSrcColor:
		return math3d.V4(1, 1, 1, 1).Sub(src)
	case registers.BlendSrcAlpha:
		return math3d.V4(src.W, src.W, src.W, src.W)
	case registers.BlendOneMinusSrcAlpha:
		a := 1 - src.W
		return math3d.V4(a, a, a, a)
	case registers.BlendDstAlpha:
		return math3d.V4(dst.W, dst.W, dst.W, dst.W)
	case registers.BlendOneMinusDstAlpha:
		a := 1 - dst.W
		return math3d.V4(a, a, a, a)
	case registers.BlendSrcAlphaSaturate:
		f := min(src.W, 1-dst.W)
		return math3d.V4(f, f, f, 1)
	}
	return math3d.V4(1, 1, 1, 1)
}

func blend(reg registers.FragmentPipeline, src, dst math3d.Vec4) math3d.Vec4 {
	s := src.Mul(blendFactor(reg.BlendSFactor, src, dst))
	d := dst.Mul(blendFactor(reg.BlendDFactor, src, dst))
	return s.Add(d).Clamp(0, 1)
}

// fogLut is the decoded fog table: bounds and per-interval line segments
// over distances [2^i, 2^(i+1)).
type fogLut struct {
	lower, upper float64
	m, b         [commands.FogLutSize/2 - 1]float64
}

func decodeFogLut(words []uint32) fogLut {
	var f fogLut
	f.lower = float64(math.Float32frombits(words[0]))
	f.upper = float64(math.Float32frombits(words[1]))
	for i := range f.m {
		f.m[i] = float64(int32(words[(i+1)*2])) / (1 << 30)
		f.b[i] = float64(int32(words[(i+1)*2+1])) / (1 << 30)
	}
	return f
}

// factor returns the fog blend weight of the fragment color at eye
// distance z: 1 keeps the fragment, 0 is full fog.
func (f *fogLut) factor(z float64) float64 {
	if z <= f.lower {
		z = f.lower
	}
	if f.upper > f.lower && z >= f.upper {
		z = f.upper
	}
	if z < 1 || math.IsNaN(z) {
		z = 1
	}
	_, exp := math.Frexp(z)
	i := min(exp-1, len(f.m)-1)
	frac := (z/math.Exp2(float64(i)) - 1) * 256
	return min(max(f.m[i]*frac+f.b[i], 0), 1)
}
